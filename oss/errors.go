package oss

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidCredential is returned when constructing credentials from
	// an empty access key id or secret.
	ErrInvalidCredential = errors.New("oss: access key id and access key secret must not be empty")

	// ErrStreamExhausted is returned when reading a response body that has
	// already been consumed to the end or closed.
	ErrStreamExhausted = errors.New("oss: response body has already been consumed")

	// ErrNoMoreObjects is returned by ObjectIterator.Next once the listing
	// is finished.
	ErrNoMoreObjects = errors.New("oss: no more objects")

	// ErrClientClosed is returned when a request is issued through a client
	// whose transport has been closed.
	ErrClientClosed = errors.New("oss: client is closed")

	// ErrEmptyKeyList is returned by DeleteObjects for an empty key list.
	ErrEmptyKeyList = errors.New("oss: key list must not be empty")
)

// SigningError reports a request that cannot be signed because a required
// input is missing.
type SigningError struct {
	Missing string
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("oss: cannot sign request: missing %s", e.Missing)
}

// TransportError wraps a failure that happened before a response was
// received: dial errors, resets, cancelled contexts and timeouts.
type TransportError struct {
	Op  string
	URL string
	Err error

	timeout bool
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("oss: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a timeout, either of the
// per-client deadline or of the request context.
func (e *TransportError) Timeout() bool { return e.timeout }

// ProtocolError reports a response the client could not make sense of,
// such as a malformed XML document where a result was expected.
type ProtocolError struct {
	URL    string
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oss: protocol error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("oss: protocol error: %s", e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response from the service, carrying the parsed
// OSS error envelope when one was present and the raw body verbatim.
type ServerError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
	HostID     string
	Headers    http.Header
	Body       []byte
}

func (e *ServerError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("oss: service returned %d (request id: %s)", e.StatusCode, e.RequestID)
	}
	return fmt.Sprintf("oss: service returned %d: %s: %s (request id: %s)", e.StatusCode, e.Code, e.Message, e.RequestID)
}

// errorEnvelope is the XML error document the service attaches to failed
// requests.
type errorEnvelope struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	RequestID string   `xml:"RequestId"`
	HostID    string   `xml:"HostId"`
}

// newServerError builds a ServerError from a failed response. HEAD
// responses have no body; for those the service mirrors the envelope into
// the x-oss-err header, base64 encoded.
func newServerError(statusCode int, headers http.Header, body []byte) *ServerError {
	se := &ServerError{
		StatusCode: statusCode,
		RequestID:  headers.Get(headerOSSRequestID),
		Headers:    headers,
		Body:       body,
	}

	raw := body
	if len(raw) == 0 {
		if enc := headers.Get(headerOSSErr); enc != "" {
			if decoded, err := base64.StdEncoding.DecodeString(enc); err == nil {
				raw = decoded
			}
		}
	}
	if len(raw) == 0 {
		return se
	}

	var env errorEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return se
	}
	se.Code = env.Code
	se.Message = env.Message
	se.HostID = env.HostID
	if env.RequestID != "" {
		se.RequestID = env.RequestID
	}
	return se
}

// IsNotFound reports whether err is a 404 from the service, regardless of
// how many times it has been wrapped.
func IsNotFound(err error) bool {
	var se *ServerError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// IsTimeout reports whether err is a timed-out request.
func IsTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Timeout()
}

// IsConnectionError reports whether err is a transport failure other than
// a timeout.
func IsConnectionError(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && !te.Timeout()
}
