package oss

import (
	"io"
	"net/http"
	"sync"
)

const (
	headerOSSRequestID          = "X-Oss-Request-Id"
	headerOSSErr                = "X-Oss-Err"
	headerOSSNextAppendPosition = "X-Oss-Next-Append-Position"
	headerOSSObjectType         = "X-Oss-Object-Type"
	headerOSSStorageClass       = "X-Oss-Storage-Class"
	headerOSSCopySource         = "X-Oss-Copy-Source"
	headerOSSMetadataDirective  = "X-Oss-Metadata-Directive"
)

// drainLimit bounds how much of an unread body Close consumes before
// closing, to keep the connection reusable without reading a huge
// remainder.
const drainLimit = 32 * 1024

// Response is one service reply. The body can be read exactly once;
// reads after exhaustion or Close fail with ErrStreamExhausted rather
// than reporting an empty stream.
type Response struct {
	StatusCode int
	Headers    http.Header
	RequestID  string

	body *bodyReader
}

func newResponse(resp *http.Response) *Response {
	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		RequestID:  resp.Header.Get(headerOSSRequestID),
		body:       &bodyReader{in: resp.Body},
	}
}

func (r *Response) Read(p []byte) (int, error) {
	return r.body.Read(p)
}

// Close releases the underlying connection. It is safe to call more
// than once.
func (r *Response) Close() error {
	return r.body.Close()
}

// CheckClose closes c, assigning the error to *errp when it would
// otherwise be lost.
func CheckClose(c io.Closer, errp *error) {
	cerr := c.Close()
	if *errp == nil {
		*errp = cerr
	}
}

// bodyReader serializes access to the network body and remembers when
// it has been consumed.
type bodyReader struct {
	mu        sync.Mutex
	in        io.ReadCloser
	exhausted bool
	closed    bool
}

func (b *bodyReader) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.exhausted {
		return 0, ErrStreamExhausted
	}
	n, err := b.in.Read(p)
	if err == io.EOF {
		// The first EOF still belongs to the caller's read loop.
		b.exhausted = true
	}
	return n, err
}

func (b *bodyReader) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if !b.exhausted {
		// Drain errors only cost connection reuse.
		io.CopyN(io.Discard, b.in, drainLimit)
	}
	return b.in.Close()
}
