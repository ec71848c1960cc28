package oss

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

const (
	endpointAliyun = iota
	endpointCNAME
	endpointIP
)

// normalizeEndpoint defaults the scheme to http when the endpoint does
// not carry one.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return "http://" + endpoint
	}
	return endpoint
}

// urlMaker builds request URLs for one endpoint. The addressing style is
// fixed at construction: virtual-host for regular endpoints, the bare
// host for CNAME endpoints, path style for IP endpoints.
type urlMaker struct {
	scheme  string
	netloc  string
	urlType int
}

func newURLMaker(endpoint string, isCNAME bool) (*urlMaker, error) {
	u, err := url.Parse(normalizeEndpoint(endpoint))
	if err != nil {
		return nil, &ProtocolError{URL: endpoint, Reason: "invalid endpoint", Err: err}
	}
	if u.Host == "" {
		return nil, &ProtocolError{URL: endpoint, Reason: "endpoint has no host"}
	}

	m := &urlMaker{scheme: u.Scheme, netloc: u.Host}
	switch {
	case isIPHost(u.Host):
		m.urlType = endpointIP
	case isCNAME:
		m.urlType = endpointCNAME
	default:
		m.urlType = endpointAliyun
	}
	return m, nil
}

// URL renders the request URL for bucket and key. Buckets whose names
// cannot appear as a subdomain fall back to path style.
func (m *urlMaker) URL(bucket, key string, params url.Values) string {
	var b strings.Builder
	b.WriteString(m.scheme)
	b.WriteString("://")

	switch {
	case m.urlType == endpointCNAME:
		b.WriteString(m.netloc)
		b.WriteString("/")
		b.WriteString(escapeKey(key))
	case m.urlType == endpointIP || (bucket != "" && !isValidBucketName(bucket)):
		b.WriteString(m.netloc)
		b.WriteString("/")
		if bucket != "" {
			b.WriteString(bucket)
			b.WriteString("/")
			b.WriteString(escapeKey(key))
		}
	case bucket == "":
		b.WriteString(m.netloc)
		b.WriteString("/")
	default:
		b.WriteString(bucket)
		b.WriteString(".")
		b.WriteString(m.netloc)
		b.WriteString("/")
		b.WriteString(escapeKey(key))
	}

	if len(params) > 0 {
		b.WriteString("?")
		b.WriteString(params.Encode())
	}
	return b.String()
}

// isIPHost reports whether host is an IP address or localhost, with or
// without a port.
func isIPHost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "localhost" {
		return true
	}
	return net.ParseIP(host) != nil
}

// isValidBucketName reports whether name can be used as a subdomain
// label: 3-63 characters from [a-z0-9-], no leading or trailing dash.
func isValidBucketName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if name[0] == '-' || name[len(name)-1] == '-' {
		return false
	}
	for _, c := range name {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return false
		}
	}
	return true
}

// escapeKey percent-encodes each path segment of key, keeping the
// slashes that separate them.
func escapeKey(key string) string {
	if key == "" {
		return key
	}
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// makeRangeString renders an HTTP Range value. Either bound may be -1
// for an open end; both open yields the empty string.
func makeRangeString(start, end int64) string {
	switch {
	case start < 0 && end < 0:
		return ""
	case start < 0:
		return fmt.Sprintf("bytes=-%d", end)
	case end < 0:
		return fmt.Sprintf("bytes=%d-", start)
	default:
		return fmt.Sprintf("bytes=%d-%d", start, end)
	}
}
