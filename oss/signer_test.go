package oss

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessKeyID     = "44CF9590006BF252F707"
	testAccessKeySecret = "OtxrzxIsfpFjA7SwPzILwy8Bw21TLhquhboDYROV"
)

func testSigner(t *testing.T) *Signer {
	t.Helper()
	creds, err := NewCredentials(testAccessKeyID, testAccessKeySecret)
	require.NoError(t, err)
	return NewSigner(creds)
}

func TestSignKnownVector(t *testing.T) {
	headers := http.Header{}
	headers.Set("Content-MD5", "ODBGOERFMDMzQTczRUY3NUE3NzA5QzdFNUYzMDQxNEM=")
	headers.Set("Content-Type", "text/html")
	headers.Set("X-OSS-Meta-Author", "foo@bar.com")
	headers.Set("X-OSS-Magic", "abracadabra")

	sig, err := testSigner(t).Sign(http.MethodPut, "/oss-example/nelson", headers, "Thu, 17 Nov 2005 18:49:58 GMT")
	require.NoError(t, err)
	assert.Equal(t, "26NBxoKdsyly4EDv6inkoDft/yA=", sig)
}

func TestSignDeterministic(t *testing.T) {
	headers := http.Header{}
	headers.Set("Content-Type", "application/xml")
	headers.Set("X-OSS-Meta-Rev", "7")

	s := testSigner(t)
	first, err := s.Sign(http.MethodGet, "/b/k?acl", headers, "Mon, 18 Mar 2019 09:00:00 GMT")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := s.Sign(http.MethodGet, "/b/k?acl", headers, "Mon, 18 Mar 2019 09:00:00 GMT")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSignMissingDate(t *testing.T) {
	_, err := testSigner(t).Sign(http.MethodPut, "/b/k", http.Header{}, "")
	require.Error(t, err)

	var serr *SigningError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "Date", serr.Missing)
}

func TestCanonicalizedOSSHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers http.Header
		want    string
	}{
		{
			name:    "none",
			headers: http.Header{"Content-Type": {"text/plain"}},
			want:    "",
		},
		{
			name: "sorted and lowercased",
			headers: http.Header{
				"X-OSS-Meta-Zoo": {"z"},
				"X-OSS-Acl":      {"private"},
				"Date":           {"ignored"},
			},
			want: "x-oss-acl:private\nx-oss-meta-zoo:z\n",
		},
		{
			name: "multiple values joined",
			headers: http.Header{
				"X-OSS-Meta-Tag": {"a", "b"},
			},
			want: "x-oss-meta-tag:a,b\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, canonicalizedOSSHeaders(tt.headers))
		})
	}
}

func TestCanonicalizedResource(t *testing.T) {
	tests := []struct {
		name   string
		bucket string
		key    string
		params url.Values
		want   string
	}{
		{
			name: "service root",
			want: "/",
		},
		{
			name:   "bucket only",
			bucket: "pics",
			want:   "/pics/",
		},
		{
			name:   "bucket and key",
			bucket: "pics",
			key:    "a/b.png",
			want:   "/pics/a/b.png",
		},
		{
			name:   "bare subresource",
			bucket: "pics",
			key:    "a.png",
			params: url.Values{"objectMeta": {""}},
			want:   "/pics/a.png?objectMeta",
		},
		{
			name:   "subresources sorted with values",
			bucket: "pics",
			key:    "log",
			params: url.Values{"position": {"128"}, "append": {""}},
			want:   "/pics/log?append&position=128",
		},
		{
			name:   "unsigned params excluded",
			bucket: "pics",
			params: url.Values{"prefix": {"a"}, "marker": {"b"}, "max-keys": {"5"}, "delete": {""}},
			want:   "/pics/?delete",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, canonicalizedResource(tt.bucket, tt.key, tt.params))
		})
	}
}

func TestAuthorizeStampsRequest(t *testing.T) {
	req, err := http.NewRequest(http.MethodPut, "http://pics.oss.example.com/holiday.jpg", strings.NewReader("x"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "image/jpeg")

	require.NoError(t, testSigner(t).Authorize(req, "pics", "holiday.jpg"))

	assert.NotEmpty(t, req.Header.Get("Date"))
	auth := req.Header.Get("Authorization")
	require.True(t, strings.HasPrefix(auth, "OSS "+testAccessKeyID+":"), "unexpected authorization %q", auth)

	// The stamped date must be the one signed.
	resource := canonicalizedResource("pics", "holiday.jpg", req.URL.Query())
	want, err := testSigner(t).Sign(http.MethodPut, resource, req.Header, req.Header.Get("Date"))
	require.NoError(t, err)
	assert.Equal(t, "OSS "+testAccessKeyID+":"+want, auth)
}

func TestAuthorizeKeepsCallerDate(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://pics.oss.example.com/k", nil)
	require.NoError(t, err)
	req.Header.Set("Date", "Thu, 17 Nov 2005 18:49:58 GMT")

	require.NoError(t, testSigner(t).Authorize(req, "pics", "k"))
	assert.Equal(t, "Thu, 17 Nov 2005 18:49:58 GMT", req.Header.Get("Date"))
}

func TestPresignParams(t *testing.T) {
	s := testSigner(t)

	signed, err := s.PresignParams(http.MethodGet, "pics", "holiday.jpg", 1141889120, http.Header{}, nil)
	require.NoError(t, err)

	assert.Equal(t, testAccessKeyID, signed.Get("OSSAccessKeyId"))
	assert.Equal(t, "1141889120", signed.Get("Expires"))

	want, err := s.Sign(http.MethodGet, "/pics/holiday.jpg", http.Header{}, "1141889120")
	require.NoError(t, err)
	assert.Equal(t, want, signed.Get("Signature"))
}

func TestPresignParamsRejectsZeroExpiry(t *testing.T) {
	_, err := testSigner(t).PresignParams(http.MethodGet, "pics", "k", 0, http.Header{}, nil)

	var serr *SigningError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "Expires", serr.Missing)
}
