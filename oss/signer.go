// Copyright 2022 the go-oss Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oss

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// signedSubresources are the query parameters that participate in the
// canonicalized resource of the v1 signature.
var signedSubresources = map[string]bool{
	"acl": true, "append": true, "bucketInfo": true, "callback": true,
	"callback-var": true, "comp": true, "cors": true, "delete": true,
	"endTime": true, "lifecycle": true, "live": true, "location": true,
	"logging": true, "objectMeta": true, "partNumber": true,
	"position": true, "referer": true, "response-cache-control": true,
	"response-content-disposition": true, "response-content-encoding": true,
	"response-content-language": true, "response-content-type": true,
	"response-expires": true, "restore": true, "security-token": true,
	"startTime": true, "stat": true, "status": true, "symlink": true,
	"uploadId": true, "uploads": true, "vod": true, "website": true,
	"x-oss-process": true,
}

// Signer computes OSS v1 signatures from a held credential pair.
type Signer struct {
	creds *Credentials
}

// NewSigner binds a signer to credentials.
func NewSigner(creds *Credentials) *Signer {
	return &Signer{creds: creds}
}

// Sign computes the v1 signature for one request. It is a pure function
// of its inputs and the held credentials: identical inputs always yield
// an identical signature. The string to sign is
//
//	VERB \n Content-MD5 \n Content-Type \n Date \n
//	CanonicalizedOSSHeaders CanonicalizedResource
//
// and the signature is base64(HMAC-SHA1(secret, string-to-sign)). date is
// either an HTTP date for header signing or an expiry unix timestamp for
// URL signing.
func (s *Signer) Sign(method, canonicalizedResource string, headers http.Header, date string) (string, error) {
	if date == "" {
		return "", &SigningError{Missing: "Date"}
	}

	var b strings.Builder
	b.WriteString(method)
	b.WriteString("\n")
	b.WriteString(headers.Get("Content-Md5"))
	b.WriteString("\n")
	b.WriteString(headers.Get("Content-Type"))
	b.WriteString("\n")
	b.WriteString(date)
	b.WriteString("\n")
	b.WriteString(canonicalizedOSSHeaders(headers))
	b.WriteString(canonicalizedResource)

	mac := hmac.New(sha1.New, []byte(s.creds.AccessKeySecret()))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Authorize stamps the Date and Authorization headers on req. The signed
// subresources are taken from the request URL; bucket and key name the
// resource as the service sees it, independent of the addressing style.
func (s *Signer) Authorize(req *http.Request, bucket, key string) error {
	date := req.Header.Get("Date")
	if date == "" {
		date = time.Now().UTC().Format(http.TimeFormat)
		req.Header.Set("Date", date)
	}

	resource := canonicalizedResource(bucket, key, req.URL.Query())
	sig, err := s.Sign(req.Method, resource, req.Header, date)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "OSS "+s.creds.AccessKeyID()+":"+sig)
	return nil
}

// PresignParams returns the query parameters of a presigned URL:
// the caller's params plus OSSAccessKeyId, Expires and Signature.
// expires is an absolute unix timestamp.
func (s *Signer) PresignParams(method, bucket, key string, expires int64, headers http.Header, params url.Values) (url.Values, error) {
	if expires <= 0 {
		return nil, &SigningError{Missing: "Expires"}
	}

	signed := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			signed.Add(k, v)
		}
	}

	expiry := strconv.FormatInt(expires, 10)
	resource := canonicalizedResource(bucket, key, signed)
	sig, err := s.Sign(method, resource, headers, expiry)
	if err != nil {
		return nil, err
	}

	signed.Set("OSSAccessKeyId", s.creds.AccessKeyID())
	signed.Set("Expires", expiry)
	signed.Set("Signature", sig)
	return signed, nil
}

// canonicalizedOSSHeaders collects the x-oss-* headers, keys lowercased
// and sorted, one "key:value\n" entry each.
func canonicalizedOSSHeaders(h http.Header) string {
	var keys []string
	values := make(map[string]string)
	for k, vs := range h {
		lk := strings.ToLower(k)
		if !strings.HasPrefix(lk, "x-oss-") {
			continue
		}
		keys = append(keys, lk)
		values[lk] = strings.TrimSpace(strings.Join(vs, ","))
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(":")
		b.WriteString(values[k])
		b.WriteString("\n")
	}
	return b.String()
}

// canonicalizedResource is "/bucket/key" plus the signed subresources in
// sorted order. Parameters without a value appear as a bare key.
func canonicalizedResource(bucket, key string, params url.Values) string {
	var b strings.Builder
	b.WriteString("/")
	if bucket != "" {
		b.WriteString(bucket)
		b.WriteString("/")
	}
	b.WriteString(key)

	var sub []string
	for k := range params {
		if signedSubresources[k] {
			sub = append(sub, k)
		}
	}
	if len(sub) == 0 {
		return b.String()
	}
	sort.Strings(sub)

	for i, k := range sub {
		if i == 0 {
			b.WriteString("?")
		} else {
			b.WriteString("&")
		}
		b.WriteString(k)
		if v := params.Get(k); v != "" {
			b.WriteString("=")
			b.WriteString(v)
		}
	}
	return b.String()
}
