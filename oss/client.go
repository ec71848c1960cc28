// Copyright 2022 the go-oss Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oss

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// maxErrorBody bounds how much of an error reply is kept for the
// returned ServerError.
const maxErrorBody = 1 << 20

// Client talks to one endpoint with one credential pair. It is safe for
// concurrent use; buckets obtained from it share its connection pool.
type Client struct {
	endpoint  string
	creds     *Credentials
	signer    *Signer
	transport *Transport
	urls      *urlMaker
	opts      Option
	metrics   *Metrics
}

// New builds a client for endpoint. The endpoint may omit the scheme,
// in which case http is assumed.
func New(endpoint string, creds *Credentials, opts ...OptionFunc) (*Client, error) {
	if creds == nil {
		return nil, ErrInvalidCredential
	}

	o := defaultOption
	for _, f := range opts {
		f(&o)
	}

	urls, err := newURLMaker(endpoint, o.IsCNAME)
	if err != nil {
		return nil, err
	}

	c := &Client{
		endpoint:  normalizeEndpoint(endpoint),
		creds:     creds,
		signer:    NewSigner(creds),
		transport: newTransport(&o),
		urls:      urls,
		opts:      o,
	}
	if o.MetricsRegistry != nil {
		c.metrics = NewMetrics(o.MetricsRegistry)
	}
	return c, nil
}

// Bucket binds a bucket name to this client. No request is made; the
// bucket need not exist yet.
func (c *Client) Bucket(name string) *Bucket {
	return newBucket(c, strings.TrimSpace(name))
}

// ListBuckets pages through the account's buckets. Zero maxKeys leaves
// the page size to the service.
func (c *Client) ListBuckets(ctx context.Context, prefix, marker string, maxKeys int) (result *ListBucketsResult, err error) {
	params := url.Values{}
	if prefix != "" {
		params.Set("prefix", prefix)
	}
	if marker != "" {
		params.Set("marker", marker)
	}
	if maxKeys > 0 {
		params.Set("max-keys", strconv.Itoa(maxKeys))
	}

	resp, err := c.do(ctx, "ListBuckets", http.MethodGet, "", "", params, nil, nil)
	if err != nil {
		log.Warnf("list buckets failed: %v", err)
		return nil, err
	}
	defer CheckClose(resp, &err)

	out := &ListBucketsResult{}
	if err := decodeXML(resp, out); err != nil {
		return nil, err
	}
	out.RequestID = resp.RequestID
	return out, nil
}

// Close releases the connection pool. The client cannot be used again.
func (c *Client) Close() {
	c.transport.Close()
}

// do performs one signed request. headers are applied verbatim; the
// caller owns their correctness. Replies outside 2xx are decoded into a
// *ServerError and the body is consumed here.
func (c *Client) do(ctx context.Context, op, method, bucket, key string, params url.Values, headers map[string]string, body io.Reader) (*Response, error) {
	urlStr := c.urls.URL(bucket, key, params)

	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, &ProtocolError{URL: urlStr, Reason: "build request", Err: err}
	}
	if f, ok := body.(*os.File); ok {
		if fi, serr := f.Stat(); serr == nil {
			req.ContentLength = fi.Size()
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if err := c.signer.Authorize(req, bucket, key); err != nil {
		return nil, err
	}

	sent := req.ContentLength
	if sent < 0 {
		sent = 0
	}

	start := time.Now()
	resp, err := c.transport.Do(req)
	if err != nil {
		c.metrics.Observe(op, sent, 0, err, time.Since(start))
		return nil, err
	}

	received := resp.ContentLength
	if received < 0 {
		received = 0
	}

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		serr := newServerError(resp.StatusCode, resp.Header, b)
		c.metrics.Observe(op, sent, received, serr, time.Since(start))
		return nil, serr
	}

	c.metrics.Observe(op, sent, received, nil, time.Since(start))
	return newResponse(resp), nil
}

func decodeXML(r io.Reader, v interface{}) error {
	if err := xml.NewDecoder(r).Decode(v); err != nil {
		return &ProtocolError{Reason: "decode response body", Err: err}
	}
	return nil
}
