// Copyright 2022 the go-oss Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oss

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Transport owns the HTTP client and its connection pool. One Transport
// is shared by every bucket of a Client and stays usable until Close.
type Transport struct {
	client    *http.Client
	base      *http.Transport
	userAgent string

	mu     sync.Mutex
	closed bool
}

func newTransport(o *Option) *Transport {
	t := &Transport{userAgent: o.UserAgent}
	if o.AppName != "" {
		t.userAgent = t.userAgent + " " + o.AppName
	}

	if o.HTTPClient != nil {
		t.client = o.HTTPClient
		return t
	}

	t.base = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   o.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        o.MaxIdleConns,
		MaxIdleConnsPerHost: o.MaxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		// Bodies arrive identity-encoded so Content-Length can be
		// checked against what was read.
		DisableCompression: true,
	}
	t.client = &http.Client{
		Transport: t.base,
		Timeout:   o.Timeout,
	}
	return t
}

// Do sends one request. Failures to reach the service or to complete
// within the deadline come back as *TransportError; the caller never
// sees a raw url.Error.
func (t *Transport) Do(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClientClosed
	}
	t.mu.Unlock()

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, wrapTransportErr(req, err)
	}
	return resp, nil
}

// Close marks the transport unusable and releases idle connections.
// In-flight requests are left to finish.
func (t *Transport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()

	if t.base != nil {
		t.base.CloseIdleConnections()
	}
}

func wrapTransportErr(req *http.Request, err error) error {
	te := &TransportError{Op: req.Method, URL: req.URL.String(), Err: err}

	var uerr *url.Error
	if errors.As(err, &uerr) {
		te.Err = uerr.Err
		te.timeout = uerr.Timeout()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		te.timeout = true
	}
	return te
}
