// Copyright 2022 the go-oss Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oss

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Version of the module, reported in the default User-Agent.
const Version = "1.0.1"

type Option struct {
	Timeout             time.Duration `json:"timeout"`
	MaxIdleConns        int           `json:"max-idle-conns"`
	MaxIdleConnsPerHost int           `json:"max-idle-conns-per-host"`
	UserAgent           string        `json:"user-agent"`
	AppName             string        `json:"app-name"`
	IsCNAME             bool          `json:"cname"`
	PresignCacheSize    int           `json:"presign-cache-size"`

	HTTPClient      *http.Client         `json:"-"`
	MetricsRegistry *prometheus.Registry `json:"-"`
}

var (
	defaultOption = Option{
		Timeout:             60 * time.Second,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		UserAgent:           defaultUserAgent(),
		PresignCacheSize:    512,
	}
)

func defaultUserAgent() string {
	return fmt.Sprintf("go-oss/%s (%s/%s; %s)", Version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

type OptionFunc func(*Option)

// WithTimeout bounds every request, connection establishment included.
func WithTimeout(timeout time.Duration) OptionFunc {
	return func(o *Option) {
		o.Timeout = timeout
	}
}

// WithCNAME treats the endpoint as a custom domain already mapped to one
// bucket, so request URLs omit the bucket name.
func WithCNAME() OptionFunc {
	return func(o *Option) {
		o.IsCNAME = true
	}
}

func WithUserAgent(agent string) OptionFunc {
	return func(o *Option) {
		o.UserAgent = agent
	}
}

// WithAppName appends an application tag to the User-Agent.
func WithAppName(name string) OptionFunc {
	return func(o *Option) {
		o.AppName = name
	}
}

func WithMaxIdleConns(total, perHost int) OptionFunc {
	return func(o *Option) {
		o.MaxIdleConns = total
		o.MaxIdleConnsPerHost = perHost
	}
}

// WithHTTPClient substitutes the transport wholesale. Pool and timeout
// options are ignored when set.
func WithHTTPClient(client *http.Client) OptionFunc {
	return func(o *Option) {
		o.HTTPClient = client
	}
}

// WithMetrics registers the client's counters on reg.
func WithMetrics(reg *prometheus.Registry) OptionFunc {
	return func(o *Option) {
		o.MetricsRegistry = reg
	}
}

func WithPresignCacheSize(n int) OptionFunc {
	return func(o *Option) {
		o.PresignCacheSize = n
	}
}
