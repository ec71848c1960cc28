// Copyright 2022 the go-oss Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package oss is a client for Alibaba Cloud OSS style object storage.
//
// A Client holds the endpoint, the credentials and the connection
// pool; Buckets obtained from it carry the object operations. Request
// signing follows the v1 header scheme, addressing defaults to the
// virtual-host style with CNAME and path styles for custom domains and
// raw IP endpoints.
package oss
