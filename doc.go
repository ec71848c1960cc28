// Copyright 2022 the go-oss Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// This is a repository containing a Go client for OSS style object
// storage, an in-memory emulator for tests, and the osscli command.
//
// Go to https://godoc.org/github.com/jerevia/go-oss/oss for the
// in-depth documentation for the client library.
package lib
