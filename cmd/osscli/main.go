// Copyright 2022 the go-oss Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command osscli is a command line client for OSS style object
// storage, with a local in-memory emulator for development.
package main

import "github.com/jerevia/go-oss/cmd"

func main() {
	cmd.Execute()
}
