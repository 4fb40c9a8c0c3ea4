// Copyright 2021 The forwarder Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

//go:build !unix

package main

// raiseNoFileLimit is a no-op outside unix: Windows has no per-process
// RLIMIT_NOFILE to raise.
func raiseNoFileLimit(want uint64) error {
	return nil
}
