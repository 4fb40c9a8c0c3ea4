// Copyright 2021 The forwarder Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

//go:build unix

package main

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// raiseNoFileLimit raises RLIMIT_NOFILE to min(want, hard limit) so the
// process can hold one file descriptor per active connection plus listener
// and detector overhead.
func raiseNoFileLimit(want uint64) error {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlimit); err != nil {
		return fmt.Errorf("get RLIMIT_NOFILE: %w", err)
	}

	if want > rlimit.Max {
		want = rlimit.Max
	}
	if rlimit.Cur >= want {
		return nil
	}

	rlimit.Cur = want
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rlimit); err != nil {
		return fmt.Errorf("set RLIMIT_NOFILE to %d: %w", want, err)
	}
	return nil
}
