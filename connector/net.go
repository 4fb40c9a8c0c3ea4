// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"
	"net"
	"syscall"
	"time"
)

// rawDialer is the plain TCP dialer every route attempt, direct or
// upstream-proxy, is built on. It enables TCP keep-alive and honors the
// caller's context deadline.
type rawDialer struct {
	nd net.Dialer
}

func newRawDialer(timeout time.Duration) *rawDialer {
	nd := net.Dialer{
		Timeout:   timeout,
		KeepAlive: -1,
		Control: func(_, _ string, c syscall.RawConn) error {
			return c.Control(enableTCPKeepAlive)
		},
	}
	return &rawDialer{nd: nd}
}

func (d *rawDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return d.nd.DialContext(ctx, network, address)
}

// Listener wraps net.Listen to enable TCP keep-alive on every accepted
// connection. Connection lifecycle accounting is conntrack's job, hooked in
// by the dispatcher around each request, not here.
type Listener struct {
	listener net.Listener
}

func Listen(network, address string) (*Listener, error) {
	lc := net.ListenConfig{
		KeepAlive: -1,
		Control: func(_, _ string, c syscall.RawConn) error {
			return c.Control(enableTCPKeepAlive)
		},
	}
	ll, err := lc.Listen(context.Background(), network, address)
	if err != nil {
		return nil, err
	}
	return &Listener{listener: ll}, nil
}

func (l *Listener) Accept() (net.Conn, error) {
	return l.listener.Accept()
}

func (l *Listener) Addr() net.Addr { return l.listener.Addr() }

func (l *Listener) Close() error { return l.listener.Close() }
