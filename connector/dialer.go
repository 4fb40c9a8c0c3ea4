// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package connector opens the TCP stream a dispatched request travels over,
// trying each candidate route exactly once, in order, within a tight
// per-attempt timeout.
package connector

import (
	"context"
	"net"
	"time"

	"github.com/netpathio/pacroute/log"
	"github.com/netpathio/pacroute/proxyerr"
	"github.com/netpathio/pacroute/route"
)

// attemptTimeout bounds a single TCP connect attempt. This is a deliberate
// latency budget: failing over quickly to a backup route beats paying a
// long TCP SYN retransmit on a misbehaving network.
const attemptTimeout = 200 * time.Millisecond

// Conn is a connected stream tagged with the route that produced it.
type Conn struct {
	net.Conn
	Route route.Route
}

// Dialer opens a TCP stream to the first viable route in an ordered list.
type Dialer struct {
	log   log.Logger
	inner *rawDialer
}

func New(logger log.Logger) *Dialer {
	if logger == nil {
		logger = log.NopLogger
	}
	return &Dialer{
		log:   logger,
		inner: newRawDialer(attemptTimeout),
	}
}

// Dial tries each route in order against targetAuthority (used only for the
// Direct case; Upstream routes connect to the proxy's own host:port). A
// Blocked route short-circuits the whole attempt with a permission-denied
// error: blocked is policy, not a transport failure to fail over from.
func (d *Dialer) Dial(ctx context.Context, targetAuthority string, routes []route.Route) (*Conn, error) {
	var lastErr error

	for _, r := range routes {
		switch r.Kind {
		case route.Blocked:
			return nil, proxyerr.Newf(proxyerr.InvalidRequest, "blocked: %s", r.Reason)

		case route.Direct:
			conn, err := d.dialAddr(ctx, defaultPort(targetAuthority, "80"))
			if err != nil {
				d.log.Debugf("direct dial to %s failed: %v", targetAuthority, err)
				lastErr = err
				continue
			}
			return &Conn{Conn: conn, Route: r}, nil

		case route.Upstream:
			addr := defaultPort(r.ProxyURL.Host, "80")
			conn, err := d.dialAddr(ctx, addr)
			if err != nil {
				d.log.Debugf("upstream dial to %s failed: %v", addr, err)
				lastErr = err
				continue
			}
			return &Conn{Conn: conn, Route: r}, nil

		default:
			lastErr = proxyerr.New(proxyerr.Unknown, "unrecognized route kind")
		}
	}

	if lastErr == nil {
		return nil, proxyerr.New(proxyerr.ConnectionFailed, "no routes to try")
	}
	if ctx.Err() != nil {
		return nil, proxyerr.Wrap(proxyerr.Timeout, lastErr)
	}
	return nil, proxyerr.Wrap(proxyerr.ConnectionFailed, lastErr)
}

func (d *Dialer) dialAddr(ctx context.Context, addr string) (net.Conn, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()
	return d.inner.DialContext(attemptCtx, "tcp", addr)
}

// defaultPort appends port if hostport has none.
func defaultPort(hostport, port string) string {
	if _, _, err := net.SplitHostPort(hostport); err == nil {
		return hostport
	}
	return net.JoinHostPort(hostport, port)
}
