// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package dispatch implements the forward-proxy request handler: it asks
// route.Resolver for a failover list, credential.Provider for upstream
// auth, connector.Dialer for a connected stream, and conntrack.Tracker to
// record the connection's lifecycle, for both CONNECT tunnels and plain
// absolute-form HTTP requests.
package dispatch

import (
	"net/http"

	"github.com/netpathio/pacroute/conntrack"
	"github.com/netpathio/pacroute/connector"
	"github.com/netpathio/pacroute/credential"
	"github.com/netpathio/pacroute/log"
	"github.com/netpathio/pacroute/route"
)

// Server is the http.Handler implementing the forward proxy. It holds no
// per-request state between calls; everything it needs is threaded through
// the request context by the standard library's server loop.
type Server struct {
	log      log.Logger
	resolver *route.Resolver
	creds    *credential.Provider
	dialer   *connector.Dialer
	tracker  *conntrack.Tracker
}

func NewServer(logger log.Logger, resolver *route.Resolver, creds *credential.Provider, dialer *connector.Dialer, tracker *conntrack.Tracker) *Server {
	if logger == nil {
		logger = log.NopLogger
	}
	return &Server{
		log:      logger,
		resolver: resolver,
		creds:    creds,
		dialer:   dialer,
		tracker:  tracker,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		s.handleConnect(w, r)
		return
	}
	s.handleForward(w, r)
}

// credentialsFor looks up upstream credentials keyed on the route's proxy
// host, never the target's host. Direct and Blocked routes carry no
// credentials.
func (s *Server) credentialsFor(r route.Route) *credential.Credentials {
	if r.Kind != route.Upstream || s.creds == nil {
		return nil
	}
	return s.creds.GetCredentials(r.ProxyURL.Hostname())
}
