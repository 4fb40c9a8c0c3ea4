// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package dispatch

import (
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/netpathio/pacroute/connector"
	"github.com/netpathio/pacroute/proxyerr"
	"github.com/netpathio/pacroute/route"
)

// handleConnect implements the CONNECT tunnel path: resolve a route list,
// open a stream via the connector (issuing the upstream's own CONNECT when
// the chosen route is an Upstream proxy), reply 200 to the client, and
// splice the two streams.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	targetAuthority := r.Host
	if targetAuthority == "" {
		s.log.Errorf("CONNECT request has no host, dropping connection")
		s.dropConnection(w)
		return
	}

	host, _, err := net.SplitHostPort(targetAuthority)
	if err != nil {
		host = targetAuthority
	}

	routes, err := s.resolver.ResolveAllRoutes(r.Context(), &url.URL{Scheme: "https", Host: host})
	if err != nil {
		s.log.Errorf("resolve routes for %s: %v", targetAuthority, err)
		routes = []route.Route{route.NewDirect()}
	}

	if len(routes) == 1 && routes[0].Kind == route.Blocked {
		recID := s.tracker.Track(http.MethodConnect, targetAuthority, "blocked")
		defer s.tracker.Close(recID)
		http.Error(w, "", http.StatusForbidden)
		return
	}

	recID := s.tracker.Track(http.MethodConnect, targetAuthority, routeScheme(routes))
	defer s.tracker.Close(recID)

	upstream, err := s.dialer.Dial(r.Context(), targetAuthority, routes)
	if err != nil {
		s.log.Errorf("dial %s: %v", targetAuthority, err)
		s.writeError(w, err, r)
		return
	}
	defer upstream.Close() //nolint:errcheck

	if upstream.Route.Kind == route.Upstream {
		creds := s.credentialsFor(upstream.Route)
		var auth string
		if creds != nil {
			auth = creds.Basic()
		}
		if err := connector.SendConnect(r.Context(), upstream.Conn, targetAuthority, auth); err != nil {
			s.log.Errorf("upstream CONNECT to %s via %s: %v", targetAuthority, upstream.Route.ProxyURL.Redacted(), err)
			s.writeError(w, err, r)
			return
		}
	}

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		s.writeError(w, proxyerr.New(proxyerr.Unknown, "connection does not support hijacking"), r)
		return
	}
	client, _, err := hijacker.Hijack()
	if err != nil {
		s.log.Errorf("hijack client connection for %s: %v", targetAuthority, err)
		return
	}
	defer client.Close() //nolint:errcheck

	if _, err := client.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n")); err != nil {
		s.log.Errorf("write CONNECT 200 to client for %s: %v", targetAuthority, err)
		return
	}

	splice(client, upstream.Conn)
}

// dropConnection closes the client connection without writing any HTTP
// response, for malformed requests that don't deserve an answer.
func (s *Server) dropConnection(w http.ResponseWriter) {
	hijacker, ok := w.(http.Hijacker)
	if !ok {
		return
	}
	client, _, err := hijacker.Hijack()
	if err != nil {
		return
	}
	client.Close() //nolint:errcheck
}

// splice relays bytes in both directions until either side closes, then
// waits for both copy goroutines to finish.
func splice(a, b io.ReadWriteCloser) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		io.Copy(a, b) //nolint:errcheck
		closeWrite(a)
	}()
	go func() {
		defer wg.Done()
		io.Copy(b, a) //nolint:errcheck
		closeWrite(b)
	}()

	wg.Wait()
}

func closeWrite(c io.ReadWriteCloser) {
	type closeWriter interface {
		CloseWrite() error
	}
	if cw, ok := c.(closeWriter); ok {
		cw.CloseWrite() //nolint:errcheck
		return
	}
	c.Close() //nolint:errcheck
}

func routeScheme(routes []route.Route) string {
	if len(routes) == 0 {
		return "direct"
	}
	return routes[0].Kind.String()
}
