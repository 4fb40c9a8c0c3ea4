// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package dispatch

import (
	"bufio"
	"io"
	"net/http"

	"github.com/netpathio/pacroute/proxyerr"
	"github.com/netpathio/pacroute/route"
)

// hopByHopHeaders are stripped before forwarding a request or relaying a
// response, per RFC 7230 §6.1.
var hopByHopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Te", "Trailer", "Transfer-Encoding", "Upgrade",
}

// handleForward implements the non-CONNECT path: an absolute-form request
// is resolved to a route, dialed, optionally credentialed, forwarded
// verbatim, and its response relayed back to the client.
func (s *Server) handleForward(w http.ResponseWriter, r *http.Request) {
	if !r.URL.IsAbs() || r.URL.Host == "" {
		s.writeError(w, proxyerr.New(proxyerr.MissingHost, "request URI is not absolute-form"), r)
		return
	}

	routes, err := s.resolver.ResolveAllRoutes(r.Context(), r.URL)
	if err != nil {
		s.log.Errorf("resolve routes for %s: %v", r.URL, err)
		routes = []route.Route{route.NewDirect()}
	}

	if len(routes) == 1 && routes[0].Kind == route.Blocked {
		recID := s.tracker.Track(r.Method, r.URL.Host, "blocked")
		defer s.tracker.Close(recID)
		http.Error(w, "", http.StatusForbidden)
		return
	}

	recID := s.tracker.Track(r.Method, r.URL.Host, routeScheme(routes))
	defer s.tracker.Close(recID)

	targetAuthority := r.URL.Host
	conn, err := s.dialer.Dial(r.Context(), targetAuthority, routes)
	if err != nil {
		s.log.Errorf("dial %s: %v", targetAuthority, err)
		s.writeError(w, err, r)
		return
	}
	defer conn.Close() //nolint:errcheck

	outbound := buildOutboundRequest(r, conn.Route)
	if creds := s.credentialsFor(conn.Route); creds != nil {
		outbound.Header.Set("Proxy-Authorization", creds.Basic())
	}

	write := outbound.Write
	if conn.Route.Kind == route.Upstream {
		write = outbound.WriteProxy
	}
	if err := write(conn); err != nil {
		s.log.Errorf("write forwarded request to %s: %v", targetAuthority, err)
		s.writeError(w, proxyerr.Wrap(proxyerr.UpstreamError, err), r)
		return
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), outbound)
	if err != nil {
		s.log.Errorf("read response from %s: %v", targetAuthority, err)
		s.writeError(w, proxyerr.Wrap(proxyerr.UpstreamError, err), r)
		return
	}
	defer resp.Body.Close() //nolint:errcheck

	relayResponse(w, resp)
}

// buildOutboundRequest clones r for forwarding. Upstream routes keep the
// absolute-form URI (so the upstream proxy sees "GET http://host/... HTTP/1.1");
// a Direct route strips scheme/host so the origin server sees an origin-form
// request line instead.
func buildOutboundRequest(r *http.Request, rt route.Route) *http.Request {
	out := r.Clone(r.Context())
	for _, h := range hopByHopHeaders {
		out.Header.Del(h)
	}
	out.RequestURI = ""

	if rt.Kind != route.Upstream {
		u := *out.URL
		u.Scheme = ""
		u.Host = ""
		out.URL = &u
	}

	return out
}

func relayResponse(w http.ResponseWriter, resp *http.Response) {
	dst := w.Header()
	for k, vs := range resp.Header {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
	for _, h := range hopByHopHeaders {
		dst.Del(h)
	}

	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body) //nolint:errcheck
}
