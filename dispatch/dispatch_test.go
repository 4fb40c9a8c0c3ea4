// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package dispatch

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/netpathio/pacroute/connector"
	"github.com/netpathio/pacroute/conntrack"
	"github.com/netpathio/pacroute/credential"
	"github.com/netpathio/pacroute/log"
	"github.com/netpathio/pacroute/route"
)

// newDispatcher starts an http.Server running a dispatch.Server and returns
// its listen address; the server is closed by t.Cleanup.
func newDispatcher(t *testing.T, resolver *route.Resolver) string {
	t.Helper()

	srv := NewServer(log.NopLogger, resolver, nil, connector.New(log.NopLogger), conntrack.New(log.NopLogger))
	ln, err := connector.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	httpSrv := &http.Server{Handler: srv}
	go httpSrv.Serve(ln) //nolint:errcheck

	t.Cleanup(func() { httpSrv.Close() }) //nolint:errcheck
	return ln.Addr().String()
}

func pacServer(t *testing.T, script string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(script)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

func originServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"Host": %q}`, r.Host)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func readHTTPLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	return strings.TrimRight(line, "\r\n")
}

func TestDirectForwarding(t *testing.T) {
	origin := originServer(t)
	originHost := strings.TrimPrefix(origin.URL, "http://")

	resolver := route.New(log.NopLogger) // no PAC URL: everything resolves Direct
	dispatcherAddr := newDispatcher(t, resolver)

	conn, err := net.DialTimeout("tcp", dispatcherAddr, 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close() //nolint:errcheck

	fmt.Fprintf(conn, "GET http://%s/headers HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n", originHost, originHost)

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAbsoluteFormForwardingViaUpstream(t *testing.T) {
	origin := originServer(t)
	originHost := strings.TrimPrefix(origin.URL, "http://")

	// Upstream proxy is itself a dispatch.Server configured to always go Direct.
	upstreamResolver := route.New(log.NopLogger)
	upstreamAddr := newDispatcher(t, upstreamResolver)

	pac := pacServer(t, fmt.Sprintf(`function FindProxyForURL(url, host) { return "PROXY %s"; }`, upstreamAddr))
	mainResolver := route.New(log.NopLogger)
	mainResolver.SetPACURL(mustURL(t, pac.URL))
	mainAddr := newDispatcher(t, mainResolver)

	conn, err := net.DialTimeout("tcp", mainAddr, 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close() //nolint:errcheck

	fmt.Fprintf(conn, "GET http://%s/headers HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n", originHost, originHost)

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestConnectTunnelViaUpstream(t *testing.T) {
	origin := originServer(t)
	originHost := strings.TrimPrefix(origin.URL, "http://")

	upstreamResolver := route.New(log.NopLogger)
	upstreamAddr := newDispatcher(t, upstreamResolver)

	pac := pacServer(t, fmt.Sprintf(`function FindProxyForURL(url, host) { return "PROXY %s"; }`, upstreamAddr))
	mainResolver := route.New(log.NopLogger)
	mainResolver.SetPACURL(mustURL(t, pac.URL))
	mainAddr := newDispatcher(t, mainResolver)

	conn, err := net.DialTimeout("tcp", mainAddr, 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close() //nolint:errcheck

	fmt.Fprintf(conn, "CONNECT %s HTTP/1.1\r\nHost: %s\r\n\r\n", originHost, originHost)

	br := bufio.NewReader(conn)
	statusLine := readHTTPLine(t, br)
	if !strings.Contains(statusLine, "200") {
		t.Fatalf("expected 200 for CONNECT, got %q", statusLine)
	}
	// drain the blank line terminating the CONNECT response headers
	readHTTPLine(t, br)

	fmt.Fprintf(conn, "GET /headers HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n", originHost)

	resp, err := http.ReadResponse(br, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from tunnelled request, got %d", resp.StatusCode)
	}
}

func TestBlockedRouteReturns403(t *testing.T) {
	// There is no PAC vocabulary that produces Blocked today; exercise the
	// handler's own short-circuit directly via a resolver double would need
	// an interface seam we don't have. connector's TestDialBlockedShortCircuits
	// covers the Dialer's Blocked short-circuit; the handler's 403 path has no
	// test. Left as a documented gap rather than an invented seam.
	t.Skip("Blocked routes are never produced by the PAC evaluator; see the route.Route doc comment")
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

var _ = credential.Credentials{} // keep import alive for doc-comment-visible symmetry with NewServer's signature
