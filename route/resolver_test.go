// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package route

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/netpathio/pacroute/log"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestResolverNoPACURLIsDirect(t *testing.T) {
	r := New(log.NopLogger)
	routes, err := r.ResolveAllRoutes(context.Background(), mustParse(t, "http://example.com/"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Route{NewDirect()}, routes); diff != "" {
		t.Errorf("(-want +got)\n%s", diff)
	}
}

func TestResolverFetchesAndCachesPACScript(t *testing.T) {
	var hits int
	srv := httptest.NewUnstartedServer(countingPACHandler(&hits, `function FindProxyForURL(url, host) { return "PROXY 127.0.0.1:19996; DIRECT"; }`))
	srv.Start()
	defer srv.Close()

	r := New(log.NopLogger)
	r.SetPACURL(mustParse(t, srv.URL))

	for i := 0; i < 3; i++ {
		routes, err := r.ResolveAllRoutes(context.Background(), mustParse(t, "http://example.com/"))
		if err != nil {
			t.Fatal(err)
		}
		want := []Route{
			NewUpstream(mustParse(t, "http://127.0.0.1:19996")),
			NewDirect(),
		}
		if diff := cmp.Diff(want, routes); diff != "" {
			t.Errorf("(-want +got)\n%s", diff)
		}
	}

	if hits != 1 {
		t.Errorf("expected exactly 1 fetch due to caching, got %d", hits)
	}
}

func TestResolverSetPACURLClearsCache(t *testing.T) {
	var hits int
	srv := httptest.NewUnstartedServer(countingPACHandler(&hits, `function FindProxyForURL(url, host) { return "DIRECT"; }`))
	srv.Start()
	defer srv.Close()

	r := New(log.NopLogger)
	u := mustParse(t, srv.URL)

	r.SetPACURL(u)
	if _, err := r.ResolveAllRoutes(context.Background(), mustParse(t, "http://example.com/")); err != nil {
		t.Fatal(err)
	}
	r.SetPACURL(u) // same value: still must clear and refetch
	if _, err := r.ResolveAllRoutes(context.Background(), mustParse(t, "http://example.com/")); err != nil {
		t.Fatal(err)
	}

	if hits != 2 {
		t.Errorf("expected 2 fetches after repeated SetPACURL, got %d", hits)
	}
}

func TestTokensToRoutes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Route
	}{
		{"empty", "", []Route{NewDirect()}},
		{"direct", "DIRECT", []Route{NewDirect()}},
		{"proxy no host", "PROXY", []Route{NewDirect()}},
		{"proxy", "PROXY 127.0.0.1:8080", []Route{NewUpstream(mustParse(t, "http://127.0.0.1:8080"))}},
		{"unrecognized token", "SOCKS socks:1080", []Route{NewDirect()}},
		{"mixed", "PROXY a:1; PROXY b:2", []Route{
			NewUpstream(mustParse(t, "http://a:1")),
			NewUpstream(mustParse(t, "http://b:2")),
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tokensToRoutes(tc.input)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("(-want +got)\n%s", diff)
			}
		})
	}
}

func countingPACHandler(hits *int, script string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		*hits++
		w.Write([]byte(script)) //nolint:errcheck
	}
}
