// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package pac

import (
	"net"
	"net/url"
	"strings"
	"testing"
)

func mustQueryURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestFindProxyForURL(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		want    string
		wantErr string
	}{
		{
			name:   "direct",
			script: `function FindProxyForURL(url, host) { return "DIRECT"; }`,
			want:   "DIRECT",
		},
		{
			name:   "single proxy",
			script: `function FindProxyForURL(url, host) { return "PROXY proxy.example.net:8080"; }`,
			want:   "PROXY proxy.example.net:8080",
		},
		{
			name:   "failover list",
			script: `function FindProxyForURL(url, host) { return "PROXY a.example.net:8080; PROXY b.example.net:8080; DIRECT"; }`,
			want:   "PROXY a.example.net:8080; PROXY b.example.net:8080; DIRECT",
		},
		{
			name:   "decision by host",
			script: `function FindProxyForURL(url, host) { if (host == "internal.example.net") { return "DIRECT"; } return "PROXY proxy.example.net:8080"; }`,
			want:   "PROXY proxy.example.net:8080",
		},
		{
			name:    "missing entry point",
			script:  `function NotFindProxyForURL(url, host) { return "DIRECT"; }`,
			wantErr: "missing required function FindProxyForURL or FindProxyForURLEx",
		},
		{
			name: "ambiguous entry point",
			script: `function FindProxyForURL(url, host) { return "DIRECT"; }
				function FindProxyForURLEx(url, host) { return "DIRECT"; }`,
			wantErr: "ambiguous entry point",
		},
		{
			name:    "non-ASCII return value",
			script:  `function FindProxyForURL(url, host) { return "PROXY café.example.net:8080"; }`,
			wantErr: "non-ASCII characters",
		},
		{
			name:    "unexpected return type",
			script:  `function FindProxyForURL(url, host) { return 42; }`,
			wantErr: "unexpected return type",
		},
		{
			name:    "script throws",
			script:  `function FindProxyForURL(url, host) { return undefinedVariable; }`,
			wantErr: "not defined",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pr, err := NewProxyResolver(&ProxyResolverConfig{Script: tc.script}, nil)
			if err != nil {
				if tc.wantErr == "" {
					t.Fatalf("NewProxyResolver: %v", err)
				}
				if !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("NewProxyResolver error = %q, want substring %q", err, tc.wantErr)
				}
				return
			}

			got, err := pr.FindProxyForURL(mustQueryURL(t, "https://internal.example.net/path"), "internal.example.net")
			if tc.wantErr != "" {
				if err == nil {
					t.Fatalf("FindProxyForURL: expected error containing %q, got none", tc.wantErr)
				}
				if !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("FindProxyForURL error = %q, want substring %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindProxyForURL: %v", err)
			}
			if got != tc.want {
				t.Errorf("FindProxyForURL = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFindProxyForURLUsesHostnameFallback(t *testing.T) {
	const script = `function FindProxyForURL(url, host) { return "PROXY " + host + ":80"; }`
	pr, err := NewProxyResolver(&ProxyResolverConfig{Script: script}, nil)
	if err != nil {
		t.Fatal(err)
	}

	got, err := pr.FindProxyForURL(mustQueryURL(t, "https://example.net/path"), "")
	if err != nil {
		t.Fatal(err)
	}
	if want := "PROXY example.net:80"; got != want {
		t.Errorf("FindProxyForURL = %q, want %q", got, want)
	}
}

func TestFindProxyForURLMyIPAddressOverride(t *testing.T) {
	const script = `function FindProxyForURL(url, host) { return "PROXY " + myIpAddress() + ":80"; }`
	pr, err := NewProxyResolver(&ProxyResolverConfig{
		Script:             script,
		testingMyIPAddress: []net.IP{net.ParseIP("172.16.3.4")},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	got, err := pr.FindProxyForURL(mustQueryURL(t, "https://example.net/path"), "")
	if err != nil {
		t.Fatal(err)
	}
	if want := "PROXY 172.16.3.4:80"; got != want {
		t.Errorf("FindProxyForURL = %q, want %q", got, want)
	}
}
