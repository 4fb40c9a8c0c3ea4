// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package credential maps a remote host to upstream basic-auth credentials.
//
// This intentionally does not reuse the host:port wildcard matcher ("*",
// exact host, exact port, global wildcard) the rest of this codebase uses
// elsewhere for site credentials: the matching rule here is host-suffix
// descent, checking the literal host first and then each successive
// dot-prefixed suffix (a.b.example.net -> .b.example.net -> .example.net ->
// .net), a stricter, DNS-label-aware semantics. The leading dot is kept at
// each step, not stripped, so a rule pattern of ".example.net" matches
// "a.example.net" and every other subdomain of example.net, while a rule
// pattern of "example.net" (no leading dot) only matches that exact host.
// This is a deliberate divergence from the wildcard matcher, not an
// oversight.
package credential

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/elastic/go-freelru"

	"github.com/netpathio/pacroute/log"
)

// Credentials is a resolved username/password pair for a remote host.
type Credentials struct {
	Username string
	Password string
}

// Basic returns the RFC 7617 "Basic" Proxy-Authorization header value.
func (c Credentials) Basic() string {
	return "Basic " + basicAuthToken(c.Username, c.Password)
}

// Rule is a single configured credential rule, prior to password
// materialisation.
type Rule struct {
	RemotePattern   string
	Username        string
	PasswordCommand string
}

// Provider is an immutable, process-lifetime map from host-suffix pattern to
// materialised credentials, with a bounded LRU cache memoising lookups.
type Provider struct {
	log log.Logger

	rules map[string]Credentials // remote_pattern -> credentials, immutable after New

	cacheMu sync.Mutex
	cache   *freelru.LRU[string, *Credentials]
}

const credentialCacheCapacity = 5

// New materialises each rule's password by running PasswordCommand through a
// shell and trims trailing whitespace from its output. An empty materialised
// password is a fatal startup error, per contract.
func New(ctx context.Context, logger log.Logger, rules []Rule) (*Provider, error) {
	if logger == nil {
		logger = log.NopLogger
	}

	m := make(map[string]Credentials, len(rules))
	for _, r := range rules {
		password, err := materialisePassword(ctx, r.PasswordCommand)
		if err != nil {
			return nil, fmt.Errorf("credential rule %q: %w", r.RemotePattern, err)
		}
		if password == "" {
			return nil, fmt.Errorf("credential rule %q: password_command produced an empty password", r.RemotePattern)
		}
		m[r.RemotePattern] = Credentials{Username: r.Username, Password: password}
	}

	cache, err := freelru.New[string, *Credentials](credentialCacheCapacity, hashString)
	if err != nil {
		panic(err)
	}

	return &Provider{
		log:   logger,
		rules: m,
		cache: cache,
	}, nil
}

func materialisePassword(ctx context.Context, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("run password_command: %w", err)
	}
	return strings.TrimRight(string(out), " \t\r\n"), nil
}

// GetCredentials looks up credentials for host, descending through DNS
// label suffixes until a rule matches or the string is exhausted. Results
// are memoised in a small LRU, since rules never change once constructed.
func (p *Provider) GetCredentials(host string) *Credentials {
	if host == "" {
		return nil
	}

	if c, ok := p.cacheGet(host); ok {
		return c
	}

	c := p.lookup(host)
	p.cacheAdd(host, c)
	return c
}

func (p *Provider) lookup(host string) *Credentials {
	for cur := host; cur != ""; {
		if c, ok := p.rules[cur]; ok {
			return &c
		}

		next := stripLeftmostLabel(cur)
		if next == "" || len(next) >= len(cur) {
			break
		}
		cur = next
	}
	return nil
}

// stripLeftmostLabel drops any leading dots, then removes the next label up
// to (but not including) its following dot, so "a.b.example.net" ->
// ".b.example.net" -> ".example.net" -> ".net" -> "". The leading dot of
// the result is preserved, since it is what lets a rule pattern like
// ".example.net" match every subdomain of example.net. It always reduces
// the string length strictly, or returns "", so suffix descent terminates.
func stripLeftmostLabel(host string) string {
	host = strings.TrimLeft(host, ".")
	idx := strings.IndexByte(host, '.')
	if idx == -1 {
		return ""
	}
	return host[idx:]
}

func (p *Provider) cacheGet(host string) (*Credentials, bool) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	return p.cache.Get(host)
}

func (p *Provider) cacheAdd(host string, c *Credentials) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	p.cache.Add(host, c)
}

// ClearCache empties the lookup LRU. Used only by tests and operational
// tooling; rules themselves are never refreshed at runtime.
func (p *Provider) ClearCache() {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	p.cache.Purge()
}
