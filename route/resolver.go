// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package route

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"

	"github.com/netpathio/pacroute/log"
	"github.com/netpathio/pacroute/pac"
	"github.com/netpathio/pacroute/proxyerr"
)

// Resolver owns the active PAC URL and its script-text cache. It is the sole
// writer of the PAC URL; every other component holds only a read capability
// through ResolveAllRoutes/ResolveRoute.
type Resolver struct {
	log log.Logger

	mu     sync.RWMutex
	pacURL *url.URL

	cache *pacTextCache
}

func New(logger log.Logger) *Resolver {
	if logger == nil {
		logger = log.NopLogger
	}
	return &Resolver{
		log:   logger,
		cache: newPACTextCache(),
	}
}

// SetPACURL replaces the active PAC URL and atomically clears the PAC-text
// cache, even if next equals the previously active URL. This is the sole
// mutator of Resolver state; it is called exclusively by the network
// detectors.
func (r *Resolver) SetPACURL(next *url.URL) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pacURL = next
	r.cache.clear()

	if next == nil {
		r.log.Infof("PAC URL cleared")
	} else {
		r.log.Infof("PAC URL set to %q", next.Redacted())
	}
}

// ResolveRoute returns the first route of ResolveAllRoutes.
func (r *Resolver) ResolveRoute(ctx context.Context, target *url.URL) (Route, error) {
	routes, err := r.ResolveAllRoutes(ctx, target)
	if err != nil {
		return Route{}, err
	}
	if len(routes) == 0 {
		// The evaluator always returns at least [Direct]; this is unreachable
		// in practice and only guards the invariant explicitly.
		return Route{}, proxyerr.New(proxyerr.ResolutionFailed, "no routes")
	}
	return routes[0], nil
}

// ResolveAllRoutes resolves target into an ordered, non-empty list of routes.
// If no PAC URL is active, it returns [Direct] without any I/O.
func (r *Resolver) ResolveAllRoutes(ctx context.Context, target *url.URL) ([]Route, error) {
	pacURL := r.currentPACURL()
	if pacURL == nil {
		return []Route{NewDirect()}, nil
	}

	text, err := r.pacText(ctx, pacURL)
	if err != nil {
		return nil, proxyerr.Wrap(proxyerr.ResolutionFailed, err)
	}

	resolver, err := pac.NewProxyResolver(&pac.ProxyResolverConfig{Script: text}, nil)
	if err != nil {
		return nil, proxyerr.Wrap(proxyerr.ResolutionFailed, fmt.Errorf("compile PAC script: %w", err))
	}

	if target.Hostname() == "" {
		return nil, proxyerr.New(proxyerr.InvalidUri, "target URL has no host")
	}

	result, err := resolver.FindProxyForURL(target, "")
	if err != nil {
		return nil, proxyerr.Wrap(proxyerr.ResolutionFailed, err)
	}

	routes, err := tokensToRoutes(result)
	if err != nil {
		return nil, proxyerr.Wrap(proxyerr.ResolutionFailed, err)
	}

	return routes, nil
}

func (r *Resolver) currentPACURL() *url.URL {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pacURL
}

// CurrentPACURL returns the active PAC URL, or nil if none is set. It is a
// read-only accessor intended for operator diagnostics; it is not used by
// any proxying code path.
func (r *Resolver) CurrentPACURL() *url.URL {
	return r.currentPACURL()
}

// PACText returns the current cached PAC script text, fetching it if
// necessary. It returns ("", nil) if no PAC URL is active.
func (r *Resolver) PACText(ctx context.Context) (string, error) {
	pacURL := r.currentPACURL()
	if pacURL == nil {
		return "", nil
	}
	return r.pacText(ctx, pacURL)
}

func (r *Resolver) pacText(ctx context.Context, pacURL *url.URL) (string, error) {
	key := pacURL.String()
	if text, ok := r.cache.get(key); ok {
		return text, nil
	}

	text, err := fetchPACText(ctx, pacURL)
	if err != nil {
		return "", err
	}

	r.log.Debugf("fetched PAC script from %q (%d bytes)", pacURL.Redacted(), len(text))
	r.cache.add(key, text)
	return text, nil
}

// tokensToRoutes converts a raw FindProxyForURL return value into Routes.
// The directive vocabulary recognized here is deliberately narrower than
// Chromium's Proxies parser: only DIRECT and PROXY host:port are meaningful;
// every other token, and every malformed PROXY entry (including a bare
// "PROXY" with no host), tolerantly falls back to Direct rather than
// failing the whole resolution.
func tokensToRoutes(result string) ([]Route, error) {
	var routes []Route
	for _, item := range strings.Split(result, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		fields := strings.Fields(item)
		switch fields[0] {
		case "DIRECT":
			routes = append(routes, NewDirect())
		case "PROXY":
			if len(fields) < 2 {
				routes = append(routes, NewDirect())
				continue
			}
			host, port, err := net.SplitHostPort(fields[1])
			if err != nil {
				routes = append(routes, NewDirect())
				continue
			}
			routes = append(routes, NewUpstream(&url.URL{
				Scheme: "http",
				Host:   net.JoinHostPort(host, port),
			}))
		default:
			routes = append(routes, NewDirect())
		}
	}

	if len(routes) == 0 {
		return []Route{NewDirect()}, nil
	}
	return routes, nil
}
