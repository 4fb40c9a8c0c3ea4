// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package route owns the active PAC URL and a bounded PAC-text cache, and
// resolves a target URL into an ordered, non-empty list of Routes.
package route

import (
	"fmt"
	"net/url"
)

// Kind discriminates the tagged union of Route.
type Kind int

const (
	Direct Kind = iota
	Upstream
	Blocked
)

func (k Kind) String() string {
	switch k {
	case Direct:
		return "direct"
	case Upstream:
		return "upstream"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Route is a single entry of a failover list: either a direct connection,
// a connection via an upstream HTTP proxy, or a policy-blocked target.
// Blocked is never produced by the PAC evaluator today; it is wired through
// as a forward-compatibility hook for a future policy layer.
type Route struct {
	Kind     Kind
	ProxyURL *url.URL // set iff Kind == Upstream
	Reason   string   // set iff Kind == Blocked
}

func NewDirect() Route {
	return Route{Kind: Direct}
}

func NewUpstream(proxyURL *url.URL) Route {
	return Route{Kind: Upstream, ProxyURL: proxyURL}
}

func NewBlocked(reason string) Route {
	return Route{Kind: Blocked, Reason: reason}
}

func (r Route) String() string {
	switch r.Kind {
	case Direct:
		return "direct://"
	case Upstream:
		return r.ProxyURL.String()
	case Blocked:
		return fmt.Sprintf("blocked://%s", r.Reason)
	default:
		return "unknown://"
	}
}
