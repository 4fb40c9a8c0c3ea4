// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package detect

import (
	"context"
	"net"
	"net/url"
	"time"

	"github.com/netpathio/pacroute/log"
)

// BeaconRule maps a resolvable hostname to a PAC URL. Rules are tried in
// order; the first whose beacon host resolves wins.
type BeaconRule struct {
	BeaconHost string
	PACURL     string
}

const beaconPollInterval = 3 * time.Second

// resolverFunc abstracts hostname resolution so tests can substitute a fake
// without touching a real resolver.
type resolverFunc func(ctx context.Context, host string) bool

// Beacon polls, every 3s, whether a set of candidate hostnames resolve, in
// order, selecting the first rule whose beacon host resolves.
type Beacon struct {
	l *loop
}

func NewBeacon(logger log.Logger, resolver PACURLSetter, rules []BeaconRule) *Beacon {
	return newBeaconWithResolve(logger, resolver, rules, defaultResolves)
}

// newBeaconWithResolve is the full constructor, used directly by tests to
// inject a fake resolverFunc.
func newBeaconWithResolve(logger log.Logger, resolver PACURLSetter, rules []BeaconRule, resolves resolverFunc) *Beacon {
	b := &Beacon{}
	b.l = newLoop(logger, resolver, beaconPollInterval, beaconProbe(rules, resolves))
	return b
}

func (b *Beacon) Run(ctx context.Context) error { return b.l.Run(ctx) }

func beaconProbe(rules []BeaconRule, resolves resolverFunc) probeFunc {
	return func(ctx context.Context) (*url.URL, string, []string, error) {
		for _, rule := range rules {
			if resolves(ctx, rule.BeaconHost) {
				return parsePACURL(rule.PACURL), "", nil, nil
			}
		}
		return nil, "", nil, nil
	}
}

func defaultResolves(ctx context.Context, host string) bool {
	_, err := net.DefaultResolver.LookupHost(ctx, host)
	return err == nil
}
