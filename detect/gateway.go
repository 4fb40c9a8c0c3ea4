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
	"path/filepath"
	"time"

	"github.com/netpathio/pacroute/log"
)

// GatewayRule matches on the default-route interface's name and, optionally,
// its assigned IPv4 subnet.
type GatewayRule struct {
	InterfaceGlob         string
	InterfaceIPSubnetCIDR string // empty means match on interface name alone
	PACURL                string // empty clears the active PAC URL
	WhenMatchCmd          string
	WhenNoMatchCmd        string
}

const gatewayPollInterval = 5 * time.Second

// Gateway polls the default-route interface and its IPv4 addresses every 5s.
type Gateway struct {
	l *loop
}

// NewGateway constructs a Gateway detector. rules are evaluated top-to-bottom
// on every tick.
func NewGateway(logger log.Logger, resolver PACURLSetter, rules []GatewayRule) *Gateway {
	g := &Gateway{}
	g.l = newLoop(logger, resolver, gatewayPollInterval, gatewayProbe(rules))
	return g
}

func (g *Gateway) Run(ctx context.Context) error { return g.l.Run(ctx) }

func gatewayProbe(rules []GatewayRule) probeFunc {
	return func(_ context.Context) (*url.URL, string, []string, error) {
		ifaceName, err := defaultRouteInterface()
		if err != nil {
			return nil, "", nil, err
		}

		addrs, err := interfaceIPv4Addrs(ifaceName)
		if err != nil {
			return nil, "", nil, err
		}

		pacURL, matchCmd, noMatchCmds := evaluateGatewayRules(rules, ifaceName, addrs)
		return pacURL, matchCmd, noMatchCmds, nil
	}
}

// evaluateGatewayRules is the pure rule-matching core of the Gateway
// detector, factored out so it can be exercised without real interfaces.
func evaluateGatewayRules(rules []GatewayRule, ifaceName string, addrs []net.IP) (*url.URL, string, []string) {
	var noMatchCmds []string
	for _, r := range rules {
		nameMatch, err := filepath.Match(r.InterfaceGlob, ifaceName)
		if err != nil {
			nameMatch = r.InterfaceGlob == ifaceName
		}
		if !nameMatch {
			noMatchCmds = append(noMatchCmds, r.WhenNoMatchCmd)
			continue
		}

		if r.InterfaceIPSubnetCIDR == "" {
			return parsePACURL(r.PACURL), r.WhenMatchCmd, nil
		}

		_, subnet, err := net.ParseCIDR(r.InterfaceIPSubnetCIDR)
		if err != nil {
			noMatchCmds = append(noMatchCmds, r.WhenNoMatchCmd)
			continue
		}

		matched := false
		for _, ip := range addrs {
			if subnet.Contains(ip) {
				matched = true
				break
			}
		}
		if matched {
			return parsePACURL(r.PACURL), r.WhenMatchCmd, nil
		}
		noMatchCmds = append(noMatchCmds, r.WhenNoMatchCmd)
	}

	return nil, "", noMatchCmds
}

func interfaceIPv4Addrs(name string) ([]net.IP, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, err
	}

	var ips []net.IP
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			ips = append(ips, ip4)
		}
	}
	return ips, nil
}
