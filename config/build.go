// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"github.com/netpathio/pacroute/credential"
	"github.com/netpathio/pacroute/detect"
)

// CredentialRules converts auth_rules into credential.Provider input.
func (f *File) CredentialRules() []credential.Rule {
	rules := make([]credential.Rule, 0, len(f.AuthRules))
	for _, r := range f.AuthRules {
		rules = append(rules, credential.Rule{
			RemotePattern:   r.RemotePattern,
			Username:        r.Username,
			PasswordCommand: r.PasswordCommand,
		})
	}
	return rules
}

// BeaconRules converts pac_rules into detect.Beacon input. Beacon rules run
// regardless of detection_type: they are an independent, always-on network
// probe, not a DNS/route alternative.
func (f *File) BeaconRules() []detect.BeaconRule {
	rules := make([]detect.BeaconRule, 0, len(f.PACRules))
	for _, r := range f.PACRules {
		rules = append(rules, detect.BeaconRule{
			BeaconHost: r.BeaconHost,
			PACURL:     r.PACURL,
		})
	}
	return rules
}

// DetectResolvConfRules converts resolvconf_rules into detect.ResolvConf input.
func (f *File) DetectResolvConfRules() []detect.ResolvConfRule {
	rules := make([]detect.ResolvConfRule, 0, len(f.ResolvConfRules))
	for _, r := range f.ResolvConfRules {
		rules = append(rules, detect.ResolvConfRule{
			ResolverSubnetCIDR: r.ResolverSubnet,
			PACURL:             r.PACURL,
			WhenMatchCmd:       r.WhenMatch,
			WhenNoMatchCmd:     r.WhenNoMatch,
		})
	}
	return rules
}

// DetectGatewayRules converts gateway_rules into detect.Gateway input.
func (f *File) DetectGatewayRules() []detect.GatewayRule {
	rules := make([]detect.GatewayRule, 0, len(f.GatewayRules))
	for _, r := range f.GatewayRules {
		rules = append(rules, detect.GatewayRule{
			InterfaceGlob:         r.DefaultRouteInterface,
			InterfaceIPSubnetCIDR: r.InterfaceIPSubnet,
			PACURL:                r.PACURL,
			WhenMatchCmd:          r.WhenMatch,
			WhenNoMatchCmd:        r.WhenNoMatch,
		})
	}
	return rules
}

// UsesDNSDetection reports whether the resolv.conf-based detector should run
// (detection_type == "dns", the default).
func (f *File) UsesDNSDetection() bool {
	return f.System.DetectionType == detectionTypeDNS
}

// UsesRouteDetection reports whether the gateway-based detector should run
// (detection_type == "route").
func (f *File) UsesRouteDetection() bool {
	return f.System.DetectionType == detectionTypeRoute
}
