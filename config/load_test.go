// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/netpathio/pacroute/log"
)

const sampleConfig = `
[system]
max_connections = 1024
log_level = "info"
detection_type = "dns"

[[auth_rules]]
remote_pattern = "example.net"
username = "alice"
password_command = "echo secret"

[[pac_rules]]
beacon_host = "office.internal"
pac_url = "http://office.example/proxy.pac"

[[resolvconf_rules]]
resolver_subnet = "10.0.0.0/24"
pac_url = "http://home.example/proxy.pac"
when_match = "logger home"

[[gateway_rules]]
default_route_interface = "en*"
interface_ip_subnet = "192.168.0.0/16"
pac_url = "http://wifi.example/proxy.pac"
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pacroute.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	f, err := Load(log.NopLogger, path)
	if err != nil {
		t.Fatal(err)
	}

	if f.System.MaxConnections != 1024 {
		t.Errorf("got MaxConnections %d, want 1024", f.System.MaxConnections)
	}
	if len(f.AuthRules) != 1 || f.AuthRules[0].Username != "alice" {
		t.Errorf("unexpected auth_rules: %+v", f.AuthRules)
	}
	if len(f.PACRules) != 1 || f.PACRules[0].BeaconHost != "office.internal" {
		t.Errorf("unexpected pac_rules: %+v", f.PACRules)
	}
	if !f.UsesDNSDetection() {
		t.Errorf("expected DNS detection to be active")
	}
}

func TestLoadUnknownDetectionTypeFallsBackToDNS(t *testing.T) {
	path := writeConfig(t, `
[system]
max_connections = 10
detection_type = "bogus"
`)

	f, err := Load(log.NopLogger, path)
	if err != nil {
		t.Fatal(err)
	}
	if !f.UsesDNSDetection() {
		t.Errorf("expected fallback to dns detection, got %q", f.System.DetectionType)
	}
}

func TestLoadMissingRequiredFieldFails(t *testing.T) {
	path := writeConfig(t, `
[[auth_rules]]
username = "alice"
password_command = "echo secret"
`)

	if _, err := Load(log.NopLogger, path); err == nil {
		t.Fatal("expected validation error for missing remote_pattern and max_connections")
	}
}

func TestLoadInvalidPACURLFails(t *testing.T) {
	path := writeConfig(t, `
[system]
max_connections = 10

[[pac_rules]]
beacon_host = "office.internal"
pac_url = "not-a-url"
`)

	if _, err := Load(log.NopLogger, path); err == nil {
		t.Fatal("expected validation error for malformed pac_url")
	}
}

func TestBuildHelpersConvertRules(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	f, err := Load(log.NopLogger, path)
	if err != nil {
		t.Fatal(err)
	}

	if got := f.CredentialRules(); len(got) != 1 || got[0].RemotePattern != "example.net" {
		t.Errorf("unexpected credential rules: %+v", got)
	}
	if got := f.BeaconRules(); len(got) != 1 || got[0].BeaconHost != "office.internal" {
		t.Errorf("unexpected beacon rules: %+v", got)
	}
	if got := f.DetectResolvConfRules(); len(got) != 1 || got[0].ResolverSubnetCIDR != "10.0.0.0/24" {
		t.Errorf("unexpected resolvconf rules: %+v", got)
	}
	if got := f.DetectGatewayRules(); len(got) != 1 || got[0].InterfaceGlob != "en*" {
		t.Errorf("unexpected gateway rules: %+v", got)
	}
}
