// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"
)

var v *validator.Validate

// pacurlValidator accepts http, https, and file URLs with a non-empty host
// (file URLs may have an empty host; only a path is required). pac_url
// values are PAC scripts, not upstream proxies, so unlike a generic
// proxy-URL validator this one does not require an explicit port.
func pacurlValidator(fl validator.FieldLevel) bool {
	raw := fl.Field().String()

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	switch u.Scheme {
	case "http", "https":
		return u.Hostname() != ""
	case "file":
		return u.Path != ""
	default:
		return false
	}
}

func get() *validator.Validate {
	if v == nil {
		v = validator.New()
		v.RegisterValidation("pacurl", pacurlValidator) //nolint:errcheck
	}
	return v
}

// Validate runs struct-tag validation over every section of f, returning
// the first error encountered with enough context to locate the offending
// rule.
func Validate(f *File) error {
	val := get()

	if err := val.Struct(f.System); err != nil {
		return fmt.Errorf("[system]: %w", err)
	}
	for i, r := range f.AuthRules {
		if err := val.Struct(r); err != nil {
			return fmt.Errorf("auth_rules[%d]: %w", i, err)
		}
	}
	for i, r := range f.PACRules {
		if err := val.Struct(r); err != nil {
			return fmt.Errorf("pac_rules[%d]: %w", i, err)
		}
	}
	for i, r := range f.ResolvConfRules {
		if err := val.Struct(r); err != nil {
			return fmt.Errorf("resolvconf_rules[%d]: %w", i, err)
		}
	}
	for i, r := range f.GatewayRules {
		if err := val.Struct(r); err != nil {
			return fmt.Errorf("gateway_rules[%d]: %w", i, err)
		}
	}
	return nil
}
