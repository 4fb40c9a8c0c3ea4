// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/netpathio/pacroute/log"
)

// Load reads and decodes the TOML document at path, validates it, and
// normalizes an unrecognized detection_type to "dns" with a logged warning.
func Load(logger log.Logger, path string) (*File, error) {
	if logger == nil {
		logger = log.NopLogger
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	switch f.System.DetectionType {
	case "", detectionTypeDNS, detectionTypeRoute:
		if f.System.DetectionType == "" {
			f.System.DetectionType = detectionTypeDNS
		}
	default:
		logger.Errorf("unknown detection_type %q, falling back to %q", f.System.DetectionType, detectionTypeDNS)
		f.System.DetectionType = detectionTypeDNS
	}

	if err := Validate(&f); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}

	return &f, nil
}
