// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build linux

package detect

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// defaultRouteInterface returns the name of the interface carrying the
// kernel's default IPv4 route, read from /proc/net/route. The default route
// is the row whose Destination is 0.0.0.0 and whose Flags has RTF_UP (0x1)
// and RTF_GATEWAY (0x2) set.
func defaultRouteInterface() (string, error) {
	f, err := os.Open("/proc/net/route")
	if err != nil {
		return "", fmt.Errorf("open /proc/net/route: %w", err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	scanner.Scan() // header line

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		iface, dest, flagsHex := fields[0], fields[1], fields[3]

		if dest != "00000000" {
			continue
		}
		flags, err := strconv.ParseUint(flagsHex, 16, 32)
		if err != nil {
			continue
		}
		const (
			rtfUp      = 0x1
			rtfGateway = 0x2
		)
		if flags&rtfUp != 0 && flags&rtfGateway != 0 {
			return iface, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan /proc/net/route: %w", err)
	}

	return "", fmt.Errorf("no default route found in /proc/net/route")
}
