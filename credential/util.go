// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package credential

import (
	"encoding/base64"

	"github.com/cespare/xxhash/v2"
)

func hashString(s string) uint32 {
	return uint32(xxhash.Sum64String(s)) //nolint:gosec // truncation is fine for a hash table bucket index
}

func basicAuthToken(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}
