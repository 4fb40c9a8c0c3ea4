// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package dispatch

import (
	"net/http"

	"github.com/netpathio/pacroute/proxyerr"
)

// writeError maps an error's proxyerr.Kind to a client-facing response. This
// replaces the martian-based error responder the teacher used, since the
// failover-aware dispatcher here has no martian RoundTripper to hook into.
// It is only ever called before the connection is hijacked, so a normal
// status line can still be written even on the CONNECT path.
func (s *Server) writeError(w http.ResponseWriter, err error, _ *http.Request) {
	if proxyerr.KindOf(err) == proxyerr.InvalidRequest {
		http.Error(w, "", http.StatusForbidden)
		return
	}
	http.Error(w, "", http.StatusInternalServerError)
}
