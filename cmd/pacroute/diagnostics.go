// Copyright 2021 The forwarder Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/netpathio/pacroute/conntrack"
	"github.com/netpathio/pacroute/log"
	"github.com/netpathio/pacroute/route"
)

// newDiagnosticsServer builds the optional operator-only introspection
// endpoint: /active-connections lists conntrack's open records, /pac returns
// the currently cached PAC script text. Neither is on the proxying data
// path; it is disabled unless --diagnostics-addr is set.
func newDiagnosticsServer(logger log.Logger, resolver *route.Resolver, tracker *conntrack.Tracker) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/active-connections", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(tracker.Active()); err != nil {
			logger.Errorf("encode active connections: %v", err)
		}
	})

	mux.HandleFunc("/pac", func(w http.ResponseWriter, r *http.Request) {
		text, err := resolver.PACText(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		if text == "" {
			http.Error(w, "no PAC URL is currently active", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/javascript")
		w.Write([]byte(text)) //nolint:errcheck
	})

	return &http.Server{Handler: mux}
}

// runDiagnosticsServer serves srv on addr until ctx is canceled.
func runDiagnosticsServer(ctx context.Context, srv *http.Server, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errc:
		return err
	}
}
