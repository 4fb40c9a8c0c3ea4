// Copyright 2021 The forwarder Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/netpathio/pacroute/config"
	"github.com/netpathio/pacroute/connector"
	"github.com/netpathio/pacroute/conntrack"
	"github.com/netpathio/pacroute/credential"
	"github.com/netpathio/pacroute/detect"
	"github.com/netpathio/pacroute/dispatch"
	flog "github.com/netpathio/pacroute/log"
	"github.com/netpathio/pacroute/log/stdlog"
	"github.com/netpathio/pacroute/route"
	"github.com/netpathio/pacroute/runctx"
)

type runFlags struct {
	configPath      string
	addr            string
	logLevel        string
	diagnosticsAddr string
	validateOnly    bool
}

func runCommand() *cobra.Command {
	var fl runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runE(cmd.Context(), &fl)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&fl.configPath, "config", "c", "", "path to the TOML configuration file (required)")
	fs.StringVarP(&fl.addr, "addr", "l", "127.0.0.1:8888", "HTTP proxy listen address")
	fs.StringVar(&fl.logLevel, "log-level", "", "override the configuration file's system.log_level")
	fs.StringVar(&fl.diagnosticsAddr, "diagnostics-addr", "", "listen address for the operator diagnostics endpoint (disabled if empty)")
	fs.BoolVar(&fl.validateOnly, "validate", false, "load and validate the configuration file, then exit")
	cmd.MarkFlagRequired("config") //nolint:errcheck

	return cmd
}

func runE(ctx context.Context, fl *runFlags) error {
	bootLogger := stdlog.New(flog.DefaultConfig()).Named("boot")

	f, err := config.Load(bootLogger, fl.configPath)
	if err != nil {
		return err
	}
	if fl.validateOnly {
		fmt.Println("configuration is valid")
		return nil
	}

	levelName := f.System.LogLevel
	if fl.logLevel != "" {
		levelName = fl.logLevel
	}
	level, err := flog.ParseLevel(levelName)
	if err != nil {
		return err
	}
	logger := stdlog.New(&flog.Config{Level: level})

	if err := raiseNoFileLimit(f.System.MaxConnections); err != nil {
		logger.Named("boot").Infof("could not raise RLIMIT_NOFILE: %v", err)
	}

	resolver := route.New(logger.Named("route"))

	creds, err := credential.New(ctx, logger.Named("credential"), f.CredentialRules())
	if err != nil {
		return fmt.Errorf("build credential provider: %w", err)
	}

	tracker := conntrack.New(logger.Named("conntrack"))
	dialer := connector.New(logger.Named("connector"))
	server := dispatch.NewServer(logger.Named("dispatch"), resolver, creds, dialer, tracker)

	group := runctx.NewGroup(tracker.Run)

	switch {
	case f.UsesRouteDetection():
		gw := detect.NewGateway(logger.Named("detect.gateway"), resolver, f.DetectGatewayRules())
		group.Add(gw.Run)
	default:
		rc := detect.NewResolvConf(logger.Named("detect.resolvconf"), resolver, f.DetectResolvConfRules())
		group.Add(rc.Run)
	}

	if beaconRules := f.BeaconRules(); len(beaconRules) > 0 {
		beacon := detect.NewBeacon(logger.Named("detect.beacon"), resolver, beaconRules)
		group.Add(beacon.Run)
	}

	ln, err := connector.Listen("tcp", fl.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", fl.addr, err)
	}
	httpServer := &http.Server{Handler: server}
	group.Add(func(ctx context.Context) error {
		return serveUntilDone(ctx, httpServer, ln)
	})

	if fl.diagnosticsAddr != "" {
		diag := newDiagnosticsServer(logger.Named("diagnostics"), resolver, tracker)
		group.Add(func(ctx context.Context) error {
			return runDiagnosticsServer(ctx, diag, fl.diagnosticsAddr)
		})
	}

	logger.Named("boot").Infof("pacroute listening on %s", ln.Addr())
	return group.Run()
}

// serveUntilDone runs srv.Serve(ln) and shuts the server down cleanly when
// ctx is canceled, matching the rest of the process's run-group lifecycle.
func serveUntilDone(ctx context.Context, srv *http.Server, ln *connector.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
