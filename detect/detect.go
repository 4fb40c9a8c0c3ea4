// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package detect observes the host's network context and pushes PAC URL
// changes into a route.Resolver. Three variants share one loop shape:
// compute a signature, evaluate rules top-to-bottom, push the first
// matching rule's PAC URL (or clear it) only when it differs from what
// this detector last pushed.
package detect

import (
	"context"
	"net/url"
	"os/exec"
	"time"

	"github.com/netpathio/pacroute/log"
)

// PACURLSetter is the capability a detector holds on the Resolver. Detectors
// never read back from the Resolver; this is one-way capability injection.
type PACURLSetter interface {
	SetPACURL(u *url.URL)
}

// probeFunc computes the current match: the PAC URL to push (nil clears it),
// and the shell hooks to run given whether a rule matched.
type probeFunc func(ctx context.Context) (pacURL *url.URL, matchCmd string, noMatchCmds []string, err error)

// loop is the common polling detector task. It is not exported: Gateway and
// Beacon each wrap it with their own ticker interval and probe; ResolvConf
// runs its own file-watch loop instead.
type loop struct {
	log      log.Logger
	resolver PACURLSetter
	interval time.Duration
	probe    probeFunc

	lastPushed    *url.URL
	havePushedYet bool
}

func newLoop(logger log.Logger, resolver PACURLSetter, interval time.Duration, probe probeFunc) *loop {
	if logger == nil {
		logger = log.NopLogger
	}
	return &loop{
		log:      logger,
		resolver: resolver,
		interval: interval,
		probe:    probe,
	}
}

// Run ticks the detector until ctx is canceled, firing exactly one tick
// immediately so the initial run reflects the startup context.
func (l *loop) Run(ctx context.Context) error {
	l.tick(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *loop) tick(ctx context.Context) {
	next, matchCmd, noMatchCmds, err := l.probe(ctx)
	if err != nil {
		l.log.Errorf("detector probe failed: %v", err)
		return
	}

	if l.havePushedYet && sameURL(l.lastPushed, next) {
		return
	}

	l.lastPushed = next
	l.havePushedYet = true
	l.resolver.SetPACURL(next)

	if matchCmd != "" {
		runHook(ctx, l.log, matchCmd)
	} else {
		for _, cmd := range noMatchCmds {
			if cmd != "" {
				runHook(ctx, l.log, cmd)
			}
		}
	}
}

func sameURL(a, b *url.URL) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

// runHook spawns a shell command as a change-side-effect. Output is
// discarded; a failure to spawn is logged but never fatal.
func runHook(ctx context.Context, logger log.Logger, command string) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if err := cmd.Start(); err != nil {
		logger.Errorf("spawn detector hook %q: %v", command, err)
		return
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Debugf("detector hook %q exited: %v", command, err)
		}
	}()
}

func parsePACURL(raw string) *url.URL {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return u
}
