// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package detect

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/netpathio/pacroute/log"
)

// ResolvConfRule matches on whether the first IPv4 nameserver in
// /etc/resolv.conf falls within a CIDR. IPv6 nameservers are ignored.
type ResolvConfRule struct {
	ResolverSubnetCIDR string
	PACURL             string
	WhenMatchCmd       string
	WhenNoMatchCmd     string
}

const resolvConfDebounce = 1 * time.Second

// ResolvConf watches a resolv.conf-style file (by default /etc/resolv.conf)
// and re-evaluates rules on startup and on every debounced filesystem
// change.
type ResolvConf struct {
	log      log.Logger
	resolver PACURLSetter
	rules    []ResolvConfRule
	path     string

	mu         sync.Mutex
	lastPushed *url.URL
	pushedOnce bool
}

func NewResolvConf(logger log.Logger, resolver PACURLSetter, rules []ResolvConfRule) *ResolvConf {
	return newResolvConf(logger, resolver, rules, "/etc/resolv.conf")
}

// NewResolvConfWithPath is like NewResolvConf but watches an arbitrary path
// instead of /etc/resolv.conf. Exported for tests exercising the watch loop
// without root-owned system files.
func NewResolvConfWithPath(logger log.Logger, resolver PACURLSetter, rules []ResolvConfRule, path string) *ResolvConf {
	return newResolvConf(logger, resolver, rules, path)
}

func newResolvConf(logger log.Logger, resolver PACURLSetter, rules []ResolvConfRule, path string) *ResolvConf {
	if logger == nil {
		logger = log.NopLogger
	}
	return &ResolvConf{
		log:      logger,
		resolver: resolver,
		rules:    rules,
		path:     path,
	}
}

// Run watches r.path and re-evaluates on startup and on every debounced
// write/create event, until ctx is canceled. A watch failure is logged and
// the detector degrades to evaluating once at startup only.
func (r *ResolvConf) Run(ctx context.Context) error {
	r.evaluate(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		r.log.Errorf("resolv.conf watcher unavailable: %v", err)
		<-ctx.Done()
		return nil
	}
	defer watcher.Close() //nolint:errcheck

	dir := filepath.Dir(r.path)
	if err := watcher.Add(dir); err != nil {
		r.log.Errorf("watch %s: %v", dir, err)
		<-ctx.Done()
		return nil
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filepath.Base(r.path) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(resolvConfDebounce)
			} else {
				if !debounce.Stop() {
					<-debounce.C
				}
				debounce.Reset(resolvConfDebounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.log.Errorf("resolv.conf watcher error: %v", err)

		case <-debounceC(debounce):
			debounce = nil
			r.evaluate(ctx)
		}
	}
}

// debounceC returns t.C, or a nil channel (which blocks forever in a select)
// when t is nil.
func debounceC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func (r *ResolvConf) evaluate(ctx context.Context) {
	nameservers, err := readResolvConfNameservers(r.path)
	if err != nil {
		r.log.Errorf("read %s: %v", r.path, err)
		return
	}

	next, matchCmd, noMatchCmds := evaluateResolvConfRules(r.rules, nameservers)

	r.mu.Lock()
	unchanged := r.pushedOnce && sameURL(r.lastPushed, next)
	if !unchanged {
		r.lastPushed = next
		r.pushedOnce = true
	}
	r.mu.Unlock()

	if unchanged {
		return
	}

	r.resolver.SetPACURL(next)
	if matchCmd != "" {
		runHook(ctx, r.log, matchCmd)
	} else {
		for _, cmd := range noMatchCmds {
			if cmd != "" {
				runHook(ctx, r.log, cmd)
			}
		}
	}
}

func evaluateResolvConfRules(rules []ResolvConfRule, nameservers []net.IP) (*url.URL, string, []string) {
	if len(nameservers) == 0 {
		return nil, "", nil
	}
	first := nameservers[0]

	var noMatchCmds []string
	for _, rule := range rules {
		_, subnet, err := net.ParseCIDR(rule.ResolverSubnetCIDR)
		if err != nil {
			noMatchCmds = append(noMatchCmds, rule.WhenNoMatchCmd)
			continue
		}
		if subnet.Contains(first) {
			return parsePACURL(rule.PACURL), rule.WhenMatchCmd, nil
		}
		noMatchCmds = append(noMatchCmds, rule.WhenNoMatchCmd)
	}
	return nil, "", noMatchCmds
}

// readResolvConfNameservers parses "nameserver <ip>" lines, keeping only
// IPv4 addresses in order of appearance.
func readResolvConfNameservers(path string) ([]net.IP, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	var ips []net.IP
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[0] != "nameserver" {
			continue
		}
		ip := net.ParseIP(fields[1])
		if ip == nil {
			continue
		}
		if ip4 := ip.To4(); ip4 != nil {
			ips = append(ips, ip4)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return ips, nil
}
