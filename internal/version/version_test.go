// Copyright 2021 The forwarder Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

package version

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	buildCommit = "1223423321234sdf"
	buildTime = "2021-09-21T12:49:39-07:00"
	buildVersion = "v0.0.1"
	version = nil

	got := Get()

	for _, want := range []string{"v0.0.1", "1223423321234sdf", "pacroute"} {
		if !strings.Contains(got.String(), want) {
			t.Errorf("Get().String() = %q, want substring %q", got.String(), want)
		}
	}
}

func TestGetIsMemoised(t *testing.T) {
	version = nil
	first := Get()
	second := Get()
	if first != second {
		t.Error("expected Get to return the same instance once set up")
	}
}
