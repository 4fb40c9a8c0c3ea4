// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package route

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// fetchPACText retrieves the PAC script text for u. http/https fetches never
// go through an upstream proxy, so PAC resolution never depends on itself.
func fetchPACText(ctx context.Context, u *url.URL) (string, error) {
	switch u.Scheme {
	case "file":
		return readFile(u)
	case "http", "https":
		return readHTTP(ctx, u)
	default:
		return "", fmt.Errorf("unsupported PAC URL scheme %q, supported schemes are: file, http and https", u.Scheme)
	}
}

func readFile(u *url.URL) (string, error) {
	if u.Host != "" {
		return "", fmt.Errorf("invalid file URL %q, host is not allowed", u.String())
	}
	if u.Path == "" {
		return "", fmt.Errorf("invalid file URL %q, path is empty", u.String())
	}

	b, err := os.ReadFile(u.Path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var pacHTTPClient = &http.Client{ //nolint:gochecknoglobals // deliberately bypasses the environment proxy
	Transport: &http.Transport{
		Proxy: nil,
	},
	Timeout: 10 * time.Second,
}

func readHTTP(ctx context.Context, u *url.URL) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return "", err
	}

	resp, err := pacHTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d fetching PAC script", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(b), nil
}
