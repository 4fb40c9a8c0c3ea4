// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/netpathio/pacroute/proxyerr"
)

// SendConnect issues an HTTP CONNECT request for targetAuthority over an
// already-established conn to an upstream proxy, optionally carrying a
// Proxy-Authorization header, and waits for the proxy's response. On a
// non-2xx status the connection is left open for the caller to close; the
// caller must not use it further.
func SendConnect(ctx context.Context, conn net.Conn, targetAuthority, proxyAuthHeader string) error {
	pbw := bufio.NewWriterSize(conn, 1024)
	pbr := bufio.NewReaderSize(conn, 1024)

	req := http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Host: targetAuthority},
		Host:   targetAuthority,
		Header: http.Header{},
	}
	req.Header.Set("User-Agent", "")
	if proxyAuthHeader != "" {
		req.Header.Set("Proxy-Authorization", proxyAuthHeader)
	}

	if err := req.Write(pbw); err != nil {
		return proxyerr.Wrap(proxyerr.TunnelFailed, err)
	}
	if err := pbw.Flush(); err != nil {
		return proxyerr.Wrap(proxyerr.TunnelFailed, err)
	}

	type result struct {
		res *http.Response
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		res, err := http.ReadResponse(pbr, &req) //nolint:bodyclose // caller reads no body on CONNECT responses
		resCh <- result{res, err}
	}()

	select {
	case <-ctx.Done():
		return proxyerr.Wrap(proxyerr.Timeout, ctx.Err())
	case r := <-resCh:
		if r.err != nil {
			return proxyerr.Wrap(proxyerr.TunnelFailed, r.err)
		}
		defer r.res.Body.Close() //nolint:errcheck

		if r.res.StatusCode/100 != 2 {
			b, err := httputil.DumpResponse(r.res, true)
			if err != nil {
				b = []byte(fmt.Sprintf("error dumping response: %s", err))
			}
			return proxyerr.Newf(proxyerr.TunnelFailed, "upstream CONNECT failed status=%d\n\n%s", r.res.StatusCode, string(b))
		}
		return nil
	}
}
