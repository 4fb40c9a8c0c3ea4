// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package proxyerr defines the error kinds shared by the route, connector
// and dispatch packages, so that a failure deep in the dialing or
// PAC-evaluation path can be mapped to the right client-facing response
// without the caller needing to know which package produced it.
package proxyerr

import "fmt"

type Kind int

const (
	Unknown Kind = iota
	InvalidUri
	MissingHost
	ConnectionFailed
	TunnelFailed
	ResolutionFailed
	AuthenticationFailed
	InvalidRequest
	UpstreamError
	Timeout
)

func (k Kind) String() string {
	switch k {
	case InvalidUri:
		return "InvalidUri"
	case MissingHost:
		return "MissingHost"
	case ConnectionFailed:
		return "ConnectionFailed"
	case TunnelFailed:
		return "TunnelFailed"
	case ResolutionFailed:
		return "ResolutionFailed"
	case AuthenticationFailed:
		return "AuthenticationFailed"
	case InvalidRequest:
		return "InvalidRequest"
	case UpstreamError:
		return "UpstreamError"
	case Timeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying cause with a Kind that callers at the HTTP edge
// can switch on to pick a status code.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an *Error of the given kind from a message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Err: fmt.Errorf("%s", msg)}
}

// Newf creates an *Error of the given kind from a format string.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches kind to an existing error, unless it is already a *Error.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if as(err, &e) {
		return err
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the Kind of err, or Unknown if err is not (or does not wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if as(err, &e) {
		return e.Kind
	}
	return Unknown
}

func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok { //nolint:errorlint // narrow internal unwrap loop
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
