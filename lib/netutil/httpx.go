// Copyright 2026 The DC/OS Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides the HTTP response helpers shared by the
// bootstrap clients (authority key fetch, Exhibitor status poll). All
// body reads are bounded at MaxResponseSize so a misbehaving local
// service cannot exhaust memory; the endpoints involved return small
// JSON documents.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxResponseSize bounds response body reads: 16 MB. The authority and
// Exhibitor responses are a few kilobytes; the bound only matters when
// something on the node is badly broken.
const MaxResponseSize int64 = 16 << 20

// ReadResponse reads a response body up to MaxResponseSize bytes. Use
// instead of io.ReadAll when reading HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a response body (up to MaxResponseSize bytes)
// and JSON-decodes it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorBody reads an HTTP error response body for inclusion in an error
// message. Read errors are ignored; a partial or empty body is still
// useful diagnostics.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	return string(data)
}
