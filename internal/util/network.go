// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// loopbackBlocks contains the loopback ranges treated as local development hosts.
var loopbackBlocks []*net.IPNet

func init() {
	for _, cidr := range []string{"127.0.0.0/8", "::1/128"} {
		_, block, err := net.ParseCIDR(cidr)
		if err == nil {
			loopbackBlocks = append(loopbackBlocks, block)
		}
	}
}

// IsLocalHost reports whether host (a hostname, host:port, or URL) refers to
// the local machine: localhost, *.localhost, or a loopback address.
func IsLocalHost(host string) bool {
	if strings.Contains(host, "://") {
		u, err := url.Parse(host)
		if err != nil {
			return false
		}
		host = u.Host
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(strings.ToLower(host), "[]")
	if host == "" {
		return false
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, block := range loopbackBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the request's remote IP without the port.
// chi's RealIP middleware has already folded X-Forwarded-For into RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
