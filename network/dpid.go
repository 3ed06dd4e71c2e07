/*
 * Cherry - An OpenFlow Controller
 *
 * Copyright (C) 2015 Samjung Data Service, Inc. All rights reserved.
 * Kitae Kim <superkkt@sds.co.kr>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

package network

import (
	"fmt"
	"strconv"
	"strings"
)

const dpidLength = 16

// FormatDPID returns the canonical 16 hex digits form of a datapath ID.
func FormatDPID(dpid uint64) string {
	return fmt.Sprintf("%016x", dpid)
}

// ParseDPID parses the canonical 16 hex digits form of a datapath ID.
func ParseDPID(s string) (uint64, error) {
	if len(s) != dpidLength {
		return 0, fmt.Errorf("invalid DPID length: %v", s)
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid DPID: %v", s)
	}

	return v, nil
}

// NormalizeDPID accepts either the canonical hex form or a decimal datapath ID
// and returns the canonical hex form.
func NormalizeDPID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) == dpidLength {
		v, err := ParseDPID(strings.ToLower(s))
		if err != nil {
			return "", err
		}
		return FormatDPID(v), nil
	}

	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid DPID: %v", s)
	}

	return FormatDPID(v), nil
}

// HostID returns the identifier of a host attached on the port of a switch. It
// only depends on the attachment point, so the same host keeps the same ID
// regardless of the order in which the controller discovered hosts.
func HostID(dpid string, port uint32) (string, error) {
	v, err := ParseDPID(dpid)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("host-%v-%v", v, port), nil
}
