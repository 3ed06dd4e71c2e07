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
	"context"
	"fmt"
)

// Source is a topology source of an SDN controller. Every method is an
// independent remote call. dpid is always the canonical 16 hex digits form.
type Source interface {
	// Switches returns DPIDs of the switches currently known to the controller.
	Switches(ctx context.Context) ([]string, error)
	Ports(ctx context.Context, dpid string) ([]Port, error)
	// PortMappings returns the inter-switch links of the switch as local port name
	// to remote port name.
	PortMappings(ctx context.Context, dpid string) (map[string]string, error)
	// Hosts returns the hosts attached on the switch keyed by local port name.
	Hosts(ctx context.Context, dpid string) (map[string]Host, error)
	Flows(ctx context.Context, dpid string) ([]Flow, error)
	Groups(ctx context.Context, dpid string) ([]Group, error)
}

// Resource is a kind of data retrieved from a topology source.
type Resource int

const (
	ResourceSwitches Resource = iota
	ResourcePorts
	ResourceLinks
	ResourceHosts
	ResourceFlows
	ResourceGroups
)

func (r Resource) String() string {
	switch r {
	case ResourceSwitches:
		return "switch list"
	case ResourcePorts:
		return "ports"
	case ResourceLinks:
		return "links"
	case ResourceHosts:
		return "hosts"
	case ResourceFlows:
		return "flows"
	case ResourceGroups:
		return "groups"
	default:
		return fmt.Sprintf("unknown resource %d", int(r))
	}
}

// RetrievalError is returned when a topology source fails to retrieve a resource.
type RetrievalError struct {
	Resource Resource
	// DPID is empty for the switch list.
	DPID string
	Err  error
}

func (r *RetrievalError) Error() string {
	if r.DPID == "" {
		return fmt.Sprintf("failed to retrieve %v: %v", r.Resource, r.Err)
	}
	return fmt.Sprintf("failed to retrieve %v of switch %v: %v", r.Resource, r.DPID, r.Err)
}

func (r *RetrievalError) Cause() error {
	return r.Err
}

func (r *RetrievalError) Unwrap() error {
	return r.Err
}
