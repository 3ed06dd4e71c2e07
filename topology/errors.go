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

package topology

import (
	"fmt"
)

// NotConnectedError means that there is no path between two nodes, including
// the case where a node does not exist.
type NotConnectedError struct {
	Source      string
	Destination string
}

func (r *NotConnectedError) Error() string {
	return fmt.Sprintf("%v is not connected to %v", r.Source, r.Destination)
}

// InvalidNodeError means malformed path query arguments.
type InvalidNodeError struct {
	Source      string
	Destination string
}

func (r *InvalidNodeError) Error() string {
	return fmt.Sprintf("invalid path query: source=%q, destination=%q", r.Source, r.Destination)
}
