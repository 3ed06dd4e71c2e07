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

package updater

import (
	"fmt"

	"github.com/superkkt/netstate/document"
)

// DiffInvariantError means that a change set refers to a switch whose
// document is not known to the store.
type DiffInvariantError struct {
	Switch string
	Path   document.Path
	Reason string
}

func (r *DiffInvariantError) Error() string {
	return fmt.Sprintf("diff invariant violation: switch=%v, path=%v: %v", r.Switch, r.Path, r.Reason)
}

// LifecycleError is a misuse of the scheduler or an unexpected failure inside a poll cycle.
type LifecycleError struct {
	Op     string
	Reason string
}

func (r *LifecycleError) Error() string {
	return fmt.Sprintf("scheduler %v: %v", r.Op, r.Reason)
}
