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
	"bytes"
	"encoding/json"
	"fmt"
)

// Number is a port or group number of an OpenFlow field. Ryu renders the
// reserved numbers by their names, e.g., "ANY" for a bucket without a watch
// port, so a Number holds either the value or the name.
type Number struct {
	Value uint32
	// Name is empty unless the number has been given as a reserved name.
	Name string
}

func (r Number) String() string {
	if len(r.Name) > 0 {
		return r.Name
	}

	return fmt.Sprintf("%v", r.Value)
}

func (r Number) MarshalJSON() ([]byte, error) {
	if len(r.Name) > 0 {
		return json.Marshal(r.Name)
	}

	return json.Marshal(r.Value)
}

func (r *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		if len(name) == 0 {
			return fmt.Errorf("empty port or group name")
		}
		*r = Number{Name: name}
		return nil
	}

	var v uint32
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid port or group number: %s", data)
	}
	*r = Number{Value: v}

	return nil
}
