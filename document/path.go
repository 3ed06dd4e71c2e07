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

// Package document handles the canonical tree form of switch documents and the
// structured paths addressing a value inside them.
package document

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Step is one element of a Path: either a Key of a mapping or an Index of a list.
type Step interface {
	step()
	String() string
}

type Key string

func (r Key) step() {}

func (r Key) String() string {
	return string(r)
}

type Index int

func (r Index) step() {}

func (r Index) String() string {
	return strconv.Itoa(int(r))
}

// Path is an ordered sequence of steps from the root of a tree.
type Path []Step

// Append returns a new path extended by s. The receiver is never modified.
func (r Path) Append(s Step) Path {
	p := make(Path, len(r), len(r)+1)
	copy(p, r)
	return append(p, s)
}

// Head returns the first step as a key, if any.
func (r Path) Head() (Key, bool) {
	if len(r) == 0 {
		return "", false
	}
	k, ok := r[0].(Key)
	return k, ok
}

// Tail returns the path without its first step.
func (r Path) Tail() Path {
	if len(r) == 0 {
		return Path{}
	}
	return r[1:]
}

// Parent returns the path without its last step.
func (r Path) Parent() Path {
	if len(r) == 0 {
		return Path{}
	}
	return r[:len(r)-1]
}

func (r Path) Last() Step {
	if len(r) == 0 {
		return nil
	}
	return r[len(r)-1]
}

// String returns the dotted notation, e.g., connectedHosts.s1-eth1.ipv4.0
func (r Path) String() string {
	s := make([]string, len(r))
	for i, v := range r {
		s[i] = v.String()
	}
	return strings.Join(s, ".")
}

// JSONPath returns the MySQL JSON path expression of this path, e.g., $."ports"[0]."name"
func (r Path) JSONPath() string {
	var buf bytes.Buffer
	buf.WriteString("$")
	for _, v := range r {
		switch s := v.(type) {
		case Key:
			buf.WriteString(`."`)
			buf.WriteString(strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(string(s)))
			buf.WriteString(`"`)
		case Index:
			buf.WriteString(fmt.Sprintf("[%v]", int(s)))
		}
	}

	return buf.String()
}

func (r Path) Equal(p Path) bool {
	if len(r) != len(p) {
		return false
	}
	for i := range r {
		if r[i] != p[i] {
			return false
		}
	}

	return true
}
