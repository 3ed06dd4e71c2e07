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

package document

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// Normalize converts v into its canonical tree form. A tree only consists of
// map[string]interface{}, []interface{}, string, bool, int64, uint64 (only for
// integers above the int64 range), float64 and nil,
// so that two semantically identical values are also reflect.DeepEqual
// regardless of the Go types they were originally decoded into.
func Normalize(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling a document")
	}

	return Parse(data)
}

// Parse decodes a JSON document into its canonical tree form.
func Parse(data []byte) (interface{}, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var tree interface{}
	if err := decoder.Decode(&tree); err != nil {
		return nil, errors.Wrap(err, "unmarshaling a document")
	}

	return convert(tree), nil
}

// NormalizeMap is same as Normalize except that v should be encoded as a JSON object.
func NormalizeMap(v interface{}) (map[string]interface{}, error) {
	tree, err := Normalize(v)
	if err != nil {
		return nil, err
	}
	m, ok := tree.(map[string]interface{})
	if !ok {
		return nil, errors.New("document is not a mapping")
	}

	return m, nil
}

func convert(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, e := range t {
			t[k] = convert(e)
		}
		return t
	case []interface{}:
		for i, e := range t {
			t[i] = convert(e)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return u
		}
		f, err := t.Float64()
		if err != nil {
			// Out of the float64 range.
			return math.Inf(1)
		}
		return f
	default:
		return v
	}
}

// Marshal returns the canonical serialization of v: every mapping is encoded
// with its keys sorted.
func Marshal(v interface{}) ([]byte, error) {
	tree, err := Normalize(v)
	if err != nil {
		return nil, err
	}

	return json.Marshal(tree)
}

// Clone returns a deep copy of a tree.
func Clone(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, e := range t {
			m[k] = Clone(e)
		}
		return m
	case []interface{}:
		l := make([]interface{}, len(t))
		for i, e := range t {
			l[i] = Clone(e)
		}
		return l
	default:
		return v
	}
}

// Get returns the value located at p in the tree.
func Get(tree interface{}, p Path) (interface{}, bool) {
	node := tree
	for _, s := range p {
		switch v := s.(type) {
		case Key:
			m, ok := node.(map[string]interface{})
			if !ok {
				return nil, false
			}
			node, ok = m[string(v)]
			if !ok {
				return nil, false
			}
		case Index:
			l, ok := node.([]interface{})
			if !ok || int(v) < 0 || int(v) >= len(l) {
				return nil, false
			}
			node = l[v]
		default:
			return nil, false
		}
	}

	return node, true
}

// Set stores value at p, replacing an existing value. The parent of p should exist.
// An index equal to the length of the list appends value to it.
func Set(root map[string]interface{}, p Path, value interface{}) error {
	return modify(root, p, func(container interface{}, last Step) (interface{}, error) {
		switch s := last.(type) {
		case Key:
			m, ok := container.(map[string]interface{})
			if !ok {
				return nil, errors.New("setting a key on a non-mapping value")
			}
			m[string(s)] = value
			return m, nil
		case Index:
			l, ok := container.([]interface{})
			if !ok {
				return nil, errors.New("setting an index on a non-list value")
			}
			switch {
			case int(s) >= 0 && int(s) < len(l):
				l[s] = value
				return l, nil
			case int(s) == len(l):
				return append(l, value), nil
			default:
				return nil, errors.Errorf("index out of range: %v", s)
			}
		default:
			return nil, errors.New("unexpected path step")
		}
	})
}

// Unset removes the key at p. Removing a missing key is not an error.
func Unset(root map[string]interface{}, p Path) error {
	return modify(root, p, func(container interface{}, last Step) (interface{}, error) {
		k, ok := last.(Key)
		if !ok {
			return nil, errors.New("unsetting a list element")
		}
		m, ok := container.(map[string]interface{})
		if !ok {
			return nil, errors.New("unsetting a key on a non-mapping value")
		}
		delete(m, string(k))
		return m, nil
	})
}

// Append adds value to the end of the list located at p. A missing list is created.
func Append(root map[string]interface{}, p Path, value interface{}) error {
	return modify(root, p, func(container interface{}, last Step) (interface{}, error) {
		switch s := last.(type) {
		case Key:
			m, ok := container.(map[string]interface{})
			if !ok {
				return nil, errors.New("appending to a key of a non-mapping value")
			}
			v, ok := m[string(s)]
			if !ok {
				m[string(s)] = []interface{}{value}
				return m, nil
			}
			l, ok := v.([]interface{})
			if !ok {
				return nil, errors.Errorf("appending to a non-list value: %v", s)
			}
			m[string(s)] = append(l, value)
			return m, nil
		case Index:
			l, ok := container.([]interface{})
			if !ok || int(s) < 0 || int(s) >= len(l) {
				return nil, errors.Errorf("invalid list index: %v", s)
			}
			e, ok := l[s].([]interface{})
			if !ok {
				return nil, errors.Errorf("appending to a non-list value: %v", s)
			}
			l[s] = append(e, value)
			return l, nil
		default:
			return nil, errors.New("unexpected path step")
		}
	})
}

// Remove deletes the list element addressed by p, which should end with an index.
func Remove(root map[string]interface{}, p Path) error {
	return modify(root, p, func(container interface{}, last Step) (interface{}, error) {
		i, ok := last.(Index)
		if !ok {
			return nil, errors.New("removing a list element without an index")
		}
		l, ok := container.([]interface{})
		if !ok {
			return nil, errors.New("removing an element from a non-list value")
		}
		if int(i) < 0 || int(i) >= len(l) {
			return nil, errors.Errorf("index out of range: %v", i)
		}
		return append(l[:i:i], l[i+1:]...), nil
	})
}

type leafFunc func(container interface{}, last Step) (interface{}, error)

// modify walks down to the parent of p and replaces it with the value returned
// by f. Lists are re-assigned into their parents because append may reallocate them.
func modify(root map[string]interface{}, p Path, f leafFunc) error {
	if len(p) == 0 {
		return errors.New("empty path")
	}
	_, err := walk(root, p, f)
	if err != nil {
		return errors.Wrapf(err, "path=%v", p)
	}

	return nil
}

func walk(node interface{}, p Path, f leafFunc) (interface{}, error) {
	if len(p) == 1 {
		return f(node, p[0])
	}

	switch s := p[0].(type) {
	case Key:
		m, ok := node.(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("not a mapping at %v", s)
		}
		child, ok := m[string(s)]
		if !ok {
			return nil, errors.Errorf("missing key: %v", s)
		}
		v, err := walk(child, p[1:], f)
		if err != nil {
			return nil, err
		}
		m[string(s)] = v
		return m, nil
	case Index:
		l, ok := node.([]interface{})
		if !ok {
			return nil, errors.Errorf("not a list at %v", s)
		}
		if int(s) < 0 || int(s) >= len(l) {
			return nil, errors.Errorf("index out of range: %v", s)
		}
		v, err := walk(l[s], p[1:], f)
		if err != nil {
			return nil, err
		}
		l[s] = v
		return l, nil
	default:
		return nil, errors.New("unexpected path step")
	}
}
