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
	"github.com/superkkt/netstate/database"
	"github.com/superkkt/netstate/diff"
	"github.com/superkkt/netstate/document"
)

type translator struct {
	current map[string]interface{}
	index   database.Index
	newID   func() database.DocumentID
	// skipped holds the switches whose remaining changes are ignored.
	skipped   map[string]bool
	mutations []database.Mutation
	errors    []error
}

// Translate converts a change set into the store mutations. current is the
// tree of the snapshot the change set leads to, and index is the identifier
// index of the store, which is updated as documents are inserted and deleted.
//
// A change of a switch unknown to index is reported as a *DiffInvariantError
// and the rest of the changes of that switch are skipped.
func Translate(cs *diff.ChangeSet, current map[string]interface{}, index database.Index, newID func() database.DocumentID) ([]database.Mutation, []error) {
	t := &translator{
		current:   current,
		index:     index,
		newID:     newID,
		skipped:   make(map[string]bool),
		mutations: make([]database.Mutation, 0, cs.Len()),
	}

	for _, v := range cs.ItemsRemoved {
		t.removeItem(v)
	}
	for _, v := range cs.ItemsAdded {
		t.addItem(v)
	}
	for _, v := range cs.ValuesChanged {
		t.emit(database.OpSet, v.Path, func(p document.Path) (document.Path, interface{}) { return p, v.New })
	}
	// Removals come first, in the descending index order of the change set.
	for _, v := range cs.ListItemsRemoved {
		t.emit(database.OpPull, v.Path, func(p document.Path) (document.Path, interface{}) { return p, nil })
	}
	for _, v := range cs.ListItemsAdded {
		t.emit(database.OpAppend, v.Path, func(p document.Path) (document.Path, interface{}) { return p.Parent(), v.Value })
	}

	return t.mutations, t.errors
}

func (r *translator) fail(name string, p document.Path, reason string) {
	r.errors = append(r.errors, &DiffInvariantError{Switch: name, Path: p, Reason: reason})
	r.skipped[name] = true
}

// lookup returns the switch name and the document identifier of p.
func (r *translator) lookup(p document.Path) (string, database.DocumentID, bool) {
	k, ok := p.Head()
	if !ok {
		r.errors = append(r.errors, &DiffInvariantError{Path: p, Reason: "path does not start with a switch name"})
		return "", "", false
	}
	name := string(k)
	if r.skipped[name] {
		return "", "", false
	}
	id, ok := r.index[name]
	if !ok {
		r.fail(name, p, "switch is not found in the identifier index")
		return "", "", false
	}

	return name, id, true
}

// emit appends a field mutation of the document containing p. f returns the
// field path relative to the document and the value.
func (r *translator) emit(op database.Op, p document.Path, f func(document.Path) (document.Path, interface{})) {
	name, id, ok := r.lookup(p)
	if !ok {
		return
	}
	if len(p) < 2 {
		r.fail(name, p, "field change without a field path")
		return
	}
	field, value := f(p.Tail())
	r.mutations = append(r.mutations, database.Mutation{Op: op, ID: id, Switch: name, Path: field, Value: value})
}

func (r *translator) removeItem(p document.Path) {
	// Whole document?
	if len(p) == 1 {
		name, id, ok := r.lookup(p)
		if !ok {
			return
		}
		r.mutations = append(r.mutations, database.Mutation{Op: database.OpDelete, ID: id, Switch: name})
		delete(r.index, name)
		return
	}

	r.emit(database.OpUnset, p, func(p document.Path) (document.Path, interface{}) { return p, nil })
}

func (r *translator) addItem(p document.Path) {
	value, ok := document.Get(r.current, p)
	if !ok {
		k, _ := p.Head()
		r.fail(string(k), p, "added item is not found in the current snapshot")
		return
	}

	// Nested key?
	if len(p) > 1 {
		r.emit(database.OpSet, p, func(p document.Path) (document.Path, interface{}) { return p, value })
		return
	}

	k, ok := p.Head()
	if !ok {
		r.errors = append(r.errors, &DiffInvariantError{Path: p, Reason: "path does not start with a switch name"})
		return
	}
	name := string(k)
	if r.skipped[name] {
		return
	}
	if _, ok := r.index[name]; ok {
		r.fail(name, p, "added switch already exists in the identifier index")
		return
	}
	id := r.newID()
	r.mutations = append(r.mutations, database.Mutation{Op: database.OpInsert, ID: id, Switch: name, Value: value})
	// Later mutations of this batch may refer to the new document.
	r.index[name] = id
}
