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

// Package diff structurally compares two canonical document trees.
package diff

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"

	"github.com/superkkt/netstate/document"
)

// ValueChange is a value replaced at Path.
type ValueChange struct {
	Path document.Path
	Old  interface{}
	New  interface{}
}

// ListItem is an element added to or removed from an ordered list. The last
// step of Path is the index of the element.
type ListItem struct {
	Path  document.Path
	Value interface{}
}

// ChangeSet is the categorized difference between two trees keyed by switch
// name. The first step of every path is the switch name, so a path of length
// one addresses a whole document.
type ChangeSet struct {
	ValuesChanged []ValueChange
	// ItemsAdded and ItemsRemoved are whole documents or nested mapping keys.
	ItemsAdded   []document.Path
	ItemsRemoved []document.Path
	// ListItemsAdded is ordered by ascending index and ListItemsRemoved by
	// descending index for each list.
	ListItemsAdded   []ListItem
	ListItemsRemoved []ListItem
}

func (r *ChangeSet) Empty() bool {
	return len(r.ValuesChanged) == 0 && len(r.ItemsAdded) == 0 && len(r.ItemsRemoved) == 0 &&
		len(r.ListItemsAdded) == 0 && len(r.ListItemsRemoved) == 0
}

// Len returns the total number of changes.
func (r *ChangeSet) Len() int {
	return len(r.ValuesChanged) + len(r.ItemsAdded) + len(r.ItemsRemoved) + len(r.ListItemsAdded) + len(r.ListItemsRemoved)
}

func (r *ChangeSet) String() string {
	var buf bytes.Buffer
	for _, v := range r.ItemsRemoved {
		buf.WriteString(fmt.Sprintf("- %v\n", v))
	}
	for _, v := range r.ItemsAdded {
		buf.WriteString(fmt.Sprintf("+ %v\n", v))
	}
	for _, v := range r.ValuesChanged {
		buf.WriteString(fmt.Sprintf("~ %v: %v -> %v\n", v.Path, v.Old, v.New))
	}
	for _, v := range r.ListItemsRemoved {
		buf.WriteString(fmt.Sprintf("- %v: %v\n", v.Path, v.Value))
	}
	for _, v := range r.ListItemsAdded {
		buf.WriteString(fmt.Sprintf("+ %v: %v\n", v.Path, v.Value))
	}

	return buf.String()
}

// Compare returns the changes turning prev into cur. Both trees should be in
// the canonical form made by document.Normalize. A nil prev is same as an
// empty tree, so every document of cur is reported as added.
//
// Mapping keys are compared regardless of their order. Lists are compared by
// position: elements sharing an index are compared recursively and trailing
// elements are reported as list item additions or removals.
func Compare(prev, cur map[string]interface{}) *ChangeSet {
	result := new(ChangeSet)
	compareMap(result, document.Path{}, prev, cur)

	return result
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

func compareMap(cs *ChangeSet, path document.Path, prev, cur map[string]interface{}) {
	for _, k := range sortedKeys(prev) {
		if _, ok := cur[k]; !ok {
			cs.ItemsRemoved = append(cs.ItemsRemoved, path.Append(document.Key(k)))
		}
	}
	for _, k := range sortedKeys(cur) {
		p := path.Append(document.Key(k))
		old, ok := prev[k]
		if !ok {
			cs.ItemsAdded = append(cs.ItemsAdded, p)
			continue
		}
		compareValue(cs, p, old, cur[k])
	}
}

func compareList(cs *ChangeSet, path document.Path, prev, cur []interface{}) {
	common := len(prev)
	if len(cur) < common {
		common = len(cur)
	}
	for i := 0; i < common; i++ {
		compareValue(cs, path.Append(document.Index(i)), prev[i], cur[i])
	}
	// Descending, so that removing an element never shifts another one to be removed.
	for i := len(prev) - 1; i >= common; i-- {
		cs.ListItemsRemoved = append(cs.ListItemsRemoved, ListItem{Path: path.Append(document.Index(i)), Value: prev[i]})
	}
	for i := common; i < len(cur); i++ {
		cs.ListItemsAdded = append(cs.ListItemsAdded, ListItem{Path: path.Append(document.Index(i)), Value: cur[i]})
	}
}

func compareValue(cs *ChangeSet, path document.Path, prev, cur interface{}) {
	switch p := prev.(type) {
	case map[string]interface{}:
		if c, ok := cur.(map[string]interface{}); ok {
			compareMap(cs, path, p, c)
			return
		}
	case []interface{}:
		if c, ok := cur.([]interface{}); ok {
			compareList(cs, path, p, c)
			return
		}
	}

	// Scalars, or a value whose type has been changed.
	if !reflect.DeepEqual(prev, cur) {
		cs.ValuesChanged = append(cs.ValuesChanged, ValueChange{Path: path, Old: prev, New: cur})
	}
}
