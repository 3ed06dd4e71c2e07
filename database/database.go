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

// Package database implements the persisted stores holding one document per
// switch of the latest network snapshot.
package database

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/superkkt/netstate/document"
	"github.com/superkkt/netstate/network"

	"github.com/google/uuid"
	"github.com/op/go-logging"
)

var (
	logger = logging.MustGetLogger("database")
)

// DocumentID is the opaque identifier of a persisted switch document.
type DocumentID string

type Op int

const (
	OpInsert Op = iota
	OpDelete
	OpSet
	OpUnset
	OpAppend
	OpPull
)

func (r Op) String() string {
	switch r {
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	case OpSet:
		return "set"
	case OpUnset:
		return "unset"
	case OpAppend:
		return "append"
	case OpPull:
		return "pull"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// Mutation is one change of a persisted document.
//
//   - OpInsert: Value is the whole document tree. Path is empty.
//   - OpDelete: Path and Value are not used.
//   - OpSet: Value is stored at Path, replacing an existing value.
//   - OpUnset: the mapping key at Path is removed.
//   - OpAppend: Value is appended to the list at Path.
//   - OpPull: the list element at Path, which ends with an index, is removed.
//
// Path is relative to the document root, i.e., it never includes the switch name.
type Mutation struct {
	Op     Op
	ID     DocumentID
	Switch string
	Path   document.Path
	Value  interface{}
}

func (r Mutation) String() string {
	switch r.Op {
	case OpInsert, OpDelete:
		return fmt.Sprintf("%v %v (switch=%v)", r.Op, r.ID, r.Switch)
	case OpUnset, OpPull:
		return fmt.Sprintf("%v %v %v (switch=%v)", r.Op, r.ID, r.Path, r.Switch)
	default:
		return fmt.Sprintf("%v %v %v=%v (switch=%v)", r.Op, r.ID, r.Path, r.Value, r.Switch)
	}
}

func newUUID() DocumentID {
	return DocumentID(uuid.New().String())
}

// Document is a persisted switch record with its identifier.
type Document struct {
	ID     DocumentID
	Record network.SwitchRecord
}

// Index maps a switch name to the identifier of its persisted document.
type Index map[string]DocumentID

// NewIndex builds the identifier index of the dumped documents.
func NewIndex(docs []Document) Index {
	result := make(Index, len(docs))
	for _, v := range docs {
		if prev, ok := result[v.Record.Name]; ok {
			logger.Warningf("multiple documents for a switch: name=%v, ids=%v,%v", v.Record.Name, prev, v.ID)
		}
		result[v.Record.Name] = v.ID
	}

	return result
}

// Records returns the records of docs keyed by switch name.
func Records(docs []Document) map[string]network.SwitchRecord {
	result := make(map[string]network.SwitchRecord, len(docs))
	for _, v := range docs {
		result[v.Record.Name] = v.Record
	}

	return result
}

// BulkError is returned by Apply when some mutations of a batch have failed.
// The other mutations are still applied.
type BulkError struct {
	Errors    []error
	Attempted int
}

func (r *BulkError) Error() string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("%v of %v mutations failed", len(r.Errors), r.Attempted))
	for i, v := range r.Errors {
		if i == 3 {
			buf.WriteString(", ...")
			break
		}
		buf.WriteString(fmt.Sprintf("; %v", v))
	}

	return buf.String()
}

// decodeRecord converts a document tree into a switch record.
func decodeRecord(tree interface{}) (network.SwitchRecord, error) {
	data, err := json.Marshal(tree)
	if err != nil {
		return network.SwitchRecord{}, err
	}
	var record network.SwitchRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return network.SwitchRecord{}, err
	}
	record.Normalize()

	return record, nil
}

func sortDocuments(docs []Document) {
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Record.Name < docs[j].Record.Name
	})
}
