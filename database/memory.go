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

package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/superkkt/netstate/document"

	"github.com/pkg/errors"
)

// Memory is a store keeping the documents in the process memory. It is safe
// for concurrent use by multiple goroutines.
type Memory struct {
	mutex sync.Mutex
	docs  map[DocumentID]map[string]interface{}
}

func NewMemory() *Memory {
	return &Memory{
		docs: make(map[DocumentID]map[string]interface{}),
	}
}

func (r *Memory) NewID() DocumentID {
	return newUUID()
}

// Dump returns all the documents sorted by switch name.
func (r *Memory) Dump(ctx context.Context) ([]Document, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	result := make([]Document, 0, len(r.docs))
	for id, tree := range r.docs {
		record, err := decodeRecord(tree)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding document %v", id)
		}
		result = append(result, Document{ID: id, Record: record})
	}
	sortDocuments(result)

	return result, nil
}

// Apply applies every mutation in order. A failed mutation does not stop the
// others; the failures are returned as a *BulkError.
func (r *Memory) Apply(ctx context.Context, mutations []Mutation) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var failed []error
	for _, v := range mutations {
		if err := r.apply(v); err != nil {
			failed = append(failed, fmt.Errorf("%v: %v", v, err))
		}
	}
	if len(failed) > 0 {
		return &BulkError{Errors: failed, Attempted: len(mutations)}
	}

	return nil
}

func (r *Memory) apply(m Mutation) error {
	if m.Op == OpInsert {
		if _, ok := r.docs[m.ID]; ok {
			return errors.New("duplicated document ID")
		}
		tree, err := document.NormalizeMap(m.Value)
		if err != nil {
			return err
		}
		r.docs[m.ID] = tree
		return nil
	}

	tree, ok := r.docs[m.ID]
	if !ok {
		return errors.New("unknown document")
	}

	switch m.Op {
	case OpDelete:
		delete(r.docs, m.ID)
		return nil
	case OpSet:
		return document.Set(tree, m.Path, document.Clone(m.Value))
	case OpUnset:
		return document.Unset(tree, m.Path)
	case OpAppend:
		return document.Append(tree, m.Path, document.Clone(m.Value))
	case OpPull:
		return document.Remove(tree, m.Path)
	default:
		return fmt.Errorf("unexpected mutation operation: %v", m.Op)
	}
}

func (r *Memory) Drop(ctx context.Context) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.docs = make(map[DocumentID]map[string]interface{})
	return nil
}

func (r *Memory) String() string {
	return "memory"
}
