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

// Package updater keeps the persisted store and the published network state in
// sync with the topology source.
package updater

import (
	"context"
	"time"

	"github.com/superkkt/netstate/database"
	"github.com/superkkt/netstate/diff"
	"github.com/superkkt/netstate/document"
	"github.com/superkkt/netstate/network"

	"github.com/davecgh/go-spew/spew"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var (
	logger = logging.MustGetLogger("updater")
)

type Assembler interface {
	Assemble(ctx context.Context) (*network.Snapshot, error)
}

// Store is the persisted store holding one document per switch.
type Store interface {
	NewID() database.DocumentID
	// Dump returns all the documents.
	Dump(ctx context.Context) ([]database.Document, error)
	// Apply submits the mutations as one batch. Every mutation is attempted
	// even if some of them fail.
	Apply(ctx context.Context, mutations []database.Mutation) error
	// Drop removes all the documents.
	Drop(ctx context.Context) error
}

// Publisher makes a snapshot visible to the readers of the network state.
type Publisher interface {
	Publish(snapshot *network.Snapshot) error
}

type Updater struct {
	assembler Assembler
	store     Store
	publisher Publisher
}

func New(assembler Assembler, store Store, publisher Publisher) *Updater {
	if assembler == nil {
		panic("nil assembler")
	}
	if store == nil {
		panic("nil store")
	}
	if publisher == nil {
		panic("nil publisher")
	}

	return &Updater{
		assembler: assembler,
		store:     store,
		publisher: publisher,
	}
}

// Prime publishes the persisted state so that readers are served before the
// first poll cycle completes.
func (r *Updater) Prime(ctx context.Context) error {
	docs, err := r.store.Dump(ctx)
	if err != nil {
		return errors.Wrap(err, "dumping the store")
	}
	snapshot, err := network.NewSnapshot(database.Records(docs))
	if err != nil {
		return err
	}
	if err := r.publisher.Publish(snapshot); err != nil {
		return err
	}
	switchesGauge.Set(float64(len(snapshot.Switches)))
	logger.Infof("published the persisted state: %v", snapshot)

	return nil
}

// Update executes one poll cycle: it assembles a new snapshot, persists its
// difference from the stored state and then publishes it. The published state
// is left untouched if any step fails.
func (r *Updater) Update(ctx context.Context) (changed bool, err error) {
	start := time.Now()
	defer func() {
		cycleDuration.Set(time.Since(start).Seconds())
	}()

	snapshot, err := r.assembler.Assemble(ctx)
	if err != nil {
		var e *network.RetrievalError
		if errors.As(err, &e) {
			retrievalFailuresTotal.WithLabelValues(e.Resource.String()).Inc()
		}
		return false, err
	}

	docs, err := r.store.Dump(ctx)
	if err != nil {
		return false, errors.Wrap(err, "dumping the store")
	}
	index := database.NewIndex(docs)
	prev, err := document.NormalizeMap(database.Records(docs))
	if err != nil {
		return false, err
	}
	cur, err := snapshot.Tree()
	if err != nil {
		return false, err
	}

	cs := diff.Compare(prev, cur)
	if cs.Empty() {
		logger.Debugf("no changes: state ID=%v", snapshot.ID)
	} else {
		logger.Infof("%v changes found: state ID=%v", cs.Len(), snapshot.ID)
		if logger.IsEnabledFor(logging.DEBUG) {
			logger.Debugf("change set: %v", spew.Sdump(cs))
		}
		if err := r.persist(ctx, cs, cur, index); err != nil {
			return false, err
		}
	}

	if err := r.publisher.Publish(snapshot); err != nil {
		return false, err
	}
	switchesGauge.Set(float64(len(snapshot.Switches)))

	return !cs.Empty(), nil
}

func (r *Updater) persist(ctx context.Context, cs *diff.ChangeSet, cur map[string]interface{}, index database.Index) error {
	mutations, violations := Translate(cs, cur, index, r.store.NewID)
	for _, v := range violations {
		invariantViolationsTotal.Inc()
		logger.Errorf("skipping changes: %v", v)
	}
	if len(mutations) == 0 {
		return nil
	}

	for _, v := range mutations {
		logger.Debugf("mutation: %v", v)
		mutationsTotal.WithLabelValues(v.Op.String()).Inc()
	}
	if err := r.store.Apply(ctx, mutations); err != nil {
		var e *database.BulkError
		if errors.As(err, &e) {
			for _, v := range e.Errors {
				logger.Errorf("failed to apply a mutation: %v", v)
			}
		}
		return errors.Wrap(err, "applying mutations")
	}
	logger.Infof("applied %v mutations", len(mutations))

	return nil
}

// Reset drops all the persisted documents.
func (r *Updater) Reset(ctx context.Context) error {
	logger.Warning("dropping all the persisted documents")
	return r.store.Drop(ctx)
}
