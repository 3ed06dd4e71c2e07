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

// Package broker provides the network state to agent runs and detects when
// the state an agent run is reasoning about has been changed.
package broker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/superkkt/netstate/network"

	"github.com/op/go-logging"
)

var (
	logger = logging.MustGetLogger("broker")

	ErrUnknownRun = errors.New("unknown agent run")
)

const (
	defaultCapacity = 1024
	defaultInterval = 10 * time.Second
)

// Source returns the current network state.
type Source interface {
	NetworkState() (*network.Snapshot, error)
}

// ChangeHandler is called when the network state has been changed after it was
// provided to an agent run.
type ChangeHandler func(runID, given, current string)

type Broker struct {
	source Source

	mutex    sync.Mutex
	registry *registry
}

func New(source Source, capacity int) *Broker {
	if source == nil {
		panic("nil network state source")
	}
	if capacity <= 0 {
		capacity = defaultCapacity
	}

	return &Broker{
		source:   source,
		registry: newRegistry(capacity),
	}
}

// Provide returns the current network state to an agent run and remembers
// the state ID given to it.
func (r *Broker) Provide(runID string) (*network.Snapshot, error) {
	if len(runID) == 0 {
		return nil, errors.New("empty agent run ID")
	}
	snapshot, err := r.source.NetworkState()
	if err != nil {
		return nil, err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.registry.Add(runID, snapshot.ID)
	logger.Infof("provided the network state to an agent run: id=%v, state=%v", runID, snapshot.ID)

	return snapshot, nil
}

// Changed reports whether the current state ID differs from the one given to the agent run.
func (r *Broker) Changed(runID string) (changed bool, given, current string, err error) {
	current, err = r.current()
	if err != nil {
		return false, "", "", err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	v, ok := r.registry.Get(runID)
	if !ok {
		return false, "", "", ErrUnknownRun
	}

	return v.given != current, v.given, current, nil
}

func (r *Broker) current() (string, error) {
	snapshot, err := r.source.NetworkState()
	if err != nil {
		return "", err
	}

	return snapshot.ID, nil
}

// Terminate forgets an agent run.
func (r *Broker) Terminate(runID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.registry.Remove(runID) {
		return ErrUnknownRun
	}
	logger.Infof("terminated an agent run: id=%v", runID)

	return nil
}

// Runs returns the number of registered agent runs.
func (r *Broker) Runs() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.registry.Len()
}

// Run checks every interval whether the network state has been changed for
// each agent run, and calls f once per new state ID. It returns when ctx is canceled.
func (r *Broker) Run(ctx context.Context, interval time.Duration, f ChangeHandler) error {
	if interval <= 0 {
		interval = defaultInterval
	}
	if f == nil {
		f = func(runID, given, current string) {
			logger.Warningf("network state has been changed during an agent run: id=%v, given=%v, current=%v", runID, given, current)
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		// Wait the context cancels or the ticker rasises.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		r.check(f)
	}
}

type change struct {
	runID   string
	given   string
	current string
}

func (r *Broker) check(f ChangeHandler) {
	current, err := r.current()
	if err != nil {
		logger.Debugf("skipping the state check: %v", err)
		return
	}

	r.mutex.Lock()
	changes := make([]change, 0)
	for _, id := range r.registry.Runs() {
		v, ok := r.registry.Get(id)
		if !ok {
			continue
		}
		if v.given == current || v.notified == current {
			continue
		}
		v.notified = current
		changes = append(changes, change{runID: id, given: v.given, current: current})
	}
	r.mutex.Unlock()

	// The handler is called without the lock so that it can use the broker.
	for _, v := range changes {
		f(v.runID, v.given, v.current)
	}
}
