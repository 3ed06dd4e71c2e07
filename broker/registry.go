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

package broker

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

type run struct {
	// given is the state ID provided to the agent run.
	given string
	// notified is the latest state ID for which a change has been notified.
	notified  string
	timestamp time.Time
}

// registry is a bounded set of agent runs. The least recently used run is
// evicted when the registry is full.
type registry struct {
	cache *lru.Cache
}

func newRegistry(capacity int) *registry {
	c, err := lru.New(capacity)
	if err != nil {
		panic(fmt.Sprintf("failed to init a LRU run registry: %v", err))
	}

	return &registry{cache: c}
}

func (r *registry) Add(id string, stateID string) {
	// Update if the key already exists.
	if evicted := r.cache.Add(id, &run{given: stateID, timestamp: time.Now()}); evicted {
		logger.Warningf("the oldest agent run has been evicted from the registry")
	}
	logger.Debugf("registered an agent run: id=%v, state=%v", id, stateID)
}

func (r *registry) Get(id string) (*run, bool) {
	v, ok := r.cache.Get(id)
	if !ok {
		return nil, false
	}

	return v.(*run), true
}

// Runs returns the IDs of all the registered runs.
func (r *registry) Runs() []string {
	keys := r.cache.Keys()
	result := make([]string, len(keys))
	for i, v := range keys {
		result[i] = v.(string)
	}

	return result
}

func (r *registry) Remove(id string) bool {
	if !r.cache.Remove(id) {
		return false
	}
	logger.Debugf("removed an agent run: id=%v", id)

	return true
}

func (r *registry) Len() int {
	return r.cache.Len()
}
