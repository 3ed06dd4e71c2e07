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

// Package state publishes the latest network snapshot and its topology to the
// concurrent readers.
package state

import (
	"errors"
	"sync/atomic"

	"github.com/superkkt/netstate/network"
	"github.com/superkkt/netstate/topology"

	"github.com/op/go-logging"
)

var (
	logger = logging.MustGetLogger("state")

	ErrNotReady      = errors.New("network state is not ready yet")
	ErrUnknownSwitch = errors.New("unknown switch")
)

// view is a snapshot and the topology built from it. A view is never modified
// once it is published.
type view struct {
	snapshot *network.Snapshot
	topology *topology.Topology
}

// State holds the latest published view. Readers always observe a complete
// view, either the previous one or the new one.
type State struct {
	current atomic.Pointer[view]
}

func New() *State {
	return &State{}
}

// Publish builds the topology of snapshot and then replaces the current view.
func (r *State) Publish(snapshot *network.Snapshot) error {
	if snapshot == nil {
		return errors.New("publishing nil snapshot")
	}

	v := &view{
		snapshot: snapshot,
		topology: topology.Build(snapshot),
	}
	prev := r.current.Swap(v)
	if prev == nil || prev.snapshot.ID != snapshot.ID {
		logger.Infof("new network state published: %v", snapshot)
	}

	return nil
}

func (r *State) load() (*view, error) {
	v := r.current.Load()
	if v == nil {
		return nil, ErrNotReady
	}

	return v, nil
}

// NetworkState returns the current snapshot. Callers must not modify it.
func (r *State) NetworkState() (*network.Snapshot, error) {
	v, err := r.load()
	if err != nil {
		return nil, err
	}

	return v.snapshot, nil
}

// StateID returns the state ID of the current snapshot.
func (r *State) StateID() (string, error) {
	v, err := r.load()
	if err != nil {
		return "", err
	}

	return v.snapshot.ID, nil
}

// Switch returns the current record of a switch whose DPID is given in the hex
// or decimal form.
func (r *State) Switch(id string) (network.SwitchRecord, error) {
	v, err := r.load()
	if err != nil {
		return network.SwitchRecord{}, err
	}
	dpid, err := network.NormalizeDPID(id)
	if err != nil {
		return network.SwitchRecord{}, err
	}
	record, ok := v.snapshot.Switch(dpid)
	if !ok {
		return network.SwitchRecord{}, ErrUnknownSwitch
	}

	return record, nil
}

// PathBetween returns the hops of a shortest path between two switches or hosts.
func (r *State) PathBetween(src, dst string) ([]topology.Hop, error) {
	v, err := r.load()
	if err != nil {
		return nil, err
	}

	return v.topology.ShortestPath(src, dst)
}

// PortMapping returns the port tuple of the link between two adjacent nodes.
func (r *State) PortMapping(from, to string) (topology.Hop, bool, error) {
	v, err := r.load()
	if err != nil {
		return topology.Hop{}, false, err
	}
	hop, ok := v.topology.PortMapping(from, to)

	return hop, ok, nil
}
