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

package network

import (
	"context"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var (
	logger = logging.MustGetLogger("network")
)

const defaultConcurrency = 8

// Assembler builds network snapshots from a topology source. It does not keep
// any state between calls.
type Assembler struct {
	source      Source
	concurrency int
}

// NewAssembler returns an assembler querying at most concurrency switches at the same time.
func NewAssembler(source Source, concurrency int) *Assembler {
	if source == nil {
		panic("nil topology source")
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Assembler{
		source:      source,
		concurrency: concurrency,
	}
}

// Assemble retrieves every switch from the source and returns a new snapshot.
// Any retrieval error aborts the whole assembly, so no partial snapshot is returned.
func (r *Assembler) Assemble(ctx context.Context) (*Snapshot, error) {
	switches, err := r.source.Switches(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debugf("found %v switches", len(switches))

	records := make([]SwitchRecord, len(switches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, dpid := range switches {
		i, dpid := i, dpid
		g.Go(func() error {
			v, err := r.Switch(gctx, dpid)
			if err != nil {
				return err
			}
			records[i] = v
			return nil
		})
	}
	// Wait for all the switches before fingerprinting the snapshot.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make(map[string]SwitchRecord, len(records))
	for _, v := range records {
		result[v.Name] = v
	}

	return NewSnapshot(result)
}

// Switch retrieves the current record of a switch.
func (r *Assembler) Switch(ctx context.Context, dpid string) (SwitchRecord, error) {
	ports, err := r.source.Ports(ctx, dpid)
	if err != nil {
		return SwitchRecord{}, err
	}
	mappings, err := r.source.PortMappings(ctx, dpid)
	if err != nil {
		return SwitchRecord{}, err
	}
	hosts, err := r.source.Hosts(ctx, dpid)
	if err != nil {
		return SwitchRecord{}, err
	}
	flows, err := r.source.Flows(ctx, dpid)
	if err != nil {
		return SwitchRecord{}, err
	}
	groups, err := r.source.Groups(ctx, dpid)
	if err != nil {
		return SwitchRecord{}, err
	}

	record := SwitchRecord{
		Name:            dpid,
		Ports:           ports,
		PortMappings:    mappings,
		ConnectedHosts:  hosts,
		InstalledFlows:  make(map[string]Flow, len(flows)),
		InstalledGroups: make(map[string]Group, len(groups)),
	}
	for _, v := range flows {
		key, err := FlowFingerprint(v, dpid)
		if err != nil {
			return SwitchRecord{}, errors.Wrapf(err, "flow of switch %v", dpid)
		}
		if _, ok := record.InstalledFlows[key]; ok {
			logger.Warningf("duplicated flow fingerprint: dpid=%v, fingerprint=%v", dpid, key)
		}
		v.normalize()
		record.InstalledFlows[key] = v
	}
	for _, v := range groups {
		key, err := GroupFingerprint(v, dpid)
		if err != nil {
			return SwitchRecord{}, errors.Wrapf(err, "group of switch %v", dpid)
		}
		v.normalize()
		record.InstalledGroups[key] = v
	}
	record.Normalize()

	return record, nil
}
