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

// Package topology builds the graph of switches and hosts from a network
// snapshot and answers the path queries on it.
package topology

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/superkkt/netstate/graph"
	"github.com/superkkt/netstate/network"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var (
	logger = logging.MustGetLogger("topology")

	// Mininet names switch ports as s<switch number>-eth<port number>.
	mininetPortName = regexp.MustCompile(`^s(\d+)-eth\d+$`)
)

// Hop is one hop of a path. Local is the port the traffic leaves through and
// Remote is the port of the next switch or, for a hop between a switch and a
// host, Local is the switch port and Remote is the host ID.
type Hop struct {
	Local  string `json:"local"`
	Remote string `json:"remote"`
}

func (r Hop) String() string {
	return fmt.Sprintf("(%v, %v)", r.Local, r.Remote)
}

// NodePair is an ordered pair of node IDs, i.e., switch names or host IDs.
type NodePair struct {
	From string
	To   string
}

type node string

func (r node) ID() string {
	return string(r)
}

// point is a switch port or the attachment point of a host.
type point struct {
	node node
	name string
	host bool
}

func (r point) ID() string {
	return fmt.Sprintf("%v/%v", r.node, r.name)
}

func (r point) Vertex() graph.Vertex {
	return r.node
}

type edge struct {
	points [2]point
}

func newEdge(p1, p2 point) edge {
	// Same ID regardless of the direction in which the link is discovered.
	if p2.ID() < p1.ID() {
		p1, p2 = p2, p1
	}
	return edge{points: [2]point{p1, p2}}
}

func (r edge) ID() string {
	return fmt.Sprintf("%v-%v", r.points[0].ID(), r.points[1].ID())
}

func (r edge) Points() [2]graph.Point {
	return [2]graph.Point{r.points[0], r.points[1]}
}

// Topology is an immutable graph of a snapshot with its port mapping index.
type Topology struct {
	graph    *graph.Graph
	mappings map[NodePair]Hop
}

// Build creates the topology of snapshot from scratch.
func Build(snapshot *network.Snapshot) *Topology {
	result := &Topology{
		graph:    graph.New(),
		mappings: make(map[NodePair]Hop),
	}
	if snapshot == nil {
		return result
	}

	names := snapshot.Names()
	owners := portOwners(snapshot)
	for _, v := range names {
		result.graph.AddVertex(node(v))
	}

	for _, name := range names {
		record := snapshot.Switches[name]
		for _, local := range sortedKeys(record.PortMappings) {
			remote := record.PortMappings[local]
			peer, err := owners.lookup(snapshot, name, local, remote)
			if err != nil {
				logger.Warningf("skipping a link: switch=%v, local=%v, remote=%v: %v", name, local, remote, err)
				continue
			}
			if _, ok := snapshot.Switches[peer]; !ok {
				logger.Warningf("link to an unknown switch: switch=%v, local=%v, remote=%v", name, local, remote)
				continue
			}
			result.addLink(name, local, peer, remote)
		}

		for _, port := range sortedKeys(record.ConnectedHosts) {
			result.addHost(name, port, record.ConnectedHosts[port])
		}
	}
	nv, ne := result.graph.Len()
	logger.Debugf("topology built: vertexies=%v, edges=%v, mappings=%v", nv, ne, len(result.mappings))

	return result
}

func (r *Topology) addLink(sw1, port1, sw2, port2 string) {
	e := newEdge(point{node: node(sw1), name: port1}, point{node: node(sw2), name: port2})
	if _, err := r.graph.AddEdge(e); err != nil {
		logger.Errorf("failed to add a link: %v", err)
		return
	}
	r.mappings[NodePair{From: sw1, To: sw2}] = Hop{Local: port1, Remote: port2}
	r.mappings[NodePair{From: sw2, To: sw1}] = Hop{Local: port2, Remote: port1}
}

func (r *Topology) addHost(sw, port string, host network.Host) {
	if len(host.ID) == 0 {
		logger.Warningf("host without ID: switch=%v, port=%v, mac=%v", sw, port, host.MAC)
		return
	}
	r.graph.AddVertex(node(host.ID))
	e := newEdge(point{node: node(sw), name: port}, point{node: node(host.ID), name: host.ID, host: true})
	if _, err := r.graph.AddEdge(e); err != nil {
		logger.Errorf("failed to add a host: %v", err)
		return
	}
	// The switch port and the host ID in both directions.
	hop := Hop{Local: port, Remote: host.ID}
	r.mappings[NodePair{From: sw, To: host.ID}] = hop
	r.mappings[NodePair{From: host.ID, To: sw}] = hop
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// owners maps a port name to the switches having a port of that name. Port
// names are only unique per switch on real hardware, e.g., every switch may
// have eth1.
type owners map[string][]string

// portOwners indexes the switches owning each port name.
func portOwners(snapshot *network.Snapshot) owners {
	result := make(owners)
	add := func(port, sw string) {
		for _, v := range result[port] {
			if v == sw {
				return
			}
		}
		result[port] = append(result[port], sw)
	}

	for _, name := range snapshot.Names() {
		record := snapshot.Switches[name]
		for _, p := range record.Ports {
			add(p.Name, name)
		}
		for local := range record.PortMappings {
			add(local, name)
		}
		for local := range record.ConnectedHosts {
			add(local, name)
		}
	}

	return result
}

// lookup returns the switch owning the remote port of the link from the local
// port of sw. A port name shared by several switches is resolved by the switch
// that reports the same link back to sw.
func (r owners) lookup(snapshot *network.Snapshot, sw, local, remote string) (string, error) {
	candidates := r[remote]
	switch len(candidates) {
	case 0:
		// The remote switch may not report the port yet.
		m := mininetPortName.FindStringSubmatch(remote)
		if m == nil {
			return "", errors.New("unknown remote port")
		}
		n, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			return "", errors.New("unknown remote port")
		}
		return network.FormatDPID(n), nil
	case 1:
		return candidates[0], nil
	}

	peers := make([]string, 0)
	for _, v := range candidates {
		if v == sw {
			continue
		}
		if snapshot.Switches[v].PortMappings[remote] == local {
			peers = append(peers, v)
		}
	}
	if len(peers) != 1 {
		return "", fmt.Errorf("ambiguous remote port owned by %v", candidates)
	}

	return peers[0], nil
}

// ShortestPath returns the hops of a shortest path from src to dst, which are
// switch names, in the hex or decimal form, or host IDs. A path from a node to
// itself has no hops.
func (r *Topology) ShortestPath(src, dst string) ([]Hop, error) {
	if len(src) == 0 || len(dst) == 0 {
		return nil, &InvalidNodeError{Source: src, Destination: dst}
	}

	from, to := r.resolve(src), r.resolve(dst)
	path, ok := r.graph.FindPath(from, to)
	if !ok {
		return nil, &NotConnectedError{Source: src, Destination: dst}
	}

	result := make([]Hop, len(path))
	for i, v := range path {
		local := v.Local().(point)
		remote := v.Remote().(point)
		switch {
		case local.host:
			result[i] = Hop{Local: remote.name, Remote: local.name}
		default:
			result[i] = Hop{Local: local.name, Remote: remote.name}
		}
	}

	return result, nil
}

// resolve returns the node ID of id, which may be a switch name in the decimal form.
func (r *Topology) resolve(id string) string {
	if _, ok := r.graph.Vertex(id); ok {
		return id
	}
	if dpid, err := network.NormalizeDPID(id); err == nil {
		return dpid
	}

	return id
}

// PortMapping returns the port tuple of the link from one node to another.
func (r *Topology) PortMapping(from, to string) (Hop, bool) {
	v, ok := r.mappings[NodePair{From: r.resolve(from), To: r.resolve(to)}]
	return v, ok
}

// PortMappings returns a copy of the port mapping index.
func (r *Topology) PortMappings() map[NodePair]Hop {
	result := make(map[NodePair]Hop, len(r.mappings))
	for k, v := range r.mappings {
		result[k] = v
	}

	return result
}

func (r *Topology) String() string {
	return r.graph.String()
}
