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

package topology

import (
	"errors"
	"fmt"
	"testing"

	"github.com/superkkt/netstate/network"

	"github.com/google/go-cmp/cmp"
)

func scenario(t *testing.T) *network.Snapshot {
	s, err := network.NewSnapshot(map[string]network.SwitchRecord{
		"0000000000000001": {
			Name:         "0000000000000001",
			PortMappings: map[string]string{"s1-eth2": "s2-eth2"},
			ConnectedHosts: map[string]network.Host{
				"s1-eth1": {ID: "host-1-1", MAC: "00:00:00:00:00:01", IPv4: []string{"10.0.0.1"}},
			},
		},
		"0000000000000002": {
			Name:         "0000000000000002",
			PortMappings: map[string]string{"s2-eth2": "s1-eth2"},
			ConnectedHosts: map[string]network.Host{
				"s2-eth1": {ID: "host-2-1", MAC: "00:00:00:00:00:02", IPv4: []string{"10.0.0.2"}},
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	return s
}

func TestScenarioPath(t *testing.T) {
	topo := Build(scenario(t))

	path, err := topo.ShortestPath("host-1-1", "host-2-1")
	if err != nil {
		t.Fatal(err)
	}
	expected := []Hop{
		{Local: "s1-eth1", Remote: "host-1-1"},
		{Local: "s1-eth2", Remote: "s2-eth2"},
		{Local: "s2-eth1", Remote: "host-2-1"},
	}
	if diff := cmp.Diff(expected, path); diff != "" {
		t.Fatalf("unexpected path: %v", diff)
	}

	_, err = topo.ShortestPath("host-1-1", "host-9-9")
	var e *NotConnectedError
	if !errors.As(err, &e) {
		t.Fatalf("expected not connected error, got=%v", err)
	}
	if e.Source != "host-1-1" || e.Destination != "host-9-9" {
		t.Fatalf("unexpected error: %v", e)
	}
}

func TestPathVariants(t *testing.T) {
	topo := Build(scenario(t))

	src := []struct {
		Src, Dst string
		Expected []Hop
	}{
		{"0000000000000001", "0000000000000002", []Hop{{Local: "s1-eth2", Remote: "s2-eth2"}}},
		// Decimal DPIDs are accepted.
		{"2", "1", []Hop{{Local: "s2-eth2", Remote: "s1-eth2"}}},
		{"0000000000000002", "host-1-1", []Hop{{Local: "s2-eth2", Remote: "s1-eth2"}, {Local: "s1-eth1", Remote: "host-1-1"}}},
		{"host-1-1", "host-1-1", []Hop{}},
	}

	for _, v := range src {
		path, err := topo.ShortestPath(v.Src, v.Dst)
		if err != nil {
			t.Fatalf("src=%v, dst=%v: %v", v.Src, v.Dst, err)
		}
		if diff := cmp.Diff(v.Expected, path); diff != "" {
			t.Fatalf("unexpected path: src=%v, dst=%v: %v", v.Src, v.Dst, diff)
		}
	}
}

func TestInvalidNode(t *testing.T) {
	topo := Build(scenario(t))

	for _, v := range [][2]string{{"", "host-1-1"}, {"host-1-1", ""}} {
		_, err := topo.ShortestPath(v[0], v[1])
		var e *InvalidNodeError
		if !errors.As(err, &e) {
			t.Fatalf("expected invalid node error, got=%v", err)
		}
	}
}

func TestDisconnected(t *testing.T) {
	s, err := network.NewSnapshot(map[string]network.SwitchRecord{
		"0000000000000001": {Name: "0000000000000001"},
		"0000000000000002": {Name: "0000000000000002"},
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = Build(s).ShortestPath("0000000000000001", "0000000000000002")
	var e *NotConnectedError
	if !errors.As(err, &e) {
		t.Fatalf("expected not connected error, got=%v", err)
	}
}

func TestSymmetry(t *testing.T) {
	s, err := network.NewSnapshot(map[string]network.SwitchRecord{
		"0000000000000001": {
			Name:         "0000000000000001",
			Ports:        []network.Port{{PortNo: "00000002", Name: "core-a2"}, {PortNo: "00000003", Name: "core-a3"}},
			PortMappings: map[string]string{"core-a2": "edge-b1", "core-a3": "edge-c1"},
		},
		// Reports only one direction of the link.
		"0000000000000002": {
			Name:  "0000000000000002",
			Ports: []network.Port{{PortNo: "00000001", Name: "edge-b1"}},
		},
		"0000000000000003": {
			Name:         "0000000000000003",
			Ports:        []network.Port{{PortNo: "00000001", Name: "edge-c1"}},
			PortMappings: map[string]string{"edge-c1": "core-a3"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	mappings := Build(s).PortMappings()
	expected := map[NodePair]Hop{
		{From: "0000000000000001", To: "0000000000000002"}: {Local: "core-a2", Remote: "edge-b1"},
		{From: "0000000000000002", To: "0000000000000001"}: {Local: "edge-b1", Remote: "core-a2"},
		{From: "0000000000000001", To: "0000000000000003"}: {Local: "core-a3", Remote: "edge-c1"},
		{From: "0000000000000003", To: "0000000000000001"}: {Local: "edge-c1", Remote: "core-a3"},
	}
	if diff := cmp.Diff(expected, mappings); diff != "" {
		t.Fatalf("unexpected mappings: %v", diff)
	}
	for k, v := range mappings {
		r, ok := mappings[NodePair{From: k.To, To: k.From}]
		if !ok || r.Local != v.Remote || r.Remote != v.Local {
			t.Fatalf("asymmetric mapping: %v=%v, reverse=%v", k, v, r)
		}
	}
}

func TestHostMappings(t *testing.T) {
	topo := Build(scenario(t))

	for _, v := range []NodePair{{From: "0000000000000001", To: "host-1-1"}, {From: "host-1-1", To: "0000000000000001"}} {
		hop, ok := topo.PortMapping(v.From, v.To)
		if !ok {
			t.Fatalf("missing mapping: %v", v)
		}
		if hop != (Hop{Local: "s1-eth1", Remote: "host-1-1"}) {
			t.Fatalf("unexpected mapping: %v=%v", v, hop)
		}
	}
}

func TestUnknownRemotePort(t *testing.T) {
	s, err := network.NewSnapshot(map[string]network.SwitchRecord{
		"0000000000000001": {
			Name:         "0000000000000001",
			PortMappings: map[string]string{"uplink": "nowhere"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if m := Build(s).PortMappings(); len(m) != 0 {
		t.Fatalf("expected no mappings, got=%v", m)
	}
	if m := Build(nil).PortMappings(); len(m) != 0 {
		t.Fatalf("expected no mappings, got=%v", m)
	}
}

func TestSharedPortNames(t *testing.T) {
	ports := func(names ...string) []network.Port {
		result := make([]network.Port, 0, len(names))
		for i, v := range names {
			result = append(result, network.Port{PortNo: fmt.Sprintf("%08x", i+1), Name: v})
		}
		return result
	}
	s, err := network.NewSnapshot(map[string]network.SwitchRecord{
		"0000000000000001": {
			Name:         "0000000000000001",
			Ports:        ports("eth1", "eth2"),
			PortMappings: map[string]string{"eth2": "eth1"},
		},
		"0000000000000002": {
			Name:         "0000000000000002",
			Ports:        ports("eth1", "eth3"),
			PortMappings: map[string]string{"eth1": "eth2", "eth3": "eth1"},
		},
		"0000000000000003": {
			Name:         "0000000000000003",
			Ports:        ports("eth1"),
			PortMappings: map[string]string{"eth1": "eth3"},
		},
		// Nobody reports the link back, and eth1 belongs to three switches.
		"0000000000000004": {
			Name:         "0000000000000004",
			PortMappings: map[string]string{"eth5": "eth1"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	expected := map[NodePair]Hop{
		{From: "0000000000000001", To: "0000000000000002"}: {Local: "eth2", Remote: "eth1"},
		{From: "0000000000000002", To: "0000000000000001"}: {Local: "eth1", Remote: "eth2"},
		{From: "0000000000000002", To: "0000000000000003"}: {Local: "eth3", Remote: "eth1"},
		{From: "0000000000000003", To: "0000000000000002"}: {Local: "eth1", Remote: "eth3"},
	}
	// Every rebuild should resolve the same links.
	for i := 0; i < 10; i++ {
		topo := Build(s)
		if diff := cmp.Diff(expected, topo.PortMappings()); diff != "" {
			t.Fatalf("unexpected mappings: %v", diff)
		}

		path, err := topo.ShortestPath("0000000000000001", "0000000000000003")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]Hop{{Local: "eth2", Remote: "eth1"}, {Local: "eth3", Remote: "eth1"}}, path); diff != "" {
			t.Fatalf("unexpected path: %v", diff)
		}

		_, err = topo.ShortestPath("0000000000000004", "0000000000000001")
		var e *NotConnectedError
		if !errors.As(err, &e) {
			t.Fatalf("expected not connected error, got=%v", err)
		}
	}
}
