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
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func newFlow() Flow {
	return Flow{
		Priority:    65535,
		TableID:     0,
		IdleTimeout: 0,
		HardTimeout: 0,
		Match:       map[string]interface{}{"dl_dst": "01:80:c2:00:00:0e", "dl_type": 35020},
		Actions:     []interface{}{"OUTPUT:CONTROLLER"},
		ByteCount:   12120,
		PacketCount: 202,
	}
}

func TestFlowFingerprintStability(t *testing.T) {
	f1 := newFlow()
	f2 := newFlow()
	// Counters and map construction order never affect the fingerprint.
	f2.ByteCount = 99999
	f2.PacketCount = 1
	f2.Match = map[string]interface{}{"dl_type": float64(35020), "dl_dst": "01:80:c2:00:00:0e"}

	h1, err := FlowFingerprint(f1, "0000000000000001")
	if err != nil {
		t.Fatal(err)
	}
	h2, err := FlowFingerprint(f2, "0000000000000001")
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatalf("unstable fingerprint: h1=%v, h2=%v", h1, h2)
	}
	if len(h1) != 32 {
		t.Fatalf("unexpected fingerprint length: %v", len(h1))
	}
}

func TestFlowFingerprintSensitivity(t *testing.T) {
	base, err := FlowFingerprint(newFlow(), "0000000000000001")
	if err != nil {
		t.Fatal(err)
	}

	src := []struct {
		Name   string
		Modify func(*Flow) string
	}{
		{"priority", func(f *Flow) string { f.Priority = 1; return "0000000000000001" }},
		{"table", func(f *Flow) string { f.TableID = 1; return "0000000000000001" }},
		{"match", func(f *Flow) string { f.Match = map[string]interface{}{"in_port": 1}; return "0000000000000001" }},
		{"actions", func(f *Flow) string { f.Actions = []interface{}{"OUTPUT:2"}; return "0000000000000001" }},
		{"switch", func(f *Flow) string { return "0000000000000002" }},
	}

	for _, v := range src {
		f := newFlow()
		dpid := v.Modify(&f)
		h, err := FlowFingerprint(f, dpid)
		if err != nil {
			t.Fatal(err)
		}
		if h == base {
			t.Fatalf("fingerprint is not changed by %v", v.Name)
		}
	}
}

func TestGroupFingerprint(t *testing.T) {
	g := Group{Type: "ALL", GroupID: Number{Value: 1}, Buckets: []Bucket{{Actions: []interface{}{"OUTPUT:1"}}}}
	h1, err := GroupFingerprint(g, "0000000000000001")
	if err != nil {
		t.Fatal(err)
	}
	g.Buckets[0].Actions = []interface{}{"OUTPUT:2"}
	h2, err := GroupFingerprint(g, "0000000000000001")
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Fatal("group fingerprint is not changed by its buckets")
	}
}

func TestNormalizeDPID(t *testing.T) {
	src := []struct {
		Input         string
		Expected      string
		ErrorExpected bool
	}{
		{"1", "0000000000000001", false},
		{"255", "00000000000000ff", false},
		{"00000000000000FF", "00000000000000ff", false},
		{"000000000000000a", "000000000000000a", false},
		{"xyz", "", true},
		{"", "", true},
		{"00000000000000zz", "", true},
	}

	for _, v := range src {
		got, err := NormalizeDPID(v.Input)
		if v.ErrorExpected {
			if err == nil {
				t.Fatalf("expected error for %v, but not occurred", v.Input)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error for %v: %v", v.Input, err)
		}
		if got != v.Expected {
			t.Fatalf("unexpected DPID: expected=%v, got=%v", v.Expected, got)
		}
	}
}

func TestHostID(t *testing.T) {
	id, err := HostID("000000000000000a", 3)
	if err != nil {
		t.Fatal(err)
	}
	if id != "host-10-3" {
		t.Fatalf("unexpected host ID: %v", id)
	}
}

type fakeSource struct {
	mutex    sync.Mutex
	switches []string
	fail     map[string]Resource
	calls    int
}

func (r *fakeSource) call() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.calls++
}

func (r *fakeSource) check(dpid string, res Resource) error {
	r.call()
	if v, ok := r.fail[dpid]; ok && v == res {
		return &RetrievalError{Resource: res, DPID: dpid, Err: errors.New("503 Service Unavailable")}
	}
	return nil
}

func (r *fakeSource) Switches(ctx context.Context) ([]string, error) {
	if err := r.check("", ResourceSwitches); err != nil {
		return nil, err
	}
	return r.switches, nil
}

func (r *fakeSource) Ports(ctx context.Context, dpid string) ([]Port, error) {
	if err := r.check(dpid, ResourcePorts); err != nil {
		return nil, err
	}
	return []Port{{PortNo: "00000001", HWAddr: "ae:b9:44:bc:5d:27", Name: "eth1"}}, nil
}

func (r *fakeSource) PortMappings(ctx context.Context, dpid string) (map[string]string, error) {
	if err := r.check(dpid, ResourceLinks); err != nil {
		return nil, err
	}
	return map[string]string{}, nil
}

func (r *fakeSource) Hosts(ctx context.Context, dpid string) (map[string]Host, error) {
	if err := r.check(dpid, ResourceHosts); err != nil {
		return nil, err
	}
	// IPv6 is nil to check the normalization.
	return map[string]Host{"eth1": {ID: "host-1-1", MAC: "00:00:aa:bb:cc:01", IPv4: []string{"10.0.0.1"}}}, nil
}

func (r *fakeSource) Flows(ctx context.Context, dpid string) ([]Flow, error) {
	if err := r.check(dpid, ResourceFlows); err != nil {
		return nil, err
	}
	return []Flow{newFlow(), {Priority: 0, Actions: []interface{}{"OUTPUT:CONTROLLER"}}}, nil
}

func (r *fakeSource) Groups(ctx context.Context, dpid string) ([]Group, error) {
	if err := r.check(dpid, ResourceGroups); err != nil {
		return nil, err
	}
	return nil, nil
}

func TestAssembleDeterminism(t *testing.T) {
	src := &fakeSource{switches: []string{"0000000000000001", "0000000000000002", "0000000000000003"}}
	a := NewAssembler(src, 2)

	s1, err := a.Assemble(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	s2, err := a.Assemble(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s1.ID != s2.ID {
		t.Fatalf("state IDs are different: s1=%v, s2=%v", s1.ID, s2.ID)
	}
	if len(s1.Switches) != 3 {
		t.Fatalf("unexpected number of switches: %v", len(s1.Switches))
	}

	sw, ok := s1.Switch("0000000000000002")
	if !ok {
		t.Fatal("missing switch 0000000000000002")
	}
	if len(sw.InstalledFlows) != 2 {
		t.Fatalf("unexpected number of flows: %v", len(sw.InstalledFlows))
	}
	if sw.InstalledGroups == nil || len(sw.InstalledGroups) != 0 {
		t.Fatalf("expected empty groups, got=%v", sw.InstalledGroups)
	}
	if sw.ConnectedHosts["eth1"].IPv6 == nil {
		t.Fatal("IPv6 addresses are not normalized")
	}
	for k, v := range sw.InstalledFlows {
		h, err := FlowFingerprint(v, "0000000000000002")
		if err != nil {
			t.Fatal(err)
		}
		if h != k {
			t.Fatalf("flow is stored under a wrong fingerprint: expected=%v, got=%v", h, k)
		}
	}
}

func TestAssembleDifferentContent(t *testing.T) {
	s1, err := NewAssembler(&fakeSource{switches: []string{"0000000000000001"}}, 1).Assemble(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	s2, err := NewAssembler(&fakeSource{switches: []string{"0000000000000002"}}, 1).Assemble(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s1.ID == s2.ID {
		t.Fatal("different snapshots have the same state ID")
	}
}

func TestAssembleRetrievalError(t *testing.T) {
	for _, res := range []Resource{ResourcePorts, ResourceLinks, ResourceHosts, ResourceFlows, ResourceGroups} {
		src := &fakeSource{
			switches: []string{"0000000000000001", "0000000000000002"},
			fail:     map[string]Resource{"0000000000000002": res},
		}
		s, err := NewAssembler(src, 1).Assemble(context.Background())
		if err == nil {
			t.Fatalf("expected error for %v, but not occurred", res)
		}
		if s != nil {
			t.Fatalf("partial snapshot is returned for %v", res)
		}
		var e *RetrievalError
		if !errors.As(err, &e) {
			t.Fatalf("unexpected error type: %T", err)
		}
		if e.Resource != res || e.DPID != "0000000000000002" {
			t.Fatalf("unexpected retrieval error: %v", e)
		}
	}

	src := &fakeSource{fail: map[string]Resource{"": ResourceSwitches}}
	if _, err := NewAssembler(src, 1).Assemble(context.Background()); err == nil {
		t.Fatal("expected switch list error, but not occurred")
	} else if fmt.Sprint(err) != "failed to retrieve switch list: 503 Service Unavailable" {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestEmptyNetwork(t *testing.T) {
	s, err := NewAssembler(&fakeSource{}, 1).Assemble(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Switches) != 0 || s.ID == "" {
		t.Fatalf("unexpected empty snapshot: %v", s)
	}
}

func TestNumberJSON(t *testing.T) {
	src := []struct {
		input    string
		expected Number
		output   string
	}{
		{`4`, Number{Value: 4}, `4`},
		{`"ANY"`, Number{Name: "ANY"}, `"ANY"`},
		{`"ALL"`, Number{Name: "ALL"}, `"ALL"`},
		{`4294967295`, Number{Value: 4294967295}, `4294967295`},
	}

	for _, v := range src {
		var n Number
		if err := json.Unmarshal([]byte(v.input), &n); err != nil {
			t.Fatalf("unexpected error for %v: %v", v.input, err)
		}
		if n != v.expected {
			t.Fatalf("unexpected number: expected=%+v, got=%+v", v.expected, n)
		}
		data, err := json.Marshal(n)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != v.output {
			t.Fatalf("unexpected encoding: expected=%v, got=%v", v.output, string(data))
		}
	}

	for _, v := range []string{`""`, `-1`, `1.5`, `{}`} {
		var n Number
		if err := json.Unmarshal([]byte(v), &n); err == nil {
			t.Fatalf("expected error for %v", v)
		}
	}
}

func TestGroupWithReservedNumbers(t *testing.T) {
	data := `{"type": "SELECT", "group_id": 1, "buckets": [
		{"weight": 50, "watch_port": "ANY", "watch_group": "ANY", "actions": ["OUTPUT:1"]}
	]}`
	var g Group
	if err := json.Unmarshal([]byte(data), &g); err != nil {
		t.Fatal(err)
	}
	h1, err := GroupFingerprint(g, "0000000000000001")
	if err != nil {
		t.Fatal(err)
	}

	g.Buckets[0].WatchPort = Number{Value: 1}
	h2, err := GroupFingerprint(g, "0000000000000001")
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Fatal("group fingerprint is not changed by the watch port")
	}
}
