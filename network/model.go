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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/superkkt/netstate/document"
)

type Port struct {
	PortNo string `json:"port_no" bson:"port_no"`
	HWAddr string `json:"hw_addr" bson:"hw_addr"`
	Name   string `json:"name" bson:"name"`
}

// Host is a host attached to a switch port.
type Host struct {
	ID   string   `json:"id" bson:"id"`
	MAC  string   `json:"mac" bson:"mac"`
	IPv4 []string `json:"ipv4" bson:"ipv4"`
	IPv6 []string `json:"ipv6" bson:"ipv6"`
}

// Flow is an installed OpenFlow rule as reported by the controller. Duration
// counters are deliberately absent: they change on every poll.
type Flow struct {
	Priority    int                    `json:"priority" bson:"priority"`
	TableID     int                    `json:"table_id" bson:"table_id"`
	Cookie      uint64                 `json:"cookie" bson:"cookie"`
	IdleTimeout int                    `json:"idle_timeout" bson:"idle_timeout"`
	HardTimeout int                    `json:"hard_timeout" bson:"hard_timeout"`
	Flags       int                    `json:"flags" bson:"flags"`
	Match       map[string]interface{} `json:"match" bson:"match"`
	Actions     []interface{}          `json:"actions" bson:"actions"`
	ByteCount   uint64                 `json:"byte_count" bson:"byte_count"`
	PacketCount uint64                 `json:"packet_count" bson:"packet_count"`
}

func (r *Flow) normalize() {
	if r.Match == nil {
		r.Match = make(map[string]interface{})
	}
	if r.Actions == nil {
		r.Actions = make([]interface{}, 0)
	}
}

// Group is an OpenFlow group entry (ALL, SELECT, INDIRECT or FF).
type Group struct {
	Type    string   `json:"type" bson:"type"`
	GroupID Number   `json:"group_id" bson:"group_id"`
	Buckets []Bucket `json:"buckets" bson:"buckets"`
}

type Bucket struct {
	Weight     int           `json:"weight" bson:"weight"`
	WatchPort  Number        `json:"watch_port" bson:"watch_port"`
	WatchGroup Number        `json:"watch_group" bson:"watch_group"`
	Actions    []interface{} `json:"actions" bson:"actions"`
}

func (r *Group) normalize() {
	if r.Buckets == nil {
		r.Buckets = make([]Bucket, 0)
	}
	for i := range r.Buckets {
		if r.Buckets[i].Actions == nil {
			r.Buckets[i].Actions = make([]interface{}, 0)
		}
	}
}

// SwitchRecord is the document describing one switch.
type SwitchRecord struct {
	// Name is the DPID of the switch in the 16 hex digits form.
	Name  string `json:"name" bson:"name"`
	Ports []Port `json:"ports" bson:"ports"`
	// PortMappings maps a local port name to the port name of the remote switch.
	PortMappings map[string]string `json:"portMappings" bson:"portMappings"`
	// ConnectedHosts maps a local port name to the host attached on it.
	ConnectedHosts map[string]Host `json:"connectedHosts" bson:"connectedHosts"`
	// InstalledFlows maps a flow fingerprint to the flow.
	InstalledFlows map[string]Flow `json:"installedFlows" bson:"installedFlows"`
	// InstalledGroups maps a group fingerprint to the group.
	InstalledGroups map[string]Group `json:"installedGroups" bson:"installedGroups"`
}

// Normalize replaces nil containers with empty ones so that a record decoded
// from a store has the same canonical form as a freshly assembled one.
func (r *SwitchRecord) Normalize() {
	if r.Ports == nil {
		r.Ports = make([]Port, 0)
	}
	if r.PortMappings == nil {
		r.PortMappings = make(map[string]string)
	}
	if r.ConnectedHosts == nil {
		r.ConnectedHosts = make(map[string]Host)
	}
	for k, v := range r.ConnectedHosts {
		if v.IPv4 == nil {
			v.IPv4 = make([]string, 0)
		}
		if v.IPv6 == nil {
			v.IPv6 = make([]string, 0)
		}
		r.ConnectedHosts[k] = v
	}
	if r.InstalledFlows == nil {
		r.InstalledFlows = make(map[string]Flow)
	}
	for k, v := range r.InstalledFlows {
		v.normalize()
		r.InstalledFlows[k] = v
	}
	if r.InstalledGroups == nil {
		r.InstalledGroups = make(map[string]Group)
	}
	for k, v := range r.InstalledGroups {
		v.normalize()
		r.InstalledGroups[k] = v
	}
}

// Snapshot is the whole network state at a point of time. A snapshot is never
// modified once it is created, so callers must not modify the returned records.
type Snapshot struct {
	// ID is the SHA-256 hash of the canonical serialization of Switches.
	ID       string
	Switches map[string]SwitchRecord
}

// NewSnapshot creates a snapshot from the records keyed by switch name and
// computes its state ID.
func NewSnapshot(switches map[string]SwitchRecord) (*Snapshot, error) {
	if switches == nil {
		switches = make(map[string]SwitchRecord)
	}
	for k, v := range switches {
		v.Normalize()
		switches[k] = v
	}

	id, err := StateID(switches)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		ID:       id,
		Switches: switches,
	}, nil
}

// StateID returns the content hash identifying switches.
func StateID(switches map[string]SwitchRecord) (string, error) {
	data, err := document.Marshal(switches)
	if err != nil {
		return "", fmt.Errorf("serializing the network state: %v", err)
	}
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:]), nil
}

// Tree returns the canonical tree of this snapshot keyed by switch name.
func (r *Snapshot) Tree() (map[string]interface{}, error) {
	return document.NormalizeMap(r.Switches)
}

func (r *Snapshot) Switch(name string) (SwitchRecord, bool) {
	v, ok := r.Switches[name]
	return v, ok
}

// Names returns the sorted switch names of this snapshot.
func (r *Snapshot) Names() []string {
	result := make([]string, 0, len(r.Switches))
	for k := range r.Switches {
		result = append(result, k)
	}
	sort.Strings(result)

	return result
}

func (r *Snapshot) String() string {
	return fmt.Sprintf("Snapshot ID=%v, Switches=%v", r.ID, len(r.Switches))
}
