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

// Package ryu implements the topology source of the Ryu SDN controller. Ryu
// should run the ofctl_rest and rest_topology applications with --observe-links.
package ryu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/superkkt/netstate/network"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var (
	logger = logging.MustGetLogger("ryu")
)

const defaultTimeout = 10 * time.Second

// Client queries the REST API of a Ryu controller.
type Client struct {
	url    string
	client *http.Client
}

// New returns a client for the Ryu REST API at url, e.g., http://127.0.0.1:8080
func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		url:    strings.TrimRight(url, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

func (r *Client) get(ctx context.Context, res network.Resource, dpid, path string, v interface{}) error {
	fail := func(err error) error {
		return &network.RetrievalError{Resource: res, DPID: dpid, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url+path, nil)
	if err != nil {
		return fail(err)
	}
	logger.Debugf("requesting %v", req.URL)

	resp, err := r.client.Do(req)
	if err != nil {
		return fail(errors.Wrapf(err, "contacting %v", path))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("unexpected response status from %v: %v", path, resp.Status))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fail(errors.Wrapf(err, "decoding the response of %v", path))
	}

	return nil
}

// decimal converts the canonical DPID into the decimal form used by the ofctl_rest application.
func decimal(dpid string) (string, error) {
	v, err := network.ParseDPID(dpid)
	if err != nil {
		return "", err
	}

	return strconv.FormatUint(v, 10), nil
}

func (r *Client) Switches(ctx context.Context) ([]string, error) {
	var dpids []uint64
	if err := r.get(ctx, network.ResourceSwitches, "", "/stats/switches", &dpids); err != nil {
		return nil, err
	}

	result := make([]string, len(dpids))
	for i, v := range dpids {
		result[i] = network.FormatDPID(v)
	}

	return result, nil
}

type port struct {
	DPID   string `json:"dpid"`
	PortNo string `json:"port_no"`
	HWAddr string `json:"hw_addr"`
	Name   string `json:"name"`
}

func (r port) number() (uint32, error) {
	v, err := strconv.ParseUint(r.PortNo, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid port number: %v", r.PortNo)
	}

	return uint32(v), nil
}

func (r *Client) Ports(ctx context.Context, dpid string) ([]network.Port, error) {
	var switches []struct {
		DPID  string `json:"dpid"`
		Ports []port `json:"ports"`
	}
	if err := r.get(ctx, network.ResourcePorts, dpid, "/v1.0/topology/switches/"+dpid, &switches); err != nil {
		return nil, err
	}

	result := make([]network.Port, 0)
	if len(switches) == 0 {
		return result, nil
	}
	// The DPID of each port is dropped as it is same as the switch.
	for _, v := range switches[0].Ports {
		result = append(result, network.Port{PortNo: v.PortNo, HWAddr: v.HWAddr, Name: v.Name})
	}

	return result, nil
}

func (r *Client) PortMappings(ctx context.Context, dpid string) (map[string]string, error) {
	var links []struct {
		Src port `json:"src"`
		Dst port `json:"dst"`
	}
	if err := r.get(ctx, network.ResourceLinks, dpid, "/v1.0/topology/links/"+dpid, &links); err != nil {
		return nil, err
	}

	result := make(map[string]string)
	for _, v := range links {
		result[v.Src.Name] = v.Dst.Name
	}

	return result, nil
}

func (r *Client) Hosts(ctx context.Context, dpid string) (map[string]network.Host, error) {
	var hosts []struct {
		MAC  string   `json:"mac"`
		IPv4 []string `json:"ipv4"`
		IPv6 []string `json:"ipv6"`
		Port port     `json:"port"`
	}
	if err := r.get(ctx, network.ResourceHosts, dpid, "/v1.0/topology/hosts/"+dpid, &hosts); err != nil {
		return nil, err
	}

	result := make(map[string]network.Host)
	for _, v := range hosts {
		no, err := v.Port.number()
		if err != nil {
			return nil, &network.RetrievalError{Resource: network.ResourceHosts, DPID: dpid, Err: err}
		}
		id, err := network.HostID(dpid, no)
		if err != nil {
			return nil, &network.RetrievalError{Resource: network.ResourceHosts, DPID: dpid, Err: err}
		}
		if prev, ok := result[v.Port.Name]; ok {
			logger.Warningf("multiple hosts on a port: dpid=%v, port=%v, prev=%v, new=%v", dpid, v.Port.Name, prev.MAC, v.MAC)
		}
		result[v.Port.Name] = network.Host{
			ID:   id,
			MAC:  v.MAC,
			IPv4: nonNil(v.IPv4),
			IPv6: nonNil(v.IPv6),
		}
	}

	return result, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return make([]string, 0)
	}
	return v
}

func (r *Client) Flows(ctx context.Context, dpid string) ([]network.Flow, error) {
	id, err := decimal(dpid)
	if err != nil {
		return nil, &network.RetrievalError{Resource: network.ResourceFlows, DPID: dpid, Err: err}
	}

	// {"1": [{"priority": 65535, "table_id": 0, "match": {...}, "actions": [...], ...}]}
	var flows map[string][]network.Flow
	if err := r.get(ctx, network.ResourceFlows, dpid, "/stats/flow/"+id, &flows); err != nil {
		return nil, err
	}

	result, ok := flows[id]
	if !ok || result == nil {
		return make([]network.Flow, 0), nil
	}

	return result, nil
}

func (r *Client) Groups(ctx context.Context, dpid string) ([]network.Group, error) {
	id, err := decimal(dpid)
	if err != nil {
		return nil, &network.RetrievalError{Resource: network.ResourceGroups, DPID: dpid, Err: err}
	}

	var groups map[string][]network.Group
	if err := r.get(ctx, network.ResourceGroups, dpid, "/stats/groupdesc/"+id, &groups); err != nil {
		return nil, err
	}

	result, ok := groups[id]
	if !ok || result == nil {
		return make([]network.Group, 0), nil
	}

	return result, nil
}
