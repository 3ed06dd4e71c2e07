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

package api

import (
	"errors"

	"github.com/superkkt/netstate/broker"
	"github.com/superkkt/netstate/network"
	"github.com/superkkt/netstate/state"
	"github.com/superkkt/netstate/topology"

	"github.com/ant0ine/go-json-rest/rest"
)

type stateParam struct {
	ID       string                          `json:"state_id"`
	Switches map[string]network.SwitchRecord `json:"switches"`
}

func newStateParam(s *network.Snapshot) stateParam {
	return stateParam{ID: s.ID, Switches: s.Switches}
}

type runParam struct {
	RunID   string `json:"run_id"`
	Changed bool   `json:"changed"`
	Given   string `json:"given"`
	Current string `json:"current"`
}

func (r *Server) getState(w rest.ResponseWriter, req *rest.Request) {
	snapshot, err := r.State.NetworkState()
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteJson(Response{Status: StatusOkay, Data: newStateParam(snapshot)})
}

func (r *Server) getStateID(w rest.ResponseWriter, req *rest.Request) {
	id, err := r.State.StateID()
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteJson(Response{Status: StatusOkay, Data: struct {
		ID string `json:"state_id"`
	}{id}})
}

func (r *Server) getSwitch(w rest.ResponseWriter, req *rest.Request) {
	id := req.PathParam("id")
	if _, err := network.NormalizeDPID(id); err != nil {
		w.WriteJson(Response{Status: StatusInvalidParameter, Message: err.Error()})
		return
	}

	record, err := r.State.Switch(id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteJson(Response{Status: StatusOkay, Data: record})
}

func (r *Server) getPath(w rest.ResponseWriter, req *rest.Request) {
	src, dst := req.PathParam("src"), req.PathParam("dst")
	logger.Debugf("path query from %v: src=%v, dst=%v", req.RemoteAddr, src, dst)

	hops, err := r.State.PathBetween(src, dst)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteJson(Response{Status: StatusOkay, Data: struct {
		Hops []topology.Hop `json:"hops"`
	}{hops}})
}

func (r *Server) provideRun(w rest.ResponseWriter, req *rest.Request) {
	id := req.PathParam("id")
	snapshot, err := r.Broker.Provide(id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteJson(Response{Status: StatusOkay, Data: newStateParam(snapshot)})
}

func (r *Server) checkRun(w rest.ResponseWriter, req *rest.Request) {
	id := req.PathParam("id")
	changed, given, current, err := r.Broker.Changed(id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteJson(Response{Status: StatusOkay, Data: runParam{RunID: id, Changed: changed, Given: given, Current: current}})
}

func (r *Server) terminateRun(w rest.ResponseWriter, req *rest.Request) {
	if err := r.Broker.Terminate(req.PathParam("id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteJson(Response{Status: StatusOkay})
}

func writeError(w rest.ResponseWriter, err error) {
	var notConnected *topology.NotConnectedError
	var invalidNode *topology.InvalidNodeError

	status := Status(StatusInternalServerError)
	switch {
	case errors.As(err, &notConnected):
		status = StatusNotFound
	case errors.As(err, &invalidNode):
		status = StatusInvalidParameter
	case errors.Is(err, state.ErrNotReady):
		status = StatusServiceUnavailable
	case errors.Is(err, state.ErrUnknownSwitch), errors.Is(err, broker.ErrUnknownRun):
		status = StatusNotFound
	default:
		logger.Errorf("unexpected REST API error: %v", err)
	}

	w.WriteJson(Response{Status: status, Message: err.Error()})
}
