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

package updater

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeChanged   = "changed"
	outcomeUnchanged = "unchanged"
	outcomeRetrieval = "retrieval_error"
	outcomeStore     = "store_error"
	outcomeError     = "error"
	outcomePanic     = "panic"
)

var (
	cyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netstate_cycles_total",
			Help: "Total number of poll cycles by outcome.",
		},
		[]string{"outcome"},
	)
	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netstate_mutations_total",
			Help: "Total number of store mutations submitted by operation.",
		},
		[]string{"op"},
	)
	retrievalFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netstate_retrieval_failures_total",
			Help: "Total number of failed retrievals from the topology source by resource.",
		},
		[]string{"resource"},
	)
	invariantViolationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netstate_invariant_violations_total",
			Help: "Total number of change sets referring to a switch unknown to the store.",
		},
	)
	switchesGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netstate_switches",
			Help: "Number of switches in the last published snapshot.",
		},
	)
	cycleDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netstate_cycle_duration_seconds",
			Help: "Duration of the last poll cycle.",
		},
	)
)
