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

// Package graph implements an undirected multigraph of vertexies connected
// through their points, e.g., switches connected through their ports.
package graph

import (
	"bytes"
	"container/list"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/op/go-logging"
)

var (
	logger = logging.MustGetLogger("graph")
)

// Vertex is a node (e.g., switch or host) that consists of at least one or more points.
type Vertex interface {
	ID() string
}

// Point is a spot (e.g., switch port) on a vertex. We need this to represent multiple links among two vertexies.
type Point interface {
	ID() string
	Vertex() Vertex
}

// Edge is a bi-directional link among two points.
type Edge interface {
	ID() string
	Points() [2]Point
}

type vertex struct {
	value Vertex
	edges map[string]Edge
}

// Graph is safe for concurrent use by multiple goroutines.
type Graph struct {
	mutex     sync.RWMutex
	vertexies map[string]vertex
	edges     map[string]Edge
}

func New() *Graph {
	return &Graph{
		vertexies: make(map[string]vertex),
		edges:     make(map[string]Edge),
	}
}

func (r *Graph) String() string {
	// Read lock
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ids := make([]string, 0, len(r.edges))
	for k := range r.edges {
		ids = append(ids, k)
	}
	sort.Strings(ids)

	var buf bytes.Buffer
	for _, v := range ids {
		p := r.edges[v].Points()
		buf.WriteString(fmt.Sprintf("Edge ID=%v, Points=%v/%v\n", v, p[0].ID(), p[1].ID()))
	}

	return buf.String()
}

func (r *Graph) AddVertex(v Vertex) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if v == nil {
		panic("adding nil vertex")
	}
	// Check duplication
	_, ok := r.vertexies[v.ID()]
	if ok {
		return
	}

	r.vertexies[v.ID()] = vertex{
		value: v,
		edges: make(map[string]Edge),
	}
}

// Vertex returns the vertex whose ID is id.
func (r *Graph) Vertex(id string) (Vertex, bool) {
	// Read lock
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	v, ok := r.vertexies[id]
	if !ok {
		return nil, false
	}

	return v.value, true
}

// AddEdge adds e between two known vertexies. It returns false if an edge
// with the same ID already exists.
func (r *Graph) AddEdge(e Edge) (added bool, err error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if e == nil {
		panic("adding nil edge")
	}
	// Check duplication
	if _, ok := r.edges[e.ID()]; ok {
		return false, nil
	}

	points := e.Points()
	if points[0].Vertex() == nil || points[1].Vertex() == nil {
		panic("adding an edge pointing to nil vertex")
	}
	first, ok1 := r.vertexies[points[0].Vertex().ID()]
	second, ok2 := r.vertexies[points[1].Vertex().ID()]
	if !ok1 || !ok2 {
		return false, errors.New("AddEdge: adding an edge to unknown vertex")
	}

	r.edges[e.ID()] = e
	first.edges[e.ID()] = e
	second.edges[e.ID()] = e
	logger.Debugf("added a new edge: id=%v", e.ID())

	return true, nil
}

// Len returns the number of vertexies and edges.
func (r *Graph) Len() (vertexies, edges int) {
	// Read lock
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.vertexies), len(r.edges)
}

type queue struct {
	list *list.List
}

func newQueue() *queue {
	return &queue{list.New()}
}

func (r *queue) enqueue(v interface{}) {
	r.list.PushBack(v)
}

func (r *queue) dequeue() interface{} {
	v := r.list.Front()
	if v != nil {
		r.list.Remove(v)
	}
	return v.Value
}

func (r *queue) length() int {
	return r.list.Len()
}

// Path is a hop of a path: the edge E leaving the vertex V.
type Path struct {
	V Vertex
	E Edge
}

// Local returns the point of the edge on the vertex of this hop.
func (r Path) Local() Point {
	p := r.E.Points()
	if p[0].Vertex().ID() == r.V.ID() {
		return p[0]
	}
	return p[1]
}

// Remote returns the point of the edge on the next vertex.
func (r Path) Remote() Point {
	p := r.E.Points()
	if p[0].Vertex().ID() == r.V.ID() {
		return p[1]
	}
	return p[0]
}

type neighbor struct {
	vertex Vertex
	edge   Edge
}

// neighbors returns the adjacent vertexies of v ordered by their IDs and then
// the edge IDs, so that the search result is deterministic.
func (r *Graph) neighbors(v vertex) []neighbor {
	result := make([]neighbor, 0, len(v.edges))
	for _, e := range v.edges {
		points := e.Points()
		next := points[0]
		if points[0].Vertex().ID() == v.value.ID() {
			next = points[1]
		}
		result = append(result, neighbor{vertex: next.Vertex(), edge: e})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].vertex.ID() != result[j].vertex.ID() {
			return result[i].vertex.ID() < result[j].vertex.ID()
		}
		return result[i].edge.ID() < result[j].edge.ID()
	})

	return result
}

// FindPath returns a shortest path, in terms of the number of hops, from src
// to dst. ok is false if src or dst is unknown or there is no path between
// them. A path from a vertex to itself is empty.
func (r *Graph) FindPath(src, dst string) (path []Path, ok bool) {
	// Read lock
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if _, ok := r.vertexies[src]; !ok {
		return nil, false
	}
	if _, ok := r.vertexies[dst]; !ok {
		return nil, false
	}
	if src == dst {
		return []Path{}, true
	}

	visited := make(map[string]bool)
	prev := make(map[string]Path)

	queue := newQueue()
	queue.enqueue(src)
	visited[src] = true

	// Implementation of BFS algorithm
	for queue.length() > 0 {
		v := queue.dequeue()
		if v == nil {
			panic("nil element is fetched from the queue")
		}

		vertex, ok := r.vertexies[v.(string)]
		if !ok {
			return nil, false
		}
		for _, w := range r.neighbors(vertex) {
			id := w.vertex.ID()
			if visited[id] {
				continue
			}
			visited[id] = true
			prev[id] = Path{V: vertex.value, E: w.edge}
			if id == dst {
				return r.backtrack(prev, dst), true
			}
			queue.enqueue(id)
		}
	}

	return nil, false
}

func (r *Graph) backtrack(prev map[string]Path, dst string) []Path {
	u := dst
	result := make([]Path, 0)
	for {
		path, ok := prev[u]
		if !ok {
			break
		}
		result = append(result, path)
		u = path.V.ID()
	}

	return reverse(result)
}

func reverse(data []Path) []Path {
	length := len(data)
	if length == 0 {
		return data
	}

	result := make([]Path, length)
	for i, j := 0, length-1; i < length; i, j = i+1, j-1 {
		result[i] = data[j]
	}

	return result
}
