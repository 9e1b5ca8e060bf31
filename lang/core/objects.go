// Copyright 2026 The Lattice Authors
// This file is part of Lattice.
//
// Lattice is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Lattice is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Lattice. If not, see <http://www.gnu.org/licenses/>.

package core

import (
	"sync"

	mapset "github.com/deckarep/golang-set"
)

type stringObj struct{ data []byte }

type bufferObj struct{ data []byte }

type arrayObj struct{ data []Value }

type tupleObj struct{ data []Value }

type rangeObj struct{ start, end, step int64 }

type structObj struct {
	name   string
	fields []string
	values []Value
}

type enumObj struct {
	enumName string
	variant  string
	payload  []Value
}

// setObj backs the Set kind with deckarep/golang-set, keyed by each
// element's canonical map-key representation (see MapKey) since Lattice
// values are not directly Go-comparable.
type setObj struct {
	set     mapset.Set
	members map[string]Value // canonical key -> representative element
}

func newSetObj() *setObj {
	return &setObj{set: mapset.NewThreadUnsafeSet(), members: make(map[string]Value)}
}

func (s *setObj) add(v Value) {
	k := MapKey(v)
	if !s.set.Contains(k) {
		s.set.Add(k)
		s.members[k] = v
	}
}

func (s *setObj) contains(v Value) bool { return s.set.Contains(MapKey(v)) }

func (s *setObj) remove(v Value) {
	k := MapKey(v)
	s.set.Remove(k)
	delete(s.members, k)
}

func (s *setObj) len() int { return s.set.Cardinality() }

func (s *setObj) elements() []Value {
	out := make([]Value, 0, len(s.members))
	for _, v := range s.members {
		out = append(out, v)
	}
	return out
}

func (s *setObj) clone() *setObj {
	n := newSetObj()
	for k, v := range s.members {
		n.set.Add(k)
		n.members[k] = v.Clone()
	}
	return n
}

// mapObj backs the Map kind: String keys to Values. Insertion order is
// tracked but not guaranteed stable across runs.
type mapObj struct {
	order []string
	data  map[string]Value
}

func newMapObj() *mapObj {
	return &mapObj{data: make(map[string]Value)}
}

func (m *mapObj) set(key string, v Value) {
	if _, exists := m.data[key]; !exists {
		m.order = append(m.order, key)
	}
	m.data[key] = v
}

func (m *mapObj) get(key string) (Value, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *mapObj) delete(key string) {
	if _, ok := m.data[key]; !ok {
		return
	}
	delete(m.data, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *mapObj) keys() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

func (m *mapObj) clone() *mapObj {
	n := newMapObj()
	for _, k := range m.order {
		n.set(k, m.data[k].Clone())
	}
	return n
}

// channelObj backs the Channel kind: a bounded FIFO shared across VMs.
type channelObj struct {
	ch chan Value
}

func newChannelObj(capacity int) *channelObj {
	if capacity < 0 {
		capacity = 0
	}
	return &channelObj{ch: make(chan Value, capacity)}
}

// refObj backs the Ref kind: an atomically-replaceable single-value cell
// shared across VMs.
type refObj struct {
	mu  sync.Mutex
	val Value
}

func newRefObj(v Value) *refObj { return &refObj{val: v} }

func (r *refObj) load() Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.val
}

func (r *refObj) store(v Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.val = v
}

// iteratorObj backs the Iterator kind: a lazy, non-restartable driver.
type iteratorObj struct {
	next func() (Value, bool)
}

// closureObj backs the Closure kind. Exactly one of chunk/native is set.
type closureObj struct {
	paramCount int
	paramNames []string
	variadic   bool
	defaults   []Value

	chunk    *Chunk
	upvalues []*Upvalue

	native     NativeFunc
	nativeName string
}
