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
	"fmt"

	"github.com/cespare/xxhash/v2"
	bloomfilter "github.com/holiman/bloomfilter/v2"
)

// digestFor returns a fresh xxhash digest seeded with key, suitable for
// bloomfilter.Filter.Add/Contains (which take a hash.Hash64).
func digestFor(key string) *xxhash.Digest {
	d := xxhash.New()
	_, _ = d.WriteString(key)
	return d
}

// Chunk is an immutable (once built) bytecode container: opcode bytes, a
// parallel per-byte source-line table, a constant pool, an optional local
// slot name table for debugging, and an optional chunk name used in stack
// traces. Chunks are produced by the compiler or by codec.Decode; the VM
// never mutates one once execution begins.
type Chunk struct {
	Code  []byte
	Lines []int32

	Constants []Value

	// LocalNames holds one optional name per local slot, sized to the
	// function's high-water slot count. A nil entry means "no debug name".
	LocalNames []*string

	Name string

	// dedup accelerates AddConstantDedup: a bloom filter pre-check before
	// falling back to an exact scan over constDedupKeys.
	dedupFilter    *bloomfilter.Filter
	constDedupKeys map[uint64][]int // xxhash(key) -> candidate constant indices
}

// NewChunk creates an empty chunk ready to receive bytecode.
func NewChunk() *Chunk {
	f, _ := bloomfilter.NewOptimal(1024, 0.01)
	return &Chunk{
		dedupFilter:    f,
		constDedupKeys: make(map[uint64][]int),
	}
}

// Write appends a single opcode or operand byte at source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, int32(line))
}

// WriteAll appends each byte in bs, all attributed to the same source line.
func (c *Chunk) WriteAll(bs []byte, line int) {
	for _, b := range bs {
		c.Write(b, line)
	}
}

// AddConstant appends v to the constant pool unconditionally and returns its
// index.
func (c *Chunk) AddConstant(v Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// AddConstantDedup appends v to the constant pool, reusing an existing
// entry with an identical canonical representation when one exists.
// Intended for immutable scalars (Int, Float, Bool, String, Nil, Unit);
// the caller is responsible for not requesting dedup on Closure constants
// whose identity matters.
func (c *Chunk) AddConstantDedup(v Value) int {
	key := dedupKey(v)
	h := xxhash.Sum64String(key)
	if c.dedupFilter != nil && c.dedupFilter.Contains(digestFor(key)) {
		for _, idx := range c.constDedupKeys[h] {
			if dedupKey(c.Constants[idx]) == key {
				return idx
			}
		}
	}
	idx := c.AddConstant(v)
	if c.dedupFilter != nil {
		c.dedupFilter.Add(digestFor(key))
	}
	c.constDedupKeys[h] = append(c.constDedupKeys[h], idx)
	return idx
}

// dedupKey returns a canonical string key for scalar dedup; non-scalar
// kinds key by their object pointer so two distinct non-scalar constants
// are never merged, even if structurally equal.
func dedupKey(v Value) string {
	switch v.Kind {
	case KindInt, KindFloat, KindBool, KindString, KindNil, KindUnit:
		return v.Kind.String() + ":" + Repr(v)
	default:
		return v.Kind.String() + ":" + fmt.Sprintf("%p", v.identity())
	}
}

// SetLocalName records the debug name of local slot idx, growing the table
// as needed.
func (c *Chunk) SetLocalName(idx int, name string) {
	for len(c.LocalNames) <= idx {
		c.LocalNames = append(c.LocalNames, nil)
	}
	n := name
	c.LocalNames[idx] = &n
}

// LocalName returns the debug name of local slot idx, or "" if unset.
func (c *Chunk) LocalName(idx int) string {
	if idx < 0 || idx >= len(c.LocalNames) || c.LocalNames[idx] == nil {
		return ""
	}
	return *c.LocalNames[idx]
}

// SetName sets the chunk's optional name, used in stack traces.
func (c *Chunk) SetName(name string) { c.Name = name }

// LineAt returns the source line of the instruction whose first byte is at
// code offset o.
func (c *Chunk) LineAt(o int) int {
	if o < 0 || o >= len(c.Lines) {
		return 0
	}
	return int(c.Lines[o])
}
