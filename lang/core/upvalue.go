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

// Upvalue is the indirection a closure uses to reach a variable declared in
// an enclosing frame. While Open it points at a live stack slot (identified
// by Slot, an index into the VM's value stack) owned by an ancestor frame;
// once that frame returns the upvalue is Closed and owns Value directly.
// Multiple closures may share one Upvalue.
type Upvalue struct {
	Open  bool
	Slot  int // valid only while Open: index into the VM value stack
	Value Value
}

// NewOpenUpvalue creates an upvalue referencing a live stack slot.
func NewOpenUpvalue(slot int) *Upvalue {
	return &Upvalue{Open: true, Slot: slot}
}

// Close converts the upvalue from open to closed, moving v into its own
// storage. Subsequent Get/Set target that storage.
func (u *Upvalue) Close(v Value) {
	u.Open = false
	u.Value = v
	u.Slot = 0
}
