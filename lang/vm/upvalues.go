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

package vm

import "github.com/ajokela/lattice-sub004/lang/core"

// captureUpvalue returns an open upvalue referencing stack slot, reusing
// an existing one for that slot if the openUpvalues vector already holds
// it (so two closures capturing the same local share one cell). The
// vector is kept ordered by descending slot, per the design notes'
// "ordered vector indexed by descending stack position" strategy.
func (v *VM) captureUpvalue(slot int) *core.Upvalue {
	i := 0
	for i < len(v.openUpvalues) && v.openUpvalues[i].Slot > slot {
		i++
	}
	if i < len(v.openUpvalues) && v.openUpvalues[i].Slot == slot {
		return v.openUpvalues[i]
	}
	up := core.NewOpenUpvalue(slot)
	v.openUpvalues = append(v.openUpvalues, nil)
	copy(v.openUpvalues[i+1:], v.openUpvalues[i:])
	v.openUpvalues[i] = up
	return up
}

// upvalueGet reads through an upvalue: the live stack slot while open, its
// own storage once closed.
func (v *VM) upvalueGet(up *core.Upvalue) core.Value {
	if up.Open {
		return v.stack[up.Slot]
	}
	return up.Value
}

// upvalueSet writes through an upvalue: the live stack slot while open,
// its own storage once closed.
func (v *VM) upvalueSet(up *core.Upvalue, val core.Value) {
	if up.Open {
		v.stack[up.Slot] = val
		return
	}
	up.Value = val
}

// closeUpvaluesFrom closes every open upvalue whose slot is >= base,
// moving the live stack value into the upvalue's own storage. Since
// openUpvalues is ordered by descending slot, this is a prefix of the
// vector.
func (v *VM) closeUpvaluesFrom(base int) {
	n := 0
	for n < len(v.openUpvalues) && v.openUpvalues[n].Slot >= base {
		up := v.openUpvalues[n]
		up.Close(v.stack[up.Slot])
		n++
	}
	v.openUpvalues = v.openUpvalues[n:]
}
