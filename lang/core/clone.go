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

import "errors"

// ErrNotClonable is returned by Clone for Channel and Iterator values,
// which the language defines as non-clonable.
var ErrNotClonable = errors.New("core: value is not clonable")

// Clone returns a deep copy of v. Clone of a Ref returns a new Ref holding
// a clone of the cell's current value. Clone of a Channel or Iterator
// returns ErrNotClonable — callers (the VM) must surface that as a
// runtime fault. Clone of a Closure shares the body chunk (chunks are
// immutable and owned by their defining parent) but copies the upvalue
// vector header, matching reference semantics for captured state.
func (v Value) Clone() Value {
	c, _ := v.tryClone()
	return c
}

// TryClone is Clone but surfaces the non-clonable error instead of
// silently returning the zero Value.
func (v Value) TryClone() (Value, error) { return v.tryClone() }

func (v Value) tryClone() (Value, error) {
	switch v.Kind {
	case KindNil, KindUnit, KindBool, KindInt, KindFloat, KindRange:
		return v, nil
	case KindString:
		return String(v.AsString()).withTags(v), nil
	case KindBuffer:
		b := v.AsBuffer()
		cp := make([]byte, len(b))
		copy(cp, b)
		return BufferOwned(cp).withTags(v), nil
	case KindArray:
		src := *v.AsArray()
		dst := make([]Value, len(src))
		for i, e := range src {
			dst[i] = e.Clone()
		}
		return Array(dst).withTags(v), nil
	case KindTuple:
		src := v.AsTuple()
		dst := make([]Value, len(src))
		for i, e := range src {
			dst[i] = e.Clone()
		}
		return Tuple(dst).withTags(v), nil
	case KindSet:
		return Value{Kind: KindSet, Phase: v.Phase, Region: v.Region, obj: v.obj.(*setObj).clone()}, nil
	case KindMap:
		return Value{Kind: KindMap, Phase: v.Phase, Region: v.Region, obj: v.obj.(*mapObj).clone()}, nil
	case KindStruct:
		names, values := v.StructFields()
		namesCp := append([]string(nil), names...)
		valsCp := make([]Value, len(values))
		for i, e := range values {
			valsCp[i] = e.Clone()
		}
		return Struct(v.StructName(), namesCp, valsCp).withTags(v), nil
	case KindEnum:
		enumName, variant, payload := v.EnumVariant()
		payloadCp := make([]Value, len(payload))
		for i, e := range payload {
			payloadCp[i] = e.Clone()
		}
		return Enum(enumName, variant, payloadCp).withTags(v), nil
	case KindRef:
		return Ref(v.obj.(*refObj).load().Clone()).withTags(v), nil
	case KindClosure:
		c := v.obj.(*closureObj)
		upvals := append([]*Upvalue(nil), c.upvalues...)
		nc := &closureObj{
			paramCount: c.paramCount,
			paramNames: c.paramNames,
			variadic:   c.variadic,
			defaults:   c.defaults,
			chunk:      c.chunk,
			upvalues:   upvals,
			native:     c.native,
			nativeName: c.nativeName,
		}
		return Value{Kind: KindClosure, Phase: v.Phase, Region: v.Region, obj: nc}, nil
	case KindChannel, KindIterator:
		return Value{}, ErrNotClonable
	default:
		return Value{}, ErrNotClonable
	}
}

func (v Value) withTags(src Value) Value {
	v.Phase = src.Phase
	v.Region = src.Region
	return v
}

// Free releases v's reference to its owning payload. For Go-managed
// memory this is a no-op beyond dropping the reference (the garbage
// collector reclaims the backing storage once nothing else holds it);
// it exists so the VM's frame-exit and drop paths state the ownership
// transfer explicitly even though nothing here allocates off-heap.
// Freeing a Nil/Unit/Bool/Int/Float/Range value is always a no-op.
func (v Value) Free() {
	// Intentionally empty: Go's GC owns reclamation. Channels and Refs are
	// reference-counted by the runtime's garbage collector the same way
	// every other heap object is; there is no separate refcount to drop.
}
