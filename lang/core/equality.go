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

// Equal reports deep structural equality between a and b: by value for
// primitives, element-wise for arrays/tuples/sets, field-wise (by name,
// order-independent) for structs, variant-and-payload for enums, and
// pointer identity for Ref, Channel, Iterator, and Closure.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNil, KindUnit:
		return true
	case KindBool:
		return a.AsBool() == b.AsBool()
	case KindInt:
		return a.AsInt() == b.AsInt()
	case KindFloat:
		return a.AsFloat() == b.AsFloat()
	case KindString:
		return a.AsString() == b.AsString()
	case KindBuffer:
		return string(a.AsBuffer()) == string(b.AsBuffer())
	case KindRange:
		as, ae, ap := a.AsRange()
		bs, be, bp := b.AsRange()
		return as == bs && ae == be && ap == bp
	case KindArray:
		av, bv := *a.AsArray(), *b.AsArray()
		return equalSlices(av, bv)
	case KindTuple:
		return equalSlices(a.AsTuple(), b.AsTuple())
	case KindSet:
		as, bs := a.obj.(*setObj), b.obj.(*setObj)
		if as.len() != bs.len() {
			return false
		}
		for k := range as.members {
			if _, ok := bs.members[k]; !ok {
				return false
			}
		}
		return true
	case KindMap:
		am, bm := a.obj.(*mapObj), b.obj.(*mapObj)
		if len(am.data) != len(bm.data) {
			return false
		}
		for k, v := range am.data {
			bv, ok := bm.get(k)
			if !ok || !Equal(v, bv) {
				return false
			}
		}
		return true
	case KindStruct:
		aname, bname := a.StructName(), b.StructName()
		if aname != bname {
			return false
		}
		anames, avals := a.StructFields()
		bnames, bvals := b.StructFields()
		if len(anames) != len(bnames) {
			return false
		}
		for i, n := range anames {
			j := indexOf(bnames, n)
			if j < 0 || !Equal(avals[i], bvals[j]) {
				return false
			}
		}
		return true
	case KindEnum:
		aEnum, aVar, aPay := a.EnumVariant()
		bEnum, bVar, bPay := b.EnumVariant()
		if aEnum != bEnum || aVar != bVar {
			return false
		}
		return equalSlices(aPay, bPay)
	case KindRef, KindChannel, KindIterator, KindClosure:
		return a.identity() == b.identity()
	default:
		return false
	}
}

func equalSlices(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func indexOf(ss []string, s string) int {
	for i, v := range ss {
		if v == s {
			return i
		}
	}
	return -1
}
