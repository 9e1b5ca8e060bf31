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
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

// Repr returns the compact, human-readable, round-trippable-for-primitives
// printable form of v: arrays as "[a, b, c]", tuples as "(a, b, c)", structs
// as "Name { field: value, ... }", enums as "Name::Variant" or
// "Name::Variant(args)", nil as "nil", unit as "()".
func Repr(v Value) string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindUnit:
		return "()"
	case KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case KindFloat:
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64)
	case KindString:
		return v.AsString()
	case KindBuffer:
		return "buffer(" + strconv.Itoa(len(v.AsBuffer())) + " bytes)"
	case KindRange:
		s, e, step := v.AsRange()
		return strconv.FormatInt(s, 10) + ".." + strconv.FormatInt(e, 10) + " step " + strconv.FormatInt(step, 10)
	case KindArray:
		return "[" + reprJoin(*v.AsArray()) + "]"
	case KindTuple:
		return "(" + reprJoin(v.AsTuple()) + ")"
	case KindSet:
		s := v.obj.(*setObj)
		return "{" + reprJoin(s.elements()) + "}"
	case KindMap:
		m := v.obj.(*mapObj)
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range m.keys() {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			val, _ := m.get(k)
			b.WriteString(Repr(val))
		}
		b.WriteByte('}')
		return b.String()
	case KindStruct:
		names, values := v.StructFields()
		var b strings.Builder
		b.WriteString(v.StructName())
		b.WriteString(" { ")
		for i, n := range names {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(n)
			b.WriteString(": ")
			b.WriteString(Repr(values[i]))
		}
		b.WriteString(" }")
		return b.String()
	case KindEnum:
		enumName, variant, payload := v.EnumVariant()
		base := enumName + "::" + variant
		if len(payload) == 0 {
			return base
		}
		return base + "(" + reprJoin(payload) + ")"
	case KindRef:
		return "ref(" + Repr(v.obj.(*refObj).load()) + ")"
	case KindChannel:
		return "channel"
	case KindIterator:
		return "iterator"
	case KindClosure:
		_, name := v.ClosureNative()
		if name != "" {
			return "native fn " + name
		}
		if c := v.ClosureChunk(); c != nil && c.Name != "" {
			return "fn " + c.Name
		}
		return "fn <anonymous>"
	default:
		return "<invalid>"
	}
}

func reprJoin(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = Repr(v)
	}
	return strings.Join(parts, ", ")
}

// debugConfig configures spew once at package init rather than at each
// call site.
var debugConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// DebugString returns the verbose debug form consumed by the debugger
// interface: a structural dump of the value's payload, not just its
// printable Repr.
func DebugString(v Value) string {
	switch v.Kind {
	case KindArray:
		return debugConfig.Sdump(*v.AsArray())
	case KindTuple:
		return debugConfig.Sdump(v.AsTuple())
	case KindStruct:
		names, values := v.StructFields()
		return debugConfig.Sdump(struct {
			Type   string
			Fields []string
			Values []Value
		}{v.StructName(), names, values})
	case KindEnum:
		enumName, variant, payload := v.EnumVariant()
		return debugConfig.Sdump(struct {
			Enum    string
			Variant string
			Payload []Value
		}{enumName, variant, payload})
	default:
		return Repr(v) + " (" + v.Kind.String() + ", " + v.Phase.String() + ")"
	}
}

// MapKey returns the canonical string used to key a Map or Set by this
// value. Only hashable kinds (primitives and Strings) are valid keys in
// practice; composite kinds fall back to their Repr, which is sufficient
// for structural dedup but not guaranteed collision-free for cyclic data.
func MapKey(v Value) string {
	switch v.Kind {
	case KindString:
		return "s:" + v.AsString()
	case KindInt:
		return "i:" + strconv.FormatInt(v.AsInt(), 10)
	case KindFloat:
		return "f:" + strconv.FormatFloat(v.AsFloat(), 'b', -1, 64)
	case KindBool:
		return "b:" + strconv.FormatBool(v.AsBool())
	case KindNil:
		return "nil"
	case KindUnit:
		return "unit"
	default:
		return v.Kind.String() + ":" + Repr(v)
	}
}
