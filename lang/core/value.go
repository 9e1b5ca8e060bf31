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

// Package core implements the Lattice value model and bytecode chunk: the
// tagged-union Value representation, its owning heap payloads, chunks (the
// immutable bytecode container a compiler or the .latc codec produces), and
// the open/closed upvalue cell closures use to reach into enclosing frames.
//
// Value and Chunk live in one package because they are mutually recursive:
// a Closure value embeds a *Chunk body, and a Chunk's constant pool holds
// Values (including, recursively, further Closure constants).
package core

import "fmt"

// Kind tags the variant a Value currently holds.
type Kind uint8

const (
	KindNil Kind = iota
	KindUnit
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindTuple
	KindSet
	KindMap
	KindStruct
	KindEnum
	KindRange
	KindBuffer
	KindChannel
	KindRef
	KindIterator
	KindClosure
)

var kindNames = [...]string{
	KindNil:      "nil",
	KindUnit:     "unit",
	KindBool:     "bool",
	KindInt:      "int",
	KindFloat:    "float",
	KindString:   "string",
	KindArray:    "array",
	KindTuple:    "tuple",
	KindSet:      "set",
	KindMap:      "map",
	KindStruct:   "struct",
	KindEnum:     "enum",
	KindRange:    "range",
	KindBuffer:   "buffer",
	KindChannel:  "channel",
	KindRef:      "ref",
	KindIterator: "iterator",
	KindClosure:  "closure",
}

// String returns the lower-case name of the kind, used in fault messages.
func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Phase is the advisory mutability tag the compiler checks and the VM
// carries but never enforces.
type Phase uint8

const (
	PhaseUnphased Phase = iota
	PhaseFluid
	PhaseCrystal
)

func (p Phase) String() string {
	switch p {
	case PhaseFluid:
		return "fluid"
	case PhaseCrystal:
		return "crystal"
	default:
		return "unphased"
	}
}

// NoRegion is the default region identifier: "no region".
const NoRegion = ""

// Value is the tagged-union runtime value. The zero Value is Nil.
//
// Primitive variants (Int, Float, Bool, Nil, Unit) are stored inline and are
// trivially copyable; Range keeps its bounds in an immutable heap object
// that copies share. Owning variants (String, Array, Map, Struct,
// Enum, Tuple, Set, Buffer, Closure, Channel, Ref, Iterator) hold a pointer
// to a heap object in obj; Clone deep-copies that object, Free drops the
// program's reference to it.
type Value struct {
	Kind   Kind
	Phase  Phase
	Region string

	i   int64   // Int, Bool (0/1)
	f   float64 // Float
	obj any     // heap payload for owning kinds
}

// Nil is the singleton "absent value".
var Nil = Value{Kind: KindNil}

// Unit is the singleton "no value", distinct from Nil.
var Unit = Value{Kind: KindUnit}

// Int constructs an Int value.
func Int(v int64) Value { return Value{Kind: KindInt, i: v} }

// Float constructs a Float value.
func Float(v float64) Value { return Value{Kind: KindFloat, f: v} }

// Bool constructs a Bool value.
func Bool(v bool) Value {
	var i int64
	if v {
		i = 1
	}
	return Value{Kind: KindBool, i: i}
}

// String constructs a String value, copying the given bytes.
func String(s string) Value {
	b := make([]byte, len(s))
	copy(b, s)
	return Value{Kind: KindString, obj: &stringObj{data: b}}
}

// StringOwned constructs a String value taking ownership of b (no copy).
func StringOwned(b []byte) Value {
	return Value{Kind: KindString, obj: &stringObj{data: b}}
}

// Buffer constructs a Buffer value, copying the given bytes.
func Buffer(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{Kind: KindBuffer, obj: &bufferObj{data: cp}}
}

// BufferOwned constructs a Buffer value taking ownership of b.
func BufferOwned(b []byte) Value {
	return Value{Kind: KindBuffer, obj: &bufferObj{data: b}}
}

// Array constructs an Array value taking ownership of elems.
func Array(elems []Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{Kind: KindArray, obj: &arrayObj{data: elems}}
}

// Tuple constructs a Tuple value. Tuples are always crystal-phased.
func Tuple(elems []Value) Value {
	v := Value{Kind: KindTuple, obj: &tupleObj{data: elems}}
	v.Phase = PhaseCrystal
	return v
}

// Range constructs a half-open [start, end) Range with the given step.
func Range(start, end, step int64) Value {
	return Value{Kind: KindRange, obj: &rangeObj{start: start, end: end, step: step}}
}

// Struct constructs a Struct value. names and values must be parallel and
// equal in length to the registry's field-name list for typeName; the VM
// layer is responsible for checking that against the struct-meta registry.
func Struct(typeName string, names []string, values []Value) Value {
	return Value{Kind: KindStruct, obj: &structObj{name: typeName, fields: names, values: values}}
}

// Enum constructs an Enum value; payload may be nil for a unit variant.
func Enum(enumName, variant string, payload []Value) Value {
	return Value{Kind: KindEnum, obj: &enumObj{enumName: enumName, variant: variant, payload: payload}}
}

// Set constructs a Set value from the given elements, deduplicated by
// canonical map-key representation.
func Set(elems []Value) Value {
	s := newSetObj()
	for _, e := range elems {
		s.add(e)
	}
	return Value{Kind: KindSet, obj: s}
}

// Map constructs a Map value from parallel key/value slices.
func Map(keys []string, values []Value) Value {
	m := newMapObj()
	for i, k := range keys {
		m.set(k, values[i])
	}
	return Value{Kind: KindMap, obj: m}
}

// Ref constructs a new mutable reference cell holding v.
func Ref(v Value) Value {
	return Value{Kind: KindRef, obj: newRefObj(v)}
}

// Channel constructs a new bounded FIFO channel with the given capacity.
func Channel(capacity int) Value {
	return Value{Kind: KindChannel, obj: newChannelObj(capacity)}
}

// Iterator constructs an Iterator value from a driver function. next
// returns (value, true) while the sequence has more elements, or the zero
// Value and false once exhausted. Iterators are non-restartable.
func Iterator(next func() (Value, bool)) Value {
	return Value{Kind: KindIterator, obj: &iteratorObj{next: next}}
}

// Closure constructs a Closure value for a compiled function body.
func Closure(paramCount int, paramNames []string, variadic bool, defaults []Value, chunk *Chunk, upvalues []*Upvalue) Value {
	return Value{Kind: KindClosure, obj: &closureObj{
		paramCount: paramCount,
		paramNames: paramNames,
		variadic:   variadic,
		defaults:   defaults,
		chunk:      chunk,
		upvalues:   upvalues,
	}}
}

// NativeClosure constructs a Closure value wrapping a native function.
func NativeClosure(name string, paramCount int, variadic bool, fn NativeFunc) Value {
	return Value{Kind: KindClosure, obj: &closureObj{
		paramCount: paramCount,
		variadic:   variadic,
		native:     fn,
		nativeName: name,
	}}
}

// IsNil reports whether v is the Nil singleton.
func (v Value) IsNil() bool { return v.Kind == KindNil }

// IsUnit reports whether v is the Unit singleton.
func (v Value) IsUnit() bool { return v.Kind == KindUnit }

// AsInt returns the Int payload. Caller must check Kind == KindInt.
func (v Value) AsInt() int64 { return v.i }

// AsFloat returns the Float payload. Caller must check Kind == KindFloat.
func (v Value) AsFloat() float64 { return v.f }

// AsBool returns the Bool payload. Caller must check Kind == KindBool.
func (v Value) AsBool() bool { return v.i != 0 }

// AsString returns the String payload's bytes as a Go string. Each call
// copies the bytes, so the result never aliases the payload.
func (v Value) AsString() string {
	return string(v.obj.(*stringObj).data)
}

// AsBuffer returns a view of the Buffer payload's bytes.
func (v Value) AsBuffer() []byte {
	return v.obj.(*bufferObj).data
}

// AsArray returns the backing slice of an Array value. Mutating it mutates
// the value in place, matching the Array's "interior mutability" contract.
func (v Value) AsArray() *[]Value {
	return &v.obj.(*arrayObj).data
}

// AsTuple returns the backing slice of a Tuple value (read-only by
// convention; tuples are always crystal-phased).
func (v Value) AsTuple() []Value {
	return v.obj.(*tupleObj).data
}

// AsRange returns the (start, end, step) triple of a Range value.
func (v Value) AsRange() (start, end, step int64) {
	r := v.obj.(*rangeObj)
	return r.start, r.end, r.step
}

// StructName returns a Struct value's type name.
func (v Value) StructName() string { return v.obj.(*structObj).name }

// StructFields returns a Struct value's parallel field-name and
// field-value slices.
func (v Value) StructFields() (names []string, values []Value) {
	s := v.obj.(*structObj)
	return s.fields, s.values
}

// EnumVariant returns an Enum value's enum name, variant name, and payload.
func (v Value) EnumVariant() (enumName, variant string, payload []Value) {
	e := v.obj.(*enumObj)
	return e.enumName, e.variant, e.payload
}

// Closure-only accessors.

// ClosureInfo returns a Closure value's calling-convention metadata.
func (v Value) ClosureInfo() (paramCount int, paramNames []string, variadic bool, defaults []Value) {
	c := v.obj.(*closureObj)
	return c.paramCount, c.paramNames, c.variadic, c.defaults
}

// ClosureChunk returns the body chunk of a non-native closure, or nil if
// the closure wraps a native function.
func (v Value) ClosureChunk() *Chunk { return v.obj.(*closureObj).chunk }

// ClosureUpvalues returns the captured-upvalue vector of a closure.
func (v Value) ClosureUpvalues() []*Upvalue { return v.obj.(*closureObj).upvalues }

// ClosureNative returns the native function a closure wraps, and its
// registered name, or (nil, "") if the closure has a body chunk instead.
func (v Value) ClosureNative() (NativeFunc, string) {
	c := v.obj.(*closureObj)
	return c.native, c.nativeName
}

// IsNativeClosure reports whether a Closure value wraps a native function
// rather than a compiled body chunk — exactly one of the two is ever set.
func (v Value) IsNativeClosure() bool { return v.obj.(*closureObj).native != nil }

// identity returns the pointer used for reference-identity equality
// (Ref, Channel, Iterator, Closure).
func (v Value) identity() any { return v.obj }
