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

import "testing"

func TestZeroValueIsNil(t *testing.T) {
	var v Value
	if v.Kind != KindNil || !v.IsNil() {
		t.Fatalf("zero Value should be Nil, got Kind=%v", v.Kind)
	}
}

func TestPrimitiveConstructors(t *testing.T) {
	if got := Int(42).AsInt(); got != 42 {
		t.Errorf("Int(42).AsInt() = %d, want 42", got)
	}
	if got := Float(3.5).AsFloat(); got != 3.5 {
		t.Errorf("Float(3.5).AsFloat() = %v, want 3.5", got)
	}
	if !Bool(true).AsBool() {
		t.Errorf("Bool(true).AsBool() = false")
	}
	if Bool(false).AsBool() {
		t.Errorf("Bool(false).AsBool() = true")
	}
	if got := String("hi").AsString(); got != "hi" {
		t.Errorf("String(%q).AsString() = %q", "hi", got)
	}
	if !Unit.IsUnit() {
		t.Errorf("Unit.IsUnit() = false")
	}
}

func TestStringOwnedTakesOwnership(t *testing.T) {
	b := []byte("owned")
	v := StringOwned(b)
	if v.AsString() != "owned" {
		t.Fatalf("AsString() = %q, want %q", v.AsString(), "owned")
	}
}

func TestArrayIsInteriorlyMutable(t *testing.T) {
	v := Array([]Value{Int(1), Int(2)})
	ptr := v.AsArray()
	*ptr = append(*ptr, Int(3))
	if got := len(*v.AsArray()); got != 3 {
		t.Fatalf("array length after append = %d, want 3", got)
	}
	if got := (*v.AsArray())[2].AsInt(); got != 3 {
		t.Fatalf("appended element = %d, want 3", got)
	}
}

func TestTupleIsCrystalPhased(t *testing.T) {
	v := Tuple([]Value{Int(1), Int(2)})
	if v.Phase != PhaseCrystal {
		t.Fatalf("Tuple Phase = %v, want crystal", v.Phase)
	}
}

func TestRangeAccessors(t *testing.T) {
	v := Range(0, 10, 2)
	s, e, step := v.AsRange()
	if s != 0 || e != 10 || step != 2 {
		t.Fatalf("AsRange() = (%d, %d, %d), want (0, 10, 2)", s, e, step)
	}
}

func TestStructAccessors(t *testing.T) {
	v := Struct("Point", []string{"x", "y"}, []Value{Int(1), Int(2)})
	if v.StructName() != "Point" {
		t.Fatalf("StructName() = %q, want %q", v.StructName(), "Point")
	}
	names, values := v.StructFields()
	if len(names) != 2 || len(values) != 2 {
		t.Fatalf("StructFields() returned mismatched lengths")
	}
}

func TestEnumAccessors(t *testing.T) {
	v := Enum("Option", "Some", []Value{Int(5)})
	enumName, variant, payload := v.EnumVariant()
	if enumName != "Option" || variant != "Some" || len(payload) != 1 {
		t.Fatalf("EnumVariant() = (%q, %q, %v)", enumName, variant, payload)
	}
}

func TestSetDeduplicates(t *testing.T) {
	v := Set([]Value{Int(1), Int(2), Int(1)})
	s := v.obj.(*setObj)
	if s.len() != 2 {
		t.Fatalf("Set length = %d, want 2", s.len())
	}
}

func TestMapRoundTrip(t *testing.T) {
	v := Map([]string{"a", "b"}, []Value{Int(1), Int(2)})
	m := v.obj.(*mapObj)
	got, ok := m.get("a")
	if !ok || got.AsInt() != 1 {
		t.Fatalf("map[%q] = (%v, %v), want (1, true)", "a", got, ok)
	}
}

func TestRefLoadStore(t *testing.T) {
	v := Ref(Int(1))
	r := v.obj.(*refObj)
	r.store(Int(2))
	if got := r.load().AsInt(); got != 2 {
		t.Fatalf("ref.load().AsInt() = %d, want 2", got)
	}
}

func TestChannelCapacity(t *testing.T) {
	v := Channel(3)
	ch := v.obj.(*channelObj)
	if cap(ch.ch) != 3 {
		t.Fatalf("channel capacity = %d, want 3", cap(ch.ch))
	}
}

func TestIteratorDriver(t *testing.T) {
	i := 0
	v := Iterator(func() (Value, bool) {
		if i >= 2 {
			return Value{}, false
		}
		i++
		return Int(int64(i)), true
	})
	it := v.obj.(*iteratorObj)
	first, ok := it.next()
	if !ok || first.AsInt() != 1 {
		t.Fatalf("first next() = (%v, %v), want (1, true)", first, ok)
	}
}

func TestClosureParamInfo(t *testing.T) {
	chunk := NewChunk()
	v := Closure(2, []string{"a", "b"}, false, nil, chunk, nil)
	paramCount, paramNames, variadic, _ := v.ClosureInfo()
	if paramCount != 2 || len(paramNames) != 2 || variadic {
		t.Fatalf("ClosureInfo() = (%d, %v, %v)", paramCount, paramNames, variadic)
	}
	if v.ClosureChunk() != chunk {
		t.Fatalf("ClosureChunk() did not return the original chunk")
	}
	if v.IsNativeClosure() {
		t.Fatalf("IsNativeClosure() = true for a body-chunk closure")
	}
}

func TestNativeClosure(t *testing.T) {
	fn := func(vm NativeVM, args []Value) (Value, error) { return Unit, nil }
	v := NativeClosure("identity", 1, false, fn)
	if !v.IsNativeClosure() {
		t.Fatalf("IsNativeClosure() = false for a native closure")
	}
	got, name := v.ClosureNative()
	if got == nil || name != "identity" {
		t.Fatalf("ClosureNative() = (%v, %q), want non-nil fn and %q", got, name, "identity")
	}
}

func TestKindString(t *testing.T) {
	if KindInt.String() != "int" {
		t.Errorf("KindInt.String() = %q, want %q", KindInt.String(), "int")
	}
	if KindClosure.String() != "closure" {
		t.Errorf("KindClosure.String() = %q, want %q", KindClosure.String(), "closure")
	}
}

func TestPhaseString(t *testing.T) {
	if PhaseUnphased.String() != "unphased" {
		t.Errorf("PhaseUnphased.String() = %q", PhaseUnphased.String())
	}
	if PhaseFluid.String() != "fluid" {
		t.Errorf("PhaseFluid.String() = %q", PhaseFluid.String())
	}
	if PhaseCrystal.String() != "crystal" {
		t.Errorf("PhaseCrystal.String() = %q", PhaseCrystal.String())
	}
}
