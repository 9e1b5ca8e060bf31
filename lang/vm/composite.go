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

// execStructBuild reads a wide type-name constant index, a wide field count,
// and that many wide field-name constant indices, pops fieldCount values
// (pushed in field order), validates the field set against the runtime's
// struct-metadata registry, and pushes the built Struct.
func (v *VM) execStructBuild(f *frame) *Fault {
	typeIdx := v.readWide(f)
	typeName := f.chunk.Constants[typeIdx].AsString()
	count := v.readWide(f)
	names := make([]string, count)
	for i := 0; i < count; i++ {
		idx := v.readWide(f)
		names[i] = f.chunk.Constants[idx].AsString()
	}

	if registered, ok := v.runtime.StructFields(typeName); ok {
		if len(registered) != len(names) {
			return newFault(FaultRuntime, "struct %s expects %d fields, got %d", typeName, len(registered), len(names))
		}
		for i, want := range registered {
			if names[i] != want {
				return newFault(FaultRuntime, "struct %s field %d: expected %q, got %q", typeName, i, want, names[i])
			}
		}
	}

	values := make([]core.Value, count)
	copy(values, v.stack[v.stackTop-count:v.stackTop])
	v.stackTop -= count
	return v.pushOrFault(core.Struct(typeName, names, values))
}

func (v *VM) execGetField(f *frame) *Fault {
	idx := v.readWide(f)
	fieldName := f.chunk.Constants[idx].AsString()
	s := v.pop()
	if s.Kind != core.KindStruct {
		return newFault(FaultRuntime, "GET_FIELD requires a struct, got %s", s.Kind)
	}
	names, values := s.StructFields()
	for i, n := range names {
		if n == fieldName {
			return v.pushOrFault(values[i])
		}
	}
	return newFault(FaultRuntime, "struct %s has no field %q", s.StructName(), fieldName)
}

func (v *VM) execSetField(f *frame) *Fault {
	idx := v.readWide(f)
	fieldName := f.chunk.Constants[idx].AsString()
	val := v.pop()
	s := v.pop()
	if s.Kind != core.KindStruct {
		return newFault(FaultRuntime, "SET_FIELD requires a struct, got %s", s.Kind)
	}
	names, values := s.StructFields()
	for i, n := range names {
		if n == fieldName {
			values[i] = val
			return v.pushOrFault(s)
		}
	}
	return newFault(FaultRuntime, "struct %s has no field %q", s.StructName(), fieldName)
}

func (v *VM) execEnumBuild(f *frame) *Fault {
	enumIdx := v.readWide(f)
	variantIdx := v.readWide(f)
	count := int(v.readByte(f))
	enumName := f.chunk.Constants[enumIdx].AsString()
	variant := f.chunk.Constants[variantIdx].AsString()

	payload := make([]core.Value, count)
	copy(payload, v.stack[v.stackTop-count:v.stackTop])
	v.stackTop -= count
	return v.pushOrFault(core.Enum(enumName, variant, payload))
}

func (v *VM) execEnumTest(f *frame) *Fault {
	idx := v.readWide(f)
	wantVariant := f.chunk.Constants[idx].AsString()
	e := v.pop()
	if e.Kind != core.KindEnum {
		return newFault(FaultRuntime, "ENUM_TEST requires an enum, got %s", e.Kind)
	}
	_, variant, _ := e.EnumVariant()
	if err := v.push(e); err != nil {
		return err.(*Fault)
	}
	return v.pushOrFault(core.Bool(variant == wantVariant))
}

func (v *VM) execTupleBuild(count int) *Fault {
	elems := make([]core.Value, count)
	copy(elems, v.stack[v.stackTop-count:v.stackTop])
	v.stackTop -= count
	return v.pushOrFault(core.Tuple(elems))
}

func (v *VM) execArrayBuild(count int) *Fault {
	elems := make([]core.Value, count)
	copy(elems, v.stack[v.stackTop-count:v.stackTop])
	v.stackTop -= count
	return v.pushOrFault(core.Array(elems))
}

func (v *VM) execMapBuild(pairCount int) *Fault {
	keys := make([]string, pairCount)
	values := make([]core.Value, pairCount)
	base := v.stackTop - 2*pairCount
	for i := 0; i < pairCount; i++ {
		k := v.stack[base+2*i]
		if k.Kind != core.KindString {
			return newFault(FaultRuntime, "map keys must be strings, got %s", k.Kind)
		}
		keys[i] = k.AsString()
		values[i] = v.stack[base+2*i+1]
	}
	v.stackTop = base
	return v.pushOrFault(core.Map(keys, values))
}

func (v *VM) execIndexGet() *Fault {
	idx := v.pop()
	container := v.pop()
	switch container.Kind {
	case core.KindArray:
		arr := *container.AsArray()
		i, err := asIndex(idx, len(arr))
		if err != nil {
			return err
		}
		return v.pushOrFault(arr[i])
	case core.KindTuple:
		t := container.AsTuple()
		i, err := asIndex(idx, len(t))
		if err != nil {
			return err
		}
		return v.pushOrFault(t[i])
	case core.KindMap:
		if idx.Kind != core.KindString {
			return newFault(FaultRuntime, "map index must be a string, got %s", idx.Kind)
		}
		val, ok := container.MapGet(idx.AsString())
		if !ok {
			return newFault(FaultRuntime, "map has no entry for key %q", idx.AsString())
		}
		return v.pushOrFault(val)
	case core.KindString:
		s := container.AsString()
		i, err := asIndex(idx, len(s))
		if err != nil {
			return err
		}
		return v.pushOrFault(core.String(s[i : i+1]))
	case core.KindBuffer:
		b := container.AsBuffer()
		i, err := asIndex(idx, len(b))
		if err != nil {
			return err
		}
		return v.pushOrFault(core.Int(int64(b[i])))
	default:
		return newFault(FaultRuntime, "value of kind %s is not indexable", container.Kind)
	}
}

func (v *VM) execIndexSet() *Fault {
	val := v.pop()
	idx := v.pop()
	container := v.pop()
	switch container.Kind {
	case core.KindArray:
		arr := container.AsArray()
		i, err := asIndex(idx, len(*arr))
		if err != nil {
			return err
		}
		(*arr)[i] = val
		return nil
	case core.KindMap:
		if idx.Kind != core.KindString {
			return newFault(FaultRuntime, "map index must be a string, got %s", idx.Kind)
		}
		container.MapSet(idx.AsString(), val)
		return nil
	default:
		return newFault(FaultRuntime, "value of kind %s does not support index assignment", container.Kind)
	}
}

func asIndex(idx core.Value, length int) (int, *Fault) {
	if idx.Kind != core.KindInt {
		return 0, newFault(FaultRuntime, "index must be an int, got %s", idx.Kind)
	}
	i := idx.AsInt()
	if i < 0 || i >= int64(length) {
		return 0, newFault(FaultRuntime, "index %d out of bounds for length %d", i, length)
	}
	return int(i), nil
}

func (v *VM) execRangeBuild() *Fault {
	step := v.pop()
	end := v.pop()
	start := v.pop()
	if step.Kind != core.KindInt || end.Kind != core.KindInt || start.Kind != core.KindInt {
		return newFault(FaultRuntime, "range bounds and step must be int")
	}
	return v.pushOrFault(core.Range(start.AsInt(), end.AsInt(), step.AsInt()))
}

func (v *VM) execIterOpen() *Fault {
	iterable := v.pop()
	iter, fault := buildIterator(iterable)
	if fault != nil {
		return fault
	}
	return v.pushOrFault(iter)
}

func buildIterator(iterable core.Value) (core.Value, *Fault) {
	switch iterable.Kind {
	case core.KindArray:
		arr := iterable.AsArray()
		i := 0
		return core.Iterator(func() (core.Value, bool) {
			if i >= len(*arr) {
				return core.Value{}, false
			}
			val := (*arr)[i]
			i++
			return val, true
		}), nil
	case core.KindTuple:
		elems := iterable.AsTuple()
		i := 0
		return core.Iterator(func() (core.Value, bool) {
			if i >= len(elems) {
				return core.Value{}, false
			}
			val := elems[i]
			i++
			return val, true
		}), nil
	case core.KindSet:
		elems := iterable.SetElements()
		i := 0
		return core.Iterator(func() (core.Value, bool) {
			if i >= len(elems) {
				return core.Value{}, false
			}
			val := elems[i]
			i++
			return val, true
		}), nil
	case core.KindMap:
		keys := iterable.MapKeys()
		i := 0
		return core.Iterator(func() (core.Value, bool) {
			if i >= len(keys) {
				return core.Value{}, false
			}
			k := keys[i]
			i++
			val, _ := iterable.MapGet(k)
			return core.Tuple([]core.Value{core.String(k), val}), true
		}), nil
	case core.KindRange:
		start, end, step := iterable.AsRange()
		if step == 0 {
			return core.Value{}, newFault(FaultRuntime, "range step must not be zero")
		}
		cur := start
		return core.Iterator(func() (core.Value, bool) {
			if (step > 0 && cur >= end) || (step < 0 && cur <= end) {
				return core.Value{}, false
			}
			val := core.Int(cur)
			cur += step
			return val, true
		}), nil
	case core.KindString:
		s := iterable.AsString()
		i := 0
		return core.Iterator(func() (core.Value, bool) {
			if i >= len(s) {
				return core.Value{}, false
			}
			val := core.String(s[i : i+1])
			i++
			return val, true
		}), nil
	case core.KindBuffer:
		b := iterable.AsBuffer()
		i := 0
		return core.Iterator(func() (core.Value, bool) {
			if i >= len(b) {
				return core.Value{}, false
			}
			val := core.Int(int64(b[i]))
			i++
			return val, true
		}), nil
	default:
		return core.Value{}, newFault(FaultRuntime, "value of kind %s is not iterable", iterable.Kind)
	}
}

func (v *VM) execIterNext() *Fault {
	iter := v.pop()
	if iter.Kind != core.KindIterator {
		return newFault(FaultRuntime, "ITER_NEXT requires an iterator, got %s", iter.Kind)
	}
	val, hasNext := iter.IteratorNext()
	if err := v.push(iter); err != nil {
		return err.(*Fault)
	}
	if !hasNext {
		if err := v.push(core.Nil); err != nil {
			return err.(*Fault)
		}
		return v.pushOrFault(core.Bool(false))
	}
	if err := v.push(val); err != nil {
		return err.(*Fault)
	}
	return v.pushOrFault(core.Bool(true))
}
