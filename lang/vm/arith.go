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

// execBinary pops the right then left operand and dispatches op, pushing
// its result. Arithmetic and ordering promote Int to Float whenever either
// side is already a Float; + also concatenates two Strings and ordering
// also compares two Strings. OpEq/OpNeq accept any pair and use core.Equal,
// so an Int never equals a Float. Every other kind pairing is a runtime fault.
func (v *VM) execBinary(op Opcode) *Fault {
	b := v.pop()
	a := v.pop()

	switch op {
	case OpAdd:
		if a.Kind == core.KindString && b.Kind == core.KindString {
			return v.pushOrFault(core.String(a.AsString() + b.AsString()))
		}
		return v.numericOp(a, b, func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y })
	case OpSub:
		return v.numericOp(a, b, func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y })
	case OpMul:
		return v.numericOp(a, b, func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y })
	case OpDiv:
		if a.Kind == core.KindInt && b.Kind == core.KindInt {
			if b.AsInt() == 0 {
				return newFault(FaultRuntime, "integer division by zero")
			}
			return v.pushOrFault(core.Int(a.AsInt() / b.AsInt()))
		}
		return v.numericOp(a, b, nil, func(x, y float64) float64 { return x / y })
	case OpMod:
		if a.Kind != core.KindInt || b.Kind != core.KindInt {
			return newFault(FaultRuntime, "%% requires int operands, got %s and %s", a.Kind, b.Kind)
		}
		if b.AsInt() == 0 {
			return newFault(FaultRuntime, "integer modulo by zero")
		}
		return v.pushOrFault(core.Int(a.AsInt() % b.AsInt()))
	case OpBitAnd:
		return v.intOp(a, b, func(x, y int64) int64 { return x & y })
	case OpBitOr:
		return v.intOp(a, b, func(x, y int64) int64 { return x | y })
	case OpBitXor:
		return v.intOp(a, b, func(x, y int64) int64 { return x ^ y })
	case OpShl:
		return v.intOp(a, b, func(x, y int64) int64 { return x << uint64(y) })
	case OpShr:
		return v.intOp(a, b, func(x, y int64) int64 { return x >> uint64(y) })
	case OpEq:
		return v.pushOrFault(core.Bool(core.Equal(a, b)))
	case OpNeq:
		return v.pushOrFault(core.Bool(!core.Equal(a, b)))
	case OpLt:
		return v.compareOp(a, b, func(c int) bool { return c < 0 })
	case OpLte:
		return v.compareOp(a, b, func(c int) bool { return c <= 0 })
	case OpGt:
		return v.compareOp(a, b, func(c int) bool { return c > 0 })
	case OpGte:
		return v.compareOp(a, b, func(c int) bool { return c >= 0 })
	default:
		return newFault(FaultInternal, "execBinary: unhandled opcode %s", op)
	}
}

func (v *VM) pushOrFault(val core.Value) *Fault {
	if err := v.push(val); err != nil {
		return err.(*Fault)
	}
	return nil
}

// numericOp applies intFn when both operands are Int, or floatFn (with Int
// operands promoted) when either is a Float. intFn may be nil for
// operations (like float division) with no meaningful pure-Int form in this
// helper's caller, which handles that case itself before delegating.
func (v *VM) numericOp(a, b core.Value, intFn func(int64, int64) int64, floatFn func(float64, float64) float64) *Fault {
	if a.Kind == core.KindInt && b.Kind == core.KindInt && intFn != nil {
		return v.pushOrFault(core.Int(intFn(a.AsInt(), b.AsInt())))
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return newFault(FaultRuntime, "arithmetic requires numeric operands, got %s and %s", a.Kind, b.Kind)
	}
	return v.pushOrFault(core.Float(floatFn(af, bf)))
}

func (v *VM) intOp(a, b core.Value, fn func(int64, int64) int64) *Fault {
	if a.Kind != core.KindInt || b.Kind != core.KindInt {
		return newFault(FaultRuntime, "bitwise operation requires int operands, got %s and %s", a.Kind, b.Kind)
	}
	return v.pushOrFault(core.Int(fn(a.AsInt(), b.AsInt())))
}

func (v *VM) compareOp(a, b core.Value, accept func(int) bool) *Fault {
	if a.Kind == core.KindString && b.Kind == core.KindString {
		return v.pushOrFault(core.Bool(accept(stringCompare(a.AsString(), b.AsString()))))
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return newFault(FaultRuntime, "comparison requires numeric or string operands, got %s and %s", a.Kind, b.Kind)
	}
	switch {
	case af < bf:
		return v.pushOrFault(core.Bool(accept(-1)))
	case af > bf:
		return v.pushOrFault(core.Bool(accept(1)))
	default:
		return v.pushOrFault(core.Bool(accept(0)))
	}
}

func stringCompare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func asFloat(v core.Value) (float64, bool) {
	switch v.Kind {
	case core.KindInt:
		return float64(v.AsInt()), true
	case core.KindFloat:
		return v.AsFloat(), true
	default:
		return 0, false
	}
}

// execUnary pops one operand and dispatches Neg, BitNot, or Not.
func (v *VM) execUnary(op Opcode) *Fault {
	a := v.pop()
	switch op {
	case OpNeg:
		switch a.Kind {
		case core.KindInt:
			return v.pushOrFault(core.Int(-a.AsInt()))
		case core.KindFloat:
			return v.pushOrFault(core.Float(-a.AsFloat()))
		default:
			return newFault(FaultRuntime, "unary - requires a numeric operand, got %s", a.Kind)
		}
	case OpBitNot:
		if a.Kind != core.KindInt {
			return newFault(FaultRuntime, "unary ~ requires an int operand, got %s", a.Kind)
		}
		return v.pushOrFault(core.Int(^a.AsInt()))
	case OpNot:
		if a.Kind != core.KindBool {
			return newFault(FaultRuntime, "unary ! requires a bool operand, got %s", a.Kind)
		}
		return v.pushOrFault(core.Bool(!a.AsBool()))
	default:
		return newFault(FaultInternal, "execUnary: unhandled opcode %s", op)
	}
}
