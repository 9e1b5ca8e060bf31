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

// Package vm implements the Lattice stack-based virtual machine: a
// fixed-capacity value stack, call-frame array, exception-handler stack,
// and defer stack, executing chunks produced by the compiler or decoded
// by the codec package.
package vm

// Opcode is an 8-bit instruction code for the Lattice stack VM.
type Opcode uint8

const (
	// ---- Constants and literals --------------------------------------------

	// OpConstant pushes Constants[idx] using the narrow (1-byte) index form.
	OpConstant Opcode = iota
	// OpConstantWide pushes Constants[idx] using the wide (2-byte LE) index form.
	OpConstantWide
	// OpNil pushes the Nil singleton.
	OpNil
	// OpUnit pushes the Unit singleton.
	OpUnit
	// OpTrue pushes Bool(true).
	OpTrue
	// OpFalse pushes Bool(false).
	OpFalse
	// OpPop discards the top of stack.
	OpPop

	// ---- Local access --------------------------------------------------------

	// OpGetLocal pushes stack[frame.base+slot].
	OpGetLocal
	// OpSetLocal stores the top of stack (without popping) into stack[frame.base+slot].
	OpSetLocal

	// ---- Global access ---------------------------------------------------

	// OpGetGlobal pushes env.Get(name) where name is Constants[idx] (narrow idx).
	OpGetGlobal
	// OpGetGlobalWide is OpGetGlobal with a wide (2-byte) constant index.
	OpGetGlobalWide
	// OpSetGlobal assigns the top of stack (without popping) to an existing global.
	OpSetGlobal
	// OpSetGlobalWide is OpSetGlobal with a wide constant index.
	OpSetGlobalWide
	// OpDefineGlobal defines a new global bound to the popped top of stack.
	OpDefineGlobal
	// OpDefineGlobalWide is OpDefineGlobal with a wide constant index.
	OpDefineGlobalWide

	// ---- Upvalue access ----------------------------------------------------

	// OpGetUpvalue pushes the value of the current closure's upvalue[idx].
	OpGetUpvalue
	// OpSetUpvalue stores the top of stack (without popping) into upvalue[idx].
	OpSetUpvalue

	// ---- Arithmetic, bitwise, comparison -----------------------------------

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitNot
	OpShl
	OpShr
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpNot

	// ---- Control flow -------------------------------------------------------

	// OpJump adds a signed byte offset to IP unconditionally.
	OpJump
	// OpJumpIfFalse pops the condition; adds the signed byte offset to IP if falsy.
	OpJumpIfFalse

	// ---- Calls and closures -------------------------------------------------

	// OpCall invokes the callee beneath the top argCount stack values.
	OpCall
	// OpReturn pops the current frame, running its defers, and pushes the
	// return value onto the caller's stack.
	OpReturn
	// OpClosure builds a Closure from a sub-chunk constant (wide index) and a
	// following upvalue-capture descriptor table: a 1-byte count, then that
	// many (1-byte is-local flag, 1-byte index) pairs.
	OpClosure

	// ---- Exceptions and defers ----------------------------------------------

	// OpTry pushes an exception handler whose catch body begins at the
	// 2-byte relative offset operand.
	OpTry
	// OpEndTry pops the innermost exception handler.
	OpEndTry
	// OpThrow unwinds to the nearest handler with the popped value, or sets
	// the VM's runtime-error state if none remains.
	OpThrow
	// OpDefer pops a zero-argument Closure (built beforehand with OpClosure,
	// capturing whatever locals its body needs as upvalues) and registers it
	// to run, LIFO, when the current frame returns or an enclosing scope
	// deeper than its registration depth exits.
	OpDefer
	// OpEnterScope increments the current frame's lexical scope depth; its
	// matching OpEndScope later runs whatever defers were registered deeper
	// than the depth it restores to.
	OpEnterScope
	// OpEndScope runs defers registered at a scope depth greater than the
	// 1-byte operand, then restores the frame's scope depth to that operand,
	// without popping the frame.
	OpEndScope

	// ---- Composite values ----------------------------------------------------

	// OpStructBuild pops fieldCount values and builds a Struct named by the
	// wide constant index operand; field names follow as fieldCount wide
	// constant indices.
	OpStructBuild
	// OpGetField pops a Struct and pushes the field named by the wide
	// constant index operand.
	OpGetField
	// OpSetField pops a value and a Struct, writes the field named by the
	// wide constant index operand, and pushes the mutated Struct back.
	OpSetField
	// OpEnumBuild pops payloadCount values and builds an Enum; operands are
	// the wide enum-name and variant-name constant indices followed by a
	// 1-byte payload count.
	OpEnumBuild
	// OpEnumTest pops an Enum and pushes a Bool testing its variant name
	// against the wide constant index operand, without consuming the Enum's
	// payload (the Enum is pushed back beneath the Bool).
	OpEnumTest
	// OpTupleBuild pops the 1-byte operand count of values and pushes a Tuple.
	OpTupleBuild
	// OpArrayBuild pops the 2-byte wide operand count of values and pushes an Array.
	OpArrayBuild
	// OpMapBuild pops 2*count values (key, value, ...) per the wide operand
	// count and pushes a Map; keys must be String.
	OpMapBuild
	// OpIndexGet pops an index and a container, pushes the element.
	OpIndexGet
	// OpIndexSet pops a value, an index, and a container; writes the element.
	OpIndexSet
	// OpRangeBuild pops step, end, start (in that push order) and pushes a Range.
	OpRangeBuild
	// OpIterOpen pops an iterable and pushes an Iterator over it.
	OpIterOpen
	// OpIterNext pops an Iterator, pushes it back, then pushes (value, true)
	// or (Nil, false) — i.e. pushes a Bool "has next" flag above the value.
	OpIterNext

	// ---- Structured concurrency ---------------------------------------------

	// OpScopeEnter opens a new structured-concurrency scope: a cancellation
	// context and an errgroup that OpScopeExit awaits.
	OpScopeEnter
	// OpSpawn pops a zero-argument Closure and runs it on a cloned worker VM
	// under the innermost open scope.
	OpSpawn
	// OpScopeExit awaits every child spawned in the innermost scope. If any
	// child faulted, the first such fault is re-thrown in the parent after
	// the remaining children are cancelled.
	OpScopeExit

	// opcodeCount must remain last; it bounds the opcode metadata table.
	opcodeCount
)

// operandInfo describes the number of operand bytes following an opcode
// byte, and whether the opcode has a variable-length tail the decoder must
// compute specially (closures, struct/enum builds).
type operandInfo struct {
	name     string
	width    int  // fixed operand byte count, excluding any variable tail
	variable bool // true if the instruction has additional bytes beyond width
}

var opcodeTable = [opcodeCount]operandInfo{
	OpConstant:          {"CONSTANT", 1, false},
	OpConstantWide:      {"CONSTANT_WIDE", 2, false},
	OpNil:               {"NIL", 0, false},
	OpUnit:              {"UNIT", 0, false},
	OpTrue:              {"TRUE", 0, false},
	OpFalse:             {"FALSE", 0, false},
	OpPop:               {"POP", 0, false},
	OpGetLocal:          {"GET_LOCAL", 1, false},
	OpSetLocal:          {"SET_LOCAL", 1, false},
	OpGetGlobal:         {"GET_GLOBAL", 1, false},
	OpGetGlobalWide:     {"GET_GLOBAL_WIDE", 2, false},
	OpSetGlobal:         {"SET_GLOBAL", 1, false},
	OpSetGlobalWide:     {"SET_GLOBAL_WIDE", 2, false},
	OpDefineGlobal:      {"DEFINE_GLOBAL", 1, false},
	OpDefineGlobalWide:  {"DEFINE_GLOBAL_WIDE", 2, false},
	OpGetUpvalue:        {"GET_UPVALUE", 1, false},
	OpSetUpvalue:        {"SET_UPVALUE", 1, false},
	OpAdd:               {"ADD", 0, false},
	OpSub:               {"SUB", 0, false},
	OpMul:               {"MUL", 0, false},
	OpDiv:               {"DIV", 0, false},
	OpMod:               {"MOD", 0, false},
	OpNeg:               {"NEG", 0, false},
	OpBitAnd:            {"BIT_AND", 0, false},
	OpBitOr:             {"BIT_OR", 0, false},
	OpBitXor:            {"BIT_XOR", 0, false},
	OpBitNot:            {"BIT_NOT", 0, false},
	OpShl:               {"SHL", 0, false},
	OpShr:               {"SHR", 0, false},
	OpEq:                {"EQ", 0, false},
	OpNeq:               {"NEQ", 0, false},
	OpLt:                {"LT", 0, false},
	OpLte:               {"LTE", 0, false},
	OpGt:                {"GT", 0, false},
	OpGte:               {"GTE", 0, false},
	OpNot:               {"NOT", 0, false},
	OpJump:              {"JUMP", 1, false},
	OpJumpIfFalse:       {"JUMP_IF_FALSE", 1, false},
	OpCall:              {"CALL", 1, false},
	OpReturn:            {"RETURN", 0, false},
	OpClosure:           {"CLOSURE", 2, true},
	OpTry:               {"TRY", 2, false},
	OpEndTry:            {"END_TRY", 0, false},
	OpThrow:             {"THROW", 0, false},
	OpDefer:             {"DEFER", 0, false},
	OpEnterScope:        {"ENTER_SCOPE", 0, false},
	OpEndScope:          {"END_SCOPE", 1, false},
	OpStructBuild:       {"STRUCT_BUILD", 2, true},
	OpGetField:          {"GET_FIELD", 2, false},
	OpSetField:          {"SET_FIELD", 2, false},
	OpEnumBuild:         {"ENUM_BUILD", 5, false},
	OpEnumTest:          {"ENUM_TEST", 2, false},
	OpTupleBuild:        {"TUPLE_BUILD", 1, false},
	OpArrayBuild:        {"ARRAY_BUILD", 2, false},
	OpMapBuild:          {"MAP_BUILD", 2, false},
	OpIndexGet:          {"INDEX_GET", 0, false},
	OpIndexSet:          {"INDEX_SET", 0, false},
	OpRangeBuild:        {"RANGE_BUILD", 0, false},
	OpIterOpen:          {"ITER_OPEN", 0, false},
	OpIterNext:          {"ITER_NEXT", 0, false},
	OpScopeEnter:        {"SCOPE_ENTER", 0, false},
	OpSpawn:             {"SPAWN", 0, false},
	OpScopeExit:         {"SCOPE_EXIT", 0, false},
}

// String returns the mnemonic name of the opcode, used by Disassemble and
// in fault messages.
func (op Opcode) String() string {
	if int(op) >= len(opcodeTable) || opcodeTable[op].name == "" {
		return "UNKNOWN"
	}
	return opcodeTable[op].name
}

// FixedWidth returns the number of fixed operand bytes following the
// opcode byte (not counting any variable-length tail).
func (op Opcode) FixedWidth() int {
	if int(op) >= len(opcodeTable) {
		return 0
	}
	return opcodeTable[op].width
}
