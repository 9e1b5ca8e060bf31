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

import (
	"fmt"
	"strings"

	"github.com/ajokela/lattice-sub004/lang/core"
)

// Disassemble renders chunk's bytecode as a human-readable listing, one
// instruction per line: byte offset, source line (or "|" when it repeats
// the previous instruction's line), mnemonic, and decoded operands. Nested
// closure constants are disassembled recursively, indented and labeled by
// their constant-pool index, matching how a debugger would want to drill
// into a call it's stepped into.
func Disassemble(chunk *core.Chunk) string {
	var b strings.Builder
	disassembleInto(&b, chunk, "")
	return b.String()
}

func disassembleInto(b *strings.Builder, chunk *core.Chunk, indent string) {
	name := chunk.Name
	if name == "" {
		name = "<anonymous>"
	}
	fmt.Fprintf(b, "%s== %s ==\n", indent, name)

	prevLine := -1
	offset := 0
	for offset < len(chunk.Code) {
		op := Opcode(chunk.Code[offset])
		line := chunk.LineAt(offset)
		lineStr := fmt.Sprintf("%4d", line)
		if line == prevLine {
			lineStr = "   |"
		}
		prevLine = line

		operands, next := decodeOperands(chunk, op, offset+1)
		fmt.Fprintf(b, "%s%04d %s %-16s %s\n", indent, offset, lineStr, op.String(), operands)
		offset = next
	}

	for i, c := range chunk.Constants {
		if c.Kind == core.KindClosure && c.ClosureChunk() != nil {
			fmt.Fprintf(b, "%s-- const[%d] closure body --\n", indent, i)
			disassembleInto(b, c.ClosureChunk(), indent+"  ")
		}
	}
}

// decodeOperands renders op's operands starting at pos (just past the
// opcode byte) and returns the offset of the next instruction.
func decodeOperands(chunk *core.Chunk, op Opcode, pos int) (string, int) {
	u8 := func(p int) int { return int(chunk.Code[p]) }
	u16 := func(p int) int { return int(chunk.Code[p]) | int(chunk.Code[p+1])<<8 }

	switch op {
	case OpConstant, OpGetLocal, OpSetLocal, OpGetGlobal, OpSetGlobal,
		OpDefineGlobal, OpGetUpvalue, OpSetUpvalue, OpCall, OpTupleBuild, OpEndScope:
		return fmt.Sprintf("%d", u8(pos)), pos + 1
	case OpConstantWide, OpGetGlobalWide, OpSetGlobalWide, OpDefineGlobalWide,
		OpArrayBuild, OpMapBuild, OpGetField, OpSetField, OpEnumTest, OpTry:
		return fmt.Sprintf("%d", u16(pos)), pos + 2
	case OpJump, OpJumpIfFalse:
		return fmt.Sprintf("%+d", int(int8(chunk.Code[pos]))), pos + 1
	case OpEnumBuild:
		enumIdx, variantIdx, count := u16(pos), u16(pos+2), u8(pos+4)
		return fmt.Sprintf("enum=%d variant=%d payload=%d", enumIdx, variantIdx, count), pos + 5
	case OpClosure:
		idx := u16(pos)
		n := u8(pos + 2)
		desc := make([]string, n)
		q := pos + 3
		for i := 0; i < n; i++ {
			kind := "upval"
			if chunk.Code[q] != 0 {
				kind = "local"
			}
			desc[i] = fmt.Sprintf("%s:%d", kind, chunk.Code[q+1])
			q += 2
		}
		return fmt.Sprintf("const=%d [%s]", idx, strings.Join(desc, ", ")), q
	case OpStructBuild:
		typeIdx := u16(pos)
		count := u16(pos + 2)
		names := make([]string, count)
		q := pos + 4
		for i := 0; i < count; i++ {
			names[i] = fmt.Sprintf("%d", u16(q))
			q += 2
		}
		return fmt.Sprintf("type=%d fields=[%s]", typeIdx, strings.Join(names, ", ")), q
	default:
		return "", pos
	}
}

// StackTrace renders the VM's currently active frames, innermost first, as
// a chunk-name:line listing — the shape a runtime fault's accompanying
// trace takes when surfaced to a debugger or CLI.
func (v *VM) StackTrace() []string {
	lines := make([]string, 0, v.frameCount)
	for i := v.frameCount - 1; i >= 0; i-- {
		f := &v.frames[i]
		name := f.chunk.Name
		if name == "" {
			name = "<anonymous>"
		}
		ip := f.ip - 1
		if ip < 0 {
			ip = 0
		}
		lines = append(lines, fmt.Sprintf("%s:%d", name, f.chunk.LineAt(ip)))
	}
	return lines
}
