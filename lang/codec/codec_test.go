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

package codec

import (
	"bytes"
	"math"
	"testing"

	"github.com/ajokela/lattice-sub004/lang/core"
)

func sampleChunk() *core.Chunk {
	c := core.NewChunk()
	c.WriteAll([]byte{0x01, 0x02, 0x03}, 1)
	c.Write(0x04, 2)
	c.AddConstant(core.Int(42))
	c.AddConstant(core.Float(3.25))
	c.AddConstant(core.Bool(true))
	c.AddConstant(core.String("hello"))
	c.AddConstant(core.Nil)
	c.AddConstant(core.Unit)
	c.SetLocalName(0, "x")
	c.SetLocalName(2, "y")
	c.SetName("main")
	return c
}

func TestEncodeHeader(t *testing.T) {
	c := sampleChunk()
	data, err := EncodeBytes(c)
	if err != nil {
		t.Fatalf("EncodeBytes: %v", err)
	}
	if len(data) < 8 {
		t.Fatalf("encoded artifact shorter than the header: %d bytes", len(data))
	}
	if !bytes.Equal(data[0:4], Magic[:]) {
		t.Fatalf("magic = %q, want %q", data[0:4], Magic[:])
	}
	if data[4] != 1 || data[5] != 0 {
		t.Fatalf("version bytes = %v, want little-endian 1", data[4:6])
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	c := sampleChunk()
	a, err := EncodeBytes(c)
	if err != nil {
		t.Fatalf("EncodeBytes (first): %v", err)
	}
	b, err := EncodeBytes(c)
	if err != nil {
		t.Fatalf("EncodeBytes (second): %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("two encodings of the same chunk differ")
	}
}

func TestRoundTripScalarConstants(t *testing.T) {
	c := sampleChunk()
	data, err := EncodeBytes(c)
	if err != nil {
		t.Fatalf("EncodeBytes: %v", err)
	}
	got, err := DecodeBytes(data)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if !bytes.Equal(got.Code, c.Code) {
		t.Fatalf("Code mismatch: got %v, want %v", got.Code, c.Code)
	}
	if len(got.Lines) != len(c.Lines) {
		t.Fatalf("Lines length mismatch: got %d, want %d", len(got.Lines), len(c.Lines))
	}
	for i := range c.Lines {
		if got.Lines[i] != c.Lines[i] {
			t.Fatalf("Lines[%d] = %d, want %d", i, got.Lines[i], c.Lines[i])
		}
	}
	if len(got.Constants) != len(c.Constants) {
		t.Fatalf("Constants length mismatch: got %d, want %d", len(got.Constants), len(c.Constants))
	}
	for i := range c.Constants {
		if !core.Equal(got.Constants[i], c.Constants[i]) {
			t.Errorf("Constants[%d] = %s, want %s", i, core.Repr(got.Constants[i]), core.Repr(c.Constants[i]))
		}
	}
	if got.LocalName(0) != "x" || got.LocalName(2) != "y" {
		t.Fatalf("local names = (%q, %q), want (%q, %q)", got.LocalName(0), got.LocalName(2), "x", "y")
	}
	if len(got.LocalNames) != len(c.LocalNames) {
		t.Fatalf("LocalNames length mismatch: got %d, want %d", len(got.LocalNames), len(c.LocalNames))
	}
	if got.Name != c.Name {
		t.Fatalf("Name = %q, want %q", got.Name, c.Name)
	}
}

func TestRoundTripFloatIsBitExact(t *testing.T) {
	c := core.NewChunk()
	c.AddConstant(core.Float(0.1))
	c.AddConstant(core.Float(math.Copysign(0, -1)))
	data, err := EncodeBytes(c)
	if err != nil {
		t.Fatalf("EncodeBytes: %v", err)
	}
	got, err := DecodeBytes(data)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if got.Constants[0].AsFloat() != 0.1 {
		t.Fatalf("Constants[0] = %v, want 0.1", got.Constants[0].AsFloat())
	}
	if f := got.Constants[1].AsFloat(); f != 0 || !math.Signbit(f) {
		t.Fatalf("negative-zero float did not round-trip")
	}
}

func TestRoundTripNestedClosure(t *testing.T) {
	inner := core.NewChunk()
	inner.Write(0x01, 1)
	inner.AddConstant(core.Int(7))
	inner.SetName("inner")

	outer := core.NewChunk()
	outer.Write(0x02, 1)
	outerClosure := core.Closure(1, []string{"x"}, false, nil, inner, nil)
	outer.AddConstant(outerClosure)
	outer.SetName("outer")

	data, err := EncodeBytes(outer)
	if err != nil {
		t.Fatalf("EncodeBytes: %v", err)
	}
	got, err := DecodeBytes(data)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if len(got.Constants) != 1 || got.Constants[0].Kind != core.KindClosure {
		t.Fatalf("expected a single closure constant, got %v", got.Constants)
	}
	paramCount, _, variadic, _ := got.Constants[0].ClosureInfo()
	if paramCount != 1 || variadic {
		t.Fatalf("closure info = (%d, variadic=%v), want (1, false)", paramCount, variadic)
	}
	subChunk := got.Constants[0].ClosureChunk()
	if subChunk == nil {
		t.Fatalf("decoded closure has no body chunk")
	}
	if subChunk.Name != "inner" {
		t.Fatalf("sub-chunk Name = %q, want %q", subChunk.Name, "inner")
	}
	if len(subChunk.Constants) != 1 || subChunk.Constants[0].AsInt() != 7 {
		t.Fatalf("sub-chunk constants = %v, want [Int(7)]", subChunk.Constants)
	}
}

func TestNonConstantKindSerializesAsNil(t *testing.T) {
	c := core.NewChunk()
	c.AddConstant(core.Array([]core.Value{core.Int(1)}))
	data, err := EncodeBytes(c)
	if err != nil {
		t.Fatalf("EncodeBytes: %v", err)
	}
	got, err := DecodeBytes(data)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if !got.Constants[0].IsNil() {
		t.Fatalf("Constants[0].Kind = %v, want Nil (arrays are not valid constants)", got.Constants[0].Kind)
	}
}

func TestDecodeRejectsShortHeader(t *testing.T) {
	_, err := DecodeBytes([]byte{'L', 'A', 'T'})
	if err != ErrShortHeader {
		t.Fatalf("Decode(3 bytes) error = %v, want ErrShortHeader", err)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	data := []byte{'X', 'X', 'X', 'X', 1, 0, 0, 0}
	_, err := DecodeBytes(data)
	if err != ErrBadMagic {
		t.Fatalf("Decode(bad magic) error = %v, want ErrBadMagic", err)
	}
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	data := []byte{'L', 'A', 'T', 'C', 9, 0, 0, 0}
	_, err := DecodeBytes(data)
	if err == nil {
		t.Fatalf("Decode(version 9) succeeded, want ErrBadVersion")
	}
}

func TestDecodeToleratesNonzeroReserved(t *testing.T) {
	c := core.NewChunk()
	data, err := EncodeBytes(c)
	if err != nil {
		t.Fatalf("EncodeBytes: %v", err)
	}
	data[6], data[7] = 0xFF, 0xFF
	if _, err := DecodeBytes(data); err != nil {
		t.Fatalf("Decode with nonzero reserved field = %v, want no error", err)
	}
}

func TestDecodeRejectsTruncationAtEveryOffset(t *testing.T) {
	c := sampleChunk()
	data, err := EncodeBytes(c)
	if err != nil {
		t.Fatalf("EncodeBytes: %v", err)
	}
	for i := 0; i < len(data); i++ {
		if _, err := DecodeBytes(data[:i]); err == nil {
			t.Fatalf("Decode(data[:%d]) succeeded, want an error", i)
		}
	}
}

func TestDecodeRejectsUnknownConstantTag(t *testing.T) {
	c := core.NewChunk()
	c.AddConstant(core.Int(1))
	data, err := EncodeBytes(c)
	if err != nil {
		t.Fatalf("EncodeBytes: %v", err)
	}
	// Header(8) + code len(4) + lines len(4) + const count(4) = offset of the tag byte.
	tagOffset := 8 + 4 + 4 + 4
	data[tagOffset] = 0xEE
	if _, err := DecodeBytes(data); err == nil {
		t.Fatalf("Decode(unknown tag) succeeded, want an error")
	}
}
