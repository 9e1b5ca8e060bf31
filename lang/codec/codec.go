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

// Package codec implements the deterministic ".latc" binary bytecode
// format: a framed, little-endian, length-prefixed encoding of a
// core.Chunk and, recursively, any sub-chunks embedded as closure
// constants.
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ajokela/lattice-sub004/lang/core"
)

// Magic is the four ASCII bytes every .latc artifact begins with.
var Magic = [4]byte{'L', 'A', 'T', 'C'}

// Version is the only format version this package accepts. There is no
// cross-version compatibility: a mismatched version is always an error.
const Version uint16 = 1

// Constant tags, one byte each, preceding every serialized constant.
const (
	tagInt uint8 = iota
	tagFloat
	tagBool
	tagString
	tagNil
	tagUnit
	tagClosure
)

// Error sentinels of this package; use errors.Is against them to classify a
// Decode failure programmatically. ErrNonConstantVal is not returned by
// Encode or Decode: non-constant kinds are encoded as Nil instead.
var (
	ErrShortHeader    = errors.New("codec: file shorter than the 8-byte header")
	ErrBadMagic       = errors.New("codec: magic bytes do not match")
	ErrBadVersion     = errors.New("codec: unsupported format version")
	ErrTruncated      = errors.New("codec: length prefix exceeds remaining bytes")
	ErrUnknownTag     = errors.New("codec: unknown constant tag")
	ErrNonConstantVal = errors.New("codec: value kind cannot appear in a constant pool")
)

// Encode writes c, and recursively any closure-constant sub-chunks, to w
// in the .latc format. Encoding is deterministic: calling Encode twice on
// the same chunk produces byte-identical output.
func Encode(w io.Writer, c *core.Chunk) error {
	var buf bytes.Buffer
	buf.Write(Magic[:])
	writeU16(&buf, Version)
	writeU16(&buf, 0) // reserved

	if err := encodeChunkPayload(&buf, c); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// EncodeBytes is a convenience wrapper returning the encoded artifact as
// a byte slice.
func EncodeBytes(c *core.Chunk) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a complete .latc artifact from r and reconstructs its
// top-level chunk. Any failure releases all partially constructed state
// (the caller receives a nil *core.Chunk).
func Decode(r io.Reader) (*core.Chunk, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("codec: reading artifact: %w", err)
	}
	if len(data) < 8 {
		return nil, ErrShortHeader
	}
	if !bytes.Equal(data[0:4], Magic[:]) {
		return nil, ErrBadMagic
	}
	version := binary.LittleEndian.Uint16(data[4:6])
	if version != Version {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrBadVersion, version, Version)
	}
	// data[6:8] is the reserved field; a nonzero value is ignored, not an error.

	dec := &decoder{buf: data[8:]}
	c, err := dec.chunk()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DecodeBytes is a convenience wrapper over Decode for an in-memory artifact.
func DecodeBytes(data []byte) (*core.Chunk, error) {
	return Decode(bytes.NewReader(data))
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeI64(buf *bytes.Buffer, v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}

func writeF64(buf *bytes.Buffer, v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	buf.Write(b[:])
}

func encodeChunkPayload(buf *bytes.Buffer, c *core.Chunk) error {
	writeU32(buf, uint32(len(c.Code)))
	buf.Write(c.Code)

	writeU32(buf, uint32(len(c.Lines)))
	for _, ln := range c.Lines {
		writeU32(buf, uint32(ln))
	}

	writeU32(buf, uint32(len(c.Constants)))
	for _, v := range c.Constants {
		if err := encodeConstant(buf, v); err != nil {
			return err
		}
	}

	writeU32(buf, uint32(len(c.LocalNames)))
	for i := range c.LocalNames {
		name := c.LocalName(i)
		if name == "" && !hasLocalName(c, i) {
			buf.WriteByte(0)
			continue
		}
		buf.WriteByte(1)
		writeU32(buf, uint32(len(name)))
		buf.WriteString(name)
	}

	if c.Name == "" {
		buf.WriteByte(0)
	} else {
		buf.WriteByte(1)
		writeU32(buf, uint32(len(c.Name)))
		buf.WriteString(c.Name)
	}
	return nil
}

// hasLocalName distinguishes an explicitly-named empty string ("") from
// an unset slot, since both produce LocalName(i) == "".
func hasLocalName(c *core.Chunk, i int) bool {
	return i >= 0 && i < len(c.LocalNames) && c.LocalNames[i] != nil
}

func encodeConstant(buf *bytes.Buffer, v core.Value) error {
	switch v.Kind {
	case core.KindInt:
		buf.WriteByte(tagInt)
		writeI64(buf, v.AsInt())
	case core.KindFloat:
		buf.WriteByte(tagFloat)
		writeF64(buf, v.AsFloat())
	case core.KindBool:
		buf.WriteByte(tagBool)
		if v.AsBool() {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case core.KindString:
		buf.WriteByte(tagString)
		s := v.AsString()
		writeU32(buf, uint32(len(s)))
		buf.WriteString(s)
	case core.KindNil:
		buf.WriteByte(tagNil)
	case core.KindUnit:
		buf.WriteByte(tagUnit)
	case core.KindClosure:
		if v.IsNativeClosure() {
			// A native closure has no serializable body; the compiler must
			// never place one in a constant pool. Treat it like any other
			// non-constant kind: write Nil instead of failing the whole chunk.
			buf.WriteByte(tagNil)
			return nil
		}
		buf.WriteByte(tagClosure)
		paramCount, _, variadic, _ := v.ClosureInfo()
		writeU32(buf, uint32(paramCount))
		if variadic {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		return encodeChunkPayload(buf, v.ClosureChunk())
	default:
		// Arrays, maps, sets, and every other composite kind are not valid
		// constant-pool entries. Per format, write Nil rather than erroring:
		// the round trip silently loses the value, which is treated as a
		// compiler bug, not a codec bug.
		buf.WriteByte(tagNil)
	}
	return nil
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) remaining() int { return len(d.buf) - d.pos }

func (d *decoder) need(n int) error {
	if n < 0 || d.remaining() < n {
		return ErrTruncated
	}
	return nil
}

func (d *decoder) readBytes(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *decoder) i64() (int64, error) {
	b, err := d.readBytes(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (d *decoder) f64() (float64, error) {
	b, err := d.readBytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (d *decoder) byte() (byte, error) {
	b, err := d.readBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) str(n uint32) (string, error) {
	b, err := d.readBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *decoder) chunk() (*core.Chunk, error) {
	c := core.NewChunk()

	codeLen, err := d.u32()
	if err != nil {
		return nil, err
	}
	code, err := d.readBytes(int(codeLen))
	if err != nil {
		return nil, err
	}
	c.Code = append([]byte(nil), code...)

	lineCount, err := d.u32()
	if err != nil {
		return nil, err
	}
	lines := make([]int32, lineCount)
	for i := range lines {
		v, err := d.u32()
		if err != nil {
			return nil, err
		}
		lines[i] = int32(v)
	}
	c.Lines = lines

	constCount, err := d.u32()
	if err != nil {
		return nil, err
	}
	consts := make([]core.Value, constCount)
	for i := range consts {
		v, err := d.constant()
		if err != nil {
			return nil, err
		}
		consts[i] = v
	}
	c.Constants = consts

	localCap, err := d.u32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < localCap; i++ {
		present, err := d.byte()
		if err != nil {
			return nil, err
		}
		if present == 0 {
			continue
		}
		nameLen, err := d.u32()
		if err != nil {
			return nil, err
		}
		name, err := d.str(nameLen)
		if err != nil {
			return nil, err
		}
		c.SetLocalName(int(i), name)
	}
	for len(c.LocalNames) < int(localCap) {
		c.LocalNames = append(c.LocalNames, nil)
	}

	hasName, err := d.byte()
	if err != nil {
		return nil, err
	}
	if hasName != 0 {
		nameLen, err := d.u32()
		if err != nil {
			return nil, err
		}
		name, err := d.str(nameLen)
		if err != nil {
			return nil, err
		}
		c.SetName(name)
	}

	return c, nil
}

func (d *decoder) constant() (core.Value, error) {
	tag, err := d.byte()
	if err != nil {
		return core.Value{}, err
	}
	switch tag {
	case tagInt:
		v, err := d.i64()
		if err != nil {
			return core.Value{}, err
		}
		return core.Int(v), nil
	case tagFloat:
		v, err := d.f64()
		if err != nil {
			return core.Value{}, err
		}
		return core.Float(v), nil
	case tagBool:
		b, err := d.byte()
		if err != nil {
			return core.Value{}, err
		}
		return core.Bool(b != 0), nil
	case tagString:
		n, err := d.u32()
		if err != nil {
			return core.Value{}, err
		}
		s, err := d.str(n)
		if err != nil {
			return core.Value{}, err
		}
		return core.String(s), nil
	case tagNil:
		return core.Nil, nil
	case tagUnit:
		return core.Unit, nil
	case tagClosure:
		paramCount, err := d.u32()
		if err != nil {
			return core.Value{}, err
		}
		variadicByte, err := d.byte()
		if err != nil {
			return core.Value{}, err
		}
		sub, err := d.chunk()
		if err != nil {
			return core.Value{}, err
		}
		return core.Closure(int(paramCount), nil, variadicByte != 0, nil, sub, nil), nil
	default:
		return core.Value{}, fmt.Errorf("%w: %d", ErrUnknownTag, tag)
	}
}
