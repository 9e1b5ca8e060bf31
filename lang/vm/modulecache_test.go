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
	"path/filepath"
	"testing"

	"github.com/ajokela/lattice-sub004/lang/core"
)

func TestModuleCacheInMemoryTier(t *testing.T) {
	v := New(newTestRuntime())
	if _, ok := v.LookupModule("lib/util.lat"); ok {
		t.Fatalf("LookupModule on an empty cache reported a hit")
	}
	ns := core.Map([]string{"answer"}, []core.Value{core.Int(42)})
	v.CacheModule("lib/util.lat", ns)
	got, ok := v.LookupModule("lib/util.lat")
	if !ok {
		t.Fatalf("LookupModule missed a just-cached module")
	}
	val, found := got.MapGet("answer")
	if !found || val.AsInt() != 42 {
		t.Fatalf("cached module namespace = %s, want answer: 42", core.Repr(got))
	}
}

func TestLoadModuleChunkWithoutStoreIsMiss(t *testing.T) {
	v := New(newTestRuntime())
	c, ok, err := v.LoadModuleChunk("lib/util.lat")
	if c != nil || ok || err != nil {
		t.Fatalf("LoadModuleChunk with no store = (%v, %v, %v), want (nil, false, nil)", c, ok, err)
	}
	if err := v.StoreModuleChunk("lib/util.lat", core.NewChunk()); err != nil {
		t.Fatalf("StoreModuleChunk with no store = %v, want nil", err)
	}
}

func TestDiskModuleStoreRoundTrip(t *testing.T) {
	store, err := OpenDiskModuleStore(filepath.Join(t.TempDir(), "modules"))
	if err != nil {
		t.Fatalf("OpenDiskModuleStore: %v", err)
	}
	defer store.Close()

	chunk := core.NewChunk()
	chunk.Write(byte(OpNil), 1)
	chunk.Write(byte(OpReturn), 1)
	chunk.AddConstant(core.String("util"))
	chunk.SetName("lib/util")

	v := New(newTestRuntime(), WithDiskModuleStore(store))
	if err := v.StoreModuleChunk("lib/util.lat", chunk); err != nil {
		t.Fatalf("StoreModuleChunk: %v", err)
	}

	got, ok, err := v.LoadModuleChunk("lib/util.lat")
	if err != nil {
		t.Fatalf("LoadModuleChunk: %v", err)
	}
	if !ok {
		t.Fatalf("LoadModuleChunk missed a just-stored module")
	}
	if got.Name != "lib/util" || len(got.Code) != len(chunk.Code) {
		t.Fatalf("loaded chunk (name %q, %d code bytes) does not match stored (name %q, %d code bytes)",
			got.Name, len(got.Code), chunk.Name, len(chunk.Code))
	}
	if len(got.Constants) != 1 || got.Constants[0].AsString() != "util" {
		t.Fatalf("loaded chunk constants = %v, want [String(util)]", got.Constants)
	}

	if _, ok, _ := v.LoadModuleChunk("lib/absent.lat"); ok {
		t.Fatalf("LoadModuleChunk reported a hit for a never-stored path")
	}
}
