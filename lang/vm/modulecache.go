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

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/ajokela/lattice-sub004/lang/codec"
	"github.com/ajokela/lattice-sub004/lang/core"
)

// DiskModuleStore is an optional persistent second tier for the VM's
// per-process module cache: resolved import path -> compiled Chunk,
// serialized with the .latc codec. A program that re-imports the same
// module across process runs (a long-lived worker pool, a REPL history)
// skips recompilation by consulting this tier before falling back to the
// compiler. It is read only through LoadModuleChunk; the in-memory LRU
// tier (VM.moduleCache) holds module namespaces rather than chunks and is
// consulted separately through LookupModule.
type DiskModuleStore struct {
	db *leveldb.DB
}

// OpenDiskModuleStore opens (creating if absent) a goleveldb database at
// path to back a DiskModuleStore.
func OpenDiskModuleStore(path string) (*DiskModuleStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("vm: opening module store at %q: %w", path, err)
	}
	return &DiskModuleStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *DiskModuleStore) Close() error { return s.db.Close() }

// Put persists the compiled chunk for resolvedPath.
func (s *DiskModuleStore) Put(resolvedPath string, c *core.Chunk) error {
	data, err := codec.EncodeBytes(c)
	if err != nil {
		return fmt.Errorf("vm: encoding module %q: %w", resolvedPath, err)
	}
	return s.db.Put([]byte(resolvedPath), data, nil)
}

// Get retrieves the compiled chunk previously stored for resolvedPath, or
// (nil, false) if absent.
func (s *DiskModuleStore) Get(resolvedPath string) (*core.Chunk, bool, error) {
	data, err := s.db.Get([]byte(resolvedPath), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("vm: reading module %q: %w", resolvedPath, err)
	}
	c, err := codec.DecodeBytes(data)
	if err != nil {
		return nil, false, fmt.Errorf("vm: decoding module %q: %w", resolvedPath, err)
	}
	return c, true, nil
}

// CacheModule installs value (typically the Map produced by running a
// module's top-level chunk) into the in-memory LRU tier keyed by
// resolvedPath.
func (v *VM) CacheModule(resolvedPath string, value core.Value) {
	v.moduleCache.Add(resolvedPath, value)
}

// LookupModule consults the in-memory LRU tier for a previously cached
// module namespace.
func (v *VM) LookupModule(resolvedPath string) (core.Value, bool) {
	val, ok := v.moduleCache.Get(resolvedPath)
	if !ok {
		return core.Value{}, false
	}
	return val.(core.Value), true
}

// LoadModuleChunk consults the optional disk tier for a compiled module
// chunk, returning (nil, false, nil) when no store is attached or the path
// has never been stored. A chunk loaded this way is tracked by the VM like
// any other decoded chunk.
func (v *VM) LoadModuleChunk(resolvedPath string) (*core.Chunk, bool, error) {
	if v.diskModules == nil {
		return nil, false, nil
	}
	c, ok, err := v.diskModules.Get(resolvedPath)
	if err != nil || !ok {
		return nil, false, err
	}
	v.TrackChunk(c)
	return c, true, nil
}

// StoreModuleChunk persists a compiled module chunk into the disk tier, a
// no-op when no store is attached.
func (v *VM) StoreModuleChunk(resolvedPath string, c *core.Chunk) error {
	if v.diskModules == nil {
		return nil
	}
	return v.diskModules.Put(resolvedPath, c)
}
