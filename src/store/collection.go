// Package store persists export collections as JSON array files, one file
// per collection, keyed by record uuid.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Collection is a persisted set of records of one type. Every mutation
// rewrites the whole collection file before returning, which bounds data
// loss on crash to the in-flight operation.
type Collection[T any] struct {
	fs    afero.Fs
	path  string
	key   func(T) string
	items []T
	index map[string]int
}

// OpenCollection loads the collection file at path, creating an empty
// collection when the file does not exist yet. key extracts the unique
// record key (the uuid).
func OpenCollection[T any](fsys afero.Fs, path string, key func(T) string) (*Collection[T], error) {
	c := &Collection[T]{fs: fsys, path: path, key: key}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Collection[T]) load() error {
	data, err := afero.ReadFile(c.fs, c.path)
	if err != nil {
		if os.IsNotExist(err) {
			c.items = nil
			c.reindex()
			return nil
		}
		return fmt.Errorf("read collection %s: %w", c.path, err)
	}
	if err := json.Unmarshal(data, &c.items); err != nil {
		return fmt.Errorf("parse collection %s: %w", c.path, err)
	}
	c.reindex()
	return nil
}

func (c *Collection[T]) reindex() {
	c.index = make(map[string]int, len(c.items))
	for i, item := range c.items {
		c.index[c.key(item)] = i
	}
}

// persist writes the full collection state through a temp file and rename,
// so readers never observe a half-written file.
func (c *Collection[T]) persist() error {
	data := []byte("[]")
	if len(c.items) > 0 {
		var err error
		data, err = json.MarshalIndent(c.items, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal collection %s: %w", c.path, err)
		}
	}
	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := afero.WriteFile(c.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write collection %s: %w", c.path, err)
	}
	if err := c.fs.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace collection %s: %w", c.path, err)
	}
	return nil
}

// FindAll returns a copy of every record in insertion order.
func (c *Collection[T]) FindAll() []T {
	return append([]T(nil), c.items...)
}

// FindByKey returns the record with the given key.
func (c *Collection[T]) FindByKey(key string) (T, bool) {
	if i, ok := c.index[key]; ok {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Count returns the number of records.
func (c *Collection[T]) Count() int {
	return len(c.items)
}

// Exists reports whether a record with the given key is present.
func (c *Collection[T]) Exists(key string) bool {
	_, ok := c.index[key]
	return ok
}

// Insert appends a new record and persists. Inserting a key that already
// exists is an error; use Upsert when overwrite is intended.
func (c *Collection[T]) Insert(rec T) error {
	k := c.key(rec)
	if k == "" {
		return fmt.Errorf("insert into %s: record has no key", c.path)
	}
	if _, ok := c.index[k]; ok {
		return fmt.Errorf("insert into %s: duplicate key %s", c.path, k)
	}
	c.items = append(c.items, rec)
	c.index[k] = len(c.items) - 1
	if err := c.persist(); err != nil {
		c.items = c.items[:len(c.items)-1]
		delete(c.index, k)
		return err
	}
	return nil
}

// Update merges the partial record into the stored record and persists.
// The merge is shallow: fields present in partial overwrite, absent fields
// keep their stored value. Returns false when the key is not found.
func (c *Collection[T]) Update(key string, partial map[string]any) (T, bool, error) {
	var zero T
	i, ok := c.index[key]
	if !ok {
		return zero, false, nil
	}
	raw, err := json.Marshal(c.items[i])
	if err != nil {
		return zero, false, fmt.Errorf("update %s in %s: %w", key, c.path, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return zero, false, fmt.Errorf("update %s in %s: %w", key, c.path, err)
	}
	for k, v := range partial {
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return zero, false, fmt.Errorf("update %s in %s: %w", key, c.path, err)
	}
	var rec T
	if err := json.Unmarshal(merged, &rec); err != nil {
		return zero, false, fmt.Errorf("update %s in %s: %w", key, c.path, err)
	}
	prev := c.items[i]
	c.items[i] = rec
	if err := c.persist(); err != nil {
		c.items[i] = prev
		return zero, false, err
	}
	return rec, true, nil
}

// Delete removes the record with the given key and persists. Returns false
// when the key is not found.
func (c *Collection[T]) Delete(key string) (bool, error) {
	i, ok := c.index[key]
	if !ok {
		return false, nil
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	c.reindex()
	if err := c.persist(); err != nil {
		return false, err
	}
	return true, nil
}

// Upsert replaces the record with the same key, or inserts it when absent.
// Upserting an identical record twice leaves the collection unchanged.
func (c *Collection[T]) Upsert(rec T) error {
	k := c.key(rec)
	if k == "" {
		return fmt.Errorf("upsert into %s: record has no key", c.path)
	}
	i, ok := c.index[k]
	if !ok {
		return c.Insert(rec)
	}
	prev := c.items[i]
	c.items[i] = rec
	if err := c.persist(); err != nil {
		c.items[i] = prev
		return err
	}
	return nil
}
