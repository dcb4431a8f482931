// Package checkpoint provides the durable, append-only checkpoint store
// that lets an interrupted mission resume without re-running completed work.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// Backend is the narrow persistence contract the store requires. Values are
// opaque bytes; keys are checkpoint IDs.
type Backend interface {
	Put(key string, value []byte) error
	Get(key string) ([]byte, error)
	List(prefix string) ([]string, error)
}

// MemoryBackend is an in-memory Backend for tests and ephemeral missions.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

// Put stores a value under the key.
func (b *MemoryBackend) Put(key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf := make([]byte, len(value))
	copy(buf, value)
	b.data[key] = buf
	return nil
}

// Get retrieves the value for a key.
func (b *MemoryBackend) Get(key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	value, ok := b.data[key]
	if !ok {
		return nil, fmt.Errorf("checkpoint %s: %w", key, os.ErrNotExist)
	}
	return value, nil
}

// Delete removes the value for a key. Missing keys are not an error.
func (b *MemoryBackend) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.data, key)
	return nil
}

// List returns all keys with the given prefix, sorted.
func (b *MemoryBackend) List(prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var keys []string
	for key := range b.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// FileBackend stores one JSON file per checkpoint under a directory.
// Writes are atomic (temp file + rename) and serialized across processes
// with a flock lock file, so two engine instances sharing a checkpoint
// directory cannot corrupt each other's snapshots.
type FileBackend struct {
	dir  string
	lock *flock.Flock
}

// NewFileBackend creates the checkpoint directory if needed and returns a
// FileBackend rooted there.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory %s: %w", dir, err)
	}
	return &FileBackend{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, ".lock")),
	}, nil
}

// Put writes a value atomically under the key.
func (b *FileBackend) Put(key string, value []byte) error {
	if err := b.lock.Lock(); err != nil {
		return fmt.Errorf("acquire checkpoint lock: %w", err)
	}
	defer b.lock.Unlock()

	return atomicWrite(b.path(key), value)
}

// Get reads the value for a key.
func (b *FileBackend) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		return nil, fmt.Errorf("read checkpoint %s: %w", key, err)
	}
	return data, nil
}

// List returns all keys with the given prefix, sorted.
func (b *FileBackend) List(prefix string) ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("list checkpoint directory: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		key := strings.TrimSuffix(entry.Name(), ".json")
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes the value for a key. Missing keys are not an error.
func (b *FileBackend) Delete(key string) error {
	if err := b.lock.Lock(); err != nil {
		return fmt.Errorf("acquire checkpoint lock: %w", err)
	}
	defer b.lock.Unlock()

	if err := os.Remove(b.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete checkpoint %s: %w", key, err)
	}
	return nil
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, key+".json")
}

// atomicWrite writes data via a temp file and rename so readers never see a
// partial checkpoint, even if the process dies mid-write.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
