package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
)

// FileBackend implements Persistence using a local JSON snapshot file.
type FileBackend struct {
	mu   sync.Mutex
	path string
}

// snapshotFile is the on-disk JSON structure.
type snapshotFile struct {
	Version string                                  `json:"version"`
	Entries map[Namespace]map[string]json.RawMessage `json:"entries"`
}

// NewFileBackend creates a JSON-file persistence backend.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Save writes value under (namespace, key), rewriting the snapshot.
func (b *FileBackend) Save(_ context.Context, ns Namespace, key string, value json.RawMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sf, err := b.read()
	if err != nil {
		return err
	}
	if sf.Entries[ns] == nil {
		sf.Entries[ns] = make(map[string]json.RawMessage)
	}
	sf.Entries[ns][key] = value
	return b.write(sf)
}

// Load reads the value under (namespace, key).
func (b *FileBackend) Load(_ context.Context, ns Namespace, key string) (json.RawMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sf, err := b.read()
	if err != nil {
		return nil, err
	}
	value, ok := sf.Entries[ns][key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return value, nil
}

// Close is a no-op for the file backend.
func (b *FileBackend) Close() error { return nil }

func (b *FileBackend) read() (*snapshotFile, error) {
	sf := &snapshotFile{
		Version: "1.0",
		Entries: make(map[Namespace]map[string]json.RawMessage),
	}
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return sf, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, sf); err != nil {
		return nil, err
	}
	if sf.Entries == nil {
		sf.Entries = make(map[Namespace]map[string]json.RawMessage)
	}
	return sf, nil
}

func (b *FileBackend) write(sf *snapshotFile) error {
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(b.path, data, 0644)
}
