// Package storage persists small key/value documents as JSON files.
package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// ErrKeyNotFound is returned by Get for a key that was never written
var ErrKeyNotFound = errors.New("key not found")

// JSONStore is a thread-safe JSON object on disk. Each key holds one value.
type JSONStore struct {
	mu       sync.RWMutex
	filePath string
}

// NewJSONStore creates a store backed by path, creating its directory
func NewJSONStore(path string) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return &JSONStore{filePath: path}, nil
}

// Path returns the backing file
func (s *JSONStore) Path() string {
	return s.filePath
}

func (s *JSONStore) read() (map[string]json.RawMessage, error) {
	doc := make(map[string]json.RawMessage)
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Get decodes the value under key into out
func (s *JSONStore) Get(key string, out any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	raw, ok := doc[key]
	if !ok {
		return ErrKeyNotFound
	}
	return json.Unmarshal(raw, out)
}

// Set stores value under key, keeping the other keys
func (s *JSONStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	doc[key] = raw

	// Write to temp file first, then rename (atomic operation)
	tempFile := s.filePath + ".tmp"
	file, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		file.Close()
		os.Remove(tempFile)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}
	return os.Rename(tempFile, s.filePath)
}
