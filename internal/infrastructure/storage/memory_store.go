package storage

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// MemoryStore keeps objects in process memory. It backs local runs without
// a bucket; download URLs point at BaseURL and are not signed.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	BaseURL string
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryStore creates an empty store
func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "http://localhost/files"
	}
	return &MemoryStore{objects: make(map[string]memoryObject), BaseURL: baseURL}
}

// Upload stores a copy of data
func (m *MemoryStore) Upload(_ context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return errEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[storageKey] = memoryObject{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

// Download returns the stored bytes
func (m *MemoryStore) Download(_ context.Context, storageKey string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[storageKey]
	if !ok {
		return nil, fmt.Errorf("object %s not found", storageKey)
	}
	return append([]byte(nil), obj.data...), nil
}

// GenerateDownloadURL returns a plain URL for an existing object
func (m *MemoryStore) GenerateDownloadURL(_ context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	m.mu.RLock()
	_, ok := m.objects[storageKey]
	m.mu.RUnlock()
	if !ok {
		return "", time.Time{}, fmt.Errorf("object %s not found", storageKey)
	}
	if expiresIn <= 0 {
		expiresIn = 15 * time.Minute
	}
	return m.BaseURL + "/" + url.PathEscape(storageKey), time.Now().Add(expiresIn), nil
}

// Delete removes an object
func (m *MemoryStore) Delete(_ context.Context, storageKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, storageKey)
	return nil
}

// Len returns the number of stored objects
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
