package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/safetyfirst/backend/internal/models"
)

// Local writes photos under a directory that the server also serves
// statically at baseURL.
type Local struct {
	dir     string
	baseURL string
}

var _ PhotoStore = (*Local)(nil)

func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create photo dir: %w", err)
	}
	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *Local) Dir() string { return l.dir }

func (l *Local) Put(ctx context.Context, object, contentType string, data []byte) (string, error) {
	clean := filepath.Clean("/" + object)
	path := filepath.Join(l.dir, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrBackendUnavailable, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("%w: write %s: %w", models.ErrBackendUnavailable, path, err)
	}
	return l.baseURL + filepath.ToSlash(clean), nil
}

func (l *Local) Ping(ctx context.Context) error {
	info, err := os.Stat(l.dir)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrBackendUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", models.ErrBackendUnavailable, l.dir)
	}
	return nil
}

// Memory keeps photos in a map.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string

	Err error
}

var _ PhotoStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

// fail reports the injected error. Callers hold m.mu.
func (m *Memory) fail() error {
	if m.Err != nil {
		return fmt.Errorf("%w: %w", models.ErrBackendUnavailable, m.Err)
	}
	return nil
}

func (m *Memory) Put(ctx context.Context, object, contentType string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return "", err
	}
	m.objects[object] = append([]byte(nil), data...)
	m.types[object] = contentType
	return "memory://" + object, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fail()
}

// Object returns a stored object and its content type.
func (m *Memory) Object(name string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[name]
	return data, m.types[name], ok
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
