package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Manager hands out conversation stores by scope. Opening the same scope
// twice returns the same Store, so its mutex covers every writer.
type Manager struct {
	baseDir string
	shared  bool
	mu      sync.Mutex
	stores  map[string]*Store
}

// NewManager creates baseDir if needed. With shared set, every scope maps to
// one process-wide document.
func NewManager(baseDir string, shared bool) (*Manager, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory cannot be empty")
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create memory directory: %w", err)
	}

	return &Manager{
		baseDir: baseDir,
		shared:  shared,
		stores:  make(map[string]*Store),
	}, nil
}

// Shared reports whether all jobs share one conversation.
func (m *Manager) Shared() bool {
	return m.shared
}

// Open returns the store for scope.
func (m *Manager) Open(scope string) (*Store, error) {
	if m.shared {
		scope = SharedScope
	}
	if err := validateScope(scope); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[scope]; ok {
		return s, nil
	}

	s := &Store{
		scope: scope,
		file:  filepath.Join(m.baseDir, scope+".json"),
		now:   time.Now,
	}
	m.stores[scope] = s
	return s, nil
}

// Remove clears the store for scope and deletes its file. The shared
// document is only cleared.
func (m *Manager) Remove(ctx context.Context, scope string) error {
	s, err := m.Open(scope)
	if err != nil {
		return err
	}

	if m.shared {
		return s.Clear(ctx)
	}

	m.mu.Lock()
	delete(m.stores, s.scope)
	m.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.file); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove memory file: %w", err)
	}
	return nil
}

// validateScope не пускает пути за пределы baseDir
func validateScope(scope string) error {
	if scope == "" {
		return fmt.Errorf("memory scope cannot be empty")
	}
	if strings.ContainsAny(scope, `/\`) || strings.Contains(scope, "..") {
		return fmt.Errorf("invalid memory scope %q", scope)
	}
	return nil
}
