package git

import (
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Exec configures the executor of every opened repository.
	Exec ExecConfig

	// EventBus for publishing git events.
	EventBus EventPublisher

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Manager opens repositories and keeps one handle per root, so that every
// caller of a root shares the same lock.
type Manager struct {
	mu     sync.Mutex
	repos  map[string]*Repository
	closed atomic.Bool

	cfg ManagerConfig
}

// NewManager creates a new git manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Exec.Logger == nil {
		cfg.Exec.Logger = cfg.Logger
	}

	return &Manager{
		repos: make(map[string]*Repository),
		cfg:   cfg,
	}
}

// Open opens a repository at the given path.
// The path must be the repository root (containing .git).
func (m *Manager) Open(path string) (*Repository, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "abs path")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if repo, ok := m.repos[absPath]; ok {
		return repo, nil
	}

	repo, err := OpenRepository(absPath, Options{
		Exec:     m.cfg.Exec,
		EventBus: m.cfg.EventBus,
		Logger:   m.cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	m.repos[absPath] = repo
	return repo, nil
}

// Discover finds and opens the repository containing the given path.
func (m *Manager) Discover(path string) (*Repository, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}

	root, err := Discover(path)
	if err != nil {
		return nil, err
	}

	return m.Open(root)
}

// IsRepository checks if the path is inside a git repository.
func (m *Manager) IsRepository(path string) bool {
	_, err := Discover(path)
	return err == nil
}

// Close forgets all open repositories. Further opens fail.
func (m *Manager) Close() error {
	if m.closed.Swap(true) {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.repos = make(map[string]*Repository)

	return nil
}
