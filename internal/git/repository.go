package git

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// EventPublisher publishes git events.
type EventPublisher interface {
	Publish(eventType string, data map[string]any)
}

// Event types published by a Repository.
const (
	// EventStatusChanged is published when the index or working tree changed.
	EventStatusChanged = "git.status.changed"

	// EventBranchChanged is published when the current branch may have moved.
	EventBranchChanged = "git.branch.changed"

	// EventCommitCreated is published after a commit or amend.
	EventCommitCreated = "git.commit.created"
)

// Options configures a Repository.
type Options struct {
	// Executor runs git commands. Defaults to an ExecRunner built from Exec.
	Executor Executor

	// Exec configures the default executor.
	Exec ExecConfig

	// EventBus receives notifications. Optional.
	EventBus EventPublisher

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// ControlFS exposes the control directory (.git). Defaults to os.DirFS of
	// the resolved directory.
	ControlFS fs.FS
}

// Repository is a handle on one git working tree. It owns the executor used
// for that tree and serialises mutating operations.
type Repository struct {
	path   string
	gitDir string

	exec      Executor
	controlFS fs.FS
	eventBus  EventPublisher
	logger    *zap.Logger

	// mu is held for writing by index-mutating operations and for reading by
	// snapshot extraction.
	mu sync.RWMutex

	branchMu sync.Mutex
	branch   string
}

// OpenRepository opens the repository rooted at path.
func OpenRepository(path string, opts Options) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "abs path")
	}

	gitDir, err := resolveGitDir(absPath)
	if err != nil {
		return nil, err
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Executor == nil {
		if opts.Exec.Logger == nil {
			opts.Exec.Logger = opts.Logger
		}
		opts.Executor = NewExecRunner(absPath, opts.Exec)
	}
	if opts.ControlFS == nil {
		opts.ControlFS = os.DirFS(gitDir)
	}

	return &Repository{
		path:      absPath,
		gitDir:    gitDir,
		exec:      opts.Executor,
		controlFS: opts.ControlFS,
		eventBus:  opts.EventBus,
		logger:    opts.Logger.With(zap.String("repository", absPath)),
	}, nil
}

// resolveGitDir locates the control directory for the working tree at root.
// .git can be a directory or a file (for worktrees and submodules).
func resolveGitDir(root string) (string, error) {
	gitPath := filepath.Join(root, ".git")
	info, err := os.Stat(gitPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrapf(ErrNotRepository, "%s", root)
		}
		return "", errors.Wrap(err, "stat .git")
	}

	if info.IsDir() {
		return gitPath, nil
	}

	content, err := os.ReadFile(gitPath)
	if err != nil {
		return "", errors.Wrap(err, "read .git file")
	}
	content = bytes.TrimSpace(content)
	if !bytes.HasPrefix(content, []byte("gitdir:")) {
		return "", errors.Wrapf(ErrNotRepository, "%s", root)
	}

	dir := strings.TrimSpace(string(content[len("gitdir:"):]))
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	return filepath.Clean(dir), nil
}

// Discover finds the repository root from any path within it.
func Discover(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrap(err, "abs path")
	}

	// Walk up the directory tree
	current := absPath
	for {
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", errors.Wrapf(ErrRepositoryNotFound, "%s", absPath)
		}
		current = parent
	}
}

// Path returns the repository root path.
func (r *Repository) Path() string {
	return r.path
}

// GitDir returns the control directory path.
func (r *Repository) GitDir() string {
	return r.gitDir
}

// Local returns the commit operations for this repository.
func (r *Repository) Local() *Local {
	return newLocal(r)
}

// Wip returns the work-in-progress snapshot extractor for this repository.
func (r *Repository) Wip() *WipExtractor {
	return newWipExtractor(r)
}

// CurrentBranch returns the branch name recorded by the last refresh.
// A detached HEAD is reported as its short commit hash.
func (r *Repository) CurrentBranch() string {
	r.branchMu.Lock()
	defer r.branchMu.Unlock()
	return r.branch
}

// UpdateCurrentBranch re-reads the current branch and publishes
// EventBranchChanged.
func (r *Repository) UpdateCurrentBranch(ctx context.Context) string {
	branch := r.readBranch(ctx)

	r.branchMu.Lock()
	previous := r.branch
	r.branch = branch
	r.branchMu.Unlock()

	r.publishEvent(EventBranchChanged, map[string]any{
		"branch":   branch,
		"previous": previous,
	})

	return branch
}

// NotifyStatusChanged publishes EventStatusChanged for a change made outside
// this process.
func (r *Repository) NotifyStatusChanged(action string) {
	r.publishEvent(EventStatusChanged, map[string]any{
		"action": action,
	})
}

func (r *Repository) readBranch(ctx context.Context) string {
	res := r.exec.Run(ctx, NewCommand("branch").Flag("--show-current"))
	if res.Success {
		if branch := strings.TrimSpace(res.Output); branch != "" {
			return branch
		}
	}

	// Detached HEAD
	res = r.exec.Run(ctx, NewCommand("rev-parse").Flag("--short").Rev("HEAD"))
	if res.Success {
		return strings.TrimSpace(res.Output)
	}
	return ""
}

// markerExists reports whether name exists in the control directory.
func (r *Repository) markerExists(name string) bool {
	_, err := fs.Stat(r.controlFS, name)
	return err == nil
}

// publishEvent publishes an event if an event bus is configured.
func (r *Repository) publishEvent(eventType string, data map[string]any) {
	if r.eventBus == nil {
		return
	}
	if data == nil {
		data = make(map[string]any)
	}
	data["repository"] = r.path
	data["timestamp"] = time.Now().UnixMilli()
	r.eventBus.Publish(eventType, data)
}
