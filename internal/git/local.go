package git

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Cherry-pick and merge state markers inside the control directory.
const (
	cherryPickHeadMarker = "CHERRY_PICK_HEAD"
	mergeHeadMarker      = "MERGE_HEAD"
)

// Local performs index and commit operations on a repository.
//
// Every operation that changes the index or HEAD holds the repository write
// lock for its whole duration, so multi-step operations are never interleaved
// with other mutations or with snapshot extraction. Notifications are
// published after the lock is released.
type Local struct {
	repo       *Repository
	reconciler *Reconciler
	logger     *zap.Logger
}

func newLocal(repo *Repository) *Local {
	return &Local{
		repo:       repo,
		reconciler: NewReconciler(repo.exec, repo.logger),
		logger:     repo.logger,
	}
}

// StageFile adds one path to the index.
func (l *Local) StageFile(ctx context.Context, path string) ExecResult {
	if path == "" {
		return Failed("", errors.Wrap(ErrEmptyPath, "stage file"))
	}

	notes, unlock := l.lock()
	defer unlock(ctx)

	start := time.Now()
	l.logger.Debug("Executing stageFile", zap.String("path", path))

	res := l.repo.exec.Run(ctx, NewCommand("add").Paths(path))
	if res.Success {
		notes.publish(EventStatusChanged, map[string]any{
			"action": "stage",
			"paths":  []string{path},
		})
	}

	l.finish("stageFile", start, res)
	return res
}

// Reconcile makes the index hold exactly the selected paths of table.
func (l *Local) Reconcile(ctx context.Context, table *FileStatusTable, selection Selection) ExecResult {
	_, unlock := l.lock()
	defer unlock(ctx)

	return l.reconciler.Reconcile(ctx, table, selection)
}

// Commit stages exactly selection and commits it with message.
// A failed reconciliation is returned as-is and no commit is attempted.
func (l *Local) Commit(ctx context.Context, selection Selection, table *FileStatusTable, message string) ExecResult {
	notes, unlock := l.lock()
	defer unlock(ctx)

	start := time.Now()
	l.logger.Debug("Executing commitFiles", zap.Strings("paths", selection.Paths()))

	if res := l.reconciler.Reconcile(ctx, table, selection); !res.Success {
		l.finish("commitFiles", start, res)
		return res
	}

	res := l.repo.exec.Run(ctx, NewCommand("commit").Option("-m", message))
	if res.Success {
		publishCommit(notes, message, false)
	}

	l.finish("commitFiles", start, res)
	return res
}

// Amend stages exactly selection and amends HEAD with message. A non-empty
// author replaces the commit author. The message is passed to git verbatim.
func (l *Local) Amend(ctx context.Context, selection Selection, table *FileStatusTable, message, author string) ExecResult {
	notes, unlock := l.lock()
	defer unlock(ctx)

	start := time.Now()
	l.logger.Debug("Executing amendCommit",
		zap.Strings("paths", selection.Paths()),
		zap.String("author", author))

	if res := l.reconciler.Reconcile(ctx, table, selection); !res.Success {
		l.finish("amendCommit", start, res)
		return res
	}

	cmd := NewCommand("commit").Flag("--amend")
	if author != "" {
		cmd = cmd.Option("--author", author)
	}
	cmd = cmd.Option("-m", message)

	res := l.repo.exec.Run(ctx, cmd)
	if res.Success {
		publishCommit(notes, message, true)
	}

	l.finish("amendCommit", start, res)
	return res
}

// ResetCommit moves HEAD to sha using kind and reports only success.
// Use the ExecResult-returning operations when diagnostics are needed.
func (l *Local) ResetCommit(ctx context.Context, sha string, kind CommitResetKind) bool {
	mode, err := kind.flag()
	if err != nil {
		l.logger.Warn("Rejected resetCommit", zap.String("sha", sha), zap.Error(err))
		return false
	}

	notes, unlock := l.lock()
	defer unlock(ctx)

	start := time.Now()
	l.logger.Debug("Executing resetCommit", zap.String("sha", sha), zap.Stringer("kind", kind))

	res := l.repo.exec.Run(ctx, NewCommand("reset").Flag(mode).Rev(sha))
	if res.Success {
		notes.publish(EventStatusChanged, map[string]any{
			"action": "reset_commit",
			"sha":    sha,
			"mode":   kind.String(),
		})
	}

	l.finish("resetCommit", start, res)
	return res.Success
}

// ResetFile unstages one path. The working tree is not touched.
func (l *Local) ResetFile(ctx context.Context, path string) ExecResult {
	if path == "" {
		return Failed("", errors.Wrap(ErrEmptyPath, "reset file"))
	}

	notes, unlock := l.lock()
	defer unlock(ctx)

	start := time.Now()
	l.logger.Debug("Executing resetFile", zap.String("path", path))

	res := l.reconciler.unstage(ctx, []string{path})
	if res.Success {
		notes.publish(EventStatusChanged, map[string]any{
			"action": "unstage",
			"paths":  []string{path},
		})
	}

	l.finish("resetFile", start, res)
	return res
}

// CheckoutFile discards working tree changes to path. An empty path returns
// false without running anything, so it can never mean "every file".
func (l *Local) CheckoutFile(ctx context.Context, path string) bool {
	if path == "" {
		l.logger.Warn("Executing checkoutFile with an empty file")
		return false
	}

	_, unlock := l.lock()
	defer unlock(ctx)

	start := time.Now()
	l.logger.Debug("Executing checkoutFile", zap.String("path", path))

	res := l.repo.exec.Run(ctx, NewCommand("checkout").Paths(path))

	l.finish("checkoutFile", start, res)
	return res.Success
}

// CheckoutCommit checks out sha (a commit or branch) and refreshes the
// current branch on success.
func (l *Local) CheckoutCommit(ctx context.Context, sha string) ExecResult {
	notes, unlock := l.lock()
	defer unlock(ctx)

	start := time.Now()
	l.logger.Debug("Executing checkoutCommit", zap.String("sha", sha))

	res := l.repo.exec.Run(ctx, NewCommand("checkout").Rev(sha))
	if res.Success {
		notes.refreshBranch()
	}

	l.finish("checkoutCommit", start, res)
	return res
}

// MarkResolved stages conflicted paths once their conflicts are fixed.
func (l *Local) MarkResolved(ctx context.Context, paths ...string) ExecResult {
	if len(paths) == 0 {
		return Failed("", errors.Wrap(ErrEmptyPath, "mark resolved"))
	}

	notes, unlock := l.lock()
	defer unlock(ctx)

	start := time.Now()
	l.logger.Debug("Executing markFileAsResolved", zap.Strings("paths", paths))

	res := l.repo.exec.Run(ctx, NewCommand("add").Paths(paths...))
	if res.Success {
		notes.publish(EventStatusChanged, map[string]any{
			"action": "resolve",
			"paths":  paths,
		})
	}

	l.finish("markFileAsResolved", start, res)
	return res
}

// CherryPick applies the change introduced by sha.
func (l *Local) CherryPick(ctx context.Context, sha string) ExecResult {
	return l.runLocked(ctx, "cherryPickCommit", NewCommand("cherry-pick").Rev(sha), zap.String("sha", sha))
}

// CherryPickContinue resumes a cherry-pick after conflicts were resolved.
func (l *Local) CherryPickContinue(ctx context.Context) ExecResult {
	return l.runLocked(ctx, "cherryPickContinue", NewCommand("cherry-pick").Flag("--continue"))
}

// CherryPickAbort abandons the cherry-pick in progress.
func (l *Local) CherryPickAbort(ctx context.Context) ExecResult {
	return l.runLocked(ctx, "cherryPickAbort", NewCommand("cherry-pick").Flag("--abort"))
}

// IsCherryPickInProgress reports whether the control directory holds a
// CHERRY_PICK_HEAD marker. The answer is read from disk on every call.
func (l *Local) IsCherryPickInProgress() bool {
	return l.repo.markerExists(cherryPickHeadMarker)
}

// IsMergeInProgress reports whether the control directory holds a
// MERGE_HEAD marker.
func (l *Local) IsMergeInProgress() bool {
	return l.repo.markerExists(mergeHeadMarker)
}

// lock takes the repository write lock. The returned unlock releases it and
// then publishes everything collected in the notifications.
func (l *Local) lock() (*pendingNotifications, func(context.Context)) {
	notes := &pendingNotifications{repo: l.repo}
	l.repo.mu.Lock()
	return notes, func(ctx context.Context) {
		l.repo.mu.Unlock()
		notes.flush(ctx)
	}
}

func (l *Local) runLocked(ctx context.Context, op string, cmd Command, fields ...zap.Field) ExecResult {
	_, unlock := l.lock()
	defer unlock(ctx)

	start := time.Now()
	l.logger.Debug("Executing "+op, fields...)

	res := l.repo.exec.Run(ctx, cmd)

	l.finish(op, start, res)
	return res
}

func publishCommit(notes *pendingNotifications, message string, amend bool) {
	notes.publish(EventCommitCreated, map[string]any{
		"message": message,
		"amend":   amend,
	})
	notes.publish(EventStatusChanged, map[string]any{
		"action": "commit",
	})
}

func (l *Local) finish(op string, start time.Time, res ExecResult) {
	l.logger.Debug("Finished "+op,
		zap.Bool("success", res.Success),
		zap.Duration("elapsed", time.Since(start)))
}
