package git

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// EmptyTreeSHA is the id of the empty tree. It stands in for the parent
// revision of a repository that has no commits yet, so diffs of a brand-new
// repository compare against "nothing" instead of failing.
const EmptyTreeSHA = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// WipSnapshot is the uncommitted state of a repository relative to its
// parent revision. Diff bodies are NUL-separated name-status listings.
type WipSnapshot struct {
	// ParentRevision is HEAD, or EmptyTreeSHA when there are no commits.
	ParentRevision string

	// UnstagedDiff compares the working tree with ParentRevision.
	UnstagedDiff string

	// StagedDiff compares the index with ParentRevision.
	StagedDiff string
}

// IsEmpty reports whether the snapshot carries no information at all, which
// is what Extract returns when git could not be run.
func (s WipSnapshot) IsEmpty() bool {
	return s.ParentRevision == "" && s.UnstagedDiff == "" && s.StagedDiff == ""
}

// IsInitial reports whether the snapshot was taken before the first commit.
func (s WipSnapshot) IsInitial() bool {
	return s.ParentRevision == EmptyTreeSHA
}

// Changes parses both diff bodies into a file status table. Paths in the
// staged body are flagged InIndex.
func (s WipSnapshot) Changes() *FileStatusTable {
	records := parseNameStatus(s.StagedDiff, InIndex)
	records = append(records, parseNameStatus(s.UnstagedDiff, 0)...)
	return NewFileStatusTable(records...)
}

// WipDiagnostics holds the raw results behind a snapshot, including failures
// that Extract degrades to empty diff bodies.
type WipDiagnostics struct {
	Head     ExecResult
	Unstaged ExecResult
	Staged   ExecResult
}

// Degraded reports whether any diff failure was replaced by an empty body.
func (d WipDiagnostics) Degraded() bool {
	return d.Head.Success && (!d.Unstaged.Success || !d.Staged.Success)
}

// Errors returns the diagnostic errors of every failed step.
func (d WipDiagnostics) Errors() []error {
	var errs []error
	for _, r := range []ExecResult{d.Head, d.Unstaged, d.Staged} {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}

// WipExtractor reads work-in-progress snapshots. It never caches.
type WipExtractor struct {
	repo   *Repository
	logger *zap.Logger
}

func newWipExtractor(repo *Repository) *WipExtractor {
	return &WipExtractor{repo: repo, logger: repo.logger}
}

// Extract returns the current snapshot. Diff failures yield empty bodies;
// an empty snapshot means git could not report HEAD at all.
func (w *WipExtractor) Extract(ctx context.Context) WipSnapshot {
	snap, _ := w.ExtractWithDiagnostics(ctx)
	return snap
}

// ExtractWithDiagnostics is Extract plus the results of each git command.
func (w *WipExtractor) ExtractWithDiagnostics(ctx context.Context) (WipSnapshot, WipDiagnostics) {
	w.repo.mu.RLock()
	defer w.repo.mu.RUnlock()

	start := time.Now()
	var diag WipDiagnostics

	// --revs-only keeps this from failing on a repository without commits
	diag.Head = w.repo.exec.Run(ctx, NewCommand("rev-parse").Flag("--revs-only").Rev("HEAD"))
	if !diag.Head.Success {
		w.logger.Warn("Cannot read HEAD for WIP snapshot", zap.Error(diag.Head.Err))
		return WipSnapshot{}, diag
	}

	parent := strings.TrimSpace(diag.Head.Output)
	if parent == "" {
		parent = EmptyTreeSHA
	}

	snap := WipSnapshot{ParentRevision: parent}

	diag.Unstaged = w.repo.exec.Run(ctx, wipDiffCommand(parent, false))
	if diag.Unstaged.Success {
		snap.UnstagedDiff = diag.Unstaged.Output
	}

	diag.Staged = w.repo.exec.Run(ctx, wipDiffCommand(parent, true))
	if diag.Staged.Success {
		snap.StagedDiff = diag.Staged.Output
	}

	if diag.Degraded() {
		w.logger.Debug("WIP diff degraded to empty body", zap.Errors("errors", diag.Errors()))
	}

	w.logger.Debug("Extracted WIP snapshot",
		zap.String("parent", parent),
		zap.Duration("elapsed", time.Since(start)))

	return snap, diag
}

func wipDiffCommand(parent string, cached bool) Command {
	cmd := NewCommand("diff-index").Flag("--no-color", "-z", "--name-status", "-M")
	if cached {
		cmd = cmd.Flag("--cached")
	}
	return cmd.Rev(parent)
}

// parseNameStatus parses `--name-status -z` output. Entries are
// "<status>\0<path>\0", or "<status>\0<old>\0<new>\0" for renames and copies.
// A rename contributes a Deleted record for the old path.
func parseNameStatus(body string, extra StatusFlag) []FileRecord {
	if body == "" {
		return nil
	}

	fields := strings.Split(body, "\x00")
	var records []FileRecord
	for i := 0; i < len(fields); {
		status := fields[i]
		if status == "" {
			i++
			continue
		}
		if i+1 >= len(fields) {
			break
		}

		switch status[0] {
		case 'R', 'C':
			if i+2 >= len(fields) {
				return records
			}
			oldPath, newPath := fields[i+1], fields[i+2]
			if status[0] == 'R' {
				records = append(records, FileRecord{Path: oldPath, Flags: Deleted | extra})
			}
			records = append(records, FileRecord{Path: newPath, Flags: Modified | extra})
			i += 3
		case 'D':
			records = append(records, FileRecord{Path: fields[i+1], Flags: Deleted | extra})
			i += 2
		case 'U':
			records = append(records, FileRecord{Path: fields[i+1], Flags: Conflicted | extra})
			i += 2
		default:
			records = append(records, FileRecord{Path: fields[i+1], Flags: Modified | extra})
			i += 2
		}
	}
	return records
}
