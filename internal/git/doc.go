// Package git implements index reconciliation and commit construction on top
// of the git binary.
//
// # Architecture
//
// The package is organized around these core types:
//
//   - Executor: runs one git Command in a repository and returns an ExecResult
//   - Command: argument-vector builder; paths always follow "--"
//   - FileStatusTable: read-only per-path status flags produced by a Scanner
//   - Reconciler: computes and issues the minimal index mutations for a Selection
//   - Local: commit, amend, reset, checkout, resolve and cherry-pick operations
//   - WipExtractor: staged and unstaged name-status diffs against HEAD
//   - Repository / Manager: per-root handles owning the executor and lock
//
// # Usage
//
//	mgr := git.NewManager(git.ManagerConfig{EventBus: bus})
//	repo, err := mgr.Discover(".")
//	if err != nil {
//	    return err
//	}
//
//	scanner, _ := repo.Scanner(git.ScannerPorcelain)
//	table, err := scanner.Scan(ctx)
//	if err != nil {
//	    return err
//	}
//
//	res := repo.Local().Commit(ctx, git.NewSelection("a.txt"), table, "Fix a")
//	if !res.Success {
//	    fmt.Println(res.Output)
//	}
//
// # Failures
//
// Expected git failures are values, not errors: every operation returns an
// ExecResult whose Output carries git's own message. Multi-step operations stop
// at the first failing step and return its result without rolling back.
//
// # Events
//
// The package publishes events through the EventBus:
//
//   - git.status.changed: stage, unstage, resolve, commit, reset
//   - git.branch.changed: after a successful checkout
//   - git.commit.created: after commit and amend
//
// # Thread Safety
//
// Mutating operations on one Repository are serialised by a write lock and
// snapshot extraction takes the read lock. Separate processes touching the same
// repository are not coordinated.
package git
