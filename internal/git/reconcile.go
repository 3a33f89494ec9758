package git

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// indexUpdatedOutput is reported when reconciliation had nothing to run.
const indexUpdatedOutput = "Indexes updated"

// ReconcilePlan lists the index mutations needed to make the index hold
// exactly a selection. All slices follow table order.
type ReconcilePlan struct {
	// Unstage holds staged paths that were not selected.
	Unstage []string

	// Remove holds selected paths flagged Deleted.
	Remove []string

	// Add holds selected paths that are present and not deleted.
	Add []string
}

// IsEmpty reports whether the plan requires no commands.
func (p ReconcilePlan) IsEmpty() bool {
	return len(p.Unstage) == 0 && len(p.Remove) == 0 && len(p.Add) == 0
}

// PlanReconcile computes the index mutations for selection against table.
// Selected paths absent from the table are ignored.
func PlanReconcile(table *FileStatusTable, selection Selection) ReconcilePlan {
	var plan ReconcilePlan
	for _, r := range table.Records() {
		selected := selection.Contains(r.Path)
		switch {
		case !selected && r.Has(InIndex):
			plan.Unstage = append(plan.Unstage, r.Path)
		case selected && r.Has(Deleted):
			plan.Remove = append(plan.Remove, r.Path)
		case selected:
			plan.Add = append(plan.Add, r.Path)
		}
	}
	return plan
}

// Reconciler issues the index commands that stage exactly a selection.
// It never stages everything; only the paths in a ReconcilePlan are touched.
// Reconciler does no locking of its own.
type Reconciler struct {
	exec   Executor
	logger *zap.Logger
}

// NewReconciler creates a reconciler over exec.
func NewReconciler(exec Executor, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{exec: exec, logger: logger}
}

// Reconcile unstages staged paths outside selection, then updates the index
// for the selected paths. It stops at the first failing command and returns
// that command's result; the index is left as far as it got.
func (rc *Reconciler) Reconcile(ctx context.Context, table *FileStatusTable, selection Selection) ExecResult {
	start := time.Now()
	plan := PlanReconcile(table, selection)

	rc.logger.Debug("Reconciling index",
		zap.Int("unstage", len(plan.Unstage)),
		zap.Int("remove", len(plan.Remove)),
		zap.Int("add", len(plan.Add)))

	res := rc.apply(ctx, plan)

	rc.logger.Debug("Index reconciliation finished",
		zap.Bool("success", res.Success),
		zap.Duration("elapsed", time.Since(start)))

	return res
}

// UpdateIndex removes selected deleted paths from the index and adds the other
// selected paths. Staged paths outside the selection are left alone.
func (rc *Reconciler) UpdateIndex(ctx context.Context, table *FileStatusTable, selection Selection) ExecResult {
	plan := PlanReconcile(table, selection)
	plan.Unstage = nil
	return rc.apply(ctx, plan)
}

func (rc *Reconciler) apply(ctx context.Context, plan ReconcilePlan) ExecResult {
	res := Succeeded(indexUpdatedOutput)

	if len(plan.Unstage) > 0 {
		res = rc.unstage(ctx, plan.Unstage)
		if !res.Success {
			return res
		}
	}

	if len(plan.Remove) > 0 {
		res = rc.exec.Run(ctx, NewCommand("rm").
			Flag("--cached", "--ignore-unmatch", "-q").
			Paths(plan.Remove...))
		if !res.Success {
			return res
		}
	}

	if len(plan.Add) > 0 {
		res = rc.exec.Run(ctx, NewCommand("add").Paths(plan.Add...))
	}

	return res
}

// unstage restores the index entries of paths to HEAD. On an unborn branch
// there is no HEAD to restore from, so the entries are dropped instead.
func (rc *Reconciler) unstage(ctx context.Context, paths []string) ExecResult {
	res := rc.exec.Run(ctx, NewCommand("reset").Flag("-q").Paths(paths...))
	if res.Success {
		return res
	}

	head := rc.exec.Run(ctx, NewCommand("rev-parse").Flag("--verify", "-q").Rev("HEAD"))
	if head.Success {
		return res
	}

	rc.logger.Debug("Unstaging on unborn branch", zap.Strings("paths", paths))
	return rc.exec.Run(ctx, NewCommand("rm").
		Flag("--cached", "-r", "-q", "--ignore-unmatch").
		Paths(paths...))
}
