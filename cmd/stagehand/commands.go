package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/dshills/stagehand/internal/event"
	"github.com/dshills/stagehand/internal/event/events"
	"github.com/dshills/stagehand/internal/git"
	"github.com/dshills/stagehand/internal/watcher"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the file status table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := a.scan(cmd.Context())
			if err != nil {
				return err
			}

			branch := a.repo.UpdateCurrentBranch(cmd.Context())
			if branch != "" {
				fmt.Fprintf(a.stdout, "On branch %s\n", branch)
			}
			local := a.repo.Local()
			if local.IsCherryPickInProgress() {
				fmt.Fprintln(a.stdout, "Cherry-pick in progress")
			}
			if local.IsMergeInProgress() {
				fmt.Fprintln(a.stdout, "Merge in progress")
			}
			for _, rec := range table.Records() {
				fmt.Fprintf(a.stdout, "%-20s %s\n", rec.Flags, rec.Path)
			}
			return nil
		},
	}
}

func newStageCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stage <path>",
		Short: "Add one path to the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkResult("stage", a.repo.Local().StageFile(cmd.Context(), args[0]))
		},
	}
}

func newUnstageCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unstage <path>",
		Short: "Reset one path in the index to HEAD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkResult("unstage", a.repo.Local().ResetFile(cmd.Context(), args[0]))
		},
	}
}

// errEmptyMessage is returned before the index is touched; git would reject
// the commit only after reconciliation.
var errEmptyMessage = errors.New("commit message must not be empty")

// selectionFor returns the selection of paths, or every tracked change of
// table when paths is empty.
func selectionFor(table *git.FileStatusTable, paths []string) git.Selection {
	if len(paths) > 0 {
		return git.NewSelection(paths...)
	}
	var selected []string
	for _, rec := range table.Records() {
		if !rec.Has(git.Untracked) {
			selected = append(selected, rec.Path)
		}
	}
	return git.NewSelection(selected...)
}

func newCommitCmd(a *app) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "commit -m <message> [paths...]",
		Short: "Commit exactly the given paths",
		Long: `Commit exactly the given paths. The index is first reconciled so that it
holds the selected paths and nothing else. With no paths every tracked change
is committed; untracked files must be named explicitly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(message) == "" {
				return errEmptyMessage
			}
			ctx := cmd.Context()
			table, err := a.scan(ctx)
			if err != nil {
				return err
			}
			sel := selectionFor(table, args)
			otelzap.Ctx(ctx).Info("Committing", zap.Strings("paths", sel.Paths()))

			res := a.repo.Local().Commit(ctx, sel, table, message)
			if err := checkResult("commit", res); err != nil {
				return err
			}
			fmt.Fprint(a.stdout, res.Output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Commit message")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func newAmendCmd(a *app) *cobra.Command {
	var message, author string

	cmd := &cobra.Command{
		Use:   "amend -m <message> [paths...]",
		Short: "Amend the last commit with exactly the given paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(message) == "" {
				return errEmptyMessage
			}
			ctx := cmd.Context()
			table, err := a.scan(ctx)
			if err != nil {
				return err
			}
			sel := selectionFor(table, args)

			res := a.repo.Local().Amend(ctx, sel, table, message, author)
			if err := checkResult("amend", res); err != nil {
				return err
			}
			fmt.Fprint(a.stdout, res.Output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Commit message, replacing the current one")
	cmd.Flags().StringVar(&author, "author", "", `Override the author ("Name <email>")`)
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func newResetCmd(a *app) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "reset <sha>",
		Short: "Move HEAD to a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := git.ParseResetKind(mode)
			if err != nil {
				return err
			}
			if !a.repo.Local().ResetCommit(cmd.Context(), args[0], kind) {
				return &gitFailure{op: "reset --" + kind.String()}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "mixed", "Reset mode (soft, mixed, hard)")
	return cmd
}

func newCheckoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <sha>",
		Short: "Check out a commit or branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkResult("checkout", a.repo.Local().CheckoutCommit(cmd.Context(), args[0])); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "HEAD is now at %s\n", a.repo.CurrentBranch())
			return nil
		},
	}
}

func newCheckoutFileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout-file <path>",
		Short: "Discard working tree changes to one path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" {
				return git.ErrEmptyPath
			}
			if !a.repo.Local().CheckoutFile(cmd.Context(), args[0]) {
				return &gitFailure{op: "checkout-file"}
			}
			return nil
		},
	}
}

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <paths...>",
		Short: "Mark conflicted paths as resolved",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkResult("resolve", a.repo.Local().MarkResolved(cmd.Context(), args...))
		},
	}
}

func newCherryPickCmd(a *app) *cobra.Command {
	var cont, abort, status bool

	cmd := &cobra.Command{
		Use:   "cherry-pick <sha> | --continue | --abort | --status",
		Short: "Apply a commit, or drive an in-progress cherry-pick",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			local := a.repo.Local()

			switch {
			case status:
				if local.IsCherryPickInProgress() {
					fmt.Fprintln(a.stdout, "in progress")
				} else {
					fmt.Fprintln(a.stdout, "none")
				}
				return nil
			case cont:
				return checkResult("cherry-pick --continue", local.CherryPickContinue(ctx))
			case abort:
				return checkResult("cherry-pick --abort", local.CherryPickAbort(ctx))
			}

			if len(args) != 1 {
				return errors.New("cherry-pick needs exactly one commit")
			}
			res := local.CherryPick(ctx, args[0])
			if !res.Success && local.IsCherryPickInProgress() {
				otelzap.Ctx(ctx).Warn("Cherry-pick stopped on conflicts", zap.String("sha", args[0]))
			}
			return checkResult("cherry-pick", res)
		},
	}
	cmd.Flags().BoolVar(&cont, "continue", false, "Continue after resolving conflicts")
	cmd.Flags().BoolVar(&abort, "abort", false, "Abort and restore the previous state")
	cmd.Flags().BoolVar(&status, "status", false, "Report whether a cherry-pick is in progress")
	cmd.MarkFlagsMutuallyExclusive("continue", "abort", "status")
	return cmd
}

func newWipCmd(a *app) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "wip",
		Short: "Show uncommitted changes relative to the parent revision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, diag := a.repo.Wip().ExtractWithDiagnostics(cmd.Context())
			if snap.IsEmpty() {
				return checkResult("wip", diag.Head)
			}
			for _, err := range diag.Errors() {
				otelzap.Ctx(cmd.Context()).Warn("Diff unavailable", zap.Error(err))
			}

			parent := snap.ParentRevision
			if snap.IsInitial() {
				parent += " (empty tree)"
			}
			fmt.Fprintf(a.stdout, "Parent: %s\n", parent)

			if raw {
				fmt.Fprintf(a.stdout, "Staged:\n%s\n", strings.ReplaceAll(snap.StagedDiff, "\x00", "\t"))
				fmt.Fprintf(a.stdout, "Unstaged:\n%s\n", strings.ReplaceAll(snap.UnstagedDiff, "\x00", "\t"))
				return nil
			}
			for _, rec := range snap.Changes().Records() {
				fmt.Fprintf(a.stdout, "%-20s %s\n", rec.Flags, rec.Path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the name-status bodies")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print git events as the repository changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			sub, err := a.bus.SubscribeFunc(events.TopicGitAll, func(_ context.Context, ev any) error {
				if env, ok := ev.(event.Envelope); ok {
					fmt.Fprintln(a.stdout, events.Describe(env))
				}
				return nil
			})
			if err != nil {
				return err
			}
			defer func() { _ = a.bus.Unsubscribe(sub) }()

			w, err := watcher.New(a.repo, watcher.Options{
				Debounce: a.cfg.Watch.Debounce,
				Logger:   a.logger,
			})
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()

			a.repo.UpdateCurrentBranch(ctx)
			otelzap.Ctx(ctx).Info("Watching", zap.String("gitdir", a.repo.GitDir()))
			return w.Run(ctx)
		},
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"repository": "false"},
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(a.stdout, "stagehand %s\n", version)
			fmt.Fprintf(a.stdout, "Commit: %s\n", commit)
			fmt.Fprintf(a.stdout, "Built: %s\n", date)
		},
	}
}
