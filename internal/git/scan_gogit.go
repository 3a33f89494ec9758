package git

import (
	"context"
	"slices"

	"github.com/cockroachdb/errors"
	gogit "github.com/go-git/go-git/v5"
)

// GoGitScanner reads working tree status in-process with go-git, without
// spawning the git binary.
type GoGitScanner struct {
	root string
}

// NewGoGitScanner creates a scanner for the working tree at root.
func NewGoGitScanner(root string) *GoGitScanner {
	return &GoGitScanner{root: root}
}

// Scan opens the repository and converts go-git's status to a table.
func (s *GoGitScanner) Scan(ctx context.Context) (*FileStatusTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	repo, err := gogit.PlainOpenWithOptions(s.root, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, errors.Wrapf(ErrNotRepository, "%s", s.root)
		}
		return nil, errors.Wrap(err, "open repository")
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, errors.Wrap(err, "worktree")
	}

	status, err := wt.Status()
	if err != nil {
		return nil, errors.Wrap(err, "worktree status")
	}

	// go-git returns a map; sort for a stable table order
	paths := make([]string, 0, len(status))
	for p := range status {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	records := make([]FileRecord, 0, len(paths))
	for _, p := range paths {
		fs := status[p]
		flags := flagsFromCodes(byte(fs.Staging), byte(fs.Worktree))
		if flags == 0 {
			continue
		}
		records = append(records, FileRecord{Path: p, Flags: flags})
		if fs.Staging == gogit.Renamed && fs.Extra != "" {
			records = append(records, FileRecord{Path: fs.Extra, Flags: InIndex | Deleted})
		}
	}

	return NewFileStatusTable(records...), nil
}
