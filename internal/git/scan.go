package git

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
)

// Scanner produces a FileStatusTable for a working tree.
type Scanner interface {
	Scan(ctx context.Context) (*FileStatusTable, error)
}

// Scanner names accepted by Repository.Scanner.
const (
	ScannerPorcelain = "porcelain"
	ScannerGoGit     = "gogit"
)

// Scanner returns the named status scanner for this repository.
func (r *Repository) Scanner(name string) (Scanner, error) {
	switch name {
	case "", ScannerPorcelain:
		return &PorcelainScanner{exec: r.exec}, nil
	case ScannerGoGit:
		return &GoGitScanner{root: r.path}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownScanner, "%q", name)
	}
}

// PorcelainScanner reads `git status --porcelain=v2 -z`.
type PorcelainScanner struct {
	exec Executor
}

// NewPorcelainScanner creates a scanner over exec.
func NewPorcelainScanner(exec Executor) *PorcelainScanner {
	return &PorcelainScanner{exec: exec}
}

// Scan runs git status and parses its output.
func (s *PorcelainScanner) Scan(ctx context.Context) (*FileStatusTable, error) {
	res := s.exec.Run(ctx, NewCommand("status").
		Flag("--porcelain=v2", "-z", "--untracked-files=all"))
	if !res.Success {
		if res.Err != nil {
			return nil, errors.Wrap(res.Err, "git status")
		}
		return nil, errors.Newf("git status: %s", strings.TrimSpace(res.Output))
	}
	return parsePorcelainV2(res.Output), nil
}

// parsePorcelainV2 parses NUL-terminated porcelain v2 entries:
//
//	1 <XY> <sub> <mH> <mI> <mW> <hH> <hI> <path>
//	2 <XY> <sub> <mH> <mI> <mW> <hH> <hI> <X><score> <path>\0<origPath>
//	u <XY> <sub> <m1> <m2> <m3> <mW> <h1> <h2> <h3> <path>
//	? <path>
func parsePorcelainV2(output string) *FileStatusTable {
	entries := strings.Split(output, "\x00")
	var records []FileRecord

	for i := 0; i < len(entries); i++ {
		entry := entries[i]
		if len(entry) < 2 {
			continue
		}

		switch entry[0] {
		case '1':
			fields := strings.SplitN(entry, " ", 9)
			if len(fields) < 9 {
				continue
			}
			records = append(records, FileRecord{
				Path:  fields[8],
				Flags: flagsFromCodes(fields[1][0], fields[1][1]),
			})
		case '2':
			fields := strings.SplitN(entry, " ", 10)
			if len(fields) < 10 {
				continue
			}
			records = append(records, FileRecord{
				Path:  fields[9],
				Flags: flagsFromCodes(fields[1][0], fields[1][1]),
			})
			// The rename source path follows as its own entry
			if i+1 < len(entries) && entries[i+1] != "" {
				i++
				if fields[8][0] == 'R' {
					records = append(records, FileRecord{Path: entries[i], Flags: InIndex | Deleted})
				}
			}
		case 'u':
			fields := strings.SplitN(entry, " ", 11)
			if len(fields) < 11 {
				continue
			}
			records = append(records, FileRecord{Path: fields[10], Flags: Conflicted})
		case '?':
			records = append(records, FileRecord{Path: entry[2:], Flags: Untracked})
		}
	}

	return NewFileStatusTable(records...)
}

// flagsFromCodes maps an index (x) and worktree (y) status code pair to
// flags. Both porcelain ('.') and go-git (' ') spellings of "unchanged" are
// accepted.
func flagsFromCodes(x, y byte) StatusFlag {
	var flags StatusFlag

	switch x {
	case '.', ' ':
	case '?':
		return Untracked
	case 'U':
		return Conflicted
	default:
		flags |= InIndex
	}
	if y == 'U' {
		return Conflicted
	}

	for _, c := range []byte{x, y} {
		switch c {
		case 'D':
			flags |= Deleted
		case 'M', 'T', 'A', 'R', 'C':
			flags |= Modified
		}
	}
	return flags
}
