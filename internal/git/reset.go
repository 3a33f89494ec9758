package git

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// CommitResetKind selects how far a commit reset reaches.
type CommitResetKind int

const (
	// ResetSoft moves HEAD only.
	ResetSoft CommitResetKind = iota
	// ResetMixed moves HEAD and resets the index.
	ResetMixed
	// ResetHard moves HEAD and resets both index and working tree.
	ResetHard
)

// String returns the git mode token for the kind.
func (k CommitResetKind) String() string {
	switch k {
	case ResetSoft:
		return "soft"
	case ResetMixed:
		return "mixed"
	case ResetHard:
		return "hard"
	default:
		return "unknown"
	}
}

// flag returns the git option for the kind.
func (k CommitResetKind) flag() (string, error) {
	switch k {
	case ResetSoft, ResetMixed, ResetHard:
		return "--" + k.String(), nil
	default:
		return "", errors.Wrapf(ErrUnknownResetKind, "%d", int(k))
	}
}

// ParseResetKind parses "soft", "mixed" or "hard" (case-insensitive).
func ParseResetKind(s string) (CommitResetKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "soft":
		return ResetSoft, nil
	case "mixed":
		return ResetMixed, nil
	case "hard":
		return ResetHard, nil
	default:
		return 0, errors.Wrapf(ErrUnknownResetKind, "%q", s)
	}
}
