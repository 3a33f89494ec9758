package watcher

import (
	"path"
	"strings"
)

// Kind is a bit set of the notifications a control directory change needs.
type Kind uint8

const (
	// KindStatus means the index or an in-progress operation marker changed.
	KindStatus Kind = 1 << iota

	// KindBranch means HEAD or a local branch ref moved.
	KindBranch

	KindNone Kind = 0
)

// Has reports whether k contains other.
func (k Kind) Has(other Kind) bool {
	return k&other != 0
}

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindStatus:
		return "status"
	case KindBranch:
		return "branch"
	case KindStatus | KindBranch:
		return "status|branch"
	default:
		return "unknown"
	}
}

var statusFiles = map[string]bool{
	"index":            true,
	"CHERRY_PICK_HEAD": true,
	"MERGE_HEAD":       true,
}

// Classify maps a slash separated path relative to the control directory to
// the notification it triggers. Lock files never trigger anything; git
// renames them onto the real file when it is done.
func Classify(rel string) Kind {
	rel = path.Clean(rel)
	if strings.HasSuffix(rel, ".lock") {
		return KindNone
	}
	switch {
	case statusFiles[rel]:
		return KindStatus
	case rel == "HEAD", rel == "packed-refs":
		return KindBranch
	case strings.HasPrefix(rel, "refs/heads/"):
		return KindBranch
	}
	return KindNone
}
