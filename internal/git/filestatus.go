package git

import (
	"slices"
	"strings"
)

// StatusFlag is a set of per-file status bits.
type StatusFlag uint8

const (
	// InIndex indicates the index holds staged changes for the path.
	InIndex StatusFlag = 1 << iota
	// Deleted indicates the path was removed (in the index or the working tree).
	Deleted
	// Modified indicates the content differs from the parent revision.
	Modified
	// Untracked indicates git does not track the path.
	Untracked
	// Conflicted indicates an unresolved merge conflict.
	Conflicted
)

var flagNames = []struct {
	flag StatusFlag
	name string
}{
	{InIndex, "in-index"},
	{Deleted, "deleted"},
	{Modified, "modified"},
	{Untracked, "untracked"},
	{Conflicted, "conflicted"},
}

// Has reports whether every bit of f is set in s.
func (s StatusFlag) Has(f StatusFlag) bool {
	return f != 0 && s&f == f
}

// String returns the flags joined with "|", or "clean" when none are set.
func (s StatusFlag) String() string {
	if s == 0 {
		return "clean"
	}
	var parts []string
	for _, fn := range flagNames {
		if s&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// FileRecord is the status of one path as seen by a scan.
type FileRecord struct {
	Path  string
	Flags StatusFlag
}

// Has reports whether the record carries all bits of f.
func (r FileRecord) Has(f StatusFlag) bool {
	return r.Flags.Has(f)
}

// FileStatusTable is an ordered, path-indexed collection of FileRecords.
// It is read-only once built.
type FileStatusTable struct {
	records []FileRecord
	index   map[string]int
}

// NewFileStatusTable builds a table from records, keeping first-seen order.
// Records that repeat a path merge their flags into the earlier entry.
func NewFileStatusTable(records ...FileRecord) *FileStatusTable {
	t := &FileStatusTable{
		records: make([]FileRecord, 0, len(records)),
		index:   make(map[string]int, len(records)),
	}
	for _, r := range records {
		if r.Path == "" {
			continue
		}
		if i, ok := t.index[r.Path]; ok {
			t.records[i].Flags |= r.Flags
			continue
		}
		t.index[r.Path] = len(t.records)
		t.records = append(t.records, r)
	}
	return t
}

// Len returns the number of records.
func (t *FileStatusTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Lookup returns the record for path.
func (t *FileStatusTable) Lookup(path string) (FileRecord, bool) {
	if t == nil {
		return FileRecord{}, false
	}
	i, ok := t.index[path]
	if !ok {
		return FileRecord{}, false
	}
	return t.records[i], true
}

// Records returns a copy of the records in table order.
func (t *FileStatusTable) Records() []FileRecord {
	if t == nil {
		return nil
	}
	return slices.Clone(t.records)
}

// Paths returns every path in table order.
func (t *FileStatusTable) Paths() []string {
	if t == nil {
		return nil
	}
	paths := make([]string, len(t.records))
	for i, r := range t.records {
		paths[i] = r.Path
	}
	return paths
}

// Filter returns the paths whose records carry all bits of f.
func (t *FileStatusTable) Filter(f StatusFlag) []string {
	if t == nil {
		return nil
	}
	var paths []string
	for _, r := range t.records {
		if r.Has(f) {
			paths = append(paths, r.Path)
		}
	}
	return paths
}

// Selection is the set of paths a user wants in the next commit.
type Selection struct {
	paths map[string]struct{}
}

// NewSelection builds a selection. Empty paths are dropped.
func NewSelection(paths ...string) Selection {
	s := Selection{paths: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		if p != "" {
			s.paths[p] = struct{}{}
		}
	}
	return s
}

// Contains reports whether path is selected.
func (s Selection) Contains(path string) bool {
	_, ok := s.paths[path]
	return ok
}

// Len returns the number of selected paths.
func (s Selection) Len() int {
	return len(s.paths)
}

// Paths returns the selected paths in sorted order.
func (s Selection) Paths() []string {
	paths := make([]string, 0, len(s.paths))
	for p := range s.paths {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}
