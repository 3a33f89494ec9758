package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFlagString(t *testing.T) {
	assert.Equal(t, "clean", StatusFlag(0).String())
	assert.Equal(t, "in-index|deleted", (InIndex | Deleted).String())
	assert.Equal(t, "untracked", Untracked.String())
}

func TestStatusFlagHas(t *testing.T) {
	f := InIndex | Modified
	assert.True(t, f.Has(InIndex))
	assert.True(t, f.Has(InIndex|Modified))
	assert.False(t, f.Has(InIndex|Deleted))
	assert.False(t, f.Has(0))
}

func TestFileStatusTableMergesDuplicates(t *testing.T) {
	table := NewFileStatusTable(
		FileRecord{Path: "b.txt", Flags: Modified},
		FileRecord{Path: "a.txt", Flags: InIndex},
		FileRecord{Path: "b.txt", Flags: InIndex},
		FileRecord{Path: "", Flags: Modified},
	)

	require.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"b.txt", "a.txt"}, table.Paths())

	rec, ok := table.Lookup("b.txt")
	require.True(t, ok)
	assert.Equal(t, InIndex|Modified, rec.Flags)

	_, ok = table.Lookup("missing")
	assert.False(t, ok)
}

func TestFileStatusTableFilter(t *testing.T) {
	table := NewFileStatusTable(
		FileRecord{Path: "a", Flags: InIndex | Modified},
		FileRecord{Path: "b", Flags: Deleted},
		FileRecord{Path: "c", Flags: InIndex | Deleted},
	)

	assert.Equal(t, []string{"a", "c"}, table.Filter(InIndex))
	assert.Equal(t, []string{"b", "c"}, table.Filter(Deleted))
	assert.Empty(t, table.Filter(Untracked))
}

func TestFileStatusTableRecordsIsCopy(t *testing.T) {
	table := NewFileStatusTable(FileRecord{Path: "a", Flags: Modified})
	recs := table.Records()
	recs[0].Flags = Deleted

	rec, _ := table.Lookup("a")
	assert.Equal(t, Modified, rec.Flags)
}

func TestNilFileStatusTable(t *testing.T) {
	var table *FileStatusTable
	assert.Equal(t, 0, table.Len())
	assert.Nil(t, table.Records())
	_, ok := table.Lookup("a")
	assert.False(t, ok)
}

func TestSelection(t *testing.T) {
	sel := NewSelection("z.txt", "", "a.txt", "a.txt")
	assert.Equal(t, 2, sel.Len())
	assert.True(t, sel.Contains("a.txt"))
	assert.False(t, sel.Contains(""))
	assert.Equal(t, []string{"a.txt", "z.txt"}, sel.Paths())

	var zero Selection
	assert.False(t, zero.Contains("a.txt"))
	assert.Empty(t, zero.Paths())
}
