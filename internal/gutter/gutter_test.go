package gutter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazuruo/edugit/internal/diff"
	"github.com/chazuruo/edugit/internal/index"
	"github.com/chazuruo/edugit/internal/ops"
	"github.com/chazuruo/edugit/internal/repo"
	"github.com/chazuruo/edugit/internal/vfs"
)

// seedRepo commits one file and returns the repository.
func seedRepo(t *testing.T, rel, content string) *repo.Repository {
	t.Helper()
	fs := vfs.NewMemStore()
	r, err := repo.Init(fs, "/", repo.Options{})
	require.NoError(t, err)
	require.NoError(t, fs.WriteFile(r.WorkPath(rel), []byte(content)))
	idx, err := index.Load(r)
	require.NoError(t, err)
	require.NoError(t, index.Add(r, idx, "."))
	require.NoError(t, idx.Save(r))
	out, err := ops.Commit(r, "init")
	require.NoError(t, err)
	require.Equal(t, ops.OutcomeClean, out.Kind)
	return r
}

func TestCompute_AgainstHead(t *testing.T) {
	r := seedRepo(t, "a.txt", "one\ntwo\n")

	res, err := Compute(r, "a.txt", "one\ninserted\ntwo\n")
	require.NoError(t, err)
	assert.True(t, res.AddedLines[2])
	assert.Empty(t, res.ModifiedLines)

	// A file unknown to HEAD is all additions.
	res, err = Compute(r, "new.txt", "x\ny\n")
	require.NoError(t, err)
	assert.True(t, res.AddedLines[1])
	assert.True(t, res.AddedLines[2])
}

func TestRevert_ByChangeType(t *testing.T) {
	tests := []struct {
		name   string
		head   string
		buffer string
	}{
		{"revert add", "one\ntwo\n", "one\nadded\ntwo\n"},
		{"revert modify", "one\ntwo\n", "one\nTWO\n"},
		{"revert delete", "one\ntwo\nthree\n", "one\nthree\n"},
		{"revert delete at end", "one\ntwo\nthree\n", "one\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := diff.Gutter(tt.head, tt.buffer)
			require.NotEmpty(t, res.All)
			// Reverting every change restores the HEAD text.
			buffer := tt.buffer
			for {
				res := diff.Gutter(tt.head, buffer)
				if len(res.All) == 0 {
					break
				}
				buffer = Revert(buffer, res.All[0])
			}
			assert.Equal(t, tt.head, buffer)
		})
	}
}

func TestRevert_WritesMatchRecord(t *testing.T) {
	head := "a\nb\nc\n"
	buffer := "a\nX\nc\n"
	res := diff.Gutter(head, buffer)
	require.Len(t, res.All, 1)
	c := res.All[0]
	assert.Equal(t, diff.ChangeModify, c.Type)
	assert.Equal(t, []string{"b"}, c.OldLines)
	assert.Equal(t, []string{"X"}, c.NewLines)
	assert.Equal(t, head, Revert(buffer, c))
}

func TestTracker(t *testing.T) {
	var tr Tracker
	assert.True(t, tr.Stale("f.txt", 1, "buf"), "zero tracker is always stale")

	tr.Begin("f.txt", 1, "buf")
	assert.False(t, tr.Stale("f.txt", 1, "buf"))
	assert.False(t, tr.Cancelled())

	// Any input change makes the projection stale.
	assert.True(t, tr.Stale("f.txt", 2, "buf"))
	assert.True(t, tr.Stale("g.txt", 1, "buf"))
	assert.True(t, tr.Stale("f.txt", 1, "edited"))

	tr.Cancel()
	assert.True(t, tr.Cancelled())
	tr.Begin("g.txt", 2, "buf2")
	assert.False(t, tr.Cancelled(), "Begin resets the cancelled flag")
}

func TestCompute_UsesBlobFromHead(t *testing.T) {
	r := seedRepo(t, "a.txt", "committed\n")
	// Even with the working tree rewritten, Compute diffs the buffer
	// against HEAD, not the file on disk.
	require.NoError(t, r.FS().WriteFile(r.WorkPath("a.txt"), []byte("disk state\n")))
	res, err := Compute(r, "a.txt", "committed\n")
	require.NoError(t, err)
	assert.Empty(t, res.All, "buffer identical to HEAD has no changes")
}
