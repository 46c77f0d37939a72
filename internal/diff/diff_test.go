package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLines_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		old  string
		new  string
	}{
		{"identical", "a\nb\nc\n", "a\nb\nc\n"},
		{"append line", "a\nb\n", "a\nb\nc\n"},
		{"delete line", "a\nb\nc\n", "a\nc\n"},
		{"rewrite line", "a\nb\nc\n", "a\nB\nc\n"},
		{"empty to content", "", "a\nb\n"},
		{"content to empty", "a\nb\n", ""},
		{"no trailing newline", "a\nb", "a\nc"},
		{"disjoint", "x\ny\n", "p\nq\nr\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := Lines(tt.old, tt.new)
			assert.Equal(t, tt.new, Apply(tt.old, ops), "applying ops to old must yield new")
		})
	}
}

func TestLines_TiePrefersAdd(t *testing.T) {
	// With one line replaced, the backtrack must order the deletion before
	// the addition within the run (del emitted while walking back last).
	ops := Lines("x\n", "y\n")
	require.Len(t, ops, 3)
	assert.Equal(t, Del, ops[0].Kind)
	assert.Equal(t, "x", ops[0].Line)
	assert.Equal(t, Add, ops[1].Kind)
	assert.Equal(t, "y", ops[1].Line)
	assert.Equal(t, Equal, ops[2].Kind)
}

func TestUnified_Format(t *testing.T) {
	out := Unified("docs/overview.txt", "Initial overview line\n", "- Updated overview line\n")
	assert.Contains(t, out, "diff -- docs/overview.txt\n")
	assert.Contains(t, out, "--- a/docs/overview.txt\n")
	assert.Contains(t, out, "+++ b/docs/overview.txt\n")
	assert.Contains(t, out, "- Initial overview line\n")
	assert.Contains(t, out, "+ - Updated overview line\n")
}

func TestUnified_HunkHeader(t *testing.T) {
	old := "1\n2\n3\n4\n5\n6\n7\n8\n9\n"
	new := "1\n2\n3\n4\nFIVE\n6\n7\n8\n9\n"
	out := Unified("f.txt", old, new)
	assert.Contains(t, out, "@@ -3,5 +3,5 @@\n")
	// Two lines of context on each side of the change.
	assert.Contains(t, out, "  3\n  4\n- 5\n+ FIVE\n  6\n  7\n")
}

func TestUnified_EmptyFileEdge(t *testing.T) {
	// Going from an empty file to a single newline still emits a hunk header.
	out := Unified("f.txt", "", "\n")
	if !strings.Contains(out, "@@") {
		t.Fatalf("expected a hunk header, got:\n%s", out)
	}
}

func TestGutter_Classification(t *testing.T) {
	tests := []struct {
		name     string
		old      string
		new      string
		added    []int
		modified []int
		removed  []int
	}{
		{
			name:  "pure add",
			old:   "Start line\n",
			new:   "Start line\nLocal add line\n",
			added: []int{2},
		},
		{
			name:     "pure modify",
			old:      "Initial overview line\n",
			new:      "- Updated overview line\n",
			modified: []int{1},
		},
		{
			name:    "pure delete",
			old:     "First idea\nSecond idea\n",
			new:     "First idea\n",
			removed: []int{2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Gutter(tt.old, tt.new)
			for _, line := range tt.added {
				assert.True(t, res.AddedLines[line], "line %d should be added", line)
				require.NotNil(t, res.Changes[line])
				assert.Equal(t, ChangeAdd, res.Changes[line].Type)
			}
			for _, line := range tt.modified {
				assert.True(t, res.ModifiedLines[line], "line %d should be modified", line)
				require.NotNil(t, res.Changes[line])
				assert.Equal(t, ChangeModify, res.Changes[line].Type)
			}
			for _, line := range tt.removed {
				assert.True(t, res.RemovedMarkers[line], "line %d should carry a removed marker", line)
			}
		})
	}
}

func TestGutter_LineSetsMatchChangeTypes(t *testing.T) {
	old := "a\nb\nc\nd\n"
	new := "a\nB\nc\nnew\nd\n"
	res := Gutter(old, new)
	for line, change := range res.Changes {
		switch change.Type {
		case ChangeAdd:
			if !res.RemovedMarkers[line] {
				assert.True(t, res.AddedLines[line])
			}
		case ChangeModify:
			if !res.RemovedMarkers[line] {
				assert.True(t, res.ModifiedLines[line])
			}
		}
	}
	for line := range res.AddedLines {
		require.NotNil(t, res.Changes[line])
		assert.Equal(t, ChangeAdd, res.Changes[line].Type)
	}
	for line := range res.ModifiedLines {
		require.NotNil(t, res.Changes[line])
		assert.Equal(t, ChangeModify, res.Changes[line].Type)
	}
}

func TestGutter_MarkerClamp(t *testing.T) {
	// Deleting the trailing lines puts the insertion point past the end of
	// the new file; the marker clamps back inside it.
	res := Gutter("a\nb\nc", "a")
	require.Len(t, res.All, 1)
	c := res.All[0]
	assert.Equal(t, ChangeDelete, c.Type)
	assert.LessOrEqual(t, c.MarkerLine, 1)
	assert.GreaterOrEqual(t, c.MarkerLine, 1)
}

func TestMerge3_Laws(t *testing.T) {
	base := "one\ntwo\nthree\n"
	ours := "one\nTWO\nthree\n"
	theirs := "one\ntwo\nTHREE\n"

	t.Run("ours unchanged takes theirs", func(t *testing.T) {
		res := Merge3(base, base, theirs, "HEAD", "other")
		require.True(t, res.CleanMerge)
		assert.Equal(t, theirs, res.Text)
	})
	t.Run("theirs unchanged takes ours", func(t *testing.T) {
		res := Merge3(base, ours, base, "HEAD", "other")
		require.True(t, res.CleanMerge)
		assert.Equal(t, ours, res.Text)
	})
	t.Run("identical changes merge clean", func(t *testing.T) {
		res := Merge3(base, ours, ours, "HEAD", "other")
		require.True(t, res.CleanMerge)
		assert.Equal(t, ours, res.Text)
	})
	t.Run("disjoint changes combine", func(t *testing.T) {
		// A stable line separates the two edits, so each divergent region
		// resolves independently.
		sepBase := "one\ntwo\nmid\nthree\n"
		sepOurs := "one\nTWO\nmid\nthree\n"
		sepTheirs := "one\ntwo\nmid\nTHREE\n"
		res := Merge3(sepBase, sepOurs, sepTheirs, "HEAD", "other")
		require.True(t, res.CleanMerge)
		assert.Equal(t, "one\nTWO\nmid\nTHREE\n", res.Text)
	})
	t.Run("adjacent divergent edits conflict", func(t *testing.T) {
		res := Merge3(base, ours, theirs, "HEAD", "other")
		assert.False(t, res.CleanMerge)
	})
}

func TestMerge3_Conflict(t *testing.T) {
	base := "helper one\nhelper two\n"
	ours := "helper one\nhelper two updated on main\n"
	theirs := "helper one\nhelper two updated in branch\n"

	res := Merge3(base, ours, theirs, "HEAD", "abc1234")
	require.False(t, res.CleanMerge)
	assert.Contains(t, res.Text, "<<<<<<< HEAD\n")
	assert.Contains(t, res.Text, "helper two updated on main\n")
	assert.Contains(t, res.Text, "=======\n")
	assert.Contains(t, res.Text, "helper two updated in branch\n")
	assert.Contains(t, res.Text, ">>>>>>> abc1234\n")
	// The stable first line survives outside the markers.
	assert.True(t, strings.HasPrefix(res.Text, "helper one\n"))
}

func TestMerge3_DeleteVsEdit(t *testing.T) {
	base := "keep\ngone\n"
	ours := "keep\nedited\n"
	res := Merge3(base, ours, "", "HEAD", "other")
	assert.False(t, res.CleanMerge)
	assert.Contains(t, res.Text, "edited")
}
