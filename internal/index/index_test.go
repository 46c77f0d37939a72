package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/object"
	"github.com/chazuruo/edugit/internal/repo"
	"github.com/chazuruo/edugit/internal/vfs"
)

// newTestRepo initialises a repository at "/" in a fresh store.
func newTestRepo(t *testing.T) *repo.Repository {
	t.Helper()
	fs := vfs.NewMemStore()
	r, err := repo.Init(fs, "/", repo.Options{})
	require.NoError(t, err)
	return r
}

// writeWork writes a working-tree file.
func writeWork(t *testing.T, r *repo.Repository, rel, content string) {
	t.Helper()
	require.NoError(t, r.FS().WriteFile(r.WorkPath(rel), []byte(content)))
}

// commitAll stages everything and commits, returning the new tip.
func commitAll(t *testing.T, r *repo.Repository, msg string) object.Oid {
	t.Helper()
	idx, err := Load(r)
	require.NoError(t, err)
	require.NoError(t, Add(r, idx, "."))
	require.NoError(t, idx.Save(r))

	tree, err := WriteTree(r, idx)
	require.NoError(t, err)
	head, err := r.ResolveRef("HEAD")
	require.NoError(t, err)
	var parents []object.Oid
	if head != "" {
		parents = append(parents, head)
	}
	commit, err := r.CreateCommit(tree, parents, msg)
	require.NoError(t, err)
	branch, err := r.CurrentBranch()
	require.NoError(t, err)
	require.NoError(t, r.WriteRef(repo.BranchRef(branch), commit, true))
	return commit
}

func TestIndex_StageInvariants(t *testing.T) {
	r := newTestRepo(t)
	idx, err := Load(r)
	require.NoError(t, err)

	blob := object.Hash(object.TypeBlob, []byte("x"))
	idx.SetConflict("f.txt", blob, blob, "")
	assert.True(t, idx.InConflict("f.txt"))
	assert.Equal(t, []string{"f.txt"}, idx.ConflictPaths())
	_, ok := idx.Get("f.txt")
	assert.False(t, ok, "no stage-0 entry while conflicted")

	// Staging the path resolves the conflict: stage 0 only.
	idx.Set("f.txt", blob)
	assert.False(t, idx.InConflict("f.txt"))
	e, ok := idx.Get("f.txt")
	require.True(t, ok)
	assert.Equal(t, blob, e.Oid)
	assert.Len(t, idx.Stages("f.txt"), 1)
}

func TestIndex_SaveLoadRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	idx, err := Load(r)
	require.NoError(t, err)
	idx.Set("b.txt", object.Hash(object.TypeBlob, []byte("b")))
	idx.Set("a.txt", object.Hash(object.TypeBlob, []byte("a")))
	require.NoError(t, idx.Save(r))

	loaded, err := Load(r)
	require.NoError(t, err)
	assert.Equal(t, idx.Entries, loaded.Entries)
	assert.Equal(t, []string{"a.txt", "b.txt"}, loaded.Paths())
}

func TestAdd_FileAndDirectory(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "src/a.txt", "a\n")
	writeWork(t, r, "src/sub/b.txt", "b\n")
	writeWork(t, r, "top.txt", "t\n")

	idx, err := Load(r)
	require.NoError(t, err)

	require.NoError(t, Add(r, idx, "src"))
	assert.Equal(t, []string{"src/a.txt", "src/sub/b.txt"}, idx.Paths())

	require.NoError(t, Add(r, idx, "."))
	assert.Equal(t, []string{"src/a.txt", "src/sub/b.txt", "top.txt"}, idx.Paths())
}

func TestAdd_StagesDeletion(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "gone.txt", "x\n")
	commitAll(t, r, "init")

	require.NoError(t, r.FS().Unlink(r.WorkPath("gone.txt")))
	idx, err := Load(r)
	require.NoError(t, err)
	require.NoError(t, Add(r, idx, "gone.txt"))
	_, ok := idx.Get("gone.txt")
	assert.False(t, ok)
}

func TestStatusMatrix_Codes(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "clean.txt", "same\n")
	writeWork(t, r, "modified.txt", "old\n")
	writeWork(t, r, "deleted.txt", "bye\n")
	commitAll(t, r, "init")

	writeWork(t, r, "modified.txt", "new\n")
	require.NoError(t, r.FS().Unlink(r.WorkPath("deleted.txt")))
	writeWork(t, r, "untracked.txt", "??\n")

	rows, err := StatusMatrix(r)
	require.NoError(t, err)
	byPath := map[string]Row{}
	for _, row := range rows {
		byPath[row.Path] = row
	}

	assert.Equal(t, Row{
		Path: "clean.txt", Head: Same, Index: Same, Workdir: Same,
		HeadOid: byPath["clean.txt"].HeadOid, IndexOid: byPath["clean.txt"].IndexOid,
		WorkOid: byPath["clean.txt"].WorkOid,
	}, byPath["clean.txt"])

	assert.Equal(t, Different, byPath["modified.txt"].Workdir)
	assert.Equal(t, Same, byPath["modified.txt"].Index)

	assert.Equal(t, Absent, byPath["deleted.txt"].Workdir)
	assert.Equal(t, Same, byPath["deleted.txt"].Index)

	assert.Equal(t, Absent, byPath["untracked.txt"].Head)
	assert.Equal(t, Absent, byPath["untracked.txt"].Index)
	assert.Equal(t, Different, byPath["untracked.txt"].Workdir)
}

func TestStatus_Summary(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "committed.txt", "c\n")
	commitAll(t, r, "init")

	s, err := Status(r)
	require.NoError(t, err)
	assert.True(t, s.Clean())

	// Stage a new file, modify the committed one, add an untracked one.
	writeWork(t, r, "staged.txt", "s\n")
	idx, err := Load(r)
	require.NoError(t, err)
	require.NoError(t, Add(r, idx, "staged.txt"))
	require.NoError(t, idx.Save(r))
	writeWork(t, r, "committed.txt", "changed\n")
	writeWork(t, r, "wild.txt", "w\n")

	s, err = Status(r)
	require.NoError(t, err)
	assert.False(t, s.Clean())
	assert.Equal(t, []string{"staged.txt"}, s.StagedNew)
	assert.Equal(t, []string{"committed.txt"}, s.Modified)
	assert.Equal(t, []string{"wild.txt"}, s.Untracked)
	assert.False(t, s.TrackedClean())
}

func TestResetPath(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "a.txt", "v1\n")
	commitAll(t, r, "init")

	// Stage a change, then unstage it.
	writeWork(t, r, "a.txt", "v2\n")
	idx, err := Load(r)
	require.NoError(t, err)
	require.NoError(t, Add(r, idx, "a.txt"))
	require.NoError(t, ResetPath(r, idx, "a.txt"))
	require.NoError(t, idx.Save(r))

	s, err := Status(r)
	require.NoError(t, err)
	assert.Empty(t, s.StagedModified)
	assert.Equal(t, []string{"a.txt"}, s.Modified)

	// Paths absent from HEAD are cleared entirely.
	writeWork(t, r, "new.txt", "n\n")
	require.NoError(t, Add(r, idx, "new.txt"))
	require.NoError(t, ResetPath(r, idx, "new.txt"))
	_, ok := idx.Get("new.txt")
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "doomed.txt", "x\n")
	commitAll(t, r, "init")

	idx, err := Load(r)
	require.NoError(t, err)
	require.NoError(t, Remove(r, idx, "doomed.txt"))
	require.NoError(t, idx.Save(r))

	assert.False(t, vfs.Exists(r.FS(), r.WorkPath("doomed.txt")))
	_, ok := idx.Get("doomed.txt")
	assert.False(t, ok)

	assert.Error(t, Remove(r, idx, "never-was.txt"))
}

func TestCheckout_BranchSwitch(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "shared.txt", "base\n")
	base := commitAll(t, r, "base")
	require.NoError(t, r.CreateBranch("feature", base))

	require.NoError(t, Checkout(r, CheckoutOptions{Ref: "feature"}))
	writeWork(t, r, "feature.txt", "f\n")
	commitAll(t, r, "feature work")

	require.NoError(t, Checkout(r, CheckoutOptions{Ref: "main"}))
	assert.False(t, vfs.Exists(r.FS(), r.WorkPath("feature.txt")), "feature file leaves with its branch")
	branch, err := r.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	require.NoError(t, Checkout(r, CheckoutOptions{Ref: "feature"}))
	assert.True(t, vfs.Exists(r.FS(), r.WorkPath("feature.txt")))
}

func TestCheckout_DirtyOverlapAborts(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "f.txt", "v1\n")
	commitAll(t, r, "one")
	require.NoError(t, r.CreateBranch("before", mustHead(t, r)))

	writeWork(t, r, "f.txt", "v2\n")
	commitAll(t, r, "two")

	// Local edit overlapping the switch target.
	writeWork(t, r, "f.txt", "local\n")
	err := Checkout(r, CheckoutOptions{Ref: "before"})
	assert.True(t, errors.IsDirtyWorkingTree(err))

	// Force wins.
	require.NoError(t, Checkout(r, CheckoutOptions{Ref: "before", Force: true}))
	data, err := r.FS().ReadFile(r.WorkPath("f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "v1\n", string(data))
}

func TestCheckout_NonOverlappingDirtKept(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "stable.txt", "same everywhere\n")
	writeWork(t, r, "f.txt", "v1\n")
	commitAll(t, r, "one")
	require.NoError(t, r.CreateBranch("twin", mustHead(t, r)))

	// An edit to a file identical on both branches survives the switch.
	writeWork(t, r, "stable.txt", "locally edited\n")
	require.NoError(t, Checkout(r, CheckoutOptions{Ref: "twin"}))
	data, err := r.FS().ReadFile(r.WorkPath("stable.txt"))
	require.NoError(t, err)
	assert.Equal(t, "locally edited\n", string(data))
}

func TestCheckout_FileRestore(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "a.txt", "committed\n")
	commitAll(t, r, "init")

	writeWork(t, r, "a.txt", "scribbled\n")
	require.NoError(t, Checkout(r, CheckoutOptions{Ref: "HEAD", Filepaths: []string{"a.txt"}}))
	data, err := r.FS().ReadFile(r.WorkPath("a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "committed\n", string(data))

	branch, err := r.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "main", branch, "file restore never moves HEAD")

	err = Checkout(r, CheckoutOptions{Ref: "HEAD", Filepaths: []string{"missing.txt"}})
	assert.Error(t, err)
}

func TestCheckout_Detach(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "a.txt", "1\n")
	first := commitAll(t, r, "one")
	writeWork(t, r, "a.txt", "2\n")
	commitAll(t, r, "two")

	require.NoError(t, Checkout(r, CheckoutOptions{Ref: string(first)}))
	branch, err := r.CurrentBranch()
	require.NoError(t, err)
	assert.Empty(t, branch, "checkout of an oid detaches HEAD")
	data, err := r.FS().ReadFile(r.WorkPath("a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "1\n", string(data))
}

func mustHead(t *testing.T, r *repo.Repository) object.Oid {
	t.Helper()
	head, err := r.ResolveRef("HEAD")
	require.NoError(t, err)
	return head
}
