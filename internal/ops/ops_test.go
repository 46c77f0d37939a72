package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/index"
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

func writeWork(t *testing.T, r *repo.Repository, rel, content string) {
	t.Helper()
	require.NoError(t, r.FS().WriteFile(r.WorkPath(rel), []byte(content)))
}

func readWork(t *testing.T, r *repo.Repository, rel string) string {
	t.Helper()
	data, err := r.FS().ReadFile(r.WorkPath(rel))
	require.NoError(t, err)
	return string(data)
}

// stageAll stages the whole working tree.
func stageAll(t *testing.T, r *repo.Repository) {
	t.Helper()
	idx, err := index.Load(r)
	require.NoError(t, err)
	require.NoError(t, index.Add(r, idx, "."))
	require.NoError(t, idx.Save(r))
}

// commitAll stages everything and commits.
func commitAll(t *testing.T, r *repo.Repository, msg string) object.Oid {
	t.Helper()
	stageAll(t, r)
	out, err := Commit(r, msg)
	require.NoError(t, err)
	require.Equal(t, OutcomeClean, out.Kind)
	return out.Commit
}

func logOids(t *testing.T, r *repo.Repository, ref string) []object.Oid {
	t.Helper()
	tip, err := r.ResolveCommitish(ref)
	require.NoError(t, err)
	entries, err := r.Log(tip)
	require.NoError(t, err)
	var oids []object.Oid
	for _, e := range entries {
		oids = append(oids, e.Oid)
	}
	return oids
}

func TestCommit_Basic(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "a.txt", "one\n")
	first := commitAll(t, r, "init")

	c, err := r.ReadCommit(first)
	require.NoError(t, err)
	assert.Equal(t, "init", c.Message)
	assert.Empty(t, c.Parents)

	// Nothing staged: no new commit.
	out, err := Commit(r, "again")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpToDate, out.Kind)

	writeWork(t, r, "a.txt", "two\n")
	second := commitAll(t, r, "update")
	c, err = r.ReadCommit(second)
	require.NoError(t, err)
	assert.Equal(t, []object.Oid{first}, c.Parents)
}

func TestCommit_BlockedByConflictStages(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "a.txt", "x\n")
	commitAll(t, r, "init")

	idx, err := index.Load(r)
	require.NoError(t, err)
	blob := object.Hash(object.TypeBlob, []byte("x\n"))
	idx.SetConflict("a.txt", blob, blob, blob)
	require.NoError(t, idx.Save(r))

	_, err = Commit(r, "nope")
	_, isConflict := errors.AsConflictError(err)
	assert.True(t, isConflict)
}

func TestMerge_FastForwardLaw(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "a.txt", "base\n")
	base := commitAll(t, r, "base")
	require.NoError(t, r.CreateBranch("feature", base))
	require.NoError(t, index.Checkout(r, index.CheckoutOptions{Ref: "feature"}))
	writeWork(t, r, "a.txt", "feature\n")
	tip := commitAll(t, r, "feature work")

	require.NoError(t, index.Checkout(r, index.CheckoutOptions{Ref: "main"}))
	out, err := Merge(r, "feature")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFastForward, out.Kind)
	assert.Equal(t, tip, out.Commit)

	// The branch ref moved, no new commit was made.
	head, err := r.ResolveRef("HEAD")
	require.NoError(t, err)
	assert.Equal(t, tip, head)
	assert.Equal(t, "feature\n", readWork(t, r, "a.txt"))
}

func TestMerge_AlreadyMerged(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "a.txt", "one\n")
	first := commitAll(t, r, "one")
	require.NoError(t, r.CreateBranch("old", first))
	writeWork(t, r, "a.txt", "two\n")
	commitAll(t, r, "two")

	out, err := Merge(r, "old")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpToDate, out.Kind)
}

func TestMerge_CleanThreeWay(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "a.txt", "line one\nline two\nline three\n")
	base := commitAll(t, r, "base")
	require.NoError(t, r.CreateBranch("feature", base))

	// main edits line one.
	writeWork(t, r, "a.txt", "MAIN one\nline two\nline three\n")
	mainTip := commitAll(t, r, "main edit")

	// feature edits line three.
	require.NoError(t, index.Checkout(r, index.CheckoutOptions{Ref: "feature"}))
	writeWork(t, r, "a.txt", "line one\nline two\nFEATURE three\n")
	featureTip := commitAll(t, r, "feature edit")

	require.NoError(t, index.Checkout(r, index.CheckoutOptions{Ref: "main"}))
	out, err := Merge(r, "feature")
	require.NoError(t, err)
	require.Equal(t, OutcomeClean, out.Kind)

	assert.Equal(t, "MAIN one\nline two\nFEATURE three\n", readWork(t, r, "a.txt"))

	merge, err := r.ReadCommit(out.Commit)
	require.NoError(t, err)
	assert.Equal(t, []object.Oid{mainTip, featureTip}, merge.Parents)

	// No merge state lingers.
	mh, err := MergeHead(r)
	require.NoError(t, err)
	assert.Empty(t, mh)
}

// buildConflict creates main/feature branches both rewriting the same line.
// Returns the feature tip.
func buildConflict(t *testing.T, r *repo.Repository) object.Oid {
	t.Helper()
	writeWork(t, r, "f.txt", "shared\n")
	base := commitAll(t, r, "base")
	require.NoError(t, r.CreateBranch("feature", base))

	writeWork(t, r, "f.txt", "main version\n")
	commitAll(t, r, "main edit")

	require.NoError(t, index.Checkout(r, index.CheckoutOptions{Ref: "feature"}))
	writeWork(t, r, "f.txt", "feature version\n")
	tip := commitAll(t, r, "feature edit")

	require.NoError(t, index.Checkout(r, index.CheckoutOptions{Ref: "main"}))
	return tip
}

func TestMerge_ConflictMaterialisation(t *testing.T) {
	r := newTestRepo(t)
	featureTip := buildConflict(t, r)

	out, err := Merge(r, "feature")
	require.NoError(t, err, "a conflict is a successful outcome, not an error")
	require.Equal(t, OutcomeConflict, out.Kind)
	assert.Equal(t, []string{"f.txt"}, out.Conflicts)

	// Markers are on disk and MERGE_HEAD names theirs.
	content := readWork(t, r, "f.txt")
	assert.Contains(t, content, "<<<<<<< HEAD")
	assert.Contains(t, content, "=======")
	assert.Contains(t, content, ">>>>>>> feature")

	mh, err := MergeHead(r)
	require.NoError(t, err)
	assert.Equal(t, featureTip, mh)

	// The index carries conflict stages.
	idx, err := index.Load(r)
	require.NoError(t, err)
	assert.True(t, idx.InConflict("f.txt"))

	// Resolve, stage, commit: two parents, state cleared.
	writeWork(t, r, "f.txt", "resolved\n")
	stageAll(t, r)
	res, err := Commit(r, "")
	require.NoError(t, err)
	merge, err := r.ReadCommit(res.Commit)
	require.NoError(t, err)
	assert.Len(t, merge.Parents, 2)
	assert.Contains(t, merge.Message, "Merge")

	mh, err = MergeHead(r)
	require.NoError(t, err)
	assert.Empty(t, mh)
}

func TestMergeAbort_Idempotence(t *testing.T) {
	r := newTestRepo(t)
	buildConflict(t, r)

	out, err := Merge(r, "feature")
	require.NoError(t, err)
	require.Equal(t, OutcomeConflict, out.Kind)

	require.NoError(t, MergeAbort(r))
	assert.Equal(t, "main version\n", readWork(t, r, "f.txt"))
	idx, err := index.Load(r)
	require.NoError(t, err)
	assert.False(t, idx.InConflict("f.txt"))

	// The second abort has nothing to do.
	err = MergeAbort(r)
	assert.True(t, errors.IsNoOperation(err))
}

func TestRebase_Linear(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "base.txt", "base\n")
	base := commitAll(t, r, "base")
	require.NoError(t, r.CreateBranch("feature", base))

	// main advances.
	writeWork(t, r, "main.txt", "m\n")
	commitAll(t, r, "main one")
	writeWork(t, r, "main2.txt", "m2\n")
	mainTip := commitAll(t, r, "main two")

	// feature adds two commits off base.
	require.NoError(t, index.Checkout(r, index.CheckoutOptions{Ref: "feature"}))
	writeWork(t, r, "f1.txt", "f1\n")
	f1 := commitAll(t, r, "feature one")
	writeWork(t, r, "f2.txt", "f2\n")
	f2 := commitAll(t, r, "feature two")

	out, err := Rebase(context.Background(), r, "main")
	require.NoError(t, err)
	require.Equal(t, OutcomeClean, out.Kind)

	// log(feature) == log(main) ++ two new oids, none equal the originals.
	oids := logOids(t, r, "feature")
	require.Len(t, oids, 5)
	assert.Equal(t, logOids(t, r, "main"), oids[2:])
	assert.Equal(t, mainTip, oids[2])
	for _, rebased := range oids[:2] {
		assert.NotEqual(t, f1, rebased)
		assert.NotEqual(t, f2, rebased)
	}

	// Messages survive in order, oldest first beneath the tip.
	entries, err := r.Log(oids[0])
	require.NoError(t, err)
	assert.Equal(t, "feature two", entries[0].Commit.Message)
	assert.Equal(t, "feature one", entries[1].Commit.Message)

	// Working tree contains both lines of history.
	assert.Equal(t, "m2\n", readWork(t, r, "main2.txt"))
	assert.Equal(t, "f2\n", readWork(t, r, "f2.txt"))

	// All rebase files are gone.
	rh, err := RebaseHead(r)
	require.NoError(t, err)
	assert.Empty(t, rh)
}

func TestRebase_UpToDate(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "a.txt", "1\n")
	base := commitAll(t, r, "one")
	require.NoError(t, r.CreateBranch("behind", base))
	writeWork(t, r, "a.txt", "2\n")
	commitAll(t, r, "two")

	out, err := Rebase(context.Background(), r, "behind")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpToDate, out.Kind)
}

func TestRebase_DirtyTreeRefused(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "a.txt", "1\n")
	base := commitAll(t, r, "one")
	require.NoError(t, r.CreateBranch("upstream", base))
	writeWork(t, r, "a.txt", "dirty\n")

	_, err := Rebase(context.Background(), r, "upstream")
	assert.True(t, errors.IsDirtyWorkingTree(err))
}

func TestRebase_ConflictContinue(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "f.txt", "shared\n")
	base := commitAll(t, r, "base")
	require.NoError(t, r.CreateBranch("feature", base))

	writeWork(t, r, "f.txt", "main version\n")
	commitAll(t, r, "main edit")

	require.NoError(t, index.Checkout(r, index.CheckoutOptions{Ref: "feature"}))
	writeWork(t, r, "f.txt", "feature version\n")
	commitAll(t, r, "feature edit")

	out, err := Rebase(context.Background(), r, "main")
	require.NoError(t, err)
	require.Equal(t, OutcomeConflict, out.Kind)
	assert.Equal(t, []string{"f.txt"}, out.Conflicts)
	assert.Contains(t, readWork(t, r, "f.txt"), "<<<<<<<")

	// Continuing with unresolved conflicts is refused.
	_, err = RebaseContinue(context.Background(), r)
	_, isConflict := errors.AsConflictError(err)
	assert.True(t, isConflict)

	// Resolve, stage, continue.
	writeWork(t, r, "f.txt", "merged version\n")
	stageAll(t, r)
	out, err = RebaseContinue(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, OutcomeClean, out.Kind)

	entries, err := r.Log(mustHead(t, r))
	require.NoError(t, err)
	assert.Equal(t, "feature edit", entries[0].Commit.Message)
	assert.Equal(t, "main edit", entries[1].Commit.Message)
	assert.Equal(t, "merged version\n", readWork(t, r, "f.txt"))

	rh, err := RebaseHead(r)
	require.NoError(t, err)
	assert.Empty(t, rh)
}

func TestRebase_Abort(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "f.txt", "shared\n")
	base := commitAll(t, r, "base")
	require.NoError(t, r.CreateBranch("feature", base))

	writeWork(t, r, "f.txt", "main version\n")
	commitAll(t, r, "main edit")

	require.NoError(t, index.Checkout(r, index.CheckoutOptions{Ref: "feature"}))
	writeWork(t, r, "f.txt", "feature version\n")
	orig := commitAll(t, r, "feature edit")

	out, err := Rebase(context.Background(), r, "main")
	require.NoError(t, err)
	require.Equal(t, OutcomeConflict, out.Kind)

	require.NoError(t, RebaseAbort(r))
	assert.Equal(t, orig, mustHead(t, r))
	assert.Equal(t, "feature version\n", readWork(t, r, "f.txt"))

	err = RebaseAbort(r)
	assert.True(t, errors.IsNoOperation(err))
}

func TestCherryPick_Clean(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "a.txt", "base\n")
	base := commitAll(t, r, "base")
	require.NoError(t, r.CreateBranch("side", base))

	require.NoError(t, index.Checkout(r, index.CheckoutOptions{Ref: "side"}))
	writeWork(t, r, "picked.txt", "cherry\n")
	pick := commitAll(t, r, "add picked file")

	require.NoError(t, index.Checkout(r, index.CheckoutOptions{Ref: "main"}))
	out, err := CherryPick(r, string(pick))
	require.NoError(t, err)
	require.Equal(t, OutcomeClean, out.Kind)
	assert.Equal(t, "add picked file", out.Message)
	assert.Equal(t, "cherry\n", readWork(t, r, "picked.txt"))

	entries, err := r.Log(mustHead(t, r))
	require.NoError(t, err)
	assert.Equal(t, "add picked file", entries[0].Commit.Message)
	assert.NotEqual(t, pick, entries[0].Oid, "the pick is a new commit")
}

func TestCherryPick_ConflictResolveContinue(t *testing.T) {
	r := newTestRepo(t)

	// Three-commit conflict mock: base, branch edit, main edit.
	writeWork(t, r, "src/utils/helpers.txt", "helper one\nhelper two\n")
	base := commitAll(t, r, "Add helpers")
	require.NoError(t, r.CreateBranch("conflict_branch", base))

	require.NoError(t, index.Checkout(r, index.CheckoutOptions{Ref: "conflict_branch"}))
	writeWork(t, r, "src/utils/helpers.txt", "helper one\nhelper two updated in branch\n")
	branchCommit := commitAll(t, r, "Update helpers in branch")

	require.NoError(t, index.Checkout(r, index.CheckoutOptions{Ref: "main"}))
	writeWork(t, r, "src/utils/helpers.txt", "helper one\nhelper two updated on main\n")
	commitAll(t, r, "Update helpers on main")

	out, err := CherryPick(r, string(branchCommit))
	require.NoError(t, err)
	require.Equal(t, OutcomeConflict, out.Kind)

	content := readWork(t, r, "src/utils/helpers.txt")
	assert.Contains(t, content, "<<<<<<<")
	assert.Contains(t, content, "=======")
	assert.Contains(t, content, ">>>>>>>")

	ch, err := CherryPickHead(r)
	require.NoError(t, err)
	assert.Equal(t, branchCommit, ch)

	// Overwrite, stage, continue.
	writeWork(t, r, "src/utils/helpers.txt", "helper one\nhelper two resolved\n")
	stageAll(t, r)
	res, err := CherryPickContinue(r)
	require.NoError(t, err)
	require.Equal(t, OutcomeClean, res.Kind)

	// Working tree clean, picked message on top.
	s, err := index.Status(r)
	require.NoError(t, err)
	assert.True(t, s.Clean())
	entries, err := r.Log(mustHead(t, r))
	require.NoError(t, err)
	assert.Equal(t, "Update helpers in branch", entries[0].Commit.Message)

	ch, err = CherryPickHead(r)
	require.NoError(t, err)
	assert.Empty(t, ch)
}

func TestCherryPick_Abort(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "f.txt", "shared\n")
	base := commitAll(t, r, "base")
	require.NoError(t, r.CreateBranch("side", base))

	require.NoError(t, index.Checkout(r, index.CheckoutOptions{Ref: "side"}))
	writeWork(t, r, "f.txt", "side version\n")
	side := commitAll(t, r, "side edit")

	require.NoError(t, index.Checkout(r, index.CheckoutOptions{Ref: "main"}))
	writeWork(t, r, "f.txt", "main version\n")
	commitAll(t, r, "main edit")

	out, err := CherryPick(r, string(side))
	require.NoError(t, err)
	require.Equal(t, OutcomeConflict, out.Kind)

	require.NoError(t, CherryPickAbort(r))
	assert.Equal(t, "main version\n", readWork(t, r, "f.txt"))
	err = CherryPickAbort(r)
	assert.True(t, errors.IsNoOperation(err))
}

func TestInProgress_MutualExclusion(t *testing.T) {
	r := newTestRepo(t)
	buildConflict(t, r)

	out, err := Merge(r, "feature")
	require.NoError(t, err)
	require.Equal(t, OutcomeConflict, out.Kind)

	op, busy := InProgress(r)
	assert.True(t, busy)
	assert.Equal(t, errors.OpMerge, op)

	// A second operation is refused while the merge holds the repository.
	_, err = CherryPick(r, "feature")
	assert.Error(t, err)
	_, err = Rebase(context.Background(), r, "feature")
	assert.Error(t, err)
}

func TestStash_PushPop(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "a.txt", "committed\n")
	commitAll(t, r, "init")

	writeWork(t, r, "a.txt", "work in progress\n")
	writeWork(t, r, "new.txt", "untracked\n")

	entry, err := StashPush(r)
	require.NoError(t, err)
	assert.Contains(t, entry.Message, "WIP on main")

	// The tree is back at HEAD.
	assert.Equal(t, "committed\n", readWork(t, r, "a.txt"))
	assert.False(t, vfs.Exists(r.FS(), r.WorkPath("new.txt")))

	stack, err := StashList(r)
	require.NoError(t, err)
	require.Len(t, stack, 1)

	out, err := StashPop(r)
	require.NoError(t, err)
	assert.Equal(t, OutcomeClean, out.Kind)
	assert.Equal(t, "work in progress\n", readWork(t, r, "a.txt"))
	assert.Equal(t, "untracked\n", readWork(t, r, "new.txt"))

	stack, err = StashList(r)
	require.NoError(t, err)
	assert.Empty(t, stack)

	_, err = StashPop(r)
	assert.True(t, errors.IsNoOperation(err))
}

func TestStash_NothingToSave(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "a.txt", "x\n")
	commitAll(t, r, "init")
	_, err := StashPush(r)
	assert.True(t, errors.IsDirtyWorkingTree(err))
}

func mustHead(t *testing.T, r *repo.Repository) object.Oid {
	t.Helper()
	head, err := r.ResolveRef("HEAD")
	require.NoError(t, err)
	return head
}
