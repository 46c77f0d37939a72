package lesson

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazuruo/edugit/internal/gutter"
	"github.com/chazuruo/edugit/internal/remote"
	"github.com/chazuruo/edugit/internal/repo"
	"github.com/chazuruo/edugit/internal/shell"
	"github.com/chazuruo/edugit/internal/testutil"
	"github.com/chazuruo/edugit/internal/vfs"
)

func newSeededSession(t *testing.T, id string) *shell.Session {
	t.Helper()
	s := shell.NewSession(vfs.NewMemStore(), repo.Options{})
	sc, err := Get(id)
	require.NoError(t, err)
	require.NoError(t, Apply(context.Background(), s, sc))
	return s
}

func run(t *testing.T, s *shell.Session, line string) []string {
	t.Helper()
	res := s.Run(context.Background(), line)
	require.False(t, res.Failed(), "%q failed: %v", line, res.Lines)
	return res.Lines
}

func TestUnmarshalScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "missing id",
			doc:     "schema_version: 1\ntitle: X\nsteps:\n  - run: [pwd]\n",
			wantErr: "id is required",
		},
		{
			name:    "wrong schema version",
			doc:     "schema_version: 9\nid: x\ntitle: X\nsteps:\n  - run: [pwd]\n",
			wantErr: "schema_version",
		},
		{
			name:    "empty step",
			doc:     "schema_version: 1\nid: x\ntitle: X\nsteps:\n  - name: noop\n",
			wantErr: "does nothing",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalScenario([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuiltins_AllParse(t *testing.T) {
	for _, id := range List() {
		t.Run(id, func(t *testing.T) {
			sc, err := Get(id)
			require.NoError(t, err)
			assert.Equal(t, id, sc.ID)
		})
	}
}

func TestEduGitDiff_GutterProjection(t *testing.T) {
	s := newSeededSession(t, "edu-git-diff")
	r, err := repo.Discover(s.FS(), "/", s.RepoOptions())
	require.NoError(t, err)

	read := func(rel string) string {
		data, err := s.FS().ReadFile("/" + rel)
		require.NoError(t, err)
		return string(data)
	}

	// /src/index.txt gained a line: classified add.
	res, err := gutter.Compute(r, "src/index.txt", read("src/index.txt"))
	require.NoError(t, err)
	require.Len(t, res.All, 1)
	assert.Equal(t, "add", string(res.All[0].Type))

	// /docs/overview.txt rewrote its line: classified modify.
	res, err = gutter.Compute(r, "docs/overview.txt", read("docs/overview.txt"))
	require.NoError(t, err)
	require.Len(t, res.All, 1)
	assert.Equal(t, "modify", string(res.All[0].Type))

	// /notes/ideas.txt lost a line: a removed marker.
	res, err = gutter.Compute(r, "notes/ideas.txt", read("notes/ideas.txt"))
	require.NoError(t, err)
	require.Len(t, res.All, 1)
	assert.Equal(t, "delete", string(res.All[0].Type))
	assert.NotEmpty(t, res.RemovedMarkers)
}

func TestEduGitDiff_TerminalDiff(t *testing.T) {
	s := newSeededSession(t, "edu-git-diff")
	out := strings.Join(run(t, s, "git diff"), "\n")

	for _, want := range []string{
		"diff -- src/index.txt",
		"+ Local add line",
		"- Initial overview line",
		"+ - Updated overview line",
		"- Second idea",
	} {
		assert.Contains(t, out, want)
	}
}

func TestConflictBranch_CherryPickFlow(t *testing.T) {
	s := newSeededSession(t, "conflict-branch")

	// Find the branch commit to pick.
	oid := strings.TrimSpace(run(t, s, "git rev-parse conflict_branch")[0])
	require.Len(t, oid, 40)

	out := s.Run(context.Background(), "git cherry-pick "+oid)
	text := strings.Join(out.Lines, "\n")
	assert.Contains(t, text, "CONFLICT")

	data, err := s.FS().ReadFile("/src/utils/helpers.txt")
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "<<<<<<<")
	assert.Contains(t, content, "=======")
	assert.Contains(t, content, ">>>>>>>")

	// Overwrite, stage, continue.
	require.NoError(t, s.FS().WriteFile("/src/utils/helpers.txt",
		[]byte("helper one\nhelper two resolved\n")))
	run(t, s, "git add .")
	run(t, s, "git cherry-pick --continue")

	status := strings.Join(run(t, s, "git status"), "\n")
	assert.Contains(t, status, "nothing to commit, working tree clean")

	log := run(t, s, "git log --oneline")
	assert.Contains(t, log[0], "Update helpers in branch")
}

func TestRemoteCompare_ThreeFileDiffs(t *testing.T) {
	s := newSeededSession(t, "remote-compare")
	mgr := s.Remotes()
	rem, err := mgr.Open("demo")
	require.NoError(t, err)

	diffs, err := remote.CompareBranches(rem, "main", "diff_branch")
	require.NoError(t, err)
	require.Len(t, diffs, 3)

	byPath := map[string]remote.FileDiff{}
	for _, d := range diffs {
		byPath[d.Path] = d
	}
	assert.Equal(t, remote.FileAdded, byPath["src/index.txt"].Status)
	assert.Equal(t, remote.FileModified, byPath["docs/overview.txt"].Status)
	assert.Equal(t, remote.FileDeleted, byPath["notes/ideas.txt"].Status)
}

func TestRemoteCompare_MergeRequestFlow(t *testing.T) {
	s := newSeededSession(t, "remote-compare")
	rem, err := s.Remotes().Open("demo")
	require.NoError(t, err)

	mr, err := remote.CreateMergeRequest(rem, "Branch changes", "main", "diff_branch")
	require.NoError(t, err)

	detail, err := remote.OpenMergeRequest(rem, mr.ID)
	require.NoError(t, err)
	assert.Equal(t, remote.RelationAhead, detail.MergeRelation)
	assert.Equal(t, remote.MergeClean, detail.MergeStatus)

	merged, err := remote.ConfirmMerge(rem, mr.ID, remote.ConfirmMergeOptions{DeleteBranchOnMerge: true})
	require.NoError(t, err)
	assert.Equal(t, remote.MRMerged, merged.Status)
	assert.False(t, rem.BranchExists("diff_branch"))

	// main now carries the branch content.
	data, err := s.FS().ReadFile("/.remotes/demo/src/index.txt")
	require.NoError(t, err)
	assert.Equal(t, "Fresh file on the branch\n", string(data))
}

func TestScenarioFromFile(t *testing.T) {
	path := testutil.WriteScenario(t, `
schema_version: 1
id: from-file
title: File-based scenario
steps:
  - name: seed
    files:
      /hello.txt: |
        hi
    run:
      - git init
      - git add .
      - git commit -m "seed"
`)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	sc, err := UnmarshalScenario(data)
	require.NoError(t, err)

	s := shell.NewSession(vfs.NewMemStore(), repo.Options{})
	require.NoError(t, Apply(context.Background(), s, sc))
	status := strings.Join(run(t, s, "git status"), "\n")
	assert.Contains(t, status, "nothing to commit, working tree clean")
}

func TestApply_FailingStepReported(t *testing.T) {
	s := shell.NewSession(vfs.NewMemStore(), repo.Options{})
	sc, err := UnmarshalScenario([]byte(`
schema_version: 1
id: broken
title: Broken
steps:
  - name: bad command
    run:
      - git status
`))
	require.NoError(t, err)
	err = Apply(context.Background(), s, sc)
	require.Error(t, err, "git status outside a repository must fail the seed")
	assert.Contains(t, err.Error(), "bad command")
}
