package workspace

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazuruo/edugit/internal/remote"
	"github.com/chazuruo/edugit/internal/repo"
	"github.com/chazuruo/edugit/internal/shell"
	"github.com/chazuruo/edugit/internal/vfs"
)

func TestExportImport_RoundTrip(t *testing.T) {
	fs := vfs.NewMemStore()
	s := shell.NewSession(fs, repo.Options{})
	for _, line := range []string{
		"git init",
		"echo hello > /src/index.txt",
		"git add .",
		`git commit -m "init"`,
		"echo scratch > /notes.txt",
	} {
		res := s.Run(context.Background(), line)
		require.False(t, res.Failed(), "%q: %v", line, res.Lines)
	}

	ui := UIState{SelectedFilePath: "/src/index.txt", OpenFilePaths: []string{"/src/index.txt", "/notes.txt"}}
	data, err := Export(fs, ui, repo.Options{})
	require.NoError(t, err)

	// Import into a fresh store pre-populated with junk: the junk must go.
	dst := vfs.NewMemStore()
	require.NoError(t, dst.WriteFile("/junk/old.txt", []byte("stale")))
	restoredUI, err := Import(dst, data)
	require.NoError(t, err)
	assert.False(t, vfs.Exists(dst, "/junk/old.txt"))
	assert.Equal(t, ui, *restoredUI)

	// The restored workspace is a working repository with identical state.
	s2 := shell.NewSession(dst, repo.Options{})
	res := s2.Run(context.Background(), "git status")
	require.False(t, res.Failed())
	assert.Equal(t, "On branch main", res.Lines[0])

	content, err := dst.ReadFile("/src/index.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(content))

	res = s2.Run(context.Background(), "git log --oneline")
	require.False(t, res.Failed())
	require.Len(t, res.Lines, 1)
	assert.Contains(t, res.Lines[0], "init")
}

func TestExport_CarriesMergeRequests(t *testing.T) {
	fs := vfs.NewMemStore()
	s := shell.NewSession(fs, repo.Options{})
	for _, line := range []string{
		"mkdir /.remotes/demo",
		"cd /.remotes/demo",
		"git init",
		"echo x > /.remotes/demo/a.txt",
		"git add .",
		`git commit -m "seed"`,
		"git checkout -b feature",
		"echo y > /.remotes/demo/b.txt",
		"git add .",
		`git commit -m "feature"`,
		"git checkout main",
	} {
		res := s.Run(context.Background(), line)
		require.False(t, res.Failed(), "%q: %v", line, res.Lines)
	}

	rem, err := s.Remotes().Open("demo")
	require.NoError(t, err)
	mr, err := remote.CreateMergeRequest(rem, "Feature", "main", "feature")
	require.NoError(t, err)

	data, err := Export(fs, UIState{}, repo.Options{})
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	require.Len(t, snap.MergeRequests, 1)
	assert.Equal(t, mr.ID, snap.MergeRequests[0].ID)
	assert.Equal(t, Version, snap.Version)
	assert.NotEmpty(t, snap.Entries)
}

func TestImport_RejectsGarbage(t *testing.T) {
	_, err := Import(vfs.NewMemStore(), []byte("not json"))
	assert.Error(t, err)
}
