package cli

import (
	"fmt"
	"os"

	"github.com/chazuruo/edugit/internal/config"
	"github.com/chazuruo/edugit/internal/repo"
	"github.com/chazuruo/edugit/internal/vfs"
	"github.com/chazuruo/edugit/internal/workspace"
)

// repoOptions maps the loaded config onto repository options.
func repoOptions(cfg *config.Config) repo.Options {
	return repo.Options{
		Identity: repo.Identity{
			Name:  cfg.Identity.Name,
			Email: cfg.Identity.Email,
		},
		DefaultBranch: cfg.Repo.DefaultBranch,
	}
}

// loadWorkspace builds the in-memory FileStore a command operates on. When
// --workspace names a snapshot file, the workspace is imported from it;
// otherwise the store starts empty.
func loadWorkspace() (*vfs.MemStore, *workspace.UIState, error) {
	fs := vfs.NewMemStore()
	ui := &workspace.UIState{}
	if WorkspacePath == "" {
		return fs, ui, nil
	}
	data, err := os.ReadFile(WorkspacePath)
	if err != nil {
		if os.IsNotExist(err) {
			// First use: the file appears on save.
			return fs, ui, nil
		}
		return nil, nil, fmt.Errorf("read workspace %s: %w", WorkspacePath, err)
	}
	ui, err = workspace.Import(fs, data)
	if err != nil {
		return nil, nil, fmt.Errorf("import workspace %s: %w", WorkspacePath, err)
	}
	return fs, ui, nil
}

// saveWorkspace writes the FileStore back to the --workspace snapshot.
// Without --workspace the state is discarded.
func saveWorkspace(fs vfs.FileStore, ui *workspace.UIState, cfg *config.Config) error {
	if WorkspacePath == "" {
		return nil
	}
	data, err := workspace.Export(fs, *ui, repoOptions(cfg))
	if err != nil {
		return err
	}
	return os.WriteFile(WorkspacePath, data, 0o644)
}
