// Package workspace implements the snapshot format: a full export of the
// FileStore plus UI state and merge-request records, and the matching
// import that rebuilds a workspace from scratch.
package workspace

import (
	"encoding/base64"
	"encoding/json"
	"sort"
	"time"

	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/remote"
	"github.com/chazuruo/edugit/internal/repo"
	"github.com/chazuruo/edugit/internal/vfs"
)

// Version is the snapshot format version.
const Version = 1

// EntryType distinguishes snapshot entries.
type EntryType string

const (
	// EntryDir is a directory entry.
	EntryDir EntryType = "dir"
	// EntryFile is a file entry with base64 data.
	EntryFile EntryType = "file"
)

// Entry is one filesystem node in a snapshot.
type Entry struct {
	Path string    `json:"path"`
	Type EntryType `json:"type"`
	// Data is the base64-encoded file content; absent for directories.
	Data string `json:"data,omitempty"`
}

// UIState is the view state carried through a snapshot. The Workspace handle
// replaces any ambient global the hosting page might once have used: all
// continuity flows through this struct.
type UIState struct {
	SelectedFilePath string   `json:"selectedFilePath"`
	OpenFilePaths    []string `json:"openFilePaths"`
}

// Snapshot is the serialised workspace.
type Snapshot struct {
	Version       int                    `json:"version"`
	CreatedAt     time.Time              `json:"createdAt"`
	Entries       []Entry                `json:"entries"`
	UI            UIState                `json:"ui"`
	MergeRequests []remote.MergeRequest  `json:"mergeRequests"`
}

// Export serialises the entire FileStore plus UI state. Merge requests are
// duplicated at the top level for consumers that only want the review
// ledger; the authoritative copies live in the entries themselves.
func Export(fs vfs.FileStore, ui UIState, opts repo.Options) ([]byte, error) {
	snap := Snapshot{Version: Version, CreatedAt: time.Now().UTC(), UI: ui}

	var walk func(dir string) error
	walk = func(dir string) error {
		names, err := fs.ReadDir(dir)
		if err != nil {
			return err
		}
		sort.Strings(names)
		for _, name := range names {
			path := vfs.Join(dir, name)
			info, err := fs.Stat(path)
			if err != nil {
				return err
			}
			if info.IsDir() {
				snap.Entries = append(snap.Entries, Entry{Path: path, Type: EntryDir})
				if err := walk(path); err != nil {
					return err
				}
				continue
			}
			data, err := fs.ReadFile(path)
			if err != nil {
				return err
			}
			snap.Entries = append(snap.Entries, Entry{
				Path: path,
				Type: EntryFile,
				Data: base64.StdEncoding.EncodeToString(data),
			})
		}
		return nil
	}
	if err := walk("/"); err != nil {
		return nil, err
	}

	mgr := remote.NewManager(fs, opts)
	remotes, err := mgr.List()
	if err != nil {
		return nil, err
	}
	for _, name := range remotes {
		rem, err := mgr.Open(name)
		if err != nil {
			continue
		}
		mrs, err := remote.LoadMergeRequests(rem)
		if err != nil {
			return nil, err
		}
		snap.MergeRequests = append(snap.MergeRequests, mrs...)
	}

	return json.MarshalIndent(snap, "", "  ")
}

// Import clears the FileStore and recreates every snapshot entry, returning
// the restored UI state.
func Import(fs vfs.FileStore, data []byte) (*UIState, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrap(err, "importWorkspace")
	}

	// Wipe the namespace.
	names, err := fs.ReadDir("/")
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if err := vfs.RemoveAll(fs, vfs.Join("/", name)); err != nil {
			return nil, err
		}
	}

	for _, entry := range snap.Entries {
		switch entry.Type {
		case EntryDir:
			if err := fs.Mkdir(entry.Path); err != nil {
				return nil, err
			}
		case EntryFile:
			raw, err := base64.StdEncoding.DecodeString(entry.Data)
			if err != nil {
				return nil, errors.Wrap(err, "importWorkspace "+entry.Path)
			}
			if err := fs.WriteFile(entry.Path, raw); err != nil {
				return nil, err
			}
		default:
			return nil, errors.Wrap(errors.ErrInvalidRef, "unknown entry type "+string(entry.Type))
		}
	}

	ui := snap.UI
	return &ui, nil
}
