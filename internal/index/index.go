// Package index implements the staging area and the working-tree operations
// built on it: the three-way status matrix, add/remove/reset, and checkout.
//
// The index is a mapping from repo-relative path to {mode, oid, stage}.
// Stage 0 is the merged entry; stages 1/2/3 hold base/ours/theirs while a
// path is in conflict. At any path either exactly one stage-0 entry exists,
// or only conflict-stage entries (any of which may be absent when the file
// did not exist on that side).
package index

import (
	"encoding/json"
	"sort"

	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/object"
	"github.com/chazuruo/edugit/internal/repo"
)

// fileName is the index location inside the git directory.
const fileName = "index"

// Conflict stages.
const (
	StageMerged = 0
	StageBase   = 1
	StageOurs   = 2
	StageTheirs = 3
)

// Entry is a single index row.
type Entry struct {
	Path  string     `json:"path"`
	Mode  string     `json:"mode"`
	Oid   object.Oid `json:"oid"`
	Stage int        `json:"stage"`
}

// Index is the in-memory staging area. Mutations are applied to the struct
// and persisted with Save; the dispatch queue guarantees a single writer.
type Index struct {
	// Version is the on-disk format version.
	Version int `json:"version"`
	// Entries is sorted by (path, stage).
	Entries []Entry `json:"entries"`
}

// currentVersion is the on-disk index format version.
const currentVersion = 1

// Load reads the index from the git directory. A missing file is an empty
// index.
func Load(r *repo.Repository) (*Index, error) {
	data, err := r.FS().ReadFile(r.StateFile(fileName))
	if err != nil {
		if errors.NotFound(err) {
			return &Index{Version: currentVersion}, nil
		}
		return nil, errors.Wrap(err, "loadIndex")
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, errors.Wrap(err, "loadIndex")
	}
	return &idx, nil
}

// Save persists the index back into the git directory.
func (idx *Index) Save(r *repo.Repository) error {
	idx.Version = currentVersion
	idx.sort()
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return errors.Wrap(err, "saveIndex")
	}
	return r.FS().WriteFile(r.StateFile(fileName), data)
}

func (idx *Index) sort() {
	sort.Slice(idx.Entries, func(i, j int) bool {
		if idx.Entries[i].Path != idx.Entries[j].Path {
			return idx.Entries[i].Path < idx.Entries[j].Path
		}
		return idx.Entries[i].Stage < idx.Entries[j].Stage
	})
}

// Get returns the stage-0 entry for a path.
func (idx *Index) Get(path string) (Entry, bool) {
	for _, e := range idx.Entries {
		if e.Path == path && e.Stage == StageMerged {
			return e, true
		}
	}
	return Entry{}, false
}

// Stages returns every entry at a path, any stage.
func (idx *Index) Stages(path string) []Entry {
	var out []Entry
	for _, e := range idx.Entries {
		if e.Path == path {
			out = append(out, e)
		}
	}
	return out
}

// InConflict reports whether the path has unresolved conflict stages.
func (idx *Index) InConflict(path string) bool {
	for _, e := range idx.Entries {
		if e.Path == path && e.Stage != StageMerged {
			return true
		}
	}
	return false
}

// ConflictPaths returns the sorted paths with conflict-stage entries.
func (idx *Index) ConflictPaths() []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range idx.Entries {
		if e.Stage != StageMerged && !seen[e.Path] {
			seen[e.Path] = true
			out = append(out, e.Path)
		}
	}
	sort.Strings(out)
	return out
}

// drop removes every entry at path.
func (idx *Index) drop(path string) {
	out := idx.Entries[:0]
	for _, e := range idx.Entries {
		if e.Path != path {
			out = append(out, e)
		}
	}
	idx.Entries = out
}

// Set stages a blob at stage 0, clearing any conflict stages for the path;
// staging a conflicted file marks it resolved.
func (idx *Index) Set(path string, oid object.Oid) {
	idx.drop(path)
	idx.Entries = append(idx.Entries, Entry{
		Path: path, Mode: object.ModeFile, Oid: oid, Stage: StageMerged,
	})
	idx.sort()
}

// SetConflict replaces the path's entries with conflict stages. Empty oids
// mean the file did not exist on that side and record no entry.
func (idx *Index) SetConflict(path string, base, ours, theirs object.Oid) {
	idx.drop(path)
	stages := []struct {
		stage int
		oid   object.Oid
	}{
		{StageBase, base},
		{StageOurs, ours},
		{StageTheirs, theirs},
	}
	for _, s := range stages {
		if s.oid == "" {
			continue
		}
		idx.Entries = append(idx.Entries, Entry{
			Path: path, Mode: object.ModeFile, Oid: s.oid, Stage: s.stage,
		})
	}
	idx.sort()
}

// Remove drops the path from the index entirely.
func (idx *Index) Remove(path string) {
	idx.drop(path)
}

// Paths returns the sorted set of paths with any entry.
func (idx *Index) Paths() []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range idx.Entries {
		if !seen[e.Path] {
			seen[e.Path] = true
			out = append(out, e.Path)
		}
	}
	sort.Strings(out)
	return out
}

// BlobMap returns path → oid for every stage-0 entry.
func (idx *Index) BlobMap() map[string]object.Oid {
	out := make(map[string]object.Oid)
	for _, e := range idx.Entries {
		if e.Stage == StageMerged {
			out[e.Path] = e.Oid
		}
	}
	return out
}

// ReplaceAll rewrites the index to exactly the given blob map at stage 0.
func (idx *Index) ReplaceAll(blobs map[string]object.Oid) {
	idx.Entries = idx.Entries[:0]
	for path, oid := range blobs {
		idx.Entries = append(idx.Entries, Entry{
			Path: path, Mode: object.ModeFile, Oid: oid, Stage: StageMerged,
		})
	}
	idx.sort()
}
