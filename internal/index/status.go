package index

import (
	"sort"

	"github.com/chazuruo/edugit/internal/object"
	"github.com/chazuruo/edugit/internal/repo"
	"github.com/chazuruo/edugit/internal/vfs"
)

// Per-path state codes of the status matrix. 0 is absent everywhere; the
// meaning of the positive codes depends on the column.
const (
	// Absent means the path does not exist in that column.
	Absent = 0
	// Same means identical to the HEAD blob.
	Same = 1
	// Different means present but not identical to the HEAD blob.
	Different = 2
	// Conflicted marks an index column with unresolved conflict stages.
	Conflicted = 3
)

// Row is one line of the status matrix: the (head, index, workdir) triple
// for a path, plus the oids backing each column so classification never has
// to re-read the store.
type Row struct {
	// Path is repo-relative.
	Path string
	// Head is Absent or Same.
	Head int
	// Index is Absent, Same, Different, or Conflicted.
	Index int
	// Workdir is Absent, Same, or Different.
	Workdir int

	// HeadOid is the blob at HEAD, if any.
	HeadOid object.Oid
	// IndexOid is the stage-0 blob, if any.
	IndexOid object.Oid
	// WorkOid is the content hash of the working-tree file, if present.
	WorkOid object.Oid
}

// ListWorkFiles returns the sorted repo-relative paths of every file in the
// working tree, excluding the control entries (.git, .remotes, the remote
// metadata file).
func ListWorkFiles(r *repo.Repository) ([]string, error) {
	var out []string
	err := vfs.WalkFiles(r.FS(), r.Root(), repo.ControlNames, func(path string) error {
		rel, ok := r.RelPath(path)
		if ok && rel != "" {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// workBlobOid hashes a working-tree file's content without writing an
// object.
func workBlobOid(r *repo.Repository, rel string) (object.Oid, error) {
	data, err := r.FS().ReadFile(r.WorkPath(rel))
	if err != nil {
		return "", err
	}
	return object.Hash(object.TypeBlob, data), nil
}

// StatusMatrix enumerates every path referenced by HEAD, the index, or the
// working tree and produces their matrix rows in lexicographic order.
func StatusMatrix(r *repo.Repository) ([]Row, error) {
	head, err := r.ResolveRef("HEAD")
	if err != nil {
		return nil, err
	}
	headBlobs, err := r.CommitBlobIndex(head)
	if err != nil {
		return nil, err
	}
	idx, err := Load(r)
	if err != nil {
		return nil, err
	}
	workFiles, err := ListWorkFiles(r)
	if err != nil {
		return nil, err
	}

	paths := map[string]bool{}
	for p := range headBlobs {
		paths[p] = true
	}
	for _, p := range idx.Paths() {
		paths[p] = true
	}
	workSet := map[string]bool{}
	for _, p := range workFiles {
		paths[p] = true
		workSet[p] = true
	}

	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	rows := make([]Row, 0, len(sorted))
	for _, path := range sorted {
		row := Row{Path: path}

		if oid, ok := headBlobs[path]; ok {
			row.Head = Same
			row.HeadOid = oid
		}

		switch {
		case idx.InConflict(path):
			row.Index = Conflicted
		default:
			if e, ok := idx.Get(path); ok {
				row.IndexOid = e.Oid
				if row.Head == Same && e.Oid == row.HeadOid {
					row.Index = Same
				} else {
					row.Index = Different
				}
			}
		}

		if workSet[path] {
			oid, err := workBlobOid(r, path)
			if err != nil {
				return nil, err
			}
			row.WorkOid = oid
			if row.Head == Same && oid == row.HeadOid {
				row.Workdir = Same
			} else {
				row.Workdir = Different
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Summary is the categorised view `git status` prints.
type Summary struct {
	// StagedNew are paths added to the index and absent from HEAD.
	StagedNew []string
	// StagedModified are paths staged with content differing from HEAD.
	StagedModified []string
	// StagedDeleted are HEAD paths removed from the index.
	StagedDeleted []string
	// Modified are paths whose working tree differs from the index.
	Modified []string
	// Deleted are indexed paths missing from the working tree.
	Deleted []string
	// Untracked are working-tree paths unknown to HEAD and the index.
	Untracked []string
	// Conflicted are paths with unresolved merge conflicts.
	Conflicted []string
}

// Clean reports whether nothing is staged, modified, or untracked.
func (s *Summary) Clean() bool {
	return len(s.StagedNew) == 0 && len(s.StagedModified) == 0 &&
		len(s.StagedDeleted) == 0 && len(s.Modified) == 0 &&
		len(s.Deleted) == 0 && len(s.Untracked) == 0 && len(s.Conflicted) == 0
}

// TrackedClean reports whether tracked files carry no staged or unstaged
// changes; untracked files are allowed. This is the pre-check rebase and
// cherry-pick use.
func (s *Summary) TrackedClean() bool {
	return len(s.StagedNew) == 0 && len(s.StagedModified) == 0 &&
		len(s.StagedDeleted) == 0 && len(s.Modified) == 0 &&
		len(s.Deleted) == 0 && len(s.Conflicted) == 0
}

// Summarize classifies matrix rows into the status categories.
func Summarize(rows []Row) *Summary {
	s := &Summary{}
	for _, row := range rows {
		if row.Index == Conflicted {
			s.Conflicted = append(s.Conflicted, row.Path)
			continue
		}
		// Staged side: index vs HEAD.
		switch {
		case row.Head == Absent && row.Index != Absent:
			s.StagedNew = append(s.StagedNew, row.Path)
		case row.Head == Same && row.Index == Different:
			s.StagedModified = append(s.StagedModified, row.Path)
		case row.Head == Same && row.Index == Absent && row.Workdir == Absent:
			s.StagedDeleted = append(s.StagedDeleted, row.Path)
		case row.Head == Same && row.Index == Absent && row.Workdir != Absent:
			// Removed from the index but still on disk: deletion staged,
			// the on-disk copy counts as untracked.
			s.StagedDeleted = append(s.StagedDeleted, row.Path)
			s.Untracked = append(s.Untracked, row.Path)
			continue
		}
		// Unstaged side: workdir vs index.
		switch {
		case row.Index == Absent && row.Head == Absent && row.Workdir != Absent:
			s.Untracked = append(s.Untracked, row.Path)
		case row.Index != Absent && row.Workdir == Absent:
			s.Deleted = append(s.Deleted, row.Path)
		case row.Index != Absent && row.Workdir != Absent && row.WorkOid != row.IndexOid:
			s.Modified = append(s.Modified, row.Path)
		}
	}
	return s
}

// Status computes and classifies the full working-tree status.
func Status(r *repo.Repository) (*Summary, error) {
	rows, err := StatusMatrix(r)
	if err != nil {
		return nil, err
	}
	return Summarize(rows), nil
}
