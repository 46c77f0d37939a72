package index

import (
	"strings"

	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/object"
	"github.com/chazuruo/edugit/internal/repo"
	"github.com/chazuruo/edugit/internal/vfs"
)

// Add stages the working-tree content at rel. Directories recurse; "." (or
// the empty string) recurses from the repository root skipping the control
// entries. Staging a path clears any conflict stages, marking the conflict
// resolved. Staging a tracked path that was deleted on disk stages the
// deletion.
func Add(r *repo.Repository, idx *Index, rel string) error {
	if rel == "." || rel == "" {
		files, err := ListWorkFiles(r)
		if err != nil {
			return err
		}
		for _, f := range files {
			if err := addFile(r, idx, f); err != nil {
				return err
			}
		}
		// Tracked paths deleted from disk stage their deletion too.
		for _, p := range idx.Paths() {
			if !vfs.IsFile(r.FS(), r.WorkPath(p)) {
				idx.Remove(p)
			}
		}
		return nil
	}

	full := r.WorkPath(rel)
	info, err := r.FS().Stat(full)
	if err != nil {
		if errors.NotFound(err) {
			// A tracked file removed from disk: stage the deletion.
			if len(idx.Stages(rel)) > 0 {
				idx.Remove(rel)
				return nil
			}
		}
		return err
	}
	if info.IsDir() {
		return vfs.WalkFiles(r.FS(), full, repo.ControlNames, func(path string) error {
			sub, _ := r.RelPath(path)
			return addFile(r, idx, sub)
		})
	}
	return addFile(r, idx, rel)
}

// addFile hashes one working-tree file into the object store and stages it.
func addFile(r *repo.Repository, idx *Index, rel string) error {
	data, err := r.FS().ReadFile(r.WorkPath(rel))
	if err != nil {
		return err
	}
	oid, err := r.WriteObject(object.TypeBlob, data)
	if err != nil {
		return err
	}
	idx.Set(rel, oid)
	return nil
}

// Remove drops rel from the index and, when still present, from the working
// tree.
func Remove(r *repo.Repository, idx *Index, rel string) error {
	if len(idx.Stages(rel)) == 0 {
		return errors.Wrap(errors.ErrInvalidRef, "pathspec "+rel)
	}
	idx.Remove(rel)
	if vfs.IsFile(r.FS(), r.WorkPath(rel)) {
		if err := r.FS().Unlink(r.WorkPath(rel)); err != nil {
			return err
		}
		pruneEmptyDirs(r, rel)
	}
	return nil
}

// ResetPath restores the stage-0 entry for rel from HEAD; when HEAD lacks
// the path the entry is cleared. The working tree is untouched.
func ResetPath(r *repo.Repository, idx *Index, rel string) error {
	head, err := r.ResolveRef("HEAD")
	if err != nil {
		return err
	}
	blobs, err := r.CommitBlobIndex(head)
	if err != nil {
		return err
	}
	if oid, ok := blobs[rel]; ok {
		idx.Set(rel, oid)
	} else {
		idx.Remove(rel)
	}
	return nil
}

// pruneEmptyDirs removes now-empty parent directories of rel up to the
// repository root.
func pruneEmptyDirs(r *repo.Repository, rel string) {
	dir := vfs.Dir("/" + rel)
	for dir != "/" {
		full := r.WorkPath(strings.TrimPrefix(dir, "/"))
		names, err := r.FS().ReadDir(full)
		if err != nil || len(names) > 0 {
			return
		}
		if err := r.FS().Rmdir(full); err != nil {
			return
		}
		dir = vfs.Dir(dir)
	}
}

// CheckoutOptions selects one of checkout's three modes.
type CheckoutOptions struct {
	// Ref is the target branch, revision, or oid. Empty means HEAD.
	Ref string
	// Filepaths restores only these paths from Ref without moving HEAD.
	Filepaths []string
	// Force overwrites local changes on a branch switch.
	Force bool
	// NoUpdateHead rewrites tree and index without touching HEAD.
	NoUpdateHead bool
}

// Checkout implements the three checkout modes: branch switch, file restore,
// and detached checkout onto an oid. On a switch, local changes that overlap
// paths differing between HEAD and the target abort with ErrDirtyWorkingTree
// unless forced. Writes happen working tree first, then index, then HEAD.
func Checkout(r *repo.Repository, opts CheckoutOptions) error {
	target := opts.Ref
	if target == "" {
		target = "HEAD"
	}
	commit, err := r.ResolveCommitish(target)
	if err != nil {
		return err
	}
	targetBlobs, err := r.CommitBlobIndex(commit)
	if err != nil {
		return err
	}

	if len(opts.Filepaths) > 0 {
		return restoreFiles(r, targetBlobs, opts.Filepaths)
	}

	head, err := r.ResolveRef("HEAD")
	if err != nil {
		return err
	}
	headBlobs, err := r.CommitBlobIndex(head)
	if err != nil {
		return err
	}

	if !opts.Force {
		if err := checkSwitchClean(r, headBlobs, targetBlobs); err != nil {
			return err
		}
	}

	// Working tree: write target content, then drop tracked paths the
	// target lacks.
	idx, err := Load(r)
	if err != nil {
		return err
	}
	for path, oid := range targetBlobs {
		// Outside force mode, paths the switch does not change keep their
		// local state (edits or deletions survive).
		if !opts.Force && headBlobs[path] == oid {
			continue
		}
		data, err := r.ReadBlob(oid)
		if err != nil {
			return err
		}
		if err := r.FS().WriteFile(r.WorkPath(path), data); err != nil {
			return err
		}
	}
	tracked := map[string]bool{}
	for p := range headBlobs {
		tracked[p] = true
	}
	for _, p := range idx.Paths() {
		tracked[p] = true
	}
	for p := range tracked {
		if _, keep := targetBlobs[p]; keep {
			continue
		}
		if vfs.IsFile(r.FS(), r.WorkPath(p)) {
			if err := r.FS().Unlink(r.WorkPath(p)); err != nil {
				return err
			}
			pruneEmptyDirs(r, p)
		}
	}

	// Index second.
	idx.ReplaceAll(targetBlobs)
	if err := idx.Save(r); err != nil {
		return err
	}

	// HEAD last, so an observer seeing the new ref sees a consistent tree.
	if opts.NoUpdateHead {
		return nil
	}
	if r.BranchExists(opts.Ref) {
		return r.SetSymbolicHead(opts.Ref)
	}
	return r.DetachHead(commit)
}

// restoreFiles copies the named paths (files or directory prefixes) from the
// target blob map into the working tree and index.
func restoreFiles(r *repo.Repository, blobs map[string]object.Oid, filepaths []string) error {
	idx, err := Load(r)
	if err != nil {
		return err
	}
	restored := 0
	for _, want := range filepaths {
		for path, oid := range blobs {
			if path != want && !strings.HasPrefix(path, want+"/") {
				continue
			}
			data, err := r.ReadBlob(oid)
			if err != nil {
				return err
			}
			if err := r.FS().WriteFile(r.WorkPath(path), data); err != nil {
				return err
			}
			idx.Set(path, oid)
			restored++
		}
	}
	if restored == 0 {
		return errors.Wrap(errors.ErrInvalidRef, "pathspec did not match any files")
	}
	return idx.Save(r)
}

// checkSwitchClean aborts when a local change overlaps a path that differs
// between HEAD and the target.
func checkSwitchClean(r *repo.Repository, headBlobs, targetBlobs map[string]object.Oid) error {
	rows, err := StatusMatrix(r)
	if err != nil {
		return err
	}
	changed := map[string]bool{}
	for _, row := range rows {
		dirty := row.Index == Conflicted ||
			(row.Index != Absent && row.IndexOid != row.HeadOid) ||
			(row.Head == Same && row.Index == Absent) ||
			(row.Workdir != Absent && row.WorkOid != row.HeadOid) ||
			(row.Head == Same && row.Workdir == Absent)
		if dirty {
			changed[row.Path] = true
		}
	}
	if len(changed) == 0 {
		return nil
	}
	for path := range changed {
		if headBlobs[path] != targetBlobs[path] {
			return errors.ErrDirtyWorkingTree
		}
	}
	return nil
}

// WriteTree builds tree objects from the index's stage-0 entries and returns
// the root tree oid.
func WriteTree(r *repo.Repository, idx *Index) (object.Oid, error) {
	return r.WriteTreeFromPaths(idx.BlobMap())
}
