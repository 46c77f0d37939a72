package ops

import (
	"fmt"

	"github.com/chazuruo/edugit/internal/diff"
	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/index"
	"github.com/chazuruo/edugit/internal/object"
	"github.com/chazuruo/edugit/internal/repo"
	"github.com/chazuruo/edugit/internal/vfs"
)

// stashFile is the ref-less stash stack inside the git directory.
const stashFile = "stash"

// StashEntry is one stashed snapshot: the tracked changes and untracked
// files captured from the working tree, keyed by the commit they were taken
// on.
type StashEntry struct {
	// Message is the display message ("WIP on <branch>: <head summary>").
	Message string `json:"message"`
	// Base is the commit the snapshot was taken against.
	Base object.Oid `json:"base"`
	// Tracked maps changed tracked paths to their captured blobs. A missing
	// blob (empty oid) records a deletion.
	Tracked map[string]object.Oid `json:"tracked"`
	// Untracked maps untracked paths to their captured blobs.
	Untracked map[string]object.Oid `json:"untracked"`
}

// loadStash reads the stash stack, newest first.
func loadStash(r *repo.Repository) ([]StashEntry, error) {
	var stack []StashEntry
	if _, err := readStateJSON(r, stashFile, &stack); err != nil {
		return nil, err
	}
	return stack, nil
}

// saveStash writes the stash stack, or removes the file when empty.
func saveStash(r *repo.Repository, stack []StashEntry) error {
	if len(stack) == 0 {
		return clearState(r, stashFile)
	}
	return writeStateJSON(r, stashFile, stack)
}

// StashPush captures the dirty working-tree state onto the stash stack and
// resets the tree to HEAD. Fails with ErrDirtyWorkingTree inverted: a clean
// tree has nothing to stash.
func StashPush(r *repo.Repository) (*StashEntry, error) {
	head, err := r.ResolveRef("HEAD")
	if err != nil {
		return nil, err
	}
	if head == "" {
		return nil, errors.ErrInvalidRef
	}
	rows, err := index.StatusMatrix(r)
	if err != nil {
		return nil, err
	}

	entry := StashEntry{
		Base:      head,
		Tracked:   map[string]object.Oid{},
		Untracked: map[string]object.Oid{},
	}
	for _, row := range rows {
		switch {
		case row.Head == index.Absent && row.Index == index.Absent && row.Workdir != index.Absent:
			data, err := r.FS().ReadFile(r.WorkPath(row.Path))
			if err != nil {
				return nil, err
			}
			oid, err := r.WriteObject(object.TypeBlob, data)
			if err != nil {
				return nil, err
			}
			entry.Untracked[row.Path] = oid
		case row.Head == index.Same && row.Workdir == index.Absent:
			entry.Tracked[row.Path] = ""
		case row.Workdir != index.Absent && row.WorkOid != row.HeadOid:
			data, err := r.FS().ReadFile(r.WorkPath(row.Path))
			if err != nil {
				return nil, err
			}
			oid, err := r.WriteObject(object.TypeBlob, data)
			if err != nil {
				return nil, err
			}
			entry.Tracked[row.Path] = oid
		}
	}
	if len(entry.Tracked) == 0 && len(entry.Untracked) == 0 {
		return nil, errors.Wrap(errors.ErrDirtyWorkingTree, "no local changes to save")
	}

	headCommit, err := r.ReadCommit(head)
	if err != nil {
		return nil, err
	}
	entry.Message = fmt.Sprintf("WIP on %s: %s", currentLabel(r), repo.Describe(head, headCommit))

	stack, err := loadStash(r)
	if err != nil {
		return nil, err
	}
	stack = append([]StashEntry{entry}, stack...)
	if err := saveStash(r, stack); err != nil {
		return nil, err
	}

	// Reset the working tree and index to HEAD, dropping untracked captures.
	if err := index.Checkout(r, index.CheckoutOptions{
		Ref: "HEAD", Force: true, NoUpdateHead: true,
	}); err != nil {
		return nil, err
	}
	for path := range entry.Untracked {
		if vfs.IsFile(r.FS(), r.WorkPath(path)) {
			if err := r.FS().Unlink(r.WorkPath(path)); err != nil {
				return nil, err
			}
		}
	}
	return &entry, nil
}

// StashPop re-applies the newest stash entry onto the current tree via
// three-way merge against the entry's base and drops it from the stack.
// Conflicting files keep their markers in the working tree.
func StashPop(r *repo.Repository) (*Outcome, error) {
	stack, err := loadStash(r)
	if err != nil {
		return nil, err
	}
	if len(stack) == 0 {
		return nil, errors.ErrNoOperation
	}
	entry := stack[0]

	baseBlobs, err := r.CommitBlobIndex(entry.Base)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Kind: OutcomeClean}
	for path, stashed := range entry.Tracked {
		if stashed == "" {
			if vfs.IsFile(r.FS(), r.WorkPath(path)) {
				if err := r.FS().Unlink(r.WorkPath(path)); err != nil {
					return nil, err
				}
			}
			out.Changed = append(out.Changed, path)
			continue
		}
		baseText, err := blobText(r, baseBlobs[path])
		if err != nil {
			return nil, err
		}
		stashText, err := blobText(r, stashed)
		if err != nil {
			return nil, err
		}
		oursText := baseText
		if data, err := r.FS().ReadFile(r.WorkPath(path)); err == nil {
			oursText = string(data)
		}
		merged := diff.Merge3(baseText, oursText, stashText, "HEAD", "stash")
		if err := r.FS().WriteFile(r.WorkPath(path), []byte(merged.Text)); err != nil {
			return nil, err
		}
		out.Changed = append(out.Changed, path)
		if !merged.CleanMerge {
			out.Kind = OutcomeConflict
			out.Conflicts = append(out.Conflicts, path)
		}
	}
	for path, oid := range entry.Untracked {
		data, err := r.ReadBlob(oid)
		if err != nil {
			return nil, err
		}
		if err := r.FS().WriteFile(r.WorkPath(path), data); err != nil {
			return nil, err
		}
		out.Changed = append(out.Changed, path)
	}

	if err := saveStash(r, stack[1:]); err != nil {
		return nil, err
	}
	return out, nil
}

// StashList returns the stash stack, newest first.
func StashList(r *repo.Repository) ([]StashEntry, error) {
	return loadStash(r)
}
