// Package ops implements the multi-step operation engine: merge, rebase, and
// cherry-pick, plus commit itself. Each operation persists its resume state
// as files under the git directory, so an in-progress operation survives
// between command invocations and is visible to every observer of the
// FileStore.
//
// Conflicts are not failures here. A merge that stops on conflicts has
// succeeded at determining mergeability: it materialises conflict markers,
// writes its state files, and returns an Outcome with Conflicts set. Callers
// translate that into terminal output or UI state.
package ops

import (
	"encoding/json"
	"sort"

	"github.com/chazuruo/edugit/internal/diff"
	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/index"
	"github.com/chazuruo/edugit/internal/object"
	"github.com/chazuruo/edugit/internal/repo"
	"github.com/chazuruo/edugit/internal/vfs"
)

// Operation state files under .git. The presence of the primary *_HEAD file
// is authoritative for "operation in progress".
const (
	MergeHeadFile  = "MERGE_HEAD"
	MergeMsgFile   = "MERGE_MSG"
	RebaseHeadFile = "REBASE_HEAD"
	RebaseOrigFile = "REBASE_ORIG_HEAD"
	RebaseTodoFile = "REBASE_TODO"
	RebaseIdxFile  = "REBASE_INDEX"
	RebaseCurFile  = "REBASE_CURRENT"
	RebaseConfFile = "REBASE_CONFLICTS"
	CherryHeadFile = "CHERRY_PICK_HEAD"
	CherryMsgFile  = "CHERRY_PICK_MSG"
)

// OutcomeKind classifies how an operation ended.
type OutcomeKind string

const (
	// OutcomeClean means the operation completed and committed.
	OutcomeClean OutcomeKind = "clean"
	// OutcomeFastForward means only a ref move was needed.
	OutcomeFastForward OutcomeKind = "fast-forward"
	// OutcomeUpToDate means there was nothing to do.
	OutcomeUpToDate OutcomeKind = "up-to-date"
	// OutcomeConflict means the operation stopped with conflicts
	// materialised and state files written.
	OutcomeConflict OutcomeKind = "conflict"
)

// Outcome is the successful result of a merge, rebase, or cherry-pick step,
// including the conflict case, which is an expected state transition rather
// than an error.
type Outcome struct {
	// Kind classifies the result.
	Kind OutcomeKind
	// Commit is the commit created or fast-forwarded to, when any.
	Commit object.Oid
	// Conflicts lists conflicted paths when Kind is OutcomeConflict.
	Conflicts []string
	// Changed lists paths the operation rewrote.
	Changed []string
	// Message is the commit message involved, for reporting.
	Message string
}

// readStateOid reads an operation file holding a single oid. Empty when the
// file is absent.
func readStateOid(r *repo.Repository, name string) (object.Oid, error) {
	data, err := r.FS().ReadFile(r.StateFile(name))
	if err != nil {
		if errors.NotFound(err) {
			return "", nil
		}
		return "", err
	}
	return object.Oid(trimNewline(string(data))), nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// readStateText reads a free-text operation file.
func readStateText(r *repo.Repository, name string) (string, error) {
	data, err := r.FS().ReadFile(r.StateFile(name))
	if err != nil {
		if errors.NotFound(err) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

// writeStateOid writes an oid-holding operation file.
func writeStateOid(r *repo.Repository, name string, oid object.Oid) error {
	return r.FS().WriteFile(r.StateFile(name), []byte(string(oid)+"\n"))
}

// writeStateJSON writes a JSON operation file (todo list, conflict list).
func writeStateJSON(r *repo.Repository, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.FS().WriteFile(r.StateFile(name), data)
}

// readStateJSON loads a JSON operation file into v; absent files leave v
// untouched and report false.
func readStateJSON(r *repo.Repository, name string, v any) (bool, error) {
	data, err := r.FS().ReadFile(r.StateFile(name))
	if err != nil {
		if errors.NotFound(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrap(err, "read "+name)
	}
	return true, nil
}

// clearState removes operation files, ignoring absent ones. Deletions happen
// last in every operation, per the ordering contract.
func clearState(r *repo.Repository, names ...string) error {
	for _, name := range names {
		err := r.FS().Unlink(r.StateFile(name))
		if err != nil && !errors.NotFound(err) {
			return err
		}
	}
	return nil
}

// MergeHead returns the in-progress merge target, or "".
func MergeHead(r *repo.Repository) (object.Oid, error) {
	return readStateOid(r, MergeHeadFile)
}

// RebaseHead returns the in-progress rebase upstream, or "".
func RebaseHead(r *repo.Repository) (object.Oid, error) {
	return readStateOid(r, RebaseHeadFile)
}

// CherryPickHead returns the in-progress cherry-pick target, or "".
func CherryPickHead(r *repo.Repository) (object.Oid, error) {
	return readStateOid(r, CherryHeadFile)
}

// InProgress reports which operation, if any, currently holds the
// repository. At most one is possible at a time.
func InProgress(r *repo.Repository) (errors.ConflictOp, bool) {
	if oid, _ := MergeHead(r); oid != "" {
		return errors.OpMerge, true
	}
	if oid, _ := RebaseHead(r); oid != "" {
		return errors.OpRebase, true
	}
	if oid, _ := CherryPickHead(r); oid != "" {
		return errors.OpCherryPick, true
	}
	return "", false
}

// changeSet is the result of applying one side's changes onto head.
type changeSet struct {
	conflicts []string
	changed   []string
}

// blobText reads a blob as text; the empty oid reads as empty content.
func blobText(r *repo.Repository, oid object.Oid) (string, error) {
	if oid == "" {
		return "", nil
	}
	data, err := r.ReadBlob(oid)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// applyChanges three-way merges every path of base ∪ theirs ∪ ours into the
// working tree and index. base/theirs/ours are blob indexes (path → oid).
// Paths are processed in lexicographic order; each path's working-tree write
// lands before its index update. Conflicted paths get marker-bearing content
// in the working tree and stage-1/2/3 entries, and are not staged.
func applyChanges(r *repo.Repository, idx *index.Index, base, theirs, ours map[string]object.Oid, headLabel, targetLabel string) (*changeSet, error) {
	paths := map[string]bool{}
	for p := range base {
		paths[p] = true
	}
	for p := range theirs {
		paths[p] = true
	}
	for p := range ours {
		paths[p] = true
	}
	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	cs := &changeSet{}
	for _, path := range sorted {
		b, t, o := base[path], theirs[path], ours[path]
		switch {
		case b == t:
			// The incoming side did not touch this path.
		case o == t:
			// Already applied on our side.
		case t == "":
			// Incoming delete.
			if o != b {
				// Ours changed a file theirs deleted: merge ours against an
				// empty incoming side to preserve our edits, recording a
				// delete conflict when the texts disagree.
				baseText, err := blobText(r, b)
				if err != nil {
					return nil, err
				}
				oursText, err := blobText(r, o)
				if err != nil {
					return nil, err
				}
				merged := diff.Merge3(baseText, oursText, "", headLabel, targetLabel)
				if err := r.FS().WriteFile(r.WorkPath(path), []byte(merged.Text)); err != nil {
					return nil, err
				}
				cs.changed = append(cs.changed, path)
				if !merged.CleanMerge {
					idx.SetConflict(path, b, o, "")
					cs.conflicts = append(cs.conflicts, path)
				} else {
					oid, err := r.WriteObject(object.TypeBlob, []byte(merged.Text))
					if err != nil {
						return nil, err
					}
					idx.Set(path, oid)
				}
				continue
			}
			if vfs.IsFile(r.FS(), r.WorkPath(path)) {
				if err := r.FS().Unlink(r.WorkPath(path)); err != nil {
					return nil, err
				}
			}
			idx.Remove(path)
			cs.changed = append(cs.changed, path)
		default:
			baseText, err := blobText(r, b)
			if err != nil {
				return nil, err
			}
			oursText, err := blobText(r, o)
			if err != nil {
				return nil, err
			}
			theirsText, err := blobText(r, t)
			if err != nil {
				return nil, err
			}
			merged := diff.Merge3(baseText, oursText, theirsText, headLabel, targetLabel)
			if err := r.FS().WriteFile(r.WorkPath(path), []byte(merged.Text)); err != nil {
				return nil, err
			}
			cs.changed = append(cs.changed, path)
			if merged.CleanMerge {
				oid, err := r.WriteObject(object.TypeBlob, []byte(merged.Text))
				if err != nil {
					return nil, err
				}
				idx.Set(path, oid)
			} else {
				idx.SetConflict(path, b, o, t)
				cs.conflicts = append(cs.conflicts, path)
			}
		}
	}
	return cs, nil
}

// applyCommitChanges replays one commit onto head: the shared step of
// rebase and cherry-pick. The commit's first parent is the base.
func applyCommitChanges(r *repo.Repository, idx *index.Index, target object.Oid, head object.Oid) (*changeSet, string, error) {
	c, err := r.ReadCommit(target)
	if err != nil {
		return nil, "", err
	}
	var parent object.Oid
	if len(c.Parents) > 0 {
		parent = c.Parents[0]
	}
	base, err := r.CommitBlobIndex(parent)
	if err != nil {
		return nil, "", err
	}
	theirs, err := r.CommitBlobIndex(target)
	if err != nil {
		return nil, "", err
	}
	ours, err := r.CommitBlobIndex(head)
	if err != nil {
		return nil, "", err
	}
	cs, err := applyChanges(r, idx, base, theirs, ours, "HEAD", target.Short())
	if err != nil {
		return nil, "", err
	}
	return cs, c.Message, nil
}
