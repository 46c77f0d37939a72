package ops

import (
	"fmt"

	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/index"
	"github.com/chazuruo/edugit/internal/object"
	"github.com/chazuruo/edugit/internal/repo"
)

// Merge merges theirsRef into the current branch.
//
// Case split, in order: already merged (theirs reachable from ours),
// fast-forward (ours reachable from theirs), and true three-way merge from
// the merge base. A conflicting three-way merge materialises markers, then
// writes MERGE_HEAD and MERGE_MSG after the conflicted files, so an observer
// reading MERGE_HEAD always sees the markers. It returns OutcomeConflict.
func Merge(r *repo.Repository, theirsRef string) (*Outcome, error) {
	if op, busy := InProgress(r); busy {
		return nil, &errors.ConflictError{Op: op}
	}
	ours, err := r.ResolveRef("HEAD")
	if err != nil {
		return nil, err
	}
	theirs, err := r.ResolveCommitish(theirsRef)
	if err != nil {
		return nil, err
	}

	if ours == "" {
		// Unborn branch: adopt theirs outright (the birth of a clone).
		if err := index.Checkout(r, index.CheckoutOptions{
			Ref: string(theirs), NoUpdateHead: true,
		}); err != nil {
			return nil, err
		}
		if err := moveHead(r, theirs); err != nil {
			return nil, err
		}
		return &Outcome{Kind: OutcomeFastForward, Commit: theirs}, nil
	}

	if ours == theirs {
		return &Outcome{Kind: OutcomeUpToDate}, nil
	}
	if reachable, err := r.IsDescendent(ours, theirs); err != nil {
		return nil, err
	} else if reachable {
		return &Outcome{Kind: OutcomeUpToDate}, nil
	}

	message := fmt.Sprintf("Merge %s into %s", theirsRef, currentLabel(r))

	if ff, err := r.IsDescendent(theirs, ours); err != nil {
		return nil, err
	} else if ff {
		// Fast-forward: tree and index first, ref move last.
		if err := index.Checkout(r, index.CheckoutOptions{
			Ref: string(theirs), NoUpdateHead: true,
		}); err != nil {
			return nil, err
		}
		if err := moveHead(r, theirs); err != nil {
			return nil, err
		}
		return &Outcome{Kind: OutcomeFastForward, Commit: theirs}, nil
	}

	base, err := r.MergeBase(ours, theirs)
	if err != nil {
		return nil, err
	}

	baseBlobs, err := r.CommitBlobIndex(base)
	if err != nil {
		return nil, err
	}
	theirsBlobs, err := r.CommitBlobIndex(theirs)
	if err != nil {
		return nil, err
	}
	oursBlobs, err := r.CommitBlobIndex(ours)
	if err != nil {
		return nil, err
	}

	idx, err := index.Load(r)
	if err != nil {
		return nil, err
	}
	cs, err := applyChanges(r, idx, baseBlobs, theirsBlobs, oursBlobs, "HEAD", theirsRef)
	if err != nil {
		return nil, err
	}
	if err := idx.Save(r); err != nil {
		return nil, err
	}

	if len(cs.conflicts) > 0 {
		// Operation files land after the conflicted working-tree state.
		if err := writeStateOid(r, MergeHeadFile, theirs); err != nil {
			return nil, err
		}
		if err := r.FS().WriteFile(r.StateFile(MergeMsgFile), []byte(message+"\n")); err != nil {
			return nil, err
		}
		return &Outcome{
			Kind:      OutcomeConflict,
			Conflicts: cs.conflicts,
			Changed:   cs.changed,
			Message:   message,
		}, nil
	}

	tree, err := index.WriteTree(r, idx)
	if err != nil {
		return nil, err
	}
	commit, err := r.CreateCommit(tree, []object.Oid{ours, theirs}, message)
	if err != nil {
		return nil, err
	}
	if err := moveHead(r, commit); err != nil {
		return nil, err
	}
	return &Outcome{Kind: OutcomeClean, Commit: commit, Changed: cs.changed, Message: message}, nil
}

// MergeAbort rewinds an in-progress merge: the working tree and index are
// rewritten from the current branch tip and the merge state files removed.
func MergeAbort(r *repo.Repository) error {
	mergeHead, err := MergeHead(r)
	if err != nil {
		return err
	}
	if mergeHead == "" {
		return errors.ErrNoOperation
	}
	if err := index.Checkout(r, index.CheckoutOptions{
		Ref: "HEAD", Force: true, NoUpdateHead: true,
	}); err != nil {
		return err
	}
	return clearState(r, MergeHeadFile, MergeMsgFile)
}

// currentLabel names the checked-out branch, or the detached short oid.
func currentLabel(r *repo.Repository) string {
	branch, err := r.CurrentBranch()
	if err != nil || branch == "" {
		if oid, err := r.ResolveRef("HEAD"); err == nil && oid != "" {
			return oid.Short()
		}
		return "HEAD"
	}
	return branch
}
