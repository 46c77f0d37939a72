package ops

import (
	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/index"
	"github.com/chazuruo/edugit/internal/object"
	"github.com/chazuruo/edugit/internal/repo"
)

// Commit records the index as a commit on the current branch. When a merge
// is in progress (MERGE_HEAD present) the commit gets two parents and, if no
// message was given, consumes MERGE_MSG; the merge state files are removed
// after the ref moves. Unresolved conflict stages block the commit.
func Commit(r *repo.Repository, message string) (*Outcome, error) {
	idx, err := index.Load(r)
	if err != nil {
		return nil, err
	}
	if paths := idx.ConflictPaths(); len(paths) > 0 {
		return nil, &errors.ConflictError{Op: errors.OpMerge, Files: paths}
	}

	tree, err := index.WriteTree(r, idx)
	if err != nil {
		return nil, err
	}

	head, err := r.ResolveRef("HEAD")
	if err != nil {
		return nil, err
	}
	mergeHead, err := MergeHead(r)
	if err != nil {
		return nil, err
	}

	if mergeHead == "" && head != "" {
		headCommit, err := r.ReadCommit(head)
		if err != nil {
			return nil, err
		}
		if headCommit.Tree == tree {
			return &Outcome{Kind: OutcomeUpToDate}, nil
		}
	}

	if message == "" && mergeHead != "" {
		message, err = readStateText(r, MergeMsgFile)
		if err != nil {
			return nil, err
		}
		message = trimNewline(message)
	}

	var parents []object.Oid
	if head != "" {
		parents = append(parents, head)
	}
	if mergeHead != "" {
		parents = append(parents, mergeHead)
	}

	oid, err := r.CreateCommit(tree, parents, message)
	if err != nil {
		return nil, err
	}

	if err := moveHead(r, oid); err != nil {
		return nil, err
	}
	if mergeHead != "" {
		if err := clearState(r, MergeHeadFile, MergeMsgFile); err != nil {
			return nil, err
		}
	}
	return &Outcome{Kind: OutcomeClean, Commit: oid, Message: message}, nil
}

// moveHead advances the current branch to oid, or HEAD itself when detached.
func moveHead(r *repo.Repository, oid object.Oid) error {
	branch, err := r.CurrentBranch()
	if err != nil {
		return err
	}
	if branch == "" {
		return r.DetachHead(oid)
	}
	return r.WriteRef(repo.BranchRef(branch), oid, true)
}
