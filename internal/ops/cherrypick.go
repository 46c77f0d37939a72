package ops

import (
	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/index"
	"github.com/chazuruo/edugit/internal/repo"
)

// CherryPick applies one commit's changes on top of HEAD. A clean apply
// commits immediately with the picked message; a conflicting apply
// materialises markers and persists CHERRY_PICK_HEAD / CHERRY_PICK_MSG for
// --continue.
func CherryPick(r *repo.Repository, ref string) (*Outcome, error) {
	if op, busy := InProgress(r); busy {
		return nil, &errors.ConflictError{Op: op}
	}
	summary, err := index.Status(r)
	if err != nil {
		return nil, err
	}
	if !summary.TrackedClean() {
		return nil, errors.ErrDirtyWorkingTree
	}

	target, err := r.ResolveCommitish(ref)
	if err != nil {
		return nil, err
	}
	head, err := r.ResolveRef("HEAD")
	if err != nil {
		return nil, err
	}

	idx, err := index.Load(r)
	if err != nil {
		return nil, err
	}
	cs, message, err := applyCommitChanges(r, idx, target, head)
	if err != nil {
		return nil, err
	}
	if err := idx.Save(r); err != nil {
		return nil, err
	}

	if len(cs.conflicts) > 0 {
		// State files after the conflicted working-tree writes.
		if err := writeStateOid(r, CherryHeadFile, target); err != nil {
			return nil, err
		}
		if err := r.FS().WriteFile(r.StateFile(CherryMsgFile), []byte(message)); err != nil {
			return nil, err
		}
		return &Outcome{
			Kind:      OutcomeConflict,
			Conflicts: cs.conflicts,
			Changed:   cs.changed,
			Message:   message,
		}, nil
	}

	out, err := Commit(r, message)
	if err != nil {
		return nil, err
	}
	out.Changed = cs.changed
	return out, nil
}

// CherryPickContinue commits the held message once every conflict has been
// resolved and staged.
func CherryPickContinue(r *repo.Repository) (*Outcome, error) {
	target, err := CherryPickHead(r)
	if err != nil {
		return nil, err
	}
	if target == "" {
		return nil, errors.ErrNoOperation
	}
	idx, err := index.Load(r)
	if err != nil {
		return nil, err
	}
	if paths := idx.ConflictPaths(); len(paths) > 0 {
		return nil, &errors.ConflictError{Op: errors.OpCherryPick, Files: paths}
	}
	message, err := readStateText(r, CherryMsgFile)
	if err != nil {
		return nil, err
	}
	out, err := Commit(r, message)
	if err != nil {
		return nil, err
	}
	if err := clearState(r, CherryHeadFile, CherryMsgFile); err != nil {
		return nil, err
	}
	return out, nil
}

// CherryPickAbort rewinds the working tree to the current branch tip and
// clears the cherry-pick files.
func CherryPickAbort(r *repo.Repository) error {
	target, err := CherryPickHead(r)
	if err != nil {
		return err
	}
	if target == "" {
		return errors.ErrNoOperation
	}
	if err := index.Checkout(r, index.CheckoutOptions{
		Ref: "HEAD", Force: true, NoUpdateHead: true,
	}); err != nil {
		return err
	}
	return clearState(r, CherryHeadFile, CherryMsgFile)
}
