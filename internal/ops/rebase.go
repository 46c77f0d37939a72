package ops

import (
	"context"
	"strconv"

	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/index"
	"github.com/chazuruo/edugit/internal/object"
	"github.com/chazuruo/edugit/internal/repo"
)

// rebaseState is the durable cursor of an in-progress rebase, spread across
// the REBASE_* files.
type rebaseState struct {
	Upstream object.Oid   // REBASE_HEAD
	OrigHead object.Oid   // REBASE_ORIG_HEAD
	Todo     []object.Oid // REBASE_TODO
	Cursor   int          // REBASE_INDEX
	Current  object.Oid   // REBASE_CURRENT, set while stopped on conflicts
	Confl    []string     // REBASE_CONFLICTS
}

// loadRebaseState reads the rebase files; ok is false when no rebase is in
// progress.
func loadRebaseState(r *repo.Repository) (*rebaseState, bool, error) {
	upstream, err := RebaseHead(r)
	if err != nil || upstream == "" {
		return nil, false, err
	}
	st := &rebaseState{Upstream: upstream}
	st.OrigHead, err = readStateOid(r, RebaseOrigFile)
	if err != nil {
		return nil, false, err
	}
	if _, err := readStateJSON(r, RebaseTodoFile, &st.Todo); err != nil {
		return nil, false, err
	}
	cursorText, err := readStateText(r, RebaseIdxFile)
	if err != nil {
		return nil, false, err
	}
	if cursorText != "" {
		st.Cursor, _ = strconv.Atoi(trimNewline(cursorText))
	}
	st.Current, err = readStateOid(r, RebaseCurFile)
	if err != nil {
		return nil, false, err
	}
	if _, err := readStateJSON(r, RebaseConfFile, &st.Confl); err != nil {
		return nil, false, err
	}
	return st, true, nil
}

// saveRebaseCursor persists the loop position after a conflict stop.
func saveRebaseCursor(r *repo.Repository, st *rebaseState) error {
	if err := writeStateOid(r, RebaseCurFile, st.Current); err != nil {
		return err
	}
	if err := writeStateJSON(r, RebaseConfFile, st.Confl); err != nil {
		return err
	}
	return r.FS().WriteFile(r.StateFile(RebaseIdxFile), []byte(strconv.Itoa(st.Cursor)+"\n"))
}

// clearRebase removes every rebase file.
func clearRebase(r *repo.Repository) error {
	return clearState(r, RebaseHeadFile, RebaseOrigFile, RebaseTodoFile,
		RebaseIdxFile, RebaseCurFile, RebaseConfFile)
}

// Rebase replays the current branch's commits on top of upstream.
//
// The todo list is the set of commits reachable from HEAD but not from
// upstream, oldest first. State is persisted before the branch moves, so a
// conflict stop (or a cancellation between commits) leaves a resumable
// repository behind.
func Rebase(ctx context.Context, r *repo.Repository, upstreamRef string) (*Outcome, error) {
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

	head, err := r.ResolveRef("HEAD")
	if err != nil {
		return nil, err
	}
	if head == "" {
		return nil, errors.ErrInvalidRef
	}
	upstream, err := r.ResolveCommitish(upstreamRef)
	if err != nil {
		return nil, err
	}

	if done, err := r.IsDescendent(head, upstream); err != nil {
		return nil, err
	} else if done {
		return &Outcome{Kind: OutcomeUpToDate}, nil
	}

	headLog, err := r.Log(head)
	if err != nil {
		return nil, err
	}
	upstreamLog, err := r.Log(upstream)
	if err != nil {
		return nil, err
	}
	inUpstream := make(map[object.Oid]bool, len(upstreamLog))
	for _, e := range upstreamLog {
		inUpstream[e.Oid] = true
	}
	// Oldest first.
	var todo []object.Oid
	for i := len(headLog) - 1; i >= 0; i-- {
		if !inUpstream[headLog[i].Oid] {
			todo = append(todo, headLog[i].Oid)
		}
	}

	st := &rebaseState{Upstream: upstream, OrigHead: head, Todo: todo}
	if err := writeStateOid(r, RebaseHeadFile, upstream); err != nil {
		return nil, err
	}
	if err := writeStateOid(r, RebaseOrigFile, head); err != nil {
		return nil, err
	}
	if err := writeStateJSON(r, RebaseTodoFile, todo); err != nil {
		return nil, err
	}
	if err := r.FS().WriteFile(r.StateFile(RebaseIdxFile), []byte("0\n")); err != nil {
		return nil, err
	}

	// Reset the branch onto upstream and rewrite the tree.
	if err := index.Checkout(r, index.CheckoutOptions{
		Ref: string(upstream), Force: true, NoUpdateHead: true,
	}); err != nil {
		return nil, err
	}
	if err := moveHead(r, upstream); err != nil {
		return nil, err
	}

	return rebaseLoop(ctx, r, st)
}

// rebaseLoop replays todo entries from the cursor until done, a conflict
// stop, or cancellation.
func rebaseLoop(ctx context.Context, r *repo.Repository, st *rebaseState) (*Outcome, error) {
	for st.Cursor < len(st.Todo) {
		if err := ctx.Err(); err != nil {
			// Cancelled between commit-level steps: the rebase files remain
			// in place, which is exactly the --continue contract.
			if saveErr := saveRebaseCursor(r, st); saveErr != nil {
				return nil, saveErr
			}
			return nil, errors.ErrCanceled
		}
		target := st.Todo[st.Cursor]

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
			st.Current = target
			st.Confl = cs.conflicts
			if err := saveRebaseCursor(r, st); err != nil {
				return nil, err
			}
			return &Outcome{
				Kind:      OutcomeConflict,
				Conflicts: cs.conflicts,
				Message:   message,
			}, nil
		}

		if _, err := Commit(r, message); err != nil {
			return nil, err
		}
		st.Cursor++
	}

	if err := clearRebase(r); err != nil {
		return nil, err
	}
	head, err := r.ResolveRef("HEAD")
	if err != nil {
		return nil, err
	}
	return &Outcome{Kind: OutcomeClean, Commit: head}, nil
}

// RebaseContinue resumes a conflict-stopped rebase: the held commit is
// recorded from the (now resolved) index, then the loop continues.
func RebaseContinue(ctx context.Context, r *repo.Repository) (*Outcome, error) {
	st, ok, err := loadRebaseState(r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.ErrNoOperation
	}

	idx, err := index.Load(r)
	if err != nil {
		return nil, err
	}
	if paths := idx.ConflictPaths(); len(paths) > 0 {
		return nil, &errors.ConflictError{Op: errors.OpRebase, Files: paths}
	}

	if st.Current != "" {
		held, err := r.ReadCommit(st.Current)
		if err != nil {
			return nil, err
		}
		if _, err := Commit(r, held.Message); err != nil {
			return nil, err
		}
		st.Current = ""
		st.Confl = nil
		st.Cursor++
		if err := clearState(r, RebaseCurFile, RebaseConfFile); err != nil {
			return nil, err
		}
		if err := r.FS().WriteFile(r.StateFile(RebaseIdxFile), []byte(strconv.Itoa(st.Cursor)+"\n")); err != nil {
			return nil, err
		}
	}
	return rebaseLoop(ctx, r, st)
}

// RebaseAbort restores the branch to its pre-rebase tip and removes the
// rebase files.
func RebaseAbort(r *repo.Repository) error {
	st, ok, err := loadRebaseState(r)
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrNoOperation
	}
	if err := index.Checkout(r, index.CheckoutOptions{
		Ref: string(st.OrigHead), Force: true, NoUpdateHead: true,
	}); err != nil {
		return err
	}
	if err := moveHead(r, st.OrigHead); err != nil {
		return err
	}
	return clearRebase(r)
}
