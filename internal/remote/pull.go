package remote

import (
	"context"

	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/ops"
	"github.com/chazuruo/edugit/internal/repo"
)

// Pull fetches the current branch from the remote and integrates the
// tracking ref: fast-forward when possible, a real merge otherwise. A merge
// conflict transitions into merge-in-progress exactly like `git merge` and
// is reported through the Outcome, not as an error.
func (m *Manager) Pull(ctx context.Context, r *repo.Repository, remoteName string) (*ops.Outcome, error) {
	branch, err := r.CurrentBranch()
	if err != nil {
		return nil, err
	}
	if branch == "" {
		return nil, errors.ErrInvalidRef
	}
	if _, err := m.Fetch(ctx, r, remoteName, branch); err != nil {
		return nil, err
	}
	return ops.Merge(r, remoteName+"/"+branch)
}
