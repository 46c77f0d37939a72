// Package remote implements the loopback remote protocol: repositories under
// /.remotes/<name> on the same FileStore, object transfer by copying loose
// object files, tracking refs, pull integration, and the merge-request
// lifecycle persisted in each remote's metadata file.
//
// Nothing here leaves the process; a "remote" is just a second repository in
// the shared namespace.
package remote

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/index"
	"github.com/chazuruo/edugit/internal/repo"
	"github.com/chazuruo/edugit/internal/vfs"
)

// BaseDir is where loopback remotes live.
const BaseDir = "/.remotes"

// remotesFile records a local repository's configured remotes (name → url)
// inside its git directory.
const remotesFile = "remotes"

// Manager owns the remote namespace of one FileStore.
type Manager struct {
	fs   vfs.FileStore
	opts repo.Options
}

// NewManager returns a Manager over fs.
func NewManager(fs vfs.FileStore, opts repo.Options) *Manager {
	return &Manager{fs: fs, opts: opts}
}

// Path returns the directory of a named remote.
func (m *Manager) Path(name string) string {
	return vfs.Join(BaseDir, name)
}

// List returns the existing remote repository names, sorted.
func (m *Manager) List() ([]string, error) {
	names, err := m.fs.ReadDir(BaseDir)
	if err != nil {
		if errors.NotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether a remote repository exists.
func (m *Manager) Exists(name string) bool {
	return vfs.IsDir(m.fs, vfs.Join(m.Path(name), repo.GitDirName))
}

// Open returns a handle on an existing remote repository.
func (m *Manager) Open(name string) (*repo.Repository, error) {
	if !m.Exists(name) {
		return nil, errors.ErrNotARepository
	}
	return repo.New(m.fs, m.Path(name), m.opts), nil
}

// Create builds a new empty remote repository.
func (m *Manager) Create(name string) (*repo.Repository, error) {
	if m.Exists(name) {
		return nil, errors.ErrNameExists
	}
	if err := m.fs.Mkdir(m.Path(name)); err != nil {
		return nil, err
	}
	return repo.Init(m.fs, m.Path(name), m.opts)
}

// Fork copies an existing remote into a new one: every loose object file,
// every ref, HEAD, and the working tree. Merge requests do not follow the
// fork.
func (m *Manager) Fork(src, dst string) (*repo.Repository, error) {
	if _, err := m.Open(src); err != nil {
		return nil, err
	}
	if m.Exists(dst) {
		return nil, errors.ErrNameExists
	}
	if err := vfs.CopyTree(m.fs, m.Path(src), m.Path(dst)); err != nil {
		return nil, err
	}
	// The fork starts with a clean request ledger.
	meta := vfs.Join(m.Path(dst), repo.RemoteMetaName)
	if vfs.IsFile(m.fs, meta) {
		if err := m.fs.Unlink(meta); err != nil {
			return nil, err
		}
	}
	return m.Open(dst)
}

// urlToName extracts the remote repository name from a loopback url like
// "/.remotes/origin" (a bare name is accepted too).
func urlToName(url string) string {
	url = strings.TrimSuffix(strings.TrimSpace(url), "/")
	if rel, ok := vfs.Rel(BaseDir, vfs.Clean("/"+strings.TrimPrefix(url, "/"))); ok && rel != "" {
		return rel
	}
	return vfs.Base(url)
}

// Remotes returns a local repository's configured remotes (name → url).
func Remotes(r *repo.Repository) (map[string]string, error) {
	data, err := r.FS().ReadFile(r.StateFile(remotesFile))
	if err != nil {
		if errors.NotFound(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	out := map[string]string{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, "readRemotes")
	}
	return out, nil
}

// AddRemote configures a named remote on a local repository.
func AddRemote(r *repo.Repository, name, url string) error {
	remotes, err := Remotes(r)
	if err != nil {
		return err
	}
	if _, ok := remotes[name]; ok {
		return errors.ErrNameExists
	}
	remotes[name] = url
	data, err := json.MarshalIndent(remotes, "", "  ")
	if err != nil {
		return err
	}
	return r.FS().WriteFile(r.StateFile(remotesFile), data)
}

// resolveRemote opens the remote repository a local repo knows under name.
func (m *Manager) resolveRemote(r *repo.Repository, name string) (*repo.Repository, error) {
	remotes, err := Remotes(r)
	if err != nil {
		return nil, err
	}
	url, ok := remotes[name]
	if !ok {
		return nil, errors.Wrap(errors.ErrInvalidRef, "no such remote: "+name)
	}
	return m.Open(urlToName(url))
}

// copyAllObjects copies every loose object from src to dst. Content
// addressing makes the copy idempotent, so no negotiation is needed and a
// cancelled transfer can simply be re-run.
func copyAllObjects(ctx context.Context, src, dst *repo.Repository) error {
	oids, err := src.ListObjects()
	if err != nil {
		return err
	}
	for _, oid := range oids {
		if err := ctx.Err(); err != nil {
			return errors.ErrCanceled
		}
		if err := src.CopyObject(dst, oid); err != nil {
			return err
		}
	}
	return nil
}

// Push uploads a branch: objects first, then the remote branch ref. When the
// remote's checked-out branch is the one pushed, its working tree and index
// follow the new tip.
func (m *Manager) Push(ctx context.Context, r *repo.Repository, remoteName, branch string, force bool) error {
	rem, err := m.resolveRemote(r, remoteName)
	if err != nil {
		return err
	}
	tip, err := r.ReadRef(repo.BranchRef(branch))
	if err != nil {
		return err
	}
	if err := copyAllObjects(ctx, r, rem); err != nil {
		return err
	}
	if err := rem.WriteRef(repo.BranchRef(branch), tip, force); err != nil {
		return err
	}
	// Track what we pushed.
	if err := r.WriteRef(repo.RemoteRef(remoteName, branch), tip, true); err != nil {
		return err
	}
	return syncRemoteWorktree(rem, branch)
}

// syncRemoteWorktree re-checks-out the remote's working tree when its HEAD
// branch moved underneath it.
func syncRemoteWorktree(rem *repo.Repository, branch string) error {
	current, err := rem.CurrentBranch()
	if err != nil || current != branch {
		return err
	}
	return index.Checkout(rem, index.CheckoutOptions{
		Ref: branch, Force: true, NoUpdateHead: true,
	})
}

// Fetch downloads objects from the remote and updates the local tracking
// refs. An empty branch fetches every branch of the remote.
func (m *Manager) Fetch(ctx context.Context, r *repo.Repository, remoteName, branch string) ([]string, error) {
	rem, err := m.resolveRemote(r, remoteName)
	if err != nil {
		return nil, err
	}
	if err := copyAllObjects(ctx, rem, r); err != nil {
		return nil, err
	}
	branches := []string{branch}
	if branch == "" {
		branches, err = rem.ListBranches()
		if err != nil {
			return nil, err
		}
	}
	var updated []string
	for _, b := range branches {
		if err := ctx.Err(); err != nil {
			return nil, errors.ErrCanceled
		}
		tip, err := rem.ReadRef(repo.BranchRef(b))
		if err != nil {
			return nil, err
		}
		if err := r.WriteRef(repo.RemoteRef(remoteName, b), tip, true); err != nil {
			return nil, err
		}
		updated = append(updated, b)
	}
	return updated, nil
}

// CloneToLocal materialises a remote into a local repository root: init,
// object copy, tracking refs, a local default branch, and a checkout.
func (m *Manager) CloneToLocal(ctx context.Context, name, localRoot string) (*repo.Repository, error) {
	rem, err := m.Open(name)
	if err != nil {
		return nil, err
	}
	local, err := repo.Init(m.fs, localRoot, m.opts)
	if err != nil {
		return nil, err
	}
	if err := AddRemote(local, "origin", m.Path(name)); err != nil {
		return nil, err
	}
	if err := copyAllObjects(ctx, rem, local); err != nil {
		return nil, err
	}
	branches, err := rem.ListBranches()
	if err != nil {
		return nil, err
	}
	for _, b := range branches {
		tip, err := rem.ReadRef(repo.BranchRef(b))
		if err != nil {
			return nil, err
		}
		if err := local.WriteRef(repo.RemoteRef("origin", b), tip, true); err != nil {
			return nil, err
		}
	}

	// Check out the remote's current branch, falling back to the first.
	def, err := rem.CurrentBranch()
	if err != nil {
		return nil, err
	}
	if def == "" && len(branches) > 0 {
		def = branches[0]
	}
	if def != "" {
		if tip, err := rem.ReadRef(repo.BranchRef(def)); err == nil {
			if err := local.WriteRef(repo.BranchRef(def), tip, false); err != nil {
				return nil, err
			}
			if err := local.SetSymbolicHead(def); err != nil {
				return nil, err
			}
			if err := index.Checkout(local, index.CheckoutOptions{
				Ref: def, Force: true, NoUpdateHead: true,
			}); err != nil {
				return nil, err
			}
		}
	}
	return local, nil
}
