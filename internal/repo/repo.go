// Package repo implements the on-disk repository model: the git directory
// layout, the loose-object store, the ref namespace, and revision resolution.
//
// A Repository is a thin handle over a FileStore; it holds no cached state, so
// any number of handles may observe the same repository and the terminal and
// UI panels always read consistent bytes.
package repo

import (
	"fmt"
	"strings"

	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/object"
	"github.com/chazuruo/edugit/internal/vfs"
)

// Control names inside a repository root.
const (
	// GitDirName is the git directory.
	GitDirName = ".git"
	// RemotesDirName holds loopback remote repositories.
	RemotesDirName = ".remotes"
	// RemoteMetaName is the merge-request record file inside a remote.
	RemoteMetaName = ".edu_git_remote.json"
	// DefaultBranch is the branch created by `git init`.
	DefaultBranch = "main"
)

// ControlNames are the directory entries excluded from working-tree walks.
var ControlNames = map[string]bool{
	GitDirName:     true,
	RemotesDirName: true,
	RemoteMetaName: true,
}

// Identity is the fixed commit identity the engine stamps on commits.
type Identity struct {
	// Name is the author/committer name.
	Name string
	// Email is the author/committer email.
	Email string
}

// Repository is a handle on one repository within a FileStore.
type Repository struct {
	fs     vfs.FileStore
	root   string
	gitDir string

	ident Identity
	now   func() int64
}

// Options configures a Repository handle.
type Options struct {
	// Identity is the commit identity. Zero value falls back to the built-in
	// teaching identity.
	Identity Identity
	// Now supplies commit timestamps. Nil uses a deterministic monotonic
	// clock shared by all handles in the process, so rebase-produced commits
	// always hash differently from their originals.
	Now func() int64
	// DefaultBranch overrides the branch `git init` creates.
	DefaultBranch string
}

// defaultIdentity is stamped on commits when no config is present.
var defaultIdentity = Identity{Name: "Edu Git", Email: "edu@git.local"}

// clock is the shared deterministic commit clock. It starts at a fixed epoch
// and ticks once per commit.
var clock = func() func() int64 {
	var t int64 = 1700000000
	return func() int64 {
		t++
		return t
	}
}()

// New returns a handle for the repository rooted at root. The caller asserts
// root contains a git directory; use Discover to search for one.
func New(fs vfs.FileStore, root string, opts Options) *Repository {
	r := &Repository{
		fs:     fs,
		root:   vfs.Clean(root),
		gitDir: vfs.Join(root, GitDirName),
		ident:  opts.Identity,
		now:    opts.Now,
	}
	if r.ident == (Identity{}) {
		r.ident = defaultIdentity
	}
	if r.now == nil {
		r.now = clock
	}
	return r
}

// Discover walks from start upward looking for a .git directory and returns a
// handle on the enclosing repository. Fails with ErrNotARepository when the
// walk reaches the root without finding one.
func Discover(fs vfs.FileStore, start string, opts Options) (*Repository, error) {
	dir := vfs.Clean(start)
	for {
		if vfs.IsDir(fs, vfs.Join(dir, GitDirName)) {
			return New(fs, dir, opts), nil
		}
		if dir == "/" {
			return nil, errors.ErrNotARepository
		}
		dir = vfs.Dir(dir)
	}
}

// Init creates a git directory at root with an unborn default branch and
// returns a handle. Fails with ErrNameExists when the repository already
// exists.
func Init(fs vfs.FileStore, root string, opts Options) (*Repository, error) {
	r := New(fs, root, opts)
	if vfs.Exists(fs, r.gitDir) {
		return nil, errors.ErrNameExists
	}
	branch := opts.DefaultBranch
	if branch == "" {
		branch = DefaultBranch
	}
	for _, dir := range []string{
		r.gitDir,
		vfs.Join(r.gitDir, "objects"),
		vfs.Join(r.gitDir, "refs", "heads"),
		vfs.Join(r.gitDir, "refs", "remotes"),
	} {
		if err := fs.Mkdir(dir); err != nil {
			return nil, err
		}
	}
	if err := r.SetSymbolicHead(branch); err != nil {
		return nil, err
	}
	return r, nil
}

// FS returns the underlying FileStore.
func (r *Repository) FS() vfs.FileStore { return r.fs }

// Root returns the repository root path.
func (r *Repository) Root() string { return r.root }

// GitDir returns the git directory path.
func (r *Repository) GitDir() string { return r.gitDir }

// Identity returns the commit identity.
func (r *Repository) Identity() Identity { return r.ident }

// WorkPath resolves a repo-relative path to its FileStore path.
func (r *Repository) WorkPath(rel string) string {
	return vfs.Join(r.root, rel)
}

// RelPath converts a FileStore path into a repo-relative one.
func (r *Repository) RelPath(path string) (string, bool) {
	return vfs.Rel(r.root, path)
}

// StateFile returns the path of an operation file under the git directory.
func (r *Repository) StateFile(name string) string {
	return vfs.Join(r.gitDir, name)
}

// signature builds a signature from the identity and the commit clock.
func (r *Repository) signature() object.Signature {
	return object.Signature{Name: r.ident.Name, Email: r.ident.Email, When: r.now()}
}

// Describe renders "<short> <summary>" for display.
func Describe(oid object.Oid, c *object.Commit) string {
	return fmt.Sprintf("%s %s", oid.Short(), c.Summary())
}

// IsBranchName reports whether name is acceptable as a branch name.
func IsBranchName(name string) bool {
	if name == "" || strings.HasPrefix(name, "-") {
		return false
	}
	return !strings.ContainsAny(name, " \t\n~^:?*[\\")
}
