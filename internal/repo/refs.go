package repo

import (
	"sort"
	"strings"

	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/object"
	"github.com/chazuruo/edugit/internal/vfs"
)

const symrefPrefix = "ref: "

// HeadsPrefix and RemotesPrefix are the two ref namespaces.
const (
	HeadsPrefix   = "refs/heads/"
	RemotesPrefix = "refs/remotes/"
)

// BranchRef returns the full ref name for a local branch.
func BranchRef(name string) string { return HeadsPrefix + name }

// RemoteRef returns the full tracking ref name for remote/branch.
func RemoteRef(remote, branch string) string { return RemotesPrefix + remote + "/" + branch }

// refPath maps a full ref name onto the git directory.
func (r *Repository) refPath(name string) string {
	return vfs.Join(r.gitDir, name)
}

// WriteRef points a ref at an oid. Refs are atomic pointer slots: a write
// replaces the whole file. force is accepted for parity with the remote
// protocol; the loopback transport never rejects non-fast-forward updates.
func (r *Repository) WriteRef(name string, oid object.Oid, force bool) error {
	_ = force
	if err := r.fs.WriteFile(r.refPath(name), []byte(string(oid)+"\n")); err != nil {
		return &errors.RefError{Name: name, Err: err}
	}
	return nil
}

// ReadRef reads a ref by full name without following HEAD indirection.
func (r *Repository) ReadRef(name string) (object.Oid, error) {
	data, err := r.fs.ReadFile(r.refPath(name))
	if err != nil {
		if errors.NotFound(err) {
			return "", errors.ErrInvalidRef
		}
		return "", &errors.RefError{Name: name, Err: err}
	}
	return object.Oid(strings.TrimSpace(string(data))), nil
}

// DeleteRef removes a ref. Deleting a missing ref fails with ErrInvalidRef.
func (r *Repository) DeleteRef(name string) error {
	if err := r.fs.Unlink(r.refPath(name)); err != nil {
		if errors.NotFound(err) {
			return errors.ErrInvalidRef
		}
		return &errors.RefError{Name: name, Err: err}
	}
	return nil
}

// HeadRef returns the branch ref HEAD points at, or "" when detached.
func (r *Repository) HeadRef() (string, error) {
	data, err := r.fs.ReadFile(r.StateFile("HEAD"))
	if err != nil {
		if errors.NotFound(err) {
			return "", errors.ErrNotARepository
		}
		return "", err
	}
	content := strings.TrimSpace(string(data))
	if rest, ok := strings.CutPrefix(content, symrefPrefix); ok {
		return rest, nil
	}
	return "", nil
}

// CurrentBranch returns the checked-out branch name, or "" when HEAD is
// detached.
func (r *Repository) CurrentBranch() (string, error) {
	ref, err := r.HeadRef()
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(ref, HeadsPrefix), nil
}

// SetSymbolicHead points HEAD at a branch by name. The branch need not exist
// yet (the unborn-branch state right after init).
func (r *Repository) SetSymbolicHead(branch string) error {
	return r.fs.WriteFile(r.StateFile("HEAD"), []byte(symrefPrefix+BranchRef(branch)+"\n"))
}

// DetachHead points HEAD directly at an oid.
func (r *Repository) DetachHead(oid object.Oid) error {
	return r.fs.WriteFile(r.StateFile("HEAD"), []byte(string(oid)+"\n"))
}

// ResolveRef resolves a ref name to an oid, following HEAD transitively.
// Accepts "HEAD", full ref names, bare branch names, and remote tracking
// names like "origin/main". An unborn HEAD resolves to "" without error; any
// other unresolvable name fails with ErrInvalidRef.
func (r *Repository) ResolveRef(name string) (object.Oid, error) {
	switch {
	case name == "HEAD":
		data, err := r.fs.ReadFile(r.StateFile("HEAD"))
		if err != nil {
			if errors.NotFound(err) {
				return "", errors.ErrNotARepository
			}
			return "", err
		}
		content := strings.TrimSpace(string(data))
		if rest, ok := strings.CutPrefix(content, symrefPrefix); ok {
			oid, err := r.ReadRef(rest)
			if err != nil {
				// Unborn branch: HEAD names a branch with no commits yet.
				if errors.IsInvalidRef(err) {
					return "", nil
				}
				return "", err
			}
			return oid, nil
		}
		return object.Oid(content), nil
	case strings.HasPrefix(name, "refs/"):
		return r.ReadRef(name)
	default:
		if oid, err := r.ReadRef(BranchRef(name)); err == nil {
			return oid, nil
		}
		if oid, err := r.ReadRef(RemotesPrefix + name); err == nil {
			return oid, nil
		}
		return "", errors.ErrInvalidRef
	}
}

// listRefDir returns the sorted entry names directly under a ref directory;
// it does not recurse into subdirectories.
func (r *Repository) listRefDir(dir string) ([]string, error) {
	names, err := r.fs.ReadDir(dir)
	if err != nil {
		if errors.NotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// ListBranches returns all local branch names, sorted.
func (r *Repository) ListBranches() ([]string, error) {
	return r.listRefDir(vfs.Join(r.gitDir, "refs", "heads"))
}

// ListRemotes returns the remote names that have tracking refs.
func (r *Repository) ListRemotes() ([]string, error) {
	return r.listRefDir(vfs.Join(r.gitDir, "refs", "remotes"))
}

// ListRemoteBranches returns the tracking branch names for one remote.
func (r *Repository) ListRemoteBranches(remote string) ([]string, error) {
	return r.listRefDir(vfs.Join(r.gitDir, "refs", "remotes", remote))
}

// BranchExists reports whether a local branch exists.
func (r *Repository) BranchExists(name string) bool {
	_, err := r.ReadRef(BranchRef(name))
	return err == nil
}

// CreateBranch points a new branch at an oid. Fails with ErrNameExists when
// the branch is already present.
func (r *Repository) CreateBranch(name string, oid object.Oid) error {
	if !IsBranchName(name) {
		return errors.Wrap(errors.ErrInvalidRef, "branch name "+name)
	}
	if r.BranchExists(name) {
		return errors.ErrNameExists
	}
	return r.WriteRef(BranchRef(name), oid, false)
}
