// Package vfs provides the virtual filesystem the edugit engine runs on.
//
// The engine never touches the host filesystem directly; working trees,
// .git directories, and loopback remotes all live behind the FileStore
// interface on a single hierarchical path namespace. Paths handed to a
// FileStore are always normalised: absolute, slash-separated, no trailing
// slash except the root "/", with "." and ".." already resolved.
package vfs

import (
	"sort"
	"strings"

	"github.com/chazuruo/edugit/internal/errors"
)

// NodeType distinguishes files from directories.
type NodeType string

const (
	// TypeFile is a regular file node.
	TypeFile NodeType = "file"
	// TypeDir is a directory node.
	TypeDir NodeType = "dir"
)

// Info describes a single node.
type Info struct {
	// Type is the node type.
	Type NodeType
}

// IsDir reports whether the node is a directory.
func (i *Info) IsDir() bool { return i.Type == TypeDir }

// FileStore is the capability the engine consumes. Every operation fails with
// an *errors.FsError carrying one of the four kinds; the git layer maps those
// to its own error vocabulary.
type FileStore interface {
	// Stat returns node info, or FsNotFound.
	Stat(path string) (*Info, error)

	// ReadDir returns the sorted child names of a directory.
	ReadDir(path string) ([]string, error)

	// ReadFile returns the byte content of a file.
	ReadFile(path string) ([]byte, error)

	// WriteFile replaces the content of a file, creating it and any missing
	// parent directories. Fails with FsNotADirectory when a path component
	// is a file.
	WriteFile(path string, data []byte) error

	// Rename moves a file or directory. The destination parent must exist.
	Rename(from, to string) error

	// Unlink removes a file.
	Unlink(path string) error

	// Mkdir creates a directory. Creating an existing directory is not an
	// error; missing parents are created.
	Mkdir(path string) error

	// Rmdir removes an empty directory, or fails with FsNotEmpty.
	Rmdir(path string) error
}

// Exists reports whether the path exists at all.
func Exists(fs FileStore, path string) bool {
	_, err := fs.Stat(path)
	return err == nil
}

// IsDir reports whether the path exists and is a directory.
func IsDir(fs FileStore, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && info.IsDir()
}

// IsFile reports whether the path exists and is a regular file.
func IsFile(fs FileStore, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && !info.IsDir()
}

// WalkFiles calls fn for every file under root, depth-first in sorted order.
// Directory names in skip are not descended into (matched against the bare
// child name, not the full path). Root itself may be a file.
func WalkFiles(fs FileStore, root string, skip map[string]bool, fn func(path string) error) error {
	info, err := fs.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fn(root)
	}
	names, err := fs.ReadDir(root)
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		if skip[name] {
			continue
		}
		if err := WalkFiles(fs, Join(root, name), skip, fn); err != nil {
			return err
		}
	}
	return nil
}

// RemoveAll removes a path and everything under it. A missing path is not an
// error.
func RemoveAll(fs FileStore, path string) error {
	info, err := fs.Stat(path)
	if err != nil {
		if errors.NotFound(err) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return fs.Unlink(path)
	}
	names, err := fs.ReadDir(path)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := RemoveAll(fs, Join(path, name)); err != nil {
			return err
		}
	}
	if path == "/" {
		return nil
	}
	return fs.Rmdir(path)
}

// CopyTree recursively copies src to dst. Existing files at dst are
// overwritten; existing directories are merged.
func CopyTree(fs FileStore, src, dst string) error {
	info, err := fs.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		data, err := fs.ReadFile(src)
		if err != nil {
			return err
		}
		return fs.WriteFile(dst, data)
	}
	if err := fs.Mkdir(dst); err != nil {
		return err
	}
	names, err := fs.ReadDir(src)
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		if err := CopyTree(fs, Join(src, name), Join(dst, name)); err != nil {
			return err
		}
	}
	return nil
}

// Clean normalises a path: leading slash, "." and ".." resolved, no trailing
// slash except for the root.
func Clean(path string) string {
	parts := strings.Split(path, "/")
	stack := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, part)
		}
	}
	if len(stack) == 0 {
		return "/"
	}
	return "/" + strings.Join(stack, "/")
}

// Join joins path elements and normalises the result.
func Join(elems ...string) string {
	return Clean(strings.Join(elems, "/"))
}

// Base returns the final element of the path, or "/" for the root.
func Base(path string) string {
	path = Clean(path)
	if path == "/" {
		return "/"
	}
	return path[strings.LastIndex(path, "/")+1:]
}

// Dir returns the parent directory of the path.
func Dir(path string) string {
	path = Clean(path)
	if path == "/" {
		return "/"
	}
	idx := strings.LastIndex(path, "/")
	if idx == 0 {
		return "/"
	}
	return path[:idx]
}

// Resolve interprets target relative to cwd: absolute targets are cleaned,
// relative ones are joined onto cwd.
func Resolve(cwd, target string) string {
	if strings.HasPrefix(target, "/") {
		return Clean(target)
	}
	return Join(cwd, target)
}

// Rel returns path relative to root (both normalised). The empty string means
// path == root. The second return is false when path is not under root.
func Rel(root, path string) (string, bool) {
	root = Clean(root)
	path = Clean(path)
	if root == path {
		return "", true
	}
	if root == "/" {
		return strings.TrimPrefix(path, "/"), true
	}
	if strings.HasPrefix(path, root+"/") {
		return path[len(root)+1:], true
	}
	return "", false
}
