package vfs

import (
	"sort"

	"github.com/chazuruo/edugit/internal/errors"
)

// node is a single entry in the in-memory tree. Directories carry children,
// files carry data.
type node struct {
	isDir    bool
	data     []byte
	children map[string]*node
}

func newDirNode() *node {
	return &node{isDir: true, children: make(map[string]*node)}
}

// MemStore is an in-memory FileStore. It is the backing store for the browser
// workspace and for every test in this module. Not safe for concurrent
// mutation; the dispatch queue serialises writers (readers tolerate staleness).
type MemStore struct {
	root *node
}

// NewMemStore returns an empty store containing only the root directory.
func NewMemStore() *MemStore {
	return &MemStore{root: newDirNode()}
}

// split returns the cleaned path's segments; the root is the empty slice.
func split(path string) []string {
	path = Clean(path)
	if path == "/" {
		return nil
	}
	segs := []string{}
	start := 1
	for i := 1; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			segs = append(segs, path[start:i])
			start = i + 1
		}
	}
	return segs
}

// lookup walks to the node for path, or nil when any component is missing.
// The second return is false when a file component was used as a directory.
func (m *MemStore) lookup(path string) (*node, bool) {
	cur := m.root
	for _, seg := range split(path) {
		if !cur.isDir {
			return nil, false
		}
		next, ok := cur.children[seg]
		if !ok {
			return nil, true
		}
		cur = next
	}
	return cur, true
}

// lookupParent walks to the parent directory of path and returns it with the
// final path segment. Fails when path is the root.
func (m *MemStore) lookupParent(path string) (*node, string, error) {
	segs := split(path)
	if len(segs) == 0 {
		return nil, "", &errors.FsError{Kind: errors.FsExists, Path: "/"}
	}
	cur := m.root
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur.children[seg]
		if !ok || !next.isDir {
			return nil, "", &errors.FsError{Kind: errors.FsNotFound, Path: Clean(path)}
		}
		cur = next
	}
	return cur, segs[len(segs)-1], nil
}

// ensureDir walks to path creating directories as needed.
func (m *MemStore) ensureDir(path string) (*node, error) {
	cur := m.root
	for _, seg := range split(path) {
		next, ok := cur.children[seg]
		if !ok {
			next = newDirNode()
			cur.children[seg] = next
		}
		if !next.isDir {
			return nil, &errors.FsError{Kind: errors.FsNotADirectory, Path: Clean(path)}
		}
		cur = next
	}
	return cur, nil
}

// Stat implements FileStore.
func (m *MemStore) Stat(path string) (*Info, error) {
	n, ok := m.lookup(path)
	if n == nil || !ok {
		return nil, &errors.FsError{Kind: errors.FsNotFound, Path: Clean(path)}
	}
	if n.isDir {
		return &Info{Type: TypeDir}, nil
	}
	return &Info{Type: TypeFile}, nil
}

// ReadDir implements FileStore.
func (m *MemStore) ReadDir(path string) ([]string, error) {
	n, _ := m.lookup(path)
	if n == nil {
		return nil, &errors.FsError{Kind: errors.FsNotFound, Path: Clean(path)}
	}
	if !n.isDir {
		return nil, &errors.FsError{Kind: errors.FsNotADirectory, Path: Clean(path)}
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ReadFile implements FileStore.
func (m *MemStore) ReadFile(path string) ([]byte, error) {
	n, _ := m.lookup(path)
	if n == nil {
		return nil, &errors.FsError{Kind: errors.FsNotFound, Path: Clean(path)}
	}
	if n.isDir {
		return nil, &errors.FsError{Kind: errors.FsNotADirectory, Path: Clean(path)}
	}
	out := make([]byte, len(n.data))
	copy(out, n.data)
	return out, nil
}

// WriteFile implements FileStore. Missing parents are created.
func (m *MemStore) WriteFile(path string, data []byte) error {
	segs := split(path)
	if len(segs) == 0 {
		return &errors.FsError{Kind: errors.FsNotADirectory, Path: "/"}
	}
	parent, err := m.ensureDir(Dir(path))
	if err != nil {
		return err
	}
	name := segs[len(segs)-1]
	if existing, ok := parent.children[name]; ok && existing.isDir {
		return &errors.FsError{Kind: errors.FsExists, Path: Clean(path)}
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	parent.children[name] = &node{data: buf}
	return nil
}

// Rename implements FileStore.
func (m *MemStore) Rename(from, to string) error {
	fromParent, fromName, err := m.lookupParent(from)
	if err != nil {
		return err
	}
	n, ok := fromParent.children[fromName]
	if !ok {
		return &errors.FsError{Kind: errors.FsNotFound, Path: Clean(from)}
	}
	toParent, toName, err := m.lookupParent(to)
	if err != nil {
		return err
	}
	if existing, ok := toParent.children[toName]; ok && existing.isDir {
		return &errors.FsError{Kind: errors.FsExists, Path: Clean(to)}
	}
	delete(fromParent.children, fromName)
	toParent.children[toName] = n
	return nil
}

// Unlink implements FileStore.
func (m *MemStore) Unlink(path string) error {
	parent, name, err := m.lookupParent(path)
	if err != nil {
		return err
	}
	n, ok := parent.children[name]
	if !ok {
		return &errors.FsError{Kind: errors.FsNotFound, Path: Clean(path)}
	}
	if n.isDir {
		return &errors.FsError{Kind: errors.FsNotADirectory, Path: Clean(path)}
	}
	delete(parent.children, name)
	return nil
}

// Mkdir implements FileStore. Idempotent; creates missing parents.
func (m *MemStore) Mkdir(path string) error {
	_, err := m.ensureDir(path)
	return err
}

// Rmdir implements FileStore.
func (m *MemStore) Rmdir(path string) error {
	parent, name, err := m.lookupParent(path)
	if err != nil {
		return err
	}
	n, ok := parent.children[name]
	if !ok {
		return &errors.FsError{Kind: errors.FsNotFound, Path: Clean(path)}
	}
	if !n.isDir {
		return &errors.FsError{Kind: errors.FsNotADirectory, Path: Clean(path)}
	}
	if len(n.children) > 0 {
		return &errors.FsError{Kind: errors.FsNotEmpty, Path: Clean(path)}
	}
	delete(parent.children, name)
	return nil
}
