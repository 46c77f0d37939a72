package repo

import (
	"sort"
	"strings"

	"github.com/chazuruo/edugit/internal/object"
)

// FlattenTree walks a tree object recursively and returns a map of
// slash-separated relative path to blob oid for every blob beneath it.
func (r *Repository) FlattenTree(tree object.Oid, prefix string) (map[string]object.Oid, error) {
	out := make(map[string]object.Oid)
	if tree == "" {
		return out, nil
	}
	entries, err := r.ReadTree(tree)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		path := e.Name
		if prefix != "" {
			path = prefix + "/" + e.Name
		}
		switch e.Type {
		case object.TypeTree:
			sub, err := r.FlattenTree(e.Oid, path)
			if err != nil {
				return nil, err
			}
			for p, oid := range sub {
				out[p] = oid
			}
		default:
			out[path] = e.Oid
		}
	}
	return out, nil
}

// CommitBlobIndex returns the path → blob oid map for a commit's tree. An
// empty oid yields an empty index, standing in for the tree of a root
// commit's missing parent.
func (r *Repository) CommitBlobIndex(commit object.Oid) (map[string]object.Oid, error) {
	if commit == "" {
		return map[string]object.Oid{}, nil
	}
	c, err := r.ReadCommit(commit)
	if err != nil {
		return nil, err
	}
	return r.FlattenTree(c.Tree, "")
}

// WriteTreeFromPaths builds nested tree objects from a flat path → blob oid
// map and returns the root tree oid. The empty map produces the canonical
// empty tree.
func (r *Repository) WriteTreeFromPaths(blobs map[string]object.Oid) (object.Oid, error) {
	type dir struct {
		blobs map[string]object.Oid
		dirs  map[string]*dir
	}
	newDir := func() *dir {
		return &dir{blobs: map[string]object.Oid{}, dirs: map[string]*dir{}}
	}
	root := newDir()
	for path, oid := range blobs {
		parts := strings.Split(path, "/")
		cur := root
		for _, part := range parts[:len(parts)-1] {
			next, ok := cur.dirs[part]
			if !ok {
				next = newDir()
				cur.dirs[part] = next
			}
			cur = next
		}
		cur.blobs[parts[len(parts)-1]] = oid
	}

	var write func(d *dir) (object.Oid, error)
	write = func(d *dir) (object.Oid, error) {
		entries := make([]object.TreeEntry, 0, len(d.blobs)+len(d.dirs))
		names := make([]string, 0, len(d.dirs))
		for name := range d.dirs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			oid, err := write(d.dirs[name])
			if err != nil {
				return "", err
			}
			entries = append(entries, object.TreeEntry{
				Mode: object.ModeDir, Type: object.TypeTree, Oid: oid, Name: name,
			})
		}
		for name, oid := range d.blobs {
			entries = append(entries, object.TreeEntry{
				Mode: object.ModeFile, Type: object.TypeBlob, Oid: oid, Name: name,
			})
		}
		return r.WriteObject(object.TypeTree, object.EncodeTree(entries))
	}
	return write(root)
}

// CreateCommit writes a commit object for the given tree and parents and
// returns its oid. The identity and the monotonic clock supply both
// signatures.
func (r *Repository) CreateCommit(tree object.Oid, parents []object.Oid, message string) (object.Oid, error) {
	sig := r.signature()
	c := &object.Commit{
		Tree:      tree,
		Parents:   parents,
		Author:    sig,
		Committer: sig,
		Message:   message,
	}
	return r.WriteObject(object.TypeCommit, object.EncodeCommit(c))
}
