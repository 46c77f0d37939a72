package repo

import (
	"strings"

	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/object"
	"github.com/chazuruo/edugit/internal/vfs"
)

// objectPath returns the loose-object path for an oid: two-character fanout
// directory plus the remaining 38 characters.
func (r *Repository) objectPath(oid object.Oid) string {
	return vfs.Join(r.gitDir, "objects", string(oid[:2]), string(oid[2:]))
}

// WriteObject hashes the payload under its type and persists it as a loose
// object. Writing identical content twice is a no-op; the store is
// append-only and content addressed.
func (r *Repository) WriteObject(typ object.Type, payload []byte) (object.Oid, error) {
	oid := object.Hash(typ, payload)
	path := r.objectPath(oid)
	if vfs.Exists(r.fs, path) {
		return oid, nil
	}
	framed := make([]byte, 0, len(payload)+16)
	framed = append(framed, []byte(string(typ)+"\n")...)
	framed = append(framed, payload...)
	if err := r.fs.WriteFile(path, framed); err != nil {
		return "", errors.Wrap(err, "writeObject")
	}
	return oid, nil
}

// readObject loads a loose object, returning its type line and payload.
func (r *Repository) readObject(oid object.Oid) (object.Type, []byte, error) {
	if len(oid) != 40 {
		return "", nil, errors.ErrObjectNotFound
	}
	data, err := r.fs.ReadFile(r.objectPath(oid))
	if err != nil {
		if errors.NotFound(err) {
			return "", nil, errors.ErrObjectNotFound
		}
		return "", nil, err
	}
	header, payload, ok := strings.Cut(string(data), "\n")
	if !ok {
		return "", nil, errors.Wrap(errors.ErrObjectNotFound, "corrupt object "+oid.Short())
	}
	return object.Type(header), []byte(payload), nil
}

// ReadBlob returns the bytes of a blob object.
func (r *Repository) ReadBlob(oid object.Oid) ([]byte, error) {
	typ, payload, err := r.readObject(oid)
	if err != nil {
		return nil, err
	}
	if typ != object.TypeBlob {
		return nil, errors.Wrap(errors.ErrObjectNotFound, "not a blob: "+oid.Short())
	}
	return payload, nil
}

// ReadTree returns the entries of a tree object.
func (r *Repository) ReadTree(oid object.Oid) ([]object.TreeEntry, error) {
	typ, payload, err := r.readObject(oid)
	if err != nil {
		return nil, err
	}
	if typ != object.TypeTree {
		return nil, errors.Wrap(errors.ErrObjectNotFound, "not a tree: "+oid.Short())
	}
	return object.DecodeTree(payload)
}

// ReadCommit returns a parsed commit object.
func (r *Repository) ReadCommit(oid object.Oid) (*object.Commit, error) {
	typ, payload, err := r.readObject(oid)
	if err != nil {
		return nil, err
	}
	if typ != object.TypeCommit {
		return nil, errors.Wrap(errors.ErrObjectNotFound, "not a commit: "+oid.Short())
	}
	return object.DecodeCommit(payload)
}

// HasObject reports whether the oid exists in the store.
func (r *Repository) HasObject(oid object.Oid) bool {
	return len(oid) == 40 && vfs.Exists(r.fs, r.objectPath(oid))
}

// ExpandOid resolves an unambiguous 4–39 character hex prefix to a full oid.
// A full-length oid is validated against the store. Ambiguity fails with
// ErrAmbiguousOid, no match with ErrObjectNotFound.
func (r *Repository) ExpandOid(prefix string) (object.Oid, error) {
	if !object.IsHex(prefix) {
		return "", errors.ErrObjectNotFound
	}
	if len(prefix) == 40 {
		if r.HasObject(object.Oid(prefix)) {
			return object.Oid(prefix), nil
		}
		return "", errors.ErrObjectNotFound
	}
	fanout := vfs.Join(r.gitDir, "objects", prefix[:2])
	names, err := r.fs.ReadDir(fanout)
	if err != nil {
		if errors.NotFound(err) {
			return "", errors.ErrObjectNotFound
		}
		return "", err
	}
	rest := prefix[2:]
	var found object.Oid
	for _, name := range names {
		if strings.HasPrefix(name, rest) {
			if found != "" {
				return "", errors.ErrAmbiguousOid
			}
			found = object.Oid(prefix[:2] + name)
		}
	}
	if found == "" {
		return "", errors.ErrObjectNotFound
	}
	return found, nil
}

// ListObjects returns every oid present in the store. Used by the loopback
// remote protocol to copy object files between repositories.
func (r *Repository) ListObjects() ([]object.Oid, error) {
	base := vfs.Join(r.gitDir, "objects")
	fanouts, err := r.fs.ReadDir(base)
	if err != nil {
		if errors.NotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var oids []object.Oid
	for _, fanout := range fanouts {
		if len(fanout) != 2 {
			continue
		}
		names, err := r.fs.ReadDir(vfs.Join(base, fanout))
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			oids = append(oids, object.Oid(fanout+name))
		}
	}
	return oids, nil
}

// CopyObject copies one loose object into dst's store. Content addressing
// makes repeated copies idempotent.
func (r *Repository) CopyObject(dst *Repository, oid object.Oid) error {
	dstPath := dst.objectPath(oid)
	if vfs.Exists(dst.fs, dstPath) {
		return nil
	}
	data, err := r.fs.ReadFile(r.objectPath(oid))
	if err != nil {
		if errors.NotFound(err) {
			return errors.ErrObjectNotFound
		}
		return err
	}
	return dst.fs.WriteFile(dstPath, data)
}
