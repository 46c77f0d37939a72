// Package object defines the three git object variants (blob, tree, commit),
// their canonical serialisation, and content-addressed hashing.
//
// Objects are immutable once written. Equality of two trees is equality of
// their serialised form, so encoding is canonical: tree entries are sorted by
// name and every field is emitted in a fixed order.
package object

import (
	"crypto/sha1" //nolint:gosec // content addressing, not security
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/chazuruo/edugit/internal/errors"
)

// Oid is a 40-character lowercase hex content hash.
type Oid string

// ShortLen is the abbreviated oid length used for display.
const ShortLen = 7

// Short returns the 7-character display abbreviation.
func (o Oid) Short() string {
	if len(o) < ShortLen {
		return string(o)
	}
	return string(o[:ShortLen])
}

// IsHex reports whether s is a plausible (partial) oid: 4–40 lowercase hex
// characters.
func IsHex(s string) bool {
	if len(s) < 4 || len(s) > 40 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Type identifies an object variant.
type Type string

const (
	// TypeBlob is a byte sequence.
	TypeBlob Type = "blob"
	// TypeTree is an ordered set of entries.
	TypeTree Type = "tree"
	// TypeCommit is a tree snapshot with ancestry.
	TypeCommit Type = "commit"
)

// File modes. Directories use ModeDir inside trees; everything else is a
// regular file (symlinks are out of scope).
const (
	ModeFile = "100644"
	ModeDir  = "040000"
)

// Hash computes the oid of a payload under its object type. The header
// mirrors git's loose-object framing so identical content in different
// variants never collides.
func Hash(typ Type, payload []byte) Oid {
	h := sha1.New() //nolint:gosec
	fmt.Fprintf(h, "%s %d\x00", typ, len(payload))
	h.Write(payload)
	return Oid(hex.EncodeToString(h.Sum(nil)))
}

// TreeEntry is one row of a tree object.
type TreeEntry struct {
	// Mode is the entry mode (ModeFile or ModeDir).
	Mode string
	// Type is TypeBlob or TypeTree.
	Type Type
	// Oid is the entry's object id.
	Oid Oid
	// Name is the entry name within its directory.
	Name string
}

// SortEntries orders entries canonically (by name).
func SortEntries(entries []TreeEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
}

// EncodeTree serialises tree entries canonically. The input is sorted in
// place first so callers never produce two encodings of one tree.
func EncodeTree(entries []TreeEntry) []byte {
	SortEntries(entries)
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s %s\t%s\n", e.Mode, e.Type, e.Oid, e.Name)
	}
	return []byte(b.String())
}

// DecodeTree parses a serialised tree.
func DecodeTree(data []byte) ([]TreeEntry, error) {
	var entries []TreeEntry
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		head, name, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, errors.Wrap(fmt.Errorf("malformed tree entry %q", line), "decodeTree")
		}
		fields := strings.Fields(head)
		if len(fields) != 3 {
			return nil, errors.Wrap(fmt.Errorf("malformed tree entry %q", line), "decodeTree")
		}
		entries = append(entries, TreeEntry{
			Mode: fields[0],
			Type: Type(fields[1]),
			Oid:  Oid(fields[2]),
			Name: name,
		})
	}
	return entries, nil
}

// Signature identifies an author or committer with a timestamp.
type Signature struct {
	// Name is the identity name.
	Name string
	// Email is the identity email.
	Email string
	// When is seconds since the Unix epoch.
	When int64
}

// String renders the signature in the commit header form.
func (s Signature) String() string {
	return fmt.Sprintf("%s <%s> %d", s.Name, s.Email, s.When)
}

// parseSignature parses the commit header form.
func parseSignature(s string) (Signature, error) {
	open := strings.Index(s, " <")
	close_ := strings.Index(s, "> ")
	if open < 0 || close_ < open {
		return Signature{}, fmt.Errorf("malformed signature %q", s)
	}
	when, err := strconv.ParseInt(strings.TrimSpace(s[close_+2:]), 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("malformed signature timestamp %q", s)
	}
	return Signature{Name: s[:open], Email: s[open+2 : close_], When: when}, nil
}

// Commit is a tree snapshot with ancestry. Parent count >= 2 denotes a merge.
type Commit struct {
	// Tree is the root tree oid.
	Tree Oid
	// Parents are the parent commit oids, first parent first.
	Parents []Oid
	// Author is who wrote the change.
	Author Signature
	// Committer is who recorded it.
	Committer Signature
	// Message is the commit message.
	Message string
}

// IsMerge reports whether the commit has more than one parent.
func (c *Commit) IsMerge() bool { return len(c.Parents) > 1 }

// Summary returns the first line of the message.
func (c *Commit) Summary() string {
	msg, _, _ := strings.Cut(c.Message, "\n")
	return msg
}

// EncodeCommit serialises a commit canonically.
func EncodeCommit(c *Commit) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Fprintf(&b, "parent %s\n", p)
	}
	fmt.Fprintf(&b, "author %s\n", c.Author)
	fmt.Fprintf(&b, "committer %s\n", c.Committer)
	b.WriteString("\n")
	b.WriteString(c.Message)
	return []byte(b.String())
}

// DecodeCommit parses a serialised commit.
func DecodeCommit(data []byte) (*Commit, error) {
	header, message, _ := strings.Cut(string(data), "\n\n")
	c := &Commit{Message: message}
	for _, line := range strings.Split(header, "\n") {
		key, value, ok := strings.Cut(line, " ")
		if !ok {
			return nil, errors.Wrap(fmt.Errorf("malformed commit header %q", line), "decodeCommit")
		}
		switch key {
		case "tree":
			c.Tree = Oid(value)
		case "parent":
			c.Parents = append(c.Parents, Oid(value))
		case "author":
			sig, err := parseSignature(value)
			if err != nil {
				return nil, errors.Wrap(err, "decodeCommit")
			}
			c.Author = sig
		case "committer":
			sig, err := parseSignature(value)
			if err != nil {
				return nil, errors.Wrap(err, "decodeCommit")
			}
			c.Committer = sig
		default:
			return nil, errors.Wrap(fmt.Errorf("unknown commit header %q", key), "decodeCommit")
		}
	}
	if c.Tree == "" {
		return nil, errors.Wrap(fmt.Errorf("commit missing tree header"), "decodeCommit")
	}
	return c, nil
}
