package repo

import (
	"strconv"
	"strings"

	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/object"
)

// LogEntry pairs an oid with its parsed commit.
type LogEntry struct {
	Oid    object.Oid
	Commit *object.Commit
}

// ResolveCommitish resolves a revision expression to a commit oid. The base
// may be a ref name, "HEAD", or an unambiguous oid prefix; optional suffixes
// `~N` (walk N first parents) and `^[n]` (select parent n, 1-based) are
// applied left to right. Any step that walks off the graph fails with
// ErrInvalidRef.
func (r *Repository) ResolveCommitish(expr string) (object.Oid, error) {
	base := expr
	suffix := ""
	if idx := strings.IndexAny(expr, "~^"); idx >= 0 {
		base, suffix = expr[:idx], expr[idx:]
	}

	oid, err := r.ResolveRef(base)
	if err != nil || oid == "" {
		expanded, expErr := r.ExpandOid(base)
		if expErr != nil {
			if errors.IsAmbiguousOid(expErr) {
				return "", expErr
			}
			if err == nil {
				// Unborn HEAD with no suffix is a valid empty resolution.
				if suffix == "" {
					return "", nil
				}
				return "", errors.ErrInvalidRef
			}
			return "", errors.ErrInvalidRef
		}
		oid = expanded
	}

	for len(suffix) > 0 {
		op := suffix[0]
		suffix = suffix[1:]
		digits := 0
		for digits < len(suffix) && suffix[digits] >= '0' && suffix[digits] <= '9' {
			digits++
		}
		n := 1
		if digits > 0 {
			n, _ = strconv.Atoi(suffix[:digits])
			suffix = suffix[digits:]
		}
		switch op {
		case '~':
			for i := 0; i < n; i++ {
				c, err := r.ReadCommit(oid)
				if err != nil || len(c.Parents) == 0 {
					return "", errors.ErrInvalidRef
				}
				oid = c.Parents[0]
			}
		case '^':
			c, err := r.ReadCommit(oid)
			if err != nil || n < 1 || n > len(c.Parents) {
				return "", errors.ErrInvalidRef
			}
			oid = c.Parents[n-1]
		default:
			return "", errors.ErrInvalidRef
		}
	}
	return oid, nil
}

// Log walks history from a tip, depth first following first parents before
// later ones, deduplicating by oid, newest first.
func (r *Repository) Log(tip object.Oid) ([]LogEntry, error) {
	if tip == "" {
		return nil, nil
	}
	seen := make(map[object.Oid]bool)
	var out []LogEntry
	var visit func(oid object.Oid) error
	visit = func(oid object.Oid) error {
		if seen[oid] {
			return nil
		}
		seen[oid] = true
		c, err := r.ReadCommit(oid)
		if err != nil {
			return err
		}
		out = append(out, LogEntry{Oid: oid, Commit: c})
		for _, p := range c.Parents {
			if err := visit(p); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(tip); err != nil {
		return nil, err
	}
	return out, nil
}

// ancestors collects every commit reachable from tip (inclusive), breadth
// first, in visit order.
func (r *Repository) ancestors(tip object.Oid) ([]object.Oid, error) {
	var order []object.Oid
	seen := map[object.Oid]bool{}
	queue := []object.Oid{tip}
	for len(queue) > 0 {
		oid := queue[0]
		queue = queue[1:]
		if seen[oid] {
			continue
		}
		seen[oid] = true
		order = append(order, oid)
		c, err := r.ReadCommit(oid)
		if err != nil {
			return nil, err
		}
		queue = append(queue, c.Parents...)
	}
	return order, nil
}

// MergeBase returns the most recent common ancestor of a and b, or "" when
// the histories are disjoint. Ancestors of a form the candidate set; the
// first ancestor of b found in it (breadth-first from b) wins.
func (r *Repository) MergeBase(a, b object.Oid) (object.Oid, error) {
	if a == "" || b == "" {
		return "", nil
	}
	ofA, err := r.ancestors(a)
	if err != nil {
		return "", err
	}
	inA := make(map[object.Oid]bool, len(ofA))
	for _, oid := range ofA {
		inA[oid] = true
	}
	ofB, err := r.ancestors(b)
	if err != nil {
		return "", err
	}
	for _, oid := range ofB {
		if inA[oid] {
			return oid, nil
		}
	}
	return "", nil
}

// IsDescendent reports whether ancestor is reachable from oid (a commit is
// its own descendent).
func (r *Repository) IsDescendent(oid, ancestor object.Oid) (bool, error) {
	if oid == "" || ancestor == "" {
		return false, nil
	}
	seen := map[object.Oid]bool{}
	queue := []object.Oid{oid}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == ancestor {
			return true, nil
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		c, err := r.ReadCommit(cur)
		if err != nil {
			return false, err
		}
		queue = append(queue, c.Parents...)
	}
	return false, nil
}
