// Package gutter projects the diff between HEAD and a live editor buffer
// into per-line decorations, and applies single-change reverts back onto the
// buffer.
//
// Projections are cheap but not free, so views recompute only when one of
// their inputs changed: the buffer, the selected file, or the session
// refresh token. A Tracker carries that staleness check and the local
// cancelled flag long-running recomputations test before publishing.
package gutter

import (
	"strings"

	"github.com/chazuruo/edugit/internal/diff"
	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/repo"
)

// Compute diffs the HEAD content of rel against the live buffer and returns
// the gutter projection. A file absent from HEAD diffs against empty
// content, so a brand-new file shows every line as added.
func Compute(r *repo.Repository, rel string, buffer string) (*diff.GutterResult, error) {
	head, err := r.ResolveRef("HEAD")
	if err != nil {
		return nil, err
	}
	blobs, err := r.CommitBlobIndex(head)
	if err != nil {
		return nil, err
	}
	var headText string
	if oid, ok := blobs[rel]; ok {
		data, err := r.ReadBlob(oid)
		if err != nil {
			if !errors.IsObjectNotFound(err) {
				return nil, err
			}
		} else {
			headText = string(data)
		}
	}
	return diff.Gutter(headText, buffer), nil
}

// Revert undoes one change record in the buffer: the 0-based line slice
// [NewStart-1, NewEnd-1) is replaced with the change's old lines; for
// deletions that slice is empty, so the old lines are re-inserted at
// NewStart-1.
func Revert(buffer string, c *diff.Change) string {
	lines := strings.Split(buffer, "\n")
	start := c.NewStart - 1
	if start < 0 {
		start = 0
	}
	if start > len(lines) {
		start = len(lines)
	}
	end := c.NewEnd - 1
	if end < start {
		end = start
	}
	if end > len(lines) {
		end = len(lines)
	}

	out := make([]string, 0, len(lines)-(end-start)+len(c.OldLines))
	out = append(out, lines[:start]...)
	out = append(out, c.OldLines...)
	out = append(out, lines[end:]...)
	return strings.Join(out, "\n")
}

// Tracker decides when a view's projection is stale and lets an in-flight
// recomputation discard itself when its inputs changed underneath it.
type Tracker struct {
	file      string
	token     uint64
	buffer    string
	cancelled bool
}

// Stale reports whether the projection must be recomputed for the given
// inputs.
func (t *Tracker) Stale(file string, token uint64, buffer string) bool {
	return t.file != file || t.token != token || t.buffer != buffer
}

// Begin marks the inputs a recomputation runs against and resets the
// cancelled flag, so a Cancel issued before Begin no longer applies.
func (t *Tracker) Begin(file string, token uint64, buffer string) {
	t.cancelled = false
	t.file = file
	t.token = token
	t.buffer = buffer
}

// Cancel flags the in-flight computation to discard its result.
func (t *Tracker) Cancel() { t.cancelled = true }

// Cancelled reports whether the result should be discarded.
func (t *Tracker) Cancelled() bool { return t.cancelled }
