package diff

import (
	"fmt"
	"strings"
)

// contextLines is the number of equal lines shown around each hunk.
const contextLines = 2

// hunk is a contiguous group of ops with surrounding context.
type hunk struct {
	oldStart, oldCount int
	newStart, newCount int
	ops                []Op
}

// Unified renders the classic terminal diff for one file: a `diff -- <file>`
// header, ---/+++ lines, and @@ hunks with two lines of context. Equal lines
// are prefixed with two spaces, additions with "+ ", deletions with "- ".
// When the inputs differ but no hunk was produced (empty-file edge), a
// zero-range hunk header is still emitted so the output is never bare.
func Unified(file, oldText, newText string) string {
	ops := Lines(oldText, newText)

	var b strings.Builder
	fmt.Fprintf(&b, "diff -- %s\n", file)
	fmt.Fprintf(&b, "--- a/%s\n", file)
	fmt.Fprintf(&b, "+++ b/%s\n", file)

	hunks := groupHunks(ops)
	if len(hunks) == 0 {
		if oldText != newText {
			b.WriteString("@@ -1,0 +1,0 @@\n")
		}
		return b.String()
	}

	for _, h := range hunks {
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.oldStart, h.oldCount, h.newStart, h.newCount)
		for _, op := range h.ops {
			switch op.Kind {
			case Add:
				fmt.Fprintf(&b, "+ %s\n", op.Line)
			case Del:
				fmt.Fprintf(&b, "- %s\n", op.Line)
			default:
				fmt.Fprintf(&b, "  %s\n", op.Line)
			}
		}
	}
	return b.String()
}

// groupHunks slices the op stream into hunks, keeping at most contextLines
// equal lines on either side of each change and merging changes whose
// context would overlap.
func groupHunks(ops []Op) []hunk {
	// Indices of non-equal ops.
	var changed []int
	for i, op := range ops {
		if op.Kind != Equal {
			changed = append(changed, i)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	// Group changed indices whose gaps fit inside shared context.
	type span struct{ from, to int }
	var spans []span
	cur := span{from: changed[0], to: changed[0]}
	for _, idx := range changed[1:] {
		if idx-cur.to <= contextLines*2+1 {
			cur.to = idx
			continue
		}
		spans = append(spans, cur)
		cur = span{from: idx, to: idx}
	}
	spans = append(spans, cur)

	// Precompute old/new line numbers at each op index (1-based starts).
	oldLine := make([]int, len(ops)+1)
	newLine := make([]int, len(ops)+1)
	o, n := 1, 1
	for i, op := range ops {
		oldLine[i] = o
		newLine[i] = n
		switch op.Kind {
		case Equal:
			o++
			n++
		case Del:
			o++
		case Add:
			n++
		}
	}
	oldLine[len(ops)] = o
	newLine[len(ops)] = n

	var hunks []hunk
	for _, s := range spans {
		from := s.from - contextLines
		if from < 0 {
			from = 0
		}
		to := s.to + contextLines
		if to > len(ops)-1 {
			to = len(ops) - 1
		}
		h := hunk{
			oldStart: oldLine[from],
			newStart: newLine[from],
			ops:      ops[from : to+1],
		}
		for _, op := range h.ops {
			switch op.Kind {
			case Equal:
				h.oldCount++
				h.newCount++
			case Del:
				h.oldCount++
			case Add:
				h.newCount++
			}
		}
		hunks = append(hunks, h)
	}
	return hunks
}
