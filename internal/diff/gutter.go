package diff

// ChangeType classifies a gutter change run.
type ChangeType string

const (
	// ChangeAdd is a run of inserted lines.
	ChangeAdd ChangeType = "add"
	// ChangeModify is a run that replaces old lines with new ones.
	ChangeModify ChangeType = "modify"
	// ChangeDelete is a run of removed lines.
	ChangeDelete ChangeType = "delete"
)

// Change is one reversible gutter change record: a maximal run of
// consecutive non-equal ops.
type Change struct {
	// Type classifies the run.
	Type ChangeType
	// OldLines are the old-file lines the run removed.
	OldLines []string
	// NewLines are the new-file lines the run introduced.
	NewLines []string
	// NewStart is the 1-based new-file line of the first added or modified
	// line; for deletions it is the insertion point of the removed lines.
	NewStart int
	// NewEnd is the 1-based exclusive end of the run's new-file lines, so
	// reverting replaces the 0-based slice [NewStart-1, NewEnd-1) with
	// OldLines.
	NewEnd int
	// MarkerLine is the 1-based new-file line the gutter decoration sits on,
	// clamped into the new file.
	MarkerLine int
}

// GutterResult is the projection the editor gutter consumes.
type GutterResult struct {
	// AddedLines are new-file line numbers marked as additions.
	AddedLines map[int]bool
	// ModifiedLines are new-file line numbers marked as modifications.
	ModifiedLines map[int]bool
	// RemovedMarkers are new-file line numbers carrying a deletion marker.
	RemovedMarkers map[int]bool
	// Changes maps a marked line number to its change record.
	Changes map[int]*Change
	// All lists the change records in file order.
	All []*Change
}

// Gutter diffs old against new text and projects the result into gutter
// decorations.
func Gutter(oldText, newText string) *GutterResult {
	ops := Lines(oldText, newText)
	newTotal := 0
	for _, op := range ops {
		if op.Kind != Del {
			newTotal++
		}
	}

	res := &GutterResult{
		AddedLines:     map[int]bool{},
		ModifiedLines:  map[int]bool{},
		RemovedMarkers: map[int]bool{},
		Changes:        map[int]*Change{},
	}

	newLine := 1
	i := 0
	for i < len(ops) {
		if ops[i].Kind == Equal {
			newLine++
			i++
			continue
		}
		// Collect the maximal run of non-equal ops.
		start := newLine
		var oldLines, newLines []string
		for i < len(ops) && ops[i].Kind != Equal {
			switch ops[i].Kind {
			case Del:
				oldLines = append(oldLines, ops[i].Line)
			case Add:
				newLines = append(newLines, ops[i].Line)
				newLine++
			}
			i++
		}

		c := &Change{
			OldLines: oldLines,
			NewLines: newLines,
			NewStart: start,
			NewEnd:   start + len(newLines),
		}
		switch {
		case len(oldLines) > 0 && len(newLines) > 0:
			c.Type = ChangeModify
		case len(newLines) > 0:
			c.Type = ChangeAdd
		default:
			c.Type = ChangeDelete
		}
		c.MarkerLine = clamp(c.NewStart, 1, newTotal)
		res.All = append(res.All, c)

		switch c.Type {
		case ChangeAdd:
			for line := c.NewStart; line < c.NewEnd; line++ {
				res.AddedLines[line] = true
				res.Changes[line] = c
			}
		case ChangeModify:
			for line := c.NewStart; line < c.NewEnd; line++ {
				res.ModifiedLines[line] = true
				res.Changes[line] = c
			}
		case ChangeDelete:
			res.RemovedMarkers[c.MarkerLine] = true
			if _, taken := res.Changes[c.MarkerLine]; !taken {
				res.Changes[c.MarkerLine] = c
			}
		}
	}
	return res
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
