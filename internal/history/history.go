// Package history keeps the terminal's command history: the lines a student
// has run in the educational shell, with recall and filtering for the
// up-arrow flow and the history view.
package history

import "time"

// Line represents a single executed terminal command.
type Line struct {
	// Timestamp is when the command ran.
	Timestamp time.Time
	// Command is the full command line.
	Command string
}

// History is an append-only command log with a recall cursor.
type History struct {
	lines  []Line
	cursor int
	// draft holds the in-progress input while the student browses history.
	draft string
}

// New returns an empty history.
func New() *History {
	return &History{cursor: -1}
}

// Append records an executed command and resets the recall cursor. Empty
// commands and immediate duplicates are not recorded.
func (h *History) Append(command string) {
	if command == "" {
		return
	}
	if n := len(h.lines); n > 0 && h.lines[n-1].Command == command {
		h.cursor = -1
		return
	}
	h.lines = append(h.lines, Line{Timestamp: time.Now(), Command: command})
	h.cursor = -1
}

// Len returns the number of recorded commands.
func (h *History) Len() int { return len(h.lines) }

// Lines returns the recorded commands, oldest first.
func (h *History) Lines() []Line {
	out := make([]Line, len(h.lines))
	copy(out, h.lines)
	return out
}

// Prev steps the recall cursor backwards and returns the command there. The
// current draft is remembered on the first step so Next can restore it.
func (h *History) Prev(draft string) (string, bool) {
	if len(h.lines) == 0 {
		return "", false
	}
	if h.cursor == -1 {
		h.draft = draft
		h.cursor = len(h.lines) - 1
	} else if h.cursor > 0 {
		h.cursor--
	}
	return h.lines[h.cursor].Command, true
}

// Next steps the recall cursor forwards; walking past the newest entry
// restores the remembered draft.
func (h *History) Next() (string, bool) {
	if h.cursor == -1 {
		return "", false
	}
	h.cursor++
	if h.cursor >= len(h.lines) {
		h.cursor = -1
		return h.draft, true
	}
	return h.lines[h.cursor].Command, true
}

// FilterOptions specifies filtering criteria for history lines
type FilterOptions struct {
	Since     time.Time // Only include commands after this time
	MaxLines  int       // Maximum number of lines to return (0 = no limit)
	RemoveDup bool      // Remove consecutive duplicate commands
	Prefix    string    // Only include commands with this prefix
}

// Filter applies the options to a slice of history lines, preserving order.
func Filter(lines []Line, opts FilterOptions) []Line {
	var out []Line
	for _, line := range lines {
		if !opts.Since.IsZero() && line.Timestamp.Before(opts.Since) {
			continue
		}
		if opts.Prefix != "" && !hasPrefix(line.Command, opts.Prefix) {
			continue
		}
		if opts.RemoveDup && len(out) > 0 && out[len(out)-1].Command == line.Command {
			continue
		}
		out = append(out, line)
	}
	if opts.MaxLines > 0 && len(out) > opts.MaxLines {
		out = out[len(out)-opts.MaxLines:]
	}
	return out
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
