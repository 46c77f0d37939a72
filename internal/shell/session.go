// Package shell implements the educational terminal: a command registry with
// a middleware chain, a permissive flag parser, the filesystem builtins, and
// every `git` subcommand of the teaching surface.
//
// The session processes one command at a time; UI observers read the same
// FileStore, and the file pane's gutter revert is their only write. State
// changes are announced
// through a monotonically increasing refresh token so views know when to
// recompute their projections.
package shell

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/chazuruo/edugit/internal/remote"
	"github.com/chazuruo/edugit/internal/repo"
	"github.com/chazuruo/edugit/internal/vfs"
)

// Event is one state-change notification to the view layer.
type Event struct {
	// RefreshToken is the session's monotonic change counter.
	RefreshToken uint64
	// BranchName is the current branch, or "" when detached or outside a
	// repository.
	BranchName string
}

// Session is one terminal attached to a FileStore.
type Session struct {
	fs   vfs.FileStore
	mgr  *remote.Manager
	opts repo.Options

	// runMu serialises command execution; mu guards the small fields.
	runMu    sync.Mutex
	mu       sync.Mutex
	cwd      string
	token    uint64
	listener func(Event)
	cleared  bool
}

// NewSession opens a terminal rooted at "/".
func NewSession(fs vfs.FileStore, opts repo.Options) *Session {
	return &Session{
		fs:   fs,
		mgr:  remote.NewManager(fs, opts),
		opts: opts,
		cwd:  "/",
	}
}

// OnEvent registers the view listener. Only one listener is supported; the
// TUI multiplexes internally.
func (s *Session) OnEvent(fn func(Event)) { s.listener = fn }

// Cwd returns the current working directory.
func (s *Session) Cwd() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cwd
}

// RefreshToken returns the current change counter.
func (s *Session) RefreshToken() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// BranchName returns the current branch at the cwd, or "" when detached or
// outside a repository.
func (s *Session) BranchName() string {
	r, err := repo.Discover(s.fs, s.Cwd(), s.opts)
	if err != nil {
		return ""
	}
	branch, err := r.CurrentBranch()
	if err != nil {
		return ""
	}
	return branch
}

// Remotes returns the loopback remote manager.
func (s *Session) Remotes() *remote.Manager { return s.mgr }

// FS returns the session's FileStore.
func (s *Session) FS() vfs.FileStore { return s.fs }

// RepoOptions returns the repository options (identity, clock) in use.
func (s *Session) RepoOptions() repo.Options { return s.opts }

// bump advances the refresh token and notifies the listener. Called after
// every command that may have mutated state.
func (s *Session) bump() {
	s.mu.Lock()
	s.token++
	token := s.token
	cwd := s.cwd
	s.mu.Unlock()

	branch := ""
	if r, err := repo.Discover(s.fs, cwd, s.opts); err == nil {
		if b, err := r.CurrentBranch(); err == nil {
			branch = b
		}
	}
	if s.listener != nil {
		s.listener(Event{RefreshToken: token, BranchName: branch})
	}
}

// Result is one executed command's output.
type Result struct {
	// Lines is the terminal output, one element per line.
	Lines []string
	// ClearScreen is set by the `clear` builtin.
	ClearScreen bool
}

// Failed reports whether any output line is a fatal or error line.
func (res *Result) Failed() bool {
	for _, line := range res.Lines {
		if strings.HasPrefix(line, "fatal:") || strings.HasPrefix(line, "error:") {
			return true
		}
	}
	return false
}

// Run executes one command line to completion. Commands are serialised: a
// second caller blocks until the first finishes, preserving the
// one-command-at-a-time model.
func (s *Session) Run(ctx context.Context, line string) *Result {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	defer s.bump()

	s.cleared = false
	res := &Result{}
	fields := splitCommandLine(line)
	if len(fields) == 0 {
		return res
	}

	name := fields[0]
	args := fields[1:]
	if name == "git" {
		if len(args) == 0 {
			res.Lines = append(res.Lines, "usage: git <command> [<args>]")
			return res
		}
		name = "git " + args[0]
		args = args[1:]
	}

	spec, ok := commands[name]
	if !ok {
		res.Lines = append(res.Lines, "fatal: command not found: "+name)
		return res
	}

	flags, positional := Parse(args, spec.aliases, spec.valueFlags)
	c := &Ctx{
		Context: ctx,
		Session: s,
		Name:    name,
		Flags:   flags,
		Args:    positional,
		res:     res,
	}
	for _, mw := range spec.middleware {
		if err := mw(c); err != nil {
			c.Fatalf("%s", userMessage(err))
			return res
		}
	}
	if err := spec.handler(c); err != nil {
		c.Fatalf("%s", userMessage(err))
	}
	res.ClearScreen = s.cleared
	return res
}

// splitCommandLine tokenises a command line, honouring single and double
// quotes so commit messages with spaces survive.
func splitCommandLine(line string) []string {
	var fields []string
	var cur strings.Builder
	quoted := false
	quote := byte(0)
	flush := func() {
		if cur.Len() > 0 || quoted {
			fields = append(fields, cur.String())
		}
		cur.Reset()
		quoted = false
	}
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			} else {
				cur.WriteByte(ch)
			}
		case ch == '\'' || ch == '"':
			quote = ch
			quoted = true
		case ch == ' ' || ch == '\t':
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	flush()
	return fields
}

// CommandNames returns the registered command names, sorted, for help
// output and completion.
func CommandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
