package shell

import (
	"context"
	"fmt"

	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/object"
	"github.com/chazuruo/edugit/internal/ops"
	"github.com/chazuruo/edugit/internal/repo"
)

// Ctx is the per-command context threaded through the middleware chain and
// into the handler. Middleware extends it: requireRepo attaches Repo,
// loadCurrentBranch fills Branch, the state middlewares fill the operation
// heads.
type Ctx struct {
	context.Context

	// Session is the owning terminal.
	Session *Session
	// Name is the resolved command name ("git merge", "ls", ...).
	Name string
	// Flags is the parsed flag set.
	Flags *Flags
	// Args are the positional arguments.
	Args []string

	// Repo is set by requireRepo.
	Repo *repo.Repository
	// Branch is set by loadCurrentBranch; "" when detached.
	Branch string
	// MergeHead / RebaseHead / CherryHead are set by the state middlewares.
	MergeHead  object.Oid
	RebaseHead object.Oid
	CherryHead object.Oid

	res *Result
}

// Println appends one output line.
func (c *Ctx) Println(line string) {
	c.res.Lines = append(c.res.Lines, line)
}

// Printf appends one formatted output line.
func (c *Ctx) Printf(format string, args ...any) {
	c.Println(fmt.Sprintf(format, args...))
}

// Fatalf appends a fatal: line. The command still returns normally; the
// terminal never crashes the host.
func (c *Ctx) Fatalf(format string, args ...any) {
	c.Println("fatal: " + fmt.Sprintf(format, args...))
}

// Errorf appends an error: line.
func (c *Ctx) Errorf(format string, args ...any) {
	c.Println("error: " + fmt.Sprintf(format, args...))
}

// Path resolves a command-line path argument against the session cwd.
func (c *Ctx) Path(arg string) string {
	return resolvePath(c.Session, arg)
}

// RelArg resolves a path argument to a repo-relative path.
func (c *Ctx) RelArg(arg string) (string, error) {
	if arg == "." {
		// "." from inside a subdirectory still means that subdirectory.
		rel, ok := c.Repo.RelPath(c.Session.Cwd())
		if !ok {
			return "", errors.ErrNotARepository
		}
		if rel == "" {
			return ".", nil
		}
		return rel, nil
	}
	rel, ok := c.Repo.RelPath(c.Path(arg))
	if !ok {
		return "", errors.Wrap(errors.ErrInvalidRef, "pathspec outside repository: "+arg)
	}
	return rel, nil
}

// middleware extends the context or aborts the command.
type middleware func(*Ctx) error

// handler runs the command once the chain passed.
type handler func(*Ctx) error

// cmdSpec is one registry row.
type cmdSpec struct {
	middleware []middleware
	// aliases maps short flag letters to long names.
	aliases map[string]string
	// valueFlags marks flags that consume the next argument.
	valueFlags map[string]bool
	handler    handler
}

// commands is the dispatch registry, populated in fs_cmds.go and
// git_cmds.go.
var commands = map[string]*cmdSpec{}

func register(name string, spec *cmdSpec) {
	if spec.aliases == nil {
		spec.aliases = map[string]string{}
	}
	if spec.valueFlags == nil {
		spec.valueFlags = map[string]bool{}
	}
	commands[name] = spec
}

// requireRepo resolves the enclosing repository by walking parents from the
// cwd looking for a git directory.
func requireRepo(c *Ctx) error {
	r, err := repo.Discover(c.Session.FS(), c.Session.Cwd(), c.Session.RepoOptions())
	if err != nil {
		return err
	}
	c.Repo = r
	return nil
}

// loadCurrentBranch populates Branch (empty when detached).
func loadCurrentBranch(c *Ctx) error {
	branch, err := c.Repo.CurrentBranch()
	if err != nil {
		return err
	}
	c.Branch = branch
	return nil
}

// checkMergeState populates MergeHead from the operation files.
func checkMergeState(c *Ctx) error {
	head, err := ops.MergeHead(c.Repo)
	if err != nil {
		return err
	}
	c.MergeHead = head
	return nil
}

// checkRebaseState populates RebaseHead and CherryHead.
func checkRebaseState(c *Ctx) error {
	head, err := ops.RebaseHead(c.Repo)
	if err != nil {
		return err
	}
	c.RebaseHead = head
	cherry, err := ops.CherryPickHead(c.Repo)
	if err != nil {
		return err
	}
	c.CherryHead = cherry
	return nil
}

// userMessage renders an engine error the way the terminal reports it.
func userMessage(err error) string {
	if ce, ok := errors.AsConflictError(err); ok {
		switch ce.Op {
		case errors.OpMerge:
			return "You have not concluded your merge (MERGE_HEAD exists)."
		case errors.OpRebase:
			return "a rebase is in progress; resolve conflicts and run 'git rebase --continue'"
		case errors.OpCherryPick:
			return "a cherry-pick is in progress; resolve conflicts and run 'git cherry-pick --continue'"
		}
	}
	if fe, ok := errors.AsFsError(err); ok {
		return fmt.Sprintf("%s: %s", fe.Path, fe.Kind)
	}
	return err.Error()
}
