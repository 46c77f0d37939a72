package shell

import (
	"sort"

	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/ops"
	"github.com/chazuruo/edugit/internal/remote"
)

func sortStrings(s []string) { sort.Strings(s) }

func cmdRemote(c *Ctx) error {
	remotes, err := remote.Remotes(c.Repo)
	if err != nil {
		return err
	}
	if len(c.Args) == 0 {
		names := make([]string, 0, len(remotes))
		for name := range remotes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if c.Flags.Bool("v") {
				c.Printf("%s\t%s (fetch)", name, remotes[name])
				c.Printf("%s\t%s (push)", name, remotes[name])
			} else {
				c.Println(name)
			}
		}
		return nil
	}
	if c.Args[0] != "add" || len(c.Args) != 3 {
		return errors.Wrap(errors.ErrInvalidRef, "usage: git remote [-v] | git remote add <name> <url>")
	}
	if err := remote.AddRemote(c.Repo, c.Args[1], c.Args[2]); err != nil {
		if errors.IsNameExists(err) {
			return errors.Wrap(err, "remote "+c.Args[1]+" already exists")
		}
		return err
	}
	return nil
}

// remoteAndBranch resolves the remote name and branch of a fetch/push/pull
// invocation, defaulting to origin and the current branch.
func remoteAndBranch(c *Ctx) (string, string) {
	remoteName := "origin"
	branch := c.Branch
	if len(c.Args) > 0 {
		remoteName = c.Args[0]
	}
	if len(c.Args) > 1 {
		branch = c.Args[1]
	}
	return remoteName, branch
}

func cmdFetch(c *Ctx) error {
	remoteName := "origin"
	branch := ""
	if len(c.Args) > 0 {
		remoteName = c.Args[0]
	}
	if len(c.Args) > 1 {
		branch = c.Args[1]
	}
	updated, err := c.Session.Remotes().Fetch(c, c.Repo, remoteName, branch)
	if err != nil {
		return err
	}
	for _, b := range updated {
		c.Printf("From %s", remoteName)
		c.Printf(" * branch            %s -> %s/%s", b, remoteName, b)
	}
	return nil
}

func cmdPush(c *Ctx) error {
	remoteName, branch := remoteAndBranch(c)
	if branch == "" {
		return errors.Wrap(errors.ErrInvalidRef, "no branch to push (detached HEAD)")
	}
	force := c.Flags.Bool("f") || c.Flags.Bool("force")
	if err := c.Session.Remotes().Push(c, c.Repo, remoteName, branch, force); err != nil {
		return err
	}
	if c.Flags.Bool("u") || c.Flags.Bool("set-upstream") {
		c.Printf("branch '%s' set up to track '%s/%s'.", branch, remoteName, branch)
	}
	c.Printf("To %s", remoteName)
	c.Printf("   %s -> %s", branch, branch)
	return nil
}

func cmdPull(c *Ctx) error {
	remoteName := "origin"
	if len(c.Args) > 0 {
		remoteName = c.Args[0]
	}
	out, err := c.Session.Remotes().Pull(c, c.Repo, remoteName)
	if err != nil {
		return err
	}
	switch out.Kind {
	case ops.OutcomeUpToDate:
		c.Println("Already up to date.")
	case ops.OutcomeFastForward:
		c.Println("Fast-forward")
	case ops.OutcomeConflict:
		reportConflicts(c, out.Conflicts)
	default:
		c.Printf("Merge made by the 'recursive' strategy.")
	}
	return nil
}

func cmdRevParse(c *Ctx) error {
	if len(c.Args) == 0 {
		return errors.Wrap(errors.ErrInvalidRef, "usage: git rev-parse [--short] <ref>")
	}
	oid, err := c.Repo.ResolveCommitish(c.Args[0])
	if err != nil {
		return err
	}
	if oid == "" {
		return errors.Wrap(errors.ErrInvalidRef, "unknown revision "+c.Args[0])
	}
	if c.Flags.Bool("short") {
		c.Println(oid.Short())
		return nil
	}
	c.Println(string(oid))
	return nil
}

func cmdStash(c *Ctx) error {
	sub := "push"
	if len(c.Args) > 0 {
		sub = c.Args[0]
	}
	switch sub {
	case "push":
		entry, err := ops.StashPush(c.Repo)
		if err != nil {
			if errors.IsDirtyWorkingTree(err) {
				c.Println("No local changes to save")
				return nil
			}
			return err
		}
		c.Printf("Saved working directory and index state %s", entry.Message)
		return nil
	case "pop":
		out, err := ops.StashPop(c.Repo)
		if err != nil {
			if errors.IsNoOperation(err) {
				return errors.Wrap(err, "no stash entries found")
			}
			return err
		}
		if out.Kind == ops.OutcomeConflict {
			for _, f := range out.Conflicts {
				c.Printf("CONFLICT (content): Merge conflict in %s", f)
			}
			return nil
		}
		c.Println("Dropped stash entry")
		return nil
	case "list":
		stack, err := ops.StashList(c.Repo)
		if err != nil {
			return err
		}
		for i, entry := range stack {
			c.Printf("stash@{%d}: %s", i, entry.Message)
		}
		return nil
	default:
		return errors.Wrap(errors.ErrInvalidRef, "usage: git stash [push|pop|list]")
	}
}
