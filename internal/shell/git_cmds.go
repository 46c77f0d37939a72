package shell

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chazuruo/edugit/internal/diff"
	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/index"
	"github.com/chazuruo/edugit/internal/object"
	"github.com/chazuruo/edugit/internal/ops"
	"github.com/chazuruo/edugit/internal/repo"
	"github.com/chazuruo/edugit/internal/vfs"
)

// repoChain is the default middleware stack for repository commands.
var repoChain = []middleware{requireRepo, loadCurrentBranch, checkMergeState, checkRebaseState}

func init() {
	register("git init", &cmdSpec{handler: cmdInit})
	register("git status", &cmdSpec{middleware: repoChain, handler: cmdStatus})
	register("git add", &cmdSpec{middleware: repoChain, handler: cmdAdd})
	register("git commit", &cmdSpec{
		middleware: repoChain,
		aliases:    map[string]string{"m": "message"},
		valueFlags: map[string]bool{"message": true},
		handler:    cmdCommit,
	})
	register("git branch", &cmdSpec{
		middleware: repoChain,
		valueFlags: map[string]bool{"d": true, "D": true},
		handler:    cmdBranch,
	})
	register("git checkout", &cmdSpec{
		middleware: repoChain,
		aliases:    map[string]string{"b": "branch-new"},
		valueFlags: map[string]bool{"branch-new": true},
		handler:    cmdCheckout,
	})
	register("git switch", &cmdSpec{
		middleware: repoChain,
		aliases:    map[string]string{"c": "branch-new"},
		valueFlags: map[string]bool{"branch-new": true},
		handler:    cmdCheckout,
	})
	register("git restore", &cmdSpec{middleware: repoChain, handler: cmdRestore})
	register("git reset", &cmdSpec{middleware: repoChain, handler: cmdReset})
	register("git rm", &cmdSpec{middleware: repoChain, handler: cmdGitRm})
	register("git mv", &cmdSpec{middleware: repoChain, handler: cmdGitMv})
	register("git diff", &cmdSpec{middleware: repoChain, handler: cmdDiff})
	register("git log", &cmdSpec{
		middleware: repoChain,
		valueFlags: map[string]bool{"n": true},
		handler:    cmdLog,
	})
	register("git merge", &cmdSpec{middleware: repoChain, handler: cmdMerge})
	register("git rebase", &cmdSpec{middleware: repoChain, handler: cmdRebase})
	register("git cherry-pick", &cmdSpec{middleware: repoChain, handler: cmdCherryPick})
	register("git remote", &cmdSpec{middleware: repoChain, handler: cmdRemote})
	register("git fetch", &cmdSpec{middleware: repoChain, handler: cmdFetch})
	register("git push", &cmdSpec{middleware: repoChain, handler: cmdPush})
	register("git pull", &cmdSpec{middleware: repoChain, handler: cmdPull})
	register("git rev-parse", &cmdSpec{middleware: repoChain, handler: cmdRevParse})
	register("git stash", &cmdSpec{middleware: repoChain, handler: cmdStash})
}

func cmdInit(c *Ctx) error {
	root := c.Session.Cwd()
	if _, err := repo.Init(c.Session.FS(), root, c.Session.RepoOptions()); err != nil {
		if errors.IsNameExists(err) {
			c.Printf("Reinitialized existing Git repository in %s", vfs.Join(root, repo.GitDirName))
			return nil
		}
		return err
	}
	c.Printf("Initialized empty Git repository in %s", vfs.Join(root, repo.GitDirName))
	return nil
}

func cmdStatus(c *Ctx) error {
	if c.Branch != "" {
		c.Printf("On branch %s", c.Branch)
	} else {
		head, err := c.Repo.ResolveRef("HEAD")
		if err != nil {
			return err
		}
		c.Printf("HEAD detached at %s", head.Short())
	}
	if c.MergeHead != "" {
		c.Println("You have unmerged paths.")
		c.Println("  (fix conflicts and run \"git commit\")")
	}
	if c.RebaseHead != "" {
		c.Println("You are currently rebasing.")
		c.Println("  (fix conflicts and then run \"git rebase --continue\")")
	}
	if c.CherryHead != "" {
		c.Println("You are currently cherry-picking.")
		c.Println("  (fix conflicts and run \"git cherry-pick --continue\")")
	}

	s, err := index.Status(c.Repo)
	if err != nil {
		return err
	}
	if s.Clean() {
		c.Println("nothing to commit, working tree clean")
		return nil
	}

	if len(s.Conflicted) > 0 {
		c.Println("Unmerged paths:")
		for _, p := range s.Conflicted {
			c.Printf("        both modified:   %s", p)
		}
	}
	if len(s.StagedNew)+len(s.StagedModified)+len(s.StagedDeleted) > 0 {
		c.Println("Changes to be committed:")
		for _, p := range s.StagedNew {
			c.Printf("        new file:   %s", p)
		}
		for _, p := range s.StagedModified {
			c.Printf("        modified:   %s", p)
		}
		for _, p := range s.StagedDeleted {
			c.Printf("        deleted:    %s", p)
		}
	}
	if len(s.Modified)+len(s.Deleted) > 0 {
		c.Println("Changes not staged for commit:")
		for _, p := range s.Modified {
			c.Printf("        modified:   %s", p)
		}
		for _, p := range s.Deleted {
			c.Printf("        deleted:    %s", p)
		}
	}
	if len(s.Untracked) > 0 {
		c.Println("Untracked files:")
		for _, p := range s.Untracked {
			c.Printf("        %s", p)
		}
	}
	return nil
}

func cmdAdd(c *Ctx) error {
	if len(c.Args) == 0 {
		return errors.Wrap(errors.ErrInvalidRef, "nothing specified, nothing added")
	}
	idx, err := index.Load(c.Repo)
	if err != nil {
		return err
	}
	for _, arg := range c.Args {
		rel, err := c.RelArg(arg)
		if err != nil {
			return err
		}
		if err := index.Add(c.Repo, idx, rel); err != nil {
			return err
		}
	}
	return idx.Save(c.Repo)
}

func cmdCommit(c *Ctx) error {
	message := c.Flags.Value("message")
	if message == "" && c.MergeHead == "" {
		return errors.Wrap(errors.ErrInvalidRef, "empty commit message (use -m)")
	}
	out, err := ops.Commit(c.Repo, message)
	if err != nil {
		return err
	}
	if out.Kind == ops.OutcomeUpToDate {
		c.Println("nothing to commit, working tree clean")
		return nil
	}
	label := c.Branch
	if label == "" {
		label = "detached HEAD"
	}
	c.Printf("[%s %s] %s", label, out.Commit.Short(), out.Message)
	return nil
}

func cmdBranch(c *Ctx) error {
	switch {
	case c.Flags.Bool("d") || c.Flags.Bool("D"):
		name := c.Flags.Value("d")
		force := false
		if c.Flags.Bool("D") {
			name = c.Flags.Value("D")
			force = true
		}
		if name == "" {
			return errors.Wrap(errors.ErrInvalidRef, "branch name required")
		}
		if name == c.Branch {
			return errors.Wrap(errors.ErrInvalidRef,
				fmt.Sprintf("cannot delete branch '%s' checked out", name))
		}
		tip, err := c.Repo.ReadRef(repo.BranchRef(name))
		if err != nil {
			return errors.Wrap(errors.ErrInvalidRef, "branch '"+name+"' not found")
		}
		if !force {
			head, err := c.Repo.ResolveRef("HEAD")
			if err != nil {
				return err
			}
			merged, err := c.Repo.IsDescendent(head, tip)
			if err != nil {
				return err
			}
			if !merged {
				c.Errorf("the branch '%s' is not fully merged", name)
				return nil
			}
		}
		if err := c.Repo.DeleteRef(repo.BranchRef(name)); err != nil {
			return err
		}
		c.Printf("Deleted branch %s (was %s).", name, tip.Short())
		return nil

	case len(c.Args) == 0:
		if c.Flags.Bool("r") || c.Flags.Bool("a") {
			if !c.Flags.Bool("r") {
				if err := printLocalBranches(c); err != nil {
					return err
				}
			}
			remotes, err := c.Repo.ListRemotes()
			if err != nil {
				return err
			}
			for _, rem := range remotes {
				branches, err := c.Repo.ListRemoteBranches(rem)
				if err != nil {
					return err
				}
				for _, b := range branches {
					c.Printf("  remotes/%s/%s", rem, b)
				}
			}
			return nil
		}
		return printLocalBranches(c)

	default:
		head, err := c.Repo.ResolveRef("HEAD")
		if err != nil {
			return err
		}
		if head == "" {
			return errors.Wrap(errors.ErrInvalidRef, "not a valid object name: 'HEAD'")
		}
		return c.Repo.CreateBranch(c.Args[0], head)
	}
}

func printLocalBranches(c *Ctx) error {
	branches, err := c.Repo.ListBranches()
	if err != nil {
		return err
	}
	for _, b := range branches {
		if b == c.Branch {
			c.Printf("* %s", b)
		} else {
			c.Printf("  %s", b)
		}
	}
	return nil
}

func cmdCheckout(c *Ctx) error {
	if newBranch := c.Flags.Value("branch-new"); newBranch != "" {
		head, err := c.Repo.ResolveRef("HEAD")
		if err != nil {
			return err
		}
		start := head
		if len(c.Args) > 0 {
			start, err = c.Repo.ResolveCommitish(c.Args[0])
			if err != nil {
				return err
			}
		}
		if err := c.Repo.CreateBranch(newBranch, start); err != nil {
			return err
		}
		if err := index.Checkout(c.Repo, index.CheckoutOptions{Ref: newBranch}); err != nil {
			return err
		}
		c.Printf("Switched to a new branch '%s'", newBranch)
		return nil
	}

	if len(c.Args) == 0 {
		return errors.Wrap(errors.ErrInvalidRef, "missing branch or pathspec")
	}

	// `checkout -- <paths>` and `checkout <path>` restore files; a branch or
	// revision switches.
	target := c.Args[0]
	if c.Flags.DashDash || !isRevision(c.Repo, target) {
		var rels []string
		for _, arg := range c.Args {
			rel, err := c.RelArg(arg)
			if err != nil {
				return err
			}
			rels = append(rels, rel)
		}
		return index.Checkout(c.Repo, index.CheckoutOptions{Ref: "HEAD", Filepaths: rels})
	}

	if err := index.Checkout(c.Repo, index.CheckoutOptions{
		Ref:   target,
		Force: c.Flags.Bool("force") || c.Flags.Bool("f"),
	}); err != nil {
		if errors.IsDirtyWorkingTree(err) {
			c.Errorf("Your local changes to the following files would be overwritten by checkout.")
			c.Println("Please commit your changes or stash them before you switch branches.")
			return nil
		}
		return err
	}
	if c.Repo.BranchExists(target) {
		c.Printf("Switched to branch '%s'", target)
	} else {
		oid, err := c.Repo.ResolveCommitish(target)
		if err != nil {
			return err
		}
		c.Printf("Note: switching to '%s'.", target)
		c.Printf("HEAD is now at %s", oid.Short())
	}
	return nil
}

// isRevision reports whether arg resolves to a commit, making the checkout a
// switch rather than a file restore.
func isRevision(r *repo.Repository, arg string) bool {
	oid, err := r.ResolveCommitish(arg)
	return err == nil && oid != ""
}

func cmdRestore(c *Ctx) error {
	if len(c.Args) == 0 {
		return errors.Wrap(errors.ErrInvalidRef, "you must specify path(s) to restore")
	}
	idx, err := index.Load(c.Repo)
	if err != nil {
		return err
	}
	for _, arg := range c.Args {
		rel, err := c.RelArg(arg)
		if err != nil {
			return err
		}
		if c.Flags.Bool("staged") {
			if err := index.ResetPath(c.Repo, idx, rel); err != nil {
				return err
			}
			continue
		}
		// Restore the working tree from the index.
		e, ok := idx.Get(rel)
		if !ok {
			return errors.Wrap(errors.ErrInvalidRef, "pathspec '"+arg+"' did not match any file(s)")
		}
		data, err := c.Repo.ReadBlob(e.Oid)
		if err != nil {
			return err
		}
		if err := c.Session.FS().WriteFile(c.Repo.WorkPath(rel), data); err != nil {
			return err
		}
	}
	return idx.Save(c.Repo)
}

func cmdReset(c *Ctx) error {
	if c.Flags.Bool("hard") {
		target := "HEAD"
		if len(c.Args) > 0 {
			target = c.Args[0]
		}
		oid, err := c.Repo.ResolveCommitish(target)
		if err != nil {
			return err
		}
		if err := index.Checkout(c.Repo, index.CheckoutOptions{
			Ref: string(oid), Force: true, NoUpdateHead: true,
		}); err != nil {
			return err
		}
		if c.Branch != "" {
			if err := c.Repo.WriteRef(repo.BranchRef(c.Branch), oid, true); err != nil {
				return err
			}
		} else if err := c.Repo.DetachHead(oid); err != nil {
			return err
		}
		c.Printf("HEAD is now at %s", oid.Short())
		return nil
	}

	// `git reset [HEAD] <paths>`: unstage.
	args := c.Args
	if len(args) > 0 && args[0] == "HEAD" {
		args = args[1:]
	}
	if len(args) == 0 {
		return errors.Wrap(errors.ErrInvalidRef, "usage: git reset [--hard <ref>|HEAD <path>]")
	}
	idx, err := index.Load(c.Repo)
	if err != nil {
		return err
	}
	for _, arg := range args {
		rel, err := c.RelArg(arg)
		if err != nil {
			return err
		}
		if err := index.ResetPath(c.Repo, idx, rel); err != nil {
			return err
		}
	}
	return idx.Save(c.Repo)
}

func cmdGitRm(c *Ctx) error {
	if len(c.Args) == 0 {
		return errors.Wrap(errors.ErrInvalidRef, "usage: git rm <path>")
	}
	idx, err := index.Load(c.Repo)
	if err != nil {
		return err
	}
	for _, arg := range c.Args {
		rel, err := c.RelArg(arg)
		if err != nil {
			return err
		}
		if err := index.Remove(c.Repo, idx, rel); err != nil {
			return err
		}
		c.Printf("rm '%s'", rel)
	}
	return idx.Save(c.Repo)
}

func cmdGitMv(c *Ctx) error {
	if len(c.Args) != 2 {
		return errors.Wrap(errors.ErrInvalidRef, "usage: git mv <from> <to>")
	}
	fromRel, err := c.RelArg(c.Args[0])
	if err != nil {
		return err
	}
	toRel, err := c.RelArg(c.Args[1])
	if err != nil {
		return err
	}
	idx, err := index.Load(c.Repo)
	if err != nil {
		return err
	}
	e, ok := idx.Get(fromRel)
	if !ok {
		return errors.Wrap(errors.ErrInvalidRef, "not under version control: "+fromRel)
	}
	if err := c.Session.FS().Rename(c.Repo.WorkPath(fromRel), c.Repo.WorkPath(toRel)); err != nil {
		return err
	}
	idx.Remove(fromRel)
	idx.Set(toRel, e.Oid)
	return idx.Save(c.Repo)
}

func cmdDiff(c *Ctx) error {
	staged := c.Flags.Bool("staged") || c.Flags.Bool("cached")

	var filter map[string]bool
	if len(c.Args) > 0 {
		filter = map[string]bool{}
		for _, arg := range c.Args {
			rel, err := c.RelArg(arg)
			if err != nil {
				return err
			}
			filter[rel] = true
		}
	}

	idx, err := index.Load(c.Repo)
	if err != nil {
		return err
	}
	head, err := c.Repo.ResolveRef("HEAD")
	if err != nil {
		return err
	}
	headBlobs, err := c.Repo.CommitBlobIndex(head)
	if err != nil {
		return err
	}

	blobText := func(oid object.Oid) (string, error) {
		if oid == "" {
			return "", nil
		}
		data, err := c.Repo.ReadBlob(oid)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	emit := func(path, oldText, newText string) {
		if oldText == newText {
			return
		}
		for _, line := range strings.Split(strings.TrimSuffix(diff.Unified(path, oldText, newText), "\n"), "\n") {
			c.Println(line)
		}
	}

	if staged {
		// Index against HEAD.
		paths := map[string]bool{}
		for p := range headBlobs {
			paths[p] = true
		}
		for _, p := range idx.Paths() {
			paths[p] = true
		}
		for _, path := range sortedKeys(paths) {
			if filter != nil && !filter[path] {
				continue
			}
			oldText, err := blobText(headBlobs[path])
			if err != nil {
				return err
			}
			var newText string
			if e, ok := idx.Get(path); ok {
				newText, err = blobText(e.Oid)
				if err != nil {
					return err
				}
			}
			emit(path, oldText, newText)
		}
		return nil
	}

	// Working tree against the index.
	for _, path := range idx.Paths() {
		if filter != nil && !filter[path] {
			continue
		}
		var oldText string
		if e, ok := idx.Get(path); ok {
			oldText, err = blobText(e.Oid)
			if err != nil {
				return err
			}
		} else {
			// Conflicted path: diff against the ours stage.
			for _, e := range idx.Stages(path) {
				if e.Stage == index.StageOurs {
					oldText, err = blobText(e.Oid)
					if err != nil {
						return err
					}
				}
			}
		}
		var newText string
		if data, err := c.Session.FS().ReadFile(c.Repo.WorkPath(path)); err == nil {
			newText = string(data)
		}
		emit(path, oldText, newText)
	}
	return nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sortStrings(out)
	return out
}

func cmdLog(c *Ctx) error {
	ref := "HEAD"
	if len(c.Args) > 0 {
		ref = c.Args[0]
	}
	tip, err := c.Repo.ResolveCommitish(ref)
	if err != nil {
		return err
	}
	if tip == "" {
		return errors.Wrap(errors.ErrInvalidRef,
			"your current branch does not have any commits yet")
	}
	entries, err := c.Repo.Log(tip)
	if err != nil {
		return err
	}
	limit := len(entries)
	if n := c.Flags.Value("n"); n != "" {
		if parsed, err := strconv.Atoi(n); err == nil && parsed < limit {
			limit = parsed
		}
	}
	for _, e := range entries[:limit] {
		if c.Flags.Bool("oneline") {
			c.Println(repo.Describe(e.Oid, e.Commit))
			continue
		}
		c.Printf("commit %s", e.Oid)
		c.Printf("Author: %s <%s>", e.Commit.Author.Name, e.Commit.Author.Email)
		c.Printf("Date:   %s", time.Unix(e.Commit.Author.When, 0).UTC().Format("Mon Jan 2 15:04:05 2006 +0000"))
		c.Println("")
		for _, line := range strings.Split(e.Commit.Message, "\n") {
			c.Println("    " + line)
		}
		c.Println("")
	}
	return nil
}

func reportConflicts(c *Ctx, conflicts []string) {
	for _, f := range conflicts {
		c.Printf("CONFLICT (content): Merge conflict in %s", f)
	}
	c.Println("Automatic merge failed; fix conflicts and commit the result.")
}

func cmdMerge(c *Ctx) error {
	if c.Flags.Bool("abort") {
		if err := ops.MergeAbort(c.Repo); err != nil {
			if errors.IsNoOperation(err) {
				return errors.Wrap(err, "there is no merge to abort")
			}
			return err
		}
		return nil
	}
	if len(c.Args) == 0 {
		return errors.Wrap(errors.ErrInvalidRef, "usage: git merge <ref> | --abort")
	}
	out, err := ops.Merge(c.Repo, c.Args[0])
	if err != nil {
		return err
	}
	switch out.Kind {
	case ops.OutcomeUpToDate:
		c.Println("Already up to date.")
	case ops.OutcomeFastForward:
		c.Println("Fast-forward")
		c.Printf("HEAD is now at %s", out.Commit.Short())
	case ops.OutcomeConflict:
		reportConflicts(c, out.Conflicts)
	default:
		c.Printf("Merge made by the 'recursive' strategy.")
	}
	return nil
}

func cmdRebase(c *Ctx) error {
	switch {
	case c.Flags.Bool("continue"):
		out, err := ops.RebaseContinue(c, c.Repo)
		if err != nil {
			return err
		}
		return reportRebase(c, out)
	case c.Flags.Bool("abort"):
		return ops.RebaseAbort(c.Repo)
	case len(c.Args) == 0:
		return errors.Wrap(errors.ErrInvalidRef, "usage: git rebase <upstream> | --continue | --abort")
	default:
		out, err := ops.Rebase(c, c.Repo, c.Args[0])
		if err != nil {
			return err
		}
		return reportRebase(c, out)
	}
}

func reportRebase(c *Ctx, out *ops.Outcome) error {
	switch out.Kind {
	case ops.OutcomeUpToDate:
		c.Println("Current branch is up to date.")
	case ops.OutcomeConflict:
		for _, f := range out.Conflicts {
			c.Printf("CONFLICT (content): Merge conflict in %s", f)
		}
		c.Println("Resolve all conflicts manually, mark them as resolved with \"git add\",")
		c.Println("then run \"git rebase --continue\".")
	default:
		c.Println("Successfully rebased and updated HEAD.")
	}
	return nil
}

func cmdCherryPick(c *Ctx) error {
	switch {
	case c.Flags.Bool("continue"):
		out, err := ops.CherryPickContinue(c.Repo)
		if err != nil {
			return err
		}
		c.Printf("[%s %s] %s", labelOr(c.Branch, "detached HEAD"), out.Commit.Short(), out.Message)
		return nil
	case c.Flags.Bool("abort"):
		return ops.CherryPickAbort(c.Repo)
	case len(c.Args) == 0:
		return errors.Wrap(errors.ErrInvalidRef, "usage: git cherry-pick <ref> | --continue | --abort")
	default:
		out, err := ops.CherryPick(c.Repo, c.Args[0])
		if err != nil {
			return err
		}
		if out.Kind == ops.OutcomeConflict {
			for _, f := range out.Conflicts {
				c.Printf("CONFLICT (content): Merge conflict in %s", f)
			}
			c.Println("error: could not apply the commit")
			c.Println("hint: After resolving the conflicts, mark them with \"git add\" and run \"git cherry-pick --continue\".")
			return nil
		}
		c.Printf("[%s %s] %s", labelOr(c.Branch, "detached HEAD"), out.Commit.Short(), out.Message)
		return nil
	}
}

func labelOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
