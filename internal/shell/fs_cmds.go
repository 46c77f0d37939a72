package shell

import (
	"sort"
	"strings"

	"github.com/chazuruo/edugit/internal/errors"
	"github.com/chazuruo/edugit/internal/repo"
	"github.com/chazuruo/edugit/internal/vfs"
)

// resolvePath interprets a path argument against the session cwd.
func resolvePath(s *Session, arg string) string {
	return vfs.Resolve(s.Cwd(), arg)
}

// setCwd moves the session's working directory.
func (s *Session) setCwd(path string) {
	s.mu.Lock()
	s.cwd = path
	s.mu.Unlock()
}

func init() {
	register("help", &cmdSpec{handler: cmdHelp})
	register("pwd", &cmdSpec{handler: func(c *Ctx) error {
		c.Println(c.Session.Cwd())
		return nil
	}})
	register("clear", &cmdSpec{handler: func(c *Ctx) error {
		c.Session.cleared = true
		return nil
	}})
	register("ls", &cmdSpec{handler: cmdLs})
	register("cd", &cmdSpec{handler: cmdCd})
	register("cat", &cmdSpec{handler: cmdCat})
	register("touch", &cmdSpec{handler: cmdTouch})
	register("echo", &cmdSpec{handler: cmdEcho})
	register("mkdir", &cmdSpec{handler: cmdMkdir})
	register("rm", &cmdSpec{handler: cmdRm})
	register("rmdir", &cmdSpec{handler: cmdRmdir})
	register("mv", &cmdSpec{handler: cmdMv})
}

func cmdHelp(c *Ctx) error {
	c.Println("available commands:")
	for _, name := range CommandNames() {
		c.Println("  " + name)
	}
	return nil
}

func cmdLs(c *Ctx) error {
	target := c.Session.Cwd()
	if len(c.Args) > 0 {
		target = c.Path(c.Args[0])
	}
	info, err := c.Session.FS().Stat(target)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		c.Println(vfs.Base(target))
		return nil
	}
	names, err := c.Session.FS().ReadDir(target)
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		if !c.Flags.Bool("a") && strings.HasPrefix(name, ".") {
			continue
		}
		if vfs.IsDir(c.Session.FS(), vfs.Join(target, name)) {
			name += "/"
		}
		c.Println(name)
	}
	return nil
}

func cmdCd(c *Ctx) error {
	target := "/"
	if len(c.Args) > 0 {
		target = c.Path(c.Args[0])
	}
	info, err := c.Session.FS().Stat(target)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &errors.FsError{Kind: errors.FsNotADirectory, Path: target}
	}
	c.Session.setCwd(target)
	return nil
}

func cmdCat(c *Ctx) error {
	if len(c.Args) == 0 {
		return errors.Wrap(errors.ErrInvalidRef, "usage: cat <file>")
	}
	data, err := c.Session.FS().ReadFile(c.Path(c.Args[0]))
	if err != nil {
		return err
	}
	for _, line := range strings.Split(strings.TrimSuffix(string(data), "\n"), "\n") {
		c.Println(line)
	}
	return nil
}

func cmdTouch(c *Ctx) error {
	if len(c.Args) == 0 {
		return errors.Wrap(errors.ErrInvalidRef, "usage: touch <file>")
	}
	for _, arg := range c.Args {
		path := c.Path(arg)
		if vfs.Exists(c.Session.FS(), path) {
			continue
		}
		if err := c.Session.FS().WriteFile(path, nil); err != nil {
			return err
		}
	}
	return nil
}

// cmdEcho supports the classic `echo text > file` teaching idiom, plus plain
// echoing.
func cmdEcho(c *Ctx) error {
	args := c.Args
	var target string
	appendMode := false
	for i, arg := range args {
		if arg == ">" || arg == ">>" {
			if i+1 >= len(args) {
				return errors.Wrap(errors.ErrInvalidRef, "missing redirect target")
			}
			appendMode = arg == ">>"
			target = c.Path(args[i+1])
			args = args[:i]
			break
		}
	}
	text := strings.Join(args, " ")
	if target == "" {
		c.Println(text)
		return nil
	}
	content := text + "\n"
	if appendMode {
		if old, err := c.Session.FS().ReadFile(target); err == nil {
			content = string(old) + content
		}
	}
	return c.Session.FS().WriteFile(target, []byte(content))
}

func cmdMkdir(c *Ctx) error {
	if len(c.Args) == 0 {
		return errors.Wrap(errors.ErrInvalidRef, "usage: mkdir <path>")
	}
	for _, arg := range c.Args {
		if err := c.Session.FS().Mkdir(c.Path(arg)); err != nil {
			return err
		}
	}
	return nil
}

func cmdRm(c *Ctx) error {
	if len(c.Args) == 0 {
		return errors.Wrap(errors.ErrInvalidRef, "usage: rm [-r] <path>")
	}
	for _, arg := range c.Args {
		path := c.Path(arg)
		if insideRepoControl(path) {
			return errors.Wrap(errors.ErrInvalidRef, "refusing to remove "+path)
		}
		info, err := c.Session.FS().Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			if !c.Flags.Bool("r") {
				return &errors.FsError{Kind: errors.FsNotADirectory, Path: path}
			}
			if err := vfs.RemoveAll(c.Session.FS(), path); err != nil {
				return err
			}
			continue
		}
		if err := c.Session.FS().Unlink(path); err != nil {
			return err
		}
	}
	return nil
}

func cmdRmdir(c *Ctx) error {
	if len(c.Args) == 0 {
		return errors.Wrap(errors.ErrInvalidRef, "usage: rmdir <path>")
	}
	for _, arg := range c.Args {
		if err := c.Session.FS().Rmdir(c.Path(arg)); err != nil {
			return err
		}
	}
	return nil
}

func cmdMv(c *Ctx) error {
	if len(c.Args) != 2 {
		return errors.Wrap(errors.ErrInvalidRef, "usage: mv <from> <to>")
	}
	from := c.Path(c.Args[0])
	to := c.Path(c.Args[1])
	// Moving into an existing directory keeps the base name.
	if vfs.IsDir(c.Session.FS(), to) {
		to = vfs.Join(to, vfs.Base(from))
	}
	return c.Session.FS().Rename(from, to)
}

// insideRepoControl guards against touching the control directories from
// the terminal file commands.
func insideRepoControl(path string) bool {
	for _, part := range strings.Split(strings.TrimPrefix(path, "/"), "/") {
		if repo.ControlNames[part] {
			return true
		}
	}
	return false
}
