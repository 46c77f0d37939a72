package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazuruo/edugit/internal/config"
	"github.com/chazuruo/edugit/internal/lesson"
	"github.com/chazuruo/edugit/internal/shell"
	"github.com/chazuruo/edugit/internal/tui"
)

// ShellOptions contains the options for the shell command.
type ShellOptions struct {
	ConfigPath string
	Seed       string
}

// NewShellCommand creates the shell command: the interactive teaching
// terminal.
func NewShellCommand() *cobra.Command {
	opts := &ShellOptions{}

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Open the educational git terminal",
		Long: `Open the educational git terminal on an in-memory workspace.

With --workspace the workspace is imported from (and saved back to) a
snapshot file. With --seed the named built-in scenario is applied first.

Use --no-tui for a plain line-based terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file path")
	cmd.Flags().StringVar(&opts.Seed, "seed", "", "built-in scenario to seed the workspace with")

	return cmd
}

func runShell(opts *ShellOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	fs, ui, err := loadWorkspace()
	if err != nil {
		return err
	}

	session := shell.NewSession(fs, repoOptions(cfg))
	if opts.Seed != "" {
		sc, err := lesson.Get(opts.Seed)
		if err != nil {
			return err
		}
		if err := lesson.Apply(context.Background(), session, sc); err != nil {
			return fmt.Errorf("seed %s: %w", opts.Seed, err)
		}
	}

	if IsNoTUI() {
		if err := runPlainShell(session, cfg); err != nil {
			return err
		}
	} else if err := tui.RunWorkspace(session, cfg, ui); err != nil {
		return err
	}
	return saveWorkspace(fs, ui, cfg)
}

// runPlainShell is the line-based fallback terminal.
func runPlainShell(session *shell.Session, cfg *config.Config) error {
	scanner := bufio.NewScanner(os.Stdin)
	prompt := cfg.Terminal.Prompt + " "
	for {
		fmt.Print(session.Cwd() + " " + prompt)
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			return nil
		}
		res := session.Run(context.Background(), line)
		if res.ClearScreen {
			fmt.Print("\033[2J\033[H")
			continue
		}
		for _, out := range res.Lines {
			fmt.Println(out)
		}
	}
}

// loadConfig loads the named config file, or the detected/default one.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadWithDefaults()
}
