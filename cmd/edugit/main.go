package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/chazuruo/edugit/internal/cli"
)

// Version is set at build time using ldflags
var Version = "dev"

// Commit is set at build time using ldflags
var Commit = "unknown"

// Date is set at build time using ldflags
var Date = "unknown"

func main() {
	rootCmd := &cobra.Command{
		Use:   "edugit",
		Short: "Browser-style git teaching environment in the terminal",
		Long: `edugit is an educational git environment built on an embedded git engine
over a virtual filesystem: a terminal, an editor gutter, and loopback
remote repositories with a merge-request flow, all in one process.`,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	// Add global flags
	cli.AddGlobalFlags(rootCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Add subcommands
	rootCmd.AddCommand(cli.NewShellCommand())
	rootCmd.AddCommand(cli.NewSeedCommand())
	rootCmd.AddCommand(cli.NewExportCommand())
	rootCmd.AddCommand(cli.NewImportCommand())
	rootCmd.AddCommand(cli.NewRemotesCommand())
	rootCmd.AddCommand(cli.NewVersionCommand(Version, Commit, Date))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
