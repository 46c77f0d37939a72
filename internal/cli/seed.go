package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazuruo/edugit/internal/lesson"
	"github.com/chazuruo/edugit/internal/shell"
)

// SeedOptions contains the options for the seed command.
type SeedOptions struct {
	ConfigPath string
	File       string
}

// NewSeedCommand creates the seed command.
func NewSeedCommand() *cobra.Command {
	opts := &SeedOptions{}

	cmd := &cobra.Command{
		Use:   "seed [scenario]",
		Short: "List scenarios or seed the workspace with one",
		Long: `List the built-in seed scenarios, or apply one to the workspace.

Without arguments the available scenario ids are printed. With a scenario id
(or --file pointing at a YAML scenario) the scenario is applied to the
--workspace snapshot.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file path")
	cmd.Flags().StringVar(&opts.File, "file", "", "YAML scenario file instead of a built-in id")

	return cmd
}

func runSeed(opts *SeedOptions, args []string) error {
	if len(args) == 0 && opts.File == "" {
		for _, id := range lesson.List() {
			sc, err := lesson.Get(id)
			if err != nil {
				return err
			}
			fmt.Printf("%-20s %s\n", id, sc.Title)
		}
		return nil
	}

	var sc *lesson.Scenario
	var err error
	if opts.File != "" {
		data, readErr := os.ReadFile(opts.File)
		if readErr != nil {
			return readErr
		}
		sc, err = lesson.UnmarshalScenario(data)
	} else {
		sc, err = lesson.Get(args[0])
	}
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	fs, ui, err := loadWorkspace()
	if err != nil {
		return err
	}
	session := shell.NewSession(fs, repoOptions(cfg))
	if err := lesson.Apply(context.Background(), session, sc); err != nil {
		return err
	}
	fmt.Printf("Seeded scenario %s\n", sc.ID)
	return saveWorkspace(fs, ui, cfg)
}
