package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazuruo/edugit/internal/workspace"
)

// ExportOptions contains the options for the export command.
type ExportOptions struct {
	ConfigPath string
	Out        string
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the workspace as a snapshot file",
		Long: `Export the --workspace snapshot to another file.

The snapshot is the full JSON workspace format: every file and directory,
the UI state, and the merge-request records of every loopback remote.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file path")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "workspace.json", "output file")

	return cmd
}

func runExport(opts *ExportOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	fs, ui, err := loadWorkspace()
	if err != nil {
		return err
	}
	data, err := workspace.Export(fs, *ui, repoOptions(cfg))
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.Out, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("Exported workspace to %s\n", opts.Out)
	return nil
}

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "import <snapshot>",
		Short: "Import a snapshot file into the workspace",
		Long: `Import a snapshot file, replacing the --workspace contents entirely.

The target workspace is cleared first; every entry of the snapshot is then
recreated.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(configPath, args[0])
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "config file path")

	return cmd
}

func runImport(configPath, source string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	fs, _, err := loadWorkspace()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return err
	}
	ui, err := workspace.Import(fs, data)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %s\n", source)
	return saveWorkspace(fs, ui, cfg)
}
