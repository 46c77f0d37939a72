package cli

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/chazuruo/edugit/internal/config"
	"github.com/chazuruo/edugit/internal/remote"
	"github.com/chazuruo/edugit/internal/vfs"
	"github.com/chazuruo/edugit/internal/workspace"
)

// RemotesOptions contains the options for the remotes command family.
type RemotesOptions struct {
	ConfigPath string
}

// NewRemotesCommand creates the remotes command with its subcommands.
func NewRemotesCommand() *cobra.Command {
	opts := &RemotesOptions{}

	cmd := &cobra.Command{
		Use:   "remotes",
		Short: "Inspect and manage loopback remote repositories",
		Long: `Inspect and manage the loopback remote repositories of a workspace.

Remotes live under /.remotes inside the workspace snapshot; merge requests
are stored in each remote's metadata file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemotesList(opts)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file path")

	cmd.AddCommand(newRemotesCreateCommand(opts))
	cmd.AddCommand(newRemotesForkCommand(opts))
	cmd.AddCommand(newRemotesCloneCommand(opts))
	cmd.AddCommand(newMRListCommand(opts))
	cmd.AddCommand(newMRMergeCommand(opts))

	return cmd
}

// openState loads config and workspace for a remotes subcommand.
func openState(opts *RemotesOptions) (*config.Config, *remote.Manager, vfs.FileStore, *workspace.UIState, error) {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	fs, ui, err := loadWorkspace()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return cfg, remote.NewManager(fs, repoOptions(cfg)), fs, ui, nil
}

func runRemotesList(opts *RemotesOptions) error {
	_, mgr, _, _, err := openState(opts)
	if err != nil {
		return err
	}
	names, err := mgr.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No remote repositories.")
		return nil
	}
	tbl := table.New("NAME", "BRANCHES", "OPEN MRS")
	for _, name := range names {
		rem, err := mgr.Open(name)
		if err != nil {
			continue
		}
		branches, err := rem.ListBranches()
		if err != nil {
			return err
		}
		mrs, err := remote.LoadMergeRequests(rem)
		if err != nil {
			return err
		}
		open := 0
		for _, mr := range mrs {
			if mr.Status == remote.MROpen {
				open++
			}
		}
		tbl.AddRow(name, len(branches), open)
	}
	tbl.Print()
	return nil
}

func newRemotesCreateCommand(opts *RemotesOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty remote repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, mgr, fs, ui, err := openState(opts)
			if err != nil {
				return err
			}
			if _, err := mgr.Create(args[0]); err != nil {
				return err
			}
			fmt.Printf("Created remote %s\n", args[0])
			return saveWorkspace(fs, ui, cfg)
		},
	}
}

func newRemotesForkCommand(opts *RemotesOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fork <source> <name>",
		Short: "Fork an existing remote repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, mgr, fs, ui, err := openState(opts)
			if err != nil {
				return err
			}
			if _, err := mgr.Fork(args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Forked %s into %s\n", args[0], args[1])
			return saveWorkspace(fs, ui, cfg)
		},
	}
}

func newRemotesCloneCommand(opts *RemotesOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clone <name> [path]",
		Short: "Clone a remote into a local workspace directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, mgr, fs, ui, err := openState(opts)
			if err != nil {
				return err
			}
			localRoot := "/" + args[0]
			if len(args) > 1 {
				localRoot = args[1]
			}
			if _, err := mgr.CloneToLocal(cmd.Context(), args[0], localRoot); err != nil {
				return err
			}
			fmt.Printf("Cloned %s into %s\n", args[0], localRoot)
			return saveWorkspace(fs, ui, cfg)
		},
	}
}

func newMRListCommand(opts *RemotesOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mrs <remote>",
		Short: "List a remote's merge requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, _, _, err := openState(opts)
			if err != nil {
				return err
			}
			rem, err := mgr.Open(args[0])
			if err != nil {
				return err
			}
			mrs, err := remote.LoadMergeRequests(rem)
			if err != nil {
				return err
			}
			if len(mrs) == 0 {
				fmt.Println("No merge requests.")
				return nil
			}
			tbl := table.New("ID", "TITLE", "STATUS", "BASE", "COMPARE", "RELATION")
			for _, mr := range mrs {
				tbl.AddRow(mr.ID[:8], mr.Title, mr.Status, mr.Base, mr.Compare, mr.MergeRelation)
			}
			tbl.Print()
			return nil
		},
	}
}

func newMRMergeCommand(opts *RemotesOptions) *cobra.Command {
	var deleteBranch bool

	cmd := &cobra.Command{
		Use:   "merge <remote> <mr-id>",
		Short: "Confirm-merge an open merge request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, mgr, fs, ui, err := openState(opts)
			if err != nil {
				return err
			}
			rem, err := mgr.Open(args[0])
			if err != nil {
				return err
			}
			mrs, err := remote.LoadMergeRequests(rem)
			if err != nil {
				return err
			}
			var id string
			for _, mr := range mrs {
				if mr.ID == args[1] || (len(args[1]) >= 4 && len(mr.ID) >= len(args[1]) && mr.ID[:len(args[1])] == args[1]) {
					id = mr.ID
					break
				}
			}
			if id == "" {
				return fmt.Errorf("no merge request %q on %s", args[1], args[0])
			}

			detail, err := remote.OpenMergeRequest(rem, id)
			if err != nil {
				return err
			}
			if !IsNoTUI() {
				confirmed := false
				form := huh.NewForm(huh.NewGroup(
					huh.NewConfirm().
						Title(fmt.Sprintf("Merge %q (%s -> %s)?", detail.Title, detail.Compare, detail.Base)).
						Description(fmt.Sprintf("relation: %s, merge: %s", detail.MergeRelation, detail.MergeStatus)).
						Value(&confirmed),
				))
				if err := form.Run(); err != nil {
					return err
				}
				if !confirmed {
					fmt.Println("Canceled.")
					return nil
				}
			}

			merged, err := remote.ConfirmMerge(rem, id, remote.ConfirmMergeOptions{
				DeleteBranchOnMerge: deleteBranch || cfg.Remote.DeleteBranchOnMerge,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Merged %s into %s\n", merged.Compare, merged.Base)
			return saveWorkspace(fs, ui, cfg)
		},
	}
	cmd.Flags().BoolVar(&deleteBranch, "delete-branch", false, "delete the compare branch after merging")
	return cmd
}
