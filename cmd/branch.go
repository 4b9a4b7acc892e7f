package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/splice/internal/repo"
)

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "List, create, switch, delete and rename branches",
}

var branchListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List local and remote branches",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			branches, err := s.repo.ListBranches(ctx)
			if err != nil {
				return err
			}
			return s.out.FormatBranches(branches)
		})
	},
}

var branchCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a branch at HEAD",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			if err := s.repo.CreateBranch(ctx, args[0]); err != nil {
				return err
			}
			return s.out.Message("created branch %s", args[0])
		})
	},
}

var branchCheckoutCmd = &cobra.Command{
	Use:     "checkout <name>",
	Aliases: []string{"switch"},
	Short:   "Check out a branch",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			if err := s.repo.CheckoutBranch(ctx, args[0]); err != nil {
				return err
			}
			return s.out.Message("switched to %s", args[0])
		})
	},
}

var branchDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a local branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			if err := s.repo.DeleteBranch(ctx, args[0]); err != nil {
				return err
			}
			return s.out.Message("deleted branch %s", args[0])
		})
	},
}

var branchRenameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a local branch",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			if err := s.repo.RenameBranch(ctx, args[0], args[1]); err != nil {
				return err
			}
			return s.out.Message("renamed %s to %s", args[0], args[1])
		})
	},
}

var branchCommitsCmd = &cobra.Command{
	Use:   "commits <name>",
	Short: "List the newest commits reachable from a branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return run(cmd, func(ctx context.Context, s *session) error {
			commits, err := s.repo.BranchCommits(ctx, args[0], limit)
			if err != nil {
				return err
			}
			return s.out.FormatLog(repo.CommitLogResult{Commits: commits}, false)
		})
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge <branch>",
	Short: "Merge a branch into HEAD",
	Long: `Merge a branch into HEAD.

On conflicts the merge stays in progress. Resolve with "splice conflicts",
then run "splice merge continue", or give up with "splice merge abort".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ffOnly, _ := cmd.Flags().GetBool("ff-only")
		noFF, _ := cmd.Flags().GetBool("no-ff")
		if ffOnly && noFF {
			return fmt.Errorf("--ff-only and --no-ff are mutually exclusive")
		}
		option := repo.MergeDefault
		switch {
		case ffOnly:
			option = repo.FastForwardOnly
		case noFF:
			option = repo.NoFastForward
		}
		return run(cmd, func(ctx context.Context, s *session) error {
			res, err := s.repo.MergeBranch(ctx, args[0], option)
			if err != nil {
				return err
			}
			return s.out.FormatMergeResult(res)
		})
	},
}

var mergeContinueCmd = &cobra.Command{
	Use:   "continue",
	Short: "Commit a merge whose conflicts are resolved",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		message, _ := cmd.Flags().GetString("message")
		return run(cmd, func(ctx context.Context, s *session) error {
			res, err := s.repo.ContinueMerge(ctx, message)
			if err != nil {
				return err
			}
			return s.out.FormatStepResult(res, "merge", true, res.OID, nil)
		})
	},
}

var mergeAbortCmd = &cobra.Command{
	Use:   "abort",
	Short: "Abandon the merge in progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			if err := s.repo.AbortMerge(ctx); err != nil {
				return err
			}
			return s.out.Message("merge aborted")
		})
	},
}

func init() {
	branchCommitsCmd.Flags().IntP("limit", "n", 50, "maximum commits to list")
	branchCmd.AddCommand(branchListCmd, branchCreateCmd, branchCheckoutCmd,
		branchDeleteCmd, branchRenameCmd, branchCommitsCmd)

	mergeCmd.Flags().Bool("ff-only", false, "refuse unless the merge fast-forwards")
	mergeCmd.Flags().Bool("no-ff", false, "always create a merge commit")
	mergeContinueCmd.Flags().StringP("message", "m", "", "merge commit message (default: MERGE_MSG)")
	mergeCmd.AddCommand(mergeContinueCmd, mergeAbortCmd)

	rootCmd.AddCommand(branchCmd, mergeCmd)
}
