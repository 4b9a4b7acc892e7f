package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/zjrosen/splice/internal/repo"
)

const defaultRemote = "origin"

func remoteArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return defaultRemote
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [remote]",
	Short: "Download objects and refs from a remote",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			res, err := s.repo.Fetch(ctx, remoteArg(args))
			if err != nil {
				return err
			}
			if res.UpToDate {
				return s.out.Message("%s is up to date", res.Remote)
			}
			return s.out.Message("fetched %s (%d refs)", res.Remote, res.RefsAfter)
		})
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull [remote]",
	Short: "Fetch and integrate the current branch's remote counterpart",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rebase, _ := cmd.Flags().GetBool("rebase")
		option := repo.PullMerge
		if rebase {
			option = repo.PullRebase
		}
		return run(cmd, func(ctx context.Context, s *session) error {
			res, err := s.repo.Pull(ctx, remoteArg(args), option)
			if err != nil {
				return err
			}
			return s.out.FormatMergeResult(res)
		})
	},
}

var pushCmd = &cobra.Command{
	Use:   "push [remote]",
	Short: "Push the current branch, setting its upstream when missing",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			res, err := s.repo.Push(ctx, remoteArg(args))
			if err != nil {
				return err
			}
			switch {
			case res.UpToDate:
				return s.out.Message("%s/%s is up to date", res.Remote, res.Branch)
			case res.SetUpstream:
				return s.out.Message("pushed %s to %s and set upstream", res.Branch, res.Remote)
			}
			return s.out.Message("pushed %s to %s", res.Branch, res.Remote)
		})
	},
}

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "List and edit remotes",
}

var remoteListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List remotes with their URLs",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			remotes, err := s.repo.ListRemotes(ctx)
			if err != nil {
				return err
			}
			return s.out.FormatRemotes(remotes)
		})
	},
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add a remote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			if err := s.repo.AddRemote(ctx, args[0], args[1]); err != nil {
				return err
			}
			return s.out.Message("added remote %s", args[0])
		})
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a remote and its tracking refs",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			if err := s.repo.RemoveRemote(ctx, args[0]); err != nil {
				return err
			}
			return s.out.Message("removed remote %s", args[0])
		})
	},
}

var remoteSetURLCmd = &cobra.Command{
	Use:   "set-url <name> <url>",
	Short: "Change a remote's URL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			if err := s.repo.EditRemote(ctx, args[0], args[1]); err != nil {
				return err
			}
			return s.out.Message("%s now points at %s", args[0], args[1])
		})
	},
}

func init() {
	pullCmd.Flags().Bool("rebase", false, "rebase onto the fetched branch instead of merging")

	remoteCmd.AddCommand(remoteListCmd, remoteAddCmd, remoteRemoveCmd, remoteSetURLCmd)
	rootCmd.AddCommand(fetchCmd, pullCmd, pushCmd, remoteCmd)
}
