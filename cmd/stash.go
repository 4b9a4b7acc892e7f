package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var stashCmd = &cobra.Command{
	Use:   "stash",
	Short: "Shelve and restore working tree changes",
}

var stashSaveCmd = &cobra.Command{
	Use:   "save [message]",
	Short: "Stash tracked changes and untracked files",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := ""
		if len(args) == 1 {
			message = args[0]
		}
		return run(cmd, func(ctx context.Context, s *session) error {
			if err := s.repo.StashSave(ctx, message); err != nil {
				return err
			}
			return s.out.Message("saved stash@{0}")
		})
	},
}

var stashListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stashes, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			stashes, err := s.repo.StashList(ctx)
			if err != nil {
				return err
			}
			return s.out.FormatStashes(stashes)
		})
	},
}

// newStashIndexCmd builds a subcommand acting on one stash index.
func newStashIndexCmd(use, short, done string, fn func(ctx context.Context, s *session, index int) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [stash@{n}]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseStashIndex(args)
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, s *session) error {
				if err := fn(ctx, s, index); err != nil {
					return err
				}
				if done == "" {
					return nil
				}
				return s.out.Message("%s stash@{%d}", done, index)
			})
		},
	}
}

var (
	stashApplyCmd = newStashIndexCmd("apply", "Apply a stash and keep it", "applied",
		func(ctx context.Context, s *session, index int) error { return s.repo.StashApply(ctx, index) })
	stashPopCmd = newStashIndexCmd("pop", "Apply a stash and drop it", "popped",
		func(ctx context.Context, s *session, index int) error { return s.repo.StashPop(ctx, index) })
	stashDropCmd = newStashIndexCmd("drop", "Delete a stash", "dropped",
		func(ctx context.Context, s *session, index int) error { return s.repo.StashDrop(ctx, index) })
	stashShowCmd = newStashIndexCmd("show", "Show a stash's changes", "",
		func(ctx context.Context, s *session, index int) error {
			files, err := s.repo.StashDiff(ctx, index)
			if err != nil {
				return err
			}
			return s.out.FormatDiff(files)
		})
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "List, create, delete and check out tags",
}

var tagListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tags",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			tags, err := s.repo.ListTags(ctx)
			if err != nil {
				return err
			}
			return s.out.FormatTags(tags)
		})
	},
}

var tagCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Tag HEAD, annotated when -m is given",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")
		return run(cmd, func(ctx context.Context, s *session) error {
			if err := s.repo.CreateTag(ctx, args[0], message); err != nil {
				return err
			}
			return s.out.Message("created tag %s", args[0])
		})
	},
}

var tagDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			if err := s.repo.DeleteTag(ctx, args[0]); err != nil {
				return err
			}
			return s.out.Message("deleted tag %s", args[0])
		})
	},
}

var tagCheckoutCmd = &cobra.Command{
	Use:   "checkout <name>",
	Short: "Check out a tag on a detached HEAD",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			if err := s.repo.CheckoutTag(ctx, args[0]); err != nil {
				return err
			}
			return s.out.Message("HEAD is now at %s", args[0])
		})
	},
}

func init() {
	stashCmd.AddCommand(stashSaveCmd, stashListCmd, stashApplyCmd, stashPopCmd, stashDropCmd, stashShowCmd)

	tagCreateCmd.Flags().StringP("message", "m", "", "annotation message")
	tagCmd.AddCommand(tagListCmd, tagCreateCmd, tagDeleteCmd, tagCheckoutCmd)

	rootCmd.AddCommand(stashCmd, tagCmd)
}
