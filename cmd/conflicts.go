package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Inspect and resolve merge conflicts",
	Long: `Inspect and resolve the conflicts of a merge, rebase, cherry-pick or revert.

A resolution is one of ours, theirs, both or manual. Manual content is read
from --file, where - means stdin.`,
}

var conflictsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List conflicted files and their marker blocks",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			files, err := s.repo.ConflictFiles(ctx)
			if err != nil {
				return err
			}
			return s.out.FormatConflicts(files)
		})
	},
}

var conflictsResolveCmd = &cobra.Command{
	Use:   "resolve <path> <ours|theirs|both|manual>",
	Short: "Resolve a whole file from the index stages and stage it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		res, err := parseResolution(args[1], file)
		if err != nil {
			return err
		}
		return run(cmd, func(ctx context.Context, s *session) error {
			if err := s.repo.ResolveConflict(ctx, args[0], res); err != nil {
				return err
			}
			return s.out.Message("resolved %s with %s", args[0], res.Kind)
		})
	},
}

var conflictsResolveBlockCmd = &cobra.Command{
	Use:   "resolve-block <path> <block> <ours|theirs|both|manual>",
	Short: "Replace one marker block in the working tree",
	Long: `Replace one marker block in the working tree. Block indices come from
"splice conflicts list". The file is staged once no blocks remain.

With --preview nothing is written; the diff against the current file is
printed instead.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		block, err := strconv.Atoi(args[1])
		if err != nil || block < 0 {
			return fmt.Errorf("block %q: want a non-negative index", args[1])
		}
		file, _ := cmd.Flags().GetString("file")
		preview, _ := cmd.Flags().GetBool("preview")
		res, err := parseResolution(args[2], file)
		if err != nil {
			return err
		}
		return run(cmd, func(ctx context.Context, s *session) error {
			if preview {
				fd, err := s.repo.PreviewResolution(ctx, args[0], block, res)
				if err != nil {
					return err
				}
				return s.out.FormatFileDiff(fd)
			}
			if err := s.repo.ResolveConflictBlock(ctx, args[0], block, res); err != nil {
				return err
			}
			return s.out.Message("resolved block %d of %s with %s", block, args[0], res.Kind)
		})
	},
}

var conflictsMarkCmd = &cobra.Command{
	Use:   "mark <path>...",
	Short: "Mark files resolved as they stand in the working tree",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			for _, p := range args {
				if err := s.repo.MarkResolved(ctx, p); err != nil {
					return err
				}
			}
			return s.out.Message("marked %d path(s) resolved", len(args))
		})
	},
}

var conflictsBaseCmd = &cobra.Command{
	Use:   "base <path>",
	Short: "Show the base, ours and theirs versions of a conflicted file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			mb, err := s.repo.MergeBaseContent(ctx, args[0])
			if err != nil {
				return err
			}
			return s.out.FormatMergeBase(mb)
		})
	},
}

func init() {
	conflictsResolveCmd.Flags().String("file", "", "manual content file (- for stdin)")
	conflictsResolveBlockCmd.Flags().String("file", "", "manual content file (- for stdin)")
	conflictsResolveBlockCmd.Flags().Bool("preview", false, "print the resulting diff without writing")

	conflictsCmd.AddCommand(conflictsListCmd, conflictsResolveCmd, conflictsResolveBlockCmd,
		conflictsMarkCmd, conflictsBaseCmd)
	rootCmd.AddCommand(conflictsCmd)
}
