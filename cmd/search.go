package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search file contents, commits or paths",
}

var searchContentCmd = &cobra.Command{
	Use:   "content <query>",
	Short: "Search tracked file contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		regex, _ := cmd.Flags().GetBool("regex")
		return run(cmd, func(ctx context.Context, s *session) error {
			matches, err := s.repo.SearchContent(ctx, args[0], regex)
			if err != nil {
				return err
			}
			return s.out.FormatContentMatches(matches)
		})
	},
}

var searchCommitsCmd = &cobra.Command{
	Use:   "commits <query>",
	Short: "Search commit messages, or with --diff the changes themselves",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		byDiff, _ := cmd.Flags().GetBool("diff")
		return run(cmd, func(ctx context.Context, s *session) error {
			matches, err := s.repo.SearchCommits(ctx, args[0], byDiff)
			if err != nil {
				return err
			}
			return s.out.FormatCommitMatches(matches)
		})
	},
}

var searchFilesCmd = &cobra.Command{
	Use:   "files <query>",
	Short: "Fuzzy match tracked paths",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s *session) error {
			paths, err := s.repo.SearchFiles(ctx, args[0])
			if err != nil {
				return err
			}
			return s.out.FormatPaths(paths)
		})
	},
}

func init() {
	searchContentCmd.Flags().Bool("regex", false, "treat the query as an extended regular expression")
	searchCommitsCmd.Flags().Bool("diff", false, "match commits whose changes add or remove the query")

	searchCmd.AddCommand(searchContentCmd, searchCommitsCmd, searchFilesCmd)
	rootCmd.AddCommand(searchCmd)
}
