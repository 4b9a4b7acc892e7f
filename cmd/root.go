package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/splice/internal/config"
	"github.com/zjrosen/splice/internal/log"
	"github.com/zjrosen/splice/internal/presentation"
	"github.com/zjrosen/splice/internal/pubsub"
	"github.com/zjrosen/splice/internal/repo"
	"github.com/zjrosen/splice/internal/tracing"
)

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	jsonFlag  bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:   "splice",
	Short: "Fine-grained git repository editing",
	Long: `splice reads and edits a local git repository: partial staging by hunk or
line, conflict resolution per marker block, a lane-laid-out commit graph, and
merge, rebase, cherry-pick and revert with continue and abort.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/splice/config.yaml)")
	rootCmd.PersistentFlags().StringP("repo", "C", "",
		"path to the repository (default: current directory)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"write a debug log (also enabled by SPLICE_DEBUG)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false,
		"print results as JSON")

	_ = viper.BindPFlag("repo.path", rootCmd.PersistentFlags().Lookup("repo"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("diff.context_lines", defaults.Diff.ContextLines)
	viper.SetDefault("diff.word_diff", defaults.Diff.WordDiff)
	viper.SetDefault("diff.include_untracked", defaults.Diff.IncludeUntracked)
	viper.SetDefault("git.binary", defaults.Git.Binary)
	viper.SetDefault("log.path", defaults.Log.Path)
	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("cache.enabled", defaults.Cache.Enabled)
	viper.SetDefault("cache.ttl", defaults.Cache.TTL)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .splice/config.yaml (current directory)
		// 2. ~/.config/splice/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else if userPath, err := userConfigPath(); err == nil {
			viper.AddConfigPath(filepath.Dir(userPath))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// The default goes to the user config, never the working directory.
			if userPath, err := userConfigPath(); err == nil && config.WriteDefaultConfig(userPath) == nil {
				viper.SetConfigFile(userPath)
				_ = viper.ReadInConfig()
			}
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// localConfigPath is a per-repository override, read when present but never
// created implicitly.
const localConfigPath = ".splice/config.yaml"

// userConfigPath returns ~/.config/splice/config.yaml.
func userConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".config", "splice", "config.yaml"), nil
}

// configPath returns the config file in use, or the user default.
func configPath() string {
	if p := viper.ConfigFileUsed(); p != "" {
		return p
	}
	if p, err := userConfigPath(); err == nil {
		return p
	}
	return localConfigPath
}

// session is what every subcommand runs against.
type session struct {
	repo *repo.Repo
	out  *presentation.Formatter
}

// run opens the repository described by the config, sets up logging and
// tracing, and calls fn. Cleanup failures are logged.
func run(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	debug := debugFlag || os.Getenv("SPLICE_DEBUG") != ""
	if debug {
		logPath := os.Getenv("SPLICE_LOG")
		if logPath == "" {
			logPath = cfg.Log.Path
		}
		cleanup, err := log.Init(logPath)
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		defer cleanup()
		if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
			log.SetMinLevel(level)
		}
		log.Info(log.CatCLI, "splice starting", "command", cmd.CommandPath(), "config", viper.ConfigFileUsed())
	}

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			log.ErrorErr(log.CatTrace, "tracer shutdown failed", err)
		}
	}()

	path := cfg.Repo.Path
	if path == "" {
		path, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}
	}

	r, err := repo.Open(path, repo.Options{
		GitBinary:    cfg.Git.Binary,
		AuthorName:   cfg.Author.Name,
		AuthorEmail:  cfg.Author.Email,
		Tracer:       provider.Tracer(),
		CacheEnabled: cfg.Cache.Enabled,
		CacheTTL:     cfg.Cache.TTL,
		ContextLines: cfg.Diff.ContextLines,
	})
	if err != nil {
		return err
	}
	defer r.Close()

	ctx := cmd.Context()
	var changes *pubsub.Listener[repo.Change]
	if debug {
		changes = pubsub.NewListener(ctx, r.Events())
	}

	err = fn(ctx, &session{
		repo: r,
		out:  presentation.NewFormatter(cmd.OutOrStdout(), jsonFlag),
	})

	if changes != nil {
		for _, ev := range changes.Drain() {
			log.Debug(log.CatCLI, "repository changed",
				"op", ev.Payload.Op, "scope", ev.Payload.Scope, "paths", ev.Payload.Paths, "op_id", ev.Payload.OpID)
		}
	}
	return err
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
