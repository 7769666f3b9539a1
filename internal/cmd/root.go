package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Digital-Shane/episode-renamer/internal/config"
	"github.com/Digital-Shane/episode-renamer/internal/core"
	"github.com/Digital-Shane/episode-renamer/internal/log"
	"github.com/Digital-Shane/episode-renamer/internal/media"
	"github.com/Digital-Shane/episode-renamer/internal/provider"
	"github.com/Digital-Shane/episode-renamer/internal/provider/setup"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// renameFlags holds the flags of the root command.
type renameFlags struct {
	configPath string
	instant    bool
	dryRun     bool
	query      string
	catalog    string
	languages  []string
	language   string
	showTitle  bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	var flags renameFlags

	rootCmd := &cobra.Command{
		Use:   "episode-renamer <show-dir> | <season-dir>...",
		Short: "Rename TV episode files using catalog metadata",
		Long: `episode-renamer renames the video files of a TV show to SxxEyy - Title,
using episode titles from TMDB, TheTVDB or OMDb in any of the enabled languages.

Pass a show directory containing "Season N" subdirectories, or one or more
season directories directly. The directory name seeds the show search.

The interactive mode previews every new name before renaming; --instant
picks the best matching show and renames without asking.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRename(cmd, args, flags)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Configuration file path (default ~/.episode-renamer/config.json)")

	f := rootCmd.Flags()
	f.BoolVarP(&flags.instant, "instant", "i", false, "Rename using the best matching show without the interactive preview")
	f.BoolVarP(&flags.dryRun, "dry-run", "n", false, "With --instant, print the planned names without renaming")
	f.StringVarP(&flags.query, "query", "q", "", "Show search query (default: the show directory name)")
	f.StringVar(&flags.catalog, "catalog", "", "Metadata catalog: tmdb, tvdb or omdb")
	f.StringSliceVar(&flags.languages, "languages", nil, "Enabled languages, e.g. en,de")
	f.StringVarP(&flags.language, "lang", "l", "", "Language new names are composed in")
	f.BoolVarP(&flags.showTitle, "title", "t", false, "Prefix new names with the show title")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "Also write diagnostics to stderr (instant mode)")

	rootCmd.AddCommand(newConfigCmd(&flags.configPath))
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newUndoCmd(&flags.configPath))

	return rootCmd
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file at path, or the default one.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path == "" {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFrom(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// applyFlags overrides config values with the flags given on the command
// line and validates the result.
func applyFlags(cmd *cobra.Command, cfg *config.Config, flags renameFlags) error {
	fs := cmd.Flags()
	if fs.Changed("catalog") {
		cfg.Catalog = flags.catalog
	}
	if fs.Changed("languages") {
		cfg.Languages = flags.languages
	}
	if fs.Changed("lang") {
		cfg.Language = flags.language
	}
	if fs.Changed("title") {
		cfg.IncludeShowTitle = flags.showTitle
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// workspace is everything a rename run needs, resolved from the command
// line and the configuration.
type workspace struct {
	cfg       *config.Config
	args      []string
	layout    media.Layout
	inference media.Inference
	query     string

	catalogs *setup.Catalogs
	catalog  *provider.Multi
	renamer  *sessionRenamer

	diag   *log.Logger
	logger zerolog.Logger
}

// openWorkspace resolves the show layout, infers episode identities and
// wires the configured catalogs. console receives diagnostics when not nil.
func openWorkspace(cfg *config.Config, args []string, query string, console io.Writer) (*workspace, error) {
	layout, err := media.ResolveLayout(args, cfg.SeasonDirWord)
	if err != nil {
		return nil, fmt.Errorf("failed to read show directory: %w", err)
	}
	inference, err := media.ListEpisodes(layout.Seasons)
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}

	home, err := log.DefaultDir()
	if err != nil {
		return nil, err
	}
	diag := log.New(log.Config{Level: cfg.LogLevel, Dir: home, Console: console})
	logger := diag.WithComponent("cmd")
	for _, dir := range layout.Skipped {
		logger.Warn().Str("dir", dir).Msg("skipping directory without season number")
	}
	for _, file := range inference.Skipped {
		logger.Debug().Str("file", file).Msg("skipping link that is not a regular file")
	}

	catalogs, err := setup.Load(cfg, setup.Options{
		CacheDir: filepath.Join(home, "cache"),
		Logger:   diag.WithComponent("catalog"),
	})
	if err != nil {
		diag.Close()
		return nil, err
	}
	multi, err := catalogs.Multi(cfg.Catalog, diag.WithComponent("catalog"))
	if err != nil {
		catalogs.Close()
		diag.Close()
		if errors.Is(err, provider.ErrNoCatalog) {
			return nil, fmt.Errorf("%w: set an API key with 'episode-renamer config set tmdb_api_key <key>'", err)
		}
		return nil, err
	}

	if strings.TrimSpace(query) == "" {
		query = layout.Name()
	}

	return &workspace{
		cfg:       cfg,
		args:      args,
		layout:    layout,
		inference: inference,
		query:     query,
		catalogs:  catalogs,
		catalog:   multi,
		renamer: &sessionRenamer{
			executor: core.NewExecutor(lockPath(home, layout.Root)),
			args:     args,
			root:     layout.Root,
			logger:   diag.WithComponent("rename"),
		},
		diag:   diag,
		logger: logger,
	}, nil
}

// Close persists catalog caches and flushes the diagnostic log.
func (w *workspace) Close() {
	if err := w.catalogs.Close(); err != nil {
		w.logger.Warn().Err(err).Msg("failed to save catalog cache")
	}
	w.diag.Close()
}

// rescan rebuilds the working set from the original arguments.
func (w *workspace) rescan() (media.Inference, error) {
	layout, err := media.ResolveLayout(w.args, w.cfg.SeasonDirWord)
	if err != nil {
		return media.Inference{}, err
	}
	return media.ListEpisodes(layout.Seasons)
}

// lockPath derives a per root lock file so two runs on the same show never
// rename concurrently.
func lockPath(home, root string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+root))
	return filepath.Join(home, "locks", id.String()+".lock")
}

func runRename(cmd *cobra.Command, args []string, flags renameFlags) error {
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg, flags); err != nil {
		return err
	}
	if flags.dryRun && !flags.instant {
		return errors.New("--dry-run requires --instant")
	}

	log.Initialize(cfg.EnableLogging, cfg.LogRetentionDays)

	var console io.Writer
	if flags.instant && flags.verbose {
		console = cmd.ErrOrStderr()
	}
	ws, err := openWorkspace(cfg, args, flags.query, console)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if flags.instant {
		ws.renamer.command = "instant"
		return runInstant(ctx, cmd.OutOrStdout(), instantParams{
			catalog:   ws.catalog,
			renamer:   ws.renamer,
			items:     ws.inference.Items,
			query:     ws.query,
			minQuery:  cfg.MinQueryLength,
			languages: cfg.EnabledLanguages(),
			language:  cfg.DisplayLanguage(),
			showTitle: cfg.IncludeShowTitle,
			dryRun:    flags.dryRun,
		})
	}
	ws.renamer.command = "tui"
	return runInteractive(ctx, ws)
}
