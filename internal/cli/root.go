package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"sitekeeper/internal/config"
	"sitekeeper/internal/content"
	"sitekeeper/internal/format"
	"sitekeeper/internal/kv"
	"sitekeeper/internal/logging"
	"sitekeeper/internal/markup"
	"sitekeeper/internal/reconcile"
	"sitekeeper/internal/site"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type App struct {
	ConfigPath string
	Site       string
	DB         string
	PrettyJSON bool
	Format     string
	Verbose    bool

	cfg *config.Config
	log *zap.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "sitekeeper",
		Short:        "Edit and serve a static team site's content",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Serve the site and its editor
  sitekeeper serve --site ./site

  # Scriptable commands
  sitekeeper records list members

  # Shortcut for: sitekeeper records list projects
  sitekeeper projects

  # Bake stored content into the public pages
  sitekeeper render --to ./dist
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.load(cmd)
	}

	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if app.log != nil {
			// Sync fails on terminals (ENOTTY); nothing useful to report.
			_ = app.log.Sync()
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("SITEKEEPER_CONFIG", config.DefaultPath), "Path to the YAML config file")
	cmd.PersistentFlags().StringVar(&app.Site, "site", "", "Site directory holding the public and edit pages (overrides config)")
	cmd.PersistentFlags().StringVar(&app.DB, "db", "", "Content database path, or :memory: (overrides config)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("SITEKEEPER_FORMAT", "json"), "Output format (json|yaml)")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Debug logging")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newRenderCmd(app))
	cmd.AddCommand(newRecordsCmd(app))
	cmd.AddCommand(newSettingsCmd(app))
	cmd.AddCommand(newSeedCmd(app))
	cmd.AddCommand(newClearCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

// load resolves configuration: defaults, config file, .env, environment,
// then flags.
func (app *App) load(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return writeErr(cmd, err)
	}
	cfg, err := config.Load(app.ConfigPath)
	if err != nil {
		return writeErr(cmd, err)
	}
	if s := strings.TrimSpace(app.Site); s != "" {
		cfg.Site = s
	}
	if s := strings.TrimSpace(app.DB); s != "" {
		cfg.DB = s
	}
	if app.Verbose {
		cfg.Log.Level = "debug"
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return writeErr(cmd, err)
	}
	app.cfg = cfg
	app.log = log
	return nil
}

func (app *App) conf() *config.Config {
	if app.cfg == nil {
		app.cfg = config.DefaultConfig()
	}
	return app.cfg
}

func (app *App) logger() *zap.Logger {
	if app.log == nil {
		app.log = zap.NewNop()
	}
	return app.log
}

func (app *App) openStore(ctx context.Context) (kv.Store, error) {
	cfg := app.conf()
	if strings.TrimSpace(cfg.DB) == kv.MemoryPath {
		return kv.NewMem(cfg.QuotaBytes), nil
	}
	st, err := kv.OpenSQLite(ctx, cfg.DB, cfg.QuotaBytes)
	if err != nil {
		return nil, fmt.Errorf("open content db: %w", err)
	}
	return st, nil
}

func (app *App) openSite() (*site.Site, error) {
	cfg := app.conf()
	return site.Open(cfg.Site, cfg.Pages, app.logger())
}

// withReconciler opens the store for the duration of fn.
func (app *App) withReconciler(ctx context.Context, fn func(*reconcile.Reconciler) error) error {
	st, err := app.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	log := app.logger()
	return fn(reconcile.New(content.NewAccessor(st, log), markup.Must(), log))
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
