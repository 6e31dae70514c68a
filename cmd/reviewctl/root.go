package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"content-review-orchestrator/internal/app"
	"content-review-orchestrator/internal/config"
	"content-review-orchestrator/internal/storage"
)

var (
	ui *UI

	storeDriver string
	sqlitePath  string
	postgresDSN string
	verbose     bool

	// Overridden in tests.
	openContent = app.OpenContent
	engine      *app.Engine
)

var rootCmd = &cobra.Command{
	Use:   "reviewctl",
	Short: "Operate the content review engine",
	Long: `reviewctl creates review jobs and drives review tasks against the
configured store. It reads the same environment as the services; flags
override the store selection.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeEngine()
	},
}

func init() {
	cobra.OnInitialize(initUI)

	rootCmd.PersistentFlags().String("config", "", "YAML config file (same keys as the environment, lower-cased)")
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", config.StoreDriverSQLite, "Store driver: postgres, sqlite or memory")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", "", "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&postgresDSN, "dsn", "", "Postgres DSN")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

func initUI() {
	ui = &UI{Out: rootCmd.OutOrStdout(), ErrOut: rootCmd.ErrOrStderr(), Verbose: verbose}
}

// loadConfig applies flags over the environment. Without an explicit
// STORE_DRIVER the CLI defaults to a local SQLite database.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v := viper.New()
	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return config.Config{}, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}
	if cmd.Flags().Changed("store") || (os.Getenv("STORE_DRIVER") == "" && !v.IsSet("store_driver")) {
		v.Set("store_driver", storeDriver)
	}
	if sqlitePath != "" {
		v.Set("sqlite_path", sqlitePath)
	}
	if postgresDSN != "" {
		v.Set("postgres_dsn", postgresDSN)
	}
	return config.FromViper(v)
}

func getEngine(cmd *cobra.Command) (*app.Engine, error) {
	if engine != nil {
		return engine, nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	var out io.Writer = io.Discard
	if verbose {
		out = ui.ErrOut
	}
	logger := slog.New(slog.NewTextHandler(out, nil))

	ctx := cmd.Context()
	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	content, err := openContent(ctx, cfg, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	e, err := app.NewEngine(cfg, store, app.Options{Content: content, Logger: logger})
	if err != nil {
		store.Close()
		return nil, err
	}
	ui.VerboseLog("store=%s dispatch=inline", cfg.StoreDriver)
	engine = e
	return engine, nil
}

func closeEngine() error {
	if engine == nil {
		return nil
	}
	err := engine.Store.Close()
	engine = nil
	return err
}

func openStore(cmd *cobra.Command) (storage.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.OpenStore(cmd.Context(), cfg)
}
