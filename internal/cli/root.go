// Package cli implements the graphene CLI commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rcliao/graphene/internal/config"
	"github.com/rcliao/graphene/internal/model"
	"github.com/rcliao/graphene/internal/similarity"
	"github.com/rcliao/graphene/internal/store"
)

var (
	cfgFile    string
	formatFlag string

	v          *viper.Viper
	cfg        *config.Config
	logger     = slog.Default()
	logCleanup = func() error { return nil }
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "graphene",
	Short: "Temporal scene graphs from per-frame relation triples",
	Long: "Resolve per-frame scene-graph detections into persistent entities, track when their\n" +
		"relations hold, and narrate the result. SQLite-backed snapshots, single binary.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logCleanup()
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: $HOME/.graphene.yaml or ./.graphene.yaml)")
	RootCmd.PersistentFlags().StringP("db", "d", "", "Database path (default: $GRAPHENE_DB or ~/.graphene/graphene.db)")
	RootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	RootCmd.PersistentFlags().String("log-file", "", "Also append JSON logs to this file")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

// initConfig binds the root persistent flags of cmd over the config file
// and environment, then builds the logger.
func initConfig(cmd *cobra.Command) error {
	if config.LoadEnv() {
		slog.Debug("loaded .env file")
	}

	flags := cmd.Root().PersistentFlags()
	v = config.New(cfgFile)
	v.BindPFlag("db", flags.Lookup("db"))
	v.BindPFlag("log.level", flags.Lookup("log-level"))
	v.BindPFlag("log.file", flags.Lookup("log-file"))

	if err := config.Read(v); err != nil {
		return err
	}
	c, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = c

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger, logCleanup = config.SetupLogger(cfg.Log.File, level)
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", "path", used)
	}
	return nil
}

func getDBPath() string {
	if cfg != nil && cfg.DB != "" {
		return cfg.DB
	}
	return config.DefaultDBPath()
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

// resolveRun returns runID, or the latest run when runID is empty.
func resolveRun(ctx context.Context, s store.Store, runID string) (*model.Run, error) {
	if runID == "" {
		run, err := s.Latest(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("no saved runs yet (use ingest --save)")
		}
		return run, err
	}
	return s.Get(ctx, runID)
}

// loadTable reads the similarity table from path, or the built-in one.
func loadTable(path string) (*similarity.Table, error) {
	if path == "" && cfg != nil {
		path = cfg.Similarity.Path
	}
	if path == "" {
		return similarity.Default(), nil
	}
	return similarity.Load(path)
}

func printJSON(x any) {
	b, _ := json.MarshalIndent(x, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
