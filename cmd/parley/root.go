package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ketram/parley/internal/config"
	"github.com/ketram/parley/internal/logging"
	"github.com/ketram/parley/pkg/adapters/memory"
	"github.com/ketram/parley/pkg/adapters/redis"
	"github.com/ketram/parley/pkg/pipeline"
	"github.com/ketram/parley/pkg/ports"
	"github.com/ketram/parley/pkg/script"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley is a pipeline engine for conversational agents",
	Long:  `Parley runs YAML-scripted dialogs through a service pipeline, over a terminal chat, an HTTP API or an MCP server.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("script", "", "Path to the dialog script (overrides config)")
	rootCmd.PersistentFlags().String("start", "", "Start label (overrides config)")
	rootCmd.PersistentFlags().String("fallback", "", "Fallback label (overrides config)")
}

// app bundles what every command needs after setup.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	store  ports.ContextStore
	p      *pipeline.Pipeline
}

func buildApp(cmd *cobra.Command, opts ...pipeline.PipelineOption) (*app, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("script"); v != "" {
		cfg.Script.Path = v
	}
	if v, _ := cmd.Flags().GetString("start"); v != "" {
		cfg.Script.Start = v
	}
	if v, _ := cmd.Flags().GetString("fallback"); v != "" {
		cfg.Script.Fallback = v
	}
	if cfg.Script.Path == "" {
		return nil, fmt.Errorf("no dialog script configured; pass --script or set script.path")
	}

	logger := logging.New(parseLevel(cfg.Log.Level))

	dialog, err := script.Load(cfg.Script.Path)
	if err != nil {
		return nil, err
	}
	store, err := newStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	pOpts := []pipeline.PipelineOption{
		pipeline.WithContextStore(store),
		pipeline.WithLogger(logger),
	}
	if cfg.Script.Fallback != "" {
		pOpts = append(pOpts, pipeline.WithFallbackLabel(cfg.Script.Fallback))
	}
	pOpts = append(pOpts, opts...)

	p, err := pipeline.New(script.NewActor(dialog), cfg.Script.Start, pOpts...)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, store: store, p: p}, nil
}

func newStore(cfg config.StoreConfig) (ports.ContextStore, error) {
	switch cfg.Type {
	case "", "memory":
		return memory.NewStore(), nil
	case "redis":
		var opts []redis.Option
		if cfg.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Prefix))
		}
		if cfg.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.TTL))
		}
		return redis.New(cfg.Addr, cfg.Password, cfg.DB, opts...), nil
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
