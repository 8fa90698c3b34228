package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ketram/parley"
	httpadapter "github.com/ketram/parley/pkg/adapters/http"
	"github.com/ketram/parley/pkg/stats"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the pipeline in server mode, exposing one dialog turn per POST /turns, with Prometheus metrics on /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := buildApp(cmd)
		if err != nil {
			fmt.Printf("Error initializing parley: %v\n", err)
			os.Exit(1)
		}

		addr := app.cfg.HTTP.Addr
		if v, _ := cmd.Flags().GetString("addr"); v != "" {
			addr = v
		}

		reg := prometheus.NewRegistry()
		collector, err := stats.NewCollector(reg)
		if err != nil {
			fmt.Printf("Error registering metrics: %v\n", err)
			os.Exit(1)
		}
		collector.Attach(app.p)

		m := httpadapter.NewMessenger(addr,
			httpadapter.WithLogger(app.logger),
			httpadapter.WithVersion(parley.Version),
			httpadapter.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := m.Connect(ctx, app.p.RunTurn); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Parley server stopped gracefully")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (overrides config)")
}
