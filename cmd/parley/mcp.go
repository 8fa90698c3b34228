package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ketram/parley"
	"github.com/ketram/parley/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Long:  `Exposes the pipeline as a Model Context Protocol server, so MCP clients can drive dialogs as tool calls. Logs go to stderr; stdout carries JSON-RPC.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := buildApp(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing parley: %v\n", err)
			os.Exit(1)
		}

		srv := mcp.NewServer(app.p.RunTurn, app.store, parley.Version)
		if err := srv.ServeStdio(); err != nil {
			fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
