package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/ketram/parley/pkg/adapters/console"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the agent in the terminal",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := buildApp(cmd)
		if err != nil {
			fmt.Printf("Error initializing parley: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		printBanner()

		var opts []console.Option
		if id, _ := cmd.Flags().GetString("context"); id != "" {
			opts = append(opts, console.WithContextID(id))
		}
		m := console.New(opts...)
		if err := m.Connect(ctx, app.p.RunTurn); err != nil && ctx.Err() == nil {
			fmt.Printf("Chat error: %v\n", err)
			os.Exit(1)
		}
	},
}

func printBanner() {
	p := termenv.ColorProfile()
	s1 := termenv.String("                 _           ").Foreground(p.Color("#818cf8"))
	s2 := termenv.String(" _ __  __ _ _ _ | |___ _  _  ").Foreground(p.Color("#a78bfa"))
	s3 := termenv.String("| '_ \\/ _` | '_|| / -_) || | ").Foreground(p.Color("#c084fc"))
	s4 := termenv.String("| .__/\\__,_|_|  |_\\___|\\_, | ").Foreground(p.Color("#e879f9"))
	s5 := termenv.String("|_|                    |__/  ").Foreground(p.Color("#f472b6"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("context", "", "Resume an existing dialog context ID")
}
