package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Jose-cardos0/ONLYNEX/internal/cli"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "chatsim",
		Short: "Terminal tools for the OnlyNex chat backend",
		Long: `chatsim drives the OnlyNex chat engine from a terminal.

Open a chat with a model, inspect a user's saved cards or run the
subscription expiry sweep against the configured storage.`,
		Version: version,
	}

	rootCmd.AddCommand(cli.NewChatCmd())
	rootCmd.AddCommand(cli.NewCollectionCmd())
	rootCmd.AddCommand(cli.NewSweepCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
