// Package main is the entry point for the tactics API server
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/tactics-api/cmd/server/client"
)

var rootCmd = &cobra.Command{
	Use:   "tactics-api",
	Short: "Tactics API WebSocket server",
	Long:  `Tactics API runs turn-based grid skirmishes between players and bots, served over a WebSocket protocol.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(client.ClientCmd)
}
