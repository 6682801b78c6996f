// Package client provides a terminal client for the tactics API
package client

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	// Connection flags
	serverURL string
	timeout   time.Duration
)

// ClientCmd is the root command for all client commands
var ClientCmd = &cobra.Command{
	Use:   "client",
	Short: "Terminal client for the tactics API",
	Long:  `Client commands connect to a running tactics API server over WebSocket.`,
}

func init() {
	// Add persistent flags for all client commands
	ClientCmd.PersistentFlags().StringVar(&serverURL, "server", "ws://localhost:8080/ws", "WebSocket endpoint")
	ClientCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "dial timeout")

	// Add subcommands
	ClientCmd.AddCommand(playCmd)
}
