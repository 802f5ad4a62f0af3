package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/emithub/internal/client"
	"github.com/alfredjeanlab/emithub/internal/ui"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL  string
	jsonOutput bool

	hubClient client.HubClient
)

func defaultServerURL() string {
	if s := os.Getenv("EMIT_HUB_URL"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

var rootCmd = &cobra.Command{
	Use:          "emithub <command>",
	Short:        "Real-time broadcast hub for WebSocket and SSE clients",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.Init()
		hubClient = client.NewHTTPClient(serverURL)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if hubClient != nil {
			hubClient.Close()
		}
	},
}

// localCmd marks commands that do not talk to a running server.
func localCmd(cmd *cobra.Command) *cobra.Command {
	cmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		ui.Init()
		return nil
	}
	return cmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", defaultServerURL(), "emithub server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "channels", Title: "Channels:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	cobra.EnableCommandSorting = false

	// Channels
	rootCmd.AddCommand(channelCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(localCmd(watchCmd))

	// System
	rootCmd.AddCommand(localCmd(serveCmd))
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(localCmd(inspectCmd))
	rootCmd.AddCommand(localCmd(exportCmd))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
