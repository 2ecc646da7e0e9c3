package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/kumarharshit0413/Nexus/internal/ui"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nexus",
	Short: "Terminal client for Nexus mesh video meetings",
	Long: `Nexus connects you to a meeting room coordinated by the Nexus signaling
server. Media flows directly between participants over WebRTC; the server
only relays negotiation messages and keeps the room's shared state (chat,
notes, polls, screen share) consistent.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once from main.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
