package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/peerlink/internal/ui"
	"github.com/BioHazard786/peerlink/internal/version"
)

var flagConfigFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "peerlink",
	Short: "Two-party WebRTC text chat with a tiny signaling relay",
	Long: `peerlink connects two people over a direct WebRTC data channel.

A small relay server carries the offer, answer and ICE candidates; once the
peers are connected every message travels peer to peer.`,
	Version: version.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "Config file (default $XDG_CONFIG_HOME/peerlink/config.toml)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}
