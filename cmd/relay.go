package cmd

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/peerlink/internal/config"
	"github.com/BioHazard786/peerlink/internal/logging"
	"github.com/BioHazard786/peerlink/internal/server"
	"github.com/BioHazard786/peerlink/internal/ui"
)

var flagRelayListen string

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the signaling relay server",
	Long: `Run the relay that peers use to exchange offers, answers and ICE candidates.

Examples:
  peerlink relay
  peerlink relay --listen :9000
  LOG_LEVEL=debug peerlink relay`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Options{
			ConfigFile: flagConfigFile,
			ListenAddr: flagRelayListen,
		})
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger := logging.Init(slog.LevelInfo)

		ready := make(chan net.Addr, 1)
		go func() {
			addr, ok := <-ready
			if ok {
				fmt.Fprintln(ui.Output, ui.RelayInfoView(displayAddr(addr)))
			}
		}()

		return server.Run(cmd.Context(), cfg.ListenAddr, logger, ready)
	},
}

// displayAddr turns a wildcard listen address into one a browser can open.
func displayAddr(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok || tcp.IP == nil || tcp.IP.IsUnspecified() {
		_, port, err := net.SplitHostPort(addr.String())
		if err != nil {
			return addr.String()
		}
		return net.JoinHostPort("localhost", port)
	}
	return tcp.String()
}

func init() {
	relayCmd.Flags().StringVarP(&flagRelayListen, "listen", "l", "", "Listen address (default "+config.DefaultListenAddr+")")
	rootCmd.AddCommand(relayCmd)
}
