package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/peerlink/internal/config"
)

// connFlags are the relay and ICE overrides shared by the client commands.
type connFlags struct {
	relayURL      string
	stun          string
	turn          string
	turnUser      string
	turnPass      string
	forceRelay    bool
	signalTimeout time.Duration
}

func (f *connFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.relayURL, "relay-url", "", "Relay websocket URL (default "+config.DefaultRelayURL+")")
	fs.StringVar(&f.stun, "stun", "", "Custom STUN server")
	fs.StringVar(&f.turn, "turn", "", "TURN server host")
	fs.StringVar(&f.turnUser, "turn-user", "", "TURN server username")
	fs.StringVar(&f.turnPass, "turn-pass", "", "TURN server password")
	fs.BoolVar(&f.forceRelay, "relay", false, "Force TURN relay mode (requires TURN server)")
	fs.DurationVar(&f.signalTimeout, "signal-timeout", 0, "Timeout for each relay operation (default 10s)")
}

func (f *connFlags) options() config.Options {
	return config.Options{
		ConfigFile:    flagConfigFile,
		RelayURL:      f.relayURL,
		STUNServer:    f.stun,
		TURNServer:    f.turn,
		TURNUser:      f.turnUser,
		TURNPass:      f.turnPass,
		ForceRelay:    f.forceRelay,
		SignalTimeout: f.signalTimeout,
	}
}
