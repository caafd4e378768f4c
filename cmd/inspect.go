package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/peerlink/internal/config"
	"github.com/BioHazard786/peerlink/internal/peer"
	"github.com/BioHazard786/peerlink/internal/relay"
	"github.com/BioHazard786/peerlink/internal/room"
	"github.com/BioHazard786/peerlink/internal/signaling"
	"github.com/BioHazard786/peerlink/internal/ui"
)

var inspectFlags connFlags

var inspectCmd = &cobra.Command{
	Use:   "inspect <room-id|url>",
	Short: "Show what the relay holds for a room",
	Long: `Print the signaling record and candidate slots stored for a room.

Examples:
  peerlink inspect brave-quiet-otter
  peerlink inspect brave-quiet-otter --relay-url wss://relay.example/ws`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID, err := room.Parse(args[0])
		if err != nil {
			return err
		}
		cfg, err := config.Load(inspectFlags.options())
		if err != nil {
			return peer.NewError("load config", err)
		}

		client, err := signaling.Dial(cmd.Context(), cfg.RelayURL, slog.Default())
		if err != nil {
			return peer.NewRoomError("connect to relay", roomID, err)
		}
		defer client.Close()

		snap, err := snapshotOnce(cmd.Context(), client, signaling.RoomPath(roomID), cfg.SignalTimeout)
		if err != nil {
			return peer.NewRoomError("inspect room", roomID, err)
		}

		ui.RenderRoomTable(roomID, roomRows(peer.DescribeRoom(snap)))
		return nil
	},
}

// snapshotOnce watches path until the first snapshot arrives.
func snapshotOnce(ctx context.Context, ch signaling.Channel, path string, timeout time.Duration) (relay.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	first := make(chan relay.Snapshot, 1)
	unwatch, err := ch.Watch(ctx, path, func(s relay.Snapshot) {
		select {
		case first <- s:
		default:
		}
	})
	if err != nil {
		return relay.Snapshot{}, err
	}
	defer unwatch()

	select {
	case s := <-first:
		return s, nil
	case <-ctx.Done():
		return relay.Snapshot{}, ctx.Err()
	}
}

func roomRows(entries []peer.RoomEntry) []ui.RoomRow {
	rows := make([]ui.RoomRow, len(entries))
	for i, e := range entries {
		rows[i] = ui.RoomRow{Path: e.Path, Kind: e.Kind, Peer: e.Peer, Detail: e.Detail}
	}
	return rows
}

func init() {
	inspectFlags.register(inspectCmd)
	rootCmd.AddCommand(inspectCmd)
}
