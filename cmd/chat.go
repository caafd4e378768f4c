package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/peerlink/internal/config"
	"github.com/BioHazard786/peerlink/internal/peer"
	"github.com/BioHazard786/peerlink/internal/room"
	"github.com/BioHazard786/peerlink/internal/signaling"
	"github.com/BioHazard786/peerlink/internal/ui"
)

var (
	chatFlags     connFlags
	flagChatPlain bool
)

var chatCmd = &cobra.Command{
	Use:     "chat [room-id|url]",
	Aliases: []string{"c"},
	Short:   "Create or join a chat room",
	Long: `Start a two-party chat. Without an argument a new room is created and its id
is printed for the other participant; with one, the given room is joined.

Examples:
  peerlink chat
  peerlink chat brave-quiet-otter
  peerlink chat http://localhost:8080/r/brave-quiet-otter
  peerlink chat brave-quiet-otter --plain < notes.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID, created := room.NewID(), true
		if len(args) == 1 {
			id, err := room.Parse(args[0])
			if err != nil {
				return err
			}
			roomID, created = id, false
		}
		return runChat(cmd.Context(), roomID, created)
	},
}

func runChat(ctx context.Context, roomID string, created bool) error {
	cfg, err := config.Load(chatFlags.options())
	if err != nil {
		return peer.NewError("load config", err)
	}
	logger := slog.Default().With("room", roomID)

	fmt.Fprintln(ui.Output)
	stopSpinner := ui.RunConnectionSpinner("Connecting to relay...")
	client, err := signaling.Dial(ctx, cfg.RelayURL, logger)
	stopSpinner()
	if err != nil {
		return peer.NewRoomError("connect to relay", roomID, err)
	}

	shared := signaling.NewShared(client)
	lease, err := shared.Acquire()
	if err != nil {
		client.Close()
		return peer.NewRoomError("connect to relay", roomID, err)
	}

	ui.RenderRoomInfo(ui.NewRoomInfo(roomID, cfg.GetRoomLink(roomID), created))

	if flagChatPlain {
		return chatPlain(ctx, lease, roomID, cfg, logger, os.Stdin, ui.Output)
	}
	return chatTUI(ctx, lease, roomID, cfg, logger)
}

func chatTUI(ctx context.Context, ch signaling.Channel, roomID string, cfg *config.Config, logger *slog.Logger) error {
	var session *peer.Session
	screen := ui.NewChatUI(roomID, func(text string) error {
		return session.SendMessage(text)
	})

	session, err := peer.Open(ctx, ch, roomID, screen.Incoming, cfg.PeerConfig(logger))
	if err != nil {
		ch.Close()
		return err
	}
	defer session.Close()

	go func() {
		for state := range session.StateChanges() {
			screen.SetState(state.String())
		}
	}()
	if cfg.RelayOnly() {
		screen.Notice("using TURN relay only")
	}

	return screen.Run(ctx)
}

// chatPlain sends every line read from in and prints incoming messages to
// out. Lines typed before the data channel opens are queued. It returns when
// ctx is cancelled or the connection ends.
func chatPlain(ctx context.Context, ch signaling.Channel, roomID string, cfg *config.Config, logger *slog.Logger, in io.Reader, out io.Writer) error {
	done := make(chan struct{})
	incoming := make(chan string, 64)
	session, err := peer.Open(ctx, ch, roomID, func(text string) {
		select {
		case incoming <- text:
		case <-done:
		}
	}, cfg.PeerConfig(logger))
	if err != nil {
		ch.Close()
		return err
	}
	defer session.Close()
	defer close(done)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	states := session.StateChanges()
	connected := false
	var pending []string
	for {
		select {
		case <-ctx.Done():
			return nil

		case state, ok := <-states:
			if !ok {
				return nil
			}
			fmt.Fprintf(out, "* %s\n", state)
			switch state {
			case peer.StateConnected:
				connected = true
				pending = sendAll(session, pending, out)
			case peer.StateFailed:
				return peer.NewRoomError("connect to peer", roomID, errors.New("ICE connection failed"))
			case peer.StateDisconnected:
				if connected {
					return nil
				}
			}

		case text := <-incoming:
			fmt.Fprintf(out, "peer: %s\n", text)

		case line, ok := <-lines:
			if !ok {
				// End of input; keep receiving until the peer leaves.
				lines = nil
				continue
			}
			if line == "" {
				continue
			}
			pending = sendAll(session, append(pending, line), out)
		}
	}
}

// sendAll sends queued lines in order and returns the ones that could not be
// sent yet because the data channel is not open.
func sendAll(session *peer.Session, queue []string, out io.Writer) []string {
	for i, text := range queue {
		err := session.SendMessage(text)
		if errors.Is(err, peer.ErrChannelNotOpen) {
			return queue[i:]
		}
		if err != nil {
			fmt.Fprintf(out, "* not sent: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "you: %s\n", text)
	}
	return nil
}

func init() {
	chatFlags.register(chatCmd)
	chatCmd.Flags().BoolVar(&flagChatPlain, "plain", false, "Line mode without the interactive screen")
	rootCmd.AddCommand(chatCmd)
}
