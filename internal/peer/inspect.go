package peer

import (
	"fmt"
	"path"
	"strings"

	"github.com/BioHazard786/peerlink/internal/relay"
)

// RoomEntry summarizes one value stored under a room.
type RoomEntry struct {
	Path   string
	Kind   string
	Peer   string
	Detail string
}

// DescribeRoom summarizes a snapshot of a room's subtree in path order.
func DescribeRoom(snap relay.Snapshot) []RoomEntry {
	keys := snap.Keys()
	out := make([]RoomEntry, 0, len(keys))
	for _, key := range keys {
		value := snap.Entries[key]
		entry := RoomEntry{Path: key}

		switch {
		case key == "signaling":
			rec, kind := parseRecord(value)
			entry.Kind = kind.String()
			entry.Peer = rec.PeerID
			if kind == RecordInvalid {
				entry.Detail = fmt.Sprintf("%d bytes, undecodable", len(value))
			} else {
				entry.Detail = fmt.Sprintf("%d bytes of SDP", len(rec.SDP))
			}

		case strings.HasPrefix(key, "iceCandidates/"):
			entry.Kind = "candidates"
			entry.Peer = path.Base(key)
			if list, ok := parseCandidates(value); ok {
				entry.Detail = fmt.Sprintf("%d candidates", len(list))
			} else {
				entry.Detail = "undecodable"
			}

		default:
			entry.Kind = "value"
			entry.Detail = fmt.Sprintf("%d bytes", len(value))
		}
		out = append(out, entry)
	}
	return out
}
