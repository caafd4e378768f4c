package peer

import (
	"bytes"
	"encoding/json"

	"github.com/pion/webrtc/v4"
)

// Record is the single offer or answer stored at a room's signaling path.
type Record struct {
	Type   string `json:"type"`
	SDP    string `json:"sdp"`
	PeerID string `json:"peerId,omitempty"`
}

const (
	recordOffer  = "offer"
	recordAnswer = "answer"
)

// RecordKind classifies what a signaling observation contained.
type RecordKind int

const (
	RecordAbsent RecordKind = iota
	RecordOffer
	RecordAnswer
	RecordInvalid
)

func (k RecordKind) String() string {
	switch k {
	case RecordAbsent:
		return "absent"
	case RecordOffer:
		return "offer"
	case RecordAnswer:
		return "answer"
	default:
		return "invalid"
	}
}

// parseRecord decodes a stored record. nil data means no record.
func parseRecord(data []byte) (Record, RecordKind) {
	if data == nil {
		return Record{}, RecordAbsent
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil || r.SDP == "" {
		return Record{}, RecordInvalid
	}
	switch r.Type {
	case recordOffer:
		return r, RecordOffer
	case recordAnswer:
		return r, RecordAnswer
	}
	return Record{}, RecordInvalid
}

func (r Record) description() webrtc.SessionDescription {
	t := webrtc.SDPTypeOffer
	if r.Type == recordAnswer {
		t = webrtc.SDPTypeAnswer
	}
	return webrtc.SessionDescription{Type: t, SDP: r.SDP}
}

func newRecord(desc *webrtc.SessionDescription, peerID string) Record {
	t := recordOffer
	if desc.Type == webrtc.SDPTypeAnswer {
		t = recordAnswer
	}
	return Record{Type: t, SDP: desc.SDP, PeerID: peerID}
}

// parseCandidates decodes a participant's candidate slot. The slot normally
// holds a JSON array; a single candidate object is accepted too.
func parseCandidates(data []byte) ([]webrtc.ICECandidateInit, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, false
	}

	if data[0] == '[' {
		var list []webrtc.ICECandidateInit
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, false
		}
		return list, true
	}

	var one webrtc.ICECandidateInit
	if err := json.Unmarshal(data, &one); err != nil || one.Candidate == "" {
		return nil, false
	}
	return []webrtc.ICECandidateInit{one}, true
}
