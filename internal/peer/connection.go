package peer

import (
	"github.com/pion/webrtc/v4"
)

// ChannelLabel is the label of the session's only data channel.
const ChannelLabel = "chat"

func newPeerConnection(cfg *Config) (*webrtc.PeerConnection, error) {
	policy := webrtc.ICETransportPolicyAll
	if cfg.ForceRelay {
		policy = webrtc.ICETransportPolicyRelay
	}

	conf := webrtc.Configuration{
		ICEServers:         cfg.ICEServers,
		ICETransportPolicy: policy,
	}

	var (
		pc  *webrtc.PeerConnection
		err error
	)
	if cfg.API != nil {
		pc, err = cfg.API.NewPeerConnection(conf)
	} else {
		pc, err = webrtc.NewPeerConnection(conf)
	}
	if err != nil {
		return nil, NewError("create peer connection", err)
	}
	return pc, nil
}

func createDataChannel(pc *webrtc.PeerConnection) (*webrtc.DataChannel, error) {
	ordered := true
	dc, err := pc.CreateDataChannel(ChannelLabel, &webrtc.DataChannelInit{
		Ordered: &ordered,
	})
	if err != nil {
		return nil, NewError("create data channel", err)
	}
	return dc, nil
}

func createOffer(pc *webrtc.PeerConnection) (*webrtc.SessionDescription, error) {
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, NewError("create offer", err)
	}

	if err = pc.SetLocalDescription(offer); err != nil {
		return nil, NewError("set local description", err)
	}

	return pc.LocalDescription(), nil
}

func createAnswer(pc *webrtc.PeerConnection, offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if err := pc.SetRemoteDescription(offer); err != nil {
		return nil, NewError("set remote description", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, NewError("create answer", err)
	}

	if err = pc.SetLocalDescription(answer); err != nil {
		return nil, NewError("set local description", err)
	}

	return pc.LocalDescription(), nil
}
