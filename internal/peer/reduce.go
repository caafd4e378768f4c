package peer

import "github.com/pion/webrtc/v4"

// Role is the part a session plays in its room's handshake.
type Role int

const (
	RoleUnassigned Role = iota
	RoleCaller
	RoleCallee
)

func (r Role) String() string {
	switch r {
	case RoleCaller:
		return "caller"
	case RoleCallee:
		return "callee"
	default:
		return "unassigned"
	}
}

// Observation is everything Reduce needs to decide how to react to the
// current signaling record.
type Observation struct {
	// First is set for the first valid record observation of the session.
	First bool
	Role  Role
	Kind  RecordKind

	// LocalPeer is this session's peer id, RemotePeer the id carried by the
	// record (empty for legacy writers), Answered the peer whose offer this
	// session answered.
	LocalPeer  string
	RemotePeer string
	Answered   string

	SignalingState webrtc.SignalingState
}

// FromSelf reports whether the observed record was written by this session.
func (o Observation) FromSelf() bool {
	return o.RemotePeer != "" && o.RemotePeer == o.LocalPeer
}

// Action is what the session does in response to an observation.
type Action int

const (
	ActionNone Action = iota
	// ActionOffer: become caller, open the data channel and publish an offer.
	ActionOffer
	// ActionAnswer: become callee and answer the observed offer.
	ActionAnswer
	// ActionAcceptAnswer: apply the observed answer as the remote description.
	ActionAcceptAnswer
	// ActionReassert: rewrite our pending offer over a competing one.
	ActionReassert
	// ActionYield: drop our pending offer and connection, then answer the
	// competing offer as callee.
	ActionYield
	// ActionReanswer: rewrite our answer after the caller re-asserted its offer.
	ActionReanswer
)

func (a Action) String() string {
	switch a {
	case ActionOffer:
		return "offer"
	case ActionAnswer:
		return "answer"
	case ActionAcceptAnswer:
		return "accept-answer"
	case ActionReassert:
		return "reassert"
	case ActionYield:
		return "yield"
	case ActionReanswer:
		return "reanswer"
	default:
		return "none"
	}
}

type rule struct {
	name   string
	match  func(Observation) bool
	action Action
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{
		name: "empty room",
		match: func(o Observation) bool {
			return o.First && o.Kind == RecordAbsent
		},
		action: ActionOffer,
	},
	{
		name: "waiting offer",
		match: func(o Observation) bool {
			return o.First && o.Kind == RecordOffer && o.Role != RoleCaller && !o.FromSelf()
		},
		action: ActionAnswer,
	},
	{
		name: "answer to our offer",
		match: func(o Observation) bool {
			return pendingOffer(o) && o.Kind == RecordAnswer && !o.FromSelf()
		},
		action: ActionAcceptAnswer,
	},
	{
		name: "competing offer, we win",
		match: func(o Observation) bool {
			return pendingOffer(o) && o.Kind == RecordOffer && !o.FromSelf() && o.LocalPeer < o.RemotePeer
		},
		action: ActionReassert,
	},
	{
		name: "competing offer, we lose",
		match: func(o Observation) bool {
			return pendingOffer(o) && o.Kind == RecordOffer && !o.FromSelf()
		},
		action: ActionYield,
	},
	{
		name: "offer re-asserted after our answer",
		match: func(o Observation) bool {
			return !o.First && o.Role == RoleCallee && o.Kind == RecordOffer &&
				!o.FromSelf() && o.RemotePeer == o.Answered &&
				o.SignalingState == webrtc.SignalingStateStable
		},
		action: ActionReanswer,
	},
}

func pendingOffer(o Observation) bool {
	return o.Role == RoleCaller && o.SignalingState == webrtc.SignalingStateHaveLocalOffer
}

// Reduce maps an observation to the action the session takes. It is pure:
// everything it depends on is in o.
func Reduce(o Observation) Action {
	r, _ := matchRule(o)
	return r.action
}

// matchRule returns the first rule matching o.
func matchRule(o Observation) (rule, bool) {
	if o.Kind == RecordInvalid {
		return rule{name: "invalid record"}, false
	}
	for _, r := range rules {
		if r.match(o) {
			return r, true
		}
	}
	return rule{name: "no-op"}, false
}
