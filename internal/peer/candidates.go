package peer

import (
	"sort"

	"github.com/pion/webrtc/v4"
)

// remoteCandidates tracks candidates received from the other participant for
// one peer connection. Candidates seen before a remote description exists are
// held back and released by flush.
type remoteCandidates struct {
	seen    map[string]struct{}
	pending []webrtc.ICECandidateInit
}

func newRemoteCandidates() *remoteCandidates {
	return &remoteCandidates{seen: make(map[string]struct{})}
}

// offer records c and reports whether it is new.
func (r *remoteCandidates) offer(c webrtc.ICECandidateInit) bool {
	if c.Candidate == "" {
		return false
	}
	if _, ok := r.seen[c.Candidate]; ok {
		return false
	}
	r.seen[c.Candidate] = struct{}{}
	return true
}

func (r *remoteCandidates) hold(c webrtc.ICECandidateInit) {
	r.pending = append(r.pending, c)
}

func (r *remoteCandidates) flush() []webrtc.ICECandidateInit {
	out := r.pending
	r.pending = nil
	return out
}

// foreignCandidates decodes every slot except self's, in slot-name order.
// Slots that cannot be decoded are skipped.
func foreignCandidates(slots map[string][]byte, self string) []webrtc.ICECandidateInit {
	names := make([]string, 0, len(slots))
	for name := range slots {
		if name != self {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []webrtc.ICECandidateInit
	for _, name := range names {
		list, ok := parseCandidates(slots[name])
		if !ok {
			continue
		}
		out = append(out, list...)
	}
	return out
}
