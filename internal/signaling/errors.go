package signaling

import (
	"errors"
	"fmt"

	"github.com/BioHazard786/peerlink/internal/relay"
)

var ErrClosed = errors.New("signaling channel closed")

// RelayError is an error reply from the relay.
type RelayError struct {
	Op      relay.Op
	Path    string
	Message string
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("relay %s %s: %s", e.Op, e.Path, e.Message)
}
