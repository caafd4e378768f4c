package relay

import (
	"errors"
	"fmt"
	"strings"
)

// MaxPathLength bounds the length of a normalized path.
const MaxPathLength = 768

var ErrInvalidPath = errors.New("invalid path")

// CleanPath normalizes a slash-separated path. Leading and trailing slashes are
// dropped; empty, "." and ".." segments are rejected.
func CleanPath(p string) (string, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	if len(p) > MaxPathLength {
		return "", fmt.Errorf("%w: longer than %d bytes", ErrInvalidPath, MaxPathLength)
	}
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "":
			return "", fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, p)
		case ".", "..":
			return "", fmt.Errorf("%w: relative segment in %q", ErrInvalidPath, p)
		}
	}
	return p, nil
}

// JoinPath joins segments with "/". It does not validate the result.
func JoinPath(segments ...string) string {
	return strings.Join(segments, "/")
}

// isWithin reports whether p equals root or lies below it.
func isWithin(p, root string) bool {
	return p == root || strings.HasPrefix(p, root+"/")
}

// related reports whether a change at changed can alter the snapshot of watched.
func related(watched, changed string) bool {
	return isWithin(changed, watched) || isWithin(watched, changed)
}
