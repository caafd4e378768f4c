package room

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	petname "github.com/dustinkirkland/golang-petname"
)

var (
	ErrEmptyID   = errors.New("room ID cannot be empty")
	ErrInvalidID = errors.New("invalid room ID")
)

// idWords is the number of words in a generated room id.
const idWords = 3

// NewID returns a memorable room id such as "brave-quiet-otter".
func NewID() string {
	return petname.Generate(idWords, "-")
}

// Parse accepts a bare room id or a room link and returns the id. For links
// the id is the segment after "/r/", or else the last path segment.
func Parse(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyID
	}

	if strings.Contains(input, "://") {
		return fromURL(input)
	}
	return Validate(input)
}

// Validate checks that id can be used as a single relay path segment.
func Validate(id string) (string, error) {
	if id == "" {
		return "", ErrEmptyID
	}
	if id == "." || id == ".." || strings.ContainsAny(id, "/?#") {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return id, nil
}

func fromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse room link: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, part := range parts {
		if part == "r" && i+1 < len(parts) && parts[i+1] != "" {
			return Validate(parts[i+1])
		}
	}

	last := parts[len(parts)-1]
	if last == "" {
		return "", fmt.Errorf("could not extract room ID from URL: %s", raw)
	}
	return Validate(last)
}

// Link returns the shareable link for id under base, e.g.
// "https://peerlink.example/r/brave-quiet-otter".
func Link(base, id string) string {
	return strings.TrimSuffix(base, "/") + "/r/" + url.PathEscape(id)
}
