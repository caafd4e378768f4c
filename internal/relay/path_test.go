package relay

import (
	"errors"
	"strings"
	"testing"
)

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "rooms/abc", want: "rooms/abc"},
		{in: "/rooms/abc/", want: "rooms/abc"},
		{in: "rooms", want: "rooms"},
		{in: "", wantErr: true},
		{in: "/", wantErr: true},
		{in: "rooms//abc", wantErr: true},
		{in: "rooms/./abc", wantErr: true},
		{in: "rooms/../abc", wantErr: true},
		{in: strings.Repeat("a", MaxPathLength+1), wantErr: true},
	}

	for _, tt := range tests {
		got, err := CleanPath(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidPath) {
				t.Errorf("CleanPath(%q) err=%v, want ErrInvalidPath", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("CleanPath(%q) unexpected err: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("CleanPath(%q)=%q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRelated(t *testing.T) {
	tests := []struct {
		watched, changed string
		want             bool
	}{
		{"rooms/a", "rooms/a", true},
		{"rooms/a", "rooms/a/signaling", true},
		{"rooms/a/signaling", "rooms/a", true},
		{"rooms/a", "rooms/ab", false},
		{"rooms/a/iceCandidates", "rooms/a/signaling", false},
	}
	for _, tt := range tests {
		if got := related(tt.watched, tt.changed); got != tt.want {
			t.Errorf("related(%q, %q)=%v, want %v", tt.watched, tt.changed, got, tt.want)
		}
	}
}
