package netutil

import (
	"context"
	"net"
	"testing"
)

func TestLookup_IPLiteral(t *testing.T) {
	for _, host := range []string{"127.0.0.1", "::1"} {
		got, err := Lookup(context.Background(), host)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", host, err)
		}
		if got != host {
			t.Fatalf("Lookup(%q)=%q", host, got)
		}
	}
}

func TestPreferIPv4(t *testing.T) {
	if got := preferIPv4([]string{"::1", "10.0.0.1"}); got != "10.0.0.1" {
		t.Fatalf("got %q", got)
	}
	if got := preferIPv4([]string{"::1"}); got != "::1" {
		t.Fatalf("got %q", got)
	}
}

func TestTunnelName(t *testing.T) {
	tests := map[string]bool{
		"wg0":            true,
		"tun0":           true,
		"CloudflareWARP": true,
		"eth0":           false,
		"en0":            false,
	}
	for name, want := range tests {
		if got := tunnelName(name); got != want {
			t.Errorf("tunnelName(%q)=%v, want %v", name, got, want)
		}
	}
}

func TestCGNATRange(t *testing.T) {
	if !cgnat.Contains(net.ParseIP("100.100.1.1")) {
		t.Fatal("100.100.1.1 should be CGNAT")
	}
	if cgnat.Contains(net.ParseIP("192.168.1.1")) {
		t.Fatal("192.168.1.1 should not be CGNAT")
	}
}
