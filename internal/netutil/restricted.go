package netutil

import (
	"net"
	"strings"
)

// cgnat is the shared address space used by carrier-grade NAT, Tailscale and
// Cloudflare WARP.
var cgnat = mustCIDR("100.64.0.0/10")

var tunnelHints = []string{"tun", "tap", "wg", "ppp", "warp"}

// RestrictedNetwork reports whether this host looks like it sits behind a VPN
// or CGNAT, where direct peer-to-peer paths rarely work and relayed ICE is the
// better default.
func RestrictedNetwork() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if tunnelName(iface.Name) {
			return true
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if cgnat.Contains(addrIP(addr)) {
				return true
			}
		}
	}
	return false
}

func tunnelName(name string) bool {
	name = strings.ToLower(name)
	for _, hint := range tunnelHints {
		if strings.Contains(name, hint) {
			return true
		}
	}
	return false
}

func addrIP(addr net.Addr) net.IP {
	switch v := addr.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	}
	return nil
}

func mustCIDR(s string) *net.IPNet {
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return n
}
