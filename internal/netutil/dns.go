package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// publicDNS are queried when the system resolver cannot resolve the relay host.
var publicDNS = []string{
	"1.1.1.1",                // Cloudflare
	"1.0.0.1",                // Cloudflare
	"[2606:4700:4700::1111]", // Cloudflare
	"8.8.8.8",                // Google
	"8.8.4.4",                // Google
	"[2001:4860:4860::8888]", // Google
	"9.9.9.9",                // Quad9
	"149.112.112.112",        // Quad9
}

var (
	localTimeout  = 1 * time.Second
	remoteTimeout = 2 * time.Second
)

// Lookup resolves host to a single IP address. IP literals are returned as
// is. The system resolver is tried first, then public resolvers are raced.
func Lookup(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	ip, err := lookupWith(ctx, &net.Resolver{}, host, localTimeout)
	if err == nil {
		return ip, nil
	}
	return raceLookup(ctx, host)
}

// DialContext resolves the host part of addr with Lookup and dials the result.
// It fits websocket.Dialer.NetDialContext.
func DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	ip, err := Lookup(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("dns lookup failed: %w", err)
	}
	var d net.Dialer
	return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
}

func raceLookup(ctx context.Context, host string) (string, error) {
	type result struct {
		ip  string
		err error
	}

	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	results := make(chan result, len(publicDNS))
	for _, server := range publicDNS {
		go func(server string) {
			r := &net.Resolver{
				PreferGo: true,
				Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, network, net.JoinHostPort(server, "53"))
				},
			}
			ip, err := lookupWith(ctx, r, host, remoteTimeout)
			results <- result{ip: ip, err: err}
		}(server)
	}

	failures := 0
	for range publicDNS {
		select {
		case res := <-results:
			if res.err == nil {
				return res.ip, nil
			}
			failures++
		case <-ctx.Done():
			return "", fmt.Errorf("resolve %s: public DNS race: %w", host, ctx.Err())
		}
	}
	return "", fmt.Errorf("resolve %s: all %d public DNS servers failed", host, failures)
}

func lookupWith(ctx context.Context, r *net.Resolver, host string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ips, err := r.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", errors.New("no IP addresses found")
	}
	return preferIPv4(ips), nil
}

func preferIPv4(ips []string) string {
	for _, ip := range ips {
		if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() != nil {
			return ip
		}
	}
	return ips[0]
}
