// Package safehttp provides an outbound transport that refuses to connect to
// private, loopback and link-local addresses.
package safehttp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// CheckIP returns an error for addresses outbound calls must not reach.
func CheckIP(ip net.IP) error {
	if ip == nil {
		return fmt.Errorf("missing remote IP")
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
		return fmt.Errorf("access to private IP %s is denied", ip)
	}
	return nil
}

// Transport returns a transport whose connections are checked with CheckIP
// after dialing, so DNS answers pointing inward are caught too.
func Transport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = nil
	t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		dialer := &net.Dialer{Timeout: 5 * time.Second}
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
		if err := CheckIP(net.ParseIP(host)); err != nil {
			conn.Close()
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		return conn, nil
	}
	return t
}
