package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the client address the ingest rate limits and request
// logs key on. Forwarding headers are honored only when the connection peer
// sits inside one of the configured proxy networks; any other peer could
// forge X-Real-IP to dodge the per-IP limits on file ingestion.
func ClientIP(trustedProxies []string) func(http.Handler) http.Handler {
	nets := parseProxyNets(trustedProxies)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if peerInNets(peerIP(r.RemoteAddr), nets) {
				if ip := forwardedClient(r.Header); ip != nil {
					r.RemoteAddr = ip.String()
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseProxyNets(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, network, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, network)
			continue
		}
		// A bare address trusts exactly that host.
		if ip := net.ParseIP(entry); ip != nil {
			bits := 128
			if ip.To4() != nil {
				bits = 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		slog.Warn("ignoring invalid trusted proxy entry", "entry", entry)
	}
	return nets
}

// forwardedClient returns the client address a trusted proxy reports:
// X-Real-IP when set, else the first hop of X-Forwarded-For. Unparsable
// values are discarded rather than trusted.
func forwardedClient(h http.Header) net.IP {
	if v := h.Get("X-Real-IP"); v != "" {
		return net.ParseIP(strings.TrimSpace(v))
	}
	if v := h.Get("X-Forwarded-For"); v != "" {
		if idx := strings.Index(v, ","); idx > 0 {
			v = v[:idx]
		}
		return net.ParseIP(strings.TrimSpace(v))
	}
	return nil
}

func peerIP(addr string) net.IP {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}

func peerInNets(ip net.IP, nets []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
