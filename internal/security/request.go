package security

import (
	"net/http"
	"strings"
)

// UnknownClient is the identifier used when no forwarding header is present
const UnknownClient = "unknown"

// ClientIP derives the rate-limit identifier from the forwarding headers.
// It is an opaque key, not a verified address.
func ClientIP(h http.Header) string {
	if fwd := h.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(h.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return UnknownClient
}

// IsHTTPS reports whether the terminating proxy saw an https request
func IsHTTPS(h http.Header) bool {
	proto := h.Get("X-Forwarded-Proto")
	if proto == "" {
		proto = "http"
	}
	return proto == "https"
}
