// Package ipcheck classifies literal IP addresses as public or blocked
// for outbound-fetch gating. Blocked covers loopback, RFC 1918 private,
// link-local, carrier-grade NAT, benchmarking, multicast and the other
// reserved ranges an SSRF target would hide in.
//
// Parsing is deliberately hand-rolled and fail-closed: anything that
// looks like an IP literal but does not parse cleanly (bad octet, octal
// leading zero, wrong group count, zone suffix) classifies as blocked
// rather than falling through as a hostname.
package ipcheck

import "strings"

// Classification is the result for one literal address. Zero value is
// public; Blocked carries a human-readable reason.
type Classification struct {
	Blocked bool
	Reason  string
}

func blocked(reason string) Classification {
	return Classification{Blocked: true, Reason: reason}
}

// IsLiteral reports whether host looks like an IP literal (v4 or v6)
// rather than a DNS name. A malformed literal still counts: it must be
// classified (and blocked), not resolved.
func IsLiteral(host string) bool {
	return looksLikeIPv6(host) || looksLikeIPv4(host)
}

// Classify dispatches a literal to the v4 or v6 rules. Inputs that look
// like neither are blocked: callers are expected to gate on IsLiteral,
// and anything else reaching here is ambiguous.
func Classify(host string) Classification {
	if looksLikeIPv6(host) {
		return ClassifyIPv6(host)
	}
	if looksLikeIPv4(host) {
		return ClassifyIPv4(host)
	}
	return blocked("not an IP literal")
}

func looksLikeIPv6(s string) bool {
	return strings.IndexByte(s, ':') >= 0
}

func looksLikeIPv4(s string) bool {
	if s == "" || strings.IndexByte(s, '.') < 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && c != '.' {
			return false
		}
	}
	return true
}
