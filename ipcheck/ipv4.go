package ipcheck

import "strings"

type v4Range struct {
	base   uint32
	prefix int
	label  string
}

// Exact blocked table. Anything outside these ranges is public.
var v4Blocked = []v4Range{
	{v4Literal(10, 0, 0, 0), 8, "10.0.0.0/8 (private)"},
	{v4Literal(172, 16, 0, 0), 12, "172.16.0.0/12 (private)"},
	{v4Literal(192, 168, 0, 0), 16, "192.168.0.0/16 (private)"},
	{v4Literal(127, 0, 0, 0), 8, "127.0.0.0/8 (loopback)"},
	{v4Literal(169, 254, 0, 0), 16, "169.254.0.0/16 (link-local)"},
	{v4Literal(0, 0, 0, 0), 8, "0.0.0.0/8 (this network)"},
	{v4Literal(100, 64, 0, 0), 10, "100.64.0.0/10 (carrier-grade NAT)"},
	{v4Literal(192, 0, 0, 0), 24, "192.0.0.0/24 (IETF protocol assignments)"},
	{v4Literal(198, 18, 0, 0), 15, "198.18.0.0/15 (benchmarking)"},
	{v4Literal(224, 0, 0, 0), 4, "224.0.0.0/4 (multicast)"},
}

func v4Literal(a, b, c, d uint32) uint32 {
	return a<<24 | b<<16 | c<<8 | d
}

// ClassifyIPv4 classifies a dotted-quad literal. Malformed input
// (wrong segment count, non-numeric or out-of-range octet, leading
// zero) is blocked, never treated as a hostname.
func ClassifyIPv4(s string) Classification {
	addr, ok := parseIPv4(s)
	if !ok {
		return blocked("malformed IPv4 address")
	}
	return classifyV4Addr(addr)
}

func classifyV4Addr(addr uint32) Classification {
	for _, r := range v4Blocked {
		if v4Contains(r.base, r.prefix, addr) {
			return blocked("address in blocked range " + r.label)
		}
	}
	return Classification{}
}

// v4Contains reports whether addr falls inside base/prefix using true
// bitwise masking. Prefix 0 matches everything; an out-of-range prefix
// matches nothing.
func v4Contains(base uint32, prefix int, addr uint32) bool {
	if prefix == 0 {
		return true
	}
	if prefix < 0 || prefix > 32 {
		return false
	}
	mask := ^uint32(0) << (32 - prefix)
	return addr&mask == base&mask
}

// parseIPv4 parses a strict dotted quad: exactly four decimal octets,
// each 0-255, no leading zeros. Leading zeros are rejected because
// inet_aton-style parsers read them as octal, a classic bypass.
func parseIPv4(s string) (uint32, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, false
	}
	var addr uint32
	for _, p := range parts {
		if p == "" || len(p) > 3 {
			return 0, false
		}
		if len(p) > 1 && p[0] == '0' {
			return 0, false
		}
		n := 0
		for i := 0; i < len(p); i++ {
			c := p[i]
			if c < '0' || c > '9' {
				return 0, false
			}
			n = n*10 + int(c-'0')
		}
		if n > 255 {
			return 0, false
		}
		addr = addr<<8 | uint32(n)
	}
	return addr, true
}
