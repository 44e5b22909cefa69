package ipcheck

import "strings"

// uint128 is a fixed-width two-word IPv6 address. hi holds the first
// 64 bits, lo the last 64.
type uint128 struct {
	hi, lo uint64
}

type v6Range struct {
	base   uint128
	prefix int
	label  string
}

var v6Blocked = []v6Range{
	{uint128{0, 1}, 128, "::1/128 (loopback)"},
	{uint128{0, 0}, 128, "::/128 (unspecified)"},
	{uint128{0xfc00_0000_0000_0000, 0}, 7, "fc00::/7 (unique local)"},
	{uint128{0xfe80_0000_0000_0000, 0}, 10, "fe80::/10 (link-local)"},
}

// ClassifyIPv6 classifies an IPv6 literal. IPv4-embedded forms (a
// dotted-quad suffix, or the numeric ::ffff:0:0/96 mapped prefix) are
// reclassified under the IPv4 rules so a private IPv4 address cannot be
// smuggled through IPv6 notation. Malformed literals are blocked.
func ClassifyIPv6(s string) Classification {
	addr, quad, ok := parseIPv6(s)
	if !ok {
		return blocked("malformed IPv6 address")
	}
	if quad != "" {
		return ClassifyIPv4(quad)
	}
	if addr.hi == 0 && addr.lo>>32 == 0xffff {
		return classifyV4Addr(uint32(addr.lo))
	}
	for _, r := range v6Blocked {
		if v6Contains(r.base, r.prefix, addr) {
			return blocked("address in blocked range " + r.label)
		}
	}
	return Classification{}
}

// v6Contains masks both words explicitly; the mask boundary crosses
// from hi to lo at prefix 64. Prefix 0 matches everything, out-of-range
// prefixes match nothing.
func v6Contains(base uint128, prefix int, addr uint128) bool {
	if prefix == 0 {
		return true
	}
	if prefix < 0 || prefix > 128 {
		return false
	}
	var mhi, mlo uint64
	if prefix <= 64 {
		mhi = ^uint64(0) << (64 - uint(prefix))
	} else {
		mhi = ^uint64(0)
		mlo = ^uint64(0) << (128 - uint(prefix))
	}
	return addr.hi&mhi == base.hi&mhi && addr.lo&mlo == base.lo&mlo
}

// parseIPv6 parses an RFC 4291 textual address into two 64-bit words.
// A trailing dotted quad is returned separately so the caller can apply
// the IPv4 rules to it. Zone suffixes and brackets are rejected.
func parseIPv6(s string) (uint128, string, bool) {
	if s == "" || strings.IndexByte(s, '%') >= 0 || strings.IndexByte(s, '[') >= 0 {
		return uint128{}, "", false
	}

	var left, right string
	switch parts := strings.Split(s, "::"); len(parts) {
	case 1:
		left = parts[0]
	case 2:
		left, right = parts[0], parts[1]
	default:
		return uint128{}, "", false
	}
	compressed := strings.Contains(s, "::")

	var quad string
	leftGroups, ok := splitGroups(left)
	if !ok {
		return uint128{}, "", false
	}
	rightGroups, ok := splitGroups(right)
	if !ok {
		return uint128{}, "", false
	}

	// A dotted quad may only appear as the final group.
	tail := rightGroups
	if !compressed {
		tail = leftGroups
	}
	groups := make([]uint16, 0, 8)
	appendGroup := func(g string, last bool) bool {
		if last && strings.IndexByte(g, '.') >= 0 {
			v4, ok := parseIPv4(g)
			if !ok {
				return false
			}
			quad = g
			groups = append(groups, uint16(v4>>16), uint16(v4))
			return true
		}
		v, ok := parseHexGroup(g)
		if !ok {
			return false
		}
		groups = append(groups, v)
		return true
	}
	for i, g := range leftGroups {
		lastOfAll := !compressed && len(rightGroups) == 0 && i == len(tail)-1
		if !appendGroup(g, lastOfAll) {
			return uint128{}, "", false
		}
	}
	gap := 0
	if compressed {
		gap = 8 - len(leftGroups) - len(rightGroups)
		// Account for a dotted quad in the right side taking two slots.
		for _, g := range rightGroups {
			if strings.IndexByte(g, '.') >= 0 {
				gap--
			}
		}
		if gap < 1 {
			return uint128{}, "", false
		}
		for i := 0; i < gap; i++ {
			groups = append(groups, 0)
		}
	}
	for i, g := range rightGroups {
		if !appendGroup(g, i == len(rightGroups)-1) {
			return uint128{}, "", false
		}
	}
	if len(groups) != 8 {
		return uint128{}, "", false
	}

	var addr uint128
	for i := 0; i < 4; i++ {
		addr.hi = addr.hi<<16 | uint64(groups[i])
	}
	for i := 4; i < 8; i++ {
		addr.lo = addr.lo<<16 | uint64(groups[i])
	}
	return addr, quad, true
}

func splitGroups(s string) ([]string, bool) {
	if s == "" {
		return nil, true
	}
	groups := strings.Split(s, ":")
	for _, g := range groups {
		if g == "" {
			return nil, false
		}
	}
	return groups, true
}

func parseHexGroup(g string) (uint16, bool) {
	if g == "" || len(g) > 4 {
		return 0, false
	}
	var v uint32
	for i := 0; i < len(g); i++ {
		c := g[i]
		var d uint32
		switch {
		case c >= '0' && c <= '9':
			d = uint32(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint32(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = uint32(c-'A') + 10
		default:
			return 0, false
		}
		v = v<<4 | d
	}
	return uint16(v), true
}
