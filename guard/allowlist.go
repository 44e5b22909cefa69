package guard

import (
	"os"
	"strings"
	"sync/atomic"
)

// EnvAllowlist is the environment variable the process-wide default
// allowlist is loaded from: comma-separated host patterns, trimmed and
// lower-cased.
const EnvAllowlist = "KNOWLEDGE_FETCH_HOST_ALLOWLIST"

// HostPattern is one allowlist entry: an exact hostname, a leading
// wildcard ("*.example.com") or a leading-dot suffix (".example.com").
// Both suffix forms match the bare domain and any subdomain.
type HostPattern struct {
	exact  string
	suffix string
}

// Matches reports whether a lower-cased hostname is permitted by this
// pattern.
func (p HostPattern) Matches(host string) bool {
	if p.exact != "" {
		return host == p.exact
	}
	if p.suffix == "" {
		return false
	}
	return host == p.suffix || strings.HasSuffix(host, "."+p.suffix)
}

// ParseHostPatterns parses raw allowlist entries. Matching is
// case-insensitive, so entries are lower-cased here. Empty or
// unparseable entries are dropped.
func ParseHostPatterns(entries []string) []HostPattern {
	out := make([]HostPattern, 0, len(entries))
	for _, raw := range entries {
		e := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case e == "" || e == "." || e == "*.":
			continue
		case strings.HasPrefix(e, "*."):
			out = append(out, HostPattern{suffix: e[2:]})
		case strings.HasPrefix(e, "."):
			out = append(out, HostPattern{suffix: e[1:]})
		default:
			out = append(out, HostPattern{exact: e})
		}
	}
	return out
}

// HostAllowed reports whether host passes the allowlist. An empty list
// means no name-level restriction; a non-empty list is mandatory.
func HostAllowed(host string, patterns []HostPattern) bool {
	if len(patterns) == 0 {
		return true
	}
	h := strings.ToLower(strings.TrimSpace(host))
	for _, p := range patterns {
		if p.Matches(h) {
			return true
		}
	}
	return false
}

// The process-wide allowlist is replace-only: concurrent fetches read a
// snapshot, updates swap the whole value. Never mutated in place.
var defaultAllowlist atomic.Value

func init() {
	defaultAllowlist.Store(allowlistFromEnv())
}

func allowlistFromEnv() []HostPattern {
	raw := strings.TrimSpace(os.Getenv(EnvAllowlist))
	if raw == "" {
		return []HostPattern(nil)
	}
	return ParseHostPatterns(strings.Split(raw, ","))
}

// DefaultAllowlist returns the current process-wide allowlist.
func DefaultAllowlist() []HostPattern {
	v, _ := defaultAllowlist.Load().([]HostPattern)
	return v
}

// SetDefaultAllowlist replaces the process-wide allowlist wholesale.
func SetDefaultAllowlist(entries []string) {
	defaultAllowlist.Store(ParseHostPatterns(entries))
}
