package guard

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"

	"github.com/quailyquaily/fetchguard/ipcheck"
)

// AddressRecord is one resolved network address plus its family.
type AddressRecord struct {
	Address string
	IPv6    bool
}

// LookupHostFunc resolves a hostname into address records. It is
// injectable so tests and embedders can swap the resolver per call.
type LookupHostFunc func(ctx context.Context, host string) ([]AddressRecord, error)

// DefaultLookupHost resolves through the system resolver.
func DefaultLookupHost(ctx context.Context, host string) ([]AddressRecord, error) {
	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	out := make([]AddressRecord, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, AddressRecord{Address: a, IPv6: strings.IndexByte(a, ':') >= 0})
	}
	return out, nil
}

// ValidateURL runs every pre-contact gate against one candidate URL:
// scheme, hostname presence, localhost, allowlist, literal-IP
// classification, and for DNS names the resolution guard. The allowlist
// and the IP checks are independent gates; an allowlisted name that
// resolves into a blocked range is still rejected.
//
// A nil lookup falls back to DefaultLookupHost.
func ValidateURL(ctx context.Context, rawURL string, allow []HostPattern, lookup LookupHostFunc) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return unsafeURL(rawURL, "unparseable url")
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return unsafeURL(rawURL, fmt.Sprintf("disallowed protocol %q", u.Scheme))
	}
	host := strings.ToLower(strings.TrimSpace(u.Hostname()))
	if host == "" {
		return unsafeURL(rawURL, "missing hostname")
	}
	if host == "localhost" {
		return unsafeURL(rawURL, "localhost is not a permitted target")
	}

	literal := ipcheck.IsLiteral(host)
	if !literal {
		// Punycode-normalize before any name comparison; a hostname the
		// IDNA profile rejects never reaches the resolver.
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return unsafeURL(rawURL, fmt.Sprintf("invalid hostname %q", host))
		}
		host = ascii
	}

	if !HostAllowed(host, allow) {
		return unsafeURL(rawURL, fmt.Sprintf("host %q is not allowlisted", host))
	}

	if literal {
		if c := ipcheck.Classify(host); c.Blocked {
			return unsafeURL(rawURL, c.Reason)
		}
		return nil
	}
	return checkResolved(ctx, rawURL, host, lookup)
}

// checkResolved rejects the hostname if resolution fails, yields no
// addresses, or yields any blocked address. One bad record poisons the
// whole set: the guard cannot control which address the transport will
// actually dial.
func checkResolved(ctx context.Context, rawURL, host string, lookup LookupHostFunc) error {
	if lookup == nil {
		lookup = DefaultLookupHost
	}
	records, err := lookup(ctx, host)
	if err != nil {
		return unsafeURL(rawURL, fmt.Sprintf("resolution failed for %q: %v", host, err))
	}
	if len(records) == 0 {
		return unsafeURL(rawURL, fmt.Sprintf("no addresses for %q", host))
	}
	for _, rec := range records {
		var c ipcheck.Classification
		if rec.IPv6 {
			c = ipcheck.ClassifyIPv6(rec.Address)
		} else {
			c = ipcheck.ClassifyIPv4(rec.Address)
		}
		if c.Blocked {
			return unsafeURL(rawURL, fmt.Sprintf("%q resolves to %s: %s", host, rec.Address, c.Reason))
		}
	}
	return nil
}
