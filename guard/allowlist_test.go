package guard

import "testing"

func TestParseHostPatterns(t *testing.T) {
	patterns := ParseHostPatterns([]string{
		"Example.com",
		" *.Wiki.org ",
		".corp.net",
		"",
		"   ",
		".",
		"*.",
	})
	if len(patterns) != 3 {
		t.Fatalf("expected 3 patterns, got %d", len(patterns))
	}
}

func TestHostPatternMatching(t *testing.T) {
	cases := []struct {
		name    string
		entries []string
		host    string
		want    bool
	}{
		{"exact", []string{"example.com"}, "example.com", true},
		{"exact_case_insensitive", []string{"Example.COM"}, "EXAMPLE.com", true},
		{"exact_no_subdomain", []string{"example.com"}, "api.example.com", false},
		{"wildcard_subdomain", []string{"*.example.com"}, "api.example.com", true},
		{"wildcard_bare_domain", []string{"*.example.com"}, "example.com", true},
		{"wildcard_deep", []string{"*.example.com"}, "a.b.example.com", true},
		{"wildcard_no_partial", []string{"*.example.com"}, "notexample.com", false},
		{"dot_suffix", []string{".example.com"}, "api.example.com", true},
		{"dot_suffix_bare", []string{".example.com"}, "example.com", true},
		{"unrelated", []string{"example.com"}, "evil.com", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := HostAllowed(tc.host, ParseHostPatterns(tc.entries))
			if got != tc.want {
				t.Fatalf("HostAllowed(%q, %v) = %v, want %v", tc.host, tc.entries, got, tc.want)
			}
		})
	}
}

func TestHostAllowed_EmptyListIsUnrestricted(t *testing.T) {
	if !HostAllowed("anything.example", nil) {
		t.Fatal("empty allowlist must not restrict")
	}
	if !HostAllowed("anything.example", []HostPattern{}) {
		t.Fatal("empty allowlist must not restrict")
	}
}

func TestDefaultAllowlist_ReplaceWholesale(t *testing.T) {
	prev := DefaultAllowlist()
	defer defaultAllowlist.Store(prev)

	SetDefaultAllowlist([]string{"example.com", "*.wiki.org"})
	got := DefaultAllowlist()
	if len(got) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(got))
	}
	if !HostAllowed("sub.wiki.org", got) || HostAllowed("evil.com", got) {
		t.Fatalf("unexpected matching behavior: %v", got)
	}

	SetDefaultAllowlist(nil)
	if len(DefaultAllowlist()) != 0 {
		t.Fatal("expected empty allowlist after replacing with nil")
	}
}

func TestAllowlistFromEnv(t *testing.T) {
	t.Setenv(EnvAllowlist, " Example.com, *.Wiki.org ,, .corp.net ")
	got := allowlistFromEnv()
	if len(got) != 3 {
		t.Fatalf("expected 3 patterns, got %d", len(got))
	}
	if !HostAllowed("example.com", got) || !HostAllowed("a.wiki.org", got) || !HostAllowed("x.corp.net", got) {
		t.Fatalf("env allowlist did not match expected hosts: %v", got)
	}

	t.Setenv(EnvAllowlist, "")
	if got := allowlistFromEnv(); len(got) != 0 {
		t.Fatalf("expected empty allowlist from empty env, got %v", got)
	}
}
