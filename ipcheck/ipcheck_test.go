package ipcheck

import "testing"

func TestClassifyIPv4_BlockedRanges(t *testing.T) {
	cases := []struct {
		addr string
		want bool
	}{
		{"10.0.0.1", true},
		{"10.255.255.255", true},
		{"172.16.5.5", true},
		{"172.31.255.1", true},
		{"172.32.0.1", false},
		{"192.168.1.1", true},
		{"127.0.0.1", true},
		{"127.255.255.254", true},
		{"169.254.1.1", true},
		{"169.254.169.254", true},
		{"0.0.0.0", true},
		{"0.1.2.3", true},
		{"100.64.0.1", true},
		{"100.127.255.255", true},
		{"100.128.0.1", false},
		{"192.0.0.1", true},
		{"192.0.1.1", false},
		{"198.18.0.1", true},
		{"198.19.255.255", true},
		{"198.20.0.1", false},
		{"224.0.0.1", true},
		{"239.255.255.255", true},
		{"8.8.8.8", false},
		{"1.1.1.1", false},
		{"93.184.216.34", false},
	}
	for _, tc := range cases {
		t.Run(tc.addr, func(t *testing.T) {
			got := ClassifyIPv4(tc.addr)
			if got.Blocked != tc.want {
				t.Fatalf("ClassifyIPv4(%q).Blocked = %v (reason=%q), want %v", tc.addr, got.Blocked, got.Reason, tc.want)
			}
			if got.Blocked && got.Reason == "" {
				t.Fatalf("ClassifyIPv4(%q) blocked without a reason", tc.addr)
			}
		})
	}
}

func TestClassifyIPv4_MalformedIsBlocked(t *testing.T) {
	cases := []string{
		"",
		"1.2.3",
		"1.2.3.4.5",
		"256.1.1.1",
		"999.1.1.1",
		"1.2.3.x",
		"1..3.4",
		"01.2.3.4", // octal-style leading zero
		"1.2.3.",
	}
	for _, addr := range cases {
		t.Run(addr, func(t *testing.T) {
			got := ClassifyIPv4(addr)
			if !got.Blocked {
				t.Fatalf("ClassifyIPv4(%q) = public, want blocked (fail closed)", addr)
			}
		})
	}
}

func TestClassifyIPv6(t *testing.T) {
	cases := []struct {
		addr string
		want bool
	}{
		{"::1", true},
		{"::", true},
		{"fc00::1", true},
		{"fdff:ffff::1", true},
		{"fe80::1", true},
		{"febf::1", true},
		{"fec0::1", false}, // just past fe80::/10
		{"2606:4700:4700::1111", false},
		{"2001:4860:4860::8888", false},
	}
	for _, tc := range cases {
		t.Run(tc.addr, func(t *testing.T) {
			got := ClassifyIPv6(tc.addr)
			if got.Blocked != tc.want {
				t.Fatalf("ClassifyIPv6(%q).Blocked = %v (reason=%q), want %v", tc.addr, got.Blocked, got.Reason, tc.want)
			}
		})
	}
}

func TestClassifyIPv6_EmbeddedIPv4(t *testing.T) {
	cases := []struct {
		addr string
		want bool
	}{
		{"::ffff:10.0.0.1", true},
		{"::ffff:192.168.1.1", true},
		{"::ffff:169.254.169.254", true},
		{"::ffff:8.8.8.8", false},
		{"::ffff:a00:1", true},    // hex-mapped 10.0.0.1
		{"::ffff:808:808", false}, // hex-mapped 8.8.8.8
		{"0:0:0:0:0:ffff:127.0.0.1", true},
		{"::ffff:999.0.0.1", true}, // malformed quad fails closed
	}
	for _, tc := range cases {
		t.Run(tc.addr, func(t *testing.T) {
			got := ClassifyIPv6(tc.addr)
			if got.Blocked != tc.want {
				t.Fatalf("ClassifyIPv6(%q).Blocked = %v (reason=%q), want %v", tc.addr, got.Blocked, got.Reason, tc.want)
			}
		})
	}
}

func TestClassifyIPv6_MalformedIsBlocked(t *testing.T) {
	cases := []string{
		"",
		":",
		"1::2::3",
		"fe80::1%eth0",
		"[::1]",
		"12345::",
		"1:2:3:4:5:6:7",
		"1:2:3:4:5:6:7:8:9",
		"gggg::1",
	}
	for _, addr := range cases {
		t.Run(addr, func(t *testing.T) {
			got := ClassifyIPv6(addr)
			if !got.Blocked {
				t.Fatalf("ClassifyIPv6(%q) = public, want blocked (fail closed)", addr)
			}
		})
	}
}

func TestIsLiteral(t *testing.T) {
	cases := []struct {
		host string
		want bool
	}{
		{"10.0.0.1", true},
		{"999.1.1.1", true}, // malformed literal still must be classified
		{"::1", true},
		{"example.com", false},
		{"10.example.com", false},
		{"localhost", false},
		{"", false},
	}
	for _, tc := range cases {
		t.Run(tc.host, func(t *testing.T) {
			if got := IsLiteral(tc.host); got != tc.want {
				t.Fatalf("IsLiteral(%q) = %v, want %v", tc.host, got, tc.want)
			}
		})
	}
}

func TestContainment(t *testing.T) {
	addr, ok := parseIPv4("203.0.113.9")
	if !ok {
		t.Fatal("parseIPv4 failed")
	}
	if !v4Contains(0, 0, addr) {
		t.Fatal("prefix 0 must match every address")
	}
	if v4Contains(0, 33, addr) || v4Contains(0, -1, addr) {
		t.Fatal("out-of-range v4 prefix must match nothing")
	}

	v6, _, ok := parseIPv6("2606:4700:4700::1111")
	if !ok {
		t.Fatal("parseIPv6 failed")
	}
	if !v6Contains(uint128{}, 0, v6) {
		t.Fatal("prefix 0 must match every v6 address")
	}
	if v6Contains(uint128{}, 129, v6) || v6Contains(uint128{}, -1, v6) {
		t.Fatal("out-of-range v6 prefix must match nothing")
	}
	// Mask boundary straddling the two words.
	base, _, _ := parseIPv6("2606:4700:4700::")
	if !v6Contains(base, 65, v6) {
		t.Fatal("expected match at prefix 65 across the word boundary")
	}
}

func TestClassifyIsPure(t *testing.T) {
	for _, addr := range []string{"10.0.0.1", "8.8.8.8", "::1", "2606:4700:4700::1111", "bogus"} {
		first := Classify(addr)
		second := Classify(addr)
		if first != second {
			t.Fatalf("Classify(%q) not idempotent: %+v then %+v", addr, first, second)
		}
	}
}
