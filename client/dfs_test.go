package client

import (
	"testing"
	"time"
)

func TestSplitUNC(t *testing.T) {
	cases := []struct {
		path                        string
		server, share, rest, errMsg string
	}{
		{`\\fileserver\shared\docs\report.docx`, "fileserver", "shared", `docs\report.docx`, ""},
		{`\\fileserver\shared`, "fileserver", "shared", "", ""},
		{`\\fileserver`, "", "", "", "malformed"},
		{`\\\shared`, "", "", "", "malformed"},
	}
	for _, c := range cases {
		server, share, rest, err := splitUNC(c.path)
		if c.errMsg != "" {
			if err == nil {
				t.Errorf("splitUNC(%q) error = nil, want error", c.path)
			}
			continue
		}
		if err != nil {
			t.Errorf("splitUNC(%q) unexpected error: %v", c.path, err)
			continue
		}
		if server != c.server || share != c.share || rest != c.rest {
			t.Errorf("splitUNC(%q) = (%q, %q, %q), want (%q, %q, %q)", c.path, server, share, rest, c.server, c.share, c.rest)
		}
	}
}

func TestReferralCache_PositiveRoundTrip(t *testing.T) {
	c := newReferralCache(4, time.Second)
	targets := []RootReferralTarget{{Server: "fs1", Share: "data", TTL: time.Minute}}
	c.put(`\\domain\dfsroot\link`, targets, time.Minute)

	got, ok := c.get(`\\domain\dfsroot\link`)
	if !ok {
		t.Fatal("get() ok = false, want true")
	}
	if len(got) != 1 || got[0].Server != "fs1" {
		t.Errorf("get() = %+v, want %+v", got, targets)
	}
}

func TestReferralCache_PositiveExpires(t *testing.T) {
	c := newReferralCache(4, time.Second)
	targets := []RootReferralTarget{{Server: "fs1", Share: "data"}}
	c.put("link", targets, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.get("link"); ok {
		t.Error("get() ok = true for expired entry, want false")
	}
}

func TestReferralCache_NegativeCaching(t *testing.T) {
	c := newReferralCache(4, 20*time.Millisecond)
	if c.isNegative("link") {
		t.Fatal("isNegative() = true before markNegative, want false")
	}
	c.markNegative("link")
	if !c.isNegative("link") {
		t.Error("isNegative() = false right after markNegative, want true")
	}
	time.Sleep(30 * time.Millisecond)
	if c.isNegative("link") {
		t.Error("isNegative() = true after negativeTTL elapsed, want false")
	}
}

func TestReferralCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newReferralCache(2, time.Minute)
	c.put("a", []RootReferralTarget{{Server: "a"}}, time.Minute)
	c.put("b", []RootReferralTarget{{Server: "b"}}, time.Minute)
	c.get("a") // touch a, making b the least-recently-used
	c.put("c", []RootReferralTarget{{Server: "c"}}, time.Minute)

	if _, ok := c.get("b"); ok {
		t.Error("get(\"b\") ok = true, want evicted")
	}
	if _, ok := c.get("a"); !ok {
		t.Error("get(\"a\") ok = false, want still cached")
	}
	if _, ok := c.get("c"); !ok {
		t.Error("get(\"c\") ok = false, want cached")
	}
}
