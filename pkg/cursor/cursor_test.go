package cursor

import (
	"net/url"
	"strings"
	"testing"
)

var testQuery = Query{
	BaseURL:    "https://api.example.com/v3/reference/tickers",
	Market:     "stocks",
	ActiveOnly: true,
	Order:      "asc",
	Limit:      1000,
	Sort:       "ticker",
}

func TestFresh_Resolve(t *testing.T) {
	target, err := Fresh().Resolve(testQuery)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	u, err := url.Parse(target)
	if err != nil {
		t.Fatalf("Resolve() produced invalid URL: %v", err)
	}

	params := u.Query()
	want := map[string]string{
		"market": "stocks",
		"active": "true",
		"order":  "asc",
		"limit":  "1000",
		"sort":   "ticker",
	}
	for k, v := range want {
		if got := params.Get(k); got != v {
			t.Errorf("param %s = %q, want %q", k, got, v)
		}
	}

	if strings.Contains(target, "apiKey") {
		t.Error("target must not carry the API credential")
	}
}

func TestResume_ResolveReplaysTokenVerbatim(t *testing.T) {
	// Tokens are opaque; even URL-hostile content must pass through untouched.
	tokens := []string{
		"https://api.example.com/v3/reference/tickers?cursor=YXBwbGU9",
		"opaque junk %%% not a url",
	}

	for _, tok := range tokens {
		target, err := Resume(tok).Resolve(testQuery)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", tok, err)
		}
		if target != tok {
			t.Errorf("Resolve() = %q, want token replayed verbatim %q", target, tok)
		}
	}
}

func TestResume_EmptyTokenIsFresh(t *testing.T) {
	if !Resume("").IsFresh() {
		t.Error("Resume(\"\") should be fresh")
	}
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name     string
		next     string
		wantDone bool
	}{
		{name: "continuation present", next: "tok1", wantDone: false},
		{name: "no continuation", next: "", wantDone: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Fresh().Advance(tt.next)

			if c.Done() != tt.wantDone {
				t.Errorf("Done() = %v, want %v", c.Done(), tt.wantDone)
			}
			if c.IsFresh() {
				t.Error("advanced cursor must never be fresh again")
			}
			if !tt.wantDone && c.Token() != tt.next {
				t.Errorf("Token() = %q, want %q", c.Token(), tt.next)
			}
		})
	}
}

func TestResolve_TerminalCursorFails(t *testing.T) {
	c := Fresh().Advance("")
	if _, err := c.Resolve(testQuery); err == nil {
		t.Error("Resolve() on terminal cursor should fail")
	}
}
