package helpers

import (
	"net/url"
	"strings"
	"testing"
)

func TestCanonicalURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases host and cleans path",
			in:   "https://Support.Example.com/kb/../knowledge-base/setup",
			want: "https://support.example.com/knowledge-base/setup",
		},
		{
			name: "removes default port and tracking params",
			in:   "http://support.example.com:80/knowledge-base/vpn?id=7&utm_source=slack#steps",
			want: "http://support.example.com/knowledge-base/vpn?id=7",
		},
		{
			name: "sorts query parameters and preserves trailing slash",
			in:   "https://support.example.com/knowledge-base/?b=2&a=1&fbclid=xyz",
			want: "https://support.example.com/knowledge-base/?a=1&b=2",
		},
		{
			name: "normalises repeated slashes",
			in:   "https://support.example.com//knowledge-base///printers",
			want: "https://support.example.com/knowledge-base/printers",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := CanonicalURL(tt.in)
			if err != nil {
				t.Fatalf("CanonicalURL() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("CanonicalURL() got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalURLErrors(t *testing.T) {
	t.Parallel()
	if _, err := CanonicalURL(""); err == nil {
		t.Fatal("expected error for empty input")
	}
	if _, err := CanonicalURL("/relative/only"); err == nil {
		t.Fatal("expected error for url without host")
	}
}

func TestResolveRef(t *testing.T) {
	t.Parallel()
	base, err := url.Parse("https://support.example.com/knowledge-base/")
	if err != nil {
		t.Fatal(err)
	}

	got, err := ResolveRef(base, "../knowledge-base/wifi-setup")
	if err != nil {
		t.Fatalf("ResolveRef() error = %v", err)
	}
	if want := "https://support.example.com/knowledge-base/wifi-setup"; got != want {
		t.Fatalf("ResolveRef() got %q, want %q", got, want)
	}

	for _, bad := range []string{"", "#anchor", "mailto:it@example.com", "javascript:void(0)"} {
		if _, err := ResolveRef(base, bad); err == nil {
			t.Errorf("ResolveRef(%q) expected error", bad)
		}
	}
}

func TestURLFingerprint(t *testing.T) {
	t.Parallel()
	a, err := URLFingerprint("https://support.example.com/knowledge-base/vpn?utm_source=x")
	if err != nil {
		t.Fatalf("URLFingerprint() error = %v", err)
	}
	b, err := URLFingerprint("https://SUPPORT.example.com/knowledge-base/vpn")
	if err != nil {
		t.Fatalf("URLFingerprint() error = %v", err)
	}
	if a != b {
		t.Fatalf("equivalent urls fingerprint differently: %s vs %s", a, b)
	}
	if len(a) != 64 || strings.ToLower(a) != a {
		t.Fatalf("fingerprint %q is not lowercase sha256 hex", a)
	}
}
