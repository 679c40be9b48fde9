package kb

import (
	"strings"
	"testing"
)

func TestMatches(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		text  string
		query string
		want  bool
	}{
		{
			name:  "full phrase present",
			text:  "how to configure vpn access from home",
			query: "vpn access",
			want:  true,
		},
		{
			name:  "single token present",
			text:  "setup your workspace here",
			query: "workspace settings",
			want:  true,
		},
		{
			name:  "no token present",
			text:  "printer troubleshooting guide",
			query: "vpn access",
			want:  false,
		},
		{
			name:  "query case folded",
			text:  "reset your password in three steps",
			query: "PASSWORD Reset",
			want:  true,
		},
		{
			name:  "empty query never matches",
			text:  "anything at all",
			query: "   ",
			want:  false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Matches(tt.text, tt.query); got != tt.want {
				t.Fatalf("Matches(%q, %q) = %v, want %v", tt.text, tt.query, got, tt.want)
			}
		})
	}
}

func TestSnippetWindow(t *testing.T) {
	t.Parallel()
	pad := strings.Repeat("x", 150)
	text := pad + " vpn access steps " + strings.Repeat("y", 300)

	got := Snippet(text, "vpn access")
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("Snippet() = %q, want trailing ellipsis", got)
	}
	if !strings.Contains(got, "vpn access") {
		t.Fatalf("Snippet() = %q, want the match inside the window", got)
	}
	// idx=151; window is [51, 351], plus the ellipsis.
	if want := 300 + len("..."); len(got) != want {
		t.Fatalf("Snippet() length = %d, want %d", len(got), want)
	}
}

func TestSnippetClampsToBounds(t *testing.T) {
	t.Parallel()
	got := Snippet("vpn access is simple", "vpn access")
	if got != "vpn access is simple..." {
		t.Fatalf("Snippet() = %q", got)
	}
}

func TestSnippetEmptyWhenPhraseAbsent(t *testing.T) {
	t.Parallel()
	text := "setup your workspace here"
	query := "workspace settings"
	if !Matches(text, query) {
		t.Fatal("precondition: token match expected")
	}
	// Token-matched but full phrase absent: empty snippet by contract.
	if got := Snippet(text, query); got != "" {
		t.Fatalf("Snippet() = %q, want empty for token-only match", got)
	}
}

func TestSnippetIdempotent(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("a", 120) + " password reset " + strings.Repeat("b", 250)
	first := Snippet(text, "password reset")
	second := Snippet(text, "password reset")
	if first != second {
		t.Fatalf("Snippet() not idempotent: %q vs %q", first, second)
	}
}
