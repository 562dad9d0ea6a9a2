package session

import (
	"strings"
	"testing"
)

func TestIssueProducesUniqueTokens(t *testing.T) {
	issuer := NewRandomIssuer()
	seen := make(map[Token]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		token, err := issuer.Issue()
		if err != nil {
			t.Fatalf("unexpected issue error: %v", err)
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("token issued twice: %s", token)
		}
		seen[token] = struct{}{}
	}
}

func TestIssueTokenShape(t *testing.T) {
	issuer := NewRandomIssuer()
	token, err := issuer.Issue()
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}
	parts := strings.Split(token.String(), ".")
	if len(parts) != 2 {
		t.Fatalf("expected two random components, got %d", len(parts))
	}
	if len(parts[0]) != 36 {
		t.Fatalf("unexpected uuid component length %d", len(parts[0]))
	}
	if len(parts[1]) != randomSuffixBytes*2 {
		t.Fatalf("unexpected suffix length %d", len(parts[1]))
	}
	if len(token) > maxTokenLength {
		t.Fatalf("token exceeds storage bound: %d", len(token))
	}
}

func TestParseTokenRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "whitespace", input: "   "},
		{name: "too-long", input: strings.Repeat("a", maxTokenLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.input); err == nil {
				t.Fatalf("expected parse error for %q", tt.input)
			}
		})
	}
}

func TestParseTokenTrimsWhitespace(t *testing.T) {
	token, err := ParseToken("  abc123  ")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if token.String() != "abc123" {
		t.Fatalf("expected trimmed token, got %q", token)
	}
}
