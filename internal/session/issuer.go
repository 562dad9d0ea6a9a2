package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	// randomSuffixBytes is read from crypto/rand and appended to the UUID so a
	// token carries two independent random components.
	randomSuffixBytes = 16

	maxTokenLength = 190
)

// ErrInvalidToken indicates that a session token is empty or exceeds storage bounds.
var ErrInvalidToken = errors.New("session: invalid token")

// Token is an opaque session identifier scoping one generation-then-vote
// interaction to exactly one allowed vote. It carries no embedded meaning.
type Token string

// ParseToken validates raw client input and returns a Token.
func ParseToken(rawInput string) (Token, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidToken)
	}
	if len(trimmed) > maxTokenLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidToken, maxTokenLength)
	}
	return Token(trimmed), nil
}

// String returns the underlying token value.
func (t Token) String() string {
	return string(t)
}

// Issuer mints session tokens. Issuing has no side effects beyond token
// generation and never persists anything.
type Issuer interface {
	Issue() (Token, error)
}

type randomIssuer struct{}

// NewRandomIssuer constructs an Issuer that concatenates a UUIDv4 with 128
// bits from crypto/rand, giving each token well over the 122-bit entropy floor
// required for negligible collision probability.
func NewRandomIssuer() Issuer {
	return &randomIssuer{}
}

func (i *randomIssuer) Issue() (Token, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	suffix := make([]byte, randomSuffixBytes)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	return Token(id.String() + "." + hex.EncodeToString(suffix)), nil
}
