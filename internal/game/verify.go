package game

import (
	"context"
	"math/big"
	"strings"
	"unicode"
)

// Verifier decides whether a guess matches the secret. The local one compares
// against the cached read; a contract-side one can replace it without
// touching the controller.
type Verifier interface {
	Verify(ctx context.Context, guess string, secret *big.Int) (bool, error)
}

// LocalVerifier compares loosely against the cached secret
type LocalVerifier struct{}

func (LocalVerifier) Verify(_ context.Context, guess string, secret *big.Int) (bool, error) {
	return LooseEqual(guess, secret), nil
}

// LooseEqual reports whether the entered text equals the secret the way an
// abstract string-to-integer comparison would. An unknown secret never matches.
func LooseEqual(guess string, secret *big.Int) bool {
	if secret == nil {
		return false
	}
	n, ok := ParseLoose(guess)
	return ok && n.Cmp(secret) == 0
}

// ParseLoose converts user text to an integer: surrounding whitespace is
// ignored, blank text is zero, decimals may carry a sign, and 0x/0o/0b
// prefixes select the base. Fractions, exponents and separators are rejected.
func ParseLoose(s string) (*big.Int, bool) {
	s = strings.TrimFunc(s, isSpace)
	if s == "" {
		return new(big.Int), true
	}

	base := 10
	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 10 {
			s = s[2:]
		}
	}

	digits := s
	if base == 10 && (s[0] == '+' || s[0] == '-') {
		digits = s[1:]
	}
	if digits == "" {
		return nil, false
	}
	for _, r := range digits {
		if !isDigit(r, base) {
			return nil, false
		}
	}

	n, ok := new(big.Int).SetString(s, base)
	return n, ok
}

func isDigit(r rune, base int) bool {
	switch base {
	case 2:
		return r == '0' || r == '1'
	case 8:
		return r >= '0' && r <= '7'
	case 16:
		return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
	default:
		return r >= '0' && r <= '9'
	}
}

func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', '\u00a0', '\ufeff', '\u2028', '\u2029':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}
