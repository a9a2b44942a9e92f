package probe

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrVersionUnresolved is returned when no parseable version token exists in
// the probed output. The probe input is deterministic command output, so the
// caller gains nothing by retrying.
var ErrVersionUnresolved = errors.New("no version token found in command output")

// Wildcard marks a token component that satisfies any minimum.
const Wildcard = -1

// Token is the normalized, comparable representation of a detected version:
// an ordered tuple of non-negative components (major, minor, patch), any of
// which may be Wildcard. A missing trailing component is absent, not zero.
type Token []int

// versionPattern matches one to three dot-separated groups, each digits or
// the "*" wildcard marker. For "javac 1.8.0_112" it matches "1.8.0".
var versionPattern = regexp.MustCompile(`(\d+|\*)(\.(\d+|\*)){0,2}`)

// ExtractVersion scans raw free-form text for the first version-shaped
// substring and returns it as a Token. Returns ErrVersionUnresolved if the
// text contains nothing version-shaped.
func ExtractVersion(raw string) (Token, error) {
	match := versionPattern.FindString(raw)
	if match == "" {
		return nil, ErrVersionUnresolved
	}
	return ParseToken(match)
}

// ParseToken parses an explicit dotted version string like "1.8" or "3.3.6".
func ParseToken(s string) (Token, error) {
	groups := strings.Split(s, ".")
	if len(groups) == 0 || len(groups) > 3 {
		return nil, ErrVersionUnresolved
	}
	tok := make(Token, 0, len(groups))
	for _, g := range groups {
		if g == "*" {
			tok = append(tok, Wildcard)
			continue
		}
		n, err := strconv.Atoi(g)
		if err != nil {
			return nil, ErrVersionUnresolved
		}
		tok = append(tok, n)
	}
	return tok, nil
}

// AtLeast reports whether actual satisfies minimum, comparing component-wise
// left to right over minimum's declared length only: a 1.8.3 actual satisfies
// a 1.8 minimum. A component actual lacks is compared as 0. Wildcard
// components satisfy unconditionally.
func AtLeast(actual, minimum Token) bool {
	for i, min := range minimum {
		if min == Wildcard {
			continue
		}
		a := 0
		if i < len(actual) {
			a = actual[i]
		}
		if a == Wildcard {
			continue
		}
		if a > min {
			return true
		}
		if a < min {
			return false
		}
	}
	return true
}

// String renders the token back in dotted form.
func (t Token) String() string {
	parts := make([]string, len(t))
	for i, c := range t {
		if c == Wildcard {
			parts[i] = "*"
			continue
		}
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ".")
}
