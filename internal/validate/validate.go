// Package validate checks and sanitizes parameter values received from bridge
// clients before they reach any handler or store.
package validate

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxQueryLength is the longest accepted search query, in characters.
	MaxQueryLength = 200
	// MaxSkipSeconds bounds a single skip.
	MaxSkipSeconds = 3600
	// MaxPositionSeconds bounds an absolute position (24h).
	MaxPositionSeconds = 86400
	// DefaultMaxLimit is the default upper bound for result limits.
	DefaultMaxLimit = 100
	// MaxSanitizedLength is the length Sanitize truncates to.
	MaxSanitizedLength = 500
)

// idPattern matches positive integers without leading zeros, at most 19 digits.
var idPattern = regexp.MustCompile(`^[1-9][0-9]{0,18}$`)

// queryPattern allows letters of any script, combining marks, digits, space
// separators and a small punctuation set.
var queryPattern = regexp.MustCompile(`^[\p{L}\p{M}\p{N}\p{Zs}\-_.,!?'"()]+$`)

// validSpeeds is the discrete set of accepted playback speeds.
var validSpeeds = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0, 2.5, 3.0}

// Error describes why a value was rejected.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsValidationError reports whether err is a validation failure.
func IsValidationError(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

func invalid(format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// ID checks that value is a positive integer id.
func ID(value string) error {
	if value == "" {
		return invalid("ID is required")
	}
	if !idPattern.MatchString(value) {
		return invalid("Invalid ID format: %s", value)
	}
	return nil
}

// ParseID validates value and converts it to an int64.
func ParseID(value string) (int64, error) {
	if err := ID(value); err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, invalid("ID out of range: %s", value)
	}
	return id, nil
}

// SearchQuery checks that value is a safe search term.
func SearchQuery(value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid("Search query is required")
	}
	if utf8.RuneCountInString(value) > MaxQueryLength {
		return invalid("Search query too long (max %d characters)", MaxQueryLength)
	}
	if !queryPattern.MatchString(value) {
		return invalid("Search query contains invalid characters")
	}
	return nil
}

// Speed checks that value is one of the supported playback speeds.
func Speed(value string) error {
	_, err := ParseSpeed(value)
	return err
}

// ParseSpeed validates value and returns it as a float.
func ParseSpeed(value string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err == nil && !math.IsNaN(v) {
		for _, s := range validSpeeds {
			if v == s {
				return v, nil
			}
		}
	}
	return 0, invalid("Invalid playback speed: %s. Valid speeds: %s", value, speedList())
}

// ValidSpeeds returns a copy of the accepted playback speeds.
func ValidSpeeds() []float64 {
	return append([]float64(nil), validSpeeds...)
}

// FormatSpeed renders a speed with at least one decimal place ("1.0", "1.25").
func FormatSpeed(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func speedList() string {
	parts := make([]string, len(validSpeeds))
	for i, s := range validSpeeds {
		parts[i] = FormatSpeed(s)
	}
	return strings.Join(parts, ", ")
}

// SkipSeconds checks a skip amount (1..3600).
func SkipSeconds(value string) error {
	_, err := ParseSkipSeconds(value)
	return err
}

// ParseSkipSeconds validates and converts a skip amount.
func ParseSkipSeconds(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, invalid("Invalid skip seconds: %s", value)
	}
	if n <= 0 || n > MaxSkipSeconds {
		return 0, invalid("Skip seconds must be between 1 and %d", MaxSkipSeconds)
	}
	return n, nil
}

// Position checks an absolute position in seconds (0..86400).
func Position(value string) error {
	_, err := ParsePosition(value)
	return err
}

// ParsePosition validates and converts an absolute position.
func ParsePosition(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, invalid("Invalid position: %s", value)
	}
	if n < 0 || n > MaxPositionSeconds {
		return 0, invalid("Position must be between 0 and %d", MaxPositionSeconds)
	}
	return n, nil
}

// Limit checks a result limit. An empty value is valid and means "use the
// caller's default".
func Limit(value string, maxAllowed int) error {
	_, err := ParseLimit(value, 0, maxAllowed)
	return err
}

// ParseLimit validates value, returning def when value is empty.
func ParseLimit(value string, def, maxAllowed int) (int, error) {
	if maxAllowed <= 0 {
		maxAllowed = DefaultMaxLimit
	}
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, invalid("Invalid limit: %s", value)
	}
	if n <= 0 || n > maxAllowed {
		return 0, invalid("Limit must be between 1 and %d", maxAllowed)
	}
	return n, nil
}

// Sanitize strips quoting and markup characters, collapses whitespace and
// bounds the length. It is applied to already-validated values before they
// are forwarded downstream. Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	pendingSpace := false
	for _, r := range input {
		switch {
		case r == '<' || r == '>' || r == '"' || r == '\'':
			continue
		case unicode.IsSpace(r):
			pendingSpace = true
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteRune(r)
	}

	out := b.String()
	if utf8.RuneCountInString(out) > MaxSanitizedLength {
		out = string([]rune(out)[:MaxSanitizedLength])
		out = strings.TrimRightFunc(out, unicode.IsSpace)
	}
	return out
}
