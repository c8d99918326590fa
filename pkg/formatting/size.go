// Package formatting converts byte sizes to and from their human-readable form.
package formatting

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Binary multiples accepted by ParseBytes and produced by FormatBytes.
const (
	KB int64 = 1 << (10 * (iota + 1))
	MB
	GB
	TB
)

var suffixes = []struct {
	unit string
	size int64
}{
	{"TB", TB},
	{"GB", GB},
	{"MB", MB},
	{"KB", KB},
}

// ParseBytes parses sizes such as "10MB", "512 kb", "1.5GB", or "2048".
// Units are base-1024 and case-insensitive; K, M, G, and T alone are accepted too.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	i := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.'
	})
	number, unit := s, ""
	if i >= 0 {
		number, unit = s[:i], strings.ToUpper(strings.TrimSpace(s[i:]))
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}

	switch unit {
	case "", "B":
		return int64(value), nil
	}
	if !strings.HasSuffix(unit, "B") {
		unit += "B"
	}
	for _, sfx := range suffixes {
		if sfx.unit == unit {
			return int64(value * float64(sfx.size)), nil
		}
	}
	return 0, fmt.Errorf("invalid size %q: unknown unit", s)
}

// FormatBytes renders n with the largest unit that keeps the value at or above one.
func FormatBytes(n int64, precision int) string {
	precision = max(precision, 0)
	for _, sfx := range suffixes {
		if n >= sfx.size {
			return strconv.FormatFloat(float64(n)/float64(sfx.size), 'f', precision, 64) + " " + sfx.unit
		}
	}
	return strconv.FormatInt(n, 10) + " B"
}
