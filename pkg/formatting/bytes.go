// Package formatting provides human-readable formatting and parsing for byte
// sizes and percentages shown to users and read from configuration.
package formatting

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var units = []string{"B", "KB", "MB", "GB", "TB", "PB"}

var sizePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([A-Za-z]*)$`)

// FormatBytes renders n using base-1024 units, e.g. 1536 -> "1.5 KB".
func FormatBytes(n int64, precision int) string {
	if n <= 0 {
		return "0 B"
	}
	precision = max(precision, 0)

	exp := min(int(math.Log(float64(n))/math.Log(1024)), len(units)-1)
	if exp == 0 {
		return strconv.FormatInt(n, 10) + " B"
	}

	size := float64(n) / math.Pow(1024, float64(exp))
	return strconv.FormatFloat(size, 'f', precision, 64) + " " + units[exp]
}

// ParseBytes parses sizes such as "50MB", "1.5 gb", "512KiB" or "2048".
// A bare number is bytes. Units are base-1024; an "iB" suffix is accepted.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid byte size: %q", s)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size number: %w", err)
	}

	unit := strings.ToUpper(m[2])
	if unit == "" {
		return int64(value), nil
	}
	if len(unit) == 3 && strings.HasSuffix(unit, "IB") {
		unit = unit[:1] + "B"
	}
	if len(unit) == 1 && unit != "B" {
		unit += "B"
	}

	exp := slices.Index(units, unit)
	if exp < 0 {
		return 0, fmt.Errorf("unknown byte size unit: %q", m[2])
	}

	return int64(value * math.Pow(1024, float64(exp))), nil
}

// FormatPercent renders a 0-100 progress value, clamping out-of-range input.
func FormatPercent(p int) string {
	return strconv.Itoa(min(max(p, 0), 100)) + "%"
}
