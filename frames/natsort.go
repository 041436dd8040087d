package frames

import (
	"slices"
	"strings"
)

// Compare orders two names naturally: runs of digits compare by numeric
// value, everything else compares case-insensitively. It returns -1, 0 or 1.
func Compare(a, b string) int {
	for a != "" && b != "" {
		ra, da := nextRun(a)
		rb, db := nextRun(b)
		a, b = a[len(ra):], b[len(rb):]
		var c int
		switch {
		case da && db:
			c = compareDigits(ra, rb)
		case da:
			// Numbers sort before text at the same position.
			c = -1
		case db:
			c = 1
		default:
			c = strings.Compare(strings.ToLower(ra), strings.ToLower(rb))
		}
		if c != 0 {
			return c
		}
	}
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	default:
		return 1
	}
}

// Sort sorts names in natural order. Ties keep their input order.
func Sort(names []string) {
	slices.SortStableFunc(names, Compare)
}

// nextRun returns the leading run of s that is either all digits or free of
// digits.
func nextRun(s string) (run string, digits bool) {
	digits = isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digits {
		i++
	}
	return s[:i], digits
}

// compareDigits compares decimal strings of any length by value.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
