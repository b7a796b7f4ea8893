// Package inr formats rupee amounts using the Indian numbering convention:
// the last three digits form one group, every group above that has two.
package inr

import "strconv"

// Group returns n with Indian-style digit grouping, e.g. 1500000 -> "15,00,000".
func Group(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	if len(s) > 3 {
		last3 := s[len(s)-3:]
		rest := s[:len(s)-3]
		var grouped string
		for len(rest) > 2 {
			grouped = "," + rest[len(rest)-2:] + grouped
			rest = rest[:len(rest)-2]
		}
		s = rest + grouped + "," + last3
	}
	if neg {
		return "-" + s
	}
	return s
}

// Format renders an amount for plain-text documents. The "Rs " prefix stands
// in for the rupee sign, which many monospace renderers lack.
func Format(n int64) string {
	return "Rs " + Group(n)
}
