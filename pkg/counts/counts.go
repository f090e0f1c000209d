// Package counts converts the abbreviated counters shown on profile and post
// pages ("1,234", "12.3K", "3M") into integers.
package counts

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// leadingNumber matches the numeric prefix a lenient float parser would accept.
var leadingNumber = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?`)

// Parse returns the integer value of a displayed counter.
//
// Thousands separators are stripped, the leading number is parsed, and a
// k/K, M or B marker anywhere in the original text scales it. Anything that
// does not start with a number yields 0. The result is never negative.
func Parse(text string) int64 {
	stripped := strings.TrimSpace(strings.ReplaceAll(text, ",", ""))

	literal := leadingNumber.FindString(stripped)
	if literal == "" {
		return 0
	}
	value, err := strconv.ParseFloat(literal, 64)
	if err != nil && !isRangeErr(err) {
		return 0
	}

	value *= multiplier(text)

	if math.IsNaN(value) || value <= 0 {
		return 0
	}
	value = math.Round(value)
	if value >= float64(math.MaxInt64) {
		return math.MaxInt64
	}
	return int64(value)
}

// multiplier checks the unstripped text, so "12.3K" scales even though the
// parsed literal is "12.3".
func multiplier(text string) float64 {
	switch {
	case strings.ContainsAny(text, "kK"):
		return 1_000
	case strings.Contains(text, "M"):
		return 1_000_000
	case strings.Contains(text, "B"):
		return 1_000_000_000
	default:
		return 1
	}
}

// isRangeErr reports an overflow from ParseFloat, which still returns ±Inf
func isRangeErr(err error) bool {
	numErr, ok := err.(*strconv.NumError)
	return ok && numErr.Err == strconv.ErrRange
}
