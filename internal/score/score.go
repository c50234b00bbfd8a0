// Package score rates OCR candidates against per-region content
// expectations. It produces multiplicative confidence penalties and the
// hard-constraint eligibility filter used for winner selection.
package score

import (
	"strconv"
	"strings"

	"github.com/MeKo-Tech/readout/internal/regions"
)

// Penalty multipliers. All penalties stack multiplicatively; a candidate that
// fails every check approaches zero but never reaches it, so a pool of
// all-bad candidates still has a rankable maximum.
const (
	unparseableScore = 0.1
	rangePenalty     = 0.4
	shapePenalty     = 0.65
	deviationPenalty = 0.5
)

// Validation returns a multiplier in (0, 1] scaling down a candidate's
// confidence when text violates the region's expectations. prev is the
// accepted numeric reading from the previous frame, nil when unknown.
func Validation(text string, exp *regions.Expectation, prev *float64) float64 {
	if exp == nil || !exp.Numeric {
		return 1.0
	}

	cleaned := CleanNumber(text)
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return unparseableScore
	}

	s := 1.0
	if exp.Min != nil && value < *exp.Min {
		s *= rangePenalty
	}
	if exp.Max != nil && value > *exp.Max {
		s *= rangePenalty
	}
	if exp.DecimalPlaces != nil && countDecimalPlaces(cleaned) != *exp.DecimalPlaces {
		s *= shapePenalty
	}
	if exp.TotalDigits != nil && countTotalDigits(cleaned) != *exp.TotalDigits {
		s *= shapePenalty
	}
	if exp.MaxDeviation != nil && prev != nil && *exp.MaxDeviation > 0 {
		if abs(value-*prev) > *exp.MaxDeviation {
			s *= deviationPenalty
		}
	}
	return s
}

// PassesHardConstraints reports whether text satisfies the expectation's
// hard constraints (numeric parseability, min/max range, max deviation from
// prev). Failing candidates are excluded from winner selection entirely, not
// merely penalized. A nil or non-numeric expectation passes everything.
func PassesHardConstraints(text string, exp *regions.Expectation, prev *float64) bool {
	if exp == nil || !exp.Numeric {
		return true
	}
	value, ok := ParseNumber(text)
	if !ok {
		return false
	}
	if exp.Min != nil && value < *exp.Min {
		return false
	}
	if exp.Max != nil && value > *exp.Max {
		return false
	}
	if exp.MaxDeviation != nil && prev != nil && *exp.MaxDeviation > 0 {
		if abs(value-*prev) > *exp.MaxDeviation {
			return false
		}
	}
	return true
}

// ParseNumber cleans text and parses it as a float.
func ParseNumber(text string) (float64, bool) {
	v, err := strconv.ParseFloat(CleanNumber(text), 64)
	return v, err == nil
}

// countDecimalPlaces returns the digit count after the decimal point in a
// cleaned numeric string ("3.14" → 2, "42" → 0).
func countDecimalPlaces(s string) int {
	pos := strings.IndexByte(s, '.')
	if pos < 0 {
		return 0
	}
	return len(s) - pos - 1
}

// countTotalDigits returns the count of ASCII digits ("3.14" → 3, "-007" → 3).
func countTotalDigits(s string) int {
	n := 0
	for _, c := range s {
		if c >= '0' && c <= '9' {
			n++
		}
	}
	return n
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
