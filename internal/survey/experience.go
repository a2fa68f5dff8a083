package survey

import (
	"math"
	"strconv"
	"strings"
)

const (
	moreThan50Years = "More than 50 years"
	lessThan1Year   = "Less than 1 year"

	moreThan50Value = 51
	lessThan1Value  = 0.5
)

// NormalizeExperience converts a YearsCodePro answer to a number. The two
// sentinel answers (matched case-insensitively) map to 51 and 0.5; anything
// else must be a decimal numeral or a *ParseError is returned.
func NormalizeExperience(s string) (float64, error) {
	v := strings.TrimSpace(s)
	switch {
	case strings.EqualFold(v, moreThan50Years):
		return moreThan50Value, nil
	case strings.EqualFold(v, lessThan1Year):
		return lessThan1Value, nil
	}

	f, ok := parseDecimal(v)
	if !ok {
		return 0, &ParseError{Field: FieldYearsCodePro, Value: s, Err: ErrNotNumeric}
	}
	return f, nil
}

// ParseSalary parses a salary cell. It takes the same finite decimal numerals
// as NormalizeExperience; anything else is a *ParseError for FieldSalary.
func ParseSalary(s string) (float64, error) {
	f, ok := parseDecimal(strings.TrimSpace(s))
	if !ok {
		return 0, &ParseError{Field: FieldSalary, Value: s, Err: ErrNotNumeric}
	}
	return f, nil
}

// parseDecimal accepts finite decimal numerals only: strconv.ParseFloat on its
// own would also take hex floats, underscores, and Inf/NaN spellings.
func parseDecimal(s string) (float64, bool) {
	if s == "" || strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
