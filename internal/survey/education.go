package survey

import (
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Education categories of the cleaned table.
const (
	EducationBachelor         = "Bachelor's degree"
	EducationMaster           = "Master's degree"
	EducationPostGrad         = "Post grad"
	EducationLessThanBachelor = "Less than a Bachelor's"
)

// EducationLevels lists every category NormalizeEducation can return.
var EducationLevels = []string{
	EducationBachelor,
	EducationMaster,
	EducationPostGrad,
	EducationLessThanBachelor,
}

type educationRule struct {
	marker   string
	category string
}

// educationRules is evaluated in order and the first marker found wins, so a
// text naming both a bachelor's and a master's degree is a bachelor's.
var educationRules = []educationRule{
	{marker: "Bachelor's degree", category: EducationBachelor},
	{marker: "Master's degree", category: EducationMaster},
	{marker: "Professional degree", category: EducationPostGrad},
}

const typographicApostrophes = "\u2018\u2019\u02bc"

// The survey export spells the degrees with U+2019 (Bachelor’s).
var apostropheFolder = runes.Map(func(r rune) rune {
	if strings.ContainsRune(typographicApostrophes, r) {
		return '\''
	}
	return r
})

// NormalizeEducation collapses a free-text EdLevel answer into one of
// EducationLevels. Unrecognized text falls through to EducationLessThanBachelor.
func NormalizeEducation(s string) string {
	folded := foldApostrophes(s)
	for _, rule := range educationRules {
		if strings.Contains(folded, rule.marker) {
			return rule.category
		}
	}
	return EducationLessThanBachelor
}

func foldApostrophes(s string) string {
	if !strings.ContainsAny(s, typographicApostrophes) {
		return s
	}
	out, _, err := transform.String(apostropheFolder, s)
	if err != nil {
		return s
	}
	return out
}
