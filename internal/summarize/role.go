// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"fmt"
	"strings"
)

// RoleCategory groups user roles that share one system instruction.
type RoleCategory int

// Role categories. Default covers every role not listed in a set.
const (
	Default RoleCategory = iota
	GeneralPractice
	Pediatric
	Specialist
	Research
)

var categoryNames = map[RoleCategory]string{
	Default:         "default",
	GeneralPractice: "general-practice",
	Pediatric:       "pediatric",
	Specialist:      "specialist",
	Research:        "research",
}

// String returns the category name.
func (c RoleCategory) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return fmt.Sprintf("RoleCategory(%d)", int(c))
}

// roleSets maps lower-cased role strings to their category.
var roleSets = map[string]RoleCategory{
	"general practitioner":   GeneralPractice,
	"gp":                     GeneralPractice,
	"primary care physician": GeneralPractice,
	"family doctor":          GeneralPractice,
	"doctor":                 GeneralPractice,

	"pediatrician":        Pediatric,
	"pediatric physician": Pediatric,

	"rheumatologist": Specialist,
	"oncologist":     Specialist,
	"cardiologist":   Specialist,
	"neurologist":    Specialist,

	"biomedical researcher": Research,
	"researcher":            Research,
	"scientist":             Research,
}

// Classify maps a free-form role to its category, ignoring case and
// surrounding whitespace.
func Classify(role string) RoleCategory {
	return roleSets[strings.ToLower(strings.TrimSpace(role))]
}

// Instruction returns the system instruction for role. Specialist and
// default instructions embed the role string as given.
func Instruction(role string) string {
	switch Classify(role) {
	case GeneralPractice:
		return "You are a biomedical assistant helping a general physician. " +
			"Provide clinically relevant, concise answers suitable for a non-specialist physician. " +
			"Focus on actionable guidance and clarity over depth."
	case Pediatric:
		return "You are a biomedical assistant helping a pediatrician. " +
			"Summarize treatments with a focus on child-specific considerations, " +
			"including safety, efficacy, and dosing."
	case Specialist:
		return fmt.Sprintf("You are a biomedical assistant helping a specialist %s. ", role) +
			"Provide detailed, evidence-based summaries with technical medical language and " +
			"focus on the latest therapeutic advances and clinical relevance."
	case Research:
		return "You are a biomedical assistant helping a biomedical researcher. " +
			"Focus on mechanisms, study design, and emerging treatment targets. " +
			"Use technical terminology where appropriate."
	default:
		return fmt.Sprintf("You are a biomedical assistant helping a %s. ", role) +
			"Adjust the language and focus based on their likely level of clinical or scientific expertise. " +
			"Make sure to cite articles and stay clear and concise."
	}
}
