package flags

import (
	"fmt"
	"strings"
)

const (
	choiceUsageTemplate     = "`<%s>` %s"
	choiceBareUsageTemplate = "`<%s>`"
	choiceSeparatorConstant = "|"
)

// ChoiceSet is an ordered list of accepted flag values with one default.
type ChoiceSet struct {
	defaultChoice string
	choices       []string
}

// NewChoiceSet trims the choices and drops case-insensitive duplicates while keeping their order.
func NewChoiceSet(defaultChoice string, choices ...string) ChoiceSet {
	seenChoices := make(map[string]struct{}, len(choices))
	uniqueChoices := make([]string, 0, len(choices))
	for _, choice := range choices {
		trimmedChoice := strings.TrimSpace(choice)
		normalizedChoice := strings.ToLower(trimmedChoice)
		if len(normalizedChoice) == 0 {
			continue
		}
		if _, seen := seenChoices[normalizedChoice]; seen {
			continue
		}
		seenChoices[normalizedChoice] = struct{}{}
		uniqueChoices = append(uniqueChoices, trimmedChoice)
	}
	return ChoiceSet{defaultChoice: strings.ToLower(strings.TrimSpace(defaultChoice)), choices: uniqueChoices}
}

// Contains reports whether value names one of the choices, ignoring case and surrounding space.
func (choiceSet ChoiceSet) Contains(value string) bool {
	normalizedValue := strings.ToLower(strings.TrimSpace(value))
	for _, choice := range choiceSet.choices {
		if strings.ToLower(choice) == normalizedValue {
			return true
		}
	}
	return false
}

// Usage renders "`<TABLE|yaml|json>` description" with the default choice capitalized.
func (choiceSet ChoiceSet) Usage(description string) string {
	displayedChoices := make([]string, 0, len(choiceSet.choices))
	for _, choice := range choiceSet.choices {
		if len(choiceSet.defaultChoice) > 0 && strings.ToLower(choice) == choiceSet.defaultChoice {
			choice = strings.ToUpper(choice)
		}
		displayedChoices = append(displayedChoices, choice)
	}

	placeholder := strings.Join(displayedChoices, choiceSeparatorConstant)
	trimmedDescription := strings.TrimSpace(description)
	if len(trimmedDescription) == 0 {
		return fmt.Sprintf(choiceBareUsageTemplate, placeholder)
	}
	return fmt.Sprintf(choiceUsageTemplate, placeholder, trimmedDescription)
}
