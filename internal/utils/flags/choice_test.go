package flags

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChoiceSetUsage(testInstance *testing.T) {
	testCases := []struct {
		name          string
		defaultChoice string
		choices       []string
		description   string
		expectedUsage string
	}{
		{
			name:          "default_first",
			defaultChoice: "table",
			choices:       []string{"table", "yaml", "json"},
			description:   "Report output format",
			expectedUsage: "`<TABLE|yaml|json>` Report output format",
		},
		{
			name:          "default_last_mixed_case",
			defaultChoice: " JSON ",
			choices:       []string{"table", "yaml", "json"},
			description:   "Report output format",
			expectedUsage: "`<table|yaml|JSON>` Report output format",
		},
		{
			name:          "duplicates_and_blanks_dropped",
			defaultChoice: "yaml",
			choices:       []string{" yaml ", "YAML", "", "table"},
			description:   "",
			expectedUsage: "`<YAML|table>`",
		},
		{
			name:          "unknown_default",
			defaultChoice: "xml",
			choices:       []string{"table", "json"},
			description:   "Pick one",
			expectedUsage: "`<table|json>` Pick one",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subtest *testing.T) {
			choiceSet := NewChoiceSet(testCase.defaultChoice, testCase.choices...)
			require.Equal(subtest, testCase.expectedUsage, choiceSet.Usage(testCase.description))
		})
	}
}

func TestChoiceSetContains(testInstance *testing.T) {
	choiceSet := NewChoiceSet("table", "table", "yaml", "json")

	require.True(testInstance, choiceSet.Contains(" YAML "))
	require.True(testInstance, choiceSet.Contains("json"))
	require.False(testInstance, choiceSet.Contains("xml"))
	require.False(testInstance, choiceSet.Contains(""))
}
