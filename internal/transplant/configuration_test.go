package transplant_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/transplant/internal/gitstore"
	"github.com/temirov/transplant/internal/transplant"
)

func TestDefaultConfigurationValuesArePrefixed(testInstance *testing.T) {
	values := transplant.DefaultConfigurationValues(" tools.transplant. ")
	require.Equal(testInstance, "master", values["tools.transplant.branch"])
	require.Equal(testInstance, "table", values["tools.transplant.report_format"])
	require.Equal(testInstance, true, values["tools.transplant.refresh_worktree"])
	require.Equal(testInstance, false, values["tools.transplant.allow_overwrite"])
	require.Contains(testInstance, values, "tools.transplant.committer.email")
	require.NotContains(testInstance, values, "branch")

	unprefixed := transplant.DefaultConfigurationValues("")
	require.Equal(testInstance, "master", unprefixed["branch"])
	require.Len(testInstance, unprefixed, len(values))
}

func TestCommandConfigurationSanitize(testInstance *testing.T) {
	sanitized := transplant.CommandConfiguration{
		Branch:          "   ",
		TargetBranch:    " imported ",
		TargetDirectory: " vendor ",
		ReportFormat:    " YAML ",
		Committer:       transplant.CommitterConfiguration{Name: " Bot ", Email: " bot@example.com "},
	}.Sanitize()

	require.Equal(testInstance, transplant.CommandConfiguration{
		Branch:          "master",
		TargetBranch:    "imported",
		TargetDirectory: "vendor",
		ReportFormat:    "yaml",
		Committer:       transplant.CommitterConfiguration{Name: "Bot", Email: "bot@example.com"},
		RenameDetection: transplant.RenameDetectionConfiguration{Score: gitstore.DefaultRenameScore},
	}, sanitized)

	require.Equal(testInstance, "table", transplant.CommandConfiguration{}.Sanitize().ReportFormat)
}

func TestRenameDetectionConfigurationSanitize(testInstance *testing.T) {
	testCases := []struct {
		name              string
		configured        transplant.RenameDetectionConfiguration
		expectedDetection gitstore.RenameDetection
	}{
		{
			name:              "unset_score_uses_default",
			configured:        transplant.RenameDetectionConfiguration{},
			expectedDetection: gitstore.RenameDetection{Score: gitstore.DefaultRenameScore},
		},
		{
			name:              "custom_score_kept",
			configured:        transplant.RenameDetectionConfiguration{Score: 80},
			expectedDetection: gitstore.RenameDetection{Score: 80},
		},
		{
			name:              "out_of_range_score_uses_default",
			configured:        transplant.RenameDetectionConfiguration{Score: 250},
			expectedDetection: gitstore.RenameDetection{Score: gitstore.DefaultRenameScore},
		},
		{
			name:              "exact_only_preserved",
			configured:        transplant.RenameDetectionConfiguration{ExactOnly: true, Score: gitstore.MaximumRenameScore},
			expectedDetection: gitstore.RenameDetection{ExactOnly: true, Score: gitstore.MaximumRenameScore},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subtest *testing.T) {
			sanitized := transplant.CommandConfiguration{RenameDetection: testCase.configured}.Sanitize()
			require.Equal(subtest, testCase.expectedDetection, sanitized.RenameDetection.Detection())
		})
	}

	values := transplant.DefaultConfigurationValues("")
	require.Equal(testInstance, false, values["rename_detection.exact_only"])
	require.EqualValues(testInstance, gitstore.DefaultRenameScore, values["rename_detection.score"])
}
