package vcs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/transplant/internal/vcs"
)

func TestNormalizePath(testInstance *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "a.txt", expected: "a.txt"},
		{input: "./docs//guide.md", expected: "docs/guide.md"},
		{input: "docs\\nested\\file.go", expected: "docs/nested/file.go"},
		{input: "docs/../src/main.go", expected: "src/main.go"},
		{input: "  /rooted/path/ ", expected: "rooted/path"},
		{input: ".", expected: ""},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.input, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, vcs.NormalizePath(testCase.input))
		})
	}
}

func TestJoinPathSkipsEmptySegments(testInstance *testing.T) {
	require.Equal(testInstance, "vendor/lib/a.txt", vcs.JoinPath("vendor/", "", "lib", "./a.txt"))
	require.Equal(testInstance, "a.txt", vcs.JoinPath("", "a.txt"))
}

func TestCommitRecordTimestampFallsBackToAuthor(testInstance *testing.T) {
	authorTime := time.Date(2020, 5, 7, 10, 0, 0, 0, time.UTC)
	record := vcs.CommitRecord{Author: vcs.Signature{When: authorTime}}
	require.Equal(testInstance, authorTime, record.Timestamp())

	committerTime := authorTime.Add(time.Hour)
	record.Committer.When = committerTime
	require.Equal(testInstance, committerTime, record.Timestamp())
}

func TestChangePaths(testInstance *testing.T) {
	rename := vcs.Change{Action: vcs.ChangeRenamed, OldPath: "old.txt", NewPath: "new.txt"}
	require.Equal(testInstance, []string{"old.txt", "new.txt"}, rename.Paths())

	deletion := vcs.Change{Action: vcs.ChangeDeleted, OldPath: "gone.txt"}
	require.Equal(testInstance, []string{"gone.txt"}, deletion.Paths())
}
