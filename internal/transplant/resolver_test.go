package transplant

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/transplant/internal/history"
	"github.com/temirov/transplant/internal/vcs"
)

const (
	firstSyntheticCommitConstant  vcs.ObjectID = "1111111111111111111111111111111111111111"
	secondSyntheticCommitConstant vcs.ObjectID = "2222222222222222222222222222222222222222"
	thirdSyntheticCommitConstant  vcs.ObjectID = "3333333333333333333333333333333333333333"
	firstSyntheticBlobConstant    vcs.ObjectID = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	secondSyntheticBlobConstant   vcs.ObjectID = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func regularEntry(identifier vcs.ObjectID) vcs.Entry {
	return vcs.Entry{ID: identifier, Mode: vcs.FileModeRegular}
}

func TestDetectSupersessionsReportsRenameOntoWatchedPath(testInstance *testing.T) {
	plan := history.ReplayPlan{Entries: []history.RelevantCommit{
		{
			Commit: vcs.CommitRecord{ID: firstSyntheticCommitConstant},
			Changes: []vcs.Change{
				{Action: vcs.ChangeAdded, NewPath: "a.txt", NewEntry: regularEntry(firstSyntheticBlobConstant)},
				{Action: vcs.ChangeAdded, NewPath: "b.txt", NewEntry: regularEntry(secondSyntheticBlobConstant)},
			},
		},
		{
			Commit: vcs.CommitRecord{ID: secondSyntheticCommitConstant},
			Changes: []vcs.Change{
				{Action: vcs.ChangeRenamed, OldPath: "b.txt", NewPath: "a.txt", OldEntry: regularEntry(secondSyntheticBlobConstant), NewEntry: regularEntry(secondSyntheticBlobConstant)},
			},
		},
		{
			Commit: vcs.CommitRecord{ID: thirdSyntheticCommitConstant},
			Changes: []vcs.Change{
				{Action: vcs.ChangeModified, OldPath: "a.txt", NewPath: "a.txt", OldEntry: regularEntry(secondSyntheticBlobConstant), NewEntry: regularEntry(firstSyntheticBlobConstant)},
			},
		},
	}}

	resolver := NewConflictResolver(nil, nil, "", nil)
	resolution, resolveError := resolver.Resolve(context.Background(), plan, vcs.ZeroObjectID)
	require.NoError(testInstance, resolveError)
	require.False(testInstance, resolution.HasCollisions())
	require.Equal(testInstance, []Supersession{{
		Path:             "a.txt",
		CommitID:         secondSyntheticCommitConstant,
		RenamedFrom:      "b.txt",
		WinningOrigin:    "b.txt",
		SupersededOrigin: "a.txt",
	}}, resolution.Supersessions)
}

func TestDetectSupersessionsIgnoresRenameOntoVacatedPath(testInstance *testing.T) {
	plan := history.ReplayPlan{Entries: []history.RelevantCommit{
		{
			Commit: vcs.CommitRecord{ID: firstSyntheticCommitConstant},
			Changes: []vcs.Change{
				{Action: vcs.ChangeAdded, NewPath: "a.txt", NewEntry: regularEntry(firstSyntheticBlobConstant)},
				{Action: vcs.ChangeAdded, NewPath: "b.txt", NewEntry: regularEntry(secondSyntheticBlobConstant)},
			},
		},
		{
			Commit: vcs.CommitRecord{ID: secondSyntheticCommitConstant},
			Changes: []vcs.Change{
				{Action: vcs.ChangeDeleted, OldPath: "a.txt", OldEntry: regularEntry(firstSyntheticBlobConstant)},
				{Action: vcs.ChangeRenamed, OldPath: "b.txt", NewPath: "a.txt", OldEntry: regularEntry(secondSyntheticBlobConstant), NewEntry: regularEntry(secondSyntheticBlobConstant)},
			},
		},
	}}

	resolver := NewConflictResolver(nil, nil, "", nil)
	resolution, resolveError := resolver.Resolve(context.Background(), plan, vcs.ZeroObjectID)
	require.NoError(testInstance, resolveError)
	require.Empty(testInstance, resolution.Supersessions)
}

func TestPathRewriterTargetStates(testInstance *testing.T) {
	testCases := []struct {
		name            string
		targetDirectory string
		changes         []vcs.Change
		expected        map[string]vcs.Entry
	}{
		{
			name:    "modification_in_place",
			changes: []vcs.Change{{Action: vcs.ChangeModified, OldPath: "a.txt", NewPath: "a.txt", NewEntry: regularEntry(firstSyntheticBlobConstant)}},
			expected: map[string]vcs.Entry{
				"a.txt": regularEntry(firstSyntheticBlobConstant),
			},
		},
		{
			name:            "rename_under_directory",
			targetDirectory: "/legacy/",
			changes:         []vcs.Change{{Action: vcs.ChangeRenamed, OldPath: "a.txt", NewPath: "docs/a.txt", NewEntry: regularEntry(firstSyntheticBlobConstant)}},
			expected: map[string]vcs.Entry{
				"legacy/a.txt":      {},
				"legacy/docs/a.txt": regularEntry(firstSyntheticBlobConstant),
			},
		},
		{
			name: "vacated_and_refilled",
			changes: []vcs.Change{
				{Action: vcs.ChangeRenamed, OldPath: "b.txt", NewPath: "a.txt", NewEntry: regularEntry(secondSyntheticBlobConstant)},
				{Action: vcs.ChangeRenamed, OldPath: "a.txt", NewPath: "c.txt", NewEntry: regularEntry(firstSyntheticBlobConstant)},
			},
			expected: map[string]vcs.Entry{
				"a.txt": regularEntry(secondSyntheticBlobConstant),
				"b.txt": {},
				"c.txt": regularEntry(firstSyntheticBlobConstant),
			},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			states := newPathRewriter(testCase.targetDirectory).targetStates(testCase.changes)
			require.Equal(testInstance, testCase.expected, states)
		})
	}
}

func TestTreeEditsOrdersPathsAndMarksRemovals(testInstance *testing.T) {
	edits := treeEdits(map[string]vcs.Entry{
		"z.txt": regularEntry(firstSyntheticBlobConstant),
		"a.txt": {},
	})
	require.Equal(testInstance, []vcs.TreeEdit{
		{Path: "a.txt", Remove: true},
		{Path: "z.txt", Entry: regularEntry(firstSyntheticBlobConstant)},
	}, edits)
}

func TestIsPreviewableText(testInstance *testing.T) {
	require.True(testInstance, isPreviewableText([]byte("plain text\n")))
	require.False(testInstance, isPreviewableText([]byte{0x00, 0x01, 0x02}))
	require.False(testInstance, isPreviewableText([]byte{0xff, 0xfe}))
}

func TestRunLockIsExclusive(testInstance *testing.T) {
	gitDirectory := testInstance.TempDir()

	firstLock, firstError := acquireRunLock(gitDirectory)
	require.NoError(testInstance, firstError)
	require.FileExists(testInstance, filepath.Join(gitDirectory, runLockFileNameConstant))

	_, secondError := acquireRunLock(gitDirectory)
	var inProgressError RunInProgressError
	require.ErrorAs(testInstance, secondError, &inProgressError)
	require.Equal(testInstance, filepath.Join(gitDirectory, runLockFileNameConstant), inProgressError.LockPath)

	require.NoError(testInstance, firstLock.Release())
	require.NoFileExists(testInstance, filepath.Join(gitDirectory, runLockFileNameConstant))
	require.NoError(testInstance, firstLock.Release())

	thirdLock, thirdError := acquireRunLock(gitDirectory)
	require.NoError(testInstance, thirdError)
	require.NoError(testInstance, thirdLock.Release())
}

func TestRunLockReportsMissingDirectory(testInstance *testing.T) {
	missingDirectory := filepath.Join(testInstance.TempDir(), "absent")
	_, lockError := acquireRunLock(missingDirectory)
	require.Error(testInstance, lockError)
	require.ErrorIs(testInstance, lockError, os.ErrNotExist)

	var nilLock *runLock
	require.NoError(testInstance, nilLock.Release())
}
