package gitstore_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/require"

	"github.com/temirov/transplant/internal/gitstore"
	"github.com/temirov/transplant/internal/gitstore/testsupport"
	"github.com/temirov/transplant/internal/vcs"
)

const (
	testBranchNameConstant      = "master"
	testMissingBranchConstant   = "missing"
	testMissingCommitConstant   = "0123456789abcdef0123456789abcdef01234567"
	testAuthorNameConstant      = "Jane Doe"
	testAuthorEmailConstant     = "jane@example.com"
	testCommitMessageConstant   = "Add documentation\n\nLonger body.\n"
	testReadmePathConstant      = "docs/readme.md"
	testGuidePathConstant       = "docs/guide.md"
	testMovedReadmePathConstant = "manual/readme.md"
	testScriptPathConstant      = "bin/run.sh"
)

func TestChangesClassifiesPathModifications(testInstance *testing.T) {
	builder := testsupport.NewRepositoryBuilder(testInstance)
	builder.Commit(testBranchNameConstant, testsupport.CommitSpecification{
		Files: map[string]string{
			testReadmePathConstant: "readme v1",
			testGuidePathConstant:  "guide v1",
			testScriptPathConstant: "#!/bin/sh",
		},
	})
	secondCommit := builder.Commit(testBranchNameConstant, testsupport.CommitSpecification{
		Files:   map[string]string{testGuidePathConstant: "guide v2", "notes.txt": "new"},
		Deletes: []string{testScriptPathConstant},
		Renames: map[string]string{testReadmePathConstant: testMovedReadmePathConstant},
	})

	changes, changesError := builder.Store().Changes(context.Background(), secondCommit)
	require.NoError(testInstance, changesError)

	require.Equal(testInstance, []vcs.ChangeAction{
		vcs.ChangeDeleted,
		vcs.ChangeModified,
		vcs.ChangeRenamed,
		vcs.ChangeAdded,
	}, changeActions(changes))
	require.Equal(testInstance, testScriptPathConstant, changes[0].OldPath)
	require.Equal(testInstance, testGuidePathConstant, changes[1].NewPath)
	require.Equal(testInstance, testReadmePathConstant, changes[2].OldPath)
	require.Equal(testInstance, testMovedReadmePathConstant, changes[2].NewPath)
	require.Equal(testInstance, changes[2].OldEntry.ID, changes[2].NewEntry.ID)
	require.Equal(testInstance, "notes.txt", changes[3].NewPath)
}

func TestChangesOfRootCommitListsEveryFile(testInstance *testing.T) {
	builder := testsupport.NewRepositoryBuilder(testInstance)
	rootCommit := builder.Commit(testBranchNameConstant, testsupport.CommitSpecification{
		Files: map[string]string{testReadmePathConstant: "readme", testGuidePathConstant: "guide"},
	})

	changes, changesError := builder.Store().Changes(context.Background(), rootCommit)
	require.NoError(testInstance, changesError)
	require.Len(testInstance, changes, 2)
	for _, change := range changes {
		require.Equal(testInstance, vcs.ChangeAdded, change.Action)
	}
}

func TestRenamePairingPrefersSimilarNamesForDuplicateContent(testInstance *testing.T) {
	builder := testsupport.NewRepositoryBuilder(testInstance)
	builder.Commit(testBranchNameConstant, testsupport.CommitSpecification{
		Files: map[string]string{"one.md": "same", "two.txt": "same"},
	})
	renameCommit := builder.Commit(testBranchNameConstant, testsupport.CommitSpecification{
		Renames: map[string]string{"one.md": "uno.md", "two.txt": "dos.txt"},
	})

	changes, changesError := builder.Store().Changes(context.Background(), renameCommit)
	require.NoError(testInstance, changesError)
	require.Len(testInstance, changes, 2)
	require.Equal(testInstance, "two.txt", changes[0].OldPath)
	require.Equal(testInstance, "dos.txt", changes[0].NewPath)
	require.Equal(testInstance, "one.md", changes[1].OldPath)
	require.Equal(testInstance, "uno.md", changes[1].NewPath)
}

func TestChangesPairsEditedRenames(testInstance *testing.T) {
	testCases := []struct {
		name            string
		detection       gitstore.RenameDetection
		expectedActions []vcs.ChangeAction
	}{
		{
			name:            "similarity_detection",
			detection:       gitstore.RenameDetection{},
			expectedActions: []vcs.ChangeAction{vcs.ChangeRenamed},
		},
		{
			name:            "exact_only",
			detection:       gitstore.RenameDetection{ExactOnly: true},
			expectedActions: []vcs.ChangeAction{vcs.ChangeDeleted, vcs.ChangeAdded},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subtest *testing.T) {
			builder := testsupport.NewRepositoryBuilder(subtest)
			builder.Store().WithRenameDetection(testCase.detection)
			builder.Commit(testBranchNameConstant, testsupport.CommitSpecification{
				Files: map[string]string{testReadmePathConstant: testManualContent("Install the tool.")},
			})
			moveCommit := builder.Commit(testBranchNameConstant, testsupport.CommitSpecification{
				Deletes: []string{testReadmePathConstant},
				Files:   map[string]string{testMovedReadmePathConstant: testManualContent("Install the tool with go install.")},
			})

			changes, changesError := builder.Store().Changes(context.Background(), moveCommit)
			require.NoError(subtest, changesError)
			require.Equal(subtest, testCase.expectedActions, changeActions(changes))
			if changes[0].Action == vcs.ChangeRenamed {
				require.Equal(subtest, testReadmePathConstant, changes[0].OldPath)
				require.Equal(subtest, testMovedReadmePathConstant, changes[0].NewPath)
				require.NotEqual(subtest, changes[0].OldEntry.ID, changes[0].NewEntry.ID)
			}
		})
	}
}

func TestFilesListsNestedEntries(testInstance *testing.T) {
	builder := testsupport.NewRepositoryBuilder(testInstance)
	commitID := builder.Commit(testBranchNameConstant, testsupport.CommitSpecification{
		Files:       map[string]string{testReadmePathConstant: "readme", testScriptPathConstant: "#!/bin/sh", "top.txt": "top"},
		Executables: []string{testScriptPathConstant},
	})
	executionContext := context.Background()
	commitRecord, commitError := builder.Store().Commit(executionContext, commitID)
	require.NoError(testInstance, commitError)

	files, filesError := builder.Store().Files(executionContext, commitRecord.Tree)
	require.NoError(testInstance, filesError)
	require.Equal(testInstance, []string{testScriptPathConstant, testReadmePathConstant, "top.txt"}, sortedKeys(files))
	require.Equal(testInstance, vcs.FileModeExecutable, files[testScriptPathConstant].Mode)

	emptyFiles, emptyError := builder.Store().Files(executionContext, vcs.ZeroObjectID)
	require.NoError(testInstance, emptyError)
	require.Empty(testInstance, emptyFiles)
}

func TestOpenDetectsRepositoryFromSubdirectory(testInstance *testing.T) {
	repositoryPath := testInstance.TempDir()
	_, initError := git.PlainInit(repositoryPath, false)
	require.NoError(testInstance, initError)
	nestedPath := filepath.Join(repositoryPath, "docs", "guides")
	require.NoError(testInstance, os.MkdirAll(nestedPath, 0o755))

	store, openError := gitstore.Open(nestedPath)
	require.NoError(testInstance, openError)
	gitDirectory, directoryError := store.GitDirectory()
	require.NoError(testInstance, directoryError)
	require.Equal(testInstance, filepath.Join(repositoryPath, ".git"), gitDirectory)

	_, missingError := gitstore.Open(testInstance.TempDir())
	require.Error(testInstance, missingError)
}

func TestWriteTreePrunesEmptyDirectories(testInstance *testing.T) {
	builder := testsupport.NewRepositoryBuilder(testInstance)
	builder.Commit(testBranchNameConstant, testsupport.CommitSpecification{
		Files: map[string]string{testReadmePathConstant: "readme", "keep.txt": "keep"},
	})
	pruneCommit := builder.Commit(testBranchNameConstant, testsupport.CommitSpecification{
		Deletes: []string{testReadmePathConstant},
	})

	commitRecord, commitError := builder.Store().Commit(context.Background(), pruneCommit)
	require.NoError(testInstance, commitError)

	_, directoryFound, lookupError := builder.Store().TreeEntry(context.Background(), commitRecord.Tree, "docs")
	require.NoError(testInstance, lookupError)
	require.False(testInstance, directoryFound)
	require.Equal(testInstance, map[string]string{"keep.txt": "keep"}, builder.Files(pruneCommit))
}

func TestWriteTreeReplacesFileWithDirectory(testInstance *testing.T) {
	builder := testsupport.NewRepositoryBuilder(testInstance)
	builder.Commit(testBranchNameConstant, testsupport.CommitSpecification{
		Files: map[string]string{"docs": "plain file"},
	})
	replaceCommit := builder.Commit(testBranchNameConstant, testsupport.CommitSpecification{
		Deletes: []string{"docs"},
		Files:   map[string]string{testReadmePathConstant: "readme"},
	})

	require.Equal(testInstance, map[string]string{testReadmePathConstant: "readme"}, builder.Files(replaceCommit))
}

func TestTreeEntryLookup(testInstance *testing.T) {
	builder := testsupport.NewRepositoryBuilder(testInstance)
	commitID := builder.Commit(testBranchNameConstant, testsupport.CommitSpecification{
		Files:       map[string]string{testScriptPathConstant: "#!/bin/sh"},
		Executables: []string{testScriptPathConstant},
	})
	commitRecord, commitError := builder.Store().Commit(context.Background(), commitID)
	require.NoError(testInstance, commitError)

	testCases := []struct {
		name          string
		path          string
		expectedFound bool
		expectedMode  vcs.FileMode
	}{
		{name: "executable file", path: testScriptPathConstant, expectedFound: true, expectedMode: vcs.FileModeExecutable},
		{name: "directory", path: "bin", expectedFound: true, expectedMode: vcs.FileModeDirectory},
		{name: "missing file", path: "bin/missing.sh", expectedFound: false},
		{name: "path below file", path: "bin/run.sh/child", expectedFound: false},
		{name: "empty path", path: "", expectedFound: false},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			entry, found, lookupError := builder.Store().TreeEntry(context.Background(), commitRecord.Tree, testCase.path)
			require.NoError(subtestInstance, lookupError)
			require.Equal(subtestInstance, testCase.expectedFound, found)
			if testCase.expectedFound {
				require.Equal(subtestInstance, testCase.expectedMode, entry.Mode)
			}
		})
	}
}

func TestWriteCommitPreservesMetadata(testInstance *testing.T) {
	store, storeError := gitstore.NewMemoryStore()
	require.NoError(testInstance, storeError)
	executionContext := context.Background()

	blobID, blobError := store.WriteBlob(executionContext, []byte("content"))
	require.NoError(testInstance, blobError)
	treeID, treeError := store.WriteTree(executionContext, vcs.ZeroObjectID, []vcs.TreeEdit{{Path: testReadmePathConstant, Entry: vcs.Entry{ID: blobID}}})
	require.NoError(testInstance, treeError)

	authoredAt := time.Date(2023, time.March, 14, 15, 9, 26, 0, time.FixedZone("", 2*60*60))
	author := vcs.Signature{Name: testAuthorNameConstant, Email: testAuthorEmailConstant, When: authoredAt}
	committer := vcs.Identity{Name: "Transplant", Email: "transplant@example.com"}.At(authoredAt.Add(time.Hour))

	commitID, commitError := store.WriteCommit(executionContext, vcs.CommitDraft{
		Tree:      treeID,
		Author:    author,
		Committer: committer,
		Message:   testCommitMessageConstant,
	})
	require.NoError(testInstance, commitError)

	commitRecord, loadError := store.Commit(executionContext, commitID)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, testCommitMessageConstant, commitRecord.Message)
	require.Equal(testInstance, testAuthorNameConstant, commitRecord.Author.Name)
	require.Equal(testInstance, testAuthorEmailConstant, commitRecord.Author.Email)
	require.True(testInstance, authoredAt.Equal(commitRecord.Author.When))
	require.True(testInstance, committer.When.Equal(commitRecord.Committer.When))
	require.Empty(testInstance, commitRecord.Parents)
	require.Equal(testInstance, treeID, commitRecord.Tree)

	content, readError := store.ReadBlob(executionContext, blobID)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "content", string(content))
}

func TestUpdateBranchCompareAndSwap(testInstance *testing.T) {
	builder := testsupport.NewRepositoryBuilder(testInstance)
	firstCommit := builder.Commit(testBranchNameConstant, testsupport.CommitSpecification{Files: map[string]string{"a.txt": "1"}})
	secondCommit := builder.Commit(testBranchNameConstant, testsupport.CommitSpecification{Files: map[string]string{"a.txt": "2"}})
	executionContext := context.Background()
	store := builder.Store()

	testCases := []struct {
		name           string
		branchName     string
		newTip         vcs.ObjectID
		expectedOldTip vcs.ObjectID
		expectedError  error
	}{
		{name: "stale expectation", branchName: testBranchNameConstant, newTip: firstCommit, expectedOldTip: firstCommit, expectedError: vcs.ErrConcurrentUpdate},
		{name: "branch unexpectedly present", branchName: testBranchNameConstant, newTip: firstCommit, expectedOldTip: vcs.ZeroObjectID, expectedError: vcs.ErrConcurrentUpdate},
		{name: "branch unexpectedly absent", branchName: testMissingBranchConstant, newTip: firstCommit, expectedOldTip: secondCommit, expectedError: vcs.ErrConcurrentUpdate},
		{name: "create absent branch", branchName: "feature", newTip: firstCommit, expectedOldTip: vcs.ZeroObjectID},
		{name: "move matching branch", branchName: testBranchNameConstant, newTip: firstCommit, expectedOldTip: secondCommit},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			updateError := store.UpdateBranch(executionContext, testCase.branchName, testCase.newTip, testCase.expectedOldTip)
			if testCase.expectedError != nil {
				require.ErrorIs(subtestInstance, updateError, testCase.expectedError)
				require.Equal(subtestInstance, "ConcurrentUpdate", vcs.ConditionName(updateError))
				return
			}
			require.NoError(subtestInstance, updateError)
			tip, tipError := store.ResolveBranchTip(executionContext, testCase.branchName)
			require.NoError(subtestInstance, tipError)
			require.Equal(subtestInstance, testCase.newTip, tip)
		})
	}
}

func TestMissingReferencesAndObjectsAreClassified(testInstance *testing.T) {
	store, storeError := gitstore.NewMemoryStore()
	require.NoError(testInstance, storeError)
	executionContext := context.Background()

	_, tipError := store.ResolveBranchTip(executionContext, testMissingBranchConstant)
	require.ErrorIs(testInstance, tipError, vcs.ErrRefNotFound)

	_, commitError := store.Commit(executionContext, vcs.ObjectID(testMissingCommitConstant))
	require.ErrorIs(testInstance, commitError, vcs.ErrObjectNotFound)
	require.Equal(testInstance, vcs.ObjectID(testMissingCommitConstant), vcs.ConditionCommit(commitError))

	_, blobError := store.ReadBlob(executionContext, vcs.ObjectID(testMissingCommitConstant))
	require.ErrorIs(testInstance, blobError, vcs.ErrObjectNotFound)
}

func TestOperationsHonorCancellation(testInstance *testing.T) {
	store, storeError := gitstore.NewMemoryStore()
	require.NoError(testInstance, storeError)
	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	_, writeError := store.WriteBlob(cancelledContext, []byte("content"))
	require.ErrorIs(testInstance, writeError, context.Canceled)
}

func TestGitDirectoryRequiresFilesystemStorage(testInstance *testing.T) {
	store, storeError := gitstore.NewMemoryStore()
	require.NoError(testInstance, storeError)

	_, directoryError := store.GitDirectory()
	require.Error(testInstance, directoryError)
}

func changeActions(changes []vcs.Change) []vcs.ChangeAction {
	actions := make([]vcs.ChangeAction, 0, len(changes))
	for _, change := range changes {
		actions = append(actions, change.Action)
	}
	return actions
}

func sortedKeys(files map[string]vcs.Entry) []string {
	keys := make([]string, 0, len(files))
	for path := range files {
		keys = append(keys, path)
	}
	sort.Strings(keys)
	return keys
}

func testManualContent(installLine string) string {
	lines := []string{
		"# Manual",
		"",
		installLine,
		"Configure the remote before the first run.",
		"Pass the files to move as trailing arguments.",
		"Use --dry-run to inspect the plan.",
		"Use --target-dir to place files below a directory.",
		"Reruns skip commits that were already moved.",
		"Collisions abort the run unless overwriting is allowed.",
		"Reports render as table, yaml or json.",
	}
	return strings.Join(lines, "\n") + "\n"
}
