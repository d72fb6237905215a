// Package testsupport builds in-memory Git histories for tests.
package testsupport

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/transplant/internal/gitstore"
	"github.com/temirov/transplant/internal/vcs"
)

const (
	defaultAuthorNameConstant  = "Fixture Author"
	defaultAuthorEmailConstant = "author@example.com"
	defaultMessageConstant     = "fixture commit"
	commitIntervalConstant     = time.Hour
)

// DefaultEpoch is the timestamp of the first fixture commit when none is specified.
var DefaultEpoch = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

// CommitSpecification describes a fixture commit relative to its first parent.
type CommitSpecification struct {
	Message     string
	AuthorName  string
	AuthorEmail string
	When        time.Time
	Parents     []vcs.ObjectID
	Files       map[string]string
	Executables []string
	Deletes     []string
	Renames     map[string]string
}

// RepositoryBuilder appends commits to an in-memory repository.
type RepositoryBuilder struct {
	testingT    testing.TB
	store       *gitstore.Store
	commitCount int
}

// NewRepositoryBuilder creates a builder backed by a fresh in-memory repository.
func NewRepositoryBuilder(testingT testing.TB) *RepositoryBuilder {
	testingT.Helper()
	store, storeError := gitstore.NewMemoryStore()
	require.NoError(testingT, storeError)
	return &RepositoryBuilder{testingT: testingT, store: store}
}

// Store exposes the repository under construction.
func (builder *RepositoryBuilder) Store() *gitstore.Store {
	return builder.store
}

// Tip returns the branch tip or the zero identifier when the branch does not exist.
func (builder *RepositoryBuilder) Tip(branchName string) vcs.ObjectID {
	builder.testingT.Helper()
	tip, tipError := builder.store.ResolveBranchTip(context.Background(), branchName)
	if tipError != nil {
		require.ErrorIs(builder.testingT, tipError, vcs.ErrRefNotFound)
		return vcs.ZeroObjectID
	}
	return tip
}

// SetBranch points branchName at commitID unconditionally.
func (builder *RepositoryBuilder) SetBranch(branchName string, commitID vcs.ObjectID) {
	builder.testingT.Helper()
	require.NoError(builder.testingT, builder.store.UpdateBranch(context.Background(), branchName, commitID, builder.Tip(branchName)))
}

// Commit writes a commit on branchName and advances the branch to it.
// Parents default to the current branch tip.
func (builder *RepositoryBuilder) Commit(branchName string, specification CommitSpecification) vcs.ObjectID {
	builder.testingT.Helper()
	executionContext := context.Background()

	currentTip := builder.Tip(branchName)
	parents := specification.Parents
	if parents == nil && !currentTip.IsZero() {
		parents = []vcs.ObjectID{currentTip}
	}

	baseTree := vcs.ZeroObjectID
	if len(parents) > 0 {
		parentCommit, parentError := builder.store.Commit(executionContext, parents[0])
		require.NoError(builder.testingT, parentError)
		baseTree = parentCommit.Tree
	}

	edits := builder.renameEdits(executionContext, baseTree, specification.Renames)
	for _, deletedPath := range sortedStrings(specification.Deletes) {
		edits = append(edits, vcs.TreeEdit{Path: deletedPath, Remove: true})
	}
	edits = append(edits, builder.fileEdits(executionContext, specification.Files, specification.Executables)...)

	treeID, treeError := builder.store.WriteTree(executionContext, baseTree, edits)
	require.NoError(builder.testingT, treeError)

	signature := builder.signature(specification)
	message := specification.Message
	if len(message) == 0 {
		message = defaultMessageConstant
	}

	commitID, commitError := builder.store.WriteCommit(executionContext, vcs.CommitDraft{
		Tree:      treeID,
		Parents:   parents,
		Author:    signature,
		Committer: signature,
		Message:   message,
	})
	require.NoError(builder.testingT, commitError)
	require.NoError(builder.testingT, builder.store.UpdateBranch(executionContext, branchName, commitID, currentTip))

	builder.commitCount++
	return commitID
}

// Files returns the content of every file in the commit tree keyed by path.
func (builder *RepositoryBuilder) Files(commitID vcs.ObjectID) map[string]string {
	builder.testingT.Helper()
	executionContext := context.Background()

	commitRecord, commitError := builder.store.Commit(executionContext, commitID)
	require.NoError(builder.testingT, commitError)

	snapshot, snapshotError := builder.store.Files(executionContext, commitRecord.Tree)
	require.NoError(builder.testingT, snapshotError)

	files := make(map[string]string, len(snapshot))
	for path, entry := range snapshot {
		content, readError := builder.store.ReadBlob(executionContext, entry.ID)
		require.NoError(builder.testingT, readError)
		files[path] = string(content)
	}
	return files
}

// FirstParentChain lists commits from the branch tip back to the root following first parents.
func (builder *RepositoryBuilder) FirstParentChain(branchName string) []vcs.CommitRecord {
	builder.testingT.Helper()
	chain := make([]vcs.CommitRecord, 0)
	currentID := builder.Tip(branchName)
	for !currentID.IsZero() {
		commitRecord, commitError := builder.store.Commit(context.Background(), currentID)
		require.NoError(builder.testingT, commitError)
		chain = append(chain, commitRecord)
		currentID = vcs.ZeroObjectID
		if len(commitRecord.Parents) > 0 {
			currentID = commitRecord.Parents[0]
		}
	}
	return chain
}

func (builder *RepositoryBuilder) renameEdits(executionContext context.Context, baseTree vcs.ObjectID, renames map[string]string) []vcs.TreeEdit {
	edits := make([]vcs.TreeEdit, 0, 2*len(renames))
	oldPaths := make([]string, 0, len(renames))
	for oldPath := range renames {
		oldPaths = append(oldPaths, oldPath)
	}
	sort.Strings(oldPaths)

	for _, oldPath := range oldPaths {
		entry, found, entryError := builder.store.TreeEntry(executionContext, baseTree, oldPath)
		require.NoError(builder.testingT, entryError)
		require.True(builder.testingT, found, oldPath)
		edits = append(edits,
			vcs.TreeEdit{Path: oldPath, Remove: true},
			vcs.TreeEdit{Path: renames[oldPath], Entry: entry},
		)
	}
	return edits
}

func (builder *RepositoryBuilder) fileEdits(executionContext context.Context, files map[string]string, executables []string) []vcs.TreeEdit {
	executableSet := make(map[string]struct{}, len(executables))
	for _, executablePath := range executables {
		executableSet[executablePath] = struct{}{}
	}

	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	edits := make([]vcs.TreeEdit, 0, len(paths))
	for _, path := range paths {
		blobID, blobError := builder.store.WriteBlob(executionContext, []byte(files[path]))
		require.NoError(builder.testingT, blobError)

		mode := vcs.FileModeRegular
		if _, executable := executableSet[path]; executable {
			mode = vcs.FileModeExecutable
		}
		edits = append(edits, vcs.TreeEdit{Path: path, Entry: vcs.Entry{ID: blobID, Mode: mode}})
	}
	return edits
}

func (builder *RepositoryBuilder) signature(specification CommitSpecification) vcs.Signature {
	name := specification.AuthorName
	if len(name) == 0 {
		name = defaultAuthorNameConstant
	}
	email := specification.AuthorEmail
	if len(email) == 0 {
		email = defaultAuthorEmailConstant
	}
	when := specification.When
	if when.IsZero() {
		when = DefaultEpoch.Add(time.Duration(builder.commitCount) * commitIntervalConstant)
	}
	return vcs.Signature{Name: name, Email: email, When: when}
}

func sortedStrings(values []string) []string {
	sortedValues := append([]string(nil), values...)
	sort.Strings(sortedValues)
	return sortedValues
}
