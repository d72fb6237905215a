package vcs

import "context"

// Reader exposes read access to a repository's commit graph and object store.
type Reader interface {
	// ResolveBranchTip returns the commit a branch points to or ErrRefNotFound.
	ResolveBranchTip(executionContext context.Context, branchName string) (ObjectID, error)
	// Commit loads a commit record or fails with ErrObjectNotFound.
	Commit(executionContext context.Context, commitID ObjectID) (CommitRecord, error)
	// Changes lists the path-level changes of a commit relative to its first parent.
	Changes(executionContext context.Context, commitID ObjectID) ([]Change, error)
	// TreeEntry looks up the entry stored at path within a tree.
	TreeEntry(executionContext context.Context, treeID ObjectID, path string) (Entry, bool, error)
	// Files lists every non-directory entry reachable from a tree keyed by path.
	Files(executionContext context.Context, treeID ObjectID) (map[string]Entry, error)
	// ReadBlob returns the content of a blob.
	ReadBlob(executionContext context.Context, blobID ObjectID) ([]byte, error)
}

// Writer exposes the object and reference mutations needed to replay commits.
type Writer interface {
	// WriteBlob stores content and returns its identifier.
	WriteBlob(executionContext context.Context, content []byte) (ObjectID, error)
	// WriteTree applies edits on top of baseTree (empty for no base) and returns the new tree.
	WriteTree(executionContext context.Context, baseTree ObjectID, edits []TreeEdit) (ObjectID, error)
	// WriteCommit stores a commit object.
	WriteCommit(executionContext context.Context, draft CommitDraft) (ObjectID, error)
	// UpdateBranch moves a branch from expectedOldTip to newTip or fails with ErrConcurrentUpdate.
	UpdateBranch(executionContext context.Context, branchName string, newTip ObjectID, expectedOldTip ObjectID) error
}

// Repository combines read and write access to a single repository.
type Repository interface {
	Reader
	Writer
}
