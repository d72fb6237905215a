package gitstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/temirov/transplant/internal/vcs"
)

const (
	referencePrefixConstant                = "refs/"
	openRepositoryErrorTemplateConstant    = "unable to open repository %s: %w"
	initRepositoryErrorTemplateConstant    = "unable to initialize in-memory repository: %w"
	branchReasonTemplateConstant           = "branch %s"
	commitDecodeReasonConstant             = "commit could not be decoded"
	blobReadReasonConstant                 = "blob could not be read"
	treeReadReasonConstant                 = "tree could not be read"
	blobWriteReasonConstant                = "blob rejected by object store"
	treeWriteReasonConstant                = "tree rejected by object store"
	commitWriteReasonConstant              = "commit rejected by object store"
	referenceWriteReasonConstant           = "reference rejected by reference store"
	branchExistsReasonTemplateConstant     = "branch %s already exists at %s"
	branchMovedReasonTemplateConstant      = "branch %s moved from %s to %s"
	branchMissingReasonTemplateConstant    = "branch %s no longer exists"
	emptyBranchNameMessageConstant         = "branch name must not be empty"
	repositoryPathRequiredMessageConstant  = "repository path must not be empty"
	gitDirectoryUnavailableMessageConstant = "repository is not backed by a filesystem"
	identityUnavailableMessageConstant     = "repository configuration does not define user.name"
	configurationReadErrorTemplateConstant = "unable to read repository configuration: %w"
)

var (
	errEmptyBranchName         = errors.New(emptyBranchNameMessageConstant)
	errRepositoryPathRequired  = errors.New(repositoryPathRequiredMessageConstant)
	errGitDirectoryUnavailable = errors.New(gitDirectoryUnavailableMessageConstant)
	errIdentityUnavailable     = errors.New(identityUnavailableMessageConstant)
)

// Store exposes a go-git repository through the vcs.Repository primitives.
type Store struct {
	repository      *git.Repository
	storer          storage.Storer
	renameDetection RenameDetection
}

// Open opens the repository containing repositoryPath (worktree, subdirectory of a worktree, or bare).
func Open(repositoryPath string) (*Store, error) {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return nil, errRepositoryPathRequired
	}

	repository, openError := git.PlainOpenWithOptions(trimmedPath, &git.PlainOpenOptions{DetectDotGit: true, EnableDotGitCommonDir: true})
	if openError != nil {
		return nil, fmt.Errorf(openRepositoryErrorTemplateConstant, trimmedPath, openError)
	}

	return NewStore(repository), nil
}

// NewMemoryStore creates an empty bare repository held in memory.
func NewMemoryStore() (*Store, error) {
	repository, initError := git.Init(memory.NewStorage(), nil)
	if initError != nil {
		return nil, fmt.Errorf(initRepositoryErrorTemplateConstant, initError)
	}
	return NewStore(repository), nil
}

// NewStore wraps an already opened go-git repository.
func NewStore(repository *git.Repository) *Store {
	return &Store{repository: repository, storer: repository.Storer}
}

// WithRenameDetection replaces the rename pairing used by Changes and returns the store.
func (store *Store) WithRenameDetection(detection RenameDetection) *Store {
	store.renameDetection = detection
	return store
}

// GitDirectory returns the on-disk git directory when the repository is filesystem backed.
func (store *Store) GitDirectory() (string, error) {
	filesystemStorage, isFilesystem := store.storer.(*filesystem.Storage)
	if !isFilesystem {
		return "", errGitDirectoryUnavailable
	}
	return filesystemStorage.Filesystem().Root(), nil
}

// ConfiguredIdentity returns user.name and user.email from the repository and global configuration.
func (store *Store) ConfiguredIdentity() (vcs.Identity, error) {
	configuration, configurationError := store.repository.ConfigScoped(gitconfig.GlobalScope)
	if configurationError != nil {
		return vcs.Identity{}, fmt.Errorf(configurationReadErrorTemplateConstant, configurationError)
	}

	identity := vcs.Identity{
		Name:  strings.TrimSpace(configuration.User.Name),
		Email: strings.TrimSpace(configuration.User.Email),
	}
	if len(identity.Name) == 0 {
		return vcs.Identity{}, errIdentityUnavailable
	}
	return identity, nil
}

// ResolveBranchTip returns the commit the branch points to.
func (store *Store) ResolveBranchTip(executionContext context.Context, branchName string) (vcs.ObjectID, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return vcs.ZeroObjectID, contextError
	}

	referenceName, nameError := branchReferenceName(branchName)
	if nameError != nil {
		return vcs.ZeroObjectID, nameError
	}

	reference, referenceError := storer.ResolveReference(store.storer, referenceName)
	if referenceError != nil {
		if errors.Is(referenceError, plumbing.ErrReferenceNotFound) {
			return vcs.ZeroObjectID, vcs.NewCondition(vcs.ErrRefNotFound, vcs.ZeroObjectID, fmt.Sprintf(branchReasonTemplateConstant, branchName), nil)
		}
		return vcs.ZeroObjectID, referenceError
	}

	return toObjectID(reference.Hash()), nil
}

// Commit loads the commit identified by commitID.
func (store *Store) Commit(executionContext context.Context, commitID vcs.ObjectID) (vcs.CommitRecord, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return vcs.CommitRecord{}, contextError
	}

	commitObject, loadError := store.loadCommit(commitID)
	if loadError != nil {
		return vcs.CommitRecord{}, loadError
	}

	parents := make([]vcs.ObjectID, 0, len(commitObject.ParentHashes))
	for _, parentHash := range commitObject.ParentHashes {
		parents = append(parents, toObjectID(parentHash))
	}

	return vcs.CommitRecord{
		ID:        commitID,
		Parents:   parents,
		Tree:      toObjectID(commitObject.TreeHash),
		Author:    toSignature(commitObject.Author),
		Committer: toSignature(commitObject.Committer),
		Message:   commitObject.Message,
	}, nil
}

// Changes lists the changes of a commit relative to its first parent.
func (store *Store) Changes(executionContext context.Context, commitID vcs.ObjectID) ([]vcs.Change, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return nil, contextError
	}

	commitObject, loadError := store.loadCommit(commitID)
	if loadError != nil {
		return nil, loadError
	}

	parentTree := vcs.ZeroObjectID
	if len(commitObject.ParentHashes) > 0 {
		parentCommit, parentError := store.loadCommit(toObjectID(commitObject.ParentHashes[0]))
		if parentError != nil {
			return nil, parentError
		}
		parentTree = toObjectID(parentCommit.TreeHash)
	}

	changes, diffError := store.diffTrees(executionContext, parentTree, toObjectID(commitObject.TreeHash))
	if diffError != nil {
		if isCancellation(diffError) {
			return nil, diffError
		}
		return nil, vcs.NewCondition(vcs.ErrObjectNotFound, commitID, treeReadReasonConstant, diffError)
	}
	return changes, nil
}

// TreeEntry looks up a slash separated path inside a tree.
func (store *Store) TreeEntry(executionContext context.Context, treeID vcs.ObjectID, path string) (vcs.Entry, bool, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return vcs.Entry{}, false, contextError
	}

	normalizedPath := vcs.NormalizePath(path)
	if treeID.IsZero() || len(normalizedPath) == 0 {
		return vcs.Entry{}, false, nil
	}

	currentTreeID := treeID
	segments := strings.Split(normalizedPath, "/")
	for segmentIndex, segment := range segments {
		treeObject, treeError := store.loadTree(currentTreeID)
		if treeError != nil {
			return vcs.Entry{}, false, treeError
		}

		matchedEntry, found := findTreeEntry(treeObject, segment)
		if !found {
			return vcs.Entry{}, false, nil
		}

		entry := vcs.Entry{ID: toObjectID(matchedEntry.Hash), Mode: vcs.FileMode(matchedEntry.Mode)}
		if segmentIndex == len(segments)-1 {
			return entry, true, nil
		}
		if entry.Mode != vcs.FileModeDirectory {
			return vcs.Entry{}, false, nil
		}
		currentTreeID = entry.ID
	}

	return vcs.Entry{}, false, nil
}

// Files lists every file and gitlink reachable from treeID keyed by path.
func (store *Store) Files(executionContext context.Context, treeID vcs.ObjectID) (map[string]vcs.Entry, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return nil, contextError
	}

	files, walkError := store.treeFiles(treeID)
	if walkError != nil {
		return nil, vcs.NewCondition(vcs.ErrObjectNotFound, treeID, treeReadReasonConstant, walkError)
	}
	return files, nil
}

// ReadBlob returns the full content of a blob.
func (store *Store) ReadBlob(executionContext context.Context, blobID vcs.ObjectID) ([]byte, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return nil, contextError
	}

	blobObject, blobError := object.GetBlob(store.storer, toHash(blobID))
	if blobError != nil {
		return nil, classifyReadError(blobID, blobReadReasonConstant, blobError)
	}

	blobReader, readerError := blobObject.Reader()
	if readerError != nil {
		return nil, vcs.NewCondition(vcs.ErrObjectNotFound, blobID, blobReadReasonConstant, readerError)
	}
	defer blobReader.Close()

	content, readError := io.ReadAll(blobReader)
	if readError != nil {
		return nil, vcs.NewCondition(vcs.ErrObjectNotFound, blobID, blobReadReasonConstant, readError)
	}
	return content, nil
}

// WriteBlob stores content as a blob object.
func (store *Store) WriteBlob(executionContext context.Context, content []byte) (vcs.ObjectID, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return vcs.ZeroObjectID, contextError
	}

	encodedObject := store.storer.NewEncodedObject()
	encodedObject.SetType(plumbing.BlobObject)
	encodedObject.SetSize(int64(len(content)))

	objectWriter, writerError := encodedObject.Writer()
	if writerError != nil {
		return vcs.ZeroObjectID, vcs.NewCondition(vcs.ErrWriteFailure, vcs.ZeroObjectID, blobWriteReasonConstant, writerError)
	}
	if _, writeError := objectWriter.Write(content); writeError != nil {
		_ = objectWriter.Close()
		return vcs.ZeroObjectID, vcs.NewCondition(vcs.ErrWriteFailure, vcs.ZeroObjectID, blobWriteReasonConstant, writeError)
	}
	if closeError := objectWriter.Close(); closeError != nil {
		return vcs.ZeroObjectID, vcs.NewCondition(vcs.ErrWriteFailure, vcs.ZeroObjectID, blobWriteReasonConstant, closeError)
	}

	return store.storeObject(encodedObject, blobWriteReasonConstant)
}

// WriteTree applies edits to baseTree and stores every rewritten tree object.
func (store *Store) WriteTree(executionContext context.Context, baseTree vcs.ObjectID, edits []vcs.TreeEdit) (vcs.ObjectID, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return vcs.ZeroObjectID, contextError
	}

	editor := treeEditor{store: store}
	return editor.Apply(baseTree, edits)
}

// WriteCommit stores a commit object built from the draft.
func (store *Store) WriteCommit(executionContext context.Context, draft vcs.CommitDraft) (vcs.ObjectID, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return vcs.ZeroObjectID, contextError
	}

	parentHashes := make([]plumbing.Hash, 0, len(draft.Parents))
	for _, parentID := range draft.Parents {
		parentHashes = append(parentHashes, toHash(parentID))
	}

	commitObject := &object.Commit{
		Author:       fromSignature(draft.Author),
		Committer:    fromSignature(draft.Committer),
		Message:      draft.Message,
		TreeHash:     toHash(draft.Tree),
		ParentHashes: parentHashes,
	}

	encodedObject := store.storer.NewEncodedObject()
	if encodeError := commitObject.Encode(encodedObject); encodeError != nil {
		return vcs.ZeroObjectID, vcs.NewCondition(vcs.ErrWriteFailure, vcs.ZeroObjectID, commitWriteReasonConstant, encodeError)
	}
	return store.storeObject(encodedObject, commitWriteReasonConstant)
}

// UpdateBranch moves branchName to newTip provided it still points at expectedOldTip.
// An empty expectedOldTip requires the branch to be absent.
func (store *Store) UpdateBranch(executionContext context.Context, branchName string, newTip vcs.ObjectID, expectedOldTip vcs.ObjectID) error {
	if contextError := executionContext.Err(); contextError != nil {
		return contextError
	}

	referenceName, nameError := branchReferenceName(branchName)
	if nameError != nil {
		return nameError
	}
	newReference := plumbing.NewHashReference(referenceName, toHash(newTip))

	currentReference, currentError := store.storer.Reference(referenceName)
	switch {
	case currentError != nil && !errors.Is(currentError, plumbing.ErrReferenceNotFound):
		return vcs.NewCondition(vcs.ErrWriteFailure, newTip, referenceWriteReasonConstant, currentError)
	case currentError != nil && expectedOldTip.IsZero():
		if setError := store.storer.SetReference(newReference); setError != nil {
			return vcs.NewCondition(vcs.ErrWriteFailure, newTip, referenceWriteReasonConstant, setError)
		}
		return nil
	case currentError != nil:
		return vcs.NewCondition(vcs.ErrConcurrentUpdate, newTip, fmt.Sprintf(branchMissingReasonTemplateConstant, branchName), nil)
	case expectedOldTip.IsZero():
		return vcs.NewCondition(vcs.ErrConcurrentUpdate, newTip, fmt.Sprintf(branchExistsReasonTemplateConstant, branchName, toObjectID(currentReference.Hash()).Short()), nil)
	case toObjectID(currentReference.Hash()) != expectedOldTip:
		return vcs.NewCondition(vcs.ErrConcurrentUpdate, newTip, fmt.Sprintf(branchMovedReasonTemplateConstant, branchName, expectedOldTip.Short(), toObjectID(currentReference.Hash()).Short()), nil)
	}

	// Packed references are rewritten as loose ones first; go-git only compares loose reference files.
	if materializeError := store.storer.SetReference(currentReference); materializeError != nil {
		return vcs.NewCondition(vcs.ErrWriteFailure, newTip, referenceWriteReasonConstant, materializeError)
	}

	swapError := store.storer.CheckAndSetReference(newReference, currentReference)
	switch {
	case swapError == nil:
		return nil
	case errors.Is(swapError, storage.ErrReferenceHasChanged):
		return vcs.NewCondition(vcs.ErrConcurrentUpdate, newTip, fmt.Sprintf(branchMovedReasonTemplateConstant, branchName, expectedOldTip.Short(), "an unknown commit"), swapError)
	default:
		return vcs.NewCondition(vcs.ErrWriteFailure, newTip, referenceWriteReasonConstant, swapError)
	}
}

func (store *Store) loadCommit(commitID vcs.ObjectID) (*object.Commit, error) {
	commitObject, commitError := object.GetCommit(store.storer, toHash(commitID))
	if commitError != nil {
		return nil, classifyReadError(commitID, commitDecodeReasonConstant, commitError)
	}
	return commitObject, nil
}

func (store *Store) loadTree(treeID vcs.ObjectID) (*object.Tree, error) {
	treeObject, treeError := object.GetTree(store.storer, toHash(treeID))
	if treeError != nil {
		return nil, classifyReadError(treeID, treeReadReasonConstant, treeError)
	}
	return treeObject, nil
}

func (store *Store) storeObject(encodedObject plumbing.EncodedObject, reason string) (vcs.ObjectID, error) {
	storedHash, storeError := store.storer.SetEncodedObject(encodedObject)
	if storeError != nil {
		return vcs.ZeroObjectID, vcs.NewCondition(vcs.ErrWriteFailure, vcs.ZeroObjectID, reason, storeError)
	}
	return toObjectID(storedHash), nil
}

func classifyReadError(objectID vcs.ObjectID, reason string, readError error) error {
	if errors.Is(readError, plumbing.ErrObjectNotFound) {
		return vcs.NewCondition(vcs.ErrObjectNotFound, objectID, reason, nil)
	}
	return vcs.NewCondition(vcs.ErrObjectNotFound, objectID, reason, readError)
}

func branchReferenceName(branchName string) (plumbing.ReferenceName, error) {
	trimmedName := strings.TrimSpace(branchName)
	if len(trimmedName) == 0 {
		return "", errEmptyBranchName
	}
	if strings.HasPrefix(trimmedName, referencePrefixConstant) {
		return plumbing.ReferenceName(trimmedName), nil
	}
	return plumbing.NewBranchReferenceName(trimmedName), nil
}

func findTreeEntry(treeObject *object.Tree, name string) (object.TreeEntry, bool) {
	for _, entry := range treeObject.Entries {
		if entry.Name == name {
			return entry, true
		}
	}
	return object.TreeEntry{}, false
}

func toObjectID(hash plumbing.Hash) vcs.ObjectID {
	if hash.IsZero() {
		return vcs.ZeroObjectID
	}
	return vcs.ObjectID(hash.String())
}

func toHash(objectID vcs.ObjectID) plumbing.Hash {
	if objectID.IsZero() {
		return plumbing.ZeroHash
	}
	return plumbing.NewHash(string(objectID))
}

func toSignature(signature object.Signature) vcs.Signature {
	return vcs.Signature{Name: signature.Name, Email: signature.Email, When: signature.When}
}

func fromSignature(signature vcs.Signature) object.Signature {
	return object.Signature{Name: signature.Name, Email: signature.Email, When: signature.When}
}

func isCancellation(candidate error) bool {
	return errors.Is(candidate, context.Canceled) || errors.Is(candidate, context.DeadlineExceeded)
}
