package gitstore

import (
	"context"
	"errors"
	"io"
	"sort"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/temirov/transplant/internal/vcs"
)

const (
	// DefaultRenameScore is the similarity, in percent, a deleted and an added file need to pair up as a rename.
	DefaultRenameScore = 60
	// MaximumRenameScore accepts only identical content.
	MaximumRenameScore = 100
)

// RenameDetection configures how deletions and additions within one commit pair up as renames.
type RenameDetection struct {
	// ExactOnly pairs files only when their content is identical.
	ExactOnly bool
	// Score is the minimum content similarity for inexact pairs. Zero selects DefaultRenameScore.
	Score uint
}

func (detection RenameDetection) diffOptions() *object.DiffTreeOptions {
	score := detection.Score
	if score == 0 || score > MaximumRenameScore {
		score = DefaultRenameScore
	}
	return &object.DiffTreeOptions{
		DetectRenames:    true,
		RenameScore:      score,
		OnlyExactRenames: detection.ExactOnly,
	}
}

// diffTrees returns the path-level changes turning oldTreeID into newTreeID ordered by path.
func (store *Store) diffTrees(executionContext context.Context, oldTreeID vcs.ObjectID, newTreeID vcs.ObjectID) ([]vcs.Change, error) {
	oldTree, oldError := store.optionalTree(oldTreeID)
	if oldError != nil {
		return nil, oldError
	}
	newTree, newError := store.optionalTree(newTreeID)
	if newError != nil {
		return nil, newError
	}

	treeChanges, diffError := object.DiffTreeWithOptions(executionContext, oldTree, newTree, store.renameDetection.diffOptions())
	if diffError != nil {
		if errors.Is(diffError, object.ErrCanceled) && executionContext.Err() != nil {
			return nil, executionContext.Err()
		}
		return nil, diffError
	}

	changes := make([]vcs.Change, 0, len(treeChanges))
	for _, treeChange := range treeChanges {
		change, convertError := toChange(treeChange)
		if convertError != nil {
			return nil, convertError
		}
		changes = append(changes, change)
	}
	sort.SliceStable(changes, func(leftIndex int, rightIndex int) bool {
		return primaryPath(changes[leftIndex]) < primaryPath(changes[rightIndex])
	})
	return changes, nil
}

// treeFiles lists every non-directory entry reachable from treeID keyed by path.
func (store *Store) treeFiles(treeID vcs.ObjectID) (map[string]vcs.Entry, error) {
	files := make(map[string]vcs.Entry)
	treeObject, treeError := store.optionalTree(treeID)
	if treeError != nil || treeObject == nil {
		return files, treeError
	}

	walker := object.NewTreeWalker(treeObject, true, nil)
	defer walker.Close()
	for {
		entryPath, treeEntry, walkError := walker.Next()
		if errors.Is(walkError, io.EOF) {
			return files, nil
		}
		if walkError != nil {
			return nil, walkError
		}
		if treeEntry.Mode == filemode.Dir {
			continue
		}
		files[entryPath] = vcs.Entry{ID: toObjectID(treeEntry.Hash), Mode: vcs.FileMode(treeEntry.Mode)}
	}
}

func (store *Store) optionalTree(treeID vcs.ObjectID) (*object.Tree, error) {
	if treeID.IsZero() {
		return nil, nil
	}
	return store.loadTree(treeID)
}

func toChange(treeChange *object.Change) (vcs.Change, error) {
	action, actionError := treeChange.Action()
	if actionError != nil {
		return vcs.Change{}, actionError
	}

	oldEntry := vcs.Entry{ID: toObjectID(treeChange.From.TreeEntry.Hash), Mode: vcs.FileMode(treeChange.From.TreeEntry.Mode)}
	newEntry := vcs.Entry{ID: toObjectID(treeChange.To.TreeEntry.Hash), Mode: vcs.FileMode(treeChange.To.TreeEntry.Mode)}
	switch {
	case action == merkletrie.Insert:
		return vcs.Change{Action: vcs.ChangeAdded, NewPath: treeChange.To.Name, NewEntry: newEntry}, nil
	case action == merkletrie.Delete:
		return vcs.Change{Action: vcs.ChangeDeleted, OldPath: treeChange.From.Name, OldEntry: oldEntry}, nil
	case treeChange.From.Name != treeChange.To.Name:
		return vcs.Change{Action: vcs.ChangeRenamed, OldPath: treeChange.From.Name, NewPath: treeChange.To.Name, OldEntry: oldEntry, NewEntry: newEntry}, nil
	default:
		return vcs.Change{Action: vcs.ChangeModified, OldPath: treeChange.From.Name, NewPath: treeChange.To.Name, OldEntry: oldEntry, NewEntry: newEntry}, nil
	}
}

func primaryPath(change vcs.Change) string {
	if len(change.NewPath) > 0 {
		return change.NewPath
	}
	return change.OldPath
}
