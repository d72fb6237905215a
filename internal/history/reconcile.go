package history

import (
	"context"

	"github.com/temirov/transplant/internal/vcs"
)

const mergeContentUnavailableReasonConstant = "merge content cannot be read"

// ReconcileMerges rewrites the changes of every merge entry so that replaying the plan in order
// leaves the watched paths exactly as the merge recorded them. The replayed state of a path last
// written by a commit that is not an ancestor of the merge is left alone; a later merge joins it.
// Merges that agree with the replayed state are dropped from the plan.
func ReconcileMerges(executionContext context.Context, reader vcs.Reader, graph *AncestryGraph, plan ReplayPlan) (ReplayPlan, error) {
	reconciler := &mergeReconciler{
		reader:   reader,
		graph:    graph,
		replayed: make(map[string]vcs.Entry),
		writers:  make(map[string]vcs.ObjectID),
	}

	reconciled := ReplayPlan{Entries: make([]RelevantCommit, 0, plan.Len())}
	for _, entry := range plan.Entries {
		if contextError := executionContext.Err(); contextError != nil {
			return ReplayPlan{}, contextError
		}

		if entry.IsMerge() {
			changes, reconcileError := reconciler.mergeChanges(executionContext, entry)
			if reconcileError != nil {
				return ReplayPlan{}, reconcileError
			}
			if len(changes) == 0 {
				continue
			}
			entry = entry.Clone()
			entry.Changes = changes
			entry.Renames = renamesWithin(entry.Renames, changes)
		}

		reconciler.apply(entry)
		reconciled.Entries = append(reconciled.Entries, entry)
	}
	return reconciled, nil
}

// mergeReconciler tracks the source-side content of watched paths as the plan replays.
type mergeReconciler struct {
	reader   vcs.Reader
	graph    *AncestryGraph
	replayed map[string]vcs.Entry
	writers  map[string]vcs.ObjectID
}

func (reconciler *mergeReconciler) apply(entry RelevantCommit) {
	for _, change := range entry.Changes {
		switch change.Action {
		case vcs.ChangeDeleted, vcs.ChangeRenamed:
			delete(reconciler.replayed, change.OldPath)
			reconciler.writers[change.OldPath] = entry.SourceID()
		}
	}
	for _, change := range entry.Changes {
		switch change.Action {
		case vcs.ChangeAdded, vcs.ChangeModified, vcs.ChangeRenamed:
			reconciler.replayed[change.NewPath] = change.NewEntry
			reconciler.writers[change.NewPath] = entry.SourceID()
		}
	}
}

// mergeChanges lists the changes turning the replayed state into the merge's recorded state.
func (reconciler *mergeReconciler) mergeChanges(executionContext context.Context, entry RelevantCommit) ([]vcs.Change, error) {
	watchSet := entry.Watch
	if watchSet == nil {
		watchSet = watchSetOfChanges(entry.Changes)
	}

	recorded, recordedError := reconciler.watchedFiles(executionContext, entry.Commit, watchSet)
	if recordedError != nil {
		return nil, recordedError
	}

	candidates := make(map[string]struct{}, len(recorded))
	for path := range recorded {
		candidates[path] = struct{}{}
	}
	for path := range reconciler.replayed {
		if watchSet.Matches(path) {
			candidates[path] = struct{}{}
		}
	}

	var ancestors map[vcs.ObjectID]struct{}
	changes := make([]vcs.Change, 0)
	for _, path := range vcs.SortedPaths(candidates) {
		current, replayed := reconciler.replayed[path]
		target, present := recorded[path]
		if replayed == present && current == target {
			continue
		}

		if writer, written := reconciler.writers[path]; written {
			if ancestors == nil {
				ancestors = reconciler.graph.Ancestors(entry.SourceID())
			}
			if _, isAncestor := ancestors[writer]; !isAncestor {
				continue
			}
		}

		switch {
		case replayed && present:
			changes = append(changes, vcs.Change{Action: vcs.ChangeModified, OldPath: path, NewPath: path, OldEntry: current, NewEntry: target})
		case present:
			changes = append(changes, vcs.Change{Action: vcs.ChangeAdded, NewPath: path, NewEntry: target})
		default:
			changes = append(changes, vcs.Change{Action: vcs.ChangeDeleted, OldPath: path, OldEntry: current})
		}
	}
	return changes, nil
}

// watchedFiles collects the entries of the commit tree that fall under a watched path.
func (reconciler *mergeReconciler) watchedFiles(executionContext context.Context, record vcs.CommitRecord, watchSet *WatchSet) (map[string]vcs.Entry, error) {
	files := make(map[string]vcs.Entry)
	for _, watchedPath := range watchSet.Paths() {
		entry, found, lookupError := reconciler.reader.TreeEntry(executionContext, record.Tree, watchedPath)
		if lookupError != nil {
			return nil, reconcileFailure(record.ID, watchedPath, lookupError)
		}
		if !found {
			continue
		}
		if entry.Mode != vcs.FileModeDirectory {
			files[watchedPath] = entry
			continue
		}

		nested, listError := reconciler.reader.Files(executionContext, entry.ID)
		if listError != nil {
			return nil, reconcileFailure(record.ID, watchedPath, listError)
		}
		for nestedPath, nestedEntry := range nested {
			files[vcs.JoinPath(watchedPath, nestedPath)] = nestedEntry
		}
	}
	return files, nil
}

func reconcileFailure(commitID vcs.ObjectID, path string, cause error) error {
	if isCancellation(cause) {
		return cause
	}
	return vcs.NewCondition(vcs.ErrHistoryUnavailable, commitID, mergeContentUnavailableReasonConstant, cause).WithPath(path)
}

func watchSetOfChanges(changes []vcs.Change) *WatchSet {
	watchSet := NewWatchSet()
	for _, change := range changes {
		watchSet.Add(change.OldPath)
		watchSet.Add(change.NewPath)
	}
	return watchSet
}

// renamesWithin keeps the rename events whose destination is still written by changes.
func renamesWithin(renames []RenameEvent, changes []vcs.Change) []RenameEvent {
	written := make(map[string]struct{}, len(changes))
	for _, change := range changes {
		if len(change.NewPath) > 0 {
			written[change.NewPath] = struct{}{}
		}
	}
	kept := make([]RenameEvent, 0, len(renames))
	for _, renameEvent := range renames {
		if _, stillWritten := written[renameEvent.NewPath]; stillWritten {
			kept = append(kept, renameEvent)
		}
	}
	return kept
}
