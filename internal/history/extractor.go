package history

import (
	"context"
	"errors"
	"iter"

	"go.uber.org/zap"

	"github.com/temirov/transplant/internal/vcs"
)

const (
	changesUnavailableReasonConstant = "changes cannot be computed"
	pathsRequiredMessageConstant     = "at least one path must be watched"
	readerRequiredMessageConstant    = "repository reader not configured"

	branchFieldNameConstant        = "branch"
	commitFieldNameConstant        = "commit"
	changeCountFieldNameConstant   = "changes"
	renameCountFieldNameConstant   = "renames"
	relevantCountFieldNameConstant = "relevant_commits"
	graphSizeFieldNameConstant     = "graph_size"
	watchedPathsFieldNameConstant  = "watched_paths"
	oldPathFieldNameConstant       = "old_path"
	newPathFieldNameConstant       = "new_path"
	passFieldNameConstant          = "pass"

	relevantCommitMessageConstant   = "Relevant commit"
	renameFollowedMessageConstant   = "Following rename of watched path"
	historyExtractedMessageConstant = "History extracted"
)

var (
	errPathsRequired  = errors.New(pathsRequiredMessageConstant)
	errReaderRequired = errors.New(readerRequiredMessageConstant)
)

// RelevantCommit is a commit reduced to the changes that touched watched paths.
// Watch holds the paths watched at a merge commit and is nil for other commits.
type RelevantCommit struct {
	Commit  vcs.CommitRecord
	Changes []vcs.Change
	Renames []RenameEvent
	Watch   *WatchSet
}

// SourceID returns the identifier of the originating commit.
func (relevantCommit RelevantCommit) SourceID() vcs.ObjectID {
	return relevantCommit.Commit.ID
}

// IsMerge reports whether the originating commit had several parents.
func (relevantCommit RelevantCommit) IsMerge() bool {
	return relevantCommit.Commit.IsMerge()
}

// Clone returns a copy sharing no slices with the receiver.
func (relevantCommit RelevantCommit) Clone() RelevantCommit {
	cloned := RelevantCommit{
		Commit:  relevantCommit.Commit.Clone(),
		Changes: append([]vcs.Change(nil), relevantCommit.Changes...),
		Renames: append([]RenameEvent(nil), relevantCommit.Renames...),
	}
	if relevantCommit.Watch != nil {
		cloned.Watch = relevantCommit.Watch.Clone()
	}
	return cloned
}

// Extraction is the result of extracting the history of watched paths from one branch.
type Extraction struct {
	Graph     *AncestryGraph
	Relevant  []RelevantCommit
	Renames   []RenameEvent
	Requested []string
	Watch     *WatchSet
}

// Extractor walks branch histories through a vcs.Reader.
type Extractor struct {
	reader vcs.Reader
	logger *zap.Logger
}

// NewExtractor constructs an Extractor.
func NewExtractor(reader vcs.Reader, logger *zap.Logger) (*Extractor, error) {
	if reader == nil {
		return nil, errReaderRequired
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{reader: reader, logger: logger}, nil
}

// Walk yields the relevant commits of graph newest first. A commit is visited only after every
// child inside the graph, and each child hands the watch state it saw to its parents, with renames reverted.
// Merge commits are always yielded with their watch state: a merge can change watched paths
// relative to its other parents even when it matches its first parent.
func (extractor *Extractor) Walk(executionContext context.Context, graph *AncestryGraph, watchSet *WatchSet) iter.Seq2[RelevantCommit, error] {
	return func(yield func(RelevantCommit, error) bool) {
		tipRecord, tipFound := graph.Commit(graph.Tip())
		if !tipFound {
			return
		}

		visitedChildren := make(map[vcs.ObjectID]int)
		states := map[vcs.ObjectID]*WatchSet{graph.Tip(): watchSet.Clone()}
		queue := newCommitQueue(true)
		queue.push(tipRecord)

		for queue.Len() > 0 {
			if contextError := executionContext.Err(); contextError != nil {
				yield(RelevantCommit{}, contextError)
				return
			}

			record := queue.pop()
			state := states[record.ID]
			delete(states, record.ID)

			changes, changesError := extractor.reader.Changes(executionContext, record.ID)
			if changesError != nil {
				if !isCancellation(changesError) {
					changesError = vcs.NewCondition(vcs.ErrHistoryUnavailable, record.ID, changesUnavailableReasonConstant, changesError)
				}
				yield(RelevantCommit{}, changesError)
				return
			}

			outcome := FilterChanges(record, changes, state)
			parentState := state
			if len(outcome.Renames) > 0 {
				parentState = state.Clone()
				for _, renameEvent := range outcome.Renames {
					parentState.RevertRename(renameEvent)
				}
			}

			for _, parentID := range record.Parents {
				parentRecord, parentFound := graph.Commit(parentID)
				if !parentFound {
					continue
				}
				if existingState, exists := states[parentID]; exists {
					existingState.Merge(parentState)
				} else {
					states[parentID] = parentState.Clone()
				}
				visitedChildren[parentID]++
				if visitedChildren[parentID] == graph.ChildCount(parentID) {
					queue.push(parentRecord)
				}
			}

			if outcome.IsEmpty() && !record.IsMerge() {
				continue
			}

			extractor.logger.Debug(relevantCommitMessageConstant,
				zap.String(commitFieldNameConstant, record.ID.Short()),
				zap.Int(changeCountFieldNameConstant, len(outcome.Changes)),
				zap.Int(renameCountFieldNameConstant, len(outcome.Renames)),
			)
			relevantCommit := RelevantCommit{Commit: record, Changes: outcome.Changes, Renames: outcome.Renames}
			if record.IsMerge() {
				relevantCommit.Watch = state
			}
			if !yield(relevantCommit.Clone(), nil) {
				return
			}
		}
	}
}

// Extract loads the ancestry of branch and collects the commits touching paths. Every rename
// moving a watched path elsewhere adds the new name to the watched paths, even when the old name
// was recreated later, and the walk repeats until no new names appear.
func (extractor *Extractor) Extract(executionContext context.Context, branch string, paths []string) (Extraction, error) {
	seed := NewWatchSet(paths...)
	if seed.Len() == 0 {
		return Extraction{}, errPathsRequired
	}
	requested := seed.Paths()

	graph, graphError := LoadGraph(executionContext, extractor.reader, branch)
	if graphError != nil {
		return Extraction{}, graphError
	}
	tipRecord, _ := graph.Commit(graph.Tip())

	historical := NewWatchSet()
	for _, requestedPath := range requested {
		exists, existsError := extractor.pathExists(executionContext, tipRecord, requestedPath)
		if existsError != nil {
			return Extraction{}, existsError
		}
		if !exists {
			historical.Add(requestedPath)
		}
	}

	for pass := 1; ; pass++ {
		relevant, walkError := collectRelevant(extractor.Walk(executionContext, graph, seed))
		if walkError != nil {
			return Extraction{}, walkError
		}

		expanded := false
		renames := make([]RenameEvent, 0)
		for _, relevantCommit := range relevant {
			renames = append(renames, relevantCommit.Renames...)
			for _, renameEvent := range relevantCommit.Renames {
				if !seed.Matches(renameEvent.OldPath) || seed.Matches(renameEvent.NewPath) {
					continue
				}
				extractor.logger.Debug(renameFollowedMessageConstant,
					zap.String(commitFieldNameConstant, renameEvent.CommitID.Short()),
					zap.String(oldPathFieldNameConstant, renameEvent.OldPath),
					zap.String(newPathFieldNameConstant, renameEvent.NewPath),
					zap.Int(passFieldNameConstant, pass),
				)
				seed.Add(renameEvent.NewPath)
				expanded = true

				exists, existsError := extractor.pathExists(executionContext, tipRecord, renameEvent.NewPath)
				if existsError != nil {
					return Extraction{}, existsError
				}
				if !exists {
					historical.Add(renameEvent.NewPath)
				}
			}
		}
		if expanded {
			continue
		}

		tipWatch := NewWatchSet()
		for _, seedPath := range seed.Paths() {
			if !historical.Contains(seedPath) {
				tipWatch.Add(seedPath)
			}
		}

		extractor.logger.Info(historyExtractedMessageConstant,
			zap.String(branchFieldNameConstant, branch),
			zap.Int(graphSizeFieldNameConstant, graph.Len()),
			zap.Int(relevantCountFieldNameConstant, len(relevant)),
			zap.Strings(watchedPathsFieldNameConstant, tipWatch.Paths()),
		)

		return Extraction{
			Graph:     graph,
			Relevant:  relevant,
			Renames:   renames,
			Requested: requested,
			Watch:     tipWatch,
		}, nil
	}
}

func (extractor *Extractor) pathExists(executionContext context.Context, tipRecord vcs.CommitRecord, path string) (bool, error) {
	_, found, lookupError := extractor.reader.TreeEntry(executionContext, tipRecord.Tree, path)
	if lookupError != nil {
		if isCancellation(lookupError) {
			return false, lookupError
		}
		return false, vcs.NewCondition(vcs.ErrHistoryUnavailable, tipRecord.ID, changesUnavailableReasonConstant, lookupError).WithPath(path)
	}
	return found, nil
}

func collectRelevant(sequence iter.Seq2[RelevantCommit, error]) ([]RelevantCommit, error) {
	relevant := make([]RelevantCommit, 0)
	for relevantCommit, walkError := range sequence {
		if walkError != nil {
			return nil, walkError
		}
		relevant = append(relevant, relevantCommit)
	}
	return relevant, nil
}

func isCancellation(candidate error) bool {
	return errors.Is(candidate, context.Canceled) || errors.Is(candidate, context.DeadlineExceeded)
}
