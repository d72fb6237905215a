package transplant

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/transplant/internal/history"
	"github.com/temirov/transplant/internal/report"
	"github.com/temirov/transplant/internal/vcs"
)

const (
	blobMismatchReasonConstant = "copied blob hashed to a different identifier"

	commitTransplantedMessageConstant = "Commit transplanted"
	commitSkippedMessageConstant      = "Commit skipped"
	commitFailedMessageConstant       = "Commit transplant failed"

	sourceFieldNameConstant = "source"
	targetFieldNameConstant = "target"
	reasonFieldNameConstant = "reason"
)

// BranchState is the position of the target branch during a replay.
// A zero Tip denotes an unborn branch.
type BranchState struct {
	Branch string
	Tip    vcs.ObjectID
	Tree   vcs.ObjectID
}

// ReplayOutcome collects the results of a replay.
type ReplayOutcome struct {
	Steps            []report.Step
	Transplanted     []report.Pair
	LastTransplanted vcs.ObjectID
	Final            BranchState
}

// CommitTransplanter replays plan entries onto the target branch.
type CommitTransplanter struct {
	source    vcs.Reader
	target    vcs.Repository
	rewriter  pathRewriter
	committer vcs.Identity
	clock     func() time.Time
	logger    *zap.Logger
	copied    map[vcs.ObjectID]struct{}
}

// NewCommitTransplanter constructs a CommitTransplanter. Transplanted commits keep their author and
// message and are committed by committer at the clock's current time.
func NewCommitTransplanter(source vcs.Reader, target vcs.Repository, targetDirectory string, committer vcs.Identity, clock func() time.Time, logger *zap.Logger) *CommitTransplanter {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommitTransplanter{
		source:    source,
		target:    target,
		rewriter:  newPathRewriter(targetDirectory),
		committer: committer,
		clock:     clock,
		logger:    logger,
		copied:    make(map[vcs.ObjectID]struct{}),
	}
}

// Replay applies the plan in order starting at state. The first failure or cancellation halts the
// replay; the branch then stays at the last commit written.
func (transplanter *CommitTransplanter) Replay(executionContext context.Context, plan history.ReplayPlan, state BranchState, index *fingerprintIndex) (ReplayOutcome, error) {
	outcome := ReplayOutcome{Steps: make([]report.Step, 0, plan.Len()), Transplanted: make([]report.Pair, 0, plan.Len()), Final: state}

	for _, entry := range plan.Entries {
		if contextError := executionContext.Err(); contextError != nil {
			return outcome, contextError
		}

		step, nextState, stepError := transplanter.replayEntry(executionContext, entry, outcome.Final, index)
		outcome.Steps = append(outcome.Steps, step)
		if stepError != nil {
			transplanter.logger.Warn(commitFailedMessageConstant,
				zap.String(sourceFieldNameConstant, entry.SourceID().Short()),
				zap.Error(stepError),
			)
			return outcome, stepError
		}

		outcome.Final = nextState
		if step.Outcome == report.StepCreated {
			outcome.Transplanted = append(outcome.Transplanted, report.Pair{SourceID: step.SourceID, TargetID: step.TargetID})
			outcome.LastTransplanted = step.SourceID
			transplanter.logger.Debug(commitTransplantedMessageConstant,
				zap.String(sourceFieldNameConstant, step.SourceID.Short()),
				zap.String(targetFieldNameConstant, step.TargetID.Short()),
			)
			continue
		}
		transplanter.logger.Debug(commitSkippedMessageConstant,
			zap.String(sourceFieldNameConstant, step.SourceID.Short()),
			zap.String(reasonFieldNameConstant, string(step.Reason)),
		)
	}
	return outcome, nil
}

func (transplanter *CommitTransplanter) replayEntry(executionContext context.Context, entry history.RelevantCommit, state BranchState, index *fingerprintIndex) (report.Step, BranchState, error) {
	sourceID := entry.SourceID()
	failed := func(cause error) (report.Step, BranchState, error) {
		return report.Step{SourceID: sourceID, Outcome: report.StepFailed, Error: cause.Error()}, state, StepError{SourceID: sourceID, Cause: cause}
	}

	existingID, alreadyTransplanted, matchError := index.Match(executionContext, entry)
	if matchError != nil {
		return failed(matchError)
	}
	if alreadyTransplanted {
		return report.Step{SourceID: sourceID, TargetID: existingID, Outcome: report.StepSkipped, Reason: report.SkipReasonAlreadyTransplanted}, state, nil
	}

	if copyError := transplanter.copyBlobs(executionContext, entry); copyError != nil {
		return failed(copyError)
	}

	newTree, treeError := transplanter.target.WriteTree(executionContext, state.Tree, treeEdits(transplanter.rewriter.targetStates(entry.Changes)))
	if treeError != nil {
		return failed(treeError)
	}
	if newTree == state.Tree || (state.Tree.IsZero() && newTree == vcs.EmptyTreeID) {
		return report.Step{SourceID: sourceID, Outcome: report.StepSkipped, Reason: report.SkipReasonNoOp}, state, nil
	}

	parents := make([]vcs.ObjectID, 0, 1)
	if !state.Tip.IsZero() {
		parents = append(parents, state.Tip)
	}
	newCommit, commitError := transplanter.target.WriteCommit(executionContext, vcs.CommitDraft{
		Tree:      newTree,
		Parents:   parents,
		Author:    entry.Commit.Author,
		Committer: transplanter.committer.At(transplanter.clock()),
		Message:   entry.Commit.Message,
	})
	if commitError != nil {
		return failed(commitError)
	}

	if updateError := transplanter.target.UpdateBranch(executionContext, state.Branch, newCommit, state.Tip); updateError != nil {
		return failed(updateError)
	}

	nextState := BranchState{Branch: state.Branch, Tip: newCommit, Tree: newTree}
	return report.Step{SourceID: sourceID, TargetID: newCommit, Outcome: report.StepCreated}, nextState, nil
}

// copyBlobs writes the content referenced by the entry into the target. Gitlinks reference
// commits of another repository and are not copied.
func (transplanter *CommitTransplanter) copyBlobs(executionContext context.Context, entry history.RelevantCommit) error {
	for _, change := range entry.Changes {
		blob := change.NewEntry
		if blob.IsZero() || blob.Mode.IsGitlink() {
			continue
		}
		if _, copied := transplanter.copied[blob.ID]; copied {
			continue
		}

		content, readError := transplanter.source.ReadBlob(executionContext, blob.ID)
		if readError != nil {
			return readError
		}
		writtenID, writeError := transplanter.target.WriteBlob(executionContext, content)
		if writeError != nil {
			return writeError
		}
		if writtenID != blob.ID {
			return vcs.NewCondition(vcs.ErrWriteFailure, entry.SourceID(), blobMismatchReasonConstant, nil).WithPath(change.NewPath)
		}
		transplanter.copied[blob.ID] = struct{}{}
	}
	return nil
}

// planSteps reports what a replay would do without writing: entries already present in the
// target are skipped, the rest are planned.
func planSteps(executionContext context.Context, plan history.ReplayPlan, index *fingerprintIndex) ([]report.Step, error) {
	steps := make([]report.Step, 0, plan.Len())
	for _, entry := range plan.Entries {
		if contextError := executionContext.Err(); contextError != nil {
			return steps, contextError
		}
		existingID, alreadyTransplanted, matchError := index.Match(executionContext, entry)
		if matchError != nil {
			return steps, matchError
		}
		if alreadyTransplanted {
			steps = append(steps, report.Step{SourceID: entry.SourceID(), TargetID: existingID, Outcome: report.StepSkipped, Reason: report.SkipReasonAlreadyTransplanted})
			continue
		}
		steps = append(steps, report.Step{SourceID: entry.SourceID(), Outcome: report.StepPlanned})
	}
	return steps, nil
}
