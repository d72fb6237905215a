package report

import (
	"time"

	"github.com/temirov/transplant/internal/vcs"
)

// Status summarizes a run.
type Status string

// Supported run statuses.
const (
	StatusSuccess Status = Status("success")
	StatusPartial Status = Status("partial")
	StatusFailure Status = Status("failure")
)

// StepOutcome classifies what happened to one planned commit.
type StepOutcome string

// Supported step outcomes.
const (
	StepCreated StepOutcome = StepOutcome("created")
	StepSkipped StepOutcome = StepOutcome("skipped")
	StepFailed  StepOutcome = StepOutcome("failed")
	StepPlanned StepOutcome = StepOutcome("planned")
)

// SkipReason explains a skipped step.
type SkipReason string

// Supported skip reasons.
const (
	SkipReasonNoOp                SkipReason = SkipReason("no-op")
	SkipReasonAlreadyTransplanted SkipReason = SkipReason("already-transplanted")
)

// WarningKind classifies a warning raised while resolving conflicts.
type WarningKind string

// Supported warning kinds.
const (
	WarningSupersession WarningKind = WarningKind("supersession")
	WarningOverwrite    WarningKind = WarningKind("overwrite")
	WarningWorktree     WarningKind = WarningKind("worktree")
)

// Step is the immutable result of one plan entry.
type Step struct {
	SourceID vcs.ObjectID `json:"source" yaml:"source"`
	TargetID vcs.ObjectID `json:"target,omitempty" yaml:"target,omitempty"`
	Outcome  StepOutcome  `json:"outcome" yaml:"outcome"`
	Reason   SkipReason   `json:"reason,omitempty" yaml:"reason,omitempty"`
	Error    string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// Pair links a source commit to the target commit that reproduces it.
type Pair struct {
	SourceID vcs.ObjectID `json:"source" yaml:"source"`
	TargetID vcs.ObjectID `json:"target" yaml:"target"`
}

// Condition is a reported error.
type Condition struct {
	Name     string       `json:"condition" yaml:"condition"`
	CommitID vcs.ObjectID `json:"commit,omitempty" yaml:"commit,omitempty"`
	Path     string       `json:"path,omitempty" yaml:"path,omitempty"`
	Message  string       `json:"message" yaml:"message"`
}

// Warning is a reported non-fatal event.
type Warning struct {
	Kind     WarningKind  `json:"kind" yaml:"kind"`
	CommitID vcs.ObjectID `json:"commit,omitempty" yaml:"commit,omitempty"`
	Path     string       `json:"path,omitempty" yaml:"path,omitempty"`
	Message  string       `json:"message" yaml:"message"`
}

// PlanEntry summarizes one commit of the replay plan.
type PlanEntry struct {
	SourceID vcs.ObjectID `json:"source" yaml:"source"`
	Author   string       `json:"author" yaml:"author"`
	AuthorAt time.Time    `json:"author_time" yaml:"author_time"`
	Subject  string       `json:"subject" yaml:"subject"`
	Changes  int          `json:"changes" yaml:"changes"`
	Merge    bool         `json:"merge,omitempty" yaml:"merge,omitempty"`
}

// Report is the result record of a transplant run.
type Report struct {
	Status           Status       `json:"status" yaml:"status"`
	SourceRepository string       `json:"source_repository" yaml:"source_repository"`
	TargetRepository string       `json:"target_repository" yaml:"target_repository"`
	Branch           string       `json:"branch" yaml:"branch"`
	TargetBranch     string       `json:"target_branch" yaml:"target_branch"`
	DryRun           bool         `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Plan             []PlanEntry  `json:"plan" yaml:"plan"`
	Steps            []Step       `json:"steps" yaml:"steps"`
	Transplanted     []Pair       `json:"transplanted" yaml:"transplanted"`
	LastTransplanted vcs.ObjectID `json:"last_transplanted,omitempty" yaml:"last_transplanted,omitempty"`
	Errors           []Condition  `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings         []Warning    `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	StartedAt        time.Time    `json:"started_at" yaml:"started_at"`
	FinishedAt       time.Time    `json:"finished_at" yaml:"finished_at"`
}

// Count returns the number of steps with the provided outcome.
func (runReport Report) Count(outcome StepOutcome) int {
	count := 0
	for _, step := range runReport.Steps {
		if step.Outcome == outcome {
			count++
		}
	}
	return count
}

// NewCondition converts an error into a reported condition.
func NewCondition(err error, commitID vcs.ObjectID, path string) Condition {
	if commitID.IsZero() {
		commitID = vcs.ConditionCommit(err)
	}
	return Condition{Name: vcs.ConditionName(err), CommitID: commitID, Path: path, Message: err.Error()}
}
