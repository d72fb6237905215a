package transplant

import (
	"errors"
	"fmt"

	"github.com/temirov/transplant/internal/vcs"
)

const (
	invalidInputTemplateConstant         = "%s: %s"
	pathCollisionTemplateConstant        = "path collision at %s: target holds %s, transplant writes %s"
	pathCollisionDeleteTemplateConstant  = "path collision at %s: target holds %s, transplant deletes it"
	pathCollisionPreviewTemplateConstant = " (edit distance %d)"

	openerNotConfiguredMessageConstant = "repository opener not configured"
	runInProgressTemplateConstant      = "another transplant holds %s"
	stepFailureTemplateConstant        = "transplant %s: %v"
)

// ErrOpenerNotConfigured indicates the service was constructed without a repository opener.
var ErrOpenerNotConfigured = errors.New(openerNotConfiguredMessageConstant)

// InvalidInputError describes a rejected run option.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputTemplateConstant, inputError.FieldName, inputError.Message)
}

// CollisionPreview shows how the content written by the transplant differs from the target's content.
type CollisionPreview struct {
	EditDistance int
	Patch        string
}

// PathCollisionError reports a target path whose existing content the transplant would overwrite.
type PathCollisionError struct {
	Path          string
	CommitID      vcs.ObjectID
	SourceContent vcs.ObjectID
	TargetContent vcs.ObjectID
	Preview       *CollisionPreview
}

// Error describes the collision.
func (collisionError PathCollisionError) Error() string {
	message := fmt.Sprintf(pathCollisionDeleteTemplateConstant, collisionError.Path, collisionError.TargetContent.Short())
	if !collisionError.SourceContent.IsZero() {
		message = fmt.Sprintf(pathCollisionTemplateConstant, collisionError.Path, collisionError.TargetContent.Short(), collisionError.SourceContent.Short())
	}
	if collisionError.Preview != nil {
		message += fmt.Sprintf(pathCollisionPreviewTemplateConstant, collisionError.Preview.EditDistance)
	}
	return message
}

// Unwrap exposes the PathCollision condition.
func (collisionError PathCollisionError) Unwrap() error {
	return vcs.ErrPathCollision
}

// RunInProgressError reports that the target repository is locked by another run.
type RunInProgressError struct {
	LockPath string
}

// Error describes the held lock.
func (lockError RunInProgressError) Error() string {
	return fmt.Sprintf(runInProgressTemplateConstant, lockError.LockPath)
}

// StepError reports the plan entry whose replay failed.
type StepError struct {
	SourceID vcs.ObjectID
	Cause    error
}

// Error describes the failed step.
func (stepError StepError) Error() string {
	return fmt.Sprintf(stepFailureTemplateConstant, stepError.SourceID.Short(), stepError.Cause)
}

// Unwrap exposes the cause.
func (stepError StepError) Unwrap() error {
	return stepError.Cause
}
