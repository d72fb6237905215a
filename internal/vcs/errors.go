package vcs

import (
	"errors"
	"fmt"
	"strings"
)

const (
	refNotFoundMessageConstant        = "reference not found"
	objectNotFoundMessageConstant     = "object not found"
	historyUnavailableMessageConstant = "history unavailable"
	pathCollisionMessageConstant      = "path collision"
	concurrentUpdateMessageConstant   = "concurrent update"
	writeFailureMessageConstant       = "write failure"

	conditionNameRefNotFoundConstant        = "RefNotFound"
	conditionNameObjectNotFoundConstant     = "ObjectNotFound"
	conditionNameHistoryUnavailableConstant = "HistoryUnavailable"
	conditionNamePathCollisionConstant      = "PathCollision"
	conditionNameConcurrentUpdateConstant   = "ConcurrentUpdate"
	conditionNameWriteFailureConstant       = "WriteFailure"
	conditionNameUnknownConstant            = "Error"

	conditionCommitSegmentTemplateConstant = "commit %s"
	conditionPathSegmentTemplateConstant   = "path %s"
	conditionSegmentSeparatorConstant      = ", "
	conditionMessageTemplateConstant       = "%s (%s)"
	conditionReasonTemplateConstant        = "%s: %s"
	conditionCauseTemplateConstant         = "%s: %v"
)

// Condition sentinels identify the error taxonomy reported by the transplant engine.
var (
	ErrRefNotFound        = errors.New(refNotFoundMessageConstant)
	ErrObjectNotFound     = errors.New(objectNotFoundMessageConstant)
	ErrHistoryUnavailable = errors.New(historyUnavailableMessageConstant)
	ErrPathCollision      = errors.New(pathCollisionMessageConstant)
	ErrConcurrentUpdate   = errors.New(concurrentUpdateMessageConstant)
	ErrWriteFailure       = errors.New(writeFailureMessageConstant)
)

var conditionNames = []struct {
	sentinel error
	name     string
}{
	{sentinel: ErrHistoryUnavailable, name: conditionNameHistoryUnavailableConstant},
	{sentinel: ErrPathCollision, name: conditionNamePathCollisionConstant},
	{sentinel: ErrConcurrentUpdate, name: conditionNameConcurrentUpdateConstant},
	{sentinel: ErrWriteFailure, name: conditionNameWriteFailureConstant},
	{sentinel: ErrRefNotFound, name: conditionNameRefNotFoundConstant},
	{sentinel: ErrObjectNotFound, name: conditionNameObjectNotFoundConstant},
}

// ConditionError reports a classified failure together with the offending commit and path.
type ConditionError struct {
	Kind     error
	CommitID ObjectID
	Path     string
	Reason   string
	Cause    error
}

// NewCondition constructs a ConditionError of the provided kind.
func NewCondition(kind error, commitID ObjectID, reason string, cause error) ConditionError {
	return ConditionError{Kind: kind, CommitID: commitID, Reason: reason, Cause: cause}
}

// WithPath returns a copy of the condition bound to a path.
func (conditionError ConditionError) WithPath(path string) ConditionError {
	conditionError.Path = path
	return conditionError
}

// Error describes the condition.
func (conditionError ConditionError) Error() string {
	kindMessage := conditionNameUnknownConstant
	if conditionError.Kind != nil {
		kindMessage = conditionError.Kind.Error()
	}

	details := make([]string, 0, 2)
	if !conditionError.CommitID.IsZero() {
		details = append(details, fmt.Sprintf(conditionCommitSegmentTemplateConstant, conditionError.CommitID.Short()))
	}
	if len(conditionError.Path) > 0 {
		details = append(details, fmt.Sprintf(conditionPathSegmentTemplateConstant, conditionError.Path))
	}

	message := kindMessage
	if len(details) > 0 {
		message = fmt.Sprintf(conditionMessageTemplateConstant, kindMessage, strings.Join(details, conditionSegmentSeparatorConstant))
	}
	if len(conditionError.Reason) > 0 {
		message = fmt.Sprintf(conditionReasonTemplateConstant, message, conditionError.Reason)
	}
	if conditionError.Cause != nil {
		message = fmt.Sprintf(conditionCauseTemplateConstant, message, conditionError.Cause)
	}
	return message
}

// Unwrap exposes both the condition kind and the underlying cause to errors.Is and errors.As.
func (conditionError ConditionError) Unwrap() []error {
	unwrapped := make([]error, 0, 2)
	if conditionError.Kind != nil {
		unwrapped = append(unwrapped, conditionError.Kind)
	}
	if conditionError.Cause != nil {
		unwrapped = append(unwrapped, conditionError.Cause)
	}
	return unwrapped
}

// ConditionName returns the taxonomy name of the most specific condition matched by the error.
func ConditionName(err error) string {
	if err == nil {
		return ""
	}

	var conditionError ConditionError
	if errors.As(err, &conditionError) && conditionError.Kind != nil {
		for _, candidate := range conditionNames {
			if conditionError.Kind == candidate.sentinel {
				return candidate.name
			}
		}
	}

	for _, candidate := range conditionNames {
		if errors.Is(err, candidate.sentinel) {
			return candidate.name
		}
	}
	return conditionNameUnknownConstant
}

// ConditionCommit returns the commit identifier attached to the first ConditionError in the chain.
func ConditionCommit(err error) ObjectID {
	var conditionError ConditionError
	if errors.As(err, &conditionError) {
		return conditionError.CommitID
	}
	return ZeroObjectID
}
