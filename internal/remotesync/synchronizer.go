package remotesync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/transplant/internal/execshell"
	"github.com/temirov/transplant/internal/vcs"
)

const (
	gitFetchSubcommandConstant       = "fetch"
	gitPullSubcommandConstant        = "pull"
	gitPushSubcommandConstant        = "push"
	gitRevParseSubcommandConstant    = "rev-parse"
	gitSymbolicRefSubcommandConstant = "symbolic-ref"
	gitStatusSubcommandConstant      = "status"
	gitReadTreeSubcommandConstant    = "read-tree"

	gitFastForwardOnlyFlagConstant  = "--ff-only"
	gitIsInsideWorkTreeFlagConstant = "--is-inside-work-tree"
	gitQuietFlagConstant            = "--quiet"
	gitShortFlagConstant            = "--short"
	gitPorcelainFlagConstant        = "--porcelain"
	gitUntrackedNoFlagConstant      = "--untracked-files=no"
	gitMergeFlagConstant            = "-m"
	gitUpdateWorktreeFlagConstant   = "-u"
	gitHeadReferenceConstant        = "HEAD"
	gitTrueOutputConstant           = "true"
	refspecSeparatorConstant        = ":"
	missingRemoteReferenceConstant  = "couldn't find remote ref"

	executorNotConfiguredMessageConstant = "git executor not configured"
	prepareFailureTemplateConstant       = "prepare %s in %s: %w"
	publishFailureTemplateConstant       = "publish %s from %s: %w"
	inspectFailureTemplateConstant       = "inspect worktree %s: %w"
	refreshFailureTemplateConstant       = "refresh worktree %s: %w"

	repositoryFieldNameConstant = "repository"
	branchFieldNameConstant     = "branch"
	remoteFieldNameConstant     = "remote"

	remoteBranchMissingMessageConstant = "Remote branch absent, nothing to fetch"
	worktreeSkippedMessageConstant     = "Worktree refresh skipped"
	reasonFieldNameConstant            = "reason"
)

// ErrExecutorNotConfigured indicates the synchronizer was built without a git executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RemoteBranch names a branch of a local repository and the remote it mirrors.
type RemoteBranch struct {
	RepositoryPath string
	RemoteURL      string
	Branch         string
}

// WorktreeState describes the checkout of a local repository.
type WorktreeState struct {
	HasWorktree      bool
	CurrentBranch    string
	BranchCheckedOut bool
	Clean            bool
}

// Refreshable reports whether the worktree may be moved between trees without losing local edits.
func (state WorktreeState) Refreshable() bool {
	return state.HasWorktree && state.BranchCheckedOut && state.Clean
}

// Synchronizer runs the git commands that surround a transplant run.
type Synchronizer struct {
	executor GitExecutor
	logger   *zap.Logger
}

// NewSynchronizer constructs a Synchronizer.
func NewSynchronizer(executor GitExecutor, logger *zap.Logger) (*Synchronizer, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{executor: executor, logger: logger}, nil
}

// Prepare fast-forwards the local branch from its remote.
// A checked out branch is pulled, any other branch is fetched straight into its ref.
// A branch the remote does not carry yet is left untouched.
func (synchronizer *Synchronizer) Prepare(executionContext context.Context, remoteBranch RemoteBranch) error {
	state, inspectError := synchronizer.InspectWorktree(executionContext, remoteBranch.RepositoryPath, remoteBranch.Branch)
	if inspectError != nil {
		return fmt.Errorf(prepareFailureTemplateConstant, remoteBranch.Branch, remoteBranch.RepositoryPath, inspectError)
	}

	arguments := []string{gitFetchSubcommandConstant, remoteBranch.RemoteURL, remoteBranch.Branch + refspecSeparatorConstant + remoteBranch.Branch}
	if state.BranchCheckedOut {
		arguments = []string{gitPullSubcommandConstant, gitFastForwardOnlyFlagConstant, remoteBranch.RemoteURL, remoteBranch.Branch}
	}

	_, executeError := synchronizer.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: remoteBranch.RepositoryPath,
	})
	if executeError == nil {
		return nil
	}
	if isMissingRemoteReference(executeError) {
		synchronizer.logger.Info(remoteBranchMissingMessageConstant,
			zap.String(repositoryFieldNameConstant, remoteBranch.RepositoryPath),
			zap.String(remoteFieldNameConstant, remoteBranch.RemoteURL),
			zap.String(branchFieldNameConstant, remoteBranch.Branch),
		)
		return nil
	}
	return fmt.Errorf(prepareFailureTemplateConstant, remoteBranch.Branch, remoteBranch.RepositoryPath, executeError)
}

// Publish pushes the local branch to its remote.
func (synchronizer *Synchronizer) Publish(executionContext context.Context, remoteBranch RemoteBranch) error {
	_, executeError := synchronizer.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitPushSubcommandConstant, remoteBranch.RemoteURL, remoteBranch.Branch},
		WorkingDirectory: remoteBranch.RepositoryPath,
	})
	if executeError != nil {
		return fmt.Errorf(publishFailureTemplateConstant, remoteBranch.Branch, remoteBranch.RepositoryPath, executeError)
	}
	return nil
}

// InspectWorktree reports whether repositoryPath has a worktree, which branch it has checked out,
// and whether tracked files carry local modifications.
func (synchronizer *Synchronizer) InspectWorktree(executionContext context.Context, repositoryPath string, branch string) (WorktreeState, error) {
	workTreeResult, workTreeError := synchronizer.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitIsInsideWorkTreeFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	if workTreeError != nil {
		return WorktreeState{}, fmt.Errorf(inspectFailureTemplateConstant, repositoryPath, workTreeError)
	}
	if strings.TrimSpace(workTreeResult.StandardOutput) != gitTrueOutputConstant {
		return WorktreeState{}, nil
	}

	state := WorktreeState{HasWorktree: true}
	headResult, headError := synchronizer.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitSymbolicRefSubcommandConstant, gitQuietFlagConstant, gitShortFlagConstant, gitHeadReferenceConstant},
		WorkingDirectory: repositoryPath,
	})
	switch {
	case headError == nil:
		state.CurrentBranch = strings.TrimSpace(headResult.StandardOutput)
	case errors.As(headError, new(execshell.CommandFailedError)):
		// detached HEAD
	default:
		return WorktreeState{}, fmt.Errorf(inspectFailureTemplateConstant, repositoryPath, headError)
	}
	state.BranchCheckedOut = len(state.CurrentBranch) > 0 && state.CurrentBranch == branch

	statusResult, statusError := synchronizer.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitStatusSubcommandConstant, gitPorcelainFlagConstant, gitUntrackedNoFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	if statusError != nil {
		return WorktreeState{}, fmt.Errorf(inspectFailureTemplateConstant, repositoryPath, statusError)
	}
	state.Clean = len(strings.TrimSpace(statusResult.StandardOutput)) == 0
	return state, nil
}

// RefreshWorktree moves the index and worktree of a checked out branch from the previous tip to the new tip.
// The state must be captured before the branch moved; an empty previous tip denotes an unborn branch.
// It reports whether the worktree was refreshed.
func (synchronizer *Synchronizer) RefreshWorktree(executionContext context.Context, repositoryPath string, state WorktreeState, previousTip string, newTip string) (bool, error) {
	if !state.Refreshable() {
		synchronizer.logger.Info(worktreeSkippedMessageConstant,
			zap.String(repositoryFieldNameConstant, repositoryPath),
			zap.String(reasonFieldNameConstant, describeSkip(state)),
		)
		return false, nil
	}
	if len(previousTip) == 0 {
		previousTip = vcs.EmptyTreeID.String()
	}
	if previousTip == newTip {
		return false, nil
	}

	_, executeError := synchronizer.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitReadTreeSubcommandConstant, gitMergeFlagConstant, gitUpdateWorktreeFlagConstant, previousTip, newTip},
		WorkingDirectory: repositoryPath,
	})
	if executeError != nil {
		return false, fmt.Errorf(refreshFailureTemplateConstant, repositoryPath, executeError)
	}
	return true, nil
}

func describeSkip(state WorktreeState) string {
	switch {
	case !state.HasWorktree:
		return "bare repository"
	case !state.BranchCheckedOut:
		return "branch not checked out"
	default:
		return "worktree has local modifications"
	}
}

func isMissingRemoteReference(executeError error) bool {
	var failedError execshell.CommandFailedError
	if !errors.As(executeError, &failedError) {
		return false
	}
	return strings.Contains(strings.ToLower(failedError.Result.StandardError), missingRemoteReferenceConstant)
}
