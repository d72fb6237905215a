package transplant

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/transplant/internal/gitrepo"
	"github.com/temirov/transplant/internal/history"
	"github.com/temirov/transplant/internal/remotesync"
	"github.com/temirov/transplant/internal/report"
	"github.com/temirov/transplant/internal/vcs"
)

const (
	defaultBranchNameConstant = "master"

	sourceRepositoryFieldConstant = "old-repo"
	targetRepositoryFieldConstant = "new-repo"
	filesFieldConstant            = "files"
	branchFieldConstant           = "branch"
	remoteURLFieldConstant        = "url"
	committerFieldConstant        = "committer"

	requiredValueMessageConstant           = "value required"
	invalidFilePathTemplateConstant        = "%q does not name a path inside the repository"
	sameBranchMessageConstant              = "source and target name the same branch of the same repository"
	synchronizerUnavailableMessageConstant = "remote synchronization unavailable"
	committerUnavailableTemplateConstant   = "no committer identity configured: %v"

	openRepositoryTemplateConstant           = "open %s: %w"
	targetTipTemplateConstant                = "resolve target branch %s: %w"
	targetTipCommitTemplateConstant          = "load target tip %s: %w"
	worktreeInspectionFailedTemplateConstant = "target worktree not inspected: %v"
	worktreeRefreshFailedTemplateConstant    = "target worktree not refreshed: %v"
	worktreeDirtyMessageConstant             = "target worktree has local modifications; run git read-tree -m -u to update it"
	supersessionWarningTemplateConstant      = "rename from %s supersedes lineage %s"

	planBuiltMessageConstant          = "Replay plan built"
	transplantFinishedMessageConstant = "Transplant finished"
	worktreeRefreshedMessageConstant  = "Target worktree refreshed"
	lockSkippedMessageConstant        = "Target repository not locked"
	lockReleaseFailedMessageConstant  = "Run lock not released"
	entriesFieldNameConstant          = "entries"
	statusFieldNameConstant           = "status"
	createdFieldNameConstant          = "created"
	skippedFieldNameConstant          = "skipped"
	repositoryFieldNameConstant       = "repository"
)

// RepositoryOpener opens a repository by filesystem path.
type RepositoryOpener interface {
	Open(repositoryPath string) (vcs.Repository, error)
}

// RepositoryOpenerFunc adapts a function to RepositoryOpener.
type RepositoryOpenerFunc func(repositoryPath string) (vcs.Repository, error)

// Open calls the function.
func (opener RepositoryOpenerFunc) Open(repositoryPath string) (vcs.Repository, error) {
	return opener(repositoryPath)
}

// RemoteSynchronizer aligns local repositories with their remote copies.
type RemoteSynchronizer interface {
	Prepare(executionContext context.Context, remoteBranch remotesync.RemoteBranch) error
	Publish(executionContext context.Context, remoteBranch remotesync.RemoteBranch) error
	InspectWorktree(executionContext context.Context, repositoryPath string, branch string) (remotesync.WorktreeState, error)
	RefreshWorktree(executionContext context.Context, repositoryPath string, state remotesync.WorktreeState, previousTip string, newTip string) (bool, error)
}

type identitySource interface {
	ConfiguredIdentity() (vcs.Identity, error)
}

// ServiceDependencies enumerates collaborators required by the service.
type ServiceDependencies struct {
	Logger       *zap.Logger
	Opener       RepositoryOpener
	Synchronizer RemoteSynchronizer
	Clock        func() time.Time
}

// Options configures one transplant run.
type Options struct {
	SourceRepositoryPath string
	TargetRepositoryPath string
	Branch               string
	TargetBranch         string
	Files                []string
	RemoteURL            string
	TargetDirectory      string
	DryRun               bool
	AllowOverwrite       bool
	RefreshWorktree      bool
	Committer            vcs.Identity
}

// Service moves files with their history from a source repository into a target repository.
type Service struct {
	logger       *zap.Logger
	opener       RepositoryOpener
	synchronizer RemoteSynchronizer
	clock        func() time.Time
}

// NewService constructs a Service.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Opener == nil {
		return nil, ErrOpenerNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := dependencies.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{logger: logger, opener: dependencies.Opener, synchronizer: dependencies.Synchronizer, clock: clock}, nil
}

// runState carries the values shared by the phases of one run.
type runState struct {
	options        Options
	runReport      report.Report
	source         vcs.Repository
	target         vcs.Repository
	sourceRemote   string
	targetRemote   string
	worktreeState  remotesync.WorktreeState
	worktreeLoaded bool
}

// Run executes a transplant. The report is always populated; the error joins every failure of the run.
func (service *Service) Run(executionContext context.Context, options Options) (report.Report, error) {
	normalized, validationError := normalizeOptions(options)
	state := &runState{
		options: normalized,
		runReport: report.Report{
			SourceRepository: normalized.SourceRepositoryPath,
			TargetRepository: normalized.TargetRepositoryPath,
			Branch:           normalized.Branch,
			TargetBranch:     normalized.TargetBranch,
			DryRun:           normalized.DryRun,
			Plan:             []report.PlanEntry{},
			Steps:            []report.Step{},
			Transplanted:     []report.Pair{},
			StartedAt:        service.clock(),
		},
	}
	if validationError != nil {
		return service.finish(state, validationError)
	}

	if prepareError := service.prepareRemotes(executionContext, state); prepareError != nil {
		return service.finish(state, prepareError)
	}

	if openError := service.openRepositories(state); openError != nil {
		return service.finish(state, openError)
	}

	if !normalized.DryRun {
		lock, lockError := service.lockTarget(state)
		if lockError != nil {
			return service.finish(state, lockError)
		}
		defer service.releaseLock(lock)
	}

	extractor, extractorError := history.NewExtractor(state.source, service.logger)
	if extractorError != nil {
		return service.finish(state, extractorError)
	}
	extraction, extractError := extractor.Extract(executionContext, normalized.Branch, normalized.Files)
	if extractError != nil {
		return service.finish(state, extractError)
	}
	plan, linearizeError := history.Linearize(extraction.Graph, extraction.Relevant)
	if linearizeError != nil {
		return service.finish(state, linearizeError)
	}
	plan, reconcileError := history.ReconcileMerges(executionContext, state.source, extraction.Graph, plan)
	if reconcileError != nil {
		return service.finish(state, reconcileError)
	}
	state.runReport.Plan = summarizePlan(plan)
	service.logger.Info(planBuiltMessageConstant,
		zap.String(branchFieldConstant, normalized.Branch),
		zap.Int(entriesFieldNameConstant, plan.Len()),
	)

	branchState, tipError := service.resolveTargetBranch(executionContext, state)
	if tipError != nil {
		return service.finish(state, tipError)
	}

	rewriter := newPathRewriter(normalized.TargetDirectory)
	index, indexError := buildFingerprintIndex(executionContext, state.target, branchState.Tip, plan, rewriter)
	if indexError != nil {
		return service.finish(state, indexError)
	}

	resolver := NewConflictResolver(state.source, state.target, normalized.TargetDirectory, service.logger)
	resolution, resolveError := resolver.Resolve(executionContext, plan, branchState.Tree)
	if resolveError != nil {
		return service.finish(state, resolveError)
	}
	for _, supersession := range resolution.Supersessions {
		state.runReport.Warnings = append(state.runReport.Warnings, report.Warning{
			Kind:     report.WarningSupersession,
			CommitID: supersession.CommitID,
			Path:     supersession.Path,
			Message:  fmt.Sprintf(supersessionWarningTemplateConstant, supersession.RenamedFrom, supersession.SupersededOrigin),
		})
	}
	if resolution.HasCollisions() {
		if !normalized.AllowOverwrite {
			collisionErrors := make([]error, 0, len(resolution.Collisions))
			for _, collision := range resolution.Collisions {
				collisionErrors = append(collisionErrors, collision)
			}
			return service.finish(state, collisionErrors...)
		}
		for _, collision := range resolution.Collisions {
			state.runReport.Warnings = append(state.runReport.Warnings, report.Warning{
				Kind:     report.WarningOverwrite,
				CommitID: collision.CommitID,
				Path:     collision.Path,
				Message:  collision.Error(),
			})
		}
	}

	if normalized.DryRun {
		steps, planError := planSteps(executionContext, plan, index)
		state.runReport.Steps = steps
		return service.finish(state, planError)
	}

	committer, committerError := service.resolveCommitter(state)
	if committerError != nil {
		return service.finish(state, committerError)
	}
	service.inspectWorktree(executionContext, state)

	transplanter := NewCommitTransplanter(state.source, state.target, normalized.TargetDirectory, committer, service.clock, service.logger)
	outcome, replayError := transplanter.Replay(executionContext, plan, branchState, index)
	state.runReport.Steps = outcome.Steps
	state.runReport.Transplanted = outcome.Transplanted
	state.runReport.LastTransplanted = outcome.LastTransplanted

	failures := make([]error, 0, 2)
	if replayError != nil {
		failures = append(failures, replayError)
	}
	if outcome.Final.Tip != branchState.Tip {
		service.refreshWorktree(executionContext, state, branchState.Tip, outcome.Final.Tip)
	}
	if len(state.targetRemote) > 0 && (replayError == nil || len(outcome.Transplanted) > 0) {
		publishError := service.synchronizer.Publish(executionContext, remotesync.RemoteBranch{
			RepositoryPath: normalized.TargetRepositoryPath,
			RemoteURL:      state.targetRemote,
			Branch:         normalized.TargetBranch,
		})
		if publishError != nil {
			failures = append(failures, publishError)
		}
	}
	return service.finish(state, failures...)
}

func (service *Service) prepareRemotes(executionContext context.Context, state *runState) error {
	options := state.options
	if len(options.RemoteURL) == 0 || options.DryRun {
		return nil
	}
	if service.synchronizer == nil {
		return InvalidInputError{FieldName: remoteURLFieldConstant, Message: synchronizerUnavailableMessageConstant}
	}

	sourceRemote, sourceRemoteError := gitrepo.ResolveRepositoryURL(options.RemoteURL, options.SourceRepositoryPath)
	if sourceRemoteError != nil {
		return InvalidInputError{FieldName: remoteURLFieldConstant, Message: sourceRemoteError.Error()}
	}
	targetRemote, targetRemoteError := gitrepo.ResolveRepositoryURL(options.RemoteURL, options.TargetRepositoryPath)
	if targetRemoteError != nil {
		return InvalidInputError{FieldName: remoteURLFieldConstant, Message: targetRemoteError.Error()}
	}
	state.sourceRemote = sourceRemote
	state.targetRemote = targetRemote

	if prepareError := service.synchronizer.Prepare(executionContext, remotesync.RemoteBranch{
		RepositoryPath: options.SourceRepositoryPath,
		RemoteURL:      sourceRemote,
		Branch:         options.Branch,
	}); prepareError != nil {
		return prepareError
	}
	return service.synchronizer.Prepare(executionContext, remotesync.RemoteBranch{
		RepositoryPath: options.TargetRepositoryPath,
		RemoteURL:      targetRemote,
		Branch:         options.TargetBranch,
	})
}

func (service *Service) openRepositories(state *runState) error {
	source, sourceError := service.opener.Open(state.options.SourceRepositoryPath)
	if sourceError != nil {
		return fmt.Errorf(openRepositoryTemplateConstant, state.options.SourceRepositoryPath, sourceError)
	}
	target, targetError := service.opener.Open(state.options.TargetRepositoryPath)
	if targetError != nil {
		return fmt.Errorf(openRepositoryTemplateConstant, state.options.TargetRepositoryPath, targetError)
	}
	state.source = source
	state.target = target
	return nil
}

// lockTarget takes the run lock of a filesystem backed target; other stores are not locked.
func (service *Service) lockTarget(state *runState) (*runLock, error) {
	provider, providesDirectory := state.target.(gitDirectoryProvider)
	if !providesDirectory {
		return nil, nil
	}
	gitDirectory, directoryError := provider.GitDirectory()
	if directoryError != nil {
		service.logger.Debug(lockSkippedMessageConstant, zap.String(repositoryFieldNameConstant, state.options.TargetRepositoryPath), zap.Error(directoryError))
		return nil, nil
	}
	return acquireRunLock(gitDirectory)
}

func (service *Service) releaseLock(lock *runLock) {
	if releaseError := lock.Release(); releaseError != nil {
		service.logger.Warn(lockReleaseFailedMessageConstant, zap.Error(releaseError))
	}
}

// resolveTargetBranch returns the current position of the target branch; a missing branch is unborn.
func (service *Service) resolveTargetBranch(executionContext context.Context, state *runState) (BranchState, error) {
	branchState := BranchState{Branch: state.options.TargetBranch}
	tip, tipError := state.target.ResolveBranchTip(executionContext, state.options.TargetBranch)
	if tipError != nil {
		if errors.Is(tipError, vcs.ErrRefNotFound) {
			return branchState, nil
		}
		return BranchState{}, fmt.Errorf(targetTipTemplateConstant, state.options.TargetBranch, tipError)
	}
	tipRecord, commitError := state.target.Commit(executionContext, tip)
	if commitError != nil {
		return BranchState{}, fmt.Errorf(targetTipCommitTemplateConstant, tip.Short(), commitError)
	}
	branchState.Tip = tip
	branchState.Tree = tipRecord.Tree
	return branchState, nil
}

func (service *Service) resolveCommitter(state *runState) (vcs.Identity, error) {
	committer := state.options.Committer
	if len(committer.Name) > 0 && len(committer.Email) > 0 {
		return committer, nil
	}
	source, supportsIdentity := state.target.(identitySource)
	if !supportsIdentity {
		return vcs.Identity{}, InvalidInputError{FieldName: committerFieldConstant, Message: requiredValueMessageConstant}
	}
	configured, identityError := source.ConfiguredIdentity()
	if identityError != nil {
		return vcs.Identity{}, InvalidInputError{FieldName: committerFieldConstant, Message: fmt.Sprintf(committerUnavailableTemplateConstant, identityError)}
	}
	if len(committer.Name) == 0 {
		committer.Name = configured.Name
	}
	if len(committer.Email) == 0 {
		committer.Email = configured.Email
	}
	return committer, nil
}

func (service *Service) inspectWorktree(executionContext context.Context, state *runState) {
	if !state.options.RefreshWorktree || service.synchronizer == nil {
		return
	}
	worktreeState, inspectError := service.synchronizer.InspectWorktree(executionContext, state.options.TargetRepositoryPath, state.options.TargetBranch)
	if inspectError != nil {
		state.runReport.Warnings = append(state.runReport.Warnings, report.Warning{
			Kind:    report.WarningWorktree,
			Path:    state.options.TargetRepositoryPath,
			Message: fmt.Sprintf(worktreeInspectionFailedTemplateConstant, inspectError),
		})
		return
	}
	state.worktreeState = worktreeState
	state.worktreeLoaded = true
}

func (service *Service) refreshWorktree(executionContext context.Context, state *runState, previousTip vcs.ObjectID, newTip vcs.ObjectID) {
	if !state.worktreeLoaded {
		return
	}
	if state.worktreeState.HasWorktree && state.worktreeState.BranchCheckedOut && !state.worktreeState.Clean {
		state.runReport.Warnings = append(state.runReport.Warnings, report.Warning{
			Kind:    report.WarningWorktree,
			Path:    state.options.TargetRepositoryPath,
			Message: worktreeDirtyMessageConstant,
		})
		return
	}

	refreshed, refreshError := service.synchronizer.RefreshWorktree(executionContext, state.options.TargetRepositoryPath, state.worktreeState, previousTip.String(), newTip.String())
	if refreshError != nil {
		state.runReport.Warnings = append(state.runReport.Warnings, report.Warning{
			Kind:    report.WarningWorktree,
			Path:    state.options.TargetRepositoryPath,
			Message: fmt.Sprintf(worktreeRefreshFailedTemplateConstant, refreshError),
		})
		return
	}
	if refreshed {
		service.logger.Info(worktreeRefreshedMessageConstant, zap.String(repositoryFieldNameConstant, state.options.TargetRepositoryPath))
	}
}

// finish records failures, derives the status and stamps the finish time.
func (service *Service) finish(state *runState, failures ...error) (report.Report, error) {
	runReport := state.runReport
	for _, failure := range failures {
		if failure == nil {
			continue
		}
		runReport.Errors = append(runReport.Errors, conditionOf(failure))
	}

	switch {
	case len(runReport.Errors) == 0:
		runReport.Status = report.StatusSuccess
	case len(runReport.Transplanted) > 0:
		runReport.Status = report.StatusPartial
	default:
		runReport.Status = report.StatusFailure
	}
	runReport.FinishedAt = service.clock()

	service.logger.Info(transplantFinishedMessageConstant,
		zap.String(statusFieldNameConstant, string(runReport.Status)),
		zap.Int(createdFieldNameConstant, runReport.Count(report.StepCreated)),
		zap.Int(skippedFieldNameConstant, runReport.Count(report.StepSkipped)),
	)
	return runReport, errors.Join(failures...)
}

func conditionOf(failure error) report.Condition {
	var stepError StepError
	if errors.As(failure, &stepError) {
		var conditionError vcs.ConditionError
		conditionPath := ""
		if errors.As(failure, &conditionError) {
			conditionPath = conditionError.Path
		}
		return report.NewCondition(failure, stepError.SourceID, conditionPath)
	}
	var collisionError PathCollisionError
	if errors.As(failure, &collisionError) {
		return report.NewCondition(failure, collisionError.CommitID, collisionError.Path)
	}
	var conditionError vcs.ConditionError
	if errors.As(failure, &conditionError) {
		return report.NewCondition(failure, conditionError.CommitID, conditionError.Path)
	}
	return report.NewCondition(failure, vcs.ZeroObjectID, "")
}

func normalizeOptions(options Options) (Options, error) {
	normalized := options
	normalized.SourceRepositoryPath = strings.TrimSpace(options.SourceRepositoryPath)
	normalized.TargetRepositoryPath = strings.TrimSpace(options.TargetRepositoryPath)
	normalized.Branch = strings.TrimSpace(options.Branch)
	if len(normalized.Branch) == 0 {
		normalized.Branch = defaultBranchNameConstant
	}
	normalized.TargetBranch = strings.TrimSpace(options.TargetBranch)
	if len(normalized.TargetBranch) == 0 {
		normalized.TargetBranch = normalized.Branch
	}
	normalized.RemoteURL = strings.TrimSpace(options.RemoteURL)
	normalized.TargetDirectory = vcs.NormalizePath(options.TargetDirectory)
	normalized.Committer = vcs.Identity{Name: strings.TrimSpace(options.Committer.Name), Email: strings.TrimSpace(options.Committer.Email)}

	if len(normalized.SourceRepositoryPath) == 0 {
		return normalized, InvalidInputError{FieldName: sourceRepositoryFieldConstant, Message: requiredValueMessageConstant}
	}
	if len(normalized.TargetRepositoryPath) == 0 {
		return normalized, InvalidInputError{FieldName: targetRepositoryFieldConstant, Message: requiredValueMessageConstant}
	}
	if filepath.Clean(normalized.SourceRepositoryPath) == filepath.Clean(normalized.TargetRepositoryPath) && normalized.Branch == normalized.TargetBranch {
		return normalized, InvalidInputError{FieldName: branchFieldConstant, Message: sameBranchMessageConstant}
	}

	files := make([]string, 0, len(options.Files))
	for _, rawFile := range options.Files {
		normalizedFile := vcs.NormalizePath(rawFile)
		if len(normalizedFile) == 0 || strings.HasPrefix(strings.TrimSpace(rawFile), "..") {
			return normalized, InvalidInputError{FieldName: filesFieldConstant, Message: fmt.Sprintf(invalidFilePathTemplateConstant, rawFile)}
		}
		files = append(files, normalizedFile)
	}
	if len(files) == 0 {
		return normalized, InvalidInputError{FieldName: filesFieldConstant, Message: requiredValueMessageConstant}
	}
	normalized.Files = files
	return normalized, nil
}

func summarizePlan(plan history.ReplayPlan) []report.PlanEntry {
	entries := make([]report.PlanEntry, 0, plan.Len())
	for _, entry := range plan.Entries {
		subject, _, _ := strings.Cut(strings.TrimSpace(entry.Commit.Message), "\n")
		entries = append(entries, report.PlanEntry{
			SourceID: entry.SourceID(),
			Author:   entry.Commit.Author.Name,
			AuthorAt: entry.Commit.Author.When,
			Subject:  subject,
			Changes:  len(entry.Changes),
			Merge:    entry.IsMerge(),
		})
	}
	return entries
}
