package transplant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/transplant/internal/execshell"
	"github.com/temirov/transplant/internal/gitstore"
	"github.com/temirov/transplant/internal/remotesync"
	"github.com/temirov/transplant/internal/report"
	"github.com/temirov/transplant/internal/utils"
	"github.com/temirov/transplant/internal/utils/flags"
	pathutils "github.com/temirov/transplant/internal/utils/path"
	"github.com/temirov/transplant/internal/vcs"
)

const (
	commandUseConstant                 = "move <old-repo> <new-repo> <file>..."
	commandShortDescriptionConstant    = "Move files to another repository with their history"
	commandLongDescriptionConstant     = "move replays every commit of the old repository branch that touched the named files onto the new repository, preserving authors, author dates and messages. Reruns skip commits that were already transplanted."
	commandExampleConstant             = "  git-transplant move ~/src/old-repo ~/src/new-repo docs/guide.md scripts/build.sh\n  git-transplant move --dry-run --target-dir vendor/tools old new tools/lint.sh"
	minimumArgumentCountConstant       = 3
	targetBranchFlagNameConstant       = "target-branch"
	targetBranchFlagUsageConstant      = "Branch of the new repository that receives the commits (defaults to --branch)"
	targetDirectoryFlagNameConstant    = "target-dir"
	targetDirectoryFlagUsageConstant   = "Directory of the new repository that receives the moved files"
	reportFormatFlagNameConstant       = "report"
	reportFormatFlagUsageConstant      = "Report output format"
	committerNameFlagNameConstant      = "committer-name"
	committerNameFlagUsageConstant     = "Committer name recorded on transplanted commits (defaults to git user.name)"
	committerEmailFlagNameConstant     = "committer-email"
	committerEmailFlagUsageConstant    = "Committer email recorded on transplanted commits (defaults to git user.email)"
	verboseFlagNameConstant            = "verbose"
	verboseFlagShorthandConstant       = "v"
	verboseFlagUsageConstant           = "Increase log verbosity"
	moveFailedTemplateConstant         = "move failed: %w"
	synchronizerCreationTemplate       = "unable to construct remote synchronizer: %w"
	verboseLoggingEnabledMessage       = "Verbose logging enabled"
	logFieldVerbosityConstant          = "verbosity"
	logFieldSourceRepositoryConstant   = "old_repo"
	logFieldTargetRepositoryConstant   = "new_repo"
	logFieldFilesConstant              = "files"
	moveStartedMessageConstant         = "Transplant started"
	repositoryArgumentsMessageConstant = "requires <old-repo> <new-repo> and at least one <file>"
	repositoryArgumentsFieldConstant   = "arguments"
	unsupportedReportFormatTemplate    = "unsupported report format %q"
	reportFormatFieldConstant          = "report"
	verbosityDebugThresholdConstant    = 1
	reportRenderedMessageConstant      = "Report rendered"
	logFieldReportFormatConstant       = "report_format"
	logFieldReportSizeConstant         = "report_size"
	logFieldConfigurationFileConstant  = "config_file"
)

// Runner executes a transplant run and returns its report.
type Runner interface {
	Run(executionContext context.Context, options Options) (report.Report, error)
}

// ServiceProvider constructs a transplant runner from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (Runner, error)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

type commandOptions struct {
	runOptions      Options
	reportFormat    report.Format
	verbosity       int
	renameDetection gitstore.RenameDetection
}

// CommandBuilder assembles the move Cobra command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	VerboseLoggingEnabler        func()
	Executor                     remotesync.GitExecutor
	Opener                       RepositoryOpener
	ServiceProvider              ServiceProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	ColorProvider                func() bool
	Clock                        func() time.Time
	HomeExpander                 *pathutils.HomeExpander
}

// Build constructs the move command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		Example:       commandExampleConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          validateMoveArguments,
		RunE:          builder.runMove,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().StringP(flags.BranchFlagName, flags.BranchFlagShorthand, defaults.Branch, flags.BranchFlagUsage)
	command.Flags().String(targetBranchFlagNameConstant, "", targetBranchFlagUsageConstant)
	command.Flags().StringP(flags.RemoteURLFlagName, flags.RemoteURLFlagShorthand, "", flags.RemoteURLFlagUsage)
	command.Flags().String(targetDirectoryFlagNameConstant, "", targetDirectoryFlagUsageConstant)
	command.Flags().String(
		reportFormatFlagNameConstant,
		defaults.ReportFormat,
		flags.NewChoiceSet(defaults.ReportFormat, string(report.FormatTable), string(report.FormatYAML), string(report.FormatJSON)).Usage(reportFormatFlagUsageConstant),
	)
	command.Flags().String(committerNameFlagNameConstant, "", committerNameFlagUsageConstant)
	command.Flags().String(committerEmailFlagNameConstant, "", committerEmailFlagUsageConstant)
	command.Flags().CountP(verboseFlagNameConstant, verboseFlagShorthandConstant, verboseFlagUsageConstant)

	flags.BindExecutionFlags(command, flags.ExecutionDefaults{
		DryRun:          defaults.DryRun,
		AllowOverwrite:  defaults.AllowOverwrite,
		RefreshWorktree: defaults.RefreshWorktree,
	}, flags.DefaultExecutionFlagDefinitions())

	return command, nil
}

func validateMoveArguments(command *cobra.Command, arguments []string) error {
	if len(arguments) < minimumArgumentCountConstant {
		return InvalidInputError{FieldName: repositoryArgumentsFieldConstant, Message: repositoryArgumentsMessageConstant}
	}
	return nil
}

func (builder *CommandBuilder) runMove(command *cobra.Command, arguments []string) error {
	options, optionsError := builder.parseOptions(command, arguments)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger(options.verbosity)

	synchronizer, synchronizerError := builder.resolveSynchronizer(logger)
	if synchronizerError != nil {
		return synchronizerError
	}

	service, serviceError := builder.resolveService(ServiceDependencies{
		Logger:       logger,
		Opener:       builder.resolveOpener(options.renameDetection),
		Synchronizer: synchronizer,
		Clock:        builder.Clock,
	})
	if serviceError != nil {
		return serviceError
	}

	reportWriter := utils.NewFlushingWriter(command.OutOrStdout())
	renderer, rendererError := report.NewRenderer(reportWriter, options.reportFormat, builder.colorEnabled())
	if rendererError != nil {
		return rendererError
	}
	if builder.Clock != nil {
		renderer = renderer.WithClock(builder.Clock)
	}

	executionContext := command.Context()
	if executionContext == nil {
		executionContext = context.Background()
	}
	configurationFilePath, _ := utils.NewCommandContextAccessor().ConfigurationFilePath(executionContext)

	logger.Info(moveStartedMessageConstant,
		zap.String(logFieldSourceRepositoryConstant, options.runOptions.SourceRepositoryPath),
		zap.String(logFieldTargetRepositoryConstant, options.runOptions.TargetRepositoryPath),
		zap.Strings(logFieldFilesConstant, options.runOptions.Files),
		zap.String(logFieldConfigurationFileConstant, configurationFilePath),
	)
	runReport, runError := service.Run(executionContext, options.runOptions)
	if renderError := renderer.Render(runReport); renderError != nil {
		return renderError
	}
	logger.Debug(reportRenderedMessageConstant,
		zap.String(logFieldReportFormatConstant, string(options.reportFormat)),
		zap.String(logFieldReportSizeConstant, humanize.Bytes(uint64(reportWriter.BytesWritten()))),
	)
	if runError != nil {
		return fmt.Errorf(moveFailedTemplateConstant, runError)
	}
	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, arguments []string) (commandOptions, error) {
	if len(arguments) < minimumArgumentCountConstant {
		return commandOptions{}, InvalidInputError{FieldName: repositoryArgumentsFieldConstant, Message: repositoryArgumentsMessageConstant}
	}
	configuration := builder.resolveConfiguration()
	flagSet := command.Flags()

	branch := configuration.Branch
	if flagSet.Changed(flags.BranchFlagName) {
		branch, _ = flagSet.GetString(flags.BranchFlagName)
	}
	targetBranch := configuration.TargetBranch
	if flagSet.Changed(targetBranchFlagNameConstant) {
		targetBranch, _ = flagSet.GetString(targetBranchFlagNameConstant)
	}
	remoteURL := configuration.RemoteURL
	if flagSet.Changed(flags.RemoteURLFlagName) {
		remoteURL, _ = flagSet.GetString(flags.RemoteURLFlagName)
	}
	targetDirectory := configuration.TargetDirectory
	if flagSet.Changed(targetDirectoryFlagNameConstant) {
		targetDirectory, _ = flagSet.GetString(targetDirectoryFlagNameConstant)
	}
	reportFormatValue := configuration.ReportFormat
	if flagSet.Changed(reportFormatFlagNameConstant) {
		reportFormatValue, _ = flagSet.GetString(reportFormatFlagNameConstant)
	}
	committer := vcs.Identity{Name: configuration.Committer.Name, Email: configuration.Committer.Email}
	if flagSet.Changed(committerNameFlagNameConstant) {
		committer.Name, _ = flagSet.GetString(committerNameFlagNameConstant)
	}
	if flagSet.Changed(committerEmailFlagNameConstant) {
		committer.Email, _ = flagSet.GetString(committerEmailFlagNameConstant)
	}

	reportFormat, formatError := report.ParseFormat(reportFormatValue)
	if formatError != nil {
		return commandOptions{}, InvalidInputError{FieldName: reportFormatFieldConstant, Message: fmt.Sprintf(unsupportedReportFormatTemplate, reportFormatValue)}
	}

	verbosity, _ := flagSet.GetCount(verboseFlagNameConstant)
	homeExpander := builder.resolveHomeExpander()

	return commandOptions{
		runOptions: Options{
			SourceRepositoryPath: homeExpander.Expand(strings.TrimSpace(arguments[0])),
			TargetRepositoryPath: homeExpander.Expand(strings.TrimSpace(arguments[1])),
			Branch:               branch,
			TargetBranch:         targetBranch,
			Files:                append([]string(nil), arguments[2:]...),
			RemoteURL:            homeExpander.Expand(strings.TrimSpace(remoteURL)),
			TargetDirectory:      targetDirectory,
			DryRun:               resolveToggle(command, flags.DryRunFlagName, configuration.DryRun),
			AllowOverwrite:       resolveToggle(command, flags.AllowOverwriteFlagName, configuration.AllowOverwrite),
			RefreshWorktree:      resolveToggle(command, flags.RefreshWorktreeFlagName, configuration.RefreshWorktree),
			Committer:            committer,
		},
		reportFormat:    reportFormat,
		verbosity:       verbosity,
		renameDetection: configuration.RenameDetection.Detection(),
	}, nil
}

// resolveToggle prefers an explicitly set flag over the configured value.
func resolveToggle(command *cobra.Command, flagName string, configuredValue bool) bool {
	flagSet := command.Flags()
	if !flagSet.Changed(flagName) {
		return configuredValue
	}
	flagValue, lookupError := flagSet.GetBool(flagName)
	if lookupError != nil {
		return configuredValue
	}
	return flagValue
}

func (builder *CommandBuilder) resolveLogger(verbosity int) *zap.Logger {
	var logger *zap.Logger
	if builder.LoggerProvider != nil {
		logger = builder.LoggerProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if verbosity >= verbosityDebugThresholdConstant && builder.VerboseLoggingEnabler != nil {
		builder.VerboseLoggingEnabler()
		logger.Debug(verboseLoggingEnabledMessage, zap.Int(logFieldVerbosityConstant, verbosity))
	}
	return logger
}

func (builder *CommandBuilder) resolveSynchronizer(logger *zap.Logger) (RemoteSynchronizer, error) {
	executor := builder.Executor
	if executor == nil {
		humanReadableLogging := false
		if builder.HumanReadableLoggingProvider != nil {
			humanReadableLogging = builder.HumanReadableLoggingProvider()
		}
		shellExecutor, creationError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), humanReadableLogging)
		if creationError != nil {
			return nil, fmt.Errorf(synchronizerCreationTemplate, creationError)
		}
		executor = shellExecutor
	}

	synchronizer, synchronizerError := remotesync.NewSynchronizer(executor, logger)
	if synchronizerError != nil {
		return nil, fmt.Errorf(synchronizerCreationTemplate, synchronizerError)
	}
	return synchronizer, nil
}

func (builder *CommandBuilder) resolveOpener(renameDetection gitstore.RenameDetection) RepositoryOpener {
	if builder.Opener != nil {
		return builder.Opener
	}
	return filesystemRepositoryOpener(renameDetection)
}

func filesystemRepositoryOpener(renameDetection gitstore.RenameDetection) RepositoryOpener {
	return RepositoryOpenerFunc(func(repositoryPath string) (vcs.Repository, error) {
		store, openError := gitstore.Open(repositoryPath)
		if openError != nil {
			return nil, openError
		}
		return store.WithRenameDetection(renameDetection), nil
	})
}

func (builder *CommandBuilder) resolveService(dependencies ServiceDependencies) (Runner, error) {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(dependencies)
	}
	return NewService(dependencies)
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}

	provided := builder.ConfigurationProvider()
	return provided.Sanitize()
}

func (builder *CommandBuilder) resolveHomeExpander() *pathutils.HomeExpander {
	if builder.HomeExpander != nil {
		return builder.HomeExpander
	}
	return pathutils.NewHomeExpander()
}

func (builder *CommandBuilder) colorEnabled() bool {
	if builder.ColorProvider != nil {
		return builder.ColorProvider()
	}
	return !color.NoColor
}
