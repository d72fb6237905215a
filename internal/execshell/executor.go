package execshell

import (
	"context"

	"go.uber.org/zap"
)

const (
	commandFieldNameConstant          = "command"
	workingDirectoryFieldNameConstant = "working_directory"
	exitCodeFieldNameConstant         = "exit_code"
	standardErrorFieldNameConstant    = "stderr"

	commandStartedMessageConstant         = "Executing command"
	commandCompletedMessageConstant       = "Command completed"
	commandFailedMessageConstant          = "Command failed"
	commandExecutionFailedMessageConstant = "Command execution failed"
)

// CommandRunner executes shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// CommandEventObserver receives lifecycle notifications for shell command execution.
type CommandEventObserver interface {
	// CommandStarted notifies observers that command execution is beginning.
	CommandStarted(command ShellCommand)
	// CommandCompleted notifies observers that command execution finished and supplies the result.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed reports unexpected failures prior to receiving an execution result.
	CommandExecutionFailed(command ShellCommand, failure error)
}

// ShellExecutor runs commands and reports their lifecycle to an observer.
type ShellExecutor struct {
	runner   CommandRunner
	observer CommandEventObserver
}

// NewShellExecutor constructs a ShellExecutor that logs command events through logger.
// Human-readable logging replaces structured fields with sentences built by CommandMessageFormatter.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, humanReadableLogging bool) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	return &ShellExecutor{
		runner:   runner,
		observer: newLoggingObserver(logger, humanReadableLogging),
	}, nil
}

// Execute runs command and converts non-zero exit codes into CommandFailedError.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executor.observer.CommandStarted(command)

	result, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executor.observer.CommandExecutionFailed(command, runError)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	executor.observer.CommandCompleted(command, result)
	if result.ExitCode != 0 {
		return ExecutionResult{}, CommandFailedError{Command: command, Result: result}
	}
	return result, nil
}

// ExecuteGit runs git with the provided details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// loggingObserver writes command events to a zap logger.
type loggingObserver struct {
	logger        *zap.Logger
	humanReadable bool
	formatter     CommandMessageFormatter
}

func newLoggingObserver(logger *zap.Logger, humanReadable bool) loggingObserver {
	return loggingObserver{logger: logger, humanReadable: humanReadable, formatter: CommandMessageFormatter{}}
}

func (observer loggingObserver) CommandStarted(command ShellCommand) {
	if observer.humanReadable {
		observer.logger.Info(observer.formatter.BuildStartedMessage(command))
		return
	}
	observer.logger.Debug(commandStartedMessageConstant, observer.commandFields(command)...)
}

func (observer loggingObserver) CommandCompleted(command ShellCommand, result ExecutionResult) {
	if result.ExitCode != 0 {
		if observer.humanReadable {
			observer.logger.Warn(observer.formatter.BuildFailureMessage(command, result))
			return
		}
		fields := append(observer.commandFields(command),
			zap.Int(exitCodeFieldNameConstant, result.ExitCode),
			zap.String(standardErrorFieldNameConstant, result.StandardError),
		)
		observer.logger.Warn(commandFailedMessageConstant, fields...)
		return
	}

	if observer.humanReadable {
		observer.logger.Info(observer.formatter.BuildSuccessMessage(command, result))
		return
	}
	observer.logger.Debug(commandCompletedMessageConstant, observer.commandFields(command)...)
}

func (observer loggingObserver) CommandExecutionFailed(command ShellCommand, failure error) {
	if observer.humanReadable {
		observer.logger.Error(observer.formatter.BuildExecutionFailureMessage(command, failure))
		return
	}
	observer.logger.Error(commandExecutionFailedMessageConstant, append(observer.commandFields(command), zap.Error(failure))...)
}

func (observer loggingObserver) commandFields(command ShellCommand) []zap.Field {
	return []zap.Field{
		zap.String(commandFieldNameConstant, command.String()),
		zap.String(workingDirectoryFieldNameConstant, command.Details.WorkingDirectory),
	}
}
