package execshell_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/transplant/internal/execshell"
)

const (
	testRepositoryDirectoryConstant = "/workspace/new-repo"
	testStandardErrorConstant       = "fatal: couldn't find remote ref master"
)

type recordingCommandRunner struct {
	executionResult  execshell.ExecutionResult
	executionError   error
	recordedCommands []execshell.ShellCommand
}

func (runner *recordingCommandRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.recordedCommands = append(runner.recordedCommands, command)
	return runner.executionResult, runner.executionError
}

func TestNewShellExecutorRequiresCollaborators(testInstance *testing.T) {
	_, missingLoggerError := execshell.NewShellExecutor(nil, &recordingCommandRunner{}, false)
	require.ErrorIs(testInstance, missingLoggerError, execshell.ErrLoggerNotConfigured)

	_, missingRunnerError := execshell.NewShellExecutor(zap.NewNop(), nil, false)
	require.ErrorIs(testInstance, missingRunnerError, execshell.ErrCommandRunnerNotConfigured)

	executor, creationError := execshell.NewShellExecutor(zap.NewNop(), &recordingCommandRunner{}, false)
	require.NoError(testInstance, creationError)
	require.NotNil(testInstance, executor)
}

func TestShellExecutorExecuteGitOutcomes(testInstance *testing.T) {
	runnerFailure := errors.New("executable file not found")
	testCases := []struct {
		name              string
		runnerResult      execshell.ExecutionResult
		runnerError       error
		expectedOutput    string
		expectedError     string
		expectedLastLevel zapcore.Level
	}{
		{
			name:              "fetch_succeeds",
			runnerResult:      execshell.ExecutionResult{StandardOutput: "done"},
			expectedOutput:    "done",
			expectedLastLevel: zapcore.DebugLevel,
		},
		{
			name:              "fetch_exits_non_zero",
			runnerResult:      execshell.ExecutionResult{StandardError: testStandardErrorConstant, ExitCode: 128},
			expectedError:     "git fetch origin master exited with code 128: " + testStandardErrorConstant,
			expectedLastLevel: zapcore.WarnLevel,
		},
		{
			name:              "git_missing",
			runnerError:       runnerFailure,
			expectedError:     "git fetch origin master could not be executed: executable file not found",
			expectedLastLevel: zapcore.ErrorLevel,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subtest *testing.T) {
			observerCore, observedLogs := observer.New(zapcore.DebugLevel)
			runner := &recordingCommandRunner{executionResult: testCase.runnerResult, executionError: testCase.runnerError}
			executor, creationError := execshell.NewShellExecutor(zap.New(observerCore), runner, false)
			require.NoError(subtest, creationError)

			result, executionError := executor.ExecuteGit(context.Background(), execshell.CommandDetails{
				Arguments:        []string{"fetch", "origin", "master"},
				WorkingDirectory: testRepositoryDirectoryConstant,
			})

			if len(testCase.expectedError) > 0 {
				require.EqualError(subtest, executionError, testCase.expectedError)
				require.Empty(subtest, result.StandardOutput)
			} else {
				require.NoError(subtest, executionError)
				require.Equal(subtest, testCase.expectedOutput, result.StandardOutput)
			}

			require.Len(subtest, runner.recordedCommands, 1)
			require.Equal(subtest, execshell.CommandGit, runner.recordedCommands[0].Name)

			entries := observedLogs.All()
			require.Len(subtest, entries, 2)
			require.Equal(subtest, testCase.expectedLastLevel, entries[1].Level)
		})
	}
}

func TestShellExecutorClassifiesErrors(testInstance *testing.T) {
	runnerFailure := errors.New("context canceled")
	executor, creationError := execshell.NewShellExecutor(zap.NewNop(), &recordingCommandRunner{executionError: runnerFailure}, false)
	require.NoError(testInstance, creationError)

	_, executionError := executor.ExecuteGit(context.Background(), execshell.CommandDetails{Arguments: []string{"push"}})
	var commandExecutionError execshell.CommandExecutionError
	require.ErrorAs(testInstance, executionError, &commandExecutionError)
	require.ErrorIs(testInstance, executionError, runnerFailure)

	failingExecutor, failingCreationError := execshell.NewShellExecutor(zap.NewNop(), &recordingCommandRunner{executionResult: execshell.ExecutionResult{ExitCode: 1}}, false)
	require.NoError(testInstance, failingCreationError)

	_, failedError := failingExecutor.ExecuteGit(context.Background(), execshell.CommandDetails{Arguments: []string{"push"}})
	var commandFailedError execshell.CommandFailedError
	require.ErrorAs(testInstance, failedError, &commandFailedError)
	require.Equal(testInstance, 1, commandFailedError.Result.ExitCode)
	require.Equal(testInstance, "git push exited with code 1", failedError.Error())
}

func TestShellExecutorHumanReadableLogging(testInstance *testing.T) {
	observerCore, observedLogs := observer.New(zapcore.DebugLevel)
	executor, creationError := execshell.NewShellExecutor(zap.New(observerCore), &recordingCommandRunner{}, true)
	require.NoError(testInstance, creationError)

	_, executionError := executor.ExecuteGit(context.Background(), execshell.CommandDetails{
		Arguments:        []string{"push", "origin", "master"},
		WorkingDirectory: testRepositoryDirectoryConstant,
	})
	require.NoError(testInstance, executionError)

	messages := make([]string, 0, observedLogs.Len())
	for _, entry := range observedLogs.All() {
		messages = append(messages, entry.Message)
	}
	require.Equal(testInstance, []string{
		"Pushing master to origin from " + testRepositoryDirectoryConstant,
		"Pushed master to origin from " + testRepositoryDirectoryConstant,
	}, messages)
}
