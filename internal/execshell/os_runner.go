package execshell

import (
	"bytes"
	"context"
	"errors"
	"maps"
	"os"
	"os/exec"
	"slices"
)

const (
	gitTerminalPromptVariableConstant = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledConstant = "0"
)

// OSCommandRunner executes commands using the operating system facilities.
// Git invocations never prompt for credentials on the terminal.
type OSCommandRunner struct{}

// NewOSCommandRunner constructs a runner backed by os/exec.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{}
}

// Run executes command and reports its output and exit code.
// A non-zero exit is a result, not an error; errors mean the process could not run or was cancelled.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	var standardOutput, standardError bytes.Buffer
	process := runner.prepare(executionContext, command, &standardOutput, &standardError)

	exitCode := 0
	if runError := process.Run(); runError != nil {
		if contextError := executionContext.Err(); contextError != nil {
			return ExecutionResult{}, contextError
		}
		var exitError *exec.ExitError
		if !errors.As(runError, &exitError) {
			return ExecutionResult{}, runError
		}
		exitCode = exitError.ExitCode()
	}

	return ExecutionResult{
		StandardOutput: standardOutput.String(),
		StandardError:  standardError.String(),
		ExitCode:       exitCode,
	}, nil
}

func (runner *OSCommandRunner) prepare(executionContext context.Context, command ShellCommand, standardOutput *bytes.Buffer, standardError *bytes.Buffer) *exec.Cmd {
	process := exec.CommandContext(executionContext, string(command.Name), slices.Clone(command.Details.Arguments)...)
	process.Dir = command.Details.WorkingDirectory
	process.Env = mergeEnvironment(os.Environ(), environmentOverrides(command))
	process.Stdout = standardOutput
	process.Stderr = standardError
	if len(command.Details.StandardInput) > 0 {
		process.Stdin = bytes.NewReader(command.Details.StandardInput)
	}
	return process
}

func environmentOverrides(command ShellCommand) map[string]string {
	overrides := maps.Clone(command.Details.EnvironmentVariables)
	if overrides == nil {
		overrides = map[string]string{}
	}
	if _, explicit := overrides[gitTerminalPromptVariableConstant]; command.Name == CommandGit && !explicit {
		overrides[gitTerminalPromptVariableConstant] = gitTerminalPromptDisabledConstant
	}
	return overrides
}

// mergeEnvironment appends overrides in key order; later assignments win in os/exec.
func mergeEnvironment(baseEnvironment []string, overrides map[string]string) []string {
	merged := slices.Clone(baseEnvironment)
	for _, environmentKey := range slices.Sorted(maps.Keys(overrides)) {
		merged = append(merged, environmentKey+"="+overrides[environmentKey])
	}
	return merged
}
