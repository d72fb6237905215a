package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/transplant/internal/transplant"
)

const (
	testConfigurationFileNameConstant = "config.yaml"
	testConfigurationContentConstant  = "common:\n  log_level: warn\ntools:\n  transplant:\n    branch: main\n    report_format: JSON\n"
	testAuthorNameConstant            = "Ada Lovelace"
	testAuthorEmailConstant           = "ada@example.com"
)

var testAuthorMoment = time.Date(2024, time.January, 2, 10, 0, 0, 0, time.UTC)

func newIsolatedApplication(t *testing.T) *Application {
	t.Helper()
	t.Setenv(configurationSearchPathEnvironmentName, t.TempDir())
	application := NewApplication()
	application.environmentLoader = nil
	return application
}

func TestInitializeConfigurationAppliesEmbeddedDefaults(t *testing.T) {
	application := newIsolatedApplication(t)
	rootCommand := application.rootCommand
	rootCommand.SetContext(context.Background())

	require.NoError(t, rootCommand.PersistentFlags().Set(logLevelFlagNameConstant, "debug"))
	require.NoError(t, application.initializeConfiguration(rootCommand))

	require.Equal(t, "debug", application.configuration.Common.LogLevel)
	require.Equal(t, transplant.DefaultCommandConfiguration(), application.configuration.Tools.Transplant.Sanitize())

	logLevel, logLevelExists := application.commandContextAccessor.LogLevel(rootCommand.Context())
	require.True(t, logLevelExists)
	require.Equal(t, "debug", logLevel)

	configurationFile, configurationFileExists := application.commandContextAccessor.ConfigurationFilePath(rootCommand.Context())
	require.True(t, configurationFileExists)
	require.Empty(t, configurationFile)
}

func TestInitializeConfigurationReadsFileAndEnvironment(t *testing.T) {
	configurationDirectory := t.TempDir()
	configurationPath := filepath.Join(configurationDirectory, testConfigurationFileNameConstant)
	require.NoError(t, os.WriteFile(configurationPath, []byte(testConfigurationContentConstant), 0o600))

	t.Setenv(configurationSearchPathEnvironmentName, configurationDirectory)
	t.Setenv("TRANSPLANT_TOOLS_TRANSPLANT_TARGET_DIRECTORY", "vendor/legacy")
	application := NewApplication()
	application.environmentLoader = nil

	require.NoError(t, application.initializeConfiguration(application.rootCommand))
	require.Equal(t, configurationPath, application.configurationMetadata.ConfigFileUsed)
	require.Equal(t, "warn", application.configuration.Common.LogLevel)
	require.Equal(t, "structured", application.configuration.Common.LogFormat)

	toolConfiguration := application.configuration.Tools.Transplant.Sanitize()
	require.Equal(t, "main", toolConfiguration.Branch)
	require.Equal(t, "json", toolConfiguration.ReportFormat)
	require.Equal(t, "vendor/legacy", toolConfiguration.TargetDirectory)
	require.True(t, toolConfiguration.RefreshWorktree)
}

func TestInitializeConfigurationRejectsUnknownLogLevel(t *testing.T) {
	application := newIsolatedApplication(t)
	require.NoError(t, application.rootCommand.PersistentFlags().Set(logLevelFlagNameConstant, "chatty"))
	require.Error(t, application.initializeConfiguration(application.rootCommand))
}

func TestEnableVerboseLoggingLowersLevel(t *testing.T) {
	application := newIsolatedApplication(t)
	application.enableVerboseLogging()

	require.NoError(t, application.initializeConfiguration(application.rootCommand))
	require.False(t, application.logger.Core().Enabled(zap.DebugLevel))

	application.enableVerboseLogging()
	require.True(t, application.logger.Core().Enabled(zap.DebugLevel))
}

func TestHumanReadableLoggingFollowsLogFormat(t *testing.T) {
	application := &Application{}
	application.configuration.Common.LogFormat = " Console "
	require.True(t, application.humanReadableLoggingEnabled())

	application.configuration.Common.LogFormat = "structured"
	require.False(t, application.humanReadableLoggingEnabled())
}

func TestExecuteRejectsIncompleteMoveInvocation(t *testing.T) {
	application := newIsolatedApplication(t)
	application.rootCommand.SetOut(&bytes.Buffer{})

	executionError := application.executeArguments([]string{"move", "old", "new"})
	var inputError transplant.InvalidInputError
	require.ErrorAs(t, executionError, &inputError)
}

func TestExecuteMovesFilesBetweenRepositories(t *testing.T) {
	workspace := t.TempDir()
	sourcePath := filepath.Join(workspace, "old-repo")
	targetPath := filepath.Join(workspace, "new-repo")

	sourceRepository, sourceInitError := git.PlainInit(sourcePath, false)
	require.NoError(t, sourceInitError)
	_, targetInitError := git.PlainInit(targetPath, false)
	require.NoError(t, targetInitError)

	commitFile(t, sourceRepository, sourcePath, "notes.txt", "first draft\n", "Add notes\n", testAuthorMoment)
	commitFile(t, sourceRepository, sourcePath, "other.txt", "noise\n", "Add other\n", testAuthorMoment.Add(time.Hour))
	commitFile(t, sourceRepository, sourcePath, "notes.txt", "second draft\n", "Revise notes\n", testAuthorMoment.Add(2*time.Hour))

	application := newIsolatedApplication(t)
	output := &bytes.Buffer{}
	application.rootCommand.SetOut(output)

	executionError := application.executeArguments([]string{
		"--log-level", "error",
		"move",
		"--report", "json",
		"--refresh-worktree", "no",
		"--committer-name", "Transplant Bot",
		"--committer-email", "bot@example.com",
		sourcePath, targetPath, "notes.txt",
	})
	require.NoError(t, executionError)

	var rendered map[string]any
	require.NoError(t, json.Unmarshal(output.Bytes(), &rendered))
	require.Equal(t, "success", rendered["status"])
	require.Len(t, rendered["transplanted"], 2)

	targetRepository, openError := git.PlainOpen(targetPath)
	require.NoError(t, openError)
	tipReference, referenceError := targetRepository.Reference(plumbing.NewBranchReferenceName("master"), true)
	require.NoError(t, referenceError)
	tipCommit, commitError := targetRepository.CommitObject(tipReference.Hash())
	require.NoError(t, commitError)

	require.Equal(t, "Revise notes\n", tipCommit.Message)
	require.Equal(t, testAuthorNameConstant, tipCommit.Author.Name)
	require.Equal(t, "Transplant Bot", tipCommit.Committer.Name)
	require.Len(t, tipCommit.ParentHashes, 1)

	tipFile, fileError := tipCommit.File("notes.txt")
	require.NoError(t, fileError)
	tipContent, contentError := tipFile.Contents()
	require.NoError(t, contentError)
	require.Equal(t, "second draft\n", tipContent)

	_, missingError := tipCommit.File("other.txt")
	require.ErrorIs(t, missingError, object.ErrFileNotFound)

	require.NoFileExists(t, filepath.Join(targetPath, ".git", "transplant.lock"))
}

func commitFile(t *testing.T, repository *git.Repository, repositoryPath string, fileName string, content string, message string, when time.Time) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(repositoryPath, fileName), []byte(content), 0o644))
	worktree, worktreeError := repository.Worktree()
	require.NoError(t, worktreeError)
	_, addError := worktree.Add(fileName)
	require.NoError(t, addError)

	signature := &object.Signature{Name: testAuthorNameConstant, Email: testAuthorEmailConstant, When: when}
	_, commitError := worktree.Commit(message, &git.CommitOptions{Author: signature, Committer: signature})
	require.NoError(t, commitError)
}
