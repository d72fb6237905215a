package utils_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/transplant/internal/utils"
)

const (
	testEnvironmentPrefixConstant     = "TESTTRANSPLANT"
	testBranchKeyConstant             = "tools.transplant.branch"
	testBranchEnvironmentConstant     = testEnvironmentPrefixConstant + "_TOOLS_TRANSPLANT_BRANCH"
	testConfigurationNameConstant     = "config"
	testConfigurationTypeConstant     = "yaml"
	testConfigurationFileNameConstant = "config.yaml"
	testBranchDocumentTemplate        = "tools:\n  transplant:\n    branch: %s\n"
	testLoaderSubtestTemplate         = "%d_%s"
)

type configurationFixture struct {
	Common configurationCommonFixture `mapstructure:"common"`
	Tools  configurationToolsFixture  `mapstructure:"tools"`
}

type configurationCommonFixture struct {
	LogLevel string `mapstructure:"log_level"`
}

type configurationToolsFixture struct {
	Transplant configurationTransplantFixture `mapstructure:"transplant"`
}

type configurationTransplantFixture struct {
	Branch         string   `mapstructure:"branch"`
	AllowOverwrite bool     `mapstructure:"allow_overwrite"`
	Files          []string `mapstructure:"files"`
}

func writeBranchDocument(testInstance *testing.T, directory string, branch string) string {
	testInstance.Helper()
	configurationPath := filepath.Join(directory, testConfigurationFileNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(fmt.Sprintf(testBranchDocumentTemplate, branch)), 0o600))
	return configurationPath
}

func TestConfigurationLoaderLayersSources(testInstance *testing.T) {
	testCases := []struct {
		name              string
		embeddedBranch    string
		fileBranch        string
		environmentBranch string
		expectedBranch    string
	}{
		{name: "defaults_only", expectedBranch: "master"},
		{name: "embedded_over_defaults", embeddedBranch: "trunk", expectedBranch: "trunk"},
		{name: "file_over_embedded", embeddedBranch: "trunk", fileBranch: "main", expectedBranch: "main"},
		{name: "environment_over_file", embeddedBranch: "trunk", fileBranch: "main", environmentBranch: "release", expectedBranch: "release"},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testLoaderSubtestTemplate, testCaseIndex, testCase.name), func(subtest *testing.T) {
			configurationDirectory := subtest.TempDir()
			configurationPath := ""
			if len(testCase.fileBranch) > 0 {
				configurationPath = writeBranchDocument(subtest, configurationDirectory, testCase.fileBranch)
			}
			if len(testCase.environmentBranch) > 0 {
				subtest.Setenv(testBranchEnvironmentConstant, testCase.environmentBranch)
			}

			loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{configurationDirectory})
			if len(testCase.embeddedBranch) > 0 {
				loader.SetEmbeddedConfiguration([]byte(fmt.Sprintf(testBranchDocumentTemplate, testCase.embeddedBranch)), testConfigurationTypeConstant)
			}

			var loaded configurationFixture
			metadata, loadError := loader.LoadConfiguration(configurationPath, map[string]any{testBranchKeyConstant: "master"}, &loaded)
			require.NoError(subtest, loadError)
			require.Equal(subtest, testCase.expectedBranch, loaded.Tools.Transplant.Branch)
			require.Equal(subtest, configurationPath, metadata.ConfigFileUsed)
		})
	}
}

func TestConfigurationLoaderSearchesPathsInOrder(testInstance *testing.T) {
	workingDirectory := testInstance.TempDir()
	userDirectory := testInstance.TempDir()
	writeBranchDocument(testInstance, userDirectory, "from-user-directory")

	loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{workingDirectory, userDirectory})

	var loaded configurationFixture
	metadata, loadError := loader.LoadConfiguration("", nil, &loaded)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "from-user-directory", loaded.Tools.Transplant.Branch)
	require.Equal(testInstance, filepath.Join(userDirectory, testConfigurationFileNameConstant), metadata.ConfigFileUsed)

	workingConfigurationPath := writeBranchDocument(testInstance, workingDirectory, "from-working-directory")
	metadata, loadError = loader.LoadConfiguration("", nil, &loaded)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "from-working-directory", loaded.Tools.Transplant.Branch)
	require.Equal(testInstance, workingConfigurationPath, metadata.ConfigFileUsed)
}

func TestConfigurationLoaderRejectsMissingExplicitFile(testInstance *testing.T) {
	loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil)

	var loaded configurationFixture
	_, loadError := loader.LoadConfiguration(filepath.Join(testInstance.TempDir(), "absent.yaml"), nil, &loaded)
	require.Error(testInstance, loadError)
}

func TestConfigurationLoaderRejectsMalformedEmbeddedDocument(testInstance *testing.T) {
	loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil)
	loader.SetEmbeddedConfiguration([]byte("tools: [unterminated"), testConfigurationTypeConstant)

	var loaded configurationFixture
	_, loadError := loader.LoadConfiguration("", nil, &loaded)
	require.ErrorContains(testInstance, loadError, "embedded configuration")
}

func TestConfigurationLoaderDecodesNestedEnvironmentOverrides(testInstance *testing.T) {
	testInstance.Setenv(testBranchEnvironmentConstant, "main")
	testInstance.Setenv(testEnvironmentPrefixConstant+"_TOOLS_TRANSPLANT_ALLOW_OVERWRITE", "true")
	testInstance.Setenv(testEnvironmentPrefixConstant+"_TOOLS_TRANSPLANT_FILES", "README.md,docs/guide.md")

	loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{testInstance.TempDir()})
	loader.SetEmbeddedConfiguration([]byte("tools:\n  transplant:\n    branch: master\n    allow_overwrite: false\n    files: []\n"), testConfigurationTypeConstant)

	var loaded configurationFixture
	_, loadError := loader.LoadConfiguration("", map[string]any{"common.log_level": "info"}, &loaded)
	require.NoError(testInstance, loadError)

	require.Equal(testInstance, "main", loaded.Tools.Transplant.Branch)
	require.True(testInstance, loaded.Tools.Transplant.AllowOverwrite)
	require.Equal(testInstance, []string{"README.md", "docs/guide.md"}, loaded.Tools.Transplant.Files)
	require.Equal(testInstance, "info", loaded.Common.LogLevel)
}
