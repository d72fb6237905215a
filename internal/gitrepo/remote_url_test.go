package gitrepo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/transplant/internal/gitrepo"
)

func TestParseRemoteURL(testInstance *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected gitrepo.RemoteURL
	}{
		{
			name:     "ssh_short",
			input:    "git@github.com:temirov/notes.git",
			expected: gitrepo.RemoteURL{Protocol: gitrepo.RemoteProtocolSSH, Host: "github.com", Owner: "temirov", Repository: "notes"},
		},
		{
			name:     "ssh_scheme",
			input:    "ssh://git@example.org/team/notes.git",
			expected: gitrepo.RemoteURL{Protocol: gitrepo.RemoteProtocolSSH, Host: "example.org", Owner: "team", Repository: "notes"},
		},
		{
			name:     "https",
			input:    "https://github.com/temirov/notes",
			expected: gitrepo.RemoteURL{Protocol: gitrepo.RemoteProtocolHTTPS, Host: "github.com", Owner: "temirov", Repository: "notes"},
		},
		{
			name:     "file_directory",
			input:    "/srv/git/notes.git",
			expected: gitrepo.RemoteURL{Protocol: gitrepo.RemoteProtocolFile, Owner: "/srv/git", Repository: "notes"},
		},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			parsed, parseError := gitrepo.ParseRemoteURL(testCase.input)
			require.NoError(subTest, parseError)
			require.Equal(subTest, testCase.expected, parsed)
		})
	}
}

func TestParseRemoteURLRejectsInvalidInput(testInstance *testing.T) {
	for _, input := range []string{"", "   ", "notes", "ftp://host/owner/notes.git", "git@github.com"} {
		_, parseError := gitrepo.ParseRemoteURL(input)
		require.Error(testInstance, parseError, input)
		require.ErrorAs(testInstance, parseError, new(gitrepo.RemoteURLParseError), input)
	}
}

func TestResolveRepositoryURL(testInstance *testing.T) {
	testCases := []struct {
		name           string
		siteURL        string
		repositoryPath string
		expected       string
	}{
		{name: "ssh_site", siteURL: "git@github.com:temirov", repositoryPath: "/work/notes", expected: "git@github.com:temirov/notes.git"},
		{name: "ssh_scheme_site", siteURL: "ssh://git@example.org/team/", repositoryPath: "notes", expected: "git@example.org:team/notes.git"},
		{name: "https_site", siteURL: "https://github.com/temirov", repositoryPath: "/work/notes/", expected: "https://github.com/temirov/notes.git"},
		{name: "file_scheme_site", siteURL: "file:///srv/git", repositoryPath: "./notes", expected: "/srv/git/notes.git"},
		{name: "directory_site", siteURL: "/srv/git", repositoryPath: "notes", expected: "/srv/git/notes.git"},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			resolved, resolveError := gitrepo.ResolveRepositoryURL(testCase.siteURL, testCase.repositoryPath)
			require.NoError(subTest, resolveError)
			require.Equal(subTest, testCase.expected, resolved)
		})
	}
}

func TestResolveRepositoryURLRejectsInvalidSite(testInstance *testing.T) {
	testCases := []struct {
		name           string
		siteURL        string
		repositoryPath string
	}{
		{name: "empty_site", siteURL: "", repositoryPath: "notes"},
		{name: "unknown_scheme", siteURL: "ftp://host/owner", repositoryPath: "notes"},
		{name: "https_without_owner", siteURL: "https://github.com", repositoryPath: "notes"},
		{name: "ssh_without_owner", siteURL: "git@github.com", repositoryPath: "notes"},
		{name: "empty_repository", siteURL: "git@github.com:temirov", repositoryPath: "."},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			_, resolveError := gitrepo.ResolveRepositoryURL(testCase.siteURL, testCase.repositoryPath)
			require.Error(subTest, resolveError)
		})
	}
}

func TestFormatRemoteURLRejectsUnknownProtocol(testInstance *testing.T) {
	_, formatError := gitrepo.FormatRemoteURL(gitrepo.RemoteURL{Protocol: gitrepo.RemoteProtocol("ftp"), Host: "host", Owner: "owner", Repository: "notes"})
	require.ErrorAs(testInstance, formatError, new(gitrepo.UnsupportedProtocolError))
}
