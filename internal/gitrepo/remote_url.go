package gitrepo

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	sshProtocolPrefixConstant           = "ssh://"
	sshUserDelimiterConstant            = "@"
	sshPathDelimiterConstant            = ":"
	httpsProtocolPrefixConstant         = "https://"
	httpProtocolPrefixConstant          = "http://"
	fileProtocolPrefixConstant          = "file://"
	gitUserPrefixConstant               = "git@"
	pathSeparatorConstant               = "/"
	gitSuffixConstant                   = ".git"
	remoteURLParseErrorTemplateConstant = "%s: %s"
	invalidRemoteURLMessageConstant     = "invalid remote url"
	invalidSiteURLMessageConstant       = "invalid remote site url"
	unknownProtocolMessageConstant      = "unsupported remote protocol"
	requiredValueMessageConstant        = "value required"
)

// RemoteProtocol enumerates supported git remote protocols.
type RemoteProtocol string

// Supported remote protocols.
const (
	RemoteProtocolSSH   RemoteProtocol = RemoteProtocol("ssh")
	RemoteProtocolHTTPS RemoteProtocol = RemoteProtocol("https")
	RemoteProtocolHTTP  RemoteProtocol = RemoteProtocol("http")
	RemoteProtocolFile  RemoteProtocol = RemoteProtocol("file")
)

// RemoteURL represents a structured git remote URL.
// For file remotes Host is empty and Owner holds the directory containing the repository.
type RemoteURL struct {
	Protocol   RemoteProtocol
	Host       string
	Owner      string
	Repository string
}

// RemoteSite is the location hosting a family of repositories.
type RemoteSite struct {
	Protocol RemoteProtocol
	Host     string
	Owner    string
}

// RemoteURLParseError indicates a remote string could not be parsed.
type RemoteURLParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, parseError.Input, parseError.Message)
}

// UnsupportedProtocolError indicates the provided protocol cannot be formatted.
type UnsupportedProtocolError struct {
	Protocol RemoteProtocol
}

// Error describes the unsupported protocol.
func (protocolError UnsupportedProtocolError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, protocolError.Protocol, unknownProtocolMessageConstant)
}

// ParseRemoteURL converts a textual remote URL into a structured representation.
func ParseRemoteURL(remote string) (RemoteURL, error) {
	trimmedRemote := strings.TrimSuffix(strings.TrimSpace(remote), pathSeparatorConstant)
	if len(trimmedRemote) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: requiredValueMessageConstant}
	}

	site, repository, splitError := splitLastSegment(trimmedRemote)
	if splitError != nil {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
	parsedSite, siteError := ParseSiteURL(site)
	if siteError != nil {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
	repositoryName, nameError := normalizeRepositoryName(repository)
	if nameError != nil {
		return RemoteURL{}, nameError
	}

	return RemoteURL{Protocol: parsedSite.Protocol, Host: parsedSite.Host, Owner: parsedSite.Owner, Repository: repositoryName}, nil
}

// ParseSiteURL parses the base location of a remote site: "git@host:owner", "ssh://git@host/owner",
// "https://host/owner", "file:///srv/git" or a plain directory path.
func ParseSiteURL(site string) (RemoteSite, error) {
	trimmedSite := strings.TrimSuffix(strings.TrimSpace(site), pathSeparatorConstant)
	if len(trimmedSite) == 0 {
		return RemoteSite{}, RemoteURLParseError{Input: site, Message: requiredValueMessageConstant}
	}

	switch {
	case strings.HasPrefix(trimmedSite, sshProtocolPrefixConstant):
		return parseSSHSite(strings.TrimPrefix(trimmedSite, sshProtocolPrefixConstant), pathSeparatorConstant)
	case strings.HasPrefix(trimmedSite, gitUserPrefixConstant):
		return parseSSHSite(trimmedSite, sshPathDelimiterConstant)
	case strings.HasPrefix(trimmedSite, httpsProtocolPrefixConstant):
		return parseHostedSite(RemoteProtocolHTTPS, strings.TrimPrefix(trimmedSite, httpsProtocolPrefixConstant), site)
	case strings.HasPrefix(trimmedSite, httpProtocolPrefixConstant):
		return parseHostedSite(RemoteProtocolHTTP, strings.TrimPrefix(trimmedSite, httpProtocolPrefixConstant), site)
	case strings.HasPrefix(trimmedSite, fileProtocolPrefixConstant):
		return RemoteSite{Protocol: RemoteProtocolFile, Owner: strings.TrimPrefix(trimmedSite, fileProtocolPrefixConstant)}, nil
	case strings.Contains(trimmedSite, "://"):
		return RemoteSite{}, RemoteURLParseError{Input: site, Message: unknownProtocolMessageConstant}
	default:
		return RemoteSite{Protocol: RemoteProtocolFile, Owner: filepath.ToSlash(trimmedSite)}, nil
	}
}

// RepositoryURL formats the remote URL of repositoryName hosted on the site.
func (site RemoteSite) RepositoryURL(repositoryName string) (string, error) {
	repository, nameError := normalizeRepositoryName(strings.TrimSpace(repositoryName))
	if nameError != nil {
		return "", nameError
	}
	return FormatRemoteURL(RemoteURL{Protocol: site.Protocol, Host: site.Host, Owner: site.Owner, Repository: repository})
}

// ResolveRepositoryURL derives the remote of the repository checked out at repositoryPath
// from the site URL and the repository directory name.
func ResolveRepositoryURL(siteURL string, repositoryPath string) (string, error) {
	site, siteError := ParseSiteURL(siteURL)
	if siteError != nil {
		return "", siteError
	}
	repositoryName := filepath.Base(filepath.Clean(strings.TrimSpace(repositoryPath)))
	if repositoryName == "." || repositoryName == string(filepath.Separator) {
		return "", RemoteURLParseError{Input: repositoryPath, Message: requiredValueMessageConstant}
	}
	return site.RepositoryURL(repositoryName)
}

// FormatRemoteURL creates a textual remote URL from a structured representation.
func FormatRemoteURL(remote RemoteURL) (string, error) {
	if len(strings.TrimSpace(remote.Repository)) == 0 {
		return "", RemoteURLParseError{Input: remote.Repository, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(remote.Owner)) == 0 {
		return "", RemoteURLParseError{Input: remote.Owner, Message: requiredValueMessageConstant}
	}
	if remote.Protocol != RemoteProtocolFile && len(strings.TrimSpace(remote.Host)) == 0 {
		return "", RemoteURLParseError{Input: remote.Host, Message: requiredValueMessageConstant}
	}

	repositoryPath := remote.Owner + pathSeparatorConstant + remote.Repository + gitSuffixConstant
	switch remote.Protocol {
	case RemoteProtocolSSH:
		return gitUserPrefixConstant + remote.Host + sshPathDelimiterConstant + repositoryPath, nil
	case RemoteProtocolHTTPS:
		return httpsProtocolPrefixConstant + remote.Host + pathSeparatorConstant + repositoryPath, nil
	case RemoteProtocolHTTP:
		return httpProtocolPrefixConstant + remote.Host + pathSeparatorConstant + repositoryPath, nil
	case RemoteProtocolFile:
		return repositoryPath, nil
	default:
		return "", UnsupportedProtocolError{Protocol: remote.Protocol}
	}
}

func parseSSHSite(site string, hostDelimiter string) (RemoteSite, error) {
	userSplitIndex := strings.Index(site, sshUserDelimiterConstant)
	if userSplitIndex == -1 {
		return RemoteSite{}, RemoteURLParseError{Input: site, Message: invalidSiteURLMessageConstant}
	}
	hostAndOwner := site[userSplitIndex+1:]
	delimiterIndex := strings.Index(hostAndOwner, hostDelimiter)
	if delimiterIndex <= 0 || delimiterIndex == len(hostAndOwner)-1 {
		return RemoteSite{}, RemoteURLParseError{Input: site, Message: invalidSiteURLMessageConstant}
	}
	return RemoteSite{
		Protocol: RemoteProtocolSSH,
		Host:     hostAndOwner[:delimiterIndex],
		Owner:    hostAndOwner[delimiterIndex+1:],
	}, nil
}

func parseHostedSite(protocol RemoteProtocol, hostAndOwner string, input string) (RemoteSite, error) {
	separatorIndex := strings.Index(hostAndOwner, pathSeparatorConstant)
	if separatorIndex <= 0 || separatorIndex == len(hostAndOwner)-1 {
		return RemoteSite{}, RemoteURLParseError{Input: input, Message: invalidSiteURLMessageConstant}
	}
	return RemoteSite{Protocol: protocol, Host: hostAndOwner[:separatorIndex], Owner: hostAndOwner[separatorIndex+1:]}, nil
}

func splitLastSegment(remote string) (string, string, error) {
	separatorIndex := strings.LastIndexAny(remote, pathSeparatorConstant+sshPathDelimiterConstant)
	if separatorIndex <= 0 || separatorIndex == len(remote)-1 {
		return "", "", RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
	return remote[:separatorIndex], remote[separatorIndex+1:], nil
}

func normalizeRepositoryName(repository string) (string, error) {
	trimmed := strings.TrimSuffix(repository, gitSuffixConstant)
	if len(trimmed) == 0 || strings.Contains(trimmed, pathSeparatorConstant) {
		return "", RemoteURLParseError{Input: repository, Message: invalidRemoteURLMessageConstant}
	}
	return trimmed, nil
}
