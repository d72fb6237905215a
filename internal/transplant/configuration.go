package transplant

import (
	"strings"

	"github.com/temirov/transplant/internal/gitstore"
	"github.com/temirov/transplant/internal/report"
	pathutils "github.com/temirov/transplant/internal/utils/path"
)

const (
	configurationBranchKeyConstant          = "branch"
	configurationTargetBranchKeyConstant    = "target_branch"
	configurationRemoteURLKeyConstant       = "remote_url"
	configurationTargetDirectoryKeyConstant = "target_directory"
	configurationAllowOverwriteKeyConstant  = "allow_overwrite"
	configurationDryRunKeyConstant          = "dry_run"
	configurationReportFormatKeyConstant    = "report_format"
	configurationRefreshWorktreeKeyConstant = "refresh_worktree"
	configurationCommitterNameKeyConstant   = "committer.name"
	configurationCommitterEmailKeyConstant  = "committer.email"
	configurationRenameExactOnlyKeyConstant = "rename_detection.exact_only"
	configurationRenameScoreKeyConstant     = "rename_detection.score"
	configurationKeySeparatorConstant       = "."
)

var configurationHomeExpander = pathutils.NewHomeExpander()

// CommitterConfiguration names the identity recorded as committer of transplanted commits.
type CommitterConfiguration struct {
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
}

// RenameDetectionConfiguration controls how deleted and added paths of one commit are paired as renames.
type RenameDetectionConfiguration struct {
	ExactOnly bool `mapstructure:"exact_only"`
	Score     uint `mapstructure:"score"`
}

// CommandConfiguration captures persisted configuration for the move command.
type CommandConfiguration struct {
	Branch          string                       `mapstructure:"branch"`
	TargetBranch    string                       `mapstructure:"target_branch"`
	RemoteURL       string                       `mapstructure:"remote_url"`
	TargetDirectory string                       `mapstructure:"target_directory"`
	AllowOverwrite  bool                         `mapstructure:"allow_overwrite"`
	DryRun          bool                         `mapstructure:"dry_run"`
	ReportFormat    string                       `mapstructure:"report_format"`
	RefreshWorktree bool                         `mapstructure:"refresh_worktree"`
	Committer       CommitterConfiguration       `mapstructure:"committer"`
	RenameDetection RenameDetectionConfiguration `mapstructure:"rename_detection"`
}

// DefaultCommandConfiguration returns baseline configuration values for the move command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Branch:          defaultBranchNameConstant,
		ReportFormat:    string(report.FormatTable),
		RefreshWorktree: true,
		RenameDetection: RenameDetectionConfiguration{Score: gitstore.DefaultRenameScore},
	}
}

// DefaultConfigurationValues exposes the defaults keyed for the configuration loader under prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	values := map[string]any{
		configurationBranchKeyConstant:          defaults.Branch,
		configurationTargetBranchKeyConstant:    defaults.TargetBranch,
		configurationRemoteURLKeyConstant:       defaults.RemoteURL,
		configurationTargetDirectoryKeyConstant: defaults.TargetDirectory,
		configurationAllowOverwriteKeyConstant:  defaults.AllowOverwrite,
		configurationDryRunKeyConstant:          defaults.DryRun,
		configurationReportFormatKeyConstant:    defaults.ReportFormat,
		configurationRefreshWorktreeKeyConstant: defaults.RefreshWorktree,
		configurationCommitterNameKeyConstant:   defaults.Committer.Name,
		configurationCommitterEmailKeyConstant:  defaults.Committer.Email,
		configurationRenameExactOnlyKeyConstant: defaults.RenameDetection.ExactOnly,
		configurationRenameScoreKeyConstant:     defaults.RenameDetection.Score,
	}

	trimmedPrefix := strings.Trim(strings.TrimSpace(prefix), configurationKeySeparatorConstant)
	if len(trimmedPrefix) == 0 {
		return values
	}
	prefixed := make(map[string]any, len(values))
	for key, value := range values {
		prefixed[trimmedPrefix+configurationKeySeparatorConstant+key] = value
	}
	return prefixed
}

// Sanitize trims configured values and fills empty ones with defaults.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration
	sanitized.Branch = strings.TrimSpace(configuration.Branch)
	if len(sanitized.Branch) == 0 {
		sanitized.Branch = defaults.Branch
	}
	sanitized.TargetBranch = strings.TrimSpace(configuration.TargetBranch)
	sanitized.RemoteURL = configurationHomeExpander.Expand(strings.TrimSpace(configuration.RemoteURL))
	sanitized.TargetDirectory = strings.TrimSpace(configuration.TargetDirectory)
	sanitized.ReportFormat = strings.ToLower(strings.TrimSpace(configuration.ReportFormat))
	if len(sanitized.ReportFormat) == 0 {
		sanitized.ReportFormat = defaults.ReportFormat
	}
	sanitized.Committer = CommitterConfiguration{
		Name:  strings.TrimSpace(configuration.Committer.Name),
		Email: strings.TrimSpace(configuration.Committer.Email),
	}
	if sanitized.RenameDetection.Score == 0 || sanitized.RenameDetection.Score > gitstore.MaximumRenameScore {
		sanitized.RenameDetection.Score = defaults.RenameDetection.Score
	}
	return sanitized
}

// Detection converts the configuration into the store's rename pairing settings.
func (configuration RenameDetectionConfiguration) Detection() gitstore.RenameDetection {
	return gitstore.RenameDetection{ExactOnly: configuration.ExactOnly, Score: configuration.Score}
}
