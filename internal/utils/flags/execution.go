// Package flags provides helpers for binding standardized execution flags to Cobra commands.
package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ExecutionDefaults describes default flag values shared across commands.
type ExecutionDefaults struct {
	DryRun          bool
	AllowOverwrite  bool
	RefreshWorktree bool
}

// ExecutionFlagDefinition captures a single flag's configuration.
type ExecutionFlagDefinition struct {
	Name      string
	Usage     string
	Shorthand string
	Enabled   bool
}

// ExecutionFlagDefinitions groups execution flag definitions.
type ExecutionFlagDefinitions struct {
	DryRun          ExecutionFlagDefinition
	AllowOverwrite  ExecutionFlagDefinition
	RefreshWorktree ExecutionFlagDefinition
}

// DefaultExecutionFlagDefinitions enables every execution flag with its shared name and usage.
func DefaultExecutionFlagDefinitions() ExecutionFlagDefinitions {
	return ExecutionFlagDefinitions{
		DryRun:          ExecutionFlagDefinition{Name: DryRunFlagName, Usage: DryRunFlagUsage, Enabled: true},
		AllowOverwrite:  ExecutionFlagDefinition{Name: AllowOverwriteFlagName, Usage: AllowOverwriteFlagUsage, Enabled: true},
		RefreshWorktree: ExecutionFlagDefinition{Name: RefreshWorktreeFlagName, Usage: RefreshWorktreeFlagUsage, Enabled: true},
	}
}

// ExecutionFlagValues stores the parsed execution flag values.
type ExecutionFlagValues struct {
	DryRun          bool
	AllowOverwrite  bool
	RefreshWorktree bool
}

// BindExecutionFlags attaches standardized execution toggles to the provided command.
func BindExecutionFlags(command *cobra.Command, defaults ExecutionDefaults, definitions ExecutionFlagDefinitions) *ExecutionFlagValues {
	values := &ExecutionFlagValues{
		DryRun:          defaults.DryRun,
		AllowOverwrite:  defaults.AllowOverwrite,
		RefreshWorktree: defaults.RefreshWorktree,
	}
	if command == nil {
		return values
	}

	flagSet := command.Flags()

	bindToggleFlag(flagSet, &values.DryRun, definitions.DryRun, defaults.DryRun)
	bindToggleFlag(flagSet, &values.AllowOverwrite, definitions.AllowOverwrite, defaults.AllowOverwrite)
	bindToggleFlag(flagSet, &values.RefreshWorktree, definitions.RefreshWorktree, defaults.RefreshWorktree)
	return values
}

func bindToggleFlag(flagSet *pflag.FlagSet, target *bool, definition ExecutionFlagDefinition, defaultValue bool) {
	if flagSet == nil {
		return
	}
	if !definition.Enabled {
		return
	}
	if len(definition.Name) == 0 {
		return
	}
	if flagSet.Lookup(definition.Name) != nil {
		return
	}

	AddToggleFlag(flagSet, target, definition.Name, definition.Shorthand, defaultValue, definition.Usage)
}
