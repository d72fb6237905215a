package flags

const (
	// DryRunFlagName exposes the shared dry-run flag name.
	DryRunFlagName = "dry-run"
	// DryRunFlagUsage describes the shared dry-run flag purpose.
	DryRunFlagUsage = "Plan the transplant and report it without writing to the target"
	// AllowOverwriteFlagName exposes the shared overwrite flag name.
	AllowOverwriteFlagName = "allow-overwrite"
	// AllowOverwriteFlagUsage describes the shared overwrite flag purpose.
	AllowOverwriteFlagUsage = "Overwrite target paths that already hold different content"
	// RefreshWorktreeFlagName exposes the shared worktree refresh flag name.
	RefreshWorktreeFlagName = "refresh-worktree"
	// RefreshWorktreeFlagUsage describes the shared worktree refresh flag purpose.
	RefreshWorktreeFlagUsage = "Update a clean checked out target worktree to the new branch tip"
	// BranchFlagName exposes the shared source branch flag name.
	BranchFlagName = "branch"
	// BranchFlagShorthand provides the shorthand for the branch flag.
	BranchFlagShorthand = "b"
	// BranchFlagUsage describes the shared source branch flag purpose.
	BranchFlagUsage = "Branch whose history is transplanted"
	// RemoteURLFlagName exposes the shared remote site flag name.
	RemoteURLFlagName = "url"
	// RemoteURLFlagShorthand provides the shorthand for the remote site flag.
	RemoteURLFlagShorthand = "u"
	// RemoteURLFlagUsage describes the shared remote site flag purpose.
	RemoteURLFlagUsage = "URL of the remote site that hosts copies of both repositories"
)
