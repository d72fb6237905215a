// Package remotesync keeps local repositories aligned with their remote copies around a transplant run.
//
// Before a run it fast-forwards the source and target branches from the remote site, after a run it
// publishes the target branch and refreshes a checked out target worktree so it reflects the new tip.
// All operations shell out to git through execshell.
package remotesync
