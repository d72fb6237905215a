// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor wraps a CommandRunner with lifecycle events that are logged
// either as structured fields or as human-readable sentences, OSCommandRunner
// executes processes through os/exec, and the typed errors distinguish commands
// that exited with a failure code from commands that could not run at all.
// The transplant workflow uses it to fetch, pull, and push branches and to
// refresh checked out worktrees.
package execshell
