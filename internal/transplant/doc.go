// Package transplant moves files from one Git repository into another while
// preserving the commits that shaped them.
//
// Service coordinates a run: it extracts the relevant source history, checks the
// target for path collisions and rename supersessions, and replays each commit
// onto the target branch with compare-and-swap updates. Reruns recognise commits
// that were already transplanted through content fingerprints and skip them.
// CommandBuilder exposes the run as the move Cobra command.
package transplant
