// Package gitstore implements the vcs primitives on top of go-git storers.
//
// Store works with on-disk repositories opened through Open as well as with
// in-memory repositories created by NewMemoryStore, which the engine tests use
// as fixtures. Tree diffs skip identical subtrees by identifier, renames are
// detected as exact content moves, and branch updates are compare-and-swap.
package gitstore
