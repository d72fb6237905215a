// Package history extracts the commits of a branch that touched a set of watched paths
// and orders them into a replay plan.
//
// Extraction walks the ancestry newest first and follows renames backwards, so a file
// watched under its current name is tracked through every historical alias. The
// linearizer then restores a parent-before-child order over the relevant commits,
// flattening merges into single entries.
package history
