// Package gitrepo parses and formats Git remote locations.
//
// A remote site is the base location that hosts several repositories, such as
// an SSH or HTTPS owner URL or a local directory of bare repositories. The
// transplant workflow derives each repository's remote from the site and the
// repository directory name.
package gitrepo
