package history

import (
	"strings"

	"github.com/temirov/transplant/internal/vcs"
)

// WatchSet holds the logical paths tracked during extraction together with their historical aliases.
// A watched path matches a file equal to it or located below it.
type WatchSet struct {
	paths   map[string]struct{}
	aliases map[string]string
}

// NewWatchSet builds a WatchSet from caller supplied paths.
func NewWatchSet(paths ...string) *WatchSet {
	watchSet := &WatchSet{paths: make(map[string]struct{}), aliases: make(map[string]string)}
	for _, path := range paths {
		watchSet.Add(path)
	}
	return watchSet
}

// Add starts watching path.
func (watchSet *WatchSet) Add(path string) {
	normalizedPath := vcs.NormalizePath(path)
	if len(normalizedPath) == 0 {
		return
	}
	watchSet.paths[normalizedPath] = struct{}{}
}

// Remove stops watching path exactly; paths watched through a parent directory stay matched.
func (watchSet *WatchSet) Remove(path string) {
	delete(watchSet.paths, vcs.NormalizePath(path))
}

// Contains reports whether path itself is watched.
func (watchSet *WatchSet) Contains(path string) bool {
	_, watched := watchSet.paths[vcs.NormalizePath(path)]
	return watched
}

// Matches reports whether path is watched directly or through a watched directory.
func (watchSet *WatchSet) Matches(path string) bool {
	candidate := vcs.NormalizePath(path)
	if len(candidate) == 0 {
		return false
	}
	for {
		if _, watched := watchSet.paths[candidate]; watched {
			return true
		}
		separatorIndex := strings.LastIndex(candidate, "/")
		if separatorIndex < 0 {
			return false
		}
		candidate = candidate[:separatorIndex]
	}
}

// Len returns the number of watched paths.
func (watchSet *WatchSet) Len() int {
	return len(watchSet.paths)
}

// Paths returns the watched paths in lexical order.
func (watchSet *WatchSet) Paths() []string {
	return vcs.SortedPaths(watchSet.paths)
}

// Alias returns the historical name recorded for path by a rename.
func (watchSet *WatchSet) Alias(path string) (string, bool) {
	alias, found := watchSet.aliases[vcs.NormalizePath(path)]
	return alias, found
}

// Clone returns an independent copy.
func (watchSet *WatchSet) Clone() *WatchSet {
	cloned := &WatchSet{
		paths:   make(map[string]struct{}, len(watchSet.paths)),
		aliases: make(map[string]string, len(watchSet.aliases)),
	}
	for path := range watchSet.paths {
		cloned.paths[path] = struct{}{}
	}
	for newPath, oldPath := range watchSet.aliases {
		cloned.aliases[newPath] = oldPath
	}
	return cloned
}

// Merge adds every path and alias of other to the receiver.
func (watchSet *WatchSet) Merge(other *WatchSet) {
	if other == nil {
		return
	}
	for path := range other.paths {
		watchSet.paths[path] = struct{}{}
	}
	for newPath, oldPath := range other.aliases {
		if _, exists := watchSet.aliases[newPath]; !exists {
			watchSet.aliases[newPath] = oldPath
		}
	}
}

// ApplyRename moves the watch forward across a rename: when the old path is watched the new
// path becomes watched and records the old path as its alias. It reports whether the set changed.
func (watchSet *WatchSet) ApplyRename(event RenameEvent) bool {
	if !watchSet.Matches(event.OldPath) {
		return false
	}
	changed := false
	if watchSet.Contains(event.OldPath) {
		watchSet.Remove(event.OldPath)
		changed = true
	}
	if !watchSet.Matches(event.NewPath) {
		watchSet.Add(event.NewPath)
		changed = true
	}
	watchSet.aliases[event.NewPath] = event.OldPath
	return changed
}

// RevertRename moves the watch backward across a rename, as seen by the ancestors of the
// renaming commit: a watched new path is replaced by its old name. It reports whether the set changed.
func (watchSet *WatchSet) RevertRename(event RenameEvent) bool {
	if !watchSet.Matches(event.NewPath) {
		return false
	}
	changed := false
	if watchSet.Contains(event.NewPath) {
		watchSet.Remove(event.NewPath)
		changed = true
	}
	if !watchSet.Matches(event.OldPath) {
		watchSet.Add(event.OldPath)
		changed = true
	}
	watchSet.aliases[event.NewPath] = event.OldPath
	return changed
}
