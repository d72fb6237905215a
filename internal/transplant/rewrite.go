package transplant

import (
	"sort"

	"github.com/temirov/transplant/internal/vcs"
)

// pathRewriter maps source paths into the target tree.
type pathRewriter struct {
	targetDirectory string
}

func newPathRewriter(targetDirectory string) pathRewriter {
	return pathRewriter{targetDirectory: vcs.NormalizePath(targetDirectory)}
}

func (rewriter pathRewriter) rewrite(sourcePath string) string {
	return vcs.JoinPath(rewriter.targetDirectory, sourcePath)
}

// targetStates returns the state each touched target path has after the changes apply.
// A zero entry marks a removed path. Removals apply before writes so a path vacated and
// refilled within one commit ends up written.
func (rewriter pathRewriter) targetStates(changes []vcs.Change) map[string]vcs.Entry {
	states := make(map[string]vcs.Entry, len(changes))
	for _, change := range changes {
		switch change.Action {
		case vcs.ChangeDeleted, vcs.ChangeRenamed:
			states[rewriter.rewrite(change.OldPath)] = vcs.Entry{}
		}
	}
	for _, change := range changes {
		switch change.Action {
		case vcs.ChangeAdded, vcs.ChangeModified, vcs.ChangeRenamed:
			states[rewriter.rewrite(change.NewPath)] = change.NewEntry
		}
	}
	return states
}

// treeEdits converts target states into edits ordered by path.
func treeEdits(states map[string]vcs.Entry) []vcs.TreeEdit {
	paths := make([]string, 0, len(states))
	for path := range states {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	edits := make([]vcs.TreeEdit, 0, len(paths))
	for _, path := range paths {
		entry := states[path]
		if entry.IsZero() {
			edits = append(edits, vcs.TreeEdit{Path: path, Remove: true})
			continue
		}
		edits = append(edits, vcs.TreeEdit{Path: path, Entry: entry})
	}
	return edits
}
