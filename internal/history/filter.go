package history

import (
	"time"

	"github.com/temirov/transplant/internal/vcs"
)

// RenameEvent records a rename observed on a watched lineage.
type RenameEvent struct {
	CommitID  vcs.ObjectID
	Timestamp time.Time
	OldPath   string
	NewPath   string
}

// FilterOutcome is the part of a commit that concerns the watched paths.
type FilterOutcome struct {
	Changes []vcs.Change
	Renames []RenameEvent
}

// IsEmpty reports whether no change intersected the watched paths.
func (outcome FilterOutcome) IsEmpty() bool {
	return len(outcome.Changes) == 0
}

// FilterChanges keeps the changes whose old or new path is watched, preserving their order.
// Deletions of watched paths are kept, and renames touching a watched path produce rename events.
func FilterChanges(commit vcs.CommitRecord, changes []vcs.Change, watchSet *WatchSet) FilterOutcome {
	outcome := FilterOutcome{}
	for _, change := range changes {
		oldWatched := len(change.OldPath) > 0 && watchSet.Matches(change.OldPath)
		newWatched := len(change.NewPath) > 0 && watchSet.Matches(change.NewPath)
		if !oldWatched && !newWatched {
			continue
		}

		outcome.Changes = append(outcome.Changes, change)
		if change.Action == vcs.ChangeRenamed {
			outcome.Renames = append(outcome.Renames, RenameEvent{
				CommitID:  commit.ID,
				Timestamp: commit.Timestamp(),
				OldPath:   change.OldPath,
				NewPath:   change.NewPath,
			})
		}
	}
	return outcome
}
