package transplant

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/temirov/transplant/internal/history"
	"github.com/temirov/transplant/internal/vcs"
)

const (
	fingerprintFieldSeparatorConstant = "\x00"
	fingerprintLineSeparatorConstant  = "\n"
	fingerprintDeletedMarkerConstant  = "deleted"
	fingerprintEntryTemplateConstant  = "%s %06o"
	fingerprintAuthorTemplateConstant = "%s <%s> %d %d"
)

// authorMessageKey groups commits that could reproduce the same source commit.
type authorMessageKey struct {
	name          string
	email         string
	unixSeconds   int64
	offsetSeconds int
	message       string
}

func keyOf(record vcs.CommitRecord) authorMessageKey {
	_, offsetSeconds := record.Author.When.Zone()
	return authorMessageKey{
		name:          record.Author.Name,
		email:         record.Author.Email,
		unixSeconds:   record.Author.When.Unix(),
		offsetSeconds: offsetSeconds,
		message:       record.Message,
	}
}

// fingerprintIndex finds target commits written by an earlier run for the same plan entry.
// A target commit matches when its author, message and the resulting states of the entry's
// target paths equal those of the plan entry.
type fingerprintIndex struct {
	target     vcs.Reader
	rewriter   pathRewriter
	candidates map[authorMessageKey][]vcs.CommitRecord
	claimed    map[vcs.ObjectID]struct{}
}

// buildFingerprintIndex scans the first-parent history of the target tip and keeps the commits
// whose author and message match a plan entry. Candidates are kept oldest first.
func buildFingerprintIndex(executionContext context.Context, target vcs.Reader, tip vcs.ObjectID, plan history.ReplayPlan, rewriter pathRewriter) (*fingerprintIndex, error) {
	index := &fingerprintIndex{
		target:     target,
		rewriter:   rewriter,
		candidates: make(map[authorMessageKey][]vcs.CommitRecord),
		claimed:    make(map[vcs.ObjectID]struct{}),
	}

	wantedKeys := make(map[authorMessageKey]struct{}, plan.Len())
	for _, entry := range plan.Entries {
		wantedKeys[keyOf(entry.Commit)] = struct{}{}
	}

	for currentID := tip; !currentID.IsZero(); {
		if contextError := executionContext.Err(); contextError != nil {
			return nil, contextError
		}
		record, commitError := target.Commit(executionContext, currentID)
		if commitError != nil {
			return nil, commitError
		}
		key := keyOf(record)
		if _, wanted := wantedKeys[key]; wanted {
			index.candidates[key] = append([]vcs.CommitRecord{record}, index.candidates[key]...)
		}
		currentID = vcs.ZeroObjectID
		if len(record.Parents) > 0 {
			currentID = record.Parents[0]
		}
	}
	return index, nil
}

// Match returns the unclaimed target commit reproducing entry and claims it.
func (index *fingerprintIndex) Match(executionContext context.Context, entry history.RelevantCommit) (vcs.ObjectID, bool, error) {
	if index == nil {
		return vcs.ZeroObjectID, false, nil
	}
	candidates := index.candidates[keyOf(entry.Commit)]
	if len(candidates) == 0 {
		return vcs.ZeroObjectID, false, nil
	}

	expectedStates := index.rewriter.targetStates(entry.Changes)
	expected := fingerprintOf(entry.Commit, expectedStates)
	for _, candidate := range candidates {
		if _, claimed := index.claimed[candidate.ID]; claimed {
			continue
		}
		candidateStates := make(map[string]vcs.Entry, len(expectedStates))
		for targetPath := range expectedStates {
			existing, found, lookupError := index.target.TreeEntry(executionContext, candidate.Tree, targetPath)
			if lookupError != nil {
				return vcs.ZeroObjectID, false, lookupError
			}
			if found {
				candidateStates[targetPath] = existing
			} else {
				candidateStates[targetPath] = vcs.Entry{}
			}
		}
		if fingerprintOf(candidate, candidateStates) == expected {
			index.claimed[candidate.ID] = struct{}{}
			return candidate.ID, true, nil
		}
	}
	return vcs.ZeroObjectID, false, nil
}

// fingerprintOf digests the author identity and time, the message, and the path states.
func fingerprintOf(record vcs.CommitRecord, states map[string]vcs.Entry) string {
	_, offsetSeconds := record.Author.When.Zone()
	lines := []string{
		fmt.Sprintf(fingerprintAuthorTemplateConstant, record.Author.Name, record.Author.Email, record.Author.When.Unix(), offsetSeconds),
		record.Message,
	}

	paths := make([]string, 0, len(states))
	for path := range states {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		state := states[path]
		if state.IsZero() {
			lines = append(lines, path+fingerprintFieldSeparatorConstant+fingerprintDeletedMarkerConstant)
			continue
		}
		lines = append(lines, path+fingerprintFieldSeparatorConstant+fmt.Sprintf(fingerprintEntryTemplateConstant, state.ID, uint32(effectiveMode(state.Mode))))
	}

	digest := sha256.Sum256([]byte(strings.Join(lines, fingerprintLineSeparatorConstant)))
	return hex.EncodeToString(digest[:])
}

func effectiveMode(mode vcs.FileMode) vcs.FileMode {
	if mode == vcs.FileModeEmpty {
		return vcs.FileModeRegular
	}
	return mode
}
