package history

import (
	"fmt"

	"github.com/temirov/transplant/internal/vcs"
)

const (
	relevantOutsideGraphReasonConstant   = "relevant commit is not part of the loaded ancestry"
	orderViolationReasonTemplateConstant = "ancestor %s would be replayed after its descendant"
	cycleReasonConstant                  = "relevant commits do not form an acyclic graph"
)

// ReplayPlan is the linear order in which relevant commits are replayed, oldest first.
type ReplayPlan struct {
	Entries []RelevantCommit
}

// Len returns the number of plan entries.
func (plan ReplayPlan) Len() int {
	return len(plan.Entries)
}

// IsEmpty reports whether nothing needs to be replayed.
func (plan ReplayPlan) IsEmpty() bool {
	return len(plan.Entries) == 0
}

// SourceIDs lists the source commit identifiers in replay order.
func (plan ReplayPlan) SourceIDs() []vcs.ObjectID {
	identifiers := make([]vcs.ObjectID, 0, len(plan.Entries))
	for _, entry := range plan.Entries {
		identifiers = append(identifiers, entry.SourceID())
	}
	return identifiers
}

// Renames lists the rename events carried by the plan in replay order.
func (plan ReplayPlan) Renames() []RenameEvent {
	renames := make([]RenameEvent, 0)
	for _, entry := range plan.Entries {
		renames = append(renames, entry.Renames...)
	}
	return renames
}

// Linearize orders relevant commits so that every ancestor precedes its descendants.
// Commits that are not ancestors of one another are ordered by timestamp, then identifier.
// Merge commits stay single entries.
func Linearize(graph *AncestryGraph, relevant []RelevantCommit) (ReplayPlan, error) {
	relevantByID := make(map[vcs.ObjectID]RelevantCommit, len(relevant))
	for _, relevantCommit := range relevant {
		if !graph.Contains(relevantCommit.SourceID()) {
			return ReplayPlan{}, vcs.NewCondition(vcs.ErrHistoryUnavailable, relevantCommit.SourceID(), relevantOutsideGraphReasonConstant, nil)
		}
		relevantByID[relevantCommit.SourceID()] = relevantCommit
	}
	if len(relevantByID) == 0 {
		return ReplayPlan{}, nil
	}

	nearestAncestors := nearestRelevantAncestors(graph, relevantByID)

	pendingParents := make(map[vcs.ObjectID]int, len(relevantByID))
	dependents := make(map[vcs.ObjectID][]vcs.ObjectID, len(relevantByID))
	queue := newCommitQueue(false)
	for commitID, relevantCommit := range relevantByID {
		ancestors := nearestAncestors[commitID]
		pendingParents[commitID] = len(ancestors)
		for ancestorID := range ancestors {
			dependents[ancestorID] = append(dependents[ancestorID], commitID)
		}
		if len(ancestors) == 0 {
			queue.push(relevantCommit.Commit)
		}
	}

	plan := ReplayPlan{Entries: make([]RelevantCommit, 0, len(relevantByID))}
	position := make(map[vcs.ObjectID]int, len(relevantByID))
	for queue.Len() > 0 {
		record := queue.pop()
		position[record.ID] = len(plan.Entries)
		plan.Entries = append(plan.Entries, relevantByID[record.ID].Clone())
		for _, dependentID := range dependents[record.ID] {
			pendingParents[dependentID]--
			if pendingParents[dependentID] == 0 {
				queue.push(relevantByID[dependentID].Commit)
			}
		}
	}

	if len(plan.Entries) != len(relevantByID) {
		return ReplayPlan{}, vcs.NewCondition(vcs.ErrHistoryUnavailable, graph.Tip(), cycleReasonConstant, nil)
	}
	for commitID, ancestors := range nearestAncestors {
		for ancestorID := range ancestors {
			if position[ancestorID] > position[commitID] {
				return ReplayPlan{}, vcs.NewCondition(vcs.ErrHistoryUnavailable, commitID, fmt.Sprintf(orderViolationReasonTemplateConstant, ancestorID.Short()), nil)
			}
		}
	}

	return plan, nil
}

// nearestRelevantAncestors maps each relevant commit to the closest relevant commits among its ancestors.
func nearestRelevantAncestors(graph *AncestryGraph, relevantByID map[vcs.ObjectID]RelevantCommit) map[vcs.ObjectID]map[vcs.ObjectID]struct{} {
	frontier := make(map[vcs.ObjectID]map[vcs.ObjectID]struct{}, graph.Len())
	nearest := make(map[vcs.ObjectID]map[vcs.ObjectID]struct{}, len(relevantByID))

	for _, commitID := range graph.ParentsFirst() {
		record, _ := graph.Commit(commitID)
		ancestors := make(map[vcs.ObjectID]struct{})
		for _, parentID := range record.Parents {
			if _, parentRelevant := relevantByID[parentID]; parentRelevant {
				ancestors[parentID] = struct{}{}
				continue
			}
			for ancestorID := range frontier[parentID] {
				ancestors[ancestorID] = struct{}{}
			}
		}

		if _, isRelevant := relevantByID[commitID]; isRelevant {
			nearest[commitID] = ancestors
		}
		frontier[commitID] = ancestors
	}
	return nearest
}
