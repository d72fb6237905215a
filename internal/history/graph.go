package history

import (
	"context"
	"fmt"

	"github.com/temirov/transplant/internal/vcs"
)

const (
	branchUnresolvableReasonTemplateConstant = "branch %s cannot be resolved"
	commitMissingReasonConstant              = "commit object is missing"
	parentMissingReasonTemplateConstant      = "parent of commit %s is missing"
)

// AncestryGraph is an identifier keyed arena holding every ancestor of a branch tip.
type AncestryGraph struct {
	branch   string
	tip      vcs.ObjectID
	commits  map[vcs.ObjectID]vcs.CommitRecord
	order    []vcs.ObjectID
	children map[vcs.ObjectID]int
}

// Branch returns the branch the graph was loaded from.
func (graph *AncestryGraph) Branch() string {
	return graph.branch
}

// Tip returns the branch tip commit identifier.
func (graph *AncestryGraph) Tip() vcs.ObjectID {
	return graph.tip
}

// Len returns the number of commits in the arena.
func (graph *AncestryGraph) Len() int {
	return len(graph.order)
}

// Commit returns the record stored for commitID.
func (graph *AncestryGraph) Commit(commitID vcs.ObjectID) (vcs.CommitRecord, bool) {
	record, found := graph.commits[commitID]
	return record, found
}

// Contains reports whether commitID belongs to the arena.
func (graph *AncestryGraph) Contains(commitID vcs.ObjectID) bool {
	_, found := graph.commits[commitID]
	return found
}

// Order returns commit identifiers in discovery order, tip first.
func (graph *AncestryGraph) Order() []vcs.ObjectID {
	return append([]vcs.ObjectID(nil), graph.order...)
}

// ChildCount returns how many commits of the arena list commitID as a parent.
func (graph *AncestryGraph) ChildCount(commitID vcs.ObjectID) int {
	return graph.children[commitID]
}

// Ancestors returns the commits of the arena reachable from commitID through parent edges,
// excluding commitID itself.
func (graph *AncestryGraph) Ancestors(commitID vcs.ObjectID) map[vcs.ObjectID]struct{} {
	ancestors := make(map[vcs.ObjectID]struct{})
	stack := append([]vcs.ObjectID(nil), graph.commits[commitID].Parents...)
	for len(stack) > 0 {
		currentID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := ancestors[currentID]; seen || !graph.Contains(currentID) {
			continue
		}
		ancestors[currentID] = struct{}{}
		stack = append(stack, graph.commits[currentID].Parents...)
	}
	return ancestors
}

// ParentsFirst returns every commit of the arena ordered so that parents precede their children.
func (graph *AncestryGraph) ParentsFirst() []vcs.ObjectID {
	type frame struct {
		commitID vcs.ObjectID
		expanded bool
	}

	ordered := make([]vcs.ObjectID, 0, len(graph.order))
	emitted := make(map[vcs.ObjectID]struct{}, len(graph.order))
	stack := []frame{{commitID: graph.tip}}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, done := emitted[current.commitID]; done {
			continue
		}
		if current.expanded {
			emitted[current.commitID] = struct{}{}
			ordered = append(ordered, current.commitID)
			continue
		}

		stack = append(stack, frame{commitID: current.commitID, expanded: true})
		record := graph.commits[current.commitID]
		for parentIndex := len(record.Parents) - 1; parentIndex >= 0; parentIndex-- {
			parentID := record.Parents[parentIndex]
			if _, done := emitted[parentID]; done || !graph.Contains(parentID) {
				continue
			}
			stack = append(stack, frame{commitID: parentID})
		}
	}
	return ordered
}

// LoadGraph resolves branch and loads its complete ancestry with an iterative depth-first scan.
func LoadGraph(executionContext context.Context, reader vcs.Reader, branch string) (*AncestryGraph, error) {
	tip, tipError := reader.ResolveBranchTip(executionContext, branch)
	if tipError != nil {
		if isCancellation(tipError) {
			return nil, tipError
		}
		return nil, vcs.NewCondition(vcs.ErrHistoryUnavailable, vcs.ZeroObjectID, fmt.Sprintf(branchUnresolvableReasonTemplateConstant, branch), tipError)
	}

	type pending struct {
		commitID vcs.ObjectID
		childID  vcs.ObjectID
	}

	graph := &AncestryGraph{
		branch:   branch,
		tip:      tip,
		commits:  make(map[vcs.ObjectID]vcs.CommitRecord),
		children: make(map[vcs.ObjectID]int),
	}

	stack := []pending{{commitID: tip}}
	for len(stack) > 0 {
		if contextError := executionContext.Err(); contextError != nil {
			return nil, contextError
		}

		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if graph.Contains(current.commitID) {
			continue
		}

		record, commitError := reader.Commit(executionContext, current.commitID)
		if commitError != nil {
			if isCancellation(commitError) {
				return nil, commitError
			}
			reason := commitMissingReasonConstant
			if !current.childID.IsZero() {
				reason = fmt.Sprintf(parentMissingReasonTemplateConstant, current.childID.Short())
			}
			return nil, vcs.NewCondition(vcs.ErrHistoryUnavailable, current.commitID, reason, commitError)
		}

		graph.commits[current.commitID] = record.Clone()
		graph.order = append(graph.order, current.commitID)
		for parentIndex := len(record.Parents) - 1; parentIndex >= 0; parentIndex-- {
			parentID := record.Parents[parentIndex]
			graph.children[parentID]++
			if !graph.Contains(parentID) {
				stack = append(stack, pending{commitID: parentID, childID: current.commitID})
			}
		}
	}

	return graph, nil
}
