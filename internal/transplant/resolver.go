package transplant

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
	"go.uber.org/zap"

	"github.com/temirov/transplant/internal/history"
	"github.com/temirov/transplant/internal/vcs"
)

const (
	previewSizeLimitConstant = 64 * 1024

	supersessionMessageConstant = "Rename supersedes an earlier lineage"
	collisionMessageConstant    = "Target path already holds different content"

	pathFieldNameConstant             = "path"
	commitFieldNameConstant           = "commit"
	supersededOriginFieldNameConstant = "superseded_origin"
	winningOriginFieldNameConstant    = "winning_origin"
	targetContentFieldNameConstant    = "target_content"
	sourceContentFieldNameConstant    = "source_content"
)

// Supersession records a rename that landed on a path held by another watched lineage.
// The later rename wins; the superseded lineage stops at that commit.
type Supersession struct {
	Path             string
	CommitID         vcs.ObjectID
	RenamedFrom      string
	WinningOrigin    string
	SupersededOrigin string
}

// Resolution lists the conflicts found before any target write.
type Resolution struct {
	Supersessions []Supersession
	Collisions    []PathCollisionError
}

// HasCollisions reports whether any target path would be overwritten.
func (resolution Resolution) HasCollisions() bool {
	return len(resolution.Collisions) > 0
}

type plannedWrite struct {
	entry    vcs.Entry
	commitID vcs.ObjectID
}

// ConflictResolver checks a replay plan against the target before it is applied.
type ConflictResolver struct {
	source   vcs.Reader
	target   vcs.Reader
	rewriter pathRewriter
	logger   *zap.Logger
}

// NewConflictResolver constructs a ConflictResolver. Source paths are placed under targetDirectory.
func NewConflictResolver(source vcs.Reader, target vcs.Reader, targetDirectory string, logger *zap.Logger) *ConflictResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictResolver{source: source, target: target, rewriter: newPathRewriter(targetDirectory), logger: logger}
}

// Resolve reports rename supersessions within the plan and the target paths whose content at
// targetTree the plan would overwrite. An empty targetTree denotes an unborn branch.
func (resolver *ConflictResolver) Resolve(executionContext context.Context, plan history.ReplayPlan, targetTree vcs.ObjectID) (Resolution, error) {
	resolution := Resolution{Supersessions: resolver.detectSupersessions(plan)}
	for _, supersession := range resolution.Supersessions {
		resolver.logger.Warn(supersessionMessageConstant,
			zap.String(pathFieldNameConstant, supersession.Path),
			zap.String(commitFieldNameConstant, supersession.CommitID.Short()),
			zap.String(supersededOriginFieldNameConstant, supersession.SupersededOrigin),
			zap.String(winningOriginFieldNameConstant, supersession.WinningOrigin),
		)
	}

	if targetTree.IsZero() {
		return resolution, nil
	}

	collisions, collisionError := resolver.detectCollisions(executionContext, plan, targetTree)
	if collisionError != nil {
		return Resolution{}, collisionError
	}
	for _, collision := range collisions {
		resolver.logger.Warn(collisionMessageConstant,
			zap.String(pathFieldNameConstant, collision.Path),
			zap.String(targetContentFieldNameConstant, collision.TargetContent.Short()),
			zap.String(sourceContentFieldNameConstant, collision.SourceContent.Short()),
		)
	}
	resolution.Collisions = collisions
	return resolution, nil
}

func (resolver *ConflictResolver) detectSupersessions(plan history.ReplayPlan) []Supersession {
	lineageOrigins := make(map[string]string)
	supersessions := make([]Supersession, 0)
	for _, entry := range plan.Entries {
		for _, change := range entry.Changes {
			switch change.Action {
			case vcs.ChangeAdded, vcs.ChangeModified:
				if _, tracked := lineageOrigins[change.NewPath]; !tracked {
					lineageOrigins[change.NewPath] = change.NewPath
				}
			case vcs.ChangeDeleted:
				delete(lineageOrigins, change.OldPath)
			case vcs.ChangeRenamed:
				origin, tracked := lineageOrigins[change.OldPath]
				if !tracked {
					origin = change.OldPath
				}
				delete(lineageOrigins, change.OldPath)
				if occupant, occupied := lineageOrigins[change.NewPath]; occupied && occupant != origin {
					supersessions = append(supersessions, Supersession{
						Path:             change.NewPath,
						CommitID:         entry.SourceID(),
						RenamedFrom:      change.OldPath,
						WinningOrigin:    origin,
						SupersededOrigin: occupant,
					})
				}
				lineageOrigins[change.NewPath] = origin
			}
		}
	}
	return supersessions
}

func (resolver *ConflictResolver) detectCollisions(executionContext context.Context, plan history.ReplayPlan, targetTree vcs.ObjectID) ([]PathCollisionError, error) {
	writtenContent := make(map[string]map[vcs.ObjectID]struct{})
	finalWrites := make(map[string]plannedWrite)
	touchingCommits := make(map[string]vcs.ObjectID)
	for _, entry := range plan.Entries {
		for targetPath, state := range resolver.rewriter.targetStates(entry.Changes) {
			touchingCommits[targetPath] = entry.SourceID()
			if state.IsZero() {
				continue
			}
			if writtenContent[targetPath] == nil {
				writtenContent[targetPath] = make(map[vcs.ObjectID]struct{})
			}
			writtenContent[targetPath][state.ID] = struct{}{}
			finalWrites[targetPath] = plannedWrite{entry: state, commitID: entry.SourceID()}
		}
	}

	touchedPaths := make([]string, 0, len(touchingCommits))
	for targetPath := range touchingCommits {
		touchedPaths = append(touchedPaths, targetPath)
	}
	sort.Strings(touchedPaths)

	checkedPaths := make(map[string]struct{})
	collisions := make([]PathCollisionError, 0)
	for _, touchedPath := range touchedPaths {
		for _, candidatePath := range append(parentDirectories(touchedPath), touchedPath) {
			if _, checked := checkedPaths[candidatePath]; checked {
				continue
			}
			checkedPaths[candidatePath] = struct{}{}

			existing, found, lookupError := resolver.target.TreeEntry(executionContext, targetTree, candidatePath)
			if lookupError != nil {
				return nil, lookupError
			}
			if !found {
				continue
			}
			isAncestor := candidatePath != touchedPath
			if isAncestor && existing.Mode == vcs.FileModeDirectory {
				continue
			}
			if _, writtenByPlan := writtenContent[candidatePath][existing.ID]; writtenByPlan {
				continue
			}

			collision := PathCollisionError{
				Path:          candidatePath,
				CommitID:      touchingCommits[touchedPath],
				SourceContent: finalWrites[candidatePath].entry.ID,
				TargetContent: existing.ID,
			}
			preview, previewError := resolver.preview(executionContext, finalWrites[candidatePath].entry, existing)
			if previewError != nil {
				return nil, previewError
			}
			collision.Preview = preview
			collisions = append(collisions, collision)
		}
	}
	return collisions, nil
}

// preview diffs the target's content against the content the plan writes last, for small text blobs.
func (resolver *ConflictResolver) preview(executionContext context.Context, sourceEntry vcs.Entry, targetEntry vcs.Entry) (*CollisionPreview, error) {
	if !isContentMode(targetEntry.Mode) || (!sourceEntry.IsZero() && !isContentMode(sourceEntry.Mode)) {
		return nil, nil
	}

	targetContent, targetReadError := resolver.target.ReadBlob(executionContext, targetEntry.ID)
	if targetReadError != nil {
		return nil, targetReadError
	}
	sourceContent := []byte{}
	if !sourceEntry.IsZero() {
		var sourceReadError error
		sourceContent, sourceReadError = resolver.source.ReadBlob(executionContext, sourceEntry.ID)
		if sourceReadError != nil {
			return nil, sourceReadError
		}
	}
	if !isPreviewableText(targetContent) || !isPreviewableText(sourceContent) {
		return nil, nil
	}

	differ := diffmatchpatch.New()
	differences := differ.DiffMain(string(targetContent), string(sourceContent), false)
	return &CollisionPreview{
		EditDistance: differ.DiffLevenshtein(differences),
		Patch:        differ.PatchToText(differ.PatchMake(string(targetContent), differences)),
	}, nil
}

func isContentMode(mode vcs.FileMode) bool {
	switch mode {
	case vcs.FileModeRegular, vcs.FileModeExecutable, vcs.FileModeDeprecated, vcs.FileModeSymlink:
		return true
	default:
		return false
	}
}

func isPreviewableText(content []byte) bool {
	return len(content) <= previewSizeLimitConstant && utf8.Valid(content) && !bytes.ContainsRune(content, 0)
}

func parentDirectories(path string) []string {
	segments := strings.Split(path, "/")
	parents := make([]string, 0, len(segments)-1)
	for segmentIndex := 1; segmentIndex < len(segments); segmentIndex++ {
		parents = append(parents, strings.Join(segments[:segmentIndex], "/"))
	}
	return parents
}
