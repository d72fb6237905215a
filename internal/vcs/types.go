package vcs

import (
	"sort"
	"strings"
	"time"
)

const (
	pathSeparatorConstant = "/"
)

// ObjectID identifies a content-addressed object (commit, tree or blob) by its hex digest.
type ObjectID string

// ZeroObjectID denotes an absent object.
const ZeroObjectID ObjectID = ""

// EmptyTreeID identifies the tree without entries.
const EmptyTreeID ObjectID = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// IsZero reports whether the identifier refers to no object.
func (identifier ObjectID) IsZero() bool {
	return len(strings.TrimSpace(string(identifier))) == 0
}

// String returns the hex representation of the identifier.
func (identifier ObjectID) String() string {
	return string(identifier)
}

// Short returns an abbreviated identifier suitable for log and report output.
func (identifier ObjectID) Short() string {
	const shortIdentifierLengthConstant = 10
	if len(identifier) <= shortIdentifierLengthConstant {
		return string(identifier)
	}
	return string(identifier[:shortIdentifierLengthConstant])
}

// FileMode mirrors the Git tree entry modes.
type FileMode uint32

// Supported tree entry modes.
const (
	FileModeEmpty      FileMode = 0
	FileModeDirectory  FileMode = 0o040000
	FileModeRegular    FileMode = 0o100644
	FileModeDeprecated FileMode = 0o100664
	FileModeExecutable FileMode = 0o100755
	FileModeSymlink    FileMode = 0o120000
	FileModeSubmodule  FileMode = 0o160000
)

// IsGitlink reports whether the mode references a submodule commit rather than a blob.
func (mode FileMode) IsGitlink() bool {
	return mode == FileModeSubmodule
}

// Signature captures an identity and the moment it acted.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Identity names the actor recorded as committer of transplanted commits.
type Identity struct {
	Name  string
	Email string
}

// At binds the identity to a timestamp.
func (identity Identity) At(moment time.Time) Signature {
	return Signature{Name: identity.Name, Email: identity.Email, When: moment}
}

// CommitRecord is an immutable snapshot of one historical commit.
type CommitRecord struct {
	ID        ObjectID
	Parents   []ObjectID
	Tree      ObjectID
	Author    Signature
	Committer Signature
	Message   string
}

// IsMerge reports whether the commit has more than one parent.
func (record CommitRecord) IsMerge() bool {
	return len(record.Parents) > 1
}

// Timestamp returns the commit time used for ordering, falling back to the author time.
func (record CommitRecord) Timestamp() time.Time {
	if !record.Committer.When.IsZero() {
		return record.Committer.When
	}
	return record.Author.When
}

// Clone returns a copy that shares no slices with the receiver.
func (record CommitRecord) Clone() CommitRecord {
	cloned := record
	cloned.Parents = append([]ObjectID(nil), record.Parents...)
	return cloned
}

// Entry references the content stored at a tree path.
type Entry struct {
	ID   ObjectID
	Mode FileMode
}

// IsZero reports whether the entry references nothing.
func (entry Entry) IsZero() bool {
	return entry.ID.IsZero()
}

// ChangeAction enumerates path-level change kinds.
type ChangeAction string

// Supported change actions.
const (
	ChangeAdded    ChangeAction = ChangeAction("added")
	ChangeModified ChangeAction = ChangeAction("modified")
	ChangeDeleted  ChangeAction = ChangeAction("deleted")
	ChangeRenamed  ChangeAction = ChangeAction("renamed")
)

// Change describes one path-level modification introduced by a commit.
type Change struct {
	Action   ChangeAction
	OldPath  string
	NewPath  string
	OldEntry Entry
	NewEntry Entry
}

// Paths returns the distinct paths referenced by the change.
func (change Change) Paths() []string {
	switch {
	case len(change.OldPath) > 0 && len(change.NewPath) > 0 && change.OldPath != change.NewPath:
		return []string{change.OldPath, change.NewPath}
	case len(change.NewPath) > 0:
		return []string{change.NewPath}
	default:
		return []string{change.OldPath}
	}
}

// TreeEdit instructs WriteTree to set or remove a single path.
type TreeEdit struct {
	Path   string
	Entry  Entry
	Remove bool
}

// CommitDraft describes a commit about to be written.
type CommitDraft struct {
	Tree      ObjectID
	Parents   []ObjectID
	Author    Signature
	Committer Signature
	Message   string
}

// NormalizePath converts a user supplied path to the slash separated, relative form stored in trees.
func NormalizePath(rawPath string) string {
	trimmedPath := strings.TrimSpace(strings.ReplaceAll(rawPath, "\\", pathSeparatorConstant))
	segments := strings.Split(trimmedPath, pathSeparatorConstant)
	normalizedSegments := make([]string, 0, len(segments))
	for _, segment := range segments {
		switch segment {
		case "", ".":
			continue
		case "..":
			if len(normalizedSegments) > 0 {
				normalizedSegments = normalizedSegments[:len(normalizedSegments)-1]
			}
			continue
		}
		normalizedSegments = append(normalizedSegments, segment)
	}
	return strings.Join(normalizedSegments, pathSeparatorConstant)
}

// JoinPath joins tree path segments with the Git separator, ignoring empty segments.
func JoinPath(segments ...string) string {
	nonEmptySegments := make([]string, 0, len(segments))
	for _, segment := range segments {
		normalizedSegment := NormalizePath(segment)
		if len(normalizedSegment) == 0 {
			continue
		}
		nonEmptySegments = append(nonEmptySegments, normalizedSegment)
	}
	return strings.Join(nonEmptySegments, pathSeparatorConstant)
}

// SortedPaths returns the keys of a path set in lexical order.
func SortedPaths(pathSet map[string]struct{}) []string {
	paths := make([]string, 0, len(pathSet))
	for path := range pathSet {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
