package gitstore

import (
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/temirov/transplant/internal/vcs"
)

// treeEditNode is one directory level of the pending edits.
type treeEditNode struct {
	children  map[string]*treeEditNode
	edit      *vcs.TreeEdit
	resetBase bool
}

func newTreeEditNode() *treeEditNode {
	return &treeEditNode{children: make(map[string]*treeEditNode)}
}

// treeEditor rewrites only the directories touched by edits and reuses every other subtree.
type treeEditor struct {
	store *Store
}

// Apply applies edits in order and returns the identifier of the rewritten root tree.
// Directories left without entries are pruned.
func (editor treeEditor) Apply(baseTreeID vcs.ObjectID, edits []vcs.TreeEdit) (vcs.ObjectID, error) {
	root := newTreeEditNode()
	for _, edit := range edits {
		normalizedPath := vcs.NormalizePath(edit.Path)
		if len(normalizedPath) == 0 {
			continue
		}
		root.insert(strings.Split(normalizedPath, "/"), edit)
	}

	entries, applyError := editor.applyNode(baseTreeID, root)
	if applyError != nil {
		return vcs.ZeroObjectID, applyError
	}
	return editor.writeTree(entries)
}

func (node *treeEditNode) insert(segments []string, edit vcs.TreeEdit) {
	currentNode := node
	for _, segment := range segments {
		if currentNode.edit != nil {
			currentNode.resetBase = true
			currentNode.edit = nil
		}
		childNode, exists := currentNode.children[segment]
		if !exists {
			childNode = newTreeEditNode()
			currentNode.children[segment] = childNode
		}
		currentNode = childNode
	}

	leafEdit := edit
	currentNode.edit = &leafEdit
	currentNode.children = make(map[string]*treeEditNode)
	currentNode.resetBase = false
}

func (editor treeEditor) applyNode(treeID vcs.ObjectID, node *treeEditNode) (map[string]object.TreeEntry, error) {
	entries := make(map[string]object.TreeEntry)
	if !treeID.IsZero() {
		treeObject, treeError := editor.store.loadTree(treeID)
		if treeError != nil {
			return nil, treeError
		}
		for _, treeEntry := range treeObject.Entries {
			entries[treeEntry.Name] = treeEntry
		}
	}

	for name, childNode := range node.children {
		if childNode.edit != nil {
			if childNode.edit.Remove {
				delete(entries, name)
				continue
			}
			entries[name] = object.TreeEntry{
				Name: name,
				Mode: filemode.FileMode(effectiveMode(childNode.edit.Entry.Mode)),
				Hash: toHash(childNode.edit.Entry.ID),
			}
			continue
		}

		childBase := vcs.ZeroObjectID
		if existingEntry, exists := entries[name]; exists && existingEntry.Mode == filemode.Dir && !childNode.resetBase {
			childBase = toObjectID(existingEntry.Hash)
		}

		childEntries, childError := editor.applyNode(childBase, childNode)
		if childError != nil {
			return nil, childError
		}
		if len(childEntries) == 0 {
			delete(entries, name)
			continue
		}

		childTreeID, writeError := editor.writeTree(childEntries)
		if writeError != nil {
			return nil, writeError
		}
		entries[name] = object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: toHash(childTreeID)}
	}

	return entries, nil
}

func (editor treeEditor) writeTree(entries map[string]object.TreeEntry) (vcs.ObjectID, error) {
	sortedEntries := make([]object.TreeEntry, 0, len(entries))
	for _, entry := range entries {
		sortedEntries = append(sortedEntries, entry)
	}
	sort.Slice(sortedEntries, func(leftIndex int, rightIndex int) bool {
		return treeSortKey(sortedEntries[leftIndex]) < treeSortKey(sortedEntries[rightIndex])
	})

	treeObject := &object.Tree{Entries: sortedEntries}
	encodedObject := editor.store.storer.NewEncodedObject()
	if encodeError := treeObject.Encode(encodedObject); encodeError != nil {
		return vcs.ZeroObjectID, vcs.NewCondition(vcs.ErrWriteFailure, vcs.ZeroObjectID, treeWriteReasonConstant, encodeError)
	}
	return editor.store.storeObject(encodedObject, treeWriteReasonConstant)
}

// treeSortKey orders entries the way Git does: directories compare as if suffixed with a slash.
func treeSortKey(entry object.TreeEntry) string {
	if entry.Mode == filemode.Dir {
		return entry.Name + "/"
	}
	return entry.Name
}

func effectiveMode(mode vcs.FileMode) vcs.FileMode {
	if mode == vcs.FileModeEmpty {
		return vcs.FileModeRegular
	}
	return mode
}
