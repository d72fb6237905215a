// Package vcs declares the version-control primitives consumed by the history
// transplant engine.
//
// It defines the data model shared by the extraction, linearization and replay
// stages (ObjectID, Signature, CommitRecord, Change, TreeEdit), the narrow
// Reader/Writer interfaces a backing store must expose, and the error taxonomy
// (RefNotFound, ObjectNotFound, HistoryUnavailable, PathCollision,
// ConcurrentUpdate, WriteFailure) reported to callers.
package vcs
