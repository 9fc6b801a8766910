package indexer

import "errors"

// Error taxonomy for the indexing subsystem. Git- and parser-level errors
// propagate unwrapped from gitrepo/parsing; these cover indexer-specific
// failure modes.
var (
	ErrRepoNotFound         = errors.New("indexer: repository not found")
	ErrCommitNotFound       = errors.New("indexer: commit not found")
	ErrIndexingInProgress   = errors.New("indexer: indexing already in progress for this commit")
	ErrBaseCommitNotIndexed = errors.New("indexer: base commit is not fully indexed")
)
