package errors

import (
	"fmt"
)

// Kind categorizes engine failures by their recovery policy.
type Kind int

const (
	// KindRepositoryAccess - the repository cannot be opened or cloned.
	// Unrecoverable for the run: abort and report.
	KindRepositoryAccess Kind = iota
	// KindHistoryTraversal - a single commit's diff could not be computed.
	// Skip the commit, continue the walk, report the count at the end.
	KindHistoryTraversal
	// KindEmbeddingBatch - the embedding provider failed for one batch.
	// Retry with backoff, then fall back or continue lexical-only.
	KindEmbeddingBatch
	// KindStoreUnavailable - the document store is unreachable or timed out.
	// Whole-batch failure: the caller retries the batch.
	KindStoreUnavailable
	// KindIndexWrite - a single document write failed.
	// Retry individually; abort only on a systemic failure fraction.
	KindIndexWrite
)

// Error is a categorized engine error carrying the faulted item where one
// exists (a commit SHA, a file path, a batch offset).
type Error struct {
	Kind    Kind
	Message string
	Item    string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Item != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Item)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Kind so callers can branch with errors.Is against the
// sentinel constructors below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func kindString(k Kind) string {
	switch k {
	case KindRepositoryAccess:
		return "REPOSITORY_ACCESS"
	case KindHistoryTraversal:
		return "HISTORY_TRAVERSAL"
	case KindEmbeddingBatch:
		return "EMBEDDING_BATCH"
	case KindStoreUnavailable:
		return "STORE_UNAVAILABLE"
	case KindIndexWrite:
		return "INDEX_WRITE"
	default:
		return "UNKNOWN"
	}
}

// String returns the wire-friendly kind tag, used in structured results.
func (k Kind) String() string { return kindString(k) }

// Sentinels for errors.Is checks.
var (
	ErrRepositoryAccess = &Error{Kind: KindRepositoryAccess}
	ErrHistoryTraversal = &Error{Kind: KindHistoryTraversal}
	ErrEmbeddingBatch   = &Error{Kind: KindEmbeddingBatch}
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable}
	ErrIndexWrite       = &Error{Kind: KindIndexWrite}
)

// RepositoryAccess wraps a repository open/clone failure.
func RepositoryAccess(err error, location string) *Error {
	return &Error{Kind: KindRepositoryAccess, Message: "cannot access repository", Item: location, Cause: err}
}

// HistoryTraversal wraps a per-commit diff failure.
func HistoryTraversal(err error, sha string) *Error {
	return &Error{Kind: KindHistoryTraversal, Message: "cannot compute commit diff", Item: sha, Cause: err}
}

// EmbeddingBatch wraps an embedding provider failure for one batch.
func EmbeddingBatch(err error, batch string) *Error {
	return &Error{Kind: KindEmbeddingBatch, Message: "embedding batch failed", Item: batch, Cause: err}
}

// StoreUnavailable wraps a store connectivity or timeout failure.
func StoreUnavailable(err error) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: "document store unavailable", Cause: err}
}

// IndexWrite wraps a per-document write failure.
func IndexWrite(err error, docID string) *Error {
	return &Error{Kind: KindIndexWrite, Message: "document write failed", Item: docID, Cause: err}
}
