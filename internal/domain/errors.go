package domain

import "errors"

var (
	// ErrModelUnavailable means the embedding model could not be
	// initialized after retries. Fatal to engine construction.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrEmptyText rejects empty or whitespace-only input to the
	// embedder. Corpus entries must never be encoded as zero vectors.
	ErrEmptyText = errors.New("cannot encode empty text")

	// ErrInvalidQuery is returned for queries that are too short or
	// yield no usable tokens. Callers map it to an empty response.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrEmptyCorpus signals there is nothing to search. Like
	// ErrInvalidQuery it is an expected condition, not a failure.
	ErrEmptyCorpus = errors.New("corpus is empty")

	// ErrIndexCorrupt marks an unreadable or mismatched persisted
	// index. Recoverable: the index is rebuilt from the embeddings.
	ErrIndexCorrupt = errors.New("vector index corrupt")
)
