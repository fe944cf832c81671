package types

import "errors"

// Domain errors for type validation
var (
	// Record errors
	ErrInvalidKind = errors.New("invalid entity kind")
	ErrInvalidLine = errors.New("line must be >= 1")
	ErrMissingName = errors.New("declarations must have a name")

	// Search result errors
	ErrInvalidEntityID       = errors.New("invalid entity ID")
	ErrInvalidRank           = errors.New("rank must be >= 1")
	ErrInvalidRelevanceScore = errors.New("relevance score must be between 0 and 1")
	ErrMissingFileInfo       = errors.New("file info is required")
	ErrMissingEntity         = errors.New("entity is required")
)
