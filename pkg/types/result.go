package types

// SearchResult represents a single search result with relevance information
type SearchResult struct {
	// Identification
	EntityID int64
	Rank     int // Position in result set (1-based)

	// Scoring
	RelevanceScore float64 // Normalized BM25 score

	// Metadata
	Entity  *Record
	File    *FileInfo
	Snippet string // Highlighted excerpt of the matched documentation
}

// FileInfo contains file metadata for a search result
type FileInfo struct {
	Path string // Relative to project root
	Line int
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.EntityID == 0 {
		return ErrInvalidEntityID
	}

	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.RelevanceScore < 0 || sr.RelevanceScore > 1 {
		return ErrInvalidRelevanceScore
	}

	if sr.File == nil {
		return ErrMissingFileInfo
	}

	if sr.Entity == nil {
		return ErrMissingEntity
	}

	return nil
}
