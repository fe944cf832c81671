package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mcartmell/yard-perl-plugin/pkg/types"
)

// Storage defines the interface for persisting and querying extracted documentation
type Storage interface {
	// Project operations
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, rootPath string) (*Project, error)
	UpdateProject(ctx context.Context, project *Project) error

	// File operations
	UpsertFile(ctx context.Context, file *File) error
	GetFile(ctx context.Context, projectID int64, filePath string) (*File, error)
	GetFileByID(ctx context.Context, fileID int64) (*File, error)
	DeleteFile(ctx context.Context, fileID int64) error
	ListFiles(ctx context.Context, projectID int64) ([]*File, error)

	// Entity operations
	UpsertEntity(ctx context.Context, entity *Entity) error
	GetEntity(ctx context.Context, entityID int64) (*Entity, error)
	ListEntitiesByFile(ctx context.Context, fileID int64) ([]*Entity, error)
	DeleteEntitiesByFile(ctx context.Context, fileID int64) error
	LookupEntities(ctx context.Context, projectID int64, name string, kinds []string) ([]*Entity, error)

	// Search operations
	SearchText(ctx context.Context, projectID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error)

	// Status operations
	GetStatus(ctx context.Context, projectID int64) (*ProjectStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage
}

// Project represents an indexed Perl source tree
type Project struct {
	ID            int64
	RootPath      string
	TotalFiles    int
	TotalEntities int
	IndexVersion  string
	LastRunID     string
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// File represents a tracked Perl source file
type File struct {
	ID            int64
	ProjectID     int64
	FilePath      string // Relative to project root
	ModuleName    string // First package declared in the file
	ContentHash   [32]byte
	ModTime       time.Time
	SizeBytes     int64
	ParseError    *string // Nullable
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Entity is the stored form of an extracted documentation entity
type Entity struct {
	ID         int64
	FileID     int64
	Kind       string
	Name       string
	Namespace  string
	Superclass string
	Visibility string
	GroupName  string
	Line       int
	Docstring  string
	Parameters string // JSON array of types.Parameter
	CreatedAt  time.Time
}

// SearchFilters narrows full-text search results
type SearchFilters struct {
	Kinds        []string // Entity kinds
	Visibilities []string
	Namespace    string // Module namespace prefix
	Group        string
}

// TextResult represents a result from full-text search
type TextResult struct {
	EntityID  int64
	BM25Score float64
}

// ProjectStatus contains statistics about an indexed project
type ProjectStatus struct {
	Project       *Project
	FilesCount    int
	FailedFiles   int
	EntitiesCount int
	KindCounts    map[string]int
	IndexSizeMB   float64
	LastIndexedAt time.Time
	Health        HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible bool
	FTSIndexBuilt      bool
	SchemaVersion      string
}

// FromRecord converts an extracted record into a storage entity for fileID
func FromRecord(r types.Record, fileID int64) (*Entity, error) {
	params := "[]"
	if len(r.Parameters) > 0 {
		data, err := json.Marshal(r.Parameters)
		if err != nil {
			return nil, err
		}
		params = string(data)
	}
	return &Entity{
		FileID:     fileID,
		Kind:       string(r.Kind),
		Name:       r.Name,
		Namespace:  r.Namespace,
		Superclass: r.Superclass,
		Visibility: string(r.Visibility),
		GroupName:  r.Group,
		Line:       r.Line,
		Docstring:  r.Docstring,
		Parameters: params,
	}, nil
}

// ToRecord converts a stored entity back into a record. sourceID is the
// path of the file the entity belongs to.
func (e *Entity) ToRecord(sourceID string) types.Record {
	r := types.Record{
		Kind:       types.EntityKind(e.Kind),
		Name:       e.Name,
		Namespace:  e.Namespace,
		Superclass: e.Superclass,
		Visibility: types.Visibility(e.Visibility),
		Group:      e.GroupName,
		SourceID:   sourceID,
		Line:       e.Line,
		Docstring:  e.Docstring,
	}
	if e.Parameters != "" && e.Parameters != "[]" {
		// A malformed column leaves Parameters empty
		_ = json.Unmarshal([]byte(e.Parameters), &r.Parameters)
	}
	return r
}
