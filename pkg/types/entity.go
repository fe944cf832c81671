package types

import (
	"fmt"
	"strings"
)

// EntityKind represents the type of documentation entity
type EntityKind string

const (
	KindComment  EntityKind = "comment"
	KindDocBlock EntityKind = "docblock"
	KindModule   EntityKind = "module"
	KindFunction EntityKind = "function"
)

// Valid reports whether k is a known entity kind
func (k EntityKind) Valid() bool {
	switch k {
	case KindComment, KindDocBlock, KindModule, KindFunction:
		return true
	default:
		return false
	}
}

// Entity is one element of the ordered result list produced for a file
type Entity interface {
	// Kind returns the entity type
	Kind() EntityKind
	// Source returns the shared declaration data
	Source() *Code
	// DisplayName returns the entity's name, empty for comments
	DisplayName() string
	// Docstring returns the rendered documentation text
	Docstring() string
	// Inspect returns a short debug representation
	Inspect() string
}

// Code holds the data shared by every entity
type Code struct {
	Content  string // Raw text of the scope that produced the entity
	Line     int    // 1-based line the scope opened on
	SourceID string // Identifier of the source file
	Group    string // Active @group at creation, empty when none
}

// Source returns c itself
func (c *Code) Source() *Code {
	return c
}

func inspect(kind EntityKind, name string, c *Code) string {
	return fmt.Sprintf("<%s %s %s:%d>", kind, name, c.SourceID, c.Line)
}

// prependDoc places prefix in front of doc, keeping them on separate lines
func prependDoc(prefix, doc string) string {
	if prefix == "" {
		return doc
	}
	if doc == "" {
		return prefix
	}
	if !strings.HasSuffix(prefix, "\n") {
		prefix += "\n"
	}
	return prefix + doc
}

// countLines counts lines the way the comment range is measured: trailing
// newlines do not start a new line.
func countLines(text string) int {
	trimmed := strings.TrimRight(text, "\n")
	if trimmed == "" {
		return 0
	}
	return strings.Count(trimmed, "\n") + 1
}
