package types

import (
	"github.com/mcartmell/yard-perl-plugin/pkg/pod"
)

// Comment is a contiguous block of plain comment lines
type Comment struct {
	Code

	// Dialect controls how Content is rendered
	Dialect pod.Dialect
}

// NewComment creates a comment rendered with the default comment dialect
func NewComment(code Code) *Comment {
	return &Comment{Code: code, Dialect: pod.CommentDialect}
}

// Kind returns KindComment
func (c *Comment) Kind() EntityKind { return KindComment }

// DisplayName returns an empty string; comments are anonymous
func (c *Comment) DisplayName() string { return "" }

// Docstring returns the comment text with markers and indentation removed
func (c *Comment) Docstring() string {
	return c.Dialect.Normalize(c.Content)
}

// Inspect returns a short debug representation
func (c *Comment) Inspect() string {
	return inspect(c.Kind(), "", &c.Code)
}

// Lines returns the first and last physical line of the comment. An empty
// comment ends on the line before it starts.
func (c *Comment) Lines() (start, end int) {
	return c.Line, c.Line + countLines(c.Content) - 1
}

// AsComment returns the plain comment view of the entity
func (c *Comment) AsComment() *Comment { return c }

// DocBlock is a POD block. Besides being a comment in its own right it can
// carry a file-level description and sections addressed to named symbols.
type DocBlock struct {
	Comment

	// Description is the file-level DESCRIPTION section, nil when absent
	Description *DocBlock

	// Sections lists the named sections in document order
	Sections []NamedSection

	description bool
}

// NamedSection associates a section of a DocBlock with a symbol name
type NamedSection struct {
	Name string
	Doc  *DocBlock
}

// NewDocBlock parses code.Content as POD and decomposes it into sections
func NewDocBlock(code Code, dialect pod.Dialect) *DocBlock {
	d := &DocBlock{Comment: Comment{Code: code, Dialect: dialect}}

	outline := pod.ParseSections(code.Content)
	if outline.Description != nil {
		d.Description = d.section(*outline.Description)
		d.Description.description = true
	}
	for _, s := range outline.Named {
		d.Sections = append(d.Sections, NamedSection{Name: s.Name, Doc: d.section(s)})
	}
	return d
}

// section builds the DocBlock rendering a single section of d
func (d *DocBlock) section(s pod.Section) *DocBlock {
	return &DocBlock{Comment: Comment{
		Code: Code{
			Content:  s.Body,
			Line:     d.Line + s.Line,
			SourceID: d.SourceID,
			Group:    d.Group,
		},
		Dialect: d.Dialect,
	}}
}

// Kind returns KindDocBlock
func (d *DocBlock) Kind() EntityKind { return KindDocBlock }

// Inspect returns a short debug representation
func (d *DocBlock) Inspect() string {
	return inspect(d.Kind(), "", &d.Code)
}

// IsDescription reports whether d is a file-level description section
func (d *DocBlock) IsDescription() bool {
	return d.description
}
