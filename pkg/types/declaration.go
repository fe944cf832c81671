package types

import (
	"fmt"
	"strings"
)

// Visibility of a function
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityProtected Visibility = "protected"
	VisibilityPrivate   Visibility = "private"
)

const namespaceSeparator = "::"

// Module is a package declaration
type Module struct {
	Code

	Name       string // Fully qualified name, e.g. "My::Widget"
	Superclass string // Parent package, empty when none
	Comments   string // Documentation attached during parsing and resolution
}

// NewModule creates an unnamed module declaration
func NewModule(code Code) *Module {
	return &Module{Code: code}
}

// Kind returns KindModule
func (m *Module) Kind() EntityKind { return KindModule }

// DisplayName returns the fully qualified name
func (m *Module) DisplayName() string { return m.Name }

// Docstring returns the attached documentation
func (m *Module) Docstring() string { return m.Comments }

// Inspect returns a short debug representation
func (m *Module) Inspect() string {
	return inspect(m.Kind(), m.Name, &m.Code)
}

// Show returns the one-line summary used in listings
func (m *Module) Show() string {
	return fmt.Sprintf("package %s in %s:%d", m.Name, m.SourceID, m.Line)
}

// Namespace returns everything before the last "::" of the name, empty for
// top-level packages
func (m *Module) Namespace() string {
	i := strings.LastIndex(m.Name, namespaceSeparator)
	if i < 0 {
		return ""
	}
	return m.Name[:i]
}

// ClassName returns the last "::" segment of the name
func (m *Module) ClassName() string {
	i := strings.LastIndex(m.Name, namespaceSeparator)
	if i < 0 {
		return m.Name
	}
	return m.Name[i+len(namespaceSeparator):]
}

// PrependComments places doc in front of the existing documentation
func (m *Module) PrependComments(doc string) {
	m.Comments = prependDoc(doc, m.Comments)
}

// Function is a named subroutine declaration
type Function struct {
	Code

	Name     string // Declared name
	Body     string // Text of the body scope, braces included
	Comments string // Documentation attached during parsing and resolution

	visibility Visibility
}

// NewFunction creates an unnamed function declaration
func NewFunction(code Code) *Function {
	return &Function{Code: code}
}

// Kind returns KindFunction
func (f *Function) Kind() EntityKind { return KindFunction }

// DisplayName returns the declared name
func (f *Function) DisplayName() string { return f.Name }

// Docstring returns the attached documentation
func (f *Function) Docstring() string { return f.Comments }

// Inspect returns a short debug representation
func (f *Function) Inspect() string {
	return inspect(f.Kind(), f.Name, &f.Code)
}

// Show returns the one-line summary used in listings
func (f *Function) Show() string {
	return fmt.Sprintf("sub %s in %s:%d", f.Name, f.SourceID, f.Line)
}

// Visibility returns the explicitly assigned visibility. Without one, names
// starting with an underscore are protected and everything else is public;
// this default follows the current name.
func (f *Function) Visibility() Visibility {
	if f.visibility != "" {
		return f.visibility
	}
	if strings.HasPrefix(f.Name, "_") {
		return VisibilityProtected
	}
	return VisibilityPublic
}

// SetVisibility assigns an explicit visibility
func (f *Function) SetVisibility(v Visibility) {
	f.visibility = v
}

// PrependComments places doc in front of the existing documentation
func (f *Function) PrependComments(doc string) {
	f.Comments = prependDoc(doc, f.Comments)
}
