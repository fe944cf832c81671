package types

// ParseResult represents the output of extracting documentation from one file
type ParseResult struct {
	// Identifier of the source file
	SourceID string

	// Extracted entities, in stream order
	Entities []Entity

	// Number of scope events consumed
	Events int

	// Errors encountered during extraction. Entities are still valid when
	// errors are present; they may be incomplete.
	Errors []ParseError
}

// ParseError represents an error that occurred during parsing
type ParseError struct {
	File    string `json:"file" yaml:"file"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	Column  int    `json:"column,omitempty" yaml:"column,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// Error implements the error interface
func (pe *ParseError) Error() string {
	return pe.Message
}

// HasErrors returns true if any parsing errors occurred
func (pr *ParseResult) HasErrors() bool {
	return len(pr.Errors) > 0
}

// AddError adds a parsing error to the result
func (pr *ParseResult) AddError(file string, line, col int, msg string) {
	pr.Errors = append(pr.Errors, ParseError{
		File:    file,
		Line:    line,
		Column:  col,
		Message: msg,
	})
}

// Modules returns the module entities in order
func (pr *ParseResult) Modules() []*Module {
	var out []*Module
	for _, e := range pr.Entities {
		if m, ok := e.(*Module); ok {
			out = append(out, m)
		}
	}
	return out
}

// Functions returns the function entities in order
func (pr *ParseResult) Functions() []*Function {
	var out []*Function
	for _, e := range pr.Entities {
		if f, ok := e.(*Function); ok {
			out = append(out, f)
		}
	}
	return out
}

// Lookup returns the first module or function with the given name
func (pr *ParseResult) Lookup(name string) Entity {
	for _, e := range pr.Entities {
		switch e.(type) {
		case *Module, *Function:
			if e.DisplayName() == name {
				return e
			}
		}
	}
	return nil
}
