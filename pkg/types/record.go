package types

// Record is the flattened, serializable view of an entity handed to
// renderers, storage and the MCP tools
type Record struct {
	Kind       EntityKind  `json:"kind" yaml:"kind"`
	Name       string      `json:"name,omitempty" yaml:"name,omitempty"`
	Namespace  string      `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Superclass string      `json:"superclass,omitempty" yaml:"superclass,omitempty"`
	Visibility Visibility  `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	Parameters []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Group      string      `json:"group,omitempty" yaml:"group,omitempty"`
	SourceID   string      `json:"source" yaml:"source"`
	Line       int         `json:"line" yaml:"line"`
	Docstring  string      `json:"docstring,omitempty" yaml:"docstring,omitempty"`
}

// NewRecord flattens e
func NewRecord(e Entity) Record {
	src := e.Source()
	r := Record{
		Kind:      e.Kind(),
		Name:      e.DisplayName(),
		Group:     src.Group,
		SourceID:  src.SourceID,
		Line:      src.Line,
		Docstring: e.Docstring(),
	}

	switch v := e.(type) {
	case *Module:
		r.Namespace = v.Namespace()
		r.Superclass = v.Superclass
	case *Function:
		r.Visibility = v.Visibility()
		r.Parameters = v.Parameters()
	}
	return r
}

// Records flattens every entity of the result
func (pr *ParseResult) Records() []Record {
	out := make([]Record, 0, len(pr.Entities))
	for _, e := range pr.Entities {
		out = append(out, NewRecord(e))
	}
	return out
}

// Validate checks that the record can be stored
func (r *Record) Validate() error {
	if !r.Kind.Valid() {
		return ErrInvalidKind
	}
	if r.Line < 1 {
		return ErrInvalidLine
	}
	if (r.Kind == KindModule || r.Kind == KindFunction) && r.Name == "" {
		return ErrMissingName
	}
	return nil
}
