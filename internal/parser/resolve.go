package parser

import (
	"github.com/mcartmell/yard-perl-plugin/pkg/types"
)

// Resolve runs the cross-reference pass and returns the final entity list.
// Named sections are prepended to the comments of the function or module
// with exactly that name, then the file description is prepended to every
// module. Calling Resolve again returns the same list without reapplying.
func (e *Engine) Resolve() []types.Entity {
	if e.resolved {
		return e.results
	}
	e.resolved = true

	var fileDoc string
	if e.description != nil {
		fileDoc = e.description.Docstring()
	}

	for _, ent := range e.results {
		switch v := ent.(type) {
		case *types.Function:
			if d, ok := e.sections[v.Name]; ok {
				v.PrependComments(d.Docstring())
			}
		case *types.Module:
			if d, ok := e.sections[v.Name]; ok {
				v.PrependComments(d.Docstring())
			}
			v.PrependComments(fileDoc)
		}
	}
	return e.results
}

// Section returns the named section recorded for name
func (e *Engine) Section(name string) (*types.DocBlock, bool) {
	d, ok := e.sections[name]
	return d, ok
}

// Description returns the file description, nil when no POD block had one
func (e *Engine) Description() *types.DocBlock {
	return e.description
}
