package scope

import (
	"errors"
	"fmt"
	"slices"
)

// Category is the closed set of scope kinds the extraction engine reacts to
type Category int

const (
	// CategoryUnknown is any scope the engine does not model; it is ignored
	CategoryUnknown Category = iota

	CategoryCommentBlock    // contiguous '#' comment lines
	CategoryDocBlock        // POD block
	CategoryModule          // package declaration
	CategoryFullLineComment // single '#' comment line
	CategoryFunction        // named sub declaration
	CategoryModuleName      // package name inside a declaration
	CategoryImport          // module named by a use statement
	CategoryImportArguments // argument list of a use statement
	CategoryFunctionName    // sub name inside a declaration
	CategoryFunctionBody    // sub body, braces included
)

var categoryNames = map[Category]string{
	CategoryUnknown:         "unknown",
	CategoryCommentBlock:    "comment-block",
	CategoryDocBlock:        "doc-block",
	CategoryModule:          "module",
	CategoryFullLineComment: "full-line-comment",
	CategoryFunction:        "function",
	CategoryModuleName:      "module-name",
	CategoryImport:          "import",
	CategoryImportArguments: "import-arguments",
	CategoryFunctionName:    "function-name",
	CategoryFunctionBody:    "function-body",
}

// String returns the category name
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// ErrUnknownCategory is returned when a rule names a category that does not exist
var ErrUnknownCategory = errors.New("unknown scope category")

// ParseCategory maps a category name back to its value
func ParseCategory(name string) (Category, error) {
	for c, n := range categoryNames {
		if n == name {
			return c, nil
		}
	}
	return CategoryUnknown, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// Rule binds a scope pattern to a category
type Rule struct {
	Pattern  Path
	Category Category
}

// Grammar classifies concrete scope names. Rules are checked in order; a
// name may fall into several categories when patterns overlap.
type Grammar struct {
	rules []Rule
}

// NewGrammar creates a grammar from rules
func NewGrammar(rules ...Rule) *Grammar {
	return &Grammar{rules: rules}
}

// PerlGrammar returns the scope names produced by the Perl tokenizers
func PerlGrammar() *Grammar {
	return NewGrammar(
		Rule{ParsePath("meta.comment.block"), CategoryCommentBlock},
		Rule{ParsePath("comment.block.documentation.perl"), CategoryDocBlock},
		Rule{ParsePath("meta.class"), CategoryModule},
		Rule{ParsePath("meta.comment.full-line"), CategoryFullLineComment},
		Rule{ParsePath("meta.function.named"), CategoryFunction},
		Rule{ParsePath("entity.name.type.class"), CategoryModuleName},
		Rule{ParsePath("meta.import.package"), CategoryImport},
		Rule{ParsePath("meta.import.arguments"), CategoryImportArguments},
		Rule{ParsePath("entity.name.function"), CategoryFunctionName},
		Rule{ParsePath("meta.scope.function"), CategoryFunctionBody},
	)
}

// Rules returns a copy of the grammar's rules
func (g *Grammar) Rules() []Rule {
	return append([]Rule(nil), g.rules...)
}

// Categories returns every category the name falls into, in rule order and
// without duplicates. Unmodeled names yield nil.
func (g *Grammar) Categories(name string) []Category {
	var out []Category
	for _, r := range g.rules {
		if !r.Pattern.Match(name) || slices.Contains(out, r.Category) {
			continue
		}
		out = append(out, r.Category)
	}
	return out
}

// Classify returns the first category the name falls into
func (g *Grammar) Classify(name string) Category {
	for _, r := range g.rules {
		if r.Pattern.Match(name) {
			return r.Category
		}
	}
	return CategoryUnknown
}
