package parser

import (
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/mcartmell/yard-perl-plugin/internal/scope"
	"github.com/mcartmell/yard-perl-plugin/pkg/pod"
	"github.com/mcartmell/yard-perl-plugin/pkg/types"
)

// Options controls how scope events become entities
type Options struct {
	// CommentDialect renders '#' comment blocks
	CommentDialect pod.Dialect

	// DocDialect renders POD blocks
	DocDialect pod.Dialect

	// BaseKeywords are the pragmas whose arguments name a superclass
	BaseKeywords []string

	// CleanupKeyword is the import that makes the current package's
	// functions private
	CleanupKeyword string
}

// DefaultOptions returns the options used for Perl sources
func DefaultOptions() Options {
	return Options{
		CommentDialect: pod.CommentDialect,
		DocDialect:     pod.DocDialect,
		BaseKeywords:   []string{"base", "parent"},
		CleanupKeyword: "namespace::clean",
	}
}

var (
	groupOpen  = regexp.MustCompile(`#\s*@group\s+(.*)`)
	groupClose = regexp.MustCompile(`#\s*@endgroup`)

	// first package-like token of an import argument list
	argumentToken = regexp.MustCompile(`-?[\w:]+`)
)

// field is a sub-field of a declaration waiting for the scope that fills it
type field struct {
	category   scope.Category
	persistent bool
	fill       func(ev types.ScopeEvent)
}

// construction is a declaration whose sub-fields are still arriving
type construction struct {
	start  int // length of the result list before the declaration was appended
	fields []*field
}

// arm waits for f, replacing any pending field of the same category
func (c *construction) arm(f *field) {
	c.disarmCategory(f.category)
	c.fields = append(c.fields, f)
}

func (c *construction) disarm(f *field) {
	c.fields = slices.DeleteFunc(c.fields, func(x *field) bool { return x == f })
}

func (c *construction) disarmCategory(cat scope.Category) {
	c.fields = slices.DeleteFunc(c.fields, func(x *field) bool { return x.category == cat })
}

// Engine folds the scope events of one file into an ordered entity list.
// It is not safe for concurrent use; use one Engine per file.
type Engine struct {
	grammar *scope.Grammar
	opts    Options
	logger  *slog.Logger

	results     []types.Entity
	sections    map[string]*types.DocBlock
	description *types.DocBlock
	group       string

	module   *construction
	function *construction

	events   int
	resolved bool
}

// NewEngine creates an engine for one file
func NewEngine(grammar *scope.Grammar, opts Options, logger *slog.Logger) *Engine {
	if grammar == nil {
		grammar = scope.PerlGrammar()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		grammar:  grammar,
		opts:     opts,
		logger:   logger,
		sections: make(map[string]*types.DocBlock),
	}
}

// Ingest processes one event. Every handler matching the event is selected
// before any of them runs, so fields armed by this event wait for a later
// one. Declaration handlers run first, in grammar order, followed by the
// pending fields of the current module and then the current function.
func (e *Engine) Ingest(ev types.ScopeEvent) {
	e.events++

	cats := e.grammar.Categories(ev.Scope)
	if len(cats) == 0 {
		return
	}

	var steps []func()
	for _, cat := range cats {
		if handle := e.handler(cat); handle != nil {
			steps = append(steps, func() { handle(ev) })
		}
	}
	for _, c := range []*construction{e.module, e.function} {
		if c == nil {
			continue
		}
		for _, f := range c.fields {
			if slices.Contains(cats, f.category) {
				steps = append(steps, fire(c, f, ev))
			}
		}
	}

	for _, step := range steps {
		step()
	}
}

func fire(c *construction, f *field, ev types.ScopeEvent) func() {
	return func() {
		if !f.persistent {
			c.disarm(f)
		}
		f.fill(ev)
	}
}

// handler returns the declaration handler for a category, nil for
// categories that only fill pending fields
func (e *Engine) handler(cat scope.Category) func(types.ScopeEvent) {
	switch cat {
	case scope.CategoryCommentBlock:
		return e.onCommentBlock
	case scope.CategoryDocBlock:
		return e.onDocBlock
	case scope.CategoryModule:
		return e.onModule
	case scope.CategoryFullLineComment:
		return e.onFullLineComment
	case scope.CategoryFunction:
		return e.onFunction
	default:
		return nil
	}
}

func (e *Engine) code(ev types.ScopeEvent) types.Code {
	return types.Code{Content: ev.Text, Line: ev.Line, SourceID: ev.SourceID}
}

func (e *Engine) onCommentBlock(ev types.ScopeEvent) {
	c := types.NewComment(e.code(ev))
	c.Dialect = e.opts.CommentDialect
	e.results = append(e.results, c)
}

func (e *Engine) onDocBlock(ev types.ScopeEvent) {
	d := types.NewDocBlock(e.code(ev), e.opts.DocDialect)
	for _, s := range d.Sections {
		e.sections[s.Name] = s.Doc
	}
	if e.description == nil && d.Description != nil {
		e.description = d.Description
	}
	e.results = append(e.results, d)
}

func (e *Engine) onModule(ev types.ScopeEvent) {
	m := types.NewModule(e.code(ev))
	m.Group = e.group
	if c := e.adopt(ev.Line); c != nil {
		m.Comments += c.Docstring()
	}

	c := &construction{start: len(e.results)}
	c.arm(&field{
		category: scope.CategoryModuleName,
		fill:     func(ev types.ScopeEvent) { m.Name = strings.TrimSpace(ev.Text) },
	})
	c.arm(&field{
		category:   scope.CategoryImport,
		persistent: true,
		fill:       func(ev types.ScopeEvent) { e.onImport(m, c, ev) },
	})

	e.results = append(e.results, m)
	e.module = c
}

func (e *Engine) onImport(m *types.Module, c *construction, ev types.ScopeEvent) {
	name := strings.TrimSpace(ev.Text)

	switch {
	case slices.Contains(e.opts.BaseKeywords, name):
		c.arm(&field{
			category: scope.CategoryImportArguments,
			fill:     func(ev types.ScopeEvent) { m.Superclass = superclass(ev.Text) },
		})
	case name == e.opts.CleanupKeyword:
		n := 0
		for _, ent := range e.results[c.start:] {
			if f, ok := ent.(*types.Function); ok {
				f.SetVisibility(types.VisibilityPrivate)
				n++
			}
		}
		e.logger.Debug("privatized functions", "module", m.Name, "count", n, "line", ev.Line)
	}
}

// superclass extracts the first package name from an import argument list,
// skipping -flags and qw
func superclass(args string) string {
	for _, tok := range argumentToken.FindAllString(args, -1) {
		if strings.HasPrefix(tok, "-") || tok == "qw" {
			continue
		}
		return tok
	}
	return ""
}

func (e *Engine) onFullLineComment(ev types.ScopeEvent) {
	if m := groupOpen.FindStringSubmatch(ev.Text); m != nil {
		e.group = strings.TrimSpace(m[1])
		return
	}
	if groupClose.MatchString(ev.Text) {
		e.group = ""
	}
}

func (e *Engine) onFunction(ev types.ScopeEvent) {
	f := types.NewFunction(e.code(ev))
	f.Group = e.group
	if c := e.adopt(ev.Line); c != nil {
		f.Comments += c.Docstring()
	}

	c := &construction{start: len(e.results)}
	c.arm(&field{
		category: scope.CategoryFunctionName,
		fill:     func(ev types.ScopeEvent) { f.Name = strings.TrimSpace(ev.Text) },
	})
	c.arm(&field{
		category: scope.CategoryFunctionBody,
		fill:     func(ev types.ScopeEvent) { f.Body = ev.Text },
	})

	e.results = append(e.results, f)
	e.function = c
}

type commenter interface {
	AsComment() *types.Comment
}

// adopt pops the last entity when it is a non-empty comment ending on the
// line just before line
func (e *Engine) adopt(line int) *types.Comment {
	if len(e.results) == 0 {
		return nil
	}
	last, ok := e.results[len(e.results)-1].(commenter)
	if !ok {
		return nil
	}
	c := last.AsComment()
	start, end := c.Lines()
	if end < start || end != line-1 {
		return nil
	}
	e.results = e.results[:len(e.results)-1]
	return c
}

// Entities returns the entities built so far
func (e *Engine) Entities() []types.Entity {
	return e.results
}

// Events returns the number of events ingested
func (e *Engine) Events() int {
	return e.events
}

// Group returns the active @group, empty when none
func (e *Engine) Group() string {
	return e.group
}
