package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcartmell/yard-perl-plugin/internal/scope"
	"github.com/mcartmell/yard-perl-plugin/internal/tokenizer"
	"github.com/mcartmell/yard-perl-plugin/pkg/types"
)

// ErrPanic wraps a panic recovered while processing a file
var ErrPanic = errors.New("panic during extraction")

// Parser extracts documentation entities from Perl sources
type Parser struct {
	grammar *scope.Grammar
	opts    Options
	logger  *slog.Logger

	perl  scope.Tokenizer
	trace scope.Tokenizer
}

// New creates a Parser with the Perl grammar and default options
func New() *Parser {
	return NewWithOptions(nil, DefaultOptions(), nil)
}

// NewWithOptions creates a Parser. A nil grammar selects the Perl grammar
// and a nil logger slog.Default().
func NewWithOptions(grammar *scope.Grammar, opts Options, logger *slog.Logger) *Parser {
	if grammar == nil {
		grammar = scope.PerlGrammar()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		grammar: grammar,
		opts:    opts,
		logger:  logger,
		perl:    tokenizer.NewPerl(),
		trace:   tokenizer.NewTraceReader(),
	}
}

// ParseFile reads a file and extracts its entities. Only a read failure is
// returned as an error; everything else is recorded in the result.
func (p *Parser) ParseFile(filePath string) (*types.ParseResult, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.ParseSource(filePath, content, p.TokenizerFor(filePath)), nil
}

// TokenizerFor picks the tokenizer for a path: YAML traces are replayed,
// everything else is scanned as Perl
func (p *Parser) TokenizerFor(filePath string) scope.Tokenizer {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		return p.trace
	default:
		return p.perl
	}
}

// ParseSource tokenizes src and extracts its entities. A tokenizer failure
// yields a result with no entities and one error.
func (p *Parser) ParseSource(sourceID string, src []byte, tok scope.Tokenizer) *types.ParseResult {
	b := scope.NewBuilder(sourceID, p.logger)
	if err := tokenize(tok, src, b); err != nil {
		p.logger.Debug("tokenizer failed", "source", sourceID, "error", err)
		result := &types.ParseResult{SourceID: sourceID}
		result.AddError(sourceID, 0, 0, fmt.Sprintf("tokenize: %v", err))
		return result
	}

	result := p.ParseEvents(sourceID, b.Events())
	if n := b.Unmatched(); n > 0 {
		result.AddError(sourceID, 0, 0, fmt.Sprintf("%d unmatched scope close(s) skipped", n))
	}
	if n := b.Pending(); n > 0 {
		p.logger.Debug("scopes left open at end of input", "source", sourceID, "count", n)
	}
	return result
}

// ParseEvents folds an already built event stream into entities. Events
// without a source identifier are attributed to sourceID.
func (p *Parser) ParseEvents(sourceID string, events []types.ScopeEvent) (result *types.ParseResult) {
	result = &types.ParseResult{SourceID: sourceID, Events: len(events)}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("extraction aborted", "source", sourceID, "panic", r)
			result.Entities = nil
			result.AddError(sourceID, 0, 0, fmt.Errorf("%w: %v", ErrPanic, r).Error())
		}
	}()

	engine := NewEngine(p.grammar, p.opts, p.logger)
	for _, ev := range events {
		if ev.SourceID == "" {
			ev.SourceID = sourceID
		}
		engine.Ingest(ev)
	}
	result.Entities = engine.Resolve()
	return result
}

// tokenize runs tok, turning a panic into an error
func tokenize(tok scope.Tokenizer, src []byte, sink scope.Sink) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return tok.Tokenize(src, sink)
}
