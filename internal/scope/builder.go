package scope

import (
	"log/slog"
	"strings"

	"github.com/mcartmell/yard-perl-plugin/pkg/types"
)

// Sink receives the primitive operations a tokenizer replays while it scans
// a source: each physical line, then the scopes opened and closed on it.
// Columns are byte offsets into the current line.
type Sink interface {
	NewLine(line string)
	OpenTag(name string, col int)
	CloseTag(name string, col int)
}

// Tokenizer scans source text and replays it against a Sink
type Tokenizer interface {
	Tokenize(src []byte, sink Sink) error
}

// openScope is a scope that has been opened but not closed yet
type openScope struct {
	index int // position in Builder.events
	start int // column the scope opened at
	text  strings.Builder
}

// Builder turns Sink operations into ScopeEvents with correctly sliced text
type Builder struct {
	sourceID string
	logger   *slog.Logger

	line  string
	lnum  int
	open  []*openScope // most recently opened last
	stash []types.ScopeEvent

	unmatched int
}

// NewBuilder creates a builder whose events carry sourceID
func NewBuilder(sourceID string, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{sourceID: sourceID, logger: logger}
}

// NewLine starts the next physical line and appends it to every open scope
func (b *Builder) NewLine(line string) {
	b.line = line
	b.lnum++
	for _, o := range b.open {
		o.text.WriteString(line)
	}
}

// OpenTag opens a scope at col on the current line
func (b *Builder) OpenTag(name string, col int) {
	o := &openScope{index: len(b.stash), start: col}
	o.text.WriteString(b.line)

	b.stash = append(b.stash, types.ScopeEvent{
		Scope:    name,
		Line:     b.lnum,
		SourceID: b.sourceID,
	})
	b.open = append(b.open, o)
}

// CloseTag closes the most recently opened scope with exactly this name at
// col on the current line. A close without a matching open is skipped.
func (b *Builder) CloseTag(name string, col int) {
	i := len(b.open) - 1
	for ; i >= 0; i-- {
		if b.stash[b.open[i].index].Scope == name {
			break
		}
	}
	if i < 0 {
		b.unmatched++
		b.logger.Debug("unmatched scope close",
			"source", b.sourceID, "scope", name, "line", b.lnum, "col", col)
		return
	}

	o := b.open[i]
	b.open = append(b.open[:i], b.open[i+1:]...)

	text := o.text.String()
	end := len(text) - len(b.line) + col
	ev := &b.stash[o.index]
	ev.Text = slice(text, o.start, end)
	ev.Closed = true
}

// Events returns every scope in the order it was opened. Scopes still open
// keep the text from their start column to the end of input.
func (b *Builder) Events() []types.ScopeEvent {
	out := make([]types.ScopeEvent, len(b.stash))
	copy(out, b.stash)
	for _, o := range b.open {
		text := o.text.String()
		out[o.index].Text = slice(text, o.start, len(text))
	}
	return out
}

// Unmatched returns the number of closes that had no matching open scope
func (b *Builder) Unmatched() int {
	return b.unmatched
}

// Pending returns the number of scopes still open
func (b *Builder) Pending() int {
	return len(b.open)
}

// slice returns text[start:end] with both bounds clamped into range
func slice(text string, start, end int) string {
	start = max(0, min(start, len(text)))
	end = max(start, min(end, len(text)))
	return text[start:end]
}
