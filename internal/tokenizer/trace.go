package tokenizer

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/mcartmell/yard-perl-plugin/internal/scope"
)

// ErrInvalidOp is returned for a trace operation that is not exactly one of
// line, open or close
var ErrInvalidOp = errors.New("invalid trace operation")

// Op is one recorded Sink call
type Op struct {
	Line  *string `yaml:"line,omitempty"`
	Open  string  `yaml:"open,omitempty"`
	Close string  `yaml:"close,omitempty"`
	Col   int     `yaml:"col,omitempty"`
}

// Trace is a recorded tokenizer run:
//
//	source: lib/My/Widget.pm
//	ops:
//	  - line: "package My::Widget;\n"
//	  - {open: meta.class.perl, col: 0}
//	  - {close: meta.class.perl, col: 19}
type Trace struct {
	Source string `yaml:"source,omitempty"`
	Ops    []Op   `yaml:"ops"`
}

func (op Op) validate() error {
	n := 0
	if op.Line != nil {
		n++
	}
	if op.Open != "" {
		n++
	}
	if op.Close != "" {
		n++
	}
	if n != 1 {
		return ErrInvalidOp
	}
	if op.Col < 0 {
		return fmt.Errorf("%w: negative column", ErrInvalidOp)
	}
	return nil
}

// Replay sends every operation to sink
func (t *Trace) Replay(sink scope.Sink) error {
	for i, op := range t.Ops {
		if err := op.validate(); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
	}
	for _, op := range t.Ops {
		switch {
		case op.Line != nil:
			sink.NewLine(*op.Line)
		case op.Open != "":
			sink.OpenTag(op.Open, op.Col)
		default:
			sink.CloseTag(op.Close, op.Col)
		}
	}
	return nil
}

// TraceReader tokenizes YAML trace files produced by an external grammar
// engine (or by Recorder)
type TraceReader struct{}

// NewTraceReader creates a trace tokenizer
func NewTraceReader() *TraceReader {
	return &TraceReader{}
}

// Tokenize decodes src as a Trace and replays it
func (r *TraceReader) Tokenize(src []byte, sink scope.Sink) error {
	var t Trace
	if err := yaml.Unmarshal(src, &t); err != nil {
		return fmt.Errorf("failed to decode trace: %w", err)
	}
	return t.Replay(sink)
}

// Recorder is a Sink that records every call, optionally forwarding it
type Recorder struct {
	Trace Trace
	next  scope.Sink
}

// NewRecorder creates a recorder forwarding to next, which may be nil
func NewRecorder(source string, next scope.Sink) *Recorder {
	return &Recorder{Trace: Trace{Source: source}, next: next}
}

func (r *Recorder) NewLine(line string) {
	r.Trace.Ops = append(r.Trace.Ops, Op{Line: &line})
	if r.next != nil {
		r.next.NewLine(line)
	}
}

func (r *Recorder) OpenTag(name string, col int) {
	r.Trace.Ops = append(r.Trace.Ops, Op{Open: name, Col: col})
	if r.next != nil {
		r.next.OpenTag(name, col)
	}
}

func (r *Recorder) CloseTag(name string, col int) {
	r.Trace.Ops = append(r.Trace.Ops, Op{Close: name, Col: col})
	if r.next != nil {
		r.next.CloseTag(name, col)
	}
}

// Encode returns the recorded trace as YAML
func (r *Recorder) Encode() ([]byte, error) {
	return yaml.Marshal(&r.Trace)
}
