package tokenizer

import (
	"bytes"
	"errors"
	"regexp"
	"strings"

	"github.com/mcartmell/yard-perl-plugin/internal/scope"
)

// Scope names emitted by the Perl tokenizer
const (
	ScopePod          = "comment.block.documentation.perl"
	ScopeCommentBlock = "meta.comment.block.perl"
	ScopeCommentLine  = "meta.comment.full-line.perl"
	ScopeClass        = "meta.class.perl"
	ScopeClassName    = "entity.name.type.class.perl"
	ScopeImport       = "meta.import.package.perl"
	ScopeImportArgs   = "meta.import.arguments.perl"
	ScopeFunction     = "meta.function.named.perl"
	ScopeFunctionName = "entity.name.function.perl"
	ScopeFunctionBody = "meta.scope.function.perl"
)

// ErrBinary is returned for sources containing NUL bytes
var ErrBinary = errors.New("source looks binary")

// binarySniffLen is how much of a source is checked for NUL bytes
const binarySniffLen = 8000

var (
	podStart     = regexp.MustCompile(`^=[a-zA-Z]`)
	podEnd       = regexp.MustCompile(`^=cut\b`)
	commentLine  = regexp.MustCompile(`^\s*#`)
	directive    = regexp.MustCompile(`#\s*@(group|endgroup)\b`)
	dataMarker   = regexp.MustCompile(`^__(END|DATA)__\b`)
	packageDecl  = regexp.MustCompile(`^(\s*)package\s+([A-Za-z_][\w:]*)`)
	useDecl      = regexp.MustCompile(`^\s*use\s+([A-Za-z_][\w:]*)`)
	functionDecl = regexp.MustCompile(`^(\s*)sub\s+([A-Za-z_][\w:]*)`)
)

// Perl is a line-oriented tokenizer producing the scopes the extraction
// engine needs: POD blocks, comment blocks and lines, package declarations,
// use statements and named subs with their bodies. It does not try to be a
// complete Perl grammar; heredocs, multi-line strings and quote-like
// operators with unbalanced braces can confuse it.
type Perl struct{}

// NewPerl creates a Perl tokenizer
func NewPerl() *Perl {
	return &Perl{}
}

// Tokenize scans src and replays it against sink
func (p *Perl) Tokenize(src []byte, sink scope.Sink) error {
	if bytes.IndexByte(src[:min(len(src), binarySniffLen)], 0) >= 0 {
		return ErrBinary
	}

	s := &perlState{sink: sink}
	for _, line := range splitLines(string(src)) {
		s.next(line)
	}
	s.finish()
	return nil
}

func splitLines(text string) []string {
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

type function struct {
	body  bool // the opening brace has been seen
	depth int
}

type perlState struct {
	sink scope.Sink
	last string

	pod   bool      // inside a POD block
	block bool      // comment block open
	args  bool      // import arguments continue on a later line
	fn    *function // named sub being scanned
	ended bool      // past __END__ or __DATA__
}

func (s *perlState) next(line string) {
	s.sink.NewLine(line)
	s.last = line
	text := strings.TrimRight(line, "\r\n")

	if s.pod {
		if podEnd.MatchString(text) {
			s.sink.CloseTag(ScopePod, len(text))
			s.pod = false
		}
		return
	}
	if podStart.MatchString(text) && !podEnd.MatchString(text) {
		s.closeBlock()
		s.sink.OpenTag(ScopePod, 0)
		s.pod = true
		return
	}
	if s.ended {
		return
	}

	if commentLine.MatchString(text) {
		s.comment(text)
		return
	}
	s.closeBlock()

	if dataMarker.MatchString(text) {
		s.ended = true
		return
	}
	s.code(text)
}

// comment handles a line holding only a comment. @group directives stand
// alone and are never part of a comment block.
func (s *perlState) comment(text string) {
	if directive.MatchString(text) {
		s.closeBlock()
	} else if !s.block {
		s.sink.OpenTag(ScopeCommentBlock, 0)
		s.block = true
	}

	s.sink.OpenTag(ScopeCommentLine, strings.IndexByte(text, '#'))
	s.sink.CloseTag(ScopeCommentLine, len(text))
}

func (s *perlState) closeBlock() {
	if s.block {
		s.sink.CloseTag(ScopeCommentBlock, 0)
		s.block = false
	}
}

func (s *perlState) code(text string) {
	marks, end := scanCode(text)

	if s.args {
		i := firstMark(text, marks, 0, ';')
		if i < 0 {
			return
		}
		s.sink.CloseTag(ScopeImportArgs, i+1)
		s.args = false
		return
	}

	if s.fn != nil {
		s.advance(text, marks, 0)
		return
	}

	code := text[:end]
	if m := packageDecl.FindStringSubmatchIndex(code); m != nil {
		s.sink.OpenTag(ScopeClass, m[3])
		s.sink.OpenTag(ScopeClassName, m[4])
		s.sink.CloseTag(ScopeClassName, m[5])

		closeAt := m[5]
		if i := firstMark(text, marks, m[5], ';', '{'); i >= 0 {
			closeAt = i + 1
		}
		s.sink.CloseTag(ScopeClass, closeAt)
		return
	}

	if m := useDecl.FindStringSubmatchIndex(code); m != nil {
		s.sink.OpenTag(ScopeImport, m[2])
		s.sink.CloseTag(ScopeImport, m[3])

		rest := code[m[3]:]
		start := m[3] + len(rest) - len(strings.TrimLeft(rest, " \t"))
		if start < len(code) && code[start] == ';' {
			return
		}
		s.sink.OpenTag(ScopeImportArgs, start)
		if i := firstMark(text, marks, start, ';'); i >= 0 {
			s.sink.CloseTag(ScopeImportArgs, i+1)
		} else {
			s.args = true
		}
		return
	}

	if m := functionDecl.FindStringSubmatchIndex(code); m != nil {
		s.sink.OpenTag(ScopeFunction, m[3])
		s.sink.OpenTag(ScopeFunctionName, m[4])
		s.sink.CloseTag(ScopeFunctionName, m[5])
		s.fn = &function{}
		s.advance(text, marks, m[5])
	}
}

// advance tracks the braces of the current sub, closing it when its body
// closes or when a forward declaration ends with ';'
func (s *perlState) advance(text string, marks []int, from int) {
	for _, i := range marks {
		if i < from {
			continue
		}
		switch c := text[i]; {
		case !s.fn.body && c == '{':
			s.sink.OpenTag(ScopeFunctionBody, i)
			s.fn.body = true
			s.fn.depth = 1
		case !s.fn.body && c == ';':
			s.sink.CloseTag(ScopeFunction, i+1)
			s.fn = nil
			return
		case s.fn.body && c == '{':
			s.fn.depth++
		case s.fn.body && c == '}':
			s.fn.depth--
			if s.fn.depth == 0 {
				s.sink.CloseTag(ScopeFunctionBody, i+1)
				s.sink.CloseTag(ScopeFunction, i+1)
				s.fn = nil
				return
			}
		}
	}
}

// finish closes whatever is still open at the end of the last line
func (s *perlState) finish() {
	col := len(s.last)
	if s.block {
		s.sink.CloseTag(ScopeCommentBlock, col)
	}
	if s.pod {
		s.sink.CloseTag(ScopePod, col)
	}
	if s.args {
		s.sink.CloseTag(ScopeImportArgs, col)
	}
	if s.fn != nil {
		if s.fn.body {
			s.sink.CloseTag(ScopeFunctionBody, col)
		}
		s.sink.CloseTag(ScopeFunction, col)
	}
}

// scanCode returns the positions of braces and semicolons outside quoted
// strings, and where the trailing comment starts (len(text) when none)
func scanCode(text string) (marks []int, end int) {
	var quote byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '\\':
			i++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '#':
			if i > 0 && text[i-1] == '$' {
				continue
			}
			return marks, i
		case c == '{' || c == '}' || c == ';':
			marks = append(marks, i)
		}
	}
	return marks, len(text)
}

// firstMark returns the first mark at or after from holding one of chars
func firstMark(text string, marks []int, from int, chars ...byte) int {
	for _, i := range marks {
		if i >= from && bytes.IndexByte(chars, text[i]) >= 0 {
			return i
		}
	}
	return -1
}
