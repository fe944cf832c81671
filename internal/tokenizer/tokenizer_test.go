package tokenizer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcartmell/yard-perl-plugin/internal/scope"
)

const widgetSource = `package My::Widget;
use parent 'My::Base';

# Creates a widget.
sub new {
    my ($class, %args) = @_;
    return bless {%args}, $class;
}

=head2 frob

Frobs.

=cut

# @group Helpers
sub _helper { 1 }
`

type event struct {
	Scope string
	Line  int
	Text  string
}

func tokenize(t *testing.T, tok scope.Tokenizer, src string) []event {
	t.Helper()

	b := scope.NewBuilder("test.pm", nil)
	require.NoError(t, tok.Tokenize([]byte(src), b))
	assert.Zero(t, b.Unmatched())

	var out []event
	for _, ev := range b.Events() {
		assert.True(t, ev.Closed, "scope %s on line %d left open", ev.Scope, ev.Line)
		out = append(out, event{ev.Scope, ev.Line, ev.Text})
	}
	return out
}

func TestPerl_Tokenize(t *testing.T) {
	got := tokenize(t, NewPerl(), widgetSource)

	want := []event{
		{ScopeClass, 1, "package My::Widget;"},
		{ScopeClassName, 1, "My::Widget"},
		{ScopeImport, 2, "parent"},
		{ScopeImportArgs, 2, "'My::Base';"},
		{ScopeCommentBlock, 4, "# Creates a widget.\n"},
		{ScopeCommentLine, 4, "# Creates a widget."},
		{ScopeFunction, 5, "sub new {\n    my ($class, %args) = @_;\n    return bless {%args}, $class;\n}"},
		{ScopeFunctionName, 5, "new"},
		{ScopeFunctionBody, 5, "{\n    my ($class, %args) = @_;\n    return bless {%args}, $class;\n}"},
		{ScopePod, 10, "=head2 frob\n\nFrobs.\n\n=cut"},
		{ScopeCommentLine, 16, "# @group Helpers"},
		{ScopeFunction, 17, "sub _helper { 1 }"},
		{ScopeFunctionName, 17, "_helper"},
		{ScopeFunctionBody, 17, "{ 1 }"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestPerl_MultiLineImport(t *testing.T) {
	got := tokenize(t, NewPerl(), "use base\n    qw(My::Base);\n")

	assert.Equal(t, []event{
		{ScopeImport, 1, "base"},
		{ScopeImportArgs, 1, "\n    qw(My::Base);"},
	}, got)
}

func TestPerl_ImportWithoutArguments(t *testing.T) {
	got := tokenize(t, NewPerl(), "use strict;\nuse namespace::clean;\n")

	assert.Equal(t, []event{
		{ScopeImport, 1, "strict"},
		{ScopeImport, 2, "namespace::clean"},
	}, got)
}

func TestPerl_ForwardDeclarationAndBraceOnNextLine(t *testing.T) {
	src := "sub later;\nsub run\n{\n    return '}';\n}\n"
	got := tokenize(t, NewPerl(), src)

	assert.Equal(t, []event{
		{ScopeFunction, 1, "sub later;"},
		{ScopeFunctionName, 1, "later"},
		{ScopeFunction, 2, "sub run\n{\n    return '}';\n}"},
		{ScopeFunctionName, 2, "run"},
		{ScopeFunctionBody, 3, "{\n    return '}';\n}"},
	}, got)
}

func TestPerl_CommentBlocks(t *testing.T) {
	src := "# one\n# two\n\n# three\nmy $x = 1; # trailing\n"
	got := tokenize(t, NewPerl(), src)

	assert.Equal(t, []event{
		{ScopeCommentBlock, 1, "# one\n# two\n"},
		{ScopeCommentLine, 1, "# one"},
		{ScopeCommentLine, 2, "# two"},
		{ScopeCommentBlock, 4, "# three\n"},
		{ScopeCommentLine, 4, "# three"},
	}, got)
}

func TestPerl_UnterminatedConstructsCloseAtEOF(t *testing.T) {
	got := tokenize(t, NewPerl(), "=pod\n\nNo cut.\n")
	assert.Equal(t, []event{{ScopePod, 1, "=pod\n\nNo cut.\n"}}, got)

	got = tokenize(t, NewPerl(), "# last")
	assert.Equal(t, []event{
		{ScopeCommentBlock, 1, "# last"},
		{ScopeCommentLine, 1, "# last"},
	}, got)
}

func TestPerl_DataSection(t *testing.T) {
	src := "__END__\nsub ignored { }\n# ignored\n\n=head1 DESCRIPTION\n\nStill POD.\n\n=cut\n"
	got := tokenize(t, NewPerl(), src)

	assert.Equal(t, []event{
		{ScopePod, 5, "=head1 DESCRIPTION\n\nStill POD.\n\n=cut"},
	}, got)
}

func TestPerl_Binary(t *testing.T) {
	b := scope.NewBuilder("bin", nil)
	err := NewPerl().Tokenize([]byte("package X;\x00\x01"), b)
	assert.ErrorIs(t, err, ErrBinary)
}

func TestPerl_Empty(t *testing.T) {
	assert.Empty(t, tokenize(t, NewPerl(), ""))
}

func TestScanCode(t *testing.T) {
	marks, end := scanCode(`my $s = "{;}"; print $#a; # } here`)
	assert.Equal(t, []int{13, 24}, marks)
	assert.Equal(t, 26, end)
}

func TestTraceReader_RoundTrip(t *testing.T) {
	rec := NewRecorder("test.pm", nil)
	require.NoError(t, NewPerl().Tokenize([]byte(widgetSource), rec))

	data, err := rec.Encode()
	require.NoError(t, err)

	direct := tokenize(t, NewPerl(), widgetSource)
	replayed := tokenize(t, NewTraceReader(), string(data))
	assert.Equal(t, direct, replayed)
}

func TestTraceReader_Scenario(t *testing.T) {
	trace := `
source: w.pm
ops:
  - line: "package My::Widget;\n"
  - {open: meta.class.perl, col: 0}
  - {open: entity.name.type.class.perl, col: 8}
  - {close: entity.name.type.class.perl, col: 18}
  - {close: meta.class.perl, col: 19}
`
	got := tokenize(t, NewTraceReader(), trace)
	assert.Equal(t, []event{
		{"meta.class.perl", 1, "package My::Widget;"},
		{"entity.name.type.class.perl", 1, "My::Widget"},
	}, got)
}

func TestTraceReader_Errors(t *testing.T) {
	b := scope.NewBuilder("t", nil)

	err := NewTraceReader().Tokenize([]byte("ops: [{open: a, close: b}]"), b)
	assert.ErrorIs(t, err, ErrInvalidOp)

	err = NewTraceReader().Tokenize([]byte("ops: [{}]"), b)
	assert.ErrorIs(t, err, ErrInvalidOp)

	err = NewTraceReader().Tokenize([]byte("ops: [{open: a, col: -1}]"), b)
	assert.ErrorIs(t, err, ErrInvalidOp)

	err = NewTraceReader().Tokenize([]byte("ops: {"), b)
	assert.Error(t, err)

	assert.Empty(t, b.Events(), "invalid traces replay nothing")
}
