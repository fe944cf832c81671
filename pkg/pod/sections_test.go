package pod

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const widgetPod = `=head1 NAME

My::Widget - widget things

=head1 DESCRIPTION

Widgets do things.

=head2 new

Creates a widget.

=item C<frobnicate>

Frobs.

=cut
`

func TestParseSections(t *testing.T) {
	out := ParseSections(widgetPod)

	descBody := "\n\nWidgets do things.\n\n=head2 new\n\nCreates a widget.\n\n=item C<frobnicate>\n\nFrobs.\n\n"

	require.NotNil(t, out.Description)
	assert.Equal(t, Section{Body: descBody, Line: 4}, *out.Description)

	assert.Equal(t, []Section{
		{Name: "Widget", Body: descBody, Line: 0},
		{Name: "new", Body: "\n\nCreates a widget.\n\n", Line: 8},
		{Name: "frobnicate", Body: "\n\nFrobs.\n\n", Line: 12},
	}, out.Named)
}

func TestParseSections_NoHeaders(t *testing.T) {
	assert.Equal(t, Outline{}, ParseSections("Just some text.\n"))
	assert.Equal(t, Outline{}, ParseSections(""))
}

func TestParseSections_DescriptionRunsToEnd(t *testing.T) {
	out := ParseSections("=head1 DESCRIPTION\nAll of it.\n")

	require.NotNil(t, out.Description)
	assert.Equal(t, "\nAll of it.\n", out.Description.Body)
	assert.Empty(t, out.Named)
}

func TestParseSections_DescriptionStopsAtSameDepth(t *testing.T) {
	out := ParseSections("=head1 DESCRIPTION\n\nAbout.\n\n=head1 METHODS\n\nstuff\n")

	require.NotNil(t, out.Description)
	assert.Equal(t, "\n\nAbout.\n\n", out.Description.Body)
}

func TestParseSections_NameWithoutDescription(t *testing.T) {
	out := ParseSections("=head1 NAME\n\nMy::Widget - things\n")

	assert.Nil(t, out.Description)
	assert.Empty(t, out.Named)
}

func TestParseSections_SectionAtEOF(t *testing.T) {
	out := ParseSections("=item run\n\nRuns it.\n")

	assert.Equal(t, []Section{{Name: "run", Body: "\n\nRuns it.\n", Line: 0}}, out.Named)
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"new", "new"},
		{"C<new>", "new"},
		{"$obj->frobnicate(%args)", "frobnicate"},
		{"My::Module::helper()", "helper"},
		{"  plain  ", "plain"},
		{"B<run>($x)", "run"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.input))
		})
	}
}
