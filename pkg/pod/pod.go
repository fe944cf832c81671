package pod

import (
	"regexp"
	"strings"
)

// IndentPolicy controls how leading indentation is removed from a block
type IndentPolicy int

const (
	// IndentNone leaves indentation untouched
	IndentNone IndentPolicy = iota
	// IndentSingleSpace strips one leading space from lines where it precedes text
	IndentSingleSpace
	// IndentUniform strips the indentation shared by every non-blank line
	IndentUniform
)

// String returns the configuration name of the policy
func (p IndentPolicy) String() string {
	switch p {
	case IndentSingleSpace:
		return "single-space"
	case IndentUniform:
		return "uniform"
	default:
		return "none"
	}
}

// ParseIndentPolicy maps a configuration name to a policy. Unknown names
// fall back to IndentUniform.
func ParseIndentPolicy(name string) IndentPolicy {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none":
		return IndentNone
	case "single-space", "single":
		return IndentSingleSpace
	default:
		return IndentUniform
	}
}

// Dialect describes how a documentation block is normalized
type Dialect struct {
	// Marker is the line-leading comment marker to strip (e.g. "#").
	// Empty disables marker stripping.
	Marker string

	// Indent selects the indentation removal policy
	Indent IndentPolicy

	// Heading is repeated once per depth level for =headN lines.
	// Defaults to "=".
	Heading string

	// Pod enables the POD markup conversion
	Pod bool

	// ExampleBlocks retags a leading indented block as an @example
	ExampleBlocks bool
}

var (
	// CommentDialect normalizes '#' comment blocks
	CommentDialect = Dialect{Marker: "#", Indent: IndentUniform}

	// DocDialect normalizes POD blocks
	DocDialect = Dialect{Heading: "=", Pod: true, ExampleBlocks: true}
)

var (
	headPattern    = regexp.MustCompile(`(?m)^=head(\d+)`)
	itemPattern    = regexp.MustCompile(`=item\s+`)
	codePattern    = regexp.MustCompile(`C<(.*?)>`)
	italicPattern  = regexp.MustCompile(`I<(.*?)>`)
	boldPattern    = regexp.MustCompile(`B<(.*?)>`)
	listPattern    = regexp.MustCompile(`(?m)^=(over|back)[^\n]*\n`)
	controlPattern = regexp.MustCompile(`(?m)^=(cut|pod|encoding)\b[^\n]*(\n|\z)`)
	examplePattern = regexp.MustCompile(`(?m)\A(\s+)^(\t| [ \t]*\S)`)
	linkPattern    = regexp.MustCompile(`L<(.*?)>`)
)

// Normalize applies the dialect to text
func (d Dialect) Normalize(text string) string {
	// Stripping repeats while every line still carries the marker, so a
	// literal marker left at the start of rendered text ("# # old") is
	// consumed here rather than by a later pass.
	if d.Marker != "" {
		for marked(text, d.Marker) {
			text = d.dedent(stripMarker(text, d.Marker))
		}
	}
	text = d.dedent(text)

	if d.Pod {
		text = d.convert(text)
	}
	return text
}

// convert rewrites POD markup into the semantic form
func (d Dialect) convert(text string) string {
	heading := d.Heading
	if heading == "" {
		heading = "="
	}

	text = strings.ReplaceAll(text, "\t", "  ")
	text = headPattern.ReplaceAllStringFunc(text, func(m string) string {
		depth := 0
		for _, r := range m[len("=head"):] {
			depth = depth*10 + int(r-'0')
		}
		return strings.Repeat(heading, depth)
	})
	text = itemPattern.ReplaceAllString(text, "")
	text = codePattern.ReplaceAllString(text, "<tt>$1</tt>")
	text = italicPattern.ReplaceAllString(text, "<i>$1</i>")
	text = boldPattern.ReplaceAllString(text, "<b>$1</b>")
	text = listPattern.ReplaceAllString(text, "")
	text = controlPattern.ReplaceAllString(text, "")

	if d.ExampleBlocks {
		text = examplePattern.ReplaceAllString(text, "${1}@example\n${2}")
	}

	return linkPattern.ReplaceAllStringFunc(text, func(m string) string {
		target, label, found := strings.Cut(linkPattern.FindStringSubmatch(m)[1], "|")
		if found {
			return "{" + target + "|" + label + "}"
		}
		return "{" + target + "}"
	})
}

func (d Dialect) dedent(text string) string {
	switch d.Indent {
	case IndentSingleSpace:
		return stripSingleSpace(text)
	case IndentUniform:
		return Dedent(text)
	}
	return text
}

// marked reports whether every non-blank line starts with marker after
// optional whitespace. Text without non-blank lines is not marked.
func marked(text, marker string) bool {
	seen := false
	for _, line := range strings.Split(text, "\n") {
		rest := strings.TrimLeft(line, " \t")
		if rest == "" {
			continue
		}
		if !strings.HasPrefix(rest, marker) {
			return false
		}
		seen = true
	}
	return seen
}

// stripMarker removes the leading run of marker from every line that starts
// with it (after optional whitespace). Lines without the marker keep their
// indentation.
func stripMarker(text, marker string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		rest := strings.TrimLeft(line, " \t")
		if !strings.HasPrefix(rest, marker) {
			continue
		}
		for strings.HasPrefix(rest, marker) {
			rest = rest[len(marker):]
		}
		lines[i] = rest
	}
	return strings.Join(lines, "\n")
}

// stripSingleSpace drops one leading space wherever it directly precedes text
func stripSingleSpace(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if len(line) > 1 && line[0] == ' ' && line[1] != ' ' && line[1] != '\t' {
			lines[i] = line[1:]
		}
	}
	return strings.Join(lines, "\n")
}

// Dedent removes the largest indentation shared by all non-blank lines.
// Whitespace-only lines are emptied.
func Dedent(text string) string {
	lines := strings.Split(text, "\n")

	common := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if common < 0 || n < common {
			common = n
		}
	}

	for i, line := range lines {
		switch {
		case strings.TrimSpace(line) == "":
			lines[i] = ""
		case common > 0:
			lines[i] = line[common:]
		}
	}
	return strings.Join(lines, "\n")
}
