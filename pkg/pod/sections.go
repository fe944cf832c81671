package pod

import (
	"regexp"
	"strings"
)

// Section is a region of a POD block addressed to one target
type Section struct {
	// Name is the normalized target name. Empty for the file description.
	Name string
	// Body is the raw POD text of the section, starting right after the header
	Body string
	// Line is the 0-based line offset of the header within the block
	Line int
}

// Outline is the decomposition of a POD block
type Outline struct {
	// Description is the first top-level DESCRIPTION section, if any
	Description *Section
	// Named holds sections keyed to symbols, in document order
	Named []Section
}

var (
	descriptionHeader = regexp.MustCompile(`^=head(\d)\s+DESCRIPTION\b`)
	nameHeader        = regexp.MustCompile(`^=head1\s+NAME\b`)
	sectionHeader     = regexp.MustCompile(`^=(item|head[2-9])\s+(\S[^\n]*)`)
	sectionEnd        = regexp.MustCompile(`^=(head|cut|back|item)`)
	markupName        = regexp.MustCompile(`<(\w+)>`)
	trailingArgs      = regexp.MustCompile(`\(.*\)$`)
)

// ParseSections decomposes a POD block. A block without DESCRIPTION, NAME or
// item/head2+ headers yields an empty outline.
func ParseSections(text string) Outline {
	lines := strings.SplitAfter(text, "\n")

	var out Outline
	if desc, ok := findDescription(lines); ok {
		out.Description = &desc
	}
	if named, ok := findNameSection(lines); ok {
		out.Named = append(out.Named, named)
	}

	for i := 0; i < len(lines); {
		m := sectionHeader.FindStringSubmatch(strings.TrimRight(lines[i], "\r\n"))
		if m == nil {
			i++
			continue
		}

		end := i + 1
		for end < len(lines) && !sectionEnd.MatchString(lines[end]) {
			end++
		}

		body := "\n" + strings.Join(lines[i+1:end], "")
		if name := NormalizeName(m[2]); name != "" {
			out.Named = append(out.Named, Section{Name: name, Body: body, Line: i})
		}
		i = end
	}

	return out
}

// findDescription locates the first =headN DESCRIPTION section. It runs until
// the next =headN of the same depth or =cut.
func findDescription(lines []string) (Section, bool) {
	for i, line := range lines {
		m := descriptionHeader.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		closing := "=head" + m[1]
		end := i + 1
		for end < len(lines) {
			if strings.HasPrefix(lines[end], closing) || strings.HasPrefix(lines[end], "=cut") {
				break
			}
			end++
		}

		rest := line[len(m[0]):]
		return Section{Body: rest + strings.Join(lines[i+1:end], ""), Line: i}, true
	}
	return Section{}, false
}

// findNameSection handles the compact form:
//
//	=head1 NAME
//
//	My::Widget - does widget things
//
//	=head1 DESCRIPTION
//	...
//
// The symbol named in the NAME section is documented by the DESCRIPTION that
// follows it.
func findNameSection(lines []string) (Section, bool) {
	for i, line := range lines {
		if !nameHeader.MatchString(line) {
			continue
		}

		var marker string
		j := i + 1
		for ; j < len(lines) && !strings.HasPrefix(lines[j], "="); j++ {
			if t := strings.TrimSpace(lines[j]); t != "" {
				marker = t
				break
			}
		}
		if marker == "" {
			return Section{}, false
		}

		if before, _, found := strings.Cut(marker, " - "); found {
			marker = before
		}
		name := NormalizeName(marker)
		if name == "" {
			return Section{}, false
		}

		desc, ok := findDescription(lines[j:])
		if !ok {
			return Section{}, false
		}
		return Section{Name: name, Body: desc.Body, Line: i}, true
	}
	return Section{}, false
}

// NormalizeName reduces a section header argument to a bare symbol name:
// inline markup around the name is dropped, a trailing argument list is
// removed and any package or method-call prefix is stripped.
//
//	C<new>                  -> new
//	$obj->frobnicate(%args) -> frobnicate
//	My::Module::helper()    -> helper
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if m := markupName.FindStringSubmatch(name); m != nil {
		name = m[1]
	}
	name = trailingArgs.ReplaceAllString(name, "")
	if i := strings.LastIndex(name, "->"); i >= 0 {
		name = name[i+len("->"):]
	}
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+len("::"):]
	}
	return strings.TrimSpace(name)
}
