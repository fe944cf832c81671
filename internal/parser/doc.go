// Package parser extracts documentation entities from Perl sources.
//
// Extraction runs in two passes over the scope events of one file. The
// first pass is a left-to-right fold performed by Engine: each event is
// classified by the scope grammar and handled by the declaration handlers
// (comment blocks, POD blocks, packages, subs, @group directives) and by the
// pending fields of the package and sub currently under construction (name,
// body, superclass, imports). The second pass, Resolve, binds named POD
// sections and the file DESCRIPTION to the declarations they document.
//
// # Basic Usage
//
//	p := parser.New()
//	result, err := p.ParseFile("lib/My/Widget.pm")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, fn := range result.Functions() {
//	    fmt.Printf("%s (%s): %s\n", fn.Name, fn.Visibility(), fn.Docstring())
//	}
//
// # Documentation binding
//
// A comment or POD block whose last line is directly above a package or sub
// declaration becomes that declaration's documentation. A blank line between
// them prevents this. Independently, every =item and =head2+ section of a
// POD block is keyed by its normalized name and prepended to the sub or
// package with exactly that name:
//
//	=item C<frobnicate>       # documents sub frobnicate
//	=head2 $w->resize(%args)  # documents sub resize
//
// # Error Handling
//
// Extraction is best effort and never fails a whole run. A file the
// tokenizer cannot scan yields no entities and one entry in
// ParseResult.Errors; a missing name or body leaves the field empty.
//
//	result, err := p.ParseFile("broken.pm")
//	// err is non-nil only when the file cannot be read
//	if result.HasErrors() {
//	    for _, parseErr := range result.Errors {
//	        fmt.Printf("Parse error: %v\n", parseErr)
//	    }
//	}
//
// Engines hold per-file state only, so files can be parsed concurrently
// with one Parser.
package parser
