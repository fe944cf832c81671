// Package pod normalizes documentation comment text for downstream renderers.
//
// Two kinds of text pass through this package: plain comment blocks, whose
// lines carry a leading comment marker and some indentation, and POD blocks
// written in Perl's legacy documentation markup. A Dialect describes how a
// block is cleaned up:
//
//	text := pod.CommentDialect.Normalize("# Adds two numbers.\n#   Returns the sum.\n")
//	// "Adds two numbers.\n  Returns the sum.\n"
//
// # POD conversion
//
// When a Dialect has Pod set, the markup is rewritten into a small set of
// semantic constructs:
//
//	=head2 Usage        ->  == Usage
//	=item new           ->  new
//	C<code>             ->  <tt>code</tt>
//	I<text> / B<text>   ->  <i>text</i> / <b>text</b>
//	L<Foo::Bar|label>   ->  {Foo::Bar|label}
//	=over / =back       ->  (removed)
//
// An indented block at the very start of a section is retagged with an
// @example marker when ExampleBlocks is set.
//
// # Sections
//
// ParseSections splits a POD block into the file-level DESCRIPTION and the
// named sections that document individual symbols (=item and =head2..=head9
// headers, plus the compact NAME/DESCRIPTION form used by module headers).
// Section names are normalized to bare identifiers so they can be matched
// against declaration names.
//
// Every transform is idempotent: normalizing already-normalized text returns
// it unchanged.
package pod
