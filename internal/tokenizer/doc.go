// Package tokenizer provides the scope tokenizers feeding scope.Builder.
//
// Perl is a best-effort, line-oriented tokenizer for Perl 5 sources. It
// emits the TextMate-style scope names the extraction grammar expects
// (meta.class.perl, meta.function.named.perl, comment.block.documentation.perl
// and so on).
//
// TraceReader replays YAML traces recorded from an external grammar engine,
// which lets a full TextMate grammar drive extraction without linking it:
//
//	source: lib/My/Widget.pm
//	ops:
//	  - line: "package My::Widget;\n"
//	  - {open: meta.class.perl, col: 0}
//	  - {open: entity.name.type.class.perl, col: 8}
//	  - {close: entity.name.type.class.perl, col: 18}
//	  - {close: meta.class.perl, col: 19}
//
// Recorder captures any tokenizer's output in the same format.
package tokenizer
