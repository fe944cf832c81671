// Package scope turns tokenizer output into scope events.
//
// A tokenizer walks a source file and replays three primitives against a
// Sink: the next physical line, a scope opened at a column, and a scope
// closed at a column. Builder implements Sink and records one ScopeEvent per
// opened scope, carrying the scope name, the line it opened on and the exact
// text it spans:
//
//	b := scope.NewBuilder("lib/My/Widget.pm", logger)
//	if err := tok.Tokenize(src, b); err != nil {
//	    return err
//	}
//	for _, ev := range b.Events() {
//	    fmt.Println(ev.Scope, ev.Line)
//	}
//
// Scope names are dotted paths ("meta.function.named.perl"). A Path pattern
// matches every name it is a component-wise prefix of, and a Grammar maps
// patterns to the closed set of Category values the extraction engine knows.
// Names no rule matches are CategoryUnknown and are ignored downstream.
package scope
