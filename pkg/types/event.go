package types

import "fmt"

// ScopeEvent is a completed grammar scope: its name, where it opened and the
// exact source text it covers
type ScopeEvent struct {
	Scope    string `json:"scope" yaml:"scope"`
	Line     int    `json:"line" yaml:"line"`
	Text     string `json:"text" yaml:"text"`
	SourceID string `json:"source,omitempty" yaml:"source,omitempty"`

	// Closed is false when the scope was still open at end of input
	Closed bool `json:"closed" yaml:"closed"`
}

// String returns a compact description for logs
func (e ScopeEvent) String() string {
	return fmt.Sprintf("%s@%d(%d bytes)", e.Scope, e.Line, len(e.Text))
}
