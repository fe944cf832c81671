package types

import (
	"regexp"
	"strings"
)

// Parameter is one positional argument binding found at the top of a body
type Parameter struct {
	Expr    string  `json:"expr" yaml:"expr"`
	Default *string `json:"default,omitempty" yaml:"default,omitempty"`
}

var (
	// my $self = shift;  my $x = shift(@_);
	shiftBinding = regexp.MustCompile(`my\s+(.*?)\s*=\s*shift(\(\s*@_\s*\))?\s*;`)
	// my ($x, $y) = @_;
	listBinding = regexp.MustCompile(`my\s+\((.*?)\)\s*=\s*@_\s*;`)
	// my %args = @_;  my %args = validate(@_, {...});
	argsBinding = regexp.MustCompile(`my\s+(.*?)\s*=\s*(@_|validate\(@_,)`)

	listSeparator = regexp.MustCompile(`\s*(?:,|=>)\s*`)
)

// Parameters scans the body from the top and collects argument bindings.
// Scanning stops at the first line that is not a "shift" binding; a list
// unpack of @_ is collected before stopping. The result is best effort.
func (f *Function) Parameters() []Parameter {
	body := strings.TrimSpace(f.Body)
	body = strings.TrimSpace(strings.TrimPrefix(body, "{"))

	var params []Parameter
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)

		if m := shiftBinding.FindStringSubmatch(line); m != nil {
			params = append(params, Parameter{Expr: m[1]})
			continue
		}
		if m := listBinding.FindStringSubmatch(line); m != nil {
			for _, name := range listSeparator.Split(m[1], -1) {
				params = append(params, Parameter{Expr: name})
			}
			break
		}
		if m := argsBinding.FindStringSubmatch(line); m != nil {
			params = append(params, Parameter{Expr: m[1]})
		}
		break
	}
	return params
}
