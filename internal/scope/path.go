package scope

import "strings"

// Path is a dotted scope name split into components
type Path []string

// ParsePath splits a dotted pattern such as "meta.class" into a Path
func ParsePath(pattern string) Path {
	if pattern == "" {
		return nil
	}
	return strings.Split(pattern, ".")
}

// Match reports whether p is a component-wise prefix of the concrete scope
// name. "meta.class" matches "meta.class.perl" but not "meta.classes" or
// "meta". The empty path matches every name.
func (p Path) Match(name string) bool {
	parts := strings.Split(name, ".")
	if len(p) > len(parts) {
		return false
	}
	for i, want := range p {
		if parts[i] != want {
			return false
		}
	}
	return true
}

// String returns the dotted form
func (p Path) String() string {
	return strings.Join(p, ".")
}
