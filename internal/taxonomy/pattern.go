package taxonomy

import "strings"

// Pattern matches qualified type names segment by segment.
//   - "*" matches exactly one segment
//   - "**" matches zero or more segments
type Pattern string

// Scan patterns.
const (
	// HostPattern selects the host's bundled events.
	HostPattern Pattern = "host.event.**"

	// ExtensionPattern selects the extension's events.
	ExtensionPattern Pattern = "ext.event.**"

	// AnyPattern selects every type of a module.
	AnyPattern Pattern = "**"
)

const (
	wildcardSingle = "*"
	wildcardMulti  = "**"
	separator      = "."
)

// Matches reports whether the qualified name matches the pattern.
func (p Pattern) Matches(name string) bool {
	if name == "" {
		return false
	}
	return matchSegments(strings.Split(name, separator), p.segments())
}

// Valid reports whether the pattern has no empty segments.
func (p Pattern) Valid() bool {
	if p == "" {
		return false
	}
	for _, seg := range p.segments() {
		if seg == "" {
			return false
		}
	}
	return true
}

func (p Pattern) segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), separator)
}

func matchSegments(name, pattern []string) bool {
	ni, pi := 0, 0

	for pi < len(pattern) {
		if pattern[pi] == wildcardMulti {
			for ni <= len(name) {
				if matchSegments(name[ni:], pattern[pi+1:]) {
					return true
				}
				ni++
			}
			return false
		}

		if ni >= len(name) {
			return false
		}
		if pattern[pi] != wildcardSingle && pattern[pi] != name[ni] {
			return false
		}
		ni++
		pi++
	}

	return ni == len(name)
}
