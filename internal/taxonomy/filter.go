package taxonomy

import "github.com/dshills/eventscript/internal/event"

// Filter decides whether a discovered type joins the taxonomy.
type Filter func(t *event.Type) bool

// IsEvent reports whether t descends from the root event capability.
func IsEvent(t *event.Type) bool {
	return t != nil && t != event.Root && t.IsSubtypeOf(event.Root)
}

// IsPublic reports whether t is publicly accessible.
func IsPublic(t *event.Type) bool {
	return t != nil && t.IsPublic()
}

// IsConcrete reports whether t is not abstract.
func IsConcrete(t *event.Type) bool {
	return t != nil && !t.IsAbstract()
}

// DefaultFilters are applied to every scanned type.
var DefaultFilters = []Filter{IsEvent, IsPublic, IsConcrete}

// Eligible reports whether t passes every filter.
func Eligible(t *event.Type, filters ...Filter) bool {
	for _, f := range filters {
		if !f(t) {
			return false
		}
	}
	return true
}
