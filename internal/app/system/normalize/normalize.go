// Package normalize cleans user-supplied names before they are stored.
package normalize

import "strings"

// Name trims s and collapses internal runs of whitespace to one space.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// OptionalName normalizes *p. Nil and blank values become nil.
func OptionalName(p *string) *string {
	if p == nil {
		return nil
	}
	v := Name(*p)
	if v == "" {
		return nil
	}
	return &v
}

// QueryParam trims a query parameter value.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
