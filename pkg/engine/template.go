package engine

import "strings"

// Template describes one render or lookup request.
type Template struct {
	// Resource is the logical template name, e.g. "home/index".
	Resource  string
	Variables map[string]any
	// Theme enables themed resolution when set.
	Theme string
	// ResourceID selects a resource variant within the theme chain.
	ResourceID string
}

// NewTemplate returns a theme-less template.
func NewTemplate(resource string, variables map[string]any) Template {
	return Template{Resource: resource, Variables: variables}
}

// Themed returns a copy of t bound to theme and resourceID.
func (t Template) Themed(theme, resourceID string) Template {
	t.Theme = theme
	t.ResourceID = resourceID
	return t
}

// IsThemed reports whether the template carries theming information.
func (t Template) IsThemed() bool {
	return strings.TrimSpace(t.Theme) != ""
}
