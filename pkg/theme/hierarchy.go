// Package theme turns a requested theme name into the ordered fallback chain
// used during resource resolution.
package theme

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	gotheme "github.com/goliatone/go-theme"
)

var (
	// ErrUnknownTheme is returned for names that were never registered.
	ErrUnknownTheme = errors.New("theme: unknown theme")
	// ErrCycle is returned when parent links loop back on themselves.
	ErrCycle = errors.New("theme: parent cycle")
)

// Hierarchy resolves a theme name into an ordering, most specific first. An
// empty name selects the default theme, if any; the result may be empty.
type Hierarchy interface {
	Ordering(name string) ([]string, error)
}

// Static is a Hierarchy over registered theme -> parent links.
type Static struct {
	mu           sync.RWMutex
	defaultTheme string
	parents      map[string]string
}

var _ Hierarchy = (*Static)(nil)

// NewStatic builds a Static hierarchy. parents maps each theme to its parent;
// an empty parent marks a root theme.
func NewStatic(defaultTheme string, parents map[string]string) *Static {
	h := &Static{
		defaultTheme: strings.TrimSpace(defaultTheme),
		parents:      make(map[string]string, len(parents)),
	}
	for name, parent := range parents {
		h.parents[strings.TrimSpace(name)] = strings.TrimSpace(parent)
	}
	return h
}

// Register adds or replaces a theme.
func (h *Static) Register(name, parent string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("theme: name required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.parents[name] = strings.TrimSpace(parent)
	return nil
}

// Default returns the theme used for empty names.
func (h *Static) Default() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.defaultTheme
}

// Ordering implements Hierarchy.
func (h *Static) Ordering(name string) ([]string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	name = strings.TrimSpace(name)
	if name == "" {
		name = h.defaultTheme
	}
	if name == "" {
		return nil, nil
	}

	var (
		ordering []string
		seen     = make(map[string]struct{})
	)
	for current := name; current != ""; {
		parent, ok := h.parents[current]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTheme, current)
		}
		if _, loop := seen[current]; loop {
			return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(append(ordering, current), " -> "))
		}
		seen[current] = struct{}{}
		ordering = append(ordering, current)
		current = parent
	}
	return ordering, nil
}

// Selector canonicalises requested names through a go-theme selector before
// expanding the parent chain. Selections resolve defaults and aliases owned
// by the theme provider.
type Selector struct {
	selector gotheme.ThemeSelector
	base     Hierarchy
}

var _ Hierarchy = (*Selector)(nil)

// NewSelector wraps base with selector.
func NewSelector(selector gotheme.ThemeSelector, base Hierarchy) *Selector {
	return &Selector{selector: selector, base: base}
}

// Ordering implements Hierarchy.
func (s *Selector) Ordering(name string) ([]string, error) {
	if s.selector != nil {
		selection, err := s.selector.Select(strings.TrimSpace(name), "")
		if err != nil {
			return nil, fmt.Errorf("theme: select %q: %w", name, err)
		}
		if selection != nil && selection.Theme != "" {
			name = selection.Theme
		}
	}
	if s.base == nil {
		if strings.TrimSpace(name) == "" {
			return nil, nil
		}
		return []string{strings.TrimSpace(name)}, nil
	}
	return s.base.Ordering(name)
}
