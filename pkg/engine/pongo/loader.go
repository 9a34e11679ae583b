package pongo

import (
	"io"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-viewresolver/pkg/resolve"
)

const (
	// CommentOpen starts a block comment in template sources.
	CommentOpen = "{*"
	// CommentClose ends a block comment in template sources.
	CommentClose = "*}"
)

// resourceLoader feeds pongo2 from a resolve.Handler. Names stay logical:
// Abs ignores the parent template so includes resolve from the theme roots.
type resourceLoader struct {
	handler *resolve.Handler

	mu      sync.Mutex
	tracing bool
	loaded  []string
}

var _ pongo2.TemplateLoader = (*resourceLoader)(nil)

func (l *resourceLoader) Abs(_, name string) string {
	name = strings.TrimSpace(name)
	return strings.TrimSuffix(name, "."+resolve.Extension)
}

func (l *resourceLoader) Get(name string) (io.Reader, error) {
	content, err := l.handler.Resource(name)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	if l.tracing {
		l.loaded = append(l.loaded, name)
	}
	l.mu.Unlock()

	return strings.NewReader(StripComments(content)), nil
}

// trace records the names loaded until the returned function is called,
// which reports them in load order without duplicates.
func (l *resourceLoader) trace() func() []string {
	l.mu.Lock()
	l.tracing = true
	l.loaded = nil
	l.mu.Unlock()

	return func() []string {
		l.mu.Lock()
		defer l.mu.Unlock()

		l.tracing = false
		seen := make(map[string]struct{}, len(l.loaded))
		names := make([]string, 0, len(l.loaded))
		for _, name := range l.loaded {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
		l.loaded = nil
		return names
	}
}

// StripComments removes `{* ... *}` blocks. An unterminated comment runs to
// the end of the source.
func StripComments(source string) string {
	if !strings.Contains(source, CommentOpen) {
		return source
	}

	var b strings.Builder
	b.Grow(len(source))

	rest := source
	for {
		start := strings.Index(rest, CommentOpen)
		if start < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:start])

		end := strings.Index(rest[start+len(CommentOpen):], CommentClose)
		if end < 0 {
			break
		}
		rest = rest[start+len(CommentOpen)+end+len(CommentClose):]
	}
	return b.String()
}
