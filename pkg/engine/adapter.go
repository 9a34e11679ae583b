package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-viewresolver/pkg/filesystem"
	"github.com/goliatone/go-viewresolver/pkg/resolve"
	"github.com/goliatone/go-viewresolver/pkg/theme"
)

// Engine is the capability set a wrapped template engine exposes to the
// Adapter. Resource loads performed by Render must go through
// ResourceHandler so themed scopes apply to extends and include directives.
type Engine interface {
	Render(resource string, variables map[string]any) (string, error)
	// SetCompileID scopes compiled output; an empty id selects the default
	// scope.
	SetCompileID(id string)
	CompileID() string
	ResourceHandler() *resolve.Handler
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// Adapter activates the resolution scope of a template around every call to
// the wrapped engine and always restores a neutral state afterwards. Calls
// on one Adapter are serialised.
type Adapter struct {
	mu        sync.Mutex
	engine    Engine
	handler   *resolve.Handler
	hierarchy theme.Hierarchy
	logger    zerolog.Logger
}

// NewAdapter wraps engine. A nil hierarchy treats every theme as a chain of
// one.
func NewAdapter(engine Engine, hierarchy theme.Hierarchy, options ...Option) (*Adapter, error) {
	if engine == nil {
		return nil, errors.New("engine: engine is required")
	}
	handler := engine.ResourceHandler()
	if handler == nil {
		return nil, errors.New("engine: engine has no resource handler")
	}

	a := &Adapter{
		engine:    engine,
		handler:   handler,
		hierarchy: hierarchy,
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(a)
	}
	return a, nil
}

// ResourceHandler returns the handler shared with the wrapped engine.
func (a *Adapter) ResourceHandler() *resolve.Handler {
	return a.handler
}

// Render renders t through the wrapped engine. Engine failures are returned
// as *RenderError. The resolution scope is cleared whether or not the engine
// succeeds.
func (a *Adapter) Render(t Template) (string, error) {
	resource := strings.TrimSpace(t.Resource)
	if resource == "" {
		return "", ErrResourceNotSet
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	defer a.postProcess()

	a.handler.ResetRequestedResources()
	if err := a.preProcess(t); err != nil {
		return "", err
	}

	log := a.logger.With().Str("resource", resource).Str("compile_id", a.engine.CompileID()).Logger()
	log.Debug().Msg("render")

	output, err := a.render(resource, t.Variables)
	if err != nil {
		log.Debug().Err(err).Msg("render failed")
		return "", &RenderError{Resource: resource, Err: err}
	}
	return output, nil
}

func (a *Adapter) render(resource string, variables map[string]any) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()
	return a.engine.Render(resource, variables)
}

// File resolves the physical file of t within its theme scope.
func (a *Adapter) File(t Template) (filesystem.File, error) {
	resource := strings.TrimSpace(t.Resource)
	if resource == "" {
		return nil, ErrResourceNotSet
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	defer a.postProcess()

	if err := a.preProcess(t); err != nil {
		return nil, err
	}
	return a.handler.File(resource)
}

// Files lists the resources of namespace for the requested theme. An empty
// theme lets the hierarchy pick its default.
func (a *Adapter) Files(namespace, themeName string) (*resolve.Listing, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	defer a.postProcess()

	ordering, err := a.ordering(themeName)
	if err != nil {
		return nil, err
	}
	a.handler.SetThemes(ordering)

	return a.handler.Files(namespace)
}

// Scope derives the resolution scope of t without activating it.
func (a *Adapter) Scope(t Template) (resolve.Scope, error) {
	if !t.IsThemed() {
		return resolve.Scope{}, nil
	}

	ordering, err := a.ordering(t.Theme)
	if err != nil {
		return resolve.Scope{}, err
	}
	return resolve.Scope{
		Themes:     ordering,
		TemplateID: strings.TrimSpace(t.ResourceID),
	}, nil
}

func (a *Adapter) preProcess(t Template) error {
	if !t.IsThemed() {
		return nil
	}

	scope, err := a.Scope(t)
	if err != nil {
		return err
	}
	a.handler.SetThemes(scope.Themes)

	compileID := strings.TrimSpace(t.Theme)
	if scope.TemplateID != "" {
		a.handler.SetTemplateID(scope.TemplateID)
		compileID += "-" + scope.TemplateID
	}
	a.engine.SetCompileID(compileID)

	a.logger.Debug().
		Strs("themes", scope.Themes).
		Str("template_id", scope.TemplateID).
		Str("compile_id", compileID).
		Msg("scope activated")
	return nil
}

func (a *Adapter) postProcess() {
	a.handler.ClearScope()
	a.engine.SetCompileID("")
}

func (a *Adapter) ordering(name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if a.hierarchy == nil {
		if name == "" {
			return nil, nil
		}
		return []string{name}, nil
	}

	ordering, err := a.hierarchy.Ordering(name)
	if err != nil {
		return nil, fmt.Errorf("engine: theme %q: %w", name, err)
	}
	return ordering, nil
}
