package pongo

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/flosch/pongo2/v6"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-viewresolver/pkg/engine"
	"github.com/goliatone/go-viewresolver/pkg/resolve"
)

// Option configures the pongo2 engine before construction.
type Option func(*config)

type config struct {
	debug      bool
	cacheTTL   time.Duration
	templateFn map[string]any
	globalData map[string]any
	logger     zerolog.Logger
}

// WithDebug recompiles templates on every render instead of caching them.
func WithDebug(debug bool) Option {
	return func(cfg *config) {
		cfg.debug = debug
	}
}

// WithCacheTTL expires compile scopes that were not used for ttl. Zero keeps
// them until Flush.
func WithCacheTTL(ttl time.Duration) Option {
	return func(cfg *config) {
		cfg.cacheTTL = ttl
	}
}

// WithTemplateFunc registers helper functions or filters when the engine loads.
func WithTemplateFunc(funcs map[string]any) Option {
	return func(cfg *config) {
		if len(funcs) == 0 {
			return
		}
		if cfg.templateFn == nil {
			cfg.templateFn = make(map[string]any, len(funcs))
		}
		for name, fn := range funcs {
			cfg.templateFn[strings.TrimSpace(name)] = fn
		}
	}
}

// WithGlobalData seeds global context values available to every template.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		if len(data) == 0 {
			return
		}
		if cfg.globalData == nil {
			cfg.globalData = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globalData[strings.TrimSpace(key)] = value
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// Engine renders pongo2 templates resolved through a resolve.Handler. It is
// meant to be driven by an engine.Adapter, which serialises access to the
// handler scope.
type Engine struct {
	mu        sync.RWMutex
	compileMu sync.Mutex

	handler   *resolve.Handler
	loader    *resourceLoader
	sets      *gocache.Cache
	globals   pongo2.Context
	compileID string
	debug     bool
	logger    zerolog.Logger
}

var _ engine.Engine = (*Engine)(nil)

// New constructs an Engine over handler.
func New(handler *resolve.Handler, options ...Option) (*Engine, error) {
	if handler == nil {
		return nil, errors.New("pongo: resource handler is required")
	}

	cfg := &config{logger: zerolog.Nop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	ttl := gocache.NoExpiration
	cleanup := time.Duration(0)
	if cfg.cacheTTL > 0 {
		ttl = cfg.cacheTTL
		cleanup = 2 * cfg.cacheTTL
	}

	e := &Engine{
		handler: handler,
		loader:  &resourceLoader{handler: handler},
		sets:    gocache.New(ttl, cleanup),
		globals: make(pongo2.Context),
		debug:   cfg.debug,
		logger:  cfg.logger,
	}
	registerDefaultFilters()

	if err := e.GlobalContext(cfg.globalData); err != nil {
		return nil, fmt.Errorf("pongo: apply global data: %w", err)
	}
	for name, fn := range cfg.templateFn {
		if err := e.registerTemplateFunc(name, fn); err != nil {
			return nil, fmt.Errorf("pongo: register template func %q: %w", name, err)
		}
	}

	return e, nil
}

// ResourceHandler implements engine.Engine.
func (e *Engine) ResourceHandler() *resolve.Handler {
	return e.handler
}

// SetCompileID implements engine.Engine.
func (e *Engine) SetCompileID(id string) {
	e.mu.Lock()
	e.compileID = id
	e.mu.Unlock()
}

// CompileID implements engine.Engine.
func (e *Engine) CompileID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.compileID
}

// Render implements engine.Engine. resource is a logical name without
// extension. A cached compilation is dropped when any resource it was built
// from resolves to a different modification time.
func (e *Engine) Render(resource string, variables map[string]any) (string, error) {
	tmpl, err := e.compile(e.CompileID(), resource)
	if err != nil {
		return "", fmt.Errorf("pongo: load template %q: %w", resource, err)
	}

	viewContext, err := convertToContext(variables)
	if err != nil {
		return "", fmt.Errorf("pongo: convert data: %w", err)
	}

	out, err := tmpl.Execute(viewContext)
	if err != nil {
		return "", fmt.Errorf("pongo: execute template %q: %w", resource, err)
	}
	return out, nil
}

func (e *Engine) compile(compileID, resource string) (*pongo2.Template, error) {
	set := e.templateSet(compileID)
	if e.debug {
		return set.FromCache(resource)
	}

	e.compileMu.Lock()
	defer e.compileMu.Unlock()

	key := dependencyKey(compileID, resource)
	if deps, ok := e.dependencies(key); !ok {
		// nothing recorded for this resource yet
		set.CleanCache(resource)
	} else if name, stale := deps.stale(e.handler); stale {
		set.CleanCache(resource)
		e.sets.Delete(key)
		e.logger.Debug().
			Str("compile_id", compileID).
			Str("resource", resource).
			Str("changed", name).
			Msg("template recompiled")
	}

	loaded := e.loader.trace()
	tmpl, err := set.FromCache(resource)
	names := loaded()
	if err != nil {
		return nil, err
	}

	if len(names) > 0 {
		e.sets.SetDefault(key, snapshotDependencies(e.handler, names))
	} else if deps, ok := e.dependencies(key); ok {
		e.handler.MarkRequested(deps.names()...)
	}
	return tmpl, nil
}

func (e *Engine) dependencies(key string) (dependencies, bool) {
	cached, ok := e.sets.Get(key)
	if !ok {
		return nil, false
	}
	deps, ok := cached.(dependencies)
	return deps, ok
}

// RegisterFilter registers a pongo2 filter. Filters are process-wide in
// pongo2, so registering an existing name fails.
func (e *Engine) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	if strings.TrimSpace(name) == "" || fn == nil {
		return errors.New("pongo: filter name and function required")
	}

	filter := func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var paramVal any
		if param != nil {
			paramVal = param.Interface()
		}
		result, err := fn(in.Interface(), paramVal)
		if err != nil {
			return nil, &pongo2.Error{Sender: "custom_filter", OrigError: err}
		}
		return pongo2.AsValue(result), nil
	}

	if pongo2.FilterExists(name) {
		return fmt.Errorf("pongo: filter %q already exists", name)
	}
	return pongo2.RegisterFilter(name, filter)
}

// GlobalContext merges data into the globals of every compile scope.
func (e *Engine) GlobalContext(data map[string]any) error {
	if len(data) == 0 {
		return nil
	}

	globalCtx, err := convertToContext(data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.globals.Update(globalCtx)
	for _, item := range e.sets.Items() {
		if set, ok := item.Object.(*pongo2.TemplateSet); ok {
			set.Globals.Update(globalCtx)
		}
	}
	return nil
}

// Flush drops every compiled template of every compile scope along with the
// recorded dependencies.
func (e *Engine) Flush() {
	e.sets.Flush()
	e.logger.Debug().Msg("template cache flushed")
}

func (e *Engine) templateSet(compileID string) *pongo2.TemplateSet {
	key := "scope:" + compileID
	if cached, ok := e.sets.Get(key); ok {
		return cached.(*pongo2.TemplateSet)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if cached, ok := e.sets.Get(key); ok {
		return cached.(*pongo2.TemplateSet)
	}

	name := "viewresolver"
	if compileID != "" {
		name += ":" + compileID
	}
	set := pongo2.NewSet(name, e.loader)
	set.Debug = e.debug
	set.Globals.Update(e.globals)

	e.sets.SetDefault(key, set)
	e.logger.Debug().Str("compile_id", compileID).Msg("compile scope created")
	return set
}

func (e *Engine) registerTemplateFunc(name string, fn any) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || fn == nil {
		return nil
	}

	if filter, ok := fn.(pongo2.FilterFunction); ok {
		if pongo2.FilterExists(trimmed) {
			return nil
		}
		return pongo2.RegisterFilter(trimmed, filter)
	}

	if !isCallable(fn) {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.globals[trimmed] = fn
	return nil
}

func isCallable(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.IsValid() && rv.Kind() == reflect.Func
}
