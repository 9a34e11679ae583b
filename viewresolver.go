// Package viewresolver wires the resource handler, the pongo2 engine and a
// theme hierarchy from a single configuration.
package viewresolver

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	gotheme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-viewresolver/pkg/config"
	"github.com/goliatone/go-viewresolver/pkg/engine"
	"github.com/goliatone/go-viewresolver/pkg/engine/pongo"
	"github.com/goliatone/go-viewresolver/pkg/filesystem"
	"github.com/goliatone/go-viewresolver/pkg/resolve"
	"github.com/goliatone/go-viewresolver/pkg/theme"
)

// Template aliases engine.Template so callers can stay on the root package.
type Template = engine.Template

// NewTemplate builds an unthemed template description.
func NewTemplate(resource string, variables map[string]any) Template {
	return engine.NewTemplate(resource, variables)
}

// Option customises New.
type Option func(*options)

type options struct {
	fs         afero.Fs
	selector   gotheme.ThemeSelector
	logger     zerolog.Logger
	engineOpts []pongo.Option
}

// WithFs replaces the host file system the configured roots are read from.
// Watching needs the OS file system, so Watch and cfg.Watch fail with
// resolve.ErrConfiguration for any other afero.Fs.
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithThemeSelector canonicalises requested theme names through a go-theme
// selector before the configured parent chain is expanded.
func WithThemeSelector(selector gotheme.ThemeSelector) Option {
	return func(o *options) {
		o.selector = selector
	}
}

// WithLogger attaches a logger to every component.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEngineOptions forwards options to the pongo2 engine.
func WithEngineOptions(opts ...pongo.Option) Option {
	return func(o *options) {
		o.engineOpts = append(o.engineOpts, opts...)
	}
}

// Resolver renders themed templates configured by a config.Config.
type Resolver struct {
	cfg     config.Config
	adapter *engine.Adapter
	engine  *pongo.Engine
	logger  zerolog.Logger
	hostFs  bool

	mu      sync.Mutex
	watcher *pongo.Watcher
	flushed <-chan struct{}
}

// New validates cfg and assembles the rendering stack. When cfg.Watch is set
// the watcher is started; call Close to stop it.
func New(cfg config.Config, opts ...Option) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("viewresolver: %w", errors.Join(resolve.ErrConfiguration, err))
	}

	o := &options{logger: zerolog.Nop()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(o)
	}

	var browser *filesystem.Browser
	hostFs := true
	if o.fs != nil {
		browser = filesystem.NewBrowser(o.fs, cfg.Roots...)
		_, hostFs = o.fs.(*afero.OsFs)
	} else {
		browser = filesystem.NewOSBrowser(cfg.Roots...)
	}

	handler, err := resolve.NewHandler(browser, cfg.BasePath,
		resolve.WithLogger(o.logger.With().Str("component", "resolve").Logger()))
	if err != nil {
		return nil, fmt.Errorf("viewresolver: %w", err)
	}

	engineOpts := append([]pongo.Option{
		pongo.WithDebug(cfg.Debug),
		pongo.WithCacheTTL(cfg.CacheTTL),
		pongo.WithLogger(o.logger.With().Str("component", "pongo").Logger()),
	}, o.engineOpts...)
	eng, err := pongo.New(handler, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("viewresolver: %w", err)
	}

	var hierarchy theme.Hierarchy = cfg.Hierarchy()
	if o.selector != nil {
		hierarchy = theme.NewSelector(o.selector, hierarchy)
	}

	adapter, err := engine.NewAdapter(eng, hierarchy,
		engine.WithLogger(o.logger.With().Str("component", "adapter").Logger()))
	if err != nil {
		return nil, fmt.Errorf("viewresolver: %w", err)
	}

	r := &Resolver{
		cfg:     cfg,
		adapter: adapter,
		engine:  eng,
		logger:  o.logger,
		hostFs:  hostFs,
	}
	if cfg.Watch {
		if _, err := r.Watch(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Adapter exposes the engine adapter.
func (r *Resolver) Adapter() *engine.Adapter {
	return r.adapter
}

// Engine exposes the pongo2 engine for filter and global registration.
func (r *Resolver) Engine() *pongo.Engine {
	return r.engine
}

// Render renders t.
func (r *Resolver) Render(t Template) (string, error) {
	return r.adapter.Render(t)
}

// File resolves the physical file of t.
func (r *Resolver) File(t Template) (filesystem.File, error) {
	return r.adapter.File(t)
}

// Files lists namespace for themeName.
func (r *Resolver) Files(namespace, themeName string) (*resolve.Listing, error) {
	return r.adapter.Files(namespace, themeName)
}

// Watch starts flushing compiled templates when files under the configured
// roots change. Repeated calls return the channel of the running watcher.
func (r *Resolver) Watch() (<-chan struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.watcher != nil {
		return r.flushed, nil
	}
	if !r.hostFs {
		return nil, fmt.Errorf("viewresolver: %w: watching requires the OS file system", resolve.ErrConfiguration)
	}

	watcher, err := pongo.NewWatcher(r.engine, pongo.WatchConfig{
		Roots:  r.cfg.Roots,
		Logger: r.logger.With().Str("component", "watch").Logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("viewresolver: %w", err)
	}
	flushed, err := watcher.Start()
	if err != nil {
		_ = watcher.Stop()
		return nil, fmt.Errorf("viewresolver: %w", err)
	}
	r.watcher = watcher
	r.flushed = flushed
	return flushed, nil
}

// Close stops the watcher, if any.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.watcher == nil {
		return nil
	}
	err := r.watcher.Stop()
	r.watcher = nil
	r.flushed = nil
	return err
}
