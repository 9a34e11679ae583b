package resolve

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-viewresolver/pkg/filesystem"
)

// Scope carries the request-scoped resolution inputs.
type Scope struct {
	// Themes is the fallback chain, most specific first.
	Themes []string
	// TemplateID selects a variant file tried before the plain file.
	TemplateID string
}

// IsZero reports whether the scope carries no theme and no template id.
func (s Scope) IsZero() bool {
	return len(s.Themes) == 0 && s.TemplateID == ""
}

func (s Scope) clone() Scope {
	out := Scope{TemplateID: s.TemplateID}
	if len(s.Themes) > 0 {
		out.Themes = append([]string(nil), s.Themes...)
	}
	return out
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger attaches a logger used for resolution tracing.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// Handler resolves template resources through a FileSystem. The active scope
// is not synchronised; callers sharing a Handler across goroutines must
// serialise scope changes and lookups themselves.
type Handler struct {
	files    filesystem.FileSystem
	basePath string
	scope    Scope
	logger   zerolog.Logger

	requested    []string
	requestedSet map[string]struct{}
}

// NewHandler builds a Handler. An empty basePath roots lookups at the file
// system root; any other value is validated like SetPath.
func NewHandler(files filesystem.FileSystem, basePath string, options ...Option) (*Handler, error) {
	if files == nil {
		return nil, fmt.Errorf("%w: file system is required", ErrConfiguration)
	}

	h := &Handler{
		files:        files,
		logger:       zerolog.Nop(),
		requestedSet: make(map[string]struct{}),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(h)
	}

	if basePath != "" {
		if err := h.SetPath(basePath); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// BasePath returns the configured root-relative prefix.
func (h *Handler) BasePath() string {
	return h.basePath
}

// SetPath replaces the base path. Empty values and paths escaping the root
// are rejected with ErrConfiguration.
func (h *Handler) SetPath(basePath string) error {
	trimmed := strings.Trim(strings.TrimSpace(basePath), "/")
	if trimmed == "" {
		return fmt.Errorf("%w: base path is empty", ErrConfiguration)
	}
	for _, segment := range strings.Split(trimmed, "/") {
		if segment == ".." || segment == "" {
			return fmt.Errorf("%w: base path %q is invalid", ErrConfiguration, basePath)
		}
	}
	h.basePath = trimmed
	return nil
}

// Scope returns a copy of the active scope.
func (h *Handler) Scope() Scope {
	return h.scope.clone()
}

// SetScope replaces the active scope.
func (h *Handler) SetScope(scope Scope) {
	h.scope = scope.clone()
}

// SetThemes sets the active theme chain. A nil or empty chain disables
// theming.
func (h *Handler) SetThemes(themes []string) {
	if len(themes) == 0 {
		h.scope.Themes = nil
		return
	}
	h.scope.Themes = append([]string(nil), themes...)
}

// SetTemplateID sets the active template id. An empty id disables variants.
func (h *Handler) SetTemplateID(id string) {
	h.scope.TemplateID = id
}

// ClearScope drops the active themes and template id.
func (h *Handler) ClearScope() {
	h.scope = Scope{}
}

// File resolves name against the active scope.
func (h *Handler) File(name string) (filesystem.File, error) {
	return h.ResolveFile(h.scope, name)
}

// Resource returns the contents of the resolved file and records name as
// requested.
func (h *Handler) Resource(name string) (string, error) {
	file, err := h.File(name)
	if err != nil {
		return "", err
	}

	data, err := file.Read()
	if err != nil {
		return "", fmt.Errorf("resolve: read %s: %w", file.Path(), err)
	}

	h.MarkRequested(name)
	return string(data), nil
}

// MarkRequested records names as requested without reading them. Engines
// serving a compiled template from cache use it to report the resources the
// template was built from.
func (h *Handler) MarkRequested(names ...string) {
	for _, name := range names {
		if _, seen := h.requestedSet[name]; seen {
			continue
		}
		h.requestedSet[name] = struct{}{}
		h.requested = append(h.requested, name)
	}
}

// ModificationTime returns the modification time of the resolved file. The
// boolean is false when the file system does not know it.
func (h *Handler) ModificationTime(name string) (time.Time, bool, error) {
	file, err := h.File(name)
	if err != nil {
		return time.Time{}, false, err
	}
	mod, ok := file.ModTime()
	return mod, ok, nil
}

// Files lists the namespace against the active scope.
func (h *Handler) Files(namespace string) (*Listing, error) {
	return h.ListFiles(h.scope, namespace)
}

// RequestedResources returns the names served by Resource, in first-request
// order.
func (h *Handler) RequestedResources() []string {
	return append([]string(nil), h.requested...)
}

// ResetRequestedResources forgets every recorded resource name.
func (h *Handler) ResetRequestedResources() {
	h.requested = nil
	h.requestedSet = make(map[string]struct{})
}

// ResolveFile walks the theme chain of scope, then the theme-less location.
// The first match wins. Failures inside the chain only move on to the next
// theme; the theme-less failure is returned as a *NotFoundError.
func (h *Handler) ResolveFile(scope Scope, name string) (filesystem.File, error) {
	for _, theme := range scope.Themes {
		if strings.Trim(theme, "/") == "" {
			continue
		}
		file, err := h.fileInTheme(name, theme, scope.TemplateID)
		if err == nil {
			return file, nil
		}
		h.logger.Debug().Str("resource", name).Str("theme", theme).Err(err).Msg("theme miss")
	}

	file, err := h.fileInTheme(name, "", scope.TemplateID)
	if err != nil {
		h.logger.Debug().Str("resource", name).Err(err).Msg("resource not found")
		return nil, err
	}
	return file, nil
}

func (h *Handler) fileInTheme(name, theme, templateID string) (filesystem.File, error) {
	if templateID != "" {
		candidate := CandidatePath(h.basePath, theme, name, templateID, Extension)
		if file, ok := h.files.Exists(candidate); ok {
			return file, nil
		}
	}

	candidate := CandidatePath(h.basePath, theme, name, "", Extension)
	if file, ok := h.files.Exists(candidate); ok {
		return file, nil
	}
	return nil, &NotFoundError{Name: name, Path: candidate}
}

// ListFiles enumerates `basePath/[theme/]namespace` for every theme of scope,
// or once without a theme when the chain is empty. Keys already produced by
// a more specific theme are never overwritten.
func (h *Handler) ListFiles(scope Scope, namespace string) (*Listing, error) {
	themes := scope.Themes
	if len(themes) == 0 {
		themes = []string{""}
	}

	listing := NewListing()
	for _, theme := range themes {
		themed, err := h.pathFiles(theme, namespace)
		if err != nil {
			return nil, err
		}
		listing.Merge(themed)
	}
	return listing, nil
}

func (h *Handler) pathFiles(theme, namespace string) (*Listing, error) {
	root := prefixPath(h.basePath, theme)
	nsPrefix := prefixPath(h.basePath, theme, namespace)
	dir := strings.TrimSuffix(nsPrefix, "/")

	listing := NewListing()

	directories, err := h.files.Directories(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve: list %s: %w", dir, err)
	}

	for _, directory := range directories {
		children, err := directory.Read()
		if err != nil {
			return nil, fmt.Errorf("resolve: read %s: %w", directory.Path(), err)
		}
		for _, child := range children {
			if child.IsDir() || child.Extension() != Extension {
				continue
			}

			rel := h.files.RelativePath(child)
			listing.Add(Entry{
				Key:  trimExtension(strings.TrimPrefix(rel, root)),
				Name: trimExtension(strings.TrimPrefix(rel, nsPrefix)),
				Path: rel,
			})
		}
	}
	return listing, nil
}
