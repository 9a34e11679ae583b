package pongo_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/goliatone/go-viewresolver/pkg/engine"
	"github.com/goliatone/go-viewresolver/pkg/engine/pongo"
	"github.com/goliatone/go-viewresolver/pkg/filesystem"
	"github.com/goliatone/go-viewresolver/pkg/resolve"
	"github.com/goliatone/go-viewresolver/pkg/testsupport"
	"github.com/goliatone/go-viewresolver/pkg/theme"
)

var siteTemplates = map[string]string{
	"views/layout.tpl":                  `<main>{% block content %}base{% endblock %}</main>`,
	"views/site/layout.tpl":             `<main class="site">{% block content %}{% endblock %}</main>`,
	"views/home.tpl":                    `{* greets the visitor *}{% extends "layout" %}{% block content %}Hello {{ name }}{% include "partials/nav" %}{% endblock %}`,
	"views/partials/nav.tpl":            `[nav]`,
	"views/site/partials/nav.tpl":       `[site nav]`,
	"views/site/partials/nav.promo.tpl": `[promo nav]`,
}

func newStack(t *testing.T, fs afero.Fs, options ...pongo.Option) (*engine.Adapter, *pongo.Engine) {
	t.Helper()

	handler, err := resolve.NewHandler(filesystem.NewBrowser(fs), "views")
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	eng, err := pongo.New(handler, options...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	adapter, err := engine.NewAdapter(eng, theme.NewStatic("", map[string]string{"site": ""}))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return adapter, eng
}

func TestEngine_RendersThroughThemeScopes(t *testing.T) {
	adapter, eng := newStack(t, testsupport.MemFS(t, siteTemplates))
	vars := map[string]any{"name": "Ada"}

	tests := []struct {
		name     string
		template engine.Template
		want     string
	}{
		{name: "plain", template: engine.NewTemplate("home", vars), want: `<main>Hello Ada[nav]</main>`},
		{name: "themed", template: engine.NewTemplate("home", vars).Themed("site", ""), want: `<main class="site">Hello Ada[site nav]</main>`},
		{name: "variant", template: engine.NewTemplate("home", vars).Themed("site", "promo"), want: `<main class="site">Hello Ada[promo nav]</main>`},
		{name: "plain after themed", template: engine.NewTemplate("home", vars), want: `<main>Hello Ada[nav]</main>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := adapter.Render(tt.template)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if got != tt.want {
				t.Fatalf("render mismatch\nwant: %q\n got: %q", tt.want, got)
			}
			if eng.CompileID() != "" {
				t.Fatalf("compile id not cleared: %q", eng.CompileID())
			}
		})
	}
}

func TestEngine_TracksRequestedResources(t *testing.T) {
	for _, debug := range []bool{false, true} {
		t.Run(fmt.Sprintf("debug=%v", debug), func(t *testing.T) {
			adapter, _ := newStack(t, testsupport.MemFS(t, siteTemplates), pongo.WithDebug(debug))
			want := []string{"home", "layout", "partials/nav"}

			for i := 0; i < 2; i++ {
				if _, err := adapter.Render(engine.NewTemplate("home", nil).Themed("site", "")); err != nil {
					t.Fatalf("render %d: %v", i, err)
				}
				got := adapter.ResourceHandler().RequestedResources()
				if diff := cmp.Diff(want, got); diff != "" {
					t.Fatalf("render %d: requested resources mismatch (-want +got):\n%s", i, diff)
				}
			}
		})
	}
}

func writeWithModTime(t *testing.T, fs afero.Fs, name, body string, mod time.Time) {
	t.Helper()
	testsupport.WriteFiles(t, fs, map[string]string{name: body})
	if err := fs.Chtimes(name, mod, mod); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
}

func renderString(t *testing.T, adapter *engine.Adapter, tmpl engine.Template) string {
	t.Helper()
	out, err := adapter.Render(tmpl)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return out
}

func TestEngine_RecompilesChangedSources(t *testing.T) {
	fs := testsupport.MemFS(t, map[string]string{
		"views/greeting.tpl":       `{% include "partials/name" %} v1`,
		"views/partials/name.tpl":  `Ada`,
		"views/partials/other.tpl": `unused`,
	})
	adapter, _ := newStack(t, fs)
	greeting := engine.NewTemplate("greeting", nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if got := renderString(t, adapter, greeting); got != "Ada v1" {
		t.Fatalf("unexpected first render %q", got)
	}

	writeWithModTime(t, fs, "views/greeting.tpl", `{% include "partials/name" %} v2`, base.Add(time.Hour))
	if got := renderString(t, adapter, greeting); got != "Ada v2" {
		t.Fatalf("expected root change to recompile, got %q", got)
	}

	writeWithModTime(t, fs, "views/partials/name.tpl", `Grace`, base.Add(2*time.Hour))
	if got := renderString(t, adapter, greeting); got != "Grace v2" {
		t.Fatalf("expected include change to recompile, got %q", got)
	}

	writeWithModTime(t, fs, "views/partials/other.tpl", `still unused`, base.Add(3*time.Hour))
	if got := renderString(t, adapter, greeting); got != "Grace v2" {
		t.Fatalf("unexpected render after unrelated change %q", got)
	}
}

func TestEngine_RecompilesWhenThemeOverrideAppears(t *testing.T) {
	fs := testsupport.MemFS(t, siteTemplates)
	adapter, _ := newStack(t, fs)
	home := engine.NewTemplate("home", map[string]any{"name": "Ada"}).Themed("site", "")

	if got := renderString(t, adapter, home); got != `<main class="site">Hello Ada[site nav]</main>` {
		t.Fatalf("unexpected first render %q", got)
	}

	writeWithModTime(t, fs, "views/site/home.tpl", `site home`, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if got := renderString(t, adapter, home); got != "site home" {
		t.Fatalf("expected themed override to be picked up, got %q", got)
	}
}

func TestEngine_FlushRecompiles(t *testing.T) {
	fs := testsupport.MemFS(t, map[string]string{"views/greeting.tpl": "v1"})
	adapter, eng := newStack(t, fs)
	greeting := engine.NewTemplate("greeting", nil)

	if got := renderString(t, adapter, greeting); got != "v1" {
		t.Fatalf("unexpected first render %q", got)
	}

	info, err := fs.Stat("views/greeting.tpl")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	writeWithModTime(t, fs, "views/greeting.tpl", "v2", info.ModTime())
	if got := renderString(t, adapter, greeting); got != "v1" {
		t.Fatalf("expected cached render while the modification time is unchanged, got %q", got)
	}

	eng.Flush()
	if got := renderString(t, adapter, greeting); got != "v2" {
		t.Fatalf("expected recompiled render, got %q", got)
	}
}

func TestEngine_DebugSkipsCache(t *testing.T) {
	fs := testsupport.MemFS(t, map[string]string{"views/greeting.tpl": "v1"})
	adapter, _ := newStack(t, fs, pongo.WithDebug(true))

	if _, err := adapter.Render(engine.NewTemplate("greeting", nil)); err != nil {
		t.Fatalf("render: %v", err)
	}
	testsupport.WriteFiles(t, fs, map[string]string{"views/greeting.tpl": "v2"})

	got, err := adapter.Render(engine.NewTemplate("greeting", nil))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "v2" {
		t.Fatalf("expected fresh render in debug mode, got %q", got)
	}
}

func TestEngine_RenderFailuresAreUniform(t *testing.T) {
	adapter, eng := newStack(t, testsupport.MemFS(t, map[string]string{
		"views/broken.tpl": `{% if %}`,
	}))

	for _, resource := range []string{"broken", "missing"} {
		_, err := adapter.Render(engine.NewTemplate(resource, nil).Themed("site", "x"))
		if !errors.Is(err, engine.ErrRenderFailed) {
			t.Fatalf("%s: expected ErrRenderFailed, got %v", resource, err)
		}
		var renderErr *engine.RenderError
		if !errors.As(err, &renderErr) || renderErr.Resource != resource {
			t.Fatalf("%s: expected RenderError for the resource, got %v", resource, err)
		}
		if eng.CompileID() != "" {
			t.Fatalf("compile id not cleared after failure")
		}
		if !adapter.ResourceHandler().Scope().IsZero() {
			t.Fatalf("scope not cleared after failure")
		}
	}
}

func TestEngine_GlobalsAndFilters(t *testing.T) {
	adapter, eng := newStack(t, testsupport.MemFS(t, map[string]string{
		"views/globals.tpl": `{{ settings.env }}|{{ greet("Ada") }}|{{ name|lowerfirst }}|{{ name|shout_viewresolver }}`,
	}), pongo.WithGlobalData(map[string]any{
		"settings": map[string]any{"env": "staging"},
	}), pongo.WithTemplateFunc(map[string]any{
		"greet": func(name string) string { return "hi " + name },
	}))

	err := eng.RegisterFilter("shout_viewresolver", func(input any, _ any) (any, error) {
		return fmt.Sprintf("%s!", strings.ToUpper(fmt.Sprint(input))), nil
	})
	if err != nil {
		t.Fatalf("register filter: %v", err)
	}
	if err := eng.RegisterFilter("shout_viewresolver", func(input any, _ any) (any, error) { return input, nil }); err == nil {
		t.Fatalf("expected duplicate filter error")
	}

	got, err := adapter.Render(engine.NewTemplate("globals", map[string]any{"name": "Ada"}))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "staging|hi Ada|ada|ADA!"
	if got != want {
		t.Fatalf("render mismatch\nwant: %q\n got: %q", want, got)
	}
}

func TestStripComments(t *testing.T) {
	tests := map[string]string{
		"plain":                "plain",
		"a{* note *}b":         "ab",
		"{* one *}x{* two *}y": "xy",
		"keep {{ v }} {* end":  "keep {{ v }} ",
		"{**}":                 "",
	}
	for in, want := range tests {
		if got := pongo.StripComments(in); got != want {
			t.Fatalf("StripComments(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWatcher_FlushesOnTemplateChange(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "views"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	target := &countingFlusher{}
	watcher, err := pongo.NewWatcher(target, pongo.WatchConfig{
		Roots:       []string{root},
		DebounceDur: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	t.Cleanup(func() { _ = watcher.Stop() })

	flushed, err := watcher.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := os.WriteFile(filepath.Join(root, "views", "home.tpl"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-flushed:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for flush")
	}
	if target.count() == 0 {
		t.Fatalf("expected at least one flush")
	}
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()

	watcher, err := pongo.NewWatcher(&countingFlusher{}, pongo.WatchConfig{
		Roots:       []string{root},
		DebounceDur: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	t.Cleanup(func() { _ = watcher.Stop() })

	flushed, err := watcher.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	wait := func(step string) {
		t.Helper()
		select {
		case <-flushed:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for flush after %s", step)
		}
	}

	if err := os.MkdirAll(filepath.Join(root, "site"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	wait("mkdir")

	if err := os.WriteFile(filepath.Join(root, "site", "home.tpl"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	wait("write in new directory")
}

type countingFlusher struct {
	mu sync.Mutex
	n  int
}

func (c *countingFlusher) Flush() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *countingFlusher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
