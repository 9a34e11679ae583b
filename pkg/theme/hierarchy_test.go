package theme

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	gotheme "github.com/goliatone/go-theme"
)

func TestStatic_Ordering(t *testing.T) {
	h := NewStatic("site", map[string]string{
		"base":  "",
		"site":  "base",
		"promo": "site",
	})

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "leaf", in: "promo", want: []string{"promo", "site", "base"}},
		{name: "root", in: "base", want: []string{"base"}},
		{name: "default", in: "", want: []string{"site", "base"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.Ordering(tt.in)
			if err != nil {
				t.Fatalf("ordering: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("ordering mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStatic_OrderingErrors(t *testing.T) {
	h := NewStatic("", map[string]string{
		"a":      "b",
		"b":      "a",
		"orphan": "gone",
	})

	if _, err := h.Ordering("a"); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected cycle error, got %v", err)
	}
	if _, err := h.Ordering("orphan"); !errors.Is(err, ErrUnknownTheme) {
		t.Fatalf("expected unknown parent error, got %v", err)
	}
	if _, err := h.Ordering("nope"); !errors.Is(err, ErrUnknownTheme) {
		t.Fatalf("expected unknown theme error, got %v", err)
	}

	got, err := h.Ordering("")
	if err != nil || got != nil {
		t.Fatalf("expected empty ordering without default, got %v %v", got, err)
	}
}

func TestStatic_Register(t *testing.T) {
	h := NewStatic("", nil)
	if err := h.Register("", "x"); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if err := h.Register("base", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := h.Register("child", "base"); err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := h.Ordering("child")
	if err != nil {
		t.Fatalf("ordering: %v", err)
	}
	if diff := cmp.Diff([]string{"child", "base"}, got); diff != "" {
		t.Fatalf("ordering mismatch (-want +got):\n%s", diff)
	}
}

func TestSelector_CanonicalisesThroughGoTheme(t *testing.T) {
	selector := &stubThemeSelector{selection: &gotheme.Selection{Theme: "site"}}
	h := NewSelector(selector, NewStatic("", map[string]string{
		"base": "",
		"site": "base",
	}))

	got, err := h.Ordering("")
	if err != nil {
		t.Fatalf("ordering: %v", err)
	}
	if diff := cmp.Diff([]string{"site", "base"}, got); diff != "" {
		t.Fatalf("ordering mismatch (-want +got):\n%s", diff)
	}
	if len(selector.calls) != 1 || selector.calls[0] != "" {
		t.Fatalf("unexpected selector calls %v", selector.calls)
	}

	selector.err = errors.New("boom")
	if _, err := h.Ordering("site"); err == nil {
		t.Fatalf("expected selector error")
	}
}

func TestSelector_WithoutBase(t *testing.T) {
	h := NewSelector(&stubThemeSelector{}, nil)

	got, err := h.Ordering("plain")
	if err != nil {
		t.Fatalf("ordering: %v", err)
	}
	if diff := cmp.Diff([]string{"plain"}, got); diff != "" {
		t.Fatalf("ordering mismatch (-want +got):\n%s", diff)
	}
}

type stubThemeSelector struct {
	selection *gotheme.Selection
	err       error
	calls     []string
}

func (s *stubThemeSelector) Select(name, _ string, _ ...gotheme.QueryOption) (*gotheme.Selection, error) {
	s.calls = append(s.calls, name)
	return s.selection, s.err
}
