// Package config loads resolver settings from YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-viewresolver/pkg/theme"
)

// Config describes template roots, the base path inside them and the theme
// tree.
type Config struct {
	// Roots are host directories searched in order.
	Roots        []string               `yaml:"roots"`
	BasePath     string                 `yaml:"base_path"`
	DefaultTheme string                 `yaml:"default_theme"`
	Themes       map[string]ThemeConfig `yaml:"themes"`
	Debug        bool                   `yaml:"debug"`
	Watch        bool                   `yaml:"watch"`
	CacheTTL     time.Duration          `yaml:"cache_ttl"`
}

// ThemeConfig links a theme to its parent. Root themes leave Parent empty.
type ThemeConfig struct {
	Parent string `yaml:"parent"`
}

// Default returns a configuration rooted at the working directory.
func Default() Config {
	return Config{
		Roots: []string{"."},
	}
}

// Load reads and validates the YAML file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalise() {
	roots := c.Roots[:0]
	for _, root := range c.Roots {
		if root = strings.TrimSpace(root); root != "" {
			roots = append(roots, root)
		}
	}
	c.Roots = roots
	c.BasePath = strings.Trim(strings.TrimSpace(c.BasePath), "/")
	c.DefaultTheme = strings.TrimSpace(c.DefaultTheme)
}

// Validate checks roots, the base path and theme links.
func (c Config) Validate() error {
	var errs []error

	if len(c.Roots) == 0 {
		errs = append(errs, errors.New("at least one root is required"))
	}
	for _, segment := range strings.Split(c.BasePath, "/") {
		if segment == ".." {
			errs = append(errs, fmt.Errorf("base_path %q escapes the roots", c.BasePath))
			break
		}
	}
	if c.CacheTTL < 0 {
		errs = append(errs, errors.New("cache_ttl must not be negative"))
	}
	if c.DefaultTheme != "" {
		if _, ok := c.Themes[c.DefaultTheme]; !ok {
			errs = append(errs, fmt.Errorf("default_theme %q is not declared", c.DefaultTheme))
		}
	}

	for _, name := range c.ThemeNames() {
		parent := strings.TrimSpace(c.Themes[name].Parent)
		if parent == "" {
			continue
		}
		if _, ok := c.Themes[parent]; !ok {
			errs = append(errs, fmt.Errorf("theme %q has undeclared parent %q", name, parent))
		}
	}

	if len(errs) == 0 {
		if _, err := c.Hierarchy().Ordering(""); err != nil {
			errs = append(errs, err)
		}
		for _, name := range c.ThemeNames() {
			if _, err := c.Hierarchy().Ordering(name); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}

	return errors.Join(errs...)
}

// ThemeNames returns the declared theme names sorted.
func (c Config) ThemeNames() []string {
	names := make([]string, 0, len(c.Themes))
	for name := range c.Themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Hierarchy builds the static theme hierarchy described by the config.
func (c Config) Hierarchy() *theme.Static {
	parents := make(map[string]string, len(c.Themes))
	for name, tc := range c.Themes {
		parents[name] = tc.Parent
	}
	return theme.NewStatic(c.DefaultTheme, parents)
}
