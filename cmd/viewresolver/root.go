package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-viewresolver"
	"github.com/goliatone/go-viewresolver/internal/logging"
	"github.com/goliatone/go-viewresolver/pkg/config"
)

type rootOptions struct {
	verbosity  int
	configPath string
	roots      []string
	basePath   string
	theme      string
	templateID string
	debug      bool

	cfg    config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{logger: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:   "viewresolver",
		Short: "Resolve and render themed templates",
		Long: `viewresolver resolves template names against an ordered theme chain and
renders them with pongo2.

Templates live under <root>/<base-path>/[<theme>/]<name>[.<id>].tpl. Themes
are tried most specific first, then the theme-less location.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.logger = logging.Setup(opts.verbosity, cmd.ErrOrStderr())
			opts.logger.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.CountVarP(&opts.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	flags.StringSliceVar(&opts.roots, "root", nil, "Template root directory (repeatable, overrides the config)")
	flags.StringVar(&opts.basePath, "base-path", "", "Base path inside the roots (overrides the config)")
	flags.StringVarP(&opts.theme, "theme", "t", "", "Theme to resolve against")
	flags.StringVar(&opts.templateID, "id", "", "Template id variant")
	flags.BoolVar(&opts.debug, "debug", false, "Recompile templates on every render")

	cmd.AddCommand(newRenderCmd(opts))
	cmd.AddCommand(newResolveCmd(opts))
	cmd.AddCommand(newListCmd(opts))

	return cmd
}

func (o *rootOptions) config(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("root") {
		cfg.Roots = o.roots
	}
	if cmd.Flags().Changed("base-path") {
		cfg.BasePath = strings.Trim(strings.TrimSpace(o.basePath), "/")
	}
	if o.debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func (o *rootOptions) resolver(cmd *cobra.Command) (*viewresolver.Resolver, error) {
	cfg, err := o.config(cmd)
	if err != nil {
		return nil, err
	}
	o.cfg = cfg
	return viewresolver.New(cfg, viewresolver.WithLogger(o.logger))
}

// template builds the request for name. An --id without --theme applies to
// the configured default theme.
func (o *rootOptions) template(name string, variables map[string]any) (viewresolver.Template, error) {
	t := viewresolver.NewTemplate(name, variables)

	themeName := strings.TrimSpace(o.theme)
	templateID := strings.TrimSpace(o.templateID)
	if themeName == "" && templateID != "" {
		themeName = o.cfg.DefaultTheme
		if themeName == "" {
			return viewresolver.Template{}, fmt.Errorf("--id %q needs --theme or a default_theme in the config", templateID)
		}
	}
	if themeName == "" {
		return t, nil
	}
	return t.Themed(themeName, templateID), nil
}

// parseVars decodes key=value pairs. Values are read as YAML scalars so
// numbers and booleans keep their type.
func parseVars(pairs []string) (map[string]any, error) {
	vars := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --var %q, expected key=value", pair)
		}

		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
			value = raw
		}
		vars[key] = value
	}
	return vars, nil
}
