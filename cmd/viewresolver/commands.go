package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRenderCmd(opts *rootOptions) *cobra.Command {
	var pairs []string

	cmd := &cobra.Command{
		Use:   "render NAME",
		Short: "Render a template to stdout",
		Example: `  viewresolver render home --root ./templates --theme site
  viewresolver render emails/welcome -c viewresolver.yaml --theme site --id promo --var name=Ada`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := parseVars(pairs)
			if err != nil {
				return err
			}
			resolver, err := opts.resolver(cmd)
			if err != nil {
				return err
			}
			defer resolver.Close()

			tmpl, err := opts.template(args[0], vars)
			if err != nil {
				return err
			}
			output, err := resolver.Render(tmpl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), output)
			return err
		},
	}
	cmd.Flags().StringArrayVar(&pairs, "var", nil, "Template variable as key=value (repeatable)")
	return cmd
}

func newResolveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve NAME",
		Short: "Print the file a template name resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := opts.resolver(cmd)
			if err != nil {
				return err
			}
			defer resolver.Close()

			tmpl, err := opts.template(args[0], nil)
			if err != nil {
				return err
			}
			file, err := resolver.File(tmpl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), file.Path())
			return err
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list NAMESPACE",
		Short: "List the templates of a namespace",
		Long: `List the templates of a namespace as "key<TAB>path" lines. Files of a more
specific theme hide files with the same key further down the chain.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := opts.resolver(cmd)
			if err != nil {
				return err
			}
			defer resolver.Close()

			listing, err := resolver.Files(args[0], opts.theme)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, entry := range listing.Entries() {
				if _, err := fmt.Fprintf(out, "%s\t%s\n", entry.Key, entry.Path); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
