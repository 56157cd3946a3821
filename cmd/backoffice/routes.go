package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/backoffice/internal/backoffice"
	"github.com/vango-dev/backoffice/internal/config"
	"github.com/vango-dev/backoffice/internal/errors"
	"github.com/vango-dev/backoffice/pkg/i18n"
	"github.com/vango-dev/backoffice/pkg/router"
)

// routeApp builds the application without a database. Route tables and
// breadcrumbs do not touch records.
func routeApp(cfg *config.Config) (*backoffice.App, error) {
	bundle, err := i18n.NewBundle(cfg.I18n.DefaultLanguage)
	if err != nil {
		return nil, errors.New("E108").Wrap(err)
	}
	app, err := backoffice.New(nil, bundle)
	if err != nil {
		return nil, errors.New("E120").Wrap(err)
	}
	return app, nil
}

func routesCmd(load func() (*config.Config, error)) *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "routes [id...]",
		Short: "List the route table",
		Long: `List every route in resolution order with its title, or only the
routes with the given IDs.

Examples:
  backoffice routes
  backoffice routes customers.show users.edit
  backoffice routes --lang=en`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			app, err := routeApp(cfg)
			if err != nil {
				return err
			}
			table := app.Table(lang)
			routes := table.Routes()
			if len(args) > 0 {
				routes = routes[:0]
				for _, id := range args {
					r, ok := table.Lookup(id)
					if !ok {
						return errors.New("E122").WithDetail(fmt.Sprintf("No route has ID %q.", id))
					}
					routes = append(routes, r)
				}
			}
			printRoutes(cmd.OutOrStdout(), routes)
			return nil
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Catalog language (default from "+config.ConfigFileName+")")

	return cmd
}

func printRoutes(w io.Writer, routes []router.Route) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATTERN\tTITLE")
	for _, r := range routes {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Pattern.String(), r.Meta.Title)
	}
	tw.Flush()
}

func resolveCmd(load func() (*config.Config, error)) *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "resolve <location>",
		Short: "Show which route a location resolves to",
		Long: `Resolve a location against the route table and print the
matched route, its params, title and breadcrumb trail.

Examples:
  backoffice resolve /customers/42
  backoffice resolve "/orders/7/edit?tab=items" --lang=en`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			app, err := routeApp(cfg)
			if err != nil {
				return err
			}

			match := app.Table(lang).Resolve(args[0])
			if match == nil {
				return errors.New("E121").
					WithDetail(args[0] + " would redirect to " + cfg.Navigation.HomePath).
					WithSuggestion("Run 'backoffice routes' to list the patterns")
			}
			printMatch(cmd.OutOrStdout(), match)
			return nil
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Catalog language (default from "+config.ConfigFileName+")")

	return cmd
}

func printMatch(w io.Writer, m *router.MatchResult) {
	fmt.Fprintf(w, "  Route:  %s\n", m.Route.ID)
	fmt.Fprintf(w, "  Title:  %s\n", m.Route.Meta.Title)

	names := make([]string, 0, len(m.Params))
	for name := range m.Params {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(w, "  Param:  %s=%s\n", name, m.Params[name])
	}

	crumbs := m.Route.Meta.Crumbs(m.Params)
	if len(crumbs) > 0 {
		parts := make([]string, len(crumbs))
		for i, c := range crumbs {
			parts[i] = c.Text
			if c.Href != "" {
				parts[i] += " (" + c.Href + ")"
			}
		}
		fmt.Fprintf(w, "  Trail:  %s\n", strings.Join(parts, " › "))
	}
}
