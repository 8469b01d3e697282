package command

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-twig/pkg/config"
	"github.com/goliatone/go-twig/pkg/console"
)

func newDebugCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "twig:debug [filter]",
		Short: "Show loader paths, functions, filters, globals and facades",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := backed(app)
			if err != nil {
				return err
			}
			var filter string
			if len(args) == 1 {
				filter = strings.ToLower(args[0])
			}
			match := func(name string) bool {
				return filter == "" || strings.Contains(strings.ToLower(name), filter)
			}
			names := func(all []string) [][]string {
				var rows [][]string
				for _, name := range all {
					if match(name) {
						rows = append(rows, []string{name})
					}
				}
				return rows
			}

			out := console.New(cmd.OutOrStdout(), console.WithVerbose(app.Verbose))

			out.Section("Loader Paths")
			var paths [][]string
			for _, ns := range r.Loader().Namespaces() {
				label := "@" + ns
				if ns == config.MainNamespace {
					label = "(None)"
				}
				for _, root := range r.Loader().Paths(ns) {
					if match(ns) || match(root) {
						paths = append(paths, []string{label, root})
					}
				}
			}
			out.Table([]string{"Namespace", "Paths"}, paths)

			env := r.Environment()
			out.Section("Functions")
			out.Table([]string{"Name"}, names(env.Functions()))
			out.Section("Filters")
			out.Table([]string{"Name"}, names(env.Filters()))
			out.Section("Globals")
			out.Table([]string{"Name"}, names(env.Globals()))

			out.Section("Facades")
			var facades [][]string
			for _, f := range app.Config.Facades {
				if !match(f.Name) && !match(f.Class) {
					continue
				}
				safe := strings.Join(f.SafeMethods, ", ")
				if f.Safe {
					safe = "all"
				}
				facades = append(facades, []string{f.Name, f.Class, safe})
			}
			out.Table([]string{"Name", "Helper", "Safe"}, facades)
			return nil
		},
	}
}
