package remote

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ubiquits/ubiquits/internal/cli/ui"
	"github.com/ubiquits/ubiquits/internal/orm/relationships"
	"github.com/ubiquits/ubiquits/internal/orm/schema"
	"github.com/ubiquits/ubiquits/internal/web/router"
)

// RouteSource lists the routes of a server
type RouteSource interface {
	Routes() []router.RouteInfo
}

// RoutesCommand prints the route table of src
func RoutesCommand(src RouteSource, s *Shell) Command {
	return Command{
		Name:        "routes",
		Description: "outputs route table",
		Run: func(_ context.Context, _ []string, out io.Writer) error {
			s.log.Info("CLI session retrieving routes")

			table := ui.NewTable(out, []string{"Method", "Path", "Stack"}, &ui.TableOptions{NoColor: s.noColor})
			for _, r := range src.Routes() {
				table.AddRow(r.Method, r.Pattern, strings.Join(r.Stack, ", "))
			}
			fmt.Fprintln(out)
			table.Render()
			return nil
		},
	}
}

// ModelsCommand prints the model classes of registry with their relations
// and any relation cycles
func ModelsCommand(registry *schema.Registry, s *Shell) Command {
	return Command{
		Name:        "models",
		Description: "outputs model table",
		Run: func(_ context.Context, _ []string, out io.Writer) error {
			s.log.Info("CLI session retrieving models")
			return RenderModels(out, registry, s.noColor)
		},
	}
}

// RenderModels writes the model table of registry to out
func RenderModels(out io.Writer, registry *schema.Registry, noColor bool) error {
	graph, err := relationships.NewGraph(registry)
	if err != nil {
		return err
	}

	table := ui.NewTable(out, []string{"Class", "StorageKey", "Primary", "Fields", "Relations"}, &ui.TableOptions{NoColor: noColor})
	for _, class := range registry.Classes() {
		if class.IsAbstract() {
			table.AddRow(class.Name(), "(abstract)")
			continue
		}
		meta, err := class.Metadata()
		if err != nil {
			return err
		}

		attrs := make([]string, 0, len(meta.Fields))
		for _, f := range meta.Attributes() {
			if f != meta.Primary {
				attrs = append(attrs, f.Name)
			}
		}
		var rels []string
		for _, e := range graph.Edges(class.Name()) {
			rels = append(rels, fmt.Sprintf("%s -> %s (%s)", e.Field, e.To, e.Kind))
		}

		table.AddRow(class.Name(), meta.StorageKey, meta.Primary.Name, strings.Join(attrs, ", "), strings.Join(rels, ", "))
	}
	fmt.Fprintln(out)
	table.Render()

	if cycles := graph.DetectCycles(); len(cycles) > 0 {
		fmt.Fprintln(out)
		for _, c := range cycles {
			fmt.Fprintf(out, "cycle: %s\n", relationships.FormatCycle(c))
		}
	}
	return nil
}
