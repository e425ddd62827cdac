package commands

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ubiquits/ubiquits/internal/cli/ui"
	"github.com/ubiquits/ubiquits/internal/models"
	"github.com/ubiquits/ubiquits/internal/orm/model"
	"github.com/ubiquits/ubiquits/internal/orm/schema"
	"github.com/ubiquits/ubiquits/internal/orm/store"
)

func newGetCommand(opts *globalOptions) *cobra.Command {
	var (
		query   []string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "get <storageKey> [id]",
		Short: "Read models from the REST API at API_BASE",
		Long: `Read one model, or list a collection, through the REST API configured
by API_BASE.

Examples:
  ubiquits get hands
  ubiquits get hands 3f2c1a9e-8d4b-4e7a-9c1d-2b5e6f7a8c9d
  ubiquits get hands --query name=left`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			registry := schema.NewRegistry()
			if _, err := models.Define(registry); err != nil {
				return err
			}
			registry.Freeze()

			// Failures are reported once by Execute, so the stores log nowhere
			stores, err := store.NewHTTPStores(cfg.APIBase, registry, &http.Client{Timeout: timeout}, nil)
			if err != nil {
				return err
			}
			s, ok := stores[args[0]]
			if !ok {
				return unknownStorageKey(args[0], stores)
			}

			out := cmd.OutOrStdout()
			if len(args) == 2 {
				m, err := s.FindOne(cmd.Context(), args[1])
				if err != nil {
					return err
				}
				renderModel(out, m)
				return nil
			}

			values, err := parseQuery(query)
			if err != nil {
				return err
			}
			items, err := s.FindMany(cmd.Context(), values)
			if err != nil {
				return err
			}
			renderCollection(out, s.Class(), items)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&query, "query", "q", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	return cmd
}

func unknownStorageKey(key string, stores map[string]*store.HTTPStore) error {
	known := make([]string, 0, len(stores))
	for k := range stores {
		known = append(known, k)
	}
	slices.Sort(known)

	msg := fmt.Sprintf("unknown storage key %q", key)
	if similar := ui.Suggest(key, known, nil); len(similar) > 0 {
		msg += fmt.Sprintf(", did you mean: %s?", strings.Join(similar, ", "))
	}
	return fmt.Errorf("%s (known: %s)", msg, strings.Join(known, ", "))
}

func parseQuery(pairs []string) (url.Values, error) {
	values := url.Values{}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("query must be key=value, got: %s", pair)
		}
		values.Add(k, v)
	}
	return values, nil
}

func renderModel(w io.Writer, m *model.Model) {
	table := ui.NewKeyValueTable(w, color.NoColor)
	for _, f := range m.Metadata().Fields {
		if v, ok := m.Get(f.Name); ok {
			table.AddRow(f.Name, formatValue(v))
		}
	}
	table.Render()
}

func renderCollection(w io.Writer, class *schema.Class, items *model.Collection[*model.Model]) {
	meta, _ := class.Metadata()
	attrs := meta.Attributes()

	headers := make([]string, len(attrs))
	for i, f := range attrs {
		headers[i] = f.Name
	}

	table := ui.NewTable(w, headers, &ui.TableOptions{NoColor: color.NoColor})
	for m := range items.All() {
		row := make([]string, len(attrs))
		for i, f := range attrs {
			if v, ok := m.Get(f.Name); ok {
				row[i] = formatValue(v)
			}
		}
		table.AddRow(row...)
	}
	table.Render()
	fmt.Fprintf(w, "\n%d %s\n", items.Len(), meta.StorageKey)
}

// formatValue renders a field for display. Relations show their identifiers.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case *model.Model:
		id, _ := t.Identifier()
		return fmt.Sprint(id)
	case *model.Collection[*model.Model]:
		ids := make([]string, 0, t.Len())
		for m := range t.All() {
			id, _ := m.Identifier()
			ids = append(ids, fmt.Sprint(id))
		}
		return "[" + strings.Join(ids, ", ") + "]"
	default:
		return fmt.Sprint(v)
	}
}
