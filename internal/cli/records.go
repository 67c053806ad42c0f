package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"sitekeeper/internal/content"
	"sitekeeper/internal/publish"
	"sitekeeper/internal/reconcile"

	"github.com/spf13/cobra"
)

func newRecordsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"record"},
		Short:   "List and edit stored projects, members and finances",
	}

	cmd.AddCommand(newRecordsListCmd(app))
	cmd.AddCommand(newRecordsShowCmd(app))
	cmd.AddCommand(newRecordsAddCmd(app))
	cmd.AddCommand(newRecordsRemoveCmd(app))
	return cmd
}

func newRecordsListCmd(app *App) *cobra.Command {
	var withImages bool

	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List the stored records of a kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := content.ParseKind(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			var c content.Collection
			err = app.withReconciler(cmd.Context(), func(rec *reconcile.Reconciler) error {
				c = rec.Collection(cmd.Context(), kind)
				return nil
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			if !withImages {
				c = withoutImages(c)
			}

			hints := []string{}
			if len(c) > 0 {
				hints = append(hints, "sitekeeper records show "+kind.String()+" 0")
			}
			if kind.IsList() {
				hints = append(hints, "sitekeeper records add "+kind.String()+" --set "+kind.Fields()[0]+"=...")
			}
			if len(c) == 0 {
				hints = append(hints, "sitekeeper seed "+kind.String())
			}
			return writeOut(cmd, app, map[string]any{
				"data":   c,
				"_hints": hints,
			})
		},
	}

	cmd.Flags().BoolVar(&withImages, "with-images", false, "Include embedded image data")
	return cmd
}

func newRecordsShowCmd(app *App) *cobra.Command {
	var view string
	var width int
	var withImages bool

	cmd := &cobra.Command{
		Use:   "show <kind> <index>",
		Short: "Show one stored record",
		Example: strings.TrimSpace(`
sitekeeper records show members 0
sitekeeper records show projects 2 --view term
sitekeeper records show finances 0 --view md
`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, index, err := parsePosition(args[0], args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			var c content.Collection
			err = app.withReconciler(cmd.Context(), func(rec *reconcile.Reconciler) error {
				c = rec.Collection(cmd.Context(), kind)
				return nil
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			if index >= len(c) {
				return writeErr(cmd, errNotFound(kind.Singular(), strconv.Itoa(index)))
			}
			r := c[index]

			md := publish.RecordMarkdown(kind, index, r)
			switch strings.ToLower(strings.TrimSpace(view)) {
			case "md":
				_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(md, "\n"))
				return err
			case "term":
				_, err := fmt.Fprintln(cmd.OutOrStdout(), renderMarkdown(md, width))
				return err
			case "", "data":
			default:
				return writeErr(cmd, fmt.Errorf("unknown --view: %q (expected data|md|term)", view))
			}

			if !withImages {
				r = r.WithoutImageData()
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"kind":   kind,
					"index":  index,
					"record": r,
				},
				"_hints": []string{
					"sitekeeper records show " + kind.String() + " " + strconv.Itoa(index) + " --view term",
				},
			})
		},
	}

	cmd.Flags().StringVar(&view, "view", "data", "Output view (data|md|term)")
	cmd.Flags().IntVar(&width, "width", 80, "Wrap width for --view term")
	cmd.Flags().BoolVar(&withImages, "with-images", false, "Include embedded image data")
	return cmd
}

func newRecordsAddCmd(app *App) *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "add <kind>",
		Short: "Append a record to projects or members",
		Example: strings.TrimSpace(`
sitekeeper records add members --set name=Ana --set role=Lead
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := content.ParseKind(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			r, err := parseSets(kind, sets)
			if err != nil {
				return writeErr(cmd, err)
			}

			var index int
			err = app.withReconciler(cmd.Context(), func(rec *reconcile.Reconciler) error {
				var err error
				index, err = rec.Add(cmd.Context(), kind, r)
				return err
			})
			if errors.Is(err, reconcile.ErrNotList) {
				return writeErr(cmd, fmt.Errorf("%s is a single record; use `sitekeeper settings set`", kind))
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"kind":   kind,
					"index":  index,
					"record": r.WithoutImageData(),
				},
				"_hints": []string{
					"sitekeeper records list " + kind.String(),
				},
			})
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value (repeatable)")
	return cmd
}

func newRecordsRemoveCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove <kind> <index>",
		Aliases: []string{"rm"},
		Short:   "Remove a record; later records shift down",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, index, err := parsePosition(args[0], args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			var removed bool
			err = app.withReconciler(cmd.Context(), func(rec *reconcile.Reconciler) error {
				var err error
				removed, err = rec.RemoveAt(cmd.Context(), kind, index)
				return err
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			if !removed {
				return writeErr(cmd, errNotFound(kind.Singular(), strconv.Itoa(index)))
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"kind":    kind,
					"index":   index,
					"removed": removed,
				},
				"_hints": []string{
					"sitekeeper records list " + kind.String(),
				},
			})
		},
	}
	return cmd
}

func parsePosition(kindArg, indexArg string) (content.Kind, int, error) {
	kind, err := content.ParseKind(kindArg)
	if err != nil {
		return "", 0, err
	}
	index, err := strconv.Atoi(strings.TrimSpace(indexArg))
	if err != nil || index < 0 {
		return "", 0, fmt.Errorf("invalid index: %q", indexArg)
	}
	return kind, index, nil
}

// parseSets reads repeated field=value flags into a record. Field names
// must belong to kind.
func parseSets(kind content.Kind, sets []string) (content.Record, error) {
	r := content.Record{}
	for _, s := range sets {
		field, value, ok := strings.Cut(s, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid --set %q (expected field=value)", s)
		}
		if !knownField(kind, field) {
			return nil, errUnknownField(kind.Singular(), field)
		}
		r[field] = value
	}
	return r, nil
}

func knownField(kind content.Kind, field string) bool {
	for _, f := range kind.Fields() {
		if f == field {
			return true
		}
	}
	if kind == content.Finances && strings.HasPrefix(field, "otherItems.") {
		parts := strings.Split(field, ".")
		if len(parts) != 3 {
			return false
		}
		if _, err := strconv.Atoi(parts[1]); err != nil {
			return false
		}
		return parts[2] == "label" || parts[2] == "value"
	}
	return false
}

func withoutImages(c content.Collection) content.Collection {
	out := make(content.Collection, len(c))
	for i, r := range c {
		out[i] = r.WithoutImageData()
	}
	return out
}
