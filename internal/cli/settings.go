package cli

import (
	"fmt"
	"strconv"
	"strings"

	"sitekeeper/internal/content"
	"sitekeeper/internal/reconcile"

	"github.com/spf13/cobra"
)

func newSettingsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and edit the finances page settings",
	}

	cmd.AddCommand(newSettingsGetCmd(app))
	cmd.AddCommand(newSettingsSetCmd(app))
	cmd.AddCommand(newSettingsItemsCmd(app))
	return cmd
}

func newSettingsGetCmd(app *App) *cobra.Command {
	var withImages bool

	cmd := &cobra.Command{
		Use:   "get [field]",
		Short: "Print the finances settings, or one field",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var s content.Settings
			err := app.withReconciler(cmd.Context(), func(rec *reconcile.Reconciler) error {
				s = rec.Settings(cmd.Context())
				return nil
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			if len(args) == 1 {
				field := strings.TrimSpace(args[0])
				if !knownField(content.Finances, field) {
					return writeErr(cmd, errUnknownField(content.Finances.Singular(), field))
				}
				return writeOut(cmd, app, map[string]any{
					"data": map[string]any{
						"field": field,
						"value": s.Record().Get(field),
					},
				})
			}

			if !withImages && s.FTCImageData != "" {
				s.FTCImageData = ""
			}
			if s.OtherItems == nil {
				s.OtherItems = []content.OtherItem{}
			}
			return writeOut(cmd, app, map[string]any{
				"data": s,
				"_hints": []string{
					"sitekeeper settings set budget=...",
					"sitekeeper records show finances 0 --view term",
				},
			})
		},
	}

	cmd.Flags().BoolVar(&withImages, "with-images", false, "Include embedded image data")
	return cmd
}

func newSettingsSetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <field=value>...",
		Short: "Update finances settings fields",
		Example: strings.TrimSpace(`
sitekeeper settings set budget=5000 totalExpenses=1200
sitekeeper settings set ftcTitle="FTC Team" ftcProgress=40
`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sets, err := parseSets(content.Finances, args)
			if err != nil {
				return writeErr(cmd, err)
			}

			var s content.Settings
			err = app.withReconciler(cmd.Context(), func(rec *reconcile.Reconciler) error {
				r := rec.Settings(cmd.Context()).Record()
				for k, v := range sets {
					r[k] = v
				}
				if _, err := rec.SaveAt(cmd.Context(), content.Finances, 0, r); err != nil {
					return err
				}
				s = rec.Settings(cmd.Context())
				return nil
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			fields := make([]string, 0, len(sets))
			for _, f := range content.Finances.Fields() {
				if _, ok := sets[f]; ok {
					fields = append(fields, f)
				}
			}
			s.FTCImageData = ""
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"updated":  len(sets),
					"fields":   fields,
					"settings": s,
				},
			})
		},
	}
	return cmd
}

func newSettingsItemsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Manage the additional finance items",
	}

	add := &cobra.Command{
		Use:   "add <label> <value>",
		Short: "Append an additional finance item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			item := content.OtherItem{Label: strings.TrimSpace(args[0]), Value: content.ParseAmount(args[1])}
			var index int
			err := app.withReconciler(cmd.Context(), func(rec *reconcile.Reconciler) error {
				var err error
				index, err = rec.AddItem(cmd.Context(), item)
				return err
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"index": index,
					"item":  item,
				},
			})
		},
	}

	remove := &cobra.Command{
		Use:     "remove <index>",
		Aliases: []string{"rm"},
		Short:   "Remove an additional finance item",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil || index < 0 {
				return writeErr(cmd, fmt.Errorf("invalid index: %q", args[0]))
			}
			var removed bool
			err = app.withReconciler(cmd.Context(), func(rec *reconcile.Reconciler) error {
				var err error
				removed, err = rec.RemoveItemAt(cmd.Context(), index)
				return err
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			if !removed {
				return writeErr(cmd, errNotFound("finance item", args[0]))
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"index":   index,
					"removed": true,
				},
			})
		},
	}

	cmd.AddCommand(add)
	cmd.AddCommand(remove)
	return cmd
}
