package cli

import (
	"errors"

	"sitekeeper/internal/content"
	"sitekeeper/internal/reconcile"

	"github.com/spf13/cobra"
)

func newClearCmd(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear [kind...]",
		Short: "Delete stored content so pages fall back to their markup",
		RunE: func(cmd *cobra.Command, args []string) error {
			var kinds []content.Kind
			switch {
			case all && len(args) > 0:
				return writeErr(cmd, errors.New("pass kinds or --all, not both"))
			case all:
				kinds = content.Kinds()
			case len(args) == 0:
				return writeErr(cmd, errors.New("missing kind (or --all)"))
			default:
				for _, a := range args {
					k, err := content.ParseKind(a)
					if err != nil {
						return writeErr(cmd, err)
					}
					kinds = append(kinds, k)
				}
			}

			err := app.withReconciler(cmd.Context(), func(rec *reconcile.Reconciler) error {
				for _, k := range kinds {
					if err := rec.Accessor().Clear(cmd.Context(), k); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"cleared": kinds,
				},
				"_hints": []string{"sitekeeper seed " + kinds[0].String()},
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Clear every kind")
	return cmd
}
