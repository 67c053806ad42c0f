package cli

import (
	"bytes"
	"strings"

	"sitekeeper/internal/content"
	"sitekeeper/internal/dom"
	"sitekeeper/internal/reconcile"

	"github.com/spf13/cobra"
)

func newSeedCmd(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "seed <kind>...",
		Short: "Import records from a public page's markup when none are stored",
		Long: strings.TrimSpace(`
Seed stored content from the site's public page markup.

Seeding only happens when nothing is stored for the kind. A kind that was
emptied on purpose stays empty unless --force clears it first.
`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := make([]content.Kind, 0, len(args))
			for _, a := range args {
				k, err := content.ParseKind(a)
				if err != nil {
					return writeErr(cmd, err)
				}
				kinds = append(kinds, k)
			}

			s, err := app.openSite()
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			out := make([]map[string]any, 0, len(kinds))
			err = app.withReconciler(cmd.Context(), func(rec *reconcile.Reconciler) error {
				ctx := cmd.Context()
				for _, kind := range kinds {
					page := s.PageFor(kind)
					src, err := s.Read(page)
					if err != nil {
						return err
					}
					doc, err := dom.Parse(bytes.NewReader(src))
					if err != nil {
						return err
					}
					if force {
						if err := rec.Accessor().Clear(ctx, kind); err != nil {
							return err
						}
					}
					c, err := rec.SeedIfEmpty(ctx, kind, doc, reconcile.PublicPage)
					if err != nil {
						return err
					}
					out = append(out, map[string]any{
						"kind":    kind,
						"page":    page,
						"records": len(c),
					})
				}
				return nil
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			hints := make([]string, 0, len(kinds))
			for _, k := range kinds {
				hints = append(hints, "sitekeeper records list "+k.String())
			}
			return writeOut(cmd, app, map[string]any{
				"data":   out,
				"_hints": hints,
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Clear stored content first")
	return cmd
}
