package cli

import (
	"errors"
	"strings"

	"sitekeeper/internal/content"
	"sitekeeper/internal/publish"
	"sitekeeper/internal/reconcile"
	"sitekeeper/internal/render"

	"github.com/spf13/cobra"
)

func newRenderCmd(app *App) *cobra.Command {
	var toDir string
	var overwrite bool
	var markdown bool

	cmd := &cobra.Command{
		Use:   "render [kind...]",
		Short: "Write the public pages with stored content baked in",
		Example: strings.TrimSpace(`
# Render every page into ./dist
sitekeeper render --to ./dist

# Only the members page, plus a Markdown summary
sitekeeper render members --to ./dist --markdown
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			toDir = strings.TrimSpace(toDir)
			if toDir == "" {
				return writeErr(cmd, errors.New("missing --to"))
			}
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

			var res publish.WriteResult
			err = app.withReconciler(cmd.Context(), func(rec *reconcile.Reconciler) error {
				var err error
				res, err = publish.WriteSite(cmd.Context(), render.New(rec, app.logger()), s, toDir, publish.WriteOptions{
					Overwrite: overwrite,
					Markdown:  markdown,
					Kinds:     kinds,
				})
				return err
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			hints := []string{"ls " + res.Dir}
			for _, m := range res.Missing {
				hints = append(hints, "add "+m+" to the site dir to render it")
			}
			return writeOut(cmd, app, map[string]any{
				"data":   res,
				"_hints": hints,
			})
		},
	}

	cmd.Flags().StringVar(&toDir, "to", "", "Output directory")
	_ = cmd.MarkFlagRequired("to")
	cmd.Flags().BoolVar(&overwrite, "overwrite", true, "Overwrite existing files")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Also write <kind>.md summaries")
	return cmd
}
