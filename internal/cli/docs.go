package cli

import (
	"fmt"
	"strings"

	"sitekeeper/internal/docs"

	"github.com/spf13/cobra"
)

func newDocsCmd(app *App) *cobra.Command {
	var raw bool
	var width int

	cmd := &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show built-in documentation topics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				topics := docs.Topics()
				hints := make([]string, 0, len(topics))
				for _, t := range topics {
					hints = append(hints, "sitekeeper docs "+t)
				}
				return writeOut(cmd, app, map[string]any{
					"data":   topics,
					"_hints": hints,
				})
			}
			body, ok := docs.Get(args[0])
			if !ok {
				return writeErr(cmd, errNotFound("topic", args[0]))
			}
			if !raw {
				body = renderMarkdown(body, width)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(body, "\n"))
			return err
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the Markdown source")
	cmd.Flags().IntVar(&width, "width", 80, "Wrap width")
	return cmd
}
