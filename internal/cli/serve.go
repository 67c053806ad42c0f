package cli

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"sitekeeper/internal/web"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string
	var open bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the site with its content editor",
		Long: strings.TrimSpace(`
Serve the site directory over HTTP.

Public pages are rendered from stored content on every request; the editor
lives at /edit. Page files are re-read when they change on disk.
`),
		Example: strings.TrimSpace(`
# Serve ./site on localhost
sitekeeper serve --site ./site

# Bind all interfaces and keep content in memory
sitekeeper --db :memory: serve --addr :3335
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.conf()
			log := app.logger()

			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				listenAddr = strings.TrimSpace(cfg.Addr)
			}
			if listenAddr == "" {
				return writeErr(cmd, errors.New("serve: missing --addr"))
			}

			s, err := app.openSite()
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()
			if cfg.Watch {
				if err := s.Watch(); err != nil {
					// Serving still works; pages just stay cached.
					log.Warn("watching site dir", zap.Error(err))
				}
			}

			st, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			srv, err := web.NewServer(web.ServerConfig{
				Addr:      listenAddr,
				Site:      s,
				Store:     st,
				Logger:    log,
				NoticeTTL: cfg.NoticeTTL,
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}

			actualAddr := ln.Addr().String()
			url := "http://" + actualAddr + "/"

			opened := false
			openErr := ""
			if open {
				if err := openPath(url + "edit"); err != nil {
					openErr = err.Error()
				} else {
					opened = true
				}
			}

			hints := []string{}
			if !opened {
				hints = append(hints, "open "+url+"edit")
			}

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      actualAddr,
					"url":       url,
					"site":      s.Dir(),
					"db":        cfg.DB,
					"watch":     cfg.Watch,
					"opened":    opened,
					"openError": openErr,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
				"_hints": hints,
			})

			fmt.Fprintf(cmd.ErrOrStderr(), "sitekeeper running at %s (site=%s)\n", url, s.Dir())
			if openErr != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Failed to open browser: %s\n", openErr)
			}
			log.Info("serving", zap.String("addr", actualAddr), zap.String("site", s.Dir()))

			return http.Serve(ln, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Bind address (host:port or :port; default from config)")
	cmd.Flags().BoolVar(&open, "open", false, "Open the editor in your default browser")
	return cmd
}
