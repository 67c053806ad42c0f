// Package publish exports the site with stored content baked into its
// public pages, plus derived Markdown summaries of that content.
package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"sitekeeper/internal/content"
	"sitekeeper/internal/render"
	"sitekeeper/internal/site"
)

type WriteOptions struct {
	Overwrite bool
	// Markdown also writes <kind>.md summaries next to the pages.
	Markdown bool
	// Kinds limits the export; empty means every kind.
	Kinds []content.Kind
}

type WriteResult struct {
	Dir     string   `json:"dir"`
	Written []string `json:"written"`
	Missing []string `json:"missing,omitempty"`
}

// WriteSite renders each kind's public page from s into toDir. Pages the
// site does not have are reported in Missing and skipped.
func WriteSite(ctx context.Context, r *render.Renderer, s *site.Site, toDir string, opt WriteOptions) (WriteResult, error) {
	if r == nil {
		return WriteResult{}, errors.New("missing renderer")
	}
	if s == nil {
		return WriteResult{}, errors.New("missing site")
	}
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)
	if err := os.MkdirAll(toDir, 0o755); err != nil {
		return WriteResult{}, err
	}

	kinds := opt.Kinds
	if len(kinds) == 0 {
		kinds = content.Kinds()
	}

	res := WriteResult{Dir: toDir, Written: []string{}}
	for _, kind := range kinds {
		name := s.PageFor(kind)
		src, err := s.Read(name)
		if errors.Is(err, site.ErrNotFound) {
			res.Missing = append(res.Missing, name)
			continue
		}
		if err != nil {
			return WriteResult{}, err
		}
		out, err := r.Page(ctx, kind, src)
		if err != nil {
			return WriteResult{}, err
		}
		p := filepath.Join(toDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return WriteResult{}, err
		}
		if err := writeFile(p, out, opt.Overwrite); err != nil {
			return WriteResult{}, err
		}
		res.Written = append(res.Written, p)
	}

	if !opt.Markdown {
		return res, nil
	}
	// Pages are rendered first so the summaries see any seeded content.
	for _, kind := range kinds {
		md := KindMarkdown(kind, r.Reconciler().Collection(ctx, kind))
		p := filepath.Join(toDir, kind.String()+".md")
		if err := writeFile(p, []byte(md), opt.Overwrite); err != nil {
			return WriteResult{}, err
		}
		res.Written = append(res.Written, p)
	}
	return res, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
