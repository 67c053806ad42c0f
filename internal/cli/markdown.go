package cli

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
)

var (
	mdRendererMu sync.Mutex
	// Keyed by style + wrap width. WithAutoStyle is avoided: it queries the
	// terminal and can block.
	mdRenderers = map[string]*glamour.TermRenderer{}
)

// renderMarkdown renders md for the terminal. On any renderer error the
// source is returned unchanged.
func renderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}

	style := markdownStyle()
	key := style + ":" + strconv.Itoa(width)

	mdRendererMu.Lock()
	r := mdRenderers[key]
	mdRendererMu.Unlock()

	if r == nil {
		rr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
			glamour.WithEmoji(),
		)
		if err != nil {
			return md
		}
		mdRendererMu.Lock()
		if existing := mdRenderers[key]; existing != nil {
			r = existing
		} else {
			mdRenderers[key] = rr
			r = rr
		}
		mdRendererMu.Unlock()
	}

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func markdownStyle() string {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("SITEKEEPER_MD_STYLE"))) {
	case styles.LightStyle:
		return styles.LightStyle
	case styles.DarkStyle:
		return styles.DarkStyle
	case styles.NoTTYStyle:
		return styles.NoTTYStyle
	case styles.AsciiStyle:
		return styles.AsciiStyle
	}
	// COLORFGBG is often "fg;bg" (e.g. "15;0" => dark bg). 0-6 are dark
	// palette entries, 7-15 light.
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil && bg >= 0 {
			if bg >= 7 {
				return styles.LightStyle
			}
			return styles.DarkStyle
		}
	}
	return styles.DarkStyle
}
