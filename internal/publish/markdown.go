package publish

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"

	"sitekeeper/internal/content"

	"github.com/microcosm-cc/bluemonday"
)

var stripTags = bluemonday.StrictPolicy()

// KindMarkdown renders every stored entry of kind as one Markdown document.
func KindMarkdown(kind content.Kind, c content.Collection) string {
	var buf bytes.Buffer
	buf.WriteString("# " + heading(kind) + "\n\n")
	if len(c) == 0 {
		buf.WriteString("(nothing stored)\n")
		return buf.String()
	}
	if kind == content.Finances {
		buf.WriteString(SettingsMarkdown(content.SettingsFromRecord(c[0])))
		return buf.String()
	}
	for i, rec := range c {
		if i > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(strings.Replace(RecordMarkdown(kind, i, rec), "# ", "## ", 1))
	}
	return buf.String()
}

func heading(kind content.Kind) string {
	switch kind {
	case content.Projects:
		return "Projects"
	case content.Members:
		return "Members"
	case content.Finances:
		return "Finances"
	}
	return kind.String()
}

// RecordMarkdown renders one projects or members record.
func RecordMarkdown(kind content.Kind, index int, rec content.Record) string {
	if kind == content.Finances {
		return SettingsMarkdown(content.SettingsFromRecord(rec))
	}

	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	title := strings.TrimSpace(rec.Get(titleField(kind)))
	if title == "" {
		title = "(untitled " + kind.Singular() + ")"
	}
	writeLn("# " + title)
	writeLn("")
	writeLn("- Index: " + strconv.Itoa(index))

	switch kind {
	case content.Projects:
		if v := strings.TrimSpace(rec.Get("cost")); v != "" {
			writeLn("- Cost: " + v)
		}
	case content.Members:
		if v := strings.TrimSpace(rec.Get("role")); v != "" {
			writeLn("- Role: " + v)
		}
		if v := strings.TrimSpace(rec.Get("teams")); v != "" {
			writeLn("- Teams: " + v)
		}
	}
	if img := imageLine(rec.Get("image")); img != "" {
		writeLn("- Image: " + img)
	}

	body := ""
	switch kind {
	case content.Projects:
		body = plainText(rec.Get("description"))
	case content.Members:
		body = strings.TrimSpace(rec.Get("bio"))
	}
	if body != "" {
		writeLn("")
		writeLn(body)
	}
	return buf.String()
}

// SettingsMarkdown renders the finances settings.
func SettingsMarkdown(s content.Settings) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("- Budget: " + s.Budget.String())
	writeLn("- Total expenses: " + s.TotalExpenses.String())
	writeLn("- Remaining: " + s.Remaining.String())
	writeLn("- Covered: " + s.CoveredValue.String())
	writeLn("- Coverage remaining: " + s.CoverageRemaining.String())

	writeLn("")
	writeLn("## Breakdown")
	writeLn("")
	writeLn("| Slice | Value | Share |")
	writeLn("|-------|-------|-------|")
	for _, sl := range s.Slices() {
		label := strings.TrimSpace(sl.Label)
		if label == "" {
			label = "-"
		}
		writeLn(fmt.Sprintf("| %s | %s | %.1f%% |", label, sl.Value.String(), sl.Percent))
	}

	if len(s.OtherItems) > 0 {
		writeLn("")
		writeLn("## Other items")
		writeLn("")
		for _, it := range s.OtherItems {
			writeLn("- " + strings.TrimSpace(it.Label) + ": " + it.Value.String())
		}
	}

	if strings.TrimSpace(s.FTCTitle) != "" || strings.TrimSpace(s.FTCDetails) != "" {
		writeLn("")
		title := strings.TrimSpace(s.FTCTitle)
		if title == "" {
			title = "Sub-project"
		}
		writeLn("## " + title)
		writeLn("")
		writeLn(fmt.Sprintf("- Progress: %.0f%%", s.ProgressPercent()))
		if img := imageLine(s.FTCImageData); img != "" {
			writeLn("- Image: " + img)
		}
		if d := strings.TrimSpace(s.FTCDetails); d != "" {
			writeLn("")
			writeLn(d)
		}
	}

	if strings.TrimSpace(s.DonateContact) != "" || strings.TrimSpace(s.InstagramURL) != "" {
		writeLn("")
		writeLn("## Contact")
		writeLn("")
		if v := strings.TrimSpace(s.DonateContact); v != "" {
			writeLn("- Donate: " + v)
		}
		if v := strings.TrimSpace(s.InstagramURL); v != "" {
			writeLn("- Instagram: " + v)
		}
	}
	return buf.String()
}

func titleField(kind content.Kind) string {
	if kind == content.Members {
		return "name"
	}
	return "title"
}

// imageLine describes an image value without dumping embedded data.
func imageLine(v string) string {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return ""
	case content.IsImageData(v):
		return fmt.Sprintf("embedded (%d bytes)", len(v))
	default:
		return v
	}
}

// plainText strips markup from a stored HTML description.
func plainText(s string) string {
	s = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n").Replace(s)
	return strings.TrimSpace(html.UnescapeString(stripTags.Sanitize(s)))
}
