package markup

import (
	"html/template"
	"net/url"
	"regexp"
	"strings"
)

var dataImageRe = regexp.MustCompile(`^data:image/(png|jpeg|jpg|gif|webp|bmp);base64,[A-Za-z0-9+/=\s]*$`)

// ImageURL vets an image source for use in src attributes: raster data URLs,
// http(s) URLs and relative paths pass; anything else becomes "".
func ImageURL(src string) template.URL {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(src), "data:") {
		if dataImageRe.MatchString(src) {
			return template.URL(src)
		}
		return ""
	}
	u, err := url.Parse(src)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https":
		return template.URL(src)
	}
	return ""
}
