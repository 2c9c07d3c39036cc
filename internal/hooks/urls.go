package hooks

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/joestump/hookline/internal/apperr"
)

// ParseURLs splits text into one URL per line. Lines are trimmed and blank
// lines skipped; order and duplicates are kept.
func ParseURLs(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// ValidateURL accepts only absolute http and https URLs with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperr.Input("parse url", fmt.Sprintf("%q is not an absolute http(s) URL", raw), nil)
	}
	return nil
}
