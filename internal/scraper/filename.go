package scraper

import (
	"fmt"
	"net/url"
	"strings"
)

// Extension and fallback for derived document names.
const (
	documentExtension = ".md"
	fallbackBaseName  = "index"
)

// FileNameForURL derives an archive entry name from the URL's final non-empty
// path segment, or a fallback name when the path has no segments.
func FileNameForURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	base := fallbackBaseName
	segments := strings.Split(u.Path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			base = segments[i]
			break
		}
	}
	base = strings.TrimSuffix(base, documentExtension)
	return base + documentExtension, nil
}

// disambiguate suffixes repeated file names with -2, -3, … so that two URLs
// sharing a final path segment cannot silently overwrite each other in the
// archive. First occurrences keep their plain name.
func disambiguate(assigned map[string]int, name string) string {
	assigned[name]++
	if assigned[name] == 1 {
		return name
	}
	base := strings.TrimSuffix(name, documentExtension)
	next := fmt.Sprintf("%s-%d%s", base, assigned[name], documentExtension)
	assigned[next]++
	return next
}
