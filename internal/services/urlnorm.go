package services

import "strings"

// NormalizeURL maps the many spellings of a site address onto one cache key:
// lowercased, "www." stripped, https-prefixed, no trailing slash. Both
// "example.com" and "WWW.Example.com/" normalize to "https://example.com".
func NormalizeURL(raw string) string {
	processed := strings.ToLower(strings.TrimSpace(raw))
	if processed == "" {
		return ""
	}
	processed = strings.TrimPrefix(processed, "https://")
	processed = strings.TrimPrefix(processed, "http://")
	processed = strings.TrimPrefix(processed, "www.")
	processed = strings.TrimSuffix(processed, "/")
	if processed == "" {
		return ""
	}
	return "https://" + processed
}
