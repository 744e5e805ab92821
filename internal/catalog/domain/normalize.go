package domain

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
)

// Noise tokens the upstream platforms attach to titles. These never
// distinguish one entity from another, so they are stripped before
// comparison.
var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// Episode numbering tokens: "#12", "ep. 3", "episode 45", "vol.4",
	// "第12回", "第3話", "part 2".
	numberingRe = regexp.MustCompile(`(?i)(#\d+|\bep\.?\s*\d+\b|\bepisode\s*\d+\b|\bvol\.?\s*\d+\b|\bpart\s*\d+\b|第\d+[回話])`)

	// Platform boilerplate: short-form markers, bracketed channel tags,
	// trailing "- youtube".
	boilerplateRe = regexp.MustCompile(`(?i)(#shorts?\b|【[^】]*】|\s*-\s*youtube\s*$)`)

	slugInvalidRe = regexp.MustCompile(`[^a-z0-9]+`)
	hyphenRunRe   = regexp.MustCompile(`-{2,}`)
)

// shortFormMarkers flag an episode title as platform short-form noise
// rather than real content.
var shortFormMarkers = []string{"#shorts", "#short"}

// Normalize produces the canonical comparison form of a title or name:
// lowercase, trimmed, internal whitespace collapsed, numbering tokens and
// platform boilerplate stripped.
func Normalize(s string) string {
	out := strings.ToLower(s)
	out = boilerplateRe.ReplaceAllString(out, " ")
	out = numberingRe.ReplaceAllString(out, " ")
	out = whitespaceRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// IsShortForm reports whether a raw title carries a platform short-form
// marker. Short-form entries are noise to purge, not duplicates to merge.
func IsShortForm(title string) bool {
	lower := strings.ToLower(title)
	for _, marker := range shortFormMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Slugify derives a URL-safe slug from a name. Names without any ASCII
// alphanumerics (common for Japanese venue names) fall back to a stable
// hash form so the slug is still unique and printable.
func Slugify(name string) string {
	normalized := Normalize(name)
	slug := slugInvalidRe.ReplaceAllString(normalized, "-")
	slug = hyphenRunRe.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		h := fnv.New32a()
		h.Write([]byte(normalized))
		return fmt.Sprintf("n-%08x", h.Sum32())
	}
	return slug
}

// DisambiguateSlug appends an ordinal suffix for a colliding slug.
// Collisions are never silently dropped; the caller surfaces the
// collision and persists under the suffixed slug.
func DisambiguateSlug(slug string, taken func(string) bool) string {
	candidate := slug
	for i := 2; taken(candidate); i++ {
		candidate = fmt.Sprintf("%s-%d", slug, i)
	}
	return candidate
}
