// internal/site/slug.go
//
// Slug helpers.
//
// • CleanSlug(s) ─ strips surrounding whitespace and slashes, so "/adopt/"
//   and "adopt" name the same page.
// • SameSlug(a, b) ─ compares two slugs after cleaning, ignoring ASCII case.
// • PagePath(slug) ─ the visitor path of a page, with exactly one leading
//   slash.  The home page lives at "/".
//
// Notes
// -----
// • Slugs are unique within an organization; the backend enforces it.
// • The dashboard sends either form, so callers never compare raw slugs.

package site

import "strings"

// HomeSlug is the slug served at "/".
const HomeSlug = "home"

// CleanSlug trims whitespace and slashes.
func CleanSlug(s string) string {
	return strings.Trim(strings.TrimSpace(s), "/")
}

// SameSlug reports whether a and b name the same page.
func SameSlug(a, b string) bool {
	return strings.EqualFold(CleanSlug(a), CleanSlug(b))
}

// PagePath returns the visitor path of slug.
func PagePath(slug string) string {
	slug = CleanSlug(slug)
	if slug == "" || strings.EqualFold(slug, HomeSlug) {
		return "/"
	}
	return "/" + slug
}
