package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var communitySlugRegex = regexp.MustCompile(`^[a-z0-9-]{3,24}$`)

var reservedCommunitySlugs = map[string]struct{}{
	"admin":         {},
	"api":           {},
	"auth":          {},
	"chat":          {},
	"settings":      {},
	"communities":   {},
	"c":             {},
	"users":         {},
	"posts":         {},
	"comments":      {},
	"conversations": {},
	"notifications": {},
	"donations":     {},
	"media":         {},
	"ws":            {},
	"swagger":       {},
	"metrics":       {},
	"login":         {},
	"signup":        {},
}

// ValidateCommunitySlug validates community slug format and reserved names.
func ValidateCommunitySlug(slug string) error {
	if !communitySlugRegex.MatchString(slug) {
		return fmt.Errorf("slug must be 3-24 characters and contain only lowercase letters, numbers, and hyphens")
	}

	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return fmt.Errorf("slug cannot start or end with a hyphen")
	}

	if _, exists := reservedCommunitySlugs[slug]; exists {
		return fmt.Errorf("slug is reserved")
	}

	return nil
}

// ValidateCommunityName checks the display name length in runes.
func ValidateCommunityName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < 3 || n > 48 {
		return fmt.Errorf("name must be 3-48 characters")
	}
	return nil
}
