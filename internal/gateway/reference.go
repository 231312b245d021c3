// Package gateway resolves event references into canonical market data.
// It cascades over Polymarket sources: the Gamma event group endpoint,
// the Gamma market query, and a last-resort page scrape.
package gateway

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/leeaandrob/fusecast/internal/models"
)

// ErrBadReference signals input that cannot be turned into a market lookup.
var ErrBadReference = errors.New("unparseable event reference")

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ParseReference classifies raw user input as a URL, a slug, or free text.
func ParseReference(raw string) (models.EventReference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.EventReference{}, ErrBadReference
	}

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		slug, err := slugFromURL(raw)
		if err != nil {
			return models.EventReference{}, err
		}
		return models.EventReference{Kind: models.RefMarketURL, Value: slug}, nil
	}

	if slugPattern.MatchString(raw) && strings.Contains(raw, "-") {
		return models.EventReference{Kind: models.RefSlug, Value: raw}, nil
	}

	return models.EventReference{Kind: models.RefFreeText, Value: raw}, nil
}

// slugFromURL extracts the market or event slug from a Polymarket URL.
// Accepts /event/<slug>, /market/<slug>, and trailing query strings.
func slugFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrBadReference
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if (p == "event" || p == "market") && i+1 < len(parts) {
			slug := parts[i+1]
			if slugPattern.MatchString(slug) {
				return slug, nil
			}
		}
	}

	// Some shared links carry the slug as the only path segment.
	if len(parts) == 1 && slugPattern.MatchString(parts[0]) && parts[0] != "" {
		return parts[0], nil
	}

	return "", ErrBadReference
}

// Slugify turns a free-text question into a slug candidate for the direct
// lookup attempted before the text search.
func Slugify(text string) string {
	text = strings.ToLower(text)
	var b strings.Builder
	lastDash := true
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
