// Package dataset implements the in-memory tabular data model: loading
// delimited text into rows, fuzzy column resolution, derived-field
// enrichment, and column profiling for model prompts.
package dataset

import (
	"strconv"
	"strings"
	"time"
)

// EngagementColumn is the derived column appended by Enrich.
const EngagementColumn = "engagement"

// Row maps a column name to its raw string value. Every row in a Dataset
// carries exactly the keys in the Dataset's header list.
type Row map[string]string

// Dataset is an ordered collection of rows sharing one header set.
// It is replaced wholesale on reload and never partially mutated;
// Enrich returns a new Dataset rather than modifying in place.
type Dataset struct {
	Headers []string
	Rows    []Row
}

// Empty reports whether the dataset has no rows.
func (d *Dataset) Empty() bool {
	return d == nil || len(d.Rows) == 0
}

// HasColumn reports whether the exact header exists.
func (d *Dataset) HasColumn(name string) bool {
	for _, h := range d.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// ResolveColumn maps a caller-supplied column name to an actual header.
// Lookup is two-phase: exact match first, then a normalized comparison
// that lowercases and strips spaces, underscores and hyphens from both
// sides. When nothing matches the candidate is returned unchanged so
// downstream aggregation reports the missing column. Normalized
// collisions resolve to the first header in header order.
func (d *Dataset) ResolveColumn(name string) string {
	if d.HasColumn(name) {
		return name
	}
	want := normalizeColumn(name)
	for _, h := range d.Headers {
		if normalizeColumn(h) == want {
			return h
		}
	}
	return name
}

func normalizeColumn(s string) string {
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return r
	}, s)
}

// Column alias sets for detection. Matching is against the normalized
// header form, so "View_Count", "view count" and "viewCount" all hit.
var (
	viewsAliases     = []string{"views", "viewcount", "viewscount"}
	favoritesAliases = []string{"favorites", "favourites", "favoritecount", "favouritecount", "likes", "likecount"}
	titleAliases     = []string{"title", "name", "videotitle"}
	dateAliases      = []string{"publishedat", "publishdate", "published", "date", "uploaddate", "createdat", "timestamp"}
	urlAliases       = []string{"videourl", "url", "link"}
	thumbnailAliases = []string{"thumbnail", "thumbnailurl"}
)

func (d *Dataset) detect(aliases []string) string {
	for _, h := range d.Headers {
		n := normalizeColumn(h)
		for _, a := range aliases {
			if n == a {
				return h
			}
		}
	}
	return ""
}

// DetectViewsColumn returns the header holding view counts, or "".
func (d *Dataset) DetectViewsColumn() string { return d.detect(viewsAliases) }

// DetectFavoritesColumn returns the header holding favorites/likes, or "".
func (d *Dataset) DetectFavoritesColumn() string { return d.detect(favoritesAliases) }

// DetectTitleColumn returns the free-text title header, or "".
func (d *Dataset) DetectTitleColumn() string { return d.detect(titleAliases) }

// DetectDateColumn returns the date-like header, or "".
func (d *Dataset) DetectDateColumn() string { return d.detect(dateAliases) }

// DetectURLColumn returns the playable-URL header, or "".
func (d *Dataset) DetectURLColumn() string { return d.detect(urlAliases) }

// DetectThumbnailColumn returns the thumbnail header, or "".
func (d *Dataset) DetectThumbnailColumn() string { return d.detect(thumbnailAliases) }

// ParseNumeric parses a cell as a float. Unparseable and empty cells
// report ok=false; callers drop them silently rather than erroring,
// because partial datasets are expected.
func ParseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// dateLayouts are tried in order when parsing date-like cells.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// ParseDate parses a date-like cell. ok=false means the cell did not
// match any known layout; callers fall back to lexicographic ordering.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
