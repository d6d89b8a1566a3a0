package analysis

import (
	"fmt"
	"strings"

	"datanerd/internal/dataset"
)

// VideoResult is the projection of one selected video row.
type VideoResult struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Views     string `json:"views,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// SelectVideo picks one row by selector. Literal selectors "first",
// "last", "most viewed" and "least viewed" are matched first; anything
// else falls back to a case-insensitive substring match against the
// title column. A selector that matches nothing, or a matched row
// without a playable URL, yields an ErrorResult.
func SelectVideo(d *dataset.Dataset, selector string) (*VideoResult, *ErrorResult) {
	if d.Empty() {
		return nil, &ErrorResult{Message: "no videos loaded"}
	}

	titleCol := d.DetectTitleColumn()
	urlCol := d.DetectURLColumn()
	viewsCol := d.DetectViewsColumn()
	thumbCol := d.DetectThumbnailColumn()

	var row dataset.Row
	switch strings.ToLower(strings.TrimSpace(selector)) {
	case "first":
		row = d.Rows[0]
	case "last":
		row = d.Rows[len(d.Rows)-1]
	case "most viewed":
		row = extremeByViews(d, viewsCol, false)
	case "least viewed":
		row = extremeByViews(d, viewsCol, true)
	default:
		needle := strings.ToLower(strings.TrimSpace(selector))
		for _, r := range d.Rows {
			if strings.Contains(strings.ToLower(r[titleCol]), needle) {
				row = r
				break
			}
		}
	}

	if row == nil {
		return nil, &ErrorResult{Message: fmt.Sprintf("no video matches selector %q", selector)}
	}
	if urlCol == "" || strings.TrimSpace(row[urlCol]) == "" {
		return nil, &ErrorResult{Message: fmt.Sprintf("video %q has no playable URL", row[titleCol])}
	}

	result := &VideoResult{
		Title: row[titleCol],
		URL:   row[urlCol],
	}
	if viewsCol != "" {
		result.Views = row[viewsCol]
	}
	if thumbCol != "" {
		result.Thumbnail = row[thumbCol]
	}
	return result, nil
}

// extremeByViews returns the row with the highest (or lowest) parseable
// view count; rows with unparseable views are skipped.
func extremeByViews(d *dataset.Dataset, viewsCol string, least bool) dataset.Row {
	if viewsCol == "" {
		return nil
	}
	var best dataset.Row
	var bestV float64
	for _, r := range d.Rows {
		v, ok := dataset.ParseNumeric(r[viewsCol])
		if !ok {
			continue
		}
		if best == nil || (least && v < bestV) || (!least && v > bestV) {
			best = r
			bestV = v
		}
	}
	return best
}
