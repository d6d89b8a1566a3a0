package dataset

import (
	"math"
	"strconv"

	"datanerd/internal/logging"
)

// Enrich appends the derived engagement column (favorites / views) when a
// favorites-like and a views-like column are both present and no
// engagement column exists yet. It returns a new Dataset; the receiver is
// never mutated. When either source column is missing, or engagement is
// already present, the receiver is returned unchanged - a no-op
// enrichment is valid, not an error. Enrich is therefore idempotent.
//
// Per-row rule: engagement = favorites/views rounded to 6 decimal places,
// defined only when both cells parse as numeric and views > 0; other rows
// get an empty cell.
func (d *Dataset) Enrich() *Dataset {
	if d.HasColumn(EngagementColumn) {
		return d
	}

	favCol := d.DetectFavoritesColumn()
	viewCol := d.DetectViewsColumn()
	if favCol == "" || viewCol == "" {
		logging.DatasetDebug("Enrich: source columns not found (favorites=%q views=%q), skipping", favCol, viewCol)
		return d
	}

	headers := make([]string, 0, len(d.Headers)+1)
	headers = append(headers, d.Headers...)
	headers = append(headers, EngagementColumn)

	rows := make([]Row, 0, len(d.Rows))
	computed := 0
	for _, row := range d.Rows {
		next := make(Row, len(row)+1)
		for k, v := range row {
			next[k] = v
		}

		next[EngagementColumn] = ""
		fav, favOK := ParseNumeric(row[favCol])
		views, viewsOK := ParseNumeric(row[viewCol])
		if favOK && viewsOK && views > 0 {
			ratio := math.Round(fav/views*1e6) / 1e6
			next[EngagementColumn] = strconv.FormatFloat(ratio, 'f', -1, 64)
			computed++
		}
		rows = append(rows, next)
	}

	logging.Dataset("Enriched dataset: engagement computed for %d/%d rows (%s / %s)",
		computed, len(rows), favCol, viewCol)
	return &Dataset{Headers: headers, Rows: rows}
}
