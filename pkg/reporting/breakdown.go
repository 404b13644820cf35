package reporting

import (
	"context"

	"github.com/clusterdash/reporting-engine/pkg/schema"
)

// SegmentStats groups user counts by segment and reshapes them into the
// category breakdown. Unrecognized segment labels are listed with all-zero
// category counts and excluded from the grand totals.
func (s *service) SegmentStats(ctx context.Context, table string) (*SegmentStats, error) {
	columns, err := s.catalog.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	segmentCol, err := schema.ResolveColumn(schema.FieldSegment, columns, table, true)
	if err != nil {
		return nil, err
	}

	quotedSegment := schema.QuoteIdentifier(segmentCol)
	quotedTable := schema.QuoteIdentifier(table)

	var b queryBuilder
	b.write("SELECT ").write(quotedSegment).write(" AS segment, COUNT(*) AS user_count FROM ")
	b.write(quotedTable)
	b.write(" GROUP BY ").write(quotedSegment)
	b.write(" ORDER BY ").write(quotedSegment)
	query, args := b.query()

	rows, err := s.store.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("segment counts", err)
	}

	totalRow, err := s.store.QueryRow(ctx, "SELECT COUNT(*) AS total FROM "+quotedTable)
	if err != nil {
		return nil, storeErr("total user count", err)
	}

	keys := CategoryKeys()
	totals := make(map[string]int, len(keys))
	for _, key := range keys {
		totals[key] = 0
	}

	segments := make([]SegmentCounts, 0, len(rows))
	for _, row := range rows {
		label := asString(row["segment"])
		key := ToCategoryKey(label)

		counts := make(map[string]int, len(keys))
		for _, k := range keys {
			counts[k] = 0
		}
		if _, known := counts[key]; known {
			n := int(asInt64(row["user_count"]))
			counts[key] = n
			totals[key] += n
		}
		segments = append(segments, SegmentCounts{Segment: label, Counts: counts})
	}

	var totalUsers int
	if totalRow != nil {
		totalUsers = int(asInt64(totalRow["total"]))
	}

	return &SegmentStats{
		Categories: keys,
		Segments:   segments,
		Totals:     totals,
		TotalUsers: totalUsers,
	}, nil
}
