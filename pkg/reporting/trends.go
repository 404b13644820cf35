package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clusterdash/reporting-engine/pkg/apperrors"
	"github.com/clusterdash/reporting-engine/pkg/schema"
)

// SegmentTrends sums each selected week's column across rows grouped by
// segment, optionally restricted to a segment list.
func (s *service) SegmentTrends(ctx context.Context, table string, opts TrendOptions) (*SegmentTrend, error) {
	columns, err := s.catalog.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	segmentCol, err := schema.ResolveColumn(schema.FieldSegment, columns, table, true)
	if err != nil {
		return nil, err
	}

	weekColumns, err := s.catalog.Weeks(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(weekColumns) == 0 {
		return nil, fmt.Errorf("%w: no weekly columns configured for table %q", apperrors.ErrNotFound, table)
	}

	selected := selectTrendWeeks(weekColumns, opts.Start, opts.End, opts.Weeks)

	sumFields := make([]string, len(selected))
	for i, col := range selected {
		sumFields[i] = weekSumExpr(col)
	}

	quotedSegment := schema.QuoteIdentifier(segmentCol)

	var b queryBuilder
	b.write("SELECT ").write(quotedSegment).write(" AS segment, ")
	b.write(strings.Join(sumFields, ", "))
	b.write(" FROM ").write(schema.QuoteIdentifier(table))
	if len(opts.Segments) > 0 {
		b.write(" WHERE ").write(quotedSegment).write(" IN ").bindList(opts.Segments)
	}
	b.write(" GROUP BY ").write(quotedSegment)
	b.write(" ORDER BY ").write(quotedSegment)
	query, args := b.query()

	rows, err := s.store.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("segment trends", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no segments matched the provided filters", apperrors.ErrNotFound)
	}

	segments := make([]string, len(rows))
	for i, row := range rows {
		segments[i] = asString(row["segment"])
	}

	points := make([]SegmentTrendPoint, 0, len(selected))
	for _, col := range selected {
		totals := make(map[string]int64, len(rows))
		for _, row := range rows {
			totals[asString(row["segment"])] = asInt64(row[col.Raw])
		}
		points = append(points, SegmentTrendPoint{
			Label:     col.Label,
			StartDate: NewDate(col.StartDate),
			EndDate:   NewDate(col.EndDate),
			Totals:    totals,
		})
	}

	return &SegmentTrend{Segments: segments, Points: points}, nil
}

// selectTrendWeeks applies the trend window policy: filter the chronological
// catalog to [start, end], fall back to the most recent fallback entries when
// the filter matches nothing, and truncate an oversized match to its most
// recent fallback entries.
func selectTrendWeeks(weeks []schema.WeekColumn, start, end *time.Time, fallback int) []schema.WeekColumn {
	filtered := make([]schema.WeekColumn, 0, len(weeks))
	for _, col := range weeks {
		if start != nil && col.StartDate.Before(*start) {
			continue
		}
		if end != nil && col.EndDate.After(*end) {
			continue
		}
		filtered = append(filtered, col)
	}

	if len(filtered) == 0 {
		if len(weeks) > fallback {
			return weeks[len(weeks)-fallback:]
		}
		return weeks
	}
	if len(filtered) > fallback {
		return filtered[len(filtered)-fallback:]
	}
	return filtered
}
