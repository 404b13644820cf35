package reporting

import (
	"context"
	"fmt"
	"strings"

	"github.com/clusterdash/reporting-engine/pkg/apperrors"
	"github.com/clusterdash/reporting-engine/pkg/schema"
)

// recentActiveWindow is how many of the most recent weeks feed the
// recent-activity share. Fewer are used when the table has fewer.
const recentActiveWindow = 4

// SegmentInsights computes a single aggregate metrics row for one segment
// plus its recent-activity timeline. The metric columns are optional: absent
// ones are replaced by a literal zero expression so the result shape is
// uniform regardless of table completeness.
func (s *service) SegmentInsights(ctx context.Context, table, segment string, weeks int) (*SegmentInsight, error) {
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

	recentWeeks := weekColumns
	if len(recentWeeks) > weeks {
		recentWeeks = recentWeeks[len(recentWeeks)-weeks:]
	}

	cashCol, _ := schema.ResolveColumn(schema.FieldCashBalance, columns, table, false)
	contestsCol, _ := schema.ResolveColumn(schema.FieldTotalContests, columns, table, false)
	iplCol, _ := schema.ResolveColumn(schema.FieldIPLContests, columns, table, false)
	highestCol, _ := schema.ResolveColumn(schema.FieldHighestIPL, columns, table, false)
	registeredCol, _ := schema.ResolveColumn(schema.FieldRegisteredDate, columns, table, false)

	quotedTable := schema.QuoteIdentifier(table)
	quotedSegment := schema.QuoteIdentifier(segmentCol)

	metricsFields := []string{
		"COUNT(*) AS user_count",
		avgDecimalExpr(cashCol, "avg_cash_balance"),
		avgDecimalExpr(contestsCol, "avg_total_contests"),
		avgDecimalExpr(iplCol, "avg_ipl_contests"),
		avgDecimalExpr(highestCol, "avg_highest_ipl_score"),
		avgDaysSinceExpr(registeredCol, "avg_days_since_registration"),
	}

	var mb queryBuilder
	mb.write("SELECT ").write(strings.Join(metricsFields, ", "))
	mb.write(" FROM ").write(quotedTable)
	mb.write(" WHERE ").write(quotedSegment).write(" = ").bind(segment)
	metricsQuery, metricsArgs := mb.query()

	metricsRow, err := s.store.QueryRow(ctx, metricsQuery, metricsArgs...)
	if err != nil {
		return nil, storeErr("segment metrics", err)
	}

	var userCount int64
	if metricsRow != nil {
		userCount = asInt64(metricsRow["user_count"])
	}
	if userCount == 0 {
		return nil, fmt.Errorf("%w: segment %q has no users", apperrors.ErrNotFound, segment)
	}

	// Share of the segment with any activity across the last few weeks.
	activeWeeks := recentWeeks
	if len(activeWeeks) > recentActiveWindow {
		activeWeeks = activeWeeks[len(activeWeeks)-recentActiveWindow:]
	}
	activeTerms := make([]string, len(activeWeeks))
	for i, col := range activeWeeks {
		activeTerms[i] = fmt.Sprintf("COALESCE(CAST(%s AS SIGNED), 0)", schema.QuoteIdentifier(col.Raw))
	}

	var ab queryBuilder
	ab.write("SELECT COUNT(*) AS active_users FROM ").write(quotedTable)
	ab.write(" WHERE ").write(quotedSegment).write(" = ").bind(segment)
	ab.write(" AND (").write(strings.Join(activeTerms, " + ")).write(") > 0")
	activeQuery, activeArgs := ab.query()

	activeRow, err := s.store.QueryRow(ctx, activeQuery, activeArgs...)
	if err != nil {
		return nil, storeErr("recent active count", err)
	}
	var activeUsers int64
	if activeRow != nil {
		activeUsers = asInt64(activeRow["active_users"])
	}

	// Per-week activity sums for the timeline.
	sumFields := make([]string, len(recentWeeks))
	for i, col := range recentWeeks {
		sumFields[i] = weekSumExpr(col)
	}

	var tb queryBuilder
	tb.write("SELECT ").write(strings.Join(sumFields, ", "))
	tb.write(" FROM ").write(quotedTable)
	tb.write(" WHERE ").write(quotedSegment).write(" = ").bind(segment)
	timelineQuery, timelineArgs := tb.query()

	timelineRow, err := s.store.QueryRow(ctx, timelineQuery, timelineArgs...)
	if err != nil {
		return nil, storeErr("recent activity sums", err)
	}

	recentActivity := make([]TimelinePoint, 0, len(recentWeeks))
	for _, col := range recentWeeks {
		var contests int64
		if timelineRow != nil {
			contests = asInt64(timelineRow[col.Raw])
		}
		recentActivity = append(recentActivity, TimelinePoint{
			Label:     col.Label,
			StartDate: NewDate(col.StartDate),
			EndDate:   NewDate(col.EndDate),
			Contests:  contests,
		})
	}

	metrics := SegmentInsightMetrics{
		UserCount:                userCount,
		AvgCashBalance:           asFloat64(metricsRow["avg_cash_balance"]),
		AvgTotalContests:         asFloat64(metricsRow["avg_total_contests"]),
		AvgIPLContests:           asFloat64(metricsRow["avg_ipl_contests"]),
		AvgHighestIPLScore:       asFloat64(metricsRow["avg_highest_ipl_score"]),
		AvgDaysSinceRegistration: asFloat64(metricsRow["avg_days_since_registration"]),
		RecentActiveShare:        float64(activeUsers) / float64(userCount),
	}

	return &SegmentInsight{
		Segment:        segment,
		Metrics:        metrics,
		RecentActivity: recentActivity,
	}, nil
}
