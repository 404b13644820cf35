package reporting

import "time"

// Date is a calendar date with no time-of-day component. It marshals to
// "YYYY-MM-DD" in JSON.
type Date struct {
	time.Time
}

// NewDate wraps a time.Time, keeping only its calendar date.
func NewDate(t time.Time) Date {
	return Date{Time: t}
}

// MarshalJSON renders the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

// TableList names the tables available in the active schema.
type TableList struct {
	Tables []string `json:"tables"`
}

// TablePreview is a bounded slice of a table's rows for inspection.
type TablePreview struct {
	Table    string           `json:"table"`
	RowCount int              `json:"row_count"`
	Rows     []map[string]any `json:"rows"`
}

// SegmentCounts carries one observed segment label and its per-category
// counts. Counts holds every category key; at most one is non-zero.
type SegmentCounts struct {
	Segment string         `json:"segment"`
	Counts  map[string]int `json:"counts"`
}

// SegmentStats is the segment breakdown: per-segment counts, category grand
// totals, and the total user count.
type SegmentStats struct {
	Categories []string        `json:"categories"`
	Segments   []SegmentCounts `json:"segments"`
	Totals     map[string]int  `json:"totals"`
	TotalUsers int             `json:"total_users"`
}

// TimelinePoint is one reporting period with its activity count.
type TimelinePoint struct {
	Label     string `json:"label"`
	StartDate Date   `json:"start_date"`
	EndDate   Date   `json:"end_date"`
	Contests  int64  `json:"contests"`
}

// SegmentInsightMetrics bundles the aggregate metrics for one segment.
type SegmentInsightMetrics struct {
	UserCount                int64   `json:"user_count"`
	AvgCashBalance           float64 `json:"avg_cash_balance"`
	AvgTotalContests         float64 `json:"avg_total_contests"`
	AvgIPLContests           float64 `json:"avg_ipl_contests"`
	AvgHighestIPLScore       float64 `json:"avg_highest_ipl_score"`
	AvgDaysSinceRegistration float64 `json:"avg_days_since_registration"`
	RecentActiveShare        float64 `json:"recent_active_share"`
}

// SegmentInsight is the insight response for one segment.
type SegmentInsight struct {
	Segment        string                `json:"segment"`
	Metrics        SegmentInsightMetrics `json:"metrics"`
	RecentActivity []TimelinePoint       `json:"recent_activity"`
}

// SegmentTrendPoint is one selected week with per-segment activity totals.
type SegmentTrendPoint struct {
	Label     string           `json:"label"`
	StartDate Date             `json:"start_date"`
	EndDate   Date             `json:"end_date"`
	Totals    map[string]int64 `json:"totals"`
}

// SegmentTrend is the multi-segment time trend response.
type SegmentTrend struct {
	Segments []string            `json:"segments"`
	Points   []SegmentTrendPoint `json:"points"`
}

// UserTimeline is one user's per-week activity inside an optional date window.
type UserTimeline struct {
	UserID  int64           `json:"user_id"`
	Name    *string         `json:"name"`
	Segment *string         `json:"segment"`
	Points  []TimelinePoint `json:"points"`
}

// UserSearch is the bounded substring-search response.
type UserSearch struct {
	Count   int              `json:"count"`
	Results []map[string]any `json:"results"`
}

// TrendOptions selects which weeks and segments a trend covers. Start and End
// bound the week catalog (inclusive); Weeks is the fallback and truncation
// count applied to the most recent entries.
type TrendOptions struct {
	Segments []string
	Start    *time.Time
	End      *time.Time
	Weeks    int
}

// Export is a full-row projection handed to the boundary layer for
// incremental serialization. FirstRow is the already-fetched lookahead row
// that proved the result non-empty; Stream yields the remainder.
type Export struct {
	Filename string
	Columns  []string
	FirstRow map[string]any
	Stream   RowStream
}
