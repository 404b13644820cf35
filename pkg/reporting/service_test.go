package reporting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clusterdash/reporting-engine/pkg/apperrors"
	"github.com/clusterdash/reporting-engine/pkg/schema"
)

// Fakes for the store and introspection collaborators.

type stubIntrospector struct {
	columns []string
	err     error
}

func (s *stubIntrospector) ListColumns(ctx context.Context, table string) ([]string, error) {
	return s.columns, s.err
}

type fakeStore struct {
	queryFn  func(query string, args []any) ([]map[string]any, error)
	rowFn    func(query string, args []any) (map[string]any, error)
	streamFn func(query string, args []any) (RowStream, error)
	tables   []string
	err      error

	queries []string
	argSets [][]any
}

func (f *fakeStore) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	f.queries = append(f.queries, query)
	f.argSets = append(f.argSets, args)
	if f.queryFn != nil {
		return f.queryFn(query, args)
	}
	return nil, f.err
}

func (f *fakeStore) QueryRow(ctx context.Context, query string, args ...any) (map[string]any, error) {
	f.queries = append(f.queries, query)
	f.argSets = append(f.argSets, args)
	if f.rowFn != nil {
		return f.rowFn(query, args)
	}
	return nil, f.err
}

func (f *fakeStore) QueryStream(ctx context.Context, query string, args ...any) (RowStream, error) {
	f.queries = append(f.queries, query)
	f.argSets = append(f.argSets, args)
	if f.streamFn != nil {
		return f.streamFn(query, args)
	}
	return nil, f.err
}

func (f *fakeStore) ListTables(ctx context.Context) ([]string, error) {
	return f.tables, f.err
}

type sliceStream struct {
	cols   []string
	rows   []map[string]any
	idx    int
	closed bool
}

func (s *sliceStream) Columns() []string { return s.cols }

func (s *sliceStream) Next() (map[string]any, bool, error) {
	if s.idx >= len(s.rows) {
		return nil, false, nil
	}
	row := s.rows[s.idx]
	s.idx++
	return row, true, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

func newTestService(columns []string, store Store) Service {
	catalog := schema.NewCatalog(&stubIntrospector{columns: columns}, 10, nil)
	return NewService(store, catalog, zap.NewNop())
}

func weekNames(n int) []string {
	weeks := tenWeeks()[:n]
	names := make([]string, n)
	for i, w := range weeks {
		names[i] = w.Raw
	}
	return names
}

func TestListTables(t *testing.T) {
	store := &fakeStore{tables: []string{"a", "b"}}
	svc := newTestService(nil, store)

	got, err := svc.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Tables)
}

func TestListTablesStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("down")}
	svc := newTestService(nil, store)

	_, err := svc.ListTables(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
}

func TestPreviewTable(t *testing.T) {
	store := &fakeStore{queryFn: func(query string, args []any) ([]map[string]any, error) {
		return []map[string]any{{"segment": "Casual"}, {"segment": "Regular"}}, nil
	}}
	svc := newTestService([]string{"segment"}, store)

	got, err := svc.PreviewTable(context.Background(), "user_cluster", 25)
	require.NoError(t, err)
	assert.Equal(t, "user_cluster", got.Table)
	assert.Equal(t, 2, got.RowCount)
	require.Len(t, store.queries, 1)
	assert.Equal(t, "SELECT * FROM `user_cluster` LIMIT ?", store.queries[0])
	assert.Equal(t, []any{25}, store.argSets[0])
}

func TestSegmentStats(t *testing.T) {
	store := &fakeStore{
		queryFn: func(query string, args []any) ([]map[string]any, error) {
			return []map[string]any{
				{"segment": "Casual", "user_count": int64(10)},
				{"segment": "New Users", "user_count": int64(4)},
				{"segment": "Whale", "user_count": int64(3)},
			}, nil
		},
		rowFn: func(query string, args []any) (map[string]any, error) {
			return map[string]any{"total": int64(17)}, nil
		},
	}
	svc := newTestService([]string{"segment", "name"}, store)

	got, err := svc.SegmentStats(context.Background(), "user_cluster")
	require.NoError(t, err)

	assert.Equal(t, CategoryKeys(), got.Categories)
	assert.Equal(t, 17, got.TotalUsers)
	require.Len(t, got.Segments, 3)

	assert.Equal(t, 10, got.Totals["casuals"])
	assert.Equal(t, 4, got.Totals["new_users"])
	assert.Equal(t, 0, got.Totals["regulars"])

	// Pass-through segments are listed but contribute to no category total.
	whale := got.Segments[2]
	assert.Equal(t, "Whale", whale.Segment)
	for _, key := range got.Categories {
		assert.Equal(t, 0, whale.Counts[key])
	}

	// Category totals plus pass-through rows account for every user.
	sum := 0
	for _, n := range got.Totals {
		sum += n
	}
	assert.Equal(t, got.TotalUsers, sum+3)
}

func TestSegmentStatsSchemaError(t *testing.T) {
	svc := newTestService([]string{"name", "email"}, &fakeStore{})

	_, err := svc.SegmentStats(context.Background(), "user_cluster")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSchemaIncompatible)
}

func TestSegmentInsights(t *testing.T) {
	weeks := weekNames(5)
	columns := append([]string{"segment", "cash_balance", "registered_date"}, weeks...)

	store := &fakeStore{
		rowFn: func(query string, args []any) (map[string]any, error) {
			switch {
			case strings.Contains(query, "active_users"):
				return map[string]any{"active_users": int64(2)}, nil
			case strings.Contains(query, "user_count"):
				return map[string]any{
					"user_count":                  int64(4),
					"avg_cash_balance":            "100.5000",
					"avg_total_contests":          int64(0),
					"avg_ipl_contests":            int64(0),
					"avg_highest_ipl_score":       int64(0),
					"avg_days_since_registration": "33.2500",
				}, nil
			default:
				row := make(map[string]any, len(weeks))
				for i, name := range weeks {
					row[name] = int64(i + 1)
				}
				return row, nil
			}
		},
	}
	svc := newTestService(columns, store)

	got, err := svc.SegmentInsights(context.Background(), "user_cluster", "Casual", 8)
	require.NoError(t, err)

	assert.Equal(t, "Casual", got.Segment)
	assert.Equal(t, int64(4), got.Metrics.UserCount)
	assert.Equal(t, 100.5, got.Metrics.AvgCashBalance)
	assert.Equal(t, 33.25, got.Metrics.AvgDaysSinceRegistration)
	assert.Equal(t, 0.5, got.Metrics.RecentActiveShare)

	require.Len(t, got.RecentActivity, 5)
	assert.Equal(t, int64(1), got.RecentActivity[0].Contests)
	assert.Equal(t, int64(5), got.RecentActivity[4].Contests)

	// The segment value is always bound, never interpolated.
	for _, args := range store.argSets {
		assert.Equal(t, []any{"Casual"}, args)
	}

	// Absent optional metrics become literal zero expressions.
	assert.Contains(t, store.queries[0], "0 AS avg_total_contests")
	assert.Contains(t, store.queries[0], "AVG(COALESCE(CAST(`cash_balance` AS DECIMAL(18,4)), 0))")
}

func TestSegmentInsightsZeroUsers(t *testing.T) {
	columns := append([]string{"segment"}, weekNames(2)...)
	store := &fakeStore{rowFn: func(query string, args []any) (map[string]any, error) {
		return map[string]any{"user_count": int64(0)}, nil
	}}
	svc := newTestService(columns, store)

	_, err := svc.SegmentInsights(context.Background(), "user_cluster", "Ghost", 8)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSegmentInsightsNoWeekColumns(t *testing.T) {
	svc := newTestService([]string{"segment", "name"}, &fakeStore{})

	_, err := svc.SegmentInsights(context.Background(), "user_cluster", "Casual", 8)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSegmentTrends(t *testing.T) {
	weeks := weekNames(3)
	columns := append([]string{"segment"}, weeks...)

	store := &fakeStore{queryFn: func(query string, args []any) ([]map[string]any, error) {
		return []map[string]any{
			{"segment": "Casual", weeks[0]: int64(5), weeks[1]: "7", weeks[2]: nil},
			{"segment": "Regular", weeks[0]: int64(1), weeks[1]: int64(2), weeks[2]: int64(3)},
		}, nil
	}}
	svc := newTestService(columns, store)

	got, err := svc.SegmentTrends(context.Background(), "user_cluster", TrendOptions{
		Segments: []string{"Casual", "Regular"},
		Weeks:    12,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Casual", "Regular"}, got.Segments)
	require.Len(t, got.Points, 3)
	assert.Equal(t, int64(5), got.Points[0].Totals["Casual"])
	assert.Equal(t, int64(7), got.Points[1].Totals["Casual"])
	assert.Equal(t, int64(0), got.Points[2].Totals["Casual"])
	assert.Equal(t, int64(3), got.Points[2].Totals["Regular"])

	require.Len(t, store.queries, 1)
	assert.Contains(t, store.queries[0], "IN (?, ?)")
	assert.Equal(t, []any{"Casual", "Regular"}, store.argSets[0])
}

func TestSegmentTrendsNoMatch(t *testing.T) {
	columns := append([]string{"segment"}, weekNames(2)...)
	store := &fakeStore{queryFn: func(query string, args []any) ([]map[string]any, error) {
		return nil, nil
	}}
	svc := newTestService(columns, store)

	_, err := svc.SegmentTrends(context.Background(), "user_cluster", TrendOptions{
		Segments: []string{"Nobody"},
		Weeks:    12,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserTimeline(t *testing.T) {
	weeks := weekNames(4)
	columns := append([]string{"user_id", "name", "segment"}, weeks...)

	store := &fakeStore{rowFn: func(query string, args []any) (map[string]any, error) {
		return map[string]any{
			"user_id":  int64(42),
			"name":     "Ann",
			"segment":  "Casual",
			weeks[0]:   int64(5),
			weeks[1]:   nil,
			weeks[2]:   "",
			weeks[3]:   "3",
		}, nil
	}}
	svc := newTestService(columns, store)

	got, err := svc.UserTimeline(context.Background(), "user_cluster", 42, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(42), got.UserID)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Ann", *got.Name)
	require.NotNil(t, got.Segment)
	assert.Equal(t, "Casual", *got.Segment)

	require.Len(t, got.Points, 4)
	counts := make([]int64, len(got.Points))
	for i, p := range got.Points {
		counts[i] = p.Contests
	}
	assert.Equal(t, []int64{5, 0, 0, 3}, counts)

	require.Len(t, store.queries, 1)
	assert.Contains(t, store.queries[0], "WHERE `user_id` = ?")
	assert.Equal(t, []any{int64(42)}, store.argSets[0])
}

func TestUserTimelineWindow(t *testing.T) {
	weeks := tenWeeks()[:4]
	columns := []string{"user_id", "name", "segment"}
	for _, w := range weeks {
		columns = append(columns, w.Raw)
	}

	store := &fakeStore{rowFn: func(query string, args []any) (map[string]any, error) {
		row := map[string]any{"user_id": int64(7), "name": nil, "segment": nil}
		for i, w := range weeks {
			row[w.Raw] = int64(i + 1)
		}
		return row, nil
	}}
	svc := newTestService(columns, store)

	start := weeks[1].StartDate
	end := weeks[2].EndDate
	got, err := svc.UserTimeline(context.Background(), "user_cluster", 7, &start, &end)
	require.NoError(t, err)

	require.Len(t, got.Points, 2)
	assert.Equal(t, weeks[1].Label, got.Points[0].Label)
	assert.Equal(t, weeks[2].Label, got.Points[1].Label)
	assert.Nil(t, got.Name)
	assert.Nil(t, got.Segment)
}

func TestUserTimelineNotFound(t *testing.T) {
	columns := append([]string{"user_id", "name", "segment"}, weekNames(2)...)
	store := &fakeStore{rowFn: func(query string, args []any) (map[string]any, error) {
		return nil, nil
	}}
	svc := newTestService(columns, store)

	_, err := svc.UserTimeline(context.Background(), "user_cluster", 999, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserTimelineInvertedRange(t *testing.T) {
	svc := newTestService([]string{"user_id", "name", "segment"}, &fakeStore{})

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.UserTimeline(context.Background(), "user_cluster", 1, &start, &end)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSearchUsers(t *testing.T) {
	columns := []string{"name", "email", "phone", "user_id"}
	store := &fakeStore{queryFn: func(query string, args []any) ([]map[string]any, error) {
		return []map[string]any{{"name": "Jo"}, {"name": "Joan"}}, nil
	}}
	svc := newTestService(columns, store)

	got, err := svc.SearchUsers(context.Background(), "user_cluster", "jo", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Count)

	require.Len(t, store.queries, 1)
	query := store.queries[0]
	assert.Contains(t, query, "LOWER(`name`) LIKE LOWER(?)")
	assert.Contains(t, query, "LOWER(CAST(`phone` AS CHAR)) LIKE LOWER(?)")
	assert.Contains(t, query, "ORDER BY `name` ASC LIMIT ?")
	assert.Equal(t, []any{"%jo%", "%jo%", "%jo%", "%jo%", 5}, store.argSets[0])
}

func TestSearchUsersEmptyQuery(t *testing.T) {
	svc := newTestService([]string{"name", "email", "phone", "user_id"}, &fakeStore{})

	_, err := svc.SearchUsers(context.Background(), "user_cluster", "  ", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestExportUsers(t *testing.T) {
	stream := &sliceStream{
		cols: []string{"segment", "name"},
		rows: []map[string]any{
			{"segment": "Casual", "name": "Ann"},
			{"segment": "Casual", "name": "Bob"},
		},
	}
	store := &fakeStore{streamFn: func(query string, args []any) (RowStream, error) {
		return stream, nil
	}}
	svc := newTestService([]string{"segment", "name"}, store)

	got, err := svc.ExportUsers(context.Background(), "user_cluster", []string{"Casual", "New Users"})
	require.NoError(t, err)
	defer got.Stream.Close()

	assert.Equal(t, "users_Casual_New_Users.csv", got.Filename)
	assert.Equal(t, []string{"segment", "name"}, got.Columns)
	assert.Equal(t, "Ann", got.FirstRow["name"])

	row, ok, err := got.Stream.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Bob", row["name"])

	require.Len(t, store.queries, 1)
	assert.Contains(t, store.queries[0], "WHERE `segment` IN (?, ?)")
	assert.Contains(t, store.queries[0], "ORDER BY `segment`, `name`")
	assert.Equal(t, []any{"Casual", "New Users"}, store.argSets[0])
}

func TestExportUsersDefaultFilename(t *testing.T) {
	stream := &sliceStream{cols: []string{"name"}, rows: []map[string]any{{"name": "Ann"}}}
	store := &fakeStore{streamFn: func(query string, args []any) (RowStream, error) {
		return stream, nil
	}}
	svc := newTestService([]string{"segment", "name"}, store)

	got, err := svc.ExportUsers(context.Background(), "user_cluster", nil)
	require.NoError(t, err)
	defer got.Stream.Close()
	assert.Equal(t, "users.csv", got.Filename)
}

func TestExportUsersEmpty(t *testing.T) {
	stream := &sliceStream{cols: []string{"name"}}
	store := &fakeStore{streamFn: func(query string, args []any) (RowStream, error) {
		return stream, nil
	}}
	svc := newTestService([]string{"segment", "name"}, store)

	_, err := svc.ExportUsers(context.Background(), "user_cluster", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.True(t, stream.closed)
}
