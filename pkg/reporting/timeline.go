package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clusterdash/reporting-engine/pkg/apperrors"
	"github.com/clusterdash/reporting-engine/pkg/schema"
)

// UserTimeline locates exactly one row by user id and projects every week
// column's raw value into timeline points, filtered to the optional [start,
// end] window. Null and empty week cells count as zero.
func (s *service) UserTimeline(ctx context.Context, table string, userID int64, start, end *time.Time) (*UserTimeline, error) {
	if start != nil && end != nil && start.After(*end) {
		return nil, fmt.Errorf("%w: start date must be before or equal to end date", apperrors.ErrInvalidInput)
	}

	columns, err := s.catalog.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	userIDCol, err := schema.ResolveColumn(schema.FieldUserID, columns, table, true)
	if err != nil {
		return nil, err
	}
	nameCol, err := schema.ResolveColumn(schema.FieldName, columns, table, true)
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
		return nil, fmt.Errorf("%w: no weekly columns available in table %q", apperrors.ErrNotFound, table)
	}

	weekFields := make([]string, len(weekColumns))
	for i, col := range weekColumns {
		weekFields[i] = schema.QuoteIdentifier(col.Raw)
	}

	var b queryBuilder
	b.write("SELECT ").write(schema.QuoteIdentifier(userIDCol)).write(" AS user_id, ")
	b.write(schema.QuoteIdentifier(nameCol)).write(" AS name, ")
	b.write(schema.QuoteIdentifier(segmentCol)).write(" AS segment, ")
	b.write(strings.Join(weekFields, ", "))
	b.write(" FROM ").write(schema.QuoteIdentifier(table))
	b.write(" WHERE ").write(schema.QuoteIdentifier(userIDCol)).write(" = ").bind(userID)
	b.write(" LIMIT 1")
	query, args := b.query()

	row, err := s.store.QueryRow(ctx, query, args...)
	if err != nil {
		return nil, storeErr("user timeline", err)
	}
	if row == nil {
		return nil, fmt.Errorf("%w: user %d", apperrors.ErrNotFound, userID)
	}

	points := make([]TimelinePoint, 0, len(weekColumns))
	for _, col := range weekColumns {
		if start != nil && col.StartDate.Before(*start) {
			continue
		}
		if end != nil && col.EndDate.After(*end) {
			continue
		}
		points = append(points, TimelinePoint{
			Label:     col.Label,
			StartDate: NewDate(col.StartDate),
			EndDate:   NewDate(col.EndDate),
			Contests:  asInt64(row[col.Raw]),
		})
	}

	return &UserTimeline{
		UserID:  asInt64(row["user_id"]),
		Name:    optionalString(row["name"]),
		Segment: optionalString(row["segment"]),
		Points:  points,
	}, nil
}

// optionalString converts a nullable store value to an optional string.
func optionalString(value any) *string {
	if value == nil {
		return nil
	}
	s := asString(value)
	return &s
}
