package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clusterdash/reporting-engine/pkg/apperrors"
	"github.com/clusterdash/reporting-engine/pkg/schema"
)

// Store is the query-executing connection abstraction the engine runs
// against. Implemented by the database package; faked in tests.
type Store interface {
	// Query runs a read-only statement and returns every row as a
	// column-name keyed map.
	Query(ctx context.Context, query string, args ...any) ([]map[string]any, error)
	// QueryRow runs a statement expected to produce at most one row,
	// returning nil when nothing matches.
	QueryRow(ctx context.Context, query string, args ...any) (map[string]any, error)
	// QueryStream runs a statement and returns rows for incremental
	// consumption.
	QueryStream(ctx context.Context, query string, args ...any) (RowStream, error)
	// ListTables returns the tables of the active schema.
	ListTables(ctx context.Context) ([]string, error)
}

// RowStream is an ordered sequence of row-mappings consumed one at a time.
type RowStream interface {
	Columns() []string
	Next() (map[string]any, bool, error)
	Close() error
}

// Service exposes the reporting operations to the boundary layer.
type Service interface {
	// ListTables names the tables available in the active schema.
	ListTables(ctx context.Context) (*TableList, error)

	// PreviewTable returns up to limit rows of a table.
	PreviewTable(ctx context.Context, table string, limit int) (*TablePreview, error)

	// SegmentStats aggregates per-segment user counts into the category
	// breakdown.
	SegmentStats(ctx context.Context, table string) (*SegmentStats, error)

	// SegmentInsights computes the aggregate metrics bundle and recent
	// activity timeline for one segment over the most recent weeks.
	SegmentInsights(ctx context.Context, table, segment string, weeks int) (*SegmentInsight, error)

	// SegmentTrends sums weekly activity per segment across a selected week
	// window.
	SegmentTrends(ctx context.Context, table string, opts TrendOptions) (*SegmentTrend, error)

	// SearchUsers finds users by substring across name, email, phone, and id.
	SearchUsers(ctx context.Context, table, q string, limit int) (*UserSearch, error)

	// UserTimeline returns one user's per-week activity within a date window.
	UserTimeline(ctx context.Context, table string, userID int64, start, end *time.Time) (*UserTimeline, error)

	// ExportUsers streams a full-row projection, optionally filtered to a
	// segment list.
	ExportUsers(ctx context.Context, table string, segments []string) (*Export, error)
}

type service struct {
	store   Store
	catalog *schema.Catalog
	logger  *zap.Logger
}

// NewService creates the reporting service.
func NewService(store Store, catalog *schema.Catalog, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		store:   store,
		catalog: catalog,
		logger:  logger.Named("reporting-service"),
	}
}

var _ Service = (*service)(nil)

// storeErr wraps a store failure with the taxonomy sentinel.
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", apperrors.ErrStoreUnavailable, op, err)
}

func (s *service) ListTables(ctx context.Context) (*TableList, error) {
	tables, err := s.store.ListTables(ctx)
	if err != nil {
		return nil, storeErr("list tables", err)
	}
	if tables == nil {
		tables = []string{}
	}
	return &TableList{Tables: tables}, nil
}

func (s *service) PreviewTable(ctx context.Context, table string, limit int) (*TablePreview, error) {
	var b queryBuilder
	b.write("SELECT * FROM ").write(schema.QuoteIdentifier(table)).write(" LIMIT ").bind(limit)
	query, args := b.query()

	rows, err := s.store.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("preview table", err)
	}

	return &TablePreview{
		Table:    table,
		RowCount: len(rows),
		Rows:     rows,
	}, nil
}

func (s *service) SearchUsers(ctx context.Context, table, q string, limit int) (*UserSearch, error) {
	if strings.TrimSpace(q) == "" {
		return nil, fmt.Errorf("%w: search query cannot be empty", apperrors.ErrInvalidInput)
	}

	columns, err := s.catalog.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	nameCol, err := schema.ResolveColumn(schema.FieldName, columns, table, true)
	if err != nil {
		return nil, err
	}
	emailCol, err := schema.ResolveColumn(schema.FieldEmail, columns, table, true)
	if err != nil {
		return nil, err
	}
	phoneCol, err := schema.ResolveColumn(schema.FieldPhone, columns, table, true)
	if err != nil {
		return nil, err
	}
	userIDCol, err := schema.ResolveColumn(schema.FieldUserID, columns, table, true)
	if err != nil {
		return nil, err
	}

	like := "%" + q + "%"
	var b queryBuilder
	b.write("SELECT * FROM ").write(schema.QuoteIdentifier(table))
	b.write(" WHERE LOWER(").write(schema.QuoteIdentifier(nameCol)).write(") LIKE LOWER(").bind(like).write(")")
	b.write(" OR LOWER(").write(schema.QuoteIdentifier(emailCol)).write(") LIKE LOWER(").bind(like).write(")")
	b.write(" OR LOWER(CAST(").write(schema.QuoteIdentifier(phoneCol)).write(" AS CHAR)) LIKE LOWER(").bind(like).write(")")
	b.write(" OR CAST(").write(schema.QuoteIdentifier(userIDCol)).write(" AS CHAR) LIKE ").bind(like)
	b.write(" ORDER BY ").write(schema.QuoteIdentifier(nameCol)).write(" ASC LIMIT ").bind(limit)
	query, args := b.query()

	rows, err := s.store.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("search users", err)
	}

	return &UserSearch{Count: len(rows), Results: rows}, nil
}

func (s *service) ExportUsers(ctx context.Context, table string, segments []string) (*Export, error) {
	columns, err := s.catalog.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	segmentCol, err := schema.ResolveColumn(schema.FieldSegment, columns, table, true)
	if err != nil {
		return nil, err
	}
	nameCol, err := schema.ResolveColumn(schema.FieldName, columns, table, true)
	if err != nil {
		return nil, err
	}

	var b queryBuilder
	b.write("SELECT * FROM ").write(schema.QuoteIdentifier(table))
	if len(segments) > 0 {
		b.write(" WHERE ").write(schema.QuoteIdentifier(segmentCol)).write(" IN ").bindList(segments)
	}
	b.write(" ORDER BY ").write(schema.QuoteIdentifier(segmentCol))
	b.write(", ").write(schema.QuoteIdentifier(nameCol))
	query, args := b.query()

	stream, err := s.store.QueryStream(ctx, query, args...)
	if err != nil {
		return nil, storeErr("export users", err)
	}

	// One-row lookahead so an empty result surfaces as not found instead of
	// an empty file.
	first, ok, err := stream.Next()
	if err != nil {
		stream.Close()
		return nil, storeErr("export users", err)
	}
	if !ok {
		stream.Close()
		return nil, fmt.Errorf("%w: no users found for the provided filters", apperrors.ErrNotFound)
	}

	return &Export{
		Filename: exportFilename(segments),
		Columns:  stream.Columns(),
		FirstRow: first,
		Stream:   stream,
	}, nil
}

// exportFilename derives the attachment name from the segment filters.
func exportFilename(segments []string) string {
	if len(segments) == 0 {
		return "users.csv"
	}
	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = strings.ReplaceAll(seg, " ", "_")
	}
	return "users_" + strings.Join(parts, "_") + ".csv"
}
