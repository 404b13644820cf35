package schema

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/clusterdash/reporting-engine/pkg/apperrors"
)

// Introspector lists a table's column names from the store's catalog
// metadata. Implemented by the database package; faked in tests.
type Introspector interface {
	ListColumns(ctx context.Context, table string) ([]string, error)
}

// ColumnSet is the set of physical column names of a table.
type ColumnSet map[string]struct{}

// Has reports whether the set contains the given physical column name.
func (s ColumnSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Catalog is the read-through schema cache: it introspects a table's columns
// once per cache window and derives the week column catalog from them. The
// process assumes schema does not change within its lifetime, so entries are
// never invalidated, only evicted by capacity.
type Catalog struct {
	introspector Introspector
	columns      *Cache[[]string]
	weeks        *Cache[[]WeekColumn]
	logger       *zap.Logger
}

// NewCatalog creates a Catalog with two bounded caches of the given capacity.
func NewCatalog(introspector Introspector, capacity int, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		introspector: introspector,
		columns:      NewCache[[]string](capacity),
		weeks:        NewCache[[]WeekColumn](capacity),
		logger:       logger.Named("schema-catalog"),
	}
}

// ColumnNames returns a table's column names in ordinal order.
func (c *Catalog) ColumnNames(ctx context.Context, table string) ([]string, error) {
	if cached, ok := c.columns.Get(table); ok {
		return cached, nil
	}

	names, err := c.introspector.ListColumns(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("%w: list columns for table %q: %v", apperrors.ErrStoreUnavailable, table, err)
	}

	c.logger.Debug("Introspected table columns",
		zap.String("table", table),
		zap.Int("column_count", len(names)),
	)
	c.columns.Set(table, names)
	return names, nil
}

// Columns returns a table's column names as a set for resolution lookups.
func (c *Catalog) Columns(ctx context.Context, table string) (ColumnSet, error) {
	names, err := c.ColumnNames(ctx, table)
	if err != nil {
		return nil, err
	}
	set := make(ColumnSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set, nil
}

// Weeks returns the ordered week catalog for a table. A table with zero week
// columns yields an empty catalog; consumers that require weeks treat that as
// not found.
func (c *Catalog) Weeks(ctx context.Context, table string) ([]WeekColumn, error) {
	if cached, ok := c.weeks.Get(table); ok {
		return cached, nil
	}

	names, err := c.ColumnNames(ctx, table)
	if err != nil {
		return nil, err
	}

	weeks := ParseWeekColumns(names)
	c.weeks.Set(table, weeks)
	return weeks, nil
}
