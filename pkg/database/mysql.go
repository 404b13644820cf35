// Package database provides the MySQL connection pool, a row-map query
// executor, and information_schema introspection. It is the only package that
// talks to the driver; the reporting core consumes it through narrow
// interfaces declared at the point of use.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/clusterdash/reporting-engine/pkg/config"
)

// DB wraps a database/sql pool connected to MySQL.
type DB struct {
	pool *sql.DB
}

// NewConnection opens a MySQL connection pool and verifies it with a ping.
// The pool allows PoolSize idle connections plus Overflow extra connections
// that are closed once idle.
func NewConnection(ctx context.Context, cfg *config.MySQLConfig) (*DB, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql pool: %w", err)
	}

	pool.SetMaxOpenConns(cfg.PoolSize + cfg.Overflow)
	pool.SetMaxIdleConns(cfg.PoolSize)
	// Recycle connections periodically so the pool never hands out sockets
	// the server has silently dropped.
	pool.SetConnMaxLifetime(30 * time.Minute)
	pool.SetConnMaxIdleTime(5 * time.Minute)

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	return &DB{pool: pool}, nil
}

// buildDSN assembles a driver DSN from configuration. Credentials are escaped
// by the driver's own formatter.
func buildDSN(cfg *config.MySQLConfig) (string, error) {
	dc := mysql.NewConfig()
	dc.User = cfg.User
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dc.DBName = cfg.Database
	dc.ParseTime = true

	dsn := dc.FormatDSN()
	if cfg.Options != "" {
		opts := cfg.Options
		if opts[0] == '?' {
			opts = opts[1:]
		}
		dsn = dsn + "&" + opts
	}
	return dsn, nil
}

// Ping verifies the store is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.PingContext(ctx)
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.pool.Close()
}

// Query runs a SELECT and returns every row as a column-name keyed map.
// []byte values (MySQL's text-protocol encoding for strings and decimals)
// are converted to string so callers see scalar Go types only.
func (db *DB) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := db.pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columnNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	result := make([]map[string]any, 0)
	for rows.Next() {
		rowMap, err := scanRowMap(rows, columnNames)
		if err != nil {
			return nil, err
		}
		result = append(result, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

// QueryRow runs a SELECT expected to produce at most one row. Returns nil
// when the query matches nothing.
func (db *DB) QueryRow(ctx context.Context, query string, args ...any) (map[string]any, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// QueryStream runs a SELECT and returns a RowStream for incremental
// consumption. The caller must Close the stream.
func (db *DB) QueryStream(ctx context.Context, query string, args ...any) (*RowStream, error) {
	rows, err := db.pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	columnNames, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	return &RowStream{rows: rows, columns: columnNames}, nil
}

// ListTables returns every table name in the active schema, sorted.
func (db *DB) ListTables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		ORDER BY table_name ASC`

	rows, err := db.pool.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table rows: %w", err)
	}

	return tables, nil
}

// ListColumns returns the column names of a table in ordinal order. A table
// that does not exist yields an empty list, not an error; the catalog layer
// decides what absence means.
func (db *DB) ListColumns(ctx context.Context, table string) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		  AND table_name = ?
		ORDER BY ordinal_position`

	rows, err := db.pool.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		columns = append(columns, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column rows: %w", err)
	}

	return columns, nil
}

// scanRowMap scans the current row into a column-keyed map.
func scanRowMap(rows *sql.Rows, columnNames []string) (map[string]any, error) {
	values := make([]any, len(columnNames))
	valuePtrs := make([]any, len(columnNames))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	if err := rows.Scan(valuePtrs...); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	rowMap := make(map[string]any, len(columnNames))
	for i, col := range columnNames {
		val := values[i]
		if b, ok := val.([]byte); ok {
			val = string(b)
		}
		rowMap[col] = val
	}
	return rowMap, nil
}

// RowStream iterates a result set one row at a time without buffering it.
type RowStream struct {
	rows    *sql.Rows
	columns []string
}

// Columns returns the result set's column names in query order.
func (s *RowStream) Columns() []string {
	return s.columns
}

// Next advances to the next row and returns it, or false when exhausted.
func (s *RowStream) Next() (map[string]any, bool, error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, false, fmt.Errorf("error iterating rows: %w", err)
		}
		return nil, false, nil
	}
	rowMap, err := scanRowMap(s.rows, s.columns)
	if err != nil {
		return nil, false, err
	}
	return rowMap, true, nil
}

// Close releases the underlying cursor.
func (s *RowStream) Close() error {
	return s.rows.Close()
}
