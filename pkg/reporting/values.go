package reporting

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clusterdash/reporting-engine/pkg/schema"
)

// asInt64 coerces a raw store value to an integer count. Nulls, empty
// strings, and unparseable values all become zero; the dataset's week cells
// mix integers, decimal strings, and blanks.
func asInt64(value any) int64 {
	switch v := value.(type) {
	case nil:
		return 0
	case int64:
		return v
	case int:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0
		}
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return int64(f)
		}
		return 0
	default:
		return 0
	}
}

// asFloat64 coerces a raw store value to a float. MySQL surfaces DECIMAL
// aggregates as strings.
func asFloat64(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f
		}
		return 0
	default:
		return 0
	}
}

// asString coerces a raw store value to a string for CSV serialization.
func asString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// avgDecimalExpr builds an averaged decimal select expression for a resolved
// column, or a literal zero when the column is absent so the result shape
// stays uniform regardless of table completeness.
func avgDecimalExpr(column, alias string) string {
	if column != "" {
		return fmt.Sprintf("AVG(COALESCE(CAST(%s AS DECIMAL(18,4)), 0)) AS %s",
			schema.QuoteIdentifier(column), alias)
	}
	return "0 AS " + alias
}

// avgDaysSinceExpr builds an averaged day-count-since-date select expression,
// with the same literal-zero substitution for absent columns.
func avgDaysSinceExpr(column, alias string) string {
	if column != "" {
		return fmt.Sprintf("AVG(COALESCE(DATEDIFF(CURDATE(), DATE(%s)), 0)) AS %s",
			schema.QuoteIdentifier(column), alias)
	}
	return "0 AS " + alias
}

// weekSumExpr builds a per-week activity sum aliased back to the week's raw
// column name.
func weekSumExpr(week schema.WeekColumn) string {
	quoted := schema.QuoteIdentifier(week.Raw)
	return fmt.Sprintf("COALESCE(SUM(CAST(%s AS UNSIGNED)), 0) AS %s", quoted, quoted)
}
