// Package schema owns everything the reporting core knows about a table's
// shape: table-identity validation, the bounded column/week caches, the week
// column catalog, and logical-to-physical field resolution.
package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/clusterdash/reporting-engine/pkg/apperrors"
)

// Table names cannot be bound as query parameters, so they are restricted to
// a character set that is inert inside a backtick-quoted identifier.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_ ()-]+$`)

// EnsureSafeTableName validates a table identity. The returned name is
// trimmed and safe to interpolate once quoted with QuoteIdentifier.
func EnsureSafeTableName(name string) (string, error) {
	candidate := strings.TrimSpace(name)
	if candidate == "" {
		return "", fmt.Errorf("%w: table name cannot be empty", apperrors.ErrInvalidInput)
	}
	if !tableNamePattern.MatchString(candidate) {
		return "", fmt.Errorf(
			"%w: table name may only contain letters, numbers, spaces, underscores, parentheses, or hyphens",
			apperrors.ErrInvalidInput,
		)
	}
	return candidate, nil
}

// QuoteIdentifier wraps a name in MySQL backtick quoting. Only names drawn
// from a validated table identity or an introspected column set may pass
// through here; embedded backticks are escaped regardless.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
