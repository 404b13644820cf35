package reporting

import (
	"strings"
)

// queryBuilder accumulates SQL text fragments alongside bound parameters.
// Identifiers (table and column names) are written as pre-quoted text after
// passing through schema validation or resolution; every dynamic value goes
// through bind and is never interpolated.
type queryBuilder struct {
	sb   strings.Builder
	args []any
}

// write appends a raw SQL fragment.
func (b *queryBuilder) write(fragment string) *queryBuilder {
	b.sb.WriteString(fragment)
	return b
}

// bind registers a value parameter and appends its placeholder.
func (b *queryBuilder) bind(value any) *queryBuilder {
	b.args = append(b.args, value)
	b.sb.WriteString("?")
	return b
}

// bindList registers an IN-list of values and appends "(?, ?, ...)".
func (b *queryBuilder) bindList(values []string) *queryBuilder {
	b.sb.WriteString("(")
	for i, v := range values {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.bind(v)
	}
	b.sb.WriteString(")")
	return b
}

// query returns the assembled SQL text and its bound parameters.
func (b *queryBuilder) query() (string, []any) {
	return b.sb.String(), b.args
}
