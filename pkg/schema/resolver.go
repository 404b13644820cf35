package schema

import (
	"fmt"

	"github.com/clusterdash/reporting-engine/pkg/apperrors"
)

// Field names a reporting-schema concept that may map to one of several
// physical column spellings.
type Field string

// Logical fields of the reporting schema.
const (
	FieldSegment        Field = "Segment"
	FieldName           Field = "Name"
	FieldEmail          Field = "Email"
	FieldPhone          Field = "Phone"
	FieldUserID         Field = "User ID"
	FieldRegisteredDate Field = "Registered Date"
	FieldCashBalance    Field = "Cash Balance"
	FieldTotalContests  Field = "Total Contests Joined"
	FieldIPLContests    Field = "IPL Contests"
	FieldHighestIPL     Field = "Highest IPL Score"
)

// fieldCandidates maps each logical field to its physical column spellings,
// tried in declared order. Exported tables come in two flavors: human-readable
// headers and snake_case.
var fieldCandidates = map[Field][]string{
	FieldSegment:        {"Segment", "segment"},
	FieldName:           {"Name", "name"},
	FieldEmail:          {"Email", "email"},
	FieldPhone:          {"Phone", "phone"},
	FieldUserID:         {"User ID", "user_id"},
	FieldRegisteredDate: {"Registered Date", "registered_date"},
	FieldCashBalance:    {"Cash Balance", "cash_balance"},
	FieldTotalContests:  {"Total Contests Joined", "total_contests_joined"},
	FieldIPLContests:    {"IPL Contests", "ipl_contests"},
	FieldHighestIPL:     {"Highest IPL Score", "highest_ipl_score"},
}

// ResolveColumn maps a logical field to the first matching physical column.
// When no candidate is present and the field is required, the table is
// incompatible with the reporting schema and the request cannot proceed.
// Optional fields resolve to the empty string, which query construction
// treats as "metric unavailable" and substitutes a neutral zero.
func ResolveColumn(field Field, columns ColumnSet, table string, required bool) (string, error) {
	candidates, ok := fieldCandidates[field]
	if !ok {
		candidates = []string{string(field)}
	}

	for _, candidate := range candidates {
		if columns.Has(candidate) {
			return candidate, nil
		}
	}

	if required {
		return "", fmt.Errorf("%w: column %q not found in table %q",
			apperrors.ErrSchemaIncompatible, string(field), table)
	}
	return "", nil
}
