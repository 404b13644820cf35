package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/clusterdash/reporting-engine/pkg/apperrors"
	"github.com/clusterdash/reporting-engine/pkg/schema"
)

// resolveTable returns the validated table identity for a request: the
// table_name query parameter when present, otherwise the configured report
// table. Validation happens once here; the rest of the request treats the
// name as trusted.
func resolveTable(r *http.Request, defaultTable string) (string, error) {
	name := r.URL.Query().Get("table_name")
	if name == "" {
		name = defaultTable
	}
	return schema.EnsureSafeTableName(name)
}

// parseBoundedInt reads an integer query parameter, applying a default and
// enforcing inclusive bounds.
func parseBoundedInt(r *http.Request, name string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", apperrors.ErrInvalidInput, name)
	}
	if value < min || value > max {
		return 0, fmt.Errorf("%w: %s must be between %d and %d", apperrors.ErrInvalidInput, name, min, max)
	}
	return value, nil
}

// parseDate reads an optional YYYY-MM-DD query parameter.
func parseDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a date in YYYY-MM-DD format", apperrors.ErrInvalidInput, name)
	}
	return &t, nil
}

// parseSegments reads the repeated segments query parameter, dropping empty
// values.
func parseSegments(r *http.Request) []string {
	var segments []string
	for _, value := range r.URL.Query()["segments"] {
		if value != "" {
			segments = append(segments, value)
		}
	}
	return segments
}
