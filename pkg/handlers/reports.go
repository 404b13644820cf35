package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/clusterdash/reporting-engine/pkg/apperrors"
	"github.com/clusterdash/reporting-engine/pkg/reporting"
	"github.com/clusterdash/reporting-engine/pkg/schema"
)

// ReportsHandler exposes the reporting operations over REST.
type ReportsHandler struct {
	service      reporting.Service
	defaultTable string
	logger       *zap.Logger
}

// NewReportsHandler creates a new ReportsHandler. defaultTable is served when
// a request names no table.
func NewReportsHandler(service reporting.Service, defaultTable string, logger *zap.Logger) *ReportsHandler {
	return &ReportsHandler{
		service:      service,
		defaultTable: defaultTable,
		logger:       logger,
	}
}

// RegisterRoutes registers the reporting routes on the given router.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tables", h.ListTables)
	r.Get("/tables/{table}", h.PreviewTable)
	r.Get("/stats/segments", h.SegmentStats)
	r.Get("/segments/trends", h.SegmentTrends)
	r.Get("/segments/{segment}/insights", h.SegmentInsights)
	r.Get("/users/search", h.SearchUsers)
	r.Get("/users/{userID}/timeline", h.UserTimeline)
	r.Get("/export/users", h.ExportUsers)
}

// ListTables handles GET /tables.
func (h *ReportsHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListTables(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeOK(w, result)
}

// PreviewTable handles GET /tables/{table}.
func (h *ReportsHandler) PreviewTable(w http.ResponseWriter, r *http.Request) {
	table, err := resolvePathTable(r)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	limit, err := parseBoundedInt(r, "limit", 25, 1, 100)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	result, err := h.service.PreviewTable(r.Context(), table, limit)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeOK(w, result)
}

// SegmentStats handles GET /stats/segments.
func (h *ReportsHandler) SegmentStats(w http.ResponseWriter, r *http.Request) {
	table, err := resolveTable(r, h.defaultTable)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	result, err := h.service.SegmentStats(r.Context(), table)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeOK(w, result)
}

// SegmentInsights handles GET /segments/{segment}/insights.
func (h *ReportsHandler) SegmentInsights(w http.ResponseWriter, r *http.Request) {
	segment := chi.URLParam(r, "segment")
	table, err := resolveTable(r, h.defaultTable)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	weeks, err := parseBoundedInt(r, "weeks", 8, 1, 24)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	result, err := h.service.SegmentInsights(r.Context(), table, segment, weeks)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeOK(w, result)
}

// SegmentTrends handles GET /segments/trends.
func (h *ReportsHandler) SegmentTrends(w http.ResponseWriter, r *http.Request) {
	table, err := resolveTable(r, h.defaultTable)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	weeks, err := parseBoundedInt(r, "weeks", 12, 1, 52)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	start, err := parseDate(r, "start")
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	end, err := parseDate(r, "end")
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	result, err := h.service.SegmentTrends(r.Context(), table, reporting.TrendOptions{
		Segments: parseSegments(r),
		Start:    start,
		End:      end,
		Weeks:    weeks,
	})
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeOK(w, result)
}

// SearchUsers handles GET /users/search.
func (h *ReportsHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	table, err := resolveTable(r, h.defaultTable)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	limit, err := parseBoundedInt(r, "limit", 5, 1, 50)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	result, err := h.service.SearchUsers(r.Context(), table, r.URL.Query().Get("q"), limit)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeOK(w, result)
}

// UserTimeline handles GET /users/{userID}/timeline.
func (h *ReportsHandler) UserTimeline(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeServiceError(w,
			fmt.Errorf("%w: user id must be an integer", apperrors.ErrInvalidInput), h.logger)
		return
	}
	table, err := resolveTable(r, h.defaultTable)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	start, err := parseDate(r, "start")
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	end, err := parseDate(r, "end")
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	result, err := h.service.UserTimeline(r.Context(), table, userID, start, end)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	h.writeOK(w, result)
}

// ExportUsers handles GET /export/users: a CSV attachment streamed row by
// row, never buffering the full result set.
func (h *ReportsHandler) ExportUsers(w http.ResponseWriter, r *http.Request) {
	table, err := resolveTable(r, h.defaultTable)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	export, err := h.service.ExportUsers(r.Context(), table, parseSegments(r))
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	defer export.Stream.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))

	csvw := csv.NewWriter(w)
	if err := csvw.Write(export.Columns); err != nil {
		h.logger.Error("Failed to write CSV header", zap.Error(err))
		return
	}

	writeRow := func(row map[string]any) error {
		record := make([]string, len(export.Columns))
		for i, col := range export.Columns {
			record[i] = csvValue(row[col])
		}
		return csvw.Write(record)
	}

	if err := writeRow(export.FirstRow); err != nil {
		h.logger.Error("Failed to write CSV row", zap.Error(err))
		return
	}

	for {
		row, ok, err := export.Stream.Next()
		if err != nil {
			// Headers are gone; all we can do is stop mid-stream and log.
			h.logger.Error("Export stream failed", zap.Error(err))
			return
		}
		if !ok {
			break
		}
		if err := writeRow(row); err != nil {
			h.logger.Error("Failed to write CSV row", zap.Error(err))
			return
		}
		csvw.Flush()
	}

	csvw.Flush()
	if err := csvw.Error(); err != nil {
		h.logger.Error("Failed to flush CSV output", zap.Error(err))
	}
}

// resolvePathTable validates the table identity taken from the request path.
func resolvePathTable(r *http.Request) (string, error) {
	return schema.EnsureSafeTableName(chi.URLParam(r, "table"))
}

func (h *ReportsHandler) writeOK(w http.ResponseWriter, data any) {
	if err := WriteJSON(w, http.StatusOK, data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// csvValue renders a store value for CSV output.
func csvValue(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}
