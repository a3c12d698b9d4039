package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/closures"
	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/db"
	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/export"
	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/metrics"
	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/model"
)

type previewRequest struct {
	Start   string          `json:"start"`
	End     string          `json:"end"`
	Filters *previewFilters `json:"filters,omitempty"`
}

type previewFilters struct {
	Scope   string `json:"scope,omitempty"`
	RoomID  int64  `json:"room_id,omitempty"`
	TableID int64  `json:"table_id,omitempty"`
}

// handlePreview serves POST /api/exceptions/preview.
func (s *HTTPServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("preview")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	preview, err := s.buildPreview(w, r)
	if err != nil {
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// handlePreviewExport serves GET /api/exceptions/preview/export, returning
// the preview as an xlsx attachment. Range and filters come from the query
// string since spreadsheet downloads are link-driven.
func (s *HTTPServer) handlePreviewExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("preview_export")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	rangeStart, rangeEnd, err := s.parseRange(q.Get("start"), q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	preview, err := s.svc.Preview(r.Context(), rangeStart, rangeEnd, filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("closures_%s_%s.xlsx",
		rangeStart.Format("2006-01-02"), rangeEnd.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export.WritePreview(preview, w); err != nil {
		s.logger.Error().Err(err).Msg("preview export failed")
	}
}

func (s *HTTPServer) buildPreview(w http.ResponseWriter, r *http.Request) (*closures.Preview, error) {
	var req previewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, err
	}
	rangeStart, rangeEnd, err := s.parseRange(req.Start, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, err
	}

	var filter db.Filter
	if req.Filters != nil {
		filter.Scope = model.Scope(req.Filters.Scope)
		filter.RoomID = req.Filters.RoomID
		filter.TableID = req.Filters.TableID
	}

	preview, err := s.svc.Preview(r.Context(), rangeStart, rangeEnd, filter)
	if err != nil {
		s.writeServiceError(w, err)
		return nil, err
	}
	return preview, nil
}

func (s *HTTPServer) parseRange(start, end string) (time.Time, time.Time, error) {
	if start == "" || end == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("start and end are required")
	}
	rangeStart, err := s.parseRangeBound(start, false)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %q", start)
	}
	rangeEnd, err := s.parseRangeBound(end, true)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %q", end)
	}
	return rangeStart, rangeEnd, nil
}
