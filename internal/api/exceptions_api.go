package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/closures"
	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/db"
	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/metrics"
	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/model"
)

// handleExceptions serves GET (list) and POST (create) on /api/exceptions.
func (s *HTTPServer) handleExceptions(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("exceptions")
	switch r.Method {
	case http.MethodGet:
		s.listExceptions(w, r)
	case http.MethodPost:
		s.createException(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleExceptionByID serves GET, PUT and DELETE on /api/exceptions/{id}.
func (s *HTTPServer) handleExceptionByID(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("exception")
	id, err := exceptionID(r.URL.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid exception id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		rec, err := s.svc.Get(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case http.MethodPut:
		var payload closures.Payload
		if err := decodeBody(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		rec, err := s.svc.Update(r.Context(), id, payload)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case http.MethodDelete:
		if err := s.svc.Delete(r.Context(), id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) listExceptions(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := s.svc.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if records == nil {
		records = []*model.ExceptionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *HTTPServer) createException(w http.ResponseWriter, r *http.Request) {
	var payload closures.Payload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := s.svc.Create(r.Context(), payload)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func exceptionID(path string) (int64, error) {
	raw := strings.TrimPrefix(path, "/api/exceptions/")
	return strconv.ParseInt(raw, 10, 64)
}

func filterFromQuery(r *http.Request) (db.Filter, error) {
	var filter db.Filter
	q := r.URL.Query()
	if v := q.Get("scope"); v != "" {
		filter.Scope = model.Scope(v)
	}
	if v := q.Get("room_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, err
		}
		filter.RoomID = id
	}
	if v := q.Get("table_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, err
		}
		filter.TableID = id
	}
	if v := q.Get("active"); v == "true" || v == "1" {
		filter.ActiveOnly = true
	}
	return filter, nil
}
