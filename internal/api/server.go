package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/closures"
	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/db"
	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/model"
)

// ExceptionService is the application seam the transport calls.
type ExceptionService interface {
	Create(ctx context.Context, p closures.Payload) (*model.ExceptionRecord, error)
	Update(ctx context.Context, id int64, p closures.Payload) (*model.ExceptionRecord, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*model.ExceptionRecord, error)
	List(ctx context.Context, filter db.Filter) ([]*model.ExceptionRecord, error)
	Preview(ctx context.Context, rangeStart, rangeEnd time.Time, filter db.Filter) (*closures.Preview, error)
}

// Options configures the HTTP server.
type Options struct {
	APIKey          string
	RateLimitPerSec float64
	RateLimitBurst  int
	Location        *time.Location
}

// HTTPServer serves the exceptions JSON API.
type HTTPServer struct {
	svc     ExceptionService
	apiKey  string
	limiter *rate.Limiter
	loc     *time.Location
	logger  *zerolog.Logger
}

func NewHTTPServer(svc ExceptionService, opts Options, logger *zerolog.Logger) *HTTPServer {
	rps := opts.RateLimitPerSec
	if rps <= 0 {
		rps = 20
	}
	burst := opts.RateLimitBurst
	if burst <= 0 {
		burst = 40
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &HTTPServer{
		svc:     svc,
		apiKey:  opts.APIKey,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		loc:     loc,
		logger:  logger,
	}
}

// Router builds the API mux.
func (s *HTTPServer) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/exceptions", s.wrap(s.handleExceptions))
	mux.HandleFunc("/api/exceptions/", s.wrap(s.handleExceptionByID))
	mux.HandleFunc("/api/exceptions/preview", s.wrap(s.handlePreview))
	mux.HandleFunc("/api/exceptions/preview/export", s.wrap(s.handlePreviewExport))
	return mux
}

// wrap applies request ids, api-key auth and rate limiting.
func (s *HTTPServer) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		if s.apiKey != "" && r.Header.Get("x-api-key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid or missing api key")
			return
		}
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		s.logger.Debug().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("api request")
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps domain errors onto HTTP statuses.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	var verr *closures.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Error())
		return
	}
	var rerr *closures.RangeError
	if errors.As(err, &rerr) {
		writeError(w, http.StatusBadRequest, rerr.Error())
		return
	}
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "exception not found")
		return
	}
	s.logger.Error().Err(err).Msg("api request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

// parseRangeBound reads a preview range bound. Date-only literals mean
// the whole day in the facility zone: 00:00 for the start bound,
// 23:59:59 for the end bound.
func (s *HTTPServer) parseRangeBound(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", raw, s.loc); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, s.loc)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Second)
	}
	return t, nil
}
