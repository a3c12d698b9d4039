package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/cache"
	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/closures"
	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/db"
	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/events"
	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/metrics"
	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/model"
)

// Store is the persistence collaborator for exception records.
type Store interface {
	CreateException(ctx context.Context, rec *model.ExceptionRecord) (*model.ExceptionRecord, error)
	UpdateException(ctx context.Context, rec *model.ExceptionRecord) (*model.ExceptionRecord, error)
	DeleteException(ctx context.Context, id int64) error
	GetException(ctx context.Context, id int64) (*model.ExceptionRecord, error)
	ListExceptions(ctx context.Context, filter db.Filter) ([]*model.ExceptionRecord, error)
}

// ExceptionService orchestrates exception mutations and previews: it
// normalizes payloads, persists records, publishes mutation events and
// serves cached previews.
type ExceptionService struct {
	store    Store
	bus      *events.Bus
	previews *cache.PreviewCache
	defaults closures.Defaults
	maxDays  int
	logger   *zerolog.Logger
}

func NewExceptionService(store Store, bus *events.Bus, previews *cache.PreviewCache, defaults closures.Defaults, maxDays int, logger *zerolog.Logger) *ExceptionService {
	return &ExceptionService{
		store:    store,
		bus:      bus,
		previews: previews,
		defaults: defaults,
		maxDays:  maxDays,
		logger:   logger,
	}
}

// Create normalizes and persists a new exception.
func (s *ExceptionService) Create(ctx context.Context, p closures.Payload) (*model.ExceptionRecord, error) {
	rec, err := closures.Normalize(p, nil, s.defaults)
	if err != nil {
		return nil, err
	}
	created, err := s.store.CreateException(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("create exception: %w", err)
	}
	metrics.IncMutation("create")
	s.publish(events.ExceptionCreated, created)
	return created, nil
}

// Update merges the payload onto the stored record and persists the
// result. The stored record is only replaced once normalization passes.
func (s *ExceptionService) Update(ctx context.Context, id int64, p closures.Payload) (*model.ExceptionRecord, error) {
	existing, err := s.store.GetException(ctx, id)
	if err != nil {
		return nil, err
	}
	rec, err := closures.Normalize(p, existing, s.defaults)
	if err != nil {
		return nil, err
	}
	rec.ID = id
	updated, err := s.store.UpdateException(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("update exception %d: %w", id, err)
	}
	metrics.IncMutation("update")
	s.publish(events.ExceptionUpdated, updated)
	return updated, nil
}

// Delete removes an exception by id.
func (s *ExceptionService) Delete(ctx context.Context, id int64) error {
	rec, err := s.store.GetException(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteException(ctx, id); err != nil {
		return err
	}
	metrics.IncMutation("delete")
	s.publish(events.ExceptionDeleted, rec)
	return nil
}

// Get loads one exception.
func (s *ExceptionService) Get(ctx context.Context, id int64) (*model.ExceptionRecord, error) {
	return s.store.GetException(ctx, id)
}

// List returns exceptions matching the filter.
func (s *ExceptionService) List(ctx context.Context, filter db.Filter) ([]*model.ExceptionRecord, error) {
	return s.store.ListExceptions(ctx, filter)
}

// Preview expands the active records matching the filter over the range
// and returns the merged, summarized result. Range checks run before
// any record is loaded; no partial result is returned on rejection.
func (s *ExceptionService) Preview(ctx context.Context, rangeStart, rangeEnd time.Time, filter db.Filter) (*closures.Preview, error) {
	if err := closures.ValidateRange(rangeStart, rangeEnd, s.maxDays); err != nil {
		return nil, err
	}

	filter.ActiveOnly = true
	filter.WindowStart = rangeStart
	filter.WindowEnd = rangeEnd
	records, err := s.store.ListExceptions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load exceptions: %w", err)
	}

	// Stored instants come back with fixed offsets; re-anchor them in
	// the facility zone so recurring expansion crosses DST correctly.
	if loc := s.defaults.Location; loc != nil {
		for _, rec := range records {
			rec.StartAt = rec.StartAt.In(loc)
			rec.EndAt = rec.EndAt.In(loc)
		}
	}

	key := s.previews.Key(rangeStart, rangeEnd, filterKey(filter), records)
	var cached closures.Preview
	if s.previews.Get(ctx, key, &cached) {
		metrics.IncPreviewCache(true)
		return &cached, nil
	}
	metrics.IncPreviewCache(false)

	preview, err := closures.GeneratePreview(rangeStart, rangeEnd, records, closures.PreviewOptions{MaxDays: s.maxDays})
	if err != nil {
		return nil, err
	}
	metrics.IncPreviewGenerated()
	s.previews.Set(ctx, key, preview)
	return preview, nil
}

func (s *ExceptionService) publish(eventType string, rec *model.ExceptionRecord) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{Type: eventType, RecordID: rec.ID, Scope: rec.Scope})
}

func filterKey(f db.Filter) string {
	return fmt.Sprintf("%s|%d|%d", f.Scope, f.RoomID, f.TableID)
}
