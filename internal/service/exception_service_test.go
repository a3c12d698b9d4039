package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/cache"
	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/closures"
	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/db"
	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/events"
	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/model"
)

// mockStore implements Store in memory for testing.
type mockStore struct {
	records map[int64]*model.ExceptionRecord
	nextID  int64
	listErr error
}

func newMockStore() *mockStore {
	return &mockStore{records: make(map[int64]*model.ExceptionRecord), nextID: 1}
}

func (m *mockStore) CreateException(_ context.Context, rec *model.ExceptionRecord) (*model.ExceptionRecord, error) {
	stored := *rec
	stored.ID = m.nextID
	m.nextID++
	m.records[stored.ID] = &stored
	return &stored, nil
}

func (m *mockStore) UpdateException(_ context.Context, rec *model.ExceptionRecord) (*model.ExceptionRecord, error) {
	if _, ok := m.records[rec.ID]; !ok {
		return nil, db.ErrNotFound
	}
	stored := *rec
	m.records[rec.ID] = &stored
	return &stored, nil
}

func (m *mockStore) DeleteException(_ context.Context, id int64) error {
	if _, ok := m.records[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *mockStore) GetException(_ context.Context, id int64) (*model.ExceptionRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (m *mockStore) ListExceptions(_ context.Context, filter db.Filter) ([]*model.ExceptionRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*model.ExceptionRecord
	for id := int64(1); id < m.nextID; id++ {
		rec, ok := m.records[id]
		if !ok {
			continue
		}
		if filter.ActiveOnly && !rec.Active {
			continue
		}
		if filter.Scope != "" && rec.Scope != filter.Scope {
			continue
		}
		copied := *rec
		out = append(out, &copied)
	}
	return out, nil
}

func newTestService(t *testing.T, store Store, bus *events.Bus) *ExceptionService {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	defaults := closures.Defaults{Location: loc, ReductionPercent: 50}
	return NewExceptionService(store, bus, cache.NewPreviewCache(nil, 0), defaults, 120, &logger)
}

func strPtr(s string) *string { return &s }

func TestServiceCreatePublishesEvent(t *testing.T) {
	store := newMockStore()
	bus := events.NewBus()
	var published []events.Event
	bus.SubscribeAll(func(e events.Event) { published = append(published, e) })

	svc := newTestService(t, store, bus)
	rec, err := svc.Create(context.Background(), closures.Payload{
		Scope:   strPtr("restaurant"),
		Type:    strPtr("full"),
		StartAt: strPtr("2025-03-10T00:00:00"),
		EndAt:   strPtr("2025-03-10T23:59:00"),
	})
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)

	require.Len(t, published, 1)
	assert.Equal(t, events.ExceptionCreated, published[0].Type)
	assert.Equal(t, rec.ID, published[0].RecordID)
}

func TestServiceCreateRejectsInvalidPayload(t *testing.T) {
	svc := newTestService(t, newMockStore(), nil)
	_, err := svc.Create(context.Background(), closures.Payload{
		StartAt: strPtr("2025-03-10T12:00:00"),
		EndAt:   strPtr("2025-03-10T10:00:00"),
	})
	var verr *closures.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestServiceUpdateMergesExisting(t *testing.T) {
	store := newMockStore()
	svc := newTestService(t, store, events.NewBus())
	ctx := context.Background()

	created, err := svc.Create(ctx, closures.Payload{
		Scope:   strPtr("restaurant"),
		Type:    strPtr("full"),
		StartAt: strPtr("2025-03-10T00:00:00"),
		EndAt:   strPtr("2025-03-10T23:59:00"),
		Note:    strPtr("original"),
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, closures.Payload{Note: strPtr("changed")})
	require.NoError(t, err)
	assert.Equal(t, "changed", updated.Note)
	assert.True(t, updated.StartAt.Equal(created.StartAt))
	assert.Equal(t, created.ID, updated.ID)
}

func TestServiceUpdateMissingRecord(t *testing.T) {
	svc := newTestService(t, newMockStore(), nil)
	_, err := svc.Update(context.Background(), 99, closures.Payload{Note: strPtr("x")})
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestServiceDelete(t *testing.T) {
	store := newMockStore()
	bus := events.NewBus()
	var deleted []int64
	bus.Subscribe(events.ExceptionDeleted, func(e events.Event) { deleted = append(deleted, e.RecordID) })

	svc := newTestService(t, store, bus)
	ctx := context.Background()
	created, err := svc.Create(ctx, closures.Payload{
		StartAt: strPtr("2025-03-10T00:00:00"),
		EndAt:   strPtr("2025-03-10T23:59:00"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.Equal(t, []int64{created.ID}, deleted)
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), db.ErrNotFound)
}

func TestServicePreview(t *testing.T) {
	store := newMockStore()
	svc := newTestService(t, store, events.NewBus())
	ctx := context.Background()

	_, err := svc.Create(ctx, closures.Payload{
		Scope:   strPtr("restaurant"),
		Type:    strPtr("full"),
		StartAt: strPtr("2025-03-10T10:00:00"),
		EndAt:   strPtr("2025-03-10T15:00:00"),
	})
	require.NoError(t, err)

	// Inactive records must not reach expansion.
	inactive, err := svc.Create(ctx, closures.Payload{
		StartAt: strPtr("2025-03-11T10:00:00"),
		EndAt:   strPtr("2025-03-11T15:00:00"),
	})
	require.NoError(t, err)
	_, err = svc.Update(ctx, inactive.ID, closures.Payload{Active: boolPtr(false)})
	require.NoError(t, err)

	loc, _ := time.LoadLocation("Europe/Rome")
	preview, err := svc.Preview(ctx,
		time.Date(2025, time.March, 1, 0, 0, 0, 0, loc),
		time.Date(2025, time.March, 31, 0, 0, 0, 0, loc),
		db.Filter{})
	require.NoError(t, err)

	require.Len(t, preview.Events, 1)
	assert.InDelta(t, 5.0, preview.Summary.BlockedHours, 1e-9)
}

func TestServicePreviewRejectsRangeBeforeLoading(t *testing.T) {
	store := newMockStore()
	store.listErr = assert.AnError
	svc := newTestService(t, store, nil)

	loc, _ := time.LoadLocation("Europe/Rome")
	_, err := svc.Preview(context.Background(),
		time.Date(2025, time.March, 10, 0, 0, 0, 0, loc),
		time.Date(2025, time.March, 1, 0, 0, 0, 0, loc),
		db.Filter{})

	// The range error must surface even though the store would fail,
	// proving the check runs before any load.
	var rerr *closures.RangeError
	require.ErrorAs(t, err, &rerr)
}

func boolPtr(b bool) *bool { return &b }
