package services

import (
	"context"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/vanshpatelx/Opinex/internal/broker"
	"github.com/vanshpatelx/Opinex/internal/cache"
	"github.com/vanshpatelx/Opinex/internal/idgen"
	"github.com/vanshpatelx/Opinex/internal/metrics"
	"github.com/vanshpatelx/Opinex/internal/models"
	"github.com/vanshpatelx/Opinex/internal/repositories"
	"github.com/vanshpatelx/Opinex/internal/store"
	"github.com/vanshpatelx/Opinex/internal/tracing"
)

// EventService runs the event lifecycle: RUNNING -> SETTLEMENT -> PROCESSED.
type EventService struct {
	repo      repositories.EventRepository
	cache     cache.Cache
	publisher broker.Publisher
	ids       idgen.Generator
	metrics   *metrics.Metrics
	tracer    tracing.Tracer
	ttl       CacheTTL
	now       func() time.Time
}

// NewEventService creates a new event service
func NewEventService(
	repo repositories.EventRepository,
	c cache.Cache,
	publisher broker.Publisher,
	ids idgen.Generator,
	m *metrics.Metrics,
	tracer tracing.Tracer,
	ttl CacheTTL,
) *EventService {
	return &EventService{
		repo:      repo,
		cache:     c,
		publisher: publisher,
		ids:       ids,
		metrics:   m,
		tracer:    tracer,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Create registers a new RUNNING event. Only admins may create events.
func (s *EventService) Create(ctx context.Context, req models.EventRequest, caller models.Caller) (*models.EventCreated, error) {
	txn := newrelic.FromContext(ctx)
	defer s.tracer.StartSpan("EventService.Create", txn).End()

	if !caller.IsAdmin() {
		log.Warn().Int64("user_id", caller.ID).Msg("Unauthorized attempt to create an event")
		return nil, ErrUnauthorized
	}
	if err := models.Validate(req); err != nil {
		return nil, errors.Wrap(ErrInvalidRequest, err.Error())
	}

	now := s.now().UTC()
	event := models.Event{
		ID:             s.ids.Generate(),
		Name:           req.Name,
		Details:        req.Details,
		Status:         models.EventRunning,
		SettlementTime: req.SettlementTime.UTC(),
		CreatedAt:      &now,
		UpdatedAt:      &now,
	}

	s.publisher.Publish(ctx, event, broker.EventExchange, broker.EventRegistered)
	writeCache(ctx, s.cache, s.metrics, cache.EventKey(event.ID), event.Trimmed(), s.ttl.Default)

	s.metrics.IncrementCounter(metrics.CounterEventsCreated)
	s.tracer.AddAttribute(txn, "event_id", event.ID)
	log.Info().Int64("event_id", event.ID).Str("name", event.Name).Msg("Event created")

	return &models.EventCreated{Message: "Event created successfully", EventID: event.ID}, nil
}

// GetByID returns an event, reading through the cache.
func (s *EventService) GetByID(ctx context.Context, id int64, caller models.Caller) (*models.Event, error) {
	txn := newrelic.FromContext(ctx)
	defer s.tracer.StartSpan("EventService.GetByID", txn).End()

	log.Debug().Int64("event_id", id).Int64("user_id", caller.ID).Msg("Fetching event")
	event, err := s.load(ctx, id)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}
	return event, nil
}

// ListRunning returns one page of RUNNING events, newest first. Pages are
// cached briefly to absorb read bursts.
func (s *EventService) ListRunning(ctx context.Context, page models.Page, caller models.Caller) ([]models.Event, error) {
	txn := newrelic.FromContext(ctx)
	defer s.tracer.StartSpan("EventService.ListRunning", txn).End()

	if err := models.Validate(page); err != nil {
		return nil, errors.Wrap(ErrInvalidRequest, err.Error())
	}

	key := cache.LiveEventsKey(page.Cursor, page.Limit)
	var events []models.Event
	if readCache(ctx, s.cache, key, &events) {
		return events, nil
	}

	log.Debug().Int64("user_id", caller.ID).Int("cursor", page.Cursor).Int("limit", page.Limit).Msg("Fetching live events")
	events, err := s.repo.ListRunning(ctx, page)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to list running events")
	}

	writeCache(ctx, s.cache, s.metrics, key, events, s.ttl.LiveEvents)
	return events, nil
}

// Settle moves a RUNNING event to SETTLEMENT and announces it downstream.
// Only admins may settle.
func (s *EventService) Settle(ctx context.Context, id int64, caller models.Caller) (*models.Event, error) {
	txn := newrelic.FromContext(ctx)
	defer s.tracer.StartSpan("EventService.Settle", txn).End()

	if !caller.IsAdmin() {
		log.Warn().Int64("user_id", caller.ID).Int64("event_id", id).Msg("Unauthorized attempt to settle an event")
		return nil, ErrUnauthorized
	}

	event, err := s.load(ctx, id)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}
	if !event.Status.CanTransition(models.EventSettlement) {
		return nil, errors.Wrapf(ErrInvalidTransition, "event %d is %s", id, event.Status)
	}

	event.Status = models.EventSettlement
	s.publisher.Publish(ctx, event, broker.OrderExchange, broker.OrderAdd)
	writeCache(ctx, s.cache, s.metrics, cache.EventKey(id), event.Trimmed(), s.ttl.Default)

	s.metrics.IncrementCounter(metrics.CounterEventsSettled)
	log.Info().Int64("event_id", id).Msg("Event settlement applied")
	return event, nil
}

// IsLive reports whether an event accepts orders. Unknown events are not live.
func (s *EventService) IsLive(ctx context.Context, id int64) (bool, error) {
	event, err := s.load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return event.Status == models.EventRunning, nil
}

// load is the cache-aside read shared by every event lookup.
func (s *EventService) load(ctx context.Context, id int64) (*models.Event, error) {
	key := cache.EventKey(id)

	var cached models.Event
	if readCache(ctx, s.cache, key, &cached) {
		return &cached, nil
	}

	event, err := s.repo.GetByID(ctx, id)
	if store.IsNotFound(err) {
		log.Warn().Int64("event_id", id).Msg("Event not found")
		return nil, errors.Wrapf(ErrNotFound, "event %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load event %d", id)
	}

	writeCache(ctx, s.cache, s.metrics, key, event.Trimmed(), s.ttl.Default)
	return event, nil
}
