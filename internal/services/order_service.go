package services

import (
	"context"
	"strconv"
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

// EventChecker answers whether an event currently accepts orders.
type EventChecker interface {
	IsLive(ctx context.Context, eventID int64) (bool, error)
}

// OrderService validates, records and fans out orders.
type OrderService struct {
	repo      repositories.OrderRepository
	events    EventChecker
	cache     cache.Cache
	publisher broker.Publisher
	ids       idgen.Generator
	metrics   *metrics.Metrics
	tracer    tracing.Tracer
	ttl       CacheTTL
	now       func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(
	repo repositories.OrderRepository,
	events EventChecker,
	c cache.Cache,
	publisher broker.Publisher,
	ids idgen.Generator,
	m *metrics.Metrics,
	tracer tracing.Tracer,
	ttl CacheTTL,
) *OrderService {
	return &OrderService{
		repo:      repo,
		events:    events,
		cache:     c,
		publisher: publisher,
		ids:       ids,
		metrics:   m,
		tracer:    tracer,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Create places an order on a live event. The order is cached and sent to the
// database writer as submitted; the trading engine gets the normalized form.
func (s *OrderService) Create(ctx context.Context, req models.OrderRequest, caller models.Caller) (*models.OrderCreated, error) {
	txn := newrelic.FromContext(ctx)
	defer s.tracer.StartSpan("OrderService.Create", txn).End()

	if err := models.Validate(req); err != nil {
		return nil, errors.Wrap(ErrInvalidRequest, err.Error())
	}

	live, err := s.events.IsLive(ctx, req.EventID)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to check event status")
	}
	if !live {
		s.metrics.IncrementCounter(metrics.CounterOrdersRejected)
		log.Warn().Int64("event_id", req.EventID).Int64("user_id", caller.ID).Msg("Order rejected, event is not live")
		return nil, errors.Wrapf(ErrEventNotLive, "event %d", req.EventID)
	}

	order := models.Order{
		ID:        s.ids.Generate(),
		EventID:   req.EventID,
		UserID:    caller.ID,
		OrderType: req.OrderType,
		Option:    req.Option,
		Price:     req.Price,
		Qty:       req.Qty,
		Status:    models.OrderPending,
		Timestamp: s.now().Unix(),
	}

	writeCache(ctx, s.cache, s.metrics, cache.OrderKey(order.ID), order, s.ttl.Default)
	writeCache(ctx, s.cache, s.metrics, cache.OrderOwnerKey(order.ID), strconv.FormatInt(order.UserID, 10), s.ttl.Default)

	s.publisher.Publish(ctx, order, broker.OrderExchange, broker.OrderAdd)
	s.publisher.Publish(ctx, TradeOrderFor(order), broker.TradeExchange, broker.TradeAdd)

	s.metrics.IncrementCounter(metrics.CounterOrdersCreated)
	s.tracer.AddAttribute(txn, "order_id", order.ID)
	log.Info().
		Int64("order_id", order.ID).
		Int64("event_id", order.EventID).
		Int64("user_id", order.UserID).
		Msg("Order created")

	return &models.OrderCreated{Message: "Order created successfully", OrderID: order.ID}, nil
}

// GetByOrderID returns an order visible to caller. The ownership key is
// checked before the full record so non-owners are turned away cheaply.
func (s *OrderService) GetByOrderID(ctx context.Context, id int64, caller models.Caller) (*models.Order, error) {
	txn := newrelic.FromContext(ctx)
	defer s.tracer.StartSpan("OrderService.GetByOrderID", txn).End()

	var owner string
	if readCache(ctx, s.cache, cache.OrderOwnerKey(id), &owner) {
		if !caller.IsAdmin() && owner != strconv.FormatInt(caller.ID, 10) {
			log.Warn().Int64("order_id", id).Int64("user_id", caller.ID).Msg("Forbidden access to order")
			return nil, ErrForbidden
		}

		var cached models.Order
		if readCache(ctx, s.cache, cache.OrderKey(id), &cached) {
			return &cached, nil
		}
	}

	order, err := s.repo.GetByID(ctx, id)
	if store.IsNotFound(err) {
		return nil, errors.Wrapf(ErrNotFound, "order %d", id)
	}
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrapf(err, "failed to load order %d", id)
	}

	if !caller.IsAdmin() && order.UserID != caller.ID {
		log.Warn().Int64("order_id", id).Int64("user_id", caller.ID).Msg("Forbidden access to order")
		return nil, ErrForbidden
	}

	writeCache(ctx, s.cache, s.metrics, cache.OrderOwnerKey(id), strconv.FormatInt(order.UserID, 10), s.ttl.Default)
	writeCache(ctx, s.cache, s.metrics, cache.OrderKey(id), order, s.ttl.Default)
	return order, nil
}

// ListByEvent returns orders on an event. Admins see every order; anyone else
// sees only their own.
func (s *OrderService) ListByEvent(ctx context.Context, eventID int64, page models.Page, caller models.Caller) ([]models.Order, error) {
	txn := newrelic.FromContext(ctx)
	defer s.tracer.StartSpan("OrderService.ListByEvent", txn).End()

	if caller.IsAdmin() {
		return s.list(ctx, page, cache.EventOrdersKey(eventID, page.Cursor, page.Limit), func() ([]models.Order, error) {
			return s.repo.ListByEvent(ctx, eventID, page)
		})
	}
	return s.list(ctx, page, cache.EventUserOrdersKey(eventID, caller.ID, page.Cursor, page.Limit), func() ([]models.Order, error) {
		return s.repo.ListByEventForUser(ctx, eventID, caller.ID, page)
	})
}

// ListByUser returns a user's orders. Non-admin callers always get their own,
// whatever userID they asked for.
func (s *OrderService) ListByUser(ctx context.Context, userID int64, page models.Page, caller models.Caller) ([]models.Order, error) {
	txn := newrelic.FromContext(ctx)
	defer s.tracer.StartSpan("OrderService.ListByUser", txn).End()

	if !caller.IsAdmin() {
		userID = caller.ID
	}
	return s.list(ctx, page, cache.UserOrdersKey(userID, page.Cursor, page.Limit), func() ([]models.Order, error) {
		return s.repo.ListByUser(ctx, userID, page)
	})
}

func (s *OrderService) list(ctx context.Context, page models.Page, key string, load func() ([]models.Order, error)) ([]models.Order, error) {
	if err := models.Validate(page); err != nil {
		return nil, errors.Wrap(ErrInvalidRequest, err.Error())
	}

	var orders []models.Order
	if readCache(ctx, s.cache, key, &orders) {
		return orders, nil
	}

	orders, err := load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}

	writeCache(ctx, s.cache, s.metrics, key, orders, s.ttl.OrderList)
	return orders, nil
}
