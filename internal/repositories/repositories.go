package repositories

import (
	"context"

	"github.com/pkg/errors"

	"github.com/vanshpatelx/Opinex/internal/models"
)

// Querier is the read surface of the relational store.
type Querier interface {
	FetchOne(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	FetchAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// EventRepository reads events from the source of truth.
type EventRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	ListRunning(ctx context.Context, page models.Page) ([]models.Event, error)
}

// OrderRepository reads orders from the source of truth.
type OrderRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	ListByEvent(ctx context.Context, eventID int64, page models.Page) ([]models.Order, error)
	ListByEventForUser(ctx context.Context, eventID, userID int64, page models.Page) ([]models.Order, error)
	ListByUser(ctx context.Context, userID int64, page models.Page) ([]models.Order, error)
}

// eventRepository implements EventRepository
type eventRepository struct {
	db Querier
}

// NewEventRepository creates a new event repository
func NewEventRepository(db Querier) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	if err := r.db.FetchOne(ctx, &event, queryEventByID, id); err != nil {
		return nil, errors.Wrapf(err, "event %d", id)
	}
	return &event, nil
}

func (r *eventRepository) ListRunning(ctx context.Context, page models.Page) ([]models.Event, error) {
	events := []models.Event{}
	if err := r.db.FetchAll(ctx, &events, queryRunningEvents, page.Limit, page.Cursor); err != nil {
		return nil, errors.Wrap(err, "running events")
	}
	return events, nil
}

// orderRepository implements OrderRepository
type orderRepository struct {
	db Querier
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db Querier) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := r.db.FetchOne(ctx, &order, queryOrderByID, id); err != nil {
		return nil, errors.Wrapf(err, "order %d", id)
	}
	return &order, nil
}

func (r *orderRepository) ListByEvent(ctx context.Context, eventID int64, page models.Page) ([]models.Order, error) {
	return r.list(ctx, "orders by event", queryOrdersByEvent, eventID, page.Limit, page.Cursor)
}

func (r *orderRepository) ListByEventForUser(ctx context.Context, eventID, userID int64, page models.Page) ([]models.Order, error) {
	return r.list(ctx, "orders by event for user", queryOrdersByEventForUser, userID, eventID, page.Limit, page.Cursor)
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int64, page models.Page) ([]models.Order, error) {
	return r.list(ctx, "orders by user", queryOrdersByUser, userID, page.Limit, page.Cursor)
}

func (r *orderRepository) list(ctx context.Context, what, query string, args ...interface{}) ([]models.Order, error) {
	orders := []models.Order{}
	if err := r.db.FetchAll(ctx, &orders, query, args...); err != nil {
		return nil, errors.Wrap(err, what)
	}
	return orders, nil
}
