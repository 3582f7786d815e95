package services

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vanshpatelx/Opinex/internal/broker"
	"github.com/vanshpatelx/Opinex/internal/cache"
	"github.com/vanshpatelx/Opinex/internal/metrics"
	"github.com/vanshpatelx/Opinex/internal/models"
	"github.com/vanshpatelx/Opinex/internal/store"
	"github.com/vanshpatelx/Opinex/internal/tracing"
)

type orderFixture struct {
	service   *OrderService
	repo      *MockOrderRepository
	events    *MockEventRepository
	cache     *memoryCache
	publisher *recordingPublisher
	metrics   *metrics.Metrics
}

// newOrderFixture wires a real EventService as the liveness checker so the
// event cache is shared the way it is in production.
func newOrderFixture() *orderFixture {
	f := &orderFixture{
		repo:      new(MockOrderRepository),
		events:    new(MockEventRepository),
		cache:     newMemoryCache(),
		publisher: &recordingPublisher{},
		metrics:   metrics.NewMetrics(),
	}
	ids := &fixedIDs{next: 5000}
	eventService := NewEventService(f.events, f.cache, f.publisher, ids, f.metrics, tracing.Noop(), DefaultCacheTTL)
	f.service = NewOrderService(f.repo, eventService, f.cache, f.publisher, ids, f.metrics, tracing.Noop(), DefaultCacheTTL)
	return f
}

func (f *orderFixture) seedEvent(t *testing.T, id int64, status models.EventStatus) {
	t.Helper()
	require.NoError(t, f.cache.Set(context.Background(), cache.EventKey(id), models.Event{ID: id, Status: status}, 0))
}

func TestCreateOrderNormalizesForTradingEngine(t *testing.T) {
	f := newOrderFixture()
	f.seedEvent(t, 3, models.EventRunning)

	created, err := f.service.Create(context.Background(), models.OrderRequest{
		EventID: 3, OrderType: models.Sell, Option: models.Yes, Price: 300, Qty: 5,
	}, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(5001), created.OrderID)

	require.Len(t, f.publisher.messages, 2)

	stored := f.publisher.messages[0]
	assert.Equal(t, broker.OrderExchange, stored.exchange)
	assert.Equal(t, broker.OrderAdd, stored.routingKey)
	order := stored.message.(models.Order)
	assert.Equal(t, models.Sell, order.OrderType)
	assert.Equal(t, 300, order.Price)
	assert.Equal(t, alice.ID, order.UserID)
	assert.Equal(t, models.OrderPending, order.Status)

	trade := f.publisher.messages[1]
	assert.Equal(t, broker.TradeExchange, trade.exchange)
	assert.Equal(t, broker.TradeAdd, trade.routingKey)
	assert.Equal(t, models.TradeOrder{OrderID: 5001, EventID: 3, OrderType: models.Buy, Price: 700, Qty: 5}, trade.message)

	assert.NotNil(t, f.cache.raw(cache.OrderKey(5001)))
	var owner string
	found, err := f.cache.Get(context.Background(), cache.OrderOwnerKey(5001), &owner)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "9", owner)

	assert.Equal(t, int64(1), f.metrics.GetCounters()[metrics.CounterOrdersCreated])
}

func TestCreateOrderRejectedWhenEventNotLive(t *testing.T) {
	f := newOrderFixture()
	f.seedEvent(t, 4, models.EventSettlement)
	f.events.On("GetByID", mock.Anything, int64(404)).Return(nil, store.ErrNotFound)

	for _, eventID := range []int64{4, 404} {
		_, err := f.service.Create(context.Background(), models.OrderRequest{
			EventID: eventID, OrderType: models.Buy, Option: models.Yes, Price: 500, Qty: 1,
		}, alice)
		assert.True(t, errors.Is(err, ErrEventNotLive), "event %d", eventID)
	}

	assert.Empty(t, f.publisher.messages)
	assert.Equal(t, int64(2), f.metrics.GetCounters()[metrics.CounterOrdersRejected])
}

func TestCreateOrderSurfacesBackendFailure(t *testing.T) {
	f := newOrderFixture()
	f.events.On("GetByID", mock.Anything, int64(6)).Return(nil, &store.BackendError{Op: "fetch one", Err: errors.New("timeout")})

	_, err := f.service.Create(context.Background(), models.OrderRequest{
		EventID: 6, OrderType: models.Buy, Option: models.Yes, Price: 500, Qty: 1,
	}, alice)
	assert.True(t, errors.Is(err, store.ErrBackend))
	assert.False(t, errors.Is(err, ErrEventNotLive))
	assert.Empty(t, f.publisher.messages)
}

func TestCreateOrderValidatesRequest(t *testing.T) {
	f := newOrderFixture()

	tests := []models.OrderRequest{
		{EventID: 3, OrderType: "HOLD", Option: models.Yes, Price: 100, Qty: 1},
		{EventID: 3, OrderType: models.Buy, Option: "MAYBE", Price: 100, Qty: 1},
		{EventID: 3, OrderType: models.Buy, Option: models.Yes, Price: 1001, Qty: 1},
		{EventID: 3, OrderType: models.Buy, Option: models.Yes, Price: 100, Qty: 0},
	}
	for _, req := range tests {
		_, err := f.service.Create(context.Background(), req, alice)
		assert.True(t, errors.Is(err, ErrInvalidRequest), "%+v", req)
	}
	assert.Empty(t, f.publisher.messages)
}

func TestGetByOrderIDFallsBackToStoreOnce(t *testing.T) {
	f := newOrderFixture()
	order := &models.Order{ID: 100, EventID: 3, UserID: alice.ID, OrderType: models.Buy, Option: models.Yes, Price: 400, Qty: 2, Status: models.OrderPending}
	f.repo.On("GetByID", mock.Anything, int64(100)).Return(order, nil).Once()

	got, err := f.service.GetByOrderID(context.Background(), 100, alice)
	require.NoError(t, err)
	assert.Equal(t, order, got)

	got, err = f.service.GetByOrderID(context.Background(), 100, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.ID)
	assert.Equal(t, 400, got.Price)

	f.repo.AssertExpectations(t)
}

func TestGetByOrderIDForbidsOtherUsers(t *testing.T) {
	f := newOrderFixture()
	require.NoError(t, f.cache.Set(context.Background(), cache.OrderOwnerKey(200), "9", 0))
	require.NoError(t, f.cache.Set(context.Background(), cache.OrderKey(200), models.Order{ID: 200, UserID: 9}, 0))

	_, err := f.service.GetByOrderID(context.Background(), 200, bob)
	assert.True(t, errors.Is(err, ErrForbidden))

	got, err := f.service.GetByOrderID(context.Background(), 200, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.UserID)

	f.repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestGetByOrderIDForbidsOtherUsersFromStore(t *testing.T) {
	f := newOrderFixture()
	f.repo.On("GetByID", mock.Anything, int64(300)).Return(&models.Order{ID: 300, UserID: alice.ID}, nil)

	_, err := f.service.GetByOrderID(context.Background(), 300, bob)
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.Nil(t, f.cache.raw(cache.OrderKey(300)))
}

func TestGetByOrderIDNotFound(t *testing.T) {
	f := newOrderFixture()
	f.repo.On("GetByID", mock.Anything, int64(404)).Return(nil, errors.Wrap(store.ErrNotFound, "order 404"))

	_, err := f.service.GetByOrderID(context.Background(), 404, alice)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListByEventScopesByRole(t *testing.T) {
	f := newOrderFixture()
	page := models.Page{Limit: models.DefaultPageLimit}
	all := []models.Order{{ID: 1, UserID: alice.ID}, {ID: 2, UserID: bob.ID}}
	mine := []models.Order{{ID: 2, UserID: bob.ID}}
	f.repo.On("ListByEvent", mock.Anything, int64(3), page).Return(all, nil).Once()
	f.repo.On("ListByEventForUser", mock.Anything, int64(3), bob.ID, page).Return(mine, nil).Once()

	got, err := f.service.ListByEvent(context.Background(), 3, page, admin)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = f.service.ListByEvent(context.Background(), 3, page, bob)
	require.NoError(t, err)
	assert.Equal(t, mine, got)

	// Both pages are now cached under distinct keys.
	_, err = f.service.ListByEvent(context.Background(), 3, page, admin)
	require.NoError(t, err)
	_, err = f.service.ListByEvent(context.Background(), 3, page, bob)
	require.NoError(t, err)

	assert.Equal(t, DefaultCacheTTL.OrderList, f.cache.ttls[cache.EventOrdersKey(3, 0, models.DefaultPageLimit)])
	f.repo.AssertExpectations(t)
}

func TestListByUserRedirectsToCaller(t *testing.T) {
	f := newOrderFixture()
	page := models.Page{Limit: 10}
	f.repo.On("ListByUser", mock.Anything, bob.ID, page).Return([]models.Order{}, nil).Once()
	f.repo.On("ListByUser", mock.Anything, int64(99), page).Return([]models.Order{{ID: 7, UserID: 99}}, nil).Once()

	got, err := f.service.ListByUser(context.Background(), 99, page, bob)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)

	got, err = f.service.ListByUser(context.Background(), 99, page, admin)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	f.repo.AssertExpectations(t)
}

func TestListRejectsBadPage(t *testing.T) {
	f := newOrderFixture()

	_, err := f.service.ListByUser(context.Background(), 9, models.Page{Limit: 500}, alice)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
	f.repo.AssertNotCalled(t, "ListByUser", mock.Anything, mock.Anything, mock.Anything)
}
