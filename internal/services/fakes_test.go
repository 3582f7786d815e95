package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/vanshpatelx/Opinex/internal/models"
)

// Mock repositories for testing
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	args := m.Called(ctx, id)
	event, _ := args.Get(0).(*models.Event)
	return event, args.Error(1)
}

func (m *MockEventRepository) ListRunning(ctx context.Context, page models.Page) ([]models.Event, error) {
	args := m.Called(ctx, page)
	events, _ := args.Get(0).([]models.Event)
	return events, args.Error(1)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *MockOrderRepository) ListByEvent(ctx context.Context, eventID int64, page models.Page) ([]models.Order, error) {
	args := m.Called(ctx, eventID, page)
	orders, _ := args.Get(0).([]models.Order)
	return orders, args.Error(1)
}

func (m *MockOrderRepository) ListByEventForUser(ctx context.Context, eventID, userID int64, page models.Page) ([]models.Order, error) {
	args := m.Called(ctx, eventID, userID, page)
	orders, _ := args.Get(0).([]models.Order)
	return orders, args.Error(1)
}

func (m *MockOrderRepository) ListByUser(ctx context.Context, userID int64, page models.Page) ([]models.Order, error) {
	args := m.Called(ctx, userID, page)
	orders, _ := args.Get(0).([]models.Order)
	return orders, args.Error(1)
}

// memoryCache stores JSON like redis does, so tests see the same projection.
type memoryCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	failGet error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, value interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet != nil {
		return false, c.failGet
	}
	data, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, value)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	c.ttls[key] = expiration
	return nil
}

func (c *memoryCache) raw(key string) map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[key]
	if !ok {
		return nil
	}
	var out map[string]interface{}
	_ = json.Unmarshal(data, &out)
	return out
}

type published struct {
	exchange   string
	routingKey string
	message    interface{}
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []published
}

func (p *recordingPublisher) Publish(ctx context.Context, message interface{}, exchange, routingKey string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, published{exchange, routingKey, message})
}

type fixedIDs struct {
	next int64
}

func (f *fixedIDs) Generate() int64 {
	f.next++
	return f.next
}

var (
	admin = models.Caller{ID: 1, Role: models.RoleAdmin}
	alice = models.Caller{ID: 9, Role: models.RoleUser}
	bob   = models.Caller{ID: 10, Role: models.RoleUser}
)
