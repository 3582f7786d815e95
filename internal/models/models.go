package models

import (
	"time"
)

// Role is the capability carried by an authenticated caller.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Caller identifies who is making a request.
type Caller struct {
	ID   int64 `json:"id,string"`
	Role Role  `json:"type"`
}

// IsAdmin reports whether the caller holds the ADMIN capability.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// EventStatus is the lifecycle state of an Event.
type EventStatus string

const (
	EventRunning    EventStatus = "RUNNING"
	EventSettlement EventStatus = "SETTLEMENT"
	EventProcessed  EventStatus = "PROCESSED"
	EventClosed     EventStatus = "CLOSED"
)

var eventTransitions = map[EventStatus][]EventStatus{
	EventRunning:    {EventSettlement, EventClosed},
	EventSettlement: {EventProcessed},
}

// CanTransition reports whether an event may move from s to next.
// Transitions only move forward; nothing returns to RUNNING.
func (s EventStatus) CanTransition(next EventStatus) bool {
	for _, allowed := range eventTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Event is a market instance with a settlement deadline.
type Event struct {
	ID             int64       `json:"id,string" gorm:"column:id;primaryKey"`
	Name           string      `json:"name" gorm:"column:name"`
	Details        string      `json:"details" gorm:"column:details"`
	Status         EventStatus `json:"status" gorm:"column:status"`
	SettlementTime time.Time   `json:"settlement_time" gorm:"column:settlement_time"`
	CreatedAt      *time.Time  `json:"created_at,omitempty" gorm:"column:created_at"`
	UpdatedAt      *time.Time  `json:"updated_at,omitempty" gorm:"column:updated_at"`
}

// TableName specifies the table name for Event
func (Event) TableName() string {
	return "Event"
}

// Trimmed returns the cache projection of the event, without audit timestamps.
func (e Event) Trimmed() Event {
	e.CreatedAt = nil
	e.UpdatedAt = nil
	return e
}

// EventRequest is the payload accepted when creating an event.
type EventRequest struct {
	Name           string    `json:"name" validate:"required,max=500"`
	Details        string    `json:"details" validate:"required"`
	SettlementTime time.Time `json:"settlement_time" validate:"required"`
}

// EventCreated confirms a newly created event.
type EventCreated struct {
	Message string `json:"message"`
	EventID int64  `json:"event_id,string"`
}

// OrderType is the side of an order.
type OrderType string

const (
	Buy  OrderType = "BUY"
	Sell OrderType = "SELL"
)

// Option is the outcome an order is placed on.
type Option string

const (
	Yes Option = "YES"
	No  Option = "NO"
)

// OrderPending is the status of every order created here. Later states belong
// to the trading engine.
const OrderPending = "PENDING"

// MaxPrice is the price scale: prices are probabilities in millis.
const MaxPrice = 1000

// Order is a buy/sell instruction against an event outcome, in the frame the
// caller submitted it.
type Order struct {
	ID        int64     `json:"id,string" gorm:"column:id;primaryKey"`
	EventID   int64     `json:"EventID,string" gorm:"column:eventid"`
	UserID    int64     `json:"UserID,string" gorm:"column:userid"`
	OrderType OrderType `json:"orderType" gorm:"column:ordertype"`
	Option    Option    `json:"opt" gorm:"column:opt"`
	Price     int       `json:"price" gorm:"column:price"`
	Qty       int       `json:"qty" gorm:"column:qty"`
	Status    string    `json:"status" gorm:"column:status"`
	Timestamp int64     `json:"timestamp" gorm:"column:timestamp"`
}

// TableName specifies the table name for Order
func (Order) TableName() string {
	return "orders"
}

// OrderRequest is the payload accepted when placing an order.
type OrderRequest struct {
	EventID   int64     `json:"EventID,string" validate:"required"`
	OrderType OrderType `json:"orderType" validate:"required,oneof=BUY SELL"`
	Option    Option    `json:"opt" validate:"required,oneof=YES NO"`
	Price     int       `json:"price" validate:"min=0,max=1000"`
	Qty       int       `json:"qty" validate:"required,gt=0"`
}

// OrderCreated confirms a newly placed order.
type OrderCreated struct {
	Message string `json:"message"`
	OrderID int64  `json:"order_id,string"`
}

// TradeOrder is the normalized order forwarded to the trading engine. Price is
// always on the YES axis.
type TradeOrder struct {
	OrderID   int64     `json:"OrderID,string"`
	EventID   int64     `json:"EventID,string"`
	OrderType OrderType `json:"orderType"`
	Price     int       `json:"price"`
	Qty       int       `json:"qty"`
}

// Page is a cursor/limit window over a list query. Cursor is an offset.
type Page struct {
	Cursor int `form:"cursor" validate:"min=0"`
	Limit  int `form:"limit" validate:"min=1,max=100"`
}

// DefaultPageLimit is used when a request does not name a limit.
const DefaultPageLimit = 50
