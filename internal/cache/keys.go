package cache

import "fmt"

// EventKey is the cache key for a single event.
func EventKey(id int64) string {
	return fmt.Sprintf("event:%d", id)
}

// LiveEventsKey is the cache key for one page of running events.
func LiveEventsKey(cursor, limit int) string {
	return fmt.Sprintf("live_events:%d:%d", cursor, limit)
}

// OrderKey is the cache key for a full order record.
func OrderKey(id int64) string {
	return fmt.Sprintf("order:%d", id)
}

// OrderOwnerKey holds only the owning user id of an order.
func OrderOwnerKey(id int64) string {
	return fmt.Sprintf("order:%d:UserID", id)
}

// EventOrdersKey is the cache key for one page of all orders on an event.
func EventOrdersKey(eventID int64, cursor, limit int) string {
	return fmt.Sprintf("orders:Event%d:%d:%d", eventID, cursor, limit)
}

// EventUserOrdersKey is the cache key for one page of a user's orders on an event.
func EventUserOrdersKey(eventID, userID int64, cursor, limit int) string {
	return fmt.Sprintf("orders:Event%d:%d:%d:%d", eventID, userID, cursor, limit)
}

// UserOrdersKey is the cache key for one page of a user's orders.
func UserOrdersKey(userID int64, cursor, limit int) string {
	return fmt.Sprintf("orders:User%d:%d:%d", userID, cursor, limit)
}
