package repositories

// Positional-parameter queries. Paginated queries order newest first and take
// LIMIT then OFFSET.
const (
	queryEventByID = `SELECT id, name, details, status, settlement_time
		FROM "Event" WHERE id = $1`

	queryRunningEvents = `SELECT id, name, details, status, settlement_time
		FROM "Event" WHERE status = 'RUNNING'
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	queryOrderByID = `SELECT * FROM orders WHERE id = $1`

	queryOrdersByEvent = `SELECT * FROM orders WHERE eventid = $1
		ORDER BY timestamp DESC LIMIT $2 OFFSET $3`

	queryOrdersByEventForUser = `SELECT * FROM orders WHERE userid = $1 AND eventid = $2
		ORDER BY timestamp DESC LIMIT $3 OFFSET $4`

	queryOrdersByUser = `SELECT * FROM orders WHERE userid = $1
		ORDER BY timestamp DESC LIMIT $2 OFFSET $3`
)
