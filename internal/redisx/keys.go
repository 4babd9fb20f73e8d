package redisx

import "time"

const (
	// Client state per session: state:{session}:{key} -> raw value
	KeyState = "state:%s:%s"

	// Dedup event processing: dedup:{service}:{id} (id = event_id)
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLState = 30 * 24 * time.Hour
	TTLDedup = 48 * time.Hour
)
