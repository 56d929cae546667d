package bus

import "time"

// Event kinds published by the sync client. Subscribers filter by
// namespace prefix, e.g. "channel." matches every channel event.
const (
	KindStatusChanged  = "channel.status_changed"
	KindStoreUpdated   = "store.updated"
	KindUnreadIncrease = "conversation.unread_increased"
	KindSendFailed     = "message.send_failed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
