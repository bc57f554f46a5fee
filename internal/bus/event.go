package bus

import "time"

// Event kinds published by the chat client.
const (
	KindCacheInvalidated = "cache.invalidated"
	KindCachePatched     = "cache.patched"
	KindCacheStored      = "cache.stored"
	KindCacheReset       = "cache.reset"

	KindMessageSent       = "message.sent"
	KindMessageSendFailed = "message.send_failed"
	KindConversationRead  = "conversation.read"

	KindThreadState = "thread.state_changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
