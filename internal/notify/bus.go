// Package notify delivers transient user-facing notices ("toasts") from the
// booking workflow to whichever front end is listening.
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level is the severity of a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Topics published by the workflow.
const (
	TopicSlots   = "slots"
	TopicBooking = "booking"
)

// Notice is one transient message.
type Notice struct {
	Topic     string
	Source    string // wizard id the notice belongs to, empty for global notices
	Level     Level
	Message   string
	CreatedAt time.Time
}

// Handler reacts to a notice.
type Handler func(Notice)

type subscription struct {
	id      uint64
	topic   string // empty matches every topic
	handler Handler
}

// Bus provides in-process pub/sub for notices.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for a topic. An empty topic receives everything.
// The returned func removes the subscription.
func (b *Bus) Subscribe(topic string, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, topic: topic, handler: handler})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish notifies the matching subscribers. Handlers run synchronously on the
// caller's goroutine and must not block.
func (b *Bus) Publish(n Notice) {
	if b == nil {
		return
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.topic == "" || s.topic == n.Topic {
			handlers = append(handlers, s.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(n)
	}
}

// LogHandler writes every notice to the logger.
func LogHandler(logger *zerolog.Logger) Handler {
	return func(n Notice) {
		ev := logger.Info()
		switch n.Level {
		case LevelWarning:
			ev = logger.Warn()
		case LevelError:
			ev = logger.Error()
		}
		ev.Str("topic", n.Topic).Str("source", n.Source).Msg(n.Message)
	}
}
