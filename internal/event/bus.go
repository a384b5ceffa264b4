package event

import (
	"context"
	"sync"
	"time"

	"prism/pkg/logger"
	"prism/pkg/utils"
)

type Type string

const (
	TaskCreated        Type = "task.created"
	TaskUpdated        Type = "task.updated"
	TaskMoved          Type = "task.moved"
	TaskDeleted        Type = "task.deleted"
	ExecutionStarted   Type = "execution.started"
	ExecutionCompleted Type = "execution.completed"
	ExecutionFailed    Type = "execution.failed"
	Heartbeat          Type = "heartbeat"
)

// Event is a lifecycle notification scoped to one user's board.
type Event struct {
	Type      Type        `json:"type"`
	UserID    string      `json:"-"`
	BoardID   uint        `json:"-"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

func New(t Type, userID string, boardID uint, data interface{}) Event {
	return Event{
		Type:      t,
		UserID:    userID,
		BoardID:   boardID,
		Data:      data,
		Timestamp: utils.TimeNow(),
	}
}

// Bus is the in-process publish/subscribe used for live board updates.
type Bus interface {
	Subscribe(ctx context.Context, userID string, boardID uint) *Subscription
	Emit(evt Event)
	ActiveConnectionCount() int
	UserConnectionCount(userID string) int
	Close()
}

// Subscription delivers matching events on Events until Close or context cancellation.
// Events is closed once the subscription is removed.
type Subscription struct {
	Events <-chan Event
	id     uint64
	bus    *bus
}

func (s *Subscription) Close() {
	s.bus.unsubscribe(s.id)
}

type subscriber struct {
	userID string
	filter func(Event) bool
	ch     chan Event
	done   chan struct{}
}

type bus struct {
	log               *logger.Logger
	heartbeatInterval time.Duration
	bufferSize        int

	mu              sync.RWMutex
	nextID          uint64
	subscribers     map[uint64]*subscriber
	userConnections map[string]int
}

func NewBus(log *logger.Logger, heartbeatInterval time.Duration, bufferSize int) Bus {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &bus{
		log:               log,
		heartbeatInterval: heartbeatInterval,
		bufferSize:        bufferSize,
		subscribers:       make(map[uint64]*subscriber),
		userConnections:   make(map[string]int),
	}
}

func (b *bus) Subscribe(ctx context.Context, userID string, boardID uint) *Subscription {
	sub := &subscriber{
		userID: userID,
		filter: func(e Event) bool {
			return e.UserID == userID && e.BoardID == boardID
		},
		ch:   make(chan Event, b.bufferSize),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subscribers[id] = sub
	b.userConnections[userID]++
	b.mu.Unlock()

	b.log.DebugContext(ctx, "SSE subscriber added",
		logger.UserIDField(userID),
		logger.BoardIDField(boardID),
		logger.IntField("active_connections", b.ActiveConnectionCount()),
	)

	utils.GoSafe(func() {
		b.keepAlive(ctx, id, sub)
	})

	return &Subscription{Events: sub.ch, id: id, bus: b}
}

// keepAlive sends heartbeats and removes the subscription when ctx ends.
func (b *bus) keepAlive(ctx context.Context, id uint64, sub *subscriber) {
	var tick <-chan time.Time
	if b.heartbeatInterval > 0 {
		ticker := time.NewTicker(b.heartbeatInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-sub.done:
			return
		case <-ctx.Done():
			b.unsubscribe(id)
			return
		case <-tick:
			b.deliver(id, Event{Type: Heartbeat, Data: map[string]interface{}{}, Timestamp: utils.TimeNow()})
		}
	}
}

// deliver sends to one subscriber if it is still registered.
func (b *bus) deliver(id uint64, evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sub, ok := b.subscribers[id]
	if !ok {
		return
	}
	select {
	case sub.ch <- evt:
	default:
	}
}

func (b *bus) unsubscribe(id uint64) {
	b.mu.Lock()
	sub, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		b.userConnections[sub.userID]--
		if b.userConnections[sub.userID] <= 0 {
			delete(b.userConnections, sub.userID)
		}
		close(sub.done)
		close(sub.ch)
	}
	b.mu.Unlock()

	if ok {
		b.log.Debug("SSE subscriber removed",
			logger.UserIDField(sub.userID),
			logger.IntField("active_connections", b.ActiveConnectionCount()),
		)
	}
}

// Emit never blocks; a subscriber whose buffer is full misses the event.
func (b *bus) Emit(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = utils.TimeNow()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subscribers {
		if !sub.filter(evt) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			b.log.Warn("Dropping event for slow subscriber",
				logger.StringField("event_type", string(evt.Type)),
				logger.Field("subscription_id", id),
			)
		}
	}
}

func (b *bus) ActiveConnectionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *bus) UserConnectionCount(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.userConnections[userID]
}

// Close removes every subscription, closing their channels.
func (b *bus) Close() {
	b.mu.RLock()
	ids := make([]uint64, 0, len(b.subscribers))
	for id := range b.subscribers {
		ids = append(ids, id)
	}
	b.mu.RUnlock()

	for _, id := range ids {
		b.unsubscribe(id)
	}
}

// trackedUsers is used by tests to assert cleanup of per-user entries.
func (b *bus) trackedUsers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.userConnections)
}
