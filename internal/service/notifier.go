package service

import (
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker/internal/models"
)

type changePublisher interface {
	Publish(change models.Change)
}

// Notifier fans store changes out to subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the change.
type Notifier struct {
	mu     sync.RWMutex
	subs   map[int]chan models.Change
	nextID int
	buffer int
	closed bool
	logger *zap.Logger
}

// NewNotifier constructs a notifier with per-subscriber buffers of the given size.
func NewNotifier(buffer int, logger *zap.Logger) *Notifier {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{subs: make(map[int]chan models.Change), buffer: buffer, logger: logger}
}

// Subscribe registers a listener. The returned func unsubscribes and closes the channel.
func (n *Notifier) Subscribe() (<-chan models.Change, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan models.Change, n.buffer)
	if n.closed {
		close(ch)
		return ch, func() {}
	}
	id := n.nextID
	n.nextID++
	n.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			if sub, ok := n.subs[id]; ok {
				delete(n.subs, id)
				close(sub)
			}
		})
	}
}

// Publish delivers change to every subscriber that has room for it.
func (n *Notifier) Publish(change models.Change) {
	if n == nil {
		return
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	for id, ch := range n.subs {
		select {
		case ch <- change:
		default:
			n.logger.Warn("dropping change for slow subscriber",
				zap.Int("subscriber", id),
				zap.String("topic", change.Topic),
				zap.String("action", string(change.Action)))
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (n *Notifier) Subscribers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

// Close ends every subscription. Later subscriptions receive a closed channel.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for id, ch := range n.subs {
		delete(n.subs, id)
		close(ch)
	}
}
