// Package resultbus distributes window results to consumers without ever
// blocking the producer. Queue subscribers get a non-blocking send into
// their channel and lose results when they lag; latest subscribers always
// see the most recent result and nothing older.
package resultbus

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/care/myo/internal/types"
)

var (
	ErrBusClosed          = errors.New("resultbus: bus is closed")
	ErrSubscriberExists   = errors.New("resultbus: subscriber already exists")
	ErrSubscriberNotFound = errors.New("resultbus: subscriber not found")
	ErrNilChannel         = errors.New("resultbus: nil channel provided")
	ErrReceiverClosed     = errors.New("resultbus: receiver is closed")
)

// Receiver provides blocking and non-blocking access to the latest result
type Receiver interface {
	Receive() *types.WindowResult
	TryReceive() (*types.WindowResult, bool)
	Close()
}

// SubscriberStats tracks result distribution metrics
type SubscriberStats struct {
	Sent    uint64
	Dropped uint64
}

type policy int

const (
	queued policy = iota
	latest
)

type subscriberHolder struct {
	id     string
	policy policy
	stats  *SubscriberStats

	// For queued subscribers
	ch chan<- *types.WindowResult

	// For latest subscribers
	holder *latestResultHolder
}

// Bus fans window results out to registered subscribers
type Bus struct {
	mu             sync.RWMutex
	subscribers    map[string]*subscriberHolder
	totalPublished uint64
	closed         bool
}

// New creates a new result bus
func New() *Bus {
	return &Bus{
		subscribers: make(map[string]*subscriberHolder),
	}
}

// Subscribe registers a channel subscriber. When the channel is full the
// incoming result is dropped, never the producer's time.
func (b *Bus) Subscribe(id string, ch chan<- *types.WindowResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	if _, exists := b.subscribers[id]; exists {
		return ErrSubscriberExists
	}

	if ch == nil {
		return ErrNilChannel
	}

	b.subscribers[id] = &subscriberHolder{
		id:     id,
		policy: queued,
		stats:  &SubscriberStats{},
		ch:     ch,
	}

	return nil
}

// SubscribeLatest registers a subscriber that only ever observes the most
// recent result. Suited to status snapshots where stale results are useless.
func (b *Bus) SubscribeLatest(id string) (Receiver, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	if _, exists := b.subscribers[id]; exists {
		return nil, ErrSubscriberExists
	}

	holder := &subscriberHolder{
		id:     id,
		policy: latest,
		stats:  &SubscriberStats{},
		holder: newLatestResultHolder(),
	}

	b.subscribers[id] = holder
	return holder.holder, nil
}

// Publish distributes a result to all subscribers
func (b *Bus) Publish(result *types.WindowResult) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	atomic.AddUint64(&b.totalPublished, 1)

	for _, holder := range b.subscribers {
		switch holder.policy {
		case queued:
			// Non-blocking send to channel
			select {
			case holder.ch <- result:
				atomic.AddUint64(&holder.stats.Sent, 1)
			default:
				atomic.AddUint64(&holder.stats.Dropped, 1)
			}

		case latest:
			// Replace latest result (always succeeds)
			_ = holder.holder.set(result)
			atomic.AddUint64(&holder.stats.Sent, 1)
		}
	}
}

// Unsubscribe removes a subscriber
func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	holder, exists := b.subscribers[id]
	if !exists {
		return ErrSubscriberNotFound
	}

	if holder.policy == latest && holder.holder != nil {
		holder.holder.Close()
	}

	delete(b.subscribers, id)
	return nil
}

// Stats returns statistics for a subscriber
func (b *Bus) Stats(id string) (*SubscriberStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	holder, exists := b.subscribers[id]
	if !exists {
		return nil, ErrSubscriberNotFound
	}

	return &SubscriberStats{
		Sent:    atomic.LoadUint64(&holder.stats.Sent),
		Dropped: atomic.LoadUint64(&holder.stats.Dropped),
	}, nil
}

// TotalPublished returns the number of results published so far
func (b *Bus) TotalPublished() uint64 {
	return atomic.LoadUint64(&b.totalPublished)
}

// Close shuts down the bus and all subscribers
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true

	for _, holder := range b.subscribers {
		if holder.policy == latest && holder.holder != nil {
			holder.holder.Close()
		}
	}

	b.subscribers = nil
}

// latestResultHolder implements Receiver for latest-value subscribers
type latestResultHolder struct {
	mu     sync.RWMutex
	cond   *sync.Cond
	result *types.WindowResult
	closed bool
}

func newLatestResultHolder() *latestResultHolder {
	h := &latestResultHolder{}
	h.cond = sync.NewCond(&h.mu)
	return h
}

func (h *latestResultHolder) set(result *types.WindowResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrReceiverClosed
	}

	h.result = result
	h.cond.Broadcast()
	return nil
}

// Receive blocks until a result is available. Returns nil once the
// receiver is closed.
func (h *latestResultHolder) Receive() *types.WindowResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	for h.result == nil && !h.closed {
		h.cond.Wait()
	}

	if h.closed {
		return nil
	}

	return h.result
}

// TryReceive returns the latest result without blocking
func (h *latestResultHolder) TryReceive() (*types.WindowResult, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.result == nil {
		return nil, false
	}

	return h.result, true
}

// Close shuts down the receiver
func (h *latestResultHolder) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	h.cond.Broadcast()
}
