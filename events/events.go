package events

import (
	"context"
	"log/slog"
	"sync"
)

const TypeNFCScanSuccess = "nfc_scan_success"

// Event is broadcast to every connected event stream.
type Event struct {
	Type         string         `json:"type"`
	ScanID       string         `json:"scan_id,omitempty"`
	FaceImageURL string         `json:"face_image_url,omitempty"`
	Passport     map[string]any `json:"passport,omitempty"`
}

// Bus fans events out to all current subscribers. Should be safe for concurrent use.
type Bus interface {
	Publish(ctx context.Context, event Event) error

	// Subscribe returns a channel that receives events until cancel is called
	// or ctx is done. The channel is closed afterwards.
	Subscribe(ctx context.Context) (events <-chan Event, cancel func(), err error)

	Close() error
}

const subscriberBuffer = 16

// MemoryBus delivers events to subscribers of this process only.
type MemoryBus struct {
	mutex       sync.Mutex
	subscribers map[*subscriber]struct{}
	closed      bool
}

type subscriber struct {
	ch   chan Event
	once sync.Once
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subscribers: make(map[*subscriber]struct{})}
}

// Publish never blocks: a subscriber whose buffer is full misses the event.
func (b *MemoryBus) Publish(_ context.Context, event Event) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for sub := range b.subscribers {
		select {
		case sub.ch <- event:
		default:
			slog.Warn("Dropping event for slow subscriber", "type", event.Type, "scan_id", event.ScanID)
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	sub := &subscriber{ch: make(chan Event, subscriberBuffer)}

	b.mutex.Lock()
	if b.closed {
		b.mutex.Unlock()
		close(sub.ch)
		return sub.ch, func() {}, nil
	}
	b.subscribers[sub] = struct{}{}
	b.mutex.Unlock()

	done := make(chan struct{})
	cancel := func() {
		sub.once.Do(func() {
			close(done)
			b.remove(sub)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return sub.ch, cancel, nil
}

func (b *MemoryBus) remove(sub *subscriber) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if _, ok := b.subscribers[sub]; ok {
		delete(b.subscribers, sub)
		close(sub.ch)
	}
}

// SubscriberCount is the number of active subscriptions.
func (b *MemoryBus) SubscriberCount() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.subscribers)
}

func (b *MemoryBus) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.closed = true
	for sub := range b.subscribers {
		delete(b.subscribers, sub)
		close(sub.ch)
	}
	return nil
}
