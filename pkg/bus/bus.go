// Package bus provides the in-process platform event bus. Successful chat
// recognitions are published here for automations to consume.
package bus

import (
	"log/slog"
	"sync"

	"github.com/voxhaus/voxhaus/pkg/logging"
)

// EventTranscriptionReceived is fired once per successful chat recognition.
const EventTranscriptionReceived = "audio_recognizer_transcription"

// Event is a named payload delivered to subscribers.
type Event struct {
	Name    string
	Payload map[string]string
}

// Bus fans events out to subscriber channels. Publishing never blocks: a
// subscriber that stops draining its channel loses events, not the
// publisher.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]subscription
	logger *slog.Logger
}

type subscription struct {
	name string
	ch   chan Event
}

func New(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[int]subscription),
		logger: logging.NewComponentLogger(logger, "bus"),
	}
}

// Subscribe registers for events with the given name and returns the
// delivery channel plus a cancel function. Cancel is idempotent and closes
// the channel.
func (b *Bus) Subscribe(name string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	sub := subscription{name: name, ch: make(chan Event, 16)}
	b.subs[id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish delivers the event to every matching subscriber. Sends stay
// under the bus lock: they never block, and cancel closes channels under
// the same lock, so a send can never race a close.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if sub.name != event.Name {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			b.logger.Warn("event_subscriber_full", slog.String("event", event.Name))
		}
	}
}
