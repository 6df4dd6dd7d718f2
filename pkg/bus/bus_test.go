package bus

import "testing"

func TestPublishDeliversToMatchingSubscribers(t *testing.T) {
	b := New(nil)
	transcripts, cancel := b.Subscribe(EventTranscriptionReceived)
	defer cancel()
	other, cancelOther := b.Subscribe("other_event")
	defer cancelOther()

	b.Publish(Event{
		Name:    EventTranscriptionReceived,
		Payload: map[string]string{"text": "hello", "chat_id": "42", "username": "alice"},
	})

	select {
	case evt := <-transcripts:
		if evt.Payload["text"] != "hello" || evt.Payload["chat_id"] != "42" {
			t.Fatalf("unexpected payload: %v", evt.Payload)
		}
	default:
		t.Fatalf("expected delivered event")
	}
	select {
	case <-other:
		t.Fatalf("event delivered to non-matching subscriber")
	default:
	}
}

func TestCancelStopsDeliveryAndIsIdempotent(t *testing.T) {
	b := New(nil)
	ch, cancel := b.Subscribe(EventTranscriptionReceived)
	cancel()
	cancel()

	b.Publish(Event{Name: EventTranscriptionReceived})
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after cancel")
	}
}

func TestPublishDuringConcurrentCancelDoesNotPanic(t *testing.T) {
	b := New(nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			b.Publish(Event{Name: EventTranscriptionReceived})
		}
	}()

	for i := 0; i < 2000; i++ {
		_, cancel := b.Subscribe(EventTranscriptionReceived)
		cancel()
	}
	<-done
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	b := New(nil)
	_, cancel := b.Subscribe(EventTranscriptionReceived)
	defer cancel()

	for i := 0; i < 40; i++ {
		b.Publish(Event{Name: EventTranscriptionReceived})
	}
}
