package events

import (
	"testing"

	"github.com/reelclub/reelclub/internal/domain"
)

func TestBus_PublishReachesAllSubscribersInOrder(t *testing.T) {
	bus := NewBus()

	var order []int
	bus.Subscribe(func(domain.Event) { order = append(order, 1) })
	bus.Subscribe(func(domain.Event) { order = append(order, 2) })

	bus.Publish(domain.SessionEnded{})

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("dispatch order = %v, want [1 2]", order)
	}
}

func TestBus_PublishIsSynchronous(t *testing.T) {
	bus := NewBus()

	done := false
	bus.Subscribe(func(domain.Event) { done = true })
	bus.Publish(domain.PostDeleted{PostID: 1})

	if !done {
		t.Fatal("handler should run before Publish returns")
	}
}

func TestBus_HandlerMayPublish(t *testing.T) {
	bus := NewBus()

	var seen []domain.Event
	bus.Subscribe(func(evt domain.Event) {
		seen = append(seen, evt)
		if _, ok := evt.(domain.SessionEstablished); ok {
			bus.Publish(domain.SessionEnded{})
		}
	})

	bus.Publish(domain.SessionEstablished{})

	if len(seen) != 2 {
		t.Fatalf("seen %d events, want 2 (reentrant publish)", len(seen))
	}
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	NewBus().Publish(domain.SessionEnded{})
}
