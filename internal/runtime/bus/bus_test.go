package bus

import (
	"testing"
	"time"
)

func TestPublishInSubscriptionOrder(t *testing.T) {
	b := New[int](nil)
	var order []string
	b.Subscribe("tick", func(v int) { order = append(order, "a") })
	b.Subscribe("tick", func(v int) { order = append(order, "b") })
	b.Subscribe("other", func(v int) { order = append(order, "x") })

	if n := b.Publish("tick", 1); n != 2 {
		t.Fatalf("expected 2 deliveries, got %d", n)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("unexpected delivery order %v", order)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New[string](nil)
	calls := 0
	sub := b.Subscribe("e", func(string) { calls++ })
	keep := b.Subscribe("e", func(string) { calls += 10 })

	if !sub.Valid() || sub.Event != "e" {
		t.Fatalf("unexpected subscription %+v", sub)
	}
	if !b.Unsubscribe(sub) {
		t.Fatal("expected unsubscribe to succeed")
	}
	if b.Unsubscribe(sub) {
		t.Fatal("second unsubscribe must report false")
	}
	b.Publish("e", "x")
	if calls != 10 {
		t.Fatalf("expected only the kept listener, calls=%d", calls)
	}

	b.Unsubscribe(keep)
	if b.HasListeners("e") {
		t.Fatal("expected no listeners")
	}
}

func TestUnsubscribeAllAndClear(t *testing.T) {
	b := New[int](nil)
	b.Subscribe("a", func(int) {})
	b.Subscribe("a", func(int) {})
	b.Subscribe("b", func(int) {})

	if n := b.UnsubscribeAll("a"); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	if b.HasListeners("a") || !b.HasListeners("b") {
		t.Fatal("UnsubscribeAll must only affect its event")
	}
	b.Clear()
	if b.ListenerCount("b") != 0 {
		t.Fatal("expected Clear to drop everything")
	}
}

func TestPanickingListenerDoesNotStopOthers(t *testing.T) {
	var recovered any
	b := New[int](func(event string, sub Subscription, r any) { recovered = r })
	ran := false
	b.Subscribe("e", func(int) { panic("boom") })
	b.Subscribe("e", func(int) { ran = true })

	if n := b.Publish("e", 1); n != 1 {
		t.Fatalf("expected one clean delivery, got %d", n)
	}
	if !ran {
		t.Fatal("second listener must still run")
	}
	if recovered != "boom" {
		t.Fatalf("expected panic to be reported, got %v", recovered)
	}
}

func TestSubscribeNilListener(t *testing.T) {
	b := New[int](nil)
	if sub := b.Subscribe("e", nil); sub.Valid() {
		t.Fatal("nil listener must not be subscribed")
	}
	if b.HasListeners("e") {
		t.Fatal("nil listener must not count")
	}
}

func TestSubscriptionsAreUnique(t *testing.T) {
	b := New[int](nil)
	a := b.Subscribe("e", func(int) {})
	c := b.Subscribe("e", func(int) {})
	if a.ID == c.ID {
		t.Fatal("expected distinct subscription ids")
	}
	subs := b.Subscriptions("e")
	if len(subs) != 2 || subs[0] != a || subs[1] != c {
		t.Fatalf("unexpected subscriptions %v", subs)
	}
}

func TestListenerMayUnsubscribeDuringPublish(t *testing.T) {
	b := New[int](nil)
	var self Subscription
	calls := 0
	self = b.Subscribe("e", func(int) {
		calls++
		b.Unsubscribe(self)
	})
	b.Publish("e", 1)
	b.Publish("e", 2)
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestSubscriptionAddedAt(t *testing.T) {
	b := New[int](nil)
	before := time.Now().Add(-time.Second)
	sub := b.Subscribe("tick", func(int) {})

	at, ok := sub.AddedAt()
	if !ok {
		t.Fatal("expected subscription time")
	}
	if at.Before(before) || at.After(time.Now().Add(time.Second)) {
		t.Fatalf("unexpected subscription time %v", at)
	}
	if _, ok := (Subscription{}).AddedAt(); ok {
		t.Fatal("zero subscription has no time")
	}
}
