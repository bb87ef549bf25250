package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestOrderEvent(t *testing.T) {
	e := OrderEvent("confirmed", 9, "770000000")

	if e.Type != "order_confirmed" {
		t.Errorf("type = %q, want %q", e.Type, "order_confirmed")
	}
	if e.OrderID != 9 || e.Recipient != "770000000" {
		t.Errorf("event = %+v", e)
	}
}

func TestDispatcher_Delivers(t *testing.T) {
	received := make(chan Event, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/notifications" {
			t.Errorf("path = %q, want /api/notifications", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q, want application/json", ct)
		}

		var e Event
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			t.Errorf("decode event: %v", err)
		}
		received <- e
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Publish(OrderEvent("confirmed", 9, "770000000"))

	select {
	case e := <-received:
		if e.Type != "order_confirmed" || e.OrderID != 9 || e.Recipient != "770000000" {
			t.Errorf("delivered event = %+v", e)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestDispatcher_EmptyAddress(t *testing.T) {
	d := NewDispatcher("", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	// События принимаются и отбрасываются без попыток доставки.
	d.Publish(OrderEvent("pending", 1, "770000000"))
	d.Publish(OrderEvent("cancelled", 2, "770000000"))

	time.Sleep(50 * time.Millisecond)
}

func TestDispatcher_DropsWhenQueueFull(t *testing.T) {
	d := NewDispatcher("", zap.NewNop())

	// Без запущенного Run очередь не вычитывается: переполнение не должно
	// блокировать публикующего.
	done := make(chan struct{})
	go func() {
		for i := 0; i < queueSize*2; i++ {
			d.Publish(OrderEvent("pending", int64(i), "770000000"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish must not block on a full queue")
	}
}
