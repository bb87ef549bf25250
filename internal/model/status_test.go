package model

import "testing"

func TestOrderStatusNext(t *testing.T) {
	tests := []struct {
		status OrderStatus
		next   OrderStatus
		ok     bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusConfirmed, OrderStatusProcessing, true},
		{OrderStatusProcessing, OrderStatusInDelivery, true},
		{OrderStatusInDelivery, OrderStatusDelivered, true},
		{OrderStatusDelivered, "", false},
		{OrderStatusCancelled, "", false},
	}

	for _, tt := range tests {
		next, ok := tt.status.Next()
		if ok != tt.ok || next != tt.next {
			t.Fatalf("Next(%s) = (%s, %v), want (%s, %v)", tt.status, next, ok, tt.next, tt.ok)
		}
	}
}

func TestOrderStatusCanTransition_OnlyFixedSuccessor(t *testing.T) {
	all := []OrderStatus{
		OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusInDelivery, OrderStatusDelivered, OrderStatusCancelled,
	}

	for _, from := range all {
		successor, hasNext := from.Next()
		for _, to := range all {
			got := from.CanTransition(to)

			want := false
			if !from.IsTerminal() {
				if to == OrderStatusCancelled {
					want = true
				} else if hasNext && to == successor {
					want = true
				}
			}

			if got != want {
				t.Fatalf("CanTransition(%s -> %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestOrderStatusCancelFromTerminal(t *testing.T) {
	if OrderStatusDelivered.CanTransition(OrderStatusCancelled) {
		t.Fatalf("delivered order must not be cancellable")
	}
	if OrderStatusCancelled.CanTransition(OrderStatusCancelled) {
		t.Fatalf("cancelled order must not be cancellable")
	}
}

func TestOrderStatusNoRollback(t *testing.T) {
	if OrderStatusConfirmed.CanTransition(OrderStatusPending) {
		t.Fatalf("rollback confirmed -> pending must be rejected")
	}
	if OrderStatusPending.CanTransition(OrderStatusProcessing) {
		t.Fatalf("skipping a state pending -> processing must be rejected")
	}
}
