package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ahmadou44/fadj-ma/internal/model"
	"github.com/Ahmadou44/fadj-ma/internal/repository"
)

func TestInitiatePayment(t *testing.T) {
	order := &model.Order{ID: 9, PatientID: 7, PharmacyID: 3, Total: 4500, Status: model.OrderStatusPending}

	tests := []struct {
		name      string
		patientID int64
		in        InitiatePaymentInput
		wantErr   error
	}{
		{
			name:      "ok",
			patientID: 7,
			in:        InitiatePaymentInput{OrderID: 9, Method: model.PaymentMethodWave, PhoneNumber: "77 123 45 67", Amount: 4500},
		},
		{
			name:      "amount mismatch",
			patientID: 7,
			in:        InitiatePaymentInput{OrderID: 9, Method: model.PaymentMethodWave, PhoneNumber: "771234567", Amount: 4000},
			wantErr:   ErrPaymentFailed,
		},
		{
			name:      "unknown method",
			patientID: 7,
			in:        InitiatePaymentInput{OrderID: 9, Method: "paypal", PhoneNumber: "771234567", Amount: 4500},
			wantErr:   ErrInvalidInput,
		},
		{
			name:      "invalid phone",
			patientID: 7,
			in:        InitiatePaymentInput{OrderID: 9, Method: model.PaymentMethodOrange, PhoneNumber: "12345", Amount: 4500},
			wantErr:   ErrInvalidInput,
		},
		{
			name:      "foreign order",
			patientID: 8,
			in:        InitiatePaymentInput{OrderID: 9, Method: model.PaymentMethodWave, PhoneNumber: "771234567", Amount: 4500},
			wantErr:   ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubRepo{order: order}
			svc := NewService(repo, nil, 2000)

			p, err := svc.InitiatePayment(context.Background(), tt.patientID, tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("InitiatePayment error: %v", err)
			}
			if p.OrderID != 9 || p.Amount != 4500 {
				t.Errorf("payment = %+v", p)
			}
			if p.PhoneNumber != "771234567" {
				t.Errorf("phone not normalized: %q", p.PhoneNumber)
			}
			if p.Confirmed {
				t.Errorf("payment must start unconfirmed")
			}
		})
	}
}

func TestInitiatePayment_OrderNotPending(t *testing.T) {
	for _, status := range []model.OrderStatus{
		model.OrderStatusCancelled,
		model.OrderStatusConfirmed,
		model.OrderStatusDelivered,
	} {
		t.Run(string(status), func(t *testing.T) {
			repo := &stubRepo{
				order: &model.Order{ID: 9, PatientID: 7, Total: 4500, Status: status},
			}
			svc := NewService(repo, nil, 2000)

			_, err := svc.InitiatePayment(context.Background(), 7, InitiatePaymentInput{
				OrderID:     9,
				Method:      model.PaymentMethodWave,
				PhoneNumber: "771234567",
				Amount:      4500,
			})
			if !errors.Is(err, ErrPaymentFailed) {
				t.Fatalf("expected ErrPaymentFailed, got %v", err)
			}
			if repo.createdPayment != nil {
				t.Fatalf("payment must not be created for a %s order", status)
			}
		})
	}
}

func TestInitiatePayment_AlreadyConfirmed(t *testing.T) {
	repo := &stubRepo{
		order:            &model.Order{ID: 9, PatientID: 7, Total: 4500, Status: model.OrderStatusPending},
		createPaymentErr: repository.ErrPaymentConfirmed,
	}
	svc := NewService(repo, nil, 2000)

	_, err := svc.InitiatePayment(context.Background(), 7, InitiatePaymentInput{
		OrderID:     9,
		Method:      model.PaymentMethodWave,
		PhoneNumber: "771234567",
		Amount:      4500,
	})
	if !errors.Is(err, repository.ErrPaymentConfirmed) {
		t.Fatalf("expected ErrPaymentConfirmed, got %v", err)
	}
}

func TestConfirmPayment(t *testing.T) {
	repo := &stubRepo{
		payment: &model.Payment{ID: 5, OrderID: 9, Method: model.PaymentMethodWave, Amount: 4500},
		order: &model.Order{
			ID:         9,
			PatientID:  7,
			PharmacyID: 3,
			Status:     model.OrderStatusPending,
			Items: []model.OrderItem{
				{DrugID: 1, Quantity: 2},
				{DrugID: 2, Quantity: 1},
			},
		},
		confirmedPayment: &model.Payment{ID: 5, OrderID: 9, Amount: 4500, Confirmed: true},
		updatedOrder:     &model.Order{ID: 9, PatientID: 7, PharmacyID: 3, Status: model.OrderStatusConfirmed},
		userByID:         &model.User{ID: 7, Phone: "770000000"},
	}
	n := &stubNotifier{}
	svc := &Service{repo: repo, notifier: n, deliveryFee: 2000, providerDelay: time.Millisecond}

	p, err := svc.ConfirmPayment(context.Background(), 7, 5)
	if err != nil {
		t.Fatalf("ConfirmPayment error: %v", err)
	}
	if !p.Confirmed {
		t.Errorf("payment must be confirmed")
	}

	if len(repo.updateCalls) != 1 {
		t.Fatalf("update calls = %d, want 1", len(repo.updateCalls))
	}
	call := repo.updateCalls[0]
	if call.target != model.OrderStatusConfirmed || call.expected != model.OrderStatusPending {
		t.Errorf("update %s -> %s, want pending -> confirmed", call.expected, call.target)
	}

	want := []decrement{
		{pharmacyID: 3, drugID: 1, quantity: 2},
		{pharmacyID: 3, drugID: 2, quantity: 1},
	}
	if len(repo.decrements) != len(want) {
		t.Fatalf("decrements = %d, want %d", len(repo.decrements), len(want))
	}
	for i, d := range want {
		if repo.decrements[i] != d {
			t.Errorf("decrement[%d] = %+v, want %+v", i, repo.decrements[i], d)
		}
	}

	if len(n.events) != 1 {
		t.Fatalf("events = %d, want 1", len(n.events))
	}
	if n.events[0].Type != "order_confirmed" || n.events[0].OrderID != 9 {
		t.Errorf("event = %+v", n.events[0])
	}
}

func TestConfirmPayment_SecondConfirmation(t *testing.T) {
	repo := &stubRepo{
		payment:           &model.Payment{ID: 5, OrderID: 9, Confirmed: true},
		order:             &model.Order{ID: 9, PatientID: 7, Status: model.OrderStatusConfirmed},
		confirmPaymentErr: repository.ErrPaymentConfirmed,
	}
	svc := &Service{repo: repo, providerDelay: time.Millisecond}

	_, err := svc.ConfirmPayment(context.Background(), 7, 5)
	if !errors.Is(err, repository.ErrPaymentConfirmed) {
		t.Fatalf("expected ErrPaymentConfirmed, got %v", err)
	}
	if len(repo.decrements) != 0 {
		t.Fatalf("stock must not be decremented twice")
	}
}

func TestConfirmPayment_OrderAlreadyAdvanced(t *testing.T) {
	repo := &stubRepo{
		payment:          &model.Payment{ID: 5, OrderID: 9},
		order:            &model.Order{ID: 9, PatientID: 7, Status: model.OrderStatusProcessing},
		confirmedPayment: &model.Payment{ID: 5, OrderID: 9, Confirmed: true},
		updateStatusErr:  repository.ErrStatusConflict,
	}
	svc := &Service{repo: repo, providerDelay: time.Millisecond}

	p, err := svc.ConfirmPayment(context.Background(), 7, 5)
	if err != nil {
		t.Fatalf("ConfirmPayment error: %v", err)
	}
	if !p.Confirmed {
		t.Errorf("payment must be confirmed")
	}
	if len(repo.decrements) != 0 {
		t.Fatalf("stock must not be decremented when order already advanced")
	}
}

func TestConfirmPayment_ForeignPayment(t *testing.T) {
	repo := &stubRepo{
		payment: &model.Payment{ID: 5, OrderID: 9},
		order:   &model.Order{ID: 9, PatientID: 7},
	}
	svc := &Service{repo: repo, providerDelay: time.Millisecond}

	_, err := svc.ConfirmPayment(context.Background(), 8, 5)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestConfirmPayment_ContextCancelled(t *testing.T) {
	repo := &stubRepo{
		payment: &model.Payment{ID: 5, OrderID: 9},
		order:   &model.Order{ID: 9, PatientID: 7},
	}
	svc := &Service{repo: repo, providerDelay: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ConfirmPayment(ctx, 7, 5)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
