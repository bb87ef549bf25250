package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ahmadou44/fadj-ma/internal/model"
	"github.com/Ahmadou44/fadj-ma/internal/repository"
	"github.com/Ahmadou44/fadj-ma/internal/validation"
)

// providerDelay имитирует время обработки платежа мобильным провайдером.
const providerDelay = 2 * time.Second

// InitiatePaymentInput содержит данные инициации платежа.
type InitiatePaymentInput struct {
	OrderID     int64
	Method      model.PaymentMethod
	PhoneNumber string
	Amount      int64
}

// InitiatePayment создаёт неподтверждённый платёж по заказу пациента.
// Платёж возможен только по заказу в статусе pending, и сумма обязана
// совпадать с итогом заказа. Повторная инициация по тому же заказу
// возвращает уже созданный неподтверждённый платёж.
func (s *Service) InitiatePayment(ctx context.Context, patientID int64, in InitiatePaymentInput) (*model.Payment, error) {
	if !in.Method.Valid() || !validation.IsValidPhone(in.PhoneNumber) {
		return nil, ErrInvalidInput
	}

	o, err := s.repo.GetOrder(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if o.PatientID != patientID {
		return nil, ErrForbidden
	}

	if o.Status != model.OrderStatusPending {
		return nil, fmt.Errorf("%w: order is %s", ErrPaymentFailed, o.Status)
	}

	if in.Amount != o.Total {
		return nil, fmt.Errorf("%w: amount %d does not match order total %d", ErrPaymentFailed, in.Amount, o.Total)
	}

	phone, _ := validation.NormalizePhone(in.PhoneNumber)

	p, err := s.repo.CreatePayment(ctx, model.Payment{
		OrderID:     in.OrderID,
		Method:      in.Method,
		PhoneNumber: phone,
		Amount:      in.Amount,
	})
	if err != nil {
		if errors.Is(err, repository.ErrPaymentConfirmed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrPaymentFailed, err)
	}

	return p, nil
}

// ConfirmPayment дожидается ответа платёжного провайдера, помечает платёж
// подтверждённым, переводит заказ в confirmed, списывает остатки со склада
// и уведомляет пациента. Подтвердить платёж можно ровно один раз.
func (s *Service) ConfirmPayment(ctx context.Context, patientID, paymentID int64) (*model.Payment, error) {
	p, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	o, err := s.repo.GetOrder(ctx, p.OrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPaymentFailed, err)
	}
	if o.PatientID != patientID {
		return nil, ErrForbidden
	}

	// Ожидание провайдера. Реальной интеграции с Wave/Orange Money нет,
	// подтверждение имитируется фиксированной задержкой.
	timer := time.NewTimer(s.providerDelay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return nil, ctx.Err()
	case <-timer.C:
	}

	confirmed, err := s.repo.ConfirmPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentConfirmed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrPaymentFailed, err)
	}

	// Заказ подтверждается и остатки списываются после оплаты. Если заказ
	// уже ушёл дальше pending, считаем подтверждение сделанным ранее.
	updated, err := s.repo.UpdateOrderStatus(ctx, o.ID, model.OrderStatusConfirmed, model.OrderStatusPending)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return confirmed, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrPaymentFailed, err)
	}

	for _, it := range o.Items {
		if err := s.repo.DecrementStock(ctx, o.PharmacyID, it.DrugID, it.Quantity); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrPaymentFailed, err)
		}
	}

	s.notifyPatient(ctx, updated)

	return confirmed, nil
}
