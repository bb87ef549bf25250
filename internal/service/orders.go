package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ahmadou44/fadj-ma/internal/model"
	"github.com/Ahmadou44/fadj-ma/internal/notification"
	"github.com/Ahmadou44/fadj-ma/internal/repository"
)

// CheckoutInput содержит корзину и способ получения заказа.
type CheckoutInput struct {
	PharmacyID      int64
	Items           []model.OrderItem
	DeliveryMode    model.DeliveryMode
	DeliveryAddress string
}

// Checkout оформляет заказ пациента: проверяет корзину, считает суммы и
// сохраняет заказ в статусе pending.
// Итог: subtotal = Σ(цена × количество), total = subtotal + стоимость доставки.
func (s *Service) Checkout(ctx context.Context, patientID int64, in CheckoutInput) (*model.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if !in.DeliveryMode.Valid() {
		return nil, ErrInvalidInput
	}
	if in.DeliveryMode == model.DeliveryModeDelivery && in.DeliveryAddress == "" {
		return nil, ErrMissingAddress
	}

	var subtotal int64
	for _, it := range in.Items {
		if it.Price <= 0 || it.Quantity <= 0 {
			return nil, ErrInvalidInput
		}
		subtotal += it.Price * it.Quantity
	}

	var fee int64
	if in.DeliveryMode == model.DeliveryModeDelivery {
		fee = s.deliveryFee
	}

	address := in.DeliveryAddress
	if in.DeliveryMode == model.DeliveryModePickup {
		address = ""
	}

	o := model.Order{
		PatientID:       patientID,
		PharmacyID:      in.PharmacyID,
		Items:           in.Items,
		DeliveryMode:    in.DeliveryMode,
		DeliveryAddress: address,
		Subtotal:        subtotal,
		DeliveryFee:     fee,
		Total:           subtotal + fee,
		Status:          model.OrderStatusPending,
	}

	id, err := s.repo.CreateOrder(ctx, o)
	if err != nil {
		return nil, err
	}

	return s.repo.GetOrder(ctx, id)
}

// GetOrderForUser возвращает заказ, если он принадлежит запрашивающему:
// пациенту-владельцу, аптеке заказа или администратору.
func (s *Service) GetOrderForUser(ctx context.Context, userID int64, role model.Role, orderID int64) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOrderAccess(ctx, userID, role, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) checkOrderAccess(ctx context.Context, userID int64, role model.Role, o *model.Order) error {
	switch role {
	case model.RoleAdmin:
		return nil
	case model.RolePatient:
		if o.PatientID != userID {
			return ErrForbidden
		}
		return nil
	case model.RolePharmacy:
		ph, err := s.repo.GetPharmacyByUser(ctx, userID)
		if err != nil {
			return err
		}
		if o.PharmacyID != ph.ID {
			return ErrForbidden
		}
		return nil
	}
	return ErrForbidden
}

// ListPatientOrders возвращает заказы пациента, новые первыми.
func (s *Service) ListPatientOrders(ctx context.Context, patientID int64) ([]model.Order, error) {
	return s.repo.ListOrdersByPatient(ctx, patientID)
}

// ListPharmacyOrders возвращает заказы аптеки, принадлежащей пользователю.
func (s *Service) ListPharmacyOrders(ctx context.Context, userID, pharmacyID int64) ([]model.Order, error) {
	ph, err := s.pharmacyOwnedBy(ctx, userID, pharmacyID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListOrdersByPharmacy(ctx, ph.ID)
}

// AdvanceOrderStatus переводит заказ аптеки в target. Разрешён только переход
// в фиксированный следующий статус; отмена — отдельной операцией CancelOrder.
// О смене статуса пациенту отправляется уведомление.
func (s *Service) AdvanceOrderStatus(ctx context.Context, userID, orderID int64, target model.OrderStatus) (*model.Order, error) {
	if !target.Valid() {
		return nil, ErrInvalidInput
	}

	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	ph, err := s.repo.GetPharmacyByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if o.PharmacyID != ph.ID {
		return nil, ErrForbidden
	}

	if target == model.OrderStatusCancelled {
		return s.cancel(ctx, o)
	}

	if !o.Status.CanTransition(target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, target)
	}

	updated, err := s.repo.UpdateOrderStatus(ctx, orderID, target, o.Status)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, target)
		}
		return nil, err
	}

	s.notifyPatient(ctx, updated)

	return updated, nil
}

// CancelOrder отменяет заказ по требованию пациента-владельца или аптеки.
// Отмена допустима из любого нетерминального статуса.
func (s *Service) CancelOrder(ctx context.Context, userID int64, role model.Role, orderID int64) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOrderAccess(ctx, userID, role, o); err != nil {
		return nil, err
	}
	return s.cancel(ctx, o)
}

func (s *Service) cancel(ctx context.Context, o *model.Order) (*model.Order, error) {
	if !o.Status.CanTransition(model.OrderStatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, model.OrderStatusCancelled)
	}

	updated, err := s.repo.UpdateOrderStatus(ctx, o.ID, model.OrderStatusCancelled, o.Status)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, model.OrderStatusCancelled)
		}
		return nil, err
	}

	s.notifyPatient(ctx, updated)

	return updated, nil
}

// notifyPatient публикует событие смены статуса. Ошибки получения адресата
// не влияют на результат операции.
func (s *Service) notifyPatient(ctx context.Context, o *model.Order) {
	if s.notifier == nil {
		return
	}
	recipient := ""
	if patient, err := s.repo.GetUserByID(ctx, o.PatientID); err == nil {
		recipient = patient.Phone
	}
	s.notifier.Publish(notification.OrderEvent(string(o.Status), o.ID, recipient))
}
