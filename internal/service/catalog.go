package service

import (
	"context"
	"time"

	"github.com/Ahmadou44/fadj-ma/internal/geo"
	"github.com/Ahmadou44/fadj-ma/internal/model"
	"github.com/Ahmadou44/fadj-ma/internal/repository"
)

// GeoFilter ограничивает выборку радиусом вокруг точки пользователя.
type GeoFilter struct {
	Lat      float64
	Lng      float64
	RadiusKm float64
}

// ListPharmacies возвращает аптеки, при заданном фильтре — только в радиусе
// от указанной точки.
func (s *Service) ListPharmacies(ctx context.Context, filter *GeoFilter) ([]model.Pharmacy, error) {
	pharmacies, err := s.repo.ListPharmacies(ctx)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return pharmacies, nil
	}

	res := make([]model.Pharmacy, 0, len(pharmacies))
	for _, p := range pharmacies {
		if geo.WithinRadius(filter.Lat, filter.Lng, p.Latitude, p.Longitude, filter.RadiusKm) {
			res = append(res, p)
		}
	}
	return res, nil
}

// SearchStock ищет препараты в наличии по подстроке имени.
// Поиск регистрозависимый. При заданном фильтре результат ограничивается
// аптеками в радиусе от точки пользователя.
func (s *Service) SearchStock(ctx context.Context, query string, filter *GeoFilter) ([]model.StockListing, error) {
	listings, err := s.repo.SearchStock(ctx, query)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return listings, nil
	}

	res := make([]model.StockListing, 0, len(listings))
	for _, l := range listings {
		if geo.WithinRadius(filter.Lat, filter.Lng, l.Pharmacy.Latitude, l.Pharmacy.Longitude, filter.RadiusKm) {
			res = append(res, l)
		}
	}
	return res, nil
}

// OwnPharmacy возвращает аптеку, принадлежащую пользователю.
func (s *Service) OwnPharmacy(ctx context.Context, userID int64) (*model.Pharmacy, error) {
	return s.repo.GetPharmacyByUser(ctx, userID)
}

// ListInventory возвращает склад аптеки.
func (s *Service) ListInventory(ctx context.Context, pharmacyID int64) ([]model.StockListing, error) {
	return s.repo.ListInventory(ctx, pharmacyID)
}

// ListDrugs возвращает глобальный каталог препаратов.
func (s *Service) ListDrugs(ctx context.Context) ([]model.Drug, error) {
	return s.repo.ListDrugs(ctx)
}

// AddInventoryInput содержит данные позиции склада.
type AddInventoryInput struct {
	PharmacyID int64
	DrugName   string
	Form       string
	Class      string
	Quantity   int64
	Price      int64
}

// AddInventory добавляет или обновляет позицию склада собственной аптеки
// пользователя. Препарат создаётся в каталоге, если его там ещё нет.
func (s *Service) AddInventory(ctx context.Context, userID int64, in AddInventoryInput) (*model.Stock, error) {
	if in.DrugName == "" || in.Quantity < 0 || in.Price <= 0 {
		return nil, ErrInvalidInput
	}

	ph, err := s.pharmacyOwnedBy(ctx, userID, in.PharmacyID)
	if err != nil {
		return nil, err
	}

	drug := model.Drug{Name: in.DrugName, Form: in.Form, Class: in.Class}
	return s.repo.UpsertStock(ctx, ph.ID, drug, in.Quantity, in.Price)
}

// PharmacyStats возвращает показатели дашборда собственной аптеки пользователя.
func (s *Service) PharmacyStats(ctx context.Context, userID, pharmacyID int64) (*repository.Stats, error) {
	ph, err := s.pharmacyOwnedBy(ctx, userID, pharmacyID)
	if err != nil {
		return nil, err
	}
	return s.repo.PharmacyStats(ctx, ph.ID)
}

// ListPendingPharmacies возвращает аптеки, ожидающие проверки администратором.
func (s *Service) ListPendingPharmacies(ctx context.Context) ([]model.Pharmacy, error) {
	return s.repo.ListPendingPharmacies(ctx)
}

// VerifyPharmacy выставляет решение администратора по аптеке:
// допустимы только VERIFIED и REJECTED.
func (s *Service) VerifyPharmacy(ctx context.Context, pharmacyID int64, status model.VerificationStatus) (*model.Pharmacy, error) {
	if status != model.VerificationVerified && status != model.VerificationRejected {
		return nil, ErrInvalidInput
	}
	return s.repo.SetVerification(ctx, pharmacyID, status)
}

// subscriptionPeriod — длительность оплаченного периода подписки.
const subscriptionPeriod = 30 * 24 * time.Hour

// ListSubscriptionPlans возвращает справочник тарифов.
func (s *Service) ListSubscriptionPlans(ctx context.Context) ([]model.PlanInfo, error) {
	return s.repo.ListSubscriptionPlans(ctx)
}

// CurrentSubscription возвращает активную подписку аптеки пользователя.
func (s *Service) CurrentSubscription(ctx context.Context, userID int64) (*model.Subscription, error) {
	ph, err := s.repo.GetPharmacyByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetActiveSubscription(ctx, ph.ID)
}

// UpgradeSubscription переводит аптеку пользователя на тариф planID.
// Новая подписка замещает предыдущую.
func (s *Service) UpgradeSubscription(ctx context.Context, userID, planID int64) (*model.Subscription, error) {
	ph, err := s.repo.GetPharmacyByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	expires := time.Now().Add(subscriptionPeriod)
	return s.repo.UpsertSubscription(ctx, model.Subscription{
		PharmacyID:      ph.ID,
		Plan:            plan.Type,
		RenewalPrice:    plan.Price,
		ExpiresAt:       expires,
		NextRenewalDate: expires,
	})
}
