// Package service реализует бизнес-логику сервиса Fadj Ma.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/Ahmadou44/fadj-ma/internal/model"
	"github.com/Ahmadou44/fadj-ma/internal/notification"
	"github.com/Ahmadou44/fadj-ma/internal/repository"
	"github.com/Ahmadou44/fadj-ma/internal/validation"
)

// ErrEmptyCart возвращается при оформлении заказа с пустой корзиной.
var (
	ErrEmptyCart = errors.New("cart is empty")
	// ErrMissingAddress возвращается, если выбрана доставка без адреса.
	ErrMissingAddress = errors.New("delivery address required")
	// ErrInvalidTransition возвращается при недопустимом переходе статуса заказа.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidCredentials возвращается при неверном телефоне или пароле.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPaymentFailed возвращается при любом сбое платёжного сценария.
	ErrPaymentFailed = errors.New("payment failed")
	// ErrInvalidInput возвращается при некорректных входных данных.
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden возвращается при обращении к чужому ресурсу.
	ErrForbidden = errors.New("access denied")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, u model.User, ph *model.Pharmacy) (int64, error)
	GetUserByPhone(ctx context.Context, phone string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)

	ListPharmacies(ctx context.Context) ([]model.Pharmacy, error)
	GetPharmacyByID(ctx context.Context, id int64) (*model.Pharmacy, error)
	GetPharmacyByUser(ctx context.Context, userID int64) (*model.Pharmacy, error)
	ListPendingPharmacies(ctx context.Context) ([]model.Pharmacy, error)
	SetVerification(ctx context.Context, pharmacyID int64, status model.VerificationStatus) (*model.Pharmacy, error)

	UpsertStock(ctx context.Context, pharmacyID int64, drug model.Drug, quantity, price int64) (*model.Stock, error)
	ListInventory(ctx context.Context, pharmacyID int64) ([]model.StockListing, error)
	SearchStock(ctx context.Context, query string) ([]model.StockListing, error)
	DecrementStock(ctx context.Context, pharmacyID, drugID, quantity int64) error
	ListDrugs(ctx context.Context) ([]model.Drug, error)

	CreateOrder(ctx context.Context, o model.Order) (int64, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	ListOrdersByPatient(ctx context.Context, patientID int64) ([]model.Order, error)
	ListOrdersByPharmacy(ctx context.Context, pharmacyID int64) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, target, expected model.OrderStatus) (*model.Order, error)
	PharmacyStats(ctx context.Context, pharmacyID int64) (*repository.Stats, error)

	CreatePayment(ctx context.Context, p model.Payment) (*model.Payment, error)
	GetPayment(ctx context.Context, id int64) (*model.Payment, error)
	ConfirmPayment(ctx context.Context, id int64) (*model.Payment, error)

	ListSubscriptionPlans(ctx context.Context) ([]model.PlanInfo, error)
	GetPlan(ctx context.Context, id int64) (*model.PlanInfo, error)
	GetActiveSubscription(ctx context.Context, pharmacyID int64) (*model.Subscription, error)
	UpsertSubscription(ctx context.Context, s model.Subscription) (*model.Subscription, error)
}

// Notifier публикует события заказа для доставки получателям.
type Notifier interface {
	Publish(e notification.Event)
}

// Service содержит бизнес-логику сервиса Fadj Ma.
type Service struct {
	repo          Repository
	notifier      Notifier
	deliveryFee   int64
	providerDelay time.Duration
}

// NewService создаёт сервис с указанным репозиторием, диспетчером уведомлений
// и стоимостью доставки на дом.
func NewService(repo Repository, notifier Notifier, deliveryFee int64) *Service {
	return &Service{
		repo:          repo,
		notifier:      notifier,
		deliveryFee:   deliveryFee,
		providerDelay: providerDelay,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// PharmacyDetails содержит данные аптеки при регистрации профессионального аккаунта.
type PharmacyDetails struct {
	Name    string
	Address string
	Lat     float64
	Lng     float64
}

// RegisterInput содержит данные регистрации пользователя.
type RegisterInput struct {
	Name            string
	Phone           string
	Password        string
	Role            model.Role
	PharmacyDetails *PharmacyDetails
}

// RegisterUser регистрирует нового пользователя. Для роли PHARMACY вместе с
// пользователем создаётся аптека в статусе PENDING.
func (s *Service) RegisterUser(ctx context.Context, in RegisterInput) (int64, error) {
	phone, ok := validation.NormalizePhone(in.Phone)
	if !ok {
		return 0, ErrInvalidInput
	}
	if in.Name == "" || in.Password == "" || !in.Role.Valid() {
		return 0, ErrInvalidInput
	}

	u := model.User{
		Phone:        phone,
		Name:         in.Name,
		Role:         in.Role,
		PasswordHash: hashPassword(phone, in.Password),
	}

	var ph *model.Pharmacy
	if in.Role == model.RolePharmacy && in.PharmacyDetails != nil {
		name := in.PharmacyDetails.Name
		if name == "" {
			name = in.Name
		}
		ph = &model.Pharmacy{
			Name:      name,
			Address:   in.PharmacyDetails.Address,
			Latitude:  in.PharmacyDetails.Lat,
			Longitude: in.PharmacyDetails.Lng,
		}
	}

	return s.repo.CreateUser(ctx, u, ph)
}

// AuthenticateUser проверяет телефон и пароль и возвращает пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, phone, password string) (*model.User, error) {
	normalized, ok := validation.NormalizePhone(phone)
	if !ok {
		return nil, ErrInvalidCredentials
	}

	u, err := s.repo.GetUserByPhone(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	hashed := hashPassword(normalized, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func hashPassword(phone, password string) []byte {
	sum := sha256.Sum256([]byte(phone + ":" + password))
	return sum[:]
}

// pharmacyOwnedBy возвращает аптеку пользователя и проверяет, что pharmacyID
// принадлежит именно ему. Нулевой pharmacyID означает собственную аптеку.
func (s *Service) pharmacyOwnedBy(ctx context.Context, userID, pharmacyID int64) (*model.Pharmacy, error) {
	ph, err := s.repo.GetPharmacyByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pharmacyID != 0 && ph.ID != pharmacyID {
		return nil, ErrForbidden
	}
	return ph, nil
}
