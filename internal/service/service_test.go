package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Ahmadou44/fadj-ma/internal/model"
	"github.com/Ahmadou44/fadj-ma/internal/notification"
	"github.com/Ahmadou44/fadj-ma/internal/repository"
)

type stubRepo struct {
	createUserID  int64
	createUserErr error
	createdUser   model.User
	createdPharm  *model.Pharmacy

	userByPhone    *model.User
	userByPhoneErr error
	userByID       *model.User
	userByIDErr    error

	pharmacyByUser    *model.Pharmacy
	pharmacyByUserErr error
	pharmacyByID      *model.Pharmacy

	createOrderErr error
	createdOrder   model.Order
	order          *model.Order
	orderErr       error

	updatedOrder    *model.Order
	updateStatusErr error
	updateCalls     []statusUpdate

	payment           *model.Payment
	paymentErr        error
	createdPayment    *model.Payment
	createPaymentErr  error
	confirmedPayment  *model.Payment
	confirmPaymentErr error

	decrements []decrement

	listings    []model.StockListing
	listingsErr error
	pharmacies  []model.Pharmacy

	plan         *model.PlanInfo
	planErr      error
	subscription *model.Subscription
	subErr       error
}

type statusUpdate struct {
	orderID          int64
	target, expected model.OrderStatus
}

type decrement struct {
	pharmacyID, drugID, quantity int64
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateUser(ctx context.Context, u model.User, ph *model.Pharmacy) (int64, error) {
	s.createdUser = u
	s.createdPharm = ph
	return s.createUserID, s.createUserErr
}

func (s *stubRepo) GetUserByPhone(ctx context.Context, phone string) (*model.User, error) {
	return s.userByPhone, s.userByPhoneErr
}

func (s *stubRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.userByID, s.userByIDErr
}

func (s *stubRepo) ListPharmacies(ctx context.Context) ([]model.Pharmacy, error) {
	return s.pharmacies, nil
}

func (s *stubRepo) GetPharmacyByID(ctx context.Context, id int64) (*model.Pharmacy, error) {
	return s.pharmacyByID, nil
}

func (s *stubRepo) GetPharmacyByUser(ctx context.Context, userID int64) (*model.Pharmacy, error) {
	return s.pharmacyByUser, s.pharmacyByUserErr
}

func (s *stubRepo) ListPendingPharmacies(ctx context.Context) ([]model.Pharmacy, error) {
	return s.pharmacies, nil
}

func (s *stubRepo) SetVerification(ctx context.Context, pharmacyID int64, status model.VerificationStatus) (*model.Pharmacy, error) {
	return s.pharmacyByID, nil
}

func (s *stubRepo) UpsertStock(ctx context.Context, pharmacyID int64, drug model.Drug, quantity, price int64) (*model.Stock, error) {
	return &model.Stock{PharmacyID: pharmacyID, Quantity: quantity, Price: price}, nil
}

func (s *stubRepo) ListInventory(ctx context.Context, pharmacyID int64) ([]model.StockListing, error) {
	return s.listings, s.listingsErr
}

func (s *stubRepo) SearchStock(ctx context.Context, query string) ([]model.StockListing, error) {
	return s.listings, s.listingsErr
}

func (s *stubRepo) DecrementStock(ctx context.Context, pharmacyID, drugID, quantity int64) error {
	s.decrements = append(s.decrements, decrement{pharmacyID, drugID, quantity})
	return nil
}

func (s *stubRepo) ListDrugs(ctx context.Context) ([]model.Drug, error) {
	return nil, nil
}

func (s *stubRepo) CreateOrder(ctx context.Context, o model.Order) (int64, error) {
	s.createdOrder = o
	s.createdOrder.ID = 1
	return 1, s.createOrderErr
}

func (s *stubRepo) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	if s.order != nil || s.orderErr != nil {
		return s.order, s.orderErr
	}
	o := s.createdOrder
	return &o, nil
}

func (s *stubRepo) ListOrdersByPatient(ctx context.Context, patientID int64) ([]model.Order, error) {
	return nil, nil
}

func (s *stubRepo) ListOrdersByPharmacy(ctx context.Context, pharmacyID int64) ([]model.Order, error) {
	return nil, nil
}

func (s *stubRepo) UpdateOrderStatus(ctx context.Context, id int64, target, expected model.OrderStatus) (*model.Order, error) {
	s.updateCalls = append(s.updateCalls, statusUpdate{id, target, expected})
	return s.updatedOrder, s.updateStatusErr
}

func (s *stubRepo) PharmacyStats(ctx context.Context, pharmacyID int64) (*repository.Stats, error) {
	return &repository.Stats{}, nil
}

func (s *stubRepo) CreatePayment(ctx context.Context, p model.Payment) (*model.Payment, error) {
	s.createdPayment = &p
	if s.createPaymentErr != nil {
		return nil, s.createPaymentErr
	}
	return &p, nil
}

func (s *stubRepo) GetPayment(ctx context.Context, id int64) (*model.Payment, error) {
	return s.payment, s.paymentErr
}

func (s *stubRepo) ConfirmPayment(ctx context.Context, id int64) (*model.Payment, error) {
	return s.confirmedPayment, s.confirmPaymentErr
}

func (s *stubRepo) ListSubscriptionPlans(ctx context.Context) ([]model.PlanInfo, error) {
	return nil, nil
}

func (s *stubRepo) GetPlan(ctx context.Context, id int64) (*model.PlanInfo, error) {
	return s.plan, s.planErr
}

func (s *stubRepo) GetActiveSubscription(ctx context.Context, pharmacyID int64) (*model.Subscription, error) {
	return s.subscription, s.subErr
}

func (s *stubRepo) UpsertSubscription(ctx context.Context, sub model.Subscription) (*model.Subscription, error) {
	return &sub, nil
}

type stubNotifier struct {
	events []notification.Event
}

func (n *stubNotifier) Publish(e notification.Event) {
	n.events = append(n.events, e)
}

func TestHashPasswordDeterministic(t *testing.T) {
	a := hashPassword("770000000", "pass")
	b := hashPassword("770000000", "pass")
	c := hashPassword("770000000", "other")

	if string(a) != string(b) {
		t.Fatalf("hashPassword must be deterministic, got %x and %x", a, b)
	}
	if string(a) == string(c) {
		t.Fatalf("different passwords must produce different hashes")
	}
}

func TestRegisterUser_InvalidPhone(t *testing.T) {
	svc := NewService(&stubRepo{}, nil, 2000)

	_, err := svc.RegisterUser(context.Background(), RegisterInput{
		Name:     "Awa",
		Phone:    "12345",
		Password: "pass",
		Role:     model.RolePatient,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRegisterUser_PropagatesDuplicateError(t *testing.T) {
	repo := &stubRepo{
		createUserErr: repository.ErrUserExists,
	}
	svc := NewService(repo, nil, 2000)

	_, err := svc.RegisterUser(context.Background(), RegisterInput{
		Name:     "Awa",
		Phone:    "770000000",
		Password: "pass",
		Role:     model.RolePatient,
	})
	if !errors.Is(err, repository.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestRegisterUser_PharmacyDetails(t *testing.T) {
	repo := &stubRepo{createUserID: 5}
	svc := NewService(repo, nil, 2000)

	id, err := svc.RegisterUser(context.Background(), RegisterInput{
		Name:     "Pharmacie Centrale",
		Phone:    "+221770000000",
		Password: "pass",
		Role:     model.RolePharmacy,
		PharmacyDetails: &PharmacyDetails{
			Address: "Plateau, Dakar",
			Lat:     14.6708,
			Lng:     -17.4381,
		},
	})
	if err != nil {
		t.Fatalf("RegisterUser error: %v", err)
	}
	if id != 5 {
		t.Fatalf("id = %d, want 5", id)
	}
	if repo.createdUser.Phone != "770000000" {
		t.Fatalf("phone not normalized: %q", repo.createdUser.Phone)
	}
	if repo.createdPharm == nil {
		t.Fatalf("pharmacy details not passed to repository")
	}
	if repo.createdPharm.Name != "Pharmacie Centrale" {
		t.Fatalf("pharmacy name must default to user name, got %q", repo.createdPharm.Name)
	}
}

func TestAuthenticateUser_InvalidCredentials(t *testing.T) {
	hashed := hashPassword("770000000", "correct")
	repo := &stubRepo{
		userByPhone: &model.User{
			ID:           1,
			Phone:        "770000000",
			Role:         model.RolePatient,
			PasswordHash: hashed,
		},
	}
	svc := NewService(repo, nil, 2000)

	_, err := svc.AuthenticateUser(context.Background(), "770000000", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateUser_UnknownUser(t *testing.T) {
	repo := &stubRepo{
		userByPhoneErr: repository.ErrUserNotFound,
	}
	svc := NewService(repo, nil, 2000)

	_, err := svc.AuthenticateUser(context.Background(), "770000000", "pass")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyPharmacy_RejectsPending(t *testing.T) {
	svc := NewService(&stubRepo{}, nil, 2000)

	_, err := svc.VerifyPharmacy(context.Background(), 1, model.VerificationPending)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for PENDING, got %v", err)
	}
}
