// Package handler содержит HTTP-обработчики API сервиса Fadj Ma.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Ahmadou44/fadj-ma/internal/middleware"
	"github.com/Ahmadou44/fadj-ma/internal/model"
	"github.com/Ahmadou44/fadj-ma/internal/repository"
	"github.com/Ahmadou44/fadj-ma/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, in service.RegisterInput) (int64, error)
	AuthenticateUser(ctx context.Context, phone, password string) (*model.User, error)
	OwnPharmacy(ctx context.Context, userID int64) (*model.Pharmacy, error)

	ListPharmacies(ctx context.Context, filter *service.GeoFilter) ([]model.Pharmacy, error)
	SearchStock(ctx context.Context, query string, filter *service.GeoFilter) ([]model.StockListing, error)
	ListInventory(ctx context.Context, pharmacyID int64) ([]model.StockListing, error)
	AddInventory(ctx context.Context, userID int64, in service.AddInventoryInput) (*model.Stock, error)
	ListDrugs(ctx context.Context) ([]model.Drug, error)
	PharmacyStats(ctx context.Context, userID, pharmacyID int64) (*repository.Stats, error)
	ListPendingPharmacies(ctx context.Context) ([]model.Pharmacy, error)
	VerifyPharmacy(ctx context.Context, pharmacyID int64, status model.VerificationStatus) (*model.Pharmacy, error)

	Checkout(ctx context.Context, patientID int64, in service.CheckoutInput) (*model.Order, error)
	GetOrderForUser(ctx context.Context, userID int64, role model.Role, orderID int64) (*model.Order, error)
	ListPatientOrders(ctx context.Context, patientID int64) ([]model.Order, error)
	ListPharmacyOrders(ctx context.Context, userID, pharmacyID int64) ([]model.Order, error)
	AdvanceOrderStatus(ctx context.Context, userID, orderID int64, target model.OrderStatus) (*model.Order, error)
	CancelOrder(ctx context.Context, userID int64, role model.Role, orderID int64) (*model.Order, error)

	InitiatePayment(ctx context.Context, patientID int64, in service.InitiatePaymentInput) (*model.Payment, error)
	ConfirmPayment(ctx context.Context, patientID, paymentID int64) (*model.Payment, error)

	ListSubscriptionPlans(ctx context.Context) ([]model.PlanInfo, error)
	CurrentSubscription(ctx context.Context, userID int64) (*model.Subscription, error)
	UpgradeSubscription(ctx context.Context, userID, planID int64) (*model.Subscription, error)
}

// Handler реализует HTTP-обработчики API сервиса Fadj Ma.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// handleServiceError транслирует ошибки бизнес-логики в HTTP-коды.
// Неожиданные ошибки логируются и отдаются как 500 с общим сообщением.
func (h *Handler) handleServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrMissingAddress),
		errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrUserExists):
		writeError(w, http.StatusBadRequest, "User already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrPharmacyNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrPaymentNotFound),
		errors.Is(err, repository.ErrPlanNotFound),
		errors.Is(err, repository.ErrSubscriptionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, repository.ErrPaymentConfirmed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrPaymentFailed):
		writeError(w, http.StatusPaymentRequired, "Payment failed")
	case errors.Is(err, context.Canceled):
		// клиент ушёл, отвечать некому
	default:
		h.logger.Error(op+" error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}

func urlParamID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// Health отвечает на проверку работоспособности сервиса.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

type registerRequest struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	Role            string `json:"role"`
	PharmacyDetails *struct {
		Name    string  `json:"name"`
		Address string  `json:"address"`
		Lat     float64 `json:"lat"`
		Lng     float64 `json:"lng"`
	} `json:"pharmacyDetails"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in := service.RegisterInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     model.Role(req.Role),
	}
	if req.PharmacyDetails != nil {
		in.PharmacyDetails = &service.PharmacyDetails{
			Name:    req.PharmacyDetails.Name,
			Address: req.PharmacyDetails.Address,
			Lat:     req.PharmacyDetails.Lat,
			Lng:     req.PharmacyDetails.Lng,
		}
	}

	userID, err := h.service.RegisterUser(r.Context(), in)
	if err != nil {
		h.handleServiceError(w, err, "register user")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "User created",
		"userId":  userID,
	})
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       int64             `json:"id"`
	Name     string            `json:"name"`
	Phone    string            `json:"phone"`
	Role     string            `json:"role"`
	Pharmacy *pharmacyResponse `json:"pharmacy,omitempty"`
}

// Login выполняет аутентификацию пользователя и выдаёт bearer-токен.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Phone == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Phone and password required")
		return
	}

	u, err := h.service.AuthenticateUser(r.Context(), req.Phone, req.Password)
	if err != nil {
		h.handleServiceError(w, err, "login user")
		return
	}

	resp := userResponse{
		ID:    u.ID,
		Name:  u.Name,
		Phone: u.Phone,
		Role:  string(u.Role),
	}
	if u.Role == model.RolePharmacy {
		if ph, phErr := h.service.OwnPharmacy(r.Context(), u.ID); phErr == nil {
			p := toPharmacyResponse(*ph)
			resp.Pharmacy = &p
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": h.authMiddleware.IssueToken(u.ID, u.Role),
		"user":  resp,
	})
}
