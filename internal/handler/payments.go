package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Ahmadou44/fadj-ma/internal/middleware"
	"github.com/Ahmadou44/fadj-ma/internal/model"
	"github.com/Ahmadou44/fadj-ma/internal/service"
)

type paymentResponse struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"orderId"`
	Method      string `json:"method"`
	PhoneNumber string `json:"phoneNumber"`
	Amount      int64  `json:"amount"`
	Confirmed   bool   `json:"confirmed"`
	CreatedAt   string `json:"createdAt"`
}

func toPaymentResponse(p model.Payment) paymentResponse {
	return paymentResponse{
		ID:          p.ID,
		OrderID:     p.OrderID,
		Method:      string(p.Method),
		PhoneNumber: p.PhoneNumber,
		Amount:      p.Amount,
		Confirmed:   p.Confirmed,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}

type initiatePaymentRequest struct {
	OrderID     int64  `json:"orderId"`
	Method      string `json:"method"`
	PhoneNumber string `json:"phoneNumber"`
	Amount      int64  `json:"amount"`
}

// InitiatePayment создаёт неподтверждённый платёж по заказу текущего пациента.
func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req initiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.service.InitiatePayment(r.Context(), userID, service.InitiatePaymentInput{
		OrderID:     req.OrderID,
		Method:      model.PaymentMethod(req.Method),
		PhoneNumber: req.PhoneNumber,
		Amount:      req.Amount,
	})
	if err != nil {
		h.handleServiceError(w, err, "initiate payment")
		return
	}

	writeJSON(w, http.StatusOK, toPaymentResponse(*p))
}

// ConfirmPayment подтверждает платёж текущего пациента.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	paymentID, err := urlParamID(r, "paymentId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment id")
		return
	}

	p, err := h.service.ConfirmPayment(r.Context(), userID, paymentID)
	if err != nil {
		h.handleServiceError(w, err, "confirm payment")
		return
	}

	writeJSON(w, http.StatusOK, toPaymentResponse(*p))
}
