package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Ahmadou44/fadj-ma/internal/middleware"
	"github.com/Ahmadou44/fadj-ma/internal/model"
)

type planResponse struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Duration    string `json:"duration"`
}

type subscriptionResponse struct {
	Plan            string `json:"plan"`
	RenewalPrice    int64  `json:"renewalPrice"`
	ExpiresAt       string `json:"expiresAt"`
	NextRenewalDate string `json:"nextRenewalDate"`
}

func toSubscriptionResponse(s model.Subscription) subscriptionResponse {
	return subscriptionResponse{
		Plan:            string(s.Plan),
		RenewalPrice:    s.RenewalPrice,
		ExpiresAt:       s.ExpiresAt.Format(time.RFC3339),
		NextRenewalDate: s.NextRenewalDate.Format(time.RFC3339),
	}
}

// ListSubscriptionPlans возвращает справочник тарифов.
func (h *Handler) ListSubscriptionPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListSubscriptionPlans(r.Context())
	if err != nil {
		h.handleServiceError(w, err, "list plans")
		return
	}

	resp := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		resp = append(resp, planResponse{
			ID:          p.ID,
			Type:        string(p.Type),
			Description: p.Description,
			Price:       p.Price,
			Duration:    p.Duration,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// CurrentSubscription возвращает активную подписку аптеки текущего пользователя.
func (h *Handler) CurrentSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sub, err := h.service.CurrentSubscription(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err, "current subscription")
		return
	}

	writeJSON(w, http.StatusOK, toSubscriptionResponse(*sub))
}

type upgradeRequest struct {
	PlanID int64 `json:"planId"`
}

// UpgradeSubscription переводит аптеку текущего пользователя на новый тариф.
func (h *Handler) UpgradeSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req upgradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sub, err := h.service.UpgradeSubscription(r.Context(), userID, req.PlanID)
	if err != nil {
		h.handleServiceError(w, err, "upgrade subscription")
		return
	}

	writeJSON(w, http.StatusOK, toSubscriptionResponse(*sub))
}
