package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Ahmadou44/fadj-ma/internal/middleware"
	"github.com/Ahmadou44/fadj-ma/internal/model"
	"github.com/Ahmadou44/fadj-ma/internal/service"
)

type orderItemPayload struct {
	DrugID   int64  `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
}

type orderResponse struct {
	ID              int64              `json:"id"`
	PatientID       int64              `json:"patientId"`
	PharmacyID      int64              `json:"pharmacyId"`
	Items           []orderItemPayload `json:"items,omitempty"`
	DeliveryMode    string             `json:"deliveryMode"`
	DeliveryAddress string             `json:"deliveryAddress,omitempty"`
	Subtotal        int64              `json:"subtotal"`
	DeliveryFee     int64              `json:"deliveryFee"`
	Total           int64              `json:"total"`
	Status          string             `json:"status"`
	CreatedAt       string             `json:"createdAt"`
	Patient         *patientInfo       `json:"patient,omitempty"`
}

type patientInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func toOrderResponse(o model.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		PatientID:       o.PatientID,
		PharmacyID:      o.PharmacyID,
		DeliveryMode:    string(o.DeliveryMode),
		DeliveryAddress: o.DeliveryAddress,
		Subtotal:        o.Subtotal,
		DeliveryFee:     o.DeliveryFee,
		Total:           o.Total,
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, orderItemPayload{
			DrugID:   it.DrugID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}
	if o.PatientName != "" || o.PatientPhone != "" {
		resp.Patient = &patientInfo{Name: o.PatientName, Phone: o.PatientPhone}
	}
	return resp
}

type checkoutRequest struct {
	PharmacyID      int64              `json:"pharmacyId"`
	Items           []orderItemPayload `json:"items"`
	DeliveryMode    string             `json:"deliveryMode"`
	DeliveryAddress string             `json:"deliveryAddress"`
}

// CreateOrder оформляет заказ из корзины текущего пациента.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	items := make([]model.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, model.OrderItem{
			DrugID:   it.DrugID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}

	order, err := h.service.Checkout(r.Context(), userID, service.CheckoutInput{
		PharmacyID:      req.PharmacyID,
		Items:           items,
		DeliveryMode:    model.DeliveryMode(req.DeliveryMode),
		DeliveryAddress: req.DeliveryAddress,
	})
	if err != nil {
		h.handleServiceError(w, err, "create order")
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(*order))
}

// ListMyOrders возвращает заказы текущего пациента.
func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	orders, err := h.service.ListPatientOrders(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err, "list orders")
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetOrder возвращает заказ с позициями, если он доступен текущему пользователю.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	role, _ := middleware.GetRoleFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	orderID, err := urlParamID(r, "orderId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	order, err := h.service.GetOrderForUser(r.Context(), userID, role, orderID)
	if err != nil {
		h.handleServiceError(w, err, "get order")
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(*order))
}

// CancelOrder отменяет заказ по требованию пациента или аптеки.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	role, _ := middleware.GetRoleFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	orderID, err := urlParamID(r, "orderId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	order, err := h.service.CancelOrder(r.Context(), userID, role, orderID)
	if err != nil {
		h.handleServiceError(w, err, "cancel order")
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(*order))
}

// ListPharmacyOrders возвращает заказы аптеки, новые первыми.
func (h *Handler) ListPharmacyOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	pharmacyID, err := urlParamID(r, "pharmacyId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pharmacy id")
		return
	}

	orders, err := h.service.ListPharmacyOrders(r.Context(), userID, pharmacyID)
	if err != nil {
		h.handleServiceError(w, err, "list pharmacy orders")
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}

	writeJSON(w, http.StatusOK, resp)
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus переводит заказ аптеки в следующий статус или отменяет его.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	orderID, err := urlParamID(r, "orderId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.service.AdvanceOrderStatus(r.Context(), userID, orderID, model.OrderStatus(req.Status))
	if err != nil {
		h.handleServiceError(w, err, "update order status")
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(*order))
}
