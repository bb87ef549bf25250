package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Ahmadou44/fadj-ma/internal/middleware"
	"github.com/Ahmadou44/fadj-ma/internal/model"
	"github.com/Ahmadou44/fadj-ma/internal/service"
)

type pharmacyResponse struct {
	ID                 int64   `json:"id"`
	UserID             int64   `json:"userId"`
	Name               string  `json:"name"`
	Address            string  `json:"address"`
	Latitude           float64 `json:"latitude"`
	Longitude          float64 `json:"longitude"`
	VerificationStatus string  `json:"verificationStatus"`
	IsVerified         bool    `json:"isVerified"`
	OwnerName          string  `json:"ownerName,omitempty"`
	OwnerPhone         string  `json:"ownerPhone,omitempty"`
}

func toPharmacyResponse(p model.Pharmacy) pharmacyResponse {
	return pharmacyResponse{
		ID:                 p.ID,
		UserID:             p.UserID,
		Name:               p.Name,
		Address:            p.Address,
		Latitude:           p.Latitude,
		Longitude:          p.Longitude,
		VerificationStatus: string(p.VerificationStatus),
		IsVerified:         p.IsVerified,
		OwnerName:          p.OwnerName,
		OwnerPhone:         p.OwnerPhone,
	}
}

type drugResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Form  string `json:"form,omitempty"`
	Class string `json:"class,omitempty"`
}

type stockResponse struct {
	ID         int64             `json:"id"`
	PharmacyID int64             `json:"pharmacyId"`
	DrugID     int64             `json:"drugId"`
	Quantity   int64             `json:"quantity"`
	Price      int64             `json:"price"`
	Drug       *drugResponse     `json:"drug,omitempty"`
	Pharmacy   *pharmacyResponse `json:"pharmacy,omitempty"`
}

func toListingResponse(l model.StockListing, withPharmacy bool) stockResponse {
	resp := stockResponse{
		ID:         l.Stock.ID,
		PharmacyID: l.Stock.PharmacyID,
		DrugID:     l.Stock.DrugID,
		Quantity:   l.Stock.Quantity,
		Price:      l.Stock.Price,
		Drug: &drugResponse{
			ID:    l.Drug.ID,
			Name:  l.Drug.Name,
			Form:  l.Drug.Form,
			Class: l.Drug.Class,
		},
	}
	if withPharmacy {
		p := toPharmacyResponse(l.Pharmacy)
		resp.Pharmacy = &p
	}
	return resp
}

// geoFilterFromQuery извлекает необязательный фильтр близости из query-параметров.
// Фильтр применяется, только если заданы и lat, и lng.
func geoFilterFromQuery(r *http.Request) *service.GeoFilter {
	latStr := r.URL.Query().Get("lat")
	lngStr := r.URL.Query().Get("lng")
	if latStr == "" || lngStr == "" {
		return nil
	}

	lat, errLat := strconv.ParseFloat(latStr, 64)
	lng, errLng := strconv.ParseFloat(lngStr, 64)
	if errLat != nil || errLng != nil {
		return nil
	}

	radius := 10.0
	if v := r.URL.Query().Get("radius"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			radius = parsed
		}
	}

	return &service.GeoFilter{Lat: lat, Lng: lng, RadiusKm: radius}
}

// ListPharmacies возвращает аптеки, опционально отфильтрованные по близости.
func (h *Handler) ListPharmacies(w http.ResponseWriter, r *http.Request) {
	pharmacies, err := h.service.ListPharmacies(r.Context(), geoFilterFromQuery(r))
	if err != nil {
		h.handleServiceError(w, err, "list pharmacies")
		return
	}

	resp := make([]pharmacyResponse, 0, len(pharmacies))
	for _, p := range pharmacies {
		resp = append(resp, toPharmacyResponse(p))
	}

	writeJSON(w, http.StatusOK, resp)
}

// SearchStock ищет препараты в наличии по подстроке имени.
func (h *Handler) SearchStock(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query required")
		return
	}

	listings, err := h.service.SearchStock(r.Context(), query, geoFilterFromQuery(r))
	if err != nil {
		h.handleServiceError(w, err, "search stock")
		return
	}

	resp := make([]stockResponse, 0, len(listings))
	for _, l := range listings {
		resp = append(resp, toListingResponse(l, true))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListInventory возвращает склад аптеки.
func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	pharmacyID, err := urlParamID(r, "pharmacyId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pharmacy id")
		return
	}

	listings, err := h.service.ListInventory(r.Context(), pharmacyID)
	if err != nil {
		h.handleServiceError(w, err, "list inventory")
		return
	}

	resp := make([]stockResponse, 0, len(listings))
	for _, l := range listings {
		resp = append(resp, toListingResponse(l, false))
	}

	writeJSON(w, http.StatusOK, resp)
}

type addInventoryRequest struct {
	PharmacyID int64  `json:"pharmacyId"`
	DrugName   string `json:"drugName"`
	Form       string `json:"form"`
	Class      string `json:"class"`
	Quantity   int64  `json:"quantity"`
	Price      int64  `json:"price"`
}

// AddInventory добавляет или обновляет позицию склада аптеки текущего пользователя.
func (h *Handler) AddInventory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req addInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	stock, err := h.service.AddInventory(r.Context(), userID, service.AddInventoryInput{
		PharmacyID: req.PharmacyID,
		DrugName:   req.DrugName,
		Form:       req.Form,
		Class:      req.Class,
		Quantity:   req.Quantity,
		Price:      req.Price,
	})
	if err != nil {
		h.handleServiceError(w, err, "add inventory")
		return
	}

	writeJSON(w, http.StatusOK, stockResponse{
		ID:         stock.ID,
		PharmacyID: stock.PharmacyID,
		DrugID:     stock.DrugID,
		Quantity:   stock.Quantity,
		Price:      stock.Price,
	})
}

// ListDrugs возвращает глобальный каталог препаратов.
func (h *Handler) ListDrugs(w http.ResponseWriter, r *http.Request) {
	drugs, err := h.service.ListDrugs(r.Context())
	if err != nil {
		h.handleServiceError(w, err, "list drugs")
		return
	}

	resp := make([]drugResponse, 0, len(drugs))
	for _, d := range drugs {
		resp = append(resp, drugResponse{ID: d.ID, Name: d.Name, Form: d.Form, Class: d.Class})
	}

	writeJSON(w, http.StatusOK, resp)
}

// PharmacyStats возвращает показатели дашборда аптеки.
func (h *Handler) PharmacyStats(w http.ResponseWriter, r *http.Request) {
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

	stats, err := h.service.PharmacyStats(r.Context(), userID, pharmacyID)
	if err != nil {
		h.handleServiceError(w, err, "pharmacy stats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{
		"dailySales":    stats.DailySales,
		"totalOrders":   stats.TotalOrders,
		"pendingOrders": stats.PendingOrders,
		"lowStock":      stats.LowStock,
	})
}

// ListPendingPharmacies возвращает аптеки, ожидающие решения администратора.
func (h *Handler) ListPendingPharmacies(w http.ResponseWriter, r *http.Request) {
	pending, err := h.service.ListPendingPharmacies(r.Context())
	if err != nil {
		h.handleServiceError(w, err, "list pending pharmacies")
		return
	}

	resp := make([]pharmacyResponse, 0, len(pending))
	for _, p := range pending {
		resp = append(resp, toPharmacyResponse(p))
	}

	writeJSON(w, http.StatusOK, resp)
}

type verifyRequest struct {
	Status string `json:"status"`
}

// VerifyPharmacy применяет решение администратора: VERIFIED или REJECTED.
func (h *Handler) VerifyPharmacy(w http.ResponseWriter, r *http.Request) {
	pharmacyID, err := urlParamID(r, "pharmacyId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pharmacy id")
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.service.VerifyPharmacy(r.Context(), pharmacyID, model.VerificationStatus(req.Status))
	if err != nil {
		h.handleServiceError(w, err, "verify pharmacy")
		return
	}

	writeJSON(w, http.StatusOK, toPharmacyResponse(*p))
}
