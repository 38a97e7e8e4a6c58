package http

import (
	"net/http"

	"rental-backend/internal/domain"
	"rental-backend/internal/repository"
	"rental-backend/internal/service"
)

type ProductHandler struct {
	service service.ProductService
}

func NewProductHandler(s service.ProductService) *ProductHandler {
	return &ProductHandler{service: s}
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decode(w, r, &req); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	product, err := req.toProduct()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.service.CreateProduct(r.Context(), product); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid product id")
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// UpdateProduct replaces the editable fields; status and code are ignored
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid product id")
		return
	}
	var req productRequest
	if err := decode(w, r, &req); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	product, err := req.toProduct()
	if err != nil {
		writeError(w, r, err)
		return
	}
	product.ID = id
	if err := h.service.UpdateProduct(r.Context(), product); err != nil {
		writeError(w, r, err)
		return
	}
	stored, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid product id")
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, size, ok := pagination(r)
	if !ok {
		badRequest(w, "invalid pagination")
		return
	}
	q := r.URL.Query()
	filter := repository.ProductFilter{
		Status:     domain.ProductStatus(q.Get("status")),
		ActiveOnly: q.Get("active") == "true",
		Page:       page,
		PageSize:   size,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, r, domain.NewValidationError("status", "unknown product status "+string(filter.Status)))
		return
	}
	products, count, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList[domain.Product](products, count, page, size))
}

func (h *ProductHandler) SetProductStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid product id")
		return
	}
	var req statusRequest
	if err := decode(w, r, &req); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	product, err := h.service.SetProductStatus(r.Context(), id, domain.ProductStatus(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// CheckAvailability answers GET /products/{id}/availability?start=yyyy-mm-dd&end=yyyy-mm-dd
func (h *ProductHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid product id")
		return
	}
	q := r.URL.Query()
	start, err := parseDate("start", q.Get("start"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	end, err := parseDate("end", q.Get("end"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	available, conflicts, err := h.service.CheckAvailability(r.Context(), id, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if conflicts == nil {
		conflicts = []domain.RentalOrder{}
	}
	writeJSON(w, http.StatusOK, availabilityResponse{Available: available, Conflicts: conflicts})
}

func (h *ProductHandler) GetProductStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid product id")
		return
	}
	stats, err := h.service.GetProductStats(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *ProductHandler) RecordMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid product id")
		return
	}
	var req maintenanceRequest
	if err := decode(w, r, &req); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	day, err := parseDate("date", req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	product, err := h.service.RecordMaintenance(r.Context(), id, day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) ListMaintenanceDue(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListMaintenanceDue(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList[domain.Product](products, int32(len(products)), 0, 0))
}
