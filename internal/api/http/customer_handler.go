package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"rental-backend/internal/domain"
	"rental-backend/internal/repository"
	"rental-backend/internal/service"
)

type CustomerHandler struct {
	service service.CustomerService
}

func NewCustomerHandler(s service.CustomerService) *CustomerHandler {
	return &CustomerHandler{service: s}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}

// pagination reads page and page_size; zero means unpaged
func pagination(r *http.Request) (int32, int32, bool) {
	q := r.URL.Query()
	var page, size int64
	var err error
	if v := q.Get("page"); v != "" {
		if page, err = strconv.ParseInt(v, 10, 32); err != nil || page < 1 {
			return 0, 0, false
		}
	}
	if v := q.Get("page_size"); v != "" {
		if size, err = strconv.ParseInt(v, 10, 32); err != nil || size < 1 || size > 500 {
			return 0, 0, false
		}
	}
	return int32(page), int32(size), true
}

// handleDecodeError writes 400 for unreadable bodies and the mapped error otherwise
func handleDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errMalformedBody) {
		badRequest(w, err.Error())
		return
	}
	writeError(w, r, err)
}

func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decode(w, r, &req); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	customer := req.toCustomer()
	if err := h.service.CreateCustomer(r.Context(), customer); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid customer id")
		return
	}
	customer, err := h.service.GetCustomer(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (h *CustomerHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid customer id")
		return
	}
	var req customerRequest
	if err := decode(w, r, &req); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	existing, err := h.service.GetCustomer(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	customer := req.toCustomer()
	customer.ID = id
	customer.Code = existing.Code
	customer.CreatedOn = existing.CreatedOn
	if err := h.service.UpdateCustomer(r.Context(), customer); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (h *CustomerHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid customer id")
		return
	}
	if err := h.service.DeleteCustomer(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	page, size, ok := pagination(r)
	if !ok {
		badRequest(w, "invalid pagination")
		return
	}
	filter := repository.CustomerFilter{
		ActiveOnly: r.URL.Query().Get("active") == "true",
		Page:       page,
		PageSize:   size,
	}
	customers, count, err := h.service.ListCustomers(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList[domain.Customer](customers, count, page, size))
}

func (h *CustomerHandler) GetCustomerStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid customer id")
		return
	}
	stats, err := h.service.GetCustomerStats(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
