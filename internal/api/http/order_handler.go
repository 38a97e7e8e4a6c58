package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"rental-backend/internal/domain"
	"rental-backend/internal/repository"
	"rental-backend/internal/service"
)

// orderActions maps the action path segment to the lifecycle action
var orderActions = map[string]domain.Action{
	"confirm": domain.ActionConfirm,
	"start":   domain.ActionStartRental,
	"return":  domain.ActionReturn,
	"done":    domain.ActionDone,
	"cancel":  domain.ActionCancel,
	"reset":   domain.ActionResetToDraft,
}

type OrderHandler struct {
	orders   service.RentalOrderService
	payments service.PaymentService
}

func NewOrderHandler(orders service.RentalOrderService, payments service.PaymentService) *OrderHandler {
	return &OrderHandler{orders: orders, payments: payments}
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decode(w, r, &req); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	var user string
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		user = claims.Subject
	}
	in, err := req.toInput(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.orders.CreateOrder(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	details, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// ListOrders filters by customer_id, product_id, state (comma separated), from and to
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, size, ok := pagination(r)
	if !ok {
		badRequest(w, "invalid pagination")
		return
	}
	q := r.URL.Query()
	filter := repository.OrderFilter{Page: page, PageSize: size}

	for name, target := range map[string]**int64{"customer_id": &filter.CustomerID, "product_id": &filter.ProductID} {
		if v := q.Get(name); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				badRequest(w, "invalid "+name)
				return
			}
			*target = &id
		}
	}
	for _, v := range q["state"] {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.States = append(filter.States, domain.OrderState(s))
			}
		}
	}
	if v := q.Get("from"); v != "" {
		from, err := parseDate("from", v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.From = &from
	}
	if v := q.Get("to"); v != "" {
		to, err := parseDate("to", v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.To = &to
	}

	orders, count, err := h.orders.ListOrders(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList[domain.RentalOrder](orders, count, page, size))
}

func (h *OrderHandler) ListOverdueOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOverdueOrders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList[domain.RentalOrder](orders, int32(len(orders)), 0, 0))
}

func (h *OrderHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	var req orderPatchRequest
	if err := decode(w, r, &req); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.orders.UpdateOrder(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// ApplyAction serves POST /orders/{id}/{action}. The body is optional and only read by return.
func (h *OrderHandler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	action, ok := orderActions[mux.Vars(r)["action"]]
	if !ok {
		writeErrorBody(w, http.StatusNotFound, codeNotFound, "unknown order action", nil)
		return
	}

	var opts domain.ApplyOptions
	if r.ContentLength != 0 {
		var req actionRequest
		if err := decode(w, r, &req); err != nil {
			handleDecodeError(w, r, err)
			return
		}
		opts.ReturnCondition = req.ReturnCondition
		opts.DamageFee = req.DamageFee
	}

	order, err := h.orders.ApplyAction(r.Context(), id, action, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	var req paymentRequest
	if err := decode(w, r, &req); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	reg, err := req.toRegistration(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	payment, order, err := h.payments.RegisterPayment(r.Context(), reg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentResponse{Payment: payment, Order: order})
}

func (h *OrderHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	payments, err := h.payments.ListPayments(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList[domain.Payment](payments, int32(len(payments)), 0, 0))
}
