package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"rental-backend/internal/security"
	"rental-backend/internal/service"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Customers      service.CustomerService
	Products       service.ProductService
	Orders         service.RentalOrderService
	Payments       service.PaymentService
	Tokens         security.TokenManager
	Store          Pinger
	AllowedOrigins []string
}

func NewRouter(deps Dependencies) http.Handler {
	customerHandler := NewCustomerHandler(deps.Customers)
	productHandler := NewProductHandler(deps.Products)
	orderHandler := NewOrderHandler(deps.Orders, deps.Payments)
	auth := &authMiddleware{tokens: deps.Tokens}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware, recoveryMiddleware, metricsMiddleware)

	r.HandleFunc("/healthz", healthHandler(deps.Store)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(auth.Authenticate)

	api.HandleFunc("/customers", customerHandler.ListCustomers).Methods(http.MethodGet)
	api.HandleFunc("/customers", customerHandler.CreateCustomer).Methods(http.MethodPost)
	api.HandleFunc("/customers/{id:[0-9]+}", customerHandler.GetCustomer).Methods(http.MethodGet)
	api.HandleFunc("/customers/{id:[0-9]+}", customerHandler.UpdateCustomer).Methods(http.MethodPut)
	api.HandleFunc("/customers/{id:[0-9]+}", requireRole(security.RoleManager, customerHandler.DeleteCustomer)).Methods(http.MethodDelete)
	api.HandleFunc("/customers/{id:[0-9]+}/stats", customerHandler.GetCustomerStats).Methods(http.MethodGet)

	api.HandleFunc("/products", productHandler.ListProducts).Methods(http.MethodGet)
	api.HandleFunc("/products", productHandler.CreateProduct).Methods(http.MethodPost)
	api.HandleFunc("/products/maintenance-due", productHandler.ListMaintenanceDue).Methods(http.MethodGet)
	api.HandleFunc("/products/{id:[0-9]+}", productHandler.GetProduct).Methods(http.MethodGet)
	api.HandleFunc("/products/{id:[0-9]+}", productHandler.UpdateProduct).Methods(http.MethodPut)
	api.HandleFunc("/products/{id:[0-9]+}", requireRole(security.RoleManager, productHandler.DeleteProduct)).Methods(http.MethodDelete)
	api.HandleFunc("/products/{id:[0-9]+}/status", productHandler.SetProductStatus).Methods(http.MethodPut)
	api.HandleFunc("/products/{id:[0-9]+}/availability", productHandler.CheckAvailability).Methods(http.MethodGet)
	api.HandleFunc("/products/{id:[0-9]+}/stats", productHandler.GetProductStats).Methods(http.MethodGet)
	api.HandleFunc("/products/{id:[0-9]+}/maintenance", productHandler.RecordMaintenance).Methods(http.MethodPost)

	api.HandleFunc("/orders", orderHandler.ListOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders", orderHandler.CreateOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/overdue", orderHandler.ListOverdueOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id:[0-9]+}", orderHandler.GetOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id:[0-9]+}", orderHandler.UpdateOrder).Methods(http.MethodPatch)
	api.HandleFunc("/orders/{id:[0-9]+}/payments", orderHandler.ListPayments).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id:[0-9]+}/payments", orderHandler.RegisterPayment).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id:[0-9]+}/{action:[a-z]+}", orderHandler.ApplyAction).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return c.Handler(r)
}

func healthHandler(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			if err := store.Ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
