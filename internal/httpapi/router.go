package httpapi

import (
	"net/http"

	"finance-ledger-go/internal/store"

	"github.com/gorilla/mux"
)

// NewRouter wires every route. metrics may be nil.
func NewRouter(h *Handler, st store.LedgerStore, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestID, Logger, Recovery)

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}

	api := r.NewRoute().Subrouter()
	api.Use(ActingUser(st))

	api.HandleFunc("/accounts", h.ListAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts", h.CreateAccount).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{id}", h.GetAccount).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}", h.DeleteAccount).Methods(http.MethodDelete)
	api.HandleFunc("/accounts/{id}/reconcile", h.ReconcileAccount).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}/transactions", h.CreateTransaction).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{id}/import", h.ImportTransactions).Methods(http.MethodPost)

	api.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}", h.GetTransaction).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}", h.DeleteTransaction).Methods(http.MethodDelete)
	api.HandleFunc("/transactions/{id}/category", h.UpdateCategory).Methods(http.MethodPatch)

	api.HandleFunc("/summary", h.Summary).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", h.Dashboard).Methods(http.MethodGet)

	api.HandleFunc("/category-rules", h.ListCategoryRules).Methods(http.MethodGet)
	api.HandleFunc("/category-rules", h.CreateCategoryRule).Methods(http.MethodPost)
	api.HandleFunc("/category-rules/{id}", h.DeleteCategoryRule).Methods(http.MethodDelete)

	return r
}
