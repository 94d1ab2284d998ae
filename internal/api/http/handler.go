package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rentfun-backend/internal/domain"
	"rentfun-backend/internal/logger"
	"rentfun-backend/internal/metrics"
	"rentfun-backend/internal/service"
)

// Handler serves the public read API over plain HTTP.
type Handler struct {
	market   service.MarketplaceService
	vaults   service.VaultService
	partners service.PartnerService
}

func NewHandler(market service.MarketplaceService, vaults service.VaultService, partners service.PartnerService) *Handler {
	return &Handler{market: market, vaults: vaults, partners: partners}
}

// NewRouter wires the health, metrics and /api/v1 read routes.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Use(instrument)
	v1.HandleFunc("/collections/{collection}/tokens/{tokenId}/rented", h.IsRented).Methods(http.MethodGet)
	v1.HandleFunc("/collections/{collection}/partner", h.GetPartner).Methods(http.MethodGet)
	v1.HandleFunc("/lenders/{lender}/orders", h.GetRentOrders).Methods(http.MethodGet)
	v1.HandleFunc("/renters/{renter}/rentals", h.GetAliveRentals).Methods(http.MethodGet)
	v1.HandleFunc("/owners/{owner}/vaults", h.GetVaults).Methods(http.MethodGet)
	v1.HandleFunc("/lends/{id}", h.TokenDetails).Methods(http.MethodGet)
	v1.HandleFunc("/orders/count", h.TotalRentCount).Methods(http.MethodGet)
	v1.HandleFunc("/orders/{id:[0-9]+}", h.GetOrder).Methods(http.MethodGet)
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) IsRented(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collection, err := domain.ParseAddress(vars["collection"])
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	tokenID, err := strconv.ParseUint(vars["tokenId"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid token id")
		return
	}
	rented, err := h.market.IsRented(r.Context(), collection, domain.TokenID(tokenID))
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"rented": rented})
}

func (h *Handler) GetPartner(w http.ResponseWriter, r *http.Request) {
	collection, err := domain.ParseAddress(mux.Vars(r)["collection"])
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	partner, err := h.partners.GetPartner(r.Context(), collection)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, partner)
}

func (h *Handler) GetRentOrders(w http.ResponseWriter, r *http.Request) {
	lender, err := domain.ParseAddress(mux.Vars(r)["lender"])
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	orders, err := h.market.GetRentOrders(r.Context(), lender)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string][]domain.RentOrder{"orders": nonNil(orders)})
}

// GetAliveRentals requires ?collection=.
func (h *Handler) GetAliveRentals(w http.ResponseWriter, r *http.Request) {
	renter, err := domain.ParseAddress(mux.Vars(r)["renter"])
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	collection, err := domain.ParseAddress(r.URL.Query().Get("collection"))
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	orders, err := h.market.GetAliveRentals(r.Context(), renter, collection)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string][]domain.RentOrder{"orders": nonNil(orders)})
}

func (h *Handler) GetVaults(w http.ResponseWriter, r *http.Request) {
	owner, err := domain.ParseAddress(mux.Vars(r)["owner"])
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	vaults, err := h.vaults.GetVaults(r.Context(), owner)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	if vaults == nil {
		vaults = []domain.Vault{}
	}
	respondWithJSON(w, http.StatusOK, map[string][]domain.Vault{"vaults": vaults})
}

func (h *Handler) TokenDetails(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid lend id")
		return
	}
	details, err := h.market.TokenDetails(r.Context(), id)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, details)
}

func (h *Handler) TotalRentCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.market.TotalRentCount(r.Context())
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := h.market.GetOrder(r.Context(), id)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, order)
}

func nonNil(orders []domain.RentOrder) []domain.RentOrder {
	if orders == nil {
		return []domain.RentOrder{}
	}
	return orders
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument labels request metrics with the route template, never the raw
// path, to keep cardinality bounded.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}
		timer := prometheus.NewTimer(metrics.HTTPRequestDuration.WithLabelValues(r.Method, endpoint))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		timer.ObserveDuration()
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
	})
}

func respondWithDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	default:
		logger.Error("Read API failure", "error", err)
		respondWithError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
