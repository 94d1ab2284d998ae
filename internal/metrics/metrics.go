// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"rentfun-backend/internal/domain"
)

var (
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentfun_operations_total",
		Help: "Ledger operations processed, labeled by outcome",
	}, []string{"operation", "result"})

	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rentfun_operation_duration_seconds",
		Help:    "Latency distribution of ledger operations",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"operation"})

	RentOrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentfun_rent_orders_total",
		Help: "Rent orders created, labeled by payment token",
	}, []string{"payment"})

	PayoutVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentfun_payout_volume",
		Help: "Claimed revenue paid out, labeled by payment token and recipient role",
	}, []string{"payment", "role"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentfun_http_requests_total",
		Help: "Read API requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rentfun_http_request_duration_seconds",
		Help:    "Latency distribution of read API requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

// Result classifies an operation error into a low-cardinality label.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrOwnership):
		return "ownership"
	case errors.Is(err, domain.ErrUnsupportedPayment):
		return "unsupported_payment"
	case errors.Is(err, domain.ErrNotRentable):
		return "not_rentable"
	case errors.Is(err, domain.ErrStillRented):
		return "still_rented"
	case errors.Is(err, domain.ErrPaymentMismatch):
		return "payment_mismatch"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid_argument"
	}
	return "error"
}

// Observe records one finished operation. Use as
// defer metrics.Observe("rent", time.Now(), &err).
func Observe(operation string, start time.Time, err *error) {
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	var e error
	if err != nil {
		e = *err
	}
	OperationsTotal.WithLabelValues(operation, Result(e)).Inc()
}

// AddPayout adds a paid out amount to the payout volume.
func AddPayout(payment domain.Address, role string, amount decimal.Decimal) {
	f, _ := amount.Float64()
	PayoutVolume.WithLabelValues(payment.String(), role).Add(f)
}
