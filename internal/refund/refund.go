// Package refund implements the cancellation refund policy. Everything here
// is pure and total: any non-negative amount and any config produce a result.
package refund

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrInvalidConfig = errors.New("invalid cancellation config")
)

// CancellationConfig is a tenant's cancellation policy.
type CancellationConfig struct {
	CancellationDeadlineHours     float64 `json:"cancellation_deadline_hours"`
	LateCancellationRefundPercent int     `json:"late_cancellation_refund_percent"`
}

// Validate rejects out-of-range policy values at configuration time so the
// refund calculation itself never has an error path.
func (c CancellationConfig) Validate() error {
	if c.CancellationDeadlineHours < 0 {
		return fmt.Errorf("%w: deadline hours must be non-negative, got %v", ErrInvalidConfig, c.CancellationDeadlineHours)
	}
	if c.LateCancellationRefundPercent < 0 || c.LateCancellationRefundPercent > 100 {
		return fmt.Errorf("%w: refund percent must be 0-100, got %d", ErrInvalidConfig, c.LateCancellationRefundPercent)
	}
	return nil
}

// Result is the outcome of a refund calculation. AmountCents never exceeds
// the paid amount.
type Result struct {
	AmountCents  int64  `json:"amount_cents"`
	IsFullRefund bool   `json:"is_full_refund"`
	Reason       string `json:"reason"`
}

// IsBeforeDeadline reports whether a cancellation at now is still inside the
// free-cancellation window for an event starting at eventStart.
func IsBeforeDeadline(eventStart time.Time, cfg CancellationConfig, now time.Time) bool {
	deadline := time.Duration(cfg.CancellationDeadlineHours * float64(time.Hour))
	return eventStart.Sub(now) >= deadline
}

// CalculateVisitorRefund applies the tenant's policy to a visitor-initiated
// cancellation.
func CalculateVisitorRefund(paidAmountCents int64, eventStart time.Time, cfg CancellationConfig, now time.Time) Result {
	if IsBeforeDeadline(eventStart, cfg, now) {
		return Result{
			AmountCents:  paidAmountCents,
			IsFullRefund: true,
			Reason:       "cancelled before deadline",
		}
	}

	if cfg.LateCancellationRefundPercent == 0 {
		return Result{
			AmountCents:  0,
			IsFullRefund: false,
			Reason:       "cancelled after deadline, no late refund",
		}
	}

	amount := int64(math.Round(float64(paidAmountCents) * float64(cfg.LateCancellationRefundPercent) / 100))
	return Result{
		AmountCents:  amount,
		IsFullRefund: amount == paidAmountCents,
		Reason:       fmt.Sprintf("cancelled after deadline, %d%% late refund", cfg.LateCancellationRefundPercent),
	}
}

// CalculateTenantRefund handles host-initiated cancellations, which always
// refund in full regardless of deadline.
func CalculateTenantRefund(paidAmountCents int64) Result {
	return Result{
		AmountCents:  paidAmountCents,
		IsFullRefund: true,
		Reason:       "host-cancelled",
	}
}
