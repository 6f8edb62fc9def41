package policy

import (
	"errors"
	"time"
)

// Refund reason codes returned alongside every computed refund so callers
// never duplicate the time thresholds.
const (
	ReasonFullRefund    = "FULL_REFUND_24H"
	ReasonPartialRefund = "PARTIAL_REFUND_12H"
	ReasonNoRefund      = "NO_REFUND_WINDOW"
)

// ErrNoRefundWindow is returned when a cancellation falls inside the
// no-refund window. Cancelling that late is a rejected operation, not a
// zero-amount success.
var ErrNoRefundWindow = errors.New("no refund within the cancellation window")

type Params struct {
	CommissionRateBp   int64 // basis points out of 10000
	FullRefundHours    int
	PartialRefundHours int
	PartialRefundPct   int64
}

// Engine computes commission splits and refund amounts. Pure arithmetic over
// whole DJF amounts, no I/O, no floats.
type Engine struct {
	params Params
}

func NewEngine(params Params) *Engine {
	return &Engine{params: params}
}

func (e *Engine) DefaultRateBp() int64 {
	return e.params.CommissionRateBp
}

// SplitCommission splits a booking total between platform commission and the
// professional's share at the default rate.
func (e *Engine) SplitCommission(totalFr int64) (commissionFr, professionalFr int64) {
	return e.SplitWithRate(totalFr, e.params.CommissionRateBp)
}

// SplitWithRate applies a per-professional rate in basis points. The
// professional share is floored; the rounding remainder goes to commission,
// so commission + professional == total for every input.
func (e *Engine) SplitWithRate(totalFr, rateBp int64) (commissionFr, professionalFr int64) {
	if rateBp < 0 {
		rateBp = 0
	}
	if rateBp > 10000 {
		rateBp = 10000
	}
	professionalFr = totalFr * (10000 - rateBp) / 10000
	commissionFr = totalFr - professionalFr
	return commissionFr, professionalFr
}

type Refund struct {
	Percent  int64
	AmountFr int64
	Reason   string
}

// ComputeRefund applies the tiered cancellation policy against the time
// remaining before the scheduled service. Both thresholds are inclusive
// lower bounds.
func (e *Engine) ComputeRefund(scheduledAt, now time.Time, totalFr int64) (Refund, error) {
	remaining := scheduledAt.Sub(now)

	if remaining >= time.Duration(e.params.FullRefundHours)*time.Hour {
		return Refund{Percent: 100, AmountFr: totalFr, Reason: ReasonFullRefund}, nil
	}

	if remaining >= time.Duration(e.params.PartialRefundHours)*time.Hour {
		pct := e.params.PartialRefundPct
		return Refund{
			Percent:  pct,
			AmountFr: totalFr * pct / 100,
			Reason:   ReasonPartialRefund,
		}, nil
	}

	return Refund{Percent: 0, AmountFr: 0, Reason: ReasonNoRefund}, ErrNoRefundWindow
}
