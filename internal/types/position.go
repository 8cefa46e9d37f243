package types

import (
	"errors"
	"fmt"
	"time"
)

type PositionStatus string

const (
	StatusIdle       PositionStatus = "IDLE"
	StatusInPosition PositionStatus = "IN_POSITION"
)

var ErrInvalidTransition = errors.New("invalid position transition")

// OpenPosition exists only while IN_POSITION.
type OpenPosition struct {
	EntryPrice    float64   `json:"entry_price"`
	EntryTime     time.Time `json:"entry_time"`
	Qty           int       `json:"position_qty"`
	HighWatermark float64   `json:"highest_price"`
	LowWatermark  float64   `json:"lowest_price"`
}

// Position is the two-state position lifecycle. Open is nil exactly when the
// status is IDLE; the only way to change state is Enter and Exit.
type Position struct {
	Status PositionStatus `json:"status"`
	Open   *OpenPosition  `json:"open,omitempty"`
}

func Idle() Position {
	return Position{Status: StatusIdle}
}

func (p Position) IsOpen() bool {
	return p.Status == StatusInPosition
}

func (p Position) Qty() int {
	if p.Open == nil {
		return 0
	}
	return p.Open.Qty
}

// Enter transitions IDLE -> IN_POSITION with the watermark seeded at the fill.
func (p Position) Enter(price float64, qty int, at time.Time) (Position, error) {
	if p.Status != StatusIdle {
		return p, fmt.Errorf("%w: enter from %s", ErrInvalidTransition, p.Status)
	}
	if qty <= 0 {
		return p, fmt.Errorf("%w: enter with quantity %d", ErrInvalidTransition, qty)
	}
	if price <= 0 {
		return p, fmt.Errorf("%w: enter at price %.2f", ErrInvalidTransition, price)
	}
	return Position{
		Status: StatusInPosition,
		Open: &OpenPosition{
			EntryPrice:    price,
			EntryTime:     at,
			Qty:           qty,
			HighWatermark: price,
			LowWatermark:  price,
		},
	}, nil
}

// Exit transitions IN_POSITION -> IDLE and returns the closed leg.
func (p Position) Exit() (Position, OpenPosition, error) {
	if p.Status != StatusInPosition || p.Open == nil {
		return p, OpenPosition{}, fmt.Errorf("%w: exit from %s", ErrInvalidTransition, p.Status)
	}
	return Idle(), *p.Open, nil
}

// Mark advances the running high/low watermark with the latest price.
func (p Position) Mark(price float64) Position {
	if p.Open == nil {
		return p
	}
	op := *p.Open
	if price > op.HighWatermark {
		op.HighWatermark = price
	}
	if price < op.LowWatermark {
		op.LowWatermark = price
	}
	return Position{Status: p.Status, Open: &op}
}

// Validate checks the IDLE/IN_POSITION field invariants.
func (p Position) Validate() error {
	switch p.Status {
	case StatusIdle:
		if p.Open != nil {
			return errors.New("idle position carries entry details")
		}
	case StatusInPosition:
		if p.Open == nil {
			return errors.New("open position without entry details")
		}
		if p.Open.Qty <= 0 {
			return fmt.Errorf("open position with quantity %d", p.Open.Qty)
		}
		if p.Open.EntryTime.IsZero() || p.Open.EntryPrice <= 0 {
			return errors.New("open position without entry price/time")
		}
		if p.Open.HighWatermark < p.Open.LowWatermark {
			return errors.New("watermark high below low")
		}
	default:
		return fmt.Errorf("unknown position status %q", p.Status)
	}
	return nil
}
