package contracts

import (
	"errors"
	"fmt"
)

var (
	// ErrValuationImpossible marks a result that carries no valuation at all
	ErrValuationImpossible = errors.New("valuation impossible")

	// ErrNoRecord is the failure reason when no financial record was supplied
	ErrNoRecord = errors.New("financial record missing")
)

// ValuationError is returned by ValuationResult.Err
type ValuationError struct {
	Ticker string
	Reason string
}

func (e *ValuationError) Error() string {
	if e.Ticker == "" {
		return fmt.Sprintf("%s: %s", ErrValuationImpossible, e.Reason)
	}
	return fmt.Sprintf("%s for %s: %s", ErrValuationImpossible, e.Ticker, e.Reason)
}

// Unwrap lets errors.Is match ErrValuationImpossible
func (e *ValuationError) Unwrap() error {
	return ErrValuationImpossible
}
