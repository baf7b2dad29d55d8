package liquidity

import (
	"fmt"
	"math/big"
	"net/http"
)

// Releasable computes the amount a schedule can pay out as of now. It is a
// pure function of the schedule record and the supplied instant: repeated
// calls with the same inputs return the same value.
//
// Before the start instant, and for revoked schedules, the result is zero.
// Otherwise the vested amount is amountPerTerm times the number of fully
// elapsed terms, capped at totalAmount, minus what was already released.
func Releasable(schedule *Schedule, now uint64) (*big.Int, error) {
	if schedule.Revoked || now < schedule.Start {
		return big.NewInt(0), nil
	}

	if schedule.TermDuration < 1 {
		return nil, fmt.Errorf("%w: termDuration must be at least 1", ErrInvalidParameters)
	}

	amountPerTerm, err := ParsePositiveAmount("amountPerTerm", schedule.AmountPerTerm)
	if err != nil {
		return nil, err
	}
	totalAmount, err := ParsePositiveAmount("totalAmount", schedule.TotalAmount)
	if err != nil {
		return nil, err
	}
	released, err := parseStoredAmount("released", schedule.Released)
	if err != nil {
		return nil, err
	}

	elapsedTerms := (now - schedule.Start) / schedule.TermDuration

	vested := new(big.Int).Mul(amountPerTerm, new(big.Int).SetUint64(elapsedTerms))
	if vested.Cmp(totalAmount) > 0 {
		vested.Set(totalAmount)
	}

	releasable := new(big.Int).Sub(vested, released)
	if releasable.Sign() < 0 {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("released amount exceeds vested amount for schedule %s", schedule.ID), nil)
	}

	return releasable, nil
}
