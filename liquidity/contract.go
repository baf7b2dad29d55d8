package liquidity

import (
	"fmt"
	"math/big"
	"net/http"
	"sync/atomic"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// SmartContract is the TokenLiquidity vesting ledger. It custodies tokens on
// behalf of beneficiaries and pays them out along per-schedule vesting terms.
type SmartContract struct {
	contractapi.Contract

	// inFlight is the reentrancy fence around balance-mutating operations: a
	// token-chaincode invoke issued mid-operation must not be able to call
	// back into the ledger before state is finalized.
	inFlight uint32
}

func (s *SmartContract) beginOp() error {
	if !atomic.CompareAndSwapUint32(&s.inFlight, 0, 1) {
		return ErrReentrantCall
	}
	return nil
}

func (s *SmartContract) endOp() {
	atomic.StoreUint32(&s.inFlight, 0)
}

// SetTokenAddress wires the custody token chaincode and the account it holds
// the ledger's tokens under. Administrator only, settable once.
func (s *SmartContract) SetTokenAddress(ctx contractapi.TransactionContextInterface, tokenAddress, custodyAccount string) error {
	if err := IsSignerAdmin(ctx); err != nil {
		return err
	}
	if tokenAddress == "" {
		return fmt.Errorf("%w: token address cannot be empty", ErrInvalidParameters)
	}
	if custodyAccount == "" {
		return fmt.Errorf("%w: custody account cannot be empty", ErrInvalidParameters)
	}

	if err := setTokenAddress(ctx, tokenAddress, custodyAccount); err != nil {
		return err
	}

	return EmitTokenAddressSet(ctx, tokenAddress, custodyAccount)
}

// CreateSchedule inserts a new vesting schedule. Caller must be the
// administrator or hold the schedule-creator role.
func (s *SmartContract) CreateSchedule(ctx contractapi.TransactionContextInterface, beneficiary string, start uint64, amountPerTerm string, termDuration uint64, totalAmount string, revocable bool) (string, error) {
	if err := s.beginOp(); err != nil {
		return "", err
	}
	defer s.endOp()

	if err := requireRole(ctx, scheduleCreatorRole); err != nil {
		return "", err
	}

	return createSchedule(ctx, beneficiary, start, amountPerTerm, termDuration, totalAmount, revocable)
}

func createSchedule(ctx contractapi.TransactionContextInterface, beneficiary string, start uint64, amountPerTerm string, termDuration uint64, totalAmount string, revocable bool) (string, error) {
	if !IsUserAddressValid(beneficiary) {
		return "", InvalidUserAddressError(beneficiary)
	}
	if termDuration < 1 {
		return "", fmt.Errorf("%w: termDuration must be at least 1, got %d", ErrInvalidParameters, termDuration)
	}
	if _, err := ParsePositiveAmount("amountPerTerm", amountPerTerm); err != nil {
		return "", err
	}
	total, err := ParsePositiveAmount("totalAmount", totalAmount)
	if err != nil {
		return "", err
	}

	// Reserve check: a schedule may only commit tokens the ledger custodies
	// beyond what is already committed. Equality is allowed.
	withdrawable, err := withdrawableAmount(ctx)
	if err != nil {
		return "", err
	}
	if withdrawable.Cmp(total) < 0 {
		return "", fmt.Errorf("%w: schedule of %s exceeds withdrawable reserve %s", ErrInsufficientReserve, totalAmount, withdrawable)
	}

	sequence, err := GetBeneficiarySequence(ctx, beneficiary)
	if err != nil {
		return "", err
	}

	schedule := &Schedule{
		ID:            ScheduleID(beneficiary, sequence),
		Beneficiary:   beneficiary,
		Start:         start,
		AmountPerTerm: amountPerTerm,
		TermDuration:  termDuration,
		TotalAmount:   totalAmount,
		Released:      "0",
		Revocable:     revocable,
	}

	if err := SetScheduleRecord(ctx, schedule); err != nil {
		return "", err
	}
	if err := appendScheduleID(ctx, schedule.ID); err != nil {
		return "", err
	}
	if err := SetBeneficiarySequence(ctx, beneficiary, sequence+1); err != nil {
		return "", err
	}

	committed, err := GetCommittedOutstanding(ctx)
	if err != nil {
		return "", err
	}
	committed.Add(committed, total)
	if err := SetCommittedOutstanding(ctx, committed); err != nil {
		return "", err
	}

	if err := EmitScheduleCreated(ctx, schedule); err != nil {
		return "", err
	}

	return schedule.ID, nil
}

// applyRelease finalizes the ledger side of a payout: released grows, the
// committed outstanding total shrinks. No external call happens here.
func applyRelease(ctx contractapi.TransactionContextInterface, schedule *Schedule, amount *big.Int) error {
	released, err := parseStoredAmount("released", schedule.Released)
	if err != nil {
		return err
	}
	total, err := ParsePositiveAmount("totalAmount", schedule.TotalAmount)
	if err != nil {
		return err
	}

	released.Add(released, amount)
	if released.Cmp(total) > 0 {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("release would exceed total amount for schedule %s", schedule.ID), nil)
	}
	schedule.Released = released.String()

	if err := SetScheduleRecord(ctx, schedule); err != nil {
		return err
	}

	committed, err := GetCommittedOutstanding(ctx)
	if err != nil {
		return err
	}
	committed.Sub(committed, amount)
	if committed.Sign() < 0 {
		return NewCustomError(http.StatusInternalServerError, "committed outstanding total went negative", nil)
	}

	return SetCommittedOutstanding(ctx, committed)
}

// Release pays out up to the vested, unreleased amount of a schedule. Caller
// must be the schedule's beneficiary or the administrator. Ledger state is
// finalized before the token transfer is issued.
func (s *SmartContract) Release(ctx contractapi.TransactionContextInterface, id string, amount string) error {
	if err := s.beginOp(); err != nil {
		return err
	}
	defer s.endOp()

	schedule, err := GetScheduleRecord(ctx, id)
	if err != nil {
		return err
	}

	signer, err := GetUserId(ctx)
	if err != nil {
		return NewCustomError(http.StatusBadRequest, "failed to get client id", err)
	}
	if signer != schedule.Beneficiary && signer != contractAdmin {
		return fmt.Errorf("%w: signer %s is neither beneficiary nor administrator", ErrUnauthorized, signer)
	}

	if schedule.Revoked {
		return ScheduleRevokedError(id)
	}

	now, err := TxTime(ctx)
	if err != nil {
		return err
	}

	deadline, err := GetReleaseDeadline(ctx)
	if err != nil {
		return err
	}
	if deadline != 0 && now > deadline {
		return fmt.Errorf("%w: release deadline %d has passed", ErrReleasesLocked, deadline)
	}

	requested, err := ParsePositiveAmount("amount", amount)
	if err != nil {
		return err
	}

	releasable, err := Releasable(schedule, now)
	if err != nil {
		return err
	}
	if requested.Cmp(releasable) > 0 {
		return fmt.Errorf("%w: requested %s, releasable %s", ErrNotYetVested, amount, releasable)
	}

	if err := applyRelease(ctx, schedule, requested); err != nil {
		return err
	}

	if err := transferTokens(ctx, schedule.Beneficiary, requested); err != nil {
		return err
	}

	return EmitTokensReleased(ctx, schedule.ID, schedule.Beneficiary, requested.String())
}

// Revoke cancels a revocable schedule. The beneficiary is first paid whatever
// has vested up to the revocation instant, then the unreleased remainder is
// uncommitted and the schedule is frozen. Administrator only. Terminal.
func (s *SmartContract) Revoke(ctx contractapi.TransactionContextInterface, id string) error {
	if err := s.beginOp(); err != nil {
		return err
	}
	defer s.endOp()

	if err := IsSignerAdmin(ctx); err != nil {
		return err
	}

	schedule, err := GetScheduleRecord(ctx, id)
	if err != nil {
		return err
	}
	if schedule.Revoked {
		return ScheduleRevokedError(id)
	}
	if !schedule.Revocable {
		return fmt.Errorf("%w: schedule %s", ErrScheduleNotRevocable, id)
	}

	now, err := TxTime(ctx)
	if err != nil {
		return err
	}

	payout, err := Releasable(schedule, now)
	if err != nil {
		return err
	}

	if payout.Sign() > 0 {
		if err := applyRelease(ctx, schedule, payout); err != nil {
			return err
		}
	}

	released, err := parseStoredAmount("released", schedule.Released)
	if err != nil {
		return err
	}
	total, err := ParsePositiveAmount("totalAmount", schedule.TotalAmount)
	if err != nil {
		return err
	}
	remainder := new(big.Int).Sub(total, released)

	committed, err := GetCommittedOutstanding(ctx)
	if err != nil {
		return err
	}
	committed.Sub(committed, remainder)
	if committed.Sign() < 0 {
		return NewCustomError(http.StatusInternalServerError, "committed outstanding total went negative", nil)
	}
	if err := SetCommittedOutstanding(ctx, committed); err != nil {
		return err
	}

	schedule.Revoked = true
	if err := SetScheduleRecord(ctx, schedule); err != nil {
		return err
	}

	// State is frozen; only now does the final payout leave custody.
	if payout.Sign() > 0 {
		if err := transferTokens(ctx, schedule.Beneficiary, payout); err != nil {
			return err
		}
		if err := EmitTokensReleased(ctx, schedule.ID, schedule.Beneficiary, payout.String()); err != nil {
			return err
		}
	}

	return EmitScheduleRevoked(ctx, schedule.ID, remainder.String())
}

// WithdrawSurplus recovers custodied tokens in excess of the committed
// outstanding total. Administrator only.
func (s *SmartContract) WithdrawSurplus(ctx contractapi.TransactionContextInterface, recipient string, amount string) error {
	if err := s.beginOp(); err != nil {
		return err
	}
	defer s.endOp()

	if err := IsSignerAdmin(ctx); err != nil {
		return err
	}
	if !IsUserAddressValid(recipient) {
		return InvalidUserAddressError(recipient)
	}

	requested, err := ParsePositiveAmount("amount", amount)
	if err != nil {
		return err
	}

	withdrawable, err := withdrawableAmount(ctx)
	if err != nil {
		return err
	}
	if requested.Cmp(withdrawable) > 0 {
		return fmt.Errorf("%w: withdrawal of %s exceeds withdrawable surplus %s", ErrInsufficientReserve, amount, withdrawable)
	}

	if err := transferTokens(ctx, recipient, requested); err != nil {
		return err
	}

	return EmitSurplusWithdrawn(ctx, recipient, amount)
}

// ExtendReleaseDeadline moves the global release deadline forward. While a
// deadline is set, releases after it are rejected. Administrator only; the
// deadline can only grow.
func (s *SmartContract) ExtendReleaseDeadline(ctx contractapi.TransactionContextInterface, deadline uint64) error {
	if err := IsSignerAdmin(ctx); err != nil {
		return err
	}
	if deadline == 0 {
		return fmt.Errorf("%w: deadline cannot be zero", ErrInvalidParameters)
	}

	current, err := GetReleaseDeadline(ctx)
	if err != nil {
		return err
	}
	if deadline <= current {
		return fmt.Errorf("%w: deadline %d does not extend current %d", ErrInvalidParameters, deadline, current)
	}

	if err := SetReleaseDeadline(ctx, deadline); err != nil {
		return err
	}

	return EmitReleaseDeadlineExtended(ctx, deadline)
}

// GetSchedule returns a schedule by identifier.
func (s *SmartContract) GetSchedule(ctx contractapi.TransactionContextInterface, id string) (*Schedule, error) {
	return GetScheduleRecord(ctx, id)
}

// GetScheduleByBeneficiary returns a beneficiary's schedule by its
// per-beneficiary index.
func (s *SmartContract) GetScheduleByBeneficiary(ctx contractapi.TransactionContextInterface, beneficiary string, index uint64) (*Schedule, error) {
	return GetScheduleRecord(ctx, ScheduleID(beneficiary, index))
}

// ScheduleCount returns the number of schedules ever created.
func (s *SmartContract) ScheduleCount(ctx contractapi.TransactionContextInterface) (uint64, error) {
	ids, err := GetScheduleIDs(ctx)
	if err != nil {
		return 0, err
	}
	return uint64(len(ids)), nil
}

// ScheduleIDAt returns the identifier at a position in the global
// creation-ordered list. Index must be below ScheduleCount.
func (s *SmartContract) ScheduleIDAt(ctx contractapi.TransactionContextInterface, index uint64) (string, error) {
	ids, err := GetScheduleIDs(ctx)
	if err != nil {
		return "", err
	}
	if index >= uint64(len(ids)) {
		return "", fmt.Errorf("%w: index %d out of range, %d schedules exist", ErrInvalidParameters, index, len(ids))
	}
	return ids[index], nil
}

// ScheduleCountForBeneficiary returns how many schedules a beneficiary has,
// which is also the sequence number the next schedule id derives from.
func (s *SmartContract) ScheduleCountForBeneficiary(ctx contractapi.TransactionContextInterface, beneficiary string) (uint64, error) {
	return GetBeneficiarySequence(ctx, beneficiary)
}

// ReleasableAmount returns what a schedule can pay out as of the transaction
// timestamp.
func (s *SmartContract) ReleasableAmount(ctx contractapi.TransactionContextInterface, id string) (string, error) {
	schedule, err := GetScheduleRecord(ctx, id)
	if err != nil {
		return "", err
	}

	now, err := TxTime(ctx)
	if err != nil {
		return "", err
	}

	releasable, err := Releasable(schedule, now)
	if err != nil {
		return "", err
	}

	return releasable.String(), nil
}

// WithdrawableAmount returns the custodied balance minus the committed
// outstanding total.
func (s *SmartContract) WithdrawableAmount(ctx contractapi.TransactionContextInterface) (string, error) {
	withdrawable, err := withdrawableAmount(ctx)
	if err != nil {
		return "", err
	}
	return withdrawable.String(), nil
}

// CommittedOutstandingAmount returns the ledger's committed-but-unreleased
// total.
func (s *SmartContract) CommittedOutstandingAmount(ctx contractapi.TransactionContextInterface) (string, error) {
	committed, err := GetCommittedOutstanding(ctx)
	if err != nil {
		return "", err
	}
	return committed.String(), nil
}

// ReleaseDeadline returns the current global release deadline, zero when none
// is set.
func (s *SmartContract) ReleaseDeadline(ctx contractapi.TransactionContextInterface) (uint64, error) {
	return GetReleaseDeadline(ctx)
}
