package liquidity

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// Schedule is the vesting ledger's central record. It is created once, mutated
// only through Release and Revoke, and never deleted: revoked and fully vested
// schedules stay queryable for audit.
type Schedule struct {
	ID            string `json:"id"`
	Beneficiary   string `json:"beneficiary"`
	Start         uint64 `json:"start"`
	AmountPerTerm string `json:"amountPerTerm"`
	TermDuration  uint64 `json:"termDuration"`
	TotalAmount   string `json:"totalAmount"`
	Released      string `json:"released"`
	Revocable     bool   `json:"revocable"`
	Revoked       bool   `json:"revoked"`
}

func GetScheduleRecord(ctx contractapi.TransactionContextInterface, id string) (*Schedule, error) {
	scheduleKey := fmt.Sprintf("schedule_%s", id)
	scheduleAsBytes, err := ctx.GetStub().GetState(scheduleKey)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get schedule with Key %s", scheduleKey), err)
	}
	if scheduleAsBytes == nil {
		return nil, ScheduleNotFoundError(id)
	}

	var schedule Schedule
	err = json.Unmarshal(scheduleAsBytes, &schedule)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, "failed to unmarshal schedule", err)
	}

	return &schedule, nil
}

func SetScheduleRecord(ctx contractapi.TransactionContextInterface, schedule *Schedule) error {
	scheduleKey := fmt.Sprintf("schedule_%s", schedule.ID)
	scheduleAsBytes, err := json.Marshal(schedule)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to marshal schedule", err)
	}

	err = ctx.GetStub().PutState(scheduleKey, scheduleAsBytes)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set schedule", err)
	}

	return nil
}

// GetScheduleIDs returns the global creation-ordered identifier list. The list
// is append-only: ids of revoked schedules are never removed.
func GetScheduleIDs(ctx contractapi.TransactionContextInterface) ([]string, error) {
	idsJSON, err := ctx.GetStub().GetState(allSchedulesKey)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, "failed to get schedule id list", err)
	}
	if idsJSON == nil {
		return []string{}, nil
	}

	var ids []string
	err = json.Unmarshal(idsJSON, &ids)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, "failed to unmarshal schedule id list", err)
	}

	return ids, nil
}

func appendScheduleID(ctx contractapi.TransactionContextInterface, id string) error {
	ids, err := GetScheduleIDs(ctx)
	if err != nil {
		return err
	}

	ids = append(ids, id)
	updatedIDsJSON, err := json.Marshal(ids)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to marshal schedule id list", err)
	}

	err = ctx.GetStub().PutState(allSchedulesKey, updatedIDsJSON)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set schedule id list", err)
	}

	return nil
}

// GetBeneficiarySequence returns the next sequence number for a beneficiary,
// which is also its schedule count. Sequences are gapless and start at 0, so
// the next schedule id is computable before creation.
func GetBeneficiarySequence(ctx contractapi.TransactionContextInterface, beneficiary string) (uint64, error) {
	sequenceKey := fmt.Sprintf("schedulecount_%s", beneficiary)
	sequenceAsBytes, err := ctx.GetStub().GetState(sequenceKey)
	if err != nil {
		return 0, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get sequence with Key %s", sequenceKey), err)
	}
	if sequenceAsBytes == nil {
		return 0, nil
	}

	sequence, err := strconv.ParseUint(string(sequenceAsBytes), 10, 64)
	if err != nil {
		return 0, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse sequence for %s", beneficiary), err)
	}

	return sequence, nil
}

func SetBeneficiarySequence(ctx contractapi.TransactionContextInterface, beneficiary string, sequence uint64) error {
	sequenceKey := fmt.Sprintf("schedulecount_%s", beneficiary)
	err := ctx.GetStub().PutState(sequenceKey, []byte(strconv.FormatUint(sequence, 10)))
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set sequence for %s", beneficiary), err)
	}

	return nil
}

// GetCommittedOutstanding returns the ledger's tracked committed-but-unreleased
// total: the sum of (totalAmount - released) over all non-revoked schedules.
func GetCommittedOutstanding(ctx contractapi.TransactionContextInterface) (*big.Int, error) {
	committedAsBytes, err := ctx.GetStub().GetState(committedOutstandingKey)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get committed outstanding with Key %s", committedOutstandingKey), err)
	}

	committed := big.NewInt(0)
	if committedAsBytes != nil {
		_, success := committed.SetString(string(committedAsBytes), 10)
		if !success {
			return nil, NewCustomError(http.StatusInternalServerError, "failed to parse committed outstanding total", nil)
		}
	}

	return committed, nil
}

func SetCommittedOutstanding(ctx contractapi.TransactionContextInterface, committed *big.Int) error {
	committedAsBytes, err := committed.MarshalText()
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to marshal committed outstanding total", err)
	}

	err = ctx.GetStub().PutState(committedOutstandingKey, committedAsBytes)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set committed outstanding total", err)
	}

	return nil
}

func GetReleaseDeadline(ctx contractapi.TransactionContextInterface) (uint64, error) {
	deadlineAsBytes, err := ctx.GetStub().GetState(releaseDeadlineKey)
	if err != nil {
		return 0, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get release deadline with Key %s", releaseDeadlineKey), err)
	}
	if deadlineAsBytes == nil {
		return 0, nil
	}

	deadline, err := strconv.ParseUint(string(deadlineAsBytes), 10, 64)
	if err != nil {
		return 0, NewCustomError(http.StatusInternalServerError, "failed to parse release deadline", err)
	}

	return deadline, nil
}

func SetReleaseDeadline(ctx contractapi.TransactionContextInterface, deadline uint64) error {
	err := ctx.GetStub().PutState(releaseDeadlineKey, []byte(strconv.FormatUint(deadline, 10)))
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set release deadline", err)
	}

	return nil
}
