package liquidity

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

type ScheduleCreatedEvent struct {
	ID            string `json:"id"`
	Beneficiary   string `json:"beneficiary"`
	Start         uint64 `json:"start"`
	AmountPerTerm string `json:"amountPerTerm"`
	TermDuration  uint64 `json:"termDuration"`
	TotalAmount   string `json:"totalAmount"`
	Revocable     bool   `json:"revocable"`
}

type TokensReleasedEvent struct {
	ScheduleID  string `json:"scheduleId"`
	Beneficiary string `json:"beneficiary"`
	Amount      string `json:"amount"`
}

type ScheduleRevokedEvent struct {
	ScheduleID string `json:"scheduleId"`
	Remainder  string `json:"remainder"`
}

type SurplusWithdrawnEvent struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type ReleaseDeadlineExtendedEvent struct {
	Deadline uint64 `json:"deadline"`
}

type TokenAddressSetEvent struct {
	Token          string `json:"token"`
	CustodyAccount string `json:"custodyAccount"`
}

func emitEvent(ctx contractapi.TransactionContextInterface, name string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to obtain JSON encoding: %v", err)
	}

	err = ctx.GetStub().SetEvent(name, payloadJSON)
	if err != nil {
		return fmt.Errorf("failed to set event: %v", err)
	}

	return nil
}

func EmitScheduleCreated(ctx contractapi.TransactionContextInterface, schedule *Schedule) error {
	return emitEvent(ctx, "ScheduleCreated", ScheduleCreatedEvent{
		ID:            schedule.ID,
		Beneficiary:   schedule.Beneficiary,
		Start:         schedule.Start,
		AmountPerTerm: schedule.AmountPerTerm,
		TermDuration:  schedule.TermDuration,
		TotalAmount:   schedule.TotalAmount,
		Revocable:     schedule.Revocable,
	})
}

func EmitTokensReleased(ctx contractapi.TransactionContextInterface, scheduleID, beneficiary, amount string) error {
	return emitEvent(ctx, "TokensReleased", TokensReleasedEvent{
		ScheduleID:  scheduleID,
		Beneficiary: beneficiary,
		Amount:      amount,
	})
}

func EmitScheduleRevoked(ctx contractapi.TransactionContextInterface, scheduleID, remainder string) error {
	return emitEvent(ctx, "ScheduleRevoked", ScheduleRevokedEvent{
		ScheduleID: scheduleID,
		Remainder:  remainder,
	})
}

func EmitSurplusWithdrawn(ctx contractapi.TransactionContextInterface, recipient, amount string) error {
	return emitEvent(ctx, "SurplusWithdrawn", SurplusWithdrawnEvent{
		Recipient: recipient,
		Amount:    amount,
	})
}

func EmitReleaseDeadlineExtended(ctx contractapi.TransactionContextInterface, deadline uint64) error {
	return emitEvent(ctx, "ReleaseDeadlineExtended", ReleaseDeadlineExtendedEvent{Deadline: deadline})
}

func EmitTokenAddressSet(ctx contractapi.TransactionContextInterface, token, custodyAccount string) error {
	return emitEvent(ctx, "TokenAddressSet", TokenAddressSetEvent{
		Token:          token,
		CustodyAccount: custodyAccount,
	})
}
