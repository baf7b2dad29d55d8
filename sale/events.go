package sale

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

type SaleInitializedEvent struct {
	PaymentToken string `json:"paymentToken"`
	Collector    string `json:"collector"`
	Price        string `json:"price"`
	TokensCap    string `json:"tokensCap"`
}

type TokensPurchasedEvent struct {
	Buyer          string `json:"buyer"`
	NumberOfTokens string `json:"numberOfTokens"`
	Amount         string `json:"amount"`
	ScheduleID     string `json:"scheduleId"`
}

type SaleEndedEvent struct {
	TokensSold string `json:"tokensSold"`
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
