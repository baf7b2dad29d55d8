package sale

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"github.com/CubeConsumerServicesPvtLtd/tikkatokenerc20/liquidity"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

const (
	saleConfigKey = "saleconfig"
	tokensCapKey  = "sale_tokenscap"
	tokensSoldKey = "sale_tokenssold"

	paymentAllowanceFunction    = "Allowance"
	paymentTransferFromFunction = "TransferFrom"
)

// SaleConfig is the sale's fixed configuration: which payment token buyers pay
// with, the account payments are pulled into, and the price of one token in
// payment units.
type SaleConfig struct {
	PaymentToken string `json:"paymentToken"`
	Collector    string `json:"collector"`
	Price        string `json:"price"`
}

func GetSaleConfig(ctx contractapi.TransactionContextInterface) (*SaleConfig, error) {
	configAsBytes, err := ctx.GetStub().GetState(saleConfigKey)
	if err != nil {
		return nil, liquidity.NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get sale config with Key %s", saleConfigKey), err)
	}
	if configAsBytes == nil {
		return nil, ErrSaleNotInitialized
	}

	var config SaleConfig
	err = json.Unmarshal(configAsBytes, &config)
	if err != nil {
		return nil, liquidity.NewCustomError(http.StatusInternalServerError, "failed to unmarshal sale config", err)
	}

	return &config, nil
}

func setSaleConfig(ctx contractapi.TransactionContextInterface, config *SaleConfig) error {
	configAsBytes, err := json.Marshal(config)
	if err != nil {
		return liquidity.NewCustomError(http.StatusInternalServerError, "failed to marshal sale config", err)
	}

	err = ctx.GetStub().PutState(saleConfigKey, configAsBytes)
	if err != nil {
		return liquidity.NewCustomError(http.StatusInternalServerError, "failed to set sale config", err)
	}

	return nil
}

func getCounter(ctx contractapi.TransactionContextInterface, key string) (*big.Int, error) {
	counterAsBytes, err := ctx.GetStub().GetState(key)
	if err != nil {
		return nil, liquidity.NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get counter with Key %s", key), err)
	}

	counter := big.NewInt(0)
	if counterAsBytes != nil {
		_, success := counter.SetString(string(counterAsBytes), 10)
		if !success {
			return nil, liquidity.NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse counter with Key %s", key), nil)
		}
	}

	return counter, nil
}

func setCounter(ctx contractapi.TransactionContextInterface, key string, counter *big.Int) error {
	counterAsBytes, err := counter.MarshalText()
	if err != nil {
		return liquidity.NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to marshal counter with Key %s", key), err)
	}

	err = ctx.GetStub().PutState(key, counterAsBytes)
	if err != nil {
		return liquidity.NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set counter with Key %s", key), err)
	}

	return nil
}

func GetTokensCap(ctx contractapi.TransactionContextInterface) (*big.Int, error) {
	return getCounter(ctx, tokensCapKey)
}

func GetTokensSold(ctx contractapi.TransactionContextInterface) (*big.Int, error) {
	return getCounter(ctx, tokensSoldKey)
}
