package liquidity

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

func GetTokenAddress(ctx contractapi.TransactionContextInterface) (string, error) {
	tokenAddressBytes, err := ctx.GetStub().GetState(tokenAddressKey)
	if err != nil {
		return "", NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get token address with Key %s", tokenAddressKey), err)
	}
	if tokenAddressBytes == nil || string(tokenAddressBytes) == "" {
		return "", ErrTokenNotSet
	}

	return string(tokenAddressBytes), nil
}

func GetCustodyAccount(ctx contractapi.TransactionContextInterface) (string, error) {
	custodyAccountBytes, err := ctx.GetStub().GetState(custodyAccountKey)
	if err != nil {
		return "", NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get custody account with Key %s", custodyAccountKey), err)
	}
	if custodyAccountBytes == nil || string(custodyAccountBytes) == "" {
		return "", ErrTokenNotSet
	}

	return string(custodyAccountBytes), nil
}

func setTokenAddress(ctx contractapi.TransactionContextInterface, tokenAddress, custodyAccount string) error {
	existingAddress, err := ctx.GetStub().GetState(tokenAddressKey)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get token address with Key %s", tokenAddressKey), err)
	}
	if existingAddress != nil && string(existingAddress) != "" {
		return ErrTokenAlreadySet
	}

	err = ctx.GetStub().PutState(tokenAddressKey, []byte(tokenAddress))
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set token address with Key %s", tokenAddressKey), err)
	}

	err = ctx.GetStub().PutState(custodyAccountKey, []byte(custodyAccount))
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set custody account with Key %s", custodyAccountKey), err)
	}

	return nil
}

// custodiedBalance queries the ledger's live balance from the custody token
// chaincode. The balance is never cached in ledger state.
func custodiedBalance(ctx contractapi.TransactionContextInterface) (*big.Int, error) {
	tokenAddress, err := GetTokenAddress(ctx)
	if err != nil {
		return nil, err
	}
	custodyAccount, err := GetCustodyAccount(ctx)
	if err != nil {
		return nil, err
	}

	response := ctx.GetStub().InvokeChaincode(tokenAddress, [][]byte{
		[]byte(tokenBalanceOfFunction),
		[]byte(custodyAccount),
	}, "")
	if response.Status != http.StatusOK {
		return nil, NewCustomError(int(response.Status), fmt.Sprintf("failed to query custody balance from token %s", tokenAddress), errors.New(response.Message))
	}

	balance, success := new(big.Int).SetString(string(response.Payload), 10)
	if !success || balance.Sign() < 0 {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse custody balance %q", response.Payload), nil)
	}

	return balance, nil
}

// transferTokens moves custodied tokens to a recipient through the token
// chaincode. Callers must finalize all ledger state before invoking it.
func transferTokens(ctx contractapi.TransactionContextInterface, recipient string, amount *big.Int) error {
	tokenAddress, err := GetTokenAddress(ctx)
	if err != nil {
		return err
	}

	response := ctx.GetStub().InvokeChaincode(tokenAddress, [][]byte{
		[]byte(tokenTransferFunction),
		[]byte(recipient),
		[]byte(amount.String()),
	}, "")
	if response.Status != http.StatusOK {
		return NewCustomError(int(response.Status), fmt.Sprintf("failed to transfer %s tokens to %s", amount, recipient), errors.New(response.Message))
	}

	return nil
}

// withdrawableAmount is the custodied balance minus the committed outstanding
// total: the only portion the administrator may withdraw and the reserve new
// schedules are created against.
func withdrawableAmount(ctx contractapi.TransactionContextInterface) (*big.Int, error) {
	balance, err := custodiedBalance(ctx)
	if err != nil {
		return nil, err
	}
	committed, err := GetCommittedOutstanding(ctx)
	if err != nil {
		return nil, err
	}

	withdrawable := new(big.Int).Sub(balance, committed)
	if withdrawable.Sign() < 0 {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("committed outstanding %s exceeds custodied balance %s", committed, balance), nil)
	}

	return withdrawable, nil
}
