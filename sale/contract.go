package sale

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync/atomic"

	"github.com/CubeConsumerServicesPvtLtd/tikkatokenerc20/liquidity"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// SmartContract is the token sale front-end. It validates and pulls payment,
// then hands the buyer to the vesting ledger's private-sale preset: purchased
// tokens vest, they are not delivered immediately.
type SmartContract struct {
	contractapi.Contract

	inFlight uint32
}

func (s *SmartContract) beginOp() error {
	if !atomic.CompareAndSwapUint32(&s.inFlight, 0, 1) {
		return liquidity.ErrReentrantCall
	}
	return nil
}

func (s *SmartContract) endOp() {
	atomic.StoreUint32(&s.inFlight, 0)
}

// Initialize configures the sale. Administrator only, once.
func (s *SmartContract) Initialize(ctx contractapi.TransactionContextInterface, paymentToken, collector, price, tokensCap string) error {
	if err := liquidity.IsSignerAdmin(ctx); err != nil {
		return err
	}

	if _, err := GetSaleConfig(ctx); err == nil {
		return ErrSaleAlreadyInitialized
	} else if !errors.Is(err, ErrSaleNotInitialized) {
		return err
	}

	if paymentToken == "" {
		return fmt.Errorf("%w: payment token cannot be empty", liquidity.ErrInvalidParameters)
	}
	if !liquidity.IsUserAddressValid(collector) {
		return liquidity.InvalidUserAddressError(collector)
	}
	if _, err := liquidity.ParsePositiveAmount("price", price); err != nil {
		return err
	}
	cap, err := liquidity.ParsePositiveAmount("tokensCap", tokensCap)
	if err != nil {
		return err
	}

	err = setSaleConfig(ctx, &SaleConfig{
		PaymentToken: paymentToken,
		Collector:    collector,
		Price:        price,
	})
	if err != nil {
		return err
	}
	if err := setCounter(ctx, tokensCapKey, cap); err != nil {
		return err
	}
	if err := setCounter(ctx, tokensSoldKey, big.NewInt(0)); err != nil {
		return err
	}

	return emitEvent(ctx, "SaleInitialized", SaleInitializedEvent{
		PaymentToken: paymentToken,
		Collector:    collector,
		Price:        price,
		TokensCap:    tokensCap,
	})
}

// BuyTokens sells numberOfTokens to the calling identity. Payment is
// numberOfTokens times the configured price, pulled from the buyer's
// pre-approved payment-token allowance; on success a private-sale vesting
// schedule starting at the transaction timestamp is created for the buyer.
// Returns the schedule identifier.
func (s *SmartContract) BuyTokens(ctx contractapi.TransactionContextInterface, numberOfTokens string) (string, error) {
	if err := s.beginOp(); err != nil {
		return "", err
	}
	defer s.endOp()

	config, err := GetSaleConfig(ctx)
	if err != nil {
		return "", err
	}

	tokens, err := liquidity.ParsePositiveAmount("numberOfTokens", numberOfTokens)
	if err != nil {
		return "", err
	}

	cap, err := GetTokensCap(ctx)
	if err != nil {
		return "", err
	}
	sold, err := GetTokensSold(ctx)
	if err != nil {
		return "", err
	}

	remaining := new(big.Int).Sub(cap, sold)
	if tokens.Cmp(remaining) > 0 {
		return "", fmt.Errorf("%w: requested %s, remaining %s", ErrSaleExhausted, numberOfTokens, remaining)
	}

	price, err := liquidity.ParsePositiveAmount("price", config.Price)
	if err != nil {
		return "", err
	}

	// Checked price multiplication: the product must stay inside the payment
	// token's 256-bit domain.
	amount := new(big.Int).Mul(tokens, price)
	if amount.BitLen() > 256 {
		return "", fmt.Errorf("%w: payment amount for %s tokens does not fit 256 bits", liquidity.ErrArithmeticOverflow, numberOfTokens)
	}

	buyer, err := liquidity.GetUserId(ctx)
	if err != nil {
		return "", liquidity.NewCustomError(http.StatusBadRequest, "failed to get client id", err)
	}

	allowance, err := paymentAllowance(ctx, config, buyer)
	if err != nil {
		return "", err
	}
	if allowance.Cmp(amount) < 0 {
		return "", fmt.Errorf("%w: allowance %s below payment amount %s", ErrPaymentNotApproved, allowance, amount)
	}

	// Effects before external calls: the sold counter is final before payment
	// is pulled.
	sold.Add(sold, tokens)
	if err := setCounter(ctx, tokensSoldKey, sold); err != nil {
		return "", err
	}

	if err := pullPayment(ctx, config, buyer, amount); err != nil {
		return "", err
	}

	now, err := liquidity.TxTime(ctx)
	if err != nil {
		return "", err
	}

	id, err := liquidity.CreateAllocation(ctx, liquidity.PrivateSale, buyer, now, numberOfTokens, true)
	if err != nil {
		return "", err
	}

	err = emitEvent(ctx, "TokensPurchased", TokensPurchasedEvent{
		Buyer:          buyer,
		NumberOfTokens: numberOfTokens,
		Amount:         amount.String(),
		ScheduleID:     id,
	})
	if err != nil {
		return "", err
	}

	return id, nil
}

// EndSale sets the remaining sellable amount to zero. Administrator only,
// irreversible.
func (s *SmartContract) EndSale(ctx contractapi.TransactionContextInterface) error {
	if err := liquidity.IsSignerAdmin(ctx); err != nil {
		return err
	}
	if _, err := GetSaleConfig(ctx); err != nil {
		return err
	}

	sold, err := GetTokensSold(ctx)
	if err != nil {
		return err
	}

	if err := setCounter(ctx, tokensCapKey, sold); err != nil {
		return err
	}

	return emitEvent(ctx, "SaleEnded", SaleEndedEvent{TokensSold: sold.String()})
}

// Price returns the configured price of one token in payment units.
func (s *SmartContract) Price(ctx contractapi.TransactionContextInterface) (string, error) {
	config, err := GetSaleConfig(ctx)
	if err != nil {
		return "", err
	}
	return config.Price, nil
}

// TokensCap returns the sale's sellable cap.
func (s *SmartContract) TokensCap(ctx contractapi.TransactionContextInterface) (string, error) {
	cap, err := GetTokensCap(ctx)
	if err != nil {
		return "", err
	}
	return cap.String(), nil
}

// TokensSold returns how many tokens have been sold.
func (s *SmartContract) TokensSold(ctx contractapi.TransactionContextInterface) (string, error) {
	sold, err := GetTokensSold(ctx)
	if err != nil {
		return "", err
	}
	return sold.String(), nil
}

// RemainingTokens returns how many tokens can still be sold.
func (s *SmartContract) RemainingTokens(ctx contractapi.TransactionContextInterface) (string, error) {
	cap, err := GetTokensCap(ctx)
	if err != nil {
		return "", err
	}
	sold, err := GetTokensSold(ctx)
	if err != nil {
		return "", err
	}
	return new(big.Int).Sub(cap, sold).String(), nil
}

func paymentAllowance(ctx contractapi.TransactionContextInterface, config *SaleConfig, buyer string) (*big.Int, error) {
	response := ctx.GetStub().InvokeChaincode(config.PaymentToken, [][]byte{
		[]byte(paymentAllowanceFunction),
		[]byte(buyer),
		[]byte(config.Collector),
	}, "")
	if response.Status != http.StatusOK {
		return nil, fmt.Errorf("%w: allowance query failed: %s", ErrPaymentNotApproved, response.Message)
	}

	allowance, success := new(big.Int).SetString(string(response.Payload), 10)
	if !success || allowance.Sign() < 0 {
		return nil, liquidity.NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse allowance %q", response.Payload), nil)
	}

	return allowance, nil
}

func pullPayment(ctx contractapi.TransactionContextInterface, config *SaleConfig, buyer string, amount *big.Int) error {
	response := ctx.GetStub().InvokeChaincode(config.PaymentToken, [][]byte{
		[]byte(paymentTransferFromFunction),
		[]byte(buyer),
		[]byte(config.Collector),
		[]byte(amount.String()),
	}, "")
	if response.Status != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrPaymentTransferFailed, response.Message)
	}

	return nil
}
