package sale_test

import (
	"encoding/base64"
	"errors"
	"math/big"
	"testing"

	"github.com/CubeConsumerServicesPvtLtd/tikkatokenerc20/liquidity"
	"github.com/CubeConsumerServicesPvtLtd/tikkatokenerc20/mocks"
	"github.com/CubeConsumerServicesPvtLtd/tikkatokenerc20/sale"
	"github.com/golang/protobuf/ptypes/timestamp"
	"github.com/hyperledger/fabric-protos-go/peer"
	"github.com/stretchr/testify/require"
)

const (
	admin     = "4f8e2a91c06d5b13e7a4fd09b82c3561de97a044"
	buyer     = "9c4d01f62b7a83655c2e9a0f41d8b3726ea5c099"
	collector = "1f0a88d3c54be97210ffe6b3a8d2047c9e165b22"

	custodyChaincode = "tikkatoken"
	custodyAccount   = "5b2e7d190c3faa846617d02bce498f53a7140dd8"
	paymentChaincode = "usdstable"

	saleStart = uint64(1_700_000_000)
)

// testSale wires a sale contract (and the liquidity contract it allocates
// through) to an in-memory world state, a fake custody token, and a fake
// payment token with a per-buyer allowance.
type testSale struct {
	contract  *sale.SmartContract
	liquidity *liquidity.SmartContract
	ctx       *mocks.TransactionContext
	stub      *mocks.ChaincodeStub
	state     map[string][]byte

	custodyBalance *big.Int
	allowance      *big.Int
	payments       [][3]string
	failPayment    bool
}

func newTestSale(t *testing.T) *testSale {
	t.Helper()

	s := &testSale{
		contract:       &sale.SmartContract{},
		liquidity:      &liquidity.SmartContract{},
		ctx:            &mocks.TransactionContext{},
		stub:           &mocks.ChaincodeStub{},
		state:          map[string][]byte{},
		custodyBalance: big.NewInt(0),
		allowance:      big.NewInt(0),
	}
	s.ctx.GetStubReturns(s.stub)

	s.stub.PutStateStub = func(key string, value []byte) error {
		s.state[key] = value
		return nil
	}
	s.stub.GetStateStub = func(key string) ([]byte, error) {
		return s.state[key], nil
	}
	s.stub.GetTxTimestampReturns(&timestamp.Timestamp{Seconds: int64(saleStart)}, nil)

	s.stub.InvokeChaincodeStub = func(chaincodeName string, args [][]byte, channel string) peer.Response {
		switch chaincodeName {
		case custodyChaincode:
			switch string(args[0]) {
			case "BalanceOf":
				return peer.Response{Status: 200, Payload: []byte(s.custodyBalance.String())}
			case "Transfer":
				return peer.Response{Status: 200}
			}
		case paymentChaincode:
			switch string(args[0]) {
			case "Allowance":
				return peer.Response{Status: 200, Payload: []byte(s.allowance.String())}
			case "TransferFrom":
				if s.failPayment {
					return peer.Response{Status: 500, Message: "transfer rejected"}
				}
				s.payments = append(s.payments, [3]string{string(args[1]), string(args[2]), string(args[3])})
				return peer.Response{Status: 200}
			}
		}
		return peer.Response{Status: 500, Message: "unknown chaincode"}
	}

	return s
}

func (s *testSale) setSigner(userID string) {
	completeId := "x509::CN=" + userID + ",O=Organization,L=City,ST=State,C=Country"
	b64ID := base64.StdEncoding.EncodeToString([]byte(completeId))

	clientIdentity := &mocks.ClientIdentity{}
	clientIdentity.GetIDReturns(b64ID, nil)
	clientIdentity.AssertAttributeValueReturns(errors.New("attribute not found"))
	s.ctx.GetClientIdentityReturns(clientIdentity)
}

// openSale returns a sale initialized by the administrator with the given
// price and cap, backed by a funded custody reserve.
func openSale(t *testing.T, price, tokensCap string) *testSale {
	t.Helper()

	s := newTestSale(t)
	s.setSigner(admin)
	require.NoError(t, s.liquidity.SetTokenAddress(s.ctx, custodyChaincode, custodyAccount))
	require.NoError(t, s.contract.Initialize(s.ctx, paymentChaincode, collector, price, tokensCap))

	cap, ok := new(big.Int).SetString(tokensCap, 10)
	require.True(t, ok)
	s.custodyBalance.Set(cap)
	return s
}

func TestInitialize(t *testing.T) {
	t.Parallel()

	s := newTestSale(t)

	s.setSigner(buyer)
	err := s.contract.Initialize(s.ctx, paymentChaincode, collector, "5", "1000")
	require.ErrorIs(t, err, liquidity.ErrUnauthorized)

	s.setSigner(admin)
	err = s.contract.Initialize(s.ctx, "", collector, "5", "1000")
	require.ErrorIs(t, err, liquidity.ErrInvalidParameters)

	err = s.contract.Initialize(s.ctx, paymentChaincode, "not-an-address", "5", "1000")
	require.ErrorIs(t, err, liquidity.ErrInvalidParameters)

	err = s.contract.Initialize(s.ctx, paymentChaincode, collector, "0", "1000")
	require.ErrorIs(t, err, liquidity.ErrInvalidParameters)

	err = s.contract.Initialize(s.ctx, paymentChaincode, collector, "5", "0")
	require.ErrorIs(t, err, liquidity.ErrInvalidParameters)

	require.NoError(t, s.contract.Initialize(s.ctx, paymentChaincode, collector, "5", "1000"))

	err = s.contract.Initialize(s.ctx, paymentChaincode, collector, "5", "1000")
	require.ErrorIs(t, err, sale.ErrSaleAlreadyInitialized)

	price, err := s.contract.Price(s.ctx)
	require.NoError(t, err)
	require.Equal(t, "5", price)

	cap, err := s.contract.TokensCap(s.ctx)
	require.NoError(t, err)
	require.Equal(t, "1000", cap)
}

func TestBuyTokensNotInitialized(t *testing.T) {
	t.Parallel()

	s := newTestSale(t)
	s.setSigner(buyer)

	_, err := s.contract.BuyTokens(s.ctx, "100")
	require.ErrorIs(t, err, sale.ErrSaleNotInitialized)
}

func TestBuyTokens(t *testing.T) {
	t.Parallel()

	s := openSale(t, "5", "1000")
	s.setSigner(buyer)
	s.allowance.SetInt64(500)

	id, err := s.contract.BuyTokens(s.ctx, "100")
	require.NoError(t, err)

	// Payment is numberOfTokens times price, pulled from the buyer to the
	// collector.
	require.Equal(t, [][3]string{{buyer, collector, "500"}}, s.payments)

	sold, err := s.contract.TokensSold(s.ctx)
	require.NoError(t, err)
	require.Equal(t, "100", sold)

	remaining, err := s.contract.RemainingTokens(s.ctx)
	require.NoError(t, err)
	require.Equal(t, "900", remaining)

	// Each purchase custodies the tokens under a private-sale vesting
	// schedule for the buyer.
	schedule, err := s.liquidity.GetSchedule(s.ctx, id)
	require.NoError(t, err)
	require.Equal(t, buyer, schedule.Beneficiary)
	require.Equal(t, "100", schedule.TotalAmount)
	require.Equal(t, "10", schedule.AmountPerTerm)
	require.Equal(t, uint64(7_862_400), schedule.TermDuration)
	require.Equal(t, saleStart, schedule.Start)
	require.True(t, schedule.Revocable)

	committed, err := s.liquidity.CommittedOutstandingAmount(s.ctx)
	require.NoError(t, err)
	require.Equal(t, "100", committed)
}

func TestBuyTokensValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		numberOfTokens string
		allowance      int64
		expectedErr    error
	}{
		{
			name:           "zero tokens is rejected",
			numberOfTokens: "0",
			allowance:      5000,
			expectedErr:    liquidity.ErrInvalidParameters,
		},
		{
			name:           "negative tokens is rejected",
			numberOfTokens: "-10",
			allowance:      5000,
			expectedErr:    liquidity.ErrInvalidParameters,
		},
		{
			name:           "purchase beyond the cap is rejected",
			numberOfTokens: "1001",
			allowance:      10_000,
			expectedErr:    sale.ErrSaleExhausted,
		},
		{
			name:           "insufficient allowance is rejected",
			numberOfTokens: "100",
			allowance:      499,
			expectedErr:    sale.ErrPaymentNotApproved,
		},
		{
			name:           "purchase of the full cap succeeds",
			numberOfTokens: "1000",
			allowance:      5000,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := openSale(t, "5", "1000")
			s.setSigner(buyer)
			s.allowance.SetInt64(tt.allowance)

			_, err := s.contract.BuyTokens(s.ctx, tt.numberOfTokens)

			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				require.Empty(t, s.payments)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestBuyTokensPaymentFailure(t *testing.T) {
	t.Parallel()

	s := openSale(t, "5", "1000")
	s.setSigner(buyer)
	s.allowance.SetInt64(500)
	s.failPayment = true

	_, err := s.contract.BuyTokens(s.ctx, "100")
	require.ErrorIs(t, err, sale.ErrPaymentTransferFailed)
}

func TestBuyTokensOverflow(t *testing.T) {
	t.Parallel()

	// A price and quantity each inside the 256-bit domain whose product is
	// not.
	price := new(big.Int).Lsh(big.NewInt(1), 200)
	cap := new(big.Int).Lsh(big.NewInt(1), 255)
	tokens := new(big.Int).Lsh(big.NewInt(1), 100)

	s := openSale(t, price.String(), cap.String())
	s.setSigner(buyer)

	_, err := s.contract.BuyTokens(s.ctx, tokens.String())
	require.ErrorIs(t, err, liquidity.ErrArithmeticOverflow)
}

func TestEndSale(t *testing.T) {
	t.Parallel()

	s := openSale(t, "5", "1000")
	s.setSigner(buyer)
	s.allowance.SetInt64(5000)

	_, err := s.contract.BuyTokens(s.ctx, "100")
	require.NoError(t, err)

	err = s.contract.EndSale(s.ctx)
	require.ErrorIs(t, err, liquidity.ErrUnauthorized)

	s.setSigner(admin)
	require.NoError(t, s.contract.EndSale(s.ctx))

	remaining, err := s.contract.RemainingTokens(s.ctx)
	require.NoError(t, err)
	require.Equal(t, "0", remaining)

	s.setSigner(buyer)
	_, err = s.contract.BuyTokens(s.ctx, "1")
	require.ErrorIs(t, err, sale.ErrSaleExhausted)
}

func TestEndSaleNotInitialized(t *testing.T) {
	t.Parallel()

	s := newTestSale(t)
	s.setSigner(admin)

	err := s.contract.EndSale(s.ctx)
	require.ErrorIs(t, err, sale.ErrSaleNotInitialized)
}
