package liquidity_test

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/CubeConsumerServicesPvtLtd/tikkatokenerc20/liquidity"
	"github.com/CubeConsumerServicesPvtLtd/tikkatokenerc20/mocks"
	"github.com/golang/protobuf/ptypes/timestamp"
	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric-protos-go/peer"
	"github.com/stretchr/testify/require"
)

//go:generate counterfeiter -o ../mocks/transactioncontext.go -fake-name TransactionContext . transactionContext
type transactionContext interface {
	contractapi.TransactionContextInterface
}

//go:generate counterfeiter -o ../mocks/chaincodestub.go -fake-name ChaincodeStub . chaincodeStub
type chaincodeStub interface {
	shim.ChaincodeStubInterface
}

//go:generate counterfeiter -o ../mocks/clientidentity.go -fake-name ClientIdentity . clientIdentity
type clientIdentity interface {
	cid.ClientIdentity
}

const (
	admin          = "4f8e2a91c06d5b13e7a4fd09b82c3561de97a044"
	beneficiary    = "9c4d01f62b7a83655c2e9a0f41d8b3726ea5c099"
	otherAccount   = "1f0a88d3c54be97210ffe6b3a8d2047c9e165b22"
	tokenChaincode = "tikkatoken"
	custodyAccount = "5b2e7d190c3faa846617d02bce498f53a7140dd8"

	startTime = uint64(1_700_000_000)
)

// testLedger wires a liquidity contract to an in-memory world state and a fake
// custody token whose balance shrinks on every transfer.
type testLedger struct {
	contract  *liquidity.SmartContract
	ctx       *mocks.TransactionContext
	stub      *mocks.ChaincodeStub
	state     map[string][]byte
	balance   *big.Int
	transfers [][2]string
}

func newTestLedger(t *testing.T) *testLedger {
	t.Helper()

	l := &testLedger{
		contract: &liquidity.SmartContract{},
		ctx:      &mocks.TransactionContext{},
		stub:     &mocks.ChaincodeStub{},
		state:    map[string][]byte{},
		balance:  big.NewInt(0),
	}
	l.ctx.GetStubReturns(l.stub)

	l.stub.PutStateStub = func(key string, value []byte) error {
		l.state[key] = value
		return nil
	}
	l.stub.GetStateStub = func(key string) ([]byte, error) {
		return l.state[key], nil
	}
	l.stub.DelStateStub = func(key string) error {
		delete(l.state, key)
		return nil
	}
	l.stub.InvokeChaincodeStub = func(chaincodeName string, args [][]byte, channel string) peer.Response {
		if chaincodeName != tokenChaincode {
			return peer.Response{Status: 500, Message: "unknown chaincode"}
		}
		switch string(args[0]) {
		case "BalanceOf":
			return peer.Response{Status: 200, Payload: []byte(l.balance.String())}
		case "Transfer":
			amount, ok := new(big.Int).SetString(string(args[2]), 10)
			if !ok {
				return peer.Response{Status: 500, Message: "bad amount"}
			}
			l.balance.Sub(l.balance, amount)
			l.transfers = append(l.transfers, [2]string{string(args[1]), string(args[2])})
			return peer.Response{Status: 200}
		}
		return peer.Response{Status: 500, Message: "unknown function"}
	}

	l.setNow(startTime)
	return l
}

func (l *testLedger) setNow(now uint64) {
	l.stub.GetTxTimestampReturns(&timestamp.Timestamp{Seconds: int64(now)}, nil)
}

// setSigner installs a client identity with the given x509 CN and role
// attribute values.
func setSigner(ctx *mocks.TransactionContext, userID string, roles ...string) {
	completeId := fmt.Sprintf("x509::CN=%s,O=Organization,L=City,ST=State,C=Country", userID)
	b64ID := base64.StdEncoding.EncodeToString([]byte(completeId))

	clientIdentity := &mocks.ClientIdentity{}
	clientIdentity.GetIDReturns(b64ID, nil)
	clientIdentity.AssertAttributeValueStub = func(attr, value string) error {
		if attr != "role" {
			return errors.New("attribute not found")
		}
		for _, role := range roles {
			if role == value {
				return nil
			}
		}
		return errors.New("attribute not found")
	}
	ctx.GetClientIdentityReturns(clientIdentity)
}

// fundedLedger returns a ledger with the custody token wired and the given
// balance, signed in as the administrator.
func fundedLedger(t *testing.T, balance int64) *testLedger {
	t.Helper()

	l := newTestLedger(t)
	setSigner(l.ctx, admin)
	require.NoError(t, l.contract.SetTokenAddress(l.ctx, tokenChaincode, custodyAccount))
	l.balance.SetInt64(balance)
	return l
}

func TestSetTokenAddress(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)

	setSigner(l.ctx, otherAccount)
	err := l.contract.SetTokenAddress(l.ctx, tokenChaincode, custodyAccount)
	require.ErrorIs(t, err, liquidity.ErrUnauthorized)

	setSigner(l.ctx, admin)
	err = l.contract.SetTokenAddress(l.ctx, "", custodyAccount)
	require.ErrorIs(t, err, liquidity.ErrInvalidParameters)

	require.NoError(t, l.contract.SetTokenAddress(l.ctx, tokenChaincode, custodyAccount))

	err = l.contract.SetTokenAddress(l.ctx, tokenChaincode, custodyAccount)
	require.ErrorIs(t, err, liquidity.ErrTokenAlreadySet)
}

func TestCreateSchedule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		signer        string
		roles         []string
		beneficiary   string
		amountPerTerm string
		termDuration  uint64
		totalAmount   string
		expectedErr   error
	}{
		{
			name:          "administrator can create",
			signer:        admin,
			beneficiary:   beneficiary,
			amountPerTerm: "100",
			termDuration:  100,
			totalAmount:   "1000",
		},
		{
			name:          "schedule creator role can create",
			signer:        otherAccount,
			roles:         []string{"schedule_creator"},
			beneficiary:   beneficiary,
			amountPerTerm: "100",
			termDuration:  100,
			totalAmount:   "1000",
		},
		{
			name:          "unauthorized caller is rejected",
			signer:        otherAccount,
			beneficiary:   beneficiary,
			amountPerTerm: "100",
			termDuration:  100,
			totalAmount:   "1000",
			expectedErr:   liquidity.ErrUnauthorized,
		},
		{
			name:          "zero amount per term is rejected",
			signer:        admin,
			beneficiary:   beneficiary,
			amountPerTerm: "0",
			termDuration:  100,
			totalAmount:   "1000",
			expectedErr:   liquidity.ErrInvalidParameters,
		},
		{
			name:          "zero total amount is rejected",
			signer:        admin,
			beneficiary:   beneficiary,
			amountPerTerm: "100",
			termDuration:  100,
			totalAmount:   "0",
			expectedErr:   liquidity.ErrInvalidParameters,
		},
		{
			name:          "negative total amount is rejected",
			signer:        admin,
			beneficiary:   beneficiary,
			amountPerTerm: "100",
			termDuration:  100,
			totalAmount:   "-5",
			expectedErr:   liquidity.ErrInvalidParameters,
		},
		{
			name:          "zero term duration is rejected",
			signer:        admin,
			beneficiary:   beneficiary,
			amountPerTerm: "100",
			termDuration:  0,
			totalAmount:   "1000",
			expectedErr:   liquidity.ErrInvalidParameters,
		},
		{
			name:          "invalid beneficiary address is rejected",
			signer:        admin,
			beneficiary:   "not-an-address",
			amountPerTerm: "100",
			termDuration:  100,
			totalAmount:   "1000",
			expectedErr:   liquidity.ErrInvalidParameters,
		},
		{
			name:          "schedule exceeding reserve is rejected",
			signer:        admin,
			beneficiary:   beneficiary,
			amountPerTerm: "100",
			termDuration:  100,
			totalAmount:   "1001",
			expectedErr:   liquidity.ErrInsufficientReserve,
		},
		{
			name:          "schedule equal to reserve succeeds",
			signer:        admin,
			beneficiary:   beneficiary,
			amountPerTerm: "100",
			termDuration:  100,
			totalAmount:   "1000",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := fundedLedger(t, 1000)
			setSigner(l.ctx, tt.signer, tt.roles...)

			id, err := l.contract.CreateSchedule(l.ctx, tt.beneficiary, startTime, tt.amountPerTerm, tt.termDuration, tt.totalAmount, true)

			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, liquidity.ScheduleID(tt.beneficiary, 0), id)

			schedule, err := l.contract.GetSchedule(l.ctx, id)
			require.NoError(t, err)
			require.Equal(t, tt.beneficiary, schedule.Beneficiary)
			require.Equal(t, tt.totalAmount, schedule.TotalAmount)
			require.Equal(t, "0", schedule.Released)
			require.False(t, schedule.Revoked)

			committed, err := l.contract.CommittedOutstandingAmount(l.ctx)
			require.NoError(t, err)
			require.Equal(t, tt.totalAmount, committed)

			count, err := l.contract.ScheduleCountForBeneficiary(l.ctx, tt.beneficiary)
			require.NoError(t, err)
			require.Equal(t, uint64(1), count)
		})
	}
}

func TestScheduleEnumeration(t *testing.T) {
	t.Parallel()

	l := fundedLedger(t, 10_000)
	setSigner(l.ctx, admin)

	first, err := l.contract.CreateSchedule(l.ctx, beneficiary, startTime, "100", 100, "1000", true)
	require.NoError(t, err)
	second, err := l.contract.CreateSchedule(l.ctx, beneficiary, startTime, "50", 200, "500", false)
	require.NoError(t, err)
	third, err := l.contract.CreateSchedule(l.ctx, otherAccount, startTime, "10", 100, "100", true)
	require.NoError(t, err)

	count, err := l.contract.ScheduleCount(l.ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), count)

	for i, expected := range []string{first, second, third} {
		id, err := l.contract.ScheduleIDAt(l.ctx, uint64(i))
		require.NoError(t, err)
		require.Equal(t, expected, id)
	}

	_, err = l.contract.ScheduleIDAt(l.ctx, 3)
	require.ErrorIs(t, err, liquidity.ErrInvalidParameters)

	// Sequence numbers are gapless from 0, so ids are computable up front.
	require.Equal(t, liquidity.ScheduleID(beneficiary, 0), first)
	require.Equal(t, liquidity.ScheduleID(beneficiary, 1), second)
	require.Equal(t, liquidity.ScheduleID(otherAccount, 0), third)

	byIndex, err := l.contract.GetScheduleByBeneficiary(l.ctx, beneficiary, 1)
	require.NoError(t, err)
	require.Equal(t, second, byIndex.ID)

	_, err = l.contract.GetScheduleByBeneficiary(l.ctx, beneficiary, 2)
	require.ErrorIs(t, err, liquidity.ErrScheduleNotFound)

	_, err = l.contract.GetSchedule(l.ctx, "deadbeef")
	require.ErrorIs(t, err, liquidity.ErrScheduleNotFound)
}

func TestReleaseRoundTrip(t *testing.T) {
	t.Parallel()

	l := fundedLedger(t, 1000)
	setSigner(l.ctx, admin)

	id, err := l.contract.CreateSchedule(l.ctx, beneficiary, startTime, "100", 100, "1000", true)
	require.NoError(t, err)

	l.setNow(startTime + 250)
	releasable, err := l.contract.ReleasableAmount(l.ctx, id)
	require.NoError(t, err)
	require.Equal(t, "200", releasable)

	setSigner(l.ctx, beneficiary)
	require.NoError(t, l.contract.Release(l.ctx, id, "200"))

	require.Equal(t, [][2]string{{beneficiary, "200"}}, l.transfers)

	schedule, err := l.contract.GetSchedule(l.ctx, id)
	require.NoError(t, err)
	require.Equal(t, "200", schedule.Released)

	committed, err := l.contract.CommittedOutstandingAmount(l.ctx)
	require.NoError(t, err)
	require.Equal(t, "800", committed)

	l.setNow(startTime + 350)
	releasable, err = l.contract.ReleasableAmount(l.ctx, id)
	require.NoError(t, err)
	require.Equal(t, "100", releasable)

	err = l.contract.Release(l.ctx, id, "150")
	require.ErrorIs(t, err, liquidity.ErrNotYetVested)
}

// Event payloads carry the canonical decimal form of the amount, not the
// caller's spelling of it.
func TestReleaseEventAmountIsCanonical(t *testing.T) {
	t.Parallel()

	l := fundedLedger(t, 1000)
	setSigner(l.ctx, admin)

	id, err := l.contract.CreateSchedule(l.ctx, beneficiary, startTime, "100", 100, "1000", true)
	require.NoError(t, err)

	l.setNow(startTime + 250)
	setSigner(l.ctx, beneficiary)
	require.NoError(t, l.contract.Release(l.ctx, id, "0200"))

	require.Equal(t, [][2]string{{beneficiary, "200"}}, l.transfers)

	var released *liquidity.TokensReleasedEvent
	for i := 0; i < l.stub.SetEventCallCount(); i++ {
		name, payload := l.stub.SetEventArgsForCall(i)
		if name != "TokensReleased" {
			continue
		}
		released = &liquidity.TokensReleasedEvent{}
		require.NoError(t, json.Unmarshal(payload, released))
	}
	require.NotNil(t, released)
	require.Equal(t, id, released.ScheduleID)
	require.Equal(t, beneficiary, released.Beneficiary)
	require.Equal(t, "200", released.Amount)
}

func TestReleaseAuthorization(t *testing.T) {
	t.Parallel()

	l := fundedLedger(t, 1000)
	setSigner(l.ctx, admin)

	id, err := l.contract.CreateSchedule(l.ctx, beneficiary, startTime, "100", 100, "1000", true)
	require.NoError(t, err)

	l.setNow(startTime + 250)

	setSigner(l.ctx, otherAccount)
	err = l.contract.Release(l.ctx, id, "100")
	require.ErrorIs(t, err, liquidity.ErrUnauthorized)

	// The administrator may release on the beneficiary's behalf; tokens still
	// go to the beneficiary.
	setSigner(l.ctx, admin)
	require.NoError(t, l.contract.Release(l.ctx, id, "100"))
	require.Equal(t, [][2]string{{beneficiary, "100"}}, l.transfers)

	_, err = l.contract.GetSchedule(l.ctx, id)
	require.NoError(t, err)

	err = l.contract.Release(l.ctx, "deadbeef", "100")
	require.ErrorIs(t, err, liquidity.ErrScheduleNotFound)
}

func TestReleaseDeadline(t *testing.T) {
	t.Parallel()

	l := fundedLedger(t, 1000)
	setSigner(l.ctx, admin)

	id, err := l.contract.CreateSchedule(l.ctx, beneficiary, startTime, "100", 100, "1000", true)
	require.NoError(t, err)

	err = l.contract.ExtendReleaseDeadline(l.ctx, 0)
	require.ErrorIs(t, err, liquidity.ErrInvalidParameters)

	require.NoError(t, l.contract.ExtendReleaseDeadline(l.ctx, startTime+300))

	err = l.contract.ExtendReleaseDeadline(l.ctx, startTime+200)
	require.ErrorIs(t, err, liquidity.ErrInvalidParameters)

	deadline, err := l.contract.ReleaseDeadline(l.ctx)
	require.NoError(t, err)
	require.Equal(t, startTime+300, deadline)

	setSigner(l.ctx, beneficiary)

	l.setNow(startTime + 250)
	require.NoError(t, l.contract.Release(l.ctx, id, "100"))

	l.setNow(startTime + 350)
	err = l.contract.Release(l.ctx, id, "100")
	require.ErrorIs(t, err, liquidity.ErrReleasesLocked)
}

func TestRevoke(t *testing.T) {
	t.Parallel()

	l := fundedLedger(t, 1000)
	setSigner(l.ctx, admin)

	id, err := l.contract.CreateSchedule(l.ctx, beneficiary, startTime, "100", 100, "1000", true)
	require.NoError(t, err)

	l.setNow(startTime + 250)

	setSigner(l.ctx, beneficiary)
	err = l.contract.Revoke(l.ctx, id)
	require.ErrorIs(t, err, liquidity.ErrUnauthorized)

	setSigner(l.ctx, admin)
	require.NoError(t, l.contract.Revoke(l.ctx, id))

	// The beneficiary automatically receives everything vested up to the
	// revocation instant; the unreleased remainder is uncommitted.
	require.Equal(t, [][2]string{{beneficiary, "200"}}, l.transfers)

	committed, err := l.contract.CommittedOutstandingAmount(l.ctx)
	require.NoError(t, err)
	require.Equal(t, "0", committed)

	schedule, err := l.contract.GetSchedule(l.ctx, id)
	require.NoError(t, err)
	require.True(t, schedule.Revoked)
	require.Equal(t, "200", schedule.Released)

	releasable, err := l.contract.ReleasableAmount(l.ctx, id)
	require.NoError(t, err)
	require.Equal(t, "0", releasable)

	setSigner(l.ctx, beneficiary)
	err = l.contract.Release(l.ctx, id, "100")
	require.ErrorIs(t, err, liquidity.ErrScheduleRevoked)

	setSigner(l.ctx, admin)
	err = l.contract.Revoke(l.ctx, id)
	require.ErrorIs(t, err, liquidity.ErrScheduleRevoked)
}

func TestRevokeNonRevocable(t *testing.T) {
	t.Parallel()

	l := fundedLedger(t, 1000)
	setSigner(l.ctx, admin)

	id, err := l.contract.CreateSchedule(l.ctx, beneficiary, startTime, "100", 100, "1000", false)
	require.NoError(t, err)

	err = l.contract.Revoke(l.ctx, id)
	require.ErrorIs(t, err, liquidity.ErrScheduleNotRevocable)
}

func TestWithdrawSurplus(t *testing.T) {
	t.Parallel()

	l := fundedLedger(t, 1500)
	setSigner(l.ctx, admin)

	_, err := l.contract.CreateSchedule(l.ctx, beneficiary, startTime, "100", 100, "1000", true)
	require.NoError(t, err)

	withdrawable, err := l.contract.WithdrawableAmount(l.ctx)
	require.NoError(t, err)
	require.Equal(t, "500", withdrawable)

	err = l.contract.WithdrawSurplus(l.ctx, otherAccount, "600")
	require.ErrorIs(t, err, liquidity.ErrInsufficientReserve)

	setSigner(l.ctx, otherAccount)
	err = l.contract.WithdrawSurplus(l.ctx, otherAccount, "100")
	require.ErrorIs(t, err, liquidity.ErrUnauthorized)

	setSigner(l.ctx, admin)
	require.NoError(t, l.contract.WithdrawSurplus(l.ctx, otherAccount, "500"))
	require.Equal(t, [][2]string{{otherAccount, "500"}}, l.transfers)

	withdrawable, err = l.contract.WithdrawableAmount(l.ctx)
	require.NoError(t, err)
	require.Equal(t, "0", withdrawable)
}

// The committed outstanding total must always equal the sum of
// (totalAmount - released) over non-revoked schedules.
func TestCommittedOutstandingMatchesSchedules(t *testing.T) {
	t.Parallel()

	l := fundedLedger(t, 10_000)

	verify := func() {
		expected := big.NewInt(0)
		count, err := l.contract.ScheduleCount(l.ctx)
		require.NoError(t, err)
		for i := uint64(0); i < count; i++ {
			id, err := l.contract.ScheduleIDAt(l.ctx, i)
			require.NoError(t, err)
			schedule, err := l.contract.GetSchedule(l.ctx, id)
			require.NoError(t, err)
			if schedule.Revoked {
				continue
			}
			total, ok := new(big.Int).SetString(schedule.TotalAmount, 10)
			require.True(t, ok)
			released, ok := new(big.Int).SetString(schedule.Released, 10)
			require.True(t, ok)
			expected.Add(expected, total.Sub(total, released))
		}

		committed, err := l.contract.CommittedOutstandingAmount(l.ctx)
		require.NoError(t, err)
		require.Equal(t, expected.String(), committed)
	}

	setSigner(l.ctx, admin)
	first, err := l.contract.CreateSchedule(l.ctx, beneficiary, startTime, "100", 100, "1000", true)
	require.NoError(t, err)
	verify()

	second, err := l.contract.CreateSchedule(l.ctx, otherAccount, startTime, "200", 50, "2000", true)
	require.NoError(t, err)
	verify()

	l.setNow(startTime + 250)
	setSigner(l.ctx, beneficiary)
	require.NoError(t, l.contract.Release(l.ctx, first, "150"))
	verify()

	setSigner(l.ctx, admin)
	require.NoError(t, l.contract.Revoke(l.ctx, second))
	verify()

	l.setNow(startTime + 400)
	setSigner(l.ctx, beneficiary)
	require.NoError(t, l.contract.Release(l.ctx, first, "250"))
	verify()
}

// Released amounts never decrease across any operation sequence.
func TestReleasedIsMonotone(t *testing.T) {
	t.Parallel()

	l := fundedLedger(t, 1000)
	setSigner(l.ctx, admin)

	id, err := l.contract.CreateSchedule(l.ctx, beneficiary, startTime, "100", 100, "1000", true)
	require.NoError(t, err)

	previous := big.NewInt(0)
	check := func() {
		schedule, err := l.contract.GetSchedule(l.ctx, id)
		require.NoError(t, err)
		released, ok := new(big.Int).SetString(schedule.Released, 10)
		require.True(t, ok)
		require.GreaterOrEqual(t, released.Cmp(previous), 0)
		previous = released
	}

	setSigner(l.ctx, beneficiary)
	for _, step := range []struct {
		now    uint64
		amount string
	}{
		{startTime + 100, "50"},
		{startTime + 100, "50"},
		{startTime + 300, "100"},
		{startTime + 1000, "300"},
	} {
		l.setNow(step.now)
		require.NoError(t, l.contract.Release(l.ctx, id, step.amount))
		check()
	}

	setSigner(l.ctx, admin)
	require.NoError(t, l.contract.Revoke(l.ctx, id))
	check()
}

func TestAddAllocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		category        string
		roles           []string
		expectedPerTerm string
		expectedErr     error
	}{
		{
			name:            "advisor releases 10 percent per term",
			category:        "Advisor",
			roles:           []string{"advisor_allocator"},
			expectedPerTerm: "1000",
		},
		{
			name:            "team releases 7.5 percent per term",
			category:        "Team",
			roles:           []string{"team_allocator"},
			expectedPerTerm: "750",
		},
		{
			name:            "private sale releases 10 percent per term",
			category:        "PrivateSale",
			roles:           []string{"sale_allocator"},
			expectedPerTerm: "1000",
		},
		{
			name:            "initial investor releases 2.72 percent per term",
			category:        "InitialInvestor",
			roles:           []string{"investor_allocator"},
			expectedPerTerm: "272",
		},
		{
			name:            "marketing releases 1 percent per term",
			category:        "Marketing",
			roles:           []string{"community_allocator"},
			expectedPerTerm: "100",
		},
		{
			name:        "missing role is rejected",
			category:    "Advisor",
			roles:       []string{"team_allocator"},
			expectedErr: liquidity.ErrUnauthorized,
		},
		{
			name:        "unknown category is rejected",
			category:    "Founders",
			roles:       []string{"advisor_allocator"},
			expectedErr: liquidity.ErrInvalidParameters,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := fundedLedger(t, 10_000)
			setSigner(l.ctx, otherAccount, tt.roles...)

			id, err := l.contract.AddAllocation(l.ctx, tt.category, beneficiary, startTime, "10000", true)

			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}

			require.NoError(t, err)
			schedule, err := l.contract.GetSchedule(l.ctx, id)
			require.NoError(t, err)
			require.Equal(t, tt.expectedPerTerm, schedule.AmountPerTerm)
			require.Equal(t, uint64(7_862_400), schedule.TermDuration)
			require.Equal(t, "10000", schedule.TotalAmount)
		})
	}
}

func TestAddAllocationAdminBypassesRoles(t *testing.T) {
	t.Parallel()

	l := fundedLedger(t, 10_000)
	setSigner(l.ctx, admin)

	id, err := l.contract.AddAllocation(l.ctx, "Marketing", beneficiary, startTime, "10000", false)
	require.NoError(t, err)

	schedule, err := l.contract.GetSchedule(l.ctx, id)
	require.NoError(t, err)
	require.Equal(t, "100", schedule.AmountPerTerm)
	require.False(t, schedule.Revocable)
}

// A token-chaincode invoke that calls back into the ledger mid-release must be
// fenced off.
func TestReleaseReentrancyGuard(t *testing.T) {
	t.Parallel()

	l := fundedLedger(t, 1000)
	setSigner(l.ctx, admin)

	id, err := l.contract.CreateSchedule(l.ctx, beneficiary, startTime, "100", 100, "1000", true)
	require.NoError(t, err)

	l.setNow(startTime + 250)
	setSigner(l.ctx, beneficiary)

	inner := l.stub.InvokeChaincodeStub
	var nestedErr error
	l.stub.InvokeChaincodeStub = func(chaincodeName string, args [][]byte, channel string) peer.Response {
		if string(args[0]) == "Transfer" {
			nestedErr = l.contract.Release(l.ctx, id, "100")
		}
		return inner(chaincodeName, args, channel)
	}

	require.NoError(t, l.contract.Release(l.ctx, id, "100"))
	require.ErrorIs(t, nestedErr, liquidity.ErrReentrantCall)
}
