package liquidity

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/http"
	"regexp"
	"strings"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

const hexAddressRegex = `^[0-9a-fA-F]{40}$`

// maxAmountBits bounds every amount to the 256-bit domain of the custody
// token. Anything wider is rejected instead of being truncated downstream.
const maxAmountBits = 256

func GetUserId(ctx contractapi.TransactionContextInterface) (string, error) {
	b64ID, err := ctx.GetClientIdentity().GetID()
	if err != nil {
		return "", fmt.Errorf("failed to read clientID: %v", err)
	}

	decodeID, err := base64.StdEncoding.DecodeString(b64ID)
	if err != nil {
		return "", fmt.Errorf("failed to base64 decode clientID: %v", err)
	}

	completeId := string(decodeID)
	start := strings.Index(completeId, "x509::CN=")
	end := strings.Index(completeId, ",")
	if start == -1 || end == -1 || end <= start+9 {
		return "", InvalidUserAddressError(completeId)
	}
	userId := completeId[start+9 : end]

	if !IsUserAddressValid(userId) {
		return "", InvalidUserAddressError(userId)
	}

	return userId, nil
}

func IsUserAddressValid(address string) bool {
	if address == "" {
		return false
	}

	isValid, _ := regexp.MatchString(hexAddressRegex, address)
	return isValid
}

// IsSignerAdmin rejects every caller except the ledger administrator.
func IsSignerAdmin(ctx contractapi.TransactionContextInterface) error {
	signer, err := GetUserId(ctx)
	if err != nil {
		return NewCustomError(http.StatusBadRequest, "failed to get client id", err)
	}

	if signer != contractAdmin {
		return fmt.Errorf("%w: signer %s is not the ledger administrator", ErrUnauthorized, signer)
	}

	return nil
}

func hasRole(ctx contractapi.TransactionContextInterface, role string) bool {
	return ctx.GetClientIdentity().AssertAttributeValue(roleAttribute, role) == nil
}

func requireRole(ctx contractapi.TransactionContextInterface, role string) error {
	if IsSignerAdmin(ctx) == nil {
		return nil
	}
	if !hasRole(ctx, role) {
		return fmt.Errorf("%w: caller lacks role %s", ErrUnauthorized, role)
	}
	return nil
}

// ScheduleID derives the deterministic schedule identifier for a beneficiary
// and its per-beneficiary sequence number. Identifiers are never reused.
func ScheduleID(beneficiary string, sequence uint64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%d", beneficiary, sequence)))
	return hex.EncodeToString(sum[:])
}

// TxTime is the injected clock: all vesting math is evaluated against the
// transaction timestamp, never against wall-clock reads inside the ledger.
func TxTime(ctx contractapi.TransactionContextInterface) (uint64, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return 0, NewCustomError(http.StatusInternalServerError, "failed to read transaction timestamp", err)
	}
	if ts.Seconds < 0 {
		return 0, fmt.Errorf("%w: negative transaction timestamp %d", ErrArithmeticOverflow, ts.Seconds)
	}
	return uint64(ts.Seconds), nil
}

// ParsePositiveAmount parses a decimal amount that must be strictly positive
// and fit the custody token's 256-bit domain.
func ParsePositiveAmount(entity, value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, InvalidAmountError(entity, value)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidParameters, entity, value)
	}
	if amount.BitLen() > maxAmountBits {
		return nil, fmt.Errorf("%w: %s does not fit 256 bits", ErrArithmeticOverflow, entity)
	}
	return amount, nil
}

func parseStoredAmount(entity, value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse stored amount for %s", entity), nil)
	}
	if amount.Sign() < 0 {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("negative stored amount for %s", entity), nil)
	}
	return amount, nil
}
