package liquidity

import (
	"fmt"
	"math/big"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// allocationPreset fixes the vesting parameters for one beneficiary category.
// Every category vests over 91-day terms; what differs is the fraction of the
// total released per term and the role allowed to create the allocation.
type allocationPreset struct {
	termDuration       uint64
	basisPointsPerTerm int64
	requiredRole       string
}

// Per-term fractions: advisor and private-sale 10%, team 7.5%, initial
// investor 2.72%, marketing/community 1%.
var allocationPresets = map[AllocationCategory]allocationPreset{
	Advisor:         {allocationTermDuration, 1000, "advisor_allocator"},
	Team:            {allocationTermDuration, 750, "team_allocator"},
	PrivateSale:     {allocationTermDuration, 1000, "sale_allocator"},
	InitialInvestor: {allocationTermDuration, 272, "investor_allocator"},
	Marketing:       {allocationTermDuration, 100, "community_allocator"},
}

func ParseAllocationCategory(name string) (AllocationCategory, error) {
	switch name {
	case "Advisor":
		return Advisor, nil
	case "Team":
		return Team, nil
	case "PrivateSale":
		return PrivateSale, nil
	case "InitialInvestor":
		return InitialInvestor, nil
	case "Marketing":
		return Marketing, nil
	}
	return 0, fmt.Errorf("%w: unknown allocation category %q", ErrInvalidParameters, name)
}

// AddAllocation creates a schedule from a category preset. The caller must be
// the administrator or hold the category's allocator role.
func (s *SmartContract) AddAllocation(ctx contractapi.TransactionContextInterface, category string, beneficiary string, start uint64, totalAmount string, revocable bool) (string, error) {
	if err := s.beginOp(); err != nil {
		return "", err
	}
	defer s.endOp()

	parsed, err := ParseAllocationCategory(category)
	if err != nil {
		return "", err
	}

	if err := requireRole(ctx, allocationPresets[parsed].requiredRole); err != nil {
		return "", err
	}

	return CreateAllocation(ctx, parsed, beneficiary, start, totalAmount, revocable)
}

// CreateAllocation applies a category preset and creates the schedule through
// the one shared create path. Authorization is the caller's responsibility:
// AddAllocation gates on roles, the sale front-end gates on payment.
func CreateAllocation(ctx contractapi.TransactionContextInterface, category AllocationCategory, beneficiary string, start uint64, totalAmount string, revocable bool) (string, error) {
	preset, ok := allocationPresets[category]
	if !ok {
		return "", fmt.Errorf("%w: unknown allocation category %d", ErrInvalidParameters, category)
	}

	total, err := ParsePositiveAmount("totalAmount", totalAmount)
	if err != nil {
		return "", err
	}

	amountPerTerm := new(big.Int).Mul(total, big.NewInt(preset.basisPointsPerTerm))
	amountPerTerm.Div(amountPerTerm, big.NewInt(10000))
	if amountPerTerm.Sign() == 0 {
		return "", fmt.Errorf("%w: totalAmount %s too small for %s terms", ErrInvalidParameters, totalAmount, category)
	}

	return createSchedule(ctx, beneficiary, start, amountPerTerm.String(), preset.termDuration, totalAmount, revocable)
}
