package liquidity

type AllocationCategory int

const (
	Advisor AllocationCategory = iota
	Team
	PrivateSale
	InitialInvestor
	Marketing
)

const (
	// contractAdmin is the ledger administrator identity (x509 CN, hex address).
	contractAdmin = "4f8e2a91c06d5b13e7a4fd09b82c3561de97a044"

	roleAttribute       = "role"
	scheduleCreatorRole = "schedule_creator"

	// allocationTermDuration is one vesting term for every category: 91 days
	// in seconds.
	allocationTermDuration = 91 * 24 * 60 * 60

	allSchedulesKey         = "allschedules"
	committedOutstandingKey = "committed_outstanding"
	tokenAddressKey         = "liquidityToken"
	custodyAccountKey       = "custodyaccount"
	releaseDeadlineKey      = "release_deadline"

	tokenBalanceOfFunction = "BalanceOf"
	tokenTransferFunction  = "Transfer"
)

func (c AllocationCategory) String() string {
	return [...]string{
		"Advisor",
		"Team",
		"PrivateSale",
		"InitialInvestor",
		"Marketing",
	}[c]
}
