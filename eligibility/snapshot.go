package eligibility

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Eligibility describes whether the account may join the DAO. Amounts are
// decimal CLT strings.
type Eligibility struct {
	HasStaked     bool   `json:"hasStaked"`
	HasCLTBalance bool   `json:"hasCLTBalance"`
	CanJoin       bool   `json:"canJoin"`
	AlreadyMember bool   `json:"alreadyMember"`
	RequiredCLT   string `json:"requiredCLT"`
	CurrentCLT    string `json:"currentCLT"`
	StakedAmount  string `json:"stakedAmount"`
}

// Snapshot is the result of one resolution pass. It is published whole.
type Snapshot struct {
	Account            common.Address `json:"account"`
	Role               Role           `json:"role"`
	IsMember           bool           `json:"isMember"`
	Eligibility        Eligibility    `json:"eligibility"`
	CanMint            bool           `json:"canMint"`
	DAOAllowance       string         `json:"daoAllowance"`
	ContractsAvailable bool           `json:"contractsAvailable"`
	FailedReads        []string       `json:"failedReads,omitempty"`
	ResolvedAt         time.Time      `json:"resolvedAt"`
}

// unavailable is the conservative snapshot published when nothing could be
// read.
func unavailable(account common.Address, defaultFee string) Snapshot {
	return Snapshot{
		Account: account,
		Role:    RoleNone,
		Eligibility: Eligibility{
			RequiredCLT:  defaultFee,
			CurrentCLT:   "0.0",
			StakedAmount: "0.0",
		},
		DAOAllowance: "0.0",
		ResolvedAt:   time.Now(),
	}
}
