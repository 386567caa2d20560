package txflow

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Step names shown to the user.
const (
	StepApprove = "Approve spending"
	StepExecute = "Execute"
)

// Approval is an ERC20 allowance that must be in place before Execute runs.
type Approval struct {
	Spender common.Address
	Amount  *big.Int
}

// Request describes one user-facing write.
type Request struct {
	Title       string
	Description string

	// Approval is nil for single-step requests.
	Approval *Approval

	// Execute submits the primary transaction and returns its hash without
	// waiting for it to be mined.
	Execute func(ctx context.Context) (common.Hash, error)

	// Estimate returns the expected fee in wei. Optional.
	Estimate func(ctx context.Context) (*big.Int, error)
}

func (r Request) RequiresApproval() bool {
	return r.Approval != nil
}

func (r Request) Steps() []string {
	if r.RequiresApproval() {
		return []string{StepApprove, StepExecute}
	}
	return []string{StepExecute}
}

func (r Request) Validate() error {
	if r.Execute == nil {
		return errors.New("request has no execute function")
	}
	if r.Approval != nil {
		if r.Approval.Amount == nil || r.Approval.Amount.Sign() < 0 {
			return errors.New("approval amount is required")
		}
		if r.Approval.Spender == (common.Address{}) {
			return errors.New("approval spender is required")
		}
	}
	return nil
}
