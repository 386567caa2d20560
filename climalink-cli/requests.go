package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/climalink/climalink/chain"
	"github.com/climalink/climalink/eligibility"
	"github.com/climalink/climalink/txflow"
	"github.com/ethereum/go-ethereum/common"
)

func stakeRequest(c *chain.Contracts, from common.Address, amount *big.Int) txflow.Request {
	return txflow.Request{
		Title:       "Stake CLT",
		Description: fmt.Sprintf("Stake %s CLT", chain.FormatTokens(amount)),
		Execute: func(ctx context.Context) (common.Hash, error) {
			return c.Token.Stake(ctx, amount)
		},
		Estimate: c.Estimator(from, c.Token.Address(), "stake", amount),
	}
}

func unstakeRequest(c *chain.Contracts, from common.Address, amount *big.Int) txflow.Request {
	return txflow.Request{
		Title:       "Unstake CLT",
		Description: fmt.Sprintf("Unstake %s CLT", chain.FormatTokens(amount)),
		Execute: func(ctx context.Context) (common.Hash, error) {
			return c.Token.Unstake(ctx, amount)
		},
		Estimate: c.Estimator(from, c.Token.Address(), "unstake", amount),
	}
}

func registerRequest(c *chain.Contracts, from common.Address) txflow.Request {
	return txflow.Request{
		Title:       "Register as reporter",
		Description: "Register this account as a weather reporter",
		Execute:     c.Climate.RegisterReporter,
		Estimate:    c.Estimator(from, c.Climate.Address(), "registerReporter"),
	}
}

func joinValidatorRequest(c *chain.Contracts, from common.Address) txflow.Request {
	return txflow.Request{
		Title:       "Become validator",
		Description: "Validate weather reports submitted by others",
		Execute:     c.Climate.BecomeValidator,
		Estimate:    c.Estimator(from, c.Climate.Address(), "becomeValidator"),
	}
}

// joinDAORequest approves the membership fee to the DAO before joining.
func joinDAORequest(c *chain.Contracts, from common.Address, fee *big.Int) txflow.Request {
	return txflow.Request{
		Title:       "Join DAO",
		Description: fmt.Sprintf("Pay the %s CLT membership fee and join the DAO", chain.FormatTokens(fee)),
		Approval:    &txflow.Approval{Spender: c.DAO.Address(), Amount: fee},
		Execute:     c.DAO.Join,
		Estimate:    c.Estimator(from, c.DAO.Address(), "joinDAO"),
	}
}

func claimRequest(c *chain.Contracts, from common.Address) txflow.Request {
	return txflow.Request{
		Title:       "Claim reward",
		Description: "Mint the CLT reward earned by validated reports",
		Execute:     c.Token.MintReward,
		Estimate:    c.Estimator(from, c.Token.Address(), "mintReward"),
	}
}

func submitReportRequest(c *chain.Contracts, from common.Address, r chain.Report) txflow.Request {
	return txflow.Request{
		Title: "Submit weather report",
		Description: fmt.Sprintf("%s, %.1f°C, %d%% humidity at %.4f,%.4f",
			r.Condition, r.Temperature, r.Humidity, r.Latitude, r.Longitude),
		Execute: func(ctx context.Context) (common.Hash, error) {
			return c.Climate.SubmitReport(ctx, r)
		},
		Estimate: c.Estimator(from, c.Climate.Address(), "submitReport", chain.ReportArgs(r)...),
	}
}

func validateReportRequest(c *chain.Contracts, from common.Address, id *big.Int, valid bool) txflow.Request {
	verdict := "invalid"
	if valid {
		verdict = "valid"
	}
	return txflow.Request{
		Title:       "Validate report",
		Description: fmt.Sprintf("Mark report #%s as %s", id, verdict),
		Execute: func(ctx context.Context) (common.Hash, error) {
			return c.Climate.ValidateReport(ctx, id, valid)
		},
		Estimate: c.Estimator(from, c.Climate.Address(), "validateReport", id, valid),
	}
}

func createProposalRequest(c *chain.Contracts, from common.Address, description string) txflow.Request {
	return txflow.Request{
		Title:       "Create proposal",
		Description: description,
		Execute: func(ctx context.Context) (common.Hash, error) {
			return c.DAO.CreateProposal(ctx, description)
		},
		Estimate: c.Estimator(from, c.DAO.Address(), "createProposal", description),
	}
}

func voteRequest(c *chain.Contracts, from common.Address, id *big.Int, support bool) txflow.Request {
	side := "against"
	if support {
		side = "for"
	}
	return txflow.Request{
		Title:       "Vote",
		Description: fmt.Sprintf("Vote %s proposal #%s", side, id),
		Execute: func(ctx context.Context) (common.Hash, error) {
			return c.DAO.Vote(ctx, id, support)
		},
		Estimate: c.Estimator(from, c.DAO.Address(), "vote", id, support),
	}
}

func executeProposalRequest(c *chain.Contracts, from common.Address, id *big.Int) txflow.Request {
	return txflow.Request{
		Title:       "Execute proposal",
		Description: fmt.Sprintf("Execute proposal #%s", id),
		Execute: func(ctx context.Context) (common.Hash, error) {
			return c.DAO.ExecuteProposal(ctx, id)
		},
		Estimate: c.Estimator(from, c.DAO.Address(), "executeProposal", id),
	}
}

// Actions that are checked against the eligibility snapshot before anything
// is submitted.
const (
	actionRegister      = "register"
	actionJoinValidator = "join-validator"
	actionJoinDAO       = "join-dao"
	actionClaim         = "claim"
)

var errNothingToClaim = errors.New("no reward to claim")

// preflight rejects actions the contracts are known to refuse. A snapshot
// without contract data passes, the chain has the final word.
func preflight(action string, snap eligibility.Snapshot) error {
	if !snap.ContractsAvailable {
		return nil
	}
	switch action {
	case actionRegister:
		if snap.Role == eligibility.RoleReporter || snap.Role == eligibility.RoleValidator {
			return fmt.Errorf("account is already registered as %s", snap.Role)
		}
	case actionJoinValidator:
		if snap.Role == eligibility.RoleValidator {
			return errors.New("account is already a validator")
		}
		if !snap.Eligibility.HasStaked {
			return errors.New(txflow.MsgMustStake)
		}
	case actionJoinDAO:
		switch {
		case snap.Eligibility.AlreadyMember:
			return errors.New(txflow.MsgAlreadyMember)
		case !snap.Eligibility.HasStaked:
			return errors.New(txflow.MsgMustStake)
		case !snap.Eligibility.HasCLTBalance:
			return errors.New(txflow.MsgInsufficientCLT)
		}
	case actionClaim:
		if !snap.CanMint {
			return errNothingToClaim
		}
	}
	return nil
}

// nextAction suggests the command that moves the account up the
// stake -> validator -> DAO ladder. It returns "" when there is nothing left.
func nextAction(snap eligibility.Snapshot) string {
	if !snap.ContractsAvailable {
		return ""
	}
	switch {
	case snap.Role == eligibility.RoleDAOMember:
		return ""
	case snap.Role == eligibility.RoleNone:
		return actionRegister
	case !snap.Eligibility.HasStaked:
		return "stake"
	case snap.Role == eligibility.RoleReporter:
		return actionJoinValidator
	case snap.Eligibility.CanJoin:
		return actionJoinDAO
	default:
		return ""
	}
}
