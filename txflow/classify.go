package txflow

import (
	"errors"
	"strings"

	"github.com/climalink/climalink/chain"
	"github.com/ethereum/go-ethereum/rpc"
)

// Phase is the part of a run in which an error happened.
type Phase int

const (
	PhaseApproval Phase = iota
	PhaseExecute
)

func (p Phase) String() string {
	if p == PhaseApproval {
		return "approval"
	}
	return "execute"
}

// Messages shown for well-known failures.
const (
	MsgRejected          = "Transaction rejected by user."
	MsgInsufficientFunds = "Insufficient funds for transaction/gas fee."
	MsgAlreadyMember     = "You are already a DAO member."
	MsgMustStake         = "You must stake at least 100 CLT first."
	MsgInsufficientCLT   = "Insufficient CLT balance for this action."
	MsgFailed            = "Transaction failed"
)

const userRejectedCode = 4001

// Error is the terminal failure of a run.
type Error struct {
	Phase   Phase
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// ClassifyError turns a wallet, node or contract error into the message
// shown to the user.
func ClassifyError(err error, phase Phase) string {
	if err == nil {
		return ""
	}
	raw := err.Error()
	lower := strings.ToLower(raw)

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode {
		return MsgRejected
	}
	if strings.Contains(lower, "user rejected") ||
		strings.Contains(lower, "user denied") ||
		strings.Contains(lower, "action_rejected") {
		return MsgRejected
	}
	if strings.Contains(lower, "insufficient funds") {
		return MsgInsufficientFunds
	}

	reason, ok := chain.RevertReason(err)
	if msg := domainMessage(reason); ok && msg != "" {
		return msg
	}
	if ok {
		if phase == PhaseApproval {
			return "Approval failed: " + reason
		}
		return "Transaction failed: " + reason
	}
	if msg := domainMessage(raw); msg != "" {
		return msg
	}
	if raw == "" {
		return MsgFailed
	}
	return MsgFailed + ": " + raw
}

func domainMessage(reason string) string {
	r := strings.ToLower(reason)
	switch {
	case r == "":
		return ""
	case strings.Contains(r, "already a member"), strings.Contains(r, "already member"):
		return MsgAlreadyMember
	case strings.Contains(r, "must stake"), strings.Contains(r, "stake first"),
		strings.Contains(r, "insufficient stake"), strings.Contains(r, "not enough staked"):
		return MsgMustStake
	case strings.Contains(r, "insufficient balance"), strings.Contains(r, "exceeds balance"),
		strings.Contains(r, "insufficient clt"):
		return MsgInsufficientCLT
	}
	return ""
}
