package txflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/climalink/climalink/chain"
	"github.com/stretchr/testify/assert"
)

type codedError struct {
	code int
	msg  string
}

func (e *codedError) Error() string  { return e.msg }
func (e *codedError) ErrorCode() int { return e.code }

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		phase Phase
		want  string
	}{
		{"nil", nil, PhaseExecute, ""},
		{"code 4001", &codedError{code: 4001, msg: "denied"}, PhaseExecute, MsgRejected},
		{"rejected text", errors.New("ACTION_REJECTED"), PhaseApproval, MsgRejected},
		{"gas funds", errors.New("insufficient funds for gas * price + value"), PhaseExecute, MsgInsufficientFunds},
		{"already member", &chain.RevertError{Reason: "Already a member"}, PhaseExecute, MsgAlreadyMember},
		{"must stake", fmt.Errorf("estimate: %w", errors.New("execution reverted: Must stake first")), PhaseExecute, MsgMustStake},
		{"balance", errors.New("execution reverted: ERC20: transfer amount exceeds balance"), PhaseExecute, MsgInsufficientCLT},
		{"approval reason", &chain.RevertError{Reason: "paused"}, PhaseApproval, "Approval failed: paused"},
		{"execute reason", &chain.RevertError{Reason: "paused"}, PhaseExecute, "Transaction failed: paused"},
		{"bare revert", &chain.RevertError{}, PhaseExecute, "Transaction failed: execution reverted"},
		{"unclassified", errors.New("connection reset"), PhaseExecute, "Transaction failed: connection reset"},
		{"empty", errors.New(""), PhaseExecute, MsgFailed},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ClassifyError(c.err, c.phase))
		})
	}
}
