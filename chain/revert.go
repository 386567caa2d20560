package chain

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

const revertPrefix = "execution reverted"

// RevertError is returned when a mined transaction failed or a call reverted.
// Reason is empty if the node did not supply one.
type RevertError struct {
	Hash   common.Hash
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return revertPrefix
	}
	return revertPrefix + ": " + e.Reason
}

// RevertReason extracts the revert string carried by err, either as ABI
// encoded error data or inside the node's message.
func RevertReason(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	var revertErr *RevertError
	if errors.As(err, &revertErr) {
		return revertErr.Reason, revertErr.Reason != ""
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if data, decErr := hexutil.Decode(s); decErr == nil {
				if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
					return reason, true
				}
			}
		}
	}
	msg := err.Error()
	if i := strings.Index(msg, revertPrefix+": "); i >= 0 {
		reason := strings.TrimSpace(msg[i+len(revertPrefix)+2:])
		return reason, reason != ""
	}
	return "", false
}
