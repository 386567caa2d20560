package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// ReceiptBackend is the subset of ethclient.Client used to follow a
// transaction to its first confirmation.
type ReceiptBackend interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Waiter polls for receipts.
type Waiter struct {
	backend  ReceiptBackend
	interval time.Duration
	logger   logrus.FieldLogger
}

func NewWaiter(backend ReceiptBackend, interval time.Duration, logger logrus.FieldLogger) *Waiter {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Waiter{backend: backend, interval: interval, logger: logger}
}

// WaitConfirmed blocks until hash is mined. A receipt with failed status is
// returned as *RevertError, with the reason recovered by replaying the call
// at the receipt's block when possible. Only ctx bounds the wait.
func (w *Waiter) WaitConfirmed(ctx context.Context, hash common.Hash) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger := w.logger.WithField("hash", hash.Hex())
	for {
		receipt, err := w.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusSuccessful {
				logger.WithField("block", receipt.BlockNumber).Debug("Transaction confirmed")
				return nil
			}
			return &RevertError{Hash: hash, Reason: w.replay(ctx, hash, receipt.BlockNumber)}
		case errors.Is(err, ethereum.NotFound):
			logger.Trace("Transaction not yet mined")
		default:
			logger.WithError(err).Trace("Receipt retrieval failed")
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (w *Waiter) replay(ctx context.Context, hash common.Hash, block *big.Int) string {
	tx, _, err := w.backend.TransactionByHash(ctx, hash)
	if err != nil {
		w.logger.WithError(err).WithField("hash", hash.Hex()).Debug("Cannot load reverted transaction")
		return ""
	}
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return ""
	}
	msg := ethereum.CallMsg{
		From:     from,
		To:       tx.To(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
		Value:    tx.Value(),
		Data:     tx.Data(),
	}
	_, err = w.backend.CallContract(ctx, msg, block)
	reason, _ := RevertReason(err)
	return reason
}
