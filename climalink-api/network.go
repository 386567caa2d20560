package main

import (
	"context"
	"math/big"

	"github.com/sirupsen/logrus"
)

// CheckNetwork compares the node's chain id with -chain-id. On a mismatch
// eligibility is served as unavailable until the node reports the expected
// chain again. It returns true when the state flipped.
func (s *Server) CheckNetwork(ctx context.Context) bool {
	if s.node == nil || s.settings.ChainID == 0 {
		return false
	}
	idCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	id, err := s.node.ChainID(idCtx)
	cancel()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read chain id")
		return false
	}

	ok := id.Cmp(big.NewInt(s.settings.ChainID)) == 0
	if s.networkOK.Swap(ok) == ok {
		return false
	}
	fields := logrus.Fields{"chain_id": id.String(), "expected": s.settings.ChainID}
	if ok {
		s.logger.WithFields(fields).Info("Node is back on the expected chain")
	} else {
		s.logger.WithFields(fields).Warn("Node is on the wrong chain, eligibility unavailable")
	}
	s.eligibility.SetNetwork(ctx, ok)
	s.hub.SetNetwork(ctx, ok)
	return true
}
