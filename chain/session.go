package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotConnected = errors.New("wallet is not connected")
	ErrWrongNetwork = errors.New("connected to the wrong network")
	ErrReadOnly     = errors.New("session has no signer")
)

// SessionConfig describes how to reach the node and which key signs.
// Keyfile may be empty for read-only sessions.
type SessionConfig struct {
	RPCURL     string
	ChainID    int64
	Keyfile    string
	Passphrase string
}

// Session is the process-wide wallet connection: one node client plus an
// optional signer. It is shared read-only by every component after Connect.
type Session struct {
	cfg    SessionConfig
	logger logrus.FieldLogger

	mu        sync.RWMutex
	client    *ethclient.Client
	chainID   *big.Int
	networkOK bool
	key       *ecdsa.PrivateKey
	account   common.Address
}

// NewSession returns a disconnected session.
func NewSession(cfg SessionConfig, logger logrus.FieldLogger) *Session {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Session{cfg: cfg, logger: logger.WithField("component", "session")}
}

// Connect dials the node, checks the chain id against the expected one and
// unlocks the keyfile when configured. A chain id mismatch leaves the session
// connected but flagged, and returns ErrWrongNetwork.
func (s *Session) Connect(ctx context.Context) error {
	client, err := ethclient.DialContext(ctx, s.cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.cfg.RPCURL, err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return fmt.Errorf("chain id: %w", err)
	}

	var key *ecdsa.PrivateKey
	if s.cfg.Keyfile != "" {
		key, err = loadKey(s.cfg.Keyfile, s.cfg.Passphrase)
		if err != nil {
			client.Close()
			return err
		}
	}

	s.mu.Lock()
	if s.client != nil {
		s.client.Close()
	}
	s.client = client
	s.chainID = chainID
	s.networkOK = s.cfg.ChainID == 0 || chainID.Cmp(big.NewInt(s.cfg.ChainID)) == 0
	s.key = key
	if key != nil {
		s.account = crypto.PubkeyToAddress(key.PublicKey)
	} else {
		s.account = common.Address{}
	}
	networkOK := s.networkOK
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"chain_id": chainID,
		"account":  s.account.Hex(),
	}).Info("Wallet connected")
	if !networkOK {
		return fmt.Errorf("%w: expected chain %d, node reports %s", ErrWrongNetwork, s.cfg.ChainID, chainID)
	}
	return nil
}

// Disconnect closes the node client and forgets the signer.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		s.client.Close()
	}
	s.client = nil
	s.key = nil
	s.account = common.Address{}
	s.networkOK = false
}

// NetworkOK reports whether the node runs the expected chain.
func (s *Session) NetworkOK() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client != nil && s.networkOK
}

// Account is the signer address, zero for read-only sessions.
func (s *Session) Account() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account
}

// ChainID as reported by the node at connect time.
func (s *Session) ChainID() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.chainID == nil {
		return nil
	}
	return new(big.Int).Set(s.chainID)
}

// Client returns the node client.
func (s *Session) Client() (*ethclient.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, ErrNotConnected
	}
	return s.client, nil
}

// TransactOpts builds fresh signing options bound to ctx.
func (s *Session) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, ErrNotConnected
	}
	if !s.networkOK {
		return nil, ErrWrongNetwork
	}
	if s.key == nil {
		return nil, ErrReadOnly
	}
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}

func loadKey(path, passphrase string) (*ecdsa.PrivateKey, error) {
	keyjson, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the keyfile at '%s': %w", path, err)
	}
	key, err := keystore.DecryptKey(keyjson, passphrase)
	if err != nil {
		return nil, fmt.Errorf("error decrypting key: %w", err)
	}
	return key.PrivateKey, nil
}
