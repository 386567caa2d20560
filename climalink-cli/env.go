package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/climalink/climalink/chain"
	"github.com/climalink/climalink/eligibility"
	"github.com/climalink/climalink/history"
	"github.com/climalink/climalink/txflow"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const chainPollInterval = 2 * time.Second

// historyFlushTimeout bounds how long Close waits for the history store.
var historyFlushTimeout = 3 * time.Second

// env is the wired state of one command invocation.
type env struct {
	ctx     context.Context
	cancel  context.CancelFunc
	out     io.Writer
	logger  *logrus.Logger
	network *chain.Network

	session   *chain.Session
	contracts *chain.Contracts
	resolver  *eligibility.Resolver
	orch      *txflow.Orchestrator
	store     history.Store
	recorder  *history.Recorder
	account   common.Address

	// snapshot is the eligibility of account when the command started.
	snapshot eligibility.Snapshot
}

func newLogger(c *cli.Context) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(c.App.ErrWriter)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(c.String(logLevelFlag.Name))
	if err != nil {
		lvl = logrus.WarnLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// loadNetwork builds the network profile from --network and the per-field
// flags. Flags win over the profile.
func loadNetwork(c *cli.Context) (*chain.Network, chain.Addresses, error) {
	network := &chain.Network{Name: "custom"}
	if path := c.String(networkFlag.Name); path != "" {
		var err error
		if network, err = chain.LoadNetwork(path); err != nil {
			return nil, chain.Addresses{}, err
		}
	}
	if rpc := c.String(rpcFlag.Name); rpc != "" {
		network.RPCURL = rpc
	}
	if id := c.Int64(chainIDFlag.Name); id != 0 {
		network.ChainID = id
	}
	addrs, err := network.Addresses()
	if err != nil {
		return nil, addrs, err
	}
	for _, f := range []struct {
		flag *cli.StringFlag
		dst  *common.Address
	}{
		{tokenFlag, &addrs.Token},
		{climateFlag, &addrs.Climate},
		{daoFlag, &addrs.DAO},
	} {
		hex := c.String(f.flag.Name)
		if hex == "" {
			continue
		}
		if !common.IsHexAddress(hex) {
			return nil, addrs, fmt.Errorf("invalid --%s address %q", f.flag.Name, hex)
		}
		*f.dst = common.HexToAddress(hex)
	}
	if network.RPCURL == "" {
		return nil, addrs, errors.New("no RPC endpoint: set --rpc or a --network profile")
	}
	return network, addrs, addrs.Validate()
}

func readPassword(c *cli.Context) (string, error) {
	if file := c.String(passwordFileFlag.Name); file != "" {
		content, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read password file '%s': %w", file, err)
		}
		return strings.TrimRight(string(content), "\r\n"), nil
	}
	return c.String(passwordFlag.Name), nil
}

// openEnv connects the wallet and wires the resolver, orchestrator and
// history recorder. With needSigner a keyfile is mandatory.
func openEnv(c *cli.Context, needSigner bool) (*env, error) {
	logger := newLogger(c)
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout := c.Duration(timeoutFlag.Name); timeout > 0 {
		ctx, cancel = context.WithTimeout(c.Context, timeout)
	} else {
		ctx, cancel = context.WithCancel(c.Context)
	}
	e := &env{ctx: ctx, cancel: cancel, out: c.App.Writer, logger: logger}

	network, addrs, err := loadNetwork(c)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.network = network

	keyfile := c.String(keyfileFlag.Name)
	if needSigner && keyfile == "" {
		e.Close()
		return nil, errors.New("this command signs transactions: set --keyfile")
	}
	password, err := readPassword(c)
	if err != nil {
		e.Close()
		return nil, err
	}

	e.session = chain.NewSession(chain.SessionConfig{
		RPCURL:     network.RPCURL,
		ChainID:    network.ChainID,
		Keyfile:    keyfile,
		Passphrase: password,
	}, logger)
	if err := e.session.Connect(ctx); err != nil {
		// Reads on the wrong chain still run, and report the contracts as
		// unavailable. Writes never do.
		if needSigner || !errors.Is(err, chain.ErrWrongNetwork) {
			e.Close()
			return nil, err
		}
		logger.WithError(err).Warn("Eligibility reported as unavailable")
	}
	client, err := e.session.Client()
	if err != nil {
		e.Close()
		return nil, err
	}

	var signer chain.Signer
	if keyfile != "" {
		signer = e.session
	}
	if e.contracts, err = chain.NewContracts(client, addrs, signer); err != nil {
		e.Close()
		return nil, err
	}
	e.account = e.session.Account()
	if e.account == (common.Address{}) {
		if hex := c.String(accountFlag.Name); common.IsHexAddress(hex) {
			e.account = common.HexToAddress(hex)
		}
	}

	e.resolver = eligibility.New(e.contracts, eligibility.Options{
		RefreshDelay: c.Duration(refreshDelayFlag.Name),
		Logger:       logger,
	})
	e.orch = txflow.New(e.account, e.contracts.Token,
		chain.NewWaiter(client, c.Duration(pollFlag.Name), logger),
		txflow.Options{
			ApprovalSettle: c.Duration(approvalSettleFlag.Name),
			Logger:         logger,
		})

	if !e.session.NetworkOK() {
		e.resolver.SetNetwork(ctx, false)
	}
	if e.account != (common.Address{}) {
		e.snapshot = e.resolver.SetAccount(ctx, e.account)
	}

	if needSigner {
		if e.store, err = history.Open(ctx, c.String(historyDSNFlag.Name)); err != nil {
			logger.WithError(err).Warn("Transaction history disabled")
		} else {
			e.recorder = history.NewRecorder(e.store, 16, logger)
			e.recorder.Start(ctx)
		}
	}
	return e, nil
}

// Close flushes history and disconnects the wallet.
func (e *env) Close() {
	if e.recorder != nil && !e.recorder.StopWithin(historyFlushTimeout) {
		e.logger.Warn("Transaction history not written before exit")
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.WithError(err).Warn("Error closing history store")
		}
	}
	if e.resolver != nil {
		e.resolver.Stop()
	}
	if e.session != nil {
		e.session.Disconnect()
	}
	e.cancel()
}

// run drives req through the orchestrator, printing progress, recording the
// outcome and refreshing eligibility after a success.
func (e *env) run(req txflow.Request) error {
	unsubscribe := e.orch.Subscribe(newProgressPrinter(e.out, e.network))
	st, err := e.orch.Run(e.ctx, req)
	unsubscribe()

	if st.ID != uuid.Nil && e.recorder != nil {
		if !e.recorder.EnqueueIfPossible(history.FromState(e.account, st)) {
			e.logger.Warn("History queue full, outcome not recorded")
		}
	}
	if err != nil {
		return err
	}

	if snap, ok := e.refreshAfterSuccess(); ok {
		e.snapshot = snap
		fmt.Fprintf(e.out, "Role: %s\n", snap.Role)
	}
	return nil
}

// refreshAfterSuccess waits for the delayed post-transaction refresh.
func (e *env) refreshAfterSuccess() (eligibility.Snapshot, bool) {
	if e.account == (common.Address{}) {
		return eligibility.Snapshot{}, false
	}
	done := make(chan eligibility.Snapshot, 1)
	unsubscribe := e.resolver.Subscribe(func(s eligibility.Snapshot) {
		select {
		case done <- s:
		default:
		}
	})
	defer unsubscribe()
	e.resolver.RefreshAfter(e.ctx, 0)
	select {
	case snap := <-done:
		return snap, true
	case <-e.ctx.Done():
		return eligibility.Snapshot{}, false
	}
}
