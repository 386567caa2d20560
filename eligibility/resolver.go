package eligibility

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/climalink/climalink/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const DefaultRefreshDelay = 2 * time.Second

var (
	DefaultStakeThreshold = chain.Tokens(100)
	DefaultMembershipFee  = chain.Tokens(10)
)

var tracer = otel.Tracer("eligibility")

// Reader issues the seven on-chain reads; *chain.Contracts implements it.
type Reader interface {
	IsDAOMember(ctx context.Context, account common.Address) (bool, error)
	RoleCounter(ctx context.Context, account common.Address) (uint8, error)
	StakedAmount(ctx context.Context, account common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, account common.Address) (*big.Int, error)
	CanMint(ctx context.Context, account common.Address) (bool, error)
	MembershipFee(ctx context.Context) (*big.Int, error)
	DAOAllowance(ctx context.Context, account common.Address) (*big.Int, error)
}

type Options struct {
	// RefreshDelay is used by RefreshAfter when no delay is given.
	RefreshDelay   time.Duration
	StakeThreshold *big.Int
	DefaultFee     *big.Int
	Logger         logrus.FieldLogger
	// NetworkOK, when set, is asked on every pass. False publishes the
	// unavailable snapshot, like SetNetwork(false).
	NetworkOK func() bool
}

// Resolver tracks the eligibility of one connected account.
type Resolver struct {
	reader Reader
	opts   Options
	logger logrus.FieldLogger

	current atomic.Pointer[Snapshot]

	mu        sync.Mutex
	account   common.Address
	networkOK bool
	seq       uint64
	subs      map[int]func(Snapshot)
	nextSub   int
	timer     *time.Timer

	notifyMu  sync.Mutex
	delivered uint64
}

// New returns a resolver with no account. reader may be nil, in which case
// every pass reports the contracts as unavailable.
func New(reader Reader, opts Options) *Resolver {
	if opts.RefreshDelay <= 0 {
		opts.RefreshDelay = DefaultRefreshDelay
	}
	if opts.StakeThreshold == nil {
		opts.StakeThreshold = DefaultStakeThreshold
	}
	if opts.DefaultFee == nil {
		opts.DefaultFee = DefaultMembershipFee
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	r := &Resolver{
		reader:    reader,
		opts:      opts,
		logger:    opts.Logger.WithField("component", "eligibility"),
		networkOK: true,
		subs:      map[int]func(Snapshot){},
	}
	empty := unavailable(common.Address{}, chain.FormatTokens(opts.DefaultFee))
	r.current.Store(&empty)
	return r
}

// Current returns the last published snapshot.
func (r *Resolver) Current() Snapshot {
	return *r.current.Load()
}

func (r *Resolver) Subscribe(fn func(Snapshot)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// SetAccount switches the tracked account and resolves it.
func (r *Resolver) SetAccount(ctx context.Context, account common.Address) Snapshot {
	r.mu.Lock()
	r.account = account
	r.mu.Unlock()
	snap, _ := r.Refresh(ctx)
	return snap
}

// SetNetwork records whether the wallet is on the expected network and
// resolves again.
func (r *Resolver) SetNetwork(ctx context.Context, ok bool) Snapshot {
	r.mu.Lock()
	r.networkOK = ok
	r.mu.Unlock()
	snap, _ := r.Refresh(ctx)
	return snap
}

// Unavailable is the conservative snapshot for account, as published when
// the wallet is on the wrong network.
func (r *Resolver) Unavailable(account common.Address) Snapshot {
	return unavailable(account, chain.FormatTokens(r.opts.DefaultFee))
}

// Refresh runs a pass for the current account. The boolean is false when a
// newer pass started meanwhile and this result was dropped.
func (r *Resolver) Refresh(ctx context.Context) (Snapshot, bool) {
	r.mu.Lock()
	r.seq++
	seq, account, networkOK := r.seq, r.account, r.networkOK
	r.mu.Unlock()
	if networkOK && r.opts.NetworkOK != nil {
		networkOK = r.opts.NetworkOK()
	}

	var snap Snapshot
	if account == (common.Address{}) || !networkOK {
		snap = r.Unavailable(account)
	} else {
		snap = r.Resolve(ctx, account)
	}
	return snap, r.publish(seq, snap)
}

// RefreshAfter schedules a refresh. A zero delay uses Options.RefreshDelay.
// A pending scheduled refresh is replaced.
func (r *Resolver) RefreshAfter(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		delay = r.opts.RefreshDelay
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(delay, func() {
		if ctx.Err() != nil {
			return
		}
		r.Refresh(ctx)
	})
}

// Stop cancels a pending scheduled refresh.
func (r *Resolver) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Resolver) publish(seq uint64, snap Snapshot) bool {
	r.mu.Lock()
	if seq != r.seq {
		r.mu.Unlock()
		r.logger.WithField("account", snap.Account.Hex()).Debug("Dropping stale eligibility pass")
		return false
	}
	r.current.Store(&snap)
	subs := make([]func(Snapshot), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.Unlock()

	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	if seq <= r.delivered {
		return true
	}
	r.delivered = seq
	for _, fn := range subs {
		fn(snap)
	}
	return true
}

// read names, in the order of the errs slots in Resolve.
var readNames = [...]string{
	"isMember", "userRoles", "stakedBalance", "balanceOf", "canMint", "MEMBERSHIP_FEE", "allowance",
}

// Resolve performs one pass for account without publishing it.
func (r *Resolver) Resolve(ctx context.Context, account common.Address) (snap Snapshot) {
	ctx, span := tracer.Start(ctx, "eligibility.Resolve")
	span.SetAttributes(attribute.String("account", account.Hex()))
	defer span.End()

	logger := r.logger.WithField("account", account.Hex())
	defaultFee := chain.FormatTokens(r.opts.DefaultFee)
	defer func() {
		if p := recover(); p != nil {
			logger.WithField("panic", p).Error("Eligibility pass panicked")
			span.SetStatus(codes.Error, fmt.Sprint(p))
			snap = unavailable(account, defaultFee)
		}
	}()
	if r.reader == nil {
		return unavailable(account, defaultFee)
	}

	var (
		isMember, canMint bool
		counter           uint8
		staked, balance   *big.Int
		fee, allowance    *big.Int
		errs              [len(readNames)]error
		g                 errgroup.Group
	)
	read := func(slot int, fn func(ctx context.Context) error) {
		g.Go(func() error {
			ctx, span := tracer.Start(ctx, "eligibility.read."+readNames[slot])
			defer span.End()
			defer func() {
				if p := recover(); p != nil {
					errs[slot] = fmt.Errorf("panic: %v", p)
				}
				if errs[slot] != nil {
					span.SetStatus(codes.Error, errs[slot].Error())
				}
			}()
			errs[slot] = fn(ctx)
			return nil
		})
	}
	read(0, func(ctx context.Context) (err error) {
		isMember, err = r.reader.IsDAOMember(ctx, account)
		return
	})
	read(1, func(ctx context.Context) (err error) {
		counter, err = r.reader.RoleCounter(ctx, account)
		return
	})
	read(2, func(ctx context.Context) (err error) {
		staked, err = r.reader.StakedAmount(ctx, account)
		return
	})
	read(3, func(ctx context.Context) (err error) {
		balance, err = r.reader.TokenBalance(ctx, account)
		return
	})
	read(4, func(ctx context.Context) (err error) {
		canMint, err = r.reader.CanMint(ctx, account)
		return
	})
	read(5, func(ctx context.Context) (err error) {
		fee, err = r.reader.MembershipFee(ctx)
		return
	})
	read(6, func(ctx context.Context) (err error) {
		allowance, err = r.reader.DAOAllowance(ctx, account)
		return
	})
	_ = g.Wait()

	var failed []string
	for i, err := range errs {
		if err != nil {
			failed = append(failed, readNames[i])
			logger.WithError(err).WithField("read", readNames[i]).Debug("Contract read failed")
		}
	}
	if len(failed) == len(readNames) {
		logger.Warn("All contract reads failed, contracts unavailable")
		span.SetStatus(codes.Error, "contracts unavailable")
		return unavailable(account, defaultFee)
	}

	if errs[0] != nil {
		isMember = false
	}
	if errs[1] != nil {
		counter = 0
	}
	if errs[4] != nil {
		canMint = false
	}
	staked = orZero(staked, errs[2])
	balance = orZero(balance, errs[3])
	allowance = orZero(allowance, errs[6])
	if errs[5] != nil || fee == nil {
		fee = r.opts.DefaultFee
	}

	hasStaked := staked.Cmp(r.opts.StakeThreshold) >= 0
	hasBalance := balance.Cmp(fee) >= 0
	role := ResolveRole(Signals{DAOMember: isMember, RoleCounter: counter, HasStaked: hasStaked})

	return Snapshot{
		Account:  account,
		Role:     role,
		IsMember: role.IsMember(),
		Eligibility: Eligibility{
			HasStaked:     hasStaked,
			HasCLTBalance: hasBalance,
			CanJoin:       hasStaked && hasBalance && !isMember,
			AlreadyMember: isMember,
			RequiredCLT:   chain.FormatTokens(fee),
			CurrentCLT:    chain.FormatTokens(balance),
			StakedAmount:  chain.FormatTokens(staked),
		},
		CanMint:            canMint,
		DAOAllowance:       chain.FormatTokens(allowance),
		ContractsAvailable: true,
		FailedReads:        failed,
		ResolvedAt:         time.Now(),
	}
}

func orZero(v *big.Int, err error) *big.Int {
	if err != nil || v == nil {
		return new(big.Int)
	}
	return v
}
