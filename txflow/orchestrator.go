package txflow

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/climalink/climalink/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrBusy = errors.New("a transaction is already in progress")

const (
	DefaultApprovalSettle = time.Second
	DefaultFallbackFee    = "~0.001 ETH"
)

// Allowances reads and raises ERC20 allowances; *chain.Token implements it.
type Allowances interface {
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error)
}

// Confirmer waits for one confirmation; *chain.Waiter implements it.
type Confirmer interface {
	WaitConfirmed(ctx context.Context, hash common.Hash) error
}

type Options struct {
	// ApprovalSettle is the pause between the approval step and Execute.
	// Zero means DefaultApprovalSettle, negative disables it.
	ApprovalSettle time.Duration
	// FallbackFee is shown when no estimate is available.
	FallbackFee string
	Logger      logrus.FieldLogger
}

// Orchestrator drives one request at a time for a single owner account.
type Orchestrator struct {
	owner   common.Address
	tokens  Allowances
	confirm Confirmer
	opts    Options
	logger  logrus.FieldLogger

	mu      sync.Mutex
	running bool
	gen     uint64
	version uint64
	state   State
	subs    map[int]func(State)
	nextSub int

	notifyMu  sync.Mutex
	delivered uint64
}

func New(owner common.Address, tokens Allowances, confirm Confirmer, opts Options) *Orchestrator {
	if opts.FallbackFee == "" {
		opts.FallbackFee = DefaultFallbackFee
	}
	switch {
	case opts.ApprovalSettle == 0:
		opts.ApprovalSettle = DefaultApprovalSettle
	case opts.ApprovalSettle < 0:
		opts.ApprovalSettle = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Orchestrator{
		owner:   owner,
		tokens:  tokens,
		confirm: confirm,
		opts:    opts,
		logger:  logger.WithField("component", "txflow"),
		subs:    map[int]func(State){},
	}
}

// State returns a copy of the latest published state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.clone()
}

// Subscribe registers fn for every published transition. The returned func
// unregisters it.
func (o *Orchestrator) Subscribe(fn func(State)) func() {
	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	o.mu.Unlock()
	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

// Reset forgets the current run. A run still waiting on the chain keeps
// going but nothing it does is published any more, and Run may be called
// again right away.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.gen++
	o.running = false
	o.state = State{}
	o.version++
	o.mu.Unlock()
}

// run is the state of one Run call.
type run struct {
	o   *Orchestrator
	gen uint64
	st  State
}

// update applies fn to the run state and publishes it if the run was not reset.
func (r *run) update(fn func(*State)) {
	o := r.o
	o.mu.Lock()
	fn(&r.st)
	if o.gen != r.gen {
		o.mu.Unlock()
		return
	}
	o.state = r.st.clone()
	o.version++
	version, snapshot := o.version, o.state.clone()
	subs := make([]func(State), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.mu.Unlock()

	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()
	if version <= o.delivered {
		return
	}
	o.delivered = version
	for _, fn := range subs {
		fn(snapshot.clone())
	}
}

func (r *run) snapshot() State {
	r.o.mu.Lock()
	defer r.o.mu.Unlock()
	return r.st.clone()
}

// Run executes req to a terminal state and returns it. A failed run returns
// the final state together with an *Error.
func (o *Orchestrator) Run(ctx context.Context, req Request) (State, error) {
	if err := req.Validate(); err != nil {
		return State{}, err
	}

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return State{}, ErrBusy
	}
	o.running = true
	o.gen++
	r := &run{o: o, gen: o.gen}
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		if o.gen == r.gen {
			o.running = false
		}
		o.mu.Unlock()
	}()

	ctx, span := otel.Tracer("txflow").Start(ctx, "txflow.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("title", req.Title),
		attribute.Bool("requires_approval", req.RequiresApproval()),
	)

	r.update(func(s *State) { *s = newState(req) })
	logger := o.logger.WithFields(logrus.Fields{"id": r.snapshot().ID, "title": req.Title})

	go r.estimate(ctx, req, logger)

	execIdx := 0
	if req.RequiresApproval() {
		execIdx = 1
		if err := r.approve(ctx, req.Approval, logger); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return r.fail(0, PhaseApproval, err, logger)
		}
		if err := sleepCtx(ctx, o.opts.ApprovalSettle); err != nil {
			return r.fail(execIdx, PhaseExecute, err, logger)
		}
	}

	r.update(func(s *State) {
		s.Status = StatusConfirming
		s.Steps[execIdx].Status = StepActive
	})
	hash, err := req.Execute(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return r.fail(execIdx, PhaseExecute, err, logger)
	}
	r.update(func(s *State) {
		s.TxHash = hash.Hex()
		s.Steps[execIdx].Hash = hash.Hex()
	})
	logger.WithField("hash", hash.Hex()).Info("Transaction submitted")
	if err := o.confirm.WaitConfirmed(ctx, hash); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return r.fail(execIdx, PhaseExecute, err, logger)
	}

	r.update(func(s *State) {
		now := time.Now()
		s.Steps[execIdx].Status = StepCompleted
		s.Status = StatusSuccess
		s.FinishedAt = &now
	})
	logger.Info("Transaction confirmed")
	return r.snapshot(), nil
}

func (r *run) approve(ctx context.Context, approval *Approval, logger logrus.FieldLogger) error {
	o := r.o
	r.update(func(s *State) {
		s.Status = StatusApproving
		s.Steps[0].Status = StepActive
	})

	current, err := o.tokens.Allowance(ctx, o.owner, approval.Spender)
	if err != nil {
		logger.WithError(err).Warn("Allowance read failed, assuming zero")
		current = new(big.Int)
	}
	if current.Cmp(approval.Amount) >= 0 {
		logger.WithField("allowance", chain.FormatTokens(current)).Debug("Allowance sufficient, skipping approval")
		r.update(func(s *State) { s.Steps[0].Status = StepCompleted })
		return nil
	}

	hash, err := o.tokens.Approve(ctx, approval.Spender, approval.Amount)
	if err != nil {
		return err
	}
	r.update(func(s *State) {
		s.ApprovalHash = hash.Hex()
		s.Steps[0].Hash = hash.Hex()
	})
	logger.WithField("hash", hash.Hex()).Info("Approval submitted")
	if err := o.confirm.WaitConfirmed(ctx, hash); err != nil {
		return err
	}
	r.update(func(s *State) { s.Steps[0].Status = StepCompleted })
	return nil
}

func (r *run) fail(step int, phase Phase, err error, logger logrus.FieldLogger) (State, error) {
	msg := ClassifyError(err, phase)
	r.update(func(s *State) {
		now := time.Now()
		if s.Steps[step].Status != StepCompleted {
			s.Steps[step].Status = StepError
		}
		s.Status = StatusError
		s.Error = msg
		s.FinishedAt = &now
	})
	logger.WithError(err).WithField("phase", phase.String()).Warn(msg)
	return r.snapshot(), &Error{Phase: phase, Message: msg, Err: err}
}

func (r *run) estimate(ctx context.Context, req Request, logger logrus.FieldLogger) {
	fee := r.o.opts.FallbackFee
	if req.Estimate != nil {
		wei, err := req.Estimate(ctx)
		if err != nil {
			logger.WithError(err).Debug("Fee estimate failed")
		} else if wei != nil {
			fee = chain.FormatUnits(wei, 18) + " ETH"
		}
	}
	r.update(func(s *State) { s.FeeEstimate = fee })
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
