package eligibility

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/climalink/climalink/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

type fakeReader struct {
	member    bool
	counter   uint8
	staked    *big.Int
	balance   *big.Int
	canMint   bool
	fee       *big.Int
	allowance *big.Int
	fail      map[string]error
	panicOn   string

	// block holds IsDAOMember for blockFor until closed.
	blockFor common.Address
	block    chan struct{}
	entered  chan struct{}
}

func (f *fakeReader) err(name string) error {
	if f.panicOn == name {
		panic("boom")
	}
	return f.fail[name]
}

func (f *fakeReader) IsDAOMember(ctx context.Context, a common.Address) (bool, error) {
	if f.block != nil && a == f.blockFor {
		close(f.entered)
		<-f.block
	}
	return f.member, f.err("isMember")
}

func (f *fakeReader) RoleCounter(ctx context.Context, a common.Address) (uint8, error) {
	return f.counter, f.err("userRoles")
}

func (f *fakeReader) StakedAmount(ctx context.Context, a common.Address) (*big.Int, error) {
	return f.staked, f.err("stakedBalance")
}

func (f *fakeReader) TokenBalance(ctx context.Context, a common.Address) (*big.Int, error) {
	return f.balance, f.err("balanceOf")
}

func (f *fakeReader) CanMint(ctx context.Context, a common.Address) (bool, error) {
	return f.canMint, f.err("canMint")
}

func (f *fakeReader) MembershipFee(ctx context.Context) (*big.Int, error) {
	return f.fee, f.err("MEMBERSHIP_FEE")
}

func (f *fakeReader) DAOAllowance(ctx context.Context, a common.Address) (*big.Int, error) {
	return f.allowance, f.err("allowance")
}

func testOptions() Options {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return Options{RefreshDelay: 10 * time.Millisecond, Logger: l}
}

func TestResolveRolePrecedence(t *testing.T) {
	cases := []struct {
		signals Signals
		want    Role
	}{
		{Signals{DAOMember: true}, RoleDAOMember},
		{Signals{DAOMember: true, RoleCounter: 2, HasStaked: true}, RoleDAOMember},
		{Signals{RoleCounter: 2, HasStaked: false}, RoleReporter},
		{Signals{RoleCounter: 2, HasStaked: true}, RoleValidator},
		{Signals{HasStaked: true}, RoleNone},
		{Signals{}, RoleNone},
	}
	for _, c := range cases {
		role := ResolveRole(c.signals)
		assert.Equal(t, c.want, role, "%+v", c.signals)
		assert.Equal(t, c.want != RoleNone, role.IsMember())
	}
}

func TestResolveFullSnapshot(t *testing.T) {
	reader := &fakeReader{
		counter:   1,
		staked:    chain.Tokens(150),
		balance:   chain.Tokens(25),
		fee:       chain.Tokens(20),
		allowance: chain.Tokens(5),
		canMint:   true,
	}
	snap := New(reader, testOptions()).Resolve(context.Background(), alice)

	assert.Equal(t, RoleValidator, snap.Role)
	assert.True(t, snap.IsMember)
	assert.True(t, snap.ContractsAvailable)
	assert.Empty(t, snap.FailedReads)
	assert.True(t, snap.CanMint)
	assert.Equal(t, "5.0", snap.DAOAllowance)
	assert.Equal(t, Eligibility{
		HasStaked:     true,
		HasCLTBalance: true,
		CanJoin:       true,
		AlreadyMember: false,
		RequiredCLT:   "20.0",
		CurrentCLT:    "25.0",
		StakedAmount:  "150.0",
	}, snap.Eligibility)
}

func TestResolveDAOMemberCannotJoin(t *testing.T) {
	reader := &fakeReader{member: true, staked: chain.Tokens(500), balance: chain.Tokens(500), fee: chain.Tokens(10)}
	snap := New(reader, testOptions()).Resolve(context.Background(), alice)
	assert.Equal(t, RoleDAOMember, snap.Role)
	assert.True(t, snap.IsMember)
	assert.True(t, snap.Eligibility.AlreadyMember)
	assert.False(t, snap.Eligibility.CanJoin)
}

func TestResolveMembershipFeeFallback(t *testing.T) {
	reader := &fakeReader{
		counter: 2,
		staked:  chain.Tokens(99),
		balance: chain.Tokens(10),
		fail:    map[string]error{"MEMBERSHIP_FEE": errors.New("execution reverted")},
	}
	snap := New(reader, testOptions()).Resolve(context.Background(), alice)

	assert.True(t, snap.ContractsAvailable)
	assert.Equal(t, []string{"MEMBERSHIP_FEE"}, snap.FailedReads)
	assert.Equal(t, RoleReporter, snap.Role)
	assert.Equal(t, "10.0", snap.Eligibility.RequiredCLT)
	assert.True(t, snap.Eligibility.HasCLTBalance)
	assert.False(t, snap.Eligibility.HasStaked)
	assert.False(t, snap.Eligibility.CanJoin)
}

func TestResolvePartialFailureFallbacks(t *testing.T) {
	reader := &fakeReader{
		member:  true,
		counter: 3,
		fee:     chain.Tokens(10),
		fail: map[string]error{
			"isMember":      errors.New("x"),
			"stakedBalance": errors.New("x"),
			"balanceOf":     errors.New("x"),
		},
	}
	snap := New(reader, testOptions()).Resolve(context.Background(), alice)
	assert.Equal(t, RoleReporter, snap.Role)
	assert.False(t, snap.Eligibility.AlreadyMember)
	assert.Equal(t, "0.0", snap.Eligibility.StakedAmount)
	assert.Equal(t, "0.0", snap.Eligibility.CurrentCLT)
	assert.ElementsMatch(t, []string{"isMember", "stakedBalance", "balanceOf"}, snap.FailedReads)
}

func TestResolveTotalFailure(t *testing.T) {
	fail := map[string]error{}
	for _, name := range readNames {
		fail[name] = errors.New("dial tcp: connection refused")
	}
	snap := New(&fakeReader{member: true, counter: 2, fail: fail}, testOptions()).Resolve(context.Background(), alice)
	assert.False(t, snap.ContractsAvailable)
	assert.Equal(t, RoleNone, snap.Role)
	assert.False(t, snap.IsMember)
	assert.False(t, snap.Eligibility.CanJoin)
}

func TestResolvePanicInRead(t *testing.T) {
	reader := &fakeReader{counter: 1, staked: chain.Tokens(1), balance: chain.Tokens(1), fee: chain.Tokens(1), panicOn: "canMint"}
	snap := New(reader, testOptions()).Resolve(context.Background(), alice)
	assert.True(t, snap.ContractsAvailable)
	assert.Contains(t, snap.FailedReads, "canMint")
	assert.Equal(t, RoleReporter, snap.Role)
}

func TestResolveNilReader(t *testing.T) {
	snap := New(nil, testOptions()).Resolve(context.Background(), alice)
	assert.False(t, snap.ContractsAvailable)
	assert.Equal(t, RoleNone, snap.Role)
}

func TestSetAccountPublishes(t *testing.T) {
	r := New(&fakeReader{member: true, fee: chain.Tokens(10)}, testOptions())
	var (
		mu   sync.Mutex
		seen []Snapshot
	)
	r.Subscribe(func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	snap := r.SetAccount(context.Background(), alice)
	assert.Equal(t, RoleDAOMember, snap.Role)
	assert.Equal(t, alice, r.Current().Account)

	snap = r.SetNetwork(context.Background(), false)
	assert.Equal(t, RoleNone, snap.Role)
	assert.False(t, snap.ContractsAvailable)
	assert.Equal(t, RoleNone, r.Current().Role)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Equal(t, RoleDAOMember, seen[0].Role)
	assert.Equal(t, RoleNone, seen[1].Role)
}

func TestStalePassDropped(t *testing.T) {
	reader := &fakeReader{
		member:   true,
		fee:      chain.Tokens(10),
		blockFor: alice,
		block:    make(chan struct{}),
		entered:  make(chan struct{}),
	}
	r := New(reader, testOptions())

	done := make(chan struct{})
	go func() {
		r.SetAccount(context.Background(), alice)
		close(done)
	}()
	<-reader.entered

	r.SetAccount(context.Background(), bob)
	assert.Equal(t, bob, r.Current().Account)

	close(reader.block)
	<-done
	assert.Equal(t, bob, r.Current().Account)
}

func TestRefreshAfter(t *testing.T) {
	reader := &fakeReader{counter: 1, fee: chain.Tokens(10)}
	r := New(reader, testOptions())
	r.SetAccount(context.Background(), alice)
	require.Equal(t, RoleReporter, r.Current().Role)

	reader.member = true
	r.RefreshAfter(context.Background(), 0)
	assert.Eventually(t, func() bool {
		return r.Current().Role == RoleDAOMember
	}, time.Second, 5*time.Millisecond)
	r.Stop()
}

func TestNetworkHook(t *testing.T) {
	var ok atomic.Bool
	opts := testOptions()
	opts.NetworkOK = ok.Load
	r := New(&fakeReader{member: true, fee: chain.Tokens(10)}, opts)

	snap := r.SetAccount(context.Background(), alice)
	assert.Equal(t, RoleNone, snap.Role)
	assert.False(t, snap.IsMember)
	assert.False(t, snap.ContractsAvailable)
	assert.Equal(t, alice, snap.Account)
	assert.Equal(t, "10.0", snap.Eligibility.RequiredCLT)

	ok.Store(true)
	snap, published := r.Refresh(context.Background())
	require.True(t, published)
	assert.Equal(t, RoleDAOMember, snap.Role)
	assert.True(t, snap.ContractsAvailable)
}

func TestUnavailable(t *testing.T) {
	r := New(nil, testOptions())
	snap := r.Unavailable(bob)
	assert.Equal(t, bob, snap.Account)
	assert.Equal(t, RoleNone, snap.Role)
	assert.False(t, snap.ContractsAvailable)
	assert.Equal(t, chain.FormatTokens(DefaultMembershipFee), snap.Eligibility.RequiredCLT)
}
