package chain

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Coordinate and temperature scaling used by the Climate contract.
const (
	CoordinateScale  = 1e6
	TemperatureScale = 1e2
)

// Signer hands out transaction options; *Session implements it.
type Signer interface {
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

type boundContract struct {
	name    string
	address common.Address
	abi     abi.ABI
	bound   *bind.BoundContract
	backend bind.ContractBackend
	signer  Signer
}

func newBoundContract(name, abiJSON string, address common.Address, backend bind.ContractBackend, signer Signer) (*boundContract, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse %s abi: %w", name, err)
	}
	return &boundContract{
		name:    name,
		address: address,
		abi:     parsed,
		bound:   bind.NewBoundContract(address, parsed, backend, backend, backend),
		backend: backend,
		signer:  signer,
	}, nil
}

func (c *boundContract) call(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("%s.%s: %w", c.name, method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s.%s: empty result", c.name, method)
	}
	return out[0], nil
}

func (c *boundContract) callBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(out, new(big.Int)).(*big.Int), nil
}

func (c *boundContract) callBool(ctx context.Context, method string, args ...interface{}) (bool, error) {
	out, err := c.call(ctx, method, args...)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out, new(bool)).(*bool), nil
}

func (c *boundContract) transact(ctx context.Context, method string, args ...interface{}) (common.Hash, error) {
	if c.signer == nil {
		return common.Hash{}, ErrReadOnly
	}
	opts, err := c.signer.TransactOpts(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	tx, err := c.bound.Transact(opts, method, args...)
	if err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

// estimateFee returns gas * gas price in wei for calling method from sender.
func (c *boundContract) estimateFee(ctx context.Context, from common.Address, method string, args ...interface{}) (*big.Int, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	to := c.address
	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
	if err != nil {
		return nil, err
	}
	price, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(gas), price), nil
}

// Token is the CLT token capability.
type Token struct{ c *boundContract }

func (t *Token) Address() common.Address { return t.c.address }

func (t *Token) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return t.c.callBig(ctx, "balanceOf", account)
}

func (t *Token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return t.c.callBig(ctx, "allowance", owner, spender)
}

func (t *Token) StakedBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return t.c.callBig(ctx, "stakedBalance", account)
}

func (t *Token) CanMint(ctx context.Context, account common.Address) (bool, error) {
	return t.c.callBool(ctx, "canMint", account)
}

func (t *Token) Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error) {
	return t.c.transact(ctx, "approve", spender, amount)
}

func (t *Token) Stake(ctx context.Context, amount *big.Int) (common.Hash, error) {
	return t.c.transact(ctx, "stake", amount)
}

func (t *Token) Unstake(ctx context.Context, amount *big.Int) (common.Hash, error) {
	return t.c.transact(ctx, "unstake", amount)
}

func (t *Token) MintReward(ctx context.Context) (common.Hash, error) {
	return t.c.transact(ctx, "mintReward")
}

// Report is a crowd-sourced weather observation as submitted on-chain.
type Report struct {
	Latitude    float64
	Longitude   float64
	Temperature float64
	Humidity    uint64
	Condition   string
}

func (r Report) args() []interface{} {
	return []interface{}{
		scaled(r.Latitude, CoordinateScale),
		scaled(r.Longitude, CoordinateScale),
		scaled(r.Temperature, TemperatureScale),
		new(big.Int).SetUint64(r.Humidity),
		r.Condition,
	}
}

func scaled(v float64, scale float64) *big.Int {
	return big.NewInt(int64(math.Round(v * scale)))
}

// Climate is the weather report registry capability.
type Climate struct{ c *boundContract }

func (cl *Climate) Address() common.Address { return cl.c.address }

// UserRole returns the on-chain role counter of account.
func (cl *Climate) UserRole(ctx context.Context, account common.Address) (uint8, error) {
	out, err := cl.c.call(ctx, "userRoles", account)
	if err != nil {
		return 0, err
	}
	return *abi.ConvertType(out, new(uint8)).(*uint8), nil
}

func (cl *Climate) RegisterReporter(ctx context.Context) (common.Hash, error) {
	return cl.c.transact(ctx, "registerReporter")
}

func (cl *Climate) BecomeValidator(ctx context.Context) (common.Hash, error) {
	return cl.c.transact(ctx, "becomeValidator")
}

func (cl *Climate) SubmitReport(ctx context.Context, r Report) (common.Hash, error) {
	return cl.c.transact(ctx, "submitReport", r.args()...)
}

func (cl *Climate) ValidateReport(ctx context.Context, reportID *big.Int, isValid bool) (common.Hash, error) {
	return cl.c.transact(ctx, "validateReport", reportID, isValid)
}

// DAO is the governance capability.
type DAO struct{ c *boundContract }

func (d *DAO) Address() common.Address { return d.c.address }

func (d *DAO) IsMember(ctx context.Context, account common.Address) (bool, error) {
	return d.c.callBool(ctx, "isMember", account)
}

func (d *DAO) MembershipFee(ctx context.Context) (*big.Int, error) {
	return d.c.callBig(ctx, "MEMBERSHIP_FEE")
}

func (d *DAO) Join(ctx context.Context) (common.Hash, error) {
	return d.c.transact(ctx, "joinDAO")
}

func (d *DAO) CreateProposal(ctx context.Context, description string) (common.Hash, error) {
	return d.c.transact(ctx, "createProposal", description)
}

func (d *DAO) Vote(ctx context.Context, proposalID *big.Int, support bool) (common.Hash, error) {
	return d.c.transact(ctx, "vote", proposalID, support)
}

func (d *DAO) ExecuteProposal(ctx context.Context, proposalID *big.Int) (common.Hash, error) {
	return d.c.transact(ctx, "executeProposal", proposalID)
}

// Contracts bundles the three capabilities for one account.
type Contracts struct {
	Token   *Token
	Climate *Climate
	DAO     *DAO
}

// NewContracts binds the contracts at addrs. signer may be nil for
// read-only use.
func NewContracts(backend bind.ContractBackend, addrs Addresses, signer Signer) (*Contracts, error) {
	if err := addrs.Validate(); err != nil {
		return nil, err
	}
	token, err := newBoundContract("token", TokenABI, addrs.Token, backend, signer)
	if err != nil {
		return nil, err
	}
	climate, err := newBoundContract("climate", ClimateABI, addrs.Climate, backend, signer)
	if err != nil {
		return nil, err
	}
	dao, err := newBoundContract("dao", DAOABI, addrs.DAO, backend, signer)
	if err != nil {
		return nil, err
	}
	return &Contracts{Token: &Token{token}, Climate: &Climate{climate}, DAO: &DAO{dao}}, nil
}

// The methods below expose the resolver's seven reads.

func (c *Contracts) IsDAOMember(ctx context.Context, account common.Address) (bool, error) {
	return c.DAO.IsMember(ctx, account)
}

func (c *Contracts) RoleCounter(ctx context.Context, account common.Address) (uint8, error) {
	return c.Climate.UserRole(ctx, account)
}

func (c *Contracts) StakedAmount(ctx context.Context, account common.Address) (*big.Int, error) {
	return c.Token.StakedBalance(ctx, account)
}

func (c *Contracts) TokenBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return c.Token.BalanceOf(ctx, account)
}

func (c *Contracts) CanMint(ctx context.Context, account common.Address) (bool, error) {
	return c.Token.CanMint(ctx, account)
}

func (c *Contracts) MembershipFee(ctx context.Context) (*big.Int, error) {
	return c.DAO.MembershipFee(ctx)
}

func (c *Contracts) DAOAllowance(ctx context.Context, account common.Address) (*big.Int, error) {
	return c.Token.Allowance(ctx, account, c.DAO.Address())
}

// Estimator returns a fee estimator for calling method on the contract at
// target, suitable for txflow.Request.Estimate.
func (c *Contracts) Estimator(from common.Address, target common.Address, method string, args ...interface{}) func(context.Context) (*big.Int, error) {
	var bc *boundContract
	switch target {
	case c.Token.c.address:
		bc = c.Token.c
	case c.Climate.c.address:
		bc = c.Climate.c
	case c.DAO.c.address:
		bc = c.DAO.c
	}
	return func(ctx context.Context) (*big.Int, error) {
		if bc == nil {
			return nil, fmt.Errorf("unknown contract %s", target.Hex())
		}
		return bc.estimateFee(ctx, from, method, args...)
	}
}

// ReportArgs exposes the encoded submitReport arguments for fee estimation.
func ReportArgs(r Report) []interface{} { return r.args() }
