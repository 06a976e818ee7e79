// Package verifier decides whether the wallets of a logged-in user hold, together, a minimum amount of a chain's
// native currency or of an ERC20 token.
//
// The wallets are taken from the user's Sign In With Ethereum identities. Their balances are queried at the same
// time on the chain's node, added up and compared against the minimum, scaled to the smallest unit of the currency.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tarancss/balcheck/lib/address"
	"github.com/tarancss/balcheck/lib/balance"
	"github.com/tarancss/balcheck/lib/block"
	"github.com/tarancss/balcheck/lib/block/types"
	"github.com/tarancss/balcheck/lib/chain"
	"github.com/tarancss/balcheck/lib/identity"
	"github.com/tarancss/balcheck/lib/metrics"
	"github.com/tarancss/balcheck/lib/msg"
	"github.com/tarancss/balcheck/lib/store"
	"github.com/tarancss/balcheck/lib/threshold"
)

// Messages of negative outcomes.
const (
	MsgNoIdentities    = "The logged-in user did not contain any Identities."
	MsgNoWallets       = "The logged-in user does not have any wallets registered. Please Sign In with Ethereum and try again."
	MsgInvalidContract = "The contract address '%s' is not valid."
)

// Reason codes of an Outcome.
const (
	OK              = "ok"
	NoIdentities    = "no_identities"
	NoWallets       = "no_wallets"
	InvalidContract = "invalid_contract"
	BelowThreshold  = "below_threshold"
)

// DefaultMaxWallets is the number of distinct wallets a verification may query when Options.MaxWallets is not set.
const DefaultMaxWallets = 100

// Errors returned.
var (
	ErrUnsupportedChain = errors.New("unsupported chain")
	ErrInvalidContract  = errors.New("invalid contract address")
	ErrTooManyWallets   = errors.New("too many wallets")
)

// Query defines what has to be verified. ContractAddress empty means the native currency of the chain.
type Query struct {
	ID               string // correlates logs and audit records, generated if empty
	ChainID          int64
	MinimumAmount    decimal.Decimal
	ContractAddress  string
	ContractDecimals int32
	Debug            bool
}

// NewQuery returns a Query for chainID with a zero minimum and 18 decimals.
func NewQuery(chainID int64) Query {
	return Query{ChainID: chainID, MinimumAmount: decimal.Zero, ContractDecimals: threshold.DefaultDecimals}
}

// FromRequest returns the Query of a verification request.
func FromRequest(r msg.VerifyReq) Query {
	q := NewQuery(r.ChainID)
	q.ID = r.ID
	q.MinimumAmount = r.MinimumAmount
	q.ContractAddress = r.ContractAddress
	q.Debug = r.Debug

	if r.ContractDecimals != nil {
		q.ContractDecimals = *r.ContractDecimals
	}

	return q
}

// Outcome is the decision of a verification. When Valid, Message holds the aggregate balance in smallest units.
type Outcome struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
	Reason  string `json:"reason"`
	Wallets int    `json:"wallets"` // distinct valid wallets queried
}

// Options of a Verifier.
type Options struct {
	Policy     string        // balance.ABORT (default) or balance.DEGRADE
	Timeout    time.Duration // per balance query
	Debug      bool          // trace every query
	DB         store.DB      // optional audit store
	MaxWallets int           // distinct wallets per verification, DefaultMaxWallets if 0
}

// Verifier runs verifications on the chains of a registry.
type Verifier struct {
	reg  *chain.Registry
	pool *block.Pool
	o    Options
}

// New returns a Verifier resolving chains with reg and connecting to them through pool.
func New(reg *chain.Registry, pool *block.Pool, o Options) *Verifier {
	if o.MaxWallets <= 0 {
		o.MaxWallets = DefaultMaxWallets
	}

	return &Verifier{reg: reg, pool: pool, o: o}
}

// Chains returns the supported chains.
func (v *Verifier) Chains() []chain.Endpoint {
	return v.reg.Chains()
}

// Close closes the blockchain clients.
func (v *Verifier) Close() {
	v.pool.End()
}

// Verify decides whether the wallets of ids meet q. Failed checks are returned as a negative Outcome; an error is
// returned for an unsupported chain, decimals out of range, more wallets than allowed or when balances could not be
// obtained.
func (v *Verifier) Verify(ctx context.Context, ids []identity.Identity, q Query) (o Outcome, err error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}

	debug := q.Debug || v.o.Debug

	defer func() {
		if err == nil {
			v.record(q, o)
		}
	}()

	v.trace(debug, q.ID, text(fmt.Sprintf("chain %d, %d identities", q.ChainID, len(ids))))

	wallets, err := identity.Wallets(ids)
	if errors.Is(err, identity.ErrNoIdentities) {
		return Outcome{Message: MsgNoIdentities, Reason: NoIdentities}, nil
	}

	if errors.Is(err, identity.ErrNoWallets) {
		return Outcome{Message: MsgNoWallets, Reason: NoWallets}, nil
	}

	node := v.reg.Resolve(q.ChainID)
	if node == "" {
		return Outcome{}, fmt.Errorf("%w %d", ErrUnsupportedChain, q.ChainID)
	}

	v.trace(debug, q.ID, text("endpoint "+node))

	var token *common.Address

	if q.ContractAddress != "" {
		t, ok := address.Normalize(q.ContractAddress)
		if !ok {
			return Outcome{Message: fmt.Sprintf(MsgInvalidContract, q.ContractAddress), Reason: InvalidContract}, nil
		}

		token = &t
	}

	if err = threshold.CheckDecimals(q.ContractDecimals); err != nil {
		return Outcome{}, err
	}

	accounts := distinct(wallets, func(w, reason string) {
		v.trace(debug, q.ID, record{"wallet": w, "skipped": reason})
	})

	if len(accounts) > v.o.MaxWallets {
		return Outcome{}, fmt.Errorf("%w: %d, the limit is %d", ErrTooManyWallets, len(accounts), v.o.MaxWallets)
	}

	var results []balance.Result

	if len(accounts) > 0 {
		c, errC := v.pool.Get(q.ChainID)
		if errC != nil {
			return Outcome{}, errC
		}

		f := balance.Fetcher{
			Chain:   c,
			Policy:  v.o.Policy,
			Timeout: v.o.Timeout,
			Observe: metrics.RPC(q.ChainID),
			Each:    func(r balance.Result) { v.trace(debug, q.ID, balanceRecord(r)) },
		}

		if results, err = f.Fetch(ctx, accounts, token); err != nil {
			log.Printf("[%s] Error getting balances on chain %d:%v", q.ID, q.ChainID, err)

			return Outcome{}, err
		}
	}

	total := balance.Aggregate(results)

	res, err := threshold.Evaluate(total, q.MinimumAmount, q.ContractDecimals)
	if err != nil {
		return Outcome{}, err
	}

	v.trace(debug, q.ID, record{"aggregate": total.String(), "minimum": res.Minimum.String(), "valid": res.Valid})

	o = Outcome{Valid: res.Valid, Message: res.Message, Reason: OK, Wallets: len(accounts)}
	if !res.Valid {
		o.Reason = BelowThreshold
	}

	return o, nil
}

// Token returns the name, symbol and decimals of the ERC20 contract on chainID.
func (v *Verifier) Token(ctx context.Context, chainID int64, contract string) (types.Token, error) {
	if v.reg.Resolve(chainID) == "" {
		return types.Token{}, fmt.Errorf("%w %d", ErrUnsupportedChain, chainID)
	}

	a, ok := address.Normalize(contract)
	if !ok {
		return types.Token{}, fmt.Errorf("%w: %s", ErrInvalidContract, contract)
	}

	c, err := v.pool.Get(chainID)
	if err != nil {
		return types.Token{}, err
	}

	return c.Token(ctx, a)
}

// distinct returns the valid wallets, normalized, without repetitions and in order of appearance. skip is called
// with every wallet left out.
func distinct(wallets []string, skip func(wallet, reason string)) []common.Address {
	seen := make(map[common.Address]bool, len(wallets))
	l := make([]common.Address, 0, len(wallets))

	for _, w := range wallets {
		a, ok := address.Normalize(w)
		if !ok {
			skip(w, "invalid address")

			continue
		}

		if seen[a] {
			skip(w, "duplicate")

			continue
		}

		seen[a] = true
		l = append(l, a)
	}

	return l
}

// record counts the decision and saves it in the audit store, if any.
func (v *Verifier) record(q Query, o Outcome) {
	label := metrics.Unsupported
	if v.reg.Resolve(q.ChainID) != "" {
		label = metrics.Chain(q.ChainID)
	}

	metrics.Evaluation(label, o.Reason, o.Wallets)

	if v.o.DB == nil {
		return
	}

	d := store.Decision{
		ID:       q.ID,
		ChainID:  q.ChainID,
		Contract: q.ContractAddress,
		Minimum:  q.MinimumAmount.String(),
		Decimals: q.ContractDecimals,
		Wallets:  o.Wallets,
		Valid:    o.Valid,
		Reason:   o.Reason,
		TS:       time.Now().UTC(),
	}

	if err := v.o.DB.SaveDecision(d); err != nil {
		log.Printf("[%s] Error saving decision:%v", q.ID, err)
	}
}
