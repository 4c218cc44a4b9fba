// Package sweep converts "no activity" into an ordered, signable transaction
// bundle consolidating a user's multi-chain holdings into one target asset
// for the beneficiary. The planner prepares; it never signs, submits, or
// marks anything executed; its authority ends at planning.
package sweep

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/vigild/vigild/pkg/vigilib"
)

// BalanceSource lists a user's non-zero holdings across a chain set.
type BalanceSource interface {
	ListBalances(ctx context.Context, userAddress string, chains []vigilib.ChainID) ([]vigilib.Balance, error)
}

// QuoteRequest asks the bridge/swap aggregator for a route converting one
// token on one chain into the target asset on the target chain.
type QuoteRequest struct {
	SourceToken string
	SourceChain vigilib.ChainID
	DestToken   string
	DestChain   vigilib.ChainID
	Amount      *big.Int
	Sender      string
	Recipient   string
}

// Quote is a ready-to-sign transaction returned by the aggregator.
// ApprovalAddress is the spender that must be approved before the call;
// empty means no approval is required.
type Quote struct {
	To              string
	Value           string
	Data            string
	ApprovalAddress string
}

// QuoteSource is the bridge/swap quote collaborator. It returns
// vigilib.ErrNoRoute when no route exists for the request.
type QuoteSource interface {
	Quote(ctx context.Context, req *QuoteRequest) (*Quote, error)
}

// Planner builds sweep plans.
type Planner struct {
	balances BalanceSource
	quotes   QuoteSource
	chains   []vigilib.ChainID
	gas      vigilib.GasAssets
	retry    vigilib.RetryConfig
	log      *log.Logger
}

// New creates a Planner over the configured chain set. gas may be nil, in
// which case the conventional native markers are used for every chain.
func New(balances BalanceSource, quotes QuoteSource, chains []vigilib.ChainID, gas vigilib.GasAssets, l *log.Logger) *Planner {
	if gas == nil {
		gas = vigilib.DefaultGasAssets(chains)
	}
	return &Planner{
		balances: balances,
		quotes:   quotes,
		chains:   chains,
		gas:      gas,
		retry:    vigilib.DefaultRetryConfig(),
		log:      l,
	}
}

// Plan enumerates the user's balances and builds the ordered intent bundle.
// Per token: target-form balances are skipped, gas assets get no approval,
// every other token gets approve-then-route with the approval strictly
// first, and unroutable tokens are recorded in Failed without aborting the
// plan. An empty intent list is a valid outcome; Plan only errors when
// balance enumeration itself cannot be attempted.
func (p *Planner) Plan(ctx context.Context, userAddress, beneficiaryAddress string, target vigilib.TargetAsset) (*vigilib.SweepPlan, error) {
	var balances []vigilib.Balance
	err := p.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		balances, err = p.balances.ListBalances(ctx, userAddress, p.chains)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("balance enumeration failed: %w", err)
	}

	plan := &vigilib.SweepPlan{
		UserAddress:        vigilib.NormalizeAddress(userAddress),
		BeneficiaryAddress: vigilib.NormalizeAddress(beneficiaryAddress),
		CreatedAt:          time.Now(),
	}

	// Tokens are processed sequentially: an approval must be ordered
	// before the route intent that spends it.
	for _, b := range balances {
		p.planToken(ctx, plan, b, target)
	}
	return plan, nil
}

func (p *Planner) planToken(ctx context.Context, plan *vigilib.SweepPlan, b vigilib.Balance, target vigilib.TargetAsset) {
	if target.Matches(b) {
		plan.Skipped = append(plan.Skipped, vigilib.SkippedToken{
			Token: vigilib.NormalizeAddress(b.Token), Symbol: b.Symbol, Chain: b.Chain,
			Reason: "already in target form",
		})
		return
	}

	amount, err := vigilib.ParseAmount(b.Amount)
	if err != nil {
		plan.Failed = append(plan.Failed, vigilib.FailedToken{
			Token: vigilib.NormalizeAddress(b.Token), Symbol: b.Symbol, Chain: b.Chain,
			Reason: "unparseable balance: " + b.Amount,
		})
		return
	}
	if amount.Sign() == 0 {
		plan.Skipped = append(plan.Skipped, vigilib.SkippedToken{
			Token: vigilib.NormalizeAddress(b.Token), Symbol: b.Symbol, Chain: b.Chain,
			Reason: "zero balance",
		})
		return
	}

	var quote *Quote
	err = p.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		quote, err = p.quotes.Quote(ctx, &QuoteRequest{
			SourceToken: b.Token,
			SourceChain: b.Chain,
			DestToken:   target.Token,
			DestChain:   target.Chain,
			Amount:      amount,
			Sender:      plan.UserAddress,
			Recipient:   plan.BeneficiaryAddress,
		})
		return err
	})
	if err != nil {
		// One unroutable token never aborts the whole plan.
		p.log.Printf("sweep: no route for %s on chain %d: %v", b.Token, b.Chain, err)
		plan.Failed = append(plan.Failed, vigilib.FailedToken{
			Token: vigilib.NormalizeAddress(b.Token), Symbol: b.Symbol, Chain: b.Chain,
			Reason: err.Error(),
		})
		return
	}

	if !p.gas.IsGasAsset(b.Chain, b.Token) && quote.ApprovalAddress != "" {
		plan.Intents = append(plan.Intents, vigilib.ApproveIntent(b.Chain, b.Token, quote.ApprovalAddress, amount))
	}
	plan.Intents = append(plan.Intents, vigilib.TransactionIntent{
		ChainID: b.Chain,
		To:      vigilib.NormalizeAddress(quote.To),
		Value:   quote.Value,
		Data:    quote.Data,
	})
}
