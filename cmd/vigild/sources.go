package main

import (
	"context"
	"time"

	"github.com/vigild/vigild/internal/sweep"
	"github.com/vigild/vigild/pkg/vigilib"
)

// Inert collaborators stand in when no endpoint is configured. The oracle
// fallbacks report unavailability so the failure policy decides the outcome
// instead of a silent "no activity" triggering sweeps.

type inertChainSource struct{}

func (inertChainSource) RecentActivity(ctx context.Context, userAddress string, window time.Duration) (bool, error) {
	return false, vigilib.ErrOracleUnavailable
}

type inertSocialSource struct{}

func (inertSocialSource) HasRecentActivity(ctx context.Context, userAddress string, hours int) (bool, error) {
	return false, vigilib.ErrOracleUnavailable
}

type inertBalanceSource struct{}

func (inertBalanceSource) ListBalances(ctx context.Context, userAddress string, chains []vigilib.ChainID) ([]vigilib.Balance, error) {
	return nil, nil
}

type inertQuoteSource struct{}

func (inertQuoteSource) Quote(ctx context.Context, req *sweep.QuoteRequest) (*sweep.Quote, error) {
	return nil, vigilib.ErrNoRoute
}
