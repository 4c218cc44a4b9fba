// Package oracle decides whether a user showed any qualifying activity
// within a trailing window. It combines two independent evidence sources
// (on-chain and social) into a single boolean: either source alone is
// sufficient to reset the switch.
package oracle

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/vigild/vigild/pkg/vigilib"
)

// ChainActivitySource answers whether a user had on-chain activity within
// the window. The collaborator is required to return a structured boolean;
// classifying free-form evidence into found/not-found happens behind this
// interface, never in the core.
type ChainActivitySource interface {
	RecentActivity(ctx context.Context, userAddress string, window time.Duration) (bool, error)
}

// SocialActivitySource answers whether a user had social activity within
// the last hours.
type SocialActivitySource interface {
	HasRecentActivity(ctx context.Context, userAddress string, hours int) (bool, error)
}

// FailurePolicy controls how a failed or timed-out source is counted.
type FailurePolicy int

const (
	// FailSafe treats a failed source as "activity found": the switch
	// re-arms instead of moving funds on a transient outage. Default.
	FailSafe FailurePolicy = iota
	// FailDeadly treats a failed source as "no evidence of activity",
	// moving toward the trigger path.
	FailDeadly
)

// DefaultDeadline bounds a whole check when no deadline is configured.
const DefaultDeadline = 30 * time.Second

// Config holds oracle tuning.
type Config struct {
	// Deadline bounds the whole check. It is clamped below the window
	// being evaluated so the state machine is never stuck in Checking.
	Deadline time.Duration
	// Policy decides how source failures are counted.
	Policy FailurePolicy
	// Retry wraps each source call. Breakers are per-source and shared
	// across checks.
	Retry vigilib.RetryConfig
}

// Oracle combines the two evidence sources under one bounded deadline.
type Oracle struct {
	chain  ChainActivitySource
	social SocialActivitySource
	cfg    Config
	log    *log.Logger

	chainRetry  vigilib.RetryConfig
	socialRetry vigilib.RetryConfig
}

// New creates an Oracle. Each source gets its own circuit breaker so one
// flapping collaborator cannot open the other's circuit.
func New(chain ChainActivitySource, social SocialActivitySource, cfg Config, l *log.Logger) *Oracle {
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultDeadline
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = vigilib.DefaultRetryConfig()
	}

	chainRetry := cfg.Retry
	chainRetry.Breaker = vigilib.NewBreaker(vigilib.DEF_BREAKER_THRESHOLD, vigilib.DEF_BREAKER_COOLDOWN)
	socialRetry := cfg.Retry
	socialRetry.Breaker = vigilib.NewBreaker(vigilib.DEF_BREAKER_THRESHOLD, vigilib.DEF_BREAKER_COOLDOWN)

	return &Oracle{
		chain:       chain,
		social:      social,
		cfg:         cfg,
		log:         l,
		chainRetry:  chainRetry,
		socialRetry: socialRetry,
	}
}

// Check resolves found/not-found for the user within the trailing window.
// It always returns within its deadline; source failures are folded in
// according to the configured policy and reported in Result.Errors.
func (o *Oracle) Check(ctx context.Context, userAddress string, window time.Duration) vigilib.ActivityResult {
	deadline := o.cfg.Deadline
	if window > 0 && deadline >= window {
		deadline = window / 2
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var (
		wg                   sync.WaitGroup
		onchain, social      bool
		onchainErr, socialErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		onchainErr = o.chainRetry.Do(ctx, func(ctx context.Context) error {
			found, err := o.chain.RecentActivity(ctx, userAddress, window)
			if err != nil {
				return err
			}
			onchain = found
			return nil
		})
	}()
	go func() {
		defer wg.Done()
		socialErr = o.socialRetry.Do(ctx, func(ctx context.Context) error {
			found, err := o.social.HasRecentActivity(ctx, userAddress, windowHours(window))
			if err != nil {
				return err
			}
			social = found
			return nil
		})
	}()
	wg.Wait()

	result := vigilib.ActivityResult{Timestamp: time.Now()}
	if onchainErr != nil {
		o.log.Printf("oracle: on-chain source failed for %s: %v", userAddress, onchainErr)
		result.Errors = append(result.Errors, "onchain: "+onchainErr.Error())
		onchain = o.cfg.Policy == FailSafe
	}
	if socialErr != nil {
		o.log.Printf("oracle: social source failed for %s: %v", userAddress, socialErr)
		result.Errors = append(result.Errors, "social: "+socialErr.Error())
		social = o.cfg.Policy == FailSafe
	}

	result.Evidence = vigilib.Evidence{Onchain: onchain, Social: social}
	result.Found = onchain || social
	return result
}

// windowHours converts a window to whole hours, rounding up, minimum 1.
func windowHours(window time.Duration) int {
	h := int(window / time.Hour)
	if window%time.Hour != 0 {
		h++
	}
	if h < 1 {
		h = 1
	}
	return h
}
