package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vigild/vigild/pkg/vigilib"
)

// activityResponse is the wire shape both HTTP sources expect: the indexer
// classifies evidence and answers with a structured boolean.
type activityResponse struct {
	Active bool `json:"active"`
}

// HTTPChainSource queries an activity indexer over HTTP:
// GET {base}/activity?user=<addr>&window_hours=<n> -> {"active": bool}.
type HTTPChainSource struct {
	base   string
	client *http.Client
}

// NewHTTPChainSource creates a chain source against base. client may be nil.
func NewHTTPChainSource(base string, client *http.Client) *HTTPChainSource {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPChainSource{base: strings.TrimRight(base, "/"), client: client}
}

func (s *HTTPChainSource) RecentActivity(ctx context.Context, userAddress string, window time.Duration) (bool, error) {
	q := url.Values{
		"user":         {vigilib.NormalizeAddress(userAddress)},
		"window_hours": {strconv.Itoa(windowHours(window))},
	}
	return fetchActivity(ctx, s.client, s.base+"/activity?"+q.Encode())
}

// HTTPSocialSource queries a social activity indexer over HTTP:
// GET {base}/social?user=<addr>&hours=<n> -> {"active": bool}.
type HTTPSocialSource struct {
	base   string
	client *http.Client
}

// NewHTTPSocialSource creates a social source against base. client may be nil.
func NewHTTPSocialSource(base string, client *http.Client) *HTTPSocialSource {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPSocialSource{base: strings.TrimRight(base, "/"), client: client}
}

func (s *HTTPSocialSource) HasRecentActivity(ctx context.Context, userAddress string, hours int) (bool, error) {
	q := url.Values{
		"user":  {vigilib.NormalizeAddress(userAddress)},
		"hours": {strconv.Itoa(hours)},
	}
	return fetchActivity(ctx, s.client, s.base+"/social?"+q.Encode())
}

func fetchActivity(ctx context.Context, client *http.Client, u string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", vigilib.ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: status %d", vigilib.ErrOracleUnavailable, resp.StatusCode)
	}
	var body activityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("%w: malformed response: %v", vigilib.ErrOracleUnavailable, err)
	}
	return body.Active, nil
}
