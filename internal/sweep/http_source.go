package sweep

import (
	"bytes"
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

// HTTPBalanceSource queries a balance indexer over HTTP:
// GET {base}/balances?user=<addr>&chains=1,8453 -> {"balances": [...]}.
type HTTPBalanceSource struct {
	base   string
	client *http.Client
}

// NewHTTPBalanceSource creates a balance source against base. client may be nil.
func NewHTTPBalanceSource(base string, client *http.Client) *HTTPBalanceSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPBalanceSource{base: strings.TrimRight(base, "/"), client: client}
}

func (s *HTTPBalanceSource) ListBalances(ctx context.Context, userAddress string, chains []vigilib.ChainID) ([]vigilib.Balance, error) {
	ids := make([]string, len(chains))
	for i, c := range chains {
		ids[i] = strconv.FormatInt(int64(c), 10)
	}
	q := url.Values{
		"user":   {vigilib.NormalizeAddress(userAddress)},
		"chains": {strings.Join(ids, ",")},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/balances?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("balance indexer: status %d", resp.StatusCode)
	}
	var body struct {
		Balances []vigilib.Balance `json:"balances"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("balance indexer: malformed response: %w", err)
	}
	return body.Balances, nil
}

// quoteWire is the aggregator's request shape. Amount travels as a decimal
// string since big integers overflow JSON numbers.
type quoteWire struct {
	SourceToken string          `json:"sourceToken"`
	SourceChain vigilib.ChainID `json:"sourceChain"`
	DestToken   string          `json:"destToken"`
	DestChain   vigilib.ChainID `json:"destChain"`
	Amount      string          `json:"amount"`
	Sender      string          `json:"sender"`
	Recipient   string          `json:"recipient"`
}

// HTTPQuoteSource queries a bridge/swap aggregator over HTTP:
// POST {base}/quote -> {"to", "value", "data", "approvalAddress"}.
// A 404 from the aggregator maps to vigilib.ErrNoRoute.
type HTTPQuoteSource struct {
	base   string
	client *http.Client
}

// NewHTTPQuoteSource creates a quote source against base. client may be nil.
func NewHTTPQuoteSource(base string, client *http.Client) *HTTPQuoteSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPQuoteSource{base: strings.TrimRight(base, "/"), client: client}
}

func (s *HTTPQuoteSource) Quote(ctx context.Context, q *QuoteRequest) (*Quote, error) {
	payload, err := json.Marshal(&quoteWire{
		SourceToken: q.SourceToken,
		SourceChain: q.SourceChain,
		DestToken:   q.DestToken,
		DestChain:   q.DestChain,
		Amount:      q.Amount.String(),
		Sender:      q.Sender,
		Recipient:   q.Recipient,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+"/quote", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, vigilib.ErrNoRoute
	default:
		return nil, fmt.Errorf("quote aggregator: status %d", resp.StatusCode)
	}

	var body struct {
		To              string `json:"to"`
		Value           string `json:"value"`
		Data            string `json:"data"`
		ApprovalAddress string `json:"approvalAddress"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("quote aggregator: malformed response: %w", err)
	}
	return &Quote{
		To:              body.To,
		Value:           body.Value,
		Data:            body.Data,
		ApprovalAddress: body.ApprovalAddress,
	}, nil
}
