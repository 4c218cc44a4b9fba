package sweep

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vigild/vigild/pkg/vigilib"
)

func TestHTTPBalanceSource_QueryAndDecode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/balances" {
			t.Errorf("path = %s, want /balances", r.URL.Path)
		}
		if got := r.URL.Query().Get("chains"); got != "1,8453" {
			t.Errorf("chains param = %q, want 1,8453", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"balances": []vigilib.Balance{
				{Token: usdcA, Symbol: "USDC", Chain: 1, Amount: "5000000"},
			},
		})
	}))
	defer ts.Close()

	s := NewHTTPBalanceSource(ts.URL, nil)
	balances, err := s.ListBalances(context.Background(), user, []vigilib.ChainID{1, 8453})
	if err != nil {
		t.Fatalf("ListBalances() error = %v", err)
	}
	if len(balances) != 1 || balances[0].Amount != "5000000" {
		t.Fatalf("balances = %+v", balances)
	}
}

func TestHTTPBalanceSource_NonOKIsAnError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	s := NewHTTPBalanceSource(ts.URL, nil)
	if _, err := s.ListBalances(context.Background(), user, []vigilib.ChainID{1}); err == nil {
		t.Fatal("ListBalances() succeeded on a 503")
	}
}

func TestHTTPQuoteSource_RoundTrip(t *testing.T) {
	var got quoteWire
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" || r.Method != http.MethodPost {
			t.Errorf("%s %s, want POST /quote", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"to":              "0xde00000000000000000000000000000000000001",
			"value":           "0",
			"data":            "0xdeadbeef",
			"approvalAddress": spender,
		})
	}))
	defer ts.Close()

	s := NewHTTPQuoteSource(ts.URL, nil)
	q, err := s.Quote(context.Background(), &QuoteRequest{
		SourceToken: daiB,
		SourceChain: chainB,
		DestToken:   usdcA,
		DestChain:   chainA,
		Amount:      big.NewInt(1000),
		Sender:      user,
		Recipient:   beneficiary,
	})
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if q.Data != "0xdeadbeef" || q.ApprovalAddress != spender {
		t.Errorf("quote = %+v", q)
	}
	if got.Amount != "1000" {
		t.Errorf("amount on the wire = %q, want decimal string", got.Amount)
	}
}

func TestHTTPQuoteSource_NotFoundMapsToNoRoute(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no route", http.StatusNotFound)
	}))
	defer ts.Close()

	s := NewHTTPQuoteSource(ts.URL, nil)
	_, err := s.Quote(context.Background(), &QuoteRequest{Amount: big.NewInt(1)})
	if !errors.Is(err, vigilib.ErrNoRoute) {
		t.Errorf("error = %v, want ErrNoRoute", err)
	}
}
