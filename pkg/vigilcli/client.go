// Package vigilcli is the client library for the vigild daemon. It speaks
// JSON-RPC 2.0 over the daemon's HTTP bridge for request/response calls and
// over the websocket endpoint for push notifications.
package vigilcli

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"

	"github.com/vigild/vigild/common"
)

// Client is a connection to a vigild daemon.
type Client struct {
	baseURL string
	secret  string
	ch      *jhttp.Channel
	rpc     *jrpc2.Client
}

// bearerTransport injects the Authorization header on every request.
type bearerTransport struct {
	secret string
	next   http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.secret)
	return t.next.RoundTrip(clone)
}

// NewClient connects to the daemon at baseURL (e.g. "http://127.0.0.1:3939")
// authenticating every call with secret.
func NewClient(baseURL, secret string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	ch := jhttp.NewChannel(baseURL+"/rpc", &jhttp.ChannelOptions{
		Client: &http.Client{
			Transport: &bearerTransport{secret: secret, next: http.DefaultTransport},
		},
	})
	return &Client{
		baseURL: baseURL,
		secret:  secret,
		ch:      ch,
		rpc:     jrpc2.NewClient(ch, nil),
	}
}

// Close releases the underlying channel.
func (c *Client) Close() error {
	return c.rpc.Close()
}

// Arm installs a dead-man's switch for userAddress.
func (c *Client) Arm(ctx context.Context, userAddress string, timeoutSeconds int64, beneficiaryAddress string) (*common.ArmResult, error) {
	var res common.ArmResult
	err := c.rpc.CallResult(ctx, common.MethodArm, &common.ArmParams{
		UserAddress:        userAddress,
		TimeoutSeconds:     timeoutSeconds,
		BeneficiaryAddress: beneficiaryAddress,
	}, &res)
	if err != nil {
		return nil, fmt.Errorf("arm: %w", err)
	}
	return &res, nil
}

// Cancel disarms the user's switch.
func (c *Client) Cancel(ctx context.Context, userAddress string) error {
	var res common.CancelResult
	if err := c.rpc.CallResult(ctx, common.MethodCancel, &common.CancelParams{UserAddress: userAddress}, &res); err != nil {
		return fmt.Errorf("cancel: %w", err)
	}
	return nil
}

// Status reports the user's switch state.
func (c *Client) Status(ctx context.Context, userAddress string) (*common.StatusResult, error) {
	var res common.StatusResult
	if err := c.rpc.CallResult(ctx, common.MethodStatus, &common.StatusParams{UserAddress: userAddress}, &res); err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	return &res, nil
}

// Version reports the daemon build.
func (c *Client) Version(ctx context.Context) (*common.VersionResult, error) {
	var res common.VersionResult
	if err := c.rpc.CallResult(ctx, common.MethodGetVersion, nil, &res); err != nil {
		return nil, fmt.Errorf("version: %w", err)
	}
	return &res, nil
}
