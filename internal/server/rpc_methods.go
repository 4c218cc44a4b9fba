package server

import (
	"context"
	"errors"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"

	"github.com/vigild/vigild/common"
	"github.com/vigild/vigild/internal/engine"
	"github.com/vigild/vigild/pkg/vigilib"
)

// Custom JSON-RPC error codes for switch operations.
const (
	codeNotFound      = jrpc2.Code(-32001)
	codeAlreadyArmed  = jrpc2.Code(-32002)
	codeInvalidParams = jrpc2.Code(-32602)
)

// RPCConfig holds configuration for the JSON-RPC endpoint.
type RPCConfig struct {
	Secret    string // Auth token (required -- empty means RPC disabled)
	Version   string // Daemon version
	Commit    string // Git commit
	BuildType string // Build type
}

// RPCServer owns the JSON-RPC 2.0 method handlers shared by the HTTP bridge
// and the per-connection websocket servers.
type RPCServer struct {
	cfg    *RPCConfig
	engine *engine.Engine
}

// NewRPCServer creates an RPCServer over the switch engine.
func NewRPCServer(cfg *RPCConfig, e *engine.Engine) *RPCServer {
	return &RPCServer{cfg: cfg, engine: e}
}

// Methods returns the handler map served on every transport.
func (rs *RPCServer) Methods() handler.Map {
	return handler.Map{
		common.MethodGetVersion: handler.New(rs.systemGetVersion),
		common.MethodArm:        handler.New(rs.switchArm),
		common.MethodCancel:     handler.New(rs.switchCancel),
		common.MethodStatus:     handler.New(rs.switchStatus),
	}
}

func (rs *RPCServer) systemGetVersion(_ context.Context) (*common.VersionResult, error) {
	return &common.VersionResult{
		Version:   rs.cfg.Version,
		Commit:    rs.cfg.Commit,
		BuildType: rs.cfg.BuildType,
	}, nil
}

// switchArm installs a delegation and schedules the first check.
func (rs *RPCServer) switchArm(ctx context.Context, p *common.ArmParams) (*common.ArmResult, error) {
	if p.UserAddress == "" {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: user_address"}
	}
	if p.BeneficiaryAddress == "" {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: beneficiary_address"}
	}

	res, err := rs.engine.Arm(ctx, p.UserAddress, p.TimeoutSeconds, p.BeneficiaryAddress)
	if err != nil {
		return nil, mapError(err)
	}
	return res, nil
}

// switchCancel disarms the user's outstanding check.
func (rs *RPCServer) switchCancel(ctx context.Context, p *common.CancelParams) (*common.CancelResult, error) {
	if p.UserAddress == "" {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: user_address"}
	}
	if err := rs.engine.Cancel(ctx, p.UserAddress); err != nil {
		return nil, mapError(err)
	}
	return &common.CancelResult{Cancelled: true}, nil
}

// switchStatus reports the current state of the user's switch.
func (rs *RPCServer) switchStatus(ctx context.Context, p *common.StatusParams) (*common.StatusResult, error) {
	if p.UserAddress == "" {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: user_address"}
	}
	res, err := rs.engine.Status(ctx, p.UserAddress)
	if err != nil {
		return nil, mapError(err)
	}
	return res, nil
}

// mapError translates engine errors into JSON-RPC error codes.
func mapError(err error) error {
	switch {
	case errors.Is(err, vigilib.ErrAlreadyArmed):
		return &jrpc2.Error{Code: codeAlreadyArmed, Message: err.Error()}
	case errors.Is(err, vigilib.ErrNotFound), errors.Is(err, vigilib.ErrNotArmed):
		return &jrpc2.Error{Code: codeNotFound, Message: err.Error()}
	case errors.Is(err, vigilib.ErrInvalidAddress),
		errors.Is(err, vigilib.ErrInvalidTimeout),
		errors.Is(err, vigilib.ErrSameBeneficiary):
		return &jrpc2.Error{Code: codeInvalidParams, Message: err.Error()}
	default:
		return err
	}
}
