// Package security implements the pre-trade gate: a token's on-chain mint
// metadata is decoded and both supply-inflation (mint authority) and
// account-freeze (freeze authority) permissions must be disabled before
// any capital is committed.
package security

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/snipeworks/solana-sniper/internal/solana"
	"github.com/snipeworks/solana-sniper/pkg/types"
	"go.uber.org/zap"
)

// SPL mint account layout. The minimum header is 82 bytes:
//
//	offset  0: u32 LE mint-authority discriminant (0 = none)
//	offset  4: 32-byte mint authority key
//	offset 36: u64 supply
//	offset 44: u8 decimals
//	offset 45: u8 is_initialized
//	offset 46: u32 LE freeze-authority discriminant (0 = none)
//	offset 50: 32-byte freeze authority key
const (
	mintAccountMinLen     = 82
	mintAuthorityOffset   = 0
	freezeAuthorityOffset = 46
	authorityKeyLen       = 32
	discriminantLen       = 4
)

var (
	// ErrAccountNotFound means the token address does not resolve to an
	// account. Fetchers signal it via solana.ErrAccountNotFound.
	ErrAccountNotFound = solana.ErrAccountNotFound

	// ErrMalformedAccount means the account data is shorter than the
	// fixed mint layout.
	ErrMalformedAccount = errors.New("mint account data malformed")

	// ErrUpstreamUnavailable means the RPC fetch itself failed.
	ErrUpstreamUnavailable = errors.New("rpc unavailable")

	// ErrInvalidAddress means the token address is not valid base58 of a
	// 32-byte key.
	ErrInvalidAddress = errors.New("invalid token address")
)

// AccountFetcher fetches raw account data from the chain.
type AccountFetcher interface {
	GetAccountData(ctx context.Context, address string) ([]byte, error)
}

// Validator derives a pass/fail verdict from a token's mint metadata.
// Results are never cached: authority state can change between
// evaluations, so every trade attempt revalidates.
type Validator struct {
	fetcher AccountFetcher
	logger  *zap.Logger
}

// Config holds validator configuration.
type Config struct {
	Fetcher AccountFetcher
	Logger  *zap.Logger
}

// New creates a new security validator.
func New(cfg *Config) *Validator {
	return &Validator{
		fetcher: cfg.Fetcher,
		logger:  cfg.Logger,
	}
}

// Validate fetches the mint account once and decodes both authority
// discriminants. There are no retries: any failure here is surfaced to
// the caller, which must treat it as a failed gate, never as a pass.
func (v *Validator) Validate(ctx context.Context, tokenAddress string) (*types.SecurityVerdict, error) {
	raw, err := base58.Decode(tokenAddress)
	if err != nil || len(raw) != authorityKeyLen {
		ChecksTotal.WithLabelValues("invalid_address").Inc()
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, tokenAddress)
	}

	data, err := v.fetcher.GetAccountData(ctx, tokenAddress)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			ChecksTotal.WithLabelValues("not_found").Inc()
			return nil, fmt.Errorf("fetch mint account: %w", err)
		}
		ChecksTotal.WithLabelValues("rpc_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	if len(data) < mintAccountMinLen {
		ChecksTotal.WithLabelValues("malformed").Inc()
		return nil, fmt.Errorf("%w: %d bytes, want >= %d", ErrMalformedAccount, len(data), mintAccountMinLen)
	}

	verdict := &types.SecurityVerdict{TokenAddress: tokenAddress}

	mintOpt := binary.LittleEndian.Uint32(data[mintAuthorityOffset : mintAuthorityOffset+discriminantLen])
	if mintOpt != 0 {
		verdict.MintAuthorityActive = true
		verdict.MintAuthority = base58.Encode(data[mintAuthorityOffset+discriminantLen : mintAuthorityOffset+discriminantLen+authorityKeyLen])
	}

	freezeOpt := binary.LittleEndian.Uint32(data[freezeAuthorityOffset : freezeAuthorityOffset+discriminantLen])
	if freezeOpt != 0 {
		verdict.FreezeAuthorityActive = true
		verdict.FreezeAuthority = base58.Encode(data[freezeAuthorityOffset+discriminantLen : freezeAuthorityOffset+discriminantLen+authorityKeyLen])
	}

	verdict.Passed = !verdict.MintAuthorityActive && !verdict.FreezeAuthorityActive

	if verdict.Passed {
		ChecksTotal.WithLabelValues("passed").Inc()
		v.logger.Info("security-check-passed", zap.String("token-address", tokenAddress))
	} else {
		ChecksTotal.WithLabelValues("failed").Inc()
		v.logger.Warn("security-check-failed",
			zap.String("token-address", tokenAddress),
			zap.Bool("mint-authority-active", verdict.MintAuthorityActive),
			zap.String("mint-authority", verdict.MintAuthority),
			zap.Bool("freeze-authority-active", verdict.FreezeAuthorityActive),
			zap.String("freeze-authority", verdict.FreezeAuthority))
	}

	return verdict, nil
}
