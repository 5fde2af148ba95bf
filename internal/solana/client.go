// Package solana wraps the Solana JSON-RPC surface the engine consumes:
// raw account fetch for the security gate, transaction submission and
// confirmation polling for the swap client, and balance reads for the
// watcher and the balance guard.
package solana

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

var (
	// ErrAccountNotFound means the address does not resolve to an account.
	ErrAccountNotFound = errors.New("account not found")

	// ErrConfirmationTimeout means a submitted transaction was not
	// confirmed within the polling window. The transaction may still
	// land later.
	ErrConfirmationTimeout = errors.New("confirmation timeout")

	// ErrTransactionFailed means the cluster executed the transaction
	// and it failed on-chain.
	ErrTransactionFailed = errors.New("transaction failed on-chain")
)

// Client is a thin wrapper over the Solana RPC client with bounded
// timeouts on every call.
type Client struct {
	rpc    *rpc.Client
	logger *zap.Logger
}

// Config holds chain client configuration.
type Config struct {
	RPCURL string
	Logger *zap.Logger
}

// NewClient creates a new chain client.
func NewClient(cfg *Config) *Client {
	return &Client{
		rpc:    rpc.New(cfg.RPCURL),
		logger: cfg.Logger,
	}
}

// GetAccountData fetches the raw data of an account. Returns
// ErrAccountNotFound (wrapped) when the address does not resolve.
func (c *Client) GetAccountData(ctx context.Context, address string) ([]byte, error) {
	pubkey, err := solanago.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("parse address: %w", err)
	}

	start := time.Now()
	out, err := c.rpc.GetAccountInfo(ctx, pubkey)
	RPCRequestDurationSeconds.WithLabelValues("getAccountInfo").Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", address, ErrAccountNotFound)
		}
		RPCErrorsTotal.WithLabelValues("getAccountInfo").Inc()
		return nil, fmt.Errorf("get account info: %w", err)
	}
	if out.Value == nil {
		return nil, fmt.Errorf("%s: %w", address, ErrAccountNotFound)
	}

	return out.Value.Data.GetBinary(), nil
}

// SendTransaction submits a signed transaction and returns its signature.
func (c *Client) SendTransaction(ctx context.Context, tx *solanago.Transaction) (solanago.Signature, error) {
	start := time.Now()
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	RPCRequestDurationSeconds.WithLabelValues("sendTransaction").Observe(time.Since(start).Seconds())
	if err != nil {
		RPCErrorsTotal.WithLabelValues("sendTransaction").Inc()
		return solanago.Signature{}, fmt.Errorf("send transaction: %w", err)
	}

	c.logger.Info("transaction-sent", zap.String("signature", sig.String()))
	return sig, nil
}

// ConfirmTransaction polls the signature status until the transaction
// reaches confirmed commitment, fails on-chain, or the window expires.
func (c *Client) ConfirmTransaction(ctx context.Context, sig solanago.Signature, timeout, interval time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		status, err := c.signatureStatus(ctx, sig)
		if err == nil && status != nil {
			if status.Err != nil {
				return fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
			}
			switch status.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				c.logger.Info("transaction-confirmed", zap.String("signature", sig.String()))
				return nil
			}
		}
		if err != nil {
			c.logger.Debug("signature-status-poll-failed", zap.Error(err))
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%s: %w", sig.String(), ErrConfirmationTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// SignatureLanded reports whether a signature is visible on the cluster
// without error. Used for post-timeout reconciliation.
func (c *Client) SignatureLanded(ctx context.Context, sig solanago.Signature) (bool, error) {
	status, err := c.signatureStatus(ctx, sig)
	if err != nil {
		return false, err
	}
	if status == nil || status.Err != nil {
		return false, nil
	}
	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return true, nil
	}
	return false, nil
}

func (c *Client) signatureStatus(ctx context.Context, sig solanago.Signature) (*rpc.SignatureStatusesResult, error) {
	start := time.Now()
	out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	RPCRequestDurationSeconds.WithLabelValues("getSignatureStatuses").Observe(time.Since(start).Seconds())
	if err != nil {
		RPCErrorsTotal.WithLabelValues("getSignatureStatuses").Inc()
		return nil, fmt.Errorf("get signature statuses: %w", err)
	}
	if len(out.Value) == 0 {
		return nil, nil
	}
	return out.Value[0], nil
}

// GetTokenBalance returns the raw token balance of the owner's associated
// token account for the mint, in smallest units.
func (c *Client) GetTokenBalance(ctx context.Context, owner solanago.PublicKey, mint string) (uint64, error) {
	mintKey, err := solanago.PublicKeyFromBase58(mint)
	if err != nil {
		return 0, fmt.Errorf("parse mint: %w", err)
	}

	ata, _, err := solanago.FindAssociatedTokenAddress(owner, mintKey)
	if err != nil {
		return 0, fmt.Errorf("derive token account: %w", err)
	}

	start := time.Now()
	out, err := c.rpc.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed)
	RPCRequestDurationSeconds.WithLabelValues("getTokenAccountBalance").Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return 0, nil
		}
		RPCErrorsTotal.WithLabelValues("getTokenAccountBalance").Inc()
		return 0, fmt.Errorf("get token balance: %w", err)
	}
	if out.Value == nil {
		return 0, nil
	}

	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse token amount %q: %w", out.Value.Amount, err)
	}

	return amount, nil
}

// GetSOLBalance returns the owner's SOL balance in lamports.
func (c *Client) GetSOLBalance(ctx context.Context, owner solanago.PublicKey) (uint64, error) {
	start := time.Now()
	out, err := c.rpc.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
	RPCRequestDurationSeconds.WithLabelValues("getBalance").Observe(time.Since(start).Seconds())
	if err != nil {
		RPCErrorsTotal.WithLabelValues("getBalance").Inc()
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return out.Value, nil
}
