// Package ledger provides durable, crash-consistent storage for the trade
// history and the open-position map. All mutations go through a single
// writer; the dashboard collaborator reads the same data strictly
// read-only.
package ledger

import (
	"context"
	"errors"

	"github.com/snipeworks/solana-sniper/pkg/types"
)

// ErrPositionNotFound is returned by RemovePosition when no open position
// exists for the token address.
var ErrPositionNotFound = errors.New("position not found")

// Store is the durable ledger. A lost trade record breaks the audit
// trail, so every mutation either persists fully or returns an error.
type Store interface {
	// AppendTrade assigns the next monotonic id, persists the record and
	// returns the id. Records are append-only.
	AppendTrade(ctx context.Context, record *types.TradeRecord) (int64, error)

	// LoadTrades returns the full trade sequence in append order.
	LoadTrades(ctx context.Context) ([]types.TradeRecord, error)

	// UpsertPosition creates or replaces the open position for its token
	// address.
	UpsertPosition(ctx context.Context, position *types.Position) error

	// RemovePosition removes the open position for the token address.
	RemovePosition(ctx context.Context, tokenAddress string) error

	// LoadPositions returns the open-position map keyed by token address.
	LoadPositions(ctx context.Context) (map[string]types.Position, error)

	// Close releases backing resources.
	Close() error
}
