package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/snipeworks/solana-sniper/pkg/types"
	"go.uber.org/zap"
)

// PostgresStore implements Store using PostgreSQL. Used by deployments
// that want the dashboard to query SQL instead of the snapshot files.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStore creates a PostgreSQL-backed ledger.
func NewPostgresStore(cfg *PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-ledger-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStore{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// newPostgresStoreWithDB wires an existing connection; used by tests.
func newPostgresStoreWithDB(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// AppendTrade inserts the record and returns the database-assigned id.
func (p *PostgresStore) AppendTrade(ctx context.Context, record *types.TradeRecord) (int64, error) {
	query := `
		INSERT INTO trades (
			attempt_id, timestamp, type, status, token_address, symbol,
			signature, amount_sol, amount_tokens, entry_price, exit_price,
			profit_sol, profit_percent, exit_reason, error_message,
			error_class, confidence, risk_score, reasoning
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
		) RETURNING id
	`

	var id int64
	err := p.db.QueryRowContext(ctx, query,
		record.AttemptID,
		record.Timestamp,
		string(record.Type),
		string(record.Status),
		record.TokenAddress,
		record.Symbol,
		record.Signature,
		record.AmountSOL,
		int64(record.AmountTokens),
		record.EntryPrice,
		record.ExitPrice,
		record.ProfitSOL,
		record.ProfitPercent,
		string(record.ExitReason),
		record.ErrorMessage,
		string(record.ErrorClass),
		record.Confidence,
		record.RiskScore,
		record.Reasoning,
	).Scan(&id)
	if err != nil {
		WriteErrorsTotal.WithLabelValues("postgres").Inc()
		return 0, fmt.Errorf("insert trade: %w", err)
	}

	record.ID = id
	TradesAppendedTotal.WithLabelValues(string(record.Type), string(record.Status)).Inc()

	p.logger.Debug("trade-appended",
		zap.Int64("id", id),
		zap.String("type", string(record.Type)),
		zap.String("status", string(record.Status)))

	return id, nil
}

// LoadTrades returns the full trade sequence in id order.
func (p *PostgresStore) LoadTrades(ctx context.Context) ([]types.TradeRecord, error) {
	query := `
		SELECT id, attempt_id, timestamp, type, status, token_address,
			symbol, signature, amount_sol, amount_tokens, entry_price,
			exit_price, profit_sol, profit_percent, exit_reason,
			error_message, error_class, confidence, risk_score, reasoning
		FROM trades ORDER BY id
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []types.TradeRecord
	for rows.Next() {
		var t types.TradeRecord
		var amountTokens int64
		var tradeType, status, exitReason, errorClass string
		err = rows.Scan(
			&t.ID, &t.AttemptID, &t.Timestamp, &tradeType, &status,
			&t.TokenAddress, &t.Symbol, &t.Signature, &t.AmountSOL,
			&amountTokens, &t.EntryPrice, &t.ExitPrice, &t.ProfitSOL,
			&t.ProfitPercent, &exitReason, &t.ErrorMessage, &errorClass,
			&t.Confidence, &t.RiskScore, &t.Reasoning,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Type = types.TradeType(tradeType)
		t.Status = types.TradeStatus(status)
		t.ExitReason = types.ExitReason(exitReason)
		t.ErrorClass = types.ErrorClass(errorClass)
		t.AmountTokens = uint64(amountTokens)
		trades = append(trades, t)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}

	return trades, nil
}

// UpsertPosition creates or replaces the open position for its token.
func (p *PostgresStore) UpsertPosition(ctx context.Context, position *types.Position) error {
	query := `
		INSERT INTO positions (
			token_address, symbol, entry_time, entry_price, amount_sol,
			amount_tokens, signature, highest_price, current_price,
			pnl_percent, last_update, status, confidence, risk_score
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		ON CONFLICT (token_address) DO UPDATE SET
			highest_price = EXCLUDED.highest_price,
			current_price = EXCLUDED.current_price,
			pnl_percent = EXCLUDED.pnl_percent,
			last_update = EXCLUDED.last_update,
			status = EXCLUDED.status
	`

	_, err := p.db.ExecContext(ctx, query,
		position.TokenAddress,
		position.Symbol,
		position.EntryTime,
		position.EntryPrice,
		position.AmountSOL,
		int64(position.AmountTokens),
		position.Signature,
		position.HighestPrice,
		position.CurrentPrice,
		position.PnLPercent,
		position.LastUpdate,
		string(position.Status),
		position.Confidence,
		position.RiskScore,
	)
	if err != nil {
		WriteErrorsTotal.WithLabelValues("postgres").Inc()
		return fmt.Errorf("upsert position: %w", err)
	}

	return nil
}

// RemovePosition removes the open position for the token address.
func (p *PostgresStore) RemovePosition(ctx context.Context, tokenAddress string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM positions WHERE token_address = $1`, tokenAddress)
	if err != nil {
		WriteErrorsTotal.WithLabelValues("postgres").Inc()
		return fmt.Errorf("delete position: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrPositionNotFound
	}

	return nil
}

// LoadPositions returns the open-position map keyed by token address.
func (p *PostgresStore) LoadPositions(ctx context.Context) (map[string]types.Position, error) {
	query := `
		SELECT token_address, symbol, entry_time, entry_price, amount_sol,
			amount_tokens, signature, highest_price, current_price,
			pnl_percent, last_update, status, confidence, risk_score
		FROM positions
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	positions := make(map[string]types.Position)
	for rows.Next() {
		var pos types.Position
		var amountTokens int64
		var status string
		err = rows.Scan(
			&pos.TokenAddress, &pos.Symbol, &pos.EntryTime, &pos.EntryPrice,
			&pos.AmountSOL, &amountTokens, &pos.Signature, &pos.HighestPrice,
			&pos.CurrentPrice, &pos.PnLPercent, &pos.LastUpdate, &status,
			&pos.Confidence, &pos.RiskScore,
		)
		if err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		pos.AmountTokens = uint64(amountTokens)
		pos.Status = types.PositionStatus(status)
		positions[pos.TokenAddress] = pos
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate positions: %w", err)
	}

	return positions, nil
}

// Close closes the database connection.
func (p *PostgresStore) Close() error {
	p.logger.Info("closing-postgres-ledger")
	return p.db.Close()
}
