package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/snipeworks/solana-sniper/pkg/types"
	"go.uber.org/zap"
)

const (
	tradesFile    = "trades.json"
	positionsFile = "positions.json"
)

// FileStore persists the ledger as whole-document JSON snapshots with
// write-to-temp-then-rename semantics: readers never observe a partial
// write. Not safe for concurrent writer processes; the engine is the
// single writer, the dashboard reads the same files read-only.
type FileStore struct {
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

// FileConfig holds file store configuration.
type FileConfig struct {
	Dir    string
	Logger *zap.Logger
}

// NewFileStore creates a file-backed ledger, creating the directory and
// empty snapshots when missing.
func NewFileStore(cfg *FileConfig) (*FileStore, error) {
	err := os.MkdirAll(cfg.Dir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	s := &FileStore{
		dir:    cfg.Dir,
		logger: cfg.Logger,
	}

	err = s.ensureSnapshot(tradesFile, []types.TradeRecord{})
	if err != nil {
		return nil, err
	}
	err = s.ensureSnapshot(positionsFile, map[string]types.Position{})
	if err != nil {
		return nil, err
	}

	cfg.Logger.Info("file-ledger-initialized", zap.String("dir", cfg.Dir))
	return s, nil
}

// AppendTrade assigns the next monotonic id and persists the full trade
// sequence atomically.
func (s *FileStore) AppendTrade(ctx context.Context, record *types.TradeRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var trades []types.TradeRecord
	err := s.readSnapshot(tradesFile, &trades)
	if err != nil {
		WriteErrorsTotal.WithLabelValues("file").Inc()
		return 0, fmt.Errorf("load trades: %w", err)
	}

	var nextID int64 = 1
	if len(trades) > 0 {
		nextID = trades[len(trades)-1].ID + 1
	}
	record.ID = nextID

	trades = append(trades, *record)
	err = s.writeSnapshot(tradesFile, trades)
	if err != nil {
		WriteErrorsTotal.WithLabelValues("file").Inc()
		return 0, fmt.Errorf("persist trades: %w", err)
	}

	TradesAppendedTotal.WithLabelValues(string(record.Type), string(record.Status)).Inc()
	s.logger.Info("trade-appended",
		zap.Int64("id", record.ID),
		zap.String("type", string(record.Type)),
		zap.String("status", string(record.Status)),
		zap.String("symbol", record.Symbol))

	return nextID, nil
}

// LoadTrades returns the full trade sequence in append order.
func (s *FileStore) LoadTrades(ctx context.Context) ([]types.TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var trades []types.TradeRecord
	err := s.readSnapshot(tradesFile, &trades)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	return trades, nil
}

// UpsertPosition creates or replaces the open position for its token.
func (s *FileStore) UpsertPosition(ctx context.Context, position *types.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	positions := make(map[string]types.Position)
	err := s.readSnapshot(positionsFile, &positions)
	if err != nil {
		WriteErrorsTotal.WithLabelValues("file").Inc()
		return fmt.Errorf("load positions: %w", err)
	}

	positions[position.TokenAddress] = *position
	err = s.writeSnapshot(positionsFile, positions)
	if err != nil {
		WriteErrorsTotal.WithLabelValues("file").Inc()
		return fmt.Errorf("persist positions: %w", err)
	}

	OpenPositions.Set(float64(len(positions)))
	return nil
}

// RemovePosition removes the open position for the token address.
func (s *FileStore) RemovePosition(ctx context.Context, tokenAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	positions := make(map[string]types.Position)
	err := s.readSnapshot(positionsFile, &positions)
	if err != nil {
		WriteErrorsTotal.WithLabelValues("file").Inc()
		return fmt.Errorf("load positions: %w", err)
	}

	_, ok := positions[tokenAddress]
	if !ok {
		return ErrPositionNotFound
	}

	delete(positions, tokenAddress)
	err = s.writeSnapshot(positionsFile, positions)
	if err != nil {
		WriteErrorsTotal.WithLabelValues("file").Inc()
		return fmt.Errorf("persist positions: %w", err)
	}

	OpenPositions.Set(float64(len(positions)))
	s.logger.Info("position-removed", zap.String("token-address", tokenAddress))
	return nil
}

// LoadPositions returns the open-position map keyed by token address.
func (s *FileStore) LoadPositions(ctx context.Context) (map[string]types.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	positions := make(map[string]types.Position)
	err := s.readSnapshot(positionsFile, &positions)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}
	return positions, nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	s.logger.Info("closing-file-ledger")
	return nil
}

func (s *FileStore) ensureSnapshot(name string, empty interface{}) error {
	path := filepath.Join(s.dir, name)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", name, err)
	}
	return s.writeSnapshot(name, empty)
}

func (s *FileStore) readSnapshot(name string, out interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	err = json.Unmarshal(data, out)
	if err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// writeSnapshot writes the document to a temp file in the same directory,
// fsyncs it and renames it over the target.
func (s *FileStore) writeSnapshot(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp for %s: %w", name, err)
	}

	err = os.Rename(tmpName, path)
	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", name, err)
	}

	return nil
}
