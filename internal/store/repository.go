package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/your-org/momentum-growth-bot/internal/position"
)

// Pool abstracts pgxpool.Pool for testability.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PGStore is the PostgreSQL implementation of Gateway.
type PGStore struct {
	pool   Pool
	logger *zap.Logger
}

// NewPGStore creates a PGStore on top of an existing connection pool.
func NewPGStore(pool Pool, logger *zap.Logger) *PGStore {
	return &PGStore{pool: pool, logger: logger}
}

// Insert stores a new position and returns its assigned id.
func (s *PGStore) Insert(ctx context.Context, p *position.Position) (int64, error) {
	query := `INSERT INTO positions
	            (symbol, entry_price, quantity, is_live, target_price, stop_loss,
	             trailing_active, trailing_peak_price, trailing_stop,
	             confidence, strategy_metadata, status, opened_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	          RETURNING id`

	var id int64
	err := s.pool.QueryRow(ctx, query,
		p.Symbol, p.EntryPrice, p.Quantity, p.IsLive, p.TargetPrice, p.StopLoss,
		p.TrailingActive, nullableFloat(p.TrailingPeak, p.TrailingActive),
		nullableFloat(p.TrailingStop, p.TrailingActive),
		p.Confidence, metadataOrNil(p), string(p.Status), p.OpenedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert position for %s: %w", p.Symbol, err)
	}
	s.logger.Debug("inserted position", zap.Int64("id", id), zap.String("symbol", p.Symbol))
	return id, nil
}

// UpdateLevels revises the target/stop/confidence of a still-active position.
func (s *PGStore) UpdateLevels(ctx context.Context, id int64, target, stop, confidence float64) error {
	query := `UPDATE positions
	          SET target_price = $2, stop_loss = $3, confidence = $4
	          WHERE id = $1 AND status IN ('open', 'updating')`
	tag, err := s.pool.Exec(ctx, query, id, target, stop, confidence)
	if err != nil {
		return fmt.Errorf("failed to update levels for position %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("position %d is not active, levels not updated", id)
	}
	return nil
}

// UpdateTrailing persists the trailing peak/stop of a still-active position.
func (s *PGStore) UpdateTrailing(ctx context.Context, id int64, peak, stop float64, active bool) error {
	query := `UPDATE positions
	          SET trailing_active = $2, trailing_peak_price = $3, trailing_stop = $4
	          WHERE id = $1 AND status IN ('open', 'updating')`
	if _, err := s.pool.Exec(ctx, query, id, active, peak, stop); err != nil {
		return fmt.Errorf("failed to update trailing state for position %d: %w", id, err)
	}
	return nil
}

// Close writes the terminal state. The update is conditioned on the position
// still being active, so concurrent closers resolve to exactly one winner;
// the losers observe zero rows affected.
func (s *PGStore) Close(ctx context.Context, c Closure) (int64, error) {
	query := `UPDATE positions
	          SET status = 'closed', closing_reason = $2, closing_price = $3,
	              closed_at = $4, profit_pct = $5, profitable_stop_loss = $6,
	              quantity = COALESCE($7, quantity)
	          WHERE id = $1 AND status IN ('open', 'updating')`
	tag, err := s.pool.Exec(ctx, query,
		c.ID, string(c.Reason), c.ClosingPrice, c.ClosedAt,
		c.ProfitPct, c.ProfitableStopLoss, c.FilledQuantity,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to close position %d: %w", c.ID, err)
	}
	return tag.RowsAffected(), nil
}

// FetchActive returns every position with status open or updating. It is the
// sole source used to rebuild the registry on startup.
func (s *PGStore) FetchActive(ctx context.Context) ([]position.Position, error) {
	query := `SELECT id, symbol, entry_price, quantity, is_live, target_price, stop_loss,
	                 trailing_active, trailing_peak_price, trailing_stop,
	                 confidence, strategy_metadata, status, opened_at
	          FROM positions
	          WHERE status IN ('open', 'updating')
	          ORDER BY id`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active positions: %w", err)
	}
	defer rows.Close()

	var out []position.Position
	for rows.Next() {
		var p position.Position
		var peak, stop *float64
		var meta []byte
		var status string
		if err := rows.Scan(&p.ID, &p.Symbol, &p.EntryPrice, &p.Quantity, &p.IsLive,
			&p.TargetPrice, &p.StopLoss, &p.TrailingActive, &peak, &stop,
			&p.Confidence, &meta, &status, &p.OpenedAt); err != nil {
			return nil, fmt.Errorf("failed to scan position row: %w", err)
		}
		if peak != nil {
			p.TrailingPeak = *peak
		}
		if stop != nil {
			p.TrailingStop = *stop
		}
		p.StrategyMetadata = meta
		p.Status = position.Status(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

func nullableFloat(v float64, valid bool) *float64 {
	if !valid {
		return nil
	}
	return &v
}

func metadataOrNil(p *position.Position) []byte {
	if len(p.StrategyMetadata) == 0 {
		return nil
	}
	return p.StrategyMetadata
}
