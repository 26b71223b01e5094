package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
	"github.com/TexasCoding/projectx-go/pkg/interval"
	"github.com/TexasCoding/projectx-go/pkg/questdb"
)

// Repository reads and writes bars in the QuestDB bars table. It backs the
// engine's historical seeding and records closed bars for later replay.
type Repository struct {
	client questdb.QuestDBClient
}

var _ marketdatav1.HistoricalSource = (*Repository)(nil)

// NewRepository creates a new bars repository.
func NewRepository(client questdb.QuestDBClient) *Repository {
	return &Repository{
		client: client,
	}
}

// FetchBars returns up to lookback most-recent bars for the instrument and
// timeframe, oldest first, ready to seed a timeframe series.
func (r *Repository) FetchBars(ctx context.Context, instrument string, tf interval.Timeframe, lookback int) ([]marketdatav1.Bar, error) {
	if lookback <= 0 {
		return nil, nil
	}

	query := `SELECT timestamp, instrument, timeframe, open, high, low, close, volume, trade_count
			  FROM bars
			  WHERE instrument = $1 AND timeframe = $2
			  ORDER BY timestamp DESC
			  LIMIT $3`

	rows, err := r.client.Query(ctx, query, instrument, tf.Name, lookback)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	var fetched []BarRow
	for rows.Next() {
		var row BarRow
		err := rows.Scan(&row.Timestamp, &row.Instrument, &row.Timeframe, &row.Open,
			&row.High, &row.Low, &row.Close, &row.Volume, &row.TradeCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		fetched = append(fetched, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	// Query order is newest-first; the series wants chronological.
	bars := make([]marketdatav1.Bar, len(fetched))
	for i := range fetched {
		bars[len(fetched)-1-i] = fetched[i].ToBar()
	}
	return bars, nil
}

// Store persists a single closed bar.
func (r *Repository) Store(ctx context.Context, row BarRow) error {
	query := `INSERT INTO bars (timestamp, instrument, timeframe, open, high, low, close, volume, trade_count)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	err := r.client.Exec(ctx, query,
		row.Timestamp, row.Instrument, row.Timeframe, row.Open, row.High,
		row.Low, row.Close, row.Volume, row.TradeCount)
	if err != nil {
		return fmt.Errorf("failed to store bar: %w", err)
	}
	return nil
}

// StoreBatch persists a batch of closed bars with CopyFrom.
func (r *Repository) StoreBatch(ctx context.Context, rows []BarRow) error {
	if len(rows) == 0 {
		return nil
	}

	_, err := r.client.CopyFrom(
		ctx,
		pgx.Identifier{"bars"},
		[]string{"timestamp", "instrument", "timeframe", "open", "high", "low", "close", "volume", "trade_count"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			row := rows[i]
			return []any{
				row.Timestamp,
				row.Instrument,
				row.Timeframe,
				row.Open,
				row.High,
				row.Low,
				row.Close,
				row.Volume,
				row.TradeCount,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to copy bar batch: %w", err)
	}
	return nil
}

// Latest returns the most recent bar for the instrument and timeframe, or
// nil when the table has none.
func (r *Repository) Latest(ctx context.Context, instrument string, tf interval.Timeframe) (*BarRow, error) {
	query := `SELECT timestamp, instrument, timeframe, open, high, low, close, volume, trade_count
			  FROM bars
			  WHERE instrument = $1 AND timeframe = $2
			  ORDER BY timestamp DESC
			  LIMIT 1`

	var row BarRow
	err := r.client.QueryRow(ctx, query, instrument, tf.Name).Scan(
		&row.Timestamp, &row.Instrument, &row.Timeframe, &row.Open, &row.High,
		&row.Low, &row.Close, &row.Volume, &row.TradeCount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest bar: %w", err)
	}
	return &row, nil
}
