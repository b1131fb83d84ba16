package postgres

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jeovahfialho/trade-ledger/internal/domain"
	"github.com/jeovahfialho/trade-ledger/pkg/metrics"
)

// Journal is the durable side of the ledger: every committed record is
// appended here, and the full journal is replayed into the in-memory
// ledger at startup. The journal is append-only by construction — there
// is no update or delete statement in this package.
type Journal struct {
	pool *pgxpool.Pool
}

func NewJournal(pool *pgxpool.Pool) *Journal {
	return &Journal{pool: pool}
}

func (j *Journal) Append(ctx context.Context, rec domain.TradeRecord) error {
	timer := metrics.NewTimer()

	_, err := j.pool.Exec(ctx, `
		INSERT INTO trades
			(sequence, trade_id, stock_symbol, price, quantity, total_value, buyer_id, seller_id, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.Sequence,
		pgtype.UUID{Bytes: rec.TradeID, Valid: true},
		rec.StockSymbol,
		rec.Price,
		rec.Quantity,
		rec.TotalValue,
		pgtype.UUID{Bytes: rec.BuyerID, Valid: true},
		pgtype.UUID{Bytes: rec.SellerID, Valid: true},
		rec.Timestamp,
	)
	if err != nil {
		metrics.RecordJournalAppend("error", timer.Elapsed().Seconds())
		return fmt.Errorf("appending trade %s: %w", rec.TradeID, err)
	}

	metrics.RecordJournalAppend("success", timer.Elapsed().Seconds())
	return nil
}

// LoadAll returns every journaled record in insertion order.
func (j *Journal) LoadAll(ctx context.Context) ([]domain.TradeRecord, error) {
	rows, err := j.pool.Query(ctx, `
		SELECT sequence, trade_id, stock_symbol, price, quantity, total_value, buyer_id, seller_id, recorded_at
		FROM trades
		ORDER BY sequence ASC`)
	if err != nil {
		return nil, fmt.Errorf("loading journal: %w", err)
	}
	defer rows.Close()

	var records []domain.TradeRecord
	for rows.Next() {
		var rec domain.TradeRecord
		var tradeID, buyerID, sellerID pgtype.UUID

		err := rows.Scan(
			&rec.Sequence,
			&tradeID,
			&rec.StockSymbol,
			&rec.Price,
			&rec.Quantity,
			&rec.TotalValue,
			&buyerID,
			&sellerID,
			&rec.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning journal row: %w", err)
		}

		rec.TradeID = domain.TradeID(tradeID.Bytes)
		rec.BuyerID = domain.PartyID(buyerID.Bytes)
		rec.SellerID = domain.PartyID(sellerID.Bytes)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}

	return records, nil
}

func (j *Journal) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := j.pool.QueryRow(ctx, `SELECT COUNT(*) FROM trades`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting journal: %w", err)
	}
	return count, nil
}

// ExportCSV dumps the journal to a CSV file and returns the number of
// exported records.
func (j *Journal) ExportCSV(ctx context.Context, path string) (int64, error) {
	records, err := j.LoadAll(ctx)
	if err != nil {
		return 0, err
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating export file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	header := []string{"sequence", "trade_id", "stock_symbol", "price", "quantity", "total_value", "buyer_id", "seller_id", "recorded_at"}
	if err := w.Write(header); err != nil {
		return 0, err
	}

	for _, rec := range records {
		row := []string{
			strconv.FormatInt(rec.Sequence, 10),
			rec.TradeID.String(),
			rec.StockSymbol,
			strconv.FormatInt(rec.Price, 10),
			strconv.FormatInt(rec.Quantity, 10),
			strconv.FormatInt(rec.TotalValue, 10),
			rec.BuyerID.String(),
			rec.SellerID.String(),
			strconv.FormatInt(rec.Timestamp, 10),
		}
		if err := w.Write(row); err != nil {
			return 0, err
		}
	}

	if err := w.Error(); err != nil {
		return 0, err
	}

	return int64(len(records)), nil
}
