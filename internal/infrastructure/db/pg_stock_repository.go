package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

const uniqueViolation = "23505"

// PgStockRepository keeps one row per scanning location. The aggregate is
// stored as a jsonb snapshot guarded by an optimistic version column.
type PgStockRepository struct {
	db *sql.DB
}

func NewPgStockRepository(db *sql.DB) *PgStockRepository {
	return &PgStockRepository{db: db}
}

func (r *PgStockRepository) GetByLocation(
	ctx context.Context,
	locationID domain.ScanningLocationID,
) (*domain.Stock, error) {
	q := `
        select version, snapshot
        from stocks
        where scanning_location_id = $1
    `
	var (
		version int64
		raw     []byte
	)
	err := r.db.QueryRowContext(ctx, q, locationID.UUID).Scan(&version, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrStockNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load stock %s: %w", locationID, err)
	}

	var snap domain.StockSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode stock %s: %w", locationID, err)
	}
	snap.Version = version
	return domain.RestoreStock(snap)
}

func (r *PgStockRepository) Insert(ctx context.Context, s *domain.Stock) error {
	raw, err := encode(s, 1)
	if err != nil {
		return err
	}

	q := `
        insert into stocks (id, scanning_location_id, version, snapshot, updated_at_utc)
        values ($1, $2, 1, $3, $4)
    `
	_, err = r.db.ExecContext(ctx, q,
		s.ID().UUID,
		s.ScanningLocationID().UUID,
		raw,
		time.Now().UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrConcurrencyConflict
		}
		return fmt.Errorf("insert stock %s: %w", s.ScanningLocationID(), err)
	}
	s.MarkPersisted(1)
	return nil
}

func (r *PgStockRepository) Update(ctx context.Context, s *domain.Stock) error {
	next := s.Version() + 1
	raw, err := encode(s, next)
	if err != nil {
		return err
	}

	q := `
        update stocks
        set snapshot = $1,
            version = $2,
            updated_at_utc = $3
        where scanning_location_id = $4
          and version = $5
    `
	res, err := r.db.ExecContext(ctx, q,
		raw,
		next,
		time.Now().UTC(),
		s.ScanningLocationID().UUID,
		s.Version(),
	)
	if err != nil {
		return fmt.Errorf("update stock %s: %w", s.ScanningLocationID(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update stock %s: %w", s.ScanningLocationID(), err)
	}
	if n == 0 {
		return domain.ErrConcurrencyConflict
	}
	s.MarkPersisted(next)
	return nil
}

func (r *PgStockRepository) ListLocations(ctx context.Context) ([]domain.ScanningLocationID, error) {
	rows, err := r.db.QueryContext(ctx, `select scanning_location_id from stocks order by scanning_location_id`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var result []domain.ScanningLocationID
	for rows.Next() {
		var id domain.ScanningLocationID
		if err := rows.Scan(&id.UUID); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	return result, rows.Err()
}

func encode(s *domain.Stock, version int64) (string, error) {
	snap := s.Snapshot()
	snap.Version = version
	raw, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode stock %s: %w", s.ScanningLocationID(), err)
	}
	return string(raw), nil
}
