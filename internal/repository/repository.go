package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/septivank/meter-reading-service/internal/db"
)

// Tx is an alias for pgx.Tx
type Tx = pgx.Tx

// ErrNotFound is returned when a reading does not exist
var ErrNotFound = errors.New("reading not found")

const readingColumns = `id, customer_code, measure_datetime, measure_type, measure_value,
	url_image, has_confirmed, created_at, updated_at`

// Repository handles database operations
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// BeginTx starts a new transaction
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Ping checks database connectivity
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// LockCustomerMeasureTx serializes uploads for one customer and measure type
// until the transaction ends
func (r *Repository) LockCustomerMeasureTx(ctx context.Context, tx pgx.Tx, customerCode, measureType string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		customerCode+"|"+measureType)
	if err != nil {
		return fmt.Errorf("failed to acquire upload lock: %w", err)
	}
	return nil
}

// ExistsInRangeTx reports whether a reading exists for the customer and type
// with measure_datetime in [from, to)
func (r *Repository) ExistsInRangeTx(ctx context.Context, tx pgx.Tx, customerCode, measureType string, from, to time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM readings
			WHERE customer_code = $1 AND measure_type = $2
			  AND measure_datetime >= $3 AND measure_datetime < $4
		)
	`

	var exists bool
	if err := tx.QueryRow(ctx, query, customerCode, measureType, from, to).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existing reading: %w", err)
	}
	return exists, nil
}

// InsertReadingTx inserts a reading within a transaction
func (r *Repository) InsertReadingTx(ctx context.Context, tx pgx.Tx, reading *db.Reading) error {
	query := `
		INSERT INTO readings (
			id, customer_code, measure_datetime, measure_type, measure_value,
			url_image, has_confirmed, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`

	now := time.Now().UTC()
	_, err := tx.Exec(ctx, query,
		reading.ID,
		reading.CustomerCode,
		reading.MeasureDatetime,
		reading.MeasureType,
		reading.MeasureValue,
		reading.ImageURL,
		reading.HasConfirmed,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	reading.CreatedAt = now
	reading.UpdatedAt = now
	return nil
}

// GetReadingForUpdateTx loads a reading and locks its row
func (r *Repository) GetReadingForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*db.Reading, error) {
	query := `SELECT ` + readingColumns + ` FROM readings WHERE id = $1 FOR UPDATE`

	reading, err := scanReading(tx.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query reading: %w", err)
	}
	return reading, nil
}

// ConfirmReadingTx overwrites the value and marks the reading confirmed
func (r *Repository) ConfirmReadingTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, value int64) error {
	query := `
		UPDATE readings
		SET measure_value = $1, has_confirmed = TRUE, updated_at = $2
		WHERE id = $3
	`

	tag, err := tx.Exec(ctx, query, value, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to confirm reading: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListReadings returns a customer's readings, newest first. typeFilter is an
// upper-case substring of measure_type; empty matches all.
func (r *Repository) ListReadings(ctx context.Context, customerCode, typeFilter string) ([]db.Reading, error) {
	query := `SELECT ` + readingColumns + `
		FROM readings
		WHERE customer_code = $1 AND ($2 = '' OR measure_type LIKE '%' || $2 || '%')
		ORDER BY measure_datetime DESC
	`

	rows, err := r.pool.Query(ctx, query, customerCode, typeFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []db.Reading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, *reading)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return readings, nil
}

// RecentConfirmedValues returns the latest confirmed values for the customer and type, newest first
func (r *Repository) RecentConfirmedValues(ctx context.Context, customerCode, measureType string, limit int) ([]int64, error) {
	query := `
		SELECT measure_value
		FROM readings
		WHERE customer_code = $1 AND measure_type = $2
		  AND has_confirmed AND measure_value IS NOT NULL
		ORDER BY measure_datetime DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, customerCode, measureType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query confirmed values: %w", err)
	}
	defer rows.Close()

	var values []int64
	for rows.Next() {
		var value int64
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		values = append(values, value)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return values, nil
}

func scanReading(row pgx.Row) (*db.Reading, error) {
	var reading db.Reading
	err := row.Scan(
		&reading.ID,
		&reading.CustomerCode,
		&reading.MeasureDatetime,
		&reading.MeasureType,
		&reading.MeasureValue,
		&reading.ImageURL,
		&reading.HasConfirmed,
		&reading.CreatedAt,
		&reading.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reading, nil
}
