package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS readings (
	id               UUID PRIMARY KEY,
	customer_code    VARCHAR(255) NOT NULL,
	measure_datetime TIMESTAMPTZ  NOT NULL,
	measure_type     VARCHAR(16)  NOT NULL CHECK (measure_type IN ('WATER', 'GAS')),
	measure_value    BIGINT,
	url_image        VARCHAR(255) NOT NULL,
	has_confirmed    BOOLEAN      NOT NULL DEFAULT FALSE,
	created_at       TIMESTAMPTZ  NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS readings_customer_type_datetime_idx
	ON readings (customer_code, measure_type, measure_datetime);
`

// EnsureSchema creates the readings table and its index when missing
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("[DATABASE] failed to ensure schema: %w", err)
	}
	return nil
}
