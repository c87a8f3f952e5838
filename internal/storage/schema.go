package storage

import "context"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS shutdown_events (
		id UUID PRIMARY KEY,
		zone_id TEXT NOT NULL,
		procedure_id TEXT NOT NULL,
		severity TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		estimated_ms BIGINT NOT NULL DEFAULT 0,
		actual_ms BIGINT NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		failed_steps INT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_shutdown_events_zone_ts ON shutdown_events (zone_id, started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id BIGSERIAL PRIMARY KEY,
		zone_id TEXT NOT NULL DEFAULT '',
		sensor_id TEXT NOT NULL DEFAULT '',
		severity TEXT NOT NULL,
		kind TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		value DOUBLE PRECISION NOT NULL DEFAULT 0,
		threshold DOUBLE PRECISION NOT NULL DEFAULT 0,
		ts_utc TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_zone_ts ON alerts (zone_id, ts_utc DESC)`,
}

// Migrate creates the audit tables if they do not exist.
func Migrate(ctx context.Context, store *Store) error {
	for _, stmt := range schema {
		if _, err := store.Pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
