// Package storage persists shutdown events and alerts for offline analysis.
// The in-memory history inside the zone manager stays authoritative; this
// repository is a best-effort audit sink.
package storage

import (
	"context"
	"errors"
	"time"

	"thermoguard/internal/notify"
	"thermoguard/internal/zone"
)

// ErrNotFound reports a query over the audit tables with no matching rows.
var ErrNotFound = errors.New("not found")

type Repository struct {
	Store *Store
}

func NewRepository(store *Store) *Repository {
	return &Repository{Store: store}
}

// RecordShutdownEvent upserts a lifecycle event: the started record is
// inserted first, the terminal update overwrites status and duration.
func (r *Repository) RecordShutdownEvent(ctx context.Context, e zone.Event) error {
	_, err := r.Store.Pool.Exec(ctx, `
		INSERT INTO shutdown_events (id, zone_id, procedure_id, severity, reason, started_at, estimated_ms, actual_ms, status, failed_steps)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			actual_ms = EXCLUDED.actual_ms,
			status = EXCLUDED.status,
			failed_steps = EXCLUDED.failed_steps`,
		e.ID, e.ZoneID, e.ProcedureID, string(e.Severity), e.Reason, e.StartedAt,
		e.EstimatedDuration.Milliseconds(), e.ActualDuration.Milliseconds(), e.Status, e.FailedSteps)
	return err
}

func (r *Repository) RecordAlert(ctx context.Context, a notify.Alert) error {
	_, err := r.Store.Pool.Exec(ctx, `
		INSERT INTO alerts (zone_id, sensor_id, severity, kind, message, value, threshold, ts_utc)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ZoneID, a.SensorID, a.Severity, a.Kind, a.Message, a.Value, a.Threshold, a.Time.UTC())
	return err
}

func (r *Repository) ListShutdownEvents(ctx context.Context, zoneID string, limit int) ([]zone.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.Store.Pool.Query(ctx, `
		SELECT id, zone_id, procedure_id, severity, reason, started_at, estimated_ms, actual_ms, status, failed_steps
		FROM shutdown_events
		WHERE ($1 = '' OR zone_id = $1)
		ORDER BY started_at DESC LIMIT $2`, zoneID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := []zone.Event{}
	for rows.Next() {
		var e zone.Event
		var severity string
		var estimatedMS, actualMS int64
		if err := rows.Scan(&e.ID, &e.ZoneID, &e.ProcedureID, &severity, &e.Reason, &e.StartedAt, &estimatedMS, &actualMS, &e.Status, &e.FailedSteps); err != nil {
			return nil, err
		}
		e.Severity = zone.Severity(severity)
		e.EstimatedDuration = time.Duration(estimatedMS) * time.Millisecond
		e.ActualDuration = time.Duration(actualMS) * time.Millisecond
		results = append(results, e)
	}
	return results, rows.Err()
}

func (r *Repository) LastShutdownAt(ctx context.Context, zoneID string) (time.Time, error) {
	row := r.Store.Pool.QueryRow(ctx, `
		SELECT started_at FROM shutdown_events WHERE zone_id=$1 ORDER BY started_at DESC LIMIT 1`, zoneID)
	var ts time.Time
	if err := row.Scan(&ts); err != nil {
		return time.Time{}, ErrNotFound
	}
	return ts, nil
}
