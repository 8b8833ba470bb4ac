package lmsync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/velmed/callscore/internal/db"
)

// SyncEntry represents a row in lm.sync_log.
type SyncEntry struct {
	ID          uuid.UUID      `json:"id"`
	Status      string         `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Processed   int64          `json:"processed"`
	Skipped     int64          `json:"skipped"`
	Failed      int64          `json:"failed"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// SyncLog provides read/write access to the lm.sync_log audit table.
type SyncLog struct {
	pool db.Pool
}

func NewSyncLog(pool db.Pool) *SyncLog {
	return &SyncLog{pool: pool}
}

// Start records the beginning of a sync run and returns its ID.
func (s *SyncLog) Start(ctx context.Context) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO lm.sync_log (id, status, started_at) VALUES ($1, 'running', now())`,
		id,
	)
	if err != nil {
		return uuid.Nil, eris.Wrap(err, "synclog: start")
	}
	return id, nil
}

// Complete marks a sync run as finished with its aggregate counts.
func (s *SyncLog) Complete(ctx context.Context, syncID uuid.UUID, res Result) error {
	metaJSON, err := json.Marshal(map[string]any{"status": res.Status})
	if err != nil {
		return eris.Wrap(err, "synclog: marshal metadata")
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE lm.sync_log
		 SET status = 'complete', completed_at = now(),
		     processed = $1, skipped = $2, failed = $3, metadata = $4
		 WHERE id = $5`,
		res.Processed, res.Skipped, res.Failed, metaJSON, syncID,
	)
	if err != nil {
		return eris.Wrapf(err, "synclog: complete sync %s", syncID)
	}
	return nil
}

// Fail marks a sync run as failed with an error message.
func (s *SyncLog) Fail(ctx context.Context, syncID uuid.UUID, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE lm.sync_log
		 SET status = 'failed', completed_at = now(), error = $1
		 WHERE id = $2`,
		errMsg, syncID,
	)
	if err != nil {
		return eris.Wrapf(err, "synclog: fail sync %s", syncID)
	}
	return nil
}

// LastSuccess returns the started_at time of the most recent completed run,
// or nil if there has never been one.
func (s *SyncLog) LastSuccess(ctx context.Context) (*time.Time, error) {
	var t time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT started_at FROM lm.sync_log
		 WHERE status = 'complete'
		 ORDER BY started_at DESC LIMIT 1`,
	).Scan(&t)
	if err != nil {
		if err.Error() == "no rows in result set" {
			return nil, nil
		}
		return nil, eris.Wrap(err, "synclog: last success")
	}
	return &t, nil
}

// Recent returns the latest sync log entries, most recent first.
func (s *SyncLog) Recent(ctx context.Context, limit int) ([]SyncEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, status, started_at, completed_at, processed, skipped, failed, error, metadata
		 FROM lm.sync_log ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "synclog: recent")
	}
	defer rows.Close()

	var entries []SyncEntry
	for rows.Next() {
		var e SyncEntry
		var completedAt *time.Time
		var errStr *string
		var metaJSON []byte
		if err := rows.Scan(&e.ID, &e.Status, &e.StartedAt, &completedAt,
			&e.Processed, &e.Skipped, &e.Failed, &errStr, &metaJSON); err != nil {
			return nil, eris.Wrap(err, "synclog: scan entry")
		}
		e.CompletedAt = completedAt
		if errStr != nil {
			e.Error = *errStr
		}
		if metaJSON != nil {
			_ = json.Unmarshal(metaJSON, &e.Metadata)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
