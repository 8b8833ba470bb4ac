package lmsync

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/velmed/callscore/internal/db"
	"github.com/velmed/callscore/internal/model"
)

// BatchRecord is one fetched call with its optional assessment.
type BatchRecord struct {
	Call  model.CallRecord
	Score *model.ScoreRecord
}

// Repository is everything the sync controller and optimizer need from the
// store. A single Postgres implementation backs production; tests use pgxmock
// through db.Pool or stub the interface directly.
type Repository interface {
	GetTerms(ctx context.Context, dictCode, version string, activeOnly bool) ([]model.DictionaryTerm, error)
	UpsertTerms(ctx context.Context, terms []model.DictionaryTerm) (int64, error)
	SaveHits(ctx context.Context, historyID int64, hits []model.DictionaryHit) error
	GetRecentHits(ctx context.Context, dictCode string, days, limit int) ([]model.DictionaryHit, error)

	SaveValuesBatch(ctx context.Context, historyID int64, scoreID *int64, profile string, engineVersion string, drafts []model.MetricDraft) (int64, error)
	FetchValues(ctx context.Context, days int) ([]model.MetricValue, error)

	GetWatermark(ctx context.Context, engineVersion, profile string) (model.Watermark, error)
	UpdateWatermark(ctx context.Context, wm model.Watermark) error

	FetchBatch(ctx context.Context, lastID int64, limit int) ([]BatchRecord, error)
	FetchByID(ctx context.Context, historyID int64) (*BatchRecord, error)
	CountUnprocessed(ctx context.Context, lastID int64) (int64, error)

	RecordFailure(ctx context.Context, historyID int64, errMsg string) (int, error)
	ClearFailure(ctx context.Context, historyID int64) error
}

// PostgresRepository implements Repository against the lm schema and the
// upstream call_history/call_scores tables. Writes pass through a rate
// limiter so bulk runs stay inside the store's connection budget.
type PostgresRepository struct {
	pool    db.Pool
	limiter *rate.Limiter
}

// NewPostgresRepository wires a repository; writesPerSec <= 0 disables the
// limiter.
func NewPostgresRepository(pool db.Pool, writesPerSec float64) *PostgresRepository {
	var limiter *rate.Limiter
	if writesPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(writesPerSec), int(writesPerSec)+1)
	}
	return &PostgresRepository{pool: pool, limiter: limiter}
}

func (r *PostgresRepository) waitWrite(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

func (r *PostgresRepository) GetTerms(ctx context.Context, dictCode, version string, activeOnly bool) ([]model.DictionaryTerm, error) {
	query := `SELECT id, dict_code, term, match_type, weight, is_negative, is_active, version
	          FROM lm.dictionary_terms WHERE dict_code = $1 AND version = $2`
	if activeOnly {
		query += ` AND is_active`
	}
	rows, err := r.pool.Query(ctx, query, dictCode, version)
	if err != nil {
		return nil, eris.Wrapf(err, "repo: get terms %s/%s", dictCode, version)
	}
	defer rows.Close()

	var terms []model.DictionaryTerm
	for rows.Next() {
		var t model.DictionaryTerm
		if err := rows.Scan(&t.ID, &t.DictCode, &t.Term, &t.MatchType, &t.Weight,
			&t.IsNegative, &t.IsActive, &t.Version); err != nil {
			return nil, eris.Wrap(err, "repo: scan term")
		}
		terms = append(terms, t)
	}
	return terms, eris.Wrap(rows.Err(), "repo: iterate terms")
}

func (r *PostgresRepository) UpsertTerms(ctx context.Context, terms []model.DictionaryTerm) (int64, error) {
	if err := r.waitWrite(ctx); err != nil {
		return 0, eris.Wrap(err, "repo: rate limit")
	}
	rows := make([][]any, 0, len(terms))
	for _, t := range terms {
		rows = append(rows, []any{
			t.DictCode, t.Term, string(t.MatchType), t.Weight, t.IsNegative, t.IsActive, t.Version,
		})
	}
	n, err := db.BulkUpsert(ctx, r.pool, db.UpsertConfig{
		Table:        "lm.dictionary_terms",
		Columns:      []string{"dict_code", "term", "match_type", "weight", "is_negative", "is_active", "version"},
		ConflictKeys: []string{"dict_code", "version", "term"},
	}, rows)
	return n, eris.Wrap(err, "repo: upsert terms")
}

func (r *PostgresRepository) SaveHits(ctx context.Context, historyID int64, hits []model.DictionaryHit) error {
	if len(hits) == 0 {
		return nil
	}
	if err := r.waitWrite(ctx); err != nil {
		return eris.Wrap(err, "repo: rate limit")
	}
	rows := make([][]any, 0, len(hits))
	for _, h := range hits {
		rows = append(rows, []any{
			historyID, h.DictCode, h.Term, string(h.MatchType), h.Weight,
			h.HitCount, h.Snippet, h.DictVersion, h.DetectedAt,
		})
	}
	_, err := db.CopyFromSchema(ctx, r.pool, "lm", "dictionary_hits",
		[]string{"history_id", "dict_code", "term", "match_type", "weight",
			"hit_count", "snippet", "dict_version", "detected_at"},
		rows,
	)
	if err != nil {
		return &TransientError{Op: "save hits", Err: err}
	}
	return nil
}

func (r *PostgresRepository) GetRecentHits(ctx context.Context, dictCode string, days, limit int) ([]model.DictionaryHit, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT history_id, dict_code, term, match_type, weight, hit_count, snippet, dict_version, detected_at
		 FROM lm.dictionary_hits
		 WHERE dict_code = $1 AND detected_at > now() - make_interval(days => $2)
		 ORDER BY detected_at DESC LIMIT $3`,
		dictCode, days, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "repo: recent hits for %s", dictCode)
	}
	defer rows.Close()

	var hits []model.DictionaryHit
	for rows.Next() {
		var h model.DictionaryHit
		if err := rows.Scan(&h.HistoryID, &h.DictCode, &h.Term, &h.MatchType, &h.Weight,
			&h.HitCount, &h.Snippet, &h.DictVersion, &h.DetectedAt); err != nil {
			return nil, eris.Wrap(err, "repo: scan hit")
		}
		hits = append(hits, h)
	}
	return hits, eris.Wrap(rows.Err(), "repo: iterate hits")
}

// SaveValuesBatch upserts the full metric set for one call as a single
// logical unit. Re-running with the same drafts replaces the previous values
// in place.
func (r *PostgresRepository) SaveValuesBatch(ctx context.Context, historyID int64, scoreID *int64, profile, engineVersion string, drafts []model.MetricDraft) (int64, error) {
	if len(drafts) == 0 {
		return 0, nil
	}
	if historyID <= 0 {
		return 0, &ValidationError{Field: "history_id", Msg: "must be positive"}
	}
	if err := r.waitWrite(ctx); err != nil {
		return 0, eris.Wrap(err, "repo: rate limit")
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(drafts))
	for _, d := range drafts {
		var label *string
		if d.Kind == model.KindLabel || d.Kind == model.KindFlag {
			l := d.Label
			label = &l
		}
		var raw []byte
		if d.Kind == model.KindJSON && d.JSON != nil {
			raw = d.JSON
		}
		rows = append(rows, []any{
			historyID, scoreID, d.Code, d.Group, d.Numeric, label, raw,
			engineVersion, profile, d.Method, "sync", now,
		})
	}

	n, err := db.BulkUpsert(ctx, r.pool, db.UpsertConfig{
		Table: "lm.metric_values",
		Columns: []string{"history_id", "score_id", "metric_code", "metric_group",
			"value_numeric", "value_label", "value_json", "engine_version",
			"calc_profile", "calc_method", "calc_source", "updated_at"},
		ConflictKeys: []string{"history_id", "metric_code", "engine_version"},
	}, rows)
	if err != nil {
		return 0, &TransientError{Op: "save values batch", Err: err}
	}
	return n, nil
}

func (r *PostgresRepository) FetchValues(ctx context.Context, days int) ([]model.MetricValue, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, history_id, score_id, metric_code, metric_group,
		        value_numeric, value_label, value_json,
		        engine_version, calc_profile, calc_method, calc_source, created_at, updated_at
		 FROM lm.metric_values
		 WHERE updated_at > now() - make_interval(days => $1)
		 ORDER BY history_id, metric_code`,
		days,
	)
	if err != nil {
		return nil, eris.Wrap(err, "repo: fetch values")
	}
	defer rows.Close()

	var values []model.MetricValue
	for rows.Next() {
		var v model.MetricValue
		if err := rows.Scan(&v.ID, &v.HistoryID, &v.ScoreID, &v.Code, &v.Group,
			&v.Numeric, &v.Label, &v.JSON,
			&v.EngineVersion, &v.CalcProfile, &v.CalcMethod, &v.CalcSource,
			&v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "repo: scan value")
		}
		values = append(values, v)
	}
	return values, eris.Wrap(rows.Err(), "repo: iterate values")
}

func (r *PostgresRepository) GetWatermark(ctx context.Context, engineVersion, profile string) (model.Watermark, error) {
	wm := model.Watermark{EngineVersion: engineVersion, CalcProfile: profile}
	err := r.pool.QueryRow(ctx,
		`SELECT last_id, last_date FROM lm.calc_watermarks
		 WHERE engine_version = $1 AND calc_profile = $2`,
		engineVersion, profile,
	).Scan(&wm.LastID, &wm.LastDate)
	if err == pgx.ErrNoRows {
		return wm, nil
	}
	if err != nil {
		return wm, eris.Wrapf(err, "repo: get watermark %s/%s", engineVersion, profile)
	}
	return wm, nil
}

// UpdateWatermark persists the watermark. The WHERE guard makes the advance
// monotonic even if two runners race.
func (r *PostgresRepository) UpdateWatermark(ctx context.Context, wm model.Watermark) error {
	if err := r.waitWrite(ctx); err != nil {
		return eris.Wrap(err, "repo: rate limit")
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO lm.calc_watermarks (engine_version, calc_profile, last_id, last_date, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (engine_version, calc_profile) DO UPDATE
		 SET last_id = EXCLUDED.last_id, last_date = EXCLUDED.last_date, updated_at = now()
		 WHERE lm.calc_watermarks.last_id < EXCLUDED.last_id`,
		wm.EngineVersion, wm.CalcProfile, wm.LastID, wm.LastDate,
	)
	if err != nil {
		return &TransientError{Op: "update watermark", Err: err}
	}
	return nil
}

func (r *PostgresRepository) FetchBatch(ctx context.Context, lastID int64, limit int) ([]BatchRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT h.history_id, h.call_date, h.call_type, h.talk_duration, h.wait_seconds,
		        h.transcript, h.outcome, h.category,
		        h.refusal_reason, h.refusal_code, h.refusal_group,
		        h.quality_score, h.is_target, h.source_tag,
		        s.id, s.call_score, s.checklist, s.call_success, s.live_voice,
		        s.loss_group, s.loss_code, s.result_notes
		 FROM call_history h
		 LEFT JOIN call_scores s ON s.history_id = h.history_id
		 WHERE h.history_id > $1
		 ORDER BY h.history_id ASC
		 LIMIT $2`,
		lastID, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "repo: fetch batch after %d", lastID)
	}
	defer rows.Close()

	var batch []BatchRecord
	for rows.Next() {
		var rec BatchRecord
		var c = &rec.Call
		var scoreID *int64
		var callScore, checklist *float64
		var callSuccess, lossGroup, lossCode, resultNotes *string
		var liveVoice *bool

		if err := rows.Scan(&c.HistoryID, &c.CallDate, &c.CallType, &c.TalkDuration, &c.WaitSeconds,
			&c.Transcript, &c.Outcome, &c.Category,
			&c.RefusalReason, &c.RefusalCode, &c.RefusalGroup,
			&c.QualityScore, &c.IsTarget, &c.SourceTag,
			&scoreID, &callScore, &checklist, &callSuccess, &liveVoice,
			&lossGroup, &lossCode, &resultNotes); err != nil {
			return nil, eris.Wrap(err, "repo: scan batch record")
		}

		if scoreID != nil {
			s := &model.ScoreRecord{ID: *scoreID, HistoryID: c.HistoryID, CallScore: callScore, Checklist: checklist}
			if callSuccess != nil {
				s.CallSuccess = *callSuccess
			}
			if liveVoice != nil {
				s.LiveVoice = *liveVoice
			}
			if lossGroup != nil {
				s.LossGroup = *lossGroup
			}
			if lossCode != nil {
				s.LossCode = *lossCode
			}
			if resultNotes != nil {
				s.ResultNotes = *resultNotes
			}
			rec.Score = s
		}
		batch = append(batch, rec)
	}
	return batch, eris.Wrap(rows.Err(), "repo: iterate batch")
}

// FetchByID returns a single call record joined with its score row, or nil
// when no such record exists.
func (r *PostgresRepository) FetchByID(ctx context.Context, historyID int64) (*BatchRecord, error) {
	batch, err := r.FetchBatch(ctx, historyID-1, 1)
	if err != nil {
		return nil, err
	}
	if len(batch) == 0 || batch[0].Call.HistoryID != historyID {
		return nil, nil
	}
	return &batch[0], nil
}

func (r *PostgresRepository) CountUnprocessed(ctx context.Context, lastID int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM call_history WHERE history_id > $1`, lastID,
	).Scan(&n)
	return n, eris.Wrap(err, "repo: count unprocessed")
}

// RecordFailure bumps the attempt counter for a failing record and returns
// the new count.
func (r *PostgresRepository) RecordFailure(ctx context.Context, historyID int64, errMsg string) (int, error) {
	var attempts int
	err := r.pool.QueryRow(ctx,
		`INSERT INTO lm.calc_failures (history_id, attempts, last_error, updated_at)
		 VALUES ($1, 1, $2, now())
		 ON CONFLICT (history_id) DO UPDATE
		 SET attempts = lm.calc_failures.attempts + 1, last_error = $2, updated_at = now()
		 RETURNING attempts`,
		historyID, errMsg,
	).Scan(&attempts)
	if err != nil {
		return 0, eris.Wrapf(err, "repo: record failure %d", historyID)
	}
	return attempts, nil
}

func (r *PostgresRepository) ClearFailure(ctx context.Context, historyID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM lm.calc_failures WHERE history_id = $1`, historyID)
	return eris.Wrapf(err, "repo: clear failure %d", historyID)
}
