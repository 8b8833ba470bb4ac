package lmsync

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/velmed/callscore/internal/complaint"
	"github.com/velmed/callscore/internal/dict"
	"github.com/velmed/callscore/internal/matrix"
	"github.com/velmed/callscore/internal/metrics"
	"github.com/velmed/callscore/internal/model"
)

// Run statuses.
const (
	StatusIdle     = "idle"
	StatusComplete = "complete"
	StatusPartial  = "partial"
)

// Config tunes one controller instance.
type Config struct {
	BatchSize   int
	Workers     int
	DictCode    string
	DictVersion string
	Profile     string
	MaxAttempts int // failed attempts before the watermark moves past a record
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 200
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.DictCode == "" {
		c.DictCode = "complaints"
	}
	if c.DictVersion == "" {
		c.DictVersion = "v1"
	}
	if c.Profile == "" {
		c.Profile = "default"
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	return c
}

// Result is the aggregate outcome of one sync cycle. Per-row errors never
// surface individually; callers alert on the counts.
type Result struct {
	Processed int64  `json:"processed"`
	Skipped   int64  `json:"skipped"`
	Failed    int64  `json:"failed"`
	Status    string `json:"status"`
	LastID    int64  `json:"last_id"`
}

// Controller drives the incremental scoring pipeline.
type Controller struct {
	repo   Repository
	cache  *dict.Cache
	holder *matrix.Holder
	calc   *metrics.Calculator
	cfg    Config
	log    *zap.Logger
}

func NewController(repo Repository, cache *dict.Cache, holder *matrix.Holder, calc *metrics.Calculator, cfg Config) *Controller {
	return &Controller{
		repo:   repo,
		cache:  cache,
		holder: holder,
		calc:   calc,
		cfg:    cfg.withDefaults(),
		log:    zap.L().With(zap.String("component", "lmsync.controller")),
	}
}

// record outcomes, folded into the watermark advance in batch order.
type outcome int

const (
	outcomePending outcome = iota
	outcomeDone            // fully persisted, watermark may pass
	outcomeSkipped         // unscorable forever, watermark may pass
	outcomeFailed          // transient failure, watermark must stop here
)

// RunOnce executes one sync cycle: fetch a batch past the watermark, score
// each record concurrently, persist each record's metric set as one unit,
// then fold the per-record outcomes into a single monotonic watermark
// advance. Safe to re-run at any time; all writes are idempotent upserts.
func (c *Controller) RunOnce(ctx context.Context) (Result, error) {
	wm, err := c.repo.GetWatermark(ctx, c.calc.EngineVersion(), c.cfg.Profile)
	if err != nil {
		return Result{}, eris.Wrap(err, "lmsync: load watermark")
	}

	batch, err := c.repo.FetchBatch(ctx, wm.LastID, c.cfg.BatchSize)
	if err != nil {
		return Result{}, eris.Wrap(err, "lmsync: fetch batch")
	}
	if len(batch) == 0 {
		return Result{Status: StatusIdle, LastID: wm.LastID}, nil
	}

	outcomes := make([]outcome, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for i := range batch {
		g.Go(func() error {
			out, err := c.processRecord(gctx, &batch[i])
			outcomes[i] = out
			return err
		})
	}
	runErr := g.Wait()

	// Fold outcomes in ascending id order: the watermark advances over done
	// and skipped records and stops at the first one still failing.
	res := Result{LastID: wm.LastID}
	advanced := wm
	advancing := true
	for i, rec := range batch {
		switch outcomes[i] {
		case outcomeDone:
			res.Processed++
		case outcomeSkipped:
			res.Skipped++
		case outcomeFailed:
			res.Failed++
			advancing = false
		default: // pending: worker never ran (abort or cancellation)
			advancing = false
		}
		if advancing {
			advanced = advanced.Advance(rec.Call.HistoryID, rec.Call.CallDate)
		}
	}

	if advanced.LastID > wm.LastID {
		if err := c.repo.UpdateWatermark(ctx, advanced); err != nil {
			return res, eris.Wrap(err, "lmsync: advance watermark")
		}
		res.LastID = advanced.LastID
	}

	if runErr != nil {
		return res, eris.Wrap(runErr, "lmsync: batch aborted")
	}

	res.Status = StatusComplete
	if res.Failed > 0 {
		res.Status = StatusPartial
	}
	return res, nil
}

// processRecord scores and persists one call. Recognized error kinds are
// absorbed into an outcome; anything unknown propagates and aborts the batch.
func (c *Controller) processRecord(ctx context.Context, rec *BatchRecord) (outcome, error) {
	if err := ctx.Err(); err != nil {
		return outcomePending, err
	}
	call := &rec.Call
	if call.HistoryID <= 0 {
		c.log.Warn("skipping record without history id")
		return outcomeSkipped, nil
	}

	hits := c.scanTranscript(ctx, call)
	res := complaint.Evaluate(call, hits, c.holder.Current())
	drafts := c.calc.Calculate(call, rec.Score, res)

	var scoreID *int64
	if rec.Score != nil {
		scoreID = &rec.Score.ID
	}
	err := retryTransient(ctx, c.log, 2, func(ctx context.Context) error {
		_, err := c.repo.SaveValuesBatch(ctx, call.HistoryID, scoreID, c.cfg.Profile, c.calc.EngineVersion(), drafts)
		return err
	})
	if err != nil {
		switch {
		case IsValidation(err):
			c.log.Warn("skipping invalid record",
				zap.Int64("history_id", call.HistoryID), zap.Error(err))
			return outcomeSkipped, nil
		case IsTransient(err):
			return c.noteFailure(ctx, call.HistoryID, err), nil
		default:
			return outcomeFailed, err
		}
	}

	// Hit facts are best-effort: the optimizer can live with gaps, the
	// metric set cannot.
	if len(res.Hits) > 0 {
		if err := c.repo.SaveHits(ctx, call.HistoryID, res.Hits); err != nil {
			c.log.Warn("failed to save dictionary hits",
				zap.Int64("history_id", call.HistoryID), zap.Error(err))
		}
	}

	if err := c.repo.ClearFailure(ctx, call.HistoryID); err != nil {
		c.log.Warn("failed to clear failure ledger",
			zap.Int64("history_id", call.HistoryID), zap.Error(err))
	}
	return outcomeDone, nil
}

// scanTranscript loads the compiled dictionary and scans the call. A term
// load failure degrades to keyword-only scoring rather than failing the call.
func (c *Controller) scanTranscript(ctx context.Context, call *model.CallRecord) []model.DictionaryHit {
	terms, err := c.cache.Get(ctx, c.cfg.DictCode, c.cfg.DictVersion)
	if err != nil {
		c.log.Warn("dictionary unavailable, scoring without terms", zap.Error(err))
		return nil
	}
	hits := dict.Scan(call.Transcript, terms, time.Now().UTC())
	for i := range hits {
		hits[i].HistoryID = call.HistoryID
	}
	return hits
}

// noteFailure records the attempt and decides whether the record is now
// unprocessable. After MaxAttempts failures the watermark moves past it so
// one poisoned row cannot stall the pipeline forever.
func (c *Controller) noteFailure(ctx context.Context, historyID int64, cause error) outcome {
	attempts, err := c.repo.RecordFailure(ctx, historyID, cause.Error())
	if err != nil {
		c.log.Warn("failed to record failure",
			zap.Int64("history_id", historyID), zap.Error(err))
		return outcomeFailed
	}
	if attempts >= c.cfg.MaxAttempts {
		c.log.Error("record unprocessable, advancing past it",
			zap.Int64("history_id", historyID),
			zap.Int("attempts", attempts),
			zap.Error(cause))
		return outcomeSkipped
	}
	c.log.Warn("record failed, will retry next cycle",
		zap.Int64("history_id", historyID),
		zap.Int("attempts", attempts),
		zap.Error(cause))
	return outcomeFailed
}

// ScoreOne recomputes and re-persists the full metric set for a single call,
// regardless of the watermark. Used for targeted recalculation after a
// dictionary or weight change.
func (c *Controller) ScoreOne(ctx context.Context, historyID int64) (*complaint.Result, error) {
	rec, err := c.repo.FetchByID(ctx, historyID)
	if err != nil {
		return nil, eris.Wrapf(err, "lmsync: fetch record %d", historyID)
	}
	if rec == nil {
		return nil, eris.Errorf("lmsync: no call record with history id %d", historyID)
	}

	call := &rec.Call
	hits := c.scanTranscript(ctx, call)
	res := complaint.Evaluate(call, hits, c.holder.Current())
	drafts := c.calc.Calculate(call, rec.Score, res)

	var scoreID *int64
	if rec.Score != nil {
		scoreID = &rec.Score.ID
	}
	err = retryTransient(ctx, c.log, 2, func(ctx context.Context) error {
		_, err := c.repo.SaveValuesBatch(ctx, call.HistoryID, scoreID, c.cfg.Profile, c.calc.EngineVersion(), drafts)
		return err
	})
	if err != nil {
		return nil, eris.Wrapf(err, "lmsync: persist metrics for %d", historyID)
	}
	if len(res.Hits) > 0 {
		if err := c.repo.SaveHits(ctx, call.HistoryID, res.Hits); err != nil {
			c.log.Warn("failed to save dictionary hits",
				zap.Int64("history_id", call.HistoryID), zap.Error(err))
		}
	}
	return res, nil
}

// RunFull repeats cycles from the current watermark until the source is
// exhausted, for backfills. Stops early on abort or cancellation.
func (c *Controller) RunFull(ctx context.Context) (Result, error) {
	var total Result
	total.Status = StatusIdle
	for {
		if err := ctx.Err(); err != nil {
			return total, eris.Wrap(err, "lmsync: backfill cancelled")
		}
		res, err := c.RunOnce(ctx)
		total.Processed += res.Processed
		total.Skipped += res.Skipped
		total.Failed += res.Failed
		if res.LastID > total.LastID {
			total.LastID = res.LastID
		}
		if err != nil {
			return total, err
		}
		if res.Status == StatusIdle {
			if total.Processed > 0 || total.Skipped > 0 || total.Failed > 0 {
				total.Status = StatusComplete
				if total.Failed > 0 {
					total.Status = StatusPartial
				}
			}
			return total, nil
		}
		// A fully failing batch would never go idle; bail out once a cycle
		// makes no forward progress.
		if res.Processed == 0 && res.Skipped == 0 {
			total.Status = StatusPartial
			return total, nil
		}
	}
}

// Run executes one audited cycle, recording it in the sync log when one is
// configured.
func (c *Controller) Run(ctx context.Context, syncLog *SyncLog, full bool) (Result, error) {
	runOnce := c.RunOnce
	if full {
		runOnce = c.RunFull
	}
	if syncLog == nil {
		return runOnce(ctx)
	}

	id, err := syncLog.Start(ctx)
	if err != nil {
		// The audit trail should not block scoring.
		c.log.Warn("sync log unavailable", zap.Error(err))
		return runOnce(ctx)
	}

	res, runErr := runOnce(ctx)
	if runErr != nil {
		if err := syncLog.Fail(ctx, id, runErr.Error()); err != nil {
			c.log.Warn("failed to mark sync log entry failed", zap.Error(err))
		}
		return res, runErr
	}
	if err := syncLog.Complete(ctx, id, res); err != nil {
		c.log.Warn("failed to complete sync log entry", zap.Error(err))
	}
	return res, nil
}
