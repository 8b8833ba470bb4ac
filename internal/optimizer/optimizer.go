// Package optimizer implements the periodic feedback job that retunes the
// weight matrix from recent dictionary-hit facts. Adjustments are bounded so
// repeated runs converge instead of oscillating.
package optimizer

import (
	"context"
	"math"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/velmed/callscore/internal/complaint"
	"github.com/velmed/callscore/internal/matrix"
	"github.com/velmed/callscore/internal/model"
)

// HitSource supplies the recent hit facts the optimizer aggregates.
type HitSource interface {
	GetRecentHits(ctx context.Context, dictCode string, days, limit int) ([]model.DictionaryHit, error)
}

// Config tunes one optimizer instance.
type Config struct {
	DictCode     string
	LookbackDays int
	Limit        int
	UpdatedBy    string
}

func (c Config) withDefaults() Config {
	if c.DictCode == "" {
		c.DictCode = "complaints"
	}
	if c.LookbackDays <= 0 {
		c.LookbackDays = 30
	}
	if c.Limit <= 0 {
		c.Limit = 10000
	}
	if c.UpdatedBy == "" {
		c.UpdatedBy = "optimizer"
	}
	return c
}

// Report summarizes one optimization run.
type Report struct {
	TotalHits int                `json:"total_hits"`
	Shares    map[string]float64 `json:"shares"`
	Threshold float64            `json:"threshold"`
	Updated   bool               `json:"updated"`
}

// Optimizer is the single writer of the weight matrix. Concurrent Optimize
// calls are serialized; readers keep seeing whole snapshots through the
// holder.
type Optimizer struct {
	source HitSource
	store  matrix.Store
	holder *matrix.Holder
	cfg    Config

	mu  sync.Mutex
	log *zap.Logger
}

func New(source HitSource, store matrix.Store, holder *matrix.Holder, cfg Config) *Optimizer {
	return &Optimizer{
		source: source,
		store:  store,
		holder: holder,
		cfg:    cfg.withDefaults(),
		log:    zap.L().With(zap.String("component", "optimizer")),
	}
}

const (
	baseThreshold = 55.0
	noiseCap      = 0.8
	noiseSpread   = 25.0
	boostShareCap = 0.5
	biasLogScale  = 5.0
	infoBias      = -5.0
	spamBias      = -10.0
)

// Optimize aggregates recent hits, reclassifies them with the same rules the
// complaint engine uses, derives a new matrix snapshot, persists it and swaps
// it into the holder.
func (o *Optimizer) Optimize(ctx context.Context) (*Report, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	hits, err := o.source.GetRecentHits(ctx, o.cfg.DictCode, o.cfg.LookbackDays, o.cfg.Limit)
	if err != nil {
		return nil, eris.Wrap(err, "optimizer: load recent hits")
	}

	report := &Report{Shares: map[string]float64{}}
	if len(hits) == 0 {
		report.Threshold = o.holder.Current().Threshold(matrix.ThresholdComplaintScore, baseThreshold)
		o.log.Info("no recent hits, matrix unchanged")
		return report, nil
	}

	counts := map[string]float64{}
	var total float64
	for i := range hits {
		n := float64(hits[i].HitCount)
		if n <= 0 {
			n = 1
		}
		counts[complaint.ClassifyHitTerm(hits[i].Term)] += n
		total += n
		report.TotalHits++
	}
	for cat, n := range counts {
		report.Shares[cat] = n / total
	}

	snap := o.retune(o.holder.Current(), report.Shares)
	report.Threshold = snap.Threshold(matrix.ThresholdComplaintScore, baseThreshold)

	if err := o.store.Save(ctx, snap.Document(), o.cfg.UpdatedBy); err != nil {
		return report, eris.Wrap(err, "optimizer: save matrix")
	}
	o.holder.Swap(snap)
	report.Updated = true

	o.log.Info("matrix retuned",
		zap.Int("hits", report.TotalHits),
		zap.Float64("threshold", report.Threshold),
		zap.Any("shares", report.Shares))
	return report, nil
}

// retune derives the new snapshot. The noise share (informational + spam)
// raises the complaint threshold; noisy categories are pushed further
// negative; substantive categories get a bounded multiplier boost and a
// log-damped bias.
func (o *Optimizer) retune(base *matrix.Snapshot, shares map[string]float64) *matrix.Snapshot {
	noise := shares[complaint.CategoryInfoRequest] + shares[complaint.CategorySpam]
	if noise > noiseCap {
		noise = noiseCap
	}
	snap := base.WithThreshold(matrix.ThresholdComplaintScore, baseThreshold+noise*noiseSpread)

	if r, ok := shares[complaint.CategoryInfoRequest]; ok {
		snap = snap.WithCategory(complaint.CategoryInfoRequest, matrix.CategoryParams{
			Multiplier: -1 - 2*r,
			Bias:       infoBias,
		})
	}
	if r, ok := shares[complaint.CategorySpam]; ok {
		snap = snap.WithCategory(complaint.CategorySpam, matrix.CategoryParams{
			Multiplier: -2 - 2*r,
			Bias:       spamBias,
		})
	}

	for _, cat := range []string{complaint.CategoryLegal, complaint.CategoryRefund, complaint.CategoryBehavior} {
		r, ok := shares[cat]
		if !ok {
			continue
		}
		boost := r
		if boost > boostShareCap {
			boost = boostShareCap
		}
		snap = snap.WithCategory(cat, matrix.CategoryParams{
			Multiplier: 1 + boost,
			Bias:       math.Log1p(r) * biasLogScale,
		})
	}
	return snap
}
