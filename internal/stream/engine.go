// Package stream runs the real-time scoring loop: pull a record from the
// configured source, filter it, turn it into features, score it with the
// trained ensemble or the rule-based fallback, bucket the threat level, and
// raise alerts past the configured threshold. Results and alerts live in
// bounded ring buffers; everything else is handed off to the event sink and
// result writer without blocking the loop.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"netsentry/internal/ml"
	"netsentry/internal/model"
	"netsentry/internal/pipeline"
	"netsentry/internal/registry"
)

const (
	// DefaultThreshold is the alert gate used until SetThreshold or a
	// stream config overrides it.
	DefaultThreshold = 0.7

	// DefaultAlertHistory is how many alerts a history query returns when
	// the caller does not say.
	DefaultAlertHistory = 50

	resultCapacity = 1000
	alertCapacity  = 100

	// joinTimeout bounds how long Stop waits for the loop goroutine. A
	// source stuck in a blocking read past this is abandoned; it exits on
	// its own once the read returns.
	joinTimeout = 5 * time.Second

	// errorBackoff paces the loop after a failed iteration so a broken
	// source cannot spin it hot.
	errorBackoff = time.Second

	// recentWindow is the lookback for the recent-alert counter in Status.
	recentWindow = time.Hour
)

// SourceFactory builds the record source for one streaming session.
type SourceFactory func(cfg model.StreamConfig) (model.RecordSource, error)

// Engine owns the scoring loop and its observable state. All methods are
// safe for concurrent use.
type Engine struct {
	registry *registry.Registry
	events   model.EventSink
	writer   model.ResultWriter
	sources  SourceFactory

	mu        sync.Mutex
	streaming bool
	cfg       model.StreamConfig
	cancel    context.CancelFunc
	done      chan struct{}
	threshold float64
	alertSeq  int64
	processed uint64
	dropped   uint64
	results   *Ring[model.ScoringResult]
	alerts    *Ring[model.Alert]
}

// New builds an engine. The event sink and result writer may be nil; the
// source factory must not be.
func New(reg *registry.Registry, events model.EventSink, writer model.ResultWriter, sources SourceFactory) *Engine {
	return &Engine{
		registry:  reg,
		events:    events,
		writer:    writer,
		sources:   sources,
		threshold: DefaultThreshold,
		results:   NewRing[model.ScoringResult](resultCapacity),
		alerts:    NewRing[model.Alert](alertCapacity),
	}
}

// Start launches the scoring loop with cfg. Starting an already-streaming
// engine is a no-op that returns the current status. The config's alert
// threshold, when present, replaces the engine's; an out-of-range value
// rejects the start.
func (e *Engine) Start(cfg model.StreamConfig) (model.StreamStatus, error) {
	if cfg.Model == "" {
		cfg.Model = ml.EnsembleName
	}

	if cfg.AlertThreshold != nil {
		v := *cfg.AlertThreshold
		if v < 0 || v > 1 || math.IsNaN(v) {
			return model.StreamStatus{}, model.ErrInvalidThreshold
		}
	}

	e.mu.Lock()
	if e.streaming {
		st := e.statusLocked()
		e.mu.Unlock()
		return st, nil
	}
	e.mu.Unlock()

	src, err := e.sources(cfg)
	if err != nil {
		return model.StreamStatus{}, fmt.Errorf("failed to open %s source: %w", cfg.Source, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.mu.Lock()
	if e.streaming {
		// Lost the race to another Start.
		e.mu.Unlock()
		cancel()
		src.Close()
		return e.Status(), nil
	}
	if cfg.AlertThreshold != nil {
		e.threshold = *cfg.AlertThreshold
	}
	e.streaming = true
	e.cfg = cfg
	e.cancel = cancel
	e.done = done
	st := e.statusLocked()
	e.mu.Unlock()

	go func() {
		defer cancel()
		e.run(ctx, src, cfg, done)
	}()

	log.Printf("Streaming started from %s source, interval %s, scoring with %s", src.Name(), cfg.EffectiveInterval(), cfg.Model)
	return st, nil
}

// Stop cancels the loop and waits up to five seconds for it to exit. The
// engine reports stopped either way.
func (e *Engine) Stop() model.StreamStatus {
	e.mu.Lock()
	if !e.streaming {
		st := e.statusLocked()
		e.mu.Unlock()
		return st
	}
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(joinTimeout):
		log.Printf("Stream loop did not exit within %s, abandoning it", joinTimeout)
	}

	e.mu.Lock()
	e.streaming = false
	st := e.statusLocked()
	e.mu.Unlock()
	log.Println("Streaming stopped")
	return st
}

// SetThreshold replaces the alert gate. Values outside [0,1] are rejected
// and the prior threshold stays in effect. Safe to call mid-stream; the
// next scored record sees the new value.
func (e *Engine) SetThreshold(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return model.ErrInvalidThreshold
	}
	e.mu.Lock()
	e.threshold = v
	e.mu.Unlock()
	log.Printf("Alert threshold set to %.2f", v)
	return nil
}

// Threshold returns the current alert gate.
func (e *Engine) Threshold() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.threshold
}

// Status reports the loop state, threshold, buffer depths, and the alert
// count inside the recent window.
func (e *Engine) Status() model.StreamStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

func (e *Engine) statusLocked() model.StreamStatus {
	cutoff := time.Now().Add(-recentWindow)
	recent := 0
	for _, a := range e.alerts.Items() {
		if a.Timestamp.After(cutoff) {
			recent++
		}
	}
	st := model.StreamStatus{
		Streaming:      e.streaming,
		AlertThreshold: e.threshold,
		TotalResults:   e.results.Len(),
		TotalAlerts:    e.alerts.Len(),
		RecentAlerts:   recent,
		Processed:      e.processed,
		Dropped:        e.dropped,
	}
	if e.streaming {
		st.Source = e.cfg.Source
		st.Model = e.cfg.Model
	}
	return st
}

// RecentResults returns the latest n scoring results oldest first. A
// non-positive n returns the whole buffer.
func (e *Engine) RecentResults(n int) []model.ScoringResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.results.Last(n)
}

// RecentAlerts returns the latest n alerts oldest first, defaulting to the
// last fifty.
func (e *Engine) RecentAlerts(n int) []model.Alert {
	if n <= 0 {
		n = DefaultAlertHistory
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alerts.Last(n)
}

// run is the scoring loop. It owns the source and the jitter generator and
// is the only goroutine that scores records for this session.
func (e *Engine) run(ctx context.Context, src model.RecordSource, cfg model.StreamConfig, done chan struct{}) {
	// Close the source before reporting idle so a stopped engine holds no
	// capture handles.
	defer close(done)
	defer e.markStopped(done)
	defer src.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	interval := cfg.EffectiveInterval()

	for {
		if ctx.Err() != nil {
			return
		}

		rec, err := src.Next(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil || errors.Is(err, context.Canceled):
				return
			case errors.Is(err, io.EOF):
				log.Printf("Source %s drained, stopping stream", src.Name())
				return
			default:
				log.Printf("Stream iteration error: %v", err)
				sleepCtx(ctx, errorBackoff)
				continue
			}
		}

		if !cfg.Filter.Allows(&rec) {
			e.mu.Lock()
			e.dropped++
			e.mu.Unlock()
			sleepCtx(ctx, interval)
			continue
		}

		res := e.score(&rec, cfg, src.Name(), rng)
		e.publish(res)
		sleepCtx(ctx, interval)
	}
}

// markStopped flips the streaming flag when the loop exits on its own, so a
// drained source leaves the engine idle rather than claiming a live loop.
// The done channel identifies the session: a loop abandoned by a timed-out
// Stop must not clobber the state of its replacement.
func (e *Engine) markStopped(done chan struct{}) {
	e.mu.Lock()
	if e.done == done {
		e.streaming = false
	}
	e.mu.Unlock()
}

// score turns one record into a scoring result. Every record gets a feature
// vector first: the fitted pipeline's when the trained ensemble is usable,
// the record's hand-built fallback encoding otherwise. The trained model
// scores the former; anything else falls to the rule-based scorer, so a
// record is never lost for want of a model.
func (e *Engine) score(rec *model.Record, cfg model.StreamConfig, source string, rng *rand.Rand) model.ScoringResult {
	pipe := e.registry.Pipeline()
	useModel := pipe.Fitted() && e.registry.HasEnsemble()

	var vec []float64
	if useModel {
		v, err := pipe.Vectorize(rec)
		if err != nil {
			log.Printf("Vectorize failed, falling back to rule scoring: %v", err)
			useModel = false
		} else {
			vec = v
		}
	}
	if !useModel {
		vec = rec.FallbackVector()
	}

	prediction, probability, scoredBy := e.modelScore(pipe, vec, cfg.Model, useModel)
	if scoredBy == "" {
		probability, prediction = ruleScore(rec, rng)
		scoredBy = "rules"
	}

	return model.ScoringResult{
		Timestamp:   time.Now(),
		Source:      source,
		Record:      *rec,
		Prediction:  prediction,
		Probability: probability,
		ThreatLevel: model.ThreatLevelFor(probability),
		Model:       scoredBy,
	}
}

// modelScore asks the registry for class probabilities and folds them into
// an attack probability. An empty scoredBy tells the caller to use rules.
func (e *Engine) modelScore(pipe *pipeline.Pipeline, vec []float64, name string, usable bool) (prediction int, probability float64, scoredBy string) {
	if !usable {
		return 0, 0, ""
	}
	probs, err := e.registry.PredictProba([][]float64{vec}, name)
	if err != nil || len(probs) == 0 || len(probs[0]) == 0 {
		if err != nil {
			log.Printf("Model scoring failed, falling back to rule scoring: %v", err)
		}
		return 0, 0, ""
	}
	best, bestP := 0, probs[0][0]
	for k, p := range probs[0] {
		if p > bestP {
			best, bestP = k, p
		}
	}
	return pipe.AttackLabel(best), pipe.AttackProbability(probs[0]), name
}

// ruleScore is the deterministic fallback scorer: a weighted sum of
// suspicious indicators plus bounded jitter, clamped to [0,1]. The label is
// attack when the score clears 0.5.
func ruleScore(rec *model.Record, rng *rand.Rand) (float64, int) {
	score := 0.1
	if rec.SrcBytes > 5000 {
		score += 0.3
	}
	if rec.Duration < 0.1 {
		score += 0.2
	}
	if rec.SerrorRate > 0.5 {
		score += 0.3
	}
	if rec.Count > 100 {
		score += 0.2
	}
	score += (rng.Float64()*2 - 1) * 0.1
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}
	label := 0
	if score > 0.5 {
		label = 1
	}
	return score, label
}

// publish buffers the result, gates the alert, and hands both to the event
// sink and writer. Buffer updates happen under the lock; emission happens
// outside it so a slow sink cannot stall status queries.
func (e *Engine) publish(res model.ScoringResult) {
	e.mu.Lock()
	e.results.Push(res)
	e.processed++
	var alert *model.Alert
	if res.Probability >= e.threshold {
		e.alertSeq++
		a := model.Alert{
			ID:          e.alertSeq,
			Timestamp:   res.Timestamp,
			ThreatLevel: res.ThreatLevel,
			Probability: res.Probability,
			Record:      res.Record,
			Message:     fmt.Sprintf("High threat detected! Probability: %.2f%%", res.Probability*100),
		}
		e.alerts.Push(a)
		alert = &a
	}
	e.mu.Unlock()

	if e.events != nil {
		e.events.Publish(model.Event{Type: model.EventNetworkData, Timestamp: res.Timestamp, Payload: res})
	}
	if e.writer != nil {
		e.writer.RecordScore(res)
	}
	if alert != nil {
		log.Printf("Alert #%d (%s): probability %.2f from %s", alert.ID, alert.ThreatLevel, alert.Probability, res.Source)
		if e.events != nil {
			e.events.Publish(model.Event{Type: model.EventSecurityAlert, Timestamp: alert.Timestamp, Payload: *alert})
		}
		if e.writer != nil {
			e.writer.RecordAlert(*alert)
		}
	}
}

// sleepCtx pauses for d or returns early on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
