package loop

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/loopback-labs/sentinel-loop/internal/actions"
	"github.com/loopback-labs/sentinel-loop/internal/collector"
	"github.com/loopback-labs/sentinel-loop/internal/config"
	"github.com/loopback-labs/sentinel-loop/internal/detector"
	"github.com/loopback-labs/sentinel-loop/internal/executor"
	"github.com/loopback-labs/sentinel-loop/internal/governor"
	"github.com/loopback-labs/sentinel-loop/internal/metrics"
	"github.com/loopback-labs/sentinel-loop/internal/models"
	"github.com/loopback-labs/sentinel-loop/internal/store"
	"github.com/loopback-labs/sentinel-loop/internal/utils"
)

// purgeEvery sets how often the retention sweep runs between ticks.
const purgeEvery = 24 * time.Hour

// Orchestrator drives the control loop: each tick collects self metrics,
// detects anomalies over the trailing window, admits candidate actions
// through the governor, and executes admitted actions concurrently. A tick
// always waits for its executions before the next tick starts, so the
// governor's count is settled whenever a tick reads it.
type Orchestrator struct {
	logger     *slog.Logger
	cfg        config.LoopConfig
	store      store.Store
	detector   *detector.Detector
	governor   *governor.Governor
	executor   *executor.Executor
	collectors []collector.Collector

	latencies *utils.LatencyTracker
	lastPurge time.Time
	ticks     int

	now func() time.Time
}

// New assembles the orchestrator from its collaborators.
func New(
	logger *slog.Logger,
	cfg config.LoopConfig,
	st store.Store,
	det *detector.Detector,
	gov *governor.Governor,
	exec *executor.Executor,
	collectors []collector.Collector,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		logger:     logger,
		cfg:        cfg,
		store:      st,
		detector:   det,
		governor:   gov,
		executor:   exec,
		collectors: collectors,
		latencies:  utils.NewLatencyTracker(512),
		now:        time.Now,
	}
}

// Run ticks every collection interval until ctx is cancelled. A failing tick
// never stops the loop.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.CollectionInterval)
	defer ticker.Stop()

	o.logger.Info("control loop started",
		slog.Duration("interval", o.cfg.CollectionInterval),
		slog.Duration("window", o.cfg.AnalysisWindow))

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("control loop stopped")
			return
		case <-ticker.C:
			o.Tick(ctx)
		}
	}
}

// Tick executes one collect → detect → dispatch pass. Failures in one stage
// or for one metric type are isolated; the rest of the tick proceeds.
func (o *Orchestrator) Tick(ctx context.Context) {
	start := o.now()
	outcome := metrics.OutcomeSuccess

	if err := o.collect(ctx); err != nil {
		outcome = metrics.OutcomeError
	}

	windowEnd := o.now()
	windowStart := windowEnd.Add(-o.cfg.AnalysisWindow)
	events := o.detector.Detect(ctx, windowStart, windowEnd)

	admitted := o.admit(events)
	o.execute(ctx, admitted)

	o.maybePurge(ctx)

	duration := o.now().Sub(start)
	o.latencies.Observe(duration)
	metrics.ObserveTick(duration, outcome)

	o.ticks++
	if o.ticks%20 == 0 {
		o.logger.Info("tick latency",
			slog.Duration("p95", o.latencies.Percentile(95)),
			slog.Int("samples", o.latencies.Count()))
	}
}

// collect runs every registered producer and records its samples. A failing
// collector or a storage write failure is logged and skipped.
func (o *Orchestrator) collect(ctx context.Context) error {
	var firstErr error
	for _, c := range o.collectors {
		samples, err := c.Collect(ctx)
		if err != nil {
			o.logger.Warn("collector failed", slog.String("collector", c.Name()), slog.Any("error", err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, sample := range samples {
			if _, err := o.store.Record(ctx, sample); err != nil {
				o.logger.Warn("failed to record collected metric",
					slog.String("metric_type", string(sample.Type)), slog.Any("error", err))
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	return firstErr
}

type dispatch struct {
	action  models.CorrectiveAction
	handler actions.Handler
}

// admit runs admission sequentially for the tick's events, which keeps the
// cap check trivially race-free across event bursts.
func (o *Orchestrator) admit(events []models.AnomalyEvent) []dispatch {
	admitted := make([]dispatch, 0, len(events))
	for _, event := range events {
		action, def, decision := o.governor.Admit(event)
		if decision != governor.Admitted {
			continue
		}
		o.logger.Info("corrective action admitted",
			slog.String("action_id", action.ID),
			slog.String("action_type", string(action.Type)),
			slog.String("metric_type", string(event.MetricType)),
			slog.String("severity", string(event.Severity)))
		admitted = append(admitted, dispatch{action: action, handler: def.Handler})
	}
	return admitted
}

// execute runs admitted actions in parallel and waits for all of them. The
// governor already bounded how many exist, so no extra pool is needed.
func (o *Orchestrator) execute(ctx context.Context, admitted []dispatch) {
	if len(admitted) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, d := range admitted {
		wg.Add(1)
		go func(d dispatch) {
			defer wg.Done()
			defer o.governor.Finish(d.action.Type)
			o.executor.Execute(ctx, d.action, d.handler)
		}(d)
	}
	wg.Wait()
}

// maybePurge sweeps expired metrics on a slow cadence.
func (o *Orchestrator) maybePurge(ctx context.Context) {
	now := o.now()
	if !o.lastPurge.IsZero() && now.Sub(o.lastPurge) < purgeEvery {
		return
	}
	o.lastPurge = now

	cutoff := now.AddDate(0, 0, -o.cfg.RetentionDays)
	removed, err := o.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		o.logger.Warn("retention sweep failed", slog.Any("error", err))
		return
	}
	if removed > 0 {
		o.logger.Info("retention sweep removed expired metrics",
			slog.Int("removed", removed), slog.Time("cutoff", cutoff))
	}
}
