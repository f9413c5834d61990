package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/axservices/credibility-engine/internal/config"
)

// Watchdog periodically collects batch-job health, evaluates it against
// the alert thresholds, and delivers any resulting alerts. It runs
// alongside the HTTP server and covers the gap between sweeps: a job that
// silently stops being scheduled is caught here, not by the jobs
// themselves.
type Watchdog struct {
	collector *Collector
	alerter   *Alerter
	interval  time.Duration
	lookback  int
}

// NewWatchdog wires a collector and alerter into a periodic health check.
func NewWatchdog(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Watchdog {
	interval := time.Duration(cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	lookback := cfg.LookbackWindowHours
	if lookback <= 0 {
		lookback = 48
	}
	return &Watchdog{
		collector: collector,
		alerter:   alerter,
		interval:  interval,
		lookback:  lookback,
	}
}

// Run blocks until ctx is cancelled, checking job health every interval.
// The first check happens after one full interval so startup noise (no
// runs recorded yet) does not page anyone.
func (w *Watchdog) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.watchdog"))
	log.Info("job-health watchdog started",
		zap.Duration("interval", w.interval),
		zap.Int("lookback_hours", w.lookback),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("job-health watchdog stopped")
			return
		case <-ticker.C:
			w.checkOnce(ctx, log)
		}
	}
}

func (w *Watchdog) checkOnce(ctx context.Context, log *zap.Logger) {
	snap, err := w.collector.Collect(ctx, w.lookback)
	if err != nil {
		log.Error("health check collect failed", zap.Error(err))
		return
	}

	alerts := w.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		return
	}

	sent := w.alerter.SendAlerts(ctx, alerts)
	log.Warn("job health degraded",
		zap.Int("alerts", len(alerts)),
		zap.Int("delivered", sent),
		zap.Float64("error_rate", snap.ErrorRate()),
		zap.Time("last_sweep_at", snap.LastSweepAt),
	)
}
