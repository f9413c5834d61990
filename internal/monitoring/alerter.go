package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/axservices/credibility-engine/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertJobFailure AlertType = "job_failure"
	AlertErrorRate  AlertType = "error_rate"
	AlertStaleSweep AlertType = "stale_sweep"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	failed := snap.SweepFailed + snap.RecomputeFailed
	if failed > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertJobFailure,
			Severity: "high",
			Message: fmt.Sprintf(
				"%d batch job run(s) failed in last %dh (%d sweep, %d recompute)",
				failed, snap.LookbackHours, snap.SweepFailed, snap.RecomputeFailed,
			),
			Details: map[string]any{
				"sweep_failed":     snap.SweepFailed,
				"recompute_failed": snap.RecomputeFailed,
			},
			Timestamp: now,
		})
	}

	if rate := snap.ErrorRate(); a.cfg.ErrorRateThreshold > 0 && rate > a.cfg.ErrorRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertErrorRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Per-provider error rate %.1f%% exceeds threshold %.1f%% in last %dh",
				rate*100, a.cfg.ErrorRateThreshold*100, snap.LookbackHours,
			),
			Details: map[string]any{
				"error_rate":       rate,
				"threshold":        a.cfg.ErrorRateThreshold,
				"sweep_errors":     snap.SweepErrors,
				"recompute_errors": snap.RecomputeErrors,
			},
			Timestamp: now,
		})
	}

	if a.cfg.StaleSweepHours > 0 {
		staleCutoff := now.Add(-time.Duration(a.cfg.StaleSweepHours) * time.Hour)
		if snap.LastSweepAt.Before(staleCutoff) {
			alerts = append(alerts, Alert{
				Type:     AlertStaleSweep,
				Severity: "high",
				Message: fmt.Sprintf(
					"No badge sweep completed in the last %dh; dynamic badges may be stale",
					a.cfg.StaleSweepHours,
				),
				Details: map[string]any{
					"last_sweep_at":     snap.LastSweepAt,
					"stale_sweep_hours": a.cfg.StaleSweepHours,
				},
				Timestamp: now,
			})
		}
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
