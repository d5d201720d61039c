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

	"github.com/sells-group/recap-cli/internal/config"
	"github.com/sells-group/recap-cli/internal/cost"
	"github.com/sells-group/recap-cli/internal/model"
	"github.com/sells-group/recap-cli/internal/pipeline"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertErrorRate     AlertType = "summary_error_rate"
	AlertNoTranscripts AlertType = "no_transcripts"
	AlertCostOverrun   AlertType = "cost_overrun"
)

// minVideosForRate is the smallest run whose error rate is evaluated.
const minVideosForRate = 4

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	RunID     string         `json:"run_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// RunSnapshot is the end-of-run view the alerter evaluates.
type RunSnapshot struct {
	RunID      string
	Videos     int
	Errors     int
	Skipped    int
	Scrubbed   int
	ErrorRate  float64
	CostUSD    float64
	LLMCalls   int
	BudgetUSD  float64
	FinishedAt time.Time
	BySource   map[string]int
}

// NewRunSnapshot combines a pipeline report with the run's LLM usage.
func NewRunSnapshot(r pipeline.Report, usage cost.Usage, budgetUSD float64) *RunSnapshot {
	snap := &RunSnapshot{
		RunID:      r.RunID,
		Videos:     r.Videos,
		Errors:     r.ByStatus[string(model.SummaryStatusError)],
		Skipped:    r.ByStatus[string(model.SummaryStatusSkipped)],
		Scrubbed:   r.Scrubbed,
		CostUSD:    usage.CostUSD,
		LLMCalls:   usage.Calls,
		BudgetUSD:  budgetUSD,
		FinishedAt: r.FinishedAt,
		BySource:   r.BySource,
	}
	if r.Videos > 0 {
		snap.ErrorRate = float64(snap.Errors) / float64(r.Videos)
	}
	return snap
}

// Alerter evaluates a RunSnapshot against configured thresholds
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
func (a *Alerter) Evaluate(snap *RunSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	// Summarizer failure rate.
	if snap.Videos >= minVideosForRate && a.cfg.ErrorRateThreshold > 0 && snap.ErrorRate > a.cfg.ErrorRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertErrorRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Summary error rate %.1f%% exceeds threshold %.1f%% (%d of %d videos)",
				snap.ErrorRate*100, a.cfg.ErrorRateThreshold*100, snap.Errors, snap.Videos,
			),
			RunID: snap.RunID,
			Details: map[string]any{
				"error_rate": snap.ErrorRate,
				"threshold":  a.cfg.ErrorRateThreshold,
				"errors":     snap.Errors,
				"videos":     snap.Videos,
			},
			Timestamp: now,
		})
	}

	// Every stage came back empty for every video. Usually an IP block.
	if snap.Videos > 0 && snap.Skipped == snap.Videos {
		alerts = append(alerts, Alert{
			Type:     AlertNoTranscripts,
			Severity: "high",
			Message:  fmt.Sprintf("No transcript found for any of %d videos", snap.Videos),
			RunID:    snap.RunID,
			Details: map[string]any{
				"videos":    snap.Videos,
				"by_source": snap.BySource,
			},
			Timestamp: now,
		})
	}

	// Cost overrun.
	if a.cfg.CostThresholdUSD > 0 && snap.CostUSD > a.cfg.CostThresholdUSD {
		alerts = append(alerts, Alert{
			Type:     AlertCostOverrun,
			Severity: "medium",
			Message: fmt.Sprintf(
				"LLM cost $%.2f exceeds threshold $%.2f (%d calls)",
				snap.CostUSD, a.cfg.CostThresholdUSD, snap.LLMCalls,
			),
			RunID: snap.RunID,
			Details: map[string]any{
				"cost_usd":      snap.CostUSD,
				"threshold_usd": a.cfg.CostThresholdUSD,
				"budget_usd":    snap.BudgetUSD,
				"calls":         snap.LLMCalls,
			},
			Timestamp: now,
		})
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

// Check evaluates snap, logs every alert, and delivers them. It returns
// the alerts raised whether or not a webhook is configured.
func (a *Alerter) Check(ctx context.Context, snap *RunSnapshot) []Alert {
	alerts := a.Evaluate(snap)
	for _, al := range alerts {
		zap.L().Warn("monitoring: "+al.Message,
			zap.String("type", string(al.Type)),
			zap.String("run_id", al.RunID),
		)
	}
	a.SendAlerts(ctx, alerts)
	return alerts
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
