package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/renderworks/plantops/server/internal/config"
)

// severityStyle is how a severity renders in chat notifications.
type severityStyle struct {
	label string
	color string
}

var severityStyles = map[string]severityStyle{
	"critical": {label: "CRITICAL", color: "D7263D"},
	"warning":  {label: "WARNING", color: "F49D37"},
	"info":     {label: "INFO", color: "3F88C5"},
}

func styleOf(severity string) severityStyle {
	if s, ok := severityStyles[severity]; ok {
		return s
	}
	return severityStyles["info"]
}

// payloads renders an alert into the request body of each webhook type.
var payloads = map[string]func(a *Alert) interface{}{
	"slack": func(a *Alert) interface{} {
		return map[string]string{"text": headline(a) + "\n" + a.Message}
	},
	"teams": func(a *Alert) interface{} {
		return map[string]interface{}{
			"@type":      "MessageCard",
			"@context":   "http://schema.org/extensions",
			"themeColor": styleOf(a.Severity).color,
			"summary":    a.RuleName,
			"title":      headline(a),
			"text":       a.Message,
		}
	},
	"http": func(a *Alert) interface{} {
		return map[string]interface{}{"alert": a}
	},
}

// headline is the one-line summary used by chat webhooks, e.g.
// "[CRITICAL] north: over-consumption firing".
func headline(a *Alert) string {
	return fmt.Sprintf("[%s] %s: %s %s", styleOf(a.Severity).label, a.FactoryID, a.RuleName, a.State)
}

// deliver posts a to every configured webhook. Failures are logged only.
func (e *Engine) deliver(a *Alert) {
	e.mu.Lock()
	targets := e.webhooks
	e.mu.Unlock()

	for _, wh := range targets {
		if err := e.notify(wh, a); err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type,
				"rule", a.RuleName,
				"factory", a.FactoryID,
				"err", err,
			)
		}
	}
}

// notify sends one alert to one webhook. A webhook whose URL is unset is skipped.
func (e *Engine) notify(wh config.WebhookConfig, a *Alert) error {
	url := wh.URL()
	if url == "" {
		return nil
	}
	render, ok := payloads[wh.Type]
	if !ok {
		return fmt.Errorf("unknown webhook type %q", wh.Type)
	}
	body, err := json.Marshal(render(a))
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", wh.Type, err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	slog.Debug("alerts: webhook delivered", "type", wh.Type, "rule", a.RuleName, "state", a.State)
	return nil
}
