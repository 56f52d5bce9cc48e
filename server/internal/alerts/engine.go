package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/renderworks/plantops/server/internal/compute"
	"github.com/renderworks/plantops/server/internal/config"
	"github.com/renderworks/plantops/server/internal/refresh"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	FactoryID  string     `json:"factory_id"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"` // "firing" | "resolved"
}

// Source computes a factory's metrics. *dashboard.Service satisfies it.
type Source interface {
	Today(factory string, now time.Time) compute.Output
}

// Engine evaluates alert rules against each factory's daily metrics and
// delivers webhook notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	rules    []config.AlertRule
	webhooks []config.WebhookConfig
	active   map[string]*Alert    // key: "ruleName:factoryID"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts

	client *http.Client
	now    func() time.Time
}

// New creates an Engine from the server alert configuration.
// An Engine with empty rules is valid; Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) *Engine {
	return &Engine{
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
}

// SetConfig replaces the rules and webhooks. Alerts of rules that no longer
// exist are dropped without a resolve notification.
func (e *Engine) SetConfig(cfg config.AlertsConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = cfg.Rules
	e.webhooks = cfg.Webhooks

	names := make(map[string]bool, len(cfg.Rules))
	for _, r := range cfg.Rules {
		names[r.Name] = true
	}
	for key, a := range e.active {
		if !names[a.RuleName] {
			delete(e.active, key)
			delete(e.lastFire, key)
		}
	}
}

// Evaluate tests all configured rules against out.
// Alerts that fire are stored and webhook delivery is triggered asynchronously.
// Alerts that were firing but whose condition is now false are resolved.
func (e *Engine) Evaluate(out compute.Output) {
	e.mu.Lock()
	rules := e.rules
	e.mu.Unlock()
	if len(rules) == 0 {
		return
	}

	now := e.now()
	for _, rule := range rules {
		key := rule.Name + ":" + out.FactoryID
		fires, value := evalCondition(rule.Condition, out)

		if fires {
			if a := e.fire(key, rule, out.FactoryID, value, now); a != nil {
				slog.Warn("alerts: alert fired",
					"rule", rule.Name,
					"factory", out.FactoryID,
					"value", value,
					"severity", a.Severity,
				)
				go e.deliver(a)
			}
			continue
		}
		if a := e.resolve(key, now); a != nil {
			slog.Info("alerts: alert resolved",
				"rule", rule.Name,
				"factory", out.FactoryID,
			)
			go e.deliver(a)
		}
	}
}

// fire records a firing alert unless it is already firing or in cooldown.
// It returns a copy of the new alert, or nil.
func (e *Engine) fire(key string, rule config.AlertRule, factory string, value float64, now time.Time) *Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, firing := e.active[key]; firing {
		return nil
	}
	cooldown := rule.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	if last, ok := e.lastFire[key]; ok && now.Sub(last) <= cooldown {
		return nil
	}

	sev := rule.Severity
	if sev == "" {
		sev = "warning"
	}
	a := &Alert{
		ID:        uuid.NewString(),
		RuleName:  rule.Name,
		FactoryID: factory,
		Severity:  sev,
		Value:     value,
		Message: fmt.Sprintf("[%s] %s fired on %s: %s (value %.2f)",
			sev, rule.Name, factory, rule.Condition, value),
		FiredAt: now,
		State:   "firing",
	}
	e.active[key] = a
	e.lastFire[key] = now
	cp := *a
	return &cp
}

// resolve moves a firing alert to history. It returns a copy, or nil when
// nothing was firing under key.
func (e *Engine) resolve(key string, now time.Time) *Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.active[key]
	if !ok {
		return nil
	}
	resolved := now
	a.State = "resolved"
	a.ResolvedAt = &resolved
	delete(e.active, key)

	e.history = append(e.history, a)
	if len(e.history) > maxHistoryLen {
		e.history = e.history[len(e.history)-maxHistoryLen:]
	}
	cp := *a
	return &cp
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// Monitor evaluates factory's metrics on every tick of d until ctx is
// cancelled. The tick function never reports active, so d always runs at its
// idle cadence.
func (e *Engine) Monitor(ctx context.Context, src Source, factory string, d refresh.Driver) {
	slog.Info("alerts: monitoring factory", "factory", factory, "interval", d.Cadence(false))
	d.Run(ctx, func(now time.Time) bool {
		e.Evaluate(src.Today(factory, now))
		return false
	})
}
