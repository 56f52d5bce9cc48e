package alerts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/renderworks/plantops/server/internal/compute"
	"github.com/renderworks/plantops/server/internal/config"
	"github.com/renderworks/plantops/server/internal/refresh"
)

var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestEvalCondition(t *testing.T) {
	out := compute.Output{
		RateTon:          1.2,
		RemainingKg:      -250,
		NetActiveMinutes: 45,
		TotalConsumption: 5250,
		ReceivedKg:       5000,
		State:            compute.StateStopped,
	}
	tests := []struct {
		cond  string
		fires bool
		value float64
	}{
		{"remaining_kg < 0", true, -250},
		{"remaining_kg >= 0", false, -250},
		{"rate_ton < 1.5", true, 1.2},
		{"net_active_minutes <= 45", true, 45},
		{"consumption_kg > 6000", false, 5250},
		{"received_kg == 5000", true, 5000},
		{"received_kg != 5000", false, 5000},
		{"state == stopped", true, 0},
		{"state != running", true, 0},
		{"state > stopped", false, 0},
		{"unknown_field > 1", false, 0},
		{"rate_ton < abc", false, 0},
		{"rate_ton <", false, 0},
		{"rate_ton ~ 1", false, 1.2},
	}
	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			fires, v := evalCondition(tt.cond, out)
			if fires != tt.fires || v != tt.value {
				t.Errorf("got (%v, %v), want (%v, %v)", fires, v, tt.fires, tt.value)
			}
		})
	}
}

func newTestEngine(rules ...config.AlertRule) (*Engine, *time.Time) {
	e := New(config.AlertsConfig{Rules: rules})
	clock := baseTime
	e.now = func() time.Time { return clock }
	return e, &clock
}

var overConsumption = config.AlertRule{Name: "over-consumption", Condition: "remaining_kg < 0", Severity: "critical"}

func TestEngine_FireAndResolve(t *testing.T) {
	e, clock := newTestEngine(overConsumption)

	e.Evaluate(compute.Output{FactoryID: "north", RemainingKg: -10})
	active := e.Active()
	if len(active) != 1 || active[0].State != "firing" || active[0].FactoryID != "north" {
		t.Fatalf("after fire: %+v", active)
	}
	if active[0].Severity != "critical" || active[0].Value != -10 {
		t.Errorf("alert = %+v", active[0])
	}

	// Still over: no duplicate.
	*clock = clock.Add(time.Minute)
	e.Evaluate(compute.Output{FactoryID: "north", RemainingKg: -20})
	if n := len(e.Active()); n != 1 {
		t.Errorf("active while still firing: got %d, want 1", n)
	}

	*clock = clock.Add(time.Minute)
	e.Evaluate(compute.Output{FactoryID: "north", RemainingKg: 100})
	active = e.Active()
	if len(active) != 1 || active[0].State != "resolved" || active[0].ResolvedAt == nil {
		t.Fatalf("after resolve: %+v", active)
	}

	// Resolved alerts drop out of Active after an hour.
	*clock = clock.Add(2 * time.Hour)
	if n := len(e.Active()); n != 0 {
		t.Errorf("Active after an hour: got %d, want 0", n)
	}
}

func TestEngine_Cooldown(t *testing.T) {
	rule := overConsumption
	rule.Cooldown = 10 * time.Minute
	e, clock := newTestEngine(rule)

	e.Evaluate(compute.Output{FactoryID: "north", RemainingKg: -1})
	e.Evaluate(compute.Output{FactoryID: "north", RemainingKg: 1}) // resolve

	*clock = clock.Add(5 * time.Minute)
	e.Evaluate(compute.Output{FactoryID: "north", RemainingKg: -1})
	for _, a := range e.Active() {
		if a.State == "firing" {
			t.Fatal("re-fired inside cooldown")
		}
	}

	*clock = clock.Add(6 * time.Minute)
	e.Evaluate(compute.Output{FactoryID: "north", RemainingKg: -1})
	firing := 0
	for _, a := range e.Active() {
		if a.State == "firing" {
			firing++
		}
	}
	if firing != 1 {
		t.Errorf("firing after cooldown: got %d, want 1", firing)
	}
}

func TestEngine_PerFactoryKeys(t *testing.T) {
	e, _ := newTestEngine(overConsumption)
	e.Evaluate(compute.Output{FactoryID: "north", RemainingKg: -1})
	e.Evaluate(compute.Output{FactoryID: "south", RemainingKg: -1})
	if n := len(e.Active()); n != 2 {
		t.Errorf("active: got %d, want 2", n)
	}
}

func TestEngine_NoRules(t *testing.T) {
	e, _ := newTestEngine()
	e.Evaluate(compute.Output{FactoryID: "north", RemainingKg: -1})
	if n := len(e.Active()); n != 0 {
		t.Errorf("active with no rules: got %d", n)
	}
}

func TestEngine_SetConfigDropsRemovedRules(t *testing.T) {
	e, _ := newTestEngine(overConsumption)
	e.Evaluate(compute.Output{FactoryID: "north", RemainingKg: -1})

	e.SetConfig(config.AlertsConfig{Rules: []config.AlertRule{
		{Name: "line-stopped", Condition: "state == stopped"},
	}})
	if n := len(e.Active()); n != 0 {
		t.Errorf("active after rule removal: got %d, want 0", n)
	}
	e.Evaluate(compute.Output{FactoryID: "north", State: compute.StateStopped})
	if a := e.Active(); len(a) != 1 || a[0].RuleName != "line-stopped" || a[0].Severity != "warning" {
		t.Errorf("new rule: %+v", a)
	}
}

func TestEngine_WebhookDelivery(t *testing.T) {
	var (
		mu   sync.Mutex
		got  []map[string]interface{}
		done = make(chan struct{}, 4)
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
		mu.Lock()
		got = append(got, body)
		mu.Unlock()
		done <- struct{}{}
	}))
	defer srv.Close()

	t.Setenv("TEST_SLACK_URL", srv.URL)
	e := New(config.AlertsConfig{
		Rules:    []config.AlertRule{overConsumption},
		Webhooks: []config.WebhookConfig{{Type: "slack", URLEnv: "TEST_SLACK_URL"}},
	})
	e.Evaluate(compute.Output{FactoryID: "north", RemainingKg: -5})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("webhook not delivered")
	}
	mu.Lock()
	defer mu.Unlock()
	text, _ := got[0]["text"].(string)
	if text == "" {
		t.Fatalf("slack payload: %v", got[0])
	}
}

// countingSource counts Today calls.
type countingSource struct {
	mu    sync.Mutex
	calls int
}

func (s *countingSource) Today(factory string, now time.Time) compute.Output {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return compute.Output{FactoryID: factory, RemainingKg: -1}
}

func TestEngine_Monitor(t *testing.T) {
	e, _ := newTestEngine(overConsumption)
	src := &countingSource{}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	e.Monitor(ctx, src, "north", refresh.Driver{Active: time.Millisecond, Idle: 20 * time.Millisecond})

	src.mu.Lock()
	calls := src.calls
	src.mu.Unlock()
	// The idle cadence applies: roughly 100ms/20ms ticks, never the 1ms active rate.
	if calls < 2 || calls > 10 {
		t.Errorf("Today calls: got %d, want between 2 and 10", calls)
	}
	if n := len(e.Active()); n != 1 {
		t.Errorf("active after monitor: got %d, want 1", n)
	}
}

func TestNotify_SkipsAndRejects(t *testing.T) {
	e := New(config.AlertsConfig{})
	a := &Alert{RuleName: "over-consumption", FactoryID: "north", Severity: "critical", State: "firing"}

	if err := e.notify(config.WebhookConfig{Type: "slack"}, a); err != nil {
		t.Errorf("webhook without URL: %v", err)
	}
	t.Setenv("TEST_PAGER_URL", "http://127.0.0.1:1")
	if err := e.notify(config.WebhookConfig{Type: "pager", URLEnv: "TEST_PAGER_URL"}, a); err == nil {
		t.Error("unknown webhook type: expected error")
	}
	if got, want := headline(a), "[CRITICAL] north: over-consumption firing"; got != want {
		t.Errorf("headline = %q, want %q", got, want)
	}
	a.Severity = "bogus"
	if got := styleOf(a.Severity).label; got != "INFO" {
		t.Errorf("unknown severity label = %q, want INFO", got)
	}
}
