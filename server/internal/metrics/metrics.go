// Package metrics exposes each factory's daily figures in the Prometheus text
// exposition format at /metrics. Values are recomputed on every scrape; the
// package keeps no state of its own.
package metrics

import (
	"log/slog"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/renderworks/plantops/server/internal/compute"
)

// Source computes a factory's metrics. *dashboard.Service satisfies it.
type Source interface {
	Today(factory string, now time.Time) compute.Output
}

type gauge struct {
	name  string
	help  string
	value func(compute.Output) float64
}

var gauges = []gauge{
	{"plantops_net_active_minutes", "Net active processing minutes today.",
		func(o compute.Output) float64 { return o.NetActiveMinutes }},
	{"plantops_rate_tonnes_per_hour", "Throughput rate today in tonnes per hour.",
		func(o compute.Output) float64 { return o.RateTon }},
	{"plantops_remaining_kg", "Raw material received minus consumed today, in kg. Negative on over-consumption.",
		func(o compute.Output) float64 { return o.RemainingKg }},
	{"plantops_consumption_kg", "Raw material consumed today in kg.",
		func(o compute.Output) float64 { return o.TotalConsumption }},
	{"plantops_received_kg", "Raw material received today in kg.",
		func(o compute.Output) float64 { return o.ReceivedKg }},
	{"plantops_cycle_open", "1 while a cooking cycle is open.",
		func(o compute.Output) float64 { return boolValue(o.Display.IsActive) }},
	{"plantops_line_stopped", "1 while the line is stopped during an open cycle.",
		func(o compute.Output) float64 { return boolValue(o.Display.IsStopped) }},
}

// Families computes one gauge family per figure, labelled by factory.
func Families(src Source, factories []string, now time.Time) []*dto.MetricFamily {
	outs := make([]compute.Output, len(factories))
	for i, f := range factories {
		outs[i] = src.Today(f, now)
	}

	families := make([]*dto.MetricFamily, 0, len(gauges))
	for _, g := range gauges {
		mf := &dto.MetricFamily{
			Name: ptr(g.name),
			Help: ptr(g.help),
			Type: dto.MetricType_GAUGE.Enum(),
		}
		for i, f := range factories {
			mf.Metric = append(mf.Metric, &dto.Metric{
				Label: []*dto.LabelPair{{Name: ptr("factory"), Value: ptr(f)}},
				Gauge: &dto.Gauge{Value: ptr(g.value(outs[i]))},
			})
		}
		families = append(families, mf)
	}
	return families
}

// Handler serves the exposition for factories. A nil now means time.Now.
func Handler(src Source, factories []string, now func() time.Time) http.Handler {
	if now == nil {
		now = time.Now
	}
	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", string(format))
		enc := expfmt.NewEncoder(w, format)
		for _, mf := range Families(src, factories, now()) {
			if len(mf.Metric) == 0 {
				continue // the text format rejects empty families
			}
			if err := enc.Encode(mf); err != nil {
				slog.Warn("metrics: encode family", "family", mf.GetName(), "err", err)
				return
			}
		}
	})
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func ptr[T any](v T) *T { return &v }
