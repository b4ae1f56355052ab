package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/spigell/candidate-screener/internal/scoring"
	"github.com/spigell/candidate-screener/internal/unified"
)

func find(t *testing.T, registry *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func counterValue(f *dto.MetricFamily, label, value string) float64 {
	if f == nil {
		return 0
	}
	for _, m := range f.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == label && l.GetValue() == value {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestObserve(t *testing.T) {
	registry := prometheus.NewRegistry()
	rec := New(WithRegistry(registry), WithNamespace("test"))

	rec.Observe(scoring.Result{Action: scoring.ActionGreet, Score: 90, Policy: scoring.PolicyWeighted})
	rec.Observe(scoring.Result{Action: scoring.ActionGreet, Score: 80, Policy: scoring.PolicyWeighted})
	rec.Observe(scoring.Result{
		Action:         scoring.ActionSkip,
		Policy:         scoring.PolicyWeighted,
		HardRejected:   true,
		RejectReason:   scoring.ReasonPosition,
		RejectCategory: unified.Position,
	})
	rec.Observe(scoring.Result{
		Action:         scoring.ActionSkip,
		Policy:         scoring.PolicyWeighted,
		HardRejected:   true,
		RejectReason:   "rule city-7f3a failed",
		RejectCategory: unified.Generic,
	})

	decisions := find(t, registry, "test_decisions_total")
	if got := counterValue(decisions, "action", "greet"); got != 2 {
		t.Fatalf("expected 2 greets, got %v", got)
	}
	if got := counterValue(decisions, "action", "skip"); got != 2 {
		t.Fatalf("expected 2 skips, got %v", got)
	}

	hard := find(t, registry, "test_hard_rejections_total")
	if got := counterValue(hard, "category", string(unified.Position)); got != 1 {
		t.Fatalf("expected 1 position rejection, got %v", got)
	}
	if got := counterValue(hard, "category", string(unified.Generic)); got != 1 {
		t.Fatalf("expected 1 generic rejection, got %v", got)
	}
	if n := len(hard.GetMetric()); n != 2 {
		t.Fatalf("expected one series per category, got %d", n)
	}

	scores := find(t, registry, "test_score")
	if scores == nil || scores.GetMetric()[0].GetHistogram().GetSampleCount() != 4 {
		t.Fatalf("expected 4 score samples")
	}
}

func TestFiltered(t *testing.T) {
	rec := New()
	rec.Filtered("contacted", 3)
	rec.Filtered("contacted", 0)

	f := find(t, rec.Registry(), "screener_filtered_total")
	if got := counterValue(f, "step", "contacted"); got != 3 {
		t.Fatalf("expected 3, got %v", got)
	}
}

func TestNilRecorder(t *testing.T) {
	var rec *Recorder
	rec.Observe(scoring.Result{})
	rec.Filtered("x", 1)
	if err := rec.WriteTextfile("/nonexistent/file"); err != nil {
		t.Fatalf("nil recorder must not write: %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	rec := New()
	rec.Observe(scoring.Result{Action: scoring.ActionManual, Policy: scoring.PolicyStagedKeyword})

	path := filepath.Join(t.TempDir(), "screener.prom")
	if err := rec.WriteTextfile(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `screener_decisions_total{action="manual",policy="staged-keyword"} 1`) {
		t.Fatalf("unexpected textfile:\n%s", data)
	}
}
