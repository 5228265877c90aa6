package metrics

import (
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestMetricsExportsCounters(t *testing.T) {
	m := New()
	m.ObserveRequest("POST", "/api/users/login", 201, 20*time.Millisecond)
	m.RateLimited("login")
	m.RateLimited("login")
	m.AuthFailure("bad_credentials")
	m.EmailSent()
	m.EmailFailed()

	mfs, err := m.Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := counterValue(mfs, "footballapp_rate_limited_total", "category", "login"); err != nil || got != 2 {
		t.Fatalf("expected rate_limited=2, got %f (%v)", got, err)
	}
	if got, err := counterValue(mfs, "footballapp_http_requests_total", "status", "201"); err != nil || got != 1 {
		t.Fatalf("expected one 201 request, got %f (%v)", got, err)
	}
	if got, err := counterValue(mfs, "footballapp_auth_failures_total", "reason", "bad_credentials"); err != nil || got != 1 {
		t.Fatalf("expected one auth failure, got %f (%v)", got, err)
	}
	if got, err := counterValue(mfs, "footballapp_emails_sent_total", "", ""); err != nil || got != 1 {
		t.Fatalf("expected one email sent, got %f (%v)", got, err)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", "/", 200, time.Millisecond)
	m.RateLimited("general")
	m.AuthFailure("x")
	m.EmailSent()
	m.EmailFailed()
}

func TestMetricsHandler(t *testing.T) {
	m := New()
	m.RateLimited("register")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `footballapp_rate_limited_total{category="register"} 1`) {
		t.Fatalf("expected rate limit metric in output")
	}
}

func counterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if label == "" || hasLabel(metric.GetLabel(), label, value) {
				return metric.GetCounter().GetValue(), nil
			}
		}
		return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
	}
	return 0, fmt.Errorf("metric %q not found", name)
}

func hasLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, l := range labels {
		if l.GetName() == name && l.GetValue() == value {
			return true
		}
	}
	return false
}
