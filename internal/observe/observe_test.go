package observe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumFor(t *testing.T, m *metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s is %T, want Sum[int64]", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestRecordSubmission(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSubmission(ctx, true, "A")
	m.RecordSubmission(ctx, true, "A")
	m.RecordSubmission(ctx, false, "")
	m.RecordGrade(ctx, "B", "teacher")

	rm := collect(t, reader)
	subs := findMetric(rm, "speakwell.submissions")
	if subs == nil {
		t.Fatal("submissions metric not recorded")
	}
	if got := sumFor(t, subs, "outcome", "assessed"); got != 2 {
		t.Errorf("assessed = %d, want 2", got)
	}
	if got := sumFor(t, subs, "outcome", "unassessed"); got != 1 {
		t.Errorf("unassessed = %d, want 1", got)
	}

	grades := findMetric(rm, "speakwell.grades")
	if grades == nil {
		t.Fatal("grades metric not recorded")
	}
	if got := sumFor(t, grades, "grade", "A"); got != 2 {
		t.Errorf("grade A = %d, want 2", got)
	}
	if got := sumFor(t, grades, "source", "teacher"); got != 1 {
		t.Errorf("teacher grades = %d, want 1", got)
	}
}

func TestRecordAssessmentCountsErrors(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAssessment(ctx, "azure", 0.4, nil)
	m.RecordAssessment(ctx, "azure", 1.2, errors.New("timeout"))

	rm := collect(t, reader)
	errs := findMetric(rm, "speakwell.assessment.errors")
	if errs == nil {
		t.Fatal("assessment errors not recorded")
	}
	if got := sumFor(t, errs, "provider", "azure"); got != 1 {
		t.Errorf("errors = %d, want 1", got)
	}

	dur := findMetric(rm, "speakwell.assessment.duration")
	if dur == nil {
		t.Fatal("assessment duration not recorded")
	}
	hist := dur.Data.(metricdata.Histogram[float64])
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 2 {
		t.Errorf("duration datapoints = %+v, want one point with count 2", hist.DataPoints)
	}
}

func TestInitProvider(t *testing.T) {
	shutdown, err := InitProvider(context.Background(), "speakwell", "dev")
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestMiddlewareRecordsRoute(t *testing.T) {
	m, reader := newTestMetrics(t)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/words/{word}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := Middleware(m)(mux)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/words/hello", nil))
	if rr.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", rr.Code)
	}

	rm := collect(t, reader)
	dur := findMetric(rm, "speakwell.http.request.duration")
	if dur == nil {
		t.Fatal("http duration not recorded")
	}
	hist := dur.Data.(metricdata.Histogram[float64])
	if len(hist.DataPoints) != 1 {
		t.Fatalf("datapoints = %d, want 1", len(hist.DataPoints))
	}
	route, _ := hist.DataPoints[0].Attributes.Value("route")
	if route.AsString() != "GET /api/words/{word}" {
		t.Errorf("route = %q", route.AsString())
	}
	status, _ := hist.DataPoints[0].Attributes.Value("status")
	if status.AsInt64() != http.StatusTeapot {
		t.Errorf("status attribute = %d", status.AsInt64())
	}
}
