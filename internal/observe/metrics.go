// Package observe holds the OpenTelemetry metric instruments for the service
// and the HTTP middleware that records request latency and logs requests.
//
// Tests should build a Metrics with NewMetrics and their own MeterProvider;
// production code uses InitProvider, which exports through Prometheus.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "speakwell"

// Metrics holds all metric instruments. The OTel types are safe for
// concurrent use.
type Metrics struct {
	// Submissions counts recordings by assessment outcome:
	//   attribute.String("outcome", "assessed"|"unassessed")
	Submissions metric.Int64Counter

	// Grades counts automated and teacher grades:
	//   attribute.String("grade", ...), attribute.String("source", "automated"|"teacher")
	Grades metric.Int64Counter

	// AssessmentDuration tracks provider latency in seconds.
	AssessmentDuration metric.Float64Histogram

	// AssessmentErrors counts failed provider calls:
	//   attribute.String("provider", ...)
	AssessmentErrors metric.Int64Counter

	// ProgressUpdates counts daily progress records written.
	ProgressUpdates metric.Int64Counter

	// DictionaryLookups counts lookups:
	//   attribute.String("result", "found"|"not_found"|"error")
	DictionaryLookups metric.Int64Counter

	// HTTPRequestDuration tracks request handling time:
	//   attribute.String("method", ...), attribute.String("route", ...), attribute.Int("status", ...)
	HTTPRequestDuration metric.Float64Histogram
}

var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Submissions, err = m.Int64Counter("speakwell.submissions",
		metric.WithDescription("Recordings submitted, by assessment outcome."),
	); err != nil {
		return nil, err
	}
	if met.Grades, err = m.Int64Counter("speakwell.grades",
		metric.WithDescription("Grades assigned, by grade and source."),
	); err != nil {
		return nil, err
	}
	if met.AssessmentDuration, err = m.Float64Histogram("speakwell.assessment.duration",
		metric.WithDescription("Latency of pronunciation assessment calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AssessmentErrors, err = m.Int64Counter("speakwell.assessment.errors",
		metric.WithDescription("Failed pronunciation assessment calls."),
	); err != nil {
		return nil, err
	}
	if met.ProgressUpdates, err = m.Int64Counter("speakwell.progress.updates",
		metric.WithDescription("Daily progress records updated."),
	); err != nil {
		return nil, err
	}
	if met.DictionaryLookups, err = m.Int64Counter("speakwell.dictionary.lookups",
		metric.WithDescription("Dictionary lookups by result."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("speakwell.http.request.duration",
		metric.WithDescription("HTTP request processing time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a Metrics bound to the global MeterProvider. It is
// created on first use, so InitProvider must run before it for the
// instruments to be exported.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordSubmission counts one submission and its automated grade.
func (m *Metrics) RecordSubmission(ctx context.Context, assessed bool, grade string) {
	outcome := "unassessed"
	if assessed {
		outcome = "assessed"
	}
	m.Submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.RecordGrade(ctx, grade, "automated")
}

// RecordGrade counts one grade from the given source.
func (m *Metrics) RecordGrade(ctx context.Context, grade, source string) {
	if grade == "" {
		return
	}
	m.Grades.Add(ctx, 1, metric.WithAttributes(
		attribute.String("grade", grade),
		attribute.String("source", source),
	))
}

// RecordAssessment records one provider call and counts it as an error when
// err is non-nil.
func (m *Metrics) RecordAssessment(ctx context.Context, provider string, seconds float64, err error) {
	attrs := metric.WithAttributes(attribute.String("provider", provider))
	m.AssessmentDuration.Record(ctx, seconds, attrs)
	if err != nil {
		m.AssessmentErrors.Add(ctx, 1, attrs)
	}
}

// RecordDictionaryLookup counts one lookup with its result.
func (m *Metrics) RecordDictionaryLookup(ctx context.Context, result string) {
	m.DictionaryLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
