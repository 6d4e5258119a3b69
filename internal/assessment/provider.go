// Package assessment scores a recorded utterance against its reference word
// using a speech pronunciation-assessment service.
package assessment

import (
	"context"
	"errors"
	"log/slog"

	"speakwell/internal/config"
	"speakwell/internal/feedback"
)

// Provider assesses the pronunciation of the audio at audioPath against
// referenceText. A returned report without a pronunciation score means the
// audio could not be assessed; an error means the provider itself failed.
type Provider interface {
	Assess(ctx context.Context, audioPath, referenceText string) (*feedback.ScoreReport, error)
}

var (
	// ErrInvalidResponse is returned when the provider's reply does not match
	// the expected shape.
	ErrInvalidResponse = errors.New("invalid assessment response")

	// ErrProviderStatus is returned for non-2xx replies.
	ErrProviderStatus = errors.New("assessment provider returned an error status")
)

// NoSpeechText is stored on reports for audio in which nothing was recognized.
const NoSpeechText = "No speech could be recognized"

// Degraded turns a provider failure into a report the feedback engine can
// still grade: it has no pronunciation score, so the student is asked to
// record again.
func Degraded(err error) *feedback.ScoreReport {
	report := &feedback.ScoreReport{}
	if err != nil {
		report.Error = err.Error()
	}
	return report
}

// New returns the Azure provider when credentials are configured and the
// mock provider otherwise.
func New(cfg *config.Config) Provider {
	if !cfg.AssessmentConfigured() {
		slog.Warn("speech assessment credentials not configured, using mock scores")
		return NewMockProvider()
	}
	return NewAzureProvider(AzureConfig{
		Region:          cfg.AzureRegion,
		SubscriptionKey: cfg.AzureSpeechKey,
		TenantID:        cfg.AzureTenantID,
		ClientID:        cfg.AzureClientID,
		ClientSecret:    cfg.AzureClientSecret,
		Language:        cfg.AssessmentLanguage,
		Timeout:         cfg.AssessmentTimeout,
	})
}
