package assessment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"speakwell/internal/feedback"
)

const (
	azureScope       = "https://cognitiveservices.azure.com/.default"
	maxResponseBytes = 1 << 20
)

// AzureConfig configures the Azure short-audio REST endpoint. Either
// SubscriptionKey or the TenantID/ClientID/ClientSecret triple must be set.
type AzureConfig struct {
	Region          string
	SubscriptionKey string

	TenantID     string
	ClientID     string
	ClientSecret string

	Language string
	Timeout  time.Duration

	// Endpoint and TokenURL override the derived URLs.
	Endpoint string
	TokenURL string
}

// AzureProvider calls the Azure speech-to-text REST API with pronunciation
// assessment enabled at phoneme granularity.
type AzureProvider struct {
	endpoint string
	key      string
	language string
	client   *http.Client
	breaker  *breaker
}

// NewAzureProvider creates an AzureProvider. With no subscription key it
// authenticates with OAuth2 client credentials against Azure AD.
func NewAzureProvider(cfg AzureConfig) *AzureProvider {
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1", cfg.Region)
	}

	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.SubscriptionKey == "" {
		tokenURL := cfg.TokenURL
		if tokenURL == "" {
			tokenURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID)
		}
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{azureScope},
		}
		client = cc.Client(context.Background())
		client.Timeout = cfg.Timeout
	}

	return &AzureProvider{
		endpoint: endpoint,
		key:      cfg.SubscriptionKey,
		language: cfg.Language,
		client:   client,
		breaker:  newBreaker("azure-speech", 5, 30*time.Second),
	}
}

type assessmentParams struct {
	ReferenceText string `json:"ReferenceText"`
	GradingSystem string `json:"GradingSystem"`
	Granularity   string `json:"Granularity"`
	Dimension     string `json:"Dimension"`
	EnableMiscue  bool   `json:"EnableMiscue"`
}

// Assess implements Provider.
func (p *AzureProvider) Assess(ctx context.Context, audioPath, referenceText string) (*feedback.ScoreReport, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}

	params, err := json.Marshal(assessmentParams{
		ReferenceText: referenceText,
		GradingSystem: "HundredMark",
		Granularity:   "Phoneme",
		Dimension:     "Comprehensive",
		EnableMiscue:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("encode assessment params: %w", err)
	}

	u, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("language", p.language)
	q.Set("format", "detailed")
	u.RawQuery = q.Encode()

	var raw []byte
	err = p.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(audio))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", contentType(audioPath))
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Pronunciation-Assessment", base64.StdEncoding.EncodeToString(params))
		if p.key != "" {
			req.Header.Set("Ocp-Apim-Subscription-Key", p.key)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf("assessment request: %w", err)
		}
		defer resp.Body.Close()

		raw, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return fmt.Errorf("read assessment response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("%w: %d %s", ErrProviderStatus, resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := validateResponse(raw); err != nil {
		return nil, err
	}
	var resp azureResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return resp.report()
}

func contentType(audioPath string) string {
	switch strings.ToLower(filepath.Ext(audioPath)) {
	case ".ogg", ".opus", ".webm":
		return "audio/ogg; codecs=opus"
	default:
		return "audio/wav; codecs=audio/pcm; samplerate=16000"
	}
}

type azureScores struct {
	AccuracyScore     *float64 `json:"AccuracyScore"`
	FluencyScore      *float64 `json:"FluencyScore"`
	CompletenessScore *float64 `json:"CompletenessScore"`
	PronScore         *float64 `json:"PronScore"`
	ErrorType         string   `json:"ErrorType"`
}

// merged prefers the nested PronunciationAssessment block, which newer API
// versions use, and falls back to the flat fields of older ones.
func (s azureScores) merged(nested *azureScores) azureScores {
	if nested == nil {
		return s
	}
	out := *nested
	if out.AccuracyScore == nil {
		out.AccuracyScore = s.AccuracyScore
	}
	if out.FluencyScore == nil {
		out.FluencyScore = s.FluencyScore
	}
	if out.CompletenessScore == nil {
		out.CompletenessScore = s.CompletenessScore
	}
	if out.PronScore == nil {
		out.PronScore = s.PronScore
	}
	if out.ErrorType == "" {
		out.ErrorType = s.ErrorType
	}
	return out
}

type azurePhoneme struct {
	Phoneme string `json:"Phoneme"`
	azureScores
	PronunciationAssessment *azureScores `json:"PronunciationAssessment"`
}

type azureWord struct {
	Word string `json:"Word"`
	azureScores
	PronunciationAssessment *azureScores   `json:"PronunciationAssessment"`
	Phonemes                []azurePhoneme `json:"Phonemes"`
}

type azureNBest struct {
	Display string `json:"Display"`
	Lexical string `json:"Lexical"`
	azureScores
	PronunciationAssessment *azureScores `json:"PronunciationAssessment"`
	Words                   []azureWord  `json:"Words"`
}

type azureResponse struct {
	RecognitionStatus string       `json:"RecognitionStatus"`
	DisplayText       string       `json:"DisplayText"`
	NBest             []azureNBest `json:"NBest"`
}

func (r azureResponse) report() (*feedback.ScoreReport, error) {
	switch r.RecognitionStatus {
	case "Success":
	case "NoMatch", "InitialSilenceTimeout", "BabbleTimeout":
		return &feedback.ScoreReport{PronunciationScore: feedback.Score(0), Error: NoSpeechText}, nil
	default:
		return nil, fmt.Errorf("speech recognition failed: %s", r.RecognitionStatus)
	}

	if len(r.NBest) == 0 {
		return nil, fmt.Errorf("%w: no recognition candidates", ErrInvalidResponse)
	}
	best := r.NBest[0]
	scores := best.azureScores.merged(best.PronunciationAssessment)

	report := &feedback.ScoreReport{
		RecognizedText:     r.DisplayText,
		PronunciationScore: scores.PronScore,
		AccuracyScore:      scores.AccuracyScore,
		FluencyScore:       scores.FluencyScore,
		CompletenessScore:  scores.CompletenessScore,
	}
	if report.RecognizedText == "" {
		report.RecognizedText = best.Display
	}

	for _, w := range best.Words {
		ws := w.azureScores.merged(w.PronunciationAssessment)
		word := feedback.WordScore{Word: w.Word, ErrorType: ws.ErrorType}
		if ws.AccuracyScore != nil {
			word.AccuracyScore = *ws.AccuracyScore
		}
		for _, ph := range w.Phonemes {
			ps := ph.azureScores.merged(ph.PronunciationAssessment)
			word.Phonemes = append(word.Phonemes, feedback.PhonemeScore{
				Phoneme:       ph.Phoneme,
				AccuracyScore: ps.AccuracyScore,
			})
		}
		report.Words = append(report.Words, word)
	}
	return report, nil
}
