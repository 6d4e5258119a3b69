package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"speakwell/internal/service"
	"speakwell/internal/validation"
)

func TestRespondWithErrorWritesStatusAndBody(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondWithError(recorder, 418, "Teapot", "", nil)

	if recorder.Code != 418 {
		t.Fatalf("expected status 418, got %d", recorder.Code)
	}
	if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON content type, got %q", ct)
	}

	var body errorResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body.Detail != "Teapot" {
		t.Fatalf("expected detail 'Teapot', got %q", body.Detail)
	}
}

func TestRespondWithErrorLogsMessage(t *testing.T) {
	var buf bytes.Buffer
	original := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(original)

	recorder := httptest.NewRecorder()
	err := errors.New("boom")

	respondWithError(recorder, 500, "Internal server error", "", err)

	logOutput := buf.String()
	if !strings.Contains(logOutput, "Internal server error") {
		t.Fatalf("expected log to include user message, got %q", logOutput)
	}
	if !strings.Contains(logOutput, "boom") {
		t.Fatalf("expected log to include error, got %q", logOutput)
	}
}

func TestHandleServiceErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", validation.ValidationError{Field: "word", Message: "bad"}, http.StatusBadRequest},
		{"not found", fmt.Errorf("assignment %w", service.ErrNotFound), http.StatusNotFound},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"username taken", service.ErrUsernameTaken, http.StatusConflict},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"bad audio", service.ErrInvalidAudio, http.StatusBadRequest},
		{"word not assigned", service.ErrWordNotInAssignment, http.StatusBadRequest},
		{"too large", service.ErrAudioTooLarge, http.StatusRequestEntityTooLarge},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handleServiceError(recorder, "test", tt.err)
			if recorder.Code != tt.status {
				t.Errorf("status = %d, want %d", recorder.Code, tt.status)
			}
		})
	}
}

func TestHandleServiceErrorHidesInternalDetail(t *testing.T) {
	recorder := httptest.NewRecorder()
	handleServiceError(recorder, "test", errors.New("password=hunter2"))

	if strings.Contains(recorder.Body.String(), "hunter2") {
		t.Fatalf("internal error leaked to client: %s", recorder.Body.String())
	}
}
