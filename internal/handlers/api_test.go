package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"speakwell/internal/assessment"
	"speakwell/internal/database"
	"speakwell/internal/dictionary"
	"speakwell/internal/observe"
	"speakwell/internal/progress"
	"speakwell/internal/repository"
	"speakwell/internal/security"
	"speakwell/internal/service"
)

type apiClient struct {
	t      *testing.T
	server *httptest.Server
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(context.Background(), "../../migrations"))

	dict := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		word := strings.TrimPrefix(r.URL.Path, "/")
		if word != "hello" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"word":"hello","phonetic":"/həˈləʊ/","meanings":[{"partOfSpeech":"exclamation","definitions":[{"definition":"used as a greeting"}]}]}]`)
	}))
	t.Cleanup(dict.Close)

	metrics, err := observe.NewMetrics(noop.NewMeterProvider())
	require.NoError(t, err)

	users := repository.NewUserRepository(db)
	recordings := repository.NewRecordingRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	words := repository.NewWordRepository(db)
	tracker := progress.NewTracker()

	auth := service.NewAuthService(users, security.NewTokenManager("test-secret", time.Hour), nil)
	submissions := service.NewSubmissionService(db, assessment.NewSeededMockProvider(1, 2),
		service.NewAudioStore(t.TempDir(), 1<<20), tracker, metrics)

	startup := NewStartup("Database connection")
	startup.MarkReady()

	limiter := security.NewRateLimiter(100, time.Minute)
	t.Cleanup(limiter.Close)

	mux := http.NewServeMux()
	RegisterRoutes(mux, NewMiddleware(auth, limiter), Handlers{
		Auth:        NewAuthHandler(auth),
		Student:     NewStudentHandler(submissions, service.NewStudentService(recordings, repository.NewProgressRepository(db), assignments, tracker), 1<<20),
		Teacher:     NewTeacherHandler(service.NewTeacherService(recordings, users, repository.NewClassRepository(db), nil, metrics)),
		Assignments: NewAssignmentHandler(service.NewAssignmentService(db, assignments, users, words)),
		Words:       NewWordHandler(service.NewWordService(dictionary.NewClient(dict.URL, dictionary.NewMemoryCache(time.Hour, 10)), words, metrics)),
		Startup:     startup,
	})

	server := httptest.NewServer(observe.Middleware(metrics)(CORS([]string{"*"})(mux)))
	t.Cleanup(server.Close)
	return &apiClient{t: t, server: server}
}

func (c *apiClient) do(method, path, token, contentType string, body io.Reader) (int, []byte) {
	c.t.Helper()
	req, err := http.NewRequest(method, c.server.URL+path, body)
	require.NoError(c.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, data
}

func (c *apiClient) json(method, path, token string, in any, out any) int {
	c.t.Helper()
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		require.NoError(c.t, err)
		body = bytes.NewReader(raw)
	}
	status, data := c.do(method, path, token, "application/json", body)
	if out != nil && len(data) > 0 {
		require.NoError(c.t, json.Unmarshal(data, out), string(data))
	}
	return status
}

// signup registers and logs in, returning the access token
func (c *apiClient) signup(username, role string) string {
	c.t.Helper()
	status := c.json(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "correct horse",
		"role":     role,
	}, nil)
	require.Equal(c.t, http.StatusCreated, status)

	var session struct {
		AccessToken string `json:"access_token"`
	}
	status = c.json(http.MethodPost, "/api/auth/login", "", map[string]string{"username": username, "password": "correct horse"}, &session)
	require.Equal(c.t, http.StatusOK, status)
	require.NotEmpty(c.t, session.AccessToken)
	return session.AccessToken
}

func (c *apiClient) upload(token, word, filename string, audio []byte) (int, []byte) {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if word != "" {
		require.NoError(c.t, mw.WriteField("word_text", word))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("audio_file", filename)
		require.NoError(c.t, err)
		_, err = fw.Write(audio)
		require.NoError(c.t, err)
	}
	require.NoError(c.t, mw.Close())
	return c.do(http.MethodPost, "/api/student/recordings", token, mw.FormDataContentType(), &buf)
}

func TestAuthEndpoints(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup("alice", "student")

	status := api.json(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "correct horse",
	}, nil)
	assert.Equal(t, http.StatusConflict, status)

	var errBody errorResponse
	status = api.json(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "bob", "email": "not-an-email", "password": "correct horse",
	}, &errBody)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "email", errBody.Field)

	status = api.json(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	var me struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	status = api.json(http.MethodGet, "/api/auth/me", token, nil, &me)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, "student", me.Role)

	status, _ = api.do(http.MethodGet, "/api/auth/me", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = api.do(http.MethodGet, "/api/auth/me", "garbage", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRoleChecks(t *testing.T) {
	api := newTestAPI(t)
	studentToken := api.signup("sam", "student")
	teacherToken := api.signup("mrs_t", "teacher")

	status, _ := api.do(http.MethodGet, "/api/teacher/analytics", studentToken, "", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodGet, "/api/student/progress", teacherToken, "", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodGet, "/api/teacher/analytics", teacherToken, "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestRecordingAndFeedbackFlow(t *testing.T) {
	api := newTestAPI(t)
	studentToken := api.signup("sam", "student")
	teacherToken := api.signup("mrs_t", "teacher")

	status, data := api.upload(studentToken, "Hello", "hello.wav", []byte("RIFF fake"))
	require.Equal(t, http.StatusCreated, status, string(data))

	var submitted struct {
		Recording struct {
			ID       int64  `json:"id"`
			WordText string `json:"word_text"`
			Status   string `json:"status"`
		} `json:"recording"`
		Feedback struct {
			Text        string `json:"text"`
			Grade       string `json:"grade"`
			IsAutomated bool   `json:"is_automated"`
		} `json:"feedback"`
		Progress struct {
			TotalAttempts int `json:"total_attempts"`
		} `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(data, &submitted))
	assert.Equal(t, "hello", submitted.Recording.WordText)
	assert.Equal(t, "reviewed", submitted.Recording.Status)
	assert.NotEmpty(t, submitted.Feedback.Text)
	assert.NotEqual(t, "N/A", submitted.Feedback.Grade)
	assert.Equal(t, 1, submitted.Progress.TotalAttempts)

	status, _ = api.upload(studentToken, "hello", "notes.txt", []byte("text"))
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = api.upload(studentToken, "hello", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var report struct {
		TotalAttempts int    `json:"total_attempts"`
		Streak        int    `json:"streak_count"`
		Period        string `json:"period"`
	}
	status = api.json(http.MethodGet, "/api/student/progress?period=month", studentToken, nil, &report)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, report.TotalAttempts)
	assert.Equal(t, 1, report.Streak)
	assert.Equal(t, "month", report.Period)

	var recs []map[string]any
	status = api.json(http.MethodGet, "/api/student/recordings", studentToken, nil, &recs)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, recs, 1)

	status, _ = api.do(http.MethodGet, "/api/student/recordings?status=bogus", studentToken, "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var review struct {
		Recording struct {
			TeacherFeedback string `json:"teacher_feedback"`
			TeacherGrade    string `json:"teacher_grade"`
		} `json:"recording"`
		PreviousFeedbackWasAutomated bool `json:"previous_feedback_was_automated"`
	}
	status = api.json(http.MethodPost, "/api/teacher/feedback", teacherToken, map[string]any{
		"recording_id":        submitted.Recording.ID,
		"feedback_text":       "Lovely vowels.",
		"grade":               "A",
		"append_to_automated": true,
	}, &review)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, review.PreviousFeedbackWasAutomated)
	assert.Equal(t, "A", review.Recording.TeacherGrade)
	assert.True(t, strings.HasPrefix(review.Recording.TeacherFeedback, submitted.Feedback.Text))
	assert.True(t, strings.HasSuffix(review.Recording.TeacherFeedback, "Lovely vowels."))

	status = api.json(http.MethodPost, "/api/teacher/feedback", teacherToken, map[string]any{
		"recording_id": submitted.Recording.ID,
		"grade":        "Q",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var analytics struct {
		TotalRecordings int `json:"total_recordings"`
	}
	status = api.json(http.MethodGet, "/api/teacher/analytics", teacherToken, nil, &analytics)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, analytics.TotalRecordings)
}

func TestClassEndpoints(t *testing.T) {
	api := newTestAPI(t)
	api.signup("sam", "student")
	teacherToken := api.signup("mrs_t", "teacher")

	var class struct {
		ID        int64  `json:"id"`
		ClassName string `json:"class_name"`
	}
	status := api.json(http.MethodPost, "/api/teacher/classes", teacherToken, map[string]string{"class_name": "Year 3"}, &class)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Year 3", class.ClassName)

	status = api.json(http.MethodPost, fmt.Sprintf("/api/teacher/classes/%d/students", class.ID), teacherToken,
		map[string]any{"student_ids": []int64{1}}, nil)
	assert.Equal(t, http.StatusOK, status)

	status = api.json(http.MethodPost, "/api/teacher/classes/abc/students", teacherToken, map[string]any{"student_ids": []int64{1}}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = api.do(http.MethodGet, "/api/teacher/students?class_id=999", teacherToken, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestWordEndpoints(t *testing.T) {
	api := newTestAPI(t)

	var info struct {
		Word           string `json:"word"`
		Phonetic       string `json:"phonetic"`
		TimesPracticed int    `json:"times_practiced"`
	}
	status := api.json(http.MethodGet, "/api/words/Hello", "", nil, &info)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hello", info.Word)
	assert.NotEmpty(t, info.Phonetic)

	status, _ = api.do(http.MethodGet, "/api/words/zzzz", "", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = api.do(http.MethodGet, "/api/words/h3llo", "", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = api.do(http.MethodGet, "/api/words/databases", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestHealth(t *testing.T) {
	startup := NewStartup("Database connection", "Running migrations")

	rec := httptest.NewRecorder()
	startup.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	startup.CompleteStep("Database connection")
	rec = httptest.NewRecorder()
	startup.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 50, body.Progress)
	assert.Equal(t, "starting", body.Status)

	startup.MarkReady()
	rec = httptest.NewRecorder()
	startup.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, startup.IsReady())
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"https://app.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := security.NewRateLimiter(2, time.Minute)
	defer limiter.Close()
	mw := NewMiddleware(nil, limiter)
	handler := mw.RateLimit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		handler(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
