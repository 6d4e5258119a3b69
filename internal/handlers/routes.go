package handlers

import (
	"net/http"

	"speakwell/internal/models"
)

// Handlers groups every handler the router needs
type Handlers struct {
	Auth        *AuthHandler
	Student     *StudentHandler
	Teacher     *TeacherHandler
	Assignments *AssignmentHandler
	Words       *WordHandler
	Startup     *Startup
}

// RegisterRoutes wires the JSON API onto mux
func RegisterRoutes(mux *http.ServeMux, mw *Middleware, h Handlers) {
	student := func(f http.HandlerFunc) http.HandlerFunc { return mw.RequireRole(models.RoleStudent, f) }
	teacher := func(f http.HandlerFunc) http.HandlerFunc { return mw.RequireRole(models.RoleTeacher, f) }

	mux.HandleFunc("GET /health", h.Startup.Health)

	// Auth
	mux.HandleFunc("POST /api/auth/register", mw.RateLimit(h.Auth.Register))
	mux.HandleFunc("POST /api/auth/login", mw.RateLimit(h.Auth.Login))
	mux.HandleFunc("GET /api/auth/me", mw.RequireAuth(h.Auth.Me))

	// Student
	mux.HandleFunc("POST /api/student/recordings", student(h.Student.SubmitRecording))
	mux.HandleFunc("POST /api/student/recordings/submit", student(h.Student.SubmitRecording))
	mux.HandleFunc("GET /api/student/recordings", student(h.Student.ListRecordings))
	mux.HandleFunc("GET /api/student/progress", student(h.Student.Progress))
	mux.HandleFunc("GET /api/student/assignments", student(h.Student.Assignments))
	mux.HandleFunc("GET /api/student/assignments/{id}", student(h.Student.Assignment))
	mux.HandleFunc("GET /api/student/assignments/{id}/progress", student(h.Student.AssignmentProgress))
	mux.HandleFunc("POST /api/student/assignments/{id}/submit", student(h.Student.SubmitAssignmentWord))

	// Teacher
	mux.HandleFunc("GET /api/teacher/submissions", teacher(h.Teacher.ListSubmissions))
	mux.HandleFunc("POST /api/teacher/feedback", teacher(h.Teacher.SubmitFeedback))
	mux.HandleFunc("GET /api/teacher/students", teacher(h.Teacher.Students))
	mux.HandleFunc("GET /api/teacher/analytics", teacher(h.Teacher.Analytics))
	mux.HandleFunc("POST /api/teacher/classes", teacher(h.Teacher.CreateClass))
	mux.HandleFunc("GET /api/teacher/classes", teacher(h.Teacher.ListClasses))
	mux.HandleFunc("POST /api/teacher/classes/{id}/students", teacher(h.Teacher.EnrollStudents))

	mux.HandleFunc("POST /api/teacher/assignments", teacher(h.Assignments.Create))
	mux.HandleFunc("GET /api/teacher/assignments", teacher(h.Assignments.List))
	mux.HandleFunc("GET /api/teacher/assignments/{id}", teacher(h.Assignments.Get))
	mux.HandleFunc("PUT /api/teacher/assignments/{id}", teacher(h.Assignments.Update))
	mux.HandleFunc("DELETE /api/teacher/assignments/{id}", teacher(h.Assignments.Delete))
	mux.HandleFunc("GET /api/teacher/assignments/{id}/progress", teacher(h.Assignments.Progress))
	mux.HandleFunc("GET /api/teacher/assignments/{id}/students/{sid}/progress", teacher(h.Assignments.StudentProgress))

	// Words
	mux.HandleFunc("GET /api/words/databases", mw.RequireAuth(h.Assignments.WordDatabases))
	mux.HandleFunc("GET /api/words/databases/{id}/words", mw.RequireAuth(h.Assignments.WordDatabaseWords))
	mux.HandleFunc("GET /api/words/popular", h.Words.Popular)
	mux.HandleFunc("GET /api/words/daily/challenge", h.Words.DailyChallenge)
	mux.HandleFunc("GET /api/words/{word}", h.Words.Lookup)
}
