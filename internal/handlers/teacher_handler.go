package handlers

import (
	"net/http"

	"speakwell/internal/service"
)

// TeacherHandler serves review, class and analytics endpoints
type TeacherHandler struct {
	teachers *service.TeacherService
}

// NewTeacherHandler creates a new teacher handler
func NewTeacherHandler(teachers *service.TeacherService) *TeacherHandler {
	return &TeacherHandler{teachers: teachers}
}

// ListSubmissions returns recordings filtered by ?status= and ?class_id=
func (h *TeacherHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	classID, ok := optionalQueryID(w, r, "class_id")
	if !ok {
		return
	}
	status := r.URL.Query().Get("status")
	if status == "" {
		status = r.URL.Query().Get("status_filter")
	}

	recs, err := h.teachers.ListSubmissions(r.Context(), user.ID, status, classID)
	if err != nil {
		handleServiceError(w, "failed to list submissions", err)
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

func (h *TeacherHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	var req service.FeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.teachers.SubmitFeedback(r.Context(), user.ID, req)
	if err != nil {
		handleServiceError(w, "failed to save feedback", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *TeacherHandler) Students(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	classID, ok := optionalQueryID(w, r, "class_id")
	if !ok {
		return
	}
	stats, err := h.teachers.Students(r.Context(), user.ID, classID)
	if err != nil {
		handleServiceError(w, "failed to list students", err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *TeacherHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	classID, ok := optionalQueryID(w, r, "class_id")
	if !ok {
		return
	}
	a, err := h.teachers.Analytics(r.Context(), user.ID, classID)
	if err != nil {
		handleServiceError(w, "failed to compute analytics", err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

type createClassRequest struct {
	ClassName   string `json:"class_name"`
	Description string `json:"description"`
}

func (h *TeacherHandler) CreateClass(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	var req createClassRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	class, err := h.teachers.CreateClass(r.Context(), user.ID, req.ClassName, req.Description)
	if err != nil {
		handleServiceError(w, "failed to create class", err)
		return
	}
	respondJSON(w, http.StatusCreated, class)
}

func (h *TeacherHandler) ListClasses(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	classes, err := h.teachers.ListClasses(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, "failed to list classes", err)
		return
	}
	respondJSON(w, http.StatusOK, classes)
}

type enrollRequest struct {
	StudentIDs []int64 `json:"student_ids"`
}

func (h *TeacherHandler) EnrollStudents(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req enrollRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	class, err := h.teachers.EnrollStudents(r.Context(), user.ID, id, req.StudentIDs)
	if err != nil {
		handleServiceError(w, "failed to enroll students", err)
		return
	}
	respondJSON(w, http.StatusOK, class)
}
