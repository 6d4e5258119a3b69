package handlers

import (
	"net/http"

	"speakwell/internal/service"
)

// AssignmentHandler serves the teacher's assignment endpoints and the
// shared word databases
type AssignmentHandler struct {
	assignments *service.AssignmentService
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler(assignments *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments}
}

func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	var req service.CreateAssignmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.assignments.Create(r.Context(), user.ID, req)
	if err != nil {
		handleServiceError(w, "failed to create assignment", err)
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	list, err := h.assignments.List(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, "failed to list assignments", err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *AssignmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.assignments.Get(r.Context(), user.ID, id)
	if err != nil {
		handleServiceError(w, "failed to load assignment", err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (h *AssignmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req service.UpdateAssignmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.assignments.Update(r.Context(), user.ID, id, req)
	if err != nil {
		handleServiceError(w, "failed to update assignment", err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (h *AssignmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.assignments.Delete(r.Context(), user.ID, id); err != nil {
		handleServiceError(w, "failed to delete assignment", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Assignment deleted successfully"})
}

// Progress lists each assigned student's completion
func (h *AssignmentHandler) Progress(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rows, err := h.assignments.Progress(r.Context(), user.ID, id)
	if err != nil {
		handleServiceError(w, "failed to load assignment progress", err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// StudentProgress is the word-by-word view of one student
func (h *AssignmentHandler) StudentProgress(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	studentID, ok := pathID(w, r, "sid")
	if !ok {
		return
	}
	detail, err := h.assignments.StudentDetail(r.Context(), user.ID, id, studentID)
	if err != nil {
		handleServiceError(w, "failed to load student progress", err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (h *AssignmentHandler) WordDatabases(w http.ResponseWriter, r *http.Request) {
	dbs, err := h.assignments.WordDatabases(r.Context())
	if err != nil {
		handleServiceError(w, "failed to list word databases", err)
		return
	}
	respondJSON(w, http.StatusOK, dbs)
}

// WordDatabaseWords pages through a database with ?skip= and ?limit=
func (h *AssignmentHandler) WordDatabaseWords(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	words, err := h.assignments.WordDatabaseWords(r.Context(), id, queryInt(r, "skip", 0), queryInt(r, "limit", 100))
	if err != nil {
		handleServiceError(w, "failed to list word database words", err)
		return
	}
	respondJSON(w, http.StatusOK, words)
}
