package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"speakwell/internal/service"
)

// multipartMemory is how much of an upload is held in memory before the
// rest spills to a temp file
const multipartMemory = 8 << 20

// StudentHandler serves the student's recordings, progress and assignments
type StudentHandler struct {
	submissions *service.SubmissionService
	students    *service.StudentService
	maxUpload   int64
}

// NewStudentHandler creates a new student handler. maxUpload bounds the
// multipart body.
func NewStudentHandler(submissions *service.SubmissionService, students *service.StudentService, maxUpload int64) *StudentHandler {
	return &StudentHandler{submissions: submissions, students: students, maxUpload: maxUpload}
}

// SubmitRecording accepts a multipart upload with word_text and audio_file
// fields and returns the graded attempt
func (h *StudentHandler) SubmitRecording(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartMemory)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			handleServiceError(w, "", service.ErrAudioTooLarge)
			return
		}
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form", "", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio_file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "audio_file is required", "", nil)
		return
	}
	defer file.Close()

	req := service.SubmitRequest{
		StudentID: user.ID,
		Word:      r.FormValue("word_text"),
		Filename:  header.Filename,
		Audio:     file,
	}
	if raw := r.FormValue("assignment_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid assignment_id", "", nil)
			return
		}
		req.AssignmentID = &id
	}

	result, err := h.submissions.Submit(r.Context(), req)
	if err != nil {
		handleServiceError(w, "failed to submit recording", err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// ListRecordings returns the student's recordings, optionally by ?status=
// and ?flagged=true
func (h *StudentHandler) ListRecordings(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	flagged, _ := strconv.ParseBool(r.URL.Query().Get("flagged"))
	recs, err := h.students.ListRecordings(r.Context(), user.ID, r.URL.Query().Get("status"), flagged)
	if err != nil {
		handleServiceError(w, "failed to list recordings", err)
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

// Progress returns the summary for ?period=week|month|all
func (h *StudentHandler) Progress(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	report, err := h.students.Progress(r.Context(), user.ID, r.URL.Query().Get("period"))
	if err != nil {
		handleServiceError(w, "failed to load progress", err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *StudentHandler) Assignments(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	list, err := h.students.Assignments(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, "failed to list assignments", err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *StudentHandler) Assignment(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.students.Assignment(r.Context(), user.ID, id)
	if err != nil {
		handleServiceError(w, "failed to load assignment", err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (h *StudentHandler) AssignmentProgress(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	detail, err := h.students.AssignmentProgress(r.Context(), user.ID, id)
	if err != nil {
		handleServiceError(w, "failed to load assignment progress", err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

type assignmentSubmitRequest struct {
	WordText    string `json:"word_text"`
	RecordingID int64  `json:"recording_id"`
}

// SubmitAssignmentWord links an earlier recording to an assignment word
func (h *StudentHandler) SubmitAssignmentWord(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req assignmentSubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.submissions.SubmitAssignmentWord(r.Context(), user.ID, id, req.WordText, req.RecordingID)
	if err != nil {
		handleServiceError(w, "failed to submit assignment word", err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}
