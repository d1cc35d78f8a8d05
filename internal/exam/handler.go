package exam

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"cbtexam/internal/app/apiresp"
	"cbtexam/internal/bank"
	"cbtexam/internal/syllabus"
)

type Handler struct {
	svc examService
}

type examService interface {
	StartExam(ctx context.Context, examName string) (*ExamPaper, error)
	SubmitExam(ctx context.Context, in SubmitInput) (*GradedReport, error)
	SyllabusEntries() []syllabus.Entry
}

type response struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type startExamRequest struct {
	ExamName string `json:"examName"`
}

type submitExamRequest struct {
	ExamName  string            `json:"examName"`
	Answers   []SubmittedAnswer `json:"answers"`
	StartTime *int64            `json:"startTime"`
	EndTime   *int64            `json:"endTime"`
}

func NewHandler(svc examService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req startExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.ExamName) == "" {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "examName is required"})
		return
	}

	paper, err := h.svc.StartExam(r.Context(), req.ExamName)
	if err != nil {
		writeServiceError(w, r, "start exam", err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: paper})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.ExamName) == "" {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "examName is required"})
		return
	}
	if len(req.Answers) == 0 {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "answers must be a non-empty array"})
		return
	}

	rep, err := h.svc.SubmitExam(r.Context(), SubmitInput{
		ExamName:  req.ExamName,
		Answers:   req.Answers,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		writeServiceError(w, r, "submit exam", err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: rep})
}

func (h *Handler) Syllabus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: h.svc.SyllabusEntries()})
}

func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, bank.ErrExamNotFound):
		writeJSON(w, r, http.StatusNotFound, response{OK: false, Error: "exam not found"})
	case errors.Is(err, ErrNoExaminableContent):
		writeJSON(w, r, http.StatusNotFound, response{OK: false, Error: "no questions are currently available for this exam"})
	case errors.Is(err, ErrInvalidInput):
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: err.Error()})
	default:
		log.Printf("%s: %v", op, err)
		writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload response) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteError(w, r, code, payload.Error)
}
