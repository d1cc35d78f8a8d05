package report

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"cbtexam/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc reportService
}

type reportService interface {
	SummaryByExam(ctx context.Context, examName string) (*ExamSummary, error)
	ListSubmissions(ctx context.Context, examName string, limit int) ([]Submission, error)
}

func NewHandler(svc reportService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.SummaryByExam(r.Context(), chi.URLParam(r, "examName"))
	if err != nil {
		writeError(w, r, "exam summary", err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, out)
}

func (h *Handler) Submissions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.svc.ListSubmissions(r.Context(), chi.URLParam(r, "examName"), limit)
	if err != nil {
		writeError(w, r, "list submissions", err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, ErrInvalidInput) {
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	log.Printf("%s: %v", op, err)
	apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
}
