package bank

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"cbtexam/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	store       adminStore
	maxUploadMB int
}

type adminStore interface {
	Store
	ReplaceQuestionBank(ctx context.Context, b *QuestionBank) error
	ListExams(ctx context.Context) ([]ExamInfo, error)
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

func NewHandler(store adminStore, maxUploadMB int) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = 16
	}
	return &Handler{store: store, maxUploadMB: maxUploadMB}
}

func (h *Handler) ListExams(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListExams(r.Context())
	if err != nil {
		log.Printf("list exams: %v", err)
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

// Import replaces an exam's bank with the uploaded workbook. The upload is
// rejected as a whole when any row fails, since a partial bank would shift
// question positions.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	examName := strings.TrimSpace(chi.URLParam(r, "examName"))
	if examName == "" {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "examName is required"})
		return
	}

	limit := int64(h.maxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid multipart form"})
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "file field is required"})
		return
	}
	defer file.Close()

	b, report, err := ParseExcel(examName, file)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		return
	}
	if report.FailedRows > 0 {
		first := report.Errors[0]
		msg := fmt.Sprintf("%d of %d rows failed, first at row %d: %s", report.FailedRows, report.TotalRows, first.Row, first.Error)
		apiresp.WriteErrorDetails(w, r, http.StatusUnprocessableEntity, msg, report.Errors)
		return
	}

	if err := h.store.ReplaceQuestionBank(r.Context(), b); err != nil {
		if errors.Is(err, ErrInvalidBank) {
			writeJSON(w, r, http.StatusUnprocessableEntity, apiResponse{OK: false, Error: err.Error()})
			return
		}
		log.Printf("replace question bank exam=%s: %v", examName, err)
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	log.Printf("question bank replaced exam=%s areas=%d questions=%d", examName, len(b.Areas), b.QuestionCount())

	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]any{
		"filename": hdr.Filename,
		"examName": examName,
		"report":   report,
	}})
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	examName := strings.TrimSpace(chi.URLParam(r, "examName"))
	b, err := h.store.GetQuestionBank(r.Context(), examName)
	if err != nil {
		if errors.Is(err, ErrExamNotFound) {
			writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
			return
		}
		log.Printf("export question bank exam=%s: %v", examName, err)
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}

	data, err := ExportExcel(b)
	if err != nil {
		log.Printf("export question bank exam=%s: %v", examName, err)
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(examName)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func exportFilename(examName string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, examName)
	return name + "_bank.xlsx"
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload apiResponse) {
	apiresp.Write(w, r, code, payload.OK, payload.Data, payload.Error)
}
