package exam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cbtexam/internal/bank"
	"cbtexam/internal/syllabus"
)

type mockExamService struct {
	startExamFn       func(ctx context.Context, examName string) (*ExamPaper, error)
	submitExamFn      func(ctx context.Context, in SubmitInput) (*GradedReport, error)
	syllabusEntriesFn func() []syllabus.Entry
}

func (m *mockExamService) StartExam(ctx context.Context, examName string) (*ExamPaper, error) {
	if m.startExamFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.startExamFn(ctx, examName)
}

func (m *mockExamService) SubmitExam(ctx context.Context, in SubmitInput) (*GradedReport, error) {
	if m.submitExamFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.submitExamFn(ctx, in)
}

func (m *mockExamService) SyllabusEntries() []syllabus.Entry {
	if m.syllabusEntriesFn == nil {
		return nil
	}
	return m.syllabusEntriesFn()
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rr)
	e, _ := body["error"].(map[string]interface{})
	msg, _ := e["message"].(string)
	return msg
}

func TestStartPassesExamName(t *testing.T) {
	var got string
	h := NewHandler(&mockExamService{
		startExamFn: func(ctx context.Context, examName string) (*ExamPaper, error) {
			got = examName
			return &ExamPaper{TotalAreas: 1, Areas: []AreaPaper{{SerialNo: 1, AreaName: "Tax"}}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/exams/start", bytes.NewReader([]byte(`{"examName":"bar-2026"}`)))
	w := httptest.NewRecorder()
	h.Start(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got != "bar-2026" {
		t.Fatalf("expected examName bar-2026, got %q", got)
	}
	body := decodeBody(t, w)
	data, _ := body["data"].(map[string]interface{})
	if data["totalAreas"] != float64(1) {
		t.Fatalf("unexpected data %v", data)
	}
}

func TestStartValidation(t *testing.T) {
	called := false
	h := NewHandler(&mockExamService{
		startExamFn: func(ctx context.Context, examName string) (*ExamPaper, error) {
			called = true
			return &ExamPaper{}, nil
		},
	})

	for _, payload := range []string{`{`, `{}`, `{"examName":"   "}`} {
		w := httptest.NewRecorder()
		h.Start(w, httptest.NewRequest(http.MethodPost, "/api/v1/exams/start", strings.NewReader(payload)))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("payload %s: expected 400, got %d", payload, w.Code)
		}
	}
	if called {
		t.Fatalf("service must not be called for invalid requests")
	}
}

func TestStartErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{name: "missing exam", err: fmt.Errorf("load question bank: %w", bank.ErrExamNotFound), code: http.StatusNotFound, msg: "exam not found"},
		{name: "nothing examinable", err: fmt.Errorf("select: %w", ErrNoExaminableContent), code: http.StatusNotFound, msg: "no questions are currently available for this exam"},
		{name: "invalid input", err: fmt.Errorf("%w: examName is required", ErrInvalidInput), code: http.StatusBadRequest},
		{name: "data access", err: errors.New("connection refused"), code: http.StatusInternalServerError, msg: "internal error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(&mockExamService{
				startExamFn: func(ctx context.Context, examName string) (*ExamPaper, error) { return nil, tc.err },
			})
			w := httptest.NewRecorder()
			h.Start(w, httptest.NewRequest(http.MethodPost, "/api/v1/exams/start", strings.NewReader(`{"examName":"x"}`)))
			if w.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, w.Code)
			}
			if tc.msg != "" {
				if got := errorMessage(t, w); got != tc.msg {
					t.Fatalf("expected message %q, got %q", tc.msg, got)
				}
			}
		})
	}
}

func TestSubmitDecodesAnswers(t *testing.T) {
	var got SubmitInput
	h := NewHandler(&mockExamService{
		submitExamFn: func(ctx context.Context, in SubmitInput) (*GradedReport, error) {
			got = in
			return &GradedReport{TotalQuestions: 2, Score: 50}, nil
		},
	})

	payload := `{"examName":"bar","answers":[{"questionHash":"h1","userAnswer":"A"},{"questionHash":"h2","userAnswer":null}],"startTime":1000,"endTime":5000}`
	w := httptest.NewRecorder()
	h.Submit(w, httptest.NewRequest(http.MethodPost, "/api/v1/exams/submit", strings.NewReader(payload)))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got.ExamName != "bar" || len(got.Answers) != 2 {
		t.Fatalf("unexpected input %+v", got)
	}
	if got.Answers[0].UserAnswer == nil || *got.Answers[0].UserAnswer != "A" {
		t.Fatalf("first answer not decoded: %+v", got.Answers[0])
	}
	if got.Answers[1].UserAnswer != nil {
		t.Fatalf("null answer should decode as nil")
	}
	if got.StartTime == nil || *got.StartTime != 1000 || got.EndTime == nil || *got.EndTime != 5000 {
		t.Fatalf("timestamps not decoded: %+v", got)
	}
}

func TestSubmitValidation(t *testing.T) {
	h := NewHandler(&mockExamService{})
	tests := []string{
		`not json`,
		`{"answers":[{"questionHash":"h"}]}`,
		`{"examName":"bar"}`,
		`{"examName":"bar","answers":[]}`,
		`{"examName":"bar","answers":"h1"}`,
	}
	for _, payload := range tests {
		w := httptest.NewRecorder()
		h.Submit(w, httptest.NewRequest(http.MethodPost, "/api/v1/exams/submit", strings.NewReader(payload)))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("payload %s: expected 400, got %d", payload, w.Code)
		}
	}
}

func TestSubmitUnknownExam(t *testing.T) {
	h := NewHandler(&mockExamService{
		submitExamFn: func(ctx context.Context, in SubmitInput) (*GradedReport, error) {
			return nil, fmt.Errorf("load question bank: %w", bank.ErrExamNotFound)
		},
	})
	w := httptest.NewRecorder()
	h.Submit(w, httptest.NewRequest(http.MethodPost, "/api/v1/exams/submit", strings.NewReader(`{"examName":"x","answers":[{"questionHash":"h"}]}`)))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestStartResponseHasNoAnswers(t *testing.T) {
	svc := NewService(bank.NewMemoryStore(testBank()), testSyllabus(t), ServiceConfig{HashSecret: testSecret})
	h := NewHandler(svc)

	w := httptest.NewRecorder()
	h.Start(w, httptest.NewRequest(http.MethodPost, "/api/v1/exams/start", strings.NewReader(`{"examName":"bar-2026"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if strings.Contains(body, "correctAnswer") || strings.Contains(body, "explanation") || strings.Contains(body, "explained ") {
		t.Fatalf("start response leaks answers: %s", body)
	}
}

func TestSyllabusListsEntries(t *testing.T) {
	h := NewHandler(&mockExamService{
		syllabusEntriesFn: func() []syllabus.Entry { return []syllabus.Entry{{Area: "Tax", Quota: 3}} },
	})
	w := httptest.NewRecorder()
	h.Syllabus(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/syllabus", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data, _ := decodeBody(t, w)["data"].([]interface{})
	if len(data) != 1 {
		t.Fatalf("expected one entry, got %v", data)
	}
}
