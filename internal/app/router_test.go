package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cbtexam/internal/app/observability"
	"cbtexam/internal/auth"
	"cbtexam/internal/bank"
	"cbtexam/internal/db"
	"cbtexam/internal/exam"
	"cbtexam/internal/report"
	"cbtexam/internal/syllabus"

	"golang.org/x/crypto/bcrypt"
)

const testAdminPassword = "correct-horse-battery"

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func routerBank() *bank.QuestionBank {
	q := func(text string) bank.Question {
		return bank.Question{
			Question:      text,
			Options:       [4]string{"yes " + text, "no", "maybe", "never"},
			CorrectAnswer: "yes " + text,
			Explanation:   "because " + text,
		}
	}
	return &bank.QuestionBank{
		ExamID: "bar-2026",
		Areas: []bank.Area{
			{Name: "Constitutional Law", Basic: []bank.Question{q("c1"), q("c2")}, Advanced: []bank.Question{q("c3")}},
			{Name: "Law of Contract", Intermediate: []bank.Question{q("k1"), q("k2")}},
		},
	}
}

func newTestRouter(t *testing.T, adminHash string) (http.Handler, *sql.DB) {
	t.Helper()
	ctx := context.Background()

	conn, err := db.OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if err := db.Migrate(ctx, conn, append(append([]string{}, bank.Schema...), report.Schema...)...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := bank.NewSQLStore(conn)
	if err := store.ReplaceQuestionBank(ctx, routerBank()); err != nil {
		t.Fatalf("seed bank: %v", err)
	}
	syl, err := syllabus.New([]syllabus.Entry{
		{Area: "Constitutional Law", Quota: 2},
		{Area: "Law of Contract", Quota: 5},
	})
	if err != nil {
		t.Fatalf("syllabus: %v", err)
	}

	reports := report.NewService(conn)
	metrics := observability.NewCollector(conn)
	svc := exam.NewService(store, syl, exam.ServiceConfig{
		HashSecret: "router-test-secret",
		Recorder:   exam.Recorders{reports, metrics},
	})

	cfg := Config{
		APIRateLimitPerMin: 1000,
		CORSOrigins:        []string{"*"},
		MaxUploadMB:        1,
		AdminPassHash:      adminHash,
	}
	return NewRouter(cfg, Deps{
		DB:      conn,
		Banks:   store,
		Exams:   svc,
		Reports: reports,
		Metrics: metrics,
	}), conn
}

func serve(t *testing.T, h http.Handler, method, target string, body interface{}, header map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: decode envelope: %v", method, target, err)
		}
	}
	return w, env
}

func TestRouterExamRoundTrip(t *testing.T) {
	router, _ := newTestRouter(t, "")

	w, env := serve(t, router, http.MethodPost, "/api/v1/exams/start", map[string]string{"examName": "bar-2026"}, nil)
	if w.Code != http.StatusOK || !env.OK {
		t.Fatalf("start: status %d body %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "correctAnswer") || strings.Contains(w.Body.String(), "because") {
		t.Fatalf("start response leaks answers: %s", w.Body.String())
	}

	var paper exam.ExamPaper
	if err := json.Unmarshal(env.Data, &paper); err != nil {
		t.Fatalf("decode paper: %v", err)
	}
	if paper.TotalAreas != 2 || paper.TotalRequiredQuestions != 7 || paper.TotalSelectedQuestions != 4 {
		t.Fatalf("unexpected paper totals: %+v", paper)
	}

	var answers []map[string]interface{}
	for _, area := range paper.Areas {
		for _, q := range area.Questions {
			answers = append(answers, map[string]interface{}{
				"questionHash": q.QuestionHash,
				"userAnswer":   q.Options.Option1,
			})
		}
	}
	answers = append(answers, map[string]interface{}{"questionHash": "not-a-real-hash", "userAnswer": "x"})

	w, env = serve(t, router, http.MethodPost, "/api/v1/exams/submit", map[string]interface{}{
		"examName":  "bar-2026",
		"answers":   answers,
		"startTime": 1000,
		"endTime":   91000,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("submit: status %d body %s", w.Code, w.Body.String())
	}
	var rep exam.GradedReport
	if err := json.Unmarshal(env.Data, &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.TotalQuestions != 4 || rep.CorrectAnswers != 4 || rep.Score != 100 || !rep.Passed {
		t.Fatalf("unexpected grade: %+v", rep)
	}
	if rep.DroppedAnswers != 1 || rep.TimeTakenFormatted != "1m 30s" {
		t.Fatalf("unexpected dropped/time: %d %q", rep.DroppedAnswers, rep.TimeTakenFormatted)
	}

	w, env = serve(t, router, http.MethodGet, "/api/v1/exams/bar-2026/summary", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("summary: status %d body %s", w.Code, w.Body.String())
	}
	var sum report.ExamSummary
	if err := json.Unmarshal(env.Data, &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.Participants != 1 || sum.PassedCount != 1 || sum.AverageScore != 100 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	w, _ = serve(t, router, http.MethodGet, "/metrics", nil, nil)
	if !strings.Contains(w.Body.String(), `cbtexam_exam_submissions_total{exam="bar-2026"} 1`) {
		t.Fatalf("metrics missing submission counter:\n%s", w.Body.String())
	}
}

func TestRouterExamErrors(t *testing.T) {
	router, _ := newTestRouter(t, "")

	tests := []struct {
		name       string
		target     string
		body       interface{}
		wantStatus int
	}{
		{name: "unknown exam", target: "/api/v1/exams/start", body: map[string]string{"examName": "nope"}, wantStatus: http.StatusNotFound},
		{name: "blank exam", target: "/api/v1/exams/start", body: map[string]string{"examName": "  "}, wantStatus: http.StatusBadRequest},
		{name: "no answers", target: "/api/v1/exams/submit", body: map[string]interface{}{"examName": "bar-2026", "answers": []interface{}{}}, wantStatus: http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, env := serve(t, router, http.MethodPost, tc.target, tc.body, nil)
			if w.Code != tc.wantStatus {
				t.Fatalf("got status %d, want %d: %s", w.Code, tc.wantStatus, w.Body.String())
			}
			if env.OK || env.Error == nil {
				t.Fatalf("expected error envelope, got %s", w.Body.String())
			}
		})
	}
}

func TestRouterHealthz(t *testing.T) {
	router, conn := newTestRouter(t, "")

	w, env := serve(t, router, http.MethodGet, "/healthz", nil, nil)
	if w.Code != http.StatusOK || !env.OK {
		t.Fatalf("healthz: status %d body %s", w.Code, w.Body.String())
	}

	_ = conn.Close()
	w, _ = serve(t, router, http.MethodGet, "/healthz", nil, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after close, got %d", w.Code)
	}
}

func TestRouterAdminGuard(t *testing.T) {
	hash, err := auth.HashPassword(testAdminPassword, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	router, _ := newTestRouter(t, hash)

	w, _ := serve(t, router, http.MethodGet, "/api/v1/admin/banks", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	bearer := map[string]string{"Authorization": "Bearer " + testAdminPassword}
	w, env := serve(t, router, http.MethodGet, "/api/v1/admin/banks", nil, bearer)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", w.Code, w.Body.String())
	}
	var exams []bank.ExamInfo
	if err := json.Unmarshal(env.Data, &exams); err != nil {
		t.Fatalf("decode exams: %v", err)
	}
	if len(exams) != 1 || exams[0].ExamName != "bar-2026" || exams[0].Questions != 5 {
		t.Fatalf("unexpected exams: %+v", exams)
	}

	w, env = serve(t, router, http.MethodGet, "/api/v1/admin/syllabus", nil, map[string]string{"X-Admin-Token": testAdminPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("syllabus: status %d", w.Code)
	}
	var entries []syllabus.Entry
	if err := json.Unmarshal(env.Data, &entries); err != nil {
		t.Fatalf("decode syllabus: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("unexpected syllabus: %+v", entries)
	}

	w, _ = serve(t, router, http.MethodGet, "/api/v1/admin/banks/bar-2026/export", nil, bearer)
	if w.Code != http.StatusOK || !strings.Contains(w.Header().Get("Content-Disposition"), "bar-2026_bank.xlsx") {
		t.Fatalf("export: status %d disposition %q", w.Code, w.Header().Get("Content-Disposition"))
	}
}

func TestRouterAdminDisabled(t *testing.T) {
	router, _ := newTestRouter(t, "")

	w, _ := serve(t, router, http.MethodGet, "/api/v1/admin/banks", nil, map[string]string{"Authorization": "Bearer anything"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when admin is disabled, got %d", w.Code)
	}
}
