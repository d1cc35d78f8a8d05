package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"cbtexam/internal/exam"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type key struct {
	Method string
	Path   string
	Status int
}

type stat struct {
	Count     int64
	LatencyMS float64
}

type examStat struct {
	Submissions int64
	Passed      int64
	Graded      int64
	Dropped     int64
}

// Collector aggregates per-route request counters and per-exam grading
// counters, and renders them in the Prometheus text format.
type Collector struct {
	db *sql.DB

	mu           sync.RWMutex
	requestStats map[key]stat
	examStats    map[string]examStat
	startedAt    time.Time
}

func NewCollector(db *sql.DB) *Collector {
	return &Collector{
		db:           db,
		requestStats: make(map[key]stat),
		examStats:    make(map[string]examStat),
		startedAt:    time.Now(),
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		latencyMS := float64(time.Since(start).Microseconds()) / 1000.0
		path, examName := routeOf(r)

		c.mu.Lock()
		k := key{Method: r.Method, Path: path, Status: rec.status}
		s := c.requestStats[k]
		s.Count++
		s.LatencyMS += latencyMS
		c.requestStats[k] = s
		c.mu.Unlock()

		entry := map[string]any{
			"request_id": middleware.GetReqID(r.Context()),
			"exam":       examName,
			"method":     r.Method,
			"path":       path,
			"status":     rec.status,
			"latency_ms": latencyMS,
			"remote_ip":  strings.TrimSpace(r.RemoteAddr),
		}
		b, _ := json.Marshal(entry)
		log.Printf("%s", string(b))
	})
}

// RecordSubmission counts a graded submission. It never fails.
func (c *Collector) RecordSubmission(ctx context.Context, examName string, rep *exam.GradedReport) error {
	if rep == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.examStats[examName]
	s.Submissions++
	if rep.Passed {
		s.Passed++
	}
	s.Graded += int64(rep.TotalQuestions)
	s.Dropped += int64(rep.DroppedAnswers)
	c.examStats[examName] = s
	return nil
}

func (c *Collector) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	statsCopy := make(map[key]stat, len(c.requestStats))
	for k, v := range c.requestStats {
		statsCopy[k] = v
	}
	examCopy := make(map[string]examStat, len(c.examStats))
	for k, v := range c.examStats {
		examCopy[k] = v
	}
	startedAt := c.startedAt
	c.mu.RUnlock()

	keys := make([]key, 0, len(statsCopy))
	for k := range statsCopy {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Method != keys[j].Method {
			return keys[i].Method < keys[j].Method
		}
		if keys[i].Path != keys[j].Path {
			return keys[i].Path < keys[j].Path
		}
		return keys[i].Status < keys[j].Status
	})
	exams := make([]string, 0, len(examCopy))
	for name := range examCopy {
		exams = append(exams, name)
	}
	sort.Strings(exams)

	var sb strings.Builder
	sb.WriteString("# cbtexam metrics\n")
	sb.WriteString("# TYPE cbtexam_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "cbtexam_uptime_seconds %.0f\n", time.Since(startedAt).Seconds())

	sb.WriteString("# TYPE cbtexam_http_requests_total counter\n")
	sb.WriteString("# TYPE cbtexam_http_request_latency_ms_sum counter\n")
	sb.WriteString("# TYPE cbtexam_http_request_latency_ms_avg gauge\n")
	for _, k := range keys {
		s := statsCopy[k]
		labels := fmt.Sprintf("method=%q,path=%q,status=\"%d\"", k.Method, k.Path, k.Status)
		fmt.Fprintf(&sb, "cbtexam_http_requests_total{%s} %d\n", labels, s.Count)
		fmt.Fprintf(&sb, "cbtexam_http_request_latency_ms_sum{%s} %.3f\n", labels, s.LatencyMS)
		avg := 0.0
		if s.Count > 0 {
			avg = s.LatencyMS / float64(s.Count)
		}
		fmt.Fprintf(&sb, "cbtexam_http_request_latency_ms_avg{%s} %.3f\n", labels, avg)
	}

	sb.WriteString("# TYPE cbtexam_exam_submissions_total counter\n")
	sb.WriteString("# TYPE cbtexam_exam_passed_total counter\n")
	sb.WriteString("# TYPE cbtexam_exam_graded_questions_total counter\n")
	sb.WriteString("# TYPE cbtexam_exam_dropped_answers_total counter\n")
	for _, name := range exams {
		s := examCopy[name]
		label := fmt.Sprintf("exam=%q", name)
		fmt.Fprintf(&sb, "cbtexam_exam_submissions_total{%s} %d\n", label, s.Submissions)
		fmt.Fprintf(&sb, "cbtexam_exam_passed_total{%s} %d\n", label, s.Passed)
		fmt.Fprintf(&sb, "cbtexam_exam_graded_questions_total{%s} %d\n", label, s.Graded)
		fmt.Fprintf(&sb, "cbtexam_exam_dropped_answers_total{%s} %d\n", label, s.Dropped)
	}

	if c.db != nil {
		dbs := c.db.Stats()
		for _, m := range []struct {
			name, kind string
			value      float64
		}{
			{"cbtexam_db_open_connections", "gauge", float64(dbs.OpenConnections)},
			{"cbtexam_db_in_use_connections", "gauge", float64(dbs.InUse)},
			{"cbtexam_db_idle_connections", "gauge", float64(dbs.Idle)},
			{"cbtexam_db_wait_count", "counter", float64(dbs.WaitCount)},
			{"cbtexam_db_wait_duration_ms", "counter", float64(dbs.WaitDuration.Microseconds()) / 1000.0},
		} {
			fmt.Fprintf(&sb, "# TYPE %s %s\n%s %s\n", m.name, m.kind, m.name, strconv.FormatFloat(m.value, 'f', -1, 64))
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(sb.String()))
}

// unmatchedRoute labels requests no route matched, so probes for random
// paths cannot grow the label set.
const unmatchedRoute = "{unmatched}"

// routeOf reports the matched route pattern, which keeps exam names out of
// the metric labels, and the exam name parameter when the route has one.
func routeOf(r *http.Request) (string, string) {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern, rctx.URLParam("examName")
		}
	}
	return unmatchedRoute, ""
}
