package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"cbtexam/internal/app/apiresp"
	"cbtexam/internal/app/observability"
	"cbtexam/internal/auth"
	"cbtexam/internal/bank"
	"cbtexam/internal/exam"
	"cbtexam/internal/report"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const maxJSONBodyBytes = 1 << 20

// BankStore is what the router needs from question bank storage: reads for
// the exam flow and writes for the admin import.
type BankStore interface {
	bank.Store
	ReplaceQuestionBank(ctx context.Context, b *bank.QuestionBank) error
	ListExams(ctx context.Context) ([]bank.ExamInfo, error)
}

type Deps struct {
	DB      *sql.DB
	Banks   BankStore
	Exams   *exam.Service
	Reports *report.Service
	Metrics *observability.Collector
	Admin   *auth.AdminGuard
}

func NewRouter(cfg Config, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", csrfHeaderName, "X-Admin-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	metrics := deps.Metrics
	if metrics == nil {
		metrics = observability.NewCollector(deps.DB)
	}
	r.Use(metrics.Middleware)

	admin := deps.Admin
	if admin == nil {
		admin = auth.NewAdminGuard(cfg.AdminPassHash)
	}

	examHandler := exam.NewHandler(deps.Exams)
	bankHandler := bank.NewHandler(deps.Banks, cfg.MaxUploadMB)
	reportHandler := report.NewHandler(deps.Reports)
	limiter := NewIPRateLimiter(cfg.APIRateLimitPerMin, time.Minute)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if deps.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := deps.DB.PingContext(ctx); err != nil {
				apiresp.WriteError(w, r, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		apiresp.WriteOK(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", metrics.MetricsHandler)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(RateLimitMiddleware(limiter))
		api.Use(CSRFMiddleware(cfg.CSRFEnforced))

		api.Group(func(pub chi.Router) {
			pub.Use(BodyLimitMiddleware(maxJSONBodyBytes))
			pub.Post("/exams/start", examHandler.Start)
			pub.Post("/exams/submit", examHandler.Submit)
			pub.Get("/exams/{examName}/summary", reportHandler.Summary)
		})

		api.Group(func(adm chi.Router) {
			adm.Use(admin.RequireAdmin)
			adm.Get("/admin/syllabus", examHandler.Syllabus)
			adm.Get("/admin/banks", bankHandler.ListExams)
			adm.Post("/admin/banks/{examName}/import", bankHandler.Import)
			adm.Get("/admin/banks/{examName}/export", bankHandler.Export)
			adm.Get("/admin/exams/{examName}/submissions", reportHandler.Submissions)
		})
	})

	return r
}
