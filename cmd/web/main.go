package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cbtexam/internal/app"
	"cbtexam/internal/app/observability"
	"cbtexam/internal/auth"
	"cbtexam/internal/bank"
	"cbtexam/internal/db"
	"cbtexam/internal/exam"
	"cbtexam/internal/report"
	"cbtexam/internal/syllabus"

	"github.com/joho/godotenv"
)

func main() {
	hashPassword := flag.String("hash-password", "", "print a bcrypt hash for ADMIN_PASS_HASH and exit")
	importExam := flag.String("import-exam", "", "exam name to load from -import-file before serving")
	importFile := flag.String("import-file", "", "xlsx question bank to import for -import-exam")
	flag.Parse()

	if *hashPassword != "" {
		h, err := auth.HashPassword(*hashPassword, 0)
		if err != nil {
			log.Printf("hash password: %v", err)
			os.Exit(1)
		}
		fmt.Println(h)
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	cfg := app.LoadConfig()

	ctx := context.Background()
	dbConn, err := db.Open(ctx, cfg.DBDriver, cfg.DBDSN, db.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifeMins) * time.Minute,
	})
	if err != nil {
		log.Printf("database error: %v", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	stmts := append(append([]string{}, bank.Schema...), report.Schema...)
	if err := db.Migrate(ctx, dbConn, stmts...); err != nil {
		log.Printf("migrate: %v", err)
		os.Exit(1)
	}

	syl, err := syllabus.Load(cfg.SyllabusPath)
	if err != nil {
		log.Printf("load syllabus %s: %v", cfg.SyllabusPath, err)
		os.Exit(1)
	}

	banks := bank.NewSQLStore(dbConn)
	if *importExam != "" || *importFile != "" {
		if err := importBank(ctx, banks, *importExam, *importFile); err != nil {
			log.Printf("import: %v", err)
			os.Exit(1)
		}
	}

	reports := report.NewService(dbConn)
	metrics := observability.NewCollector(dbConn)
	examSvc := exam.NewService(banks, syl, exam.ServiceConfig{
		HashSecret:   cfg.QuestionHashSecret,
		PassingScore: cfg.PassingScore,
		Recorder:     exam.Recorders{reports, metrics},
	})
	if examSvc.UsesDefaultSecret() {
		log.Printf("warning: QUESTION_HASH_SECRET is not set, question identifiers are predictable")
	}

	admin := auth.NewAdminGuard(cfg.AdminPassHash)
	if !admin.Enabled() {
		log.Printf("ADMIN_PASS_HASH is not set, admin routes are disabled")
	}

	r := app.NewRouter(cfg, app.Deps{
		DB:      dbConn,
		Banks:   banks,
		Exams:   examSvc,
		Reports: reports,
		Metrics: metrics,
		Admin:   admin,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("cbtexam web listening on %s (db=%s, areas=%d)", cfg.HTTPAddr, cfg.DBDriver, len(syl.Entries()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server stopped: %v", err)
		os.Exit(1)
	}
}

func importBank(ctx context.Context, store *bank.SQLStore, examName, path string) error {
	examName = strings.TrimSpace(examName)
	if examName == "" || path == "" {
		return errors.New("-import-exam and -import-file must be used together")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	b, rep, err := bank.ParseExcel(examName, f)
	if err != nil {
		return err
	}
	if rep.FailedRows > 0 {
		first := rep.Errors[0]
		return fmt.Errorf("%d of %d rows failed, first at row %d: %s", rep.FailedRows, rep.TotalRows, first.Row, first.Error)
	}
	if err := store.ReplaceQuestionBank(ctx, b); err != nil {
		return err
	}
	log.Printf("imported %d questions in %d areas for %s", rep.SuccessRows, len(b.Areas), examName)
	return nil
}
