package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"cbtexam/internal/exam"

	"github.com/google/uuid"
)

var ErrInvalidInput = errors.New("invalid input")

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS exam_submissions (
		id TEXT PRIMARY KEY,
		exam_name TEXT NOT NULL,
		total_questions INTEGER NOT NULL,
		correct_answers INTEGER NOT NULL,
		incorrect_answers INTEGER NOT NULL,
		not_answered INTEGER NOT NULL,
		dropped_answers INTEGER NOT NULL,
		score DOUBLE PRECISION NOT NULL,
		passed BOOLEAN NOT NULL,
		time_taken_secs BIGINT NOT NULL,
		submitted_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_exam_submissions_exam ON exam_submissions (exam_name, submitted_at)`,
}

// Service keeps one row per graded submission. Only totals are stored,
// never the answers themselves.
type Service struct {
	db  *sql.DB
	now func() time.Time
}

type ExamSummary struct {
	ExamName     string  `json:"examName"`
	Participants int     `json:"participants"`
	AverageScore float64 `json:"averageScore"`
	HighestScore float64 `json:"highestScore"`
	LowestScore  float64 `json:"lowestScore"`
	PassedCount  int     `json:"passedCount"`
	PassRate     float64 `json:"passRate"`
}

type Submission struct {
	ID               string    `json:"id"`
	ExamName         string    `json:"examName"`
	TotalQuestions   int       `json:"totalQuestions"`
	CorrectAnswers   int       `json:"correctAnswers"`
	IncorrectAnswers int       `json:"incorrectAnswers"`
	NotAnswered      int       `json:"notAnswered"`
	DroppedAnswers   int       `json:"droppedAnswers"`
	Score            float64   `json:"score"`
	Passed           bool      `json:"passed"`
	TimeTaken        int64     `json:"timeTaken"`
	SubmittedAt      time.Time `json:"submittedAt"`
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, now: time.Now}
}

func (s *Service) RecordSubmission(ctx context.Context, examName string, rep *exam.GradedReport) error {
	examName = strings.TrimSpace(examName)
	if examName == "" || rep == nil {
		return fmt.Errorf("%w: exam name and report are required", ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exam_submissions (
			id, exam_name, total_questions, correct_answers, incorrect_answers,
			not_answered, dropped_answers, score, passed, time_taken_secs, submitted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		uuid.NewString(), examName, rep.TotalQuestions, rep.CorrectAnswers, rep.IncorrectAnswers,
		rep.NotAnswered, rep.DroppedAnswers, rep.Score, rep.Passed, rep.TimeTaken, s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (s *Service) SummaryByExam(ctx context.Context, examName string) (*ExamSummary, error) {
	examName = strings.TrimSpace(examName)
	if examName == "" {
		return nil, fmt.Errorf("%w: exam name is required", ErrInvalidInput)
	}

	out := &ExamSummary{ExamName: examName}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(CAST(AVG(score) AS DOUBLE PRECISION), 0),
			COALESCE(MAX(score), 0),
			COALESCE(MIN(score), 0),
			COALESCE(SUM(CASE WHEN passed THEN 1 ELSE 0 END), 0)
		FROM exam_submissions
		WHERE exam_name = $1
	`, examName).Scan(&out.Participants, &out.AverageScore, &out.HighestScore, &out.LowestScore, &out.PassedCount); err != nil {
		return nil, fmt.Errorf("query exam summary: %w", err)
	}
	out.AverageScore = round2(out.AverageScore)
	if out.Participants > 0 {
		out.PassRate = round2(float64(out.PassedCount) / float64(out.Participants) * 100)
	}
	return out, nil
}

func (s *Service) ListSubmissions(ctx context.Context, examName string, limit int) ([]Submission, error) {
	examName = strings.TrimSpace(examName)
	if examName == "" {
		return nil, fmt.Errorf("%w: exam name is required", ErrInvalidInput)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, exam_name, total_questions, correct_answers, incorrect_answers,
			not_answered, dropped_answers, score, passed, time_taken_secs, submitted_at
		FROM exam_submissions
		WHERE exam_name = $1
		ORDER BY submitted_at DESC, id ASC
		LIMIT $2
	`, examName, limit)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	out := make([]Submission, 0)
	for rows.Next() {
		var (
			it          Submission
			submittedAt int64
		)
		if err := rows.Scan(
			&it.ID, &it.ExamName, &it.TotalQuestions, &it.CorrectAnswers, &it.IncorrectAnswers,
			&it.NotAnswered, &it.DroppedAnswers, &it.Score, &it.Passed, &it.TimeTaken, &submittedAt,
		); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		it.SubmittedAt = time.UnixMilli(submittedAt).UTC()
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
