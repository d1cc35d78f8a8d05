package bank

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Schema creates the bank tables. The statements run unchanged on Postgres
// and SQLite. Areas without questions are not stored.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS question_banks (
		exam_name TEXT PRIMARY KEY,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bank_questions (
		exam_name TEXT NOT NULL REFERENCES question_banks(exam_name) ON DELETE CASCADE,
		area_seq INTEGER NOT NULL,
		area_name TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		position INTEGER NOT NULL,
		question TEXT NOT NULL,
		option1 TEXT NOT NULL,
		option2 TEXT NOT NULL,
		option3 TEXT NOT NULL,
		option4 TEXT NOT NULL,
		correct_answer TEXT NOT NULL,
		explanation TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (exam_name, area_seq, difficulty, position)
	)`,
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) GetQuestionBank(ctx context.Context, examID string) (*QuestionBank, error) {
	examID = strings.TrimSpace(examID)
	var createdAt int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT created_at FROM question_banks WHERE exam_name = $1
	`, examID).Scan(&createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("query question bank: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT area_seq, area_name, difficulty, question,
			option1, option2, option3, option4,
			correct_answer, explanation
		FROM bank_questions
		WHERE exam_name = $1
		ORDER BY area_seq ASC,
			CASE difficulty WHEN 'basic' THEN 0 WHEN 'intermediate' THEN 1 ELSE 2 END ASC,
			position ASC
	`, examID)
	if err != nil {
		return nil, fmt.Errorf("query bank questions: %w", err)
	}
	defer rows.Close()

	b := &QuestionBank{ExamID: examID, Areas: make([]Area, 0)}
	lastSeq := -1
	for rows.Next() {
		var (
			seq      int
			areaName string
			diffRaw  string
			q        Question
		)
		if err := rows.Scan(
			&seq, &areaName, &diffRaw, &q.Question,
			&q.Options[0], &q.Options[1], &q.Options[2], &q.Options[3],
			&q.CorrectAnswer, &q.Explanation,
		); err != nil {
			return nil, fmt.Errorf("scan bank question: %w", err)
		}
		d, ok := ParseDifficulty(diffRaw)
		if !ok {
			return nil, fmt.Errorf("scan bank question: unknown difficulty %q", diffRaw)
		}
		if seq != lastSeq {
			b.Areas = append(b.Areas, Area{Name: areaName})
			lastSeq = seq
		}
		b.Areas[len(b.Areas)-1].appendTo(d, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bank questions: %w", err)
	}
	return b, nil
}

// ReplaceQuestionBank swaps the stored bank for an exam in one transaction.
// See Store for what this does to exams already in progress.
func (s *SQLStore) ReplaceQuestionBank(ctx context.Context, b *QuestionBank) error {
	if err := Validate(b); err != nil {
		return fmt.Errorf("replace question bank: %w", err)
	}
	examID := strings.TrimSpace(b.ExamID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bank_questions WHERE exam_name = $1`, examID); err != nil {
		return fmt.Errorf("clear bank questions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM question_banks WHERE exam_name = $1`, examID); err != nil {
		return fmt.Errorf("clear question bank: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO question_banks (exam_name, created_at) VALUES ($1, $2)
	`, examID, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("insert question bank: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bank_questions (
			exam_name, area_seq, area_name, difficulty, position, question,
			option1, option2, option3, option4, correct_answer, explanation
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert question: %w", err)
	}
	defer stmt.Close()

	for seq := range b.Areas {
		a := &b.Areas[seq]
		for _, d := range Tiers {
			for pos, q := range a.Tier(d) {
				if _, err := stmt.ExecContext(ctx,
					examID, seq, strings.TrimSpace(a.Name), string(d), pos, q.Question,
					q.Options[0], q.Options[1], q.Options[2], q.Options[3],
					q.CorrectAnswer, q.Explanation,
				); err != nil {
					return fmt.Errorf("insert question %s/%s #%d: %w", a.Name, d, pos, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLStore) ListExams(ctx context.Context) ([]ExamInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT qb.exam_name,
			COUNT(DISTINCT bq.area_seq),
			COUNT(bq.position)
		FROM question_banks qb
		LEFT JOIN bank_questions bq ON bq.exam_name = qb.exam_name
		GROUP BY qb.exam_name
		ORDER BY qb.exam_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query exams: %w", err)
	}
	defer rows.Close()

	out := make([]ExamInfo, 0)
	for rows.Next() {
		var it ExamInfo
		if err := rows.Scan(&it.ExamName, &it.Areas, &it.Questions); err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exams: %w", err)
	}
	return out, nil
}
