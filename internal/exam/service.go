package exam

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"cbtexam/internal/bank"
	"cbtexam/internal/syllabus"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNoExaminableContent = errors.New("exam has no examinable questions")
)

// ResultRecorder receives every graded submission. Failures are logged and
// never change the response.
type ResultRecorder interface {
	RecordSubmission(ctx context.Context, examName string, rep *GradedReport) error
}

// Recorders fans a submission out to every recorder and joins their errors.
type Recorders []ResultRecorder

func (rs Recorders) RecordSubmission(ctx context.Context, examName string, rep *GradedReport) error {
	var errs []error
	for _, r := range rs {
		if r == nil {
			continue
		}
		if err := r.RecordSubmission(ctx, examName, rep); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type ServiceConfig struct {
	HashSecret   string
	PassingScore float64
	Shuffle      ShuffleFunc
	Recorder     ResultRecorder
}

// Service runs the start and submit halves of an exam. It keeps no state
// between the two: the identifiers handed out at start are recomputed from
// the bank at submission.
type Service struct {
	store        bank.Store
	syllabus     *syllabus.Syllabus
	secret       string
	passingScore float64
	shuffle      ShuffleFunc
	recorder     ResultRecorder
}

type SubmitInput struct {
	ExamName  string
	Answers   []SubmittedAnswer
	StartTime *int64
	EndTime   *int64
}

func NewService(store bank.Store, syl *syllabus.Syllabus, cfg ServiceConfig) *Service {
	if cfg.HashSecret == "" {
		cfg.HashSecret = DefaultHashSecret
	}
	if cfg.PassingScore <= 0 {
		cfg.PassingScore = DefaultPassingScore
	}
	return &Service{
		store:        store,
		syllabus:     syl,
		secret:       cfg.HashSecret,
		passingScore: cfg.PassingScore,
		shuffle:      cfg.Shuffle,
		recorder:     cfg.Recorder,
	}
}

func (s *Service) UsesDefaultSecret() bool {
	return s.secret == DefaultHashSecret
}

func (s *Service) SyllabusEntries() []syllabus.Entry {
	return s.syllabus.Entries()
}

func (s *Service) StartExam(ctx context.Context, examName string) (*ExamPaper, error) {
	examName = strings.TrimSpace(examName)
	if examName == "" {
		return nil, fmt.Errorf("%w: examName is required", ErrInvalidInput)
	}

	b, err := s.store.GetQuestionBank(ctx, examName)
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}

	paper, err := SelectExamQuestions(b, s.syllabus, s.secret, s.shuffle)
	if err != nil {
		return nil, fmt.Errorf("select questions for %q: %w", examName, err)
	}
	return paper, nil
}

func (s *Service) SubmitExam(ctx context.Context, in SubmitInput) (*GradedReport, error) {
	examName := strings.TrimSpace(in.ExamName)
	if examName == "" {
		return nil, fmt.Errorf("%w: examName is required", ErrInvalidInput)
	}
	if len(in.Answers) == 0 {
		return nil, fmt.Errorf("%w: answers must be a non-empty array", ErrInvalidInput)
	}

	b, err := s.store.GetQuestionBank(ctx, examName)
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}

	key := BuildAnswerKey(b, s.secret)
	rep := Grade(key, in.Answers, in.StartTime, in.EndTime, s.passingScore)
	if rep.DroppedAnswers > 0 {
		log.Printf("exam submit: exam=%s dropped %d of %d answers with unknown question hash", examName, rep.DroppedAnswers, len(in.Answers))
	}

	if s.recorder != nil {
		if err := s.recorder.RecordSubmission(ctx, examName, rep); err != nil {
			log.Printf("exam submit: record submission exam=%s: %v", examName, err)
		}
	}
	return rep, nil
}
