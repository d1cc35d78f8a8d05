package bank

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Store hands out question banks for the exam engine.
//
// Question identity is the (area, tier, position) coordinate, recomputed on
// every read. Implementations must return tier lists in the same order on
// every call while a bank is unchanged. Replacing a bank between the start
// and the submission of an exam shifts those coordinates, so identifiers
// handed out earlier may stop resolving or resolve to a different question.
type Store interface {
	GetQuestionBank(ctx context.Context, examID string) (*QuestionBank, error)
}

// MemoryStore keeps banks in process memory. Reads return copies.
type MemoryStore struct {
	mu    sync.RWMutex
	banks map[string]*QuestionBank
}

func NewMemoryStore(banks ...*QuestionBank) *MemoryStore {
	s := &MemoryStore{banks: make(map[string]*QuestionBank, len(banks))}
	for _, b := range banks {
		if b == nil {
			continue
		}
		s.banks[strings.TrimSpace(b.ExamID)] = b.clone()
	}
	return s
}

func (s *MemoryStore) GetQuestionBank(ctx context.Context, examID string) (*QuestionBank, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.banks[strings.TrimSpace(examID)]
	if !ok {
		return nil, ErrExamNotFound
	}
	return b.clone(), nil
}

func (s *MemoryStore) ReplaceQuestionBank(ctx context.Context, b *QuestionBank) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := Validate(b); err != nil {
		return fmt.Errorf("replace question bank: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banks[strings.TrimSpace(b.ExamID)] = b.clone()
	return nil
}

func (s *MemoryStore) ListExams(ctx context.Context) ([]ExamInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ExamInfo, 0, len(s.banks))
	for id, b := range s.banks {
		out = append(out, ExamInfo{ExamName: id, Areas: len(b.Areas), Questions: b.QuestionCount()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExamName < out[j].ExamName })
	return out, nil
}

type ExamInfo struct {
	ExamName  string `json:"examName"`
	Areas     int    `json:"areas"`
	Questions int    `json:"questions"`
}
