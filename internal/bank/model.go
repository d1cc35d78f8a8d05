package bank

import (
	"errors"
	"fmt"
	"strings"

	"cbtexam/internal/syllabus"
)

var (
	ErrExamNotFound = errors.New("exam not found")
	ErrInvalidBank  = errors.New("invalid question bank")
)

// Difficulty names one of the three tiers an area splits its questions into.
type Difficulty string

const (
	Basic        Difficulty = "basic"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// Tiers lists the difficulties in pooling and enumeration order.
var Tiers = []Difficulty{Basic, Intermediate, Advanced}

// ParseDifficulty accepts a tier name in any case.
func ParseDifficulty(raw string) (Difficulty, bool) {
	switch Difficulty(strings.ToLower(strings.TrimSpace(raw))) {
	case Basic:
		return Basic, true
	case Intermediate:
		return Intermediate, true
	case Advanced:
		return Advanced, true
	default:
		return "", false
	}
}

// Rank orders the tiers for storage.
func (d Difficulty) Rank() int {
	switch d {
	case Basic:
		return 0
	case Intermediate:
		return 1
	case Advanced:
		return 2
	default:
		return -1
	}
}

type Question struct {
	Question      string    `json:"question"`
	Options       [4]string `json:"options"`
	CorrectAnswer string    `json:"correctAnswer"`
	Explanation   string    `json:"explanation"`
}

// Area holds one subject area's questions. The position of a question inside
// its tier list is part of its identity, so the lists must keep their order.
type Area struct {
	Name         string     `json:"name"`
	Basic        []Question `json:"basic"`
	Intermediate []Question `json:"intermediate"`
	Advanced     []Question `json:"advanced"`
}

func (a *Area) Tier(d Difficulty) []Question {
	switch d {
	case Basic:
		return a.Basic
	case Intermediate:
		return a.Intermediate
	case Advanced:
		return a.Advanced
	default:
		return nil
	}
}

func (a *Area) appendTo(d Difficulty, q Question) {
	switch d {
	case Basic:
		a.Basic = append(a.Basic, q)
	case Intermediate:
		a.Intermediate = append(a.Intermediate, q)
	case Advanced:
		a.Advanced = append(a.Advanced, q)
	}
}

func (a *Area) Size() int {
	return len(a.Basic) + len(a.Intermediate) + len(a.Advanced)
}

type QuestionBank struct {
	ExamID string `json:"examId"`
	Areas  []Area `json:"areas"`
}

func (b *QuestionBank) QuestionCount() int {
	n := 0
	for i := range b.Areas {
		n += b.Areas[i].Size()
	}
	return n
}

func (b *QuestionBank) clone() *QuestionBank {
	out := &QuestionBank{ExamID: b.ExamID, Areas: make([]Area, len(b.Areas))}
	for i, a := range b.Areas {
		out.Areas[i] = Area{
			Name:         a.Name,
			Basic:        append([]Question(nil), a.Basic...),
			Intermediate: append([]Question(nil), a.Intermediate...),
			Advanced:     append([]Question(nil), a.Advanced...),
		}
	}
	return out
}

// Validate checks what the stores and the exam engine rely on: a named exam,
// named areas that stay distinct after normalization, and questions that
// carry text and a correct answer.
func Validate(b *QuestionBank) error {
	if b == nil {
		return fmt.Errorf("%w: bank is nil", ErrInvalidBank)
	}
	if strings.TrimSpace(b.ExamID) == "" {
		return fmt.Errorf("%w: exam id is required", ErrInvalidBank)
	}
	seen := make(map[string]struct{}, len(b.Areas))
	for i := range b.Areas {
		a := &b.Areas[i]
		key := syllabus.Normalize(a.Name)
		if key == "" {
			return fmt.Errorf("%w: area %d has no name", ErrInvalidBank, i+1)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate area %q", ErrInvalidBank, a.Name)
		}
		seen[key] = struct{}{}
		for _, d := range Tiers {
			for pos, q := range a.Tier(d) {
				if strings.TrimSpace(q.Question) == "" {
					return fmt.Errorf("%w: %s/%s #%d has no question text", ErrInvalidBank, a.Name, d, pos)
				}
				if strings.TrimSpace(q.CorrectAnswer) == "" {
					return fmt.Errorf("%w: %s/%s #%d has no correct answer", ErrInvalidBank, a.Name, d, pos)
				}
			}
		}
	}
	return nil
}
