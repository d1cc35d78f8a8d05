package exam

import (
	"fmt"
	"testing"

	"cbtexam/internal/bank"
	"cbtexam/internal/syllabus"
)

const testSecret = "test-secret"

// makeArea builds an area with the given tier sizes. Every question's correct
// answer is its first option, and texts are unique per area.
func makeArea(name string, basic, intermediate, advanced int) bank.Area {
	gen := func(tier string, n int) []bank.Question {
		out := make([]bank.Question, 0, n)
		for i := 0; i < n; i++ {
			text := fmt.Sprintf("%s %s question %d", name, tier, i)
			out = append(out, bank.Question{
				Question:      text,
				Options:       [4]string{"right " + text, "wrong a", "wrong b", "wrong c"},
				CorrectAnswer: "right " + text,
				Explanation:   "explained " + text,
			})
		}
		return out
	}
	return bank.Area{
		Name:         name,
		Basic:        gen("basic", basic),
		Intermediate: gen("intermediate", intermediate),
		Advanced:     gen("advanced", advanced),
	}
}

func testBank() *bank.QuestionBank {
	return &bank.QuestionBank{
		ExamID: "bar-2026",
		Areas: []bank.Area{
			makeArea("Constitutional Law", 3, 2, 1),
			makeArea("Labour & Industrial Law", 1, 1, 0),
			makeArea("Space Law", 4, 0, 0),
			makeArea("Jurisprudence", 0, 0, 0),
		},
	}
}

func testSyllabus(t *testing.T) *syllabus.Syllabus {
	t.Helper()
	s, err := syllabus.New([]syllabus.Entry{
		{Area: "constitutional law", Quota: 4},
		{Area: "Labour and Industrial Law", Quota: 5},
		{Area: "Jurisprudence", Quota: 2},
	})
	if err != nil {
		t.Fatalf("syllabus: %v", err)
	}
	return s
}

// noShuffle keeps the pool in tier order.
func noShuffle(n int, swap func(i, j int)) {}

// reverseShuffle reverses the pool.
func reverseShuffle(n int, swap func(i, j int)) {
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		swap(i, j)
	}
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }
