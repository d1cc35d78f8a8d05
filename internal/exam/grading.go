package exam

import (
	"fmt"
	"math"
	"sort"

	"cbtexam/internal/bank"
)

const (
	DefaultPassingScore = 45.0
	NotAnsweredLabel    = "Not Answered"
)

type SubmittedAnswer struct {
	QuestionHash string  `json:"questionHash"`
	UserAnswer   *string `json:"userAnswer"`
}

type GradedResult struct {
	QuestionHash  string          `json:"questionHash"`
	Question      string          `json:"question"`
	Options       Options         `json:"options"`
	UserAnswer    string          `json:"userAnswer"`
	CorrectAnswer string          `json:"correctAnswer"`
	IsCorrect     bool            `json:"isCorrect"`
	Difficulty    bank.Difficulty `json:"difficulty"`
	Explanation   string          `json:"explanation"`
	AreaName      string          `json:"areaName"`
}

type DifficultyStat struct {
	Total      int     `json:"total"`
	Correct    int     `json:"correct"`
	Percentage float64 `json:"percentage"`
}

type DifficultyBreakdown struct {
	Basic        DifficultyStat `json:"basic"`
	Intermediate DifficultyStat `json:"intermediate"`
	Advanced     DifficultyStat `json:"advanced"`
}

func (b *DifficultyBreakdown) stat(d bank.Difficulty) *DifficultyStat {
	switch d {
	case bank.Basic:
		return &b.Basic
	case bank.Intermediate:
		return &b.Intermediate
	case bank.Advanced:
		return &b.Advanced
	default:
		return nil
	}
}

type AreaStat struct {
	AreaName    string  `json:"areaName"`
	Correct     int     `json:"correct"`
	Incorrect   int     `json:"incorrect"`
	NotAnswered int     `json:"notAnswered"`
	Total       int     `json:"total"`
	Percentage  float64 `json:"percentage"`
}

type GradedReport struct {
	TotalQuestions        int                 `json:"totalQuestions"`
	CorrectAnswers        int                 `json:"correctAnswers"`
	IncorrectAnswers      int                 `json:"incorrectAnswers"`
	NotAnswered           int                 `json:"notAnswered"`
	DroppedAnswers        int                 `json:"droppedAnswers"`
	Score                 float64             `json:"score"`
	Passed                bool                `json:"passed"`
	TimeTaken             int64               `json:"timeTaken"`
	TimeTakenFormatted    string              `json:"timeTakenFormatted"`
	Results               []GradedResult      `json:"results"`
	BreakdownByDifficulty DifficultyBreakdown `json:"breakdownByDifficulty"`
	BreakdownByArea       []AreaStat          `json:"breakdownByArea"`
}

// Grade scores a submission against an answer key. Answers whose identifier
// is not in the key are left out of every count and reported only through
// DroppedAnswers. Answer comparison is exact. A nil or empty answer counts as
// not answered. Timestamps are epoch milliseconds; elapsed time is zero
// unless both are present.
func Grade(key AnswerKey, answers []SubmittedAnswer, startTime, endTime *int64, passingScore float64) *GradedReport {
	rep := &GradedReport{
		Results:         make([]GradedResult, 0, len(answers)),
		BreakdownByArea: make([]AreaStat, 0),
	}
	areaIdx := map[string]int{}

	for _, a := range answers {
		entry, ok := key[a.QuestionHash]
		if !ok {
			rep.DroppedAnswers++
			continue
		}

		answered := a.UserAnswer != nil && *a.UserAnswer != ""
		userAnswer := NotAnsweredLabel
		if answered {
			userAnswer = *a.UserAnswer
		}
		isCorrect := answered && *a.UserAnswer == entry.CorrectAnswer

		rep.Results = append(rep.Results, GradedResult{
			QuestionHash:  a.QuestionHash,
			Question:      entry.Question,
			Options:       entry.Options,
			UserAnswer:    userAnswer,
			CorrectAnswer: entry.CorrectAnswer,
			IsCorrect:     isCorrect,
			Difficulty:    entry.Difficulty,
			Explanation:   entry.Explanation,
			AreaName:      entry.AreaName,
		})

		idx, seen := areaIdx[entry.AreaName]
		if !seen {
			idx = len(rep.BreakdownByArea)
			areaIdx[entry.AreaName] = idx
			rep.BreakdownByArea = append(rep.BreakdownByArea, AreaStat{AreaName: entry.AreaName})
		}
		area := &rep.BreakdownByArea[idx]
		area.Total++

		tier := rep.BreakdownByDifficulty.stat(entry.Difficulty)
		if tier != nil {
			tier.Total++
		}

		rep.TotalQuestions++
		switch {
		case isCorrect:
			rep.CorrectAnswers++
			area.Correct++
			if tier != nil {
				tier.Correct++
			}
		case answered:
			rep.IncorrectAnswers++
			area.Incorrect++
		default:
			rep.NotAnswered++
			area.NotAnswered++
		}
	}

	rep.Score = percentage(rep.CorrectAnswers, rep.TotalQuestions)
	rep.Passed = rep.Score >= passingScore

	for _, d := range bank.Tiers {
		s := rep.BreakdownByDifficulty.stat(d)
		s.Percentage = percentage(s.Correct, s.Total)
	}
	for i := range rep.BreakdownByArea {
		a := &rep.BreakdownByArea[i]
		a.Percentage = percentage(a.Correct, a.Total)
	}
	sort.SliceStable(rep.BreakdownByArea, func(i, j int) bool {
		return rep.BreakdownByArea[i].Percentage > rep.BreakdownByArea[j].Percentage
	})

	rep.TimeTaken = elapsedSeconds(startTime, endTime)
	rep.TimeTakenFormatted = FormatDuration(rep.TimeTaken)
	return rep
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func elapsedSeconds(startTime, endTime *int64) int64 {
	if startTime == nil || endTime == nil {
		return 0
	}
	ms := *endTime - *startTime
	if ms <= 0 {
		return 0
	}
	return ms / 1000
}

// FormatDuration renders seconds as "1h 2m 3s", "2m 3s" or "3s".
func FormatDuration(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
