package exam

import (
	"math/rand/v2"

	"cbtexam/internal/bank"
	"cbtexam/internal/syllabus"
)

// ShuffleFunc has the signature of rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

// Options re-keys a question's four choices for the wire.
type Options struct {
	Option1 string `json:"option1"`
	Option2 string `json:"option2"`
	Option3 string `json:"option3"`
	Option4 string `json:"option4"`
}

func optionsOf(q bank.Question) Options {
	return Options{Option1: q.Options[0], Option2: q.Options[1], Option3: q.Options[2], Option4: q.Options[3]}
}

// SelectableQuestion is what a candidate sees. It has no answer and no
// explanation, only the identifier needed to submit an answer later.
type SelectableQuestion struct {
	QuestionNo   int             `json:"questionNo"`
	QuestionHash string          `json:"questionHash"`
	Question     string          `json:"question"`
	Options      Options         `json:"options"`
	Difficulty   bank.Difficulty `json:"difficulty"`
	AreaName     string          `json:"areaName"`
}

type AreaPaper struct {
	SerialNo      int                  `json:"serialNo"`
	AreaName      string               `json:"areaName"`
	SelectedCount int                  `json:"selectedCount"`
	Questions     []SelectableQuestion `json:"questions"`
}

type ExamPaper struct {
	TotalAreas             int         `json:"totalAreas"`
	TotalRequiredQuestions int         `json:"totalRequiredQuestions"`
	TotalSelectedQuestions int         `json:"totalSelectedQuestions"`
	Areas                  []AreaPaper `json:"areas"`
}

type pooledQuestion struct {
	question   bank.Question
	difficulty bank.Difficulty
	ordinal    int
}

// SelectExamQuestions assembles one exam instance. Areas are visited in bank
// order; an area whose syllabus quota is zero or whose pool is empty is left
// out. Each included area contributes min(quota, pool) questions drawn
// uniformly from its three tiers combined. A nil shuffle uses rand.Shuffle.
func SelectExamQuestions(b *bank.QuestionBank, syl *syllabus.Syllabus, secret string, shuffle ShuffleFunc) (*ExamPaper, error) {
	if b == nil || len(b.Areas) == 0 {
		return nil, ErrNoExaminableContent
	}
	if shuffle == nil {
		shuffle = rand.Shuffle
	}

	paper := &ExamPaper{Areas: make([]AreaPaper, 0, len(b.Areas))}
	for i := range b.Areas {
		area := &b.Areas[i]
		quota := syl.Quota(area.Name)
		if quota <= 0 {
			continue
		}

		pool := make([]pooledQuestion, 0, area.Size())
		for _, d := range bank.Tiers {
			for ordinal, q := range area.Tier(d) {
				pool = append(pool, pooledQuestion{question: q, difficulty: d, ordinal: ordinal})
			}
		}
		if len(pool) == 0 {
			continue
		}

		shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		take := min(quota, len(pool))

		questions := make([]SelectableQuestion, 0, take)
		for n, p := range pool[:take] {
			questions = append(questions, SelectableQuestion{
				QuestionNo:   n + 1,
				QuestionHash: Identify(b.ExamID, area.Name, p.difficulty, p.ordinal, p.question.Question, secret),
				Question:     p.question.Question,
				Options:      optionsOf(p.question),
				Difficulty:   p.difficulty,
				AreaName:     area.Name,
			})
		}

		paper.Areas = append(paper.Areas, AreaPaper{
			SerialNo:      len(paper.Areas) + 1,
			AreaName:      area.Name,
			SelectedCount: len(questions),
			Questions:     questions,
		})
		paper.TotalRequiredQuestions += quota
		paper.TotalSelectedQuestions += len(questions)
	}
	paper.TotalAreas = len(paper.Areas)

	if paper.TotalSelectedQuestions == 0 {
		return nil, ErrNoExaminableContent
	}
	return paper, nil
}
