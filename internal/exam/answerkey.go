package exam

import "cbtexam/internal/bank"

type KeyEntry struct {
	Question      string
	Options       Options
	CorrectAnswer string
	Explanation   string
	Difficulty    bank.Difficulty
	AreaName      string
}

// AnswerKey maps every identifier an exam can hand out to its question.
type AnswerKey map[string]KeyEntry

// BuildAnswerKey enumerates the whole bank, not just what one candidate was
// shown, since nothing records which questions were selected.
func BuildAnswerKey(b *bank.QuestionBank, secret string) AnswerKey {
	if b == nil {
		return AnswerKey{}
	}
	key := make(AnswerKey, b.QuestionCount())
	for i := range b.Areas {
		area := &b.Areas[i]
		for _, d := range bank.Tiers {
			for ordinal, q := range area.Tier(d) {
				key[Identify(b.ExamID, area.Name, d, ordinal, q.Question, secret)] = KeyEntry{
					Question:      q.Question,
					Options:       optionsOf(q),
					CorrectAnswer: q.CorrectAnswer,
					Explanation:   q.Explanation,
					Difficulty:    d,
					AreaName:      area.Name,
				}
			}
		}
	}
	return key
}
