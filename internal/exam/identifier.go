package exam

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"cbtexam/internal/bank"
)

// DefaultHashSecret is used when no secret is configured. Anyone who knows
// it can recompute identifiers, so production deployments must set their own.
const DefaultHashSecret = "cbtexam-default-question-hash-secret"

const identityTextRunes = 50

// Identify derives the opaque identifier for the question at a given
// (area, tier, position) coordinate of an exam. The result is the lowercase
// hex SHA-256 of "exam-area-difficulty-ordinal-text50-secret", where text50
// is the first 50 runes of the question text.
func Identify(examID, areaName string, difficulty bank.Difficulty, ordinal int, text, secret string) string {
	if secret == "" {
		secret = DefaultHashSecret
	}
	var sb strings.Builder
	sb.WriteString(examID)
	sb.WriteByte('-')
	sb.WriteString(areaName)
	sb.WriteByte('-')
	sb.WriteString(string(difficulty))
	sb.WriteByte('-')
	sb.WriteString(strconv.Itoa(ordinal))
	sb.WriteByte('-')
	sb.WriteString(firstRunes(text, identityTextRunes))
	sb.WriteByte('-')
	sb.WriteString(secret)

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

func firstRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
