package syllabus

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptySyllabus  = errors.New("syllabus has no areas")
	ErrInvalidEntry   = errors.New("invalid syllabus entry")
	ErrDuplicateEntry = errors.New("duplicate syllabus area")
)

// Entry is one configured subject area and the number of questions it
// contributes to an assembled exam.
type Entry struct {
	Area  string `mapstructure:"area" json:"area"`
	Quota int    `mapstructure:"quota" json:"quota"`
}

// Syllabus is the process-wide quota table. It is built once at startup and
// never mutated afterwards, so concurrent readers need no locking.
type Syllabus struct {
	quotas  map[string]int
	entries []Entry
}

func New(entries []Entry) (*Syllabus, error) {
	s := &Syllabus{
		quotas:  make(map[string]int, len(entries)),
		entries: make([]Entry, 0, len(entries)),
	}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		area := strings.TrimSpace(e.Area)
		if area == "" {
			return nil, fmt.Errorf("%w: empty area name", ErrInvalidEntry)
		}
		if e.Quota < 0 {
			return nil, fmt.Errorf("%w: negative quota for %q", ErrInvalidEntry, area)
		}
		key := Normalize(area)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateEntry, area)
		}
		seen[key] = struct{}{}

		s.quotas[area] = e.Quota
		s.entries = append(s.entries, Entry{Area: area, Quota: e.Quota})
	}
	return s, nil
}

// Quota returns how many questions an area contributes. Keys written in
// canonical form hit the direct lookup; anything else is found by comparing
// normalized forms. Unknown areas yield zero.
func (s *Syllabus) Quota(area string) int {
	if s == nil {
		return 0
	}
	key := Normalize(area)
	if key == "" {
		return 0
	}
	if q, ok := s.quotas[key]; ok {
		return q
	}
	for _, e := range s.entries {
		if Normalize(e.Area) == key {
			return e.Quota
		}
	}
	return 0
}

// Entries returns a copy of the configured areas in file order.
func (s *Syllabus) Entries() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Syllabus) TotalQuota() int {
	if s == nil {
		return 0
	}
	total := 0
	for _, e := range s.entries {
		total += e.Quota
	}
	return total
}
