package bank

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"cbtexam/internal/syllabus"

	"github.com/xuri/excelize/v2"
)

var excelHeaders = []string{
	"area", "difficulty", "question",
	"option1", "option2", "option3", "option4",
	"correct_answer", "explanation",
}

type ImportRowError struct {
	Row   int    `json:"row"`
	Area  string `json:"area,omitempty"`
	Error string `json:"error"`
}

type ImportReport struct {
	TotalRows   int              `json:"total_rows"`
	SuccessRows int              `json:"success_rows"`
	FailedRows  int              `json:"failed_rows"`
	Areas       int              `json:"areas"`
	Errors      []ImportRowError `json:"errors"`
}

// ParseExcel reads a question bank from the first sheet of a workbook. Row
// order decides question order inside each tier, and areas keep the order in
// which they first appear. Area spellings that normalize to the same key are
// merged under the first spelling seen.
func ParseExcel(examID string, r io.Reader) (*QuestionBank, *ImportReport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open excel: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("excel sheet is empty")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, errors.New("no data rows found")
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range excelHeaders[:8] {
		if _, ok := header[col]; !ok {
			return nil, nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	b := &QuestionBank{ExamID: strings.TrimSpace(examID), Areas: make([]Area, 0)}
	areaIdx := map[string]int{}
	report := &ImportReport{Errors: make([]ImportRowError, 0)}
	for i := 1; i < len(rows); i++ {
		rowNo := i + 1
		row := rows[i]

		get := func(key string) string {
			idx, ok := header[key]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		areaName := get("area")
		if isBlankRow(row) {
			continue
		}
		report.TotalRows++

		fail := func(msg string) {
			report.FailedRows++
			report.Errors = append(report.Errors, ImportRowError{Row: rowNo, Area: areaName, Error: msg})
		}

		key := syllabus.Normalize(areaName)
		if key == "" {
			fail("area is required")
			continue
		}
		d, ok := ParseDifficulty(get("difficulty"))
		if !ok {
			fail("difficulty must be basic, intermediate or advanced")
			continue
		}
		q := Question{
			Question:      get("question"),
			CorrectAnswer: get("correct_answer"),
			Explanation:   get("explanation"),
		}
		if q.Question == "" || q.CorrectAnswer == "" {
			fail("question and correct_answer are required")
			continue
		}
		missingOption := false
		for o := range q.Options {
			q.Options[o] = get(fmt.Sprintf("option%d", o+1))
			if q.Options[o] == "" {
				missingOption = true
			}
		}
		if missingOption {
			fail("all four options are required")
			continue
		}

		idx, seen := areaIdx[key]
		if !seen {
			idx = len(b.Areas)
			areaIdx[key] = idx
			b.Areas = append(b.Areas, Area{Name: areaName})
		}
		b.Areas[idx].appendTo(d, q)
		report.SuccessRows++
	}
	report.Areas = len(b.Areas)

	return b, report, nil
}

// ExportExcel writes a bank in the layout ParseExcel reads, so an export can
// be edited and imported again without changing question order.
func ExportExcel(b *QuestionBank) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	for i, h := range excelHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for ai := range b.Areas {
		a := &b.Areas[ai]
		for _, d := range Tiers {
			for _, q := range a.Tier(d) {
				values := []any{
					a.Name, string(d), q.Question,
					q.Options[0], q.Options[1], q.Options[2], q.Options[3],
					q.CorrectAnswer, q.Explanation,
				}
				for col, v := range values {
					cell, _ := excelize.CoordinatesToCellName(col+1, row)
					_ = f.SetCellValue(sheet, cell, v)
				}
				row++
			}
		}
	}
	_ = f.SetColWidth(sheet, "A", "B", 24)
	_ = f.SetColWidth(sheet, "C", "C", 60)
	_ = f.SetColWidth(sheet, "D", "I", 28)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
