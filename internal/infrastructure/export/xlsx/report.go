package xlsx

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/findit/internal/core/domain"
	"github.com/kirillkom/findit/internal/core/matching"
)

const (
	matchesSheet = "Matches"
	summarySheet = "Summary"
)

var matchHeader = []any{
	"Rank", "Item ID", "Title", "Confidence", "Band", "Reasons",
	"Text", "Image", "Category", "Location", "Time", "Keywords", "Color", "Semantic",
}

// Report is one scored source item with its ranked matches.
type Report struct {
	Source     domain.Item
	Candidates []domain.Item
	Matches    []domain.MatchResult
}

func WriteFile(path string, report Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create xlsx report: %w", err)
	}
	if err := Write(f, report); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func Write(w io.Writer, report Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", matchesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeMatches(f, report); err != nil {
		return err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	if err := writeSummary(f, report); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx report: %w", err)
	}
	return nil
}

func writeMatches(f *excelize.File, report Report) error {
	if err := f.SetSheetRow(matchesSheet, "A1", &matchHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	titles := make(map[string]string, len(report.Candidates))
	for _, candidate := range report.Candidates {
		titles[candidate.ID] = candidate.Title
	}

	for idx, match := range report.Matches {
		d := match.DetailedAnalysis
		row := []any{
			idx + 1,
			match.ItemID,
			titles[match.ItemID],
			match.Confidence,
			string(matching.ConfidenceBand(match.Confidence)),
			strings.Join(match.Reasons, "; "),
			d.TextSimilarity,
			d.ImageSimilarity,
			d.CategoryMatch,
			d.LocationProximity,
			d.TimeProximity,
			d.KeywordOverlap,
			d.ColorSimilarity,
			d.SemanticSimilarity,
		}
		cell, err := excelize.CoordinatesToCellName(1, idx+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(matchesSheet, cell, &row); err != nil {
			return fmt.Errorf("write match row %d: %w", idx+1, err)
		}
	}

	if err := f.SetPanes(matchesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, report Report) error {
	rows := [][]any{
		{"Source ID", report.Source.ID},
		{"Type", string(report.Source.Type)},
		{"Category", string(report.Source.Category)},
		{"Title", report.Source.Title},
		{"Location", report.Source.Location},
		{"Candidates", len(report.Candidates)},
		{"Matches", len(report.Matches)},
	}
	for idx, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, idx+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	return nil
}
