// Package render turns an export.Solution into the two document
// formats the CLI surface produces: a gofpdf-backed grid PDF and a
// CSV of the detailed record list.
package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/campusforge/timetable-engine/internal/export"
	"github.com/campusforge/timetable-engine/internal/model"
)

// PDF renders timetable grids to gofpdf documents.
type PDF struct {
	Cat *model.Catalog
}

// NewPDF builds a PDF renderer bound to cat (period ordering and
// working-day names come from the catalog, not the solution).
func NewPDF(cat *model.Catalog) *PDF {
	return &PDF{Cat: cat}
}

// RenderSections renders one page per section view, a weekly grid
// with working days as columns and periods as rows.
func (p *PDF) RenderSections(sol export.Solution, title string) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(8, 10, 8)

	for _, sv := range sol.Sections {
		pdf.AddPage()
		pdf.SetFont("Arial", "B", 13)
		heading := strings.ToUpper(fmt.Sprintf("%s — %s", title, sv.Name))
		pdf.CellFormat(0, 8, heading, "", 1, "C", false, 0, "")
		pdf.Ln(2)
		p.renderGrid(pdf, sv.Grid)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render section pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderFaculty renders one page per faculty view.
func (p *PDF) RenderFaculty(sol export.Solution, title string) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(8, 10, 8)

	for _, fv := range sol.Faculty {
		pdf.AddPage()
		pdf.SetFont("Arial", "B", 13)
		heading := strings.ToUpper(fmt.Sprintf("%s — %s", title, fv.Name))
		pdf.CellFormat(0, 8, heading, "", 1, "C", false, 0, "")
		pdf.Ln(2)
		p.renderGrid(pdf, fv.Grid)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render faculty pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *PDF) renderGrid(pdf *gofpdf.Fpdf, grid export.Grid) {
	days := p.Cat.WorkingDays
	periods := p.Cat.Periods

	labelWidth := 22.0
	colWidth := (277.0 - labelWidth) / float64(len(days))
	rowHeight := 14.0

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(labelWidth, rowHeight/2, "Period", "1", 0, "C", false, 0, "")
	for _, d := range days {
		pdf.CellFormat(colWidth, rowHeight/2, d, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, period := range periods {
		label := fmt.Sprintf("P%s %s-%s", strconv.Itoa(period.ID), period.Start, period.End)
		pdf.CellFormat(labelWidth, rowHeight, label, "1", 0, "C", false, 0, "")
		for day := range days {
			cell := grid[day][period.ID]
			text := cell.Label
			if cell.Faculty != "" && !cell.IsBreak && !cell.IsFree {
				text = fmt.Sprintf("%s / %s / %s", cell.Subject, cell.Faculty, cell.Room)
			}
			pdf.CellFormat(colWidth, rowHeight, text, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
}
