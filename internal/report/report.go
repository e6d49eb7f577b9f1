// Package report renders a session as a downloadable PDF document.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/iwvelando/cbdc-tax-forecast/internal/indicator"
	"github.com/iwvelando/cbdc-tax-forecast/internal/scenario"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/constants"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/format"
)

const (
	fontFamily = "Arial"
	rowHeight  = 8.0
	yearWidth  = 30.0
	valueWidth = 60.0
	labelWidth = 80.0
)

// Document is everything that goes into one report.
type Document struct {
	Title       string
	GeneratedAt time.Time
	Results     []scenario.Result
	// Comparison is printed only when both scenarios are present.
	Comparison *scenario.FinalComparison
	Indicators []indicator.Reading
}

// NewDocument builds the report document for a full session run.
func NewDocument(evaluation scenario.Evaluation, readings []indicator.Reading) Document {
	comparison := evaluation.Comparison
	return Document{
		Title:       constants.ReportTitle,
		GeneratedAt: time.Now(),
		Results:     evaluation.Results,
		Comparison:  &comparison,
		Indicators:  readings,
	}
}

// Write renders doc as a PDF to w.
func Write(w io.Writer, doc Document) error {
	pdf := build(doc, true)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// WriteFile renders doc as a PDF file at path.
func WriteFile(path string, doc Document) error {
	pdf := build(doc, true)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

func build(doc Document, compress bool) *fpdf.Fpdf {
	title := doc.Title
	if title == "" {
		title = constants.ReportTitle
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetTitle(title, false)
	pdf.SetCreator("cbdc-tax-forecast", false)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont(fontFamily, "B", 16)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	if !doc.GeneratedAt.IsZero() {
		pdf.SetFont(fontFamily, "", 9)
		pdf.CellFormat(0, 6, "Generated "+doc.GeneratedAt.Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	for _, result := range doc.Results {
		writeResult(pdf, result)
	}

	if doc.Comparison != nil && len(doc.Results) == 2 {
		writeComparison(pdf, *doc.Comparison)
	}

	if len(doc.Indicators) > 0 {
		writeIndicators(pdf, doc.Indicators)
	}

	return pdf
}

func writeResult(pdf *fpdf.Fpdf, result scenario.Result) {
	pdf.SetFont(fontFamily, "B", 13)
	pdf.CellFormat(0, 9, fmt.Sprintf("Scenario %s", result.Name), "", 1, "L", false, 0, "")

	p := result.Parameters
	summary := [][2]string{
		{"Baseline Tax Base (" + constants.CurrencyUnit + ")", format.Currency(p.BaselineTaxBase)},
		{"CBDC Adoption Rate", format.Percent(p.AdoptionRate)},
		{"Compliance Improvement", format.Percent(p.ComplianceImprovement)},
		{"Tax Rate", format.Percent(p.TaxRate)},
	}
	if p.Macro != nil {
		summary = append(summary,
			[2]string{"Inflation Rate", format.Percent(p.Macro.InflationRate)},
			[2]string{"Population Growth Rate", format.Percent(p.Macro.PopulationGrowthRate)},
			[2]string{"GDP Impact Factor", format.Ratio(p.Macro.GDPImpactFactor)},
		)
	}
	pdf.SetFont(fontFamily, "", 10)
	for _, line := range summary {
		pdf.CellFormat(labelWidth, 6, line[0]+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, line[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	pdf.SetFont(fontFamily, "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(yearWidth, rowHeight, "Year", "1", 0, "C", true, 0, "")
	pdf.CellFormat(valueWidth, rowHeight, "Tax Base ("+constants.CurrencyUnit+")", "1", 0, "C", true, 0, "")
	pdf.CellFormat(valueWidth, rowHeight, "Tax Revenue ("+constants.CurrencyUnit+")", "1", 1, "C", true, 0, "")

	pdf.SetFont(fontFamily, "", 10)
	for _, row := range result.Table {
		pdf.CellFormat(yearWidth, rowHeight, strconv.Itoa(row.Year), "1", 0, "C", false, 0, "")
		pdf.CellFormat(valueWidth, rowHeight, format.NumericCurrency(row.TaxBase), "1", 0, "R", false, 0, "")
		pdf.CellFormat(valueWidth, rowHeight, format.NumericCurrency(row.TaxRevenue), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)
}

func writeComparison(pdf *fpdf.Fpdf, comparison scenario.FinalComparison) {
	pdf.SetFont(fontFamily, "B", 13)
	pdf.CellFormat(0, 9, fmt.Sprintf("Final Year Comparison (Year %d)", comparison.B.Year), "", 1, "L", false, 0, "")

	pdf.SetFont(fontFamily, "B", 10)
	pdf.CellFormat(yearWidth, rowHeight, "Scenario", "1", 0, "C", true, 0, "")
	pdf.CellFormat(valueWidth, rowHeight, "Final Tax Base", "1", 0, "C", true, 0, "")
	pdf.CellFormat(valueWidth, rowHeight, "Final Tax Revenue", "1", 1, "C", true, 0, "")

	pdf.SetFont(fontFamily, "", 10)
	for _, final := range comparison.Rows() {
		pdf.CellFormat(yearWidth, rowHeight, final.Name, "1", 0, "C", false, 0, "")
		pdf.CellFormat(valueWidth, rowHeight, format.NumericCurrency(final.TaxBase), "1", 0, "R", false, 0, "")
		pdf.CellFormat(valueWidth, rowHeight, format.NumericCurrency(final.TaxRevenue), "1", 1, "R", false, 0, "")
	}
	pdf.SetFont(fontFamily, "I", 10)
	pdf.CellFormat(yearWidth, rowHeight, "B - A", "1", 0, "C", false, 0, "")
	pdf.CellFormat(valueWidth, rowHeight, format.NumericCurrency(comparison.DeltaTaxBase), "1", 0, "R", false, 0, "")
	pdf.CellFormat(valueWidth, rowHeight, format.NumericCurrency(comparison.DeltaTaxRevenue), "1", 1, "R", false, 0, "")
	pdf.Ln(6)
}

func writeIndicators(pdf *fpdf.Fpdf, readings []indicator.Reading) {
	pdf.SetFont(fontFamily, "B", 13)
	pdf.CellFormat(0, 9, "Economic Indicators", "", 1, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	for _, reading := range readings {
		value := constants.UnavailableLabel
		if reading.Available {
			value = format.Currency(reading.Value)
		}
		pdf.CellFormat(labelWidth, 6, fmt.Sprintf("%s (%d):", reading.Label, reading.Year), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
	}
}
