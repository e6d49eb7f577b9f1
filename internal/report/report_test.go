package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/iwvelando/cbdc-tax-forecast/internal/indicator"
	"github.com/iwvelando/cbdc-tax-forecast/internal/scenario"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/projection"
)

func testDocument() Document {
	a := projection.Parameters{BaselineTaxBase: 5000, AdoptionRate: 50, ComplianceImprovement: 20, TaxRate: 15}
	b := a
	b.Macro = &projection.Macro{InflationRate: 5, PopulationGrowthRate: 3, GDPImpactFactor: 0.5}
	evaluation := scenario.Evaluate(zap.NewNop(), scenario.New(a, b, 10))

	doc := NewDocument(evaluation, []indicator.Reading{
		{Code: "NY.GDP.MKTP.CD", Label: "GDP (current US$)", Year: 2023, Value: 49273205027.4, Available: true},
		{Code: "SP.POP.TOTL", Label: "Population", Year: 2023},
	})
	doc.GeneratedAt = time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)
	return doc
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, testDocument()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("Write() output is not a PDF: %q", buf.Bytes()[:16])
	}
}

func TestBuildContent(t *testing.T) {
	pdf := build(testDocument(), false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	// Parentheses are escaped inside PDF strings, so only plain text is matched.
	content := buf.String()

	expected := []string{
		"CBDC Tax Base Impact Simulation Report",
		"Scenario A",
		"Scenario B",
		"Tax Revenue",
		"5250.00",
		"787.50",
		"Final Year Comparison",
		"GDP Impact Factor:",
		"Population",
		"unavailable",
	}
	for _, want := range expected {
		if !strings.Contains(content, want) {
			t.Errorf("report content missing %q", want)
		}
	}
}

func TestBuildPaginates(t *testing.T) {
	doc := testDocument()
	// Repeat the results to overflow the first page.
	for i := 0; i < 3; i++ {
		doc.Results = append(doc.Results, doc.Results[:2]...)
	}
	pdf := build(doc, true)
	if pages := pdf.PageCount(); pages < 2 {
		t.Errorf("PageCount() = %d, expected at least 2", pages)
	}
}

func TestBuildSkipsComparisonForSingleResult(t *testing.T) {
	doc := testDocument()
	doc.Results = doc.Results[:1]
	doc.Indicators = nil

	var buf bytes.Buffer
	if err := build(doc, false).Output(&buf); err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	if strings.Contains(buf.String(), "Final Year Comparison") {
		t.Errorf("report printed a comparison for a single scenario")
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := WriteFile(path, testDocument()); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size() == 0 {
		t.Errorf("WriteFile() wrote an empty file")
	}
}
