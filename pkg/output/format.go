// Package output provides utilities for formatting and displaying projection results.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	json "github.com/goccy/go-json"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/iwvelando/cbdc-tax-forecast/internal/indicator"
	"github.com/iwvelando/cbdc-tax-forecast/internal/scenario"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/constants"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/format"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/mathutil"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/projection"
)

// RowView is one projected year as exposed by machine-readable outputs.
// Amounts are rounded to two decimals and factors to three; the macro
// factors are omitted for basic scenarios.
type RowView struct {
	Year             int      `json:"year"`
	TaxBase          float64  `json:"taxBase"`
	TaxRevenue       float64  `json:"taxRevenue"`
	InflationFactor  *float64 `json:"inflationFactor,omitempty"`
	PopulationFactor *float64 `json:"populationFactor,omitempty"`
	GDPFactor        *float64 `json:"gdpFactor,omitempty"`
	CBDCMultiplier   float64  `json:"cbdcMultiplier"`
	TotalMultiplier  float64  `json:"totalMultiplier"`
}

// ResultView is a scenario result as exposed by machine-readable outputs.
type ResultView struct {
	Scenario   string                   `json:"scenario"`
	Name       string                   `json:"name"`
	Extended   bool                     `json:"extended"`
	Parameters scenario.ParameterRecord `json:"parameters"`
	Rows       []RowView                `json:"rows"`
}

// SeriesPoint is one year of the revenue chart, keyed by scenario.
type SeriesPoint struct {
	Year    int                `json:"year"`
	Revenue map[string]float64 `json:"revenue"`
}

// Report is the JSON document written by JSONFormat.
type Report struct {
	Results    []ResultView              `json:"results"`
	Comparison *scenario.FinalComparison `json:"comparison,omitempty"`
	Chart      []SeriesPoint             `json:"chart"`
}

// Views converts results into their machine-readable form.
func Views(results []scenario.Result) []ResultView {
	views := make([]ResultView, 0, len(results))
	for _, result := range results {
		extended := result.Parameters.Extended()
		view := ResultView{
			Scenario:   result.Scenario,
			Name:       result.Name,
			Extended:   extended,
			Parameters: scenario.RecordFromParameters(result.Parameters),
			Rows:       make([]RowView, 0, len(result.Table)),
		}
		for _, row := range result.Table {
			view.Rows = append(view.Rows, rowView(row, extended))
		}
		views = append(views, view)
	}
	return views
}

func rowView(row projection.Row, extended bool) RowView {
	v := RowView{
		Year:            row.Year,
		TaxBase:         mathutil.Round(row.TaxBase),
		TaxRevenue:      mathutil.Round(row.TaxRevenue),
		CBDCMultiplier:  roundFactor(row.CBDCMultiplier),
		TotalMultiplier: roundFactor(row.TotalMultiplier()),
	}
	if extended {
		inflation, population, gdp := roundFactor(row.InflationFactor), roundFactor(row.PopulationFactor), roundFactor(row.GDPFactor)
		v.InflationFactor = &inflation
		v.PopulationFactor = &population
		v.GDPFactor = &gdp
	}
	return v
}

func roundFactor(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// ChartSeries returns the yearly tax revenue of every result, ascending by
// year. All results share a horizon, so the first table drives the years.
func ChartSeries(results []scenario.Result) []SeriesPoint {
	if len(results) == 0 {
		return []SeriesPoint{}
	}
	points := make([]SeriesPoint, len(results[0].Table))
	for i, row := range results[0].Table {
		points[i] = SeriesPoint{Year: row.Year, Revenue: make(map[string]float64, len(results))}
	}
	for _, result := range results {
		for i, row := range result.Table {
			if i < len(points) {
				points[i].Revenue[result.Scenario] = mathutil.Round(row.TaxRevenue)
			}
		}
	}
	return points
}

// PrettyFormat writes a human-readable rather than machine-readable table for
// every result, followed by the final-year comparison when there is one.
func PrettyFormat(w io.Writer, results []scenario.Result, comparison *scenario.FinalComparison) {
	for i, result := range results {
		kind := "basic"
		if result.Parameters.Extended() {
			kind = "extended"
		}
		_, _ = fmt.Fprintf(w, "--- Results for scenario %s (%s) ---\n", result.Name, kind)
		prettyParameters(w, result.Parameters)

		if result.Parameters.Extended() {
			_, _ = fmt.Fprintf(w, "Year | Tax Base (%s) | Tax Revenue (%s) | Inflation | Population | GDP   | CBDC  | Total\n",
				constants.CurrencyUnit, constants.CurrencyUnit)
			_, _ = fmt.Fprintf(w, "____ | _______________ | __________________ | _________ | __________ | _____ | _____ | _____\n")
			for _, row := range result.Table {
				_, _ = fmt.Fprintf(w, "%4d | %15s | %18s | %9s | %10s | %5s | %5s | %5s\n",
					row.Year, format.Currency(row.TaxBase), format.Currency(row.TaxRevenue),
					format.Factor(row.InflationFactor), format.Factor(row.PopulationFactor),
					format.Factor(row.GDPFactor), format.Factor(row.CBDCMultiplier), format.Factor(row.TotalMultiplier()))
			}
		} else {
			_, _ = fmt.Fprintf(w, "Year | Tax Base (%s) | Tax Revenue (%s)\n", constants.CurrencyUnit, constants.CurrencyUnit)
			_, _ = fmt.Fprintf(w, "____ | _______________ | __________________\n")
			for _, row := range result.Table {
				_, _ = fmt.Fprintf(w, "%4d | %15s | %18s\n", row.Year, format.Currency(row.TaxBase), format.Currency(row.TaxRevenue))
			}
		}
		if i < len(results)-1 || comparison != nil {
			_, _ = fmt.Fprintf(w, "\n")
		}
	}

	if comparison != nil {
		ComparisonFormat(w, *comparison)
	}
}

func prettyParameters(w io.Writer, params projection.Parameters) {
	_, _ = fmt.Fprintf(w, "Baseline tax base: %s %s | Adoption: %s | Compliance: %s | Tax rate: %s\n",
		format.Currency(params.BaselineTaxBase), constants.CurrencyUnit,
		format.Percent(params.AdoptionRate), format.Percent(params.ComplianceImprovement), format.Percent(params.TaxRate))
	if params.Macro != nil {
		_, _ = fmt.Fprintf(w, "Inflation: %s | Population growth: %s | GDP impact: %s\n",
			format.Percent(params.Macro.InflationRate), format.Percent(params.Macro.PopulationGrowthRate),
			format.Ratio(params.Macro.GDPImpactFactor))
	}
}

// ComparisonFormat writes the two-row final-year comparison and the B-minus-A
// difference.
func ComparisonFormat(w io.Writer, comparison scenario.FinalComparison) {
	_, _ = fmt.Fprintf(w, "--- Final year comparison (year %d) ---\n", comparison.B.Year)
	_, _ = fmt.Fprintf(w, "Scenario | Final Tax Base (%s) | Final Tax Revenue (%s)\n", constants.CurrencyUnit, constants.CurrencyUnit)
	_, _ = fmt.Fprintf(w, "________ | _____________________ | ________________________\n")
	for _, final := range comparison.Rows() {
		_, _ = fmt.Fprintf(w, "%-8s | %21s | %24s\n", final.Name, format.Currency(final.TaxBase), format.Currency(final.TaxRevenue))
	}
	_, _ = fmt.Fprintf(w, "%-8s | %21s | %24s\n", "B - A", format.Currency(comparison.DeltaTaxBase), format.Currency(comparison.DeltaTaxRevenue))
}

// CsvFormat writes every result in comma-separated value format, one row per
// scenario and year.
func CsvFormat(w io.Writer, results []scenario.Result) error {
	cw := csv.NewWriter(w)
	header := []string{"scenario", "name", "year", "tax_base", "tax_revenue",
		"inflation_factor", "population_factor", "gdp_factor", "cbdc_multiplier", "total_multiplier"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, result := range results {
		for _, row := range result.Table {
			record := []string{
				result.Scenario,
				result.Name,
				strconv.Itoa(row.Year),
				format.NumericCurrency(row.TaxBase),
				format.NumericCurrency(row.TaxRevenue),
				format.Factor(row.InflationFactor),
				format.Factor(row.PopulationFactor),
				format.Factor(row.GDPFactor),
				format.Factor(row.CBDCMultiplier),
				format.Factor(row.TotalMultiplier()),
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// JSONFormat writes results, the optional comparison and the revenue chart
// series as one indented JSON document.
func JSONFormat(w io.Writer, results []scenario.Result, comparison *scenario.FinalComparison) error {
	report := Report{
		Results:    Views(results),
		Comparison: comparison,
		Chart:      ChartSeries(results),
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// IndicatorsFormat writes indicator readings; failed readings show the
// unavailable label instead of a value.
func IndicatorsFormat(w io.Writer, readings []indicator.Reading) {
	p := message.NewPrinter(language.English)
	for _, reading := range readings {
		if !reading.Available {
			_, _ = fmt.Fprintf(w, "%s (%d): %s\n", reading.Label, reading.Year, constants.UnavailableLabel)
			continue
		}
		_, _ = p.Fprintf(w, "%s (%d): %.0f\n", reading.Label, reading.Year, reading.Value)
	}
}
