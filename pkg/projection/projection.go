// Package projection turns a bundle of scalar economic parameters into a
// per-year table of tax base and tax revenue.
//
// Every year is computed independently from its index, so a table for a
// longer horizon always extends the table for a shorter one. Project has no
// side effects and never fails; range checking belongs to the caller.
package projection

import (
	"github.com/iwvelando/cbdc-tax-forecast/pkg/constants"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/mathutil"
)

// Macro holds the optional macroeconomic extension of a scenario.
type Macro struct {
	InflationRate        float64 // percent per year, >= 0
	PopulationGrowthRate float64 // percent per year, >= 0
	GDPImpactFactor      float64 // weight in [0, 1]
}

// Parameters is one scenario's inputs. A nil Macro selects the basic model.
type Parameters struct {
	BaselineTaxBase       float64 // billions of local currency, >= 100
	AdoptionRate          float64 // percent in [0, 100]
	ComplianceImprovement float64 // percent in [0, 100]
	TaxRate               float64 // percent in [0, 50]
	Macro                 *Macro
}

// Extended reports whether the macro extension is active.
func (p Parameters) Extended() bool {
	return p.Macro != nil
}

// Config holds the settings shared by every scenario of a run.
type Config struct {
	TimeHorizon   int
	Alpha         float64
	GDPGrowthRate float64
}

// DefaultConfig returns a Config for the horizon with the fixed model constants.
func DefaultConfig(timeHorizon int) Config {
	return Config{
		TimeHorizon:   timeHorizon,
		Alpha:         constants.Alpha,
		GDPGrowthRate: constants.GDPGrowthRate,
	}
}

// Row is one projected year.
type Row struct {
	Year             int
	TaxBase          float64
	TaxRevenue       float64
	InflationFactor  float64
	PopulationFactor float64
	GDPFactor        float64
	CBDCMultiplier   float64
}

// TotalMultiplier is the combined growth applied to the baseline in this row.
func (r Row) TotalMultiplier() float64 {
	return r.CBDCMultiplier * r.InflationFactor * r.PopulationFactor * r.GDPFactor
}

// Table is a projection ordered by ascending year, starting at year 1.
type Table []Row

// Final returns the last row of the table.
func (t Table) Final() (Row, bool) {
	if len(t) == 0 {
		return Row{}, false
	}
	return t[len(t)-1], true
}

// Prefix returns the first n years of the table.
func (t Table) Prefix(n int) Table {
	if n < 0 {
		n = 0
	}
	if n > len(t) {
		n = len(t)
	}
	return t[:n:n]
}

// Project computes the table for years 1..TimeHorizon.
func Project(p Parameters, c Config) Table {
	if c.TimeHorizon <= 0 {
		return Table{}
	}
	table := make(Table, 0, c.TimeHorizon)
	for year := 1; year <= c.TimeHorizon; year++ {
		table = append(table, ProjectYear(p, c, year))
	}
	return table
}

// ProjectYear computes a single year of the projection.
func ProjectYear(p Parameters, c Config, year int) Row {
	row := Row{
		Year:             year,
		CBDCMultiplier:   CBDCMultiplier(p.AdoptionRate, p.ComplianceImprovement, c.Alpha, year),
		InflationFactor:  1,
		PopulationFactor: 1,
		GDPFactor:        1,
	}

	total := row.CBDCMultiplier
	if p.Macro != nil {
		row.InflationFactor = mathutil.CompoundFactor(mathutil.Fraction(p.Macro.InflationRate), year)
		row.PopulationFactor = mathutil.CompoundFactor(mathutil.Fraction(p.Macro.PopulationGrowthRate), year)
		row.GDPFactor = GDPFactor(p.Macro.GDPImpactFactor, c.GDPGrowthRate, year)
		total = row.CBDCMultiplier * row.InflationFactor * row.PopulationFactor * row.GDPFactor
	}

	row.TaxBase = p.BaselineTaxBase * total
	row.TaxRevenue = mathutil.ApplyPercentage(row.TaxBase, p.TaxRate)
	return row
}

// CBDCMultiplier grows linearly with the year: each year adds the same slice
// alpha x adoption x compliance.
func CBDCMultiplier(adoptionRate, complianceImprovement, alpha float64, year int) float64 {
	return 1 + alpha*mathutil.Fraction(adoptionRate)*mathutil.Fraction(complianceImprovement)*float64(year)
}

// GDPFactor blends full compounding GDP growth with no GDP effect, weighted by
// impact.
func GDPFactor(impact, growthRate float64, year int) float64 {
	return mathutil.CompoundFactor(growthRate, year)*impact + (1 - impact)
}
