package projection

import (
	"math"
	"reflect"
	"testing"

	"github.com/iwvelando/cbdc-tax-forecast/pkg/constants"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/mathutil"
)

func referenceParameters() Parameters {
	return Parameters{
		BaselineTaxBase:       5000,
		AdoptionRate:          50,
		ComplianceImprovement: 20,
		TaxRate:               15,
	}
}

func referenceMacro() *Macro {
	return &Macro{
		InflationRate:        5,
		PopulationGrowthRate: 3,
		GDPImpactFactor:      0.5,
	}
}

func TestProjectReferenceValues(t *testing.T) {
	table := Project(referenceParameters(), DefaultConfig(5))
	if len(table) != 5 {
		t.Fatalf("len(Project()) = %d, expected 5", len(table))
	}

	tests := []struct {
		name       string
		year       int
		multiplier float64
		taxBase    float64
		taxRevenue float64
	}{
		{"Year 1", 1, 1.05, 5250.00, 787.50},
		{"Year 3", 3, 1.15, 5750.00, 862.50},
		{"Year 5", 5, 1.25, 6250.00, 937.50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := table[tt.year-1]
			if row.Year != tt.year {
				t.Errorf("Year = %d, expected %d", row.Year, tt.year)
			}
			if !mathutil.RelativeEqual(row.CBDCMultiplier, tt.multiplier, 1e-12) {
				t.Errorf("CBDCMultiplier = %v, expected %v", row.CBDCMultiplier, tt.multiplier)
			}
			if got := mathutil.Round(row.TaxBase); got != tt.taxBase {
				t.Errorf("TaxBase = %.2f, expected %.2f", got, tt.taxBase)
			}
			if got := mathutil.Round(row.TaxRevenue); got != tt.taxRevenue {
				t.Errorf("TaxRevenue = %.2f, expected %.2f", got, tt.taxRevenue)
			}
		})
	}
}

func TestProjectBasicFactorsAreNeutral(t *testing.T) {
	for _, row := range Project(referenceParameters(), DefaultConfig(4)) {
		if row.InflationFactor != 1 || row.PopulationFactor != 1 || row.GDPFactor != 1 {
			t.Errorf("year %d: macro factors = (%v, %v, %v), expected all 1",
				row.Year, row.InflationFactor, row.PopulationFactor, row.GDPFactor)
		}
		if row.TotalMultiplier() != row.CBDCMultiplier {
			t.Errorf("year %d: TotalMultiplier() = %v, expected %v", row.Year, row.TotalMultiplier(), row.CBDCMultiplier)
		}
	}
}

func TestProjectExtendedReferenceValues(t *testing.T) {
	p := referenceParameters()
	p.Macro = referenceMacro()

	table := Project(p, DefaultConfig(2))
	row := table[0]

	expected := map[string][2]float64{
		"CBDCMultiplier":   {row.CBDCMultiplier, 1.05},
		"InflationFactor":  {row.InflationFactor, 1.05},
		"PopulationFactor": {row.PopulationFactor, 1.03},
		"GDPFactor":        {row.GDPFactor, 1.025},
		"TaxBase":          {row.TaxBase, 5000 * 1.05 * 1.05 * 1.03 * 1.025},
		"TaxRevenue":       {row.TaxRevenue, 5000 * 1.05 * 1.05 * 1.03 * 1.025 * 0.15},
	}
	for field, pair := range expected {
		if !mathutil.RelativeEqual(pair[0], pair[1], 1e-9) {
			t.Errorf("year 1 %s = %v, expected %v", field, pair[0], pair[1])
		}
	}

	second := table[1]
	if !mathutil.RelativeEqual(second.InflationFactor, 1.05*1.05, 1e-12) {
		t.Errorf("year 2 InflationFactor = %v, expected %v", second.InflationFactor, 1.05*1.05)
	}
	if !mathutil.RelativeEqual(second.GDPFactor, 1.1025*0.5+0.5, 1e-12) {
		t.Errorf("year 2 GDPFactor = %v, expected %v", second.GDPFactor, 1.1025*0.5+0.5)
	}
}

func TestGDPFactorBlend(t *testing.T) {
	tests := []struct {
		name     string
		impact   float64
		year     int
		expected float64
	}{
		{"No impact stays at one", 0, 7, 1},
		{"Full impact compounds", 1, 2, 1.1025},
		{"Half impact blends", 0.5, 1, 1.025},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GDPFactor(tt.impact, constants.GDPGrowthRate, tt.year)
			if !mathutil.RelativeEqual(got, tt.expected, 1e-12) {
				t.Errorf("GDPFactor(%v, %d) = %v, expected %v", tt.impact, tt.year, got, tt.expected)
			}
		})
	}
}

func TestProjectIsDeterministic(t *testing.T) {
	p := referenceParameters()
	p.Macro = referenceMacro()
	c := DefaultConfig(10)

	first := Project(p, c)
	second := Project(p, c)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Project() is not deterministic:\n%v\n%v", first, second)
	}
}

func TestProjectPrefixStability(t *testing.T) {
	p := referenceParameters()
	p.Macro = referenceMacro()

	full := Project(p, DefaultConfig(constants.MaxTimeHorizon))
	for horizon := constants.MinTimeHorizon; horizon <= constants.MaxTimeHorizon; horizon++ {
		short := Project(p, DefaultConfig(horizon))
		if !reflect.DeepEqual(short, full.Prefix(horizon)) {
			t.Errorf("Project(horizon=%d) differs from prefix of horizon=%d", horizon, constants.MaxTimeHorizon)
		}
	}
}

func TestProjectOrderingAndLength(t *testing.T) {
	for horizon := constants.MinTimeHorizon; horizon <= constants.MaxTimeHorizon; horizon++ {
		table := Project(referenceParameters(), DefaultConfig(horizon))
		if len(table) != horizon {
			t.Fatalf("len(Project(horizon=%d)) = %d", horizon, len(table))
		}
		for i, row := range table {
			if row.Year != i+1 {
				t.Errorf("horizon %d: row %d has Year %d, expected %d", horizon, i, row.Year, i+1)
			}
		}
		final, ok := table.Final()
		if !ok || final.Year != horizon {
			t.Errorf("Final() = (%v, %v), expected year %d", final, ok, horizon)
		}
	}
}

func TestProjectNonNegativeAndRevenueDerivation(t *testing.T) {
	baselines := []float64{constants.MinBaselineTaxBase, 5000, 1e6}
	rates := []float64{0, 37.5, 100}
	taxRates := []float64{0, 15, constants.MaxTaxRate}
	macros := []*Macro{
		nil,
		{InflationRate: 0, PopulationGrowthRate: 0, GDPImpactFactor: 0},
		{InflationRate: 20, PopulationGrowthRate: 10, GDPImpactFactor: 1},
	}

	for _, baseline := range baselines {
		for _, adoption := range rates {
			for _, compliance := range rates {
				for _, taxRate := range taxRates {
					for _, macro := range macros {
						p := Parameters{
							BaselineTaxBase:       baseline,
							AdoptionRate:          adoption,
							ComplianceImprovement: compliance,
							TaxRate:               taxRate,
							Macro:                 macro,
						}
						for _, row := range Project(p, DefaultConfig(constants.MaxTimeHorizon)) {
							checkRow(t, p, row)
						}
					}
				}
			}
		}
	}
}

func checkRow(t *testing.T, p Parameters, row Row) {
	t.Helper()
	values := []float64{row.TaxBase, row.TaxRevenue, row.InflationFactor, row.PopulationFactor, row.GDPFactor, row.CBDCMultiplier}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			t.Fatalf("row %+v has non-finite or negative value for %+v", row, p)
		}
	}
	if row.TaxBase < p.BaselineTaxBase {
		t.Fatalf("TaxBase %v below baseline %v for %+v", row.TaxBase, p.BaselineTaxBase, p)
	}
	expected := row.TaxBase * p.TaxRate / 100
	if !mathutil.RelativeEqual(row.TaxRevenue, expected, constants.RelativeTolerance) {
		t.Fatalf("TaxRevenue = %v, expected %v", row.TaxRevenue, expected)
	}
}

func TestProjectNonPositiveHorizon(t *testing.T) {
	if got := Project(referenceParameters(), DefaultConfig(0)); len(got) != 0 {
		t.Errorf("Project(horizon=0) = %v, expected empty table", got)
	}
	if _, ok := (Table{}).Final(); ok {
		t.Errorf("Final() on empty table returned ok")
	}
}

func TestTablePrefixBounds(t *testing.T) {
	table := Project(referenceParameters(), DefaultConfig(3))
	if got := table.Prefix(-1); len(got) != 0 {
		t.Errorf("Prefix(-1) length = %d, expected 0", len(got))
	}
	if got := table.Prefix(10); len(got) != 3 {
		t.Errorf("Prefix(10) length = %d, expected 3", len(got))
	}
}
