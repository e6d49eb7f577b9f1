// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/cbdc-tax-forecast/internal/scenario"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/mathutil"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/projection"
)

// FindResult finds a result by scenario letter or display name.
// Returns a pointer to the result if found, nil otherwise.
func FindResult(results []scenario.Result, name string) *scenario.Result {
	for i := range results {
		if results[i].Scenario == name || results[i].Name == name {
			return &results[i]
		}
	}
	return nil
}

// ReferenceParameters returns the reference basic scenario: baseline 5000,
// adoption 50%, compliance 20%, tax rate 15%.
func ReferenceParameters() projection.Parameters {
	return projection.Parameters{
		BaselineTaxBase:       5000,
		AdoptionRate:          50,
		ComplianceImprovement: 20,
		TaxRate:               15,
	}
}

// ReferenceMacro returns the reference macro block: inflation 5%, population
// growth 3%, GDP impact 0.5.
func ReferenceMacro() *projection.Macro {
	return &projection.Macro{InflationRate: 5, PopulationGrowthRate: 3, GDPImpactFactor: 0.5}
}

// RoundedFinal returns the final row of table rounded to two decimals.
func RoundedFinal(table projection.Table) (taxBase, taxRevenue float64) {
	row, ok := table.Final()
	if !ok {
		return 0, 0
	}
	return mathutil.Round(row.TaxBase), mathutil.Round(row.TaxRevenue)
}
