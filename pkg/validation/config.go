package validation

import (
	"fmt"

	apperrors "github.com/iwvelando/cbdc-tax-forecast/internal/errors"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/constants"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/mathutil"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/projection"
)

// Parameter field names as they appear in snapshots and error metadata.
const (
	FieldBaselineTaxBase       = "baseline_tax_base"
	FieldAdoptionRate          = "adoption_rate"
	FieldComplianceImprovement = "compliance_improvement"
	FieldTaxRate               = "tax_rate"
	FieldInflationRate         = "inflation_rate"
	FieldPopulationGrowthRate  = "population_growth_rate"
	FieldGDPImpactFactor       = "gdp_impact_factor"
	FieldTimeHorizon           = "time_horizon"
)

// BasicFields lists the fields every scenario carries, in display order.
var BasicFields = []string{
	FieldBaselineTaxBase,
	FieldAdoptionRate,
	FieldComplianceImprovement,
	FieldTaxRate,
}

// MacroFields lists the optional macro extension fields, in display order.
var MacroFields = []string{
	FieldInflationRate,
	FieldPopulationGrowthRate,
	FieldGDPImpactFactor,
}

// ValidateParameters checks every field of p against its declared range. The
// returned error carries CodeInvalidParameter and the field name in metadata.
func ValidateParameters(p projection.Parameters) error {
	if err := ValidateField(FieldBaselineTaxBase, p.BaselineTaxBase); err != nil {
		return err
	}
	if err := ValidateField(FieldAdoptionRate, p.AdoptionRate); err != nil {
		return err
	}
	if err := ValidateField(FieldComplianceImprovement, p.ComplianceImprovement); err != nil {
		return err
	}
	if err := ValidateField(FieldTaxRate, p.TaxRate); err != nil {
		return err
	}
	if p.Macro == nil {
		return nil
	}
	if err := ValidateField(FieldInflationRate, p.Macro.InflationRate); err != nil {
		return err
	}
	if err := ValidateField(FieldPopulationGrowthRate, p.Macro.PopulationGrowthRate); err != nil {
		return err
	}
	return ValidateField(FieldGDPImpactFactor, p.Macro.GDPImpactFactor)
}

// ValidateField checks a single named parameter value.
func ValidateField(field string, value float64) error {
	if !mathutil.IsFinite(value) {
		return invalid(field, fmt.Sprintf("%s must be a finite number", field))
	}

	switch field {
	case FieldBaselineTaxBase:
		if value < constants.MinBaselineTaxBase {
			return invalid(field, fmt.Sprintf("%s must be at least %.0f, got %v", field, constants.MinBaselineTaxBase, value))
		}
	case FieldAdoptionRate:
		return checkRange(field, value, constants.MinRate, constants.MaxAdoptionRate)
	case FieldComplianceImprovement:
		return checkRange(field, value, constants.MinRate, constants.MaxComplianceRate)
	case FieldTaxRate:
		return checkRange(field, value, constants.MinRate, constants.MaxTaxRate)
	case FieldInflationRate, FieldPopulationGrowthRate:
		if value < constants.MinRate {
			return invalid(field, fmt.Sprintf("%s must not be negative, got %v", field, value))
		}
	case FieldGDPImpactFactor:
		return checkRange(field, value, constants.MinGDPImpactFactor, constants.MaxGDPImpactFactor)
	default:
		return invalid(field, fmt.Sprintf("unknown parameter %q", field))
	}
	return nil
}

// ValidateTimeHorizon checks the shared horizon in years.
func ValidateTimeHorizon(years int) error {
	if years < constants.MinTimeHorizon || years > constants.MaxTimeHorizon {
		return invalid(FieldTimeHorizon, fmt.Sprintf("%s must be between %d and %d years, got %d",
			FieldTimeHorizon, constants.MinTimeHorizon, constants.MaxTimeHorizon, years))
	}
	return nil
}

func checkRange(field string, value, lo, hi float64) error {
	if value < lo || value > hi {
		return invalid(field, fmt.Sprintf("%s must be between %v and %v, got %v", field, lo, hi, value))
	}
	return nil
}

func invalid(field, message string) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidParameter, message, map[string]string{"field": field})
}
