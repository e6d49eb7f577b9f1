package scenario

import (
	"fmt"
	"math"

	apperrors "github.com/iwvelando/cbdc-tax-forecast/internal/errors"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/constants"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/projection"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/validation"
)

// SweepPoint is the final year of one re-projection during a sweep.
type SweepPoint struct {
	Value      float64 `json:"value"`
	Year       int     `json:"year"`
	TaxBase    float64 `json:"taxBase"`
	TaxRevenue float64 `json:"taxRevenue"`
}

// SweepSteps returns how many values a sweep from..to by step visits. It is
// zero for an empty range or when the sweep would exceed
// constants.MaxSweepSteps.
func SweepSteps(from, to, step float64) int {
	if step <= 0 || to < from {
		return 0
	}
	span := math.Floor((to-from)/step + 1e-9)
	if math.IsNaN(span) || math.IsInf(span, 0) || span+1 > constants.MaxSweepSteps {
		return 0
	}
	return int(span) + 1
}

// CheckSweep validates a sweep request without running it.
func CheckSweep(field string, from, to, step float64) error {
	if !(step > 0) || math.IsInf(step, 0) {
		return invalidSweep(field, fmt.Sprintf("sweep step must be positive, got %v", step))
	}
	if to < from {
		return invalidSweep(field, fmt.Sprintf("sweep range is empty: %v > %v", from, to))
	}
	if SweepSteps(from, to, step) == 0 {
		return invalidSweep(field, fmt.Sprintf("sweep from %v to %v by %v exceeds %d steps",
			from, to, step, constants.MaxSweepSteps))
	}
	if err := validation.ValidateField(field, from); err != nil {
		return err
	}
	return validation.ValidateField(field, to)
}

// Sweep re-projects p once per value of field from..to (inclusive) and
// returns each final year. onStep, when set, is called after every step.
func Sweep(p projection.Parameters, c projection.Config, field string, from, to, step float64, onStep func()) ([]SweepPoint, error) {
	if err := CheckSweep(field, from, to, step); err != nil {
		return nil, err
	}

	n := SweepSteps(from, to, step)
	points := make([]SweepPoint, 0, n)
	for i := 0; i < n; i++ {
		value := from + float64(i)*step
		varied, err := withField(p, field, value)
		if err != nil {
			return nil, err
		}
		point := SweepPoint{Value: value}
		if row, ok := projection.Project(varied, c).Final(); ok {
			point.Year = row.Year
			point.TaxBase = row.TaxBase
			point.TaxRevenue = row.TaxRevenue
		}
		points = append(points, point)
		if onStep != nil {
			onStep()
		}
	}
	return points, nil
}

func withField(p projection.Parameters, field string, value float64) (projection.Parameters, error) {
	p = cloneParameters(p)
	switch field {
	case validation.FieldBaselineTaxBase:
		p.BaselineTaxBase = value
	case validation.FieldAdoptionRate:
		p.AdoptionRate = value
	case validation.FieldComplianceImprovement:
		p.ComplianceImprovement = value
	case validation.FieldTaxRate:
		p.TaxRate = value
	case validation.FieldInflationRate, validation.FieldPopulationGrowthRate, validation.FieldGDPImpactFactor:
		if p.Macro == nil {
			return p, invalidSweep(field, fmt.Sprintf("cannot sweep %s on a scenario without macro factors", field))
		}
		switch field {
		case validation.FieldInflationRate:
			p.Macro.InflationRate = value
		case validation.FieldPopulationGrowthRate:
			p.Macro.PopulationGrowthRate = value
		default:
			p.Macro.GDPImpactFactor = value
		}
	default:
		return p, invalidSweep(field, fmt.Sprintf("cannot sweep unknown field %q", field))
	}
	return p, nil
}

func invalidSweep(field, message string) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidParameter, message, map[string]string{"field": field})
}
