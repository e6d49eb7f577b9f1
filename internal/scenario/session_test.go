package scenario

import (
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/iwvelando/cbdc-tax-forecast/internal/config"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/mathutil"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/projection"
)

func basicParameters(adoption, compliance, taxRate float64) projection.Parameters {
	return projection.Parameters{
		BaselineTaxBase:       5000,
		AdoptionRate:          adoption,
		ComplianceImprovement: compliance,
		TaxRate:               taxRate,
	}
}

func extendedParameters() projection.Parameters {
	p := basicParameters(50, 20, 15)
	p.Macro = &projection.Macro{InflationRate: 5, PopulationGrowthRate: 3, GDPImpactFactor: 0.5}
	return p
}

func TestSessionRun(t *testing.T) {
	s := New(basicParameters(50, 20, 15), extendedParameters(), 5)

	tableA, tableB := s.Run()
	if len(tableA) != 5 || len(tableB) != 5 {
		t.Fatalf("Run() lengths = (%d, %d), expected (5, 5)", len(tableA), len(tableB))
	}
	if !reflect.DeepEqual(tableA, projection.Project(s.A, s.Config)) {
		t.Errorf("Run() table A differs from a direct projection")
	}
	if !reflect.DeepEqual(tableB, projection.Project(s.B, s.Config)) {
		t.Errorf("Run() table B differs from a direct projection")
	}
	if tableB[0].InflationFactor == 1 {
		t.Errorf("Run() table B should carry macro factors")
	}
}

func TestCompareFinalYear(t *testing.T) {
	s := New(basicParameters(40, 15, 15), basicParameters(70, 25, 20), 5)

	comparison := s.CompareFinalYear()

	// A: 1 + 0.5*0.4*0.15*5 = 1.15 ; B: 1 + 0.5*0.7*0.25*5 = 1.4375
	tests := []struct {
		name       string
		got        FinalYear
		scenario   string
		taxBase    float64
		taxRevenue float64
	}{
		{"Scenario A", comparison.A, "A", 5750.00, 862.50},
		{"Scenario B", comparison.B, "B", 7187.50, 1437.50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.Scenario != tt.scenario {
				t.Errorf("Scenario = %s, expected %s", tt.got.Scenario, tt.scenario)
			}
			if tt.got.Year != 5 {
				t.Errorf("Year = %d, expected 5", tt.got.Year)
			}
			if got := mathutil.Round(tt.got.TaxBase); got != tt.taxBase {
				t.Errorf("TaxBase = %.2f, expected %.2f", got, tt.taxBase)
			}
			if got := mathutil.Round(tt.got.TaxRevenue); got != tt.taxRevenue {
				t.Errorf("TaxRevenue = %.2f, expected %.2f", got, tt.taxRevenue)
			}
		})
	}

	if got := mathutil.Round(comparison.DeltaTaxBase); got != 1437.50 {
		t.Errorf("DeltaTaxBase = %.2f, expected 1437.50", got)
	}
	if got := mathutil.Round(comparison.DeltaTaxRevenue); got != 575.00 {
		t.Errorf("DeltaTaxRevenue = %.2f, expected 575.00", got)
	}
	if rows := comparison.Rows(); len(rows) != 2 || rows[0].Scenario != "A" || rows[1].Scenario != "B" {
		t.Errorf("Rows() = %+v, expected A then B", rows)
	}
}

func TestNewClonesMacro(t *testing.T) {
	p := extendedParameters()
	s := New(p, p, 3)

	p.Macro.InflationRate = 99
	if s.A.Macro.InflationRate != 5 || s.B.Macro.InflationRate != 5 {
		t.Errorf("New() shares the caller's macro block")
	}
	if s.A.Macro == s.B.Macro {
		t.Errorf("New() shares one macro block between scenarios")
	}
}

func TestFromConfiguration(t *testing.T) {
	conf, err := config.LoadConfiguration("../../test/test_config_macro.yaml")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	s, err := FromConfiguration(*conf)
	if err != nil {
		t.Fatalf("FromConfiguration() error = %v", err)
	}
	if s.Names != [2]string{"Baseline", "Accelerated"} {
		t.Errorf("Names = %v, expected [Baseline Accelerated]", s.Names)
	}
	if s.Config != conf.SimulationConfig() {
		t.Errorf("Config = %+v, expected %+v", s.Config, conf.SimulationConfig())
	}
	if s.Config.TimeHorizon != 5 {
		t.Errorf("TimeHorizon = %d, expected 5", s.Config.TimeHorizon)
	}

	result, ok := s.Result("Accelerated")
	if !ok || result.Scenario != "B" {
		t.Errorf("Result(Accelerated) = (%+v, %v), expected scenario B", result, ok)
	}
	if _, ok := s.Result("missing"); ok {
		t.Errorf("Result(missing) returned ok")
	}

	conf.Scenarios = conf.Scenarios[:1]
	if _, err := FromConfiguration(*conf); err == nil {
		t.Errorf("FromConfiguration() expected error for a single scenario")
	}
}

func TestEvaluate(t *testing.T) {
	s := New(basicParameters(40, 15, 15), extendedParameters(), 4)

	evaluation := Evaluate(zap.NewNop(), s)
	if len(evaluation.Results) != 2 {
		t.Fatalf("Evaluate() returned %d results, expected 2", len(evaluation.Results))
	}
	if evaluation.Comparison != s.CompareFinalYear() {
		t.Errorf("Evaluate() comparison = %+v, expected %+v", evaluation.Comparison, s.CompareFinalYear())
	}

	if got := Evaluate(nil, s); !reflect.DeepEqual(got, evaluation) {
		t.Errorf("Evaluate(nil logger) differs from Evaluate(nop logger)")
	}
}
