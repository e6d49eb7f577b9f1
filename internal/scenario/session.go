// Package scenario holds the two-scenario session: it runs the projection
// engine for scenarios A and B over a shared horizon, compares their final
// years and converts the parameter sets to and from snapshots.
package scenario

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/iwvelando/cbdc-tax-forecast/internal/config"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/constants"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/projection"
)

// Session holds two scenarios and the simulation settings they share.
// Parameters are treated as immutable once the session is built.
type Session struct {
	A      projection.Parameters
	B      projection.Parameters
	Config projection.Config
	// Names are display names for A and B; they are not part of snapshots.
	Names [2]string
}

// Result pairs one scenario's parameters with its projected table.
type Result struct {
	Scenario   string // "A" or "B"
	Name       string
	Parameters projection.Parameters
	Table      projection.Table
}

// FinalYear is the headline of one scenario: its last projected year.
type FinalYear struct {
	Scenario   string  `json:"scenario"`
	Name       string  `json:"name"`
	Year       int     `json:"year"`
	TaxBase    float64 `json:"taxBase"`
	TaxRevenue float64 `json:"taxRevenue"`
}

// FinalComparison holds both final years and the B-minus-A deltas.
type FinalComparison struct {
	A               FinalYear `json:"a"`
	B               FinalYear `json:"b"`
	DeltaTaxBase    float64   `json:"deltaTaxBase"`
	DeltaTaxRevenue float64   `json:"deltaTaxRevenue"`
}

// Rows returns the comparison as a two-row table, A first.
func (c FinalComparison) Rows() []FinalYear {
	return []FinalYear{c.A, c.B}
}

// New builds a session with the fixed model constants and default names.
func New(a, b projection.Parameters, timeHorizon int) *Session {
	return &Session{
		A:      cloneParameters(a),
		B:      cloneParameters(b),
		Config: projection.DefaultConfig(timeHorizon),
		Names:  [2]string{constants.ScenarioA, constants.ScenarioB},
	}
}

// FromConfiguration validates the configuration and builds a session from its
// two scenarios, in file order.
func FromConfiguration(conf config.Configuration) (*Session, error) {
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	a, b := conf.Scenarios[0], conf.Scenarios[1]
	s := New(a.Parameters(), b.Parameters(), conf.Common.TimeHorizon)
	s.Config = conf.SimulationConfig()
	s.Names = [2]string{displayName(a.Name, constants.ScenarioA), displayName(b.Name, constants.ScenarioB)}
	return s, nil
}

// Run projects both scenarios with the shared configuration.
func (s *Session) Run() (projection.Table, projection.Table) {
	return projection.Project(s.A, s.Config), projection.Project(s.B, s.Config)
}

// Results runs the session and pairs each table with its scenario.
func (s *Session) Results() []Result {
	tableA, tableB := s.Run()
	return []Result{
		{Scenario: constants.ScenarioA, Name: s.name(0), Parameters: s.A, Table: tableA},
		{Scenario: constants.ScenarioB, Name: s.name(1), Parameters: s.B, Table: tableB},
	}
}

// Result runs the session and returns the result for scenario "A" or "B".
// The configured display name is accepted too.
func (s *Session) Result(scenario string) (Result, bool) {
	for _, result := range s.Results() {
		if result.Scenario == scenario || result.Name == scenario {
			return result, true
		}
	}
	return Result{}, false
}

// CompareFinalYear extracts the last row of each table.
func (s *Session) CompareFinalYear() FinalComparison {
	return Compare(s.Results())
}

// Compare builds the final-year comparison from A and B results.
func Compare(results []Result) FinalComparison {
	var comparison FinalComparison
	for _, result := range results {
		final := finalYear(result)
		switch result.Scenario {
		case constants.ScenarioA:
			comparison.A = final
		case constants.ScenarioB:
			comparison.B = final
		}
	}
	comparison.DeltaTaxBase = comparison.B.TaxBase - comparison.A.TaxBase
	comparison.DeltaTaxRevenue = comparison.B.TaxRevenue - comparison.A.TaxRevenue
	return comparison
}

// Evaluation is a full run of a session: both results and the comparison.
type Evaluation struct {
	Results    []Result
	Comparison FinalComparison
}

// Evaluate runs the session once and logs a summary of each scenario.
func Evaluate(logger *zap.Logger, s *Session) Evaluation {
	if logger == nil {
		logger = zap.NewNop()
	}

	results := s.Results()
	for _, result := range results {
		final := finalYear(result)
		logger.Debug(fmt.Sprintf("projected scenario %s", result.Name),
			zap.String("op", "scenario.Evaluate"),
			zap.String("scenario", result.Scenario),
			zap.Bool("extended", result.Parameters.Extended()),
			zap.Int("years", len(result.Table)),
			zap.Float64("finalTaxBase", final.TaxBase),
			zap.Float64("finalTaxRevenue", final.TaxRevenue),
		)
	}

	return Evaluation{Results: results, Comparison: Compare(results)}
}

func finalYear(result Result) FinalYear {
	final := FinalYear{Scenario: result.Scenario, Name: result.Name}
	if row, ok := result.Table.Final(); ok {
		final.Year = row.Year
		final.TaxBase = row.TaxBase
		final.TaxRevenue = row.TaxRevenue
	}
	return final
}

func (s *Session) name(i int) string {
	defaults := [2]string{constants.ScenarioA, constants.ScenarioB}
	return displayName(s.Names[i], defaults[i])
}

func displayName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func cloneParameters(p projection.Parameters) projection.Parameters {
	if p.Macro != nil {
		macro := *p.Macro
		p.Macro = &macro
	}
	return p
}
