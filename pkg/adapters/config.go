// Package adapters converts between the session model and the configuration
// file model.
package adapters

import (
	"gopkg.in/yaml.v3"

	"github.com/iwvelando/cbdc-tax-forecast/internal/config"
	"github.com/iwvelando/cbdc-tax-forecast/internal/scenario"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/projection"
)

// ScenarioFromParameters builds a named configuration scenario from engine
// parameters.
func ScenarioFromParameters(name string, p projection.Parameters) config.Scenario {
	s := config.Scenario{
		Name:                  name,
		BaselineTaxBase:       p.BaselineTaxBase,
		AdoptionRate:          p.AdoptionRate,
		ComplianceImprovement: p.ComplianceImprovement,
		TaxRate:               p.TaxRate,
	}
	if p.Macro != nil {
		s.Macro = &config.Macro{
			InflationRate:        p.Macro.InflationRate,
			PopulationGrowthRate: p.Macro.PopulationGrowthRate,
			GDPImpactFactor:      p.Macro.GDPImpactFactor,
		}
	}
	return s
}

// ConfigurationFromSession returns the scenario part of a configuration
// equivalent to the session. Logging, output, indicator and storage settings
// are left at their zero values.
func ConfigurationFromSession(s *scenario.Session) config.Configuration {
	results := s.Results()
	scenarios := make([]config.Scenario, 0, len(results))
	for _, result := range results {
		scenarios = append(scenarios, ScenarioFromParameters(result.Name, result.Parameters))
	}
	return config.Configuration{
		Common:    config.Common{TimeHorizon: s.Config.TimeHorizon},
		Scenarios: scenarios,
	}
}

type scenarioFile struct {
	Common    config.Common     `yaml:"common"`
	Scenarios []config.Scenario `yaml:"scenarios"`
}

// MarshalScenarioYAML renders the session as the common and scenarios
// sections of a configuration file.
func MarshalScenarioYAML(s *scenario.Session) ([]byte, error) {
	conf := ConfigurationFromSession(s)
	return yaml.Marshal(scenarioFile{Common: conf.Common, Scenarios: conf.Scenarios})
}
