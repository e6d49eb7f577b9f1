// Package config defines the data structures related to configuration and
// includes functions for loading and validating it.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	apperrors "github.com/iwvelando/cbdc-tax-forecast/internal/errors"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/constants"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/projection"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/validation"
)

// Configuration holds all configuration for cbdc-tax-forecast.
type Configuration struct {
	Common     Common          `yaml:"common"`
	Scenarios  []Scenario      `yaml:"scenarios"`
	Logging    LoggingConfig   `yaml:"logging,omitempty"`
	Output     OutputConfig    `yaml:"output,omitempty"`
	Indicators IndicatorConfig `yaml:"indicators,omitempty"`
	Storage    StorageConfig   `yaml:"storage,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, json
}

// Common holds the parameters shared between all scenarios.
type Common struct {
	TimeHorizon int `yaml:"timeHorizon"`
}

// Scenario holds the parameters of one named scenario.
type Scenario struct {
	Name                  string  `yaml:"name"`
	BaselineTaxBase       float64 `yaml:"baselineTaxBase"`
	AdoptionRate          float64 `yaml:"adoptionRate"`
	ComplianceImprovement float64 `yaml:"complianceImprovement"`
	TaxRate               float64 `yaml:"taxRate"`
	Macro                 *Macro  `yaml:"macro,omitempty"`
}

// Macro holds the optional macroeconomic extension of a scenario.
type Macro struct {
	InflationRate        float64 `yaml:"inflationRate"`
	PopulationGrowthRate float64 `yaml:"populationGrowthRate"`
	GDPImpactFactor      float64 `yaml:"gdpImpactFactor"`
}

// IndicatorConfig controls the external economic indicator fetch.
type IndicatorConfig struct {
	Enabled  bool          `yaml:"enabled"`
	BaseURL  string        `yaml:"baseURL,omitempty"`
	Country  string        `yaml:"country,omitempty"`
	Year     int           `yaml:"year,omitempty"`
	TTL      time.Duration `yaml:"ttl,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
	RetryMax int           `yaml:"retryMax,omitempty"`
	Codes    []string      `yaml:"codes,omitempty"`
}

// StorageConfig locates the snapshot store. An empty DSN disables storage.
type StorageConfig struct {
	DSN string `yaml:"dsn,omitempty"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads YAML-formatted configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

// ResolvePath returns the configuration file to load. An explicit path wins;
// otherwise the default file in the working directory is used when present,
// falling back to the per-user file in the home directory.
func ResolvePath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if _, err := os.Stat(constants.DefaultConfigFile); err == nil {
		return constants.DefaultConfigFile, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, constants.HomeConfigName+".yaml"), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.AutomaticEnv()

	v.SetDefault("common.timeHorizon", constants.DefaultTimeHorizon)
	v.SetDefault("indicators.enabled", true)
	v.SetDefault("indicators.baseURL", constants.DefaultIndicatorBaseURL)
	v.SetDefault("indicators.country", constants.DefaultIndicatorCountry)
	v.SetDefault("indicators.year", constants.DefaultIndicatorYear)
	v.SetDefault("indicators.ttl", constants.DefaultIndicatorTTL)
	v.SetDefault("indicators.timeout", constants.DefaultIndicatorTimeout)
	v.SetDefault("indicators.retryMax", constants.DefaultIndicatorRetryMax)
	v.SetDefault("indicators.codes", []string{constants.IndicatorGDP, constants.IndicatorPopulation})
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}

// Parameters converts the scenario into engine parameters.
func (s Scenario) Parameters() projection.Parameters {
	p := projection.Parameters{
		BaselineTaxBase:       s.BaselineTaxBase,
		AdoptionRate:          s.AdoptionRate,
		ComplianceImprovement: s.ComplianceImprovement,
		TaxRate:               s.TaxRate,
	}
	if s.Macro != nil {
		p.Macro = &projection.Macro{
			InflationRate:        s.Macro.InflationRate,
			PopulationGrowthRate: s.Macro.PopulationGrowthRate,
			GDPImpactFactor:      s.Macro.GDPImpactFactor,
		}
	}
	return p
}

// SimulationConfig returns the engine settings for the configured horizon.
func (conf *Configuration) SimulationConfig() projection.Config {
	return projection.DefaultConfig(conf.Common.TimeHorizon)
}

// Validate checks the configuration at the intake boundary: exactly two
// scenarios, and every parameter and the horizon within range.
func (conf *Configuration) Validate() error {
	if len(conf.Scenarios) != 2 {
		return apperrors.WithMetadata(apperrors.CodeInvalidParameter,
			fmt.Sprintf("expected exactly 2 scenarios, got %d", len(conf.Scenarios)),
			map[string]string{"field": "scenarios"})
	}
	if err := validation.ValidateTimeHorizon(conf.Common.TimeHorizon); err != nil {
		return err
	}
	for _, scenario := range conf.Scenarios {
		if err := validation.ValidateParameters(scenario.Parameters()); err != nil {
			return fmt.Errorf("scenario %q: %w", scenario.Name, err)
		}
	}
	return nil
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings for settings that are legal but likely unintended.
func (conf *Configuration) ValidateConfiguration() []string {
	warnings := conf.ScenarioWarnings()
	if !conf.Indicators.Enabled {
		warnings = append(warnings, "Economic indicator fetch is disabled - indicators will show as unavailable")
	}
	return warnings
}

// ScenarioWarnings returns the warnings that concern the scenarios alone.
func (conf *Configuration) ScenarioWarnings() []string {
	var warnings []string

	if len(conf.Scenarios) == 2 {
		a, b := conf.Scenarios[0], conf.Scenarios[1]
		if a.Name == b.Name {
			warnings = append(warnings, fmt.Sprintf("Both scenarios are named '%s'", a.Name))
		}
		if sameParameters(a, b) {
			warnings = append(warnings, fmt.Sprintf("Scenarios '%s' and '%s' have identical parameters", a.Name, b.Name))
		}
		if (a.Macro == nil) != (b.Macro == nil) {
			warnings = append(warnings, fmt.Sprintf("Only one of scenarios '%s' and '%s' uses macro factors - results are not like for like", a.Name, b.Name))
		}
	}

	for _, scenario := range conf.Scenarios {
		if scenario.TaxRate == 0 {
			warnings = append(warnings, fmt.Sprintf("Scenario '%s' has a zero tax rate - projected revenue will be zero", scenario.Name))
		}
		if scenario.AdoptionRate == 0 || scenario.ComplianceImprovement == 0 {
			warnings = append(warnings, fmt.Sprintf("Scenario '%s' has no CBDC effect (adoption or compliance is zero)", scenario.Name))
		}
	}

	return warnings
}

func sameParameters(a, b Scenario) bool {
	if a.BaselineTaxBase != b.BaselineTaxBase || a.AdoptionRate != b.AdoptionRate ||
		a.ComplianceImprovement != b.ComplianceImprovement || a.TaxRate != b.TaxRate {
		return false
	}
	if a.Macro == nil || b.Macro == nil {
		return a.Macro == nil && b.Macro == nil
	}
	return *a.Macro == *b.Macro
}
