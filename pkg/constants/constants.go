// Package constants provides shared constants for the cbdc-tax-forecast application.
package constants

// Model constants
const (
	// Alpha is the CBDC sensitivity coefficient applied to adoption x compliance.
	// It is fixed and not exposed through any input surface.
	Alpha = 0.5

	// GDPGrowthRate is the assumed annual GDP growth used by the GDP factor.
	GDPGrowthRate = 0.05

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// RelativeTolerance is the tolerance used when comparing derived values.
	RelativeTolerance = 1e-9
)

// Parameter bounds
const (
	MinBaselineTaxBase = 100.0

	MinRate           = 0.0
	MaxAdoptionRate   = 100.0
	MaxComplianceRate = 100.0
	MaxTaxRate        = 50.0

	MinGDPImpactFactor = 0.0
	MaxGDPImpactFactor = 1.0

	MinTimeHorizon = 1
	MaxTimeHorizon = 10

	// MaxSweepSteps bounds the number of projections a single sweep runs.
	MaxSweepSteps = 10000
)

// Defaults used by the reference scenario.
const (
	DefaultBaselineTaxBase       = 5000.0
	DefaultAdoptionRate          = 50.0
	DefaultComplianceImprovement = 20.0
	DefaultTaxRate               = 15.0
	DefaultTimeHorizon           = 5
	DefaultInflationRate         = 5.0
	DefaultPopulationGrowthRate  = 3.0
	DefaultGDPImpactFactor       = 0.5
)

// Scenario names
const (
	ScenarioA = "A"
	ScenarioB = "B"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"

	// OutputFormatYAML writes scenarios as configuration file sections
	OutputFormatYAML = "yaml"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// HomeConfigName is the config name looked up in the home directory
	HomeConfigName = ".cbdc-tax-forecast"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// DefaultReportFile is the default PDF report file name
	DefaultReportFile = "CBDC_Tax_Simulation_Report.pdf"

	// DefaultSnapshotFile is the default snapshot export file name
	DefaultSnapshotFile = "cbdc_scenarios.json"

	// DefaultScenarioYAMLFile is the default file for a YAML scenario export
	DefaultScenarioYAMLFile = "cbdc_scenarios.yaml"

	// DefaultStorageDSN is the default SQLite snapshot database
	DefaultStorageDSN = "cbdc-snapshots.db"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the web UI
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for snapshots (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
)

// Indicator fetch defaults
const (
	DefaultIndicatorBaseURL  = "http://api.worldbank.org/v2"
	DefaultIndicatorCountry  = "UGA"
	DefaultIndicatorYear     = 2023
	DefaultIndicatorTTL      = "1h"
	DefaultIndicatorTimeout  = "10s"
	DefaultIndicatorRetryMax = 2

	IndicatorGDP        = "NY.GDP.MKTP.CD"
	IndicatorPopulation = "SP.POP.TOTL"

	// UnavailableLabel is displayed in place of a value when a fetch fails.
	UnavailableLabel = "unavailable"
)

// Display constants
const (
	// CurrencyUnit labels tax base and revenue amounts.
	CurrencyUnit = "UGX Bn"

	// ReportTitle is the heading of the PDF report.
	ReportTitle = "CBDC Tax Base Impact Simulation Report"
)
