package scenario

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	json "github.com/goccy/go-json"

	apperrors "github.com/iwvelando/cbdc-tax-forecast/internal/errors"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/projection"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/validation"
)

// Top-level snapshot keys.
const (
	KeyScenarioA   = "scenario_a"
	KeyScenarioB   = "scenario_b"
	KeyTimeHorizon = validation.FieldTimeHorizon
)

// ParameterRecord is the flat key-value form of one scenario's parameters.
// The macro keys are either all present or all absent.
type ParameterRecord struct {
	BaselineTaxBase       float64  `json:"baseline_tax_base"`
	AdoptionRate          float64  `json:"adoption_rate"`
	ComplianceImprovement float64  `json:"compliance_improvement"`
	TaxRate               float64  `json:"tax_rate"`
	InflationRate         *float64 `json:"inflation_rate,omitempty"`
	PopulationGrowthRate  *float64 `json:"population_growth_rate,omitempty"`
	GDPImpactFactor       *float64 `json:"gdp_impact_factor,omitempty"`
}

// Snapshot is the portable, reloadable copy of a session's parameters.
// Tables are never stored: they are recomputed from these values.
type Snapshot struct {
	ScenarioA   ParameterRecord `json:"scenario_a"`
	ScenarioB   ParameterRecord `json:"scenario_b"`
	TimeHorizon int             `json:"time_horizon"`
}

// ToSnapshot serializes both parameter sets and the horizon.
func (s *Session) ToSnapshot() Snapshot {
	return Snapshot{
		ScenarioA:   RecordFromParameters(s.A),
		ScenarioB:   RecordFromParameters(s.B),
		TimeHorizon: s.Config.TimeHorizon,
	}
}

// MarshalSnapshot encodes the session's snapshot as indented JSON.
func (s *Session) MarshalSnapshot() ([]byte, error) {
	return json.MarshalIndent(s.ToSnapshot(), "", "  ")
}

// FromSnapshot validates an already-decoded snapshot and builds a session.
func FromSnapshot(snap Snapshot) (*Session, error) {
	a, err := snap.ScenarioA.parameters(KeyScenarioA)
	if err != nil {
		return nil, err
	}
	b, err := snap.ScenarioB.parameters(KeyScenarioB)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateTimeHorizon(snap.TimeHorizon); err != nil {
		return nil, malformedWrap(KeyTimeHorizon, "time horizon out of range", err)
	}
	return New(a, b, snap.TimeHorizon), nil
}

// ParseSnapshot strictly decodes a snapshot document. Missing keys, unknown
// keys, non-numeric values, a fractional horizon, a partial macro block or an
// out-of-range value fail the whole parse with CodeMalformedSnapshot.
func ParseSnapshot(data []byte) (*Session, error) {
	top, err := decodeObject(data, "")
	if err != nil {
		return nil, err
	}
	if err := rejectUnknown(top, "", KeyScenarioA, KeyScenarioB, KeyTimeHorizon); err != nil {
		return nil, err
	}

	var snap Snapshot
	for _, part := range []struct {
		key    string
		record *ParameterRecord
	}{
		{KeyScenarioA, &snap.ScenarioA},
		{KeyScenarioB, &snap.ScenarioB},
	} {
		raw, ok := top[part.key]
		if !ok {
			return nil, missing(part.key)
		}
		record, err := parseRecord(part.key, raw)
		if err != nil {
			return nil, err
		}
		*part.record = record
	}

	rawHorizon, ok := top[KeyTimeHorizon]
	if !ok {
		return nil, missing(KeyTimeHorizon)
	}
	horizon, err := parseNumber(KeyTimeHorizon, rawHorizon)
	if err != nil {
		return nil, err
	}
	if horizon != math.Trunc(horizon) || math.Abs(horizon) > math.MaxInt32 {
		return nil, malformed(KeyTimeHorizon, fmt.Sprintf("%s must be a whole number of years, got %v", KeyTimeHorizon, horizon))
	}
	snap.TimeHorizon = int(horizon)

	return FromSnapshot(snap)
}

// Restore replaces the session's parameters with the snapshot in data. On
// failure the session is left exactly as it was.
func (s *Session) Restore(data []byte) error {
	restored, err := ParseSnapshot(data)
	if err != nil {
		return err
	}
	*s = *restored
	return nil
}

// RecordFromParameters converts engine parameters into their flat record form.
func RecordFromParameters(p projection.Parameters) ParameterRecord {
	record := ParameterRecord{
		BaselineTaxBase:       p.BaselineTaxBase,
		AdoptionRate:          p.AdoptionRate,
		ComplianceImprovement: p.ComplianceImprovement,
		TaxRate:               p.TaxRate,
	}
	if p.Macro != nil {
		inflation, population, impact := p.Macro.InflationRate, p.Macro.PopulationGrowthRate, p.Macro.GDPImpactFactor
		record.InflationRate = &inflation
		record.PopulationGrowthRate = &population
		record.GDPImpactFactor = &impact
	}
	return record
}

func (r ParameterRecord) parameters(prefix string) (projection.Parameters, error) {
	p := projection.Parameters{
		BaselineTaxBase:       r.BaselineTaxBase,
		AdoptionRate:          r.AdoptionRate,
		ComplianceImprovement: r.ComplianceImprovement,
		TaxRate:               r.TaxRate,
	}

	present := 0
	for _, v := range []*float64{r.InflationRate, r.PopulationGrowthRate, r.GDPImpactFactor} {
		if v != nil {
			present++
		}
	}
	switch present {
	case 0:
	case len(validation.MacroFields):
		p.Macro = &projection.Macro{
			InflationRate:        *r.InflationRate,
			PopulationGrowthRate: *r.PopulationGrowthRate,
			GDPImpactFactor:      *r.GDPImpactFactor,
		}
	default:
		return p, malformed(prefix, fmt.Sprintf("%s has a partial macro block: %d of %d macro fields present",
			prefix, present, len(validation.MacroFields)))
	}

	if err := validation.ValidateParameters(p); err != nil {
		return p, malformedWrap(prefix+"."+apperrors.Field(err), "parameter out of range", err)
	}
	return p, nil
}

func parseRecord(prefix string, raw json.RawMessage) (ParameterRecord, error) {
	var record ParameterRecord

	fields, err := decodeObject(raw, prefix)
	if err != nil {
		return record, err
	}
	allowed := append(append([]string{}, validation.BasicFields...), validation.MacroFields...)
	if err := rejectUnknown(fields, prefix, allowed...); err != nil {
		return record, err
	}

	targets := map[string]*float64{
		validation.FieldBaselineTaxBase:       &record.BaselineTaxBase,
		validation.FieldAdoptionRate:          &record.AdoptionRate,
		validation.FieldComplianceImprovement: &record.ComplianceImprovement,
		validation.FieldTaxRate:               &record.TaxRate,
	}
	for _, field := range validation.BasicFields {
		rawValue, ok := fields[field]
		if !ok {
			return record, missing(prefix + "." + field)
		}
		value, err := parseNumber(prefix+"."+field, rawValue)
		if err != nil {
			return record, err
		}
		*targets[field] = value
	}

	optional := map[string]**float64{
		validation.FieldInflationRate:        &record.InflationRate,
		validation.FieldPopulationGrowthRate: &record.PopulationGrowthRate,
		validation.FieldGDPImpactFactor:      &record.GDPImpactFactor,
	}
	for _, field := range validation.MacroFields {
		rawValue, ok := fields[field]
		if !ok {
			continue
		}
		value, err := parseNumber(prefix+"."+field, rawValue)
		if err != nil {
			return record, err
		}
		*optional[field] = &value
	}

	return record, nil
}

func decodeObject(data []byte, path string) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, malformed(path, describe(path)+" must be a JSON object")
	}
	var object map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &object); err != nil {
		return nil, malformedWrap(path, describe(path)+" is not valid JSON", err)
	}
	return object, nil
}

func parseNumber(path string, raw json.RawMessage) (float64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, malformed(path, path+" must be a number, got null")
	}
	var value float64
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return 0, malformedWrap(path, fmt.Sprintf("%s must be a number, got %s", path, trimmed), err)
	}
	return value, nil
}

func rejectUnknown(object map[string]json.RawMessage, prefix string, allowed ...string) error {
	known := make(map[string]struct{}, len(allowed))
	for _, key := range allowed {
		known[key] = struct{}{}
	}
	var unknown []string
	for key := range object {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	field := unknown[0]
	if prefix != "" {
		field = prefix + "." + field
	}
	return malformed(field, fmt.Sprintf("unknown key %q in %s", unknown[0], describe(prefix)))
}

func describe(path string) string {
	if path == "" {
		return "snapshot"
	}
	return path
}

func missing(field string) error {
	return malformed(field, fmt.Sprintf("missing required key %s", field))
}

func malformed(field, message string) error {
	return apperrors.WithMetadata(apperrors.CodeMalformedSnapshot, message, map[string]string{"field": field})
}

func malformedWrap(field, message string, cause error) error {
	return apperrors.WrapWithMetadata(apperrors.CodeMalformedSnapshot, message, map[string]string{"field": field}, cause)
}
