package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iwvelando/cbdc-tax-forecast/internal/indicator"
	"github.com/iwvelando/cbdc-tax-forecast/internal/report"
	"github.com/iwvelando/cbdc-tax-forecast/internal/scenario"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/constants"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/output"
)

// indicatorDeadline bounds the whole indicator lookup of a CLI command.
const indicatorDeadline = 30 * time.Second

func (a *app) projectCmd() *cobra.Command {
	var scenarioName string

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project a single scenario year by year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.session()
			if err != nil {
				return err
			}
			result, ok := session.Result(scenarioName)
			if !ok {
				return fmt.Errorf("unknown scenario %q: expected %s, %s or a configured name",
					scenarioName, constants.ScenarioA, constants.ScenarioB)
			}
			return a.render([]scenario.Result{result}, nil)
		},
	}
	cmd.Flags().StringVar(&scenarioName, "scenario", constants.ScenarioA, "scenario to project (A, B or its configured name)")
	return cmd
}

func (a *app) compareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare",
		Short: "Project both scenarios and compare their final year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.session()
			if err != nil {
				return err
			}
			evaluation := scenario.Evaluate(a.logger, session)
			return a.render(evaluation.Results, &evaluation.Comparison)
		},
	}
}

func (a *app) reportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a PDF report of both scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.session()
			if err != nil {
				return err
			}
			evaluation := scenario.Evaluate(a.logger, session)
			doc := report.NewDocument(evaluation, a.readings(cmd.Context()))
			if err := report.WriteFile(out, doc); err != nil {
				a.logger.Error("failed to write report",
					zap.String("op", "main.report"),
					zap.String("path", out),
					zap.Error(err),
				)
				return err
			}
			a.logger.Info("report written",
				zap.String("op", "main.report"),
				zap.String("path", out),
			)
			_, _ = fmt.Fprintf(a.out, "Report written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", constants.DefaultReportFile, "PDF file to write")
	return cmd
}

func (a *app) indicatorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indicators",
		Short: "Fetch and print economic indicators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			output.IndicatorsFormat(a.out, a.readings(cmd.Context()))
			return nil
		},
	}
}

// render writes results in the selected output format.
func (a *app) render(results []scenario.Result, comparison *scenario.FinalComparison) error {
	outputFormat, err := a.format()
	if err != nil {
		return err
	}

	switch outputFormat {
	case constants.OutputFormatCSV:
		return output.CsvFormat(a.out, results)
	case constants.OutputFormatJSON:
		return output.JSONFormat(a.out, results, comparison)
	default:
		output.PrettyFormat(a.out, results, comparison)
		return nil
	}
}

// readings looks up the configured indicators. Failures are folded into
// unavailable readings and never fail the command.
func (a *app) readings(ctx context.Context) []indicator.Reading {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, indicatorDeadline)
	defer cancel()

	client := indicator.NewClient(a.conf.Indicators, a.logger)
	return client.FetchAll(ctx, indicatorCodes(a.conf.Indicators.Codes))
}

func indicatorCodes(codes []string) []string {
	if len(codes) == 0 {
		return []string{constants.IndicatorGDP, constants.IndicatorPopulation}
	}
	return codes
}
