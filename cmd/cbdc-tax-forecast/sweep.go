package main

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iwvelando/cbdc-tax-forecast/internal/scenario"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/constants"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/format"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/validation"
)

func (a *app) sweepCmd() *cobra.Command {
	var (
		scenarioName   string
		field          string
		from, to, step float64
		quiet          bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Re-project one scenario across a range of one parameter",
		Long: `sweep varies a single parameter of one scenario from --from to --to in steps
of --step and prints the final-year tax base and revenue of every run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.session()
			if err != nil {
				return err
			}
			result, ok := session.Result(scenarioName)
			if !ok {
				return fmt.Errorf("unknown scenario %q", scenarioName)
			}
			outputFormat, err := a.format()
			if err != nil {
				return err
			}

			if err := scenario.CheckSweep(field, from, to, step); err != nil {
				return err
			}

			var onStep func()
			if !quiet {
				bar := progressbar.Default(int64(scenario.SweepSteps(from, to, step)), "sweeping "+field)
				onStep = func() { _ = bar.Add(1) }
				defer func() { _ = bar.Finish() }()
			}

			points, err := scenario.Sweep(result.Parameters, session.Config, field, from, to, step, onStep)
			if err != nil {
				a.logger.Error("sweep failed",
					zap.String("op", "main.sweep"),
					zap.String("field", field),
					zap.Error(err),
				)
				return err
			}

			switch outputFormat {
			case constants.OutputFormatJSON:
				encoder := json.NewEncoder(a.out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(points)
			case constants.OutputFormatCSV:
				_, _ = fmt.Fprintln(a.out, "value,year,tax_base,tax_revenue")
				for _, p := range points {
					_, _ = fmt.Fprintf(a.out, "%s,%d,%s,%s\n", format.Ratio(p.Value), p.Year,
						format.NumericCurrency(p.TaxBase), format.NumericCurrency(p.TaxRevenue))
				}
			default:
				_, _ = fmt.Fprintf(a.out, "--- Sweep of %s for scenario %s ---\n", field, result.Name)
				_, _ = fmt.Fprintf(a.out, "%10s | Final Tax Base (%s) | Final Tax Revenue (%s)\n",
					field, constants.CurrencyUnit, constants.CurrencyUnit)
				for _, p := range points {
					_, _ = fmt.Fprintf(a.out, "%10s | %21s | %24s\n", format.Ratio(p.Value),
						format.Currency(p.TaxBase), format.Currency(p.TaxRevenue))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scenarioName, "scenario", constants.ScenarioA, "scenario to sweep")
	cmd.Flags().StringVar(&field, "field", validation.FieldAdoptionRate, "parameter to vary")
	cmd.Flags().Float64Var(&from, "from", 0, "first value")
	cmd.Flags().Float64Var(&to, "to", 100, "last value")
	cmd.Flags().Float64Var(&step, "step", 10, "increment between values")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "hide the progress bar")
	return cmd
}
