package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iwvelando/cbdc-tax-forecast/internal/scenario"
	"github.com/iwvelando/cbdc-tax-forecast/internal/storage"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/adapters"
	"github.com/iwvelando/cbdc-tax-forecast/pkg/constants"
)

func (a *app) snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export, store and reload scenario snapshots",
	}
	cmd.AddCommand(
		a.snapshotExportCmd(),
		a.snapshotSaveCmd(),
		a.snapshotLoadCmd(),
		a.snapshotListCmd(),
	)
	return cmd
}

func (a *app) snapshotExportCmd() *cobra.Command {
	var out, exportFormat string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the configured scenarios as a snapshot document",
		Long: `export writes the configured scenarios as a JSON snapshot document, or with
--format yaml as the common and scenarios sections of a configuration file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.session()
			if err != nil {
				return err
			}

			var data []byte
			switch exportFormat {
			case constants.OutputFormatJSON:
				data, err = session.MarshalSnapshot()
			case constants.OutputFormatYAML:
				data, err = adapters.MarshalScenarioYAML(session)
				if !cmd.Flags().Changed("out") {
					out = constants.DefaultScenarioYAMLFile
				}
			default:
				return fmt.Errorf("invalid export format: %s (must be %s or %s)",
					exportFormat, constants.OutputFormatJSON, constants.OutputFormatYAML)
			}
			if err != nil {
				return fmt.Errorf("failed to encode snapshot: %w", err)
			}

			if out == "-" {
				_, err := fmt.Fprintf(a.out, "%s\n", bytes.TrimRight(data, "\n"))
				return err
			}
			if err := os.WriteFile(out, data, 0644); err != nil {
				return fmt.Errorf("failed to write snapshot: %w", err)
			}
			a.logger.Info("snapshot exported",
				zap.String("op", "main.snapshotExport"),
				zap.String("path", out),
				zap.String("format", exportFormat),
			)
			_, _ = fmt.Fprintf(a.out, "Snapshot written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", constants.DefaultSnapshotFile, "file to write, or - for stdout")
	cmd.Flags().StringVar(&exportFormat, "format", constants.OutputFormatJSON, "export format (json, yaml)")
	return cmd
}

func (a *app) snapshotSaveCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Store the configured scenarios under a name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.session()
			if err != nil {
				return err
			}
			data, err := session.MarshalSnapshot()
			if err != nil {
				return fmt.Errorf("failed to encode snapshot: %w", err)
			}

			db, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			record, err := db.Save(cmd.Context(), name, data)
			if err != nil {
				return err
			}
			a.logger.Info("snapshot stored",
				zap.String("op", "main.snapshotSave"),
				zap.String("name", record.Name),
				zap.String("id", record.ID),
			)
			_, _ = fmt.Fprintf(a.out, "Snapshot %s stored (%s)\n", record.Name, record.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name to store the snapshot under")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (a *app) snapshotLoadCmd() *cobra.Command {
	var name, file string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Reload a snapshot and print the recomputed comparison",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (name == "") == (file == "") {
				return errors.New("exactly one of --name or --file is required")
			}
			session, err := a.session()
			if err != nil {
				return err
			}

			data, source, err := a.snapshotData(cmd.Context(), name, file)
			if err != nil {
				return err
			}

			restoreErr := session.Restore(data)
			if restoreErr != nil {
				a.logger.Warn("snapshot rejected, keeping configured scenarios",
					zap.String("op", "main.snapshotLoad"),
					zap.String("source", source),
					zap.Error(restoreErr),
				)
				_, _ = fmt.Fprintf(a.out, "Snapshot %s rejected: %v\nShowing the configured scenarios instead.\n\n", source, restoreErr)
			}

			evaluation := scenario.Evaluate(a.logger, session)
			if err := a.render(evaluation.Results, &evaluation.Comparison); err != nil {
				return err
			}
			return restoreErr
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "stored snapshot to load")
	cmd.Flags().StringVar(&file, "file", "", "snapshot document to load")
	return cmd
}

func (a *app) snapshotListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			db, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			records, err := db.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				_, _ = fmt.Fprintln(a.out, "No stored snapshots")
				return nil
			}
			_, _ = fmt.Fprintf(a.out, "Name | Updated | ID\n")
			_, _ = fmt.Fprintf(a.out, "____ | _______ | __\n")
			for _, record := range records {
				_, _ = fmt.Fprintf(a.out, "%s | %s | %s\n", record.Name, record.UpdatedAt.Format(time.RFC3339), record.ID)
			}
			return nil
		},
	}
}

func (a *app) openStore(ctx context.Context) (*storage.DB, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := storage.Open(ctx, a.storageDSN())
	if err != nil {
		a.logger.Error("failed to open snapshot store",
			zap.String("op", "main.openStore"),
			zap.Error(err),
		)
		return nil, err
	}
	return db, nil
}

// snapshotData reads a snapshot from the store or from a file and returns it
// with a description of where it came from.
func (a *app) snapshotData(ctx context.Context, name, file string) ([]byte, string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, file, fmt.Errorf("failed to read snapshot: %w", err)
		}
		return data, file, nil
	}

	db, err := a.openStore(ctx)
	if err != nil {
		return nil, name, err
	}
	defer db.Close()

	record, err := db.Load(ctx, name)
	if err != nil {
		return nil, name, err
	}
	return record.Body, name, nil
}
