package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/modelq/internal/engine"
	"github.com/roach88/modelq/internal/harness"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	DBPath string
}

// ImportResult is the JSON payload of a successful import.
type ImportResult struct {
	Records     int      `json:"records"`
	Datasources []string `json:"datasources"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{}

	cmd := &cobra.Command{
		Use:   "import <models-dir> <fixtures.yaml>",
		Short: "Load fixture records into the models' datasources",
		Long: `Load a YAML file of records keyed by model name and create each record
through the datasource its model is bound to. Defaults are applied on
create.

Models without a datasource go to the default datasource: the SQLite
file named by --db, or an in-memory store when --db is not set.

Example fixtures file:

  Owner:
    - {id: 1, name: ann}
  Pet:
    - {id: 10, name: rex, ownerId: 1, born: "2020-05-01"}`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite file for the default datasource")

	return cmd
}

func runImport(rootOpts *RootOptions, opts *ImportOptions, modelsDir, fixturesPath string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	_, resolver, err := loadModels(modelsDir)
	if err != nil {
		_ = formatter.Error(errorCode(err, ErrCodeGeneric), err.Error(), nil)
		return err
	}

	fx, err := harness.LoadFixtures(fixturesPath)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeNotFound, "failed to load fixtures", err)
	}

	if opts.DBPath == "" {
		slog.Warn("no --db given, records for the default datasource are not persisted")
	}
	router, err := engine.OpenRouter(resolver.Registry(), resolver, opts.DBPath)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, "failed to open datasources", err)
	}
	defer router.Close()

	n, err := harness.Seed(cmd.Context(), router, resolver, fx)
	if err != nil {
		return fail(formatter, ExitFailure, ErrCodeWriteFailed,
			fmt.Sprintf("import stopped after %d record(s)", n), err)
	}
	slog.Debug("import completed", "records", n, "fixtures", fixturesPath)

	if formatter.Format == "json" {
		return formatter.Success(ImportResult{Records: n, Datasources: router.Datasources()})
	}
	fmt.Fprintf(formatter.Writer, "Imported %d record(s)\n", n)
	return nil
}
