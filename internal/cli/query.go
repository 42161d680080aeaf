package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/modelq/internal/engine"
	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/queryir"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	DBPath string
	Model  string
	Filter string // JSON filter document
	Count  bool
}

// QueryResult is the JSON payload of a query.
type QueryResult struct {
	Model   string      `json:"model"`
	Count   int         `json:"count"`
	Records []ir.Object `json:"records,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query <models-dir>",
		Short: "Run a filter query against a model",
		Long: `Run a filter query against a model and print the matching records.

The filter is a JSON document with where, order, skip, limit, fields
and include:

  modelq query ./models --db app.db --model Owner \
    --filter '{"where": {"name": {"like": "a%"}}, "include": "pets"}'

Text output prints one canonical JSON record per line. With --count only
the number of records matching the filter's where is printed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite file for the default datasource")
	cmd.Flags().StringVar(&opts.Model, "model", "", "model to query (required)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter as JSON")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "print the match count only")

	return cmd
}

func runQuery(rootOpts *RootOptions, opts *QueryOptions, modelsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	if opts.Model == "" {
		_ = formatter.Error(ErrCodeGeneric, "--model is required", nil)
		return NewExitError(ExitCommandError, "--model is required")
	}

	var f *queryir.Filter
	if opts.Filter != "" {
		parsed, err := queryir.ParseFilterJSON([]byte(opts.Filter))
		if err != nil {
			return fail(formatter, ExitFailure, ErrCodeQuery, "invalid filter", err)
		}
		f = parsed
	}

	_, resolver, err := loadModels(modelsDir)
	if err != nil {
		_ = formatter.Error(errorCode(err, ErrCodeGeneric), err.Error(), nil)
		return err
	}

	router, err := engine.OpenRouter(resolver.Registry(), resolver, opts.DBPath)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, "failed to open datasources", err)
	}
	defer router.Close()

	eng := engine.New(resolver, router, engine.WithLogger(slog.Default()))
	ctx := cmd.Context()

	if opts.Count {
		var where queryir.Where
		if f != nil {
			where = f.Where
		}
		n, err := eng.Count(ctx, opts.Model, where)
		if err != nil {
			return fail(formatter, ExitFailure, ErrCodeQuery, "query failed", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(QueryResult{Model: opts.Model, Count: n})
		}
		fmt.Fprintln(formatter.Writer, n)
		return nil
	}

	records, err := eng.Find(ctx, opts.Model, f)
	if err != nil {
		return fail(formatter, ExitFailure, ErrCodeQuery, "query failed", err)
	}
	formatter.VerboseLog("%d record(s)", len(records))

	if formatter.Format == "json" {
		return formatter.Success(QueryResult{Model: opts.Model, Count: len(records), Records: records})
	}
	for _, rec := range records {
		data, err := ir.MarshalCanonical(rec)
		if err != nil {
			return fail(formatter, ExitFailure, ErrCodeQuery, "encoding record", err)
		}
		fmt.Fprintln(formatter.Writer, string(data))
	}
	return nil
}
