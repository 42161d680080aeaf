package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/modelq/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool                       `json:"valid"`
	Models      int                        `json:"models"`
	Datasources int                        `json:"datasources"`
	Errors      []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <models-dir>",
		Short: "Validate model and datasource definitions",
		Long: `Validate the CUE model and datasource definitions of a directory.

Checks every definition on its own (names, property types, defaults,
relation kinds) and then the set as a whole: duplicate names, unknown
bases, targets and datasources, inheritance cycles and missing primary
keys. All errors are reported, not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, modelsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := LoadModels(modelsDir, LoadModeCollectAll)

	// directory not found, no files, CUE build failure
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, modelsDir)

	validationErrors := loadErrorsToValidation(loadErrors)
	for _, m := range loadResult.Schema.Models {
		formatter.VerboseLog("Validating model: %s", m.Name)
	}
	validationErrors = append(validationErrors, compiler.Validate(loadResult.Schema)...)

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}
	return outputValidateSuccess(formatter, loadResult.Schema)
}

func loadErrorsToValidation(errs []error) []compiler.ValidationError {
	var out []compiler.ValidationError
	for _, err := range errs {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			out = append(out, compiler.ValidationError{
				Field:   "load",
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    lineOf(loadErr),
			})
			continue
		}
		out = append(out, compiler.ValidationError{Field: "load", Message: err.Error(), Code: ErrCodeGeneric})
	}
	return out
}

func lineOf(e *LoadError) int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, s *compiler.Schema) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{
			Valid:       true,
			Models:      len(s.Models),
			Datasources: len(s.Datasources),
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ All models valid (%d model(s), %d datasource(s))\n",
		len(s.Models), len(s.Datasources))
	return nil
}

// outputValidateError outputs a single load error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		err := formatter.writeJSON(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		})
		if err != nil {
			return err
		}
		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// ValidateModelsDir validates all models in a directory.
// This is a helper function for external callers.
func ValidateModelsDir(modelsDir string) ([]compiler.ValidationError, error) {
	loadResult, loadErrors := LoadModels(modelsDir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}
	errs := loadErrorsToValidation(loadErrors)
	return append(errs, compiler.Validate(loadResult.Schema)...), nil
}
