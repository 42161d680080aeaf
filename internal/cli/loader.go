package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/modelq/internal/compiler"
	"github.com/roach88/modelq/internal/schema"
)

// LoadMode controls how errors are handled during model loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading models from a directory.
type LoadResult struct {
	Schema    *compiler.Schema
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during model loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadModels loads and compiles the datasource and model definitions of a
// directory's CUE package:
//
//	datasource: main: { connector: "sqlite", settings: path: "app.db" }
//	model: Pet: { properties: { id: { type: "integer", id: true } } }
//
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadModels(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("models directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing models directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		Schema:    &compiler.Schema{},
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	// collect reports whether loading should go on after err
	collect := func(err error) bool {
		errs = append(errs, err)
		return mode == LoadModeCollectAll
	}

	dsVal := value.LookupPath(cue.ParsePath("datasource"))
	if dsVal.Exists() {
		iter, iterErr := dsVal.Fields()
		if iterErr != nil {
			if !collect(&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating datasources: %v", iterErr)}) {
				return result, errs
			}
		} else {
			for iter.Next() {
				def, compileErr := compiler.CompileDatasource(iter.Value())
				if compileErr != nil {
					if !collect(convertCompileError(compileErr, "datasource."+iter.Label())) {
						return result, errs
					}
					continue
				}
				result.Schema.Datasources = append(result.Schema.Datasources, *def)
			}
		}
	}

	modelsVal := value.LookupPath(cue.ParsePath("model"))
	if modelsVal.Exists() {
		iter, iterErr := modelsVal.Fields()
		if iterErr != nil {
			if !collect(&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating models: %v", iterErr)}) {
				return result, errs
			}
		} else {
			for iter.Next() {
				def, compileErr := compiler.CompileModel(iter.Value())
				if compileErr != nil {
					if !collect(convertCompileError(compileErr, "model."+iter.Label())) {
						return result, errs
					}
					continue
				}
				result.Schema.Models = append(result.Schema.Models, *def)
			}
		}
	}

	if len(result.Schema.Models) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no models found"})
	}
	return result, errs
}

// FindCUEFiles returns the .cue files directly inside dir; subdirectories
// are separate CUE packages and are not loaded.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s: %s", context, compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // Store write error
	ErrCodeQuery       = "E008" // Query rejected or failed
)

// MapFieldToErrorCode maps a compiler error field to a validation code.
func MapFieldToErrorCode(field string) string {
	last := field[strings.LastIndex(field, ".")+1:]
	switch {
	case last == "kind" && strings.HasPrefix(field, "relations."):
		return compiler.ErrInvalidRelationKind
	case last == "scope":
		return compiler.ErrInvalidRelationScope
	case last == "unique":
		return compiler.ErrInvalidUniqueMode
	case last == "default", last == "value":
		return compiler.ErrInvalidDefault
	case last == "type", last == "itemType", strings.HasPrefix(field, "properties."):
		return compiler.ErrInvalidPropertyType
	case last == "connector":
		return compiler.ErrUnknownConnector
	case last == "base":
		return compiler.ErrUnknownBase
	default:
		return ErrCodeGeneric
	}
}

// loadModels loads, validates and registers the models of dir. Any load or
// validation error fails the whole load with ExitCommandError.
func loadModels(dir string) (*compiler.Schema, *schema.Resolver, error) {
	result, errs := LoadModels(dir, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load models", errs[0])
	}
	if verrs := compiler.Validate(result.Schema); len(verrs) > 0 {
		return nil, nil, WrapExitError(ExitCommandError,
			fmt.Sprintf("models are invalid (%d error(s), run validate for details)", len(verrs)), verrs[0])
	}
	reg := schema.NewRegistry()
	if err := result.Schema.Register(reg); err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to register models", err)
	}
	return result.Schema, schema.NewResolver(reg), nil
}
