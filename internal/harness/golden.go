package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/modelq/internal/ir"
)

// Snapshot renders a scenario's outcomes as canonical JSON. Identical runs
// produce identical bytes.
func Snapshot(name string, result *Result) ([]byte, error) {
	outcomes := make(ir.Array, len(result.Outcomes))
	for i, o := range result.Outcomes {
		outcomes[i] = o.Value()
	}
	return ir.MarshalCanonical(ir.Object{
		"scenario": ir.String(name),
		"outcomes": outcomes,
	})
}

// AssertGolden compares the result's snapshot against a golden file.
// The golden file is stored in testdata/golden/{name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}

// GoldenPath is where the CLI keeps the golden file of a scenario found in
// scenariosDir.
func GoldenPath(scenariosDir, name string) string {
	return filepath.Join(scenariosDir, "golden", name+".golden")
}

// CompareGolden compares data with the golden file at path. With update set
// the file is (re)written and the comparison always succeeds.
func CompareGolden(path string, data []byte, update bool) (bool, error) {
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return false, fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return false, fmt.Errorf("failed to write golden file: %w", err)
		}
		return true, nil
	}

	golden, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("golden file %s not found (run with --update to create it)", path)
	}
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	return bytes.Equal(golden, data), nil
}
