package harness

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/modelq/internal/adapter"
	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/schema"
)

// Fixtures maps a model name to the records to create for it.
type Fixtures map[string][]map[string]any

// LoadFixtures reads a fixtures YAML file:
//
//	Owner:
//	  - {id: 1, name: ann}
//	Pet:
//	  - {id: 10, name: rex, ownerId: 1, born: 2020-05-01}
func LoadFixtures(path string) (Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures file: %w", err)
	}
	var fx Fixtures
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&fx); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return fx, nil
}

// Seed creates every fixture record through w and returns how many were
// created. Models are seeded in name order.
//
// Values are coerced to their declared property types first: date
// properties accept RFC 3339 or YYYY-MM-DD strings, number properties keep
// integral values as floats.
func Seed(ctx context.Context, w adapter.Writer, resolver *schema.Resolver, fx Fixtures) (int, error) {
	created := 0
	for _, model := range slices.Sorted(maps.Keys(fx)) {
		meta, err := resolver.Resolve(model)
		if err != nil {
			return created, fmt.Errorf("fixtures.%s: %w", model, err)
		}
		for i, raw := range fx[model] {
			rec, err := toRecord(meta, raw)
			if err != nil {
				return created, fmt.Errorf("fixtures.%s[%d]: %w", model, i, err)
			}
			if _, err := w.Create(ctx, model, rec); err != nil {
				return created, fmt.Errorf("fixtures.%s[%d]: %w", model, i, err)
			}
			created++
		}
	}
	return created, nil
}

func toRecord(meta *schema.Resolved, raw map[string]any) (ir.Object, error) {
	v, err := ir.FromAny(raw)
	if err != nil {
		return nil, err
	}
	rec := v.(ir.Object)
	for name, val := range rec {
		p, ok := meta.Properties[name]
		if !ok {
			continue
		}
		coerced, err := coerce(p, val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		rec[name] = coerced
	}
	return rec, nil
}

var dateLayouts = []string{time.RFC3339Nano, time.DateOnly}

func coerce(p ir.PropertyDefinition, v ir.Value) (ir.Value, error) {
	switch p.Type {
	case ir.TypeDate:
		s, ok := v.(ir.String)
		if !ok {
			return v, nil
		}
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, string(s)); err == nil {
				return ir.NewTime(ts.UTC()), nil
			}
		}
		return nil, fmt.Errorf("%q is not a date", string(s))
	case ir.TypeNumber:
		if n, ok := v.(ir.Int); ok {
			return ir.Float(n), nil
		}
	}
	return v, nil
}
