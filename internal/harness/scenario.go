package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios seed a fresh store with fixtures, run a list of queries through
// the engine, and check each query's outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fixtures holds the records to create before any query runs, keyed by
	// model name. Models are seeded in name order, records in file order.
	Fixtures Fixtures `yaml:"fixtures,omitempty"`

	// Queries run in order against the seeded store.
	Queries []Query `yaml:"queries"`

	// Golden compares the scenario's outcomes against a snapshot.
	Golden bool `yaml:"golden,omitempty"`
}

// Query is one engine call.
type Query struct {
	// Name labels the query in failures and snapshots. Defaults to
	// "queries[i]".
	Name string `yaml:"name,omitempty"`

	// Model is the model to query.
	Model string `yaml:"model"`

	// Op is one of find, findOne, findById, count, exists.
	Op string `yaml:"op"`

	// Filter is a filter document (where/order/skip/limit/fields/include).
	// For count only where is used.
	Filter map[string]any `yaml:"filter,omitempty"`

	// ID is the primary key for findById and exists.
	ID any `yaml:"id,omitempty"`

	// Expect checks the outcome. A query without expect only has to succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a query.
type Expect struct {
	// IDs are the primary keys of the returned records, in order.
	IDs []any `yaml:"ids,omitempty"`

	// Count is the expected count, or the expected number of records.
	Count *int `yaml:"count,omitempty"`

	// Records are matched position by position. Each is a subset match:
	// keys absent from the expected record are ignored.
	Records []map[string]any `yaml:"records,omitempty"`

	// Exists is the expected result of an exists query.
	Exists *bool `yaml:"exists,omitempty"`

	// Error is a substring the query's error must contain. When set, the
	// query must fail.
	Error string `yaml:"error,omitempty"`
}

// Query operations.
const (
	OpFind     = "find"
	OpFindOne  = "findOne"
	OpFindByID = "findById"
	OpCount    = "count"
	OpExists   = "exists"
)

var validOps = map[string]bool{
	OpFind:     true,
	OpFindOne:  true,
	OpFindByID: true,
	OpCount:    true,
	OpExists:   true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields so "expects:" vs "expect:" is caught
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}

	for model, records := range s.Fixtures {
		for i, rec := range records {
			if rec == nil {
				return fmt.Errorf("fixtures.%s[%d]: record must be a mapping", model, i)
			}
		}
	}

	for i := range s.Queries {
		q := &s.Queries[i]
		if q.Name == "" {
			q.Name = fmt.Sprintf("queries[%d]", i)
		}
		if err := validateQuery(q); err != nil {
			return fmt.Errorf("%s: %w", q.Name, err)
		}
	}
	return nil
}

func validateQuery(q *Query) error {
	if q.Model == "" {
		return fmt.Errorf("model is required")
	}
	if !validOps[q.Op] {
		return fmt.Errorf("unknown op %q (want find, findOne, findById, count or exists)", q.Op)
	}
	if (q.Op == OpFindByID || q.Op == OpExists) && q.ID == nil {
		return fmt.Errorf("id is required for %s", q.Op)
	}
	if q.Expect == nil {
		return nil
	}

	e := q.Expect
	if e.Count != nil && *e.Count < 0 {
		return fmt.Errorf("expect.count must be non-negative")
	}
	if e.Exists != nil && q.Op != OpExists {
		return fmt.Errorf("expect.exists only applies to exists")
	}
	if q.Op == OpCount && (e.IDs != nil || e.Records != nil) {
		return fmt.Errorf("count queries can only expect count or error")
	}
	if e.Error != "" && (e.IDs != nil || e.Count != nil || e.Records != nil || e.Exists != nil) {
		return fmt.Errorf("expect.error cannot be combined with other expectations")
	}
	return nil
}
