package harness

import "github.com/roach88/modelq/internal/ir"

// Outcome is what one query returned.
type Outcome struct {
	Name    string      `json:"name"`
	Op      string      `json:"op"`
	Model   string      `json:"model"`
	Records []ir.Object `json:"records,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Exists  *bool       `json:"exists,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Value renders the outcome for canonical snapshots.
func (o Outcome) Value() ir.Object {
	obj := ir.Object{
		"name":  ir.String(o.Name),
		"op":    ir.String(o.Op),
		"model": ir.String(o.Model),
	}
	switch {
	case o.Error != "":
		obj["error"] = ir.String(o.Error)
	case o.Count != nil:
		obj["count"] = ir.Int(*o.Count)
	case o.Exists != nil:
		obj["exists"] = ir.Bool(*o.Exists)
	default:
		records := make(ir.Array, len(o.Records))
		for i, rec := range o.Records {
			records[i] = rec
		}
		obj["records"] = records
	}
	return obj
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every query met its expectation.
	Pass bool `json:"pass"`

	// Outcomes holds one entry per query, in order.
	Outcomes []Outcome `json:"outcomes"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Seeded is the number of fixture records created.
	Seeded int `json:"seeded"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Outcomes: []Outcome{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
