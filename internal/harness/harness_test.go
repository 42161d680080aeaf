package harness

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modelq/internal/compiler"
	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/testutil"
)

func petSchema() *compiler.Schema {
	return &compiler.Schema{
		Models: []ir.ModelDefinition{
			{
				Name: "Owner",
				Properties: map[string]ir.PropertyDefinition{
					"id":   {Type: ir.TypeInteger, ID: true},
					"name": {Type: ir.TypeString},
				},
				Relations: map[string]ir.RelationDefinition{
					"pets": {Kind: ir.HasMany, Target: "Pet"},
				},
			},
			{
				Name: "Pet",
				Properties: map[string]ir.PropertyDefinition{
					"id":      {Type: ir.TypeInteger, ID: true},
					"name":    {Type: ir.TypeString},
					"ownerId": {Type: ir.TypeInteger},
					"born":    {Type: ir.TypeDate},
					"weight":  {Type: ir.TypeNumber},
				},
				Relations: map[string]ir.RelationDefinition{
					"owner": {Kind: ir.BelongsTo, Target: "Owner"},
				},
			},
		},
	}
}

func TestRun_ScenarioFile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/pets.yaml")
	require.NoError(t, err)

	result, err := Run(context.Background(), petSchema(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 5, result.Seeded)
	require.Len(t, result.Outcomes, 5)

	require.True(t, scenario.Golden)
	require.NoError(t, AssertGolden(t, scenario.Name, result))
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/pets.yaml")
	require.NoError(t, err)

	first, err := Run(context.Background(), petSchema(), scenario)
	require.NoError(t, err)
	second, err := Run(context.Background(), petSchema(), scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_FreshDatabasePerRun(t *testing.T) {
	scenario := &Scenario{
		Name:     "fresh",
		Fixtures: Fixtures{"Owner": {{"id": 1, "name": "ann"}}},
		Queries:  []Query{{Name: "all", Model: "Owner", Op: OpCount, Expect: &Expect{Count: intPtr(1)}}},
	}

	for range 2 {
		result, err := Run(context.Background(), petSchema(), scenario)
		require.NoError(t, err, "a shared store would reject the second seed as a duplicate")
		assert.True(t, result.Pass, "errors: %v", result.Errors)
	}
}

func TestRun_FailedExpectations(t *testing.T) {
	scenario := &Scenario{
		Name: "failing",
		Fixtures: Fixtures{
			"Owner": {{"id": 1, "name": "ann"}, {"id": 2, "name": "bob"}},
		},
		Queries: []Query{
			{Name: "wrong_ids", Model: "Owner", Op: OpFind, Expect: &Expect{IDs: []any{2, 1}}},
			{Name: "wrong_count", Model: "Owner", Op: OpCount, Expect: &Expect{Count: intPtr(5)}},
			{Name: "wrong_record", Model: "Owner", Op: OpFind,
				Filter: map[string]any{"order": "id"},
				Expect: &Expect{Records: []map[string]any{{"name": "ann"}, {"name": "zed"}}}},
			{Name: "missing_error", Model: "Owner", Op: OpFind, Expect: &Expect{Error: "boom"}},
			{Name: "unexpected_error", Model: "Ghost", Op: OpFind},
			{Name: "wrong_exists", Model: "Owner", Op: OpExists, ID: 1, Expect: &Expect{Exists: boolPtr(false)}},
		},
	}

	result, err := Run(context.Background(), petSchema(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)
	assert.Equal(t, "wrong_ids: ids: expected [2, 1], got [1, 2]", result.Errors[0])
	assert.Equal(t, "wrong_count: count: expected 5, got 2", result.Errors[1])
	assert.Equal(t, `wrong_record: records[1].name: expected "zed", got "bob"`, result.Errors[2])
	assert.Equal(t, `missing_error: expected error containing "boom", query succeeded`, result.Errors[3])
	assert.Contains(t, result.Errors[4], "unexpected_error: unexpected error: UNKNOWN_MODEL")
	assert.Equal(t, "wrong_exists: exists: expected false, got true", result.Errors[5])
}

func TestRun_ErrorExpectation(t *testing.T) {
	scenario := &Scenario{
		Name: "errors",
		Queries: []Query{
			{Name: "typed", Model: "Pet", Op: OpFind,
				Filter: map[string]any{"where": map[string]any{"ownerId": map[string]any{"gt": "one"}}},
				Expect: &Expect{Error: "INVALID_OPERATOR_VALUE"}},
			{Name: "relation", Model: "Pet", Op: OpFind,
				Filter: map[string]any{"include": "vet"},
				Expect: &Expect{Error: "UNKNOWN_RELATION"}},
			{Name: "missing", Model: "Owner", Op: OpFindByID, ID: 7,
				Expect: &Expect{Error: "NOT_FOUND"}},
		},
	}

	result, err := Run(context.Background(), petSchema(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	for _, o := range result.Outcomes {
		assert.NotEmpty(t, o.Error, o.Name)
		assert.Nil(t, o.Count)
	}
}

func TestRun_SetupErrors(t *testing.T) {
	tests := []struct {
		name     string
		models   *compiler.Schema
		fixtures Fixtures
		contains string
	}{
		{
			name:     "unknown fixture model",
			models:   petSchema(),
			fixtures: Fixtures{"Vet": {{"id": 1}}},
			contains: "fixtures.Vet",
		},
		{
			name:     "duplicate fixture id",
			models:   petSchema(),
			fixtures: Fixtures{"Owner": {{"id": 1}, {"id": 1}}},
			contains: "fixtures.Owner[1]",
		},
		{
			name: "duplicate model",
			models: &compiler.Schema{Models: []ir.ModelDefinition{
				{Name: "A", Properties: map[string]ir.PropertyDefinition{"id": {ID: true}}},
				{Name: "A", Properties: map[string]ir.PropertyDefinition{"id": {ID: true}}},
			}},
			contains: "register model A",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario := &Scenario{
				Name:     "setup",
				Fixtures: tt.fixtures,
				Queries:  []Query{{Name: "q", Model: "Owner", Op: OpCount}},
			}
			_, err := Run(context.Background(), tt.models, scenario)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestRun_NowDefaultsUseStepClock(t *testing.T) {
	models := &compiler.Schema{Models: []ir.ModelDefinition{{
		Name: "Note",
		Properties: map[string]ir.PropertyDefinition{
			"id":      {Type: ir.TypeInteger, ID: true},
			"created": {Type: ir.TypeDate, DefaultFn: ir.DefaultFnNow},
		},
	}}}
	scenario := &Scenario{
		Name:     "clock",
		Fixtures: Fixtures{"Note": {{"id": 1}, {"id": 2}}},
		Queries:  []Query{{Name: "notes", Model: "Note", Op: OpFind, Filter: map[string]any{"order": "id"}}},
	}

	result, err := Run(context.Background(), models, scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	records := result.Outcomes[0].Records
	require.Len(t, records, 2)
	assert.True(t, records[0]["created"].(ir.Time).Equal(testutil.Epoch.Add(time.Second)))
	assert.True(t, records[1]["created"].(ir.Time).Equal(testutil.Epoch.Add(2*time.Second)))
}

func TestRun_WithLogger(t *testing.T) {
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	scenario := &Scenario{
		Name:     "logged",
		Fixtures: Fixtures{"Owner": {{"id": 1}}},
		Queries:  []Query{{Name: "all", Model: "Owner", Op: OpFind}},
	}

	_, err := Run(context.Background(), petSchema(), scenario, WithLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), `msg="fixtures seeded"`)
	assert.Contains(t, logs.String(), "query=logged")
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("first")
	r.AddError("second")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"first", "second"}, r.Errors)
}

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }
