package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modelq/internal/ir"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func validModel() ir.ModelDefinition {
	return ir.ModelDefinition{
		Name: "Pet",
		Properties: map[string]ir.PropertyDefinition{
			"id":     {Type: ir.TypeInteger, ID: true},
			"name":   {Type: ir.TypeString, Default: ir.String("rex")},
			"born":   {Type: ir.TypeDate, DefaultFn: ir.DefaultFnNow},
			"tags":   {Type: ir.TypeArray, ItemType: ir.TypeString},
			"chipId": {Type: ir.TypeString, Unique: ir.UniqueOn},
		},
		Relations: map[string]ir.RelationDefinition{
			"owner": {Kind: ir.BelongsTo, Target: "Owner"},
			"toys":  {Kind: ir.HasMany, Target: "Toy", Scope: ir.Object{"order": ir.String("name")}},
		},
	}
}

func TestValidate_ValidModel(t *testing.T) {
	assert.Empty(t, Validate(validModel()))
	m := validModel()
	assert.Empty(t, Validate(&m))
}

func TestValidate_ModelErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *ir.ModelDefinition)
		code   string
	}{
		{"bad model name", func(m *ir.ModelDefinition) { m.Name = "my-pet" }, ErrInvalidName},
		{"bad property name", func(m *ir.ModelDefinition) {
			m.Properties["first name"] = ir.PropertyDefinition{Type: ir.TypeString}
		}, ErrInvalidName},
		{"empty", func(m *ir.ModelDefinition) { m.Properties = nil; m.Relations = nil }, ErrModelEmpty},
		{"bad type", func(m *ir.ModelDefinition) {
			m.Properties["size"] = ir.PropertyDefinition{Type: "decimal"}
		}, ErrInvalidPropertyType},
		{"itemType without array", func(m *ir.ModelDefinition) {
			m.Properties["size"] = ir.PropertyDefinition{Type: ir.TypeString, ItemType: ir.TypeString}
		}, ErrInvalidPropertyType},
		{"shared column", func(m *ir.ModelDefinition) {
			m.Properties["alias"] = ir.PropertyDefinition{Type: ir.TypeString, Column: "name"}
		}, ErrDuplicateName},
		{"unknown defaultFn", func(m *ir.ModelDefinition) {
			m.Properties["code"] = ir.PropertyDefinition{Type: ir.TypeString, DefaultFn: "random"}
		}, ErrInvalidDefault},
		{"default and defaultFn", func(m *ir.ModelDefinition) {
			m.Properties["code"] = ir.PropertyDefinition{Type: ir.TypeString, DefaultFn: ir.DefaultFnUUID, Default: ir.String("x")}
		}, ErrInvalidDefault},
		{"default type", func(m *ir.ModelDefinition) {
			m.Properties["age"] = ir.PropertyDefinition{Type: ir.TypeInteger, Default: ir.String("old")}
		}, ErrDefaultTypeMismatch},
		{"unique mode", func(m *ir.ModelDefinition) {
			m.Properties["chipId"] = ir.PropertyDefinition{Type: ir.TypeString, Unique: "sometimes"}
		}, ErrInvalidUniqueMode},
		{"relation kind", func(m *ir.ModelDefinition) {
			m.Relations["vet"] = ir.RelationDefinition{Kind: "manyToMany", Target: "Vet"}
		}, ErrInvalidRelationKind},
		{"no target", func(m *ir.ModelDefinition) {
			m.Relations["vet"] = ir.RelationDefinition{Kind: ir.HasOne}
		}, ErrMissingTarget},
		{"polymorphic referencesMany", func(m *ir.ModelDefinition) {
			m.Relations["things"] = ir.RelationDefinition{Kind: ir.ReferencesMany, Target: "Thing", Polymorphic: &ir.Polymorphic{}}
		}, ErrUnsupportedRelation},
		{"bad scope", func(m *ir.ModelDefinition) {
			m.Relations["toys"] = ir.RelationDefinition{Kind: ir.HasMany, Target: "Toy", Scope: ir.Object{"limit": ir.Int(-1)}}
		}, ErrInvalidRelationScope},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validModel()
			tt.mutate(&m)
			errs := Validate(&m)
			require.Len(t, errs, 1, "got %v", errs)
			assert.Equal(t, tt.code, errs[0].Code)
		})
	}
}

func TestValidate_PolymorphicBelongsToNeedsNoTarget(t *testing.T) {
	m := validModel()
	m.Relations["subject"] = ir.RelationDefinition{Kind: ir.BelongsTo, Polymorphic: &ir.Polymorphic{Targets: []string{"Owner"}}}
	assert.Empty(t, Validate(&m))
}

func TestValidate_Datasource(t *testing.T) {
	assert.Empty(t, Validate(ir.DatasourceDefinition{Name: "main", Connector: ir.ConnectorSQLite}))
	errs := Validate(&ir.DatasourceDefinition{Name: "main", Connector: "redis"})
	assert.Equal(t, []string{ErrUnknownConnector}, codes(errs))
}

func TestValidate_UnsupportedType(t *testing.T) {
	errs := Validate("nope")
	assert.Equal(t, []string{ErrUnsupportedIRType}, codes(errs))
}

func TestValidate_SchemaCrossReferences(t *testing.T) {
	s := &Schema{
		Datasources: []ir.DatasourceDefinition{
			{Name: "main", Connector: ir.ConnectorMemory},
			{Name: "main", Connector: ir.ConnectorMemory},
		},
		Models: []ir.ModelDefinition{
			{Name: "Animal", Datasource: "main", Properties: map[string]ir.PropertyDefinition{"id": {ID: true}}},
			{Name: "Dog", Base: "Animal", Properties: map[string]ir.PropertyDefinition{"bark": {Type: ir.TypeString}}},
			{Name: "Cat", Base: "Lion"},
			{Name: "Rock", Datasource: "quarry", Properties: map[string]ir.PropertyDefinition{"weight": {Type: ir.TypeNumber}}},
			{Name: "Kennel", Properties: map[string]ir.PropertyDefinition{"id": {ID: true}},
				Relations: map[string]ir.RelationDefinition{
					"dogs":  {Kind: ir.HasMany, Target: "Dog"},
					"birds": {Kind: ir.HasMany, Target: "Bird"},
				}},
			{Name: "Dog", Properties: map[string]ir.PropertyDefinition{"id": {ID: true}}},
		},
	}

	errs := Validate(s)
	assert.ElementsMatch(t, []string{
		ErrDuplicateName,     // datasource main
		ErrDuplicateName,     // model Dog
		ErrUnknownBase,       // Cat -> Lion
		ErrUnknownDatasource, // Rock -> quarry
		ErrMissingPrimaryKey, // Rock
		ErrUnknownTarget,     // Kennel.birds
	}, codes(errs), "got %v", errs)
}

func TestValidate_SchemaInheritanceCycle(t *testing.T) {
	s := &Schema{Models: []ir.ModelDefinition{
		{Name: "A", Base: "B", Properties: map[string]ir.PropertyDefinition{"x": {}}},
		{Name: "B", Base: "A", Properties: map[string]ir.PropertyDefinition{"y": {}}},
		{Name: "C", Base: "A", Properties: map[string]ir.PropertyDefinition{"z": {}}},
	}}

	errs := Validate(s)
	require.Len(t, errs, 1, "descendants of a cycle are not reported twice: %v", errs)
	assert.Equal(t, ErrInheritanceCycle, errs[0].Code)
	assert.Equal(t, "[E121] model.A.base: inheritance cycle: A -> B -> A", errs[0].Error())
}
