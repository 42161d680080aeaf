package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modelq/internal/ir"
)

func userModel() ir.ModelDefinition {
	return ir.ModelDefinition{
		Name: "User",
		Properties: map[string]ir.PropertyDefinition{
			"id":   {Type: ir.TypeInteger, ID: true},
			"name": {Type: ir.TypeString},
		},
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterModel(userModel()))

	def, err := reg.Model("User")
	require.NoError(t, err)
	assert.Equal(t, "User", def.Name)
	assert.Equal(t, "name", def.Properties["name"].Name, "property names are filled from map keys")

	_, err = reg.Model("Nope")
	require.Error(t, err)
	assert.True(t, ir.HasCode(err, ir.ErrCodeUnknownModel))
}

func TestRegistry_DuplicateModelRejected(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterModel(userModel()))

	other := userModel()
	other.Properties = map[string]ir.PropertyDefinition{"uid": {Type: ir.TypeString, ID: true}}
	err := reg.RegisterModel(other)
	require.Error(t, err)
	assert.True(t, ir.HasCode(err, ir.ErrCodeDuplicateDefinition))
	assert.Contains(t, err.Error(), `"User"`)

	def, err := reg.Model("User")
	require.NoError(t, err)
	assert.Contains(t, def.Properties, "id", "existing definition unchanged")
	assert.NotContains(t, def.Properties, "uid")
	assert.Equal(t, []string{"User"}, reg.Models())
}

func TestRegistry_DuplicateDatasourceRejected(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterDatasource(ir.DatasourceDefinition{Name: "db", Connector: ir.ConnectorMemory}))

	err := reg.RegisterDatasource(ir.DatasourceDefinition{Name: "db", Connector: ir.ConnectorSQLite})
	require.Error(t, err)
	assert.True(t, ir.HasCode(err, ir.ErrCodeDuplicateDefinition))

	ds, err := reg.Datasource("db")
	require.NoError(t, err)
	assert.Equal(t, ir.ConnectorMemory, ds.Connector)
	assert.Equal(t, []string{"db"}, reg.Datasources())
}

func TestRegistry_CopiesDefinition(t *testing.T) {
	reg := NewRegistry()
	def := userModel()
	require.NoError(t, reg.RegisterModel(def))

	def.Properties["extra"] = ir.PropertyDefinition{Type: ir.TypeString}

	stored, err := reg.Model("User")
	require.NoError(t, err)
	assert.NotContains(t, stored.Properties, "extra")
}

func TestRegistry_RejectsEmptyName(t *testing.T) {
	reg := NewRegistry()
	assert.True(t, ir.IsInvalidArgument(reg.RegisterModel(ir.ModelDefinition{})))
	assert.True(t, ir.IsInvalidArgument(reg.RegisterDatasource(ir.DatasourceDefinition{})))
}

func TestRegistry_Close(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterModel(userModel()))
	require.NoError(t, reg.Close())
	require.NoError(t, reg.Close())

	_, err := reg.Model("User")
	assert.ErrorIs(t, err, ErrRegistryClosed)
	assert.ErrorIs(t, reg.RegisterModel(userModel()), ErrRegistryClosed)
	assert.Empty(t, reg.Models())
}
