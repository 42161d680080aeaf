package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeText(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewDescribeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{modelsDir, "Pet"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "Model: Pet\n")
	assert.Contains(t, output, "Chain: Pet -> Animal\n")
	assert.Contains(t, output, "Datasource: default\n")
	assert.Contains(t, output, "Table: Pet\n")
	assert.Contains(t, output, "Primary key: id\n")
	assert.Contains(t, output, "  id: integer [id]\n")
	assert.Contains(t, output, "  name: string [required]\n")
	assert.Contains(t, output, `  status: string [default="active"]`)
	assert.Contains(t, output, "  owner: belongsTo Owner via ownerId\n")
}

func TestDescribeHasManyForeignKey(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewDescribeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{modelsDir, "Owner"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "Table: owners\n")
	assert.NotContains(t, output, "Chain:")
	assert.Contains(t, output, "  pets: hasMany Pet via ownerId\n")
}

func TestDescribeJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewDescribeCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{modelsDir, "Pet"})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string           `json:"status"`
		Data   ModelDescription `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"Pet", "Animal"}, resp.Data.Chain)
	assert.Equal(t, "id", resp.Data.PrimaryKey)

	names := make([]string, len(resp.Data.Properties))
	for i, p := range resp.Data.Properties {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"born", "id", "name", "ownerId", "status"}, names)
	assert.Equal(t, "date", resp.Data.Properties[0].Type)

	require.Len(t, resp.Data.Relations, 1)
	assert.Equal(t, RelationDescription{
		Name:       "owner",
		Kind:       "belongsTo",
		Targets:    []string{"Owner"},
		ForeignKey: "ownerId",
	}, resp.Data.Relations[0])
}

func TestDescribeUnknownModel(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewDescribeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{modelsDir, "Ghost"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [UNKNOWN_MODEL]")
}

func TestDescribeUnloadableModels(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewDescribeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/models", "Pet"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E005]")
}

func TestDescribePolymorphic(t *testing.T) {
	tmpDir := t.TempDir()
	writeCUE(t, tmpDir, "models.cue", `
package test

model: Photo: properties: id: {type: "integer", id: true}
model: Video: properties: id: {type: "integer", id: true}
model: Comment: {
	properties: {
		id:       {type: "integer", id: true}
		targetId: "integer"
	}
	relations: target: {
		kind:        "belongsTo"
		polymorphic: {targets: ["Photo", "Video"]}
	}
}
`)

	buf := &bytes.Buffer{}
	cmd := NewDescribeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{tmpDir, "Comment"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "  target: belongsTo Photo|Video via targetId (discriminator targetType)\n")
}
